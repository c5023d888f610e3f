// Package localstore provides the embedded SQLite replica for salondesk.
//
// Every entity type owns one table, all with the identical shape: the entity
// JSON document plus mirrored index columns (business_id, category, ref_id,
// search_text) and the needs_sync dirty flag driving the sync protocol.
//
// The database runs in embedded mode with WAL for concurrent reads. All reads
// are filtered by business_id; tenant isolation is enforced here and by the
// repositories above, never left to the caller.
package localstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
)

// ErrNotFound indicates no row matched the lookup.
var ErrNotFound = errors.New("localstore: row not found")

// Row is the persisted shape shared by every entity table.
type Row struct {
	ID         string
	BusinessID string
	Data       []byte // entity JSON document
	SearchText string // lowercase denormalized search text
	Category   string // entity-specific filter column
	RefID      string // entity-specific soft reference id
	Deleted    bool   // tombstone awaiting remote delete
	NeedsSync  bool   // local mutation not yet confirmed remote
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Store wraps the embedded SQLite connection shared by all repositories.
type Store struct {
	conn *sql.DB
	path string
	hub  *hub
}

// Open creates the database at path, enabling WAL mode and a busy timeout.
// The caller MUST call Close() when done.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	conn, err := sql.Open("sqlite3", "file:"+path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := conn.Ping(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	conn.SetMaxOpenConns(25)
	conn.SetMaxIdleConns(5)
	conn.SetConnMaxLifetime(5 * time.Minute)

	s := &Store{conn: conn, path: path, hub: newHub()}

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := s.conn.Exec(pragma); err != nil {
			_ = s.Close()
			return nil, fmt.Errorf("failed to apply %s: %w", pragma, err)
		}
	}

	return s, nil
}

// RawDB returns the underlying sql.DB connection.
func (s *Store) RawDB() *sql.DB {
	return s.conn
}

// Close checkpoints the WAL and closes the connection.
func (s *Store) Close() error {
	if s.conn == nil {
		return nil
	}

	if _, err := s.conn.Exec("PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to checkpoint WAL: %v\n", err)
	}

	if err := s.conn.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}

	s.conn = nil
	s.hub.closeAll()
	return nil
}

// InitSchema creates one replica table per name in tables. Idempotent.
func (s *Store) InitSchema(ctx context.Context, tables []string) error {
	for _, table := range tables {
		schema := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %[1]s (
			id TEXT PRIMARY KEY,
			business_id TEXT NOT NULL,
			data TEXT NOT NULL,
			search_text TEXT NOT NULL DEFAULT '',
			category TEXT NOT NULL DEFAULT '',
			ref_id TEXT NOT NULL DEFAULT '',
			deleted INTEGER NOT NULL DEFAULT 0,
			needs_sync INTEGER NOT NULL DEFAULT 1,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_%[1]s_business ON %[1]s(business_id);
		CREATE INDEX IF NOT EXISTS idx_%[1]s_dirty ON %[1]s(business_id, needs_sync);
		CREATE INDEX IF NOT EXISTS idx_%[1]s_category ON %[1]s(business_id, category);
		CREATE INDEX IF NOT EXISTS idx_%[1]s_ref ON %[1]s(business_id, ref_id);
		`, table)

		if _, err := s.conn.ExecContext(ctx, schema); err != nil {
			return fmt.Errorf("failed to initialize schema for %s: %w", table, err)
		}
	}
	return nil
}

// Subscribe registers a change listener for table. The returned channel
// receives a coalesced signal after every mutation of the table; cancel
// removes the listener. Used by reactive repository queries.
func (s *Store) Subscribe(table string) (<-chan struct{}, func()) {
	return s.hub.subscribe(table)
}

// Put inserts or fully overwrites a row, then notifies table subscribers.
func (s *Store) Put(ctx context.Context, table string, row Row) error {
	query := fmt.Sprintf(`
	INSERT INTO %[1]s (
		id, business_id, data, search_text, category, ref_id,
		deleted, needs_sync, created_at, updated_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		business_id = excluded.business_id,
		data = excluded.data,
		search_text = excluded.search_text,
		category = excluded.category,
		ref_id = excluded.ref_id,
		deleted = excluded.deleted,
		needs_sync = excluded.needs_sync,
		updated_at = excluded.updated_at
	`, table)

	_, err := s.conn.ExecContext(ctx, query,
		row.ID,
		row.BusinessID,
		string(row.Data),
		row.SearchText,
		row.Category,
		row.RefID,
		boolToInt(row.Deleted),
		boolToInt(row.NeedsSync),
		row.CreatedAt.Format(time.RFC3339),
		row.UpdatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to put row %s into %s: %w", row.ID, table, err)
	}

	s.hub.notify(table)
	return nil
}

// Get returns a single row owned by businessID. Tombstoned rows are excluded
// unless includeDeleted is set. Returns ErrNotFound when the row is absent or
// belongs to a different tenant; callers cannot distinguish the two.
func (s *Store) Get(ctx context.Context, table, businessID, id string, includeDeleted bool) (*Row, error) {
	query := fmt.Sprintf(`
	SELECT id, business_id, data, search_text, category, ref_id,
	       deleted, needs_sync, created_at, updated_at
	FROM %s
	WHERE id = ? AND business_id = ?
	`, table)
	if !includeDeleted {
		query += " AND deleted = 0"
	}

	row, err := scanRow(s.conn.QueryRowContext(ctx, query, id, businessID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get row %s from %s: %w", id, table, err)
	}
	return row, nil
}

// List returns every live row owned by businessID, oldest first.
func (s *Store) List(ctx context.Context, table, businessID string) ([]Row, error) {
	query := fmt.Sprintf(`
	SELECT id, business_id, data, search_text, category, ref_id,
	       deleted, needs_sync, created_at, updated_at
	FROM %s
	WHERE business_id = ? AND deleted = 0
	ORDER BY created_at ASC, id ASC
	`, table)

	rows, err := s.conn.QueryContext(ctx, query, businessID)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", table, err)
	}
	defer rows.Close()

	return scanRows(rows)
}

// Search returns live rows whose search_text contains q (case-insensitive).
func (s *Store) Search(ctx context.Context, table, businessID, q string) ([]Row, error) {
	query := fmt.Sprintf(`
	SELECT id, business_id, data, search_text, category, ref_id,
	       deleted, needs_sync, created_at, updated_at
	FROM %s
	WHERE business_id = ? AND deleted = 0 AND instr(search_text, ?) > 0
	ORDER BY created_at ASC, id ASC
	`, table)

	rows, err := s.conn.QueryContext(ctx, query, businessID, strings.ToLower(q))
	if err != nil {
		return nil, fmt.Errorf("failed to search %s: %w", table, err)
	}
	defer rows.Close()

	return scanRows(rows)
}

// Dirty returns every row (tombstones included) with needs_sync set.
func (s *Store) Dirty(ctx context.Context, table, businessID string) ([]Row, error) {
	query := fmt.Sprintf(`
	SELECT id, business_id, data, search_text, category, ref_id,
	       deleted, needs_sync, created_at, updated_at
	FROM %s
	WHERE business_id = ? AND needs_sync = 1
	ORDER BY updated_at ASC, id ASC
	`, table)

	rows, err := s.conn.QueryContext(ctx, query, businessID)
	if err != nil {
		return nil, fmt.Errorf("failed to query dirty rows in %s: %w", table, err)
	}
	defer rows.Close()

	return scanRows(rows)
}

// CountDirty reports how many rows await a push.
func (s *Store) CountDirty(ctx context.Context, table, businessID string) (int, error) {
	query := fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE business_id = ? AND needs_sync = 1", table)
	var count int
	if err := s.conn.QueryRowContext(ctx, query, businessID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count dirty rows in %s: %w", table, err)
	}
	return count, nil
}

// MarkClean clears the dirty flag after a confirmed remote write.
func (s *Store) MarkClean(ctx context.Context, table, id string) error {
	query := fmt.Sprintf("UPDATE %s SET needs_sync = 0 WHERE id = ?", table)
	if _, err := s.conn.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("failed to mark row %s clean in %s: %w", id, table, err)
	}
	s.hub.notify(table)
	return nil
}

// HardDelete removes a row entirely. Idempotent.
func (s *Store) HardDelete(ctx context.Context, table, businessID, id string) error {
	query := fmt.Sprintf("DELETE FROM %s WHERE id = ? AND business_id = ?", table)
	if _, err := s.conn.ExecContext(ctx, query, id, businessID); err != nil {
		return fmt.Errorf("failed to delete row %s from %s: %w", id, table, err)
	}
	s.hub.notify(table)
	return nil
}

// PruneMissing removes clean, non-tombstoned rows of businessID whose id is
// not in keep. Used by the pull phase: a clean row absent from the remote
// snapshot was deleted by another device. Dirty rows and tombstones survive.
// Returns the number of rows removed.
func (s *Store) PruneMissing(ctx context.Context, table, businessID string, keep []string) (int, error) {
	query := fmt.Sprintf("DELETE FROM %s WHERE business_id = ? AND needs_sync = 0 AND deleted = 0", table)
	args := []interface{}{businessID}

	if len(keep) > 0 {
		placeholders := strings.Repeat("?,", len(keep))
		query += fmt.Sprintf(" AND id NOT IN (%s)", placeholders[:len(placeholders)-1])
		for _, id := range keep {
			args = append(args, id)
		}
	}

	result, err := s.conn.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to prune %s: %w", table, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get pruned row count: %w", err)
	}
	if affected > 0 {
		s.hub.notify(table)
	}
	return int(affected), nil
}

// PurgeBusiness removes every row of businessID from table, tombstones and
// dirty rows included. Used by full-tenant deletion.
func (s *Store) PurgeBusiness(ctx context.Context, table, businessID string) (int, error) {
	query := fmt.Sprintf("DELETE FROM %s WHERE business_id = ?", table)
	result, err := s.conn.ExecContext(ctx, query, businessID)
	if err != nil {
		return 0, fmt.Errorf("failed to purge %s: %w", table, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get purged row count: %w", err)
	}
	if affected > 0 {
		s.hub.notify(table)
	}
	return int(affected), nil
}

// scanner abstracts *sql.Row and *sql.Rows for the shared scan helper.
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanRow(sc scanner) (*Row, error) {
	var row Row
	var data string
	var deleted, needsSync int
	var createdAt, updatedAt string

	err := sc.Scan(
		&row.ID,
		&row.BusinessID,
		&data,
		&row.SearchText,
		&row.Category,
		&row.RefID,
		&deleted,
		&needsSync,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	row.Data = []byte(data)
	row.Deleted = deleted != 0
	row.NeedsSync = needsSync != 0
	if t, err := time.Parse(time.RFC3339, createdAt); err == nil {
		row.CreatedAt = t
	}
	if t, err := time.Parse(time.RFC3339, updatedAt); err == nil {
		row.UpdatedAt = t
	}
	return &row, nil
}

func scanRows(rows *sql.Rows) ([]Row, error) {
	var out []Row
	for rows.Next() {
		row, err := scanRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		out = append(out, *row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return out, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
