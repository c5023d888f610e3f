// Package repo implements the dual-store entity repository at the heart of
// the salondesk sync core.
//
// Every entity type gets one Repository instance sharing the same local
// store, remote store, tenant context and network monitor. Reads are always
// served from the local replica; writes land locally first, marked dirty,
// and are pushed to the remote store opportunistically. The Sync operation
// reconciles the two stores: push all dirty rows, pull the tenant snapshot,
// overwrite local state.
//
// The design is best-effort and optimistic: remote failures during
// opportunistic pushes are logged and swallowed, and the dirty flag ensures
// the record is retried on the next sync pass. Local store failures are
// fatal to the operation in progress.
package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mkravets/salondesk/internal/localstore"
	"github.com/mkravets/salondesk/internal/model"
	"github.com/mkravets/salondesk/internal/netmon"
	"github.com/mkravets/salondesk/internal/remote"
	"github.com/mkravets/salondesk/internal/tenant"
)

var (
	// ErrNotFound indicates the record is absent or owned by another
	// tenant; callers cannot distinguish the two.
	ErrNotFound = localstore.ErrNotFound

	// ErrOffline indicates a sync was requested without connectivity.
	ErrOffline = errors.New("repo: network unavailable")

	// ErrTenantMismatch indicates an update to a record owned by a
	// different tenant. Rejected explicitly, never silently reassigned.
	ErrTenantMismatch = errors.New("repo: record belongs to a different business")
)

// Broadcaster receives repository lifecycle events. Implemented by the
// dashboard server; the zero value used when nil is a no-op.
type Broadcaster interface {
	SyncStarted(collection string)
	SyncCompleted(collection string, result SyncResult, err error)
	EntityChanged(collection, id, action string)
}

type nopBroadcaster struct{}

func (nopBroadcaster) SyncStarted(string)                      {}
func (nopBroadcaster) SyncCompleted(string, SyncResult, error) {}
func (nopBroadcaster) EntityChanged(string, string, string)    {}

// Deps bundles the collaborators shared by every repository. Constructed
// once at the composition root and injected; there are no global lookups.
type Deps struct {
	Local  *localstore.Store
	Remote remote.Store
	Tenant tenant.Context
	Net    *netmon.Monitor
	Logger *log.Logger
	Events Broadcaster
}

func (d Deps) normalized() Deps {
	if d.Logger == nil {
		d.Logger = log.New(os.Stderr, "[repo] ", log.LstdFlags)
	}
	if d.Events == nil {
		d.Events = nopBroadcaster{}
	}
	return d
}

// SyncPhase reports where the coordinator currently is.
type SyncPhase int

const (
	// PhaseIdle means no sync is running.
	PhaseIdle SyncPhase = iota
	// PhaseSyncing means a push/pull pass is in flight.
	PhaseSyncing
)

// String returns a human-readable representation of the phase.
func (p SyncPhase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseSyncing:
		return "syncing"
	default:
		return "unknown"
	}
}

// Status is the caller-visible sync state of one repository. There is no
// failed terminal state: failures degrade back to idle with LastError set,
// and the dirty set is retried on the next trigger.
type Status struct {
	Phase     SyncPhase
	LastSync  time.Time
	LastError string
}

// Repository is the generic dual-store repository, instantiated once per
// entity type. T is a pointer entity type implementing model.Record.
type Repository[T model.Record] struct {
	collection string
	factory    func() T
	deps       Deps

	statusMu sync.Mutex
	status   Status
}

// New creates a repository for one entity collection. factory returns a
// fresh zero entity for decoding.
func New[T model.Record](collection string, factory func() T, deps Deps) *Repository[T] {
	return &Repository[T]{
		collection: collection,
		factory:    factory,
		deps:       deps.normalized(),
	}
}

// Collection returns the entity collection this repository owns.
func (r *Repository[T]) Collection() string { return r.collection }

// Status returns the current sync status.
func (r *Repository[T]) Status() Status {
	r.statusMu.Lock()
	defer r.statusMu.Unlock()
	return r.status
}

// encode converts an entity into its local replica row. The entity JSON is
// the same document the remote store receives.
func (r *Repository[T]) encode(rec T, needsSync bool) (localstore.Row, error) {
	data, err := json.Marshal(rec)
	if err != nil {
		return localstore.Row{}, fmt.Errorf("failed to encode %s: %w", r.collection, err)
	}

	m := rec.RecordMeta()
	keys := rec.Keys()
	return localstore.Row{
		ID:         m.ID,
		BusinessID: m.BusinessID,
		Data:       data,
		SearchText: rec.SearchText(),
		Category:   keys.Category,
		RefID:      keys.RefID,
		Deleted:    m.Deleted,
		NeedsSync:  needsSync,
		CreatedAt:  m.CreatedAt,
		UpdatedAt:  m.UpdatedAt,
	}, nil
}

// decode converts a replica row back into an entity.
func (r *Repository[T]) decode(row *localstore.Row) (T, error) {
	rec := r.factory()
	if err := json.Unmarshal(row.Data, rec); err != nil {
		var zero T
		return zero, fmt.Errorf("failed to decode %s %s: %w", r.collection, row.ID, err)
	}
	return rec, nil
}

func decodeAll[T model.Record](r *Repository[T], rows []localstore.Row) ([]T, error) {
	out := make([]T, 0, len(rows))
	for i := range rows {
		rec, err := r.decode(&rows[i])
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

// GetByID returns the record with the given id, enforcing tenant ownership.
// A record owned by another tenant yields ErrNotFound, indistinguishable
// from a missing record.
func (r *Repository[T]) GetByID(ctx context.Context, id string) (T, error) {
	var zero T

	tid, err := r.deps.Tenant.CurrentTenantID()
	if err != nil {
		return zero, err
	}

	row, err := r.deps.Local.Get(ctx, r.collection, tid, id, false)
	if err != nil {
		return zero, err
	}
	return r.decode(row)
}

// Add writes a new record. The id is assigned if absent, the tenant id is
// force-overwritten from the session, and timestamps are stamped. The local
// write is authoritative: Add succeeds as soon as it lands locally, and the
// opportunistic remote push is best-effort.
func (r *Repository[T]) Add(ctx context.Context, rec T) error {
	tid, err := r.deps.Tenant.CurrentTenantID()
	if err != nil {
		return err
	}

	m := rec.RecordMeta()
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	m.BusinessID = tid
	m.LastModifiedBy = tid
	m.Touch(time.Now().UTC())

	return r.write(ctx, rec, "added")
}

// Update overwrites an existing record. The record must already belong to
// the current tenant; a mismatch is rejected with ErrTenantMismatch.
func (r *Repository[T]) Update(ctx context.Context, rec T) error {
	tid, err := r.deps.Tenant.CurrentTenantID()
	if err != nil {
		return err
	}

	m := rec.RecordMeta()
	if m.ID == "" {
		return model.ErrMissingID
	}
	if m.BusinessID != tid {
		return fmt.Errorf("%w: record %s", ErrTenantMismatch, m.ID)
	}
	m.LastModifiedBy = tid
	m.Touch(time.Now().UTC())

	return r.write(ctx, rec, "updated")
}

// write validates, persists locally with the dirty flag set, and attempts a
// best-effort push when online. Push failures are logged, never surfaced.
func (r *Repository[T]) write(ctx context.Context, rec T, action string) error {
	if v, ok := any(rec).(interface{ Validate() error }); ok {
		if err := v.Validate(); err != nil {
			return fmt.Errorf("invalid %s: %w", r.collection, err)
		}
	}

	row, err := r.encode(rec, true)
	if err != nil {
		return err
	}

	if err := r.deps.Local.Put(ctx, r.collection, row); err != nil {
		return err
	}
	r.deps.Events.EntityChanged(r.collection, row.ID, action)

	if r.deps.Net.Online() {
		if err := r.push(ctx, row); err != nil {
			r.deps.Logger.Printf("WARNING: background push of %s %s failed: %v (will retry on next sync)",
				r.collection, row.ID, err)
		}
	}
	return nil
}

// Delete tombstones the record after re-validating tenant ownership. The
// row disappears from every read immediately, offline included; the remote
// delete happens through the same dirty-tracking push as writes, so a failed
// remote delete is retried on the next sync and a stale remote copy can
// never resurrect the record.
func (r *Repository[T]) Delete(ctx context.Context, id string) error {
	tid, err := r.deps.Tenant.CurrentTenantID()
	if err != nil {
		return err
	}

	row, err := r.deps.Local.Get(ctx, r.collection, tid, id, false)
	if err != nil {
		return err
	}

	rec, err := r.decode(row)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	m := rec.RecordMeta()
	m.Deleted = true
	m.DeletedAt = &now
	m.LastModifiedBy = tid
	m.Touch(now)

	tombstone, err := r.encode(rec, true)
	if err != nil {
		return err
	}
	if err := r.deps.Local.Put(ctx, r.collection, tombstone); err != nil {
		return err
	}
	r.deps.Events.EntityChanged(r.collection, id, "deleted")

	if r.deps.Net.Online() {
		if err := r.push(ctx, tombstone); err != nil {
			r.deps.Logger.Printf("WARNING: background delete of %s %s failed: %v (will retry on next sync)",
				r.collection, id, err)
		}
	}
	return nil
}

// push reconciles one local row into the remote store. Tombstones become
// remote deletes followed by the local hard delete; live rows become full
// document overwrites followed by clearing the dirty flag.
func (r *Repository[T]) push(ctx context.Context, row localstore.Row) error {
	if row.Deleted {
		if err := r.deps.Remote.Delete(ctx, r.collection, row.ID); err != nil {
			return fmt.Errorf("remote delete failed: %w", err)
		}
		return r.deps.Local.HardDelete(ctx, r.collection, row.BusinessID, row.ID)
	}

	doc := remote.Document{
		ID:             row.ID,
		BusinessID:     row.BusinessID,
		LastModifiedBy: row.BusinessID,
		UpdatedAt:      row.UpdatedAt,
		Body:           row.Data,
	}
	if err := r.deps.Remote.Put(ctx, r.collection, doc); err != nil {
		return fmt.Errorf("remote put failed: %w", err)
	}
	return r.deps.Local.MarkClean(ctx, r.collection, row.ID)
}
