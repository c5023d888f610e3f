package localstore

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// PriceMode selects how BulkUpdatePrices transforms the price field.
type PriceMode int

const (
	// PricePercent adjusts by a percentage delta (Value = +10 means +10%).
	PricePercent PriceMode = iota
	// PriceDelta adds a fixed amount (may be negative).
	PriceDelta
	// PriceSet overwrites the price with Value exactly.
	PriceSet
	// PriceRound rounds the price to the nearest multiple of Value.
	PriceRound
)

// String returns a human-readable representation of the mode.
func (m PriceMode) String() string {
	switch m {
	case PricePercent:
		return "percent"
	case PriceDelta:
		return "delta"
	case PriceSet:
		return "set"
	case PriceRound:
		return "round"
	default:
		return "unknown"
	}
}

// BulkPriceUpdate describes a price transformation over the services table.
// Category and IDs are optional filters; when both are empty every live
// record of the tenant is affected.
type BulkPriceUpdate struct {
	Mode     PriceMode
	Value    float64
	Category string
	IDs      []string
}

// BulkUpdatePrices applies update to every matching row of table in one
// statement: the JSON price field is rewritten in place, updatedAt inside
// the document is refreshed, and the affected rows are marked dirty so the
// next sync pushes them. Returns the number of rows touched.
func (s *Store) BulkUpdatePrices(ctx context.Context, table, businessID string, update BulkPriceUpdate, now time.Time) (int, error) {
	var priceExpr string
	var exprArgs []interface{}

	switch update.Mode {
	case PricePercent:
		priceExpr = "round(json_extract(data, '$.price') * (1.0 + ? / 100.0), 2)"
		exprArgs = append(exprArgs, update.Value)
	case PriceDelta:
		priceExpr = "round(json_extract(data, '$.price') + ?, 2)"
		exprArgs = append(exprArgs, update.Value)
	case PriceSet:
		priceExpr = "?"
		exprArgs = append(exprArgs, update.Value)
	case PriceRound:
		if update.Value <= 0 {
			return 0, fmt.Errorf("round unit must be positive, got %v", update.Value)
		}
		priceExpr = "round(json_extract(data, '$.price') / ?) * ?"
		exprArgs = append(exprArgs, update.Value, update.Value)
	default:
		return 0, fmt.Errorf("unknown price mode %d", update.Mode)
	}

	stamp := now.UTC().Format(time.RFC3339Nano)

	query := fmt.Sprintf(`
	UPDATE %s SET
		data = json_set(data, '$.price', %s, '$.updatedAt', ?, '$.lastModifiedBy', ?),
		needs_sync = 1,
		updated_at = ?
	WHERE business_id = ? AND deleted = 0
	`, table, priceExpr)

	args := append(exprArgs, stamp, businessID, now.UTC().Format(time.RFC3339), businessID)

	if update.Category != "" {
		query += " AND category = ?"
		args = append(args, update.Category)
	}

	if len(update.IDs) > 0 {
		placeholders := strings.Repeat("?,", len(update.IDs))
		query += fmt.Sprintf(" AND id IN (%s)", placeholders[:len(placeholders)-1])
		for _, id := range update.IDs {
			args = append(args, id)
		}
	}

	result, err := s.conn.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to bulk-update prices in %s: %w", table, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get affected row count: %w", err)
	}
	if affected > 0 {
		s.hub.notify(table)
	}
	return int(affected), nil
}
