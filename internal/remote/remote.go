// Package remote defines the cloud document store contract used by the sync
// core, plus the HTTP client that talks to it.
//
// The remote store holds one collection per entity type. Documents are keyed
// by entity id and carry the tenant id (businessId) as a field; the pull
// phase of a sync queries by that field only — any further filtering
// (active-only, not-deleted) happens client-side after the pull. The tenant
// filter is the one non-negotiable server-side constraint.
package remote

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

var (
	// ErrNotFound indicates the document does not exist in the collection.
	ErrNotFound = errors.New("remote: document not found")
	// ErrUnavailable indicates the store could not be reached.
	ErrUnavailable = errors.New("remote: store unavailable")
)

// Document is the schema-flexible remote record. Body holds the full entity
// JSON; ID, BusinessID and LastModifiedBy are mirrored as top-level fields so
// the server can index them without understanding the payload.
type Document struct {
	ID             string          `json:"id"`
	BusinessID     string          `json:"businessId"`
	LastModifiedBy string          `json:"lastModifiedBy,omitempty"`
	UpdatedAt      time.Time       `json:"updatedAt"`
	Body           json.RawMessage `json:"body"`
}

// Store is the remote document store contract.
//
// All methods honor ctx cancellation. Put is a full overwrite keyed by
// document id, not a patch.
type Store interface {
	// Put creates or fully overwrites the document doc.ID in collection.
	Put(ctx context.Context, collection string, doc Document) error

	// Get fetches a single document. Returns ErrNotFound if absent.
	Get(ctx context.Context, collection, id string) (Document, error)

	// Delete removes a document. Deleting an absent document is not an
	// error (idempotent).
	Delete(ctx context.Context, collection, id string) error

	// QueryByBusiness returns every document in collection whose businessId
	// equals businessID. This is the only server-side filter the pull phase
	// relies on.
	QueryByBusiness(ctx context.Context, collection, businessID string) ([]Document, error)

	// DeleteBusiness removes up to limit documents belonging to businessID
	// from collection and reports how many were removed. Callers loop until
	// zero to drain a collection in bounded batches.
	DeleteBusiness(ctx context.Context, collection, businessID string, limit int) (int, error)

	// Ping reports whether the store is reachable. Used by the network
	// state monitor.
	Ping(ctx context.Context) error
}
