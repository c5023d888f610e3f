// Package model defines the business entities managed by the salondesk sync
// core and the generic record contract every entity satisfies.
//
// Entities are plain structs whose JSON tags define the remote document shape.
// The same JSON encoding is stored in the local replica's data column, so the
// domain model <-> store mapping is a single pure function pair per entity
// (encoding/json marshal and unmarshal through the struct tags).
package model

import (
	"errors"
	"fmt"
	"time"
)

// Collection names, shared by the local store (table names) and the remote
// document store (collection names).
const (
	CollectionCustomers    = "customers"
	CollectionAppointments = "appointments"
	CollectionServices     = "services"
	CollectionExpenses     = "expenses"
	CollectionWorkingHours = "working_hours"
	CollectionNotes        = "notes"
	CollectionTransactions = "transactions"
	CollectionEmployees    = "employees"
	CollectionPayments     = "payments"
)

// Collections returns every entity collection, in stable order.
// Used for schema initialization and full-tenant purges.
func Collections() []string {
	return []string{
		CollectionCustomers,
		CollectionAppointments,
		CollectionServices,
		CollectionExpenses,
		CollectionWorkingHours,
		CollectionNotes,
		CollectionTransactions,
		CollectionEmployees,
		CollectionPayments,
	}
}

var (
	// ErrMissingID indicates a record without an id where one is required.
	ErrMissingID = errors.New("record id is empty")
	// ErrMissingBusinessID indicates a record without a tenant id.
	ErrMissingBusinessID = errors.New("record businessId is empty")
)

// Meta carries the fields common to every entity: identity, tenant ownership,
// timestamps and the soft-delete tombstone marker.
//
// BusinessID is never caller-controlled: repositories overwrite it with the
// authenticated tenant id on every write.
type Meta struct {
	ID             string     `json:"id"`
	BusinessID     string     `json:"businessId"`
	CreatedAt      time.Time  `json:"createdAt"`
	UpdatedAt      time.Time  `json:"updatedAt"`
	Deleted        bool       `json:"deleted,omitempty"`
	DeletedAt      *time.Time `json:"deletedAt,omitempty"`
	LastModifiedBy string     `json:"lastModifiedBy,omitempty"`
}

// Validate checks the invariant fields shared by all entities.
func (m *Meta) Validate() error {
	if m.ID == "" {
		return ErrMissingID
	}
	if m.BusinessID == "" {
		return ErrMissingBusinessID
	}
	return nil
}

// Touch refreshes UpdatedAt, setting CreatedAt on first write.
func (m *Meta) Touch(now time.Time) {
	if m.CreatedAt.IsZero() {
		m.CreatedAt = now
	}
	m.UpdatedAt = now
}

// IndexKeys are the entity-specific values mirrored into indexed columns of
// the local store so filtered queries avoid unpacking the JSON payload.
type IndexKeys struct {
	// Category groups records for filtered queries (service category,
	// appointment status, transaction type). Empty when not applicable.
	Category string
	// RefID is the id of a referenced entity (appointment's customer,
	// payment's appointment, transaction's payment). Soft reference only;
	// dangling ids are tolerated.
	RefID string
}

func errFieldRequired(name string) error {
	return fmt.Errorf("%s is required", name)
}

// Record is the contract every entity satisfies. Implemented on pointer
// types; repositories operate on Record generically. Entities embed Meta, so
// the common fields appear at the top level of the JSON document.
type Record interface {
	// RecordMeta returns the mutable common fields.
	RecordMeta() *Meta
	// SearchText returns the denormalized text searched by Repository.Search.
	SearchText() string
	// Keys returns the indexed filter columns for the local replica row.
	Keys() IndexKeys
}
