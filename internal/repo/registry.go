package repo

import (
	"context"
	"errors"

	"github.com/mkravets/salondesk/internal/model"
)

// Syncer is the per-collection slice of a repository the registry and the
// daemon operate on.
type Syncer interface {
	Collection() string
	Sync(ctx context.Context) error
	Status() Status
}

// Registry is the composition root for every entity repository. All
// repositories share the same stores and tenant context; each owns a
// disjoint table, so there is no cross-entity contention beyond the local
// store's own concurrency control.
type Registry struct {
	Customers    *Repository[*model.Customer]
	Appointments *Repository[*model.Appointment]
	Services     *ServiceRepository
	Expenses     *Repository[*model.Expense]
	WorkingHours *Repository[*model.WorkingHours]
	Notes        *Repository[*model.Note]
	Transactions *Repository[*model.Transaction]
	Employees    *Repository[*model.Employee]
	Payments     *Repository[*model.Payment]

	deps Deps
}

// NewRegistry constructs every repository against the shared collaborators.
func NewRegistry(deps Deps) *Registry {
	deps = deps.normalized()
	return &Registry{
		Customers:    New(model.CollectionCustomers, func() *model.Customer { return &model.Customer{} }, deps),
		Appointments: New(model.CollectionAppointments, func() *model.Appointment { return &model.Appointment{} }, deps),
		Services:     NewServiceRepository(deps),
		Expenses:     New(model.CollectionExpenses, func() *model.Expense { return &model.Expense{} }, deps),
		WorkingHours: New(model.CollectionWorkingHours, func() *model.WorkingHours { return &model.WorkingHours{} }, deps),
		Notes:        New(model.CollectionNotes, func() *model.Note { return &model.Note{} }, deps),
		Transactions: New(model.CollectionTransactions, func() *model.Transaction { return &model.Transaction{} }, deps),
		Employees:    New(model.CollectionEmployees, func() *model.Employee { return &model.Employee{} }, deps),
		Payments:     New(model.CollectionPayments, func() *model.Payment { return &model.Payment{} }, deps),
		deps:         deps,
	}
}

// Syncers returns every repository in collection order.
func (reg *Registry) Syncers() []Syncer {
	return []Syncer{
		reg.Customers,
		reg.Appointments,
		reg.Services,
		reg.Expenses,
		reg.WorkingHours,
		reg.Notes,
		reg.Transactions,
		reg.Employees,
		reg.Payments,
	}
}

// SyncAll reconciles every entity type. Each collection syncs
// independently; one collection's failure does not stop the others. The
// combined error, if any, is returned for logging.
func (reg *Registry) SyncAll(ctx context.Context) error {
	var errs []error
	for _, s := range reg.Syncers() {
		if err := s.Sync(ctx); err != nil {
			reg.deps.Logger.Printf("WARNING: %v", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// DirtyCounts reports, per collection, how many rows await a push.
func (reg *Registry) DirtyCounts(ctx context.Context) (map[string]int, error) {
	tid, err := reg.deps.Tenant.CurrentTenantID()
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int, len(model.Collections()))
	for _, collection := range model.Collections() {
		n, err := reg.deps.Local.CountDirty(ctx, collection, tid)
		if err != nil {
			return nil, err
		}
		counts[collection] = n
	}
	return counts, nil
}
