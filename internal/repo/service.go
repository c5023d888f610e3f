package repo

import (
	"context"
	"time"

	"github.com/mkravets/salondesk/internal/localstore"
	"github.com/mkravets/salondesk/internal/model"
)

// ServiceRepository extends the generic repository for the services entity
// with the bulk price mutation.
type ServiceRepository struct {
	*Repository[*model.Service]
}

// NewServiceRepository creates the services repository.
func NewServiceRepository(deps Deps) *ServiceRepository {
	return &ServiceRepository{
		Repository: New(model.CollectionServices, func() *model.Service { return &model.Service{} }, deps),
	}
}

// BulkUpdatePrices applies one price transformation to every service
// matching the optional category or id-set filter, in a single local
// statement. The affected rows are marked dirty and an opportunistic sync
// is triggered when online; its failure is logged, not surfaced. Returns
// the number of services touched.
func (r *ServiceRepository) BulkUpdatePrices(ctx context.Context, update localstore.BulkPriceUpdate) (int, error) {
	tid, err := r.deps.Tenant.CurrentTenantID()
	if err != nil {
		return 0, err
	}

	affected, err := r.deps.Local.BulkUpdatePrices(ctx, r.collection, tid, update, time.Now())
	if err != nil {
		return 0, err
	}
	if affected == 0 {
		return 0, nil
	}
	r.deps.Events.EntityChanged(r.collection, "", "bulk_price_update")

	if r.deps.Net.Online() {
		if err := r.Sync(ctx); err != nil {
			r.deps.Logger.Printf("WARNING: opportunistic sync after bulk update failed: %v", err)
		}
	}
	return affected, nil
}
