package repo

import (
	"context"
)

// ObserveAll returns a reactive stream of the tenant's records. The current
// snapshot is emitted immediately, then a fresh snapshot after every local
// mutation of the collection. The stream never touches the network, never
// blocks a writer (a lagging subscriber sees only the latest state), and
// ends when ctx is cancelled.
func (r *Repository[T]) ObserveAll(ctx context.Context) (<-chan []T, error) {
	return r.observe(ctx, "")
}

// Search is ObserveAll filtered by a case-insensitive substring match over
// the entity's denormalized search text. An empty query is equivalent to
// ObserveAll.
func (r *Repository[T]) Search(ctx context.Context, query string) (<-chan []T, error) {
	return r.observe(ctx, query)
}

func (r *Repository[T]) observe(ctx context.Context, query string) (<-chan []T, error) {
	if _, err := r.deps.Tenant.CurrentTenantID(); err != nil {
		return nil, err
	}

	changes, unsubscribe := r.deps.Local.Subscribe(r.collection)
	out := make(chan []T, 1)

	fetch := func() ([]T, error) {
		tid, err := r.deps.Tenant.CurrentTenantID()
		if err != nil {
			return nil, err
		}
		if query == "" {
			raw, err := r.deps.Local.List(ctx, r.collection, tid)
			if err != nil {
				return nil, err
			}
			return decodeAll(r, raw)
		}
		raw, err := r.deps.Local.Search(ctx, r.collection, tid, query)
		if err != nil {
			return nil, err
		}
		return decodeAll(r, raw)
	}

	// emit replaces any undelivered snapshot so the subscriber always
	// receives the latest state.
	emit := func(list []T) {
		for {
			select {
			case out <- list:
				return
			default:
				select {
				case <-out:
				default:
				}
			}
		}
	}

	go func() {
		defer unsubscribe()
		defer close(out)

		if list, err := fetch(); err == nil {
			emit(list)
		} else {
			r.deps.Logger.Printf("WARNING: observe %s: initial query failed: %v", r.collection, err)
		}

		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-changes:
				if !ok {
					return
				}
				list, err := fetch()
				if err != nil {
					r.deps.Logger.Printf("WARNING: observe %s: re-query failed: %v", r.collection, err)
					continue
				}
				emit(list)
			}
		}
	}()

	return out, nil
}
