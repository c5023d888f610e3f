package repo

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkravets/salondesk/internal/model"
	"github.com/mkravets/salondesk/internal/tenant"
)

// awaitSnapshot reads snapshots from ch until ok returns true or the
// deadline passes. Intermediate snapshots may be coalesced away, so only the
// predicate matters.
func awaitSnapshot(t *testing.T, ch <-chan []*model.Customer, ok func([]*model.Customer) bool) []*model.Customer {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case list, open := <-ch:
			if !open {
				t.Fatal("observe channel closed before the expected snapshot")
			}
			if ok(list) {
				return list
			}
		case <-deadline:
			t.Fatal("timed out waiting for snapshot")
		}
	}
}

func TestObserveAll(t *testing.T) {
	e := newEnv(t, "biz-a")
	repo := e.customers()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, repo.Add(ctx, &model.Customer{FirstName: "Anna"}))

	ch, err := repo.ObserveAll(ctx)
	require.NoError(t, err)

	// Initial snapshot.
	first := awaitSnapshot(t, ch, func(l []*model.Customer) bool { return len(l) == 1 })
	assert.Equal(t, "Anna", first[0].FirstName)

	// A later write produces a fresh snapshot.
	require.NoError(t, repo.Add(ctx, &model.Customer{FirstName: "Boris"}))
	awaitSnapshot(t, ch, func(l []*model.Customer) bool { return len(l) == 2 })

	// A delete disappears from the stream too.
	require.NoError(t, repo.Delete(ctx, first[0].ID))
	final := awaitSnapshot(t, ch, func(l []*model.Customer) bool { return len(l) == 1 })
	assert.Equal(t, "Boris", final[0].FirstName)
}

func TestObserveAll_ClosesOnCancel(t *testing.T) {
	e := newEnv(t, "biz-a")
	repo := e.customers()
	ctx, cancel := context.WithCancel(context.Background())

	ch, err := repo.ObserveAll(ctx)
	require.NoError(t, err)
	awaitSnapshot(t, ch, func(l []*model.Customer) bool { return len(l) == 0 })

	cancel()

	select {
	case _, open := <-ch:
		assert.False(t, open)
	case <-time.After(2 * time.Second):
		t.Fatal("channel not closed after cancel")
	}
}

func TestObserveAll_Unauthenticated(t *testing.T) {
	e := newEnv(t, "")
	_, err := e.customers().ObserveAll(context.Background())
	assert.ErrorIs(t, err, tenant.ErrNotAuthenticated)
}

func TestSearch(t *testing.T) {
	e := newEnv(t, "biz-a")
	repo := e.customers()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, repo.Add(ctx, &model.Customer{FirstName: "Anna", Phone: "555-1234"}))
	require.NoError(t, repo.Add(ctx, &model.Customer{FirstName: "Boris"}))

	// Case-insensitive substring over the denormalized search text.
	ch, err := repo.Search(ctx, "ANN")
	require.NoError(t, err)
	got := awaitSnapshot(t, ch, func(l []*model.Customer) bool { return len(l) == 1 })
	assert.Equal(t, "Anna", got[0].FirstName)

	// Matches update as records change.
	require.NoError(t, repo.Add(ctx, &model.Customer{FirstName: "Annika"}))
	awaitSnapshot(t, ch, func(l []*model.Customer) bool { return len(l) == 2 })
}

func TestSearch_ByPhone(t *testing.T) {
	e := newEnv(t, "biz-a")
	repo := e.customers()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, repo.Add(ctx, &model.Customer{FirstName: "Anna", Phone: "555-1234"}))
	require.NoError(t, repo.Add(ctx, &model.Customer{FirstName: "Boris", Phone: "555-9999"}))

	ch, err := repo.Search(ctx, "1234")
	require.NoError(t, err)
	got := awaitSnapshot(t, ch, func(l []*model.Customer) bool { return len(l) == 1 })
	assert.Equal(t, "Anna", got[0].FirstName)
}
