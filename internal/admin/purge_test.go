package admin

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkravets/salondesk/internal/localstore"
	"github.com/mkravets/salondesk/internal/model"
	"github.com/mkravets/salondesk/internal/remote"
)

type fakeRevoker struct {
	called bool
}

func (f *fakeRevoker) SignOut() error {
	f.called = true
	return nil
}

func testLocal(t *testing.T) *localstore.Store {
	t.Helper()
	local, err := localstore.Open(filepath.Join(t.TempDir(), "salondesk.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = local.Close() })
	require.NoError(t, local.InitSchema(context.Background(), model.Collections()))
	return local
}

func seedRemote(t *testing.T, mem *remote.Memory, collection, businessID string, count int) {
	t.Helper()
	ctx := context.Background()
	for i := 0; i < count; i++ {
		require.NoError(t, mem.Put(ctx, collection, remote.Document{
			ID:         fmt.Sprintf("%s-%s-%d", collection, businessID, i),
			BusinessID: businessID,
			UpdatedAt:  time.Now().UTC(),
			Body:       json.RawMessage(`{}`),
		}))
	}
}

func seedLocal(t *testing.T, local *localstore.Store, table, businessID string, count int) {
	t.Helper()
	ctx := context.Background()
	now := time.Now().UTC()
	for i := 0; i < count; i++ {
		require.NoError(t, local.Put(ctx, table, localstore.Row{
			ID:         fmt.Sprintf("%s-%s-%d", table, businessID, i),
			BusinessID: businessID,
			Data:       json.RawMessage(`{}`),
			CreatedAt:  now,
			UpdatedAt:  now,
		}))
	}
}

func TestPurge(t *testing.T) {
	local := testLocal(t)
	mem := remote.NewMemory()
	revoker := &fakeRevoker{}
	ctx := context.Background()

	seedRemote(t, mem, collectionUsers, "biz-a", 1)
	seedRemote(t, mem, model.CollectionCustomers, "biz-a", 5)
	seedRemote(t, mem, model.CollectionCustomers, "biz-b", 2)
	seedLocal(t, local, model.CollectionCustomers, "biz-a", 5)
	seedLocal(t, local, model.CollectionCustomers, "biz-b", 2)

	p := NewPurger(local, mem, revoker, log.New(io.Discard, "", 0))
	require.NoError(t, p.Purge(ctx, "biz-a"))

	// Only the target tenant was touched.
	assert.Equal(t, 0, mem.Len(collectionUsers))
	assert.Equal(t, 2, mem.Len(model.CollectionCustomers))

	rows, err := local.List(ctx, model.CollectionCustomers, "biz-b")
	require.NoError(t, err)
	assert.Len(t, rows, 2)
	rows, err = local.List(ctx, model.CollectionCustomers, "biz-a")
	require.NoError(t, err)
	assert.Empty(t, rows)

	assert.True(t, revoker.called)
}

func TestPurge_DrainsLargeCollectionsInBatches(t *testing.T) {
	local := testLocal(t)
	mem := remote.NewMemory()

	// More documents than one batch may delete.
	seedRemote(t, mem, model.CollectionCustomers, "biz-a", MaxBatch*2+17)

	p := NewPurger(local, mem, nil, log.New(io.Discard, "", 0))
	require.NoError(t, p.Purge(context.Background(), "biz-a"))

	assert.Equal(t, 0, mem.Len(model.CollectionCustomers))
}

// trickleDeletes deletes at most one document per batch regardless of the
// requested limit, as the store contract permits.
type trickleDeletes struct {
	*remote.Memory
}

func (s trickleDeletes) DeleteBusiness(ctx context.Context, collection, businessID string, limit int) (int, error) {
	return s.Memory.DeleteBusiness(ctx, collection, businessID, 1)
}

func TestPurge_DrainsStoresThatUnderfillBatches(t *testing.T) {
	local := testLocal(t)
	mem := remote.NewMemory()

	seedRemote(t, mem, model.CollectionCustomers, "biz-a", 3)

	p := NewPurger(local, trickleDeletes{mem}, nil, log.New(io.Discard, "", 0))
	require.NoError(t, p.Purge(context.Background(), "biz-a"))

	// Short batches are not the end of the collection; the loop must run
	// until a batch comes back empty.
	assert.Equal(t, 0, mem.Len(model.CollectionCustomers))
}

func TestPurge_EmptyBusinessID(t *testing.T) {
	p := NewPurger(testLocal(t), remote.NewMemory(), nil, log.New(io.Discard, "", 0))
	assert.Error(t, p.Purge(context.Background(), ""))
}

func TestPurge_RemoteFailureStopsBeforeLocal(t *testing.T) {
	local := testLocal(t)
	mem := remote.NewMemory()
	revoker := &fakeRevoker{}
	ctx := context.Background()

	seedLocal(t, local, model.CollectionCustomers, "biz-a", 3)
	mem.SetOffline(true)

	p := NewPurger(local, mem, revoker, log.New(io.Discard, "", 0))
	require.Error(t, p.Purge(ctx, "biz-a"))

	// Local replica untouched, session still valid.
	rows, err := local.List(ctx, model.CollectionCustomers, "biz-a")
	require.NoError(t, err)
	assert.Len(t, rows, 3)
	assert.False(t, revoker.called)
}
