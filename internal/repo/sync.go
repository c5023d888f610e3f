package repo

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// SyncResult summarizes one reconciliation pass. Per-record push failures
// are counted but do not fail the pass; only phase-level failures (the dirty
// query or the remote pull) abort a sync.
type SyncResult struct {
	Pushed     int
	PushFailed int
	Deleted    int // tombstones confirmed against the remote store
	Pulled     int
	Pruned     int // local rows removed because the remote no longer has them
	Duration   time.Duration
}

// Sync runs one upload-then-download reconciliation pass for this entity
// type:
//
//  1. Push: every dirty row is written to (or deleted from) the remote
//     store independently; a failure on one record does not block the rest.
//  2. Pull: the remote collection is queried by tenant id only, and the
//     local replica is overwritten with the result, marked clean. Rows that
//     are still dirty locally (failed pushes) and pending tombstones are
//     left untouched so no unsynced mutation is ever lost. Clean rows
//     absent from the remote snapshot are pruned: another device deleted
//     them.
//
// Sync fails fast when offline or unauthenticated. Calls are not guarded
// against overlap; two concurrent syncs are harmless but wasteful, and the
// asserted last-write-wins comes from the local store's serialized order.
func (r *Repository[T]) Sync(ctx context.Context) error {
	tid, err := r.deps.Tenant.CurrentTenantID()
	if err != nil {
		return err
	}
	if !r.deps.Net.Online() {
		return fmt.Errorf("%w: cannot sync %s", ErrOffline, r.collection)
	}

	start := time.Now()
	r.setPhase(PhaseSyncing)
	r.deps.Events.SyncStarted(r.collection)

	result, err := r.syncPass(ctx, tid)
	result.Duration = time.Since(start)

	r.finish(err)
	r.deps.Events.SyncCompleted(r.collection, result, err)

	if err != nil {
		return fmt.Errorf("sync %s failed: %w", r.collection, err)
	}

	r.deps.Logger.Printf("synced %s: pushed=%d deleted=%d failed=%d pulled=%d pruned=%d in %v",
		r.collection, result.Pushed, result.Deleted, result.PushFailed, result.Pulled, result.Pruned, result.Duration)
	return nil
}

func (r *Repository[T]) syncPass(ctx context.Context, tid string) (SyncResult, error) {
	var result SyncResult

	// Push phase. Each record is pushed independently; per-record failures
	// are logged and left dirty for the next pass.
	dirty, err := r.deps.Local.Dirty(ctx, r.collection, tid)
	if err != nil {
		return result, err
	}
	for _, row := range dirty {
		if err := r.push(ctx, row); err != nil {
			r.deps.Logger.Printf("WARNING: push %s %s failed: %v", r.collection, row.ID, err)
			result.PushFailed++
			continue
		}
		if row.Deleted {
			result.Deleted++
		} else {
			result.Pushed++
		}
	}

	// Pull phase. Tenant-id equality is the only server-side filter; any
	// further filtering happens here, client-side.
	docs, err := r.deps.Remote.QueryByBusiness(ctx, r.collection, tid)
	if err != nil {
		return result, err
	}

	keep := make([]string, 0, len(docs))
	for _, doc := range docs {
		if doc.BusinessID != tid {
			// The server should never return these; drop rather than
			// materialize a foreign tenant's record.
			r.deps.Logger.Printf("WARNING: pull %s: dropping document %s with foreign tenant", r.collection, doc.ID)
			continue
		}

		rec := r.factory()
		if err := json.Unmarshal(doc.Body, rec); err != nil {
			// The document exists remotely, so the local copy must not
			// be pruned; it just cannot be refreshed from this snapshot.
			r.deps.Logger.Printf("WARNING: pull %s: undecodable document %s: %v", r.collection, doc.ID, err)
			keep = append(keep, doc.ID)
			continue
		}

		if rec.RecordMeta().Deleted {
			// Client-side tombstone filter: never materialize a deleted
			// document from the remote store.
			continue
		}

		if local, err := r.deps.Local.Get(ctx, r.collection, tid, doc.ID, true); err == nil && local.NeedsSync {
			// A dirty local row (failed push, or a write racing this
			// sync) wins over the pulled copy; it stays queued for the
			// next push. Pending tombstones likewise must not be
			// resurrected by a stale remote document.
			keep = append(keep, doc.ID)
			continue
		}

		row, err := r.encode(rec, false)
		if err != nil {
			r.deps.Logger.Printf("WARNING: pull %s: failed to encode %s: %v", r.collection, doc.ID, err)
			keep = append(keep, doc.ID)
			continue
		}
		if err := r.deps.Local.Put(ctx, r.collection, row); err != nil {
			return result, err
		}
		keep = append(keep, doc.ID)
		result.Pulled++
	}

	pruned, err := r.deps.Local.PruneMissing(ctx, r.collection, tid, keep)
	if err != nil {
		return result, err
	}
	result.Pruned = pruned

	return result, nil
}

func (r *Repository[T]) setPhase(p SyncPhase) {
	r.statusMu.Lock()
	r.status.Phase = p
	r.statusMu.Unlock()
}

func (r *Repository[T]) finish(err error) {
	r.statusMu.Lock()
	r.status.Phase = PhaseIdle
	r.status.LastSync = time.Now()
	if err != nil {
		r.status.LastError = err.Error()
	} else {
		r.status.LastError = ""
	}
	r.statusMu.Unlock()
}
