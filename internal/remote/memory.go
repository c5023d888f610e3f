package remote

import (
	"context"
	"sort"
	"sync"
)

// Memory is an in-process Store used by tests and the two-device sync
// scenarios. Safe for concurrent use.
type Memory struct {
	mu          sync.RWMutex
	collections map[string]map[string]Document
	offline     bool
	failPuts    bool
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{collections: make(map[string]map[string]Document)}
}

// SetOffline makes every subsequent call fail with ErrUnavailable.
func (m *Memory) SetOffline(offline bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.offline = offline
}

// FailPuts makes Put fail while leaving reads working. Used to exercise the
// best-effort push path.
func (m *Memory) FailPuts(fail bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failPuts = fail
}

// Len reports the number of documents in collection.
func (m *Memory) Len(collection string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.collections[collection])
}

// Put implements Store.
func (m *Memory) Put(ctx context.Context, collection string, doc Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.offline || m.failPuts {
		return ErrUnavailable
	}
	col := m.collections[collection]
	if col == nil {
		col = make(map[string]Document)
		m.collections[collection] = col
	}
	col[doc.ID] = doc
	return nil
}

// Get implements Store.
func (m *Memory) Get(ctx context.Context, collection, id string) (Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.offline {
		return Document{}, ErrUnavailable
	}
	doc, ok := m.collections[collection][id]
	if !ok {
		return Document{}, ErrNotFound
	}
	return doc, nil
}

// Delete implements Store.
func (m *Memory) Delete(ctx context.Context, collection, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.offline {
		return ErrUnavailable
	}
	delete(m.collections[collection], id)
	return nil
}

// QueryByBusiness implements Store.
func (m *Memory) QueryByBusiness(ctx context.Context, collection, businessID string) ([]Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.offline {
		return nil, ErrUnavailable
	}
	var out []Document
	for _, doc := range m.collections[collection] {
		if doc.BusinessID == businessID {
			out = append(out, doc)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// DeleteBusiness implements Store.
func (m *Memory) DeleteBusiness(ctx context.Context, collection, businessID string, limit int) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.offline {
		return 0, ErrUnavailable
	}
	deleted := 0
	for id, doc := range m.collections[collection] {
		if limit > 0 && deleted >= limit {
			break
		}
		if doc.BusinessID == businessID {
			delete(m.collections[collection], id)
			deleted++
		}
	}
	return deleted, nil
}

// Ping implements Store.
func (m *Memory) Ping(ctx context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.offline {
		return ErrUnavailable
	}
	return nil
}
