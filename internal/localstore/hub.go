package localstore

import "sync"

// hub fans out per-table change signals to query subscribers.
//
// Signals are coalesced: each subscriber channel has capacity one, and a
// notification arriving while one is already pending is dropped. Subscribers
// re-read the table on every signal, so a coalesced burst still yields the
// latest state. Notify never blocks a writer.
type hub struct {
	mu        sync.Mutex
	listeners map[string]map[int]chan struct{}
	nextID    int
	closed    bool
}

func newHub() *hub {
	return &hub{listeners: make(map[string]map[int]chan struct{})}
}

func (h *hub) subscribe(table string) (<-chan struct{}, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	ch := make(chan struct{}, 1)
	if h.closed {
		close(ch)
		return ch, func() {}
	}

	id := h.nextID
	h.nextID++

	if h.listeners[table] == nil {
		h.listeners[table] = make(map[int]chan struct{})
	}
	h.listeners[table][id] = ch

	cancel := func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if set, ok := h.listeners[table]; ok {
			delete(set, id)
		}
	}
	return ch, cancel
}

func (h *hub) notify(table string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, ch := range h.listeners[table] {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

func (h *hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for table, set := range h.listeners {
		for id, ch := range set {
			close(ch)
			delete(set, id)
		}
		delete(h.listeners, table)
	}
}
