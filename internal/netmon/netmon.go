// Package netmon maintains a continuously observed "is connectivity
// currently available" flag by probing the remote store's health endpoint.
//
// Repositories gate opportunistic pushes on Online(); the auto-sync daemon
// subscribes to transitions and triggers a sync when connectivity returns.
package netmon

import (
	"context"
	"log"
	"os"
	"sync"
	"time"
)

// Prober is the slice of the remote store the monitor needs.
type Prober interface {
	Ping(ctx context.Context) error
}

// Config holds monitor settings.
type Config struct {
	// Interval between health probes.
	Interval time.Duration

	// ProbeTimeout bounds a single probe.
	ProbeTimeout time.Duration

	// Logger for state transitions.
	Logger *log.Logger
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Interval:     15 * time.Second,
		ProbeTimeout: 5 * time.Second,
		Logger:       log.New(os.Stderr, "[netmon] ", log.LstdFlags),
	}
}

// Monitor tracks connectivity and fans out transitions to subscribers.
type Monitor struct {
	prober Prober
	config *Config

	mu     sync.Mutex
	online bool
	subs   map[int]chan bool
	nextID int

	cancel context.CancelFunc
	done   chan struct{}
}

// New creates a monitor. The initial state is offline until the first
// successful probe (or SetOnline).
func New(prober Prober, config *Config) *Monitor {
	if config == nil {
		config = DefaultConfig()
	}
	return &Monitor{
		prober: prober,
		config: config,
		subs:   make(map[int]chan bool),
	}
}

// Start launches the probe loop. It probes once immediately, then on every
// interval tick until ctx is cancelled or Close is called.
func (m *Monitor) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)

	m.mu.Lock()
	m.cancel = cancel
	m.done = make(chan struct{})
	done := m.done
	m.mu.Unlock()

	go func() {
		defer close(done)

		m.probe(ctx)

		ticker := time.NewTicker(m.config.Interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.probe(ctx)
			}
		}
	}()
}

// Close stops the probe loop and waits for it to finish.
func (m *Monitor) Close() {
	m.mu.Lock()
	cancel := m.cancel
	done := m.done
	m.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}

func (m *Monitor) probe(ctx context.Context) {
	probeCtx, cancel := context.WithTimeout(ctx, m.config.ProbeTimeout)
	defer cancel()

	err := m.prober.Ping(probeCtx)
	m.SetOnline(err == nil)
}

// Online reports the last observed connectivity state.
func (m *Monitor) Online() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.online
}

// SetOnline records a connectivity observation and, on a transition,
// notifies subscribers. Exposed so tests and platform hooks can inject
// state directly.
func (m *Monitor) SetOnline(online bool) {
	m.mu.Lock()
	changed := m.online != online
	m.online = online
	var subs []chan bool
	if changed {
		for _, ch := range m.subs {
			subs = append(subs, ch)
		}
	}
	m.mu.Unlock()

	if !changed {
		return
	}

	m.config.Logger.Printf("connectivity changed: online=%v", online)
	for _, ch := range subs {
		select {
		case ch <- online:
		default:
		}
	}
}

// Subscribe registers for connectivity transitions. Only state changes are
// delivered; delivery is non-blocking and the latest transition wins if the
// subscriber lags. cancel removes the subscription.
func (m *Monitor) Subscribe() (<-chan bool, func()) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ch := make(chan bool, 1)
	id := m.nextID
	m.nextID++
	m.subs[id] = ch

	cancel := func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.subs, id)
	}
	return ch, cancel
}
