package netmon

import (
	"context"
	"errors"
	"io"
	"log"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// flakyProber fails or succeeds depending on the healthy flag.
type flakyProber struct {
	healthy atomic.Bool
	probes  atomic.Int64
}

func (p *flakyProber) Ping(ctx context.Context) error {
	p.probes.Add(1)
	if p.healthy.Load() {
		return nil
	}
	return errors.New("unreachable")
}

func testConfig(interval time.Duration) *Config {
	return &Config{
		Interval:     interval,
		ProbeTimeout: time.Second,
		Logger:       log.New(io.Discard, "", 0),
	}
}

func TestMonitor_StartsOffline(t *testing.T) {
	m := New(&flakyProber{}, testConfig(time.Hour))
	assert.False(t, m.Online())
}

func TestMonitor_ProbeLoop(t *testing.T) {
	prober := &flakyProber{}
	prober.healthy.Store(true)

	m := New(prober, testConfig(10*time.Millisecond))
	m.Start(context.Background())
	defer m.Close()

	require.Eventually(t, m.Online, time.Second, 5*time.Millisecond)

	prober.healthy.Store(false)
	require.Eventually(t, func() bool { return !m.Online() }, time.Second, 5*time.Millisecond)

	assert.Greater(t, prober.probes.Load(), int64(1))
}

func TestMonitor_SubscribeTransitionsOnly(t *testing.T) {
	m := New(&flakyProber{}, testConfig(time.Hour))
	ch, cancel := m.Subscribe()
	defer cancel()

	// Same state again is not a transition.
	m.SetOnline(false)
	select {
	case <-ch:
		t.Fatal("expected no notification for a repeated state")
	case <-time.After(20 * time.Millisecond):
	}

	m.SetOnline(true)
	select {
	case online := <-ch:
		assert.True(t, online)
	case <-time.After(time.Second):
		t.Fatal("expected a transition notification")
	}
}

func TestMonitor_SubscribeCancel(t *testing.T) {
	m := New(&flakyProber{}, testConfig(time.Hour))
	ch, cancel := m.Subscribe()
	cancel()

	m.SetOnline(true)
	select {
	case <-ch:
		t.Fatal("cancelled subscriber should not be notified")
	case <-time.After(20 * time.Millisecond):
	}
}

func TestMonitor_SlowSubscriberDoesNotBlock(t *testing.T) {
	m := New(&flakyProber{}, testConfig(time.Hour))
	_, cancel := m.Subscribe()
	defer cancel()

	// Fill the buffer and keep toggling; SetOnline must never block.
	done := make(chan struct{})
	go func() {
		for i := 0; i < 10; i++ {
			m.SetOnline(i%2 == 0)
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("SetOnline blocked on a lagging subscriber")
	}
}

func TestMonitor_CloseStopsProbing(t *testing.T) {
	prober := &flakyProber{}
	m := New(prober, testConfig(5*time.Millisecond))
	m.Start(context.Background())

	require.Eventually(t, func() bool { return prober.probes.Load() > 0 }, time.Second, time.Millisecond)
	m.Close()

	after := prober.probes.Load()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, after, prober.probes.Load())
}
