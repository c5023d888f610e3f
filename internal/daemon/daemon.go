// Package daemon provides the background auto-sync loop.
//
// The daemon:
//  1. Performs an initial full sync when connectivity is available
//  2. Triggers a sync whenever connectivity is restored (debounced)
//  3. Runs a periodic sync on a cron schedule
//  4. Handles graceful shutdown
package daemon

import (
	"context"
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/mkravets/salondesk/internal/netmon"
	"github.com/mkravets/salondesk/internal/repo"
)

// Config holds configuration for the daemon.
type Config struct {
	// Schedule is a cron spec for the periodic sync, e.g. "@every 5m".
	Schedule string

	// Debounce is how long to wait after a connectivity-restored event
	// before syncing. Flapping networks produce bursts of transitions;
	// the debounce batches them into one pass.
	Debounce time.Duration

	// LogPath, when set, routes daemon logs through a size-rotated file.
	LogPath string

	// Logger overrides the lumberjack/stderr logger when set.
	Logger *log.Logger
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Schedule: "@every 5m",
		Debounce: 2 * time.Second,
	}
}

// Daemon orchestrates connectivity-triggered and scheduled syncs.
type Daemon struct {
	registry *repo.Registry
	monitor  *netmon.Monitor
	config   *Config
	logger   *log.Logger

	cron *cron.Cron

	mu       sync.Mutex
	running  bool
	debounce time.Duration

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a daemon. The registry and monitor must outlive it.
func New(registry *repo.Registry, monitor *netmon.Monitor, config *Config) (*Daemon, error) {
	if registry == nil {
		return nil, fmt.Errorf("registry cannot be nil")
	}
	if monitor == nil {
		return nil, fmt.Errorf("monitor cannot be nil")
	}
	if config == nil {
		config = DefaultConfig()
	}

	logger := config.Logger
	if logger == nil {
		if config.LogPath != "" {
			logger = log.New(&lumberjack.Logger{
				Filename:   config.LogPath,
				MaxSize:    10, // megabytes
				MaxBackups: 3,
				MaxAge:     28, // days
			}, "[daemon] ", log.LstdFlags)
		} else {
			logger = log.New(os.Stderr, "[daemon] ", log.LstdFlags)
		}
	}

	return &Daemon{
		registry: registry,
		monitor:  monitor,
		config:   config,
		logger:   logger,
		debounce: config.Debounce,
	}, nil
}

// SetDebounce adjusts the connectivity debounce at runtime. Used by config
// hot reload.
func (d *Daemon) SetDebounce(debounce time.Duration) {
	d.mu.Lock()
	d.debounce = debounce
	d.mu.Unlock()
}

func (d *Daemon) currentDebounce() time.Duration {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.debounce
}

// Start begins the daemon's operation and blocks until ctx is cancelled.
func (d *Daemon) Start(ctx context.Context) error {
	d.mu.Lock()
	if d.running {
		d.mu.Unlock()
		return fmt.Errorf("daemon already running")
	}
	d.running = true
	ctx, d.cancel = context.WithCancel(ctx)
	d.mu.Unlock()

	d.logger.Printf("starting auto-sync daemon (schedule=%s debounce=%v)", d.config.Schedule, d.config.Debounce)

	// Initial pass if we are already online.
	if d.monitor.Online() {
		d.syncAll(ctx, "startup")
	}

	// Periodic schedule.
	d.cron = cron.New()
	if _, err := d.cron.AddFunc(d.config.Schedule, func() {
		if !d.monitor.Online() {
			return
		}
		d.syncAll(ctx, "schedule")
	}); err != nil {
		d.mu.Lock()
		d.running = false
		d.mu.Unlock()
		return fmt.Errorf("invalid sync schedule %q: %w", d.config.Schedule, err)
	}
	d.cron.Start()

	// Connectivity transitions.
	transitions, unsubscribe := d.monitor.Subscribe()
	defer unsubscribe()

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		d.watchConnectivity(ctx, transitions)
	}()

	<-ctx.Done()
	d.logger.Printf("shutting down")

	cronCtx := d.cron.Stop()
	<-cronCtx.Done()
	d.wg.Wait()

	d.mu.Lock()
	d.running = false
	d.mu.Unlock()
	return nil
}

// Stop cancels a running daemon.
func (d *Daemon) Stop() {
	d.mu.Lock()
	cancel := d.cancel
	d.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

func (d *Daemon) watchConnectivity(ctx context.Context, transitions <-chan bool) {
	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case online, ok := <-transitions:
			if !ok {
				return
			}
			if !online {
				continue
			}
			debounce := d.currentDebounce()
			d.logger.Printf("connectivity restored, sync in %v", debounce)
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(debounce, func() {
				if ctx.Err() != nil || !d.monitor.Online() {
					return
				}
				d.syncAll(ctx, "connectivity")
			})
		}
	}
}

func (d *Daemon) syncAll(ctx context.Context, trigger string) {
	start := time.Now()
	if err := d.registry.SyncAll(ctx); err != nil {
		d.logger.Printf("WARNING: sync (%s) finished with errors after %v: %v", trigger, time.Since(start), err)
		return
	}
	d.logger.Printf("sync (%s) complete in %v", trigger, time.Since(start))
}
