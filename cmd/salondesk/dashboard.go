package main

import (
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/mkravets/salondesk/internal/daemon"
	"github.com/mkravets/salondesk/internal/dashboard"
	"github.com/mkravets/salondesk/internal/repo"
)

var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Run the auto-sync daemon with a live WebSocket dashboard",
	Long: `Run the auto-sync daemon and serve a WebSocket dashboard broadcasting
sync events, entity changes, dirty-row statistics and connectivity
transitions in real time.`,
	Run: func(cmd *cobra.Command, args []string) {
		app, err := openApp(cmd)
		if err != nil {
			fatalf("%v", err)
		}
		defer app.close()

		server := dashboard.NewServer(&dashboard.Config{
			Port:   app.cfg.DashboardPort,
			Logger: app.logger,
		})
		if err := server.Start(); err != nil {
			fatalf("%v", err)
		}
		defer func() { _ = server.Stop() }()

		// Rebuild the registry with the dashboard wired in as the event
		// sink.
		events := dashboard.NewBroadcaster(server)
		app.registry = repo.NewRegistry(repo.Deps{
			Local:  app.store,
			Remote: app.remote,
			Tenant: app.session,
			Net:    app.monitor,
			Logger: app.logger,
			Events: events,
		})

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		app.monitor.Start(ctx)

		// Relay connectivity transitions and periodic dirty stats.
		transitions, unsubscribe := app.monitor.Subscribe()
		defer unsubscribe()
		go func() {
			ticker := time.NewTicker(10 * time.Second)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case online := <-transitions:
					events.PublishConnectivity(online)
				case <-ticker.C:
					if counts, err := app.registry.DirtyCounts(ctx); err == nil {
						events.PublishDirtyStats(counts)
					}
				}
			}
		}()

		d, err := daemon.New(app.registry, app.monitor, &daemon.Config{
			Schedule: app.cfg.SyncSchedule,
			Debounce: app.cfg.SyncDebounce,
			Logger:   app.logger,
		})
		if err != nil {
			fatalf("%v", err)
		}

		fmt.Printf("Dashboard listening on %s\n", server.GetAddr())
		if err := d.Start(ctx); err != nil {
			fatalf("%v", err)
		}
	},
}
