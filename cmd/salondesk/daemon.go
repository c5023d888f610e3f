package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mkravets/salondesk/internal/config"
	"github.com/mkravets/salondesk/internal/daemon"
)

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Run the background auto-sync daemon",
	Long: `Run the auto-sync daemon in the foreground.

The daemon watches connectivity and syncs whenever the network comes
back, plus on a periodic schedule. Stop with Ctrl-C.`,
	Run: func(cmd *cobra.Command, args []string) {
		app, err := openApp(cmd)
		if err != nil {
			fatalf("%v", err)
		}
		defer app.close()

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		app.monitor.Start(ctx)

		dcfg := &daemon.Config{
			Schedule: app.cfg.SyncSchedule,
			Debounce: app.cfg.SyncDebounce,
			LogPath:  app.cfg.DaemonLog,
		}

		d, err := daemon.New(app.registry, app.monitor, dcfg)
		if err != nil {
			fatalf("%v", err)
		}

		// Hot-reload tunables; structural changes (paths, remote URL,
		// schedule) need a restart.
		if configPath != "" {
			config.Watch(configPath, app.logger, func(fresh *config.Config) {
				d.SetDebounce(fresh.SyncDebounce)
			})
		}

		fmt.Printf("Starting auto-sync daemon (schedule %s)...\n", app.cfg.SyncSchedule)
		if err := d.Start(ctx); err != nil {
			fatalf("%v", err)
		}
	},
}
