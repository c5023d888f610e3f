package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Reconcile the local replica with the cloud store",
	Long: `Run one full sync pass over every entity collection:

  1. Push all locally modified records to the cloud store
  2. Pull the tenant's snapshot back
  3. Overwrite the local replica, marking records clean

Each collection syncs independently; per-record push failures are retried
on the next pass.`,
	Run: func(cmd *cobra.Command, args []string) {
		app, err := openApp(cmd)
		if err != nil {
			fatalf("%v", err)
		}
		defer app.close()

		// Probe synchronously so the repositories see the real
		// connectivity state before the pass starts.
		probeCtx, cancel := context.WithTimeout(cmd.Context(), 5*time.Second)
		app.monitor.SetOnline(app.remote.Ping(probeCtx) == nil)
		cancel()

		fmt.Printf("Syncing with %s...\n", app.cfg.RemoteURL)
		start := time.Now()

		if err := app.registry.SyncAll(cmd.Context()); err != nil {
			fatalf("sync finished with errors: %v", err)
		}

		fmt.Printf("Sync complete in %v\n", time.Since(start).Round(time.Millisecond))
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show per-collection sync status and pending changes",
	Run: func(cmd *cobra.Command, args []string) {
		app, err := openApp(cmd)
		if err != nil {
			fatalf("%v", err)
		}
		defer app.close()

		tid, err := app.session.CurrentTenantID()
		if err != nil {
			fatalf("%v", err)
		}

		counts, err := app.registry.DirtyCounts(cmd.Context())
		if err != nil {
			fatalf("%v", err)
		}

		fmt.Printf("Business: %s\n", tid)
		fmt.Printf("Database: %s\n\n", app.cfg.DBPath())

		total := 0
		for _, s := range app.registry.Syncers() {
			status := s.Status()
			pending := counts[s.Collection()]
			total += pending

			line := fmt.Sprintf("  %-15s %s", s.Collection(), status.Phase)
			if pending > 0 {
				line += fmt.Sprintf("  (%d pending)", pending)
			}
			if !status.LastSync.IsZero() {
				line += fmt.Sprintf("  last sync %s", status.LastSync.Format(time.RFC3339))
			}
			if status.LastError != "" {
				line += fmt.Sprintf("  error: %s", status.LastError)
			}
			fmt.Println(line)
		}

		fmt.Printf("\nPending records: %d\n", total)
	},
}
