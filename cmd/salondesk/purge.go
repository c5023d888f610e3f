package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mkravets/salondesk/internal/admin"
)

var purgeYes bool

var purgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Permanently delete the signed-in business and all its data",
	Long: `Delete the account: the user and credential records, every entity
collection in the cloud store (in bounded batches), the local replica,
and finally the stored session.

This is irreversible. Requires --yes.`,
	Run: func(cmd *cobra.Command, args []string) {
		if !purgeYes {
			fatalf("refusing to purge without --yes")
		}

		app, err := openApp(cmd)
		if err != nil {
			fatalf("%v", err)
		}
		defer app.close()

		tid, err := app.session.CurrentTenantID()
		if err != nil {
			fatalf("%v", err)
		}

		purger := admin.NewPurger(app.store, app.remote, app.session, app.logger)
		if err := purger.Purge(cmd.Context(), tid); err != nil {
			fatalf("%v", err)
		}

		fmt.Printf("Business %s deleted\n", tid)
	},
}

func init() {
	purgeCmd.Flags().BoolVar(&purgeYes, "yes", false, "confirm permanent deletion")
}
