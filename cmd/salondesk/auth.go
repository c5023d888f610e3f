package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var loginCmd = &cobra.Command{
	Use:   "login <token>",
	Short: "Store a session token and sign in",
	Long: `Verify and store the session token issued by the salondesk cloud.

The token carries the businessId every repository operation is scoped by.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		app, err := openApp(cmd)
		if err != nil {
			fatalf("%v", err)
		}
		defer app.close()

		if err := app.session.SignIn(args[0]); err != nil {
			fatalf("%v", err)
		}

		tid, _ := app.session.CurrentTenantID()
		fmt.Printf("Signed in to business %s\n", tid)
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Revoke the stored session",
	Run: func(cmd *cobra.Command, args []string) {
		app, err := openApp(cmd)
		if err != nil {
			fatalf("%v", err)
		}
		defer app.close()

		if err := app.session.SignOut(); err != nil {
			fatalf("%v", err)
		}
		fmt.Println("Signed out")
	},
}
