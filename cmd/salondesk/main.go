// Command salondesk is the offline-first sync core for the salondesk
// business-management app: a local replica that is always readable and
// writable, reconciled against the cloud store whenever connectivity allows.
package main

import (
	"fmt"
	"log"
	"net/http"
	"os"

	"github.com/spf13/cobra"

	"github.com/mkravets/salondesk/internal/config"
	"github.com/mkravets/salondesk/internal/localstore"
	"github.com/mkravets/salondesk/internal/model"
	"github.com/mkravets/salondesk/internal/netmon"
	"github.com/mkravets/salondesk/internal/remote"
	"github.com/mkravets/salondesk/internal/repo"
	"github.com/mkravets/salondesk/internal/tenant"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "salondesk",
	Short: "Offline-first sync core for salondesk",
	Long: `salondesk manages the local replica of your business data and keeps it
reconciled with the cloud store.

All reads and writes work offline against the embedded database; dirty
records are pushed and the tenant snapshot pulled whenever connectivity
is available, manually via 'salondesk sync' or continuously via
'salondesk daemon'.`,
	SilenceUsage: true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default salondesk.yaml)")
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logoutCmd)
	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(daemonCmd)
	rootCmd.AddCommand(dashboardCmd)
	rootCmd.AddCommand(purgeCmd)
}

// app bundles the wired-up collaborators behind every subcommand.
type app struct {
	cfg      *config.Config
	store    *localstore.Store
	remote   remote.Store
	session  *tenant.Session
	monitor  *netmon.Monitor
	registry *repo.Registry
	logger   *log.Logger
}

// openApp is the composition root: one shared instance of each collaborator,
// constructor-injected into the repositories.
func openApp(cmd *cobra.Command) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	session := tenant.NewSession(cfg.CredentialsPath(), []byte(cfg.SessionSecret))
	if err := session.Load(); err != nil {
		return nil, err
	}

	store, err := localstore.Open(cfg.DBPath())
	if err != nil {
		return nil, err
	}
	if err := store.InitSchema(cmd.Context(), model.Collections()); err != nil {
		_ = store.Close()
		return nil, err
	}

	rs := remote.NewHTTPStore(cfg.RemoteURL, session, &http.Client{Timeout: cfg.RemoteTimeout})

	monCfg := netmon.DefaultConfig()
	monCfg.Interval = cfg.HealthInterval
	monitor := netmon.New(rs, monCfg)

	logger := log.New(os.Stderr, "[salondesk] ", log.LstdFlags)

	registry := repo.NewRegistry(repo.Deps{
		Local:  store,
		Remote: rs,
		Tenant: session,
		Net:    monitor,
		Logger: logger,
	})

	return &app{
		cfg:      cfg,
		store:    store,
		remote:   rs,
		session:  session,
		monitor:  monitor,
		registry: registry,
		logger:   logger,
	}, nil
}

func (a *app) close() {
	a.monitor.Close()
	if err := a.store.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
	}
}

func fatalf(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}
