// Package config loads salondesk settings via viper: defaults, then an
// optional YAML file, then SALONDESK_* environment overrides.
package config

import (
	"errors"
	"fmt"
	"log"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// Config holds every tunable of the sync core and its surfaces.
type Config struct {
	// DataDir is the directory holding the local database and credentials.
	DataDir string `mapstructure:"data_dir"`

	// RemoteURL is the base URL of the cloud document store.
	RemoteURL string `mapstructure:"remote_url"`

	// RemoteTimeout bounds a single remote call.
	RemoteTimeout time.Duration `mapstructure:"remote_timeout"`

	// SessionSecret verifies the session token signature.
	SessionSecret string `mapstructure:"session_secret"`

	// HealthInterval is the connectivity probe interval.
	HealthInterval time.Duration `mapstructure:"health_interval"`

	// SyncSchedule is the cron spec for the daemon's periodic sync.
	SyncSchedule string `mapstructure:"sync_schedule"`

	// SyncDebounce delays the connectivity-restored sync trigger.
	SyncDebounce time.Duration `mapstructure:"sync_debounce"`

	// DashboardPort is the WebSocket dashboard listen port.
	DashboardPort int `mapstructure:"dashboard_port"`

	// DaemonLog is the rotated daemon log file; empty logs to stderr.
	DaemonLog string `mapstructure:"daemon_log"`
}

// DBPath returns the local database location.
func (c *Config) DBPath() string {
	return filepath.Join(c.DataDir, "salondesk.db")
}

// CredentialsPath returns the session token location.
func (c *Config) CredentialsPath() string {
	return filepath.Join(c.DataDir, "credentials")
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("data_dir", ".salondesk")
	v.SetDefault("remote_url", "https://api.salondesk.app")
	v.SetDefault("remote_timeout", 15*time.Second)
	v.SetDefault("health_interval", 15*time.Second)
	v.SetDefault("sync_schedule", "@every 5m")
	v.SetDefault("sync_debounce", 2*time.Second)
	v.SetDefault("dashboard_port", 8090)
}

// Load reads the configuration. path points at a YAML file and may be empty,
// in which case salondesk.yaml is searched in the working directory and
// ~/.config/salondesk. Missing files are fine; env vars still apply.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("SALONDESK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("salondesk")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/salondesk")
	}

	if err := v.ReadInConfig(); err != nil {
		if path != "" {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &cfg, nil
}

// Watch re-reads the config file on change and invokes onChange with the
// fresh value. Structural settings (paths, remote URL) need a restart;
// callers typically apply only the tunables. Requires a config file to
// exist; silently does nothing otherwise.
func Watch(path string, logger *log.Logger, onChange func(*Config)) {
	v := viper.New()
	setDefaults(v)
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return
	}

	v.OnConfigChange(func(e fsnotify.Event) {
		logger.Printf("config changed: %s", e.Name)
		var cfg Config
		if err := v.Unmarshal(&cfg); err != nil {
			logger.Printf("WARNING: ignoring invalid config: %v", err)
			return
		}
		onChange(&cfg)
	})
	v.WatchConfig()
}
