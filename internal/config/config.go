// Package config loads runtime settings from an optional config file and
// MH_-prefixed environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Config holds every tunable the binary reads at startup.
type Config struct {
	// DBPath is the SQLite database file. Defaults under the user config
	// directory.
	DBPath string `mapstructure:"db_path"`

	// RemoteURL is the base URL of the account-scoped row store. Empty
	// means local-only mode: sync commands fail fast, everything else
	// works.
	RemoteURL   string `mapstructure:"remote_url"`
	RemoteToken string `mapstructure:"remote_token"`

	// UserID identifies the signed-in account. Empty means signed out.
	UserID string `mapstructure:"user_id"`

	// RetentionDays is how long tombstoned records stay restorable.
	RetentionDays int `mapstructure:"retention_days"`

	// ShareInbox is a directory watched for dropped share/export files.
	// Empty disables the watcher.
	ShareInbox string `mapstructure:"share_inbox"`

	// SyncInterval is the daemon's periodic full-sync cadence, e.g. "5m".
	SyncInterval string `mapstructure:"sync_interval"`

	LogLevel string `mapstructure:"log_level"`
	// LogFile enables rotating file output next to console output.
	LogFile   string `mapstructure:"log_file"`
	PrettyLog bool   `mapstructure:"pretty_log"`
}

// Load reads the config file (if present) and environment overrides.
// Lookup order: explicit path argument, $MH_CONFIG, then markhaven.yaml in
// the user config directory. A missing file is not an error; a malformed
// one is.
func Load(path string) (*Config, error) {
	v := viper.New()

	// Every key needs a registered default, or AutomaticEnv values are
	// invisible to Unmarshal.
	v.SetDefault("db_path", defaultDBPath())
	v.SetDefault("remote_url", "")
	v.SetDefault("remote_token", "")
	v.SetDefault("user_id", "")
	v.SetDefault("retention_days", 7)
	v.SetDefault("share_inbox", "")
	v.SetDefault("sync_interval", "5m")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_file", "")
	v.SetDefault("pretty_log", true)

	v.SetEnvPrefix("MH")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if path == "" {
		path = os.Getenv("MH_CONFIG")
	}
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	} else {
		v.SetConfigName("markhaven")
		v.SetConfigType("yaml")
		if dir, err := os.UserConfigDir(); err == nil {
			v.AddConfigPath(filepath.Join(dir, "markhaven"))
		}
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("failed to read config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if cfg.RetentionDays <= 0 {
		cfg.RetentionDays = 7
	}
	return &cfg, nil
}

func defaultDBPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "markhaven.db"
	}
	return filepath.Join(dir, "markhaven", "markhaven.db")
}
