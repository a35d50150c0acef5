// Package config loads runtime configuration via viper.
//
// Precedence: environment (SALON_ prefix) > config file > defaults.
// A config file is optional; the defaults run a local SQLite console.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

const (
	// StoreSheet runs against the remote spreadsheet service.
	StoreSheet = "sheet"
	// StoreSQLite runs against a local SQLite database.
	StoreSQLite = "sqlite"
)

type Config struct {
	// Addr is the HTTP listen address, e.g. ":8080".
	Addr string

	// Store selects the backing store: "sheet" or "sqlite".
	Store string

	// SheetURL is the base URL of the spreadsheet service (sheet mode).
	SheetURL string

	// SQLitePath is the database path (sqlite mode). ":memory:" works.
	SQLitePath string

	// CORSOrigins are the allowed frontend origins.
	CORSOrigins []string

	// LogLevel is "debug", "info", "warn" or "error".
	LogLevel string
}

// Load reads configuration. path optionally names a config file
// (YAML/TOML/JSON, decided by extension); empty means defaults + env.
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("addr", ":8080")
	v.SetDefault("store", StoreSQLite)
	v.SetDefault("sheet.url", "")
	v.SetDefault("sqlite.path", "salon.db")
	v.SetDefault("cors.origins", []string{"http://localhost:5173"})
	v.SetDefault("log.level", "info")

	v.SetEnvPrefix("SALON")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	cfg := &Config{
		Addr:        v.GetString("addr"),
		Store:       v.GetString("store"),
		SheetURL:    v.GetString("sheet.url"),
		SQLitePath:  v.GetString("sqlite.path"),
		CORSOrigins: v.GetStringSlice("cors.origins"),
		LogLevel:    v.GetString("log.level"),
	}

	switch cfg.Store {
	case StoreSheet:
		if cfg.SheetURL == "" {
			return nil, fmt.Errorf("store %q requires sheet.url", StoreSheet)
		}
	case StoreSQLite:
	default:
		return nil, fmt.Errorf("unknown store %q (want %q or %q)", cfg.Store, StoreSheet, StoreSQLite)
	}
	return cfg, nil
}
