/*
Package config loads server configuration from a TOML file.

PURPOSE:
  One file configures the HTTP server, the database path, SMTP delivery
  for exit notices, and the retention window for cleared tenants. Every
  field has a working default so a bare binary runs locally with no
  config at all.

EXAMPLE (config.toml):

  [server]
  port = 8080

  [database]
  path = "tenancy.db"

  [smtp]
  host = "smtp.example.com"
  port = 587
  username = "billing@example.com"
  password = "secret"
  from = "billing@example.com"
  owner_email = "owner@example.com"

  [retention]
  removal_delay_hours = 48
  check_interval_minutes = 10
*/
package config

import (
	"fmt"

	"github.com/BurntSushi/toml"
)

type Config struct {
	Server    ServerConfig    `toml:"server"`
	Database  DatabaseConfig  `toml:"database"`
	SMTP      SMTPConfig      `toml:"smtp"`
	Retention RetentionConfig `toml:"retention"`
}

type ServerConfig struct {
	Port int `toml:"port"`
}

type DatabaseConfig struct {
	Path string `toml:"path"`
}

// SMTPConfig configures exit notice delivery. An empty host disables it.
type SMTPConfig struct {
	Host       string `toml:"host"`
	Port       int    `toml:"port"`
	Username   string `toml:"username"`
	Password   string `toml:"password"`
	From       string `toml:"from"`
	OwnerEmail string `toml:"owner_email"`
}

// RetentionConfig controls how long cleared tenants are kept and how
// often the removal scheduler checks for due jobs.
type RetentionConfig struct {
	RemovalDelayHours    int `toml:"removal_delay_hours"`
	CheckIntervalMinutes int `toml:"check_interval_minutes"`
}

// Default returns the configuration a bare binary runs with.
func Default() Config {
	return Config{
		Server:    ServerConfig{Port: 8080},
		Database:  DatabaseConfig{Path: "tenancy.db"},
		SMTP:      SMTPConfig{Port: 587},
		Retention: RetentionConfig{RemovalDelayHours: 48, CheckIntervalMinutes: 10},
	}
}

// Load reads the TOML file at path over the defaults. An empty path
// returns the defaults unchanged.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to load config %s: %w", path, err)
	}
	return cfg, nil
}
