// Copyright (c) 2025 Jeremy Hahn
// Copyright (c) 2025 Automate The Things, LLC
//
// This file is part of go-passkey.
//
// go-passkey is dual-licensed:
//
// 1. GNU Affero General Public License v3.0 (AGPL-3.0)
//    See LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html
//
// 2. Commercial License
//    Contact licensing@automatethethings.com for commercial licensing options.

// Package config loads passkey-server configuration from a YAML file
// and PASSKEY_* environment variables.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/jeremyhahn/go-passkey/pkg/webauthn"
)

// Store drivers.
const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
)

// ServerConfig holds HTTP listener settings.
type ServerConfig struct {
	Address         string        `yaml:"address" json:"address" mapstructure:"address"`
	ReadTimeout     time.Duration `yaml:"read_timeout" json:"read_timeout" mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout" json:"write_timeout" mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" json:"shutdown_timeout" mapstructure:"shutdown_timeout"`
}

// StoreConfig selects the credential store backend.
type StoreConfig struct {
	Driver string `yaml:"driver" json:"driver" mapstructure:"driver"`
	DSN    string `yaml:"dsn" json:"dsn" mapstructure:"dsn"`
}

// JWTConfig controls post-authentication token minting. The signing key
// is generated at startup; tokens do not survive a restart.
type JWTConfig struct {
	Enabled  bool          `yaml:"enabled" json:"enabled" mapstructure:"enabled"`
	Issuer   string        `yaml:"issuer" json:"issuer" mapstructure:"issuer"`
	Audience string        `yaml:"audience" json:"audience" mapstructure:"audience"`
	TTL      time.Duration `yaml:"ttl" json:"ttl" mapstructure:"ttl"`
}

// UserConfig seeds the in-memory user directory. Ignored by the
// postgres driver, which reads the accounts table instead.
type UserConfig struct {
	Username    string `yaml:"username" json:"username" mapstructure:"username"`
	DisplayName string `yaml:"display_name" json:"display_name" mapstructure:"display_name"`
}

// Config is the top-level passkey-server configuration.
type Config struct {
	Server   ServerConfig    `yaml:"server" json:"server" mapstructure:"server"`
	WebAuthn webauthn.Config `yaml:"webauthn" json:"webauthn" mapstructure:"webauthn"`
	Store    StoreConfig     `yaml:"store" json:"store" mapstructure:"store"`
	JWT      JWTConfig       `yaml:"jwt" json:"jwt" mapstructure:"jwt"`
	Users    []UserConfig    `yaml:"users" json:"users" mapstructure:"users"`
	LogLevel string          `yaml:"log_level" json:"log_level" mapstructure:"log_level"`
}

// Load reads configuration from the given file (optional) and the
// environment. Environment variables use the PASSKEY_ prefix with
// underscores, e.g. PASSKEY_WEBAUTHN_RP_ID.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("PASSKEY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	cfg.WebAuthn.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.address", ":8080")
	v.SetDefault("server.read_timeout", 10*time.Second)
	v.SetDefault("server.write_timeout", 10*time.Second)
	v.SetDefault("server.shutdown_timeout", 30*time.Second)

	v.SetDefault("webauthn.rp_id", "localhost")
	v.SetDefault("webauthn.rp_display_name", "go-passkey")
	v.SetDefault("webauthn.rp_origins", []string{"http://localhost:8080"})

	v.SetDefault("store.driver", StoreMemory)

	v.SetDefault("jwt.enabled", false)
	v.SetDefault("jwt.issuer", "go-passkey")
	v.SetDefault("jwt.audience", "go-passkey")
	v.SetDefault("jwt.ttl", time.Hour)

	v.SetDefault("log_level", "info")
}

// Validate checks the configuration for usability.
func (c *Config) Validate() error {
	if c.Server.Address == "" {
		return fmt.Errorf("config: server.address is required")
	}
	switch c.Store.Driver {
	case StoreMemory:
	case StorePostgres:
		if c.Store.DSN == "" {
			return fmt.Errorf("config: store.dsn is required for the postgres driver")
		}
	default:
		return fmt.Errorf("config: unknown store driver %q", c.Store.Driver)
	}
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config: unknown log level %q", c.LogLevel)
	}
	return c.WebAuthn.Validate()
}

// SlogLevel maps the configured level to a slog.Level string form
// understood by slog.Level.UnmarshalText.
func (c *Config) SlogLevel() string {
	return strings.ToUpper(c.LogLevel)
}
