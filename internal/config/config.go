// Package config provides dynamic configuration management for patchbay.
// It uses Viper to load settings from files and environment variables.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all runtime configuration for patchbay.
type Config struct {
	// ── Server ───────────────────────────────────────────────────────────────
	ServerHost string `mapstructure:"server_host"`
	// ControlPort: operator REST API, JWT protected.
	ControlPort int `mapstructure:"control_port"`
	// DataPort: SNMP worker detections, /metrics and /healthz; bearer token protected.
	DataPort int    `mapstructure:"data_port"`
	DBDriver string `mapstructure:"db_driver"` // "sqlite" or "postgres"
	DBPath   string `mapstructure:"db_path"`   // used when db_driver = sqlite
	DBDSN    string `mapstructure:"db_dsn"`    // used when db_driver = postgres

	// ── Security ──────────────────────────────────────────────────────────────
	JWTSecret string        `mapstructure:"jwt_secret"`
	TokenTTL  time.Duration `mapstructure:"token_ttl"`
	// AgentToken: pre-shared key the SNMP worker sends as "Authorization: Bearer <agent_token>".
	AgentToken string `mapstructure:"agent_token"`
	AdminUser  string `mapstructure:"admin_user"`
	AdminPass  string `mapstructure:"admin_pass"`

	// ── Observability ─────────────────────────────────────────────────────────
	LogLevel       string `mapstructure:"log_level"`
	LogFormat      string `mapstructure:"log_format"` // json | console
	MetricsEnabled bool   `mapstructure:"metrics_enabled"`
}

// Load reads config from file (./config.yaml or ~/.patchbay/config.yaml)
// and falls back to smart defaults. Environment variables with prefix PATCHBAY_
// override file values.
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	// --- Config file ---
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.patchbay")
	if err := v.ReadInConfig(); err != nil {
		// config file is optional; ignore "not found" errors
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	return decode(v)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server_host", "0.0.0.0")
	v.SetDefault("control_port", 6677)
	v.SetDefault("data_port", 1616)
	v.SetDefault("db_driver", "sqlite")
	v.SetDefault("db_path", "patchbay.db")
	v.SetDefault("db_dsn", "")

	// Security defaults. MUST be overridden in production via config.yaml or env vars.
	v.SetDefault("jwt_secret", "pb$Kq9@rW3!nZ7#tL5^cV8&mA2*hX")
	v.SetDefault("token_ttl", "24h")
	v.SetDefault("agent_token", "patchbay-worker-key")
	v.SetDefault("admin_user", "admin")
	v.SetDefault("admin_pass", "admin")

	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "json")
	v.SetDefault("metrics_enabled", true)
}

func decode(v *viper.Viper) (*Config, error) {
	v.SetEnvPrefix("PATCHBAY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects combinations the server cannot start with.
func (c *Config) Validate() error {
	switch c.DBDriver {
	case "sqlite", "":
	case "postgres":
		if c.DBDSN == "" {
			return fmt.Errorf("db_dsn is required when db_driver is postgres")
		}
	default:
		return fmt.Errorf("unsupported db_driver %q (use 'sqlite' or 'postgres')", c.DBDriver)
	}
	if c.ControlPort == c.DataPort {
		return fmt.Errorf("control_port and data_port must differ (both %d)", c.ControlPort)
	}
	if c.JWTSecret == "" {
		return fmt.Errorf("jwt_secret must not be empty")
	}
	if c.TokenTTL <= 0 {
		return fmt.Errorf("token_ttl must be positive")
	}
	return nil
}
