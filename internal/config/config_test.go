package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	v := viper.New()
	setDefaults(v)

	cfg, err := decode(v)
	require.NoError(t, err)
	assert.Equal(t, 6677, cfg.ControlPort)
	assert.Equal(t, 1616, cfg.DataPort)
	assert.Equal(t, "sqlite", cfg.DBDriver)
	assert.Equal(t, 24*time.Hour, cfg.TokenTTL)
	assert.True(t, cfg.MetricsEnabled)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("PATCHBAY_CONTROL_PORT", "9000")
	t.Setenv("PATCHBAY_LOG_LEVEL", "debug")

	v := viper.New()
	setDefaults(v)

	cfg, err := decode(v)
	require.NoError(t, err)
	assert.Equal(t, 9000, cfg.ControlPort)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestValidate(t *testing.T) {
	base := func() Config {
		return Config{DBDriver: "sqlite", ControlPort: 1, DataPort: 2, JWTSecret: "s", TokenTTL: time.Hour}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"ok", func(c *Config) {}, ""},
		{"unknown driver", func(c *Config) { c.DBDriver = "oracle" }, "unsupported db_driver"},
		{"postgres without dsn", func(c *Config) { c.DBDriver = "postgres" }, "db_dsn is required"},
		{"same ports", func(c *Config) { c.DataPort = 1 }, "must differ"},
		{"empty secret", func(c *Config) { c.JWTSecret = "" }, "jwt_secret"},
		{"zero ttl", func(c *Config) { c.TokenTTL = 0 }, "token_ttl"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := base()
			tt.mutate(&c)
			err := c.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
