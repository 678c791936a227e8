package config

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func baseConfig() *Config {
	return &Config{
		JWTSecret:          "a-perfectly-reasonable-development-secret",
		Port:               "8460",
		DBPassword:         "hunter2-but-stronger",
		DBSSLMode:          "require",
		Env:                "development",
		AccessTokenTTLMin:  15,
		RefreshTokenTTLHrs: 168,
		ActivationTTLHrs:   4,
	}
}

func TestValidateAcceptsDevelopmentDefaults(t *testing.T) {
	cfg := baseConfig()
	require.NoError(t, cfg.Validate())
}

func TestValidateRequiredFields(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"missing port", func(c *Config) { c.Port = "" }, "PORT"},
		{"missing secret", func(c *Config) { c.JWTSecret = "" }, "JWT_SECRET"},
		{"zero access ttl", func(c *Config) { c.AccessTokenTTLMin = 0 }, "ACCESS_TOKEN_TTL_MIN"},
		{"negative refresh ttl", func(c *Config) { c.RefreshTokenTTLHrs = -1 }, "REFRESH_TOKEN_TTL_HOURS"},
		{"zero activation ttl", func(c *Config) { c.ActivationTTLHrs = 0 }, "ACTIVATION_TOKEN_TTL_HOURS"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := baseConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.True(t, strings.Contains(err.Error(), tt.wantErr),
				"error %q should mention %s", err, tt.wantErr)
		})
	}
}

func TestValidateProductionRules(t *testing.T) {
	t.Run("default secret rejected", func(t *testing.T) {
		cfg := baseConfig()
		cfg.Env = "production"
		cfg.JWTSecret = "your-secret-key-change-in-production"
		assert.Error(t, cfg.Validate())
	})

	t.Run("short secret rejected", func(t *testing.T) {
		cfg := baseConfig()
		cfg.Env = "production"
		cfg.JWTSecret = "short"
		assert.Error(t, cfg.Validate())
	})

	t.Run("weak db password rejected", func(t *testing.T) {
		cfg := baseConfig()
		cfg.Env = "prod"
		cfg.DBPassword = "password"
		assert.Error(t, cfg.Validate())
	})

	t.Run("strong settings accepted", func(t *testing.T) {
		cfg := baseConfig()
		cfg.Env = "production"
		require.NoError(t, cfg.Validate())
	})
}
