package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	for _, k := range []string{"STORE", "RECORD_DEPOSIT", "SS58_PREFIX", "RATE_LIMIT", "JWT_TTL", "LOG_DEV", "CORS_ORIGINS", "JWT_SECRET"} {
		t.Setenv(k, "")
	}
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "mysql", cfg.Store)
	assert.Equal(t, 24*time.Hour, cfg.JWTTTL)
	assert.Equal(t, []string{"*"}, cfg.CORSOrigins)
	assert.Equal(t, 120, cfg.RateLimit)
	assert.Error(t, cfg.RequireSecret())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("STORE", "Memory")
	t.Setenv("RECORD_DEPOSIT", "25")
	t.Setenv("SS58_PREFIX", "42")
	t.Setenv("CORS_ORIGINS", "https://a.example, https://b.example ,")
	t.Setenv("LOG_DEV", "true")
	t.Setenv("JWT_SECRET", "x")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "memory", cfg.Store)
	assert.Equal(t, uint64(25), cfg.RecordDeposit)
	assert.Equal(t, uint16(42), cfg.SS58Prefix)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSOrigins)
	assert.True(t, cfg.LogDev)
	assert.NoError(t, cfg.RequireSecret())
}

func TestLoadRejects(t *testing.T) {
	cases := map[string]string{
		"STORE":          "postgres",
		"RECORD_DEPOSIT": "-1",
		"SS58_PREFIX":    "70000",
		"RATE_LIMIT":     "lots",
		"JWT_TTL":        "1 day",
	}
	for k, v := range cases {
		t.Run(k, func(t *testing.T) {
			t.Setenv(k, v)
			_, err := Load()
			assert.ErrorContains(t, err, k)
		})
	}
}
