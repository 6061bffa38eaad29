package config

import (
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	for _, key := range []string{
		"KANBAN_PORT", "ANALYTICS_BASE_URL", "ANALYTICS_TIMEOUT_SECONDS",
		"REFRESH_POLL_MINUTES", "BATCH_TIMEZONE", "DISPLAY_TIMEZONES",
		"LOG_LEVEL", "DEV_MODE",
	} {
		t.Setenv(key, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8002, cfg.Port)
	assert.Equal(t, "http://localhost:8000", cfg.AnalyticsBaseURL)
	assert.Equal(t, 20*time.Second, cfg.AnalyticsTimeout)
	assert.Equal(t, 5*time.Minute, cfg.PollInterval)
	assert.Equal(t, "America/Monterrey", cfg.BatchTimezone)
	assert.Equal(t, []string{"Asia/Shanghai", "America/Monterrey"}, cfg.DisplayTimezones)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.False(t, cfg.DevMode)
	assert.Equal(t, "America/Monterrey", cfg.BatchLocation().String())
	assert.Len(t, cfg.DisplayLocations(), 2)
}

func TestLoad_FromEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("KANBAN_PORT", "9100")
	t.Setenv("ANALYTICS_BASE_URL", "http://analytics:8000")
	t.Setenv("REFRESH_POLL_MINUTES", "2")
	t.Setenv("BATCH_TIMEZONE", "UTC")
	t.Setenv("DISPLAY_TIMEZONES", "UTC, Europe/Berlin")
	t.Setenv("DEV_MODE", "true")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9100, cfg.Port)
	assert.Equal(t, "http://analytics:8000", cfg.AnalyticsBaseURL)
	assert.Equal(t, 2*time.Minute, cfg.PollInterval)
	assert.Equal(t, []string{"UTC", "Europe/Berlin"}, cfg.DisplayTimezones)
	assert.True(t, cfg.DevMode)
}

func TestLoad_InvalidIntFallsBack(t *testing.T) {
	clearEnv(t)
	t.Setenv("KANBAN_PORT", "not-a-port")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 8002, cfg.Port)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Port:             8002,
			AnalyticsBaseURL: "http://localhost:8000",
			AnalyticsTimeout: time.Second,
			PollInterval:     time.Minute,
			BatchTimezone:    "America/Monterrey",
			DisplayTimezones: []string{"Asia/Shanghai"},
		}
	}

	require.NoError(t, valid().Validate())

	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"zero poll", func(c *Config) { c.PollInterval = 0 }},
		{"negative poll", func(c *Config) { c.PollInterval = -time.Minute }},
		{"zero timeout", func(c *Config) { c.AnalyticsTimeout = 0 }},
		{"bad port", func(c *Config) { c.Port = 0 }},
		{"relative url", func(c *Config) { c.AnalyticsBaseURL = "localhost" }},
		{"unknown batch zone", func(c *Config) { c.BatchTimezone = "Mars/Olympus" }},
		{"unknown display zone", func(c *Config) { c.DisplayTimezones = []string{"UTC", "Nowhere/City"} }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(c)
			assert.Error(t, c.Validate())
		})
	}
}
