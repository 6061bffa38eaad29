// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/aristath/lmt-kanban/internal/utils"
	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	Port             int
	AnalyticsBaseURL string        // analytics backend, e.g. http://localhost:8000
	AnalyticsTimeout time.Duration // per-request timeout against the backend
	PollInterval     time.Duration // fixed-period refresh
	BatchTimezone    string        // zone the backend aligns its hourly batches to
	DisplayTimezones []string      // zones the "last updated" stamp is shown in
	LogLevel         string
	DevMode          bool
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	displayZones := utils.ParseCSV(getEnv("DISPLAY_TIMEZONES", "Asia/Shanghai,America/Monterrey"))

	cfg := &Config{
		Port:             getEnvAsInt("KANBAN_PORT", 8002),
		AnalyticsBaseURL: getEnv("ANALYTICS_BASE_URL", "http://localhost:8000"),
		AnalyticsTimeout: time.Duration(getEnvAsInt("ANALYTICS_TIMEOUT_SECONDS", 20)) * time.Second,
		PollInterval:     time.Duration(getEnvAsInt("REFRESH_POLL_MINUTES", 5)) * time.Minute,
		BatchTimezone:    getEnv("BATCH_TIMEZONE", "America/Monterrey"),
		DisplayTimezones: displayZones,
		LogLevel:         getEnv("LOG_LEVEL", "info"),
		DevMode:          getEnvAsBool("DEV_MODE", false),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that the configuration is usable
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("poll interval must be positive, got %s", c.PollInterval)
	}
	if c.AnalyticsTimeout <= 0 {
		return fmt.Errorf("analytics timeout must be positive, got %s", c.AnalyticsTimeout)
	}
	u, err := url.Parse(c.AnalyticsBaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid analytics base URL %q", c.AnalyticsBaseURL)
	}
	if _, err := time.LoadLocation(c.BatchTimezone); err != nil {
		return fmt.Errorf("invalid batch timezone %q: %w", c.BatchTimezone, err)
	}
	for _, zone := range c.DisplayTimezones {
		if _, err := time.LoadLocation(zone); err != nil {
			return fmt.Errorf("invalid display timezone %q: %w", zone, err)
		}
	}
	return nil
}

// BatchLocation returns the loaded batch timezone. Call after Validate.
func (c *Config) BatchLocation() *time.Location {
	loc, err := time.LoadLocation(c.BatchTimezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// DisplayLocations returns the loaded display timezones in configured order.
// Zones that fail to load are skipped.
func (c *Config) DisplayLocations() []*time.Location {
	out := make([]*time.Location, 0, len(c.DisplayTimezones))
	for _, zone := range c.DisplayTimezones {
		if loc, err := time.LoadLocation(zone); err == nil {
			out = append(out, loc)
		}
	}
	return out
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}
