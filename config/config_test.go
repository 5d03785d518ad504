package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/payroll-engine/config"
)

func TestFromEnv_Defaults(t *testing.T) {
	for _, key := range []string{"APP_ENV", "APP_PORT", "STORE_DRIVER", "SQLITE_PATH", "DATABASE_URL",
		"RULES_PATH", "COMPANY_NAME", "REJECT_OUTSIDE_GEOFENCE", "DAY_CLOSE_INTERVAL", "CORS_ORIGINS", "LOAD_DEMO_DATA"} {
		t.Setenv(key, "")
	}

	cfg, err := config.FromEnv()
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, config.DriverSQLite, cfg.StoreDriver)
	assert.Equal(t, time.Hour, cfg.DayCloseInterval)
	assert.False(t, cfg.RejectOutsideGeofence)
	assert.NoError(t, cfg.Validate())
}

func TestFromEnv_Overrides(t *testing.T) {
	t.Setenv("APP_PORT", "9090")
	t.Setenv("STORE_DRIVER", "postgres")
	t.Setenv("DATABASE_URL", "postgres://localhost/payroll")
	t.Setenv("REJECT_OUTSIDE_GEOFENCE", "true")
	t.Setenv("DAY_CLOSE_INTERVAL", "15m")
	t.Setenv("CORS_ORIGINS", "https://hr.example.com, https://admin.example.com ,")

	cfg, err := config.FromEnv()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Port)
	assert.True(t, cfg.RejectOutsideGeofence)
	assert.Equal(t, 15*time.Minute, cfg.DayCloseInterval)
	assert.Equal(t, []string{"https://hr.example.com", "https://admin.example.com"}, cfg.CORSOrigins)
	assert.NoError(t, cfg.Validate())
}

func TestFromEnv_InvalidValues(t *testing.T) {
	t.Setenv("APP_PORT", "eighty")
	_, err := config.FromEnv()
	assert.ErrorContains(t, err, "APP_PORT")

	t.Setenv("APP_PORT", "8080")
	t.Setenv("DAY_CLOSE_INTERVAL", "daily")
	_, err = config.FromEnv()
	assert.ErrorContains(t, err, "DAY_CLOSE_INTERVAL")
}

func TestValidate(t *testing.T) {
	base := config.Config{Environment: "development", Port: 8080, StoreDriver: config.DriverSQLite, SQLitePath: "x.db", DayCloseInterval: time.Hour}

	tests := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{"unknown driver", func(c *config.Config) { c.StoreDriver = "mongo" }, "STORE_DRIVER"},
		{"postgres without url", func(c *config.Config) { c.StoreDriver = config.DriverPostgres }, "DATABASE_URL"},
		{"memory in production", func(c *config.Config) { c.StoreDriver = config.DriverMemory; c.Environment = "production" }, "memory"},
		{"production without rules", func(c *config.Config) { c.Environment = "production" }, "RULES_PATH"},
		{"interval too short", func(c *config.Config) { c.DayCloseInterval = time.Second }, "DAY_CLOSE_INTERVAL"},
		{"bad port", func(c *config.Config) { c.Port = 0 }, "APP_PORT"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base
			tt.mutate(&cfg)
			assert.ErrorContains(t, cfg.Validate(), tt.want)
		})
	}
}
