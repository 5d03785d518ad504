// Package config reads process settings from the environment. Business rules
// (calendar, geofence, tax) are not here; they come from the rules file read
// by package factory.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Store drivers.
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

type Config struct {
	Environment string
	Port        int

	StoreDriver string
	SQLitePath  string
	DatabaseURL string

	// RulesPath is the YAML or JSON rules file. Empty uses the builtin rules.
	RulesPath string
	// CompanyName overrides the company name from the rules file.
	CompanyName string

	RejectOutsideGeofence bool
	DayCloseInterval      time.Duration
	CORSOrigins           []string
	LoadDemoData          bool
}

// Load reads a .env file if one exists, then the environment. Variables
// already set in the environment win over the file.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return Config{}, fmt.Errorf("failed to read .env: %w", err)
	}
	return FromEnv()
}

// FromEnv reads the environment only.
func FromEnv() (Config, error) {
	port, err := strconv.Atoi(getEnv("APP_PORT", "8080"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid APP_PORT: %w", err)
	}
	interval, err := time.ParseDuration(getEnv("DAY_CLOSE_INTERVAL", "1h"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid DAY_CLOSE_INTERVAL: %w", err)
	}

	return Config{
		Environment:           getEnv("APP_ENV", "development"),
		Port:                  port,
		StoreDriver:           getEnv("STORE_DRIVER", DriverSQLite),
		SQLitePath:            getEnv("SQLITE_PATH", "payroll.db"),
		DatabaseURL:           getEnv("DATABASE_URL", ""),
		RulesPath:             getEnv("RULES_PATH", ""),
		CompanyName:           getEnv("COMPANY_NAME", ""),
		RejectOutsideGeofence: getEnvBool("REJECT_OUTSIDE_GEOFENCE", false),
		DayCloseInterval:      interval,
		CORSOrigins:           getEnvList("CORS_ORIGINS", []string{"http://localhost:5173", "http://localhost:8080"}),
		LoadDemoData:          getEnvBool("LOAD_DEMO_DATA", false),
	}, nil
}

func (c Config) IsProduction() bool { return c.Environment == "production" }

func (c Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("APP_PORT must be between 1 and 65535")
	}
	switch c.StoreDriver {
	case DriverMemory:
		if c.IsProduction() {
			return fmt.Errorf("STORE_DRIVER=memory is not allowed in production")
		}
	case DriverSQLite:
		if strings.TrimSpace(c.SQLitePath) == "" {
			return fmt.Errorf("SQLITE_PATH is required for the sqlite driver")
		}
	case DriverPostgres:
		if strings.TrimSpace(c.DatabaseURL) == "" {
			return fmt.Errorf("DATABASE_URL is required for the postgres driver")
		}
	default:
		return fmt.Errorf("STORE_DRIVER must be memory, sqlite or postgres, got %q", c.StoreDriver)
	}
	if c.IsProduction() && c.RulesPath == "" {
		return fmt.Errorf("RULES_PATH must be set in production")
	}
	if c.DayCloseInterval < time.Minute {
		return fmt.Errorf("DAY_CLOSE_INTERVAL must be at least 1m")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvList(key string, fallback []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
