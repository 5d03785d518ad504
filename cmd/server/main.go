/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the attendance and payroll engine server.
  Handles configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load configuration (.env, environment, flags)
  2. Build the zap logger for the environment
  3. Open the store selected by STORE_DRIVER
  4. Load the rules file (or the builtin rules, logged)
  5. Wire services, the day closer and the HTTP router
  6. Serve until SIGINT/SIGTERM, then shut down gracefully

COMMAND-LINE FLAGS:
  -port    HTTP server port (overrides APP_PORT)
  -db      SQLite database path (overrides SQLITE_PATH)
           Use ":memory:" for an in-memory database

ENVIRONMENT:
  APP_ENV, APP_PORT, STORE_DRIVER, SQLITE_PATH, DATABASE_URL, RULES_PATH,
  COMPANY_NAME, REJECT_OUTSIDE_GEOFENCE, DAY_CLOSE_INTERVAL, CORS_ORIGINS,
  LOAD_DEMO_DATA. See config/config.go.

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Stop the day closer
  4. Close the store

SEE ALSO:
  - api/server.go: Router configuration
  - config/config.go: Settings
  - factory/rules.go: Rules file format
*/
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/warp/payroll-engine/api"
	"github.com/warp/payroll-engine/attendance"
	"github.com/warp/payroll-engine/config"
	"github.com/warp/payroll-engine/core"
	"github.com/warp/payroll-engine/factory"
	"github.com/warp/payroll-engine/payroll"
	"github.com/warp/payroll-engine/service"
	"github.com/warp/payroll-engine/store/memory"
	"github.com/warp/payroll-engine/store/postgres"
	"github.com/warp/payroll-engine/store/sqlite"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// store is what every driver provides.
type store interface {
	attendance.Store
	payroll.Store
	service.EmployeeStore
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "server: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	port := flag.Int("port", cfg.Port, "HTTP server port")
	dbPath := flag.String("db", cfg.SQLitePath, "SQLite database path")
	flag.Parse()
	cfg.Port = *port
	cfg.SQLitePath = *dbPath

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()
	logger.Info("store opened", zap.String("driver", cfg.StoreDriver))

	rules, err := loadRules(cfg, logger)
	if err != nil {
		return err
	}
	registry := factory.NewRegistry(rules)

	clock := core.SystemClock{}
	dir := service.NewDirectory(st, clock)
	att := service.NewAttendance(st, st, registry, clock, logger)
	att.RejectOutsideGeofence = cfg.RejectOutsideGeofence
	pay := service.NewPayroll(st, st, st, registry, service.AllowAll{}, clock, logger)

	closer := service.NewDayCloser(att, cfg.DayCloseInterval, logger)
	closer.Start()
	defer closer.Stop()

	scenarios := api.NewScenarioLoader(st, st, st, registry, logger)
	if cfg.LoadDemoData {
		if err := scenarios.LoadAll(ctx); err != nil {
			return fmt.Errorf("failed to load demo data: %w", err)
		}
		logger.Info("demo data loaded")
	}

	handler := api.NewHandler(dir, att, pay, closer, registry, scenarios, logger)
	handler.RulesPath = cfg.RulesPath

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      api.NewRouter(handler, cfg.CORSOrigins, logger),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("server starting", zap.Int("port", cfg.Port), zap.String("env", cfg.Environment))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gCtx.Done()
		logger.Info("shutting down server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("server stopped")
	return nil
}

func newLogger(cfg config.Config) (*zap.Logger, error) {
	if cfg.IsProduction() {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}

func openStore(ctx context.Context, cfg config.Config) (store, func(), error) {
	switch cfg.StoreDriver {
	case config.DriverMemory:
		return memory.New(), func() {}, nil
	case config.DriverPostgres:
		pg, err := postgres.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		return pg, pg.Close, nil
	default:
		lite, err := sqlite.New(cfg.SQLitePath)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize database: %w", err)
		}
		return lite, func() { lite.Close() }, nil
	}
}

func loadRules(cfg config.Config, logger *zap.Logger) (*factory.Rules, error) {
	var (
		rules *factory.Rules
		err   error
	)
	if cfg.RulesPath != "" {
		rules, err = factory.LoadFile(cfg.RulesPath)
	} else {
		rules, err = factory.Default()
		logger.Warn("RULES_PATH not set, using builtin rules")
	}
	if err != nil {
		return nil, err
	}
	if cfg.CompanyName != "" {
		rules.Company.Name = cfg.CompanyName
	}
	logger.Info("rules loaded",
		zap.String("source", rules.Source),
		zap.String("timezone", rules.Calendar.Config().Timezone),
		zap.String("default_regime", string(rules.DefaultRegime)),
	)
	return rules, nil
}
