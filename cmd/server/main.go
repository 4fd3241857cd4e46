/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the capacity planner server.
  Handles configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load configuration (file, environment, then flags)
  2. Build the zap logger
  3. Open the SQLite store (migrations run on open)
  4. Create the Planner, API handler and router
  5. Start the capacity backfill scheduler
  6. Start server with graceful shutdown

COMMAND-LINE FLAGS:
  -config  Optional config file (YAML, JSON, TOML or .env)
  -port    HTTP server port, overrides SERVER_PORT
  -db      SQLite database path, overrides DB_PATH
           Use ":memory:" for in-memory database
  -seed    Scenario to load into an empty database, overrides PLANNING_SCENARIO

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (SERVER_SHUTDOWN_TIMEOUT)
  3. Stop the scheduler
  4. Close database connection

EXAMPLES:
  ./server -db="./data/planner.db"
  ./server -db=":memory:" -seed=default
  LOG_LEVEL=debug LOG_FORMAT=console ./server -port=3000

SEE ALSO:
  - config/config.go: Environment variables
  - api/server.go: Router configuration
  - store/sqlite/sqlite.go: Database implementation
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

	"go.uber.org/zap"

	"github.com/warp/capacity-planner/api"
	"github.com/warp/capacity-planner/config"
	"github.com/warp/capacity-planner/planning"
	"github.com/warp/capacity-planner/store/sqlite"
)

func main() {
	// Flags
	configPath := flag.String("config", "", "config file path")
	port := flag.Int("port", 0, "HTTP server port")
	dbPath := flag.String("db", "", "SQLite database path")
	seed := flag.String("seed", "", "scenario to load into an empty database")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage of %s:\n", os.Args[0])
		flag.PrintDefaults()
		fmt.Fprintln(flag.CommandLine.Output(), "\n"+config.Usage())
	}
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	if *port != 0 {
		cfg.Server.Port = *port
	}
	if *dbPath != "" {
		cfg.Database.Path = *dbPath
	}
	if *seed != "" {
		cfg.Planning.Scenario = *seed
	}

	log, err := newLogger(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	if err := run(cfg, log); err != nil {
		log.Fatal("server failed", zap.Error(err))
	}
}

func run(cfg *config.Config, log *zap.Logger) error {
	// Initialize store
	store, err := sqlite.New(cfg.Database.Path, sqlite.WithLogger(log.Named("sqlite")))
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer store.Close()

	planner := planning.NewPlanner(store,
		planning.WithLogger(log.Named("planner")),
		planning.WithDefaultCapacity(cfg.DefaultCapacity()))

	handler := api.NewHandler(planner, log)
	if cfg.Planning.Scenario != "" {
		loaded, err := handler.Seed(context.Background(), cfg.Planning.Scenario)
		if err != nil {
			return fmt.Errorf("failed to seed scenario %q: %w", cfg.Planning.Scenario, err)
		}
		if loaded {
			log.Info("seeded empty database", zap.String("scenario", cfg.Planning.Scenario))
		}
	}

	if cfg.Planning.BackfillEvery > 0 {
		scheduler := api.NewCapacityScheduler(planner, log)
		scheduler.CheckInterval = cfg.Planning.BackfillEvery
		scheduler.Start()
		defer scheduler.Stop()
	}

	router := api.NewRouter(handler, api.RouterOptions{
		AllowedOrigins: cfg.Server.AllowedOrigins,
		AccessLog:      cfg.Server.AccessLog,
	})

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start server in goroutine
	serverErr := make(chan error, 1)
	go func() {
		log.Info("server starting",
			zap.String("addr", fmt.Sprintf("http://localhost:%d", cfg.Server.Port)),
			zap.String("db", cfg.Database.Path),
			zap.String("env", cfg.Env))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-serverErr:
		return err
	case sig := <-quit:
		log.Info("shutting down server", zap.String("signal", sig.String()))
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Info("server stopped")
	return nil
}

func newLogger(cfg config.LogConfig) (*zap.Logger, error) {
	level, err := zap.ParseAtomicLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	zc := zap.NewProductionConfig()
	if cfg.Format == "console" {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = level
	return zc.Build()
}
