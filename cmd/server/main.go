/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the tenancy ledger engine server. Handles
  configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Parse command-line flags and optional TOML config
  2. Initialize SQLite store
  3. Wire the tenancy, billing, and clearance services
  4. Start the removal scheduler and restore persisted jobs
  5. Start server with graceful shutdown

COMMAND-LINE FLAGS:
  -port    HTTP server port (overrides config)
  -db      SQLite database path (overrides config)
           Use ":memory:" for an in-memory database
  -config  Path to a TOML config file

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Stop the removal scheduler
  4. Close database connection
  5. Exit

EXAMPLES:
  ./server -db="./data/tenancy.db"
  ./server -config=config.toml
  ./server -port=3000 -db=":memory:"

SEE ALSO:
  - config/config.go: TOML configuration
  - api/server.go: Router configuration
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/sleekabode/tenancy-engine/api"
	"github.com/sleekabode/tenancy-engine/billing"
	"github.com/sleekabode/tenancy-engine/clearance"
	"github.com/sleekabode/tenancy-engine/config"
	"github.com/sleekabode/tenancy-engine/ledger"
	"github.com/sleekabode/tenancy-engine/store/sqlite"
	"github.com/sleekabode/tenancy-engine/tenancy"
)

func main() {
	port := flag.Int("port", 0, "HTTP server port (overrides config)")
	dbPath := flag.String("db", "", "SQLite database path (overrides config)")
	configPath := flag.String("config", "", "Path to TOML config file")
	flag.Parse()

	logger, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatal("failed to load config", zap.Error(err))
	}
	if *port != 0 {
		cfg.Server.Port = *port
	}
	if *dbPath != "" {
		cfg.Database.Path = *dbPath
	}

	// Store
	store, err := sqlite.New(cfg.Database.Path)
	if err != nil {
		logger.Fatal("failed to initialize database", zap.Error(err))
	}
	defer store.Close()

	// Services share one keyed lock so every unit of work for a tenant
	// is serialized regardless of which service runs it.
	locks := ledger.NewKeyedLock()
	tenancySvc := tenancy.NewService(store, logger)
	billingSvc := billing.NewService(store, store, locks, logger)

	notifier := api.NewEmailNotifier(
		cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.Username, cfg.SMTP.Password,
		cfg.SMTP.From, cfg.SMTP.OwnerEmail, logger)

	scheduler := api.NewRemovalScheduler(store, logger)
	if cfg.Retention.CheckIntervalMinutes > 0 {
		scheduler.CheckInterval = time.Duration(cfg.Retention.CheckIntervalMinutes) * time.Minute
	}

	removalDelay := time.Duration(cfg.Retention.RemovalDelayHours) * time.Hour
	clearanceSvc := clearance.NewService(store, store, store, locks,
		notifier, scheduler, removalDelay, logger)

	scheduler.SetRemover(clearanceSvc)
	scheduler.Start()
	defer scheduler.Stop()
	scheduler.Restore(context.Background())

	// Router and server
	handler := api.NewHandler(tenancySvc, billingSvc, clearanceSvc)
	router := api.NewRouter(handler)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server starting",
			zap.Int("port", cfg.Server.Port),
			zap.String("db", cfg.Database.Path))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Fatal("server forced to shutdown", zap.Error(err))
	}

	logger.Info("server stopped")
}
