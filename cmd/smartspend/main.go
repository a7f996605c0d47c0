package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"smartspend/internal/advice"
	"smartspend/internal/amqp"
	"smartspend/internal/budget"
	"smartspend/internal/cache"
	"smartspend/internal/config"
	"smartspend/internal/engine"
	apphttp "smartspend/internal/http"
	"smartspend/internal/ledger"
	applog "smartspend/internal/log"
	"smartspend/internal/remote"
	"smartspend/internal/remote/memory"
	"smartspend/internal/remote/sqlite"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := applog.New(applog.DefaultConfig())
	applog.SetDefault(logger)

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", applog.FieldError, err)
		os.Exit(1)
	}

	// Optional AMQP fanout: ledger writes publish change events for the
	// mirror worker when a broker is configured.
	var publisher remote.EventPublisher
	var amqpClient *amqp.Client
	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", applog.FieldError, err)
			os.Exit(1)
		}
		amqpClient = client
		publisher = client
		defer amqpClient.Close()
		logger.Info("AMQP fanout enabled", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
	}

	var (
		coll    remote.Collection
		budgets budget.Store
	)
	switch cfg.DataBackend {
	case "sqlite":
		repo, err := sqlite.NewRepository(cfg.SQLiteDBPath, publisher)
		if err != nil {
			logger.Error("Failed to initialize SQLite backend",
				applog.FieldError, err, "path", cfg.SQLiteDBPath)
			os.Exit(1)
		}
		defer repo.Close()
		coll, budgets = repo, repo
	default:
		coll, budgets = memory.New(), memory.NewBudgetStore()
	}
	logger.Info("Initialized data backend", applog.FieldBackend, cfg.DataBackend)

	store := ledger.NewStore(coll)
	manager := engine.NewManager(store, budgets)
	defer manager.Shutdown()

	advisor := advice.NewClient(cfg.GeminiAPIKey, cfg.GeminiModel, cfg.AdviceCacheTTL)
	if cfg.GeminiAPIKey == "" {
		logger.Info("No Gemini API key configured, advice runs in fallback mode")
	}

	caches := cache.NewManager()
	caches.Register(advisor.Cache())
	caches.StartCleanup(10 * time.Minute)
	defer caches.Stop()

	srv := apphttp.NewServer(":"+cfg.Port, manager, advisor, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting smartspend server",
			"port", cfg.Port, applog.FieldBackend, cfg.DataBackend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		logger.Info("Shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server error", applog.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
}
