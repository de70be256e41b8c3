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

	"tally/internal/amqp"
	"tally/internal/config"
	apphttp "tally/internal/http"
	"tally/internal/ingest"
	applog "tally/internal/log"
	"tally/internal/services"
	"tally/internal/storage"
	"tally/internal/store"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := applog.New(applog.DefaultConfig())
	applog.SetDefault(logger)

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	// Import journal is optional; without a path imports stay unarchived.
	// When AMQP is enabled the tally-journal worker owns the journal, so the
	// app never writes it directly (that would record every import twice).
	var journal *storage.JournalRepository
	switch {
	case cfg.JournalDBPath != "" && cfg.AMQPURL == "":
		var err error
		journal, err = storage.NewJournalRepository(cfg.JournalDBPath)
		if err != nil {
			logger.Error("Failed to initialize import journal", "error", err, "path", cfg.JournalDBPath)
			os.Exit(1)
		}
		logger.Info("Import journal initialized", "path", cfg.JournalDBPath)
	case cfg.JournalDBPath != "":
		logger.Info("Import journal delegated to the tally-journal worker")
	default:
		logger.Info("Import journal disabled - no JOURNAL_DB_PATH provided")
	}

	// AMQP is optional; without a URL import events are not published.
	var events *amqp.Client
	if cfg.AMQPURL != "" {
		var err error
		events, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", "error", err)
			os.Exit(1)
		}
		logger.Info("AMQP import events enabled", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
	} else {
		logger.Info("AMQP import events disabled - no AMQP_URL provided")
	}

	registry := store.NewRegistry(logger.WithComponent(applog.ComponentStore).Logger)
	importer := services.NewImportService(ingest.New(logger.WithComponent(applog.ComponentIngest).Logger), journal, events, logger.Logger)
	defer importer.Close()

	srv := apphttp.NewServer(*cfg, registry, importer)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting tally server", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		return registry.Janitor(ctx, cfg.SessionSweepInterval, cfg.SessionIdleTimeout)
	})
	g.Go(func() error {
		return srv.CacheJanitor(ctx, 10*time.Minute)
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Server error", "error", err)
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
}
