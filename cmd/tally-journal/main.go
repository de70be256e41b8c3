// tally-journal consumes import events from AMQP and archives them into the
// SQLite import journal.
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"tally/internal/amqp"
	"tally/internal/config"
	applog "tally/internal/log"
	"tally/internal/storage"
	"tally/internal/worker"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := applog.New(applog.Config{Component: applog.ComponentJournal})
	applog.SetDefault(logger)

	logger.Info("Starting tally-journal")

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}
	if cfg.AMQPURL == "" {
		logger.Error("AMQP_URL is required for the journal worker")
		os.Exit(1)
	}
	if cfg.JournalDBPath == "" {
		logger.Error("JOURNAL_DB_PATH is required for the journal worker")
		os.Exit(1)
	}

	journal, err := storage.NewJournalRepository(cfg.JournalDBPath)
	if err != nil {
		logger.Error("Failed to initialize import journal", "error", err, "path", cfg.JournalDBPath)
		os.Exit(1)
	}
	defer journal.Close()

	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", "error", err)
		os.Exit(1)
	}
	defer client.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	w := worker.NewJournalWorker(journal)
	logger.Info("Consuming import events", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
	if err := client.ConsumeImportEvents(ctx, func(ev *amqp.ImportEvent) error {
		return w.HandleImportEvent(ctx, ev)
	}); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Event consumption failed", "error", err)
		os.Exit(1)
	}

	logger.Info("Journal worker stopped gracefully")
}
