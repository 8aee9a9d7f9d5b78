package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"mindcash/internal/amqp"
	"mindcash/internal/config"
	mclog "mindcash/internal/log"
	"mindcash/internal/sheets"
	gsheet "mindcash/internal/sheets/google"
	memsheet "mindcash/internal/sheets/memory"
	"mindcash/internal/storage"
	"mindcash/internal/worker"
)

func main() {
	_ = godotenv.Load()

	logger := mclog.New(mclog.DefaultConfig()).WithComponent(mclog.ComponentWorker)
	mclog.SetDefault(logger)

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", mclog.FieldError, err)
		os.Exit(1)
	}

	repo, err := storage.NewRepository(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("sqlite startup failed", mclog.FieldError, err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer repo.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var (
		appender sheets.TransactionAppender
		deleter  sheets.TransactionDeleter
	)
	if cfg.GoogleSpreadsheetID != "" {
		cli, err := gsheet.NewFromEnv(ctx)
		if err != nil {
			logger.Error("sheets client startup failed", mclog.FieldError, err)
			os.Exit(1)
		}
		appender, deleter = cli, cli
		logger.Info("google sheets sync enabled", "spreadsheet_id", cfg.GoogleSpreadsheetID)
	} else {
		// Without a spreadsheet the worker still drains the queue so the
		// sync states settle; rows land in a process-local store.
		store := memsheet.New()
		appender, deleter = store, store
		logger.Info("no GOOGLE_SPREADSHEET_ID set, using in-memory sheet")
	}

	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("amqp startup failed", mclog.FieldError, err)
		os.Exit(1)
	}
	defer client.Close()

	w := worker.NewSyncWorker(repo, appender, deleter, cfg.SyncBatchSize)

	logger.Info("running startup sync check", mclog.FieldOperation, mclog.OpStartup)
	if err := w.StartupSyncCheck(ctx); err != nil {
		logger.Error("startup sync check failed", mclog.FieldError, err)
	}

	logger.Info("worker started", "queue", cfg.AMQPQueue, "scan_interval", cfg.SyncInterval.String())
	if err := w.Run(ctx, client, cfg.SyncInterval); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker stopped with error", mclog.FieldError, err)
		os.Exit(1)
	}
	logger.Info("worker stopped")
}
