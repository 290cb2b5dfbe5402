package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"tally/internal/amqp"
	"tally/internal/config"
	"tally/internal/log"
	"tally/internal/services"
	gsheet "tally/internal/sheets/google"
	"tally/internal/storage"
	"tally/internal/worker"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	log.Setup(cfg.LogLevel)
	logger := log.ForComponent(log.ComponentWorker)

	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	logger.Info("Starting tally-worker")

	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to initialize SQLite repository", "error", err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer repo.Close()

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.SyncQueue, cfg.ScanQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", "error", err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Receipt scans become regular expenses through the same service path
	// the API uses, so validation and export queueing stay identical.
	expenseService := services.NewExpenseService(repo, repo, amqpClient)
	ingest := services.NewIngestService(expenseService)

	go func() {
		if err := amqpClient.ConsumeReceiptScans(ctx, ingest.HandleReceiptScan); err != nil {
			if !errors.Is(err, context.Canceled) {
				logger.Error("Receipt scan consumption failed", "error", err)
			}
			cancel()
		}
	}()

	// Sheets export is optional; without it the worker only ingests scans.
	var syncWorker *worker.SyncWorker
	if cfg.SheetsEnabled() {
		sheetsClient, err := gsheet.New(ctx, cfg.GoogleSpreadsheetID, cfg.GoogleSheetName)
		if err != nil {
			logger.Error("Failed to initialize Google Sheets client", "error", err)
			os.Exit(1)
		}
		logger.Info("Google Sheets client initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID)

		syncWorker = worker.NewSyncWorker(repo, sheetsClient, cfg.SyncBatchSize)

		// Catch up on anything queued while the worker was down.
		if err := syncWorker.StartupCheck(ctx); err != nil {
			logger.Error("Startup sync check failed", "error", err)
		}
	} else {
		logger.Info("Google Sheets export disabled - no GOOGLE_SPREADSHEET_ID provided")
	}

	if syncWorker != nil {
		go func() {
			if err := amqpClient.ConsumeExpenseSync(ctx, syncWorker.HandleSyncMessage); err != nil {
				if !errors.Is(err, context.Canceled) {
					logger.Error("Sync message consumption failed", "error", err)
				}
				cancel()
			}
		}()

		go func() {
			ticker := time.NewTicker(cfg.SyncInterval)
			defer ticker.Stop()

			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					if err := syncWorker.ProcessPending(ctx); err != nil {
						logger.Error("Periodic sync failed", "error", err)
					}
				}
			}
		}()
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		logger.Info("Shutdown signal received", "signal", sig.String())
	case <-ctx.Done():
		logger.Info("Context cancelled")
	}

	logger.Info("Shutting down worker...")
	cancel()

	// Give in-flight handlers a moment to finish.
	time.Sleep(2 * time.Second)
	logger.Info("Worker shutdown complete")
}
