/**
 * PDF OCR Worker - Main Entry Point
 *
 * Go worker converting scanned PDFs to text or tables.
 *
 * Architecture:
 * - Asynq consumer for Redis-backed pdf:convert tasks
 * - MuPDF rasterization, Tesseract OCR, geometric and remote table detection
 * - Bounded page-level worker pool per request
 * - In-process LRU result cache with optional Redis tier
 */

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/adverant/nexus/pdfocr-worker/internal/app"
	"github.com/adverant/nexus/pdfocr-worker/internal/config"
	"github.com/adverant/nexus/pdfocr-worker/internal/logging"
	"github.com/adverant/nexus/pdfocr-worker/internal/queue"
)

func main() {
	logger := logging.NewLogger("Worker")

	// Load environment variables
	if err := godotenv.Load(); err != nil {
		logger.Warn(".env not found, using system environment variables")
	}

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	logCloser, err := logging.Configure(cfg.LoggingOptions())
	if err != nil {
		logger.Error("Failed to configure logging", "error", err)
		os.Exit(1)
	}
	defer logCloser.Close()
	logger = logging.NewLogger("Worker")

	logger.Info("PDF OCR Worker starting",
		"queue", cfg.Queue.Name,
		"concurrency", cfg.Queue.Concurrency,
		"max_workers", cfg.Processing.MaxWorkers,
		"table_backend", cfg.Tables.Backend)

	// Build conversion stack
	stack, err := app.Build(cfg)
	if err != nil {
		logger.Error("Failed to initialize conversion stack", "error", err)
		os.Exit(1)
	}
	defer stack.Close()

	// Initialize queue consumer
	consumer, err := queue.NewConsumer(&queue.ConsumerConfig{
		RedisURL:    cfg.Queue.RedisURL,
		QueueName:   cfg.Queue.Name,
		Concurrency: cfg.Queue.Concurrency,
		Converter:   stack.Orchestrator,
		Defaults:    cfg.Options(),
	})
	if err != nil {
		logger.Error("Failed to initialize queue consumer", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()
	if err := consumer.Start(ctx); err != nil {
		logger.Error("Failed to start queue consumer", "error", err)
		os.Exit(1)
	}

	logger.Info("PDF OCR Worker is ready, waiting for tasks",
		"task_type", queue.TypeConvert,
		"languages", stack.Text.Languages())

	// Setup graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	sig := <-sigChan
	logger.Info("Received signal, initiating graceful shutdown", "signal", sig.String())

	if err := consumer.Stop(ctx); err != nil {
		logger.Error("Error stopping queue consumer", "error", err)
	}

	logger.Info("Shutdown complete")
}
