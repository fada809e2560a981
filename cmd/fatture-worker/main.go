package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"fatture/internal/amqp"
	"fatture/internal/backend"
	"fatture/internal/cli"
	"fatture/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger()

	logger.Info("Starting fatture-worker")

	cfg := cli.LoadAndValidateConfig(logger)

	if cfg.AMQPURL == "" {
		logger.Error("AMQP_URL is required for the archive worker")
		os.Exit(1)
	}

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", "error", err)
		os.Exit(1)
	}
	result, err := backend.Open(backendCfg, logger)
	if err != nil {
		logger.Error("Failed to initialize storage backend", "error", err, "backend", cfg.DataBackend)
		os.Exit(1)
	}
	defer func() {
		if err := result.Cleanup(); err != nil {
			logger.Error("Storage cleanup error", "error", err)
		}
	}()

	amqpClient := cli.ConnectAMQP(logger, cfg)
	defer amqpClient.Close()

	archiveWorker, err := worker.NewArchiveWorker(result.Repository, cfg.PDFArchiveDir)
	if err != nil {
		logger.Error("Failed to initialize archive worker", "error", err, "dir", cfg.PDFArchiveDir)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Catch up on events missed while the worker was down.
	if err := archiveWorker.ArchiveAll(ctx); err != nil {
		logger.Error("Startup archive pass failed", "error", err)
		// Keep going; the event stream still converges on current state.
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return amqpClient.ConsumeInvoiceEvents(gctx, func(ev *amqp.InvoiceEvent) error {
			return archiveWorker.HandleEvent(gctx, ev)
		})
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Worker stopped with error", "error", err)
		os.Exit(1)
	}

	logger.Info("Worker stopped gracefully")
}
