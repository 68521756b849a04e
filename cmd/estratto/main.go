package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"estratto/internal/amqp"
	"estratto/internal/cache"
	"estratto/internal/config"
	"estratto/internal/fetch"
	apphttp "estratto/internal/http"
	applog "estratto/internal/log"
	"estratto/internal/services"
	"estratto/internal/storage"
	"estratto/internal/worker"
)

func main() {
	// Load .env for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	cfg := config.Load()

	logger := applog.New(applog.Config{
		Level:     applog.ParseLevel(cfg.LogLevel),
		Component: applog.ComponentApp,
	})
	applog.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to initialize SQLite repository", "error", err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer repo.Close()

	docCache := cache.NewLRU[string](cfg.DocCacheSize, cfg.DocCacheTTL)
	janitor := cache.NewJanitor()
	janitor.Register(docCache)
	janitor.Start(10 * time.Minute)
	defer janitor.Stop()

	fetcher := fetch.NewClient(cfg.FetchTimeout, docCache)
	assembler := services.NewAssembler(fetcher, cfg.ReceiptHost)

	// With a queue configured the worker binary owns processing; without
	// one, batches run inside this process.
	var (
		publisher apphttp.JobPublisher
		runner    apphttp.BatchRunner
	)
	if cfg.AMQPURL != "" {
		amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", "error", err)
			os.Exit(1)
		}
		defer amqpClient.Close()
		publisher = amqpClient
		logger.Info("Batch jobs will be queued", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
	} else {
		runner = worker.NewBatchWorker(repo, assembler, nil, cfg.TopLimit)
		logger.Info("No AMQP URL configured, processing batches in-process")
	}

	srv := apphttp.NewServer(apphttp.ServerConfig{
		Addr:           ":" + cfg.Port,
		TopLimit:       cfg.TopLimit,
		ReportCacheTTL: cfg.ReportCacheTTL,
	}, repo, publisher, runner)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
		cancel()
	}()

	logger.Info("Starting estratto server", "port", cfg.Port, "receipt_host", cfg.ReceiptHost)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	<-ctx.Done()
	logger.Info("Server stopped gracefully")
}
