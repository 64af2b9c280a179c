package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"pdfrag/backend/go/internal/config"
	"pdfrag/backend/go/internal/rag_service/app"
	"pdfrag/backend/go/pkg/logger"
)

// index_worker consumes indexing tasks from Kafka and writes the embeddings into the vector index.
// It shares the stores of rag_service, which then runs with queue.inProcessWorker=false.
func main() {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config/config.yaml"
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := run(ctx, configPath)
	stop()
	if err != nil {
		log.Printf("index_worker: %v", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, configPath string) error {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	if cfg.Queue.Backend != "kafka" {
		return fmt.Errorf("index_worker requires queue.backend=kafka, got %q", cfg.Queue.Backend)
	}

	logger.Init(logger.ParseLevel(cfg.Logger.Level))
	appLogger := logger.New("index_worker", "", "")

	rag, err := app.New(ctx, cfg, appLogger, app.Options{Consumer: true})
	if err != nil {
		app.LogError(appLogger, err, "failed to initialize RAG components")
		return err
	}
	defer rag.Close()

	if addr, err := rag.Kafka.ControllerAddress(); err == nil {
		appLogger.With("controller", addr).With("topic", cfg.Databases.Kafka.Topic).Info("Connected to Kafka")
	}

	if err := rag.Start(ctx); err != nil {
		app.LogError(appLogger, err, "failed to start consumer")
		return err
	}
	appLogger.Info("Index worker started")

	var done <-chan struct{}
	if d, ok := rag.Queue.(interface{ Done() <-chan struct{} }); ok {
		done = d.Done()
	}
	select {
	case <-ctx.Done():
	case <-done:
		appLogger.Warn("Consumer loop exited")
	}
	appLogger.Info("Index worker stopped")
	return nil
}
