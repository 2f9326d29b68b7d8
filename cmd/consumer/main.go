package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	json "github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/streamroute/event-analytics-platform/internal/config"
	"github.com/streamroute/event-analytics-platform/internal/consumer"
	"github.com/streamroute/event-analytics-platform/internal/logger"
	"github.com/streamroute/event-analytics-platform/internal/metastore/postgres"
	"github.com/streamroute/event-analytics-platform/internal/repository/clickhouse"
	kinesisstream "github.com/streamroute/event-analytics-platform/internal/stream/kinesis"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	// Initialize logger
	log, err := logger.New(cfg.Service.Environment)
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer func(log *zap.Logger) {
		err := log.Sync()
		if err != nil {
			log.Error("Failed to sync logger", zap.Error(err))
		}
	}(log)

	log.Info("Starting consumer service",
		zap.String("environment", cfg.Service.Environment))

	ctx := context.Background()

	// Initialize ClickHouse client
	chClient, err := clickhouse.NewClient(ctx, &cfg.ClickHouse, log)
	if err != nil {
		log.Fatal("Failed to create ClickHouse client", zap.Error(err))
	}
	defer func() {
		if err := chClient.Close(); err != nil {
			log.Error("Failed to close ClickHouse client", zap.Error(err))
		}
	}()

	// Initialize repository
	repo := clickhouse.NewRepository(chClient, log)

	// Initialize schema (create tables if not exist)
	if err := repo.InitSchema(ctx); err != nil {
		log.Fatal("Failed to initialize schema", zap.Error(err))
	}
	log.Info("Database schema initialized")

	// Initialize metastore for schema resolution
	meta, err := postgres.New(ctx, cfg.Metastore.DatabaseURL, log)
	if err != nil {
		log.Fatal("Failed to create metastore", zap.Error(err))
	}
	defer meta.Close()

	// Initialize Kinesis client
	streamClient, err := kinesisstream.NewClient(ctx, cfg.Kinesis, log)
	if err != nil {
		log.Fatal("Failed to create Kinesis client", zap.Error(err))
	}

	// Initialize consumer
	c := consumer.NewConsumer(cfg, streamClient, meta, repo, log)

	// Start health check endpoint
	go func() {
		http.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
			if err := repo.Ping(r.Context()); err != nil {
				log.Warn("Health check failed", zap.Error(err))
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}

			w.Header().Set("Content-Type", "application/json")
			body, err := json.Marshal(map[string]any{
				"status":      "ok",
				"checkpoints": c.Checkpoints(),
			})
			if err != nil {
				log.Error("Failed to encode health response", zap.Error(err))
				w.WriteHeader(http.StatusInternalServerError)
				return
			}
			if _, err := w.Write(body); err != nil {
				log.Error("Failed to write health response", zap.Error(err))
			}
		})

		addr := ":" + cfg.Consumer.HealthCheckPort
		log.Info("Health check server starting", zap.String("address", addr))
		if err := http.ListenAndServe(addr, nil); err != nil {
			log.Error("Health check server error", zap.Error(err))
		}
	}()

	// Start consumer
	consumerCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	log.Info("Consumer starting")

	go func() {
		if err := c.Start(consumerCtx); err != nil {
			log.Fatal("Consumer error", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	log.Info("Shutting down consumer gracefully")
	cancel()
}
