package main

import (
	"context"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	s3store "github.com/streamroute/event-analytics-platform/internal/bulkstore/s3"
	"github.com/streamroute/event-analytics-platform/internal/config"
	kinesisstore "github.com/streamroute/event-analytics-platform/internal/eventstore/kinesis"
	"github.com/streamroute/event-analytics-platform/internal/handler"
	"github.com/streamroute/event-analytics-platform/internal/logger"
	"github.com/streamroute/event-analytics-platform/internal/metastore/postgres"
	"github.com/streamroute/event-analytics-platform/internal/repository/clickhouse"
	"github.com/streamroute/event-analytics-platform/internal/service"
	kinesisstream "github.com/streamroute/event-analytics-platform/internal/stream/kinesis"
)

func main() {
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

	log.Info("Starting API service",
		zap.String("environment", cfg.Service.Environment),
		zap.String("port", cfg.Service.APIPort))

	ctx := context.Background()

	// Initialize Kinesis client
	streamClient, err := kinesisstream.NewClient(ctx, cfg.Kinesis, log)
	if err != nil {
		log.Fatal("Failed to create Kinesis client", zap.Error(err))
	}

	// Initialize S3 bulk store
	bulkStore, err := s3store.NewBulkEventStore(ctx, cfg.S3, log)
	if err != nil {
		log.Fatal("Failed to create S3 bulk store", zap.Error(err))
	}

	// Initialize event store
	store := kinesisstore.NewEventStore(streamClient, bulkStore, log)

	// Initialize metastore
	meta, err := postgres.New(ctx, cfg.Metastore.DatabaseURL, log)
	if err != nil {
		log.Fatal("Failed to create metastore", zap.Error(err))
	}
	defer meta.Close()

	if err := meta.InitSchema(ctx); err != nil {
		log.Fatal("Failed to initialize metastore schema", zap.Error(err))
	}

	// Initialize ClickHouse client
	clickhouseClient, err := clickhouse.NewClient(ctx, &cfg.ClickHouse, log)
	if err != nil {
		log.Fatal("Failed to create ClickHouse client", zap.Error(err))
	}
	defer func(clickhouseClient *clickhouse.Client) {
		if err := clickhouseClient.Close(); err != nil {
			log.Error("Failed to close ClickHouse client", zap.Error(err))
		}
	}(clickhouseClient)

	// Initialize repository
	repo := clickhouse.NewRepository(clickhouseClient, log)

	// Initialize event service
	eventService := service.NewEventService(store, meta, repo, log)

	// Initialize handler
	h := handler.NewHandler(eventService, log)

	addr := fmt.Sprintf(":%s", cfg.Service.APIPort)
	log.Info("API server starting", zap.String("address", addr))

	if err := http.ListenAndServe(addr, h); err != nil {
		log.Fatal("Failed to start API server", zap.Error(err))
	}
}
