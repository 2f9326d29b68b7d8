package service

import (
	"context"

	"github.com/streamroute/event-analytics-platform/internal/dto"
)

// EventServicer defines the interface for event service operations
type EventServicer interface {
	ProcessEvent(ctx context.Context, req *dto.StoreEventRequest) error
	ProcessBatchEvents(ctx context.Context, req *dto.StoreEventsBatchRequest) (*dto.StoreEventsBatchResponse, error)
	ProcessBulkEvents(ctx context.Context, req *dto.StoreEventsBulkRequest) (*dto.StoreEventsBulkResponse, error)
	CreateCollection(ctx context.Context, req *dto.CreateCollectionRequest) error
	GetMetrics(ctx context.Context, req *dto.GetMetricsRequest) (*dto.GetMetricsResponse, error)
}
