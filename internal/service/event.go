package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/streamroute/event-analytics-platform/internal/domain"
	"github.com/streamroute/event-analytics-platform/internal/dto"
	"github.com/streamroute/event-analytics-platform/internal/eventstore"
	"github.com/streamroute/event-analytics-platform/internal/metastore"
	"github.com/streamroute/event-analytics-platform/internal/repository"
	"github.com/streamroute/event-analytics-platform/internal/schema"
)

// timeField is the reserved property carrying the event occurrence time in
// epoch milliseconds.
const timeField = "_time"

// EventService represents event service
type EventService struct {
	store      eventstore.EventStore
	metastore  metastore.Metastore
	repository repository.EventRepository
	log        *zap.Logger
}

// NewEventService creates a new event service
func NewEventService(store eventstore.EventStore, meta metastore.Metastore, repo repository.EventRepository, log *zap.Logger) *EventService {
	return &EventService{
		store:      store,
		metastore:  meta,
		repository: repo,
		log:        log,
	}
}

// buildEvent resolves the collection schema and binds the request properties
// to a typed record
func (s *EventService) buildEvent(ctx context.Context, project, collection string, properties map[string]interface{}) (*domain.Event, error) {
	fields, err := s.metastore.GetCollection(ctx, project, collection)
	if err != nil {
		return nil, err
	}

	record := schema.NewRecord(fields)
	for name, value := range properties {
		if err := record.Set(name, value); err != nil {
			return nil, fmt.Errorf("invalid property in %s.%s: %w", project, collection, err)
		}
	}

	if err := validateEventTime(record); err != nil {
		s.log.Warn("Timestamp validation failed: future timestamp",
			zap.String("project", project),
			zap.String("collection", collection),
			zap.Error(err))
		return nil, err
	}

	return &domain.Event{
		Project:    project,
		Collection: collection,
		Properties: record,
	}, nil
}

// validateEventTime rejects events whose reserved _time property lies in the
// future. A one second allowance covers clock skew.
func validateEventTime(record *schema.Record) error {
	v, ok := record.Get(timeField).(int64)
	if !ok {
		return nil
	}
	limit := time.Now().Add(1 * time.Second).UnixMilli()
	if v > limit {
		return fmt.Errorf("timestamp cannot be in the future: %d > %d", v, limit)
	}
	return nil
}

// ProcessEvent processes a single event
func (s *EventService) ProcessEvent(ctx context.Context, req *dto.StoreEventRequest) error {
	event, err := s.buildEvent(ctx, req.Project, req.Collection, req.Properties)
	if err != nil {
		return err
	}

	if err := s.store.Store(ctx, event); err != nil {
		return fmt.Errorf("failed to store event: %w", err)
	}

	return nil
}

// ProcessBatchEvents validates and stores multiple events. The response
// lists the positions of events that were not delivered and must be
// resubmitted by the caller.
func (s *EventService) ProcessBatchEvents(ctx context.Context, req *dto.StoreEventsBatchRequest) (*dto.StoreEventsBatchResponse, error) {
	events := make([]*domain.Event, len(req.Events))
	for i, e := range req.Events {
		event, err := s.buildEvent(ctx, e.Project, e.Collection, e.Properties)
		if err != nil {
			return nil, fmt.Errorf("event %d: %w", i, err)
		}
		events[i] = event
	}

	failed, err := s.store.StoreBatch(ctx, events)
	if err != nil {
		return nil, fmt.Errorf("failed to store batch: %w", err)
	}

	if len(failed) > 0 {
		s.log.Warn("Batch partially delivered",
			zap.Int("event_count", len(events)),
			zap.Int("failed_count", len(failed)))
	}

	return &dto.StoreEventsBatchResponse{
		Accepted: len(events) - len(failed),
		Failed:   failed,
		Status:   "accepted",
	}, nil
}

// ProcessBulkEvents stores a single-project backfill submission through the
// bulk upload path
func (s *EventService) ProcessBulkEvents(ctx context.Context, req *dto.StoreEventsBulkRequest) (*dto.StoreEventsBulkResponse, error) {
	events := make([]*domain.Event, len(req.Events))
	for i, e := range req.Events {
		event, err := s.buildEvent(ctx, req.Project, e.Collection, e.Properties)
		if err != nil {
			return nil, fmt.Errorf("event %d: %w", i, err)
		}
		events[i] = event
	}

	if err := s.store.StoreBulk(ctx, events); err != nil {
		return nil, fmt.Errorf("failed to store bulk events: %w", err)
	}

	return &dto.StoreEventsBulkResponse{
		Accepted: len(events),
		Status:   "accepted",
	}, nil
}

// CreateCollection validates and registers a collection schema
func (s *EventService) CreateCollection(ctx context.Context, req *dto.CreateCollectionRequest) error {
	fields := make([]schema.Field, len(req.Fields))
	seen := make(map[string]bool, len(req.Fields))

	for i, f := range req.Fields {
		fieldType := schema.FieldType(f.Type)
		switch fieldType {
		case schema.TypeString, schema.TypeLong, schema.TypeDouble, schema.TypeBoolean, schema.TypeTimestamp:
		default:
			return fmt.Errorf("field %q: unknown type %q", f.Name, f.Type)
		}

		if seen[f.Name] {
			return fmt.Errorf("field %q is declared more than once", f.Name)
		}
		seen[f.Name] = true

		fields[i] = schema.Field{Name: f.Name, Type: fieldType}
	}

	// The reserved properties have fixed types
	for _, f := range fields {
		if f.Name == timeField && f.Type != schema.TypeTimestamp {
			return fmt.Errorf("reserved field %q must have type %q", timeField, schema.TypeTimestamp)
		}
	}

	if err := s.metastore.CreateCollection(ctx, req.Project, req.Collection, fields); err != nil {
		return fmt.Errorf("failed to register collection: %w", err)
	}

	return nil
}

// GetMetrics retrieves aggregated metrics from the repository
func (s *EventService) GetMetrics(ctx context.Context, req *dto.GetMetricsRequest) (*dto.GetMetricsResponse, error) {
	// Validate time range
	if req.From > req.To {
		s.log.Warn("Invalid time range for metrics",
			zap.Int64("from", req.From),
			zap.Int64("to", req.To),
			zap.String("project", req.Project),
			zap.String("collection", req.Collection))
		return nil, fmt.Errorf("from timestamp must be less than or equal to to timestamp")
	}

	// Validate group_by parameter
	if req.GroupBy != "" {
		validGroupBy := map[string]bool{"collection": true, "hour": true, "day": true}
		if !validGroupBy[req.GroupBy] {
			s.log.Warn("Invalid group_by value",
				zap.String("group_by", req.GroupBy))
			return nil, fmt.Errorf("invalid group_by value: %s (supported: collection, hour, day)", req.GroupBy)
		}

		// Guard against unbounded result sets for hourly grouping
		rangeSeconds := req.To - req.From
		if req.GroupBy == "hour" && rangeSeconds > 90*24*3600 {
			s.log.Warn("Large time range for hourly grouping",
				zap.Int64("range_days", rangeSeconds/(24*3600)))
			return nil, fmt.Errorf("time range too large for hourly grouping (max 90 days, got %d days)", rangeSeconds/(24*3600))
		}
	}

	query := repository.MetricsQuery{
		Project:    req.Project,
		Collection: req.Collection,
		From:       req.From,
		To:         req.To,
		GroupBy:    req.GroupBy,
	}

	s.log.Info("Querying metrics",
		zap.String("project", req.Project),
		zap.String("collection", req.Collection),
		zap.Int64("from", req.From),
		zap.Int64("to", req.To),
		zap.String("group_by", req.GroupBy))

	result, err := s.repository.GetMetrics(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to get metrics from repository: %w", err)
	}

	response := &dto.GetMetricsResponse{
		Project:     req.Project,
		Collection:  req.Collection,
		From:        req.From,
		To:          req.To,
		TotalCount:  result.TotalCount,
		UniqueCount: result.UniqueCount,
		GroupBy:     req.GroupBy,
		Groups:      make([]dto.MetricsGroupData, 0, len(result.Groups)),
	}

	for _, group := range result.Groups {
		response.Groups = append(response.Groups, dto.MetricsGroupData{
			GroupValue: group.GroupValue,
			TotalCount: group.TotalCount,
		})
	}

	return response, nil
}
