package clickhouse

import (
	"context"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	json "github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/streamroute/event-analytics-platform/internal/domain"
	"github.com/streamroute/event-analytics-platform/internal/repository"
	"github.com/streamroute/event-analytics-platform/internal/schema"
)

// timeField and userField are the reserved property names carrying the
// event occurrence time and the acting user, when the collection declares
// them.
const (
	timeField = "_time"
	userField = "_user"
)

// Repository implements EventRepository for ClickHouse
type Repository struct {
	client *Client
	log    *zap.Logger
}

// NewRepository creates a new ClickHouse repository
func NewRepository(client *Client, log *zap.Logger) *Repository {
	return &Repository{
		client: client,
		log:    log,
	}
}

// InitSchema initializes the ClickHouse events table
func (r *Repository) InitSchema(ctx context.Context) error {
	query := `
	CREATE TABLE IF NOT EXISTS events (
		project LowCardinality(String),
		collection LowCardinality(String),
		event_time DateTime64(3),
		properties String,
		inserted_at DateTime64(3) DEFAULT now64(3)
	) ENGINE = MergeTree
	ORDER BY (project, collection, event_time)
	PARTITION BY toYYYYMM(event_time)
	SETTINGS index_granularity = 8192
	`

	if err := r.client.Conn().Exec(ctx, query); err != nil {
		return fmt.Errorf("failed to create events table: %w", err)
	}

	r.log.Info("ClickHouse schema initialized successfully")
	return nil
}

// InsertBatch inserts a batch of decoded events into ClickHouse
func (r *Repository) InsertBatch(ctx context.Context, events []*domain.Event) (int, error) {
	if len(events) == 0 {
		return 0, nil
	}

	batch, err := r.client.Conn().PrepareBatch(ctx, "INSERT INTO events (project, collection, event_time, properties)")
	if err != nil {
		return 0, fmt.Errorf("failed to prepare batch: %w", err)
	}

	insertedCount := 0
	for _, event := range events {
		propertiesJSON, err := propertiesToJSON(event.Properties)
		if err != nil {
			return 0, fmt.Errorf("failed to serialize properties of %s.%s: %w",
				event.Project, event.Collection, err)
		}

		err = batch.Append(
			event.Project,
			event.Collection,
			eventTime(event.Properties),
			propertiesJSON,
		)
		if err != nil {
			return 0, fmt.Errorf("failed to append event to batch: %w", err)
		}
		insertedCount++
	}

	if err := batch.Send(); err != nil {
		return 0, fmt.Errorf("failed to send batch: %w", err)
	}

	return insertedCount, nil
}

// eventTime extracts the reserved _time property, falling back to the
// insert time when the collection does not declare it.
func eventTime(record *schema.Record) time.Time {
	if record != nil {
		if v, ok := record.Get(timeField).(int64); ok {
			return time.UnixMilli(v).UTC()
		}
	}
	return time.Now().UTC()
}

func propertiesToJSON(record *schema.Record) (string, error) {
	if record == nil {
		return "{}", nil
	}

	values := make(map[string]any, len(record.Fields))
	for i, field := range record.Fields {
		values[field.Name] = record.Values[i]
	}

	raw, err := json.Marshal(values)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

// Ping checks if the ClickHouse connection is alive
func (r *Repository) Ping(ctx context.Context) error {
	return r.client.Conn().Ping(ctx)
}

// Close closes the ClickHouse connection
func (r *Repository) Close() error {
	return r.client.Close()
}

// GetMetrics retrieves aggregated realtime metrics from ClickHouse
func (r *Repository) GetMetrics(ctx context.Context, query repository.MetricsQuery) (*repository.MetricsResult, error) {
	result := &repository.MetricsResult{
		Groups: []repository.MetricsGroupResult{},
	}

	whereClause := "WHERE project = ? AND collection = ? AND event_time >= fromUnixTimestamp(?) AND event_time <= fromUnixTimestamp(?)"
	args := []interface{}{query.Project, query.Collection, query.From, query.To}

	overallQuery := fmt.Sprintf(`
		SELECT
			count() as total_count,
			uniq(JSONExtractString(properties, '%s')) as unique_count
		FROM events
		%s
	`, userField, whereClause)

	row := r.client.Conn().QueryRow(ctx, overallQuery, args...)
	if err := row.Scan(&result.TotalCount, &result.UniqueCount); err != nil {
		return nil, fmt.Errorf("failed to query overall metrics: %w", err)
	}

	if query.GroupBy != "" {
		validGroupBy := map[string]bool{"collection": true, "hour": true, "day": true}
		if !validGroupBy[query.GroupBy] {
			return nil, fmt.Errorf("unsupported group_by value: %s (supported: collection, hour, day)", query.GroupBy)
		}

		var selectField string
		var groupByClause string
		var orderBy string

		switch query.GroupBy {
		case "collection":
			selectField = "collection"
			groupByClause = "GROUP BY collection"
			orderBy = "ORDER BY total_count DESC"
		case "hour":
			selectField = "formatDateTime(toStartOfHour(event_time), '%Y-%m-%d %H:00:00')"
			groupByClause = "GROUP BY toStartOfHour(event_time)"
			orderBy = "ORDER BY group_value ASC"
		case "day":
			selectField = "formatDateTime(toStartOfDay(event_time), '%Y-%m-%d')"
			groupByClause = "GROUP BY toStartOfDay(event_time)"
			orderBy = "ORDER BY group_value ASC"
		}

		groupedQuery := fmt.Sprintf(`
			SELECT
				%s as group_value,
				count() as total_count
			FROM events
			%s
			%s
			%s
		`, selectField, whereClause, groupByClause, orderBy)

		rows, err := r.client.Conn().Query(ctx, groupedQuery, args...)
		if err != nil {
			return nil, fmt.Errorf("failed to query grouped metrics: %w", err)
		}
		defer func(rows driver.Rows) {
			if err := rows.Close(); err != nil {
				r.log.Error("Failed to close grouped metrics rows", zap.Error(err))
			}
		}(rows)

		for rows.Next() {
			var group repository.MetricsGroupResult
			if err := rows.Scan(&group.GroupValue, &group.TotalCount); err != nil {
				return nil, fmt.Errorf("failed to scan grouped metrics row: %w", err)
			}
			result.Groups = append(result.Groups, group)
		}

		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("error iterating grouped metrics rows: %w", err)
		}
	}

	return result, nil
}
