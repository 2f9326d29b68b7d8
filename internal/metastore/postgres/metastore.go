package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	json "github.com/goccy/go-json"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/streamroute/event-analytics-platform/internal/metastore"
	"github.com/streamroute/event-analytics-platform/internal/schema"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS collections (
	project    TEXT NOT NULL,
	collection TEXT NOT NULL,
	fields     JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (project, collection)
)`

// Metastore is the Postgres-backed collection schema registry.
type Metastore struct {
	pool *pgxpool.Pool
	log  *zap.Logger
}

// New creates a connection pool and fails fast if the database is
// unreachable.
func New(ctx context.Context, databaseURL string, log *zap.Logger) (*Metastore, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create metastore pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping metastore: %w", err)
	}

	log.Info("Metastore connection established")

	return &Metastore{pool: pool, log: log}, nil
}

// InitSchema applies the registry schema. Safe to run multiple times.
func (m *Metastore) InitSchema(ctx context.Context) error {
	if _, err := m.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to create collections table: %w", err)
	}
	return nil
}

// GetCollection returns the declared fields of a collection.
func (m *Metastore) GetCollection(ctx context.Context, project, collection string) ([]schema.Field, error) {
	var raw []byte
	err := m.pool.QueryRow(ctx, `
		SELECT fields FROM collections WHERE project = $1 AND collection = $2
	`, project, collection).Scan(&raw)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s.%s", metastore.ErrCollectionNotFound, project, collection)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query collection %s.%s: %w", project, collection, err)
	}

	var fields []schema.Field
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("failed to decode fields of %s.%s: %w", project, collection, err)
	}
	return fields, nil
}

// CreateCollection registers a collection schema, replacing any previous
// registration.
func (m *Metastore) CreateCollection(ctx context.Context, project, collection string, fields []schema.Field) error {
	raw, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("failed to encode fields: %w", err)
	}

	_, err = m.pool.Exec(ctx, `
		INSERT INTO collections (project, collection, fields)
		VALUES ($1, $2, $3)
		ON CONFLICT (project, collection) DO UPDATE SET fields = EXCLUDED.fields
	`, project, collection, raw)
	if err != nil {
		return fmt.Errorf("failed to register collection %s.%s: %w", project, collection, err)
	}

	m.log.Info("Collection registered",
		zap.String("project", project),
		zap.String("collection", collection),
		zap.Int("field_count", len(fields)))

	return nil
}

// Ping checks if the registry is reachable.
func (m *Metastore) Ping(ctx context.Context) error {
	return m.pool.Ping(ctx)
}

// Close shuts down the connection pool.
func (m *Metastore) Close() {
	m.pool.Close()
}
