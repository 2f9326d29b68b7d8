package metastore

import (
	"context"
	"errors"

	"github.com/streamroute/event-analytics-platform/internal/schema"
)

// ErrCollectionNotFound is returned when a (project, collection) pair has
// no registered schema.
var ErrCollectionNotFound = errors.New("collection not found")

// Metastore defines the interface for the collection schema registry.
type Metastore interface {
	// GetCollection returns the declared fields of a collection.
	GetCollection(ctx context.Context, project, collection string) ([]schema.Field, error)

	// CreateCollection registers a collection schema, replacing any
	// previous registration.
	CreateCollection(ctx context.Context, project, collection string, fields []schema.Field) error

	// Ping checks if the registry is reachable.
	Ping(ctx context.Context) error

	// Close releases the registry's resources.
	Close()
}
