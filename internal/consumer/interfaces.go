package consumer

import (
	"context"

	"github.com/streamroute/event-analytics-platform/internal/schema"
)

// SchemaResolver resolves the declared field schema of a collection. The
// decoder stage needs it to turn raw record bytes back into typed events.
type SchemaResolver interface {
	GetCollection(ctx context.Context, project, collection string) ([]schema.Field, error)
}
