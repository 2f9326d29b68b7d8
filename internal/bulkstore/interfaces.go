package bulkstore

import (
	"context"

	"github.com/streamroute/event-analytics-platform/internal/domain"
)

// BulkStore defines the interface for backfill-style uploads that bypass
// the streaming transport. Upload takes the whole list as one unit;
// failure is all-or-nothing and propagated as-is.
type BulkStore interface {
	Upload(ctx context.Context, project string, events []*domain.Event) error
}
