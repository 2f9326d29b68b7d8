package eventstore

import (
	"context"
	"fmt"

	"github.com/streamroute/event-analytics-platform/internal/domain"
)

// SuccessfulBatch is the sentinel StoreBatch returns when every record was
// delivered. It is the nil slice; failure lists are always non-empty, so
// nil is never ambiguous with "empty failure list".
var SuccessfulBatch []int

// EventStore defines the ingestion interface to the streaming store.
type EventStore interface {
	// Store delivers a single event. When the destination stream is
	// missing it is provisioned and the submission retried exactly once;
	// any other failure is fatal.
	Store(ctx context.Context, event *domain.Event) error

	// StoreBatch delivers a list of events of any size, chunked into
	// bounded sub-batches internally. It returns SuccessfulBatch, or the
	// positions (in the input list) of the records that must be
	// resubmitted by the caller.
	StoreBatch(ctx context.Context, events []*domain.Event) ([]int, error)

	// StoreBulk delivers a backfill-style submission through the bulk
	// upload path. All events must belong to one project; delivery is
	// all-or-nothing.
	StoreBulk(ctx context.Context, events []*domain.Event) error

	// Commit acknowledges a (project, collection) pair. The streaming
	// transport has no explicit commit phase, so this completes
	// immediately.
	Commit(ctx context.Context, project, collection string) error
}

// TransportError is a fatal, non-retriable transport failure: provisioning
// the destination failed, the retried submission failed again, or the
// transport reported an error other than a missing destination. Callers
// must not retry automatically.
type TransportError struct {
	Op     string
	Stream string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("couldn't %s on stream %s: %v", e.Op, e.Stream, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}
