package kinesis

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awskinesis "github.com/aws/aws-sdk-go-v2/service/kinesis"
	"github.com/aws/aws-sdk-go-v2/service/kinesis/types"
	"go.uber.org/zap"

	"github.com/streamroute/event-analytics-platform/internal/bulkstore"
	"github.com/streamroute/event-analytics-platform/internal/domain"
	"github.com/streamroute/event-analytics-platform/internal/encoding"
	"github.com/streamroute/event-analytics-platform/internal/eventstore"
	"github.com/streamroute/event-analytics-platform/internal/stream"
)

const (
	// batchSize is the maximum number of records in one PutRecords call.
	batchSize = 500

	// minimumShards is the shard count used when the destination stream
	// has to be auto-provisioned.
	minimumShards = 1
)

// EventStore delivers events to a Kinesis stream. Small submissions go out
// as single records, batches as chunked PutRecords calls with per-record
// failure reporting, and backfills through the S3 bulk store.
type EventStore struct {
	producer stream.Producer
	bulk     bulkstore.BulkStore
	arena    *encoding.Arena
	log      *zap.Logger
}

// NewEventStore creates a Kinesis-backed event store.
func NewEventStore(producer stream.Producer, bulk bulkstore.BulkStore, log *zap.Logger) *EventStore {
	return &EventStore{
		producer: producer,
		bulk:     bulk,
		arena:    encoding.NewArena(),
		log:      log,
	}
}

// Store delivers a single event, provisioning the stream once if missing.
func (s *EventStore) Store(ctx context.Context, event *domain.Event) error {
	buf := s.arena.Acquire()
	defer s.arena.Release(buf)

	start, end, err := encoding.EncodeRecord(buf, event)
	if err != nil {
		return err
	}

	// Copy out of the shared buffer before it can wrap.
	data := make([]byte, end-start)
	copy(data, buf.Range(start, end))

	return s.withStreamRecovery(ctx, "put record", func() error {
		_, err := s.producer.PutRecord(ctx, &awskinesis.PutRecordInput{
			StreamName:   aws.String(s.producer.StreamName()),
			Data:         data,
			PartitionKey: aws.String(event.PartitionKey()),
		})
		return err
	})
}

// StoreBatch delivers an arbitrarily sized list of events in sequential
// chunks of at most batchSize records. Failure indices reported by each
// chunk are translated back into the coordinate space of the input list.
func (s *EventStore) StoreBatch(ctx context.Context, events []*domain.Event) ([]int, error) {
	if len(events) == 0 {
		return eventstore.SuccessfulBatch, nil
	}

	buf := s.arena.Acquire()
	defer s.arena.Release(buf)

	if len(events) <= batchSize {
		return s.storeBatchInline(ctx, events, 0, len(events), buf, map[string]int{})
	}

	var failed []int
	cursor := 0

	for cursor < len(events) {
		loopSize := len(events) - cursor
		if loopSize > batchSize {
			loopSize = batchSize
		}

		indexes, err := s.storeBatchInline(ctx, events, cursor, loopSize, buf, map[string]int{})
		if err != nil {
			return nil, err
		}
		for _, index := range indexes {
			failed = append(failed, index+cursor)
		}
		cursor += loopSize
	}

	if failed == nil {
		return eventstore.SuccessfulBatch, nil
	}
	return failed, nil
}

// storeBatchInline submits exactly one chunk, described by (offset, limit)
// into events, and classifies the response. Returned indices are
// chunk-local. errorTally accumulates distinct failure messages for the
// warn log; it never affects the returned indices.
func (s *EventStore) storeBatchInline(ctx context.Context, events []*domain.Event, offset, limit int, buf *encoding.Buffer, errorTally map[string]int) ([]int, error) {
	records := make([]types.PutRecordsRequestEntry, limit)

	for i := 0; i < limit; i++ {
		event := events[offset+i]

		start, end, err := encoding.EncodeRecord(buf, event)
		if err != nil {
			return nil, err
		}

		// Each range must be consumed before the next encode call wraps
		// the buffer, so copy it into the outgoing record immediately.
		data := make([]byte, end-start)
		copy(data, buf.Range(start, end))

		records[i] = types.PutRecordsRequestEntry{
			Data:         data,
			PartitionKey: aws.String(event.PartitionKey()),
		}
	}

	var result *awskinesis.PutRecordsOutput
	err := s.withStreamRecovery(ctx, "put records", func() error {
		var err error
		result, err = s.producer.PutRecords(ctx, &awskinesis.PutRecordsInput{
			StreamName: aws.String(s.producer.StreamName()),
			Records:    records,
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	failedCount := int(aws.ToInt32(result.FailedRecordCount))
	if failedCount == 0 {
		return eventstore.SuccessfulBatch, nil
	}

	failed := make([]int, 0, failedCount)
	for i, record := range result.Records {
		if record.ErrorCode != nil {
			failed = append(failed, i)
			errorTally[aws.ToString(record.ErrorMessage)]++
		}
	}

	s.log.Warn("Partial failure in stream put records",
		zap.Int("failed_count", failedCount),
		zap.Any("errors", errorTally))

	return failed, nil
}

// StoreBulk hands the whole list to the bulk upload path as one unit.
// All events must share one project; delivery is all-or-nothing.
func (s *EventStore) StoreBulk(ctx context.Context, events []*domain.Event) error {
	if len(events) == 0 {
		return fmt.Errorf("bulk store requires at least one event")
	}

	project := events[0].Project
	for _, event := range events[1:] {
		if event.Project != project {
			return fmt.Errorf("bulk store requires a single project, got %q and %q", project, event.Project)
		}
	}

	return s.bulk.Upload(ctx, project, events)
}

// Commit completes immediately: the streaming transport has no commit phase.
func (s *EventStore) Commit(ctx context.Context, project, collection string) error {
	return nil
}

// withStreamRecovery runs one submission attempt. When the transport
// reports that the destination stream does not exist, the stream is
// provisioned and the original submission re-issued exactly once; any
// further failure is fatal. This bounded loop replaces retrying by
// re-invocation so repeated failures cannot recurse.
func (s *EventStore) withStreamRecovery(ctx context.Context, op string, submit func() error) error {
	err := submit()
	if err == nil {
		return nil
	}

	var notFound *types.ResourceNotFoundException
	if !errors.As(err, &notFound) {
		return &eventstore.TransportError{Op: op, Stream: s.producer.StreamName(), Err: err}
	}

	s.log.Warn("Stream does not exist, provisioning it",
		zap.String("stream", s.producer.StreamName()))

	if provisionErr := s.producer.CreateStreamAndWait(ctx, minimumShards); provisionErr != nil {
		return &eventstore.TransportError{
			Op:     op,
			Stream: s.producer.StreamName(),
			Err:    fmt.Errorf("provisioning failed: %w (after: %v)", provisionErr, err),
		}
	}

	if err := submit(); err != nil {
		return &eventstore.TransportError{Op: op, Stream: s.producer.StreamName(), Err: err}
	}
	return nil
}
