package consumer

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"go.uber.org/zap"

	"github.com/streamroute/event-analytics-platform/internal/domain"
	"github.com/streamroute/event-analytics-platform/internal/encoding"
	"github.com/streamroute/event-analytics-platform/internal/schema"
)

// DecoderStage turns raw stream records into event envelopes. The partition
// key carries the "project|collection" pair; the record bytes are decoded
// against the collection schema resolved from the registry.
type DecoderStage struct {
	resolver SchemaResolver
	tracker  *CheckpointTracker
	log      *zap.Logger

	mu    sync.RWMutex
	cache map[string][]schema.Field
}

// NewDecoderStage creates a new decoder stage
func NewDecoderStage(resolver SchemaResolver, tracker *CheckpointTracker, log *zap.Logger) *DecoderStage {
	return &DecoderStage{
		resolver: resolver,
		tracker:  tracker,
		log:      log,
		cache:    make(map[string][]schema.Field),
	}
}

// Start decodes incoming records and sends envelopes to the output channel
func (d *DecoderStage) Start(ctx context.Context, in <-chan ShardRecord, out chan<- *Envelope) {
	defer close(out)

	for {
		select {
		case <-ctx.Done():
			d.log.Info("Decoder stage shutting down")
			return

		case sr, ok := <-in:
			if !ok {
				d.log.Info("Decoder stage input channel closed")
				return
			}

			envelope, err := d.decode(ctx, sr)
			if err != nil {
				// Undecodable records cannot be retried; skip them
				d.log.Warn("Skipping undecodable record",
					zap.String("shard_id", sr.ShardID),
					zap.String("sequence_number", aws.ToString(sr.Record.SequenceNumber)),
					zap.Error(err))
				continue
			}

			select {
			case <-ctx.Done():
				d.log.Info("Decoder stage shutting down while sending envelope")
				return
			case out <- envelope:
			}
		}
	}
}

// decode resolves the collection schema and decodes the record payload
func (d *DecoderStage) decode(ctx context.Context, sr ShardRecord) (*Envelope, error) {
	partitionKey := aws.ToString(sr.Record.PartitionKey)
	project, collection, err := splitPartitionKey(partitionKey)
	if err != nil {
		return nil, err
	}

	fields, err := d.collectionFields(ctx, project, collection)
	if err != nil {
		return nil, err
	}

	properties, err := encoding.DecodeRecord(sr.Record.Data, fields)
	if err != nil {
		return nil, err
	}

	event := &domain.Event{
		Project:    project,
		Collection: collection,
		Properties: properties,
	}

	shardID := sr.ShardID
	sequenceNumber := aws.ToString(sr.Record.SequenceNumber)

	ack := func(context.Context) error {
		d.tracker.Set(shardID, sequenceNumber)
		return nil
	}
	// Stream records are not redelivered on nack; the checkpoint simply
	// does not advance, so a restart replays them.
	nack := func(context.Context) error {
		return nil
	}

	return NewEnvelope(event, ack, nack), nil
}

// collectionFields resolves the schema of a collection, caching the result
func (d *DecoderStage) collectionFields(ctx context.Context, project, collection string) ([]schema.Field, error) {
	key := project + "|" + collection

	d.mu.RLock()
	fields, ok := d.cache[key]
	d.mu.RUnlock()
	if ok {
		return fields, nil
	}

	fields, err := d.resolver.GetCollection(ctx, project, collection)
	if err != nil {
		return nil, err
	}

	d.mu.Lock()
	d.cache[key] = fields
	d.mu.Unlock()

	return fields, nil
}

// splitPartitionKey splits a "project|collection" partition key
func splitPartitionKey(key string) (project, collection string, err error) {
	parts := strings.SplitN(key, "|", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("malformed partition key: %q", key)
	}
	return parts[0], parts[1], nil
}
