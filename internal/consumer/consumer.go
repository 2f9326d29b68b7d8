package consumer

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/streamroute/event-analytics-platform/internal/config"
	"github.com/streamroute/event-analytics-platform/internal/repository"
	"github.com/streamroute/event-analytics-platform/internal/stream"
)

// Consumer orchestrates a pipeline of stages to process stream records
type Consumer struct {
	receiver    *Receiver
	decoder     *DecoderStage
	batchWriter *BatchWriter
	tracker     *CheckpointTracker
}

// NewConsumer creates a new consumer with a pipeline architecture
func NewConsumer(cfg *config.Config, streamConsumer stream.Consumer, resolver SchemaResolver, repo repository.EventRepository, log *zap.Logger) *Consumer {
	tracker := NewCheckpointTracker()

	receiver := NewReceiver(streamConsumer, ReceiverConfig{
		PollInterval: time.Duration(cfg.Consumer.PollIntervalMs) * time.Millisecond,
		IteratorType: cfg.Consumer.IteratorType,
		RecordLimit:  1000,
		BufferSize:   100,
	}, log)

	decoder := NewDecoderStage(resolver, tracker, log)

	batchWriter := NewBatchWriter(repo, BatchWriterConfig{
		MaxBatchSize: cfg.Consumer.BatchSizeMax,
		FlushTimeout: time.Duration(cfg.Consumer.BatchTimeoutSec) * time.Second,
	}, log)

	return &Consumer{
		receiver:    receiver,
		decoder:     decoder,
		batchWriter: batchWriter,
		tracker:     tracker,
	}
}

// Checkpoints exposes the per-shard checkpoints for health reporting
func (c *Consumer) Checkpoints() map[string]string {
	return c.tracker.Snapshot()
}

// Start begins the consumer pipeline
func (c *Consumer) Start(ctx context.Context) error {
	recordChan := make(chan ShardRecord, 100)
	envelopeChan := make(chan *Envelope, 100)

	var wg sync.WaitGroup

	// Start all pipeline stages
	wg.Add(3)

	// Stage 1: Receive records from the stream shards
	go func() {
		defer wg.Done()
		c.receiver.Start(ctx, recordChan)
	}()

	// Stage 2: Decode records into envelopes
	go func() {
		defer wg.Done()
		c.decoder.Start(ctx, recordChan, envelopeChan)
	}()

	// Stage 3: Batch and write to the repository
	go func() {
		defer wg.Done()
		c.batchWriter.Start(ctx, envelopeChan)
	}()

	wg.Wait()
	return nil
}
