package consumer

import (
	"context"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awskinesis "github.com/aws/aws-sdk-go-v2/service/kinesis"
	"github.com/aws/aws-sdk-go-v2/service/kinesis/types"
	"go.uber.org/zap"

	"github.com/streamroute/event-analytics-platform/internal/stream"
)

// ShardRecord pairs a stream record with the shard it was read from
type ShardRecord struct {
	ShardID string
	Record  types.Record
}

// ReceiverConfig configures the stream receiver
type ReceiverConfig struct {
	PollInterval time.Duration
	IteratorType string
	RecordLimit  int32
	BufferSize   int
}

// Receiver reads records from every shard of the stream
type Receiver struct {
	consumer stream.Consumer
	config   ReceiverConfig
	log      *zap.Logger
}

// NewReceiver creates a new stream receiver
func NewReceiver(consumer stream.Consumer, config ReceiverConfig, log *zap.Logger) *Receiver {
	return &Receiver{
		consumer: consumer,
		config:   config,
		log:      log,
	}
}

// Start lists the shards of the stream and polls each one until the context
// is cancelled or every shard is closed, sending records to the output
// channel
func (r *Receiver) Start(ctx context.Context, out chan<- ShardRecord) {
	defer close(out)

	shards, err := r.consumer.ListShards(ctx, &awskinesis.ListShardsInput{
		StreamName: aws.String(r.consumer.StreamName()),
	})
	if err != nil {
		r.log.Error("Error listing stream shards", zap.Error(err))
		return
	}

	r.log.Info("Receiver starting",
		zap.String("stream", r.consumer.StreamName()),
		zap.Int("shard_count", len(shards.Shards)))

	var wg sync.WaitGroup
	for _, shard := range shards.Shards {
		wg.Add(1)
		go func(shardID string) {
			defer wg.Done()
			r.consumeShard(ctx, shardID, out)
		}(aws.ToString(shard.ShardId))
	}
	wg.Wait()
}

// consumeShard polls a single shard, following the iterator chain
func (r *Receiver) consumeShard(ctx context.Context, shardID string, out chan<- ShardRecord) {
	iterator, err := r.shardIterator(ctx, shardID)
	if err != nil {
		r.log.Error("Error acquiring shard iterator",
			zap.String("shard_id", shardID),
			zap.Error(err))
		return
	}

	for {
		select {
		case <-ctx.Done():
			r.log.Info("Receiver shutting down", zap.String("shard_id", shardID))
			return
		default:
		}

		result, err := r.consumer.GetRecords(ctx, &awskinesis.GetRecordsInput{
			ShardIterator: iterator,
			Limit:         aws.Int32(r.config.RecordLimit),
		})

		if err != nil {
			r.log.Error("Error reading records from shard",
				zap.String("shard_id", shardID),
				zap.Error(err))
			time.Sleep(1 * time.Second)

			// Iterators expire after 5 minutes; re-acquire and keep going
			iterator, err = r.shardIterator(ctx, shardID)
			if err != nil {
				r.log.Error("Error re-acquiring shard iterator",
					zap.String("shard_id", shardID),
					zap.Error(err))
				return
			}
			continue
		}

		if len(result.Records) > 0 {
			r.log.Info("Received records from shard",
				zap.String("shard_id", shardID),
				zap.Int("record_count", len(result.Records)))
		}

		for _, record := range result.Records {
			select {
			case <-ctx.Done():
				r.log.Info("Receiver shutting down while sending records",
					zap.String("shard_id", shardID))
				return
			case out <- ShardRecord{ShardID: shardID, Record: record}:
			}
		}

		if result.NextShardIterator == nil {
			r.log.Info("Shard closed", zap.String("shard_id", shardID))
			return
		}
		iterator = result.NextShardIterator

		if len(result.Records) == 0 {
			select {
			case <-ctx.Done():
				return
			case <-time.After(r.config.PollInterval):
			}
		}
	}
}

// shardIterator acquires an iterator for the shard using the configured
// iterator type
func (r *Receiver) shardIterator(ctx context.Context, shardID string) (*string, error) {
	result, err := r.consumer.GetShardIterator(ctx, &awskinesis.GetShardIteratorInput{
		StreamName:        aws.String(r.consumer.StreamName()),
		ShardId:           aws.String(shardID),
		ShardIteratorType: types.ShardIteratorType(r.config.IteratorType),
	})
	if err != nil {
		return nil, err
	}
	return result.ShardIterator, nil
}
