package kinesis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/kinesis"
	"github.com/aws/aws-sdk-go-v2/service/kinesis/types"
	"go.uber.org/zap"

	envConfig "github.com/streamroute/event-analytics-platform/internal/config"
)

// statusPollInterval is how often CreateStreamAndWait re-checks a stream
// that is still being provisioned.
const statusPollInterval = 2 * time.Second

// Client wraps the Kinesis SDK client for one configured stream.
type Client struct {
	client *kinesis.Client
	config envConfig.Kinesis
	log    *zap.Logger
}

// NewClient creates a new Kinesis client
func NewClient(ctx context.Context, kinesisConfig envConfig.Kinesis, log *zap.Logger) (*Client, error) {
	configOpts := []func(*config.LoadOptions) error{
		config.WithRegion(kinesisConfig.Region),
	}

	var clientOpts []func(*kinesis.Options)

	// Configure for local development with LocalStack
	if kinesisConfig.Endpoint != "" {
		log.Info("Configuring Kinesis for local development",
			zap.String("endpoint", kinesisConfig.Endpoint))
		configOpts = append(configOpts,
			config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider("dummy", "dummy", "")))

		clientOpts = append(clientOpts, func(o *kinesis.Options) {
			o.BaseEndpoint = aws.String(kinesisConfig.Endpoint)
		})
	}

	cfg, err := config.LoadDefaultConfig(ctx, configOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	kinesisClient := kinesis.NewFromConfig(cfg, clientOpts...)

	log.Info("Kinesis client created",
		zap.String("region", kinesisConfig.Region),
		zap.String("stream", kinesisConfig.StreamName))

	return &Client{
		client: kinesisClient,
		config: kinesisConfig,
		log:    log,
	}, nil
}

// PutRecord submits a single record to the stream
func (c *Client) PutRecord(ctx context.Context, input *kinesis.PutRecordInput) (*kinesis.PutRecordOutput, error) {
	return c.client.PutRecord(ctx, input)
}

// PutRecords submits a batch of records to the stream
func (c *Client) PutRecords(ctx context.Context, input *kinesis.PutRecordsInput) (*kinesis.PutRecordsOutput, error) {
	return c.client.PutRecords(ctx, input)
}

// ListShards lists the shards of the stream
func (c *Client) ListShards(ctx context.Context, input *kinesis.ListShardsInput) (*kinesis.ListShardsOutput, error) {
	return c.client.ListShards(ctx, input)
}

// GetShardIterator returns an iterator for one shard of the stream
func (c *Client) GetShardIterator(ctx context.Context, input *kinesis.GetShardIteratorInput) (*kinesis.GetShardIteratorOutput, error) {
	return c.client.GetShardIterator(ctx, input)
}

// GetRecords reads records from a shard iterator
func (c *Client) GetRecords(ctx context.Context, input *kinesis.GetRecordsInput) (*kinesis.GetRecordsOutput, error) {
	return c.client.GetRecords(ctx, input)
}

// StreamName returns the configured stream name
func (c *Client) StreamName() string {
	return c.config.StreamName
}

// CreateStreamAndWait provisions the configured stream with the given shard
// count and blocks until it becomes active. A stream that already exists is
// treated as success; waiting is bounded by ctx.
func (c *Client) CreateStreamAndWait(ctx context.Context, shardCount int32) error {
	c.log.Info("Creating stream",
		zap.String("stream", c.config.StreamName),
		zap.Int32("shard_count", shardCount))

	_, err := c.client.CreateStream(ctx, &kinesis.CreateStreamInput{
		StreamName: aws.String(c.config.StreamName),
		ShardCount: aws.Int32(shardCount),
	})
	if err != nil {
		var inUse *types.ResourceInUseException
		if !errors.As(err, &inUse) {
			return fmt.Errorf("failed to create stream %s: %w", c.config.StreamName, err)
		}
		// Already created by a concurrent caller; fall through and wait.
	}

	for {
		out, err := c.client.DescribeStreamSummary(ctx, &kinesis.DescribeStreamSummaryInput{
			StreamName: aws.String(c.config.StreamName),
		})
		if err != nil {
			return fmt.Errorf("failed to describe stream %s: %w", c.config.StreamName, err)
		}

		status := out.StreamDescriptionSummary.StreamStatus
		if status == types.StreamStatusActive {
			c.log.Info("Stream is active", zap.String("stream", c.config.StreamName))
			return nil
		}

		c.log.Info("Waiting for stream to become active",
			zap.String("stream", c.config.StreamName),
			zap.String("status", string(status)))

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(statusPollInterval):
		}
	}
}
