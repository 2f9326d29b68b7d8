package s3

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/klauspost/compress/gzip"
	"go.uber.org/zap"

	envConfig "github.com/streamroute/event-analytics-platform/internal/config"
	"github.com/streamroute/event-analytics-platform/internal/domain"
)

// BulkEventStore uploads backfill submissions to S3 as one gzip-compressed
// JSONL object per call. There is no batching or partial-failure handling
// on this path: the object either lands or the whole upload fails.
type BulkEventStore struct {
	client *awss3.Client
	config envConfig.S3
	log    *zap.Logger
}

// NewBulkEventStore creates a new S3 bulk event store
func NewBulkEventStore(ctx context.Context, s3Config envConfig.S3, log *zap.Logger) (*BulkEventStore, error) {
	configOpts := []func(*config.LoadOptions) error{
		config.WithRegion(s3Config.Region),
	}

	var clientOpts []func(*awss3.Options)

	// Configure for local development with LocalStack
	if s3Config.Endpoint != "" {
		log.Info("Configuring S3 for local development",
			zap.String("endpoint", s3Config.Endpoint))
		configOpts = append(configOpts,
			config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider("dummy", "dummy", "")))

		clientOpts = append(clientOpts, func(o *awss3.Options) {
			o.BaseEndpoint = aws.String(s3Config.Endpoint)
			o.UsePathStyle = true
		})
	}

	cfg, err := config.LoadDefaultConfig(ctx, configOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return &BulkEventStore{
		client: awss3.NewFromConfig(cfg, clientOpts...),
		config: s3Config,
		log:    log,
	}, nil
}

// bulkLine is the JSONL row shape written for each event.
type bulkLine struct {
	Project    string         `json:"project"`
	Collection string         `json:"collection"`
	Properties map[string]any `json:"properties"`
}

// Upload writes the whole event list as one object under
// <prefix>/<project>/<date>/<uuid>.jsonl.gz.
func (s *BulkEventStore) Upload(ctx context.Context, project string, events []*domain.Event) error {
	body, err := encodeJSONLGZ(events)
	if err != nil {
		return fmt.Errorf("failed to encode bulk payload: %w", err)
	}

	key := fmt.Sprintf("%s/%s/%s/%s.jsonl.gz",
		s.config.Prefix, project, time.Now().UTC().Format("2006-01-02"), uuid.NewString())

	_, err = s.client.PutObject(ctx, &awss3.PutObjectInput{
		Bucket:        aws.String(s.config.Bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(body),
		ContentLength: aws.Int64(int64(len(body))),
	})
	if err != nil {
		s.log.Error("Failed to upload bulk events",
			zap.String("project", project),
			zap.String("key", key),
			zap.Int("event_count", len(events)),
			zap.Error(err))
		return fmt.Errorf("failed to upload bulk events to S3: %w", err)
	}

	s.log.Info("Bulk events uploaded",
		zap.String("project", project),
		zap.String("key", key),
		zap.Int("event_count", len(events)),
		zap.Int("bytes", len(body)))

	return nil
}

// encodeJSONLGZ serializes events as gzip-compressed JSONL. The returned
// slice is owned by the caller.
func encodeJSONLGZ(events []*domain.Event) ([]byte, error) {
	var buf bytes.Buffer

	gz, err := gzip.NewWriterLevel(&buf, gzip.BestSpeed)
	if err != nil {
		return nil, err
	}

	enc := json.NewEncoder(gz)
	for _, event := range events {
		line := bulkLine{
			Project:    event.Project,
			Collection: event.Collection,
			Properties: make(map[string]any, len(event.Properties.Fields)),
		}
		for i, field := range event.Properties.Fields {
			line.Properties[field.Name] = event.Properties.Values[i]
		}
		if err := enc.Encode(line); err != nil {
			return nil, err
		}
	}

	if err := gz.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
