package stream

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/service/kinesis"
)

// Producer defines the interface for submitting records to the stream.
// CreateStreamAndWait provisions the destination stream and blocks until it
// becomes available; it is used by the recovery path when the destination
// does not exist yet.
type Producer interface {
	PutRecord(ctx context.Context, input *kinesis.PutRecordInput) (*kinesis.PutRecordOutput, error)
	PutRecords(ctx context.Context, input *kinesis.PutRecordsInput) (*kinesis.PutRecordsOutput, error)
	CreateStreamAndWait(ctx context.Context, shardCount int32) error
	StreamName() string
}

// Consumer defines the interface for reading records back from the stream.
type Consumer interface {
	ListShards(ctx context.Context, input *kinesis.ListShardsInput) (*kinesis.ListShardsOutput, error)
	GetShardIterator(ctx context.Context, input *kinesis.GetShardIteratorInput) (*kinesis.GetShardIteratorOutput, error)
	GetRecords(ctx context.Context, input *kinesis.GetRecordsInput) (*kinesis.GetRecordsOutput, error)
	StreamName() string
}
