package kinesis

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	awskinesis "github.com/aws/aws-sdk-go-v2/service/kinesis"
	"github.com/aws/aws-sdk-go-v2/service/kinesis/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/streamroute/event-analytics-platform/internal/domain"
	"github.com/streamroute/event-analytics-platform/internal/eventstore"
	"github.com/streamroute/event-analytics-platform/internal/schema"
)

// MockProducer is a mock implementation of stream.Producer
type MockProducer struct {
	mock.Mock
}

func (m *MockProducer) PutRecord(ctx context.Context, input *awskinesis.PutRecordInput) (*awskinesis.PutRecordOutput, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*awskinesis.PutRecordOutput), args.Error(1)
}

func (m *MockProducer) PutRecords(ctx context.Context, input *awskinesis.PutRecordsInput) (*awskinesis.PutRecordsOutput, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*awskinesis.PutRecordsOutput), args.Error(1)
}

func (m *MockProducer) CreateStreamAndWait(ctx context.Context, shardCount int32) error {
	args := m.Called(ctx, shardCount)
	return args.Error(0)
}

func (m *MockProducer) StreamName() string {
	return "events-stream"
}

// MockBulkStore is a mock implementation of bulkstore.BulkStore
type MockBulkStore struct {
	mock.Mock
}

func (m *MockBulkStore) Upload(ctx context.Context, project string, events []*domain.Event) error {
	args := m.Called(ctx, project, events)
	return args.Error(0)
}

func testFields() []schema.Field {
	return []schema.Field{
		{Name: "url", Type: schema.TypeString},
		{Name: "count", Type: schema.TypeLong},
	}
}

func makeEvent(t *testing.T, project, collection string, i int) *domain.Event {
	t.Helper()

	record := schema.NewRecord(testFields())
	require.NoError(t, record.Set("url", fmt.Sprintf("/page/%d", i)))
	require.NoError(t, record.Set("count", int64(i)))

	return &domain.Event{Project: project, Collection: collection, Properties: record}
}

func makeEvents(t *testing.T, n int) []*domain.Event {
	t.Helper()

	events := make([]*domain.Event, n)
	for i := range events {
		events[i] = makeEvent(t, "ecommerce", "pageview", i)
	}
	return events
}

// putRecordsOutput builds a response for n records where the given
// chunk-local indices failed
func putRecordsOutput(n int, failedIndexes ...int) *awskinesis.PutRecordsOutput {
	failed := make(map[int]bool, len(failedIndexes))
	for _, i := range failedIndexes {
		failed[i] = true
	}

	records := make([]types.PutRecordsResultEntry, n)
	for i := range records {
		if failed[i] {
			records[i] = types.PutRecordsResultEntry{
				ErrorCode:    aws.String("ProvisionedThroughputExceededException"),
				ErrorMessage: aws.String("Rate exceeded for shard"),
			}
		} else {
			records[i] = types.PutRecordsResultEntry{
				SequenceNumber: aws.String(fmt.Sprintf("seq-%d", i)),
				ShardId:        aws.String("shardId-000000000000"),
			}
		}
	}

	return &awskinesis.PutRecordsOutput{
		FailedRecordCount: aws.Int32(int32(len(failedIndexes))),
		Records:           records,
	}
}

func recordCountMatcher(n int) interface{} {
	return mock.MatchedBy(func(input *awskinesis.PutRecordsInput) bool {
		return len(input.Records) == n
	})
}

func TestEventStore_Store_Success(t *testing.T) {
	mockProducer := new(MockProducer)
	mockBulk := new(MockBulkStore)
	store := NewEventStore(mockProducer, mockBulk, zap.NewNop())

	event := makeEvent(t, "ecommerce", "pageview", 1)

	mockProducer.On("PutRecord", mock.Anything, mock.MatchedBy(func(input *awskinesis.PutRecordInput) bool {
		return aws.ToString(input.PartitionKey) == "ecommerce|pageview" &&
			aws.ToString(input.StreamName) == "events-stream" &&
			len(input.Data) > 0
	})).Return(&awskinesis.PutRecordOutput{}, nil)

	err := store.Store(context.Background(), event)

	assert.NoError(t, err)
	mockProducer.AssertExpectations(t)
}

func TestEventStore_Store_ProvisionsMissingStreamAndRetries(t *testing.T) {
	mockProducer := new(MockProducer)
	mockBulk := new(MockBulkStore)
	store := NewEventStore(mockProducer, mockBulk, zap.NewNop())

	notFound := &types.ResourceNotFoundException{Message: aws.String("stream not found")}

	mockProducer.On("PutRecord", mock.Anything, mock.Anything).Return(nil, notFound).Once()
	mockProducer.On("CreateStreamAndWait", mock.Anything, int32(1)).Return(nil).Once()
	mockProducer.On("PutRecord", mock.Anything, mock.Anything).Return(&awskinesis.PutRecordOutput{}, nil).Once()

	err := store.Store(context.Background(), makeEvent(t, "ecommerce", "pageview", 1))

	assert.NoError(t, err)
	mockProducer.AssertExpectations(t)
	mockProducer.AssertNumberOfCalls(t, "PutRecord", 2)
}

func TestEventStore_Store_ProvisioningFailureIsFatal(t *testing.T) {
	mockProducer := new(MockProducer)
	mockBulk := new(MockBulkStore)
	store := NewEventStore(mockProducer, mockBulk, zap.NewNop())

	notFound := &types.ResourceNotFoundException{Message: aws.String("stream not found")}

	mockProducer.On("PutRecord", mock.Anything, mock.Anything).Return(nil, notFound).Once()
	mockProducer.On("CreateStreamAndWait", mock.Anything, int32(1)).Return(errors.New("limit exceeded")).Once()

	err := store.Store(context.Background(), makeEvent(t, "ecommerce", "pageview", 1))

	var transportErr *eventstore.TransportError
	require.ErrorAs(t, err, &transportErr)
	assert.Contains(t, err.Error(), "provisioning failed")
	mockProducer.AssertNumberOfCalls(t, "PutRecord", 1)
}

func TestEventStore_Store_RetryAfterProvisioningFailsOnce(t *testing.T) {
	mockProducer := new(MockProducer)
	mockBulk := new(MockBulkStore)
	store := NewEventStore(mockProducer, mockBulk, zap.NewNop())

	notFound := &types.ResourceNotFoundException{Message: aws.String("stream not found")}

	// The stream stays missing even after provisioning; the second miss
	// must be fatal, not another provisioning round
	mockProducer.On("PutRecord", mock.Anything, mock.Anything).Return(nil, notFound).Twice()
	mockProducer.On("CreateStreamAndWait", mock.Anything, int32(1)).Return(nil).Once()

	err := store.Store(context.Background(), makeEvent(t, "ecommerce", "pageview", 1))

	var transportErr *eventstore.TransportError
	require.ErrorAs(t, err, &transportErr)
	mockProducer.AssertNumberOfCalls(t, "PutRecord", 2)
	mockProducer.AssertNumberOfCalls(t, "CreateStreamAndWait", 1)
}

func TestEventStore_Store_OtherTransportErrorsAreFatal(t *testing.T) {
	mockProducer := new(MockProducer)
	mockBulk := new(MockBulkStore)
	store := NewEventStore(mockProducer, mockBulk, zap.NewNop())

	mockProducer.On("PutRecord", mock.Anything, mock.Anything).Return(nil, errors.New("access denied")).Once()

	err := store.Store(context.Background(), makeEvent(t, "ecommerce", "pageview", 1))

	var transportErr *eventstore.TransportError
	require.ErrorAs(t, err, &transportErr)
	assert.Equal(t, "events-stream", transportErr.Stream)
	mockProducer.AssertNotCalled(t, "CreateStreamAndWait")
}

func TestEventStore_StoreBatch_Empty(t *testing.T) {
	mockProducer := new(MockProducer)
	mockBulk := new(MockBulkStore)
	store := NewEventStore(mockProducer, mockBulk, zap.NewNop())

	failed, err := store.StoreBatch(context.Background(), nil)

	assert.NoError(t, err)
	assert.Nil(t, failed)
	mockProducer.AssertNotCalled(t, "PutRecords")

	failed, err = store.StoreBatch(context.Background(), []*domain.Event{})
	assert.NoError(t, err)
	assert.Nil(t, failed)
}

func TestEventStore_StoreBatch_SingleChunkSuccess(t *testing.T) {
	mockProducer := new(MockProducer)
	mockBulk := new(MockBulkStore)
	store := NewEventStore(mockProducer, mockBulk, zap.NewNop())

	mockProducer.On("PutRecords", mock.Anything, recordCountMatcher(100)).
		Return(putRecordsOutput(100), nil).Once()

	failed, err := store.StoreBatch(context.Background(), makeEvents(t, 100))

	assert.NoError(t, err)
	assert.Nil(t, failed)
	mockProducer.AssertNumberOfCalls(t, "PutRecords", 1)
}

func TestEventStore_StoreBatch_ExactlyBatchSizeIsOneChunk(t *testing.T) {
	mockProducer := new(MockProducer)
	mockBulk := new(MockBulkStore)
	store := NewEventStore(mockProducer, mockBulk, zap.NewNop())

	mockProducer.On("PutRecords", mock.Anything, recordCountMatcher(500)).
		Return(putRecordsOutput(500), nil).Once()

	failed, err := store.StoreBatch(context.Background(), makeEvents(t, 500))

	assert.NoError(t, err)
	assert.Nil(t, failed)
	mockProducer.AssertNumberOfCalls(t, "PutRecords", 1)
}

func TestEventStore_StoreBatch_ChunksLargeBatches(t *testing.T) {
	mockProducer := new(MockProducer)
	mockBulk := new(MockBulkStore)
	store := NewEventStore(mockProducer, mockBulk, zap.NewNop())

	mockProducer.On("PutRecords", mock.Anything, recordCountMatcher(500)).
		Return(putRecordsOutput(500), nil).Twice()
	mockProducer.On("PutRecords", mock.Anything, recordCountMatcher(200)).
		Return(putRecordsOutput(200), nil).Once()

	failed, err := store.StoreBatch(context.Background(), makeEvents(t, 1200))

	assert.NoError(t, err)
	assert.Nil(t, failed)
	mockProducer.AssertNumberOfCalls(t, "PutRecords", 3)
}

func TestEventStore_StoreBatch_PartialFailureIndices(t *testing.T) {
	mockProducer := new(MockProducer)
	mockBulk := new(MockBulkStore)
	store := NewEventStore(mockProducer, mockBulk, zap.NewNop())

	mockProducer.On("PutRecords", mock.Anything, recordCountMatcher(10)).
		Return(putRecordsOutput(10, 2, 7), nil).Once()

	failed, err := store.StoreBatch(context.Background(), makeEvents(t, 10))

	assert.NoError(t, err)
	assert.Equal(t, []int{2, 7}, failed)
}

func TestEventStore_StoreBatch_TranslatesChunkIndicesToBatchPositions(t *testing.T) {
	mockProducer := new(MockProducer)
	mockBulk := new(MockBulkStore)
	store := NewEventStore(mockProducer, mockBulk, zap.NewNop())

	// 1200 events: chunks of 500, 500, 200. The second chunk fails at
	// chunk-local indices 3 and 7, which are positions 503 and 507 of the
	// input list.
	mockProducer.On("PutRecords", mock.Anything, recordCountMatcher(500)).
		Return(putRecordsOutput(500), nil).Once()
	mockProducer.On("PutRecords", mock.Anything, recordCountMatcher(500)).
		Return(putRecordsOutput(500, 3, 7), nil).Once()
	mockProducer.On("PutRecords", mock.Anything, recordCountMatcher(200)).
		Return(putRecordsOutput(200), nil).Once()

	failed, err := store.StoreBatch(context.Background(), makeEvents(t, 1200))

	assert.NoError(t, err)
	assert.Equal(t, []int{503, 507}, failed)
}

func TestEventStore_StoreBatch_EncodingErrorIsFatal(t *testing.T) {
	mockProducer := new(MockProducer)
	mockBulk := new(MockBulkStore)
	store := NewEventStore(mockProducer, mockBulk, zap.NewNop())

	events := makeEvents(t, 3)
	events[1].Properties.Values[1] = "not a long"

	failed, err := store.StoreBatch(context.Background(), events)

	assert.Error(t, err)
	assert.Nil(t, failed)
	mockProducer.AssertNotCalled(t, "PutRecords")
}

func TestEventStore_StoreBatch_ProvisionsMissingStream(t *testing.T) {
	mockProducer := new(MockProducer)
	mockBulk := new(MockBulkStore)
	store := NewEventStore(mockProducer, mockBulk, zap.NewNop())

	notFound := &types.ResourceNotFoundException{Message: aws.String("stream not found")}

	mockProducer.On("PutRecords", mock.Anything, recordCountMatcher(10)).
		Return(nil, notFound).Once()
	mockProducer.On("CreateStreamAndWait", mock.Anything, int32(1)).Return(nil).Once()
	mockProducer.On("PutRecords", mock.Anything, recordCountMatcher(10)).
		Return(putRecordsOutput(10), nil).Once()

	failed, err := store.StoreBatch(context.Background(), makeEvents(t, 10))

	assert.NoError(t, err)
	assert.Nil(t, failed)
	mockProducer.AssertExpectations(t)
}

func TestEventStore_StoreBulk_Success(t *testing.T) {
	mockProducer := new(MockProducer)
	mockBulk := new(MockBulkStore)
	store := NewEventStore(mockProducer, mockBulk, zap.NewNop())

	events := makeEvents(t, 5)
	mockBulk.On("Upload", mock.Anything, "ecommerce", events).Return(nil).Once()

	err := store.StoreBulk(context.Background(), events)

	assert.NoError(t, err)
	mockBulk.AssertExpectations(t)
	mockProducer.AssertNotCalled(t, "PutRecords")
}

func TestEventStore_StoreBulk_RejectsEmptySubmission(t *testing.T) {
	mockProducer := new(MockProducer)
	mockBulk := new(MockBulkStore)
	store := NewEventStore(mockProducer, mockBulk, zap.NewNop())

	err := store.StoreBulk(context.Background(), nil)

	assert.Error(t, err)
	mockBulk.AssertNotCalled(t, "Upload")
}

func TestEventStore_StoreBulk_RejectsMixedProjects(t *testing.T) {
	mockProducer := new(MockProducer)
	mockBulk := new(MockBulkStore)
	store := NewEventStore(mockProducer, mockBulk, zap.NewNop())

	events := []*domain.Event{
		makeEvent(t, "ecommerce", "pageview", 1),
		makeEvent(t, "gaming", "pageview", 2),
	}

	err := store.StoreBulk(context.Background(), events)

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "single project")
	mockBulk.AssertNotCalled(t, "Upload")
}

func TestEventStore_Commit_CompletesImmediately(t *testing.T) {
	mockProducer := new(MockProducer)
	mockBulk := new(MockBulkStore)
	store := NewEventStore(mockProducer, mockBulk, zap.NewNop())

	err := store.Commit(context.Background(), "ecommerce", "pageview")

	assert.NoError(t, err)
	mockProducer.AssertNotCalled(t, "PutRecord")
	mockProducer.AssertNotCalled(t, "PutRecords")
}
