package consumer

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"

	"github.com/streamroute/event-analytics-platform/internal/domain"
	"github.com/streamroute/event-analytics-platform/internal/repository"
)

// MockEventRepository is a mock implementation of repository.EventRepository
type MockEventRepository struct {
	mock.Mock
}

func (m *MockEventRepository) InsertBatch(ctx context.Context, events []*domain.Event) (int, error) {
	args := m.Called(ctx, events)
	return args.Int(0), args.Error(1)
}

func (m *MockEventRepository) InitSchema(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockEventRepository) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockEventRepository) Close() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockEventRepository) GetMetrics(ctx context.Context, query repository.MetricsQuery) (*repository.MetricsResult, error) {
	args := m.Called(ctx, query)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repository.MetricsResult), args.Error(1)
}

// trackedEnvelope returns an envelope counting its ack and nack calls
func trackedEnvelope(acks, nacks *atomic.Int64) *Envelope {
	event := &domain.Event{Project: "ecommerce", Collection: "pageview"}
	return NewEnvelope(event,
		func(context.Context) error {
			acks.Add(1)
			return nil
		},
		func(context.Context) error {
			nacks.Add(1)
			return nil
		})
}

func TestBatchWriter_FlushesWhenBatchSizeReached(t *testing.T) {
	mockRepo := new(MockEventRepository)
	writer := NewBatchWriter(mockRepo, BatchWriterConfig{
		MaxBatchSize: 2,
		FlushTimeout: time.Hour,
	}, zap.NewNop())

	mockRepo.On("InsertBatch", mock.Anything, mock.MatchedBy(func(events []*domain.Event) bool {
		return len(events) == 2
	})).Return(2, nil).Once()

	var acks, nacks atomic.Int64
	in := make(chan *Envelope, 2)
	in <- trackedEnvelope(&acks, &nacks)
	in <- trackedEnvelope(&acks, &nacks)
	close(in)

	writer.Start(context.Background(), in)

	assert.Equal(t, int64(2), acks.Load())
	assert.Equal(t, int64(0), nacks.Load())
	mockRepo.AssertExpectations(t)
}

func TestBatchWriter_FlushesRemainderOnChannelClose(t *testing.T) {
	mockRepo := new(MockEventRepository)
	writer := NewBatchWriter(mockRepo, BatchWriterConfig{
		MaxBatchSize: 100,
		FlushTimeout: time.Hour,
	}, zap.NewNop())

	mockRepo.On("InsertBatch", mock.Anything, mock.MatchedBy(func(events []*domain.Event) bool {
		return len(events) == 3
	})).Return(3, nil).Once()

	var acks, nacks atomic.Int64
	in := make(chan *Envelope, 3)
	for i := 0; i < 3; i++ {
		in <- trackedEnvelope(&acks, &nacks)
	}
	close(in)

	writer.Start(context.Background(), in)

	assert.Equal(t, int64(3), acks.Load())
	mockRepo.AssertExpectations(t)
}

func TestBatchWriter_FlushesOnTimeout(t *testing.T) {
	mockRepo := new(MockEventRepository)
	writer := NewBatchWriter(mockRepo, BatchWriterConfig{
		MaxBatchSize: 100,
		FlushTimeout: 20 * time.Millisecond,
	}, zap.NewNop())

	inserted := make(chan struct{})
	mockRepo.On("InsertBatch", mock.Anything, mock.Anything).Return(1, nil).Run(func(mock.Arguments) {
		close(inserted)
	}).Once()

	var acks, nacks atomic.Int64
	in := make(chan *Envelope, 1)
	in <- trackedEnvelope(&acks, &nacks)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		writer.Start(ctx, in)
		close(done)
	}()

	select {
	case <-inserted:
	case <-time.After(2 * time.Second):
		t.Fatal("batch writer did not flush on timeout")
	}

	cancel()
	<-done
	assert.Equal(t, int64(1), acks.Load())
}

func TestBatchWriter_NacksOnInsertError(t *testing.T) {
	mockRepo := new(MockEventRepository)
	writer := NewBatchWriter(mockRepo, BatchWriterConfig{
		MaxBatchSize: 2,
		FlushTimeout: time.Hour,
	}, zap.NewNop())

	mockRepo.On("InsertBatch", mock.Anything, mock.Anything).Return(0, errors.New("insert failed")).Once()

	var acks, nacks atomic.Int64
	in := make(chan *Envelope, 2)
	in <- trackedEnvelope(&acks, &nacks)
	in <- trackedEnvelope(&acks, &nacks)
	close(in)

	writer.Start(context.Background(), in)

	assert.Equal(t, int64(0), acks.Load())
	assert.Equal(t, int64(2), nacks.Load())
	mockRepo.AssertExpectations(t)
}

func TestBatchWriter_NacksOnPartialInsert(t *testing.T) {
	mockRepo := new(MockEventRepository)
	writer := NewBatchWriter(mockRepo, BatchWriterConfig{
		MaxBatchSize: 2,
		FlushTimeout: time.Hour,
	}, zap.NewNop())

	mockRepo.On("InsertBatch", mock.Anything, mock.Anything).Return(1, nil).Once()

	var acks, nacks atomic.Int64
	in := make(chan *Envelope, 2)
	in <- trackedEnvelope(&acks, &nacks)
	in <- trackedEnvelope(&acks, &nacks)
	close(in)

	writer.Start(context.Background(), in)

	assert.Equal(t, int64(0), acks.Load())
	assert.Equal(t, int64(2), nacks.Load())
	mockRepo.AssertExpectations(t)
}
