package events

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/inference-billing-ledger/internal/config"
	"github.com/inference-billing-ledger/internal/domain/ledger"
	"github.com/inference-billing-ledger/internal/domain/outbox"
	"github.com/inference-billing-ledger/internal/platform/messaging/producers"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// MockOutboxRepo for testing
type MockOutboxRepo struct {
	mock.Mock
}

func (m *MockOutboxRepo) Create(ctx context.Context, message *outbox.Message) error {
	args := m.Called(ctx, message)
	return args.Error(0)
}

func (m *MockOutboxRepo) GetPending(ctx context.Context, limit int) ([]*outbox.Message, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*outbox.Message), args.Error(1)
}

func (m *MockOutboxRepo) UpdateStatus(ctx context.Context, id int64, status outbox.Status) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}

func (m *MockOutboxRepo) IncrementAttempts(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockOutboxRepo) WithTx(tx pgx.Tx) outbox.Repository {
	args := m.Called(tx)
	return args.Get(0).(outbox.Repository)
}

// MockPublisher for testing
type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(ctx context.Context, key string, value interface{}) error {
	args := m.Called(ctx, key, value)
	return args.Error(0)
}

func (m *MockPublisher) Close() error {
	args := m.Called()
	return args.Error(0)
}

var (
	_ outbox.Repository          = (*MockOutboxRepo)(nil)
	_ producers.MessagePublisher = (*MockPublisher)(nil)
)

func TestPoller_ProcessPendingMessages(t *testing.T) {
	logger := slog.Default()

	cfg := &config.OutboxConfig{
		PollingInterval:  time.Second,
		BatchSize:        10,
		MaxRetryAttempts: 3,
	}

	accID := uuid.New()
	entry := &ledger.Entry{
		ID:            42,
		AccountID:     accID,
		Kind:          ledger.KindCredit,
		Amount:        500,
		BalanceAfter:  500,
		CorrelationID: "corr-1",
	}
	entryJSON, err := json.Marshal(entry)
	assert.NoError(t, err)

	message1 := &outbox.Message{
		ID:        1,
		EntryID:   42,
		AccountID: accID,
		Status:    outbox.StatusPending,
		Payload:   entryJSON,
		Attempts:  0,
		CreatedAt: time.Now(),
	}

	message2 := &outbox.Message{
		ID:        2,
		EntryID:   43,
		AccountID: accID,
		Status:    outbox.StatusPending,
		Payload:   entryJSON,
		Attempts:  0,
		CreatedAt: time.Now(),
	}

	tests := []struct {
		name          string
		setupMocks    func(repo *MockOutboxRepo, publisher *MockPublisher)
		expectedError error
	}{
		{
			name: "successful processing of pending messages",
			setupMocks: func(repo *MockOutboxRepo, publisher *MockPublisher) {
				repo.On("GetPending", mock.Anything, 10).Return([]*outbox.Message{message1, message2}, nil).Once()

				publisher.On("Publish", mock.Anything, accID.String(), json.RawMessage(entryJSON)).Return(nil).Twice()

				repo.On("UpdateStatus", mock.Anything, int64(1), outbox.StatusProcessed).Return(nil).Once()
				repo.On("UpdateStatus", mock.Anything, int64(2), outbox.StatusProcessed).Return(nil).Once()
			},
			expectedError: nil,
		},
		{
			name: "error getting pending messages",
			setupMocks: func(repo *MockOutboxRepo, publisher *MockPublisher) {
				repo.On("GetPending", mock.Anything, 10).Return(nil, errors.New("db error")).Once()
			},
			expectedError: errors.New("failed to get pending outbox messages"),
		},
		{
			name: "no pending messages",
			setupMocks: func(repo *MockOutboxRepo, publisher *MockPublisher) {
				repo.On("GetPending", mock.Anything, 10).Return([]*outbox.Message{}, nil).Once()
			},
			expectedError: nil,
		},
		{
			name: "error publishing one message",
			setupMocks: func(repo *MockOutboxRepo, publisher *MockPublisher) {
				repo.On("GetPending", mock.Anything, 10).Return([]*outbox.Message{message1, message2}, nil).Once()

				publisher.On("Publish", mock.Anything, accID.String(), json.RawMessage(entryJSON)).Return(errors.New("publish error")).Once()
				repo.On("IncrementAttempts", mock.Anything, int64(1)).Return(nil).Once()

				publisher.On("Publish", mock.Anything, accID.String(), json.RawMessage(entryJSON)).Return(nil).Once()
				repo.On("UpdateStatus", mock.Anything, int64(2), outbox.StatusProcessed).Return(nil).Once()
			},
			expectedError: nil,
		},
		{
			name: "max retry attempts reached",
			setupMocks: func(repo *MockOutboxRepo, publisher *MockPublisher) {
				maxAttemptsMessage := &outbox.Message{
					ID:        3,
					EntryID:   44,
					AccountID: accID,
					Status:    outbox.StatusPending,
					Payload:   entryJSON,
					Attempts:  2,
					CreatedAt: time.Now(),
				}

				repo.On("GetPending", mock.Anything, 10).Return([]*outbox.Message{maxAttemptsMessage}, nil).Once()

				publisher.On("Publish", mock.Anything, accID.String(), json.RawMessage(entryJSON)).Return(errors.New("publish error")).Once()

				repo.On("IncrementAttempts", mock.Anything, int64(3)).Return(nil).Once()
				repo.On("UpdateStatus", mock.Anything, int64(3), outbox.StatusFailedToPublish).Return(nil).Once()
			},
			expectedError: nil,
		},
		{
			name: "published but not marked is tolerated",
			setupMocks: func(repo *MockOutboxRepo, publisher *MockPublisher) {
				repo.On("GetPending", mock.Anything, 10).Return([]*outbox.Message{message1}, nil).Once()

				publisher.On("Publish", mock.Anything, accID.String(), json.RawMessage(entryJSON)).Return(nil).Once()
				repo.On("UpdateStatus", mock.Anything, int64(1), outbox.StatusProcessed).Return(errors.New("mark error")).Once()
			},
			expectedError: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockRepo := &MockOutboxRepo{}
			mockPublisher := &MockPublisher{}
			poller := NewPoller(cfg, mockRepo, mockPublisher, logger)

			tt.setupMocks(mockRepo, mockPublisher)

			err := poller.processPendingMessages(context.Background())

			if tt.expectedError != nil {
				assert.Error(t, err)
				assert.Contains(t, err.Error(), tt.expectedError.Error())
			} else {
				assert.NoError(t, err)
			}

			mockRepo.AssertExpectations(t)
			mockPublisher.AssertExpectations(t)
		})
	}
}

func TestPoller_Start(t *testing.T) {
	mockRepo := &MockOutboxRepo{}
	mockPublisher := &MockPublisher{}
	logger := slog.Default()

	cfg := &config.OutboxConfig{
		PollingInterval:  10 * time.Millisecond,
		BatchSize:        10,
		MaxRetryAttempts: 3,
	}

	poller := NewPoller(cfg, mockRepo, mockPublisher, logger)

	mockRepo.On("GetPending", mock.Anything, 10).Return([]*outbox.Message{}, nil).Maybe()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	done := make(chan struct{})
	go func() {
		poller.Start(ctx)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("poller did not stop after context cancellation")
	}
}
