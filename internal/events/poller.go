// Package events runs the outbox poller: it drains pending outbox rows and
// publishes them to the ledger events topic. Publishing is at-least-once;
// consumers deduplicate on the entry ID carried in each event.
package events

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/inference-billing-ledger/internal/config"
	"github.com/inference-billing-ledger/internal/domain/outbox"
	"github.com/inference-billing-ledger/internal/platform/messaging/producers"
)

// Poller publishes pending outbox messages to the event stream
type Poller struct {
	outboxRepo       outbox.Repository
	publisher        producers.MessagePublisher
	logger           *slog.Logger
	pollInterval     time.Duration
	batchSize        int
	maxRetryAttempts int
}

func NewPoller(
	cfg *config.OutboxConfig,
	outboxRepo outbox.Repository,
	publisher producers.MessagePublisher,
	logger *slog.Logger,
) *Poller {
	return &Poller{
		outboxRepo:       outboxRepo,
		publisher:        publisher,
		logger:           logger,
		pollInterval:     cfg.PollingInterval,
		batchSize:        cfg.BatchSize,
		maxRetryAttempts: cfg.MaxRetryAttempts,
	}
}

// Start begins polling until context is canceled
func (p *Poller) Start(ctx context.Context) {
	p.logger.Info("Starting outbox poller",
		"poll_interval", p.pollInterval.String(),
		"batch_size", p.batchSize,
		"max_retry_attempts", p.maxRetryAttempts,
	)
	ticker := time.NewTicker(p.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("Outbox poller stopping due to context cancellation")
			return
		case <-ticker.C:
			if err := p.processPendingMessages(ctx); err != nil {
				p.logger.Error("Error during batch processing of pending outbox messages", "error", err)
			}
		}
	}
}

func (p *Poller) processPendingMessages(ctx context.Context) error {
	messages, err := p.outboxRepo.GetPending(ctx, p.batchSize)
	if err != nil {
		return fmt.Errorf("failed to get pending outbox messages: %w", err)
	}

	if len(messages) == 0 {
		return nil
	}

	p.logger.Debug("Fetched pending outbox messages", "count", len(messages))

	for _, msg := range messages {
		logger := p.logger
		if entry, err := msg.GetLedgerEntry(); err == nil && entry.CorrelationID != "" {
			logger = p.logger.With("correlation_id", entry.CorrelationID)
		}

		if err := p.publisher.Publish(ctx, msg.AccountID.String(), msg.Payload); err != nil {
			logger.Error("Failed to publish outbox message",
				"outbox_id", msg.ID, "entry_id", msg.EntryID, "current_attempts", msg.Attempts, "error", err,
			)

			if errInc := p.outboxRepo.IncrementAttempts(ctx, msg.ID); errInc != nil {
				logger.Error("Failed to increment attempts for outbox message", "outbox_id", msg.ID, "error", errInc)
				continue
			}

			if msg.Attempts+1 >= p.maxRetryAttempts {
				logger.Warn("Max retry attempts reached for outbox message, marking as FAILED_TO_PUBLISH",
					"outbox_id", msg.ID, "entry_id", msg.EntryID, "attempts_made", msg.Attempts+1,
				)
				if errUpdate := p.outboxRepo.UpdateStatus(ctx, msg.ID, outbox.StatusFailedToPublish); errUpdate != nil {
					logger.Error("Failed to update outbox status after max retries", "outbox_id", msg.ID, "error", errUpdate)
				}
			}
			continue
		}

		if err := p.outboxRepo.UpdateStatus(ctx, msg.ID, outbox.StatusProcessed); err != nil {
			// Published but not marked: the message will be re-published on
			// the next tick, which at-least-once delivery tolerates.
			logger.Error("Published outbox message but failed to mark it PROCESSED", "outbox_id", msg.ID, "error", err)
			continue
		}

		logger.Debug("Published outbox message", "outbox_id", msg.ID, "entry_id", msg.EntryID)
	}
	return nil
}
