// Package outbox implements the transactional outbox for ledger event
// publishing: a message is inserted in the same database transaction as the
// balance mutation and its ledger entry, then published to the event stream by
// a background poller. A committed balance change therefore always has a
// durable event record, even if the broker is down at commit time.
package outbox

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/inference-billing-ledger/internal/domain/ledger"
)

// Status defines message publishing states
type Status string

const (
	StatusPending         Status = "PENDING"
	StatusProcessed       Status = "PROCESSED"
	StatusFailedToPublish Status = "FAILED_TO_PUBLISH"
)

// Message stores a committed ledger entry for reliable event publishing
type Message struct {
	ID            int64           `json:"id"`
	EntryID       int64           `json:"entry_id"`
	AccountID     uuid.UUID       `json:"account_id"`
	Payload       json.RawMessage `json:"payload"`
	Status        Status          `json:"status"`
	Attempts      int             `json:"attempts"`
	CreatedAt     time.Time       `json:"created_at"`
	LastAttemptAt *time.Time      `json:"last_attempt_at,omitempty"`
}

func NewMessage(entry *ledger.Entry) (*Message, error) {
	payload, err := json.Marshal(entry)
	if err != nil {
		return nil, err
	}

	return &Message{
		EntryID:   entry.ID,
		AccountID: entry.AccountID,
		Payload:   payload,
		Status:    StatusPending,
		Attempts:  0,
		CreatedAt: time.Now(),
	}, nil
}

// GetLedgerEntry extracts the ledger entry from the payload
func (m *Message) GetLedgerEntry() (*ledger.Entry, error) {
	var entry ledger.Entry
	if err := json.Unmarshal(m.Payload, &entry); err != nil {
		return nil, err
	}
	return &entry, nil
}
