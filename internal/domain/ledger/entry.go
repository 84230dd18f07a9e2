package ledger

import (
	"time"

	"github.com/google/uuid"
)

// Kind classifies a balance-changing event
type Kind string

const (
	KindCredit     Kind = "credit"
	KindDebit      Kind = "debit"
	KindAdjustment Kind = "adjustment"
)

// MaxPageSize bounds how many entries a single list call may return
const MaxPageSize = 100

// Entry is an immutable record of a single balance-changing event. Entries are
// append-only: they are never updated or deleted, and their identifiers are
// assigned monotonically at insertion, so ordering by ID is ordering by time.
type Entry struct {
	ID            int64          `json:"id"`
	AccountID     uuid.UUID      `json:"account_id"`
	Kind          Kind           `json:"kind"`
	Amount        int64          `json:"amount"`        // Signed: positive for credit, negative for debit
	BalanceAfter  int64          `json:"balance_after"` // Balance snapshot immediately after this entry
	Annotation    map[string]any `json:"annotation,omitempty"`
	CorrelationID string         `json:"correlation_id,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
}

// ClampPage bounds pagination parameters: limit to [1, MaxPageSize], offset to
// non-negative. A zero or negative limit falls back to the maximum.
func ClampPage(limit, offset int) (int, int) {
	if limit <= 0 || limit > MaxPageSize {
		limit = MaxPageSize
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
