package ledger

import (
	"context"
	"strconv"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Repository manages ledger entry persistence. The log is append-only: there
// are no update or delete operations by design.
type Repository interface {
	// Append inserts a new entry and fills in its assigned ID and creation time
	Append(ctx context.Context, entry *Entry) error

	// ListByAccount returns entries for an account, newest first (descending
	// by ID). Implementations clamp limit and offset per ClampPage.
	ListByAccount(ctx context.Context, accountID uuid.UUID, limit, offset int) ([]*Entry, error)

	CountByAccount(ctx context.Context, accountID uuid.UUID) (int64, error)
	WithTx(tx pgx.Tx) Repository
}

// ErrEntryNotFound indicates missing ledger entry
type ErrEntryNotFound struct {
	EntryID int64
}

func (e ErrEntryNotFound) Error() string {
	return "ledger entry not found: " + strconv.FormatInt(e.EntryID, 10)
}

// Is implements the errors.Is interface for ErrEntryNotFound
func (e ErrEntryNotFound) Is(target error) bool {
	t, ok := target.(ErrEntryNotFound)
	if !ok {
		return false
	}
	if t.EntryID == 0 {
		return true
	}
	return e.EntryID == t.EntryID
}
