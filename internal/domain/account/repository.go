package account

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Repository defines account persistence operations. Credit and
// DebitIfSufficient return the balance the store actually set so callers can
// record consistent balance snapshots without re-reading.
type Repository interface {
	Create(ctx context.Context, account *Account) error
	GetByID(ctx context.Context, id uuid.UUID) (*Account, error)
	GetByEmail(ctx context.Context, email string) (*Account, error)

	// Credit unconditionally adds delta to the balance and returns the new balance
	Credit(ctx context.Context, id uuid.UUID, delta int64) (int64, error)

	// DebitIfSufficient subtracts amount only if the current balance covers it.
	// The check and the update are a single atomic statement; concurrent
	// callers can never jointly overdraw the account.
	// Returns ErrInsufficientFunds when the balance check fails.
	DebitIfSufficient(ctx context.Context, id uuid.UUID, amount int64) (int64, error)

	UpdateTier(ctx context.Context, id uuid.UUID, tier Tier) error
	WithTx(tx pgx.Tx) Repository
}

// ErrAccountNotFound indicates missing account
type ErrAccountNotFound struct {
	AccountID uuid.UUID
}

func (e ErrAccountNotFound) Error() string {
	return "account not found: " + e.AccountID.String()
}

// Is implements the errors.Is interface for ErrAccountNotFound
func (e ErrAccountNotFound) Is(target error) bool {
	t, ok := target.(ErrAccountNotFound)
	if !ok {
		return false
	}
	if t.AccountID == uuid.Nil {
		return true
	}
	return e.AccountID == t.AccountID
}

// ErrDuplicateEmail indicates email uniqueness violation
type ErrDuplicateEmail struct {
	Email string
}

func (e ErrDuplicateEmail) Error() string {
	return "account with email already exists: " + e.Email
}

// Is implements the errors.Is interface for ErrDuplicateEmail
func (e ErrDuplicateEmail) Is(target error) bool {
	t, ok := target.(ErrDuplicateEmail)
	if !ok {
		return false
	}
	if t.Email == "" {
		return true
	}
	return e.Email == t.Email
}
