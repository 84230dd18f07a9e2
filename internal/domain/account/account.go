package account

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Common errors
var (
	ErrInvalidAmount     = errors.New("amount must be positive")
	ErrInvalidTier       = errors.New("unrecognized pricing tier")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrEmptyEmail        = errors.New("email cannot be empty")
	ErrEmptyPasswordHash = errors.New("password hash cannot be empty")
)

// Tier is a named pricing level that determines the per-call price and which
// model resource serves the account's predictions
type Tier string

const (
	TierBasic   Tier = "basic"
	TierPro     Tier = "pro"
	TierPremium Tier = "premium"
)

// ParseTier normalizes and validates a tier name
func ParseTier(s string) (Tier, error) {
	switch t := Tier(strings.ToLower(strings.TrimSpace(s))); t {
	case TierBasic, TierPro, TierPremium:
		return t, nil
	default:
		return "", ErrInvalidTier
	}
}

// Account represents a billable user account. The balance is stored in integer
// credits and is never negative; it is mutated only through the repository's
// atomic operations, never by assigning to this struct.
type Account struct {
	ID           uuid.UUID `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	IsAdmin      bool      `json:"is_admin"`
	Balance      int64     `json:"balance"` // Stored in integer credits
	Tier         Tier      `json:"tier"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// NewAccount creates a new account with zero balance on the lowest tier
func NewAccount(email, passwordHash string) (*Account, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, ErrEmptyEmail
	}
	if passwordHash == "" {
		return nil, ErrEmptyPasswordHash
	}

	now := time.Now()
	return &Account{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: passwordHash,
		Balance:      0,
		Tier:         TierBasic,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}
