package handler

import (
	"context"

	"github.com/google/uuid"
	"github.com/inference-billing-ledger/internal/domain/account"
	"github.com/inference-billing-ledger/internal/domain/ledger"
	"github.com/inference-billing-ledger/internal/predict"
)

// BillingService defines the account and balance operations handlers depend on
type BillingService interface {
	Register(ctx context.Context, email, passwordHash string) (*account.Account, error)
	GetAccount(ctx context.Context, id uuid.UUID) (*account.Account, error)
	GetAccountByEmail(ctx context.Context, email string) (*account.Account, error)
	TopUp(ctx context.Context, id uuid.UUID, amount int64) (*account.Account, *ledger.Entry, error)
	SetTier(ctx context.Context, id uuid.UUID, tier string) (*account.Account, error)
	ListEntries(ctx context.Context, id uuid.UUID, limit, offset int) ([]*ledger.Entry, int64, error)
}

// PredictionService defines the billed prediction operation handlers depend on
type PredictionService interface {
	Predict(ctx context.Context, acct *account.Account, features []float64) (*predict.Result, error)
}

// TokenManager defines the credential operations handlers depend on
type TokenManager interface {
	HashPassword(password string) (string, error)
	CheckPassword(password, hash string) bool
	Issue(accountID uuid.UUID) (string, error)
}
