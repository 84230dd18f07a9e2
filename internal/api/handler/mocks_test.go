package handler

import (
	"context"
	"log/slog"
	"os"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/inference-billing-ledger/internal/api/middleware"
	"github.com/inference-billing-ledger/internal/domain/account"
	"github.com/inference-billing-ledger/internal/domain/ledger"
	"github.com/inference-billing-ledger/internal/predict"
	"github.com/stretchr/testify/mock"
)

type MockBillingService struct {
	mock.Mock
}

func (m *MockBillingService) Register(ctx context.Context, email, passwordHash string) (*account.Account, error) {
	args := m.Called(ctx, email, passwordHash)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*account.Account), args.Error(1)
}

func (m *MockBillingService) GetAccount(ctx context.Context, id uuid.UUID) (*account.Account, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*account.Account), args.Error(1)
}

func (m *MockBillingService) GetAccountByEmail(ctx context.Context, email string) (*account.Account, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*account.Account), args.Error(1)
}

func (m *MockBillingService) TopUp(ctx context.Context, id uuid.UUID, amount int64) (*account.Account, *ledger.Entry, error) {
	args := m.Called(ctx, id, amount)
	var acc *account.Account
	if args.Get(0) != nil {
		acc = args.Get(0).(*account.Account)
	}
	var entry *ledger.Entry
	if args.Get(1) != nil {
		entry = args.Get(1).(*ledger.Entry)
	}
	return acc, entry, args.Error(2)
}

func (m *MockBillingService) SetTier(ctx context.Context, id uuid.UUID, tier string) (*account.Account, error) {
	args := m.Called(ctx, id, tier)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*account.Account), args.Error(1)
}

func (m *MockBillingService) ListEntries(ctx context.Context, id uuid.UUID, limit, offset int) ([]*ledger.Entry, int64, error) {
	args := m.Called(ctx, id, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Get(1).(int64), args.Error(2)
	}
	return args.Get(0).([]*ledger.Entry), args.Get(1).(int64), args.Error(2)
}

type MockPredictionService struct {
	mock.Mock
}

func (m *MockPredictionService) Predict(ctx context.Context, acct *account.Account, features []float64) (*predict.Result, error) {
	args := m.Called(ctx, acct, features)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*predict.Result), args.Error(1)
}

type MockTokenManager struct {
	mock.Mock
}

func (m *MockTokenManager) HashPassword(password string) (string, error) {
	args := m.Called(password)
	return args.String(0), args.Error(1)
}

func (m *MockTokenManager) CheckPassword(password, hash string) bool {
	args := m.Called(password, hash)
	return args.Bool(0)
}

func (m *MockTokenManager) Issue(accountID uuid.UUID) (string, error) {
	args := m.Called(accountID)
	return args.String(0), args.Error(1)
}

var (
	_ BillingService    = (*MockBillingService)(nil)
	_ PredictionService = (*MockPredictionService)(nil)
	_ TokenManager      = (*MockTokenManager)(nil)
)

func newHandlerTestLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, nil))
}

func setupTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	return gin.New()
}

// authenticatedAs injects the account exactly as the auth middleware would
func authenticatedAs(acct *account.Account) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middleware.AccountKey, acct)
		c.Next()
	}
}

func testAccount(t *testing.T, balance int64, tier account.Tier) *account.Account {
	t.Helper()
	acc, err := account.NewAccount("user@example.com", "hash")
	if err != nil {
		t.Fatal(err)
	}
	acc.Balance = balance
	acc.Tier = tier
	return acc
}
