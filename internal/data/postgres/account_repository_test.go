package postgres

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/inference-billing-ledger/internal/domain/account"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func TestAccountRepository_Create(t *testing.T) {
	ctx := context.Background()
	logger := newTestLogger()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &AccountRepository{querier: mock, logger: logger}

	acc := &account.Account{
		ID:           uuid.New(),
		Email:        "user@example.com",
		PasswordHash: "$2a$10$abcdefghijklmnopqrstuv",
		IsAdmin:      false,
		Balance:      0,
		Tier:         account.TierBasic,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}

	query := `
		INSERT INTO accounts \(id, email, password_hash, is_admin, balance, tier, created_at, updated_at\)
		VALUES \(\$1, \$2, \$3, \$4, \$5, \$6, \$7, \$8\)
	`

	t.Run("success", func(t *testing.T) {
		mock.ExpectExec(query).
			WithArgs(acc.ID, acc.Email, acc.PasswordHash, acc.IsAdmin, acc.Balance, acc.Tier, acc.CreatedAt, acc.UpdatedAt).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))

		err := repo.Create(ctx, acc)
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("duplicate email", func(t *testing.T) {
		mock.ExpectExec(query).
			WithArgs(acc.ID, acc.Email, acc.PasswordHash, acc.IsAdmin, acc.Balance, acc.Tier, acc.CreatedAt, acc.UpdatedAt).
			WillReturnError(&pgconn.PgError{Code: uniqueViolation})

		err := repo.Create(ctx, acc)
		assert.Error(t, err)
		var duplicateErr account.ErrDuplicateEmail
		assert.ErrorAs(t, err, &duplicateErr)
		assert.Equal(t, acc.Email, duplicateErr.Email)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("failure", func(t *testing.T) {
		expectedErr := errors.New("db error")
		mock.ExpectExec(query).
			WithArgs(acc.ID, acc.Email, acc.PasswordHash, acc.IsAdmin, acc.Balance, acc.Tier, acc.CreatedAt, acc.UpdatedAt).
			WillReturnError(expectedErr)

		err := repo.Create(ctx, acc)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "failed to create account")
		assert.ErrorIs(t, err, expectedErr)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestAccountRepository_GetByID(t *testing.T) {
	ctx := context.Background()
	logger := newTestLogger()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &AccountRepository{querier: mock, logger: logger}
	accID := uuid.New()
	now := time.Now()

	expectedAccount := &account.Account{
		ID:           accID,
		Email:        "user@example.com",
		PasswordHash: "$2a$10$abcdefghijklmnopqrstuv",
		IsAdmin:      false,
		Balance:      1000,
		Tier:         account.TierPro,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	query := `
		SELECT id, email, password_hash, is_admin, balance, tier, created_at, updated_at
		FROM accounts
		WHERE id = \$1
	`

	t.Run("success", func(t *testing.T) {
		rows := pgxmock.NewRows([]string{"id", "email", "password_hash", "is_admin", "balance", "tier", "created_at", "updated_at"}).
			AddRow(expectedAccount.ID, expectedAccount.Email, expectedAccount.PasswordHash, expectedAccount.IsAdmin, expectedAccount.Balance, expectedAccount.Tier, expectedAccount.CreatedAt, expectedAccount.UpdatedAt)
		mock.ExpectQuery(query).WithArgs(accID).WillReturnRows(rows)

		acc, err := repo.GetByID(ctx, accID)
		assert.NoError(t, err)
		assert.Equal(t, expectedAccount, acc)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not found", func(t *testing.T) {
		mock.ExpectQuery(query).WithArgs(accID).WillReturnError(pgx.ErrNoRows)

		acc, err := repo.GetByID(ctx, accID)
		assert.Error(t, err)
		assert.Nil(t, acc)
		var notFoundErr account.ErrAccountNotFound
		assert.ErrorAs(t, err, &notFoundErr)
		assert.Equal(t, accID, notFoundErr.AccountID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("db error", func(t *testing.T) {
		dbErr := errors.New("some db error")
		mock.ExpectQuery(query).WithArgs(accID).WillReturnError(dbErr)

		acc, err := repo.GetByID(ctx, accID)
		assert.Error(t, err)
		assert.Nil(t, acc)
		assert.Contains(t, err.Error(), "failed to get account")
		assert.ErrorIs(t, err, dbErr)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestAccountRepository_GetByEmail(t *testing.T) {
	ctx := context.Background()
	logger := newTestLogger()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &AccountRepository{querier: mock, logger: logger}
	email := "user@example.com"
	now := time.Now()

	expectedAccount := &account.Account{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: "$2a$10$abcdefghijklmnopqrstuv",
		Balance:      250,
		Tier:         account.TierBasic,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	query := `
		SELECT id, email, password_hash, is_admin, balance, tier, created_at, updated_at
		FROM accounts
		WHERE email = \$1
	`

	t.Run("success", func(t *testing.T) {
		rows := pgxmock.NewRows([]string{"id", "email", "password_hash", "is_admin", "balance", "tier", "created_at", "updated_at"}).
			AddRow(expectedAccount.ID, expectedAccount.Email, expectedAccount.PasswordHash, expectedAccount.IsAdmin, expectedAccount.Balance, expectedAccount.Tier, expectedAccount.CreatedAt, expectedAccount.UpdatedAt)
		mock.ExpectQuery(query).WithArgs(email).WillReturnRows(rows)

		acc, err := repo.GetByEmail(ctx, email)
		assert.NoError(t, err)
		assert.Equal(t, expectedAccount, acc)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not found", func(t *testing.T) {
		mock.ExpectQuery(query).WithArgs(email).WillReturnError(pgx.ErrNoRows)

		acc, err := repo.GetByEmail(ctx, email)
		assert.NoError(t, err)
		assert.Nil(t, acc)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("db error", func(t *testing.T) {
		dbErr := errors.New("some db error")
		mock.ExpectQuery(query).WithArgs(email).WillReturnError(dbErr)

		acc, err := repo.GetByEmail(ctx, email)
		assert.Error(t, err)
		assert.Nil(t, acc)
		assert.Contains(t, err.Error(), "failed to get account by email")
		assert.ErrorIs(t, err, dbErr)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestAccountRepository_Credit(t *testing.T) {
	ctx := context.Background()
	logger := newTestLogger()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &AccountRepository{querier: mock, logger: logger}
	accID := uuid.New()

	query := `
		UPDATE accounts
		SET balance = balance \+ \$1, updated_at = NOW\(\)
		WHERE id = \$2
		RETURNING balance
	`

	t.Run("success", func(t *testing.T) {
		mock.ExpectQuery(query).
			WithArgs(int64(500), accID).
			WillReturnRows(pgxmock.NewRows([]string{"balance"}).AddRow(int64(500)))

		balance, err := repo.Credit(ctx, accID, 500)
		assert.NoError(t, err)
		assert.Equal(t, int64(500), balance)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not found", func(t *testing.T) {
		mock.ExpectQuery(query).
			WithArgs(int64(500), accID).
			WillReturnError(pgx.ErrNoRows)

		balance, err := repo.Credit(ctx, accID, 500)
		assert.Error(t, err)
		assert.Zero(t, balance)
		var notFoundErr account.ErrAccountNotFound
		assert.ErrorAs(t, err, &notFoundErr)
		assert.Equal(t, accID, notFoundErr.AccountID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("db error", func(t *testing.T) {
		dbErr := errors.New("credit db error")
		mock.ExpectQuery(query).
			WithArgs(int64(500), accID).
			WillReturnError(dbErr)

		balance, err := repo.Credit(ctx, accID, 500)
		assert.Error(t, err)
		assert.Zero(t, balance)
		assert.Contains(t, err.Error(), "failed to credit account")
		assert.ErrorIs(t, err, dbErr)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestAccountRepository_DebitIfSufficient(t *testing.T) {
	ctx := context.Background()
	logger := newTestLogger()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &AccountRepository{querier: mock, logger: logger}
	accID := uuid.New()
	now := time.Now()

	query := `
		UPDATE accounts
		SET balance = balance - \$1, updated_at = NOW\(\)
		WHERE id = \$2 AND balance >= \$1
		RETURNING balance
	`
	probeQuery := `
		SELECT id, email, password_hash, is_admin, balance, tier, created_at, updated_at
		FROM accounts
		WHERE id = \$1
	`

	t.Run("success", func(t *testing.T) {
		mock.ExpectQuery(query).
			WithArgs(int64(200), accID).
			WillReturnRows(pgxmock.NewRows([]string{"balance"}).AddRow(int64(300)))

		balance, err := repo.DebitIfSufficient(ctx, accID, 200)
		assert.NoError(t, err)
		assert.Equal(t, int64(300), balance)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("insufficient funds", func(t *testing.T) {
		mock.ExpectQuery(query).
			WithArgs(int64(200), accID).
			WillReturnError(pgx.ErrNoRows)
		// The existence probe finds the account, so the miss was the balance check
		mock.ExpectQuery(probeQuery).
			WithArgs(accID).
			WillReturnRows(pgxmock.NewRows([]string{"id", "email", "password_hash", "is_admin", "balance", "tier", "created_at", "updated_at"}).
				AddRow(accID, "user@example.com", "hash", false, int64(100), account.TierBasic, now, now))

		balance, err := repo.DebitIfSufficient(ctx, accID, 200)
		assert.Error(t, err)
		assert.Zero(t, balance)
		assert.ErrorIs(t, err, account.ErrInsufficientFunds)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("account not found", func(t *testing.T) {
		mock.ExpectQuery(query).
			WithArgs(int64(200), accID).
			WillReturnError(pgx.ErrNoRows)
		mock.ExpectQuery(probeQuery).
			WithArgs(accID).
			WillReturnError(pgx.ErrNoRows)

		balance, err := repo.DebitIfSufficient(ctx, accID, 200)
		assert.Error(t, err)
		assert.Zero(t, balance)
		var notFoundErr account.ErrAccountNotFound
		assert.ErrorAs(t, err, &notFoundErr)
		assert.Equal(t, accID, notFoundErr.AccountID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("db error", func(t *testing.T) {
		dbErr := errors.New("debit db error")
		mock.ExpectQuery(query).
			WithArgs(int64(200), accID).
			WillReturnError(dbErr)

		balance, err := repo.DebitIfSufficient(ctx, accID, 200)
		assert.Error(t, err)
		assert.Zero(t, balance)
		assert.Contains(t, err.Error(), "failed to debit account")
		assert.ErrorIs(t, err, dbErr)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestAccountRepository_UpdateTier(t *testing.T) {
	ctx := context.Background()
	logger := newTestLogger()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &AccountRepository{querier: mock, logger: logger}
	accID := uuid.New()

	query := `
		UPDATE accounts
		SET tier = \$1, updated_at = NOW\(\)
		WHERE id = \$2
	`

	t.Run("success", func(t *testing.T) {
		mock.ExpectExec(query).
			WithArgs(account.TierPremium, accID).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		err := repo.UpdateTier(ctx, accID, account.TierPremium)
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not found", func(t *testing.T) {
		mock.ExpectExec(query).
			WithArgs(account.TierPremium, accID).
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))

		err := repo.UpdateTier(ctx, accID, account.TierPremium)
		assert.Error(t, err)
		var notFoundErr account.ErrAccountNotFound
		assert.ErrorAs(t, err, &notFoundErr)
		assert.Equal(t, accID, notFoundErr.AccountID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("db error", func(t *testing.T) {
		dbErr := errors.New("tier db error")
		mock.ExpectExec(query).
			WithArgs(account.TierPremium, accID).
			WillReturnError(dbErr)

		err := repo.UpdateTier(ctx, accID, account.TierPremium)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "failed to update account tier")
		assert.ErrorIs(t, err, dbErr)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestAccountRepository_WithTx(t *testing.T) {
	logger := newTestLogger()
	mockPool, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mockPool.Close()

	originalRepo := &AccountRepository{querier: mockPool, logger: logger}

	mockPool.ExpectBegin()
	pgxTx, err := mockPool.Begin(context.Background())
	require.NoError(t, err)

	txRepo := originalRepo.WithTx(pgxTx)

	assert.NotNil(t, txRepo)
	assert.Equal(t, originalRepo.logger, txRepo.(*AccountRepository).logger)
	assert.Equal(t, pgxTx, txRepo.(*AccountRepository).querier, "Querier in new repo should be the transaction")

	assert.NoError(t, mockPool.ExpectationsWereMet())
}
