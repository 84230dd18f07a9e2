// Package postgres provides PostgreSQL implementations of the domain
// repositories. Balance mutations are single atomic statements; the
// conditional debit in particular never has a read-modify-write window.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/inference-billing-ledger/internal/domain/account"
	"github.com/inference-billing-ledger/internal/platform/persistence"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// uniqueViolation is the Postgres error code for unique constraint failures
const uniqueViolation = "23505"

// AccountRepository implements the account.Repository interface for PostgreSQL
type AccountRepository struct {
	querier persistence.Querier // Can be *pgxpool.Pool or pgx.Tx
	logger  *slog.Logger
}

// NewAccountRepository creates a new PostgreSQL account repository.
// It expects db.Pool() to satisfy persistence.Querier.
func NewAccountRepository(logger *slog.Logger, db *persistence.PostgresDB) account.Repository {
	return &AccountRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx wraps the repository with a transaction, allowing for atomic
// operations across multiple repository calls
func (r *AccountRepository) WithTx(tx pgx.Tx) account.Repository {
	return &AccountRepository{
		querier: tx,
		logger:  r.logger,
	}
}

// Create stores a new account. Returns ErrDuplicateEmail if the email is taken.
func (r *AccountRepository) Create(ctx context.Context, acc *account.Account) error {
	query := `
		INSERT INTO accounts (id, email, password_hash, is_admin, balance, tier, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.querier.Exec(ctx, query,
		acc.ID,
		acc.Email,
		acc.PasswordHash,
		acc.IsAdmin,
		acc.Balance,
		acc.Tier,
		acc.CreatedAt,
		acc.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return account.ErrDuplicateEmail{Email: acc.Email}
		}
		r.logger.Error("Failed to create account", "error", err)
		return fmt.Errorf("failed to create account: %w", err)
	}

	return nil
}

// GetByID retrieves an account by its ID
func (r *AccountRepository) GetByID(ctx context.Context, id uuid.UUID) (*account.Account, error) {
	query := `
		SELECT id, email, password_hash, is_admin, balance, tier, created_at, updated_at
		FROM accounts
		WHERE id = $1
	`

	var acc account.Account
	err := r.querier.QueryRow(ctx, query, id).Scan(
		&acc.ID,
		&acc.Email,
		&acc.PasswordHash,
		&acc.IsAdmin,
		&acc.Balance,
		&acc.Tier,
		&acc.CreatedAt,
		&acc.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, account.ErrAccountNotFound{AccountID: id}
		}
		r.logger.Error("Failed to get account", "id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to get account: %w", err)
	}

	return &acc, nil
}

// GetByEmail retrieves an account by its email address
func (r *AccountRepository) GetByEmail(ctx context.Context, email string) (*account.Account, error) {
	query := `
		SELECT id, email, password_hash, is_admin, balance, tier, created_at, updated_at
		FROM accounts
		WHERE email = $1
	`

	var acc account.Account
	err := r.querier.QueryRow(ctx, query, email).Scan(
		&acc.ID,
		&acc.Email,
		&acc.PasswordHash,
		&acc.IsAdmin,
		&acc.Balance,
		&acc.Tier,
		&acc.CreatedAt,
		&acc.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil // Return nil, nil when no account is found with the given email
		}
		r.logger.Error("Failed to get account by email", "email", email, "error", err)
		return nil, fmt.Errorf("failed to get account by email: %w", err)
	}

	return &acc, nil
}

// Credit unconditionally adds delta to the account balance and returns the
// balance the statement actually set
func (r *AccountRepository) Credit(ctx context.Context, id uuid.UUID, delta int64) (int64, error) {
	query := `
		UPDATE accounts
		SET balance = balance + $1, updated_at = NOW()
		WHERE id = $2
		RETURNING balance
	`

	var balance int64
	err := r.querier.QueryRow(ctx, query, delta, id).Scan(&balance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, account.ErrAccountNotFound{AccountID: id}
		}
		r.logger.Error("Failed to credit account", "id", id.String(), "error", err)
		return 0, fmt.Errorf("failed to credit account: %w", err)
	}

	return balance, nil
}

// DebitIfSufficient subtracts amount only when the current balance covers it.
// The balance check is part of the UPDATE predicate, so two concurrent debits
// that would jointly overdraw the account can never both match.
func (r *AccountRepository) DebitIfSufficient(ctx context.Context, id uuid.UUID, amount int64) (int64, error) {
	query := `
		UPDATE accounts
		SET balance = balance - $1, updated_at = NOW()
		WHERE id = $2 AND balance >= $1
		RETURNING balance
	`

	var balance int64
	err := r.querier.QueryRow(ctx, query, amount, id).Scan(&balance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// No row matched: either the account is missing or the balance
			// check failed. Disambiguate with an existence probe.
			if _, getErr := r.GetByID(ctx, id); getErr != nil {
				return 0, getErr
			}
			return 0, account.ErrInsufficientFunds
		}
		r.logger.Error("Failed to debit account", "id", id.String(), "error", err)
		return 0, fmt.Errorf("failed to debit account: %w", err)
	}

	return balance, nil
}

// UpdateTier changes the account's pricing tier
func (r *AccountRepository) UpdateTier(ctx context.Context, id uuid.UUID, tier account.Tier) error {
	query := `
		UPDATE accounts
		SET tier = $1, updated_at = NOW()
		WHERE id = $2
	`

	result, err := r.querier.Exec(ctx, query, tier, id)
	if err != nil {
		r.logger.Error("Failed to update account tier", "id", id.String(), "error", err)
		return fmt.Errorf("failed to update account tier: %w", err)
	}

	if result.RowsAffected() == 0 {
		return account.ErrAccountNotFound{AccountID: id}
	}

	return nil
}
