package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/inference-billing-ledger/internal/domain/ledger"
	"github.com/inference-billing-ledger/internal/platform/persistence"
	"github.com/jackc/pgx/v5"
)

// LedgerRepository implements the ledger.Repository interface for PostgreSQL
type LedgerRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

// NewLedgerRepository creates a new PostgreSQL ledger repository
func NewLedgerRepository(logger *slog.Logger, db *persistence.PostgresDB) ledger.Repository {
	return &LedgerRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx wraps the repository with a transaction. This is how an entry append
// joins the same transaction scope as the balance mutation it records.
func (r *LedgerRepository) WithTx(tx pgx.Tx) ledger.Repository {
	return &LedgerRepository{
		querier: tx,
		logger:  r.logger,
	}
}

// Append inserts a new entry. The database assigns the monotone ID and
// creation timestamp, which are written back into the entry.
func (r *LedgerRepository) Append(ctx context.Context, entry *ledger.Entry) error {
	query := `
		INSERT INTO ledger_entries (account_id, kind, amount, balance_after, annotation, correlation_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at
	`

	annotation, err := marshalAnnotation(entry.Annotation)
	if err != nil {
		return fmt.Errorf("failed to marshal entry annotation: %w", err)
	}

	err = r.querier.QueryRow(ctx, query,
		entry.AccountID,
		entry.Kind,
		entry.Amount,
		entry.BalanceAfter,
		annotation,
		entry.CorrelationID,
	).Scan(&entry.ID, &entry.CreatedAt)

	if err != nil {
		r.logger.Error("Failed to append ledger entry",
			"account_id", entry.AccountID.String(),
			"kind", string(entry.Kind),
			"error", err,
		)
		return fmt.Errorf("failed to append ledger entry: %w", err)
	}

	return nil
}

// ListByAccount retrieves entries for an account, newest first. Limit and
// offset are clamped so a single call can never read unbounded history.
func (r *LedgerRepository) ListByAccount(ctx context.Context, accountID uuid.UUID, limit, offset int) ([]*ledger.Entry, error) {
	limit, offset = ledger.ClampPage(limit, offset)

	query := `
		SELECT id, account_id, kind, amount, balance_after, annotation, correlation_id, created_at
		FROM ledger_entries
		WHERE account_id = $1
		ORDER BY id DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.querier.Query(ctx, query, accountID, limit, offset)
	if err != nil {
		r.logger.Error("Failed to list ledger entries", "account_id", accountID.String(), "error", err)
		return nil, fmt.Errorf("failed to list ledger entries: %w", err)
	}
	defer rows.Close()

	var entries []*ledger.Entry
	for rows.Next() {
		var entry ledger.Entry
		var annotation []byte
		var correlationID *string
		err := rows.Scan(
			&entry.ID,
			&entry.AccountID,
			&entry.Kind,
			&entry.Amount,
			&entry.BalanceAfter,
			&annotation,
			&correlationID,
			&entry.CreatedAt,
		)
		if err != nil {
			r.logger.Error("Failed to scan ledger entry", "error", err)
			return nil, fmt.Errorf("failed to scan ledger entry: %w", err)
		}
		if len(annotation) > 0 {
			if err := json.Unmarshal(annotation, &entry.Annotation); err != nil {
				return nil, fmt.Errorf("failed to unmarshal entry annotation: %w", err)
			}
		}
		if correlationID != nil {
			entry.CorrelationID = *correlationID
		}
		entries = append(entries, &entry)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error("Error iterating over ledger entries", "error", err)
		return nil, fmt.Errorf("error iterating over ledger entries: %w", err)
	}

	return entries, nil
}

// CountByAccount returns the total number of entries for an account
func (r *LedgerRepository) CountByAccount(ctx context.Context, accountID uuid.UUID) (int64, error) {
	query := `
		SELECT COUNT(*)
		FROM ledger_entries
		WHERE account_id = $1
	`

	var count int64
	if err := r.querier.QueryRow(ctx, query, accountID).Scan(&count); err != nil {
		r.logger.Error("Failed to count ledger entries", "account_id", accountID.String(), "error", err)
		return 0, fmt.Errorf("failed to count ledger entries: %w", err)
	}

	return count, nil
}

func marshalAnnotation(annotation map[string]any) ([]byte, error) {
	if annotation == nil {
		return nil, nil
	}
	return json.Marshal(annotation)
}
