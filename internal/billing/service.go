// Package billing enforces the balance invariants: every balance mutation is
// paired 1:1 with a ledger entry, and the pair commits atomically. For every
// account, the balance always equals the sum of its entry amounts.
package billing

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"github.com/inference-billing-ledger/internal/domain/account"
	"github.com/inference-billing-ledger/internal/domain/ledger"
	"github.com/inference-billing-ledger/internal/domain/outbox"
	"github.com/inference-billing-ledger/internal/domain/payment"
	"github.com/inference-billing-ledger/internal/platform/persistence"
	"github.com/jackc/pgx/v5"
)

// Service implements the account operations over the ledger store
type Service struct {
	db          persistence.TxRunner
	accountRepo account.Repository
	ledgerRepo  ledger.Repository
	outboxRepo  outbox.Repository
	payments    payment.Provider
	logger      *slog.Logger
}

// NewService creates a new billing service
func NewService(
	logger *slog.Logger,
	db persistence.TxRunner,
	accountRepo account.Repository,
	ledgerRepo ledger.Repository,
	outboxRepo outbox.Repository,
	payments payment.Provider,
) *Service {
	return &Service{
		db:          db,
		accountRepo: accountRepo,
		ledgerRepo:  ledgerRepo,
		outboxRepo:  outboxRepo,
		payments:    payments,
		logger:      logger,
	}
}

// Register creates a new account with zero balance on the lowest tier.
// Returns ErrDuplicateEmail if the email is already taken.
func (s *Service) Register(ctx context.Context, email, passwordHash string) (*account.Account, error) {
	acc, err := account.NewAccount(email, passwordHash)
	if err != nil {
		return nil, err
	}

	existing, err := s.accountRepo.GetByEmail(ctx, acc.Email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, account.ErrDuplicateEmail{Email: acc.Email}
	}

	if err := s.accountRepo.Create(ctx, acc); err != nil {
		return nil, err
	}

	s.logger.Info("Account registered", "account_id", acc.ID.String(), "email", acc.Email)
	return acc, nil
}

// GetAccount retrieves an account by ID. Returns ErrAccountNotFound if missing.
func (s *Service) GetAccount(ctx context.Context, id uuid.UUID) (*account.Account, error) {
	return s.accountRepo.GetByID(ctx, id)
}

// GetAccountByEmail retrieves an account by email, or nil when absent
func (s *Service) GetAccountByEmail(ctx context.Context, email string) (*account.Account, error) {
	return s.accountRepo.GetByEmail(ctx, email)
}

// CreditAccount adds a positive amount to the balance and records a credit
// entry with the resulting balance, as one transaction. The amount check runs
// before any store access.
func (s *Service) CreditAccount(ctx context.Context, id uuid.UUID, amount int64, annotation map[string]any) (*account.Account, *ledger.Entry, error) {
	if amount <= 0 {
		return nil, nil, account.ErrInvalidAmount
	}

	return s.applyBalanceChange(ctx, id, ledger.KindCredit, amount, annotation,
		func(ctx context.Context, repo account.Repository) (int64, error) {
			return repo.Credit(ctx, id, amount)
		})
}

// ChargeAccount subtracts a positive amount if the balance covers it and
// records a debit entry with the resulting balance, as one transaction.
// On ErrInsufficientFunds nothing is recorded and nothing changes.
func (s *Service) ChargeAccount(ctx context.Context, id uuid.UUID, amount int64, annotation map[string]any) (*account.Account, *ledger.Entry, error) {
	if amount <= 0 {
		return nil, nil, account.ErrInvalidAmount
	}

	return s.applyBalanceChange(ctx, id, ledger.KindDebit, -amount, annotation,
		func(ctx context.Context, repo account.Repository) (int64, error) {
			return repo.DebitIfSufficient(ctx, id, amount)
		})
}

// applyBalanceChange runs the mutate-then-log pair under one transaction
// scope. If the entry or its outbox message cannot be written, the balance
// mutation rolls back with it: no observer ever sees one half without the
// other. The entry's balance snapshot is the value the store returned from
// the mutation, never recomputed.
func (s *Service) applyBalanceChange(
	ctx context.Context,
	id uuid.UUID,
	kind ledger.Kind,
	amount int64,
	annotation map[string]any,
	mutate func(ctx context.Context, repo account.Repository) (int64, error),
) (*account.Account, *ledger.Entry, error) {
	var (
		updated *account.Account
		entry   *ledger.Entry
	)

	err := s.db.ExecuteTx(ctx, func(tx pgx.Tx) error {
		accountRepoTx := s.accountRepo.WithTx(tx)
		ledgerRepoTx := s.ledgerRepo.WithTx(tx)
		outboxRepoTx := s.outboxRepo.WithTx(tx)

		balance, err := mutate(ctx, accountRepoTx)
		if err != nil {
			return err
		}

		entry = &ledger.Entry{
			AccountID:     id,
			Kind:          kind,
			Amount:        amount,
			BalanceAfter:  balance,
			Annotation:    annotation,
			CorrelationID: ledger.CorrelationIDFromContext(ctx),
		}
		if err := ledgerRepoTx.Append(ctx, entry); err != nil {
			return err
		}

		message, err := outbox.NewMessage(entry)
		if err != nil {
			return err
		}
		if err := outboxRepoTx.Create(ctx, message); err != nil {
			return err
		}

		updated, err = accountRepoTx.GetByID(ctx, id)
		return err
	})
	if err != nil {
		return nil, nil, err
	}

	s.logger.Info("Balance changed",
		"account_id", id.String(),
		"kind", string(kind),
		"amount", amount,
		"balance_after", entry.BalanceAfter,
		"entry_id", entry.ID,
	)

	return updated, entry, nil
}

// SetTier changes the account's pricing tier after validating the tier name
func (s *Service) SetTier(ctx context.Context, id uuid.UUID, tier string) (*account.Account, error) {
	parsed, err := account.ParseTier(tier)
	if err != nil {
		return nil, err
	}

	if err := s.accountRepo.UpdateTier(ctx, id, parsed); err != nil {
		return nil, err
	}

	return s.accountRepo.GetByID(ctx, id)
}

// TopUp captures a payment and credits exactly the captured amount. A
// non-positive requested amount is rejected before capture is attempted; a
// declined capture surfaces as ErrPaymentDeclined with no state change.
func (s *Service) TopUp(ctx context.Context, id uuid.UUID, amount int64) (*account.Account, *ledger.Entry, error) {
	if amount <= 0 {
		return nil, nil, account.ErrInvalidAmount
	}

	receipt, err := s.payments.Charge(ctx, id, amount)
	if err != nil {
		return nil, nil, err
	}
	if !receipt.Success {
		s.logger.Warn("Payment capture declined",
			"account_id", id.String(), "amount", amount, "reference", receipt.Reference)
		return nil, nil, payment.ErrPaymentDeclined{Reference: receipt.Reference, Message: receipt.Message}
	}

	return s.CreditAccount(ctx, id, receipt.Amount, map[string]any{
		"reference": receipt.Reference,
		"provider":  "stub",
	})
}

// ListEntries returns an account's ledger entries newest-first with the total
// count, for pagination
func (s *Service) ListEntries(ctx context.Context, id uuid.UUID, limit, offset int) ([]*ledger.Entry, int64, error) {
	entries, err := s.ledgerRepo.ListByAccount(ctx, id, limit, offset)
	if err != nil {
		return nil, 0, err
	}

	total, err := s.ledgerRepo.CountByAccount(ctx, id)
	if err != nil {
		return nil, 0, err
	}

	return entries, total, nil
}
