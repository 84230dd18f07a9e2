// Package predict orchestrates billed predictions: price lookup, model
// invocation, then the debit. The computation always runs before any balance
// mutation, so a failed or canceled computation never produces a charge.
// The inverse does not hold: a successful computation whose debit fails for
// insufficient funds is not refunded (compute-then-bill).
package predict

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"github.com/inference-billing-ledger/internal/domain/account"
	"github.com/inference-billing-ledger/internal/domain/ledger"
	"github.com/inference-billing-ledger/internal/inference"
	"github.com/inference-billing-ledger/internal/metrics"
)

// ModelGateway resolves tiers to models and executes predictions
type ModelGateway interface {
	Resolve(tier string) (inference.Model, error)
	Invoke(ctx context.Context, model inference.Model, features []float64) (float64, error)
}

// Biller performs the conditional debit paired with its ledger entry
type Biller interface {
	ChargeAccount(ctx context.Context, id uuid.UUID, amount int64, annotation map[string]any) (*account.Account, *ledger.Entry, error)
}

// Result is the terminal outcome of a successful billed prediction
type Result struct {
	Value   float64
	Charged int64
	Account *account.Account
}

// Service composes the model gateway and the billing service
type Service struct {
	gateway ModelGateway
	biller  Biller
	prices  map[account.Tier]int64
	logger  *slog.Logger
}

// NewService creates a prediction orchestrator with the given price table
func NewService(logger *slog.Logger, gateway ModelGateway, biller Biller, prices map[string]int64) *Service {
	table := make(map[account.Tier]int64, len(prices))
	for name, price := range prices {
		if tier, err := account.ParseTier(name); err == nil {
			table[tier] = price
		}
	}

	return &Service{
		gateway: gateway,
		biller:  biller,
		prices:  table,
		logger:  logger,
	}
}

// Predict runs a billed prediction for the account's tier.
//
// The sequence is fixed: validate the tier against the price table, invoke
// the model, then charge. A zero price skips the debit path entirely and the
// balance is reported unchanged. ErrInsufficientFunds from the charge
// propagates unchanged even though the result was already computed.
func (s *Service) Predict(ctx context.Context, acct *account.Account, features []float64) (*Result, error) {
	tier, err := account.ParseTier(string(acct.Tier))
	if err != nil {
		return nil, err
	}
	price, ok := s.prices[tier]
	if !ok {
		return nil, account.ErrInvalidTier
	}

	model, err := s.gateway.Resolve(string(tier))
	if err != nil {
		return nil, err
	}

	value, err := s.gateway.Invoke(ctx, model, features)
	if err != nil {
		return nil, err
	}

	if price == 0 {
		metrics.PredictionsTotal.WithLabelValues(string(tier)).Inc()
		return &Result{Value: value, Charged: 0, Account: acct}, nil
	}

	updated, _, err := s.biller.ChargeAccount(ctx, acct.ID, price, map[string]any{
		"tier":         string(tier),
		"features_len": len(features),
	})
	if err != nil {
		return nil, err
	}

	metrics.PredictionsTotal.WithLabelValues(string(tier)).Inc()
	metrics.CreditsChargedTotal.Add(float64(price))

	s.logger.Info("Billed prediction completed",
		"account_id", acct.ID.String(),
		"tier", string(tier),
		"charged", price,
		"balance_after", updated.Balance,
	)

	return &Result{Value: value, Charged: price, Account: updated}, nil
}
