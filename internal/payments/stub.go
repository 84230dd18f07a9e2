// Package payments contains payment capture provider implementations.
package payments

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"github.com/inference-billing-ledger/internal/domain/payment"
)

// StubProvider approves every capture for exactly the requested amount.
// It stands in for a real payment gateway until one is integrated.
type StubProvider struct {
	logger *slog.Logger
}

// NewStubProvider creates a stub payment provider
func NewStubProvider(logger *slog.Logger) payment.Provider {
	return &StubProvider{logger: logger}
}

// Charge approves the capture with a generated receipt reference
func (p *StubProvider) Charge(ctx context.Context, accountID uuid.UUID, amount int64) (*payment.Receipt, error) {
	receipt := &payment.Receipt{
		Success:   true,
		Amount:    amount,
		Reference: "stub-" + uuid.New().String(),
		Message:   "Stub payment approved",
	}

	p.logger.Debug("Stub payment captured",
		"account_id", accountID.String(),
		"amount", amount,
		"reference", receipt.Reference,
	)

	return receipt, nil
}
