// Package payment defines the external payment capture interface. The core
// only consumes the capture outcome: it credits exactly the captured amount on
// success and surfaces a decline unchanged, performing no mutation.
package payment

import (
	"context"

	"github.com/google/uuid"
)

// Receipt is the outcome of a payment capture attempt. Amount is the credited
// amount, which may differ from the requested amount on partial captures.
type Receipt struct {
	Success   bool   `json:"success"`
	Amount    int64  `json:"amount"`
	Reference string `json:"reference"`
	Message   string `json:"message,omitempty"`
}

// Provider captures a payment for an account
type Provider interface {
	Charge(ctx context.Context, accountID uuid.UUID, amount int64) (*Receipt, error)
}

// ErrPaymentDeclined indicates the external capture was declined
type ErrPaymentDeclined struct {
	Reference string
	Message   string
}

func (e ErrPaymentDeclined) Error() string {
	if e.Message != "" {
		return "payment declined: " + e.Message
	}
	return "payment declined"
}

// Is implements the errors.Is interface for ErrPaymentDeclined
func (e ErrPaymentDeclined) Is(target error) bool {
	_, ok := target.(ErrPaymentDeclined)
	return ok
}
