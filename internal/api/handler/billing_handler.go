package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/inference-billing-ledger/internal/api/middleware"
	"github.com/inference-billing-ledger/internal/domain/account"
	"github.com/inference-billing-ledger/internal/domain/ledger"
	"github.com/inference-billing-ledger/internal/domain/payment"
)

// BillingHandler handles HTTP requests for credit purchases and ledger history
type BillingHandler struct {
	billing      BillingService
	defaultTopUp int64
	logger       *slog.Logger
}

// NewBillingHandler creates a new billing handler
func NewBillingHandler(logger *slog.Logger, billing BillingService, defaultTopUp int64) *BillingHandler {
	return &BillingHandler{
		billing:      billing,
		defaultTopUp: defaultTopUp,
		logger:       logger,
	}
}

// TopUp captures a payment for the authenticated account and credits the
// captured amount. A request without an amount buys the default package.
func (h *BillingHandler) TopUp(c *gin.Context) {
	acc, ok := middleware.CurrentAccount(c)
	if !ok {
		RespondUnauthorized(c, "")
		return
	}

	var req TopUpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	amount := req.Amount
	if amount == 0 {
		amount = h.defaultTopUp
	}

	updated, entry, err := h.billing.TopUp(c.Request.Context(), acc.ID, amount)
	if err != nil {
		if errors.Is(err, account.ErrInvalidAmount) {
			RespondBadRequest(c, "Top-up amount must be positive")
			return
		}
		var declinedErr payment.ErrPaymentDeclined
		if errors.As(err, &declinedErr) {
			h.logger.Warn("Top-up declined",
				"account_id", acc.ID.String(), "reference", declinedErr.Reference)
			RespondPaymentRequired(c, "PAYMENT_DECLINED", "Payment was declined")
			return
		}
		h.logger.Error("Failed to top up account", "account_id", acc.ID.String(), "error", err)
		RespondInternalError(c)
		return
	}

	RespondOK(c, TopUpResponse{
		Account: mapAccountToResponse(updated),
		Entry:   mapEntryToResponse(entry),
	})
}

// ListTransactions returns the authenticated account's ledger entries
// newest-first with pagination
func (h *BillingHandler) ListTransactions(c *gin.Context) {
	acc, ok := middleware.CurrentAccount(c)
	if !ok {
		RespondUnauthorized(c, "")
		return
	}

	var pagination PaginationParams
	if err := c.ShouldBindQuery(&pagination); err != nil {
		h.logger.Error("Invalid pagination parameters", "error", err)
		RespondBadRequest(c, "Invalid pagination parameters")
		return
	}

	entries, total, err := h.billing.ListEntries(c.Request.Context(), acc.ID, pagination.Limit, pagination.Offset)
	if err != nil {
		h.logger.Error("Failed to list ledger entries", "account_id", acc.ID.String(), "error", err)
		RespondInternalError(c)
		return
	}

	responses := make([]EntryResponse, 0, len(entries))
	for _, entry := range entries {
		responses = append(responses, mapEntryToResponse(entry))
	}

	RespondWithPaginatedData(c, http.StatusOK, responses, pagination.Limit, pagination.Offset, int(total))
}

// mapEntryToResponse maps a ledger entry to an entry response DTO
func mapEntryToResponse(entry *ledger.Entry) EntryResponse {
	return EntryResponse{
		ID:            entry.ID,
		AccountID:     entry.AccountID.String(),
		Kind:          string(entry.Kind),
		Amount:        entry.Amount,
		BalanceAfter:  entry.BalanceAfter,
		Annotation:    entry.Annotation,
		CorrelationID: entry.CorrelationID,
		CreatedAt:     entry.CreatedAt.Format(time.RFC3339),
	}
}
