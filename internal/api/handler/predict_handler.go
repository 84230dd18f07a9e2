package handler

import (
	"errors"
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/inference-billing-ledger/internal/api/middleware"
	"github.com/inference-billing-ledger/internal/domain/account"
	"github.com/inference-billing-ledger/internal/inference"
)

// PredictHandler handles HTTP requests for billed predictions
type PredictHandler struct {
	predictions PredictionService
	logger      *slog.Logger
}

// NewPredictHandler creates a new prediction handler
func NewPredictHandler(logger *slog.Logger, predictions PredictionService) *PredictHandler {
	return &PredictHandler{
		predictions: predictions,
		logger:      logger,
	}
}

// Predict runs a billed prediction for the authenticated account. The
// computation runs before the charge; a charge that fails for insufficient
// funds returns 402 with no balance change even though the result was
// computed.
func (h *PredictHandler) Predict(c *gin.Context) {
	acc, ok := middleware.CurrentAccount(c)
	if !ok {
		RespondUnauthorized(c, "")
		return
	}

	var req PredictRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	result, err := h.predictions.Predict(c.Request.Context(), acc, req.Features)
	if err != nil {
		switch {
		case errors.Is(err, account.ErrInvalidTier):
			RespondBadRequest(c, "Account tier has no configured price")
		case errors.Is(err, account.ErrInsufficientFunds):
			RespondPaymentRequired(c, "INSUFFICIENT_FUNDS", "Insufficient credits for this prediction")
		case errors.Is(err, inference.ErrComputationFailed):
			RespondWithError(c, 400, "COMPUTATION_FAILED", "Model could not compute a prediction: "+err.Error())
		case errors.Is(err, inference.ErrModelUnavailable{}):
			RespondServiceUnavailable(c, "Model for this tier is unavailable")
		default:
			h.logger.Error("Failed to run billed prediction",
				"account_id", acc.ID.String(), "error", err)
			RespondInternalError(c)
		}
		return
	}

	RespondOK(c, PredictResponse{
		Result:  result.Value,
		Charged: result.Charged,
		Balance: result.Account.Balance,
		Tier:    string(result.Account.Tier),
	})
}
