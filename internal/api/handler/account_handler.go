package handler

import (
	"errors"
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/inference-billing-ledger/internal/api/middleware"
	"github.com/inference-billing-ledger/internal/domain/account"
)

// AccountHandler handles HTTP requests for registration, login, and account state
type AccountHandler struct {
	billing BillingService
	tokens  TokenManager
	logger  *slog.Logger
}

// NewAccountHandler creates a new account handler
func NewAccountHandler(logger *slog.Logger, billing BillingService, tokens TokenManager) *AccountHandler {
	return &AccountHandler{
		billing: billing,
		tokens:  tokens,
		logger:  logger,
	}
}

// Register creates a new account with zero balance on the lowest tier
func (h *AccountHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	passwordHash, err := h.tokens.HashPassword(req.Password)
	if err != nil {
		h.logger.Error("Failed to hash password", "error", err)
		RespondInternalError(c)
		return
	}

	acc, err := h.billing.Register(c.Request.Context(), req.Email, passwordHash)
	if err != nil {
		var duplicateEmailErr account.ErrDuplicateEmail
		if errors.As(err, &duplicateEmailErr) {
			h.logger.Warn("Attempt to register with duplicate email", "email", duplicateEmailErr.Email)
			RespondConflict(c, "Account with this email already exists")
			return
		}
		h.logger.Error("Failed to register account", "error", err)
		RespondInternalError(c)
		return
	}

	RespondCreated(c, mapAccountToResponse(acc))
}

// Login exchanges email and password for a bearer token
func (h *AccountHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	acc, err := h.billing.GetAccountByEmail(c.Request.Context(), req.Email)
	if err != nil {
		h.logger.Error("Failed to look up account", "error", err)
		RespondInternalError(c)
		return
	}
	if acc == nil || !h.tokens.CheckPassword(req.Password, acc.PasswordHash) {
		RespondUnauthorized(c, "Incorrect email or password")
		return
	}

	token, err := h.tokens.Issue(acc.ID)
	if err != nil {
		h.logger.Error("Failed to issue token", "account_id", acc.ID.String(), "error", err)
		RespondInternalError(c)
		return
	}

	RespondOK(c, TokenResponse{AccessToken: token, TokenType: "bearer"})
}

// Me returns the authenticated account
func (h *AccountHandler) Me(c *gin.Context) {
	acc, ok := middleware.CurrentAccount(c)
	if !ok {
		RespondUnauthorized(c, "")
		return
	}

	RespondOK(c, mapAccountToResponse(acc))
}

// ChangeTier moves the authenticated account to another pricing tier
func (h *AccountHandler) ChangeTier(c *gin.Context) {
	acc, ok := middleware.CurrentAccount(c)
	if !ok {
		RespondUnauthorized(c, "")
		return
	}

	var req ChangeTierRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	updated, err := h.billing.SetTier(c.Request.Context(), acc.ID, req.Tier)
	if err != nil {
		if errors.Is(err, account.ErrInvalidTier) {
			RespondBadRequest(c, "Unknown tier: "+req.Tier)
			return
		}
		h.logger.Error("Failed to change tier", "account_id", acc.ID.String(), "error", err)
		RespondInternalError(c)
		return
	}

	RespondOK(c, mapAccountToResponse(updated))
}

// mapAccountToResponse maps an account entity to an account response DTO
func mapAccountToResponse(acc *account.Account) AccountResponse {
	return AccountResponse{
		ID:        acc.ID.String(),
		Email:     acc.Email,
		IsAdmin:   acc.IsAdmin,
		Balance:   acc.Balance,
		Tier:      string(acc.Tier),
		CreatedAt: acc.CreatedAt.Format(time.RFC3339),
		UpdatedAt: acc.UpdatedAt.Format(time.RFC3339),
	}
}
