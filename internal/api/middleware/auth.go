package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/inference-billing-ledger/internal/domain/account"
)

// AccountKey is the gin context key holding the authenticated account
const AccountKey = "current_account"

// TokenVerifier resolves a bearer token to a verified account ID
type TokenVerifier interface {
	Verify(token string) (uuid.UUID, error)
}

// AccountResolver loads the account a verified token names
type AccountResolver interface {
	GetAccount(ctx context.Context, id uuid.UUID) (*account.Account, error)
}

// Auth middleware authenticates the request via its bearer token and stores
// the resolved account in the context. Everything behind it trusts that
// account identity without further checks.
func Auth(logger *slog.Logger, tokens TokenVerifier, accounts AccountResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		const bearerPrefix = "Bearer "
		if header == "" || !strings.HasPrefix(header, bearerPrefix) {
			abortUnauthorized(c, "Not authenticated")
			return
		}

		accountID, err := tokens.Verify(header[len(bearerPrefix):])
		if err != nil {
			abortUnauthorized(c, "Could not validate credentials")
			return
		}

		acct, err := accounts.GetAccount(c.Request.Context(), accountID)
		if err != nil {
			if errors.Is(err, account.ErrAccountNotFound{}) {
				abortUnauthorized(c, "Could not validate credentials")
				return
			}
			logger.Error("Failed to load account for authenticated request",
				"account_id", accountID.String(), "error", err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"error": gin.H{"code": "INTERNAL_SERVER_ERROR", "message": "An internal server error occurred"},
			})
			return
		}

		c.Set(AccountKey, acct)
		c.Next()
	}
}

// CurrentAccount retrieves the authenticated account from the gin context
func CurrentAccount(c *gin.Context) (*account.Account, bool) {
	if v, exists := c.Get(AccountKey); exists {
		if acct, ok := v.(*account.Account); ok {
			return acct, true
		}
	}
	return nil, false
}

func abortUnauthorized(c *gin.Context, message string) {
	c.Header("WWW-Authenticate", "Bearer")
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"error": gin.H{"code": "UNAUTHORIZED", "message": message},
	})
}
