package handler

// RegisterRequest represents a request to register a new account
type RegisterRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
}

// LoginRequest represents a request to exchange credentials for a token
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// TokenResponse represents an issued access token in API responses
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// AccountResponse represents an account in API responses
type AccountResponse struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	IsAdmin   bool   `json:"is_admin"`
	Balance   int64  `json:"balance"`
	Tier      string `json:"tier"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

// TopUpRequest represents a request to purchase credits. A missing amount
// falls back to the configured default.
type TopUpRequest struct {
	Amount int64 `json:"amount"`
}

// TopUpResponse represents the account and the credit entry a top-up produced
type TopUpResponse struct {
	Account AccountResponse `json:"account"`
	Entry   EntryResponse   `json:"entry"`
}

// ChangeTierRequest represents a request to move the account to another tier
type ChangeTierRequest struct {
	Tier string `json:"tier" binding:"required"`
}

// PredictRequest represents a request for a billed prediction
type PredictRequest struct {
	Features []float64 `json:"features" binding:"required,min=1"`
}

// PredictResponse represents the outcome of a billed prediction
type PredictResponse struct {
	Result  float64 `json:"result"`
	Charged int64   `json:"charged"`
	Balance int64   `json:"balance"`
	Tier    string  `json:"tier"`
}

// EntryResponse represents a ledger entry in API responses
type EntryResponse struct {
	ID            int64          `json:"id"`
	AccountID     string         `json:"account_id"`
	Kind          string         `json:"kind"`
	Amount        int64          `json:"amount"`
	BalanceAfter  int64          `json:"balance_after"`
	Annotation    map[string]any `json:"annotation,omitempty"`
	CorrelationID string         `json:"correlation_id,omitempty"`
	CreatedAt     string         `json:"created_at"`
}

// PaginationParams represents pagination parameters for list endpoints
type PaginationParams struct {
	Limit  int `form:"limit,default=50" binding:"min=1,max=100"`
	Offset int `form:"offset,default=0" binding:"min=0"`
}
