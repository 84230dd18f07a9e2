// Package config provides configuration structures and validation for the
// application. It handles environment-based configuration for all major
// components: the HTTP server, the Postgres-backed ledger store, the pricing
// table, model resource locations, and the event publishing pipeline.
package config

import (
	"errors"
	"strings"
	"time"
)

// Config holds the complete application configuration. Each field represents a
// subsystem's configuration and is validated during application startup.
type Config struct {
	Application ApplicationConfig
	Logging     LoggingConfig
	Server      ServerConfig
	Auth        AuthConfig
	Postgres    PostgresConfig
	Kafka       KafkaConfig
	Outbox      OutboxConfig
	Billing     BillingConfig
	Inference   InferenceConfig
}

// ApplicationConfig contains general application configuration
type ApplicationConfig struct {
	Env  string
	Name string
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level string
}

// ServerConfig contains HTTP server configuration settings
type ServerConfig struct {
	Port            int           // Port to listen on
	ShutdownTimeout time.Duration // Grace period for server shutdown
	ReadTimeout     time.Duration // Maximum duration for reading entire request
	WriteTimeout    time.Duration // Maximum duration for writing response
	IdleTimeout     time.Duration // Maximum duration to wait for next request
}

// AuthConfig contains token issuance configuration
type AuthConfig struct {
	JWTSecret   string
	TokenExpiry time.Duration
}

// PostgresConfig contains PostgreSQL configuration
type PostgresConfig struct {
	URL             string        // Database connection string
	MaxConns        int32         // Maximum number of open connections
	MinConns        int32         // Maximum number of idle connections
	ConnMaxLifetime time.Duration // Maximum lifetime of a connection
	ConnMaxIdleTime time.Duration // Maximum idle time of a connection
	MigrationsPath  string        // Path to migration files
}

// KafkaConfig contains configuration for the ledger event stream
type KafkaConfig struct {
	Brokers           string
	LedgerEventsTopic string
	NumPartitions     int
	ReplicationFactor int
	WriteTimeout      time.Duration
}

// OutboxConfig contains outbox pattern configuration for ledger event publishing
type OutboxConfig struct {
	PollingInterval  time.Duration
	BatchSize        int
	MaxRetryAttempts int // Attempts before a message is marked failed
}

// BillingConfig contains the per-tier price table and top-up defaults.
// Prices are in credits (integer minor units); a zero price makes the tier free.
type BillingConfig struct {
	PriceBasic         int64
	PricePro           int64
	PricePremium       int64
	TopupDefaultAmount int64
}

// PriceTable returns the tier name to per-call price mapping
func (c *BillingConfig) PriceTable() map[string]int64 {
	return map[string]int64{
		"basic":   c.PriceBasic,
		"pro":     c.PricePro,
		"premium": c.PricePremium,
	}
}

// InferenceConfig contains model gateway configuration
type InferenceConfig struct {
	ModelBasicPath   string
	ModelProPath     string
	ModelPremiumPath string
	PoolSize         int  // Worker pool size for model invocations
	FallbackDisabled bool // When true, a failed model load is a hard error
}

// ModelPaths returns the tier name to model resource locator mapping
func (c *InferenceConfig) ModelPaths() map[string]string {
	return map[string]string{
		"basic":   c.ModelBasicPath,
		"pro":     c.ModelProPath,
		"premium": c.ModelPremiumPath,
	}
}

// validate performs comprehensive validation of all configuration values,
// ensuring they meet minimum requirements and logical constraints
func (c *Config) validate() error {
	var validationErrors []string

	// Validate Server config
	if c.Server.Port <= 0 {
		validationErrors = append(validationErrors, "SERVER_PORT must be greater than 0")
	}
	if c.Server.ShutdownTimeout <= 0 {
		validationErrors = append(validationErrors, "SERVER_SHUTDOWN_TIMEOUT must be greater than 0")
	}
	if c.Server.ReadTimeout <= 0 {
		validationErrors = append(validationErrors, "SERVER_READ_TIMEOUT must be greater than 0")
	}
	if c.Server.WriteTimeout <= 0 {
		validationErrors = append(validationErrors, "SERVER_WRITE_TIMEOUT must be greater than 0")
	}
	if c.Server.IdleTimeout <= 0 {
		validationErrors = append(validationErrors, "SERVER_IDLE_TIMEOUT must be greater than 0")
	}

	// Validate Auth config
	if c.Auth.JWTSecret == "" {
		validationErrors = append(validationErrors, "AUTH_JWT_SECRET is required")
	}
	if c.Auth.TokenExpiry <= 0 {
		validationErrors = append(validationErrors, "AUTH_TOKEN_EXPIRY must be greater than 0")
	}

	// Validate PostgreSQL config
	if c.Postgres.URL == "" {
		validationErrors = append(validationErrors, "POSTGRES_URL is required")
	}
	if c.Postgres.MaxConns <= 0 {
		validationErrors = append(validationErrors, "POSTGRES_MAX_CONNS must be greater than 0")
	}
	if c.Postgres.MinConns <= 0 {
		validationErrors = append(validationErrors, "POSTGRES_MIN_CONNS must be greater than 0")
	}
	if c.Postgres.ConnMaxLifetime <= 0 {
		validationErrors = append(validationErrors, "POSTGRES_MAX_CONN_LIFETIME must be greater than 0")
	}
	if c.Postgres.ConnMaxIdleTime <= 0 {
		validationErrors = append(validationErrors, "POSTGRES_MAX_CONN_IDLE_TIME must be greater than 0")
	}

	// Validate Kafka config
	if len(c.Kafka.Brokers) == 0 {
		validationErrors = append(validationErrors, "KAFKA_BROKERS is required")
	}
	if c.Kafka.LedgerEventsTopic == "" {
		validationErrors = append(validationErrors, "KAFKA_LEDGER_EVENTS_TOPIC is required")
	}
	if c.Kafka.WriteTimeout <= 0 {
		validationErrors = append(validationErrors, "KAFKA_WRITE_TIMEOUT must be greater than 0")
	}

	// Validate Outbox config
	if c.Outbox.PollingInterval <= 0 {
		validationErrors = append(validationErrors, "OUTBOX_POLLING_INTERVAL must be greater than 0")
	}
	if c.Outbox.BatchSize <= 0 {
		validationErrors = append(validationErrors, "OUTBOX_BATCH_SIZE must be greater than 0")
	}
	if c.Outbox.MaxRetryAttempts <= 0 {
		validationErrors = append(validationErrors, "OUTBOX_MAX_RETRY_ATTEMPTS must be greater than 0")
	}

	// Validate Billing config; a zero price is legal and means the tier is free
	if c.Billing.PriceBasic < 0 {
		validationErrors = append(validationErrors, "PRICE_BASIC_CREDITS must not be negative")
	}
	if c.Billing.PricePro < 0 {
		validationErrors = append(validationErrors, "PRICE_PRO_CREDITS must not be negative")
	}
	if c.Billing.PricePremium < 0 {
		validationErrors = append(validationErrors, "PRICE_PREMIUM_CREDITS must not be negative")
	}
	if c.Billing.TopupDefaultAmount <= 0 {
		validationErrors = append(validationErrors, "TOPUP_DEFAULT_AMOUNT must be greater than 0")
	}

	// Validate Inference config
	if c.Inference.PoolSize <= 0 {
		validationErrors = append(validationErrors, "INFERENCE_POOL_SIZE must be greater than 0")
	}

	if len(validationErrors) > 0 {
		return errors.New(strings.Join(validationErrors, ", "))
	}

	return nil
}
