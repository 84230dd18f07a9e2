package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/inference-billing-ledger/internal/api"
	"github.com/inference-billing-ledger/internal/auth"
	"github.com/inference-billing-ledger/internal/billing"
	"github.com/inference-billing-ledger/internal/config"
	"github.com/inference-billing-ledger/internal/data/postgres"
	"github.com/inference-billing-ledger/internal/events"
	"github.com/inference-billing-ledger/internal/inference"
	"github.com/inference-billing-ledger/internal/logger"
	"github.com/inference-billing-ledger/internal/payments"
	"github.com/inference-billing-ledger/internal/platform/messaging/producers"
	"github.com/inference-billing-ledger/internal/platform/persistence"
	"github.com/inference-billing-ledger/internal/predict"
)

func main() {
	// Create base context with cancellation
	appCtx, cancelAppCtx := context.WithCancel(context.Background())
	defer cancelAppCtx()

	// Initialize configuration
	cfg, err := config.LoadConfig("api")
	if err != nil {
		// logger is not initialized yet, so we use fmt
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.NewLogger(cfg)

	// Initialize the ledger store
	postgresDB, err := persistence.NewPostgresDB(appCtx, log, &cfg.Postgres)
	if err != nil {
		log.Error("Failed to initialize PostgreSQL", "error", err)
		os.Exit(1)
	}

	// Initialize Kafka producer for ledger events
	eventProducer, err := producers.NewLedgerEventProducer(appCtx, log, &cfg.Kafka)
	if err != nil {
		log.Error("Failed to initialize Kafka producer", "error", err)
		os.Exit(1)
	}

	// Initialize repositories
	accountRepo := postgres.NewAccountRepository(log, postgresDB)
	ledgerRepo := postgres.NewLedgerRepository(log, postgresDB)
	outboxRepo := postgres.NewOutboxRepository(log, postgresDB)

	// Initialize the model gateway with its worker pool
	gateway, err := inference.NewGateway(log, &cfg.Inference)
	if err != nil {
		log.Error("Failed to initialize model gateway", "error", err)
		os.Exit(1)
	}

	// Initialize services
	tokens := auth.NewManager(&cfg.Auth)
	paymentProvider := payments.NewStubProvider(log)
	billingService := billing.NewService(log, postgresDB, accountRepo, ledgerRepo, outboxRepo, paymentProvider)
	predictionService := predict.NewService(log, gateway, billingService, cfg.Billing.PriceTable())

	// Start the outbox poller that publishes committed ledger entries
	poller := events.NewPoller(&cfg.Outbox, outboxRepo, eventProducer, log)
	go poller.Start(appCtx)

	// Initialize REST server
	server := api.NewServer(log, cfg, tokens, billingService, predictionService)
	log.Info("REST server initialized")

	// Create error channel for server errors
	errChan := make(chan error, 1)

	// Start server in goroutine
	go func() {
		log.Info("Starting HTTP server", "port", cfg.Server.Port)
		if err := server.Start(); err != nil {
			errChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	// Set up signal handling
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	// Wait for a shutdown signal or error
	var serverErr error
	select {
	case <-quit:
		log.Info("Shutdown signal received")
	case err := <-errChan:
		log.Error("Server error occurred", "error", err)
		serverErr = err
	}

	// Cancel the application context, stopping the outbox poller
	cancelAppCtx()

	// Create a shutdown context with timeout
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancelShutdown()

	// Graceful shutdown sequence
	log.Info("Starting graceful shutdown...")

	if err = server.Stop(shutdownCtx); err != nil {
		log.Error("Error during server shutdown", "error", err)
	}

	// Drain in-flight model invocations before releasing the pool
	gateway.Shutdown()

	if err = eventProducer.Close(); err != nil {
		log.Error("Error closing Kafka producer", "error", err)
	}

	// Shutdown postgres connection pool
	postgresDB.Close()

	// Final status
	if serverErr != nil {
		log.Error("HTTP server shutdown with errors", "error", serverErr)
	}
	if err != nil {
		log.Error("Server shutdown completed with errors")
	} else {
		log.Info("Server shutdown completed successfully")
	}
}
