// Package inference resolves pricing tiers to loaded model resources and
// executes predictions against them. Model loading happens at most once per
// tier; invocations run on a bounded worker pool so a slow prediction never
// stalls request handling or holds any account lock.
package inference

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/inference-billing-ledger/internal/config"
	"github.com/panjf2000/ants/v2"
)

// ErrComputationFailed wraps model invocation errors so callers can
// discriminate them from billing failures
var ErrComputationFailed = errors.New("model invocation failed")

// ErrModelUnavailable indicates a tier's model resource failed to load and the
// stub fallback is disabled by configuration
type ErrModelUnavailable struct {
	Tier string
}

func (e ErrModelUnavailable) Error() string {
	return "model resource unavailable for tier: " + e.Tier
}

// Is implements the errors.Is interface for ErrModelUnavailable
func (e ErrModelUnavailable) Is(target error) bool {
	t, ok := target.(ErrModelUnavailable)
	if !ok {
		return false
	}
	if t.Tier == "" {
		return true
	}
	return e.Tier == t.Tier
}

// Gateway resolves tiers to models and runs predictions on a worker pool
type Gateway struct {
	paths            map[string]string
	fallbackDisabled bool
	pool             *ants.Pool
	logger           *slog.Logger

	// mu guards the populate step only; cached reads go through the read lock
	// and multiple concurrent predictions against one model never block each other
	mu     sync.RWMutex
	models map[string]Model
}

// NewGateway creates a gateway with a bounded invocation pool
func NewGateway(logger *slog.Logger, cfg *config.InferenceConfig) (*Gateway, error) {
	pool, err := ants.NewPool(cfg.PoolSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create inference worker pool: %w", err)
	}

	return &Gateway{
		paths:            cfg.ModelPaths(),
		fallbackDisabled: cfg.FallbackDisabled,
		pool:             pool,
		logger:           logger,
		models:           make(map[string]Model),
	}, nil
}

// Resolve returns the model for a tier, loading and caching it on first use.
// A load failure is recovered by caching the deterministic stub responder,
// logged as a degradation; with MODEL_FALLBACK_DISABLED the failure is
// surfaced as ErrModelUnavailable instead.
func (g *Gateway) Resolve(tier string) (Model, error) {
	g.mu.RLock()
	model, ok := g.models[tier]
	g.mu.RUnlock()
	if ok {
		return model, nil
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	// Another caller may have populated the cache while we waited
	if model, ok := g.models[tier]; ok {
		return model, nil
	}

	model, err := loadModel(g.paths[tier])
	if err != nil {
		if g.fallbackDisabled {
			g.logger.Error("Model resource failed to load and fallback is disabled",
				"tier", tier, "path", g.paths[tier], "error", err)
			return nil, ErrModelUnavailable{Tier: tier}
		}
		g.logger.Warn("Model resource failed to load, falling back to stub responder",
			"tier", tier, "path", g.paths[tier], "error", err)
		model = stubModel{}
	}

	g.models[tier] = model
	return model, nil
}

// Invoke executes the model against the feature vector on the worker pool.
// It returns as soon as the context is canceled, without waiting for the
// prediction, so a timed-out request never proceeds to billing.
func (g *Gateway) Invoke(ctx context.Context, model Model, features []float64) (float64, error) {
	type prediction struct {
		value float64
		err   error
	}
	resultChan := make(chan prediction, 1)

	err := g.pool.Submit(func() {
		value, err := model.Predict(features)
		resultChan <- prediction{value: value, err: err}
	})
	if err != nil {
		return 0, fmt.Errorf("failed to submit prediction to worker pool: %w", err)
	}

	select {
	case <-ctx.Done():
		return 0, ctx.Err()
	case res := <-resultChan:
		if res.err != nil {
			return 0, fmt.Errorf("%w: %w", ErrComputationFailed, res.err)
		}
		return res.value, nil
	}
}

// Shutdown releases the invocation worker pool
func (g *Gateway) Shutdown() {
	g.logger.Info("Shutting down inference worker pool", "running_workers", g.pool.Running())
	g.pool.Release()
}

// Running returns the number of in-flight predictions
func (g *Gateway) Running() int {
	return g.pool.Running()
}
