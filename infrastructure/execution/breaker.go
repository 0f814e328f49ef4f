// Package execution decorates the external code-executor collaborator.
// The registry core never talks to the sandbox directly; it goes through
// this layer so a wedged executor fails fast instead of stalling changes.
package execution

import (
	"context"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"forge-backend/application/ports"
	pkgerrors "forge-backend/pkg/errors"
)

// BreakerConfig holds circuit breaker tuning for the executor.
type BreakerConfig struct {
	Name             string
	MaxRequests      uint32
	Interval         time.Duration
	Timeout          time.Duration
	FailureThreshold float64
	MinRequests      uint32
}

// DefaultBreakerConfig returns conservative defaults: the breaker only
// trips on a sustained failure rate, not on a single bad change.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		Name:             "code-executor",
		MaxRequests:      5,
		Interval:         30 * time.Second,
		Timeout:          60 * time.Second,
		FailureThreshold: 0.8,
		MinRequests:      5,
	}
}

// BreakerExecutor wraps a ports.CodeExecutor in a circuit breaker.
// Rejected changes (ExecutionResult.Success == false) are expected
// outcomes and do not count as failures; only transport-level errors do.
type BreakerExecutor struct {
	inner   ports.CodeExecutor
	breaker *gobreaker.CircuitBreaker
	logger  *zap.Logger
}

var _ ports.CodeExecutor = (*BreakerExecutor)(nil)

// NewBreakerExecutor wraps the given executor.
func NewBreakerExecutor(inner ports.CodeExecutor, cfg BreakerConfig, logger *zap.Logger) *BreakerExecutor {
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= cfg.FailureThreshold
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("Executor circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})

	return &BreakerExecutor{
		inner:   inner,
		breaker: breaker,
		logger:  logger,
	}
}

// ExecuteCodeChange forwards through the breaker. When the breaker is
// open the call fails immediately with an unavailable error, which the
// orchestrator surfaces as a reported failure.
func (e *BreakerExecutor) ExecuteCodeChange(ctx context.Context, req ports.ExecutionRequest) (ports.ExecutionResult, error) {
	out, err := e.breaker.Execute(func() (interface{}, error) {
		return e.inner.ExecuteCodeChange(ctx, req)
	})
	if err != nil {
		if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
			return ports.ExecutionResult{}, pkgerrors.NewUnavailableError("code executor").WithCause(err)
		}
		return ports.ExecutionResult{}, err
	}
	return out.(ports.ExecutionResult), nil
}
