package execution

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"forge-backend/application/ports"
	pkgerrors "forge-backend/pkg/errors"
)

// flakyExecutor fails with a transport error until healed.
type flakyExecutor struct {
	failing bool
	calls   int
}

func (f *flakyExecutor) ExecuteCodeChange(_ context.Context, req ports.ExecutionRequest) (ports.ExecutionResult, error) {
	f.calls++
	if f.failing {
		return ports.ExecutionResult{}, errors.New("sandbox unreachable")
	}
	return ports.ExecutionResult{Success: true, NewSourceCode: req.SourceCode}, nil
}

// rejectingExecutor reports rejected changes without transport errors.
type rejectingExecutor struct{ calls int }

func (r *rejectingExecutor) ExecuteCodeChange(context.Context, ports.ExecutionRequest) (ports.ExecutionResult, error) {
	r.calls++
	return ports.ExecutionResult{Success: false, Error: "does not compile"}, nil
}

func testBreakerConfig() BreakerConfig {
	cfg := DefaultBreakerConfig()
	cfg.MinRequests = 3
	cfg.FailureThreshold = 0.5
	return cfg
}

func TestBreakerExecutor_PassesThroughSuccess(t *testing.T) {
	inner := &flakyExecutor{}
	be := NewBreakerExecutor(inner, testBreakerConfig(), zap.NewNop())

	result, err := be.ExecuteCodeChange(context.Background(), ports.ExecutionRequest{SourceCode: "src"})
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, "src", result.NewSourceCode)
}

func TestBreakerExecutor_OpensOnSustainedTransportErrors(t *testing.T) {
	ctx := context.Background()
	inner := &flakyExecutor{failing: true}
	be := NewBreakerExecutor(inner, testBreakerConfig(), zap.NewNop())

	for i := 0; i < 5; i++ {
		_, err := be.ExecuteCodeChange(ctx, ports.ExecutionRequest{})
		require.Error(t, err)
	}

	callsWhenOpen := inner.calls
	_, err := be.ExecuteCodeChange(ctx, ports.ExecutionRequest{})
	require.Error(t, err)

	// Open breaker: the inner executor is no longer reached and the
	// failure surfaces as an unavailability error.
	assert.Equal(t, callsWhenOpen, inner.calls)
	appErr := pkgerrors.GetAppError(err)
	require.NotNil(t, appErr)
	assert.Equal(t, pkgerrors.ErrorTypeUnavailable, appErr.Type)
}

func TestBreakerExecutor_RejectionsDoNotTrip(t *testing.T) {
	ctx := context.Background()
	inner := &rejectingExecutor{}
	be := NewBreakerExecutor(inner, testBreakerConfig(), zap.NewNop())

	for i := 0; i < 20; i++ {
		result, err := be.ExecuteCodeChange(ctx, ports.ExecutionRequest{})
		require.NoError(t, err)
		assert.False(t, result.Success)
	}

	// Every call reached the executor; rejected changes are expected
	// outcomes, not failures.
	assert.Equal(t, 20, inner.calls)
}

func TestBreakerExecutor_RecoversAfterTimeout(t *testing.T) {
	ctx := context.Background()
	cfg := testBreakerConfig()
	cfg.Timeout = 50 * time.Millisecond

	inner := &flakyExecutor{failing: true}
	be := NewBreakerExecutor(inner, cfg, zap.NewNop())

	for i := 0; i < 5; i++ {
		be.ExecuteCodeChange(ctx, ports.ExecutionRequest{})
	}

	inner.failing = false
	time.Sleep(cfg.Timeout + 20*time.Millisecond)

	result, err := be.ExecuteCodeChange(ctx, ports.ExecutionRequest{})
	require.NoError(t, err)
	assert.True(t, result.Success)
}
