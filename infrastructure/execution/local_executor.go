package execution

import (
	"context"

	"go.uber.org/zap"

	"forge-backend/application/ports"
	pkgerrors "forge-backend/pkg/errors"
)

// LocalExecutor is the default in-process executor. It accepts every
// change as-is; a deployment that compiles or sandboxes candidate source
// swaps in its own CodeExecutor at wiring time.
type LocalExecutor struct {
	logger *zap.Logger
}

func NewLocalExecutor(logger *zap.Logger) *LocalExecutor {
	return &LocalExecutor{logger: logger}
}

var _ ports.CodeExecutor = (*LocalExecutor)(nil)

// ExecuteCodeChange returns the input source unchanged.
func (e *LocalExecutor) ExecuteCodeChange(ctx context.Context, req ports.ExecutionRequest) (ports.ExecutionResult, error) {
	if err := ctx.Err(); err != nil {
		return ports.ExecutionResult{}, pkgerrors.Wrap(err, "execution cancelled")
	}

	e.logger.Debug("Applying code change locally",
		zap.String("component_id", req.ComponentID),
		zap.Int("source_bytes", len(req.SourceCode)),
	)

	return ports.ExecutionResult{
		Success:       true,
		NewSourceCode: req.SourceCode,
	}, nil
}
