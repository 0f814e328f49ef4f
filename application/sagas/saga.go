// Package sagas implements the compensating-transaction engine behind
// multi-component changes. This is best-effort atomicity, not two-phase
// commit: each applied step registers a compensation, and the first
// failure stops the run and unwinds what already succeeded.
package sagas

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Step is a single unit of a saga: an action plus the compensation that
// undoes it. Compensate may be nil for steps with nothing to unwind.
type Step struct {
	Name       string
	Execute    func(ctx context.Context) error
	Compensate func(ctx context.Context) error
}

// State tracks a saga run through the batch state machine.
type State string

const (
	StatePending     State = "PENDING"
	StateApplying    State = "APPLYING"
	StateCompleted   State = "COMPLETED"
	StateFailed      State = "FAILED"
	StateRollingBack State = "ROLLING_BACK"
	StateRolledBack  State = "ROLLED_BACK"
)

// Saga orchestrates a series of steps with compensation logic. Steps run
// strictly sequentially so rollback targets are well defined.
type Saga struct {
	id            string
	name          string
	steps         []Step
	compensations []func(ctx context.Context) error
	state         State
	logger        *zap.Logger
}

// New creates a saga instance.
func New(name string, logger *zap.Logger) *Saga {
	return &Saga{
		id:     uuid.New().String(),
		name:   name,
		state:  StatePending,
		logger: logger,
	}
}

// AddStep appends a step to the saga.
func (s *Saga) AddStep(step Step) *Saga {
	s.steps = append(s.steps, step)
	return s
}

// Execute runs the saga. On the first step failure it compensates every
// previously applied step and returns the step's error.
func (s *Saga) Execute(ctx context.Context) error {
	s.state = StateApplying
	s.logger.Info("Starting saga execution",
		zap.String("saga_id", s.id),
		zap.String("saga_name", s.name),
		zap.Int("total_steps", len(s.steps)),
	)

	for i, step := range s.steps {
		s.logger.Debug("Executing saga step",
			zap.String("saga_id", s.id),
			zap.String("step_name", step.Name),
			zap.Int("step_number", i+1),
		)

		if err := step.Execute(ctx); err != nil {
			s.state = StateFailed
			s.logger.Error("Saga step failed",
				zap.String("saga_id", s.id),
				zap.String("step_name", step.Name),
				zap.Error(err),
			)

			s.compensate(ctx)
			return fmt.Errorf("saga %s failed at step %s: %w", s.name, step.Name, err)
		}

		if step.Compensate != nil {
			s.compensations = append(s.compensations, step.Compensate)
		}
	}

	s.state = StateCompleted
	s.logger.Info("Saga completed",
		zap.String("saga_id", s.id),
		zap.String("saga_name", s.name),
		zap.Int("steps", len(s.steps)),
	)
	return nil
}

// compensate unwinds applied steps in reverse order. A failing
// compensation is logged and the remaining ones still run.
func (s *Saga) compensate(ctx context.Context) {
	s.state = StateRollingBack
	s.logger.Info("Starting saga compensation",
		zap.String("saga_id", s.id),
		zap.String("saga_name", s.name),
		zap.Int("steps_to_compensate", len(s.compensations)),
	)

	for i := len(s.compensations) - 1; i >= 0; i-- {
		if err := s.compensations[i](ctx); err != nil {
			s.logger.Error("Compensation failed",
				zap.String("saga_id", s.id),
				zap.Int("step_number", i+1),
				zap.Error(err),
			)
		}
	}

	s.state = StateRolledBack
}

// ID returns the saga's unique ID.
func (s *Saga) ID() string {
	return s.id
}

// GetState returns the saga's current state.
func (s *Saga) GetState() State {
	return s.state
}
