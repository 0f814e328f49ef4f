package registry

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"forge-backend/application/ports"
	"forge-backend/application/sagas"
	"forge-backend/application/services"
	"forge-backend/domain/events"
	pkgerrors "forge-backend/pkg/errors"
)

// ChangeRequest proposes new source for a single component.
type ChangeRequest struct {
	ComponentID string `json:"component_id" validate:"required"`
	SourceCode  string `json:"source_code" validate:"required"`
	Description string `json:"description,omitempty"`
	Author      string `json:"author,omitempty"`
}

// ChangeResult is a reported outcome: expected failures (not found,
// validation rejected, executor rejected) are values here, never thrown.
type ChangeResult struct {
	Success     bool   `json:"success"`
	ComponentID string `json:"component_id"`
	VersionID   string `json:"version_id,omitempty"`
	SourceCode  string `json:"source_code,omitempty"`
	Error       string `json:"error,omitempty"`
	RolledBack  bool   `json:"rolled_back,omitempty"`
}

// MultiChangeRequest applies an ordered set of component changes as one
// logical unit. Order matters: changes apply sequentially and rollback
// unwinds whatever had already been applied.
type MultiChangeRequest struct {
	Changes     []ChangeRequest `json:"changes" validate:"required,min=1,dive"`
	Description string          `json:"description,omitempty"`
	Author      string          `json:"author,omitempty"`
}

// MultiChangeResult carries the batch verdict plus the detailed
// per-component result map. The batch outcome is binary: Completed, or
// not (there is no partial-success terminal state).
type MultiChangeResult struct {
	BatchID string                  `json:"batch_id"`
	State   sagas.State             `json:"state"`
	Success bool                    `json:"success"`
	Results map[string]ChangeResult `json:"results"`
}

const stoppedErrMsg = "processing stopped due to earlier error"

// ExecuteCodeChange runs the single-unit change transaction: look up,
// validate, execute via the sandbox collaborator, then version and
// persist. Every failure is a reported result; no error or panic ever
// escapes to the caller or to event subscribers.
func (s *Service) ExecuteCodeChange(ctx context.Context, req ChangeRequest) (result ChangeResult) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			result = s.failChange(req.ComponentID, "", fmt.Sprintf("internal error: %v", r))
			s.bus.Publish(events.NewError(req.ComponentID, result.Error))
		}
		outcome := "applied"
		if !result.Success {
			outcome = "failed"
		}
		s.metrics.ObserveChangeDuration(outcome, time.Since(start))
	}()

	return s.applyChange(ctx, req, "")
}

// applyChange is the shared change pipeline. batchID is empty for
// standalone changes.
func (s *Service) applyChange(ctx context.Context, req ChangeRequest, batchID string) ChangeResult {
	record, err := s.store.Get(ctx, req.ComponentID)
	if err != nil {
		return s.failChange(req.ComponentID, batchID, fmt.Sprintf("component %s not found", req.ComponentID))
	}

	var oldSource *string
	if record.SourceCode != "" {
		oldSource = &record.SourceCode
	}
	verdict := s.validator.ValidateCodeChange(ctx, req.SourceCode, oldSource, record.Permissions)
	if !verdict.IsValid {
		reason := verdict.Error
		if reason == "" {
			reason = "code change rejected by validator"
		}
		return s.failChange(req.ComponentID, batchID, reason)
	}

	execResult, err := s.executor.ExecuteCodeChange(ctx, ports.ExecutionRequest{
		ComponentID: req.ComponentID,
		SourceCode:  req.SourceCode,
		Description: req.Description,
	})
	if err != nil {
		return s.failChange(req.ComponentID, batchID, pkgerrors.Wrap(err, "executor failed").Error())
	}
	if !execResult.Success {
		reason := execResult.Error
		if reason == "" {
			reason = "executor rejected the change"
		}
		return s.failChange(req.ComponentID, batchID, reason)
	}

	// The executor may hand back a transformed source, e.g. after
	// formatting; that is what gets persisted.
	finalSource := execResult.NewSourceCode
	if finalSource == "" {
		finalSource = req.SourceCode
	}

	description := req.Description
	if description == "" {
		description = "Code change"
	}
	ver, err := s.versions.CreateVersion(ctx, req.ComponentID, finalSource, description, services.CreateVersionOptions{
		Author: req.Author,
	})
	if err != nil {
		return s.failChange(req.ComponentID, batchID, pkgerrors.Wrap(err, "failed to record version").Error())
	}

	s.logger.Info("Code change applied",
		zap.String("component_id", req.ComponentID),
		zap.String("version_id", ver.ID),
		zap.String("batch_id", batchID),
	)
	s.bus.Publish(events.NewCodeChangeApplied(req.ComponentID, ver.ID, batchID))

	return ChangeResult{
		Success:     true,
		ComponentID: req.ComponentID,
		VersionID:   ver.ID,
		SourceCode:  finalSource,
	}
}

// failChange builds a reported failure and emits a codeChangeFailed
// event. Nothing has been mutated when this is called.
func (s *Service) failChange(componentID, batchID, reason string) ChangeResult {
	s.logger.Warn("Code change failed",
		zap.String("component_id", componentID),
		zap.String("batch_id", batchID),
		zap.String("reason", reason),
	)
	s.bus.Publish(events.NewCodeChangeFailed(componentID, batchID, reason))
	return ChangeResult{
		Success:     false,
		ComponentID: componentID,
		Error:       reason,
	}
}

// ExecuteMultiComponentChange applies the batch with best-effort
// atomicity: sequential application, stop on first failure, and rollback
// of every already-applied component to its immediately prior version.
// Batches are serialized against each other so overlapping component
// sets cannot interleave rollbacks.
func (s *Service) ExecuteMultiComponentChange(ctx context.Context, req MultiChangeRequest) (result MultiChangeResult) {
	start := time.Now()
	batchID := uuid.New().String()
	defer func() {
		if r := recover(); r != nil {
			reason := fmt.Sprintf("internal error: %v", r)
			s.bus.Publish(events.NewError("", reason))
			result = MultiChangeResult{
				BatchID: batchID,
				State:   sagas.StateFailed,
				Results: map[string]ChangeResult{},
			}
		}
		outcome := "applied"
		if !result.Success {
			outcome = "failed"
		}
		s.metrics.ObserveChangeDuration(outcome, time.Since(start))
	}()

	s.changeMu.Lock()
	defer s.changeMu.Unlock()

	results := make(map[string]ChangeResult, len(req.Changes))

	// Pre-check every referenced component before touching anything.
	missing := false
	for _, change := range req.Changes {
		if !s.store.Has(ctx, change.ComponentID) {
			results[change.ComponentID] = s.failChange(change.ComponentID, batchID, fmt.Sprintf("component %s not found", change.ComponentID))
			missing = true
		}
	}
	if missing {
		s.fillStopped(req, results)
		return MultiChangeResult{BatchID: batchID, State: sagas.StateFailed, Results: results}
	}

	saga := sagas.New("multi-component-change", s.logger)
	for _, change := range req.Changes {
		change := change
		if change.Description == "" {
			change.Description = req.Description
		}
		if change.Author == "" {
			change.Author = req.Author
		}

		saga.AddStep(sagas.Step{
			Name: change.ComponentID,
			Execute: func(ctx context.Context) error {
				res := s.applyChange(ctx, change, batchID)
				results[change.ComponentID] = res
				if !res.Success {
					return fmt.Errorf("change for %s failed: %s", change.ComponentID, res.Error)
				}
				return nil
			},
			Compensate: func(ctx context.Context) error {
				return s.rollbackChange(ctx, change.ComponentID, results)
			},
		})
	}

	err := saga.Execute(ctx)
	if err != nil {
		s.fillStopped(req, results)
		return MultiChangeResult{BatchID: batchID, State: saga.GetState(), Results: results}
	}

	return MultiChangeResult{BatchID: batchID, State: saga.GetState(), Success: true, Results: results}
}

// rollbackChange reverts a just-applied component to the version that
// was current before this batch: index 1, since index 0 is the version
// the batch created. The revert itself creates an audit version so the
// rollback is visible in history.
func (s *Service) rollbackChange(ctx context.Context, componentID string, results map[string]ChangeResult) error {
	history := s.versions.GetHistory(componentID)
	if len(history) < 2 {
		// Nothing before the batch version; restore empty source.
		empty := ""
		if _, err := s.versions.CreateVersion(ctx, componentID, empty, "Rolled back batch change", services.CreateVersionOptions{}); err != nil {
			return err
		}
	} else {
		reverted, err := s.versions.Revert(ctx, componentID, history[1].ID, services.RevertOptions{})
		if err != nil {
			return err
		}
		if !reverted {
			return pkgerrors.NewInternalError("rollback target version disappeared for " + componentID)
		}
	}

	if res, ok := results[componentID]; ok {
		res.RolledBack = true
		results[componentID] = res
	}

	s.logger.Info("Rolled back component change", zap.String("component_id", componentID))
	return nil
}

// fillStopped marks components the batch never reached so the caller
// sees the full intended scope.
func (s *Service) fillStopped(req MultiChangeRequest, results map[string]ChangeResult) {
	for _, change := range req.Changes {
		if _, ok := results[change.ComponentID]; !ok {
			results[change.ComponentID] = ChangeResult{
				Success:     false,
				ComponentID: change.ComponentID,
				Error:       stoppedErrMsg,
			}
		}
	}
}
