// Package ports defines the interfaces the registry depends on. The
// orchestrator is written against these, never against concrete
// implementations, so storage and the external collaborators stay
// swappable and independently testable.
package ports

import (
	"context"

	"forge-backend/domain/component"
)

// ComponentStore is keyed CRUD storage for component records. It has no
// awareness of versions or relationships.
type ComponentStore interface {
	// Store inserts or overwrites a record, normalizing missing
	// optional collections to empty defaults.
	Store(ctx context.Context, record *component.Record) error

	// Get returns a copy of the record, or a NotFound error.
	Get(ctx context.Context, id string) (*component.Record, error)

	// Update merges the partial fields into the existing record and
	// returns the updated copy. NotFound error for unknown IDs.
	Update(ctx context.Context, id string, fields component.UpdateFields) (*component.Record, error)

	// Remove deletes the record and reports whether it existed.
	Remove(ctx context.Context, id string) (bool, error)

	// GetAll returns a snapshot of all current records keyed by ID.
	GetAll(ctx context.Context) (map[string]*component.Record, error)

	// Has is a pure existence check.
	Has(ctx context.Context, id string) bool
}

// ValidationResult is the validator's verdict on a proposed code change.
type ValidationResult struct {
	IsValid bool   `json:"is_valid"`
	Error   string `json:"error,omitempty"`
}

// Validator is the permission/safety collaborator. The registry treats
// it as a pure decision function with no visible side effects.
type Validator interface {
	// ValidateComponent decides whether a record may be registered.
	ValidateComponent(ctx context.Context, record *component.Record) bool

	// ValidateCodeChange checks the proposed source against the current
	// source (nil when the component has none yet) and the stored
	// permissions.
	ValidateCodeChange(ctx context.Context, newSource string, oldSource *string, perms component.Permissions) ValidationResult
}

// ExecutionRequest asks the sandboxed executor collaborator to
// materialize a proposed source change.
type ExecutionRequest struct {
	ComponentID string `json:"component_id"`
	SourceCode  string `json:"source_code"`
	Description string `json:"description,omitempty"`
}

// ExecutionResult is the executor's outcome. On success NewSourceCode is
// the final source to persist, which may differ from the input, e.g.
// after formatting.
type ExecutionResult struct {
	Success       bool   `json:"success"`
	NewSourceCode string `json:"new_source_code,omitempty"`
	Error         string `json:"error,omitempty"`
}

// CodeExecutor compiles/transpiles/runs a candidate source string. How
// it does that is invisible to the registry.
type CodeExecutor interface {
	ExecuteCodeChange(ctx context.Context, req ExecutionRequest) (ExecutionResult, error)
}
