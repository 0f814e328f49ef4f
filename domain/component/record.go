package component

import (
	"time"

	"github.com/google/uuid"

	pkgerrors "forge-backend/pkg/errors"
)

// Permissions is the capability flag set attached to a component.
// The registry stores and forwards it; only the validator collaborator
// interprets it.
type Permissions struct {
	AllowCreation     bool `json:"allow_creation"`
	AllowDeletion     bool `json:"allow_deletion"`
	AllowStyleChanges bool `json:"allow_style_changes"`
	AllowLogicChanges bool `json:"allow_logic_changes"`
	AllowDataBinding  bool `json:"allow_data_binding"`
	AllowNetworkCalls bool `json:"allow_network_calls"`
}

// DefaultPermissions returns the permission set granted to components
// registered without an explicit one. Style and logic edits are allowed,
// lifecycle and network capabilities are not.
func DefaultPermissions() Permissions {
	return Permissions{
		AllowStyleChanges: true,
		AllowLogicChanges: true,
		AllowDataBinding:  true,
	}
}

// Record is the stored identity and payload for one modifiable UI
// component. SourceCode is an opaque string; the registry never parses it.
type Record struct {
	ID                   string                 `json:"id" validate:"required"`
	Name                 string                 `json:"name"`
	SourceCode           string                 `json:"source_code,omitempty"`
	Path                 []string               `json:"path,omitempty"`
	DeclaredDependencies []string               `json:"declared_dependencies,omitempty"`
	Metadata             map[string]interface{} `json:"metadata,omitempty"`
	Permissions          Permissions            `json:"permissions"`
	CreatedAt            time.Time              `json:"created_at"`
	UpdatedAt            time.Time              `json:"updated_at"`
}

// NewRecord creates a record with a generated ID when the caller did not
// supply one. The ID is immutable once set.
func NewRecord(id, name string) *Record {
	if id == "" {
		id = uuid.New().String()
	}
	now := time.Now()
	return &Record{
		ID:                   id,
		Name:                 name,
		Path:                 []string{},
		DeclaredDependencies: []string{},
		Metadata:             make(map[string]interface{}),
		Permissions:          DefaultPermissions(),
		CreatedAt:            now,
		UpdatedAt:            now,
	}
}

// Normalize fills missing optional collections with empty defaults so no
// downstream consumer ever sees a nil slice or map.
func (r *Record) Normalize() {
	if r.Path == nil {
		r.Path = []string{}
	}
	if r.DeclaredDependencies == nil {
		r.DeclaredDependencies = []string{}
	}
	if r.Metadata == nil {
		r.Metadata = make(map[string]interface{})
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now()
	}
	if r.UpdatedAt.IsZero() {
		r.UpdatedAt = r.CreatedAt
	}
}

// Clone returns a deep copy so store snapshots cannot be mutated by
// callers behind the store's back.
func (r *Record) Clone() *Record {
	cp := *r
	cp.Path = append([]string(nil), r.Path...)
	cp.DeclaredDependencies = append([]string(nil), r.DeclaredDependencies...)
	cp.Metadata = make(map[string]interface{}, len(r.Metadata))
	for k, v := range r.Metadata {
		cp.Metadata[k] = v
	}
	return &cp
}

// Validate checks record invariants before it enters the store.
func (r *Record) Validate() error {
	if r.ID == "" {
		return pkgerrors.NewValidationError("component id cannot be empty")
	}
	if r.Name == "" {
		return pkgerrors.NewValidationError("component name cannot be empty")
	}
	return nil
}

// UpdateFields carries a partial update. Nil pointers mean "leave the
// stored value untouched"; set pointers overwrite, so omitted and
// explicitly-zero fields have unambiguous semantics.
type UpdateFields struct {
	Name                 *string                 `json:"name,omitempty"`
	SourceCode           *string                 `json:"source_code,omitempty"`
	Path                 *[]string               `json:"path,omitempty"`
	DeclaredDependencies *[]string               `json:"declared_dependencies,omitempty"`
	Metadata             *map[string]interface{} `json:"metadata,omitempty"`
	Permissions          *Permissions            `json:"permissions,omitempty"`
}

// IsEmpty reports whether the partial carries no changes at all.
func (u UpdateFields) IsEmpty() bool {
	return u.Name == nil && u.SourceCode == nil && u.Path == nil &&
		u.DeclaredDependencies == nil && u.Metadata == nil && u.Permissions == nil
}

// ApplyTo merges the set fields into the record and bumps UpdatedAt.
// The record ID is never touched.
func (u UpdateFields) ApplyTo(r *Record) {
	if u.Name != nil {
		r.Name = *u.Name
	}
	if u.SourceCode != nil {
		r.SourceCode = *u.SourceCode
	}
	if u.Path != nil {
		r.Path = append([]string(nil), (*u.Path)...)
	}
	if u.DeclaredDependencies != nil {
		r.DeclaredDependencies = append([]string(nil), (*u.DeclaredDependencies)...)
	}
	if u.Metadata != nil {
		r.Metadata = make(map[string]interface{}, len(*u.Metadata))
		for k, v := range *u.Metadata {
			r.Metadata[k] = v
		}
	}
	if u.Permissions != nil {
		r.Permissions = *u.Permissions
	}
	r.UpdatedAt = time.Now()
}

// IsPathAncestor reports whether candidate's path is a strict prefix of
// child's path, meaning candidate is an ancestor in the declared
// hierarchy. Registration uses this to infer parent links.
func IsPathAncestor(candidate, child []string) bool {
	if len(candidate) == 0 || len(candidate) >= len(child) {
		return false
	}
	for i, seg := range candidate {
		if child[i] != seg {
			return false
		}
	}
	return true
}
