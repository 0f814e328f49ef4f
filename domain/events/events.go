package events

import "time"

// Type enumerates the registry event kinds. Typed constants replace the
// stringly-keyed emitter of earlier iterations so a subscriber cannot
// listen for an event that does not exist.
type Type string

const (
	TypeRegistered        Type = "component.registered"
	TypeUnregistered      Type = "component.unregistered"
	TypeUpdated           Type = "component.updated"
	TypeVersionCreated    Type = "version.created"
	TypeVersionReverted   Type = "version.reverted"
	TypeCodeChangeApplied Type = "code_change.applied"
	TypeCodeChangeFailed  Type = "code_change.failed"
	TypeError             Type = "registry.error"
)

// AllTypes lists every event kind, for subscribe-all consumers.
func AllTypes() []Type {
	return []Type{
		TypeRegistered,
		TypeUnregistered,
		TypeUpdated,
		TypeVersionCreated,
		TypeVersionReverted,
		TypeCodeChangeApplied,
		TypeCodeChangeFailed,
		TypeError,
	}
}

// Event is a registry notification. ComponentID is always set except for
// batch-level errors; the remaining fields are populated per kind.
type Event struct {
	Type        Type      `json:"type"`
	ComponentID string    `json:"component_id,omitempty"`
	VersionID   string    `json:"version_id,omitempty"`
	BatchID     string    `json:"batch_id,omitempty"`
	Error       string    `json:"error,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

// NewRegistered creates a component.registered event
func NewRegistered(componentID, versionID string) Event {
	return Event{Type: TypeRegistered, ComponentID: componentID, VersionID: versionID, Timestamp: time.Now()}
}

// NewUnregistered creates a component.unregistered event
func NewUnregistered(componentID string) Event {
	return Event{Type: TypeUnregistered, ComponentID: componentID, Timestamp: time.Now()}
}

// NewUpdated creates a component.updated event
func NewUpdated(componentID, versionID string) Event {
	return Event{Type: TypeUpdated, ComponentID: componentID, VersionID: versionID, Timestamp: time.Now()}
}

// NewVersionCreated creates a version.created event
func NewVersionCreated(componentID, versionID string) Event {
	return Event{Type: TypeVersionCreated, ComponentID: componentID, VersionID: versionID, Timestamp: time.Now()}
}

// NewVersionReverted creates a version.reverted event
func NewVersionReverted(componentID, versionID string) Event {
	return Event{Type: TypeVersionReverted, ComponentID: componentID, VersionID: versionID, Timestamp: time.Now()}
}

// NewCodeChangeApplied creates a code_change.applied event
func NewCodeChangeApplied(componentID, versionID, batchID string) Event {
	return Event{Type: TypeCodeChangeApplied, ComponentID: componentID, VersionID: versionID, BatchID: batchID, Timestamp: time.Now()}
}

// NewCodeChangeFailed creates a code_change.failed event
func NewCodeChangeFailed(componentID, batchID, reason string) Event {
	return Event{Type: TypeCodeChangeFailed, ComponentID: componentID, BatchID: batchID, Error: reason, Timestamp: time.Now()}
}

// NewError creates a registry.error event
func NewError(componentID, reason string) Event {
	return Event{Type: TypeError, ComponentID: componentID, Error: reason, Timestamp: time.Now()}
}
