package version

import (
	"time"

	"github.com/google/uuid"
)

// Record is an immutable, timestamped snapshot of a component's source
// payload. Once created it is never mutated; reverts append new records
// instead of rewriting history.
type Record struct {
	ID          string    `json:"id"`
	ComponentID string    `json:"component_id"`
	Timestamp   time.Time `json:"timestamp"`
	SourceCode  string    `json:"source_code"`
	Description string    `json:"description"`
	Author      string    `json:"author,omitempty"`
}

// NewRecord allocates a snapshot for the given component.
func NewRecord(componentID, sourceCode, description, author string) *Record {
	return &Record{
		ID:          uuid.New().String(),
		ComponentID: componentID,
		Timestamp:   time.Now(),
		SourceCode:  sourceCode,
		Description: description,
		Author:      author,
	}
}
