package memory

import (
	"context"
	"sync"

	"forge-backend/application/ports"
	"forge-backend/domain/component"
	pkgerrors "forge-backend/pkg/errors"
)

// ComponentStore provides an in-memory implementation of
// ports.ComponentStore. Records are deep-copied on the way in and out so
// callers can never mutate stored state behind the store's back.
type ComponentStore struct {
	mu      sync.RWMutex
	records map[string]*component.Record
}

var _ ports.ComponentStore = (*ComponentStore)(nil)

// NewComponentStore creates a new in-memory component store.
func NewComponentStore() *ComponentStore {
	return &ComponentStore{
		records: make(map[string]*component.Record),
	}
}

// Store inserts or overwrites a record.
func (s *ComponentStore) Store(ctx context.Context, record *component.Record) error {
	if record == nil || record.ID == "" {
		return pkgerrors.NewValidationError("record must have an id")
	}

	cp := record.Clone()
	cp.Normalize()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.records[cp.ID] = cp
	return nil
}

// Get retrieves a record copy by ID.
func (s *ComponentStore) Get(ctx context.Context, id string) (*component.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, exists := s.records[id]
	if !exists {
		return nil, pkgerrors.NewNotFoundError("component " + id)
	}
	return record.Clone(), nil
}

// Update merges partial fields into an existing record.
func (s *ComponentStore) Update(ctx context.Context, id string, fields component.UpdateFields) (*component.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, exists := s.records[id]
	if !exists {
		return nil, pkgerrors.NewNotFoundError("component " + id)
	}

	fields.ApplyTo(record)
	return record.Clone(), nil
}

// Remove deletes a record and reports whether it existed.
func (s *ComponentStore) Remove(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, existed := s.records[id]
	delete(s.records, id)
	return existed, nil
}

// GetAll returns a snapshot of all current records.
func (s *ComponentStore) GetAll(ctx context.Context) (map[string]*component.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snapshot := make(map[string]*component.Record, len(s.records))
	for id, record := range s.records {
		snapshot[id] = record.Clone()
	}
	return snapshot, nil
}

// Has is a pure existence check.
func (s *ComponentStore) Has(ctx context.Context, id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, exists := s.records[id]
	return exists
}
