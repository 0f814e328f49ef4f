package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"forge-backend/application/ports"
	"forge-backend/domain/component"
	"forge-backend/domain/version"
	pkgerrors "forge-backend/pkg/errors"
)

// CreateVersionOptions tunes version creation. The zero value snapshots
// the source and writes it back as the component's current source.
type CreateVersionOptions struct {
	// SkipComponentUpdate leaves the component's current source
	// untouched, recording the snapshot only.
	SkipComponentUpdate bool
	Author              string
}

// RevertOptions tunes revert behavior. The zero value appends an audit
// version describing the revert.
type RevertOptions struct {
	// SkipAuditVersion restores the source without appending a
	// revert-marker version.
	SkipAuditVersion bool
	Author           string
}

// VersionManager maintains an append-only, newest-first history of
// source snapshots per component. History is never rewritten: reverts
// append, and only explicit history clearing or component removal
// destroys records.
type VersionManager struct {
	mu        sync.RWMutex
	histories map[string][]*version.Record
	store     ports.ComponentStore
	logger    *zap.Logger
}

// NewVersionManager creates a version manager writing current-source
// updates through the given store.
func NewVersionManager(store ports.ComponentStore, logger *zap.Logger) *VersionManager {
	return &VersionManager{
		histories: make(map[string][]*version.Record),
		store:     store,
		logger:    logger,
	}
}

// CreateVersion snapshots sourceCode for the component, prepends it to
// the history (index 0 is always newest) and, unless suppressed, writes
// the source back as the component's current source.
func (m *VersionManager) CreateVersion(ctx context.Context, componentID, sourceCode, description string, opts CreateVersionOptions) (*version.Record, error) {
	if !m.store.Has(ctx, componentID) {
		return nil, pkgerrors.NewNotFoundError("component " + componentID)
	}

	record := version.NewRecord(componentID, sourceCode, description, opts.Author)

	m.mu.Lock()
	m.histories[componentID] = append([]*version.Record{record}, m.histories[componentID]...)
	m.mu.Unlock()

	if !opts.SkipComponentUpdate {
		if _, err := m.store.Update(ctx, componentID, component.UpdateFields{SourceCode: &sourceCode}); err != nil {
			return nil, pkgerrors.Wrap(err, "failed to update component source")
		}
	}

	m.logger.Debug("Version created",
		zap.String("component_id", componentID),
		zap.String("version_id", record.ID),
		zap.String("description", description),
	)

	return record, nil
}

// GetHistory returns the ordered history, newest first. An unknown
// component yields an empty slice: "no history yet" is a valid state,
// not an error.
func (m *VersionManager) GetHistory(componentID string) []*version.Record {
	m.mu.RLock()
	defer m.mu.RUnlock()

	history := m.histories[componentID]
	out := make([]*version.Record, len(history))
	copy(out, history)
	return out
}

// GetVersion looks up a single version in the component's history.
func (m *VersionManager) GetVersion(componentID, versionID string) (*version.Record, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, record := range m.histories[componentID] {
		if record.ID == versionID {
			return record, true
		}
	}
	return nil, false
}

// Revert restores the component's current source to the target version's
// snapshot. Unless suppressed it appends a new version recording the
// revert, so reverts are auditable events rather than history rewrites.
// Returns false when either the component or the version is unknown.
func (m *VersionManager) Revert(ctx context.Context, componentID, versionID string, opts RevertOptions) (bool, error) {
	target, found := m.GetVersion(componentID, versionID)
	if !found {
		return false, nil
	}

	if opts.SkipAuditVersion {
		if _, err := m.store.Update(ctx, componentID, component.UpdateFields{SourceCode: &target.SourceCode}); err != nil {
			if pkgerrors.IsNotFound(err) {
				return false, nil
			}
			return false, err
		}
		return true, nil
	}

	description := fmt.Sprintf("Reverted to version %s from %s", target.ID, target.Timestamp.Format(time.RFC3339))
	if _, err := m.CreateVersion(ctx, componentID, target.SourceCode, description, CreateVersionOptions{Author: opts.Author}); err != nil {
		if pkgerrors.IsNotFound(err) {
			return false, nil
		}
		return false, err
	}

	m.logger.Info("Component reverted",
		zap.String("component_id", componentID),
		zap.String("version_id", versionID),
	)

	return true, nil
}

// RemoveHistory destroys the component's history, e.g. on unregister.
func (m *VersionManager) RemoveHistory(componentID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.histories, componentID)
}
