// Package registry implements the orchestrator composing the component
// store, version manager and relationship graph behind one public
// operation set. All cross-layer coordination happens here; the lower
// layers never call each other.
package registry

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"forge-backend/application/ports"
	"forge-backend/application/services"
	"forge-backend/domain/component"
	"forge-backend/domain/events"
	"forge-backend/domain/relationship"
	"forge-backend/domain/version"
	pkgerrors "forge-backend/pkg/errors"
	"forge-backend/pkg/observability"
)

// Service is the registry orchestrator. It is an explicitly constructed
// instance: created at application start, disposed at shutdown, never a
// module-level global.
type Service struct {
	store     ports.ComponentStore
	versions  *services.VersionManager
	graph     *relationship.Graph
	validator ports.Validator
	executor  ports.CodeExecutor
	bus       *events.Bus
	metrics   *observability.Metrics
	logger    *zap.Logger

	// Serializes multi-component changes so two overlapping batches
	// cannot interleave their rollbacks.
	changeMu sync.Mutex
}

// NewService wires the orchestrator. The validator and executor are the
// external collaborators; everything else is owned state.
func NewService(
	store ports.ComponentStore,
	versions *services.VersionManager,
	graph *relationship.Graph,
	validator ports.Validator,
	executor ports.CodeExecutor,
	bus *events.Bus,
	metrics *observability.Metrics,
	logger *zap.Logger,
) *Service {
	return &Service{
		store:     store,
		versions:  versions,
		graph:     graph,
		validator: validator,
		executor:  executor,
		bus:       bus,
		metrics:   metrics,
		logger:    logger,
	}
}

// RegisterOptions tunes registration side effects.
type RegisterOptions struct {
	// SkipGraphWiring registers the component without inferring parent
	// or dependency edges.
	SkipGraphWiring bool
	// SkipInitialVersion suppresses the initial version snapshot.
	SkipInitialVersion bool
	Author             string
}

// Register validates and stores a component record. Re-registering an
// existing ID routes through Update so the store never holds duplicates.
// On success the component is wired into the relationship graph (parent
// inferred from path, dependencies from declared names), its initial
// version is created when source is present, and a registered event is
// emitted as the last step.
func (s *Service) Register(ctx context.Context, record *component.Record, opts RegisterOptions) (err error) {
	defer func() { s.metrics.RecordOperation("register", err) }()

	if record == nil {
		return pkgerrors.NewValidationError("record cannot be nil")
	}
	record.Normalize()
	if err = record.Validate(); err != nil {
		return err
	}
	if !s.validator.ValidateComponent(ctx, record) {
		return pkgerrors.NewValidationError("component rejected by validator")
	}

	// Re-registration becomes an update; history and relationships for
	// the ID are preserved, never duplicated.
	if s.store.Has(ctx, record.ID) {
		s.logger.Debug("Register routed to update for existing component",
			zap.String("component_id", record.ID),
		)
		return s.Update(ctx, record.ID, component.UpdateFields{
			Name:                 &record.Name,
			SourceCode:           &record.SourceCode,
			Path:                 &record.Path,
			DeclaredDependencies: &record.DeclaredDependencies,
			Metadata:             &record.Metadata,
			Permissions:          &record.Permissions,
		})
	}

	if err = s.store.Store(ctx, record); err != nil {
		return err
	}

	if !opts.SkipGraphWiring {
		if err = s.wireIntoGraph(ctx, record); err != nil {
			return err
		}
	} else {
		if err = s.graph.AddComponent(relationship.Record{ComponentID: record.ID}); err != nil {
			return err
		}
	}

	versionID := ""
	if record.SourceCode != "" && !opts.SkipInitialVersion {
		ver, verr := s.versions.CreateVersion(ctx, record.ID, record.SourceCode, "Initial version", services.CreateVersionOptions{
			SkipComponentUpdate: true,
			Author:              opts.Author,
		})
		if verr != nil {
			err = verr
			return err
		}
		versionID = ver.ID
	}

	s.trackComponentCount(ctx)
	s.logger.Info("Component registered",
		zap.String("component_id", record.ID),
		zap.String("name", record.Name),
	)
	s.bus.Publish(events.NewRegistered(record.ID, versionID))
	return nil
}

// Unregister removes a component, its relationships and its history.
// Unknown IDs are a no-op, not an error.
func (s *Service) Unregister(ctx context.Context, id string) (err error) {
	defer func() { s.metrics.RecordOperation("unregister", err) }()

	if !s.store.Has(ctx, id) {
		return nil
	}

	s.graph.RemoveComponent(id)
	s.versions.RemoveHistory(id)
	if _, err = s.store.Remove(ctx, id); err != nil {
		return err
	}

	s.trackComponentCount(ctx)
	s.logger.Info("Component unregistered", zap.String("component_id", id))
	s.bus.Publish(events.NewUnregistered(id))
	return nil
}

// Update merges partial fields into the stored record. When the update
// changes the source code a new version is created as a side effect.
func (s *Service) Update(ctx context.Context, id string, fields component.UpdateFields) (err error) {
	defer func() { s.metrics.RecordOperation("update", err) }()

	current, err := s.store.Get(ctx, id)
	if err != nil {
		return err
	}

	updated, err := s.store.Update(ctx, id, fields)
	if err != nil {
		return err
	}

	versionID := ""
	if fields.SourceCode != nil && *fields.SourceCode != current.SourceCode {
		ver, verr := s.versions.CreateVersion(ctx, id, updated.SourceCode, "Source updated", services.CreateVersionOptions{
			SkipComponentUpdate: true,
		})
		if verr != nil {
			err = verr
			return err
		}
		versionID = ver.ID
	}

	s.logger.Debug("Component updated", zap.String("component_id", id))
	s.bus.Publish(events.NewUpdated(id, versionID))
	return nil
}

// GetComponent returns a copy of the stored record.
func (s *Service) GetComponent(ctx context.Context, id string) (*component.Record, error) {
	return s.store.Get(ctx, id)
}

// GetAllComponents returns a snapshot of every stored record.
func (s *Service) GetAllComponents(ctx context.Context) (map[string]*component.Record, error) {
	return s.store.GetAll(ctx)
}

// CreateVersion snapshots new source for a component and emits a
// versionCreated event on success.
func (s *Service) CreateVersion(ctx context.Context, componentID, sourceCode, description string, opts services.CreateVersionOptions) (rec *version.Record, err error) {
	defer func() { s.metrics.RecordOperation("create_version", err) }()

	rec, err = s.versions.CreateVersion(ctx, componentID, sourceCode, description, opts)
	if err != nil {
		return nil, err
	}

	s.bus.Publish(events.NewVersionCreated(componentID, rec.ID))
	return rec, nil
}

// GetVersionHistory returns the component's history, newest first.
func (s *Service) GetVersionHistory(componentID string) []*version.Record {
	return s.versions.GetHistory(componentID)
}

// RevertToVersion restores a past snapshot and emits a versionReverted
// event. Returns false when the component or version is unknown.
func (s *Service) RevertToVersion(ctx context.Context, componentID, versionID string, opts services.RevertOptions) (reverted bool, err error) {
	defer func() { s.metrics.RecordOperation("revert", err) }()

	reverted, err = s.versions.Revert(ctx, componentID, versionID, opts)
	if err != nil || !reverted {
		return reverted, err
	}

	s.bus.Publish(events.NewVersionReverted(componentID, versionID))
	return true, nil
}

// GetComponentRelationships delegates to the relationship graph.
func (s *Service) GetComponentRelationships(id string) (relationship.Record, bool) {
	return s.graph.Relationships(id)
}

// SetParentChild links two registered components in the hierarchy.
func (s *Service) SetParentChild(parentID, childID string) error {
	err := s.graph.SetParentChild(parentID, childID)
	s.metrics.RecordOperation("set_parent_child", err)
	return err
}

// AddDependency records a dependency edge between registered components.
func (s *Service) AddDependency(dependentID, dependencyID string) error {
	err := s.graph.AddDependency(dependentID, dependencyID)
	s.metrics.RecordOperation("add_dependency", err)
	return err
}

// TrackStateUsage records that a component uses a shared-state key.
func (s *Service) TrackStateUsage(componentID, key string) error {
	err := s.graph.TrackStateUsage(componentID, key)
	s.metrics.RecordOperation("track_state_usage", err)
	return err
}

// GetAffectedComponents computes the blast radius for the seed set.
func (s *Service) GetAffectedComponents(seeds []string) []string {
	return s.graph.AffectedComponents(seeds)
}

// GetRelatedStateKeys scopes which shared state is in play for a change.
func (s *Service) GetRelatedStateKeys(id string) []string {
	return s.graph.RelatedStateKeys(id)
}

// VisualizeComponentGraph projects the whole graph as node/edge lists.
func (s *Service) VisualizeComponentGraph() relationship.GraphView {
	return s.graph.Visualize()
}

// wireIntoGraph adds the record to the graph and infers edges: the
// closest registered component whose path is a prefix of the record's
// path becomes its parent, and declared dependency names are matched
// against registered component names.
func (s *Service) wireIntoGraph(ctx context.Context, record *component.Record) error {
	if err := s.graph.AddComponent(relationship.Record{ComponentID: record.ID}); err != nil {
		return err
	}

	all, err := s.store.GetAll(ctx)
	if err != nil {
		return err
	}

	if len(record.Path) > 0 {
		var parentID string
		parentDepth := -1
		for id, other := range all {
			if id == record.ID {
				continue
			}
			if component.IsPathAncestor(other.Path, record.Path) && len(other.Path) > parentDepth {
				parentID = id
				parentDepth = len(other.Path)
			}
		}
		if parentID != "" {
			if err := s.graph.SetParentChild(parentID, record.ID); err != nil {
				return err
			}
		}
	}

	for _, depName := range record.DeclaredDependencies {
		for id, other := range all {
			if id == record.ID || other.Name != depName {
				continue
			}
			if err := s.graph.AddDependency(record.ID, id); err != nil {
				return err
			}
		}
	}

	return nil
}

func (s *Service) trackComponentCount(ctx context.Context) {
	all, err := s.store.GetAll(ctx)
	if err != nil {
		return
	}
	s.metrics.SetComponentCount(len(all))
}
