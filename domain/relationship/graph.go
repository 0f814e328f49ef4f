package relationship

import (
	"sort"
	"sync"

	"go.uber.org/zap"

	pkgerrors "forge-backend/pkg/errors"
)

// Record is the relationship view for one component. Sibling IDs are
// derived: the other children of the same parent.
type Record struct {
	ComponentID     string   `json:"component_id"`
	ParentID        string   `json:"parent_id,omitempty"`
	ChildrenIDs     []string `json:"children_ids"`
	SiblingIDs      []string `json:"sibling_ids"`
	DependsOn       []string `json:"depends_on"`
	DependedOnBy    []string `json:"depended_on_by"`
	SharedStateKeys []string `json:"shared_state_keys"`
}

// entry is the mutable per-component relationship state. Children,
// dependencies and state keys are sets; dependsOn and dependedOnBy are
// always kept as exact inverses of each other.
type entry struct {
	parentID     string
	children     map[string]struct{}
	dependsOn    map[string]struct{}
	dependedOnBy map[string]struct{}
	stateKeys    map[string]struct{}
}

func newEntry() *entry {
	return &entry{
		children:     make(map[string]struct{}),
		dependsOn:    make(map[string]struct{}),
		dependedOnBy: make(map[string]struct{}),
		stateKeys:    make(map[string]struct{}),
	}
}

// Graph maintains typed edges between component IDs: a parent/child
// forest, a general dependency digraph (cycles allowed, traversals are
// visited-set guarded) and shared-state usage with a reverse index.
type Graph struct {
	mu         sync.RWMutex
	entries    map[string]*entry
	stateIndex map[string]map[string]struct{} // state key -> component IDs using it
	logger     *zap.Logger
}

// NewGraph creates an empty relationship graph.
func NewGraph(logger *zap.Logger) *Graph {
	return &Graph{
		entries:    make(map[string]*entry),
		stateIndex: make(map[string]map[string]struct{}),
		logger:     logger,
	}
}

// AddComponent ensures a relationship entry exists for the component and
// merges any relationship payload carried on the record, e.g. shared
// state keys surviving a re-registration.
func (g *Graph) AddComponent(rec Record) error {
	if rec.ComponentID == "" {
		return pkgerrors.NewValidationError("component id cannot be empty")
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	e := g.ensure(rec.ComponentID)
	for _, key := range rec.SharedStateKeys {
		e.stateKeys[key] = struct{}{}
		g.indexState(key, rec.ComponentID)
	}
	for _, dep := range rec.DependsOn {
		if dep == rec.ComponentID {
			continue
		}
		other := g.ensure(dep)
		e.dependsOn[dep] = struct{}{}
		other.dependedOnBy[rec.ComponentID] = struct{}{}
	}
	return nil
}

// Has reports whether the component is known to the graph.
func (g *Graph) Has(id string) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	_, ok := g.entries[id]
	return ok
}

// Count returns the number of known components.
func (g *Graph) Count() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.entries)
}

// RemoveComponent deletes the component's entry and scrubs every
// reference to it from all other entries and from the state index.
// Returns false when the component was unknown.
func (g *Graph) RemoveComponent(id string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	e, ok := g.entries[id]
	if !ok {
		return false
	}

	if e.parentID != "" {
		if parent, ok := g.entries[e.parentID]; ok {
			delete(parent.children, id)
		}
	}
	for child := range e.children {
		if c, ok := g.entries[child]; ok {
			c.parentID = ""
		}
	}
	for dep := range e.dependsOn {
		if d, ok := g.entries[dep]; ok {
			delete(d.dependedOnBy, id)
		}
	}
	for dependent := range e.dependedOnBy {
		if d, ok := g.entries[dependent]; ok {
			delete(d.dependsOn, id)
		}
	}
	for key := range e.stateKeys {
		if users, ok := g.stateIndex[key]; ok {
			delete(users, id)
			if len(users) == 0 {
				delete(g.stateIndex, key)
			}
		}
	}

	delete(g.entries, id)
	return true
}

// SetParentChild links child under parent. Idempotent: re-linking the
// same pair changes nothing. A child that already had another parent is
// re-homed, keeping the parent/child relation a forest.
func (g *Graph) SetParentChild(parentID, childID string) error {
	if parentID == childID {
		return pkgerrors.NewValidationError("component cannot be its own parent")
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	parent, ok := g.entries[parentID]
	if !ok {
		return pkgerrors.NewNotFoundError("parent component " + parentID)
	}
	child, ok := g.entries[childID]
	if !ok {
		return pkgerrors.NewNotFoundError("child component " + childID)
	}

	// Walk up from the prospective parent; linking must keep the
	// parent/child relation a forest.
	for ancestor := parentID; ancestor != ""; {
		if ancestor == childID {
			return pkgerrors.NewConflictError("parent/child link would create a cycle")
		}
		a, ok := g.entries[ancestor]
		if !ok {
			break
		}
		ancestor = a.parentID
	}

	if child.parentID != "" && child.parentID != parentID {
		if prev, ok := g.entries[child.parentID]; ok {
			delete(prev.children, childID)
		}
	}

	parent.children[childID] = struct{}{}
	child.parentID = parentID
	return nil
}

// AddDependency records that dependent depends on dependency, updating
// both sides of the inverse pair. Idempotent.
func (g *Graph) AddDependency(dependentID, dependencyID string) error {
	if dependentID == dependencyID {
		return pkgerrors.NewValidationError("component cannot depend on itself")
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	dependent, ok := g.entries[dependentID]
	if !ok {
		return pkgerrors.NewNotFoundError("dependent component " + dependentID)
	}
	dependency, ok := g.entries[dependencyID]
	if !ok {
		return pkgerrors.NewNotFoundError("dependency component " + dependencyID)
	}

	dependent.dependsOn[dependencyID] = struct{}{}
	dependency.dependedOnBy[dependentID] = struct{}{}
	return nil
}

// TrackStateUsage records that the component reads or writes the given
// shared-state key, maintaining the reverse index for impact queries.
func (g *Graph) TrackStateUsage(componentID, key string) error {
	if key == "" {
		return pkgerrors.NewValidationError("state key cannot be empty")
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	e, ok := g.entries[componentID]
	if !ok {
		return pkgerrors.NewNotFoundError("component " + componentID)
	}

	e.stateKeys[key] = struct{}{}
	g.indexState(key, componentID)
	return nil
}

// Relationships returns the relationship view for the component, with
// siblings derived from the parent's other children.
func (g *Graph) Relationships(id string) (Record, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	e, ok := g.entries[id]
	if !ok {
		return Record{}, false
	}
	return g.view(id, e), true
}

// ComponentsUsingState returns every component known to use the key.
func (g *Graph) ComponentsUsingState(key string) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return sortedKeys(g.stateIndex[key])
}

// AffectedComponents computes the blast radius of a change to the seed
// components: everything reachable by following dependedOnBy edges,
// parent links, and shared-state co-usage, transitively. The seeds
// themselves are never part of the result. Traversal is visited-set
// guarded, so dependency cycles terminate.
func (g *Graph) AffectedComponents(seeds []string) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	visited := make(map[string]struct{}, len(seeds))
	queue := make([]string, 0, len(seeds))
	for _, id := range seeds {
		if _, ok := g.entries[id]; !ok {
			continue
		}
		if _, seen := visited[id]; seen {
			continue
		}
		visited[id] = struct{}{}
		queue = append(queue, id)
	}

	enqueue := func(id string) {
		if _, ok := g.entries[id]; !ok {
			return
		}
		if _, seen := visited[id]; seen {
			return
		}
		visited[id] = struct{}{}
		queue = append(queue, id)
	}

	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		e := g.entries[id]

		// Anything depending on a changed component is affected.
		for dependent := range e.dependedOnBy {
			enqueue(dependent)
		}
		// A child's change can affect its parent's rendering.
		if e.parentID != "" {
			enqueue(e.parentID)
		}
		// Co-users of shared state are affected through the state key.
		for key := range e.stateKeys {
			for user := range g.stateIndex[key] {
				enqueue(user)
			}
		}
	}

	seedSet := make(map[string]struct{}, len(seeds))
	for _, id := range seeds {
		seedSet[id] = struct{}{}
	}

	affected := make([]string, 0, len(visited))
	for id := range visited {
		if _, isSeed := seedSet[id]; !isSeed {
			affected = append(affected, id)
		}
	}
	sort.Strings(affected)
	return affected
}

// RelatedStateKeys returns the state keys "in play" for a change to the
// component: its own keys plus those of its direct dependencies and
// dependents. One hop only, not transitive.
func (g *Graph) RelatedStateKeys(id string) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	e, ok := g.entries[id]
	if !ok {
		return []string{}
	}

	keys := make(map[string]struct{}, len(e.stateKeys))
	for key := range e.stateKeys {
		keys[key] = struct{}{}
	}
	collect := func(neighborID string) {
		if n, ok := g.entries[neighborID]; ok {
			for key := range n.stateKeys {
				keys[key] = struct{}{}
			}
		}
	}
	for dep := range e.dependsOn {
		collect(dep)
	}
	for dependent := range e.dependedOnBy {
		collect(dependent)
	}

	return sortedKeys(keys)
}

// ensure returns the entry for id, creating an empty one if needed.
// Caller must hold the write lock.
func (g *Graph) ensure(id string) *entry {
	e, ok := g.entries[id]
	if !ok {
		e = newEntry()
		g.entries[id] = e
	}
	return e
}

// indexState adds the component to the reverse state index.
// Caller must hold the write lock.
func (g *Graph) indexState(key, componentID string) {
	users, ok := g.stateIndex[key]
	if !ok {
		users = make(map[string]struct{})
		g.stateIndex[key] = users
	}
	users[componentID] = struct{}{}
}

// view materializes the exported record for id.
// Caller must hold at least the read lock.
func (g *Graph) view(id string, e *entry) Record {
	rec := Record{
		ComponentID:     id,
		ParentID:        e.parentID,
		ChildrenIDs:     sortedKeys(e.children),
		SiblingIDs:      []string{},
		DependsOn:       sortedKeys(e.dependsOn),
		DependedOnBy:    sortedKeys(e.dependedOnBy),
		SharedStateKeys: sortedKeys(e.stateKeys),
	}

	if e.parentID != "" {
		if parent, ok := g.entries[e.parentID]; ok {
			siblings := make([]string, 0, len(parent.children))
			for child := range parent.children {
				if child != id {
					siblings = append(siblings, child)
				}
			}
			sort.Strings(siblings)
			rec.SiblingIDs = siblings
		}
	}
	return rec
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
