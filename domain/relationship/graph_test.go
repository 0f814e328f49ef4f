package relationship

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	pkgerrors "forge-backend/pkg/errors"
)

func newTestGraph(t *testing.T, ids ...string) *Graph {
	t.Helper()
	g := NewGraph(zap.NewNop())
	for _, id := range ids {
		require.NoError(t, g.AddComponent(Record{ComponentID: id}))
	}
	return g
}

func TestGraph_AddComponent(t *testing.T) {
	g := NewGraph(zap.NewNop())

	err := g.AddComponent(Record{
		ComponentID:     "header",
		SharedStateKeys: []string{"theme"},
		DependsOn:       []string{"button"},
	})
	require.NoError(t, err)

	assert.True(t, g.Has("header"))
	// Dependencies referenced on the record are materialized as entries.
	assert.True(t, g.Has("button"))
	assert.Equal(t, 2, g.Count())

	rec, ok := g.Relationships("header")
	require.True(t, ok)
	assert.Equal(t, []string{"button"}, rec.DependsOn)
	assert.Equal(t, []string{"theme"}, rec.SharedStateKeys)

	inverse, ok := g.Relationships("button")
	require.True(t, ok)
	assert.Equal(t, []string{"header"}, inverse.DependedOnBy)
}

func TestGraph_AddComponent_EmptyID(t *testing.T) {
	g := NewGraph(zap.NewNop())
	err := g.AddComponent(Record{})
	assert.True(t, pkgerrors.IsValidation(err))
}

func TestGraph_SetParentChild(t *testing.T) {
	g := newTestGraph(t, "page", "header", "footer")

	require.NoError(t, g.SetParentChild("page", "header"))
	require.NoError(t, g.SetParentChild("page", "footer"))

	page, ok := g.Relationships("page")
	require.True(t, ok)
	assert.Equal(t, []string{"footer", "header"}, page.ChildrenIDs)

	header, ok := g.Relationships("header")
	require.True(t, ok)
	assert.Equal(t, "page", header.ParentID)
	assert.Equal(t, []string{"footer"}, header.SiblingIDs)

	// Idempotent.
	require.NoError(t, g.SetParentChild("page", "header"))
	page, _ = g.Relationships("page")
	assert.Len(t, page.ChildrenIDs, 2)
}

func TestGraph_SetParentChild_Rehoming(t *testing.T) {
	g := newTestGraph(t, "pageA", "pageB", "widget")

	require.NoError(t, g.SetParentChild("pageA", "widget"))
	require.NoError(t, g.SetParentChild("pageB", "widget"))

	a, _ := g.Relationships("pageA")
	assert.Empty(t, a.ChildrenIDs)

	w, _ := g.Relationships("widget")
	assert.Equal(t, "pageB", w.ParentID)
}

func TestGraph_SetParentChild_Errors(t *testing.T) {
	g := newTestGraph(t, "a", "b", "c")

	assert.True(t, pkgerrors.IsValidation(g.SetParentChild("a", "a")))
	assert.True(t, pkgerrors.IsNotFound(g.SetParentChild("missing", "a")))
	assert.True(t, pkgerrors.IsNotFound(g.SetParentChild("a", "missing")))

	// A link that would turn the forest into a cycle is rejected.
	require.NoError(t, g.SetParentChild("a", "b"))
	require.NoError(t, g.SetParentChild("b", "c"))
	assert.True(t, pkgerrors.IsConflict(g.SetParentChild("c", "a")))
}

func TestGraph_AddDependency(t *testing.T) {
	g := newTestGraph(t, "cart", "button")

	require.NoError(t, g.AddDependency("cart", "button"))

	cart, _ := g.Relationships("cart")
	assert.Equal(t, []string{"button"}, cart.DependsOn)

	button, _ := g.Relationships("button")
	assert.Equal(t, []string{"cart"}, button.DependedOnBy)

	assert.True(t, pkgerrors.IsValidation(g.AddDependency("cart", "cart")))
	assert.True(t, pkgerrors.IsNotFound(g.AddDependency("cart", "missing")))
}

func TestGraph_AddDependency_CyclesAllowed(t *testing.T) {
	g := newTestGraph(t, "a", "b")

	require.NoError(t, g.AddDependency("a", "b"))
	require.NoError(t, g.AddDependency("b", "a"))

	a, _ := g.Relationships("a")
	assert.Equal(t, []string{"b"}, a.DependsOn)
	assert.Equal(t, []string{"b"}, a.DependedOnBy)
}

func TestGraph_TrackStateUsage(t *testing.T) {
	g := newTestGraph(t, "cart", "badge")

	require.NoError(t, g.TrackStateUsage("cart", "cart.items"))
	require.NoError(t, g.TrackStateUsage("badge", "cart.items"))

	assert.Equal(t, []string{"badge", "cart"}, g.ComponentsUsingState("cart.items"))
	assert.Empty(t, g.ComponentsUsingState("unknown.key"))

	assert.True(t, pkgerrors.IsValidation(g.TrackStateUsage("cart", "")))
	assert.True(t, pkgerrors.IsNotFound(g.TrackStateUsage("missing", "k")))
}

func TestGraph_RemoveComponent_ScrubsAllReferences(t *testing.T) {
	g := newTestGraph(t, "page", "widget", "helper")

	require.NoError(t, g.SetParentChild("page", "widget"))
	require.NoError(t, g.AddDependency("widget", "helper"))
	require.NoError(t, g.AddDependency("page", "widget"))
	require.NoError(t, g.TrackStateUsage("widget", "shared.key"))

	assert.True(t, g.RemoveComponent("widget"))
	assert.False(t, g.RemoveComponent("widget"))

	page, _ := g.Relationships("page")
	assert.Empty(t, page.ChildrenIDs)
	assert.Empty(t, page.DependsOn)

	helper, _ := g.Relationships("helper")
	assert.Empty(t, helper.DependedOnBy)

	assert.Empty(t, g.ComponentsUsingState("shared.key"))
}

func TestGraph_AffectedComponents(t *testing.T) {
	// button <- cart (dependency), cart is child of page,
	// cart and badge co-use cart.items.
	g := newTestGraph(t, "button", "cart", "page", "badge", "island")

	require.NoError(t, g.AddDependency("cart", "button"))
	require.NoError(t, g.SetParentChild("page", "cart"))
	require.NoError(t, g.TrackStateUsage("cart", "cart.items"))
	require.NoError(t, g.TrackStateUsage("badge", "cart.items"))

	affected := g.AffectedComponents([]string{"button"})

	assert.Equal(t, []string{"badge", "cart", "page"}, affected)
	assert.NotContains(t, affected, "button", "seeds are never in the result")
	assert.NotContains(t, affected, "island")
}

func TestGraph_AffectedComponents_CycleTerminates(t *testing.T) {
	g := newTestGraph(t, "a", "b", "c")

	require.NoError(t, g.AddDependency("a", "b"))
	require.NoError(t, g.AddDependency("b", "c"))
	require.NoError(t, g.AddDependency("c", "a"))

	affected := g.AffectedComponents([]string{"a"})
	assert.Equal(t, []string{"b", "c"}, affected)
}

func TestGraph_AffectedComponents_UnknownSeeds(t *testing.T) {
	g := newTestGraph(t, "a")
	assert.Empty(t, g.AffectedComponents([]string{"missing"}))
	assert.Empty(t, g.AffectedComponents(nil))
}

func TestGraph_RelatedStateKeys_OneHopOnly(t *testing.T) {
	// a -> b -> c; a must see b's keys but not c's.
	g := newTestGraph(t, "a", "b", "c")

	require.NoError(t, g.AddDependency("a", "b"))
	require.NoError(t, g.AddDependency("b", "c"))
	require.NoError(t, g.TrackStateUsage("a", "own.key"))
	require.NoError(t, g.TrackStateUsage("b", "dep.key"))
	require.NoError(t, g.TrackStateUsage("c", "far.key"))

	assert.Equal(t, []string{"dep.key", "own.key"}, g.RelatedStateKeys("a"))

	// Dependents contribute too: b sees both neighbors.
	assert.Equal(t, []string{"dep.key", "far.key", "own.key"}, g.RelatedStateKeys("b"))

	assert.Empty(t, g.RelatedStateKeys("missing"))
}

func TestGraph_Visualize(t *testing.T) {
	g := newTestGraph(t, "page", "cart")

	require.NoError(t, g.SetParentChild("page", "cart"))
	require.NoError(t, g.TrackStateUsage("cart", "cart.items"))

	view := g.Visualize()

	assert.Len(t, view.Nodes, 3) // two components plus one state node

	var nodeIDs []string
	for _, n := range view.Nodes {
		nodeIDs = append(nodeIDs, n.ID)
	}
	assert.Contains(t, nodeIDs, "state:cart.items")

	var edgeTypes []string
	for _, e := range view.Edges {
		edgeTypes = append(edgeTypes, e.Type)
	}
	assert.Contains(t, edgeTypes, EdgeTypeParentChild)
	assert.Contains(t, edgeTypes, EdgeTypeUsesState)
}
