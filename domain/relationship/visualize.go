package relationship

import "sort"

// Node and edge type tags used by the graph projection.
const (
	NodeTypeComponent = "component"
	NodeTypeState     = "state"

	EdgeTypeParentChild = "parent-child"
	EdgeTypeDependsOn   = "depends-on"
	EdgeTypeUsesState   = "uses-state"
)

// GraphNode is one node in the visualization projection. State keys
// appear as synthetic nodes so shared-state coupling is visible.
type GraphNode struct {
	ID   string `json:"id"`
	Type string `json:"type"`
}

// GraphEdge is one typed edge in the visualization projection.
type GraphEdge struct {
	From string `json:"from"`
	To   string `json:"to"`
	Type string `json:"type"`
}

// GraphView is the whole relationship structure as a node/edge list, a
// pure projection for inspection and debugging tooling.
type GraphView struct {
	Nodes []GraphNode `json:"nodes"`
	Edges []GraphEdge `json:"edges"`
}

// Visualize materializes every component, synthetic state node and typed
// edge. It never mutates the graph.
func (g *Graph) Visualize() GraphView {
	g.mu.RLock()
	defer g.mu.RUnlock()

	view := GraphView{
		Nodes: make([]GraphNode, 0, len(g.entries)+len(g.stateIndex)),
		Edges: make([]GraphEdge, 0),
	}

	for _, id := range g.componentIDs() {
		e := g.entries[id]
		view.Nodes = append(view.Nodes, GraphNode{ID: id, Type: NodeTypeComponent})

		for _, child := range sortedKeys(e.children) {
			view.Edges = append(view.Edges, GraphEdge{From: id, To: child, Type: EdgeTypeParentChild})
		}
		for _, dep := range sortedKeys(e.dependsOn) {
			view.Edges = append(view.Edges, GraphEdge{From: id, To: dep, Type: EdgeTypeDependsOn})
		}
		for _, key := range sortedKeys(e.stateKeys) {
			view.Edges = append(view.Edges, GraphEdge{From: id, To: stateNodeID(key), Type: EdgeTypeUsesState})
		}
	}

	stateKeys := make([]string, 0, len(g.stateIndex))
	for key := range g.stateIndex {
		stateKeys = append(stateKeys, key)
	}
	sort.Strings(stateKeys)
	for _, key := range stateKeys {
		view.Nodes = append(view.Nodes, GraphNode{ID: stateNodeID(key), Type: NodeTypeState})
	}

	return view
}

func (g *Graph) componentIDs() []string {
	ids := make([]string, 0, len(g.entries))
	for id := range g.entries {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func stateNodeID(key string) string {
	return "state:" + key
}
