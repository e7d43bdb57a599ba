package graph

import (
	"github.com/OFFIS-RIT/wisdom/pkg/common"
)

// Graph is a directed dependency graph over entity identifiers.
//
// Nodes keep their insertion order so every traversal (and every random draw
// made per node by the scoring engines) is reproducible. Parallel edges are
// collapsed, self-loops are kept.
//
// A Graph is not safe for concurrent mutation. Once built it is only read,
// and concurrent reads are safe.
type Graph struct {
	order []string
	types map[string]common.NodeType

	succ    map[string][]string
	pred    map[string][]string
	edgeSet map[common.Edge]struct{}
	edges   []common.Edge

	skipped int
}

// New returns an empty graph.
func New() *Graph {
	return &Graph{
		types:   make(map[string]common.NodeType),
		succ:    make(map[string][]string),
		pred:    make(map[string][]string),
		edgeSet: make(map[common.Edge]struct{}),
	}
}

func (g *Graph) ensure(id string) {
	if _, ok := g.types[id]; ok {
		return
	}
	g.order = append(g.order, id)
	g.types[id] = common.NodeTypeUnknown
}

// AddNode adds a node or re-tags an existing one. A later declaration wins,
// so the same identifier declared in two categories keeps the last type.
func (g *Graph) AddNode(id string, t common.NodeType) {
	if id == "" {
		return
	}
	g.ensure(id)
	if t != "" {
		g.types[id] = t
	}
}

// AddEdge adds the directed edge src -> dst. Unknown endpoints are created
// with type "unknown"; empty identifiers are ignored.
func (g *Graph) AddEdge(src, dst string) {
	if src == "" || dst == "" {
		return
	}
	g.ensure(src)
	g.ensure(dst)

	e := common.Edge{Source: src, Target: dst}
	if _, ok := g.edgeSet[e]; ok {
		return
	}
	g.edgeSet[e] = struct{}{}
	g.edges = append(g.edges, e)
	g.succ[src] = append(g.succ[src], dst)
	g.pred[dst] = append(g.pred[dst], src)
}

// Nodes returns the node identifiers in insertion order.
func (g *Graph) Nodes() []string {
	out := make([]string, len(g.order))
	copy(out, g.order)
	return out
}

// Edges returns the edges in insertion order.
func (g *Graph) Edges() []common.Edge {
	out := make([]common.Edge, len(g.edges))
	copy(out, g.edges)
	return out
}

func (g *Graph) NumNodes() int { return len(g.order) }
func (g *Graph) NumEdges() int { return len(g.edges) }

// Skipped is the number of entities dropped during Build because they had no
// identifying field.
func (g *Graph) Skipped() int { return g.skipped }

func (g *Graph) HasNode(id string) bool {
	_, ok := g.types[id]
	return ok
}

func (g *Graph) HasEdge(src, dst string) bool {
	_, ok := g.edgeSet[common.Edge{Source: src, Target: dst}]
	return ok
}

// NodeType returns the authoritative category tag of a node.
func (g *Graph) NodeType(id string) (common.NodeType, bool) {
	t, ok := g.types[id]
	return t, ok
}

// Types returns a copy of the node type map.
func (g *Graph) Types() map[string]common.NodeType {
	out := make(map[string]common.NodeType, len(g.types))
	for k, v := range g.types {
		out[k] = v
	}
	return out
}

// Successors returns the direct targets of id in insertion order.
func (g *Graph) Successors(id string) []string {
	return append([]string(nil), g.succ[id]...)
}

// Predecessors returns the nodes with an edge into id in insertion order.
func (g *Graph) Predecessors(id string) []string {
	return append([]string(nil), g.pred[id]...)
}

func (g *Graph) InDegree(id string) int  { return len(g.pred[id]) }
func (g *Graph) OutDegree(id string) int { return len(g.succ[id]) }

// Degree is in-degree plus out-degree; a self-loop counts twice.
func (g *Graph) Degree(id string) int {
	return g.InDegree(id) + g.OutDegree(id)
}

// Snapshot exports the graph in adjacency-list form.
func (g *Graph) Snapshot() *common.Snapshot {
	s := &common.Snapshot{
		Adjacency: make(map[string]common.Targets, len(g.order)),
		Types:     g.Types(),
	}
	for _, id := range g.order {
		targets := make(common.Targets, len(g.succ[id]))
		copy(targets, g.succ[id])
		s.Adjacency[id] = targets
	}
	return s
}
