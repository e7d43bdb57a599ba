package chaos

import (
	"github.com/OFFIS-RIT/wisdom/pkg/graph"
)

// DetectFeedbackLoops returns every simple cycle of g exactly once, using
// Johnson's algorithm. Each cycle starts at its member that was inserted
// into the graph first; self-loops are one-node cycles.
func DetectFeedbackLoops(g *graph.Graph) [][]string {
	nodes := g.Nodes()
	index := make(map[string]int, len(nodes))
	for i, id := range nodes {
		index[id] = i
	}

	succ := make([][]int, len(nodes))
	pred := make([][]int, len(nodes))
	for i, id := range nodes {
		for _, t := range g.Successors(id) {
			j := index[t]
			succ[i] = append(succ[i], j)
			pred[j] = append(pred[j], i)
		}
	}

	cycles := [][]string{}
	for s := range nodes {
		comp := componentOf(s, succ, pred)
		if len(comp) == 1 && !hasSelfLoop(s, succ) {
			continue
		}
		j := &johnson{
			succ:    succ,
			comp:    comp,
			start:   s,
			blocked: make(map[int]bool),
			b:       make(map[int]map[int]struct{}),
			emit: func(path []int) {
				cycle := make([]string, len(path))
				for k, v := range path {
					cycle[k] = nodes[v]
				}
				cycles = append(cycles, cycle)
			},
		}
		j.circuit(s)
	}
	return cycles
}

// componentOf returns the strongly connected component of s in the subgraph
// induced by the vertices with index >= s.
func componentOf(s int, succ, pred [][]int) map[int]bool {
	forward := reach(s, succ)
	backward := reach(s, pred)
	comp := make(map[int]bool)
	for v := range forward {
		if backward[v] {
			comp[v] = true
		}
	}
	return comp
}

func reach(s int, adj [][]int) map[int]bool {
	seen := map[int]bool{s: true}
	stack := []int{s}
	for len(stack) > 0 {
		v := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, w := range adj[v] {
			if w < s || seen[w] {
				continue
			}
			seen[w] = true
			stack = append(stack, w)
		}
	}
	return seen
}

func hasSelfLoop(v int, succ [][]int) bool {
	for _, w := range succ[v] {
		if w == v {
			return true
		}
	}
	return false
}

type johnson struct {
	succ    [][]int
	comp    map[int]bool
	start   int
	blocked map[int]bool
	b       map[int]map[int]struct{}
	stack   []int
	emit    func([]int)
}

func (j *johnson) circuit(v int) bool {
	found := false
	j.stack = append(j.stack, v)
	j.blocked[v] = true

	for _, w := range j.succ[v] {
		if !j.comp[w] {
			continue
		}
		if w == j.start {
			j.emit(j.stack)
			found = true
		} else if !j.blocked[w] && j.circuit(w) {
			found = true
		}
	}

	if found {
		j.unblock(v)
	} else {
		for _, w := range j.succ[v] {
			if !j.comp[w] {
				continue
			}
			if j.b[w] == nil {
				j.b[w] = make(map[int]struct{})
			}
			j.b[w][v] = struct{}{}
		}
	}

	j.stack = j.stack[:len(j.stack)-1]
	return found
}

func (j *johnson) unblock(u int) {
	j.blocked[u] = false
	for w := range j.b[u] {
		delete(j.b[u], w)
		if j.blocked[w] {
			j.unblock(w)
		}
	}
}
