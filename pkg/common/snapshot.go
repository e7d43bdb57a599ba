package common

import (
	"encoding/json"
	"sort"
)

// Targets is the outgoing-target list of one node in a Snapshot. It accepts
// scalars and arbitrarily nested lists when decoded from JSON.
type Targets []string

func (t *Targets) UnmarshalJSON(b []byte) error {
	var raw any
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	flat := FlattenTargets(raw)
	if flat == nil {
		flat = []string{}
	}
	*t = flat
	return nil
}

// Snapshot is the adjacency-list form of a dependency graph. Every node of the
// graph is a key of Adjacency, including nodes without outgoing edges.
//
// Snapshots are what a session keeps as its "previous" graph for diffing.
type Snapshot struct {
	Adjacency map[string]Targets  `json:"adjacency"`
	Types     map[string]NodeType `json:"types,omitempty"`
}

// Nodes returns the snapshot's node identifiers in sorted order.
func (s *Snapshot) Nodes() []string {
	if s == nil {
		return nil
	}
	nodes := make([]string, 0, len(s.Adjacency))
	for n := range s.Adjacency {
		nodes = append(nodes, n)
	}
	sort.Strings(nodes)
	return nodes
}

// TargetSet returns the de-duplicated outgoing targets of a node.
func (s *Snapshot) TargetSet(node string) map[string]struct{} {
	set := make(map[string]struct{})
	if s == nil {
		return set
	}
	for _, t := range s.Adjacency[node] {
		set[t] = struct{}{}
	}
	return set
}

// Clone returns a deep copy, so a stored snapshot never aliases a caller's.
func (s *Snapshot) Clone() *Snapshot {
	if s == nil {
		return nil
	}
	out := &Snapshot{
		Adjacency: make(map[string]Targets, len(s.Adjacency)),
	}
	for n, targets := range s.Adjacency {
		cp := make(Targets, len(targets))
		copy(cp, targets)
		out.Adjacency[n] = cp
	}
	if s.Types != nil {
		out.Types = make(map[string]NodeType, len(s.Types))
		for n, t := range s.Types {
			out.Types[n] = t
		}
	}
	return out
}
