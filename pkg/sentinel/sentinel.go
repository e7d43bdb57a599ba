// Package sentinel compares two snapshots of a dependency graph and reports
// what changed between them.
package sentinel

import (
	"errors"
	"sort"

	"github.com/OFFIS-RIT/wisdom/pkg/common"
	"github.com/OFFIS-RIT/wisdom/pkg/graph"
)

// ErrNoBaseline is returned when a diff is requested without a previous
// snapshot. Callers must branch on it instead of treating it as "all added".
var ErrNoBaseline = errors.New("sentinel: no baseline snapshot available")

// Diff compares prev against cur.
//
// Nodes are compared as sets. Edges are compared per node over the union of
// both node sets: a node only in cur contributes all its edges as added, a
// node only in prev contributes all its edges as removed, and each edge is
// reported once. Nodes present in both snapshots whose target sets differ are
// listed in ChangedRelationships. All lists are sorted.
func Diff(prev, cur *common.Snapshot) (common.DiffResult, error) {
	if prev == nil {
		return common.DiffResult{}, ErrNoBaseline
	}
	if cur == nil {
		cur = &common.Snapshot{}
	}

	result := common.DiffResult{
		AddedNodes:           []string{},
		RemovedNodes:         []string{},
		AddedEdges:           []common.Edge{},
		RemovedEdges:         []common.Edge{},
		ChangedRelationships: []common.RelationshipChange{},
	}

	for _, n := range cur.Nodes() {
		if _, ok := prev.Adjacency[n]; !ok {
			result.AddedNodes = append(result.AddedNodes, n)
		}
	}
	for _, n := range prev.Nodes() {
		if _, ok := cur.Adjacency[n]; !ok {
			result.RemovedNodes = append(result.RemovedNodes, n)
		}
	}

	for _, n := range union(prev, cur) {
		before := prev.TargetSet(n)
		after := cur.TargetSet(n)

		added := minus(after, before)
		removed := minus(before, after)
		for _, t := range added {
			result.AddedEdges = append(result.AddedEdges, common.Edge{Source: n, Target: t})
		}
		for _, t := range removed {
			result.RemovedEdges = append(result.RemovedEdges, common.Edge{Source: n, Target: t})
		}

		_, inPrev := prev.Adjacency[n]
		_, inCur := cur.Adjacency[n]
		if inPrev && inCur && (len(added) > 0 || len(removed) > 0) {
			result.ChangedRelationships = append(result.ChangedRelationships, common.RelationshipChange{
				Node:   n,
				Before: sorted(before),
				After:  sorted(after),
			})
		}
	}

	return result, nil
}

// DiffGraphs is Diff over two built graphs. A nil prev yields ErrNoBaseline.
func DiffGraphs(prev, cur *graph.Graph) (common.DiffResult, error) {
	if prev == nil {
		return common.DiffResult{}, ErrNoBaseline
	}
	var curSnap *common.Snapshot
	if cur != nil {
		curSnap = cur.Snapshot()
	}
	return Diff(prev.Snapshot(), curSnap)
}

func union(a, b *common.Snapshot) []string {
	set := make(map[string]struct{}, len(a.Adjacency)+len(b.Adjacency))
	for n := range a.Adjacency {
		set[n] = struct{}{}
	}
	for n := range b.Adjacency {
		set[n] = struct{}{}
	}
	return sorted(set)
}

func minus(a, b map[string]struct{}) []string {
	out := []string{}
	for k := range a {
		if _, ok := b[k]; !ok {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}

func sorted(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
