package graph

import (
	"strings"

	"github.com/OFFIS-RIT/wisdom/pkg/common"
)

// AnalyzeDependencies reports the node count, the bottlenecks (in-degree > 1)
// and the isolated nodes (degree 0) of g, in node insertion order.
func AnalyzeDependencies(g *Graph) common.DependencyReport {
	report := common.DependencyReport{
		TotalNodes:    g.NumNodes(),
		Bottlenecks:   []string{},
		IsolatedNodes: []string{},
	}
	for _, id := range g.order {
		if g.InDegree(id) > 1 {
			report.Bottlenecks = append(report.Bottlenecks, id)
		}
		if g.Degree(id) == 0 {
			report.IsolatedNodes = append(report.IsolatedNodes, id)
		}
	}
	return report
}

// TypeOf returns the authoritative type of a node, falling back to InferType
// when the graph has no category tag for it.
func (g *Graph) TypeOf(id string) common.NodeType {
	if t, ok := g.types[id]; ok && t != common.NodeTypeUnknown {
		return t
	}
	return InferType(id)
}

var eventPrefixes = []string{"JIRA-", "COMMIT", "JENKINS", "RELEASE"}

// InferType guesses a node type from the surface form of its identifier.
// It is only a fallback for nodes that were referenced but never declared.
func InferType(id string) common.NodeType {
	switch {
	case strings.Contains(id, "Team") || strings.Contains(id, "team"):
		return common.NodeTypeTeam
	case strings.Contains(id, "App") || strings.Contains(id, "Service"):
		return common.NodeTypeApplication
	case strings.Contains(id, "VM"):
		return common.NodeTypeServer
	case strings.Contains(id, " "):
		return common.NodeTypePerson
	}
	for _, prefix := range eventPrefixes {
		if strings.HasPrefix(id, prefix) {
			return common.NodeTypeEvent
		}
	}
	return common.NodeTypeTool
}

// PerspectiveEntry is one component seen through a perspective.
type PerspectiveEntry struct {
	Component  string   `json:"component"`
	Type       string   `json:"type"`
	Evaluation any      `json:"evaluation,omitempty"`
	UsesTools  []string `json:"uses_tools,omitempty"`
}

// AnalyzePerspectives groups tools by the keys of their "perspectives" map and
// people by their "role" (default "General").
func AnalyzePerspectives(model common.OrganizationModel) map[string][]PerspectiveEntry {
	out := make(map[string][]PerspectiveEntry)

	for _, tool := range model.Entities("tools") {
		name, ok := tool.ID("name")
		if !ok {
			continue
		}
		for perspective, evaluation := range tool.Map("perspectives") {
			out[perspective] = append(out[perspective], PerspectiveEntry{
				Component:  name,
				Type:       "Tool",
				Evaluation: evaluation,
			})
		}
	}

	for _, person := range model.Entities("people") {
		name, ok := person.ID("name")
		if !ok {
			continue
		}
		role, ok := person.ID("role")
		if !ok {
			role = "General"
		}
		out[role] = append(out[role], PerspectiveEntry{
			Component: name,
			Type:      "Person",
			UsesTools: person.Strings("uses_tools"),
		})
	}

	return out
}
