package common

// OrganizationModel is the raw mental-model document of an IT organization.
// It is keyed by category name ("tools", "applications", "people", "servers",
// "teams", "events", ...) and each category normally holds a sequence of
// entity records. Values are kept loosely typed because documents come from
// hand-written JSON/YAML and from LLM output alike.
type OrganizationModel map[string]any

// NodeType classifies a node of the dependency graph.
type NodeType string

const (
	NodeTypeTool        NodeType = "tool"
	NodeTypeApplication NodeType = "application"
	NodeTypePerson      NodeType = "person"
	NodeTypeServer      NodeType = "server"
	NodeTypeTeam        NodeType = "team"
	NodeTypeEvent       NodeType = "event"
	NodeTypeUnknown     NodeType = "unknown"
)

// Rating is the categorical label shared by karma intentions and karma ratings.
type Rating string

const (
	RatingPositive Rating = "Positive"
	RatingNeutral  Rating = "Neutral"
	RatingNegative Rating = "Negative"
)

// Edge is a directed "depends on" / "influences" relation between two nodes.
type Edge struct {
	Source string `json:"source"`
	Target string `json:"target"`
}

// DependencyReport is the structural summary of a dependency graph.
//
// Bottlenecks are nodes with more than one incoming edge, isolated nodes have
// neither incoming nor outgoing edges.
type DependencyReport struct {
	TotalNodes    int      `json:"total_nodes"`
	Bottlenecks   []string `json:"bottlenecks"`
	IsolatedNodes []string `json:"isolated_nodes"`
}

// VolatilityMap maps every node to its propagated volatility in [0, 1],
// rounded to two decimals.
type VolatilityMap map[string]float64

// InstabilityReport combines the volatility scores with the feedback loops
// (simple cycles) of the graph.
type InstabilityReport struct {
	VolatileNodes    []string      `json:"volatile_nodes"`
	FeedbackLoops    [][]string    `json:"feedback_loops"`
	VolatilityScores VolatilityMap `json:"volatility_scores"`
}

// KarmaEntry is the ethical impact record of a single node.
type KarmaEntry struct {
	Type        NodeType `json:"type"`
	Intention   Rating   `json:"intention"`
	ImpactScore float64  `json:"impact_score"`
	KarmaRating Rating   `json:"karma_rating"`
}

// KarmaLedger maps every node to its karma entry.
type KarmaLedger map[string]KarmaEntry

// RelationshipChange describes a node that exists in both snapshots but whose
// outgoing targets changed.
type RelationshipChange struct {
	Node   string   `json:"node"`
	Before []string `json:"before"`
	After  []string `json:"after"`
}

// DiffResult is the structural difference between two graph snapshots.
type DiffResult struct {
	AddedNodes           []string             `json:"added_nodes"`
	RemovedNodes         []string             `json:"removed_nodes"`
	AddedEdges           []Edge               `json:"added_edges"`
	RemovedEdges         []Edge               `json:"removed_edges"`
	ChangedRelationships []RelationshipChange `json:"changed_relationships"`
}

// IsEmpty reports whether the diff found no structural change at all.
func (d DiffResult) IsEmpty() bool {
	return len(d.AddedNodes) == 0 &&
		len(d.RemovedNodes) == 0 &&
		len(d.AddedEdges) == 0 &&
		len(d.RemovedEdges) == 0
}

// DiffReport wraps a diff together with the baseline signal. Baseline is false
// when no previous snapshot existed; Result is nil in that case.
type DiffReport struct {
	Baseline bool        `json:"baseline"`
	Result   *DiffResult `json:"result,omitempty"`
}

// GraphStats describes the size of a built graph.
type GraphStats struct {
	Nodes   int `json:"nodes"`
	Edges   int `json:"edges"`
	Skipped int `json:"skipped"`
}

// Report is the complete result document of one analysis request.
type Report struct {
	AnalysisID   string            `json:"analysis_id"`
	GeneratedAt  string            `json:"generated_at"`
	Seed         uint64            `json:"seed"`
	DecayFactor  float64           `json:"decay_factor"`
	Graph        GraphStats        `json:"graph"`
	Dependencies DependencyReport  `json:"dependencies"`
	Instability  InstabilityReport `json:"instability"`
	Karma        KarmaLedger       `json:"karma"`
	Diff         DiffReport        `json:"diff"`
}
