package chaos

import (
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OFFIS-RIT/wisdom/pkg/common"
	"github.com/OFFIS-RIT/wisdom/pkg/graph"
)

func edges(pairs ...[2]string) *graph.Graph {
	g := graph.New()
	for _, p := range pairs {
		g.AddEdge(p[0], p[1])
	}
	return g
}

func TestPropagate_RippleWithFanInNormalization(t *testing.T) {
	g := edges([2]string{"A", "B"}, [2]string{"C", "B"}, [2]string{"B", "D"})
	base := map[string]float64{"A": 0.5, "B": 0.2, "C": 0.4, "D": 0.1}

	scores := propagate(g, base, 0.6)

	assert.InDelta(t, 0.5, scores["A"], 1e-9)
	assert.InDelta(t, 0.4, scores["C"], 1e-9)
	// 0.2 + 0.5*0.6 + 0.4*0.6
	assert.InDelta(t, 0.74, scores["B"], 1e-9)
	// B has two predecessors, so its ripple is halved: 0.1 + 0.2*0.6/2
	assert.InDelta(t, 0.16, scores["D"], 1e-9)
}

func TestPropagate_ClampsToOne(t *testing.T) {
	g := edges([2]string{"A", "B"})
	scores := propagate(g, map[string]float64{"A": 0.9, "B": 0.9}, 1.0)
	assert.Equal(t, 1.0, scores["B"])
}

func TestPropagate_ScoresStayInRange(t *testing.T) {
	g := edges(
		[2]string{"JIRA-7", "PayrollApp"},
		[2]string{"Alice", "JIRA-7"},
		[2]string{"PayrollApp", "vm-01"},
		[2]string{"vm-01", "PayrollApp"},
		[2]string{"Grafana", "PayrollApp"},
		[2]string{"Grafana", "Grafana"},
	)

	for seed := uint64(0); seed < 25; seed++ {
		for _, decay := range []float64{0, 0.25, 0.6, 1} {
			scores := Propagate(g, Options{DecayFactor: decay, Rand: NewRand(seed)})
			require.Len(t, scores, g.NumNodes())
			for id, v := range scores {
				assert.GreaterOrEqual(t, v, 0.0, id)
				assert.LessOrEqual(t, v, 1.0, id)
				assert.InDelta(t, v, round2(v), 1e-12, "score of %s is not rounded", id)
			}
		}
	}
}

func TestPropagate_SameSeedSameScores(t *testing.T) {
	g := edges([2]string{"A", "B"}, [2]string{"B", "C"})
	first := Propagate(g, Options{DecayFactor: DefaultDecayFactor, Rand: NewRand(42)})
	second := Propagate(g, Options{DecayFactor: DefaultDecayFactor, Rand: NewRand(42)})
	assert.Equal(t, first, second)
}

func TestBaseVolatility_EventLikeNodesAreBoosted(t *testing.T) {
	g := edges(
		[2]string{"Alice", "INC-1"},
		[2]string{"INC-1", "PayrollApp"},
		[2]string{"INC-1", "Jenkins"},
		[2]string{"COMMIT-abc", "RELEASE-2.1"},
		[2]string{"JENKINS-build-9", "JIRA-12"},
	)

	for seed := uint64(0); seed < 50; seed++ {
		base := BaseVolatility(g, NewRand(seed))
		for _, id := range []string{"INC-1", "COMMIT-abc", "RELEASE-2.1", "JENKINS-build-9", "JIRA-12"} {
			assert.GreaterOrEqual(t, base[id], 0.6, "seed %d node %s", seed, id)
			assert.Less(t, base[id], 1.0)
		}
	}
}

func TestIsEventLike(t *testing.T) {
	tests := []struct {
		id   string
		want bool
	}{
		{"INC-1", true},
		{"JIRA-100", true},
		{"COMMIT", true},
		{"JENKINS-42", true},
		{"App-RELEASE-3", true},
		{"Jenkins", false},
		{"inc-1", false},
		{"PayrollApp", false},
	}
	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			assert.Equal(t, tt.want, IsEventLike(tt.id))
		})
	}
}

func TestAnalyzeInstability(t *testing.T) {
	g := edges([2]string{"A", "B"}, [2]string{"B", "C"}, [2]string{"C", "A"})
	report := AnalyzeInstability(g, Options{DecayFactor: DefaultDecayFactor, Rand: NewRand(7)})

	require.Len(t, report.VolatilityScores, 3)
	require.Len(t, report.FeedbackLoops, 1)
	for _, id := range report.VolatileNodes {
		assert.Greater(t, report.VolatilityScores[id], VolatileThreshold)
	}
	for id, v := range report.VolatilityScores {
		if v > VolatileThreshold {
			assert.Contains(t, report.VolatileNodes, id)
		}
	}
}

func canonical(cycles [][]string) []string {
	out := make([]string, 0, len(cycles))
	for _, c := range cycles {
		out = append(out, strings.Join(c, ">"))
	}
	sort.Strings(out)
	return out
}

func TestDetectFeedbackLoops(t *testing.T) {
	tests := []struct {
		name  string
		graph *graph.Graph
		want  []string
	}{
		{
			name:  "acyclic",
			graph: edges([2]string{"A", "B"}, [2]string{"B", "C"}, [2]string{"A", "C"}),
			want:  []string{},
		},
		{
			name:  "three node cycle appears once",
			graph: edges([2]string{"A", "B"}, [2]string{"B", "C"}, [2]string{"C", "A"}),
			want:  []string{"A>B>C"},
		},
		{
			name:  "self loop",
			graph: edges([2]string{"A", "A"}, [2]string{"A", "B"}),
			want:  []string{"A"},
		},
		{
			name:  "two cycles sharing a node",
			graph: edges([2]string{"A", "B"}, [2]string{"B", "A"}, [2]string{"B", "C"}, [2]string{"C", "B"}),
			want:  []string{"A>B", "B>C"},
		},
		{
			name: "complete digraph on three nodes",
			graph: edges(
				[2]string{"A", "B"}, [2]string{"B", "A"},
				[2]string{"B", "C"}, [2]string{"C", "B"},
				[2]string{"A", "C"}, [2]string{"C", "A"},
			),
			want: []string{"A>B", "A>B>C", "A>C", "A>C>B", "B>C"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DetectFeedbackLoops(tt.graph)
			assert.Equal(t, tt.want, canonical(got))
		})
	}
}

func TestDetectFeedbackLoops_FromBuiltModel(t *testing.T) {
	model := common.OrganizationModel{
		"tools": []any{
			map[string]any{"name": "Jenkins", "relationships": map[string]any{"used_by_teams": []any{"Ops"}}},
		},
		"teams": []any{
			map[string]any{"name": "Ops", "members": []any{"Alice"}},
		},
		"people": []any{
			map[string]any{"name": "Alice", "teams": []any{"Ops"}},
		},
	}
	g, _ := graph.Build(model)

	// Ops is created first, as the user of Jenkins, so the loop starts there.
	assert.Equal(t, []string{"Ops>Alice"}, canonical(DetectFeedbackLoops(g)))
}
