// Package chaos implements the volatility propagation engine: base
// instability scores per node, ripple propagation along edges and the
// detection of feedback loops.
package chaos

import (
	"math"
	"math/rand/v2"
	"strings"

	"github.com/OFFIS-RIT/wisdom/pkg/common"
	"github.com/OFFIS-RIT/wisdom/pkg/graph"
)

const (
	// DefaultDecayFactor attenuates a ripple on every hop.
	DefaultDecayFactor = 0.6
	// VolatileThreshold is the score above which a node counts as volatile.
	VolatileThreshold = 0.7

	eventBaseMin = 0.6
)

var eventSourcePrefixes = []string{"JIRA-", "COMMIT", "JENKINS", "INC-"}

// Options configures a propagation run.
//
// Rand is the random source for the base scores. A nil Rand draws from an
// unseeded source, so results are only reproducible with an explicit one.
type Options struct {
	DecayFactor float64
	Rand        *rand.Rand
}

// NewRand returns a deterministic random source for the given seed.
func NewRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, 0x5eed_c4a0))
}

// IsEventLike reports whether a node identifier looks like an operational
// event (a release, ticket, commit, build or incident).
func IsEventLike(id string) bool {
	if strings.Contains(id, "RELEASE") {
		return true
	}
	for _, prefix := range eventSourcePrefixes {
		if strings.HasPrefix(id, prefix) {
			return true
		}
	}
	return false
}

// BaseVolatility draws a base score for every node in insertion order.
// Event-like nodes draw from [0.6, 1.0), everything else from [0.0, 1.0).
func BaseVolatility(g *graph.Graph, r *rand.Rand) map[string]float64 {
	if r == nil {
		r = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	base := make(map[string]float64, g.NumNodes())
	for _, id := range g.Nodes() {
		v := r.Float64()
		if IsEventLike(id) {
			v = eventBaseMin + v*(1-eventBaseMin)
		}
		base[id] = v
	}
	return base
}

// Propagate assigns base volatility to every node and ripples it along the
// edges. Each edge (s, t) adds base[s] * decay / max(1, indegree(s)) to t.
// Scores are clamped to [0, 1] and rounded to two decimals.
func Propagate(g *graph.Graph, opts Options) common.VolatilityMap {
	return propagate(g, BaseVolatility(g, opts.Rand), opts.DecayFactor)
}

func propagate(g *graph.Graph, base map[string]float64, decay float64) common.VolatilityMap {
	scores := make(map[string]float64, len(base))
	for id, v := range base {
		scores[id] = v
	}

	for _, e := range g.Edges() {
		normalizer := max(g.InDegree(e.Source), 1)
		scores[e.Target] += base[e.Source] * decay / float64(normalizer)
	}

	out := make(common.VolatilityMap, len(scores))
	for id, v := range scores {
		out[id] = round2(clamp01(v))
	}
	return out
}

// AnalyzeInstability propagates volatility and reports volatile nodes
// (score > 0.7, insertion order) together with all feedback loops.
func AnalyzeInstability(g *graph.Graph, opts Options) common.InstabilityReport {
	scores := Propagate(g, opts)

	volatile := []string{}
	for _, id := range g.Nodes() {
		if scores[id] > VolatileThreshold {
			volatile = append(volatile, id)
		}
	}

	return common.InstabilityReport{
		VolatileNodes:    volatile,
		FeedbackLoops:    DetectFeedbackLoops(g),
		VolatilityScores: scores,
	}
}

func clamp01(v float64) float64 {
	return math.Min(math.Max(v, 0), 1)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
