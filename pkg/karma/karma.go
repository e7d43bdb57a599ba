// Package karma scores the ethical impact of every node in a dependency graph.
//
// Each node gets a random intention and a base impact, which are then adjusted
// by structural reach (for teams) and by how often the node takes part in
// operational events.
package karma

import (
	"math"
	"math/rand/v2"

	"github.com/OFFIS-RIT/wisdom/pkg/common"
	"github.com/OFFIS-RIT/wisdom/pkg/graph"
)

const (
	baseImpactMin = 0.1

	teamReachBonus  = 0.05
	eventBonus      = 0.05
	maxEventCounted = 6

	positiveThreshold = 0.6
	negativeThreshold = 0.4
)

var intentions = []common.Rating{
	common.RatingPositive,
	common.RatingNeutral,
	common.RatingNegative,
}

// Options configures a scoring run. A nil Rand draws from an unseeded source.
type Options struct {
	Rand *rand.Rand
}

// NewRand returns a deterministic random source for the given seed.
func NewRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, 0x6b61_726d))
}

// Score builds the karma ledger of g. Nodes are visited in insertion order and
// draw their intention before their base impact, so a seeded source gives
// reproducible ledgers.
func Score(g *graph.Graph, events []common.Entity, opts Options) common.KarmaLedger {
	r := opts.Rand
	if r == nil {
		r = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}

	participation := Participation(events)
	ledger := make(common.KarmaLedger, g.NumNodes())

	for _, id := range g.Nodes() {
		nodeType := g.TypeOf(id)
		intention := intentions[r.IntN(len(intentions))]
		impact := baseImpactMin + r.Float64()*(1-baseImpactMin)

		if nodeType == common.NodeTypeTeam {
			impact += teamReachBonus * float64(g.OutDegree(id))
		}
		impact += eventBonus * float64(min(participation[id], maxEventCounted))
		impact = math.Min(impact, 1)

		ledger[id] = common.KarmaEntry{
			Type:        nodeType,
			Intention:   intention,
			ImpactScore: math.Round(impact*100) / 100,
			KarmaRating: Rate(intention, impact),
		}
	}

	return ledger
}

// Rate derives the karma rating from an intention and an impact score.
func Rate(intention common.Rating, impact float64) common.Rating {
	switch {
	case intention == common.RatingPositive && impact > positiveThreshold:
		return common.RatingPositive
	case intention == common.RatingNegative && impact > negativeThreshold:
		return common.RatingNegative
	default:
		return common.RatingNeutral
	}
}

// Participation counts, per node, the distinct events it appears in as
// initiator, related target or sub-event. Records sharing an event id count
// once; a node listed several times in one event also counts once.
func Participation(events []common.Entity) map[string]int {
	counts := make(map[string]int)
	seenEvents := make(map[string]struct{})

	for _, event := range events {
		if id, ok := event.ID("id"); ok {
			if _, dup := seenEvents[id]; dup {
				continue
			}
			seenEvents[id] = struct{}{}
		}

		members := make(map[string]struct{})
		for _, key := range []string{"initiator", "related_to", "sub_events"} {
			for _, node := range event.Strings(key) {
				members[node] = struct{}{}
			}
		}
		for node := range members {
			counts[node]++
		}
	}

	return counts
}
