// Package analysis runs every analytical engine over one organization model
// and assembles the report document.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"golang.org/x/sync/errgroup"

	"github.com/OFFIS-RIT/wisdom/pkg/chaos"
	"github.com/OFFIS-RIT/wisdom/pkg/common"
	"github.com/OFFIS-RIT/wisdom/pkg/graph"
	"github.com/OFFIS-RIT/wisdom/pkg/karma"
	"github.com/OFFIS-RIT/wisdom/pkg/logger"
	"github.com/OFFIS-RIT/wisdom/pkg/sentinel"
	"github.com/OFFIS-RIT/wisdom/pkg/store"
)

var ErrInvalidDecay = errors.New("analysis: decay factor must be within [0, 1]")

// Request is one analysis. Previous is the baseline snapshot for the diff and
// may be nil. A nil Seed draws a fresh one, which is recorded in the report;
// a nil DecayFactor uses chaos.DefaultDecayFactor. An empty AnalysisID is
// generated.
type Request struct {
	AnalysisID  string
	Model       common.OrganizationModel
	Previous    *common.Snapshot
	Seed        *uint64
	DecayFactor *float64
}

// Run analyzes req.Model and returns the report together with the snapshot
// of the built graph, which becomes the baseline of the next analysis.
//
// The graph is built once and only read afterwards, so the analyzers run
// concurrently. Volatility and karma draw from separate sources derived from
// the same seed.
func Run(ctx context.Context, req Request) (*common.Report, *common.Snapshot, error) {
	start := time.Now()

	report, snapshot, err := run(ctx, req)
	observeRun(start, err)
	if err != nil {
		return nil, nil, err
	}

	logger.Debug("[Analysis] Finished", "id", report.AnalysisID, "nodes", report.Graph.Nodes, "duration", time.Since(start))
	return report, snapshot, nil
}

func run(ctx context.Context, req Request) (*common.Report, *common.Snapshot, error) {
	decay := chaos.DefaultDecayFactor
	if req.DecayFactor != nil {
		decay = *req.DecayFactor
	}
	if decay < 0 || decay > 1 {
		return nil, nil, fmt.Errorf("%w: got %v", ErrInvalidDecay, decay)
	}

	// 53 bits survive a round trip through a JSON number
	seed := rand.Uint64() >> 11
	if req.Seed != nil {
		seed = *req.Seed
	}

	id := req.AnalysisID
	if id == "" {
		var err error
		if id, err = gonanoid.New(); err != nil {
			return nil, nil, fmt.Errorf("analysis id: %w", err)
		}
	}

	buildStart := time.Now()
	g, _ := graph.Build(req.Model)
	observeStage("build", buildStart)
	graphNodes.Observe(float64(g.NumNodes()))

	report := &common.Report{
		AnalysisID:  id,
		GeneratedAt: time.Now().UTC().Format(time.RFC3339),
		Seed:        seed,
		DecayFactor: decay,
		Graph: common.GraphStats{
			Nodes:   g.NumNodes(),
			Edges:   g.NumEdges(),
			Skipped: g.Skipped(),
		},
	}
	snapshot := g.Snapshot()

	eg, ctx := errgroup.WithContext(ctx)

	eg.Go(func() error {
		defer observeStage("dependencies", time.Now())
		report.Dependencies = graph.AnalyzeDependencies(g)
		return ctx.Err()
	})

	eg.Go(func() error {
		defer observeStage("instability", time.Now())
		report.Instability = chaos.AnalyzeInstability(g, chaos.Options{
			DecayFactor: decay,
			Rand:        chaos.NewRand(seed),
		})
		return ctx.Err()
	})

	eg.Go(func() error {
		defer observeStage("karma", time.Now())
		report.Karma = karma.Score(g, req.Model.Events(), karma.Options{Rand: karma.NewRand(seed)})
		return ctx.Err()
	})

	eg.Go(func() error {
		defer observeStage("diff", time.Now())
		result, err := sentinel.Diff(req.Previous, snapshot)
		if errors.Is(err, sentinel.ErrNoBaseline) {
			report.Diff = common.DiffReport{Baseline: false}
			return ctx.Err()
		}
		if err != nil {
			return err
		}
		report.Diff = common.DiffReport{Baseline: true, Result: &result}
		return ctx.Err()
	})

	if err := eg.Wait(); err != nil {
		return nil, nil, err
	}
	return report, snapshot, nil
}

// RunSession analyzes req.Model against the stored snapshot of a session and
// stores the new snapshot, all under the session lock. req.Previous is
// ignored. The first analysis of a session reports no baseline.
func RunSession(ctx context.Context, s store.SnapshotStore, sessionID string, req Request) (*common.Report, error) {
	return RunSessionWith(ctx, s, sessionID, req, nil)
}

// RunSessionWith is RunSession with a hook that receives the finished report
// while the session is still locked. The new snapshot is only stored when
// after succeeds, so a failed hook leaves the session baseline unchanged.
func RunSessionWith(
	ctx context.Context,
	s store.SnapshotStore,
	sessionID string,
	req Request,
	after func(ctx context.Context, report *common.Report) error,
) (*common.Report, error) {
	var report *common.Report
	err := store.Swap(ctx, s, sessionID, func(ctx context.Context, prev *common.Snapshot) (*common.Snapshot, error) {
		req.Previous = prev
		r, snapshot, err := Run(ctx, req)
		if err != nil {
			return nil, err
		}
		if after != nil {
			if err := after(ctx, r); err != nil {
				return nil, err
			}
		}
		report = r
		return snapshot, nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info("[Analysis] Session analyzed", "session", sessionID, "analysis", report.AnalysisID, "baseline", report.Diff.Baseline)
	return report, nil
}
