package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OFFIS-RIT/wisdom/pkg/common"
	"github.com/OFFIS-RIT/wisdom/pkg/store/memory"
)

func ptr[T any](v T) *T { return &v }

func orgModel(withAlice bool) common.OrganizationModel {
	model := common.OrganizationModel{
		"tools": []any{
			map[string]any{"name": "Grafana", "relationships": map[string]any{"monitors_applications": []any{"PayrollApp"}}},
			map[string]any{"name": "Nagios", "relationships": map[string]any{"monitors_applications": []any{"PayrollApp"}}},
		},
		"teams": []any{
			map[string]any{"name": "Ops", "responsibilities": map[string]any{"owns_tools": []any{"Jenkins"}}},
		},
		"events": []any{
			map[string]any{"id": "INC-1", "initiator": "Bob", "related_to": []any{"PayrollApp", "Jenkins"}},
		},
	}
	if withAlice {
		model["people"] = []any{map[string]any{"name": "Alice", "teams": []any{"Ops"}}}
	}
	return model
}

func TestRun(t *testing.T) {
	report, snapshot, err := Run(context.Background(), Request{Model: orgModel(true), Seed: ptr(uint64(11))})
	require.NoError(t, err)

	assert.Len(t, report.AnalysisID, 21)
	assert.Equal(t, uint64(11), report.Seed)
	assert.Equal(t, 0.6, report.DecayFactor)
	assert.Equal(t, report.Graph.Nodes, report.Dependencies.TotalNodes)
	assert.Contains(t, report.Dependencies.Bottlenecks, "PayrollApp")
	assert.Len(t, report.Instability.VolatilityScores, report.Graph.Nodes)
	assert.Len(t, report.Karma, report.Graph.Nodes)
	assert.GreaterOrEqual(t, report.Karma["Bob"].ImpactScore, 0.15)
	assert.False(t, report.Diff.Baseline)
	assert.Nil(t, report.Diff.Result)

	assert.Len(t, snapshot.Adjacency, report.Graph.Nodes)
	assert.Equal(t, common.Targets{"Ops"}, snapshot.Adjacency["Alice"])
}

func TestRun_SeedMakesScoresReproducible(t *testing.T) {
	req := Request{Model: orgModel(true), Seed: ptr(uint64(5)), DecayFactor: ptr(0.3)}

	a, _, err := Run(context.Background(), req)
	require.NoError(t, err)
	b, _, err := Run(context.Background(), req)
	require.NoError(t, err)

	assert.NotEqual(t, a.AnalysisID, b.AnalysisID)
	assert.Equal(t, a.Instability, b.Instability)
	assert.Equal(t, a.Karma, b.Karma)
}

func TestRun_KeepsGivenAnalysisID(t *testing.T) {
	report, _, err := Run(context.Background(), Request{AnalysisID: "job-42", Model: orgModel(false)})
	require.NoError(t, err)
	assert.Equal(t, "job-42", report.AnalysisID)
}

func TestRun_InvalidDecay(t *testing.T) {
	_, _, err := Run(context.Background(), Request{Model: orgModel(false), DecayFactor: ptr(1.5)})
	assert.ErrorIs(t, err, ErrInvalidDecay)
}

func TestRun_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := Run(ctx, Request{Model: orgModel(false)})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRun_DiffAgainstPrevious(t *testing.T) {
	_, before, err := Run(context.Background(), Request{Model: orgModel(true)})
	require.NoError(t, err)

	report, _, err := Run(context.Background(), Request{Model: orgModel(false), Previous: before})
	require.NoError(t, err)

	require.True(t, report.Diff.Baseline)
	require.NotNil(t, report.Diff.Result)
	assert.Equal(t, []string{"Alice"}, report.Diff.Result.RemovedNodes)
	assert.Equal(t, []common.Edge{{Source: "Alice", Target: "Ops"}}, report.Diff.Result.RemovedEdges)
}

func TestRunSession(t *testing.T) {
	ctx := context.Background()
	s := memory.NewMemorySnapshotStore()

	first, err := RunSession(ctx, s, "session-1", Request{Model: orgModel(true), Seed: ptr(uint64(1))})
	require.NoError(t, err)
	assert.False(t, first.Diff.Baseline)

	second, err := RunSession(ctx, s, "session-1", Request{Model: orgModel(false), Seed: ptr(uint64(1))})
	require.NoError(t, err)
	require.True(t, second.Diff.Baseline)
	assert.Equal(t, []string{"Alice"}, second.Diff.Result.RemovedNodes)

	// sessions do not share baselines
	other, err := RunSession(ctx, s, "session-2", Request{Model: orgModel(false)})
	require.NoError(t, err)
	assert.False(t, other.Diff.Baseline)

	stored, err := s.Load(ctx, "session-1")
	require.NoError(t, err)
	assert.NotContains(t, stored.Adjacency, "Alice")
}

func TestRunSessionWith_HookErrorKeepsSnapshot(t *testing.T) {
	ctx := context.Background()
	s := memory.NewMemorySnapshotStore()

	_, err := RunSession(ctx, s, "session-1", Request{Model: orgModel(true)})
	require.NoError(t, err)

	failed := errors.New("upload failed")
	_, err = RunSessionWith(ctx, s, "session-1", Request{Model: orgModel(false)}, func(context.Context, *common.Report) error {
		return failed
	})
	assert.ErrorIs(t, err, failed)

	stored, err := s.Load(ctx, "session-1")
	require.NoError(t, err)
	assert.Contains(t, stored.Adjacency, "Alice")

	var seen *common.Report
	report, err := RunSessionWith(ctx, s, "session-1", Request{Model: orgModel(false)}, func(_ context.Context, r *common.Report) error {
		seen = r
		return nil
	})
	require.NoError(t, err)
	assert.Same(t, report, seen)
	require.True(t, report.Diff.Baseline)
	assert.Equal(t, []string{"Alice"}, report.Diff.Result.RemovedNodes)
}

func TestRun_DrawnSeedFitsJSONNumber(t *testing.T) {
	for range 50 {
		report, _, err := Run(context.Background(), Request{Model: orgModel(false)})
		require.NoError(t, err)
		assert.Less(t, report.Seed, uint64(1)<<53)
	}
}

func TestReport_JSONShape(t *testing.T) {
	report, _, err := Run(context.Background(), Request{Model: orgModel(true), Seed: ptr(uint64(3))})
	require.NoError(t, err)

	raw, err := json.Marshal(report)
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, json.Unmarshal(raw, &doc))
	for _, key := range []string{"analysis_id", "generated_at", "graph", "dependencies", "instability", "karma", "diff"} {
		assert.Contains(t, doc, key)
	}
	assert.Equal(t, map[string]any{"baseline": false}, doc["diff"])
}
