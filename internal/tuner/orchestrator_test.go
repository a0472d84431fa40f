package tuner

import (
	"context"
	"fmt"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTuneGridDeterministicOrder(t *testing.T) {
	space := []ParamSpec{
		{Name: "lookback", Type: ParamInt, Values: []any{10, 20, 30}},
	}
	opts := Options{Method: Grid, Space: space, Workers: 4, Log: zerolog.Nop()}

	trial := func(_ context.Context, params map[string]any) (float64, error) {
		lb := params["lookback"].(int)
		return float64(lb), nil
	}

	result, err := Tune(context.Background(), opts, trial)
	require.NoError(t, err)
	require.Len(t, result.Trials, 3)
	for i, tr := range result.Trials {
		assert.Equal(t, i, tr.Index)
	}
	assert.Equal(t, 30.0, result.BestScore)
	assert.Equal(t, 30, result.BestParams["lookback"])
}

func TestTuneRecoversTrialFailures(t *testing.T) {
	space := []ParamSpec{
		{Name: "x", Type: ParamInt, Values: []any{1, 2, 3}},
	}
	opts := Options{Method: Grid, Space: space, Workers: 2, Log: zerolog.Nop()}

	trial := func(_ context.Context, params map[string]any) (float64, error) {
		x := params["x"].(int)
		if x == 2 {
			return 0, fmt.Errorf("synthetic failure")
		}
		return float64(x), nil
	}

	result, err := Tune(context.Background(), opts, trial)
	require.NoError(t, err)
	require.Len(t, result.Trials, 3)
	assert.NotEmpty(t, result.Trials[1].Err)
	assert.Equal(t, 3.0, result.BestScore)
}

func TestTuneCancellation(t *testing.T) {
	space := []ParamSpec{
		{Name: "x", Type: ParamInt, Low: 0, High: 100},
	}
	opts := Options{Method: Random, Space: space, NTrials: 50, Seed: 1, Workers: 2, Log: zerolog.Nop()}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	trial := func(c context.Context, params map[string]any) (float64, error) {
		return 0, c.Err()
	}

	result, err := Tune(ctx, opts, trial)
	require.NoError(t, err)
	assert.Len(t, result.Trials, 50)
}

func TestTuneAllTrialsFailedAggregatesErrors(t *testing.T) {
	space := []ParamSpec{
		{Name: "x", Type: ParamInt, Values: []any{1, 2}},
	}
	opts := Options{Method: Grid, Space: space, Workers: 2, Log: zerolog.Nop()}

	trial := func(_ context.Context, _ map[string]any) (float64, error) {
		return 0, fmt.Errorf("boom")
	}

	_, err := Tune(context.Background(), opts, trial)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "all 2 trials failed")
	assert.Contains(t, err.Error(), "boom")
}

func TestCompareMethodsReportsPerMethodStats(t *testing.T) {
	space := []ParamSpec{
		{Name: "x", Type: ParamFloat, Values: []any{0.1, 0.5, 0.9}, Low: 0, High: 1},
	}
	opts := Options{Space: space, NTrials: 6, Seed: 7, Workers: 2, Log: zerolog.Nop()}

	trial := func(_ context.Context, params map[string]any) (float64, error) {
		return params["x"].(float64), nil
	}

	comparisons, err := CompareMethods(context.Background(), []Method{Grid, Random, Bayesian}, opts, trial)
	require.NoError(t, err)
	require.Len(t, comparisons, 3)
	assert.Equal(t, Grid, comparisons[0].Method)
	assert.Equal(t, 0.9, comparisons[0].BestScore)
	assert.Equal(t, 3, comparisons[0].TrialsRun)
	for _, c := range comparisons {
		assert.Empty(t, c.Err)
		assert.Greater(t, c.TrialsToNearOptimum, 0)
	}
}

func TestConvergenceStatsFindsEarlyNearOptimum(t *testing.T) {
	trials := []Trial{
		{Index: 0, Score: 0.5},
		{Index: 1, Score: 0.96},
		{Index: 2, Score: 1.0},
	}
	stats := convergenceStats(trials, 1.0)
	assert.Equal(t, 2, stats.TrialsToNearOptimum)
}
