// Package tuner implements the hyperparameter search: grid, random,
// and Bayesian (surrogate-guided, falling back to random) search over
// a strategy's parameter space, with parallel trial execution bounded
// by a worker pool and results cached so an interrupted sweep can
// resume without re-running completed trials.
package tuner

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ParamType is the kind of value a parameter space entry carries.
type ParamType string

const (
	ParamInt         ParamType = "int"
	ParamFloat       ParamType = "float"
	ParamCategorical ParamType = "categorical"
)

// ParamSpec describes one tunable parameter.
type ParamSpec struct {
	Name   string
	Type   ParamType
	Values []any   // categorical values, or enumerated int/float grid points
	Low    float64 // random/Bayesian continuous range
	High   float64
}

// Method is the search strategy.
type Method string

const (
	Grid     Method = "grid"
	Random   Method = "random"
	Bayesian Method = "bayesian"
)

// TargetMetric names which field of a trial's metrics.Result to
// maximize.
type TargetMetric string

const (
	TargetSharpe      TargetMetric = "sharpe_ratio"
	TargetCalmar      TargetMetric = "calmar_ratio"
	TargetTotalReturn TargetMetric = "total_return"
)

// Trial is the recorded outcome of one backtest run under a candidate
// parameter set.
type Trial struct {
	ID        string
	Index     int
	Params    map[string]any
	Score     float64
	RuntimeMS int64
	Err       string
}

// TuningResult is the orchestrator's final output.
type TuningResult struct {
	Method                Method
	Seed                  int64
	BestParams            map[string]any
	BestScore             float64
	Trials                []Trial
	ConvergenceEfficiency ConvergenceStats
}

// ConvergenceStats reports how many trials were needed to reach within
// 5% of the eventual optimum ("convergence efficiency").
type ConvergenceStats struct {
	BestScore          float64
	TrialsToNearOptimum int
}

// TrialFunc runs one backtest under the given parameter set and returns
// the target metric's score. Implemented by the caller (wires the
// engine, panel, and strategy together); the tuner only orchestrates.
type TrialFunc func(ctx context.Context, params map[string]any) (score float64, err error)

func newTrialID() string {
	return uuid.NewString()
}

func runtimeMillis(since time.Time) int64 {
	return time.Since(since).Milliseconds()
}
