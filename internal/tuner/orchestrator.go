package tuner

import (
	"context"
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// Options configures a tuning run.
type Options struct {
	Method         Method
	Space          []ParamSpec
	NTrials        int // ignored for grid search, which enumerates the full product
	Seed           int64
	Workers        int // 0 means runtime.NumCPU()
	Cache          *Cache
	Log            zerolog.Logger
	ReportEach     func(ResourceSample) // optional resource-monitor hook, invoked periodically while trials run
	ReportInterval time.Duration        // 0 means 5s
}

// Tune orchestrates a full parameter search: it builds the candidate
// parameter sets for the requested method, runs each through trialFn in
// parallel worker goroutines bounded by Options.Workers, and collects
// results in deterministic trial-index order regardless of completion
// order.
//
// Trials share no mutable state (trialFn must be pure w.r.t. its
// closed-over panel); cancellation is cooperative via ctx, checked
// before each trial starts and propagated into trialFn so a trial
// already running the engine's bar loop can stop at the next bar
// boundary if the caller wires ctx through to engine.Run.
func Tune(ctx context.Context, opts Options, trialFn func(ctx context.Context, params map[string]any) (float64, error)) (*TuningResult, error) {
	var combos []map[string]any
	switch opts.Method {
	case Grid:
		combos = GridCombinations(opts.Space)
	case Random:
		combos = RandomCombinations(opts.Space, opts.NTrials, opts.Seed)
	case Bayesian:
		combos = BayesianCombinations(opts.Space, opts.NTrials, opts.Seed, nil)
	default:
		combos = GridCombinations(opts.Space)
	}

	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers < 1 {
		workers = 1
	}

	trials := make([]Trial, len(combos))
	g, gctx := errgroup.WithContext(ctx)
	sem := make(chan struct{}, workers)

	monitorDone := startResourceMonitor(gctx, opts)
	defer close(monitorDone)

submit:
	for idx, params := range combos {
		idx, params := idx, params
		select {
		case sem <- struct{}{}:
		case <-gctx.Done():
			break submit
		}
		g.Go(func() error {
			defer func() { <-sem }()
			trials[idx] = runOneTrial(gctx, idx, params, opts, trialFn)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	// Trials never started because ctx was cancelled keep their index
	// and record the cancellation as their error.
	for idx := range trials {
		if trials[idx].ID == "" {
			trials[idx] = Trial{Index: idx, Params: combos[idx], Err: "tuner: trial not started: sweep cancelled"}
		}
	}

	// A cancelled sweep is reported through the trials themselves, not
	// as an all-failed aggregate.
	if ctx.Err() == nil {
		if err := allTrialsFailed(trials); err != nil {
			return nil, err
		}
	}

	best := pickBest(trials)
	conv := convergenceStats(trials, best.Score)

	return &TuningResult{
		Method:                opts.Method,
		Seed:                  opts.Seed,
		BestParams:            best.Params,
		BestScore:             best.Score,
		Trials:                trials,
		ConvergenceEfficiency: conv,
	}, nil
}

// startResourceMonitor spawns a sampling goroutine feeding
// Options.ReportEach until the returned channel is closed, so long
// parallel sweeps surface CPU/memory pressure in their logs. Returns a
// closed-over done channel even when no hook is configured, to keep the
// caller's defer unconditional.
func startResourceMonitor(ctx context.Context, opts Options) chan struct{} {
	done := make(chan struct{})
	if opts.ReportEach == nil {
		return done
	}
	interval := opts.ReportInterval
	if interval <= 0 {
		interval = 5 * time.Second
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ctx.Done():
				return
			case <-ticker.C:
				if sample, err := SampleResources(); err == nil {
					opts.ReportEach(sample)
				}
			}
		}
	}()
	return done
}

// allTrialsFailed aggregates every per-trial failure into one error when
// no trial at all succeeded; a sweep where nothing ran to completion
// must not report a zero-valued "best" as if it were a result.
func allTrialsFailed(trials []Trial) error {
	if len(trials) == 0 {
		return nil
	}
	var failures []string
	for _, t := range trials {
		if t.Err == "" {
			return nil
		}
		failures = append(failures, fmt.Sprintf("trial %d: %s", t.Index, t.Err))
	}
	const maxListed = 10
	if len(failures) > maxListed {
		failures = append(failures[:maxListed], fmt.Sprintf("... and %d more", len(trials)-maxListed))
	}
	return fmt.Errorf("tuner: all %d trials failed:\n%s", len(trials), strings.Join(failures, "\n"))
}

// runOneTrial checks the cache, invokes trialFn under ctx cancellation,
// and records the outcome, recovering a per-trial fatal error into a
// failed Trial entry rather than aborting the whole sweep.
func runOneTrial(ctx context.Context, idx int, params map[string]any, opts Options, trialFn func(context.Context, map[string]any) (float64, error)) Trial {
	id := newTrialID()

	if opts.Cache != nil {
		if score, runtimeMS, errMsg, found, err := opts.Cache.Get(params); err == nil && found {
			return Trial{ID: id, Index: idx, Params: params, Score: score, RuntimeMS: runtimeMS, Err: errMsg}
		}
	}

	start := time.Now()
	score, err := safeTrial(ctx, params, trialFn)
	elapsed := runtimeMillis(start)

	errMsg := ""
	if err != nil {
		errMsg = err.Error()
		opts.Log.Warn().Err(err).Int("trial", idx).Msg("tuner trial failed; continuing with remaining trials")
	}

	if opts.Cache != nil {
		_ = opts.Cache.Put(params, score, elapsed, errMsg)
	}

	return Trial{ID: id, Index: idx, Params: params, Score: score, RuntimeMS: elapsed, Err: errMsg}
}

// safeTrial recovers a panicking trial function into an error, so one
// bad parameter combination cannot take down the whole sweep.
func safeTrial(ctx context.Context, params map[string]any, trialFn func(context.Context, map[string]any) (float64, error)) (score float64, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = panicError{r}
		}
	}()
	if ctx.Err() != nil {
		return 0, ctx.Err()
	}
	return trialFn(ctx, params)
}

type panicError struct{ value any }

func (p panicError) Error() string { return "tuner: trial panicked" }

// pickBest scans all trials (in index order, so ties resolve to the
// earliest trial) for the maximum score among those without an error.
func pickBest(trials []Trial) Trial {
	var best Trial
	haveBest := false
	for _, t := range trials {
		if t.Err != "" {
			continue
		}
		if !haveBest || t.Score > best.Score {
			best = t
			haveBest = true
		}
	}
	return best
}

// convergenceStats reports, scanning trials in submission order, how
// many trials were needed before a score within 5% of the eventual
// optimum was first reached.
func convergenceStats(trials []Trial, bestScore float64) ConvergenceStats {
	threshold := bestScore * 0.95
	if bestScore < 0 {
		threshold = bestScore * 1.05
	}
	for i, t := range trials {
		if t.Err != "" {
			continue
		}
		if t.Score >= threshold {
			return ConvergenceStats{BestScore: bestScore, TrialsToNearOptimum: i + 1}
		}
	}
	return ConvergenceStats{BestScore: bestScore, TrialsToNearOptimum: len(trials)}
}
