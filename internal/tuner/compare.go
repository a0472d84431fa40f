package tuner

import (
	"context"
	"fmt"
	"strings"
)

// MethodComparison summarizes one search method's outcome within a
// cross-method sweep: the best score it achieved and how many trials it
// needed to come within 5% of that optimum.
type MethodComparison struct {
	Method              Method
	BestScore           float64
	BestParams          map[string]any
	TrialsRun           int
	TrialsToNearOptimum int
	Err                 string
}

// CompareMethods runs the same parameter space and trial function
// through each requested search method and reports their best scores
// and convergence efficiency side by side, in the order the methods
// were given. A method whose sweep fails outright is recorded with its
// error and the comparison continues; only when every method fails does
// CompareMethods return an error aggregating the per-method failures.
func CompareMethods(ctx context.Context, methods []Method, opts Options, trialFn func(ctx context.Context, params map[string]any) (float64, error)) ([]MethodComparison, error) {
	out := make([]MethodComparison, 0, len(methods))
	var failures []string

	for _, m := range methods {
		methodOpts := opts
		methodOpts.Method = m
		result, err := Tune(ctx, methodOpts, trialFn)
		if err != nil {
			out = append(out, MethodComparison{Method: m, Err: err.Error()})
			failures = append(failures, fmt.Sprintf("%s: %v", m, err))
			continue
		}
		out = append(out, MethodComparison{
			Method:              m,
			BestScore:           result.BestScore,
			BestParams:          result.BestParams,
			TrialsRun:           len(result.Trials),
			TrialsToNearOptimum: result.ConvergenceEfficiency.TrialsToNearOptimum,
		})
	}

	if len(failures) == len(methods) && len(methods) > 0 {
		return out, fmt.Errorf("tuner: every method failed:\n%s", strings.Join(failures, "\n"))
	}
	return out, nil
}
