package optimizer

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/optimize"
)

// penaltyWeight scales the quadratic budget-constraint penalty added to
// every solver objective.
const penaltyWeight = 1000.0

// projectToBounds clamps a candidate solution into [min, max]
// componentwise.
func projectToBounds(x []float64, c Constraints) []float64 {
	minW, maxW := c.MinWeight, c.MaxWeight
	if maxW == 0 {
		maxW = 1
	}
	out := make([]float64, len(x))
	for i, v := range x {
		out[i] = math.Min(maxW, math.Max(minW, v))
	}
	return out
}

// solvePenalty minimizes obj via NelderMead, falling back to BFGS on
// non-convergence.
func solvePenalty(n int, obj func(x []float64) float64, grad func(g, x []float64)) ([]float64, error) {
	problem := optimize.Problem{Func: obj, Grad: grad}

	initial := make([]float64, n)
	for i := range initial {
		initial[i] = 1.0 / float64(n)
	}

	successStatuses := map[optimize.Status]bool{
		optimize.Success:             true,
		optimize.GradientThreshold:   true,
		optimize.FunctionConvergence: true,
	}

	result, err := optimize.Minimize(problem, initial, &optimize.Settings{}, &optimize.NelderMead{})
	if err != nil {
		return nil, fmt.Errorf("optimization failed: %w", err)
	}
	if !successStatuses[result.Status] {
		result, err = optimize.Minimize(problem, initial, &optimize.Settings{}, &optimize.BFGS{})
		if err != nil {
			return nil, fmt.Errorf("optimization failed: %w", err)
		}
		if !successStatuses[result.Status] {
			return nil, fmt.Errorf("optimization did not converge: status=%v", result.Status)
		}
	}
	return result.X, nil
}

// normalizeNonNegative projects, floors at zero, and renormalizes x to
// sum to 1, the final step every penalty-method solver applies before
// mapping back to symbols.
func normalizeNonNegative(x []float64, c Constraints) []float64 {
	proj := projectToBounds(x, c)
	sum := 0.0
	for _, v := range proj {
		if v < 0 {
			v = 0
		}
		sum += v
	}
	out := make([]float64, len(proj))
	if sum <= 0 {
		for i := range out {
			out[i] = 1.0 / float64(len(out))
		}
		return out
	}
	for i, v := range proj {
		if v < 0 {
			v = 0
		}
		out[i] = v / sum
	}
	return out
}
