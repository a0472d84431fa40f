package optimizer

import "math"

// maximumSharpe maximizes (wᵀμ - r_f_daily) / √(wᵀΣw), via the shared
// penalty method.
func maximumSharpe(in Inputs) (map[string]float64, error) {
	n := len(in.Symbols)
	cov := covarianceMatrix(in)
	mu := meanVector(in)
	rfDaily := in.RiskFreeAnnual / 252

	sharpeOf := func(x []float64) (float64, float64, float64) {
		var ret, variance float64
		for i := 0; i < n; i++ {
			ret += mu[i] * x[i]
			for j := 0; j < n; j++ {
				variance += x[i] * x[j] * cov.At(i, j)
			}
		}
		vol := math.Sqrt(math.Max(variance, 1e-12))
		return (ret - rfDaily) / vol, ret, variance
	}

	obj := func(x []float64) float64 {
		xProj := projectToBounds(x, in.Constraints)
		sharpe, _, _ := sharpeOf(xProj)
		sum := 0.0
		for _, v := range xProj {
			sum += v
		}
		return -sharpe + penaltyWeight*(sum-1.0)*(sum-1.0)
	}

	grad := func(g, x []float64) {
		// Finite-difference gradient; the analytic quotient-rule
		// gradient of the Sharpe objective does not simplify the way
		// the variance-only objectives do.
		const h = 1e-6
		base := obj(x)
		for i := range x {
			xh := append([]float64(nil), x...)
			xh[i] += h
			g[i] = (obj(xh) - base) / h
		}
	}

	x, err := solvePenalty(n, obj, grad)
	if err != nil {
		return nil, err
	}

	final := normalizeNonNegative(x, in.Constraints)
	out := make(map[string]float64, n)
	for i, s := range in.Symbols {
		out[s] = final[i]
	}
	return out, nil
}
