package optimizer

import "math"

// maximumDiversification maximizes (wᵀσ) / √(wᵀΣw), via the shared
// penalty method.
func maximumDiversification(in Inputs) (map[string]float64, error) {
	n := len(in.Symbols)
	cov := covarianceMatrix(in)
	vol := volVector(in)

	ratioOf := func(x []float64) float64 {
		var weightedVol, variance float64
		for i := 0; i < n; i++ {
			weightedVol += x[i] * vol[i]
			for j := 0; j < n; j++ {
				variance += x[i] * x[j] * cov.At(i, j)
			}
		}
		return weightedVol / math.Sqrt(math.Max(variance, 1e-12))
	}

	obj := func(x []float64) float64 {
		xProj := projectToBounds(x, in.Constraints)
		sum := 0.0
		for _, v := range xProj {
			sum += v
		}
		return -ratioOf(xProj) + penaltyWeight*(sum-1.0)*(sum-1.0)
	}

	grad := func(g, x []float64) {
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
