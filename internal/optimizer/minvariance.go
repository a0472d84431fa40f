package optimizer

// minimumVariance minimizes wᵀΣw subject to Σw = 1 and
// min_weight <= w_i <= max_weight, via the shared penalty method.
func minimumVariance(in Inputs) (map[string]float64, error) {
	n := len(in.Symbols)
	cov := covarianceMatrix(in)

	obj := func(x []float64) float64 {
		xProj := projectToBounds(x, in.Constraints)
		var variance float64
		for i := 0; i < n; i++ {
			for j := 0; j < n; j++ {
				variance += xProj[i] * xProj[j] * cov.At(i, j)
			}
		}
		sum := 0.0
		for _, v := range xProj {
			sum += v
		}
		variance += penaltyWeight * (sum - 1.0) * (sum - 1.0)
		return variance
	}

	grad := func(g, x []float64) {
		xProj := projectToBounds(x, in.Constraints)
		for i := 0; i < n; i++ {
			g[i] = 0
			for j := 0; j < n; j++ {
				g[i] += 2 * cov.At(i, j) * xProj[j]
			}
		}
		sum := 0.0
		for _, v := range xProj {
			sum += v
		}
		for i := 0; i < n; i++ {
			g[i] += 2 * penaltyWeight * (sum - 1.0)
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
