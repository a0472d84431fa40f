package optimizer

import (
	"fmt"
	"math"
)

// riskParity finds w such that the risk contribution w_i*(Σw)_i is
// equal across i, subject to Σw=1, via cyclic coordinate descent.
func riskParity(in Inputs) (map[string]float64, error) {
	n := len(in.Symbols)
	cov := covarianceMatrix(in)

	w := make([]float64, n)
	for i := range w {
		w[i] = 1.0 / float64(n)
	}

	const maxIter = 200
	const tol = 1e-10
	for iter := 0; iter < maxIter; iter++ {
		maxDiff := 0.0
		for i := 0; i < n; i++ {
			var marginal float64
			for j := 0; j < n; j++ {
				marginal += cov.At(i, j) * w[j]
			}
			if marginal <= 0 {
				continue
			}
			// target: each asset's risk contribution w_i*marginal_i
			// should equal 1/n. Update w_i to (1/n) / marginal_i with
			// the current marginal (Σw)_i, then renormalize each pass.
			target := 1.0 / float64(n)
			newWi := target / marginal
			if newWi < 0 {
				newWi = 0
			}
			diff := math.Abs(newWi - w[i])
			if diff > maxDiff {
				maxDiff = diff
			}
			w[i] = newWi
		}
		sum := 0.0
		for _, v := range w {
			sum += v
		}
		if sum <= 0 {
			return nil, fmt.Errorf("optimizer: risk_parity degenerated to zero weight sum")
		}
		for i := range w {
			w[i] /= sum
		}
		if maxDiff < tol {
			break
		}
	}

	out := make(map[string]float64, n)
	for i, s := range in.Symbols {
		out[s] = w[i]
	}
	return out, nil
}
