package optimizer

import "fmt"

// inverseVolatility implements w_i ∝ 1/σ_i, normalized.
func inverseVolatility(in Inputs) (map[string]float64, error) {
	vol := volVector(in)
	inv := make([]float64, len(vol))
	var sum float64
	for i, v := range vol {
		if v == 0 {
			return nil, fmt.Errorf("optimizer: inverse_volatility undefined for zero-volatility symbol %s", in.Symbols[i])
		}
		inv[i] = 1.0 / v
		sum += inv[i]
	}
	out := make(map[string]float64, len(in.Symbols))
	for i, s := range in.Symbols {
		out[s] = inv[i] / sum
	}
	return out, nil
}
