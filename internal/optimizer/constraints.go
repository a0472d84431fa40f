package optimizer

import "math"

// clampAndRenormalize clamps every weight to [min, max] and renormalizes
// so weights sum to 1.0 (+- 1e-6). Returns InfeasibleConstraintsError
// when clamping makes normalization impossible (e.g. N*max_weight < 1).
func clampAndRenormalize(weights map[string]float64, c Constraints) (map[string]float64, error) {
	n := len(weights)
	minW, maxW := c.MinWeight, c.MaxWeight
	if maxW == 0 {
		maxW = 1
	}
	if float64(n)*maxW < 1-1e-6 || float64(n)*minW > 1+1e-6 {
		return nil, &InfeasibleConstraintsError{N: n, MinWeight: minW, MaxWeight: maxW}
	}

	clamped := make(map[string]float64, n)
	for sym, w := range weights {
		clamped[sym] = math.Min(maxW, math.Max(minW, w))
	}

	// Iterative water-filling renormalization: redistribute the
	// sum-to-1 shortfall/excess proportionally among symbols not
	// already pinned at a bound, re-clamping each pass, until the
	// total is within tolerance or no symbol has slack left.
	for pass := 0; pass < 50; pass++ {
		total := 0.0
		for _, w := range clamped {
			total += w
		}
		if math.Abs(total-1.0) <= 1e-6 {
			break
		}
		deficit := 1.0 - total
		var freeSum float64
		free := make([]string, 0, n)
		for sym, w := range clamped {
			if deficit > 0 && w < maxW-1e-12 {
				free = append(free, sym)
				freeSum += w
			} else if deficit < 0 && w > minW+1e-12 {
				free = append(free, sym)
				freeSum += w
			}
		}
		if len(free) == 0 {
			break
		}
		for _, sym := range free {
			share := deficit
			if freeSum > 0 {
				share = deficit * (clamped[sym] / freeSum)
			} else {
				share = deficit / float64(len(free))
			}
			clamped[sym] = math.Min(maxW, math.Max(minW, clamped[sym]+share))
		}
	}

	return clamped, nil
}
