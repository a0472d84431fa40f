package tuner

import "math/rand"

// BayesianCombinations stands in for a surrogate-guided search: lacking
// a Gaussian-process or tree-structured-Parzen-estimator library, it
// builds on seeded random search and returns all nTrials parameter sets
// as one slice.
//
// The first half of the trials (at least one) are pure random draws
// (exploration); when scoreOf is given, each set is scored as it is
// drawn and the remainder resample near the best trial seen so far (a
// crude greedy exploitation step standing in for a proper acquisition
// function). With a nil scoreOf every set is a pure random draw.
func BayesianCombinations(space []ParamSpec, nTrials int, seed int64, scoreOf func(map[string]any) (float64, error)) []map[string]any {
	rng := rand.New(rand.NewSource(seed))
	exploreCount := nTrials / 2
	if exploreCount < 1 {
		exploreCount = 1
	}

	out := make([]map[string]any, 0, nTrials)
	var bestParams map[string]any
	var bestScore float64
	haveBest := false

	for t := 0; t < nTrials; t++ {
		var params map[string]any
		if t < exploreCount || !haveBest {
			params = drawAll(space, rng)
		} else {
			params = perturb(space, bestParams, rng)
		}
		out = append(out, params)

		if scoreOf != nil {
			score, err := scoreOf(params)
			if err == nil && (!haveBest || score > bestScore) {
				bestScore = score
				bestParams = params
				haveBest = true
			}
		}
	}
	return out
}

func drawAll(space []ParamSpec, rng *rand.Rand) map[string]any {
	entry := make(map[string]any, len(space))
	for _, p := range space {
		entry[p.Name] = drawParam(p, rng)
	}
	return entry
}

// perturb resamples each continuous parameter near its value in base,
// clamped to the parameter's range; categorical/int-grid parameters are
// resampled fresh.
func perturb(space []ParamSpec, base map[string]any, rng *rand.Rand) map[string]any {
	entry := make(map[string]any, len(space))
	for _, p := range space {
		if p.Type == ParamFloat && len(p.Values) == 0 {
			center, ok := base[p.Name].(float64)
			if !ok {
				entry[p.Name] = drawParam(p, rng)
				continue
			}
			span := (p.High - p.Low) * 0.1
			v := center + (rng.Float64()*2-1)*span
			if v < p.Low {
				v = p.Low
			}
			if v > p.High {
				v = p.High
			}
			entry[p.Name] = v
			continue
		}
		entry[p.Name] = drawParam(p, rng)
	}
	return entry
}
