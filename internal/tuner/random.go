package tuner

import "math/rand"

// RandomCombinations draws nTrials parameter sets from a seeded PRNG,
// one draw per parameter per trial. The seed is the caller's
// responsibility to record in the TuningResult for reproducibility.
func RandomCombinations(space []ParamSpec, nTrials int, seed int64) []map[string]any {
	rng := rand.New(rand.NewSource(seed))
	out := make([]map[string]any, nTrials)
	for t := 0; t < nTrials; t++ {
		entry := make(map[string]any, len(space))
		for _, p := range space {
			entry[p.Name] = drawParam(p, rng)
		}
		out[t] = entry
	}
	return out
}

func drawParam(p ParamSpec, rng *rand.Rand) any {
	switch p.Type {
	case ParamCategorical:
		if len(p.Values) == 0 {
			return nil
		}
		return p.Values[rng.Intn(len(p.Values))]
	case ParamInt:
		if len(p.Values) > 0 {
			return p.Values[rng.Intn(len(p.Values))]
		}
		lo, hi := int(p.Low), int(p.High)
		if hi <= lo {
			return lo
		}
		return lo + rng.Intn(hi-lo+1)
	case ParamFloat:
		if len(p.Values) > 0 {
			return p.Values[rng.Intn(len(p.Values))]
		}
		return p.Low + rng.Float64()*(p.High-p.Low)
	}
	return nil
}
