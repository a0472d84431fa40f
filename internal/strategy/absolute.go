package strategy

import (
	"sort"
	"time"
)

// Absolute implements the absolute-momentum variant: select the
// strongest-scoring symbols above a threshold, with no relative
// comparison to a safe asset.
type Absolute struct {
	cfg Config
}

// NewAbsolute constructs an absolute momentum strategy. cfg must already
// have passed Validate.
func NewAbsolute(cfg Config) *Absolute {
	return &Absolute{cfg: cfg}
}

func (a *Absolute) RequiredHistory() int { return a.cfg.RequiredHistory() }

func (a *Absolute) ShouldRebalance(current, lastRebalance time.Time) bool {
	return ShouldRebalance(a.cfg.RebalanceFrequency, current, lastRebalance)
}

// Generate filters scores against the absolute threshold, ranks the
// survivors, and emits a signal per selected symbol.
func (a *Absolute) Generate(timestamp time.Time, scores map[string]float64) []Signal {
	return generateFromScores(timestamp, scores, a.cfg)
}

// generateFromScores is the shared selection/ranking/strength pipeline
// used by both Absolute and Dual, since Dual differs
// only in how the input scores are computed upstream.
func generateFromScores(timestamp time.Time, scores map[string]float64, cfg Config) []Signal {
	var passed []scoredSymbol
	for sym, score := range scores {
		if score > cfg.AbsoluteThreshold {
			passed = append(passed, scoredSymbol{sym, score})
		}
	}

	if len(passed) == 0 {
		if cfg.SafeAsset != "" {
			return []Signal{{
				Timestamp: timestamp,
				Symbol:    cfg.SafeAsset,
				Direction: Long,
				Strength:  1.0,
				Rank:      1,
			}}
		}
		return nil
	}

	sort.Slice(passed, func(i, j int) bool {
		if passed[i].score != passed[j].score {
			return passed[i].score > passed[j].score
		}
		return passed[i].symbol < passed[j].symbol // deterministic tie-break
	})
	if len(passed) > cfg.PositionCount {
		passed = passed[:cfg.PositionCount]
	}

	strengths := computeStrengths(passed, cfg)

	signals := make([]Signal, len(passed))
	for i, p := range passed {
		signals[i] = Signal{
			Timestamp: timestamp,
			Symbol:    p.symbol,
			Direction: Long,
			Strength:  clampUnit(strengths[p.symbol]),
			Score:     p.score,
			Rank:      i + 1,
		}
	}
	return signals
}

type scoredSymbol = struct {
	symbol string
	score  float64
}

// computeStrengths maps each selected symbol's score to a [0,1]
// strength under the configured method.
func computeStrengths(selected []scoredSymbol, cfg Config) map[string]float64 {
	out := make(map[string]float64, len(selected))
	switch cfg.StrengthMethod {
	case StrengthBinary:
		for _, s := range selected {
			out[s.symbol] = 1.0
		}
	case StrengthLinear:
		// scale is independent of threshold: this fixes the historical
		// bug of dividing by (threshold + 0.1).
		for _, s := range selected {
			out[s.symbol] = (s.score - cfg.AbsoluteThreshold) / cfg.StrengthScaleRange
		}
	case StrengthProportional:
		var sum float64
		for _, s := range selected {
			sum += s.score
		}
		for _, s := range selected {
			if sum == 0 {
				out[s.symbol] = 0
				continue
			}
			out[s.symbol] = s.score / sum
		}
	case StrengthMomentumRatio:
		max := selected[0].score
		for _, s := range selected {
			if s.score > max {
				max = s.score
			}
		}
		for _, s := range selected {
			if max == 0 {
				out[s.symbol] = 0
				continue
			}
			out[s.symbol] = s.score / max
		}
	}
	return out
}
