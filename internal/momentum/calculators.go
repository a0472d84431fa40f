// Package momentum implements the pure momentum scoring functions.
// Every calculator is a stateless function over a bar window; none of
// them touch portfolio state.
package momentum

import (
	"math"

	"github.com/markcheno/go-talib"
	"gonum.org/v1/gonum/stat"

	"momentumbt/internal/panel"
)

// AbsoluteReturn computes score[t] = close[t]/close[t-N] - 1 for the
// last bar in window. window must contain at least N+1 bars: an N-bar
// percentage change at the last row references the row N positions
// earlier. Returns NaN when the window is too short.
func AbsoluteReturn(window []panel.Bar, n int) float64 {
	if n < 1 || len(window) < n+1 {
		return math.NaN()
	}
	last := window[len(window)-1].Close
	ref := window[len(window)-1-n].Close
	if ref == 0 {
		return math.NaN()
	}
	return last/ref - 1
}

// VolatilityAdjusted divides the absolute return momentum by the rolling
// standard deviation of daily returns over the same lookback. Undefined
// (NaN) when the denominator is zero or the window is too short.
func VolatilityAdjusted(window []panel.Bar, n int) float64 {
	absMom := AbsoluteReturn(window, n)
	if math.IsNaN(absMom) {
		return math.NaN()
	}
	if len(window) < n+1 {
		return math.NaN()
	}
	closes := closesOf(window[len(window)-n-1:])
	returns := dailyReturns(closes)
	if len(returns) == 0 {
		return math.NaN()
	}
	vol := stat.StdDev(returns, nil)
	if vol == 0 {
		return math.NaN()
	}
	return absMom / vol
}

// MovingAverageCrossover computes MA_fast[t]/MA_slow[t] - 1 using
// talib.Sma. Returns NaN when the window does not cover the slow period
// or the slow average is zero.
func MovingAverageCrossover(window []panel.Bar, fast, slow int) float64 {
	if fast < 1 || slow < 1 || fast >= slow || len(window) < slow {
		return math.NaN()
	}
	closes := closesOf(window)
	fastMA := talib.Sma(closes, fast)
	slowMA := talib.Sma(closes, slow)
	if len(fastMA) == 0 || len(slowMA) == 0 {
		return math.NaN()
	}
	fastLast := fastMA[len(fastMA)-1]
	slowLast := slowMA[len(slowMA)-1]
	if slowLast == 0 || isNaN(fastLast) || isNaN(slowLast) {
		return math.NaN()
	}
	return fastLast/slowLast - 1
}

func closesOf(bars []panel.Bar) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = b.Close
	}
	return out
}

// dailyReturns computes the simple percentage change between
// consecutive closes.
func dailyReturns(closes []float64) []float64 {
	if len(closes) < 2 {
		return nil
	}
	out := make([]float64, len(closes)-1)
	for i := 1; i < len(closes); i++ {
		if closes[i-1] == 0 {
			out[i-1] = 0
			continue
		}
		out[i-1] = (closes[i] - closes[i-1]) / closes[i-1]
	}
	return out
}

func isNaN(f float64) bool { return f != f }

// FilterValid removes NaN scores from a symbol->score map; NaN scores
// are excluded from all downstream ranking.
func FilterValid(scores map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(scores))
	for sym, s := range scores {
		if !math.IsNaN(s) {
			out[sym] = s
		}
	}
	return out
}
