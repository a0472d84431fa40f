// Package metrics converts an equity curve and trade log into
// performance statistics: CAGR, annualized return/volatility, Sharpe,
// Sortino, Calmar, max drawdown, monthly stats, win rate, and profit
// factor. Every ratio is annualized exactly once, by design, to avoid
// mixing daily and annualized figures in the same computation.
package metrics

import (
	"math"
	"time"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/stat"
)

// EquityPoint is one (timestamp, value) observation of the equity curve.
type EquityPoint struct {
	Timestamp time.Time
	Value     float64
}

// ClosingTrade is a round-trip trade with a realized P&L, the only kind
// the win-rate/profit-factor statistics consider.
type ClosingTrade struct {
	PnL float64
}

// Result is the full performance-metrics struct, including a few
// consumer-compatibility aliases alongside the primary field names.
type Result struct {
	TotalReturn       float64
	CAGR              float64
	AnnualReturn      float64
	AnnualVolatility  float64
	Sharpe            float64
	Sortino           float64
	MaxDrawdown       float64
	Calmar            float64
	BestMonth         float64
	WorstMonth        float64
	PositiveMonthsPct float64
	WinRate           float64
	ProfitFactor      float64
	AvgWin            float64
	AvgLoss           float64

	// Aliases for consumer compatibility; consumers must not
	// re-annualize these.
	AnnualizedReturn float64
	Volatility       float64
}

// Compute derives the full performance-metrics struct from an equity
// curve and trade log. Returns an all-zero Result when equity has fewer
// than 2 points (too short to derive any return).
func Compute(equity []EquityPoint, trades []ClosingTrade, riskFreeAnnual float64) Result {
	return ComputeWithLogger(equity, trades, riskFreeAnnual, zerolog.Nop())
}

// ComputeWithLogger is Compute with a logger for the suspicious-value
// diagnostics (a CAGR outside [-1, 100] usually means corrupted input
// rather than a genuine 10,000% compounding rate).
func ComputeWithLogger(equity []EquityPoint, trades []ClosingTrade, riskFreeAnnual float64, log zerolog.Logger) Result {
	if len(equity) < 2 {
		return Result{}
	}

	returns := dailyReturns(equity)
	if len(returns) == 0 {
		return Result{}
	}

	first := equity[0].Value
	last := equity[len(equity)-1].Value
	totalReturn := last/first - 1

	years := equity[len(equity)-1].Timestamp.Sub(equity[0].Timestamp).Hours() / 24 / 365.25
	cagr := 0.0
	if years >= 0.003 {
		cagr = math.Pow(last/first, 1/years) - 1
	}
	if cagr < -1 || cagr > 100 {
		log.Warn().Float64("cagr", cagr).Float64("years", years).Msg("suspicious CAGR; check the equity curve for corrupted values")
	}

	annualReturn := stat.Mean(returns, nil) * 252
	annualVol := sampleStdDev(returns) * math.Sqrt(252)

	var sharpe float64
	if annualVol == 0 {
		sharpe = math.NaN()
	} else {
		sharpe = (annualReturn - riskFreeAnnual) / annualVol
	}

	sortino := sortinoRatio(returns, annualReturn, riskFreeAnnual)
	maxDD := maxDrawdown(equity)

	var calmar float64
	if maxDD == 0 {
		calmar = math.NaN()
	} else {
		calmar = cagr / math.Abs(maxDD)
	}

	best, worst, posPct := monthlyStats(equity)

	winRate, profitFactor, avgWin, avgLoss := tradeStats(trades)

	return Result{
		TotalReturn:       totalReturn,
		CAGR:              cagr,
		AnnualReturn:      annualReturn,
		AnnualVolatility:  annualVol,
		Sharpe:            sharpe,
		Sortino:           sortino,
		MaxDrawdown:       maxDD,
		Calmar:            calmar,
		BestMonth:         best,
		WorstMonth:        worst,
		PositiveMonthsPct: posPct,
		WinRate:           winRate,
		ProfitFactor:      profitFactor,
		AvgWin:            avgWin,
		AvgLoss:           avgLoss,
		AnnualizedReturn:  annualReturn,
		Volatility:        annualVol,
	}
}

// dailyReturns computes r_t = equity_t/equity_{t-1} - 1, dropping the
// first (undefined) return.
func dailyReturns(equity []EquityPoint) []float64 {
	if len(equity) < 2 {
		return nil
	}
	out := make([]float64, 0, len(equity)-1)
	for i := 1; i < len(equity); i++ {
		prev := equity[i-1].Value
		if prev == 0 {
			out = append(out, 0)
			continue
		}
		out = append(out, equity[i].Value/prev-1)
	}
	return out
}

// sampleStdDev computes the ddof=1 sample standard deviation.
func sampleStdDev(data []float64) float64 {
	if len(data) < 2 {
		return 0
	}
	return stat.StdDev(data, nil)
}

func sortinoRatio(returns []float64, annualReturn, riskFreeAnnual float64) float64 {
	var downsideSq float64
	var n int
	for _, r := range returns {
		if r < 0 {
			downsideSq += r * r
			n++
		}
	}
	if n == 0 {
		return math.NaN()
	}
	downsideDailyStdDev := math.Sqrt(downsideSq / float64(n))
	downsideAnnual := downsideDailyStdDev * math.Sqrt(252)
	if downsideAnnual == 0 {
		return math.NaN()
	}
	return (annualReturn - riskFreeAnnual) / downsideAnnual
}

// maxDrawdown implements min_t(equity_t/peak_t - 1),
// expressed as a negative fraction.
func maxDrawdown(equity []EquityPoint) float64 {
	peak := equity[0].Value
	worst := 0.0
	for _, p := range equity {
		if p.Value > peak {
			peak = p.Value
		}
		if peak <= 0 {
			continue
		}
		dd := p.Value/peak - 1
		if dd < worst {
			worst = dd
		}
	}
	return worst
}

// monthlyStats resamples the equity curve to month-end, computes
// per-month compound returns, and derives best/worst/positive-months%.
// Requires >= 20 daily observations, else returns all zeros.
func monthlyStats(equity []EquityPoint) (best, worst, positivePct float64) {
	if len(equity) < 20 {
		return 0, 0, 0
	}

	type monthKey struct {
		year  int
		month time.Month
	}
	lastOfMonth := make(map[monthKey]float64)
	order := make([]monthKey, 0)
	for _, p := range equity {
		k := monthKey{p.Timestamp.Year(), p.Timestamp.Month()}
		if _, seen := lastOfMonth[k]; !seen {
			order = append(order, k)
		}
		lastOfMonth[k] = p.Value
	}
	if len(order) < 2 {
		return 0, 0, 0
	}

	monthlyReturns := make([]float64, 0, len(order)-1)
	for i := 1; i < len(order); i++ {
		prev := lastOfMonth[order[i-1]]
		cur := lastOfMonth[order[i]]
		if prev == 0 {
			monthlyReturns = append(monthlyReturns, 0)
			continue
		}
		monthlyReturns = append(monthlyReturns, cur/prev-1)
	}

	best = monthlyReturns[0]
	worst = monthlyReturns[0]
	var positive int
	for _, r := range monthlyReturns {
		if r > best {
			best = r
		}
		if r < worst {
			worst = r
		}
		if r > 0 {
			positive++
		}
	}
	positivePct = 100 * float64(positive) / float64(len(monthlyReturns))
	return best, worst, positivePct
}

// tradeStats computes win_rate, profit_factor, avg_win, avg_loss from
// closing trades only.
func tradeStats(trades []ClosingTrade) (winRate, profitFactor, avgWin, avgLoss float64) {
	if len(trades) == 0 {
		return 0, 0, 0, 0
	}
	var wins, losses int
	var winSum, lossSum float64
	for _, t := range trades {
		if t.PnL > 0 {
			wins++
			winSum += t.PnL
		} else if t.PnL < 0 {
			losses++
			lossSum += -t.PnL
		}
	}
	winRate = 100 * float64(wins) / float64(len(trades))
	if wins > 0 {
		avgWin = winSum / float64(wins)
	}
	if losses > 0 {
		avgLoss = lossSum / float64(losses)
	}
	if lossSum == 0 {
		if winSum > 0 {
			profitFactor = math.Inf(1)
		} else {
			profitFactor = math.NaN()
		}
	} else {
		profitFactor = winSum / lossSum
	}
	return winRate, profitFactor, avgWin, avgLoss
}
