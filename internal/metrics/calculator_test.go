package metrics

import (
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func equityCurve(start time.Time, values ...float64) []EquityPoint {
	out := make([]EquityPoint, len(values))
	for i, v := range values {
		out[i] = EquityPoint{Timestamp: start.AddDate(0, 0, i), Value: v}
	}
	return out
}

func TestCompute_EmptyForTooShortInput(t *testing.T) {
	start := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	result := Compute(equityCurve(start, 100), nil, 0.02)
	assert.Equal(t, Result{}, result)
}

func TestCompute_TotalReturn(t *testing.T) {
	start := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	result := Compute(equityCurve(start, 100, 110, 121), nil, 0.0)
	assert.InDelta(t, 0.21, result.TotalReturn, 1e-9)
}

func TestCompute_MaxDrawdown(t *testing.T) {
	start := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	result := Compute(equityCurve(start, 100, 120, 90, 110), nil, 0.0)
	// peak=120, trough=90: drawdown = 90/120 - 1 = -0.25
	assert.InDelta(t, -0.25, result.MaxDrawdown, 1e-9)
}

func TestCompute_AliasesMatchPrimaryFields(t *testing.T) {
	start := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	values := make([]float64, 40)
	v := 100.0
	for i := range values {
		v *= 1.001
		values[i] = v
	}
	result := Compute(equityCurve(start, values...), nil, 0.0)
	assert.Equal(t, result.AnnualReturn, result.AnnualizedReturn)
	assert.Equal(t, result.AnnualVolatility, result.Volatility)
}

func TestCompute_CAGRZeroForShortDuration(t *testing.T) {
	start := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	result := Compute(equityCurve(start, 100, 101), nil, 0.0)
	assert.Equal(t, 0.0, result.CAGR)
}

func TestCompute_MonthlyStatsRequireTwentyObservations(t *testing.T) {
	start := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	values := make([]float64, 10)
	for i := range values {
		values[i] = 100 + float64(i)
	}
	result := Compute(equityCurve(start, values...), nil, 0.0)
	assert.Equal(t, 0.0, result.BestMonth)
	assert.Equal(t, 0.0, result.WorstMonth)
	assert.Equal(t, 0.0, result.PositiveMonthsPct)
}

func TestCompute_WinRateAndProfitFactor(t *testing.T) {
	start := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	trades := []ClosingTrade{{PnL: 100}, {PnL: -50}, {PnL: 200}, {PnL: -25}}
	result := Compute(equityCurve(start, 100, 105), trades, 0.0)
	assert.InDelta(t, 50.0, result.WinRate, 1e-9)
	assert.InDelta(t, 300.0/75.0, result.ProfitFactor, 1e-9)
	assert.InDelta(t, 150.0, result.AvgWin, 1e-9)
	assert.InDelta(t, 37.5, result.AvgLoss, 1e-9)
}

func TestCompute_SharpeAnnualizationRegression(t *testing.T) {
	// Synthetic daily returns with mean 0.000408 and std 0.007 over 252
	// days at a 2% risk-free rate must produce an annual return near
	// 10.3%, volatility near 11.1%, and a Sharpe near 0.74. A result
	// anywhere near -2.78 means daily and annual figures were mixed.
	const mean, std = 0.000408, 0.007
	start := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	equity := make([]EquityPoint, 253)
	equity[0] = EquityPoint{Timestamp: start, Value: 100000}
	for i := 1; i <= 252; i++ {
		sign := 1.0
		if i%2 == 0 {
			sign = -1.0
		}
		r := mean + std*sign
		equity[i] = EquityPoint{
			Timestamp: start.AddDate(0, 0, i),
			Value:     equity[i-1].Value * (1 + r),
		}
	}

	result := Compute(equity, nil, 0.02)
	assert.InDelta(t, 0.1028, result.AnnualReturn, 1e-3)
	assert.InDelta(t, 0.1112, result.AnnualVolatility, 1e-3)
	assert.InDelta(t, 0.74, result.Sharpe, 0.01)
}

func TestCompute_Idempotent(t *testing.T) {
	start := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	values := make([]float64, 60)
	v := 100.0
	for i := range values {
		v *= 1.0 + 0.001*float64(i%5)
		values[i] = v
	}
	curve := equityCurve(start, values...)
	first := Compute(curve, nil, 0.02)
	second := Compute(curve, nil, 0.02)
	// This curve never falls, so Sortino and Calmar are NaN, and NaN
	// never compares equal to itself field by field; compare the full
	// printed form instead.
	assert.Equal(t, fmt.Sprintf("%#v", first), fmt.Sprintf("%#v", second))
}

func TestCompute_SharpeNaNWhenZeroVolatility(t *testing.T) {
	start := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	result := Compute(equityCurve(start, 100, 100, 100), nil, 0.0)
	assert.True(t, math.IsNaN(result.Sharpe))
}
