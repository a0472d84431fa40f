package engine

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"momentumbt/internal/optimizer"
	"momentumbt/internal/panel"
	"momentumbt/internal/risk"
	"momentumbt/internal/strategy"
)

func makeSeries(symbol string, n int, start, slope float64, class panel.AssetClass) panel.PriceSeries {
	startTime := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	bars := make([]panel.Bar, n)
	price := start
	for i := 0; i < n; i++ {
		price = price * (1 + slope)
		bars[i] = panel.Bar{
			Timestamp: startTime.AddDate(0, 0, i),
			Open:      price, High: price * 1.01, Low: price * 0.99, Close: price, Volume: 1000,
		}
	}
	return panel.PriceSeries{Symbol: symbol, Metadata: panel.NewAssetMetadata(symbol, class), Bars: bars}
}

func baseConfig(strat strategy.Strategy) Config {
	return Config{
		Strategy:       strat,
		MomentumMethod: MomentumAbsolute,
		Lookback:       10,
		ExecutionDelay: 0,
		Commission:     0.001,
		Slippage:       0.001,
		RiskConfig:     risk.Config{MaxPositionSize: 1.0, MaxLeverage: 1.0},
		RiskFreeAnnual: 0.0,
		InitialCapital: 100000,
		Logger:         zerolog.Nop(),
	}
}

func TestRun_TwoAssetEqualWeight(t *testing.T) {
	series := map[string]panel.PriceSeries{
		"A": makeSeries("A", 300, 100, 0.002, panel.AssetEquity),
		"B": makeSeries("B", 300, 100, 0.001, panel.AssetEquity),
	}
	aligned, err := panel.Align(series, panel.AlignOptions{RequiredHistory: 20})
	require.NoError(t, err)

	cfg := strategy.Config{
		LookbackPeriod: 10, RebalanceFrequency: strategy.RebalanceMonthly,
		PositionCount: 2, AbsoluteThreshold: 0.0, StrengthMethod: strategy.StrengthBinary,
	}
	strat := strategy.NewAbsolute(cfg)

	econfig := baseConfig(strat)
	result, err := Run(context.Background(), econfig, aligned, "run-1")
	require.NoError(t, err)
	assert.NotEmpty(t, result.EquityCurve)
	assert.Equal(t, 100000.0, result.InitialCapital)
	assert.True(t, result.FinalCapital > 0)
}

func TestRun_SafeAssetFallback(t *testing.T) {
	series := map[string]panel.PriceSeries{
		"RISKY1": makeSeries("RISKY1", 300, 100, -0.002, panel.AssetEquity),
		"RISKY2": makeSeries("RISKY2", 300, 100, -0.0015, panel.AssetEquity),
		"BOND":   makeSeries("BOND", 300, 100, 0.0002, panel.AssetBond),
	}
	aligned, err := panel.Align(series, panel.AlignOptions{RequiredHistory: 20})
	require.NoError(t, err)

	cfg := strategy.Config{
		LookbackPeriod: 10, RebalanceFrequency: strategy.RebalanceMonthly,
		PositionCount: 2, AbsoluteThreshold: 0.0, StrengthMethod: strategy.StrengthBinary,
		SafeAsset: "BOND",
	}
	strat := strategy.NewAbsolute(cfg)
	econfig := baseConfig(strat)
	econfig.SafeAsset = "BOND"

	result, err := Run(context.Background(), econfig, aligned, "run-2")
	require.NoError(t, err)

	var sawBondBuy bool
	for _, trade := range result.Trades {
		if trade.Symbol == "BOND" && trade.Side == TradeBuy {
			sawBondBuy = true
		}
	}
	assert.True(t, sawBondBuy, "expected at least one BOND buy when risky assets have negative momentum")
}

func TestRun_SafeAssetMissingFromPanelIsRecorded(t *testing.T) {
	series := map[string]panel.PriceSeries{
		"RISKY1": makeSeries("RISKY1", 300, 100, -0.002, panel.AssetEquity),
		"RISKY2": makeSeries("RISKY2", 300, 100, -0.0015, panel.AssetEquity),
	}
	aligned, err := panel.Align(series, panel.AlignOptions{RequiredHistory: 20})
	require.NoError(t, err)

	cfg := strategy.Config{
		LookbackPeriod: 10, RebalanceFrequency: strategy.RebalanceMonthly,
		PositionCount: 2, AbsoluteThreshold: 0.0, StrengthMethod: strategy.StrengthBinary,
		SafeAsset: "BOND",
	}
	strat := strategy.NewAbsolute(cfg)
	econfig := baseConfig(strat)
	econfig.SafeAsset = "BOND"

	result, err := Run(context.Background(), econfig, aligned, "run-missing-safe")
	require.NoError(t, err)

	// No position can ever open: the only signal is the unavailable
	// defensive asset, so cash stays untouched and the skip is recorded.
	assert.Empty(t, result.Trades)
	assert.Equal(t, result.InitialCapital, result.FinalCapital)
	assert.InDelta(t, 0.0, result.Metrics.TotalReturn, 1e-9)

	var sawSkip bool
	for _, s := range result.SkippedSignals {
		if s.Symbol == "BOND" && s.Reason == ReasonSafeAssetUnavailable {
			sawSkip = true
		}
	}
	assert.True(t, sawSkip, "expected a recorded SafeAssetUnavailable skip for BOND")
}

func TestRun_EquityIdentityHoldsEveryBar(t *testing.T) {
	series := map[string]panel.PriceSeries{
		"A": makeSeries("A", 250, 100, 0.002, panel.AssetEquity),
		"B": makeSeries("B", 250, 100, 0.001, panel.AssetEquity),
	}
	aligned, err := panel.Align(series, panel.AlignOptions{RequiredHistory: 20})
	require.NoError(t, err)

	cfg := strategy.Config{
		LookbackPeriod: 10, RebalanceFrequency: strategy.RebalanceWeekly,
		PositionCount: 2, AbsoluteThreshold: 0.0, StrengthMethod: strategy.StrengthBinary,
	}
	strat := strategy.NewAbsolute(cfg)
	econfig := baseConfig(strat)

	result, err := Run(context.Background(), econfig, aligned, "run-identity")
	require.NoError(t, err)

	// The equity index is strictly increasing and the curve never
	// requires borrowed cash.
	for i := 1; i < len(result.EquityCurve); i++ {
		assert.True(t, result.EquityCurve[i].Timestamp.After(result.EquityCurve[i-1].Timestamp))
	}
	for _, p := range result.EquityCurve {
		assert.GreaterOrEqual(t, p.Value, 0.0)
	}

	// Replaying the fills reproduces every recorded equity point as
	// cash + Σ quantity × close. A bar's equity is recorded before that
	// bar's own fills execute.
	cash := result.InitialCapital
	held := make(map[string]float64)
	next := 0
	for i, p := range result.EquityCurve {
		for next < len(result.Trades) && result.Trades[next].Timestamp.Before(p.Timestamp) {
			tr := result.Trades[next]
			if tr.Side == TradeBuy {
				cash -= tr.Quantity*tr.Price + tr.Commission
				held[tr.Symbol] += tr.Quantity
			} else {
				cash += tr.Quantity*tr.Price - tr.Commission
				held[tr.Symbol] -= tr.Quantity
			}
			next++
		}
		assert.GreaterOrEqual(t, cash, 0.0)
		expected := cash
		for sym, qty := range held {
			bar, _ := aligned.At(sym, i)
			expected += qty * bar.Close
		}
		assert.InDelta(t, expected, p.Value, 1e-6*expected)
	}

	// Opening trades minus closing trades leaves exactly the positions
	// still open at the end. A buy from flat opens a position and a sell
	// back to flat closes it; the partial buys and sells of a rebalance
	// in between neither open nor close one.
	opens := make(map[string]int)
	closes := make(map[string]int)
	qty := make(map[string]float64)
	for _, tr := range result.Trades {
		if tr.Side == TradeBuy {
			if qty[tr.Symbol] <= 1e-9 {
				opens[tr.Symbol]++
			}
			qty[tr.Symbol] += tr.Quantity
		} else {
			qty[tr.Symbol] -= tr.Quantity
			if qty[tr.Symbol] <= 1e-9 {
				closes[tr.Symbol]++
			}
		}
	}
	for sym, n := range closes {
		assert.LessOrEqual(t, n, opens[sym], "symbol %s closed more times than it opened", sym)
	}
	for sym, n := range opens {
		stillOpen := 0
		if qty[sym] > 1e-9 {
			stillOpen = 1
		}
		assert.Equal(t, stillOpen, n-closes[sym], "symbol %s", sym)
	}
}

func TestRun_OptimizerOverrideProducesWeightsSummingToOne(t *testing.T) {
	series := map[string]panel.PriceSeries{
		"A": makeSeries("A", 300, 100, 0.002, panel.AssetEquity),
		"B": makeSeries("B", 300, 100, 0.0018, panel.AssetEquity),
		"C": makeSeries("C", 300, 100, 0.0015, panel.AssetEquity),
	}
	aligned, err := panel.Align(series, panel.AlignOptions{RequiredHistory: 20})
	require.NoError(t, err)

	cfg := strategy.Config{
		LookbackPeriod: 10, RebalanceFrequency: strategy.RebalanceMonthly,
		PositionCount: 3, AbsoluteThreshold: 0.0, StrengthMethod: strategy.StrengthBinary,
	}
	strat := strategy.NewAbsolute(cfg)
	econfig := baseConfig(strat)
	econfig.OptimizerMethod = optimizer.EqualWeight

	result, err := Run(context.Background(), econfig, aligned, "run-3")
	require.NoError(t, err)
	assert.NotEmpty(t, result.Trades)
}

func TestRun_WarmUpGatesEarlyRebalancing(t *testing.T) {
	series := map[string]panel.PriceSeries{
		"A": makeSeries("A", 60, 100, 0.001, panel.AssetEquity),
	}
	aligned, err := panel.Align(series, panel.AlignOptions{RequiredHistory: 30})
	require.NoError(t, err)

	cfg := strategy.Config{
		LookbackPeriod: 30, RebalanceFrequency: strategy.RebalanceDaily,
		PositionCount: 1, AbsoluteThreshold: -1.0, StrengthMethod: strategy.StrengthBinary,
	}
	strat := strategy.NewAbsolute(cfg)
	econfig := baseConfig(strat)
	econfig.Lookback = 30

	result, err := Run(context.Background(), econfig, aligned, "run-4")
	require.NoError(t, err)
	for _, trade := range result.Trades {
		assert.True(t, trade.Timestamp.After(aligned.Index[29]) || trade.Timestamp.Equal(aligned.Index[30]))
	}
}

func TestRun_MonthlyCadenceOverThreeYears(t *testing.T) {
	series := map[string]panel.PriceSeries{
		"A": makeSeries("A", 1100, 100, 0.001, panel.AssetEquity),
	}
	aligned, err := panel.Align(series, panel.AlignOptions{RequiredHistory: 20})
	require.NoError(t, err)

	cfg := strategy.Config{
		LookbackPeriod: 10, RebalanceFrequency: strategy.RebalanceMonthly,
		PositionCount: 1, AbsoluteThreshold: -1.0, StrengthMethod: strategy.StrengthBinary,
	}
	strat := strategy.NewAbsolute(cfg)
	econfig := baseConfig(strat)

	result, err := Run(context.Background(), econfig, aligned, "run-cadence")
	require.NoError(t, err)

	rebalances := make(map[time.Time]bool)
	for _, s := range result.SignalsHistory {
		rebalances[s.Timestamp] = true
	}
	// Roughly one rebalance per calendar month across ~36 months.
	assert.GreaterOrEqual(t, len(rebalances), 35)
	assert.LessOrEqual(t, len(rebalances), 38)
}

func TestRun_DeterministicAcrossRuns(t *testing.T) {
	series := map[string]panel.PriceSeries{
		"A": makeSeries("A", 200, 100, 0.002, panel.AssetEquity),
		"B": makeSeries("B", 200, 100, 0.001, panel.AssetEquity),
	}
	aligned, err := panel.Align(series, panel.AlignOptions{RequiredHistory: 20})
	require.NoError(t, err)

	cfg := strategy.Config{
		LookbackPeriod: 10, RebalanceFrequency: strategy.RebalanceMonthly,
		PositionCount: 2, AbsoluteThreshold: 0.0, StrengthMethod: strategy.StrengthBinary,
	}

	run := func() *BacktestResult {
		strat := strategy.NewAbsolute(cfg)
		econfig := baseConfig(strat)
		result, err := Run(context.Background(), econfig, aligned, "run-det")
		require.NoError(t, err)
		return result
	}

	r1, r2 := run(), run()
	require.Equal(t, len(r1.Trades), len(r2.Trades))
	for i := range r1.Trades {
		assert.Equal(t, r1.Trades[i].Symbol, r2.Trades[i].Symbol)
		assert.Equal(t, r1.Trades[i].Quantity, r2.Trades[i].Quantity)
	}
}

func TestRun_CooperativeCancellation(t *testing.T) {
	series := map[string]panel.PriceSeries{
		"A": makeSeries("A", 300, 100, 0.001, panel.AssetEquity),
	}
	aligned, err := panel.Align(series, panel.AlignOptions{RequiredHistory: 20})
	require.NoError(t, err)

	cfg := strategy.Config{
		LookbackPeriod: 10, RebalanceFrequency: strategy.RebalanceDaily,
		PositionCount: 1, AbsoluteThreshold: -1.0, StrengthMethod: strategy.StrengthBinary,
	}
	strat := strategy.NewAbsolute(cfg)
	econfig := baseConfig(strat)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := Run(ctx, econfig, aligned, "run-cancel")
	require.NoError(t, err)
	assert.True(t, result.Cancelled)
	assert.Empty(t, result.EquityCurve)
}
