package engine

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"momentumbt/internal/metrics"
	"momentumbt/internal/momentum"
	"momentumbt/internal/optimizer"
	"momentumbt/internal/panel"
	"momentumbt/internal/risk"
	"momentumbt/internal/strategy"
)

// MomentumMethod selects which of the internal/momentum calculators
// feeds the strategy's per-bar scores.
type MomentumMethod string

const (
	MomentumAbsolute           MomentumMethod = "absolute"
	MomentumVolatilityAdjusted MomentumMethod = "volatility_adjusted"
	MomentumMACrossover        MomentumMethod = "ma_crossover"
)

// Config bundles every knob a single backtest run exposes.
type Config struct {
	Strategy       strategy.Strategy
	MomentumMethod MomentumMethod
	Lookback       int
	FastPeriod     int // ma_crossover only
	SlowPeriod     int // ma_crossover only
	SafeAsset      string

	ExecutionDelay int // bars, 0..5
	Commission     float64
	Slippage       float64

	RiskConfig           risk.Config
	OptimizerMethod      optimizer.Method // empty means no optimizer override
	OptimizerConstraints optimizer.Constraints
	RiskFreeAnnual       float64

	InitialCapital float64
	Logger         zerolog.Logger
}

// Run drives the engine's core bar loop to completion and returns the
// finished BacktestResult. ctx is checked for cancellation at each bar
// boundary, so a run can be stopped cooperatively without corrupting
// partial results; a nil ctx is treated as context.Background().
func Run(ctx context.Context, cfg Config, aligned *panel.AlignedPanel, runID string) (*BacktestResult, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if cfg.SafeAsset != "" && !contains(aligned.Symbols, cfg.SafeAsset) {
		cfg.Logger.Warn().
			Str("safe_asset", cfg.SafeAsset).
			Msg("configured safe asset is not present in the panel; defensive signals will be skipped during drawdowns")
	}

	iFirst := cfg.Strategy.RequiredHistory()

	portfolio := NewPortfolio(cfg.InitialCapital)
	result := &BacktestResult{
		RunID:          runID,
		InitialCapital: cfg.InitialCapital,
	}

	var lastRebalance time.Time

	for i, t := range aligned.Index {
		if err := ctx.Err(); err != nil {
			result.Cancelled = true
			break
		}
		markToMarket(portfolio, aligned, i)
		equity := portfolio.Equity()
		portfolio.EquityHistory = append(portfolio.EquityHistory, EquityPoint{Timestamp: t, Value: equity})

		if i < iFirst {
			continue
		}
		if !cfg.Strategy.ShouldRebalance(t, lastRebalance) {
			continue
		}

		scores := computeScores(cfg, aligned, i)
		signals := cfg.Strategy.Generate(t, scores)
		if len(signals) == 0 {
			lastRebalance = t
			continue
		}

		valid := make([]strategy.Signal, 0, len(signals))
		for _, sig := range signals {
			if !contains(aligned.Symbols, sig.Symbol) {
				reason := ReasonSymbolNotInPanel
				if sig.Symbol == cfg.SafeAsset {
					reason = ReasonSafeAssetUnavailable
				}
				cfg.Logger.Error().
					Str("symbol", sig.Symbol).
					Str("reason", reason).
					Time("bar", t).
					Msg("signal references a symbol absent from the panel; skipping")
				result.SkippedSignals = append(result.SkippedSignals, SkippedSignal{
					Timestamp: t, Symbol: sig.Symbol, Reason: reason,
				})
				continue
			}
			valid = append(valid, sig)
		}
		result.SignalsHistory = append(result.SignalsHistory, valid...)
		if len(valid) == 0 {
			lastRebalance = t
			continue
		}

		if cfg.OptimizerMethod != "" {
			valid = applyOptimizerOverride(cfg, aligned, i, valid)
		}

		assets := buildAssetInfo(aligned, valid, i)
		currentPositions := snapshotPositions(portfolio)

		orders, err := risk.Size(valid, equity, currentPositions, assets, cfg.RiskConfig)
		if err != nil {
			return nil, fmt.Errorf("engine: risk sizing failed at bar %s: %w", t, err)
		}

		execIdx := i + cfg.ExecutionDelay
		if execIdx >= len(aligned.Index) {
			for _, o := range orders {
				cfg.Logger.Warn().Str("symbol", o.Symbol).Str("reason", ReasonDelayPastEnd).Time("bar", t).Msg("delayed fill would land past the end of the panel; order dropped")
				result.SkippedSignals = append(result.SkippedSignals, SkippedSignal{Timestamp: t, Symbol: o.Symbol, Reason: ReasonDelayPastEnd})
			}
			lastRebalance = t
			continue
		}
		if execIdx < iFirst {
			for _, o := range orders {
				cfg.Logger.Warn().Str("symbol", o.Symbol).Str("reason", ReasonDelayBeforeWarmup).Time("bar", t).Msg("delayed fill would land before the warm-up ends; order dropped")
				result.SkippedSignals = append(result.SkippedSignals, SkippedSignal{Timestamp: t, Symbol: o.Symbol, Reason: ReasonDelayBeforeWarmup})
			}
			lastRebalance = t
			continue
		}

		execTimestamp := aligned.Index[execIdx]
		sort.Slice(orders, func(a, b int) bool { return orders[a].Symbol < orders[b].Symbol })
		for _, o := range orders {
			bar, ok := aligned.At(o.Symbol, execIdx)
			if !ok {
				continue
			}
			trade, filled, reason := applyOrder(portfolio, o, bar.Close, cfg.Slippage, cfg.Commission, execTimestamp)
			if !filled {
				cfg.Logger.Warn().Str("symbol", o.Symbol).Str("reason", reason).Msg("order could not be filled")
				result.SkippedSignals = append(result.SkippedSignals, SkippedSignal{Timestamp: execTimestamp, Symbol: o.Symbol, Reason: reason})
				continue
			}
			result.Trades = append(result.Trades, trade)
		}

		result.PositionsHistory = append(result.PositionsHistory, snapshotPositionsList(portfolio, t))
		lastRebalance = t
	}

	result.EquityCurve = portfolio.EquityHistory
	if len(result.EquityCurve) > 0 {
		result.FinalCapital = result.EquityCurve[len(result.EquityCurve)-1].Value
	}
	result.Metrics = metrics.ComputeWithLogger(toMetricsEquity(result.EquityCurve), closingTrades(result.Trades), cfg.RiskFreeAnnual, cfg.Logger)

	return result, nil
}

func markToMarket(p *Portfolio, aligned *panel.AlignedPanel, i int) {
	for sym, pos := range p.Positions {
		bar, ok := aligned.At(sym, i)
		if !ok {
			continue
		}
		pos.CurrentPrice = bar.Close
		pos.UnrealizedPnL = (pos.CurrentPrice - pos.EntryPrice) * pos.Quantity
	}
}

// computeScores evaluates the configured momentum calculator for every
// symbol in the panel over the window ending at bar i.
func computeScores(cfg Config, aligned *panel.AlignedPanel, i int) map[string]float64 {
	scores := make(map[string]float64, len(aligned.Symbols))
	for _, sym := range aligned.Symbols {
		window := aligned.Window(sym, i, cfg.Lookback)
		var score float64
		switch cfg.MomentumMethod {
		case MomentumVolatilityAdjusted:
			score = momentum.VolatilityAdjusted(window, cfg.Lookback)
		case MomentumMACrossover:
			score = momentum.MovingAverageCrossover(window, cfg.FastPeriod, cfg.SlowPeriod)
		default:
			score = momentum.AbsoluteReturn(window, cfg.Lookback)
		}
		scores[sym] = score
	}
	return momentum.FilterValid(scores)
}

// applyOptimizerOverride invokes the configured optimizer over the
// lookback returns window of the selected symbols and replaces each
// signal's strength with its optimizer-derived weight.
func applyOptimizerOverride(cfg Config, aligned *panel.AlignedPanel, i int, signals []strategy.Signal) []strategy.Signal {
	symbols := make([]string, len(signals))
	for idx, s := range signals {
		symbols[idx] = s.Symbol
	}
	sort.Strings(symbols)

	returns := buildReturnsMatrix(aligned, symbols, i, cfg.Lookback)
	if returns == nil {
		return signals
	}

	in := optimizer.Inputs{
		Symbols:        symbols,
		Returns:        returns,
		RiskFreeAnnual: cfg.RiskFreeAnnual,
		Constraints:    cfg.OptimizerConstraints,
	}
	res, err := optimizer.Optimize(cfg.OptimizerMethod, in, cfg.Logger)
	if err != nil {
		cfg.Logger.Warn().Err(err).Msg("optimizer override failed; retaining strength-derived weights")
		return signals
	}

	out := make([]strategy.Signal, len(signals))
	for idx, s := range signals {
		s.Strength = res.Weights[s.Symbol]
		out[idx] = s
	}
	return out
}

func buildReturnsMatrix(aligned *panel.AlignedPanel, symbols []string, i, lookback int) [][]float64 {
	start := i - lookback
	if start < 0 {
		start = 0
	}
	closes := make([][]float64, len(symbols))
	for c, sym := range symbols {
		series, ok := aligned.Series[sym]
		if !ok {
			return nil
		}
		bars := series.Bars[start : i+1]
		closesOf := make([]float64, len(bars))
		for k, b := range bars {
			closesOf[k] = b.Close
		}
		closes[c] = closesOf
	}
	if len(closes) == 0 || len(closes[0]) < 2 {
		return nil
	}
	rows := len(closes[0]) - 1
	out := make([][]float64, rows)
	for r := 0; r < rows; r++ {
		row := make([]float64, len(symbols))
		for c := range symbols {
			prev := closes[c][r]
			cur := closes[c][r+1]
			if prev == 0 {
				row[c] = 0
				continue
			}
			row[c] = cur/prev - 1
		}
		out[r] = row
	}
	return out
}

func buildAssetInfo(aligned *panel.AlignedPanel, signals []strategy.Signal, i int) map[string]risk.AssetInfo {
	out := make(map[string]risk.AssetInfo, len(signals))
	for _, s := range signals {
		series, ok := aligned.Series[s.Symbol]
		if !ok {
			continue
		}
		bar, ok := aligned.At(s.Symbol, i)
		if !ok {
			continue
		}
		out[s.Symbol] = risk.AssetInfo{
			CurrentPrice:     bar.Close,
			AllowsFractional: series.Metadata.AllowsFractional,
		}
	}
	return out
}

func snapshotPositions(p *Portfolio) map[string]risk.CurrentPosition {
	out := make(map[string]risk.CurrentPosition, len(p.Positions))
	for sym, pos := range p.Positions {
		out[sym] = risk.CurrentPosition{Symbol: sym, Qty: pos.Quantity}
	}
	return out
}

func snapshotPositionsList(p *Portfolio, t time.Time) PositionsSnapshot {
	symbols := make([]string, 0, len(p.Positions))
	for sym := range p.Positions {
		symbols = append(symbols, sym)
	}
	sort.Strings(symbols)
	positions := make([]Position, len(symbols))
	for i, sym := range symbols {
		positions[i] = *p.Positions[sym]
	}
	return PositionsSnapshot{Timestamp: t, Positions: positions}
}

func toMetricsEquity(curve []EquityPoint) []metrics.EquityPoint {
	out := make([]metrics.EquityPoint, len(curve))
	for i, p := range curve {
		out[i] = metrics.EquityPoint{Timestamp: p.Timestamp, Value: p.Value}
	}
	return out
}

func closingTrades(trades []Trade) []metrics.ClosingTrade {
	var out []metrics.ClosingTrade
	for _, t := range trades {
		if t.Side == TradeSell {
			out = append(out, metrics.ClosingTrade{PnL: t.PnL})
		}
	}
	return out
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
