// Package report implements the result-serialization surface:
// full-precision CSV export of the equity curve and trade log, a
// structured text summary, and a binary round-trip format for
// BacktestResult.
package report

import (
	"encoding/csv"
	"io"
	"strconv"

	"momentumbt/internal/engine"
)

// floatStr renders a float64 with full precision: the shortest
// representation that round-trips exactly (strconv's -1 precision).
func floatStr(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}

// WriteEquityCSV writes the equity curve as (timestamp, value) rows.
func WriteEquityCSV(w io.Writer, curve []engine.EquityPoint) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"timestamp", "equity"}); err != nil {
		return err
	}
	for _, p := range curve {
		row := []string{p.Timestamp.Format("2006-01-02"), floatStr(p.Value)}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteTradesCSV writes the trade log, one row per fill.
func WriteTradesCSV(w io.Writer, trades []engine.Trade) error {
	cw := csv.NewWriter(w)
	header := []string{"timestamp", "symbol", "side", "quantity", "price", "commission", "slippage_cost", "pnl"}
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, t := range trades {
		side := "buy"
		if t.Side == engine.TradeSell {
			side = "sell"
		}
		row := []string{
			t.Timestamp.Format("2006-01-02"),
			t.Symbol,
			side,
			floatStr(t.Quantity),
			floatStr(t.Price),
			floatStr(t.Commission),
			floatStr(t.SlippageCost),
			floatStr(t.PnL),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteSignalsCSV writes the signal log, one row per emitted signal.
func WriteSignalsCSV(w io.Writer, result *engine.BacktestResult) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"timestamp", "symbol", "strength", "score", "rank"}); err != nil {
		return err
	}
	for _, s := range result.SignalsHistory {
		row := []string{
			s.Timestamp.Format("2006-01-02"),
			s.Symbol,
			floatStr(s.Strength),
			floatStr(s.Score),
			strconv.Itoa(s.Rank),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
