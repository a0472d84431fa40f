package report

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"

	"momentumbt/internal/engine"
)

// Summary renders the structured text report of metrics
// plus a human-readable capital/trade-count summary. Full-precision
// figures belong in the CSV export (WriteEquityCSV/WriteTradesCSV);
// this is the "at a glance" companion, so dollar figures are rendered
// with humanize.CommafWithDigits and counts with humanize.Comma for
// readability rather than raw floats.
func Summary(result *engine.BacktestResult) string {
	m := result.Metrics
	var b strings.Builder

	fmt.Fprintf(&b, "Backtest %s\n", result.RunID)
	fmt.Fprintf(&b, "  initial capital:   $%s\n", humanize.CommafWithDigits(result.InitialCapital, 2))
	fmt.Fprintf(&b, "  final capital:     $%s\n", humanize.CommafWithDigits(result.FinalCapital, 2))
	fmt.Fprintf(&b, "  bars simulated:    %s\n", humanize.Comma(int64(len(result.EquityCurve))))
	fmt.Fprintf(&b, "  trades:            %s\n", humanize.Comma(int64(len(result.Trades))))
	fmt.Fprintf(&b, "  skipped signals:   %s\n", humanize.Comma(int64(len(result.SkippedSignals))))
	b.WriteString("\nperformance\n")
	fmt.Fprintf(&b, "  total_return:       %.4f\n", m.TotalReturn)
	fmt.Fprintf(&b, "  cagr:               %.4f\n", m.CAGR)
	fmt.Fprintf(&b, "  annual_return:      %.4f\n", m.AnnualReturn)
	fmt.Fprintf(&b, "  annual_volatility:  %.4f\n", m.AnnualVolatility)
	fmt.Fprintf(&b, "  sharpe:             %.4f\n", m.Sharpe)
	fmt.Fprintf(&b, "  sortino:            %.4f\n", m.Sortino)
	fmt.Fprintf(&b, "  max_drawdown:       %.4f\n", m.MaxDrawdown)
	fmt.Fprintf(&b, "  calmar:             %.4f\n", m.Calmar)
	fmt.Fprintf(&b, "  best_month:         %.4f\n", m.BestMonth)
	fmt.Fprintf(&b, "  worst_month:        %.4f\n", m.WorstMonth)
	fmt.Fprintf(&b, "  positive_months_pct: %.2f\n", m.PositiveMonthsPct)
	fmt.Fprintf(&b, "  win_rate:           %.2f\n", m.WinRate)
	fmt.Fprintf(&b, "  profit_factor:      %.4f\n", m.ProfitFactor)
	fmt.Fprintf(&b, "  avg_win:            %s\n", humanize.CommafWithDigits(m.AvgWin, 2))
	fmt.Fprintf(&b, "  avg_loss:           %s\n", humanize.CommafWithDigits(m.AvgLoss, 2))

	if len(result.SkippedSignals) > 0 {
		b.WriteString("\nskipped signals\n")
		for _, s := range result.SkippedSignals {
			fmt.Fprintf(&b, "  %s %s: %s\n", s.Timestamp.Format("2006-01-02"), s.Symbol, s.Reason)
		}
	}

	return b.String()
}
