package panel

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// LoadSeriesCSV reads one symbol's OHLCV history from a CSV file with a
// header row containing (case-insensitively) timestamp/date, open,
// high, low, close, volume columns; all column names are normalized to
// lower case at ingest. This only covers the local file format the CLI
// and tests use to hand a panel to the engine; acquiring price data
// from a live source is left to the caller.
func LoadSeriesCSV(path string, symbol string, class AssetClass) (PriceSeries, error) {
	f, err := os.Open(path)
	if err != nil {
		return PriceSeries{}, fmt.Errorf("panel: open %s: %w", path, err)
	}
	defer f.Close()
	return parseSeriesCSV(f, symbol, class)
}

func parseSeriesCSV(r io.Reader, symbol string, class AssetClass) (PriceSeries, error) {
	cr := csv.NewReader(r)
	header, err := cr.Read()
	if err != nil {
		return PriceSeries{}, fmt.Errorf("panel: read header: %w", err)
	}
	col := make(map[string]int, len(header))
	for i, h := range header {
		col[strings.ToLower(strings.TrimSpace(h))] = i
	}

	tsCol, ok := col["timestamp"]
	if !ok {
		tsCol, ok = col["date"]
	}
	if !ok {
		return PriceSeries{}, fmt.Errorf("panel: %s: missing timestamp/date column", symbol)
	}
	need := []string{"open", "high", "low", "close"}
	for _, n := range need {
		if _, ok := col[n]; !ok {
			return PriceSeries{}, fmt.Errorf("panel: %s: missing %s column", symbol, n)
		}
	}
	volCol, hasVolume := col["volume"]

	var bars []Bar
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return PriceSeries{}, fmt.Errorf("panel: %s: %w", symbol, err)
		}
		ts, err := parseDate(rec[tsCol])
		if err != nil {
			return PriceSeries{}, fmt.Errorf("panel: %s: bad timestamp %q: %w", symbol, rec[tsCol], err)
		}
		bar := Bar{Timestamp: ts}
		if bar.Open, err = strconv.ParseFloat(rec[col["open"]], 64); err != nil {
			return PriceSeries{}, fmt.Errorf("panel: %s: bad open: %w", symbol, err)
		}
		if bar.High, err = strconv.ParseFloat(rec[col["high"]], 64); err != nil {
			return PriceSeries{}, fmt.Errorf("panel: %s: bad high: %w", symbol, err)
		}
		if bar.Low, err = strconv.ParseFloat(rec[col["low"]], 64); err != nil {
			return PriceSeries{}, fmt.Errorf("panel: %s: bad low: %w", symbol, err)
		}
		if bar.Close, err = strconv.ParseFloat(rec[col["close"]], 64); err != nil {
			return PriceSeries{}, fmt.Errorf("panel: %s: bad close: %w", symbol, err)
		}
		if hasVolume {
			bar.Volume, _ = strconv.ParseFloat(rec[volCol], 64)
		}
		bars = append(bars, bar)
	}

	return PriceSeries{Symbol: symbol, Metadata: NewAssetMetadata(symbol, class), Bars: bars}, nil
}

var dateLayouts = []string{"2006-01-02", time.RFC3339, "2006-01-02T15:04:05"}

func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	var lastErr error
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		} else {
			lastErr = err
		}
	}
	return time.Time{}, lastErr
}

// LoadPanelDir reads one CSV file per symbol from dir, named
// "<SYMBOL>.csv", building the {symbol -> PriceSeries} map Align
// expects. Every series is assigned AssetEquity unless overridden via
// classes.
func LoadPanelDir(dir string, classes map[string]AssetClass) (map[string]PriceSeries, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("panel: read dir %s: %w", dir, err)
	}
	out := make(map[string]PriceSeries)
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".csv" {
			continue
		}
		symbol := strings.TrimSuffix(e.Name(), ".csv")
		class := AssetEquity
		if c, ok := classes[symbol]; ok {
			class = c
		}
		series, err := LoadSeriesCSV(filepath.Join(dir, e.Name()), symbol, class)
		if err != nil {
			return nil, err
		}
		out[symbol] = series
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("panel: no CSV series found in %s", dir)
	}
	return out, nil
}
