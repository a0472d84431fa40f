package panel

import (
	"sort"
	"time"
)

// AlignOptions bounds the alignment window and states the strategy's
// minimum history requirement, so an unusably short intersection fails
// before the engine starts.
type AlignOptions struct {
	Start           *time.Time
	End             *time.Time
	RequiredHistory int // the strategy's lookback; alignment needs one more bar on top
}

// Align intersects every symbol's timestamp index to a common calendar,
// reconciles timezone conventions, trims to [start, end], and returns an
// AlignedPanel guaranteeing a valid close for every symbol at every
// index position.
func Align(series map[string]PriceSeries, opts AlignOptions) (*AlignedPanel, error) {
	if len(series) == 0 {
		return nil, &DataError{Kind: "empty_panel", Reason: "no series provided"}
	}

	normalized := make(map[string]PriceSeries, len(series))
	var refOffset *time.Duration
	for symbol, s := range series {
		if err := s.Validate(); err != nil {
			return nil, err
		}
		normBars := make([]Bar, len(s.Bars))
		for i, b := range s.Bars {
			_, offset := b.Timestamp.Zone()
			d := time.Duration(offset) * time.Second
			if refOffset == nil {
				refOffset = &d
			} else if *refOffset != d {
				return nil, ErrInconsistentTimezone
			}
			norm := b
			norm.Timestamp = time.Date(
				b.Timestamp.Year(), b.Timestamp.Month(), b.Timestamp.Day(),
				0, 0, 0, 0, time.UTC,
			)
			normBars[i] = norm
		}
		normalized[symbol] = PriceSeries{Symbol: s.Symbol, Metadata: s.Metadata, Bars: normBars}
	}

	symbols := make([]string, 0, len(normalized))
	for sym := range normalized {
		symbols = append(symbols, sym)
	}
	sort.Strings(symbols)

	// Intersect timestamp sets.
	counts := make(map[time.Time]int)
	for _, sym := range symbols {
		for _, b := range normalized[sym].Bars {
			counts[b.Timestamp]++
		}
	}
	common := make([]time.Time, 0, len(counts))
	for ts, n := range counts {
		if n == len(symbols) {
			common = append(common, ts)
		}
	}
	sort.Slice(common, func(i, j int) bool { return common[i].Before(common[j]) })

	required := opts.RequiredHistory + 1
	if len(common) < required {
		return nil, &InsufficientHistoryError{Available: len(common), Required: required}
	}

	// Apply (start, end) to the already-intersected index, never the raw
	// per-symbol indices, to avoid asymmetric trimming.
	filtered := common
	if opts.Start != nil || opts.End != nil {
		filtered = filtered[:0]
		for _, ts := range common {
			if opts.Start != nil && ts.Before(*opts.Start) {
				continue
			}
			if opts.End != nil && ts.After(*opts.End) {
				continue
			}
			filtered = append(filtered, ts)
		}
	}

	outSeries := make(map[string]PriceSeries, len(symbols))
	for _, sym := range symbols {
		bySource := make(map[time.Time]Bar, len(normalized[sym].Bars))
		for _, b := range normalized[sym].Bars {
			bySource[b.Timestamp] = b
		}
		bars := make([]Bar, len(filtered))
		for i, ts := range filtered {
			bars[i] = bySource[ts]
		}
		outSeries[sym] = PriceSeries{Symbol: sym, Metadata: normalized[sym].Metadata, Bars: bars}
	}

	return &AlignedPanel{Index: filtered, Symbols: symbols, Series: outSeries}, nil
}
