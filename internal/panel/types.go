// Package panel implements the price-panel & asset model and the
// calendar-alignment layer: a strongly-typed, array-backed
// representation of multi-asset OHLCV history, not a dynamically-typed
// dataframe.
package panel

import (
	"fmt"
	"time"
)

// AssetClass categorizes the instrument a PriceSeries represents.
type AssetClass string

const (
	AssetEquity     AssetClass = "equity"
	AssetCrypto     AssetClass = "crypto"
	AssetBond       AssetClass = "bond"
	AssetFX         AssetClass = "fx"
	AssetCommodity  AssetClass = "commodity"
	AssetMultiAsset AssetClass = "multi_asset"
)

// Valid reports whether the asset class is one of the recognized values.
func (a AssetClass) Valid() bool {
	switch a {
	case AssetEquity, AssetCrypto, AssetBond, AssetFX, AssetCommodity, AssetMultiAsset:
		return true
	}
	return false
}

// AllowsFractionalDefault returns the default fractional-share policy
// for the asset class: crypto defaults to fractional, everything else
// defaults to whole units unless the caller overrides
// AssetMetadata.AllowsFractional explicitly.
func (a AssetClass) AllowsFractionalDefault() bool {
	return a == AssetCrypto
}

// AssetMetadata describes a symbol's static properties. Immutable once the
// panel is constructed.
type AssetMetadata struct {
	Symbol           string
	AssetClass       AssetClass
	DisplayName      string
	Benchmark        string
	AllowsFractional bool
}

// NewAssetMetadata builds metadata with the fractional-share default for
// the given asset class, unless overridden via WithFractional.
func NewAssetMetadata(symbol string, class AssetClass) AssetMetadata {
	return AssetMetadata{
		Symbol:           symbol,
		AssetClass:       class,
		AllowsFractional: class.AllowsFractionalDefault(),
	}
}

// WithFractional returns a copy of the metadata with an explicit
// fractional-share override.
func (m AssetMetadata) WithFractional(allowed bool) AssetMetadata {
	m.AllowsFractional = allowed
	return m
}

// Bar is one OHLCV observation at a single timestamp.
type Bar struct {
	Timestamp time.Time
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    float64
}

// PriceSeries is an ordered, immutable sequence of bars for one symbol.
type PriceSeries struct {
	Symbol   string
	Metadata AssetMetadata
	Bars     []Bar
}

// Validate checks the invariants placed on a PriceSeries:
// strictly increasing timestamps, no duplicates, positive prices, and
// high/low/close ordering.
func (s PriceSeries) Validate() error {
	if s.Symbol == "" {
		return fmt.Errorf("panel: empty symbol")
	}
	if len(s.Bars) == 0 {
		return &DataError{Kind: "empty_series", Symbol: s.Symbol, Reason: "series has no bars"}
	}
	for i, b := range s.Bars {
		if b.Open <= 0 || b.High <= 0 || b.Low <= 0 || b.Close <= 0 {
			return &DataError{Kind: "non_positive_price", Symbol: s.Symbol, Reason: fmt.Sprintf("bar %d has a non-positive price", i)}
		}
		if b.High < b.Low {
			return &DataError{Kind: "high_low_inverted", Symbol: s.Symbol, Reason: fmt.Sprintf("bar %d: high < low", i)}
		}
		if b.Close < b.Low || b.Close > b.High {
			return &DataError{Kind: "close_out_of_range", Symbol: s.Symbol, Reason: fmt.Sprintf("bar %d: close outside [low, high]", i)}
		}
		if i > 0 {
			prev := s.Bars[i-1].Timestamp
			if !b.Timestamp.After(prev) {
				return &DataError{Kind: "non_increasing_timestamp", Symbol: s.Symbol, Reason: fmt.Sprintf("bar %d timestamp does not strictly increase", i)}
			}
		}
	}
	return nil
}

// Closes returns the parallel array of closing prices, the engine's
// preferred representation for momentum and metrics calculations.
func (s PriceSeries) Closes() []float64 {
	out := make([]float64, len(s.Bars))
	for i, b := range s.Bars {
		out[i] = b.Close
	}
	return out
}

// AlignedPanel is the result of calendar alignment: every symbol's
// series shares the exact same timestamp index.
type AlignedPanel struct {
	Index   []time.Time
	Symbols []string // sorted, for deterministic iteration
	Series  map[string]PriceSeries
}

// At returns the bar for symbol at index position i.
func (p AlignedPanel) At(symbol string, i int) (Bar, bool) {
	s, ok := p.Series[symbol]
	if !ok || i < 0 || i >= len(s.Bars) {
		return Bar{}, false
	}
	return s.Bars[i], true
}

// Window returns the slice of bars for symbol ending at (and including)
// index i, containing at most lookback+1 bars: [max(0, i-lookback), i].
// The extra bar matters: a pct_change(N) computed on the last row of
// the window requires lookback+1 bars, not lookback.
func (p AlignedPanel) Window(symbol string, i, lookback int) []Bar {
	s, ok := p.Series[symbol]
	if !ok {
		return nil
	}
	start := i - lookback
	if start < 0 {
		start = 0
	}
	if i+1 > len(s.Bars) {
		return s.Bars[start:]
	}
	return s.Bars[start : i+1]
}

// DataError represents a fatal data-quality or alignment problem.
type DataError struct {
	Kind   string
	Symbol string
	Reason string
}

func (e *DataError) Error() string {
	if e.Symbol != "" {
		return fmt.Sprintf("data error (%s) for %s: %s", e.Kind, e.Symbol, e.Reason)
	}
	return fmt.Sprintf("data error (%s): %s", e.Kind, e.Reason)
}

// ErrInconsistentTimezone is returned by Align when per-symbol indices
// mix timezone-aware and naive timestamps, or aware timestamps at
// different offsets.
var ErrInconsistentTimezone = &DataError{Kind: "inconsistent_timezone", Reason: "panel series do not share a single timezone convention"}

// InsufficientHistoryError is returned by Align when the intersected
// calendar is shorter than the strategy's required history.
type InsufficientHistoryError struct {
	Available int
	Required  int
}

func (e *InsufficientHistoryError) Error() string {
	return fmt.Sprintf("data error (insufficient_history): have %d aligned bars, need at least %d", e.Available, e.Required)
}
