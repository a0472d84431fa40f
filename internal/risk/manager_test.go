package risk

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"momentumbt/internal/strategy"
)

func sig(symbol string, strength float64) strategy.Signal {
	return strategy.Signal{
		Timestamp: time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC),
		Symbol:    symbol,
		Direction: strategy.Long,
		Strength:  strength,
	}
}

func TestSize_BinaryStrengthDegeneratesToEqualWeight(t *testing.T) {
	signals := []strategy.Signal{sig("A", 1.0), sig("B", 1.0)}
	assets := map[string]AssetInfo{
		"A": {CurrentPrice: 100, AllowsFractional: false},
		"B": {CurrentPrice: 50, AllowsFractional: false},
	}
	orders, err := Size(signals, 10000, nil, assets, Config{MaxPositionSize: 1.0, MaxLeverage: 1.0})
	require.NoError(t, err)
	require.Len(t, orders, 2)
	for _, o := range orders {
		assert.Equal(t, Buy, o.Side)
		if o.Symbol == "A" {
			assert.Equal(t, 50.0, o.Qty) // 5000/100
		}
		if o.Symbol == "B" {
			assert.Equal(t, 100.0, o.Qty) // 5000/50
		}
	}
}

func TestSize_MaxPositionSizeCapRenormalizes(t *testing.T) {
	signals := []strategy.Signal{sig("A", 0.9), sig("B", 0.1)}
	assets := map[string]AssetInfo{
		"A": {CurrentPrice: 1, AllowsFractional: true},
		"B": {CurrentPrice: 1, AllowsFractional: true},
	}
	orders, err := Size(signals, 1000, nil, assets, Config{MaxPositionSize: 0.5, MaxLeverage: 1.0})
	require.NoError(t, err)
	var totalQty float64
	for _, o := range orders {
		totalQty += o.Qty
	}
	// Total notional should still approximate the full 1000 (leverage 1.0),
	// with A capped at 50% regardless of its 0.9 raw strength share.
	assert.InDelta(t, 1000, totalQty, 1e-6)
}

func TestSize_LeverageCapScalesDown(t *testing.T) {
	signals := []strategy.Signal{sig("A", 1.0)}
	assets := map[string]AssetInfo{"A": {CurrentPrice: 1, AllowsFractional: true}}
	orders, err := Size(signals, 1000, nil, assets, Config{MaxPositionSize: 1.0, MaxLeverage: 0.5})
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.InDelta(t, 500, orders[0].Qty, 1e-6)
}

func TestSize_RejectsLeverageAboveOne(t *testing.T) {
	_, err := Size(nil, 1000, nil, nil, Config{MaxPositionSize: 1.0, MaxLeverage: 1.5})
	require.Error(t, err)
}

func TestSize_DroppedSymbolEmitsFullSell(t *testing.T) {
	current := map[string]CurrentPosition{"OLD": {Symbol: "OLD", Qty: 10}}
	assets := map[string]AssetInfo{"NEW": {CurrentPrice: 10, AllowsFractional: false}}
	signals := []strategy.Signal{sig("NEW", 1.0)}
	orders, err := Size(signals, 1000, current, assets, Config{MaxPositionSize: 1.0, MaxLeverage: 1.0})
	require.NoError(t, err)
	var sawSell bool
	for _, o := range orders {
		if o.Symbol == "OLD" {
			assert.Equal(t, Sell, o.Side)
			assert.Equal(t, 10.0, o.Qty)
			sawSell = true
		}
	}
	assert.True(t, sawSell)
}

func TestSize_WholeShareFlooring(t *testing.T) {
	signals := []strategy.Signal{sig("A", 1.0)}
	assets := map[string]AssetInfo{"A": {CurrentPrice: 33, AllowsFractional: false}}
	orders, err := Size(signals, 100, nil, assets, Config{MaxPositionSize: 1.0, MaxLeverage: 1.0})
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, 3.0, orders[0].Qty) // floor(100/33) = 3
}
