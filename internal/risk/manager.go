// Package risk implements the strength->weight->dollar-allocation->order
// pipeline: turning per-symbol signal strengths into target weights,
// capping position size and leverage via iterative water-filling
// renormalization, and converting the result into dollar allocations,
// share counts, and a sorted order list.
package risk

import (
	"fmt"
	"math"
	"sort"

	"momentumbt/internal/strategy"
)

// Config bounds the sizing pipeline (keys max_position_size,
// max_leverage).
type Config struct {
	MaxPositionSize float64 // (0, 1]
	MaxLeverage     float64 // default 1.0
}

// Validate rejects leverage above 1.0 at construction rather than
// silently clamping it: this model has no well-defined margin/
// borrowing semantics (interest, margin calls, broker haircuts), so a
// leverage setting above 1 has nothing sensible to fall back to.
func (c Config) Validate() error {
	if c.MaxPositionSize <= 0 || c.MaxPositionSize > 1 {
		return fmt.Errorf("risk config: max_position_size must be in (0, 1], got %f", c.MaxPositionSize)
	}
	if c.MaxLeverage <= 0 {
		return fmt.Errorf("risk config: max_leverage must be > 0, got %f", c.MaxLeverage)
	}
	if c.MaxLeverage > 1.0 {
		return fmt.Errorf("risk config: max_leverage > 1 is rejected (no leverage support in this engine), got %f", c.MaxLeverage)
	}
	return nil
}

// Order is a single buy/sell instruction emitted for the engine to fill.
type Order struct {
	Symbol string
	Side   Side
	Qty    float64 // shares; fractional only when AllowsFractional
}

type Side int

const (
	Buy Side = iota
	Sell
)

// AssetInfo carries the per-symbol data the sizing pipeline needs beyond
// the raw signal: current price and fractional-share policy.
type AssetInfo struct {
	CurrentPrice     float64
	AllowsFractional bool
}

// CurrentPosition is the engine's view of an already-held symbol.
type CurrentPosition struct {
	Symbol string
	Qty    float64
}

// Size converts signals into target weights, applies position-size and
// leverage caps, computes dollar allocations and desired share counts,
// and emits the order list.
func Size(
	signals []strategy.Signal,
	portfolioValue float64,
	currentPositions map[string]CurrentPosition,
	assets map[string]AssetInfo,
	cfg Config,
) ([]Order, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	// Step 1: target_weight_i = strength_i / sum(strength_j).
	var strengthSum float64
	for _, s := range signals {
		strengthSum += s.Strength
	}
	weights := make(map[string]float64, len(signals))
	if strengthSum > 0 {
		for _, s := range signals {
			weights[s.Symbol] = s.Strength / strengthSum
		}
	}

	// Step 2: apply max_position_size cap, re-normalizing the
	// remainder among uncapped symbols (iterative water-filling, same
	// shape as the optimizer's constraint clamp).
	weights = capAndRenormalize(weights, cfg.MaxPositionSize)

	// Step 3: apply max_leverage total cap by scaling every weight down
	// uniformly if the sum exceeds it (weights already sum to <= 1 from
	// step 2's cap-feasible case, but leverage may be < 1).
	var total float64
	for _, w := range weights {
		total += w
	}
	if total > cfg.MaxLeverage && total > 0 {
		scale := cfg.MaxLeverage / total
		for sym := range weights {
			weights[sym] *= scale
		}
	}

	// Steps 4-5: dollar allocation and share count.
	targetQty := make(map[string]float64, len(weights))
	symbols := make([]string, 0, len(weights))
	for sym := range weights {
		symbols = append(symbols, sym)
	}
	sort.Strings(symbols)

	for _, sym := range symbols {
		w := weights[sym]
		asset, ok := assets[sym]
		if !ok || asset.CurrentPrice <= 0 {
			continue
		}
		dollars := portfolioValue * w
		qty := dollars / asset.CurrentPrice
		if !asset.AllowsFractional {
			qty = math.Floor(qty)
		}
		targetQty[sym] = qty
	}

	// Step 6: emit order list, sorted symbol order for determinism.
	var orders []Order
	heldSymbols := make([]string, 0, len(currentPositions))
	for sym := range currentPositions {
		heldSymbols = append(heldSymbols, sym)
	}
	sort.Strings(heldSymbols)

	for _, sym := range heldSymbols {
		if _, inTarget := targetQty[sym]; !inTarget {
			pos := currentPositions[sym]
			if pos.Qty > 0 {
				orders = append(orders, Order{Symbol: sym, Side: Sell, Qty: pos.Qty})
			}
		}
	}

	for _, sym := range symbols {
		target := targetQty[sym]
		current := 0.0
		if pos, ok := currentPositions[sym]; ok {
			current = pos.Qty
		}
		delta := target - current
		if delta > 1e-9 {
			orders = append(orders, Order{Symbol: sym, Side: Buy, Qty: delta})
		} else if delta < -1e-9 {
			orders = append(orders, Order{Symbol: sym, Side: Sell, Qty: -delta})
		}
	}

	return orders, nil
}

// capAndRenormalize applies the per-symbol max_position_size cap and
// redistributes the freed weight proportionally among uncapped symbols,
// mirroring the optimizer package's constraint-clamp shape.
func capAndRenormalize(weights map[string]float64, maxSize float64) map[string]float64 {
	out := make(map[string]float64, len(weights))
	for sym, w := range weights {
		out[sym] = w
	}

	for pass := 0; pass < 50; pass++ {
		var excess float64
		capped := make(map[string]bool)
		for sym, w := range out {
			if w > maxSize+1e-12 {
				excess += w - maxSize
				out[sym] = maxSize
				capped[sym] = true
			}
		}
		if excess <= 1e-12 {
			break
		}
		var freeSum float64
		for sym, w := range out {
			if !capped[sym] {
				freeSum += w
			}
		}
		if freeSum <= 0 {
			break
		}
		for sym, w := range out {
			if capped[sym] {
				continue
			}
			out[sym] = w + excess*(w/freeSum)
		}
	}
	return out
}
