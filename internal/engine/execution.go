package engine

import (
	"math"
	"time"

	"momentumbt/internal/risk"
)

// fillPrice applies slippage: buys execute worse (higher), sells
// execute worse (lower).
func fillPrice(close float64, slippagePct float64, side risk.Side) float64 {
	sign := 1.0
	if side == risk.Sell {
		sign = -1.0
	}
	return close * (1 + slippagePct*sign)
}

func commissionOf(notional, commissionPct float64) float64 {
	return math.Abs(notional) * commissionPct
}

// applyOrder fills one order against the portfolio at the given
// timestamp/price, mutating the portfolio in place. Returns the
// resulting trade, or ok=false with a skip reason if the order could
// not be filled.
func applyOrder(
	portfolio *Portfolio,
	order risk.Order,
	close float64,
	slippagePct, commissionPct float64,
	timestamp time.Time,
) (Trade, bool, string) {
	price := fillPrice(close, slippagePct, order.Side)

	switch order.Side {
	case risk.Buy:
		qty := order.Qty
		notional := qty * price
		commission := commissionOf(notional, commissionPct)

		if portfolio.Cash < notional+commission {
			// Scale down to the largest quantity that fits, reserving
			// commission.
			maxAffordable := portfolio.Cash / (price * (1 + commissionPct))
			if maxAffordable <= 0 {
				return Trade{}, false, ReasonInsufficientCash
			}
			qty = math.Floor(maxAffordable)
			if qty <= 0 {
				return Trade{}, false, ReasonInsufficientCash
			}
			notional = qty * price
			commission = commissionOf(notional, commissionPct)
		}

		pos, exists := portfolio.Positions[order.Symbol]
		if !exists {
			portfolio.Positions[order.Symbol] = &Position{
				Symbol:         order.Symbol,
				Quantity:       qty,
				EntryPrice:     price,
				EntryTimestamp: timestamp,
				CurrentPrice:   price,
			}
		} else {
			totalCost := pos.Quantity*pos.EntryPrice + qty*price
			totalQty := pos.Quantity + qty
			pos.EntryPrice = totalCost / totalQty
			pos.Quantity = totalQty
			pos.CurrentPrice = price
		}
		portfolio.Cash -= notional + commission

		return Trade{
			Symbol:       order.Symbol,
			Side:         TradeBuy,
			Quantity:     qty,
			Price:        price,
			Timestamp:    timestamp,
			Commission:   commission,
			SlippageCost: math.Abs(price-close) * qty,
		}, true, ""

	case risk.Sell:
		pos, exists := portfolio.Positions[order.Symbol]
		if !exists || pos.Quantity <= 0 {
			return Trade{}, false, ReasonInsufficientCash
		}
		qty := math.Min(order.Qty, pos.Quantity)
		notional := qty * price
		commission := commissionOf(notional, commissionPct)
		pnl := (price-pos.EntryPrice)*qty - commission

		portfolio.Cash += notional - commission
		pos.Quantity -= qty
		if pos.Quantity <= 1e-9 {
			delete(portfolio.Positions, order.Symbol)
		} else {
			pos.CurrentPrice = price
		}

		return Trade{
			Symbol:       order.Symbol,
			Side:         TradeSell,
			Quantity:     qty,
			Price:        price,
			Timestamp:    timestamp,
			Commission:   commission,
			SlippageCost: math.Abs(price-close) * qty,
			PnL:          pnl,
		}, true, ""
	}

	return Trade{}, false, ReasonInsufficientCash
}
