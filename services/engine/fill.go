package engine

import "math"

// FillPrice applies slippage always against the trader. A long entry and a
// short exit are buys and pay up; a short entry and a long exit are sells
// and receive down.
func FillPrice(raw float64, side Side, entry bool, slippageRate float64) float64 {
	buy := (side == Long) == entry
	if buy {
		return raw * (1 + slippageRate)
	}
	return raw * (1 - slippageRate)
}

// Fee is the notional transaction cost of a fill at the executed price.
func Fee(qty, price, feeRate float64) float64 {
	return math.Abs(qty) * price * feeRate
}

// breakEven shifts the entry fill by the entry fee expressed as a per-unit
// price delta in the unfavorable direction for the side. The fee is charged
// again explicitly on exit; the resulting double count of the round-trip
// cost is the pinned P&L contract, kept for report compatibility.
func breakEven(entryPrice float64, side Side, entryFee, qty float64) float64 {
	return entryPrice + float64(side)*(entryFee/math.Max(1e-9, math.Abs(qty)))
}
