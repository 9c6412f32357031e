// Package risk holds the position-sizing policy and portfolio risk
// utilities that operate independently of the simulation loop.
package risk

import "math"

// ATRPositionSize returns the quantity that puts balance*riskFraction at
// risk over a stop distance of atr*stopMult. The result is floored at zero.
//
// price is part of the sizer contract for notional-style policies and is
// unused by this one. The epsilon floor only guards a literal zero
// volatility; callers must not size at all when the estimate is missing.
func ATRPositionSize(balance, riskFraction, atr, price, stopMult float64) float64 {
	riskPerUnit := math.Max(1e-8, atr*stopMult)
	qty := balance * riskFraction / riskPerUnit
	return math.Max(0, qty)
}
