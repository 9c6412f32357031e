package engine

// Side is the direction of a position, usable directly as a P&L sign.
type Side int

const (
	Long  Side = 1
	Short Side = -1
)

// Signal values are per-bar trade intents aligned 1:1 with the price series.
const (
	SignalShort = -1
	SignalFlat  = 0
	SignalLong  = 1
)

// Position is a single open trade. It is created whole at entry and is
// never mutated afterwards; the only transition is the exit, which drops it.
// The simulator holds at most one (nil means flat), so the single-position
// invariant is enforced by construction rather than checked after the fact.
type Position struct {
	Side          Side
	Quantity      float64
	EntryPrice    float64 // slippage-adjusted fill, pre-fee
	EntryPriceNet float64 // break-even per unit with the entry fee folded in
	StopPrice     float64
	TakeProfit    float64
	EntryIndex    int
}

// TradeResult records one closed round trip.
type TradeResult struct {
	EntryIndex int
	ExitIndex  int
	Side       Side
	EntryPrice float64
	ExitPrice  float64
	Quantity   float64
	Pnl        float64
	// Return is Pnl over the initial capital, not the running balance,
	// so per-trade returns stay comparable across a compounding run.
	Return float64
}

// Result is the output of one simulation run.
type Result struct {
	// Equity has exactly one mark-to-market value per input bar.
	Equity []float64
	Trades []TradeResult
	// OpenPosition is the position still held after the last bar, if any.
	// It is excluded from Trades; only Equity reflects its unrealized mark.
	OpenPosition *Position
}
