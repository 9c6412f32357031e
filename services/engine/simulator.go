package engine

import (
	"fmt"
	"math"

	"tradesim/services/risk"
)

// SimConfig holds the scalar run configuration.
type SimConfig struct {
	InitialCapital float64
	RiskPerTrade   float64 // fraction of balance risked per trade
	ATRStopMult    float64 // stop distance in ATR multiples
	TakeProfitMult float64 // take-profit distance relative to the stop distance
	FeeRate        float64
	SlippageRate   float64
}

// Validate rejects configurations the simulator must never run with.
func (c SimConfig) Validate() error {
	if c.InitialCapital <= 0 {
		return InputError{Msg: fmt.Sprintf("initial capital must be positive, got %v", c.InitialCapital)}
	}
	if c.RiskPerTrade < 0 {
		return InputError{Msg: fmt.Sprintf("risk per trade must not be negative, got %v", c.RiskPerTrade)}
	}
	if c.FeeRate < 0 {
		return InputError{Msg: fmt.Sprintf("fee rate must not be negative, got %v", c.FeeRate)}
	}
	if c.SlippageRate < 0 {
		return InputError{Msg: fmt.Sprintf("slippage rate must not be negative, got %v", c.SlippageRate)}
	}
	if c.ATRStopMult < 0 || c.TakeProfitMult < 0 {
		return InputError{Msg: "stop and take-profit multipliers must not be negative"}
	}
	return nil
}

// SizerFunc maps account state and the bar's volatility estimate to a trade
// quantity. price is part of the contract for notional-style policies even
// when a policy ignores it.
type SizerFunc func(balance, riskFraction, vol, price, stopMult float64) float64

// Simulator folds a price series, an aligned signal series and an aligned
// volatility series into an equity curve and a closed-trade ledger.
type Simulator struct {
	cfg   SimConfig
	sizer SizerFunc
}

// NewSimulator validates cfg and builds a simulator. A nil sizer selects
// the ATR risk-budget policy.
func NewSimulator(cfg SimConfig, sizer SizerFunc) (*Simulator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if sizer == nil {
		sizer = risk.ATRPositionSize
	}
	return &Simulator{cfg: cfg, sizer: sizer}, nil
}

type exitKind int

const (
	exitNone exitKind = iota
	exitStop
	exitTakeProfit
)

// checkExit decides whether close triggers an exit. The stop is checked
// first: on a bar where both levels are crossed the stop wins. Only the
// close participates; intrabar extremes are outside the model.
func checkExit(pos *Position, close float64) exitKind {
	if (pos.Side == Long && close <= pos.StopPrice) || (pos.Side == Short && close >= pos.StopPrice) {
		return exitStop
	}
	if (pos.Side == Long && close >= pos.TakeProfit) || (pos.Side == Short && close <= pos.TakeProfit) {
		return exitTakeProfit
	}
	return exitNone
}

// Run simulates the full bar sequence. Per bar, strictly in order:
// mark-to-market, exit check, entry check. An exit and a fresh entry on the
// same bar is permitted. The balance mutates only when a trade closes; a
// position still open after the last bar stays out of the ledger.
//
// vol marks a bar with no usable estimate as NaN; such bars (and bars with
// vol <= 0) never open a position but still mark and exit normally.
func (s *Simulator) Run(prices []float64, signals []int, vol []float64) (*Result, error) {
	if err := validateSeries(prices, signals, vol); err != nil {
		return nil, err
	}

	balance := s.cfg.InitialCapital
	equity := make([]float64, 0, len(prices))
	trades := make([]TradeResult, 0)
	var pos *Position // nil == flat

	for i, p := range prices {
		// Mark-to-market on the entry fill price, before this bar's
		// exit or entry is realized into the balance.
		if pos != nil {
			unrealized := (p - pos.EntryPrice) * pos.Quantity * float64(pos.Side)
			equity = append(equity, balance+unrealized)
		} else {
			equity = append(equity, balance)
		}

		if pos != nil {
			if kind := checkExit(pos, p); kind != exitNone {
				exitPrice := FillPrice(p, pos.Side, false, s.cfg.SlippageRate)
				fee := Fee(pos.Quantity, exitPrice, s.cfg.FeeRate)
				pnl := (exitPrice-pos.EntryPriceNet)*pos.Quantity*float64(pos.Side) - fee
				balance += pnl
				trades = append(trades, TradeResult{
					EntryIndex: pos.EntryIndex,
					ExitIndex:  i,
					Side:       pos.Side,
					EntryPrice: pos.EntryPrice,
					ExitPrice:  exitPrice,
					Quantity:   pos.Quantity,
					Pnl:        pnl,
					Return:     pnl / math.Max(1e-9, s.cfg.InitialCapital),
				})
				pos = nil
			}
		}

		if pos == nil && signals[i] != SignalFlat {
			side := Side(signals[i])
			a := vol[i]
			if math.IsNaN(a) || a <= 0 {
				continue // no volatility estimate for this bar
			}
			qty := s.sizer(balance, s.cfg.RiskPerTrade, a, p, s.cfg.ATRStopMult)
			if qty <= 0 {
				continue
			}
			entryPrice := FillPrice(p, side, true, s.cfg.SlippageRate)
			entryFee := Fee(qty, entryPrice, s.cfg.FeeRate)
			stopDist := a * s.cfg.ATRStopMult
			pos = &Position{
				Side:          side,
				Quantity:      qty,
				EntryPrice:    entryPrice,
				EntryPriceNet: breakEven(entryPrice, side, entryFee, qty),
				StopPrice:     entryPrice - float64(side)*stopDist,
				TakeProfit:    entryPrice + float64(side)*stopDist*s.cfg.TakeProfitMult,
				EntryIndex:    i,
			}
		}
	}

	return &Result{Equity: equity, Trades: trades, OpenPosition: pos}, nil
}

// validateSeries surfaces malformed inputs before the first bar runs; there
// is no per-bar recovery for these.
func validateSeries(prices []float64, signals []int, vol []float64) error {
	if len(signals) != len(prices) {
		return InputError{Msg: fmt.Sprintf("signal series length %d does not match price series length %d", len(signals), len(prices))}
	}
	if len(vol) != len(prices) {
		return InputError{Msg: fmt.Sprintf("volatility series length %d does not match price series length %d", len(vol), len(prices))}
	}
	for i, sig := range signals {
		if sig < SignalShort || sig > SignalLong {
			return InputError{Msg: fmt.Sprintf("signal[%d] = %d is outside {-1, 0, 1}", i, sig)}
		}
	}
	return nil
}
