// Package strategies turns bar series into per-bar trade signals. A signal
// is an intent for that bar only; position state lives in the simulator.
package strategies

import (
	"math"

	"tradesim/services/indicators"
)

// RSIMAParams configures the RSI mean-reversion strategy with a moving
// average trend gate and an optional volatility floor.
type RSIMAParams struct {
	RSILen       int     `yaml:"rsi_len"`
	MALen        int     `yaml:"ma_len"`
	ATRLen       int     `yaml:"atr_len"`
	UseATRFilter bool    `yaml:"use_atr_filter"`
	ATRThresh    float64 `yaml:"atr_thresh"`
	RSIBuyBelow  float64 `yaml:"rsi_buy_below"`
	RSISellAbove float64 `yaml:"rsi_sell_above"`
}

// DefaultRSIMAParams returns the stock parameter set.
func DefaultRSIMAParams() RSIMAParams {
	return RSIMAParams{
		RSILen:       14,
		MALen:        50,
		ATRLen:       14,
		RSIBuyBelow:  30,
		RSISellAbove: 70,
	}
}

// Indicators exposes the intermediate series next to the signals so runners
// can feed the ATR into sizing and report on the rest.
type Indicators struct {
	RSI []float64
	MA  []float64
	ATR []float64
}

// RSIMASignals emits 1 when the RSI dips below the buy threshold while price
// holds above its moving average, -1 in the mirrored case, 0 otherwise. NaN
// warmup values fail every comparison, so warmup bars come out flat. The
// strategy is stateless across bars.
func RSIMASignals(high, low, close []float64, p RSIMAParams) ([]int, Indicators) {
	ind := Indicators{
		RSI: indicators.RSI(close, p.RSILen),
		MA:  indicators.SMA(close, p.MALen),
		ATR: indicators.ATR(high, low, close, p.ATRLen),
	}

	signals := make([]int, len(close))
	for i := range close {
		long := ind.RSI[i] < p.RSIBuyBelow && close[i] > ind.MA[i]
		short := ind.RSI[i] > p.RSISellAbove && close[i] < ind.MA[i]
		if p.UseATRFilter {
			atrPct := math.NaN()
			if close[i] != 0 {
				atrPct = ind.ATR[i] / close[i]
			}
			pass := atrPct > p.ATRThresh
			long = long && pass
			short = short && pass
		}
		switch {
		case long:
			signals[i] = 1
		case short:
			signals[i] = -1
		}
	}
	return signals, ind
}
