package engine

import "math"

// Summary aggregates one run into the figures the runners print.
type Summary struct {
	FinalEquity    float64
	ReturnPct      float64
	MaxDrawdownPct float64
	Sharpe         float64
	CAGR           float64
	WinPct         float64
	Trades         int
}

// Summarize computes run statistics from the equity curve and the ledger.
// barsPerDay groups bar returns into daily buckets for the Sharpe ratio.
func Summarize(equity []float64, trades []TradeResult, barsPerDay int) Summary {
	if len(equity) == 0 {
		return Summary{FinalEquity: math.NaN(), ReturnPct: math.NaN(), MaxDrawdownPct: math.NaN()}
	}
	if barsPerDay <= 0 {
		barsPerDay = 24
	}

	rets := make([]float64, 0, len(equity)-1)
	for i := 1; i < len(equity); i++ {
		prev := equity[i-1]
		if prev == 0 {
			rets = append(rets, 0)
			continue
		}
		rets = append(rets, (equity[i]-prev)/prev)
	}

	// Daily-bucketed Sharpe, annualized over trading days.
	sharpe := 0.0
	if len(rets) > 0 {
		daily := bucketSums(rets, barsPerDay)
		if len(daily) > 1 {
			mean, std := meanStd(daily)
			if std == 0 {
				std = 1
			}
			sharpe = mean / std * math.Sqrt(252)
		}
	}

	// Max drawdown against the running peak.
	dd := 0.0
	peak := equity[0]
	for _, e := range equity {
		if e > peak {
			peak = e
		}
		d := e/math.Max(peak, 1e-12) - 1
		if d < dd {
			dd = d
		}
	}

	wins := 0
	for _, t := range trades {
		if t.Pnl > 0 {
			wins++
		}
	}
	winPct := 0.0
	if len(trades) > 0 {
		winPct = 100 * float64(wins) / float64(len(trades))
	}

	cagr := 0.0
	if first := equity[0]; first > 0 {
		years := float64(len(equity)) / float64(365*barsPerDay)
		if years > 0 {
			cagr = math.Pow(equity[len(equity)-1]/first, 1/years) - 1
		}
	}

	return Summary{
		FinalEquity:    equity[len(equity)-1],
		ReturnPct:      (equity[len(equity)-1]/equity[0] - 1) * 100,
		MaxDrawdownPct: -dd * 100,
		Sharpe:         sharpe,
		CAGR:           cagr,
		WinPct:         winPct,
		Trades:         len(trades),
	}
}

func bucketSums(vals []float64, size int) []float64 {
	out := make([]float64, 0, len(vals)/size+1)
	for i := 0; i < len(vals); i += size {
		end := i + size
		if end > len(vals) {
			end = len(vals)
		}
		sum := 0.0
		for _, v := range vals[i:end] {
			sum += v
		}
		out = append(out, sum)
	}
	return out
}

func meanStd(vals []float64) (mean, std float64) {
	if len(vals) == 0 {
		return 0, 0
	}
	for _, v := range vals {
		mean += v
	}
	mean /= float64(len(vals))
	if len(vals) < 2 {
		return mean, 0
	}
	var ss float64
	for _, v := range vals {
		d := v - mean
		ss += d * d
	}
	return mean, math.Sqrt(ss / float64(len(vals)-1))
}
