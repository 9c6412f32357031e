// Package indicators computes per-bar technical series. Warmup bars where
// a window is not yet full are NaN, except RSI which reports neutral 50.
package indicators

import "math"

// SMA is the simple moving average over a full window of n values.
func SMA(values []float64, n int) []float64 {
	out := nanSlice(len(values))
	if n <= 0 || len(values) < n {
		return out
	}
	sum := 0.0
	for i, v := range values {
		sum += v
		if i >= n {
			sum -= values[i-n]
		}
		if i >= n-1 {
			out[i] = sum / float64(n)
		}
	}
	return out
}

// RSI is Wilder's relative strength index with smoothing alpha = 1/n.
// Bars before n deltas have been observed, and bars with no observed
// losses, report the neutral value 50.
func RSI(close []float64, n int) []float64 {
	out := make([]float64, len(close))
	for i := range out {
		out[i] = 50
	}
	if n <= 0 || len(close) < 2 {
		return out
	}
	alpha := 1 / float64(n)
	var avgUp, avgDn float64
	for i := 1; i < len(close); i++ {
		d := close[i] - close[i-1]
		up, dn := 0.0, 0.0
		if d > 0 {
			up = d
		} else {
			dn = -d
		}
		if i == 1 {
			avgUp, avgDn = up, dn
		} else {
			avgUp += alpha * (up - avgUp)
			avgDn += alpha * (dn - avgDn)
		}
		if i < n || avgDn == 0 {
			continue
		}
		rs := avgUp / avgDn
		out[i] = 100 - 100/(1+rs)
	}
	return out
}

// ATR is the rolling mean of the true range over a full window of n bars.
// The first bar has no previous close, so its true range is high-low.
func ATR(high, low, close []float64, n int) []float64 {
	out := nanSlice(len(close))
	if n <= 0 || len(close) < n {
		return out
	}
	tr := make([]float64, len(close))
	for i := range close {
		r := high[i] - low[i]
		if i > 0 {
			pc := close[i-1]
			if hc := math.Abs(high[i] - pc); hc > r {
				r = hc
			}
			if lc := math.Abs(low[i] - pc); lc > r {
				r = lc
			}
		}
		tr[i] = r
	}
	sum := 0.0
	for i, v := range tr {
		sum += v
		if i >= n {
			sum -= tr[i-n]
		}
		if i >= n-1 {
			out[i] = sum / float64(n)
		}
	}
	return out
}

// EMA is the exponential moving average with k = 2/(n+1), seeded on the
// first value.
func EMA(values []float64, n int) []float64 {
	out := make([]float64, len(values))
	if len(values) == 0 {
		return out
	}
	k := 2 / float64(n+1)
	out[0] = values[0]
	for i := 1; i < len(values); i++ {
		out[i] = values[i]*k + out[i-1]*(1-k)
	}
	return out
}

func nanSlice(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}
