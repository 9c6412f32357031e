package indicators

import (
	"math"
	"testing"
)

func TestSMAWarmupAndValues(t *testing.T) {
	got := SMA([]float64{1, 2, 3, 4, 5}, 3)
	if !math.IsNaN(got[0]) || !math.IsNaN(got[1]) {
		t.Fatalf("warmup bars must be NaN, got %v, %v", got[0], got[1])
	}
	want := []float64{2, 3, 4}
	for i, w := range want {
		if math.Abs(got[i+2]-w) > 1e-12 {
			t.Fatalf("sma[%d] = %v, want %v", i+2, got[i+2], w)
		}
	}
}

func TestSMAWindowLargerThanSeries(t *testing.T) {
	got := SMA([]float64{1, 2}, 5)
	for i, v := range got {
		if !math.IsNaN(v) {
			t.Fatalf("sma[%d] = %v, want NaN", i, v)
		}
	}
}

func TestRSIWarmupIsNeutral(t *testing.T) {
	close := []float64{100, 101, 102, 103, 104, 105, 106, 107}
	got := RSI(close, 14)
	for i, v := range got {
		if v != 50 {
			t.Fatalf("rsi[%d] = %v, want neutral 50 during warmup", i, v)
		}
	}
}

func TestRSIAllGainsIsNeutralByConvention(t *testing.T) {
	// A monotone rise has zero average loss; the ratio is undefined and
	// the series stays at 50 rather than pinning to 100.
	close := make([]float64, 40)
	for i := range close {
		close[i] = 100 + float64(i)
	}
	got := RSI(close, 14)
	if got[30] != 50 {
		t.Fatalf("rsi with zero losses = %v, want 50", got[30])
	}
}

func TestRSIRangeAndDirection(t *testing.T) {
	close := make([]float64, 60)
	v := 100.0
	for i := range close {
		if i%3 == 0 {
			v -= 0.5
		} else {
			v += 1
		}
		close[i] = v
	}
	got := RSI(close, 14)
	for i := 14; i < len(got); i++ {
		if got[i] <= 0 || got[i] >= 100 {
			t.Fatalf("rsi[%d] = %v, outside (0, 100)", i, got[i])
		}
	}
	// Two rising bars for every falling one keeps the index above neutral.
	if got[59] <= 50 {
		t.Fatalf("rsi of an uptrend = %v, want > 50", got[59])
	}
}

func TestATRConstantRange(t *testing.T) {
	n := 10
	high := make([]float64, n)
	low := make([]float64, n)
	close := make([]float64, n)
	for i := range high {
		high[i] = 102
		low[i] = 98
		close[i] = 100
	}
	got := ATR(high, low, close, 3)
	if !math.IsNaN(got[0]) || !math.IsNaN(got[1]) {
		t.Fatal("atr warmup bars must be NaN")
	}
	for i := 2; i < n; i++ {
		if math.Abs(got[i]-4) > 1e-12 {
			t.Fatalf("atr[%d] = %v, want 4", i, got[i])
		}
	}
}

func TestATRUsesGapFromPreviousClose(t *testing.T) {
	// Bar 1 gaps far above bar 0's close; the true range must span the gap.
	high := []float64{101, 111}
	low := []float64{99, 109}
	close := []float64{100, 110}
	got := ATR(high, low, close, 1)
	if math.Abs(got[0]-2) > 1e-12 {
		t.Fatalf("atr[0] = %v, want 2", got[0])
	}
	if math.Abs(got[1]-11) > 1e-12 {
		t.Fatalf("atr[1] = %v, want 11 (high minus previous close)", got[1])
	}
}

func TestEMASeedAndSmoothing(t *testing.T) {
	got := EMA([]float64{10, 20, 20, 20}, 3)
	if got[0] != 10 {
		t.Fatalf("ema seeds on the first value, got %v", got[0])
	}
	// k = 0.5: 10 -> 15 -> 17.5 -> 18.75
	want := []float64{10, 15, 17.5, 18.75}
	for i, w := range want {
		if math.Abs(got[i]-w) > 1e-12 {
			t.Fatalf("ema[%d] = %v, want %v", i, got[i], w)
		}
	}
}
