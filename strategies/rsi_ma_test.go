package strategies

import "testing"

// flatSeries builds n bars with the given closes and a fixed 2-point range.
func flatSeries(closes []float64) (high, low []float64) {
	high = make([]float64, len(closes))
	low = make([]float64, len(closes))
	for i, c := range closes {
		high[i] = c + 1
		low[i] = c - 1
	}
	return high, low
}

func TestRSIMAWarmupBarsAreFlat(t *testing.T) {
	closes := make([]float64, 60)
	for i := range closes {
		closes[i] = 100 + float64(i%5)
	}
	high, low := flatSeries(closes)
	p := DefaultRSIMAParams()
	signals, _ := RSIMASignals(high, low, closes, p)
	if len(signals) != len(closes) {
		t.Fatalf("signal length %d != bar count %d", len(signals), len(closes))
	}
	// The 50-bar MA is NaN until bar 49; no comparison can pass before it.
	for i := 0; i < p.MALen-1; i++ {
		if signals[i] != 0 {
			t.Fatalf("signals[%d] = %d during warmup, want 0", i, signals[i])
		}
	}
}

func TestRSIMALongCondition(t *testing.T) {
	// A long slow grind up keeps price above the MA, then a sharp pullback
	// drives the RSI down without crossing below the average.
	closes := make([]float64, 0, 120)
	v := 100.0
	for i := 0; i < 100; i++ {
		if i%4 == 0 {
			v -= 0.2
		} else {
			v += 0.5
		}
		closes = append(closes, v)
	}
	for i := 0; i < 8; i++ {
		v -= 1.2
		closes = append(closes, v)
	}
	high, low := flatSeries(closes)
	p := DefaultRSIMAParams()
	p.RSIBuyBelow = 45
	signals, ind := RSIMASignals(high, low, closes, p)

	found := false
	for i := p.MALen; i < len(signals); i++ {
		if signals[i] == 1 {
			found = true
			if !(ind.RSI[i] < p.RSIBuyBelow) || !(closes[i] > ind.MA[i]) {
				t.Fatalf("bar %d signalled long without both conditions", i)
			}
		}
	}
	if !found {
		t.Fatal("pullback scenario never produced a long signal")
	}
}

func TestRSIMAShortCondition(t *testing.T) {
	// Mirror: grind down below the MA, then a sharp bounce lifts the RSI.
	closes := make([]float64, 0, 120)
	v := 200.0
	for i := 0; i < 100; i++ {
		if i%4 == 0 {
			v += 0.2
		} else {
			v -= 0.5
		}
		closes = append(closes, v)
	}
	for i := 0; i < 8; i++ {
		v += 1.2
		closes = append(closes, v)
	}
	high, low := flatSeries(closes)
	p := DefaultRSIMAParams()
	p.RSISellAbove = 55
	signals, ind := RSIMASignals(high, low, closes, p)

	found := false
	for i := p.MALen; i < len(signals); i++ {
		if signals[i] == -1 {
			found = true
			if !(ind.RSI[i] > p.RSISellAbove) || !(closes[i] < ind.MA[i]) {
				t.Fatalf("bar %d signalled short without both conditions", i)
			}
		}
	}
	if !found {
		t.Fatal("bounce scenario never produced a short signal")
	}
}

func TestRSIMAATRFilterSuppresses(t *testing.T) {
	closes := make([]float64, 0, 120)
	v := 100.0
	for i := 0; i < 100; i++ {
		if i%4 == 0 {
			v -= 0.2
		} else {
			v += 0.5
		}
		closes = append(closes, v)
	}
	for i := 0; i < 8; i++ {
		v -= 1.2
		closes = append(closes, v)
	}
	high, low := flatSeries(closes)

	p := DefaultRSIMAParams()
	p.RSIBuyBelow = 45
	unfiltered, _ := RSIMASignals(high, low, closes, p)

	p.UseATRFilter = true
	p.ATRThresh = 10 // no bar's range is 10x its price
	filtered, _ := RSIMASignals(high, low, closes, p)

	any := false
	for _, s := range unfiltered {
		if s != 0 {
			any = true
		}
	}
	if !any {
		t.Fatal("scenario must signal without the filter")
	}
	for i, s := range filtered {
		if s != 0 {
			t.Fatalf("signals[%d] = %d with an unreachable volatility floor", i, s)
		}
	}
}
