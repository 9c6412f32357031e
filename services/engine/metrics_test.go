package engine

import (
	"math"
	"testing"
)

func TestSummarizeFlatEquity(t *testing.T) {
	eq := repeat(10000, 48)
	s := Summarize(eq, nil, 24)
	if s.FinalEquity != 10000 || s.ReturnPct != 0 {
		t.Fatalf("flat curve: final=%v return=%v", s.FinalEquity, s.ReturnPct)
	}
	if s.MaxDrawdownPct != 0 {
		t.Fatalf("flat curve has no drawdown, got %v", s.MaxDrawdownPct)
	}
	if s.Sharpe != 0 {
		t.Fatalf("flat curve sharpe = %v, want 0", s.Sharpe)
	}
	if s.Trades != 0 || s.WinPct != 0 {
		t.Fatalf("no trades expected: trades=%d win=%v", s.Trades, s.WinPct)
	}
}

func TestSummarizeDrawdown(t *testing.T) {
	eq := []float64{100, 110, 99, 105, 120}
	s := Summarize(eq, nil, 1)
	// Peak 110 to trough 99 is a 10% drawdown.
	if math.Abs(s.MaxDrawdownPct-10) > 1e-9 {
		t.Fatalf("drawdown = %v, want 10", s.MaxDrawdownPct)
	}
	if math.Abs(s.ReturnPct-20) > 1e-9 {
		t.Fatalf("return = %v, want 20", s.ReturnPct)
	}
	if s.FinalEquity != 120 {
		t.Fatalf("final = %v, want 120", s.FinalEquity)
	}
}

func TestSummarizeWinRate(t *testing.T) {
	trades := []TradeResult{
		{Pnl: 10}, {Pnl: -5}, {Pnl: 3}, {Pnl: -1},
	}
	s := Summarize([]float64{100, 107}, trades, 24)
	if s.Trades != 4 {
		t.Fatalf("trades = %d, want 4", s.Trades)
	}
	if math.Abs(s.WinPct-50) > 1e-9 {
		t.Fatalf("win rate = %v, want 50", s.WinPct)
	}
}

func TestSummarizeEmptyEquity(t *testing.T) {
	s := Summarize(nil, nil, 24)
	if !math.IsNaN(s.FinalEquity) || !math.IsNaN(s.ReturnPct) {
		t.Fatalf("empty curve must report NaN, got final=%v return=%v", s.FinalEquity, s.ReturnPct)
	}
}

func TestSummarizeSharpeSign(t *testing.T) {
	// Steady growth with mild noise over many days keeps the daily mean
	// positive, so the annualized ratio must come out positive.
	eq := make([]float64, 0, 240)
	v := 10000.0
	for i := 0; i < 240; i++ {
		if i%7 == 3 {
			v *= 0.999
		} else {
			v *= 1.001
		}
		eq = append(eq, v)
	}
	s := Summarize(eq, nil, 24)
	if s.Sharpe <= 0 {
		t.Fatalf("sharpe = %v, want > 0 for a rising curve", s.Sharpe)
	}
}

func TestBucketSums(t *testing.T) {
	got := bucketSums([]float64{1, 2, 3, 4, 5}, 2)
	want := []float64{3, 7, 5}
	if len(got) != len(want) {
		t.Fatalf("got %d buckets, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("bucket[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}
