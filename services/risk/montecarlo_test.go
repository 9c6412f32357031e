package risk

import (
	"math"
	"math/rand"
	"testing"
)

func TestMonteCarloVarCVarOrdering(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	rets := make([]float64, 500)
	for i := range rets {
		rets[i] = rng.NormFloat64() * 0.01
	}
	est := MonteCarloVarCVar(rets, 1, 20000, 0.95, rand.New(rand.NewSource(1)))
	if est.VaR <= 0 {
		t.Fatalf("VaR = %v, want > 0 for a zero-mean series", est.VaR)
	}
	if est.CVaR < est.VaR {
		t.Fatalf("CVaR %v must be at least VaR %v", est.CVaR, est.VaR)
	}
	// 95% one-period VaR of N(0, 0.01) is about 1.645%.
	if est.VaR < 0.012 || est.VaR > 0.022 {
		t.Fatalf("VaR = %v, outside the plausible band for sigma=0.01", est.VaR)
	}
}

func TestMonteCarloVarCVarDeterministic(t *testing.T) {
	rets := []float64{0.01, -0.02, 0.005, -0.01, 0.015, -0.005}
	a := MonteCarloVarCVar(rets, 5, 1000, 0.99, rand.New(rand.NewSource(7)))
	b := MonteCarloVarCVar(rets, 5, 1000, 0.99, rand.New(rand.NewSource(7)))
	if a != b {
		t.Fatalf("same seed must reproduce the estimate: %+v vs %+v", a, b)
	}
}

func TestMonteCarloVarCVarHorizonWidens(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	rets := make([]float64, 300)
	for i := range rets {
		rets[i] = rng.NormFloat64() * 0.01
	}
	short := MonteCarloVarCVar(rets, 1, 20000, 0.95, rand.New(rand.NewSource(11)))
	long := MonteCarloVarCVar(rets, 16, 20000, 0.95, rand.New(rand.NewSource(11)))
	if long.VaR <= short.VaR {
		t.Fatalf("longer horizon must widen VaR: %v vs %v", long.VaR, short.VaR)
	}
}

func TestMonteCarloVarCVarDegenerateInputs(t *testing.T) {
	if got := MonteCarloVarCVar(nil, 1, 100, 0.95, rand.New(rand.NewSource(1))); got != (VarCVar{}) {
		t.Fatalf("empty series: got %+v, want zero value", got)
	}
	if got := MonteCarloVarCVar([]float64{0.01}, 0, 100, 0.95, rand.New(rand.NewSource(1))); got != (VarCVar{}) {
		t.Fatalf("zero horizon: got %+v, want zero value", got)
	}
	if got := MonteCarloVarCVar([]float64{0.01}, 1, 0, 0.95, rand.New(rand.NewSource(1))); got != (VarCVar{}) {
		t.Fatalf("zero sims: got %+v, want zero value", got)
	}
}

func TestQuantileInterpolation(t *testing.T) {
	vals := []float64{4, 1, 3, 2}
	if got := quantile(vals, 0); got != 1 {
		t.Fatalf("q0 = %v, want 1", got)
	}
	if got := quantile(vals, 1); got != 4 {
		t.Fatalf("q1 = %v, want 4", got)
	}
	if got := quantile(vals, 0.5); math.Abs(got-2.5) > 1e-12 {
		t.Fatalf("median = %v, want 2.5", got)
	}
}
