package risk

import (
	"math"
	"math/rand"
	"sort"
)

// VarCVar holds Monte-Carlo value-at-risk estimates, expressed as losses
// (positive means a loss at the given confidence).
type VarCVar struct {
	VaR  float64
	CVaR float64
}

// MonteCarloVarCVar estimates VaR/CVaR at confidence alpha by drawing
// normally distributed returns with the sample mean and standard deviation
// of the input series, summed over horizon periods per path. The caller
// owns the rand source, which keeps runs reproducible.
func MonteCarloVarCVar(returns []float64, horizon, sims int, alpha float64, rng *rand.Rand) VarCVar {
	if len(returns) == 0 || sims <= 0 || horizon <= 0 {
		return VarCVar{}
	}
	mu, sigma := sampleMeanStd(returns)
	sigma += 1e-12

	agg := make([]float64, sims)
	for i := range agg {
		sum := 0.0
		for h := 0; h < horizon; h++ {
			sum += rng.NormFloat64()*sigma + mu
		}
		agg[i] = sum
	}

	q := quantile(agg, 1-alpha)
	v := -q

	var tail float64
	n := 0
	for _, x := range agg {
		if x <= q {
			tail += x
			n++
		}
	}
	c := v // empty tail falls back to VaR
	if n > 0 {
		c = -(tail / float64(n))
	}
	return VarCVar{VaR: v, CVaR: c}
}

func sampleMeanStd(vals []float64) (mean, std float64) {
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

// quantile interpolates linearly between order statistics.
func quantile(vals []float64, q float64) float64 {
	s := append([]float64(nil), vals...)
	sort.Float64s(s)
	if q <= 0 {
		return s[0]
	}
	if q >= 1 {
		return s[len(s)-1]
	}
	pos := q * float64(len(s)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return s[lo]
	}
	frac := pos - float64(lo)
	return s[lo]*(1-frac) + s[hi]*frac
}
