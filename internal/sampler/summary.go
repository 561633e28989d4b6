package sampler

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"conjugate/internal/model"
)

// Diagnostics describes how well a chain mixed. Every field is finite so a
// report can be encoded as JSON.
type Diagnostics struct {
	Lag1           float64 `json:"lag1_autocorrelation"`
	ESS            float64 `json:"effective_sample_size"`
	GewekeZ        float64 `json:"geweke_z"`
	AcceptanceRate float64 `json:"acceptance_rate"`
	Degenerate     int     `json:"degenerate_draws,omitempty"`
}

// Summarize returns the empirical mean, sample std and quantiles of draws.
// The std is NaN with fewer than two draws.
func Summarize(draws []float64) model.Summary {
	if len(draws) == 0 {
		return model.Summary{Mean: math.NaN(), Std: math.NaN()}
	}
	sorted := make([]float64, len(draws))
	copy(sorted, draws)
	sort.Float64s(sorted)

	s := model.Summary{
		Mean:      stat.Mean(draws, nil),
		Std:       math.NaN(),
		Quantiles: make(map[model.Percent]float64, len(model.QuantileLevels)),
	}
	if len(draws) > 1 {
		s.Std = stat.StdDev(draws, nil)
	}
	for _, p := range model.QuantileLevels {
		s.Quantiles[p] = stat.Quantile(p.Fraction(), stat.Empirical, sorted, nil)
	}
	return s
}

// Diagnose computes the lag-1 autocorrelation, the effective sample size by
// Geyer's initial positive sequence and the Geweke z-score comparing the
// first 10% of the chain against the last 50%. A constant chain has lag-1
// autocorrelation 1 and an ESS of 1.
func Diagnose(draws []float64) Diagnostics {
	n := len(draws)
	if n < 4 {
		return Diagnostics{ESS: float64(n)}
	}
	var d Diagnostics
	_, variance := stat.MeanVariance(draws, nil)
	if !(variance > 0) {
		d.Lag1, d.ESS = 1, 1
		return d
	}
	d.Lag1 = stat.Correlation(draws[:n-1], draws[1:], nil)
	if math.IsNaN(d.Lag1) {
		// One of the shifted windows is constant.
		d.Lag1 = 1
	}
	d.ESS = effectiveSize(draws)
	d.GewekeZ = geweke(draws)
	return d
}

// autocorrelation returns the lag-k autocorrelation around the chain mean.
func autocorrelation(x []float64, mean, c0 float64, k int) float64 {
	var c float64
	for i := 0; i+k < len(x); i++ {
		c += (x[i] - mean) * (x[i+k] - mean)
	}
	return c / float64(len(x)) / c0
}

// effectiveSize sums consecutive autocorrelation pairs while they stay
// positive: τ = −1 + 2·Σ(ρ_2m + ρ_2m+1), ESS = n/τ, capped at n.
func effectiveSize(x []float64) float64 {
	n := len(x)
	mean, _ := stat.MeanVariance(x, nil)
	var c0 float64
	for _, v := range x {
		c0 += (v - mean) * (v - mean)
	}
	c0 /= float64(n)
	if !(c0 > 0) {
		return 1
	}

	tau := -1.0
	for m := 0; 2*m+1 < n/2; m++ {
		pair := autocorrelation(x, mean, c0, 2*m) + autocorrelation(x, mean, c0, 2*m+1)
		if pair <= 0 {
			break
		}
		tau += 2 * pair
	}
	if tau < 1 {
		tau = 1
	}
	return float64(n) / tau
}

// geweke compares the means of the first 10% and last 50% of the chain, each
// with a standard error from its own effective size.
func geweke(x []float64) float64 {
	n := len(x)
	a := x[:n/10]
	b := x[n-n/2:]
	if len(a) < 2 || len(b) < 2 {
		return 0
	}
	ma, va := stat.MeanVariance(a, nil)
	mb, vb := stat.MeanVariance(b, nil)
	se := va/effectiveSize(a) + vb/effectiveSize(b)
	if !(se > 0) {
		return 0
	}
	return (ma - mb) / math.Sqrt(se)
}
