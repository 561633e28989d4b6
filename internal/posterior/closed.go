// Package posterior computes ground-truth posterior summaries for the
// conjugate models, in closed form where one exists and by adaptive
// quadrature of the defective posterior otherwise. It works from the
// generated data of a model.Instance, never from the graph state a sampler
// mutates.
package posterior

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mathext"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	"conjugate/internal/model"
)

// NormalMean returns the Normal-Normal conjugate posterior of the location
// target. With fixed shifts the shifts are known constants; with latent
// shifts they are integrated out, which leaves each group mean Normal around
// the target with variance σ_y²/n_i + σ_β².
func NormalMean(in *model.Instance) (model.Summary, error) {
	if !in.IsLocation() {
		return model.Summary{}, fmt.Errorf("%w: normal-mean posterior needs a location target", model.ErrInvalidConfig)
	}
	cfg := in.Config
	tau0 := 1 / (cfg.Target.Sigma * cfg.Target.Sigma)
	mu0 := cfg.Target.Mu
	sy2 := cfg.NoiseScale * cfg.NoiseScale

	var tauPrime, weighted float64
	switch cfg.Shift {
	case model.LatentShift:
		sb2 := cfg.ShiftScale * cfg.ShiftScale
		tauPrime = tau0
		weighted = tau0 * mu0
		for _, g := range in.Groups {
			n := float64(len(g.Values))
			w := 1 / (sy2/n + sb2)
			tauPrime += w
			weighted += w * stat.Mean(g.Values, nil)
		}
	default:
		tau := 1 / sy2
		var sumObs, sumShift float64
		for i, g := range in.Groups {
			sumObs += floats.Sum(g.Values)
			if cfg.Shift == model.FixedShift {
				sumShift += float64(len(g.Values)) * in.ShiftValues[i]
			}
		}
		tauPrime = tau0 + float64(in.TotalN())*tau
		weighted = tau*(sumObs-sumShift) + mu0*tau0
	}

	mu := weighted / tauPrime
	sd := 1 / math.Sqrt(tauPrime)
	return normalSummary(mu, sd), nil
}

func normalSummary(mu, sd float64) model.Summary {
	d := distuv.Normal{Mu: mu, Sigma: sd}
	q := make(map[model.Percent]float64, len(model.QuantileLevels))
	for _, p := range model.QuantileLevels {
		q[p] = d.Quantile(p.Fraction())
	}
	return model.Summary{Mean: mu, Std: sd, Quantiles: q}
}

// ScaleStats returns the number of observations and β = Σ(x−μ)²/2 of a scale
// model, the sufficient statistics of its std posterior.
func ScaleStats(in *model.Instance) (n int, beta float64) {
	mu := in.Config.Location
	for _, g := range in.Groups {
		for _, x := range g.Values {
			d := x - mu
			beta += d * d
		}
		n += len(g.Values)
	}
	return n, beta / 2
}

// UniformStd returns the closed-form posterior of a std under a flat prior on
// (0, ∞): σ² ~ InvGamma(α, β) with α = (n−1)/2, so
// E[σ] = Γ(α−½)/Γ(α)·√β and E[σ²] = β/(α−1). The uniform bounds are
// ignored, which is exact to the precision of the bounds' tail mass. The
// std needs α > 1.
func UniformStd(in *model.Instance) (model.Summary, error) {
	if in.Target.Prior.Kind != model.BoundedUniform {
		return model.Summary{}, fmt.Errorf("%w: uniform-std posterior needs a uniform prior", model.ErrInvalidConfig)
	}
	n, beta := ScaleStats(in)
	alpha := float64(n-1) / 2
	if alpha <= 1 {
		return model.Summary{}, fmt.Errorf("%w: closed-form std needs n > 3, got n=%d", model.ErrDegenerateModel, n)
	}
	if !(beta > 0) {
		return model.Summary{}, fmt.Errorf("%w: zero sum of squared deviations", model.ErrDegenerateModel)
	}
	lgA, _ := math.Lgamma(alpha)
	lgAh, _ := math.Lgamma(alpha - 0.5)
	m := math.Exp(lgAh-lgA) * math.Sqrt(beta)
	v := beta/(alpha-1) - m*m
	if !(v > 0) {
		return model.Summary{}, fmt.Errorf("%w: closed-form variance %v", model.ErrNumericInstability, v)
	}

	// σ ≤ s  ⇔  u = β/σ² ≥ β/s², with u ~ Gamma(α, 1).
	q := make(map[model.Percent]float64, len(model.QuantileLevels))
	for _, p := range model.QuantileLevels {
		u := mathext.GammaIncRegInv(alpha, 1-p.Fraction())
		q[p] = math.Sqrt(beta / u)
	}
	return model.Summary{Mean: m, Std: math.Sqrt(v), Quantiles: q}, nil
}
