package gibbs

import (
	"fmt"
	"math"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mathext"
	"gonum.org/v1/gonum/stat/distuv"

	"conjugate/internal/model"
)

const (
	// gridCells is the resolution of the fallback sampler on log u.
	gridCells = 2048
	// minWindow is the smallest truncated CDF mass the inverse CDF is
	// trusted with.
	minWindow = 1e-12
	// tailSpan bounds the grid above when the window is open.
	tailSpan = 60.0
)

// deviations returns the number of values that use the node as their std and
// half their sum of squared deviations from the current location.
func (s *Step) deviations() (n int, beta float64) {
	for _, o := range s.children {
		mu := o.Mean()
		for _, x := range o.Values {
			d := x - mu
			beta += d * d
		}
		n += len(o.Values)
	}
	return n, beta / 2
}

// updateUniformStd draws σ under a Uniform(lb, ub) prior. With u = β/σ² the
// conditional is u ~ Gamma(α, 1), α = (n−1)/2, truncated to
// [β/ub², β/lb²], and is sampled by inverting the regularized incomplete
// gamma between the truncation points. When α ≤ 0 (a single value) or the
// window carries no representable mass, u is drawn from a fixed grid
// instead and the draw is counted as degenerate.
func (s *Step) updateUniformStd(rng *rand.Rand) error {
	n, beta := s.deviations()
	if !(beta > 0) || math.IsInf(beta, 0) {
		return fmt.Errorf("%w: sum of squared deviations is %v over %d values", model.ErrDegenerateModel, 2*beta, n)
	}
	p := s.node.Prior
	alpha := float64(n-1) / 2
	uLo := beta / (p.Upper * p.Upper)
	uHi := math.Inf(1)
	if p.Lower > 0 {
		uHi = beta / (p.Lower * p.Lower)
	}

	u, ok := 0.0, false
	if alpha > 0 {
		u, ok = truncatedGamma(rng, alpha, uLo, uHi)
	}
	if !ok {
		u = gridGamma(rng, alpha, uLo, uHi)
		s.degenerate++
	}
	s.node.Value = math.Min(math.Max(math.Sqrt(beta/u), p.Lower), p.Upper)
	return nil
}

// truncatedGamma draws Gamma(alpha, 1) restricted to [lo, hi] by inverse CDF.
// The upper tail is inverted through the complement so that windows far in
// the right tail keep their precision.
func truncatedGamma(rng *rand.Rand, alpha, lo, hi float64) (float64, bool) {
	var u float64
	pLo := mathext.GammaIncReg(alpha, lo)
	if pLo < 0.5 {
		pHi := 1.0
		if !math.IsInf(hi, 1) {
			pHi = mathext.GammaIncReg(alpha, hi)
		}
		if !(pHi-pLo > minWindow) {
			return 0, false
		}
		u = mathext.GammaIncRegInv(alpha, pLo+rng.Float64()*(pHi-pLo))
	} else {
		qLo := mathext.GammaIncRegComp(alpha, lo)
		qHi := 0.0
		if !math.IsInf(hi, 1) {
			qHi = mathext.GammaIncRegComp(alpha, hi)
		}
		if !(qLo-qHi > minWindow) {
			return 0, false
		}
		u = mathext.GammaIncRegCompInv(alpha, qHi+rng.Float64()*(qLo-qHi))
	}
	if math.IsNaN(u) {
		return 0, false
	}
	return math.Min(math.Max(u, lo), hi), true
}

// gridGamma draws u ∝ u^(alpha−1)·e^(−u) on [lo, hi] from a piecewise
// constant approximation on w = log u, where the kernel is alpha·w − e^w.
// It works for any alpha, including the improper alpha ≤ 0 of a single
// value, because lo is strictly positive.
func gridGamma(rng *rand.Rand, alpha, lo, hi float64) float64 {
	wLo := math.Log(lo)
	wHi := math.Log(math.Max(alpha, 1) + tailSpan)
	if !math.IsInf(hi, 1) {
		wHi = math.Min(wHi, math.Log(hi))
	}
	if !(wHi > wLo) {
		return lo
	}

	h := (wHi - wLo) / gridCells
	logw := make([]float64, gridCells)
	for i := range logw {
		w := wLo + (float64(i)+0.5)*h
		logw[i] = alpha*w - math.Exp(w)
	}
	top := floats.Max(logw)
	weights := make([]float64, gridCells)
	for i, lw := range logw {
		weights[i] = math.Exp(lw - top)
	}
	cell := distuv.NewCategorical(weights, rng).Rand()
	w := wLo + (cell+rng.Float64())*h
	return math.Min(math.Max(math.Exp(w), lo), hi)
}

// updateHalfCauchyStd runs one sweep of the augmented half-Cauchy model
//
//	σ² | a ~ InvGamma(½, 1/a),  a ~ InvGamma(½, 1/S²)
//
// drawing a | σ² ~ InvGamma(1, 1/σ² + 1/S²) and then
// σ² | a, x ~ InvGamma((n+1)/2, β + 1/a).
func (s *Step) updateHalfCauchyStd(rng *rand.Rand) error {
	n, beta := s.deviations()
	if math.IsNaN(beta) || math.IsInf(beta, 0) {
		return fmt.Errorf("%w: sum of squared deviations is %v", model.ErrNumericInstability, 2*beta)
	}
	scale := s.node.Prior.Scale
	sigma := s.node.Value

	s.aux = distuv.InverseGamma{
		Alpha: 1,
		Beta:  1/(sigma*sigma) + 1/(scale*scale),
		Src:   rng,
	}.Rand()
	v := distuv.InverseGamma{
		Alpha: float64(n+1) / 2,
		Beta:  beta + 1/s.aux,
		Src:   rng,
	}.Rand()
	if !(v > 0) || math.IsInf(v, 0) {
		return fmt.Errorf("%w: variance draw %v", model.ErrNumericInstability, v)
	}
	s.node.Value = math.Sqrt(v)
	return nil
}
