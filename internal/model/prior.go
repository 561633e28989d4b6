package model

import (
	"fmt"
	"math"
)

// PriorKind tags the prior family of a latent node. The Gibbs update used for
// a node is chosen from this tag.
type PriorKind int

const (
	Normal PriorKind = iota + 1
	BoundedUniform
	HalfCauchy
)

var priorKindNames = map[PriorKind]string{
	Normal:         "normal",
	BoundedUniform: "uniform",
	HalfCauchy:     "half-cauchy",
}

func (k PriorKind) String() string {
	if s, ok := priorKindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("PriorKind(%d)", int(k))
}

// ParsePriorKind is the inverse of PriorKind.String.
func ParsePriorKind(s string) (PriorKind, error) {
	for k, name := range priorKindNames {
		if name == s {
			return k, nil
		}
	}
	return 0, fmt.Errorf("%w: unknown prior %q", ErrInvalidConfig, s)
}

// Prior holds the family tag and its hyperparameters. Only the fields of the
// tagged family are meaningful: Mu/Sigma for Normal, Lower/Upper for
// BoundedUniform, Scale for HalfCauchy.
type Prior struct {
	Kind  PriorKind
	Mu    float64
	Sigma float64
	Lower float64
	Upper float64
	Scale float64
}

// NormalPrior returns a Normal(mu, sigma) prior.
func NormalPrior(mu, sigma float64) Prior {
	return Prior{Kind: Normal, Mu: mu, Sigma: sigma}
}

// UniformPrior returns a Uniform(lower, upper) prior.
func UniformPrior(lower, upper float64) Prior {
	return Prior{Kind: BoundedUniform, Lower: lower, Upper: upper}
}

// HalfCauchyPrior returns a half-Cauchy prior with the given scale on (0, ∞).
func HalfCauchyPrior(scale float64) Prior {
	return Prior{Kind: HalfCauchy, Scale: scale}
}

// Validate reports hyperparameters that do not define a proper prior.
func (p Prior) Validate() error {
	switch p.Kind {
	case Normal:
		if !(p.Sigma > 0) || math.IsInf(p.Sigma, 0) {
			return fmt.Errorf("%w: normal prior sigma must be positive and finite, got %v", ErrInvalidConfig, p.Sigma)
		}
	case BoundedUniform:
		if !(p.Lower < p.Upper) || math.IsInf(p.Lower, 0) || math.IsInf(p.Upper, 0) {
			return fmt.Errorf("%w: uniform prior needs finite lower < upper, got [%v, %v]", ErrInvalidConfig, p.Lower, p.Upper)
		}
	case HalfCauchy:
		if !(p.Scale > 0) {
			return fmt.Errorf("%w: half-cauchy scale must be positive, got %v", ErrInvalidConfig, p.Scale)
		}
	default:
		return fmt.Errorf("%w: prior kind %v", ErrInvalidConfig, p.Kind)
	}
	return nil
}

// Positive reports whether the prior's support is restricted to (0, ∞).
func (p Prior) Positive() bool {
	switch p.Kind {
	case HalfCauchy:
		return true
	case BoundedUniform:
		return p.Lower >= 0
	}
	return false
}

// Contains reports whether x lies in the support of the prior.
func (p Prior) Contains(x float64) bool {
	switch p.Kind {
	case BoundedUniform:
		return x >= p.Lower && x <= p.Upper
	case HalfCauchy:
		return x > 0
	}
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}

// LogDensity returns the prior log density at x up to an additive constant,
// or -Inf outside the support.
func (p Prior) LogDensity(x float64) float64 {
	if !p.Contains(x) {
		return math.Inf(-1)
	}
	switch p.Kind {
	case Normal:
		z := (x - p.Mu) / p.Sigma
		return -0.5*z*z - math.Log(p.Sigma)
	case BoundedUniform:
		return -math.Log(p.Upper - p.Lower)
	case HalfCauchy:
		return math.Log(p.Scale) - math.Log(x*x+p.Scale*p.Scale)
	}
	return math.Inf(-1)
}

// Initial is the starting value of a node with this prior: the prior mean for
// Normal, one for scale priors (clipped into uniform bounds).
func (p Prior) Initial() float64 {
	switch p.Kind {
	case Normal:
		return p.Mu
	case BoundedUniform:
		return math.Min(math.Max(1, p.Lower), p.Upper)
	}
	return 1
}
