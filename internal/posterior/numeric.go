package posterior

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"conjugate/internal/model"
	"conjugate/internal/quadrature"
)

// Kernel is the log of an unnormalised ("defective") posterior density. It
// must return -Inf, never NaN, where the density vanishes.
type Kernel func(x float64) float64

// Domain is the support of a kernel. Lower must be finite; Upper may be +Inf.
type Domain struct {
	Lower, Upper float64
}

const (
	probePoints   = 400
	logMapRatio   = 1e3
	quantileIters = 64
)

// FromKernel integrates the kernel over its domain and returns its mean, std and
// quantiles. The integrand is exp(kernel − shift), with shift the kernel's
// maximum over a probe grid, so that neither tail overflows.
func FromKernel(k Kernel, d Domain) (model.Summary, error) {
	if math.IsInf(d.Lower, 0) || math.IsNaN(d.Lower) || !(d.Upper > d.Lower) {
		return model.Summary{}, fmt.Errorf("%w: unsupported domain [%v, %v]", model.ErrInvalidConfig, d.Lower, d.Upper)
	}
	shift, mode, err := probe(k, d)
	if err != nil {
		return model.Summary{}, err
	}
	m := newMapping(d, mode)

	weighted := func(g func(x float64) float64) func(float64) float64 {
		return func(t float64) float64 {
			x, jac := m.at(t)
			lp := k(x)
			if math.IsInf(lp, -1) {
				return 0
			}
			return math.Exp(lp-shift) * jac * g(x)
		}
	}
	density := weighted(func(float64) float64 { return 1 })

	opts := quadrature.DefaultOptions()
	z, err := quadrature.Integrate(density, m.lo, m.hi, opts)
	if err != nil {
		return model.Summary{}, fmt.Errorf("normaliser: %w", err)
	}
	if !(z.Value > 0) || math.IsInf(z.Value, 0) {
		return model.Summary{}, fmt.Errorf("%w: normaliser %v", model.ErrNumericInstability, z.Value)
	}
	m1, err := quadrature.Integrate(weighted(func(x float64) float64 { return x }), m.lo, m.hi, opts)
	if err != nil {
		return model.Summary{}, fmt.Errorf("first moment: %w", err)
	}
	mu := m1.Value / z.Value
	// Central second moment, so the variance never cancels against mu².
	m2, err := quadrature.Integrate(weighted(func(x float64) float64 {
		d := x - mu
		return d * d
	}), m.lo, m.hi, opts)
	if err != nil {
		return model.Summary{}, fmt.Errorf("second moment: %w", err)
	}
	v := m2.Value / z.Value
	if math.IsInf(mu, 0) || math.IsNaN(mu) || math.IsInf(v, 0) || math.IsNaN(v) || v < 0 {
		return model.Summary{}, fmt.Errorf("%w: moments mean=%v var=%v", model.ErrNumericInstability, mu, v)
	}

	cdfOpts := opts
	cdfOpts.AbsTol = 1e-12 * z.Value
	q := make(map[model.Percent]float64, len(model.QuantileLevels))
	for _, p := range model.QuantileLevels {
		t, err := invertCDF(density, m.lo, m.hi, p.Fraction()*z.Value, cdfOpts)
		if err != nil {
			return model.Summary{}, fmt.Errorf("quantile %v: %w", float64(p), err)
		}
		q[p], _ = m.at(t)
	}
	return model.Summary{Mean: mu, Std: math.Sqrt(v), Quantiles: q}, nil
}

// probe evaluates the kernel on a grid and returns its maximum and argmax.
func probe(k Kernel, d Domain) (shift, mode float64, err error) {
	xs := make([]float64, probePoints)
	switch {
	case math.IsInf(d.Upper, 1):
		if d.Lower < 0 {
			return 0, 0, fmt.Errorf("%w: half-line domains need a non-negative lower bound", model.ErrInvalidConfig)
		}
		lo := math.Max(d.Lower, 1e-12)
		floats.LogSpan(xs, lo, math.Max(1e8, 1e3*lo))
	case d.Lower > 0 && d.Upper/d.Lower > logMapRatio:
		floats.LogSpan(xs, d.Lower, d.Upper)
	default:
		floats.Span(xs, d.Lower, d.Upper)
	}

	shift = math.Inf(-1)
	for _, x := range xs {
		lp := k(x)
		if math.IsNaN(lp) || math.IsInf(lp, 1) {
			return 0, 0, fmt.Errorf("%w: kernel is %v at x=%v", model.ErrNumericInstability, lp, x)
		}
		if lp > shift {
			shift, mode = lp, x
		}
	}
	if math.IsInf(shift, -1) {
		return 0, 0, fmt.Errorf("%w: kernel vanishes on every probe point", model.ErrNumericInstability)
	}
	return shift, mode, nil
}

// mapping carries the integration variable t onto the domain.
type mapping struct {
	lo, hi float64
	at     func(t float64) (x, jac float64)
}

func newMapping(d Domain, mode float64) mapping {
	switch {
	case math.IsInf(d.Upper, 1):
		c := mode - d.Lower
		if !(c > 0) {
			c = 1
		}
		return mapping{lo: 0, hi: 1, at: func(t float64) (float64, float64) {
			r := 1 - t
			return d.Lower + c*t/r, c / (r * r)
		}}
	case d.Lower > 0 && d.Upper/d.Lower > logMapRatio:
		return mapping{lo: math.Log(d.Lower), hi: math.Log(d.Upper), at: func(w float64) (float64, float64) {
			x := math.Exp(w)
			return x, x
		}}
	default:
		return mapping{lo: d.Lower, hi: d.Upper, at: func(t float64) (float64, float64) {
			return t, 1
		}}
	}
}

// invertCDF finds t with ∫_lo^t f = target by bisection.
func invertCDF(f func(float64) float64, lo, hi, target float64, opts quadrature.Options) (float64, error) {
	a, b := lo, hi
	for i := 0; i < quantileIters; i++ {
		mid := a + (b-a)/2
		if mid <= a || mid >= b {
			break
		}
		res, err := quadrature.Integrate(f, lo, mid, opts)
		if err != nil {
			return 0, err
		}
		if res.Value < target {
			a = mid
		} else {
			b = mid
		}
	}
	return a + (b-a)/2, nil
}
