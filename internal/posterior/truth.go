package posterior

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"

	"conjugate/internal/model"
)

// UniformStdKernel is the defective posterior (σ²)^(−n/2)·exp(−β/σ²) of a std
// under a flat prior.
func UniformStdKernel(n int, beta float64) Kernel {
	return func(s float64) float64 {
		if !(s > 0) {
			return math.Inf(-1)
		}
		return -float64(n)*math.Log(s) - beta/(s*s)
	}
}

// HalfCauchyStdKernel multiplies the uniform kernel by the half-Cauchy prior
// kernel S/(σ²+S²).
func HalfCauchyStdKernel(n int, beta, scale float64) Kernel {
	base := UniformStdKernel(n, beta)
	return func(s float64) float64 {
		lp := base(s)
		if math.IsInf(lp, -1) {
			return lp
		}
		return lp + math.Log(scale) - math.Log(s*s+scale*scale)
	}
}

// LocationKernel is the log posterior of the location target computed from
// the raw data: the prior times the likelihood with fixed shifts as known
// offsets, or with latent shifts integrated out.
func LocationKernel(in *model.Instance) Kernel {
	cfg := in.Config
	prior := cfg.Target
	sy2 := cfg.NoiseScale * cfg.NoiseScale
	return func(mu float64) float64 {
		lp := prior.LogDensity(mu)
		for i, g := range in.Groups {
			switch cfg.Shift {
			case model.LatentShift:
				v := sy2/float64(len(g.Values)) + cfg.ShiftScale*cfg.ShiftScale
				d := stat.Mean(g.Values, nil) - mu
				lp += -0.5 * d * d / v
			default:
				off := 0.0
				if cfg.Shift == model.FixedShift {
					off = in.ShiftValues[i]
				}
				for _, y := range g.Values {
					d := y - mu - off
					lp += -0.5 * d * d / sy2
				}
			}
		}
		return lp
	}
}

// Mode selects how the ground truth is computed.
type Mode string

const (
	Auto    Mode = "auto"
	Closed  Mode = "closed"
	Numeric Mode = "numeric"
)

// ParseMode maps a config string to a Mode; empty means Auto.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case "", Auto:
		return Auto, nil
	case Closed, Numeric:
		return Mode(s), nil
	}
	return "", fmt.Errorf("%w: unknown ground-truth mode %q", model.ErrInvalidConfig, s)
}

// Truth is a ground-truth summary and the method that produced it.
type Truth struct {
	Summary model.Summary `json:"summary"`
	Method  Mode          `json:"method"`
}

// ForInstance computes the ground truth of the instance's target. Auto picks
// the closed form where one exists and quadrature otherwise.
func ForInstance(in *model.Instance, mode Mode) (Truth, error) {
	switch in.Target.Prior.Kind {
	case model.Normal:
		if mode == Numeric {
			s, err := FromKernel(LocationKernel(in), locationDomain(in))
			return Truth{Summary: s, Method: Numeric}, err
		}
		s, err := NormalMean(in)
		return Truth{Summary: s, Method: Closed}, err

	case model.BoundedUniform:
		n, beta := ScaleStats(in)
		if mode != Numeric {
			s, err := UniformStd(in)
			if err == nil || mode == Closed {
				return Truth{Summary: s, Method: Closed}, err
			}
		}
		if !(beta > 0) {
			return Truth{}, fmt.Errorf("%w: zero sum of squared deviations", model.ErrDegenerateModel)
		}
		p := in.Target.Prior
		s, err := FromKernel(UniformStdKernel(n, beta), Domain{Lower: p.Lower, Upper: p.Upper})
		return Truth{Summary: s, Method: Numeric}, err

	case model.HalfCauchy:
		if mode == Closed {
			return Truth{}, fmt.Errorf("%w: no closed form for a half-cauchy std", model.ErrInvalidConfig)
		}
		n, beta := ScaleStats(in)
		if !(beta > 0) {
			return Truth{}, fmt.Errorf("%w: zero sum of squared deviations", model.ErrDegenerateModel)
		}
		s, err := FromKernel(HalfCauchyStdKernel(n, beta, in.Target.Prior.Scale), Domain{Lower: 0, Upper: math.Inf(1)})
		return Truth{Summary: s, Method: Numeric}, err
	}
	return Truth{}, fmt.Errorf("%w: prior %v", model.ErrInvalidConfig, in.Target.Prior.Kind)
}

// locationDomain brackets the location posterior by ±60 data-only standard
// errors around the shift-corrected data mean, widened to contain the prior
// mean's pull.
func locationDomain(in *model.Instance) Domain {
	cfg := in.Config
	var sum float64
	for i, g := range in.Groups {
		off := 0.0
		if cfg.Shift == model.FixedShift {
			off = in.ShiftValues[i]
		}
		for _, y := range g.Values {
			sum += y - off
		}
	}
	n := float64(in.TotalN())
	center := sum / n
	se := cfg.NoiseScale / math.Sqrt(n)
	if cfg.Shift == model.LatentShift {
		se = math.Sqrt(cfg.NoiseScale*cfg.NoiseScale/n + cfg.ShiftScale*cfg.ShiftScale)
	}
	half := 60 * se
	lo, hi := center-half, center+half
	lo = math.Min(lo, cfg.Target.Mu-half)
	hi = math.Max(hi, cfg.Target.Mu+half)
	return Domain{Lower: lo, Upper: hi}
}
