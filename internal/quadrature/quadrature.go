// Package quadrature integrates smooth one-dimensional functions on finite
// intervals by adaptive panel refinement. Each panel is evaluated with a
// Gauss–Legendre rule at two orders; their difference is the panel's error
// estimate and the worst panel is bisected until the global estimate meets
// the requested tolerance.
package quadrature

import (
	"container/heap"
	"fmt"
	"math"

	"gonum.org/v1/gonum/integrate/quad"

	"conjugate/internal/model"
)

// Options tunes the integrator.
type Options struct {
	RelTol        float64 // relative tolerance on the integral
	AbsTol        float64 // absolute floor on the tolerance
	Points        int     // Legendre order of the coarse rule; the fine rule uses 2×
	InitialPanels int     // equal-width panels before refinement
	MaxPanels     int     // refinement budget; exceeding it is an error
}

// DefaultOptions targets a relative error of 1e-6.
func DefaultOptions() Options {
	return Options{
		RelTol:        1e-6,
		AbsTol:        1e-300,
		Points:        10,
		InitialPanels: 64,
		MaxPanels:     1 << 14,
	}
}

// Result is an integral value with its error estimate and cost.
type Result struct {
	Value       float64
	Error       float64
	Panels      int
	Evaluations int
}

type panel struct {
	a, b  float64
	value float64
	err   float64
}

type panelHeap []panel

func (h panelHeap) Len() int           { return len(h) }
func (h panelHeap) Less(i, j int) bool { return h[i].err > h[j].err }
func (h panelHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *panelHeap) Push(x any)        { *h = append(*h, x.(panel)) }

func (h *panelHeap) Pop() any {
	old := *h
	p := old[len(old)-1]
	*h = old[:len(old)-1]
	return p
}

// Integrate computes ∫_a^b f(x) dx. Any non-finite value of f inside the
// interval, or failure to converge within MaxPanels, returns an error
// wrapping model.ErrNumericInstability.
func Integrate(f func(float64) float64, a, b float64, opts Options) (Result, error) {
	if math.IsNaN(a) || math.IsNaN(b) || math.IsInf(a, 0) || math.IsInf(b, 0) {
		return Result{}, fmt.Errorf("%w: integration bounds must be finite, got [%v, %v]", model.ErrNumericInstability, a, b)
	}
	if a == b {
		return Result{}, nil
	}
	sign := 1.0
	if a > b {
		a, b, sign = b, a, -1
	}
	opts = withDefaults(opts)

	var (
		evals int
		bad   float64
		badAt = math.NaN()
	)
	guarded := func(x float64) float64 {
		evals++
		v := f(x)
		if math.IsNaN(v) || math.IsInf(v, 0) {
			if math.IsNaN(badAt) {
				bad, badAt = v, x
			}
			return 0
		}
		return v
	}
	eval := func(lo, hi float64) panel {
		coarse := quad.Fixed(guarded, lo, hi, opts.Points, quad.Legendre{}, 0)
		fine := quad.Fixed(guarded, lo, hi, 2*opts.Points, quad.Legendre{}, 0)
		return panel{a: lo, b: hi, value: fine, err: math.Abs(fine - coarse)}
	}

	h := make(panelHeap, 0, opts.InitialPanels)
	width := (b - a) / float64(opts.InitialPanels)
	var total, totalErr float64
	for i := 0; i < opts.InitialPanels; i++ {
		lo := a + float64(i)*width
		hi := lo + width
		if i == opts.InitialPanels-1 {
			hi = b
		}
		p := eval(lo, hi)
		total += p.value
		totalErr += p.err
		h = append(h, p)
	}
	heap.Init(&h)

	for {
		if !math.IsNaN(badAt) {
			return Result{}, fmt.Errorf("%w: integrand is %v at x=%v", model.ErrNumericInstability, bad, badAt)
		}
		if totalErr <= math.Max(opts.RelTol*math.Abs(total), opts.AbsTol) {
			break
		}
		if h.Len() >= opts.MaxPanels {
			return Result{}, fmt.Errorf("%w: integral did not converge in %d panels (value %g, error %g)",
				model.ErrNumericInstability, h.Len(), total, totalErr)
		}
		worst := heap.Pop(&h).(panel)
		mid := worst.a + (worst.b-worst.a)/2
		if mid <= worst.a || mid >= worst.b {
			return Result{}, fmt.Errorf("%w: panel [%v, %v] cannot be split further", model.ErrNumericInstability, worst.a, worst.b)
		}
		left, right := eval(worst.a, mid), eval(mid, worst.b)
		total += left.value + right.value - worst.value
		totalErr += left.err + right.err - worst.err
		heap.Push(&h, left)
		heap.Push(&h, right)
	}

	// Re-sum to shed the drift of incremental updates.
	var sum, errSum float64
	for _, p := range h {
		sum += p.value
		errSum += p.err
	}
	return Result{Value: sign * sum, Error: errSum, Panels: h.Len(), Evaluations: evals}, nil
}

func withDefaults(o Options) Options {
	d := DefaultOptions()
	if o.RelTol <= 0 {
		o.RelTol = d.RelTol
	}
	if o.AbsTol <= 0 {
		o.AbsTol = d.AbsTol
	}
	if o.Points <= 0 {
		o.Points = d.Points
	}
	if o.InitialPanels <= 0 {
		o.InitialPanels = d.InitialPanels
	}
	if o.MaxPanels < o.InitialPanels {
		o.MaxPanels = max(d.MaxPanels, o.InitialPanels)
	}
	return o
}
