package sampler

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/samplemv"

	"conjugate/internal/gibbs"
	"conjugate/internal/model"
)

// optimalScale is the random-walk step size, in posterior standard
// deviations, that is asymptotically optimal for a one-dimensional Normal
// target; it shrinks as 1/√d with the dimension.
const optimalScale = 2.4

// logTarget is the joint log density of every latent node. Nodes with
// positive support are sampled as w = log x, which adds the Jacobian w.
type logTarget struct {
	graph    *model.Graph
	positive []bool
}

func (t logTarget) LogProb(x []float64) float64 {
	var jac float64
	for i, n := range t.graph.Latent {
		v := x[i]
		if t.positive[i] {
			jac += v
			v = math.Exp(v)
		}
		n.Value = v
	}
	lp := t.graph.LogProb()
	if math.IsNaN(lp) {
		return math.Inf(-1)
	}
	return lp + jac
}

func (t logTarget) point() []float64 {
	x := t.graph.Values()
	for i, p := range t.positive {
		if p {
			x[i] = math.Log(x[i])
		}
	}
	return x
}

func (t logTarget) set(x []float64) {
	for i, n := range t.graph.Latent {
		v := x[i]
		if t.positive[i] {
			v = math.Exp(v)
		}
		n.Value = v
	}
}

// runMetropolis samples every latent node jointly with gonum's
// Metropolis-Hastings sampler and a Normal random-walk proposal. The
// proposal covariance is the inverse of the graph's structural curvature,
// so correlated target and shift nodes move along their ridge.
func runMetropolis(in *model.Instance, cfg Config) (*Result, error) {
	g := in.Graph
	target := logTarget{graph: g, positive: make([]bool, len(g.Latent))}
	col := -1
	for i, n := range g.Latent {
		target.positive[i] = n.Prior.Positive()
		if n == in.Target {
			col = i
		}
	}
	if col < 0 {
		return nil, fmt.Errorf("%w: target %s is not a latent node of its graph", model.ErrInvalidConfig, in.Target.Name)
	}
	kind, err := gibbs.KindFor(in.Target.Prior)
	if err != nil {
		return nil, err
	}

	initial := target.point()
	if lp := target.LogProb(initial); math.IsInf(lp, 0) || math.IsNaN(lp) {
		return nil, fmt.Errorf("%w: initial log density %v", model.ErrDegenerateModel, lp)
	}

	scale := cfg.ProposalScale
	if scale == 0 {
		scale = 1
	}
	cov, err := ProposalCovariance(g, scale)
	if err != nil {
		return nil, err
	}
	rng := NewRand(cfg.Seed)
	proposal, ok := samplemv.NewProposalNormal(cov, rng)
	if !ok {
		return nil, fmt.Errorf("%w: proposal covariance is not positive definite", model.ErrNumericInstability)
	}

	mh := samplemv.MetropolisHastingser{
		Initial:  initial,
		Target:   target,
		Proposal: proposal,
		Src:      rng,
		BurnIn:   cfg.BurnIn,
	}
	kept := cfg.Iterations - cfg.BurnIn
	batch := mat.NewDense(kept, len(initial), nil)
	mh.Sample(batch)
	target.set(batch.RawRowView(kept - 1))

	draws := make([]float64, kept)
	moved := 0
	for i := range draws {
		row := batch.RawRowView(i)
		draws[i] = row[col]
		if target.positive[col] {
			draws[i] = math.Exp(draws[i])
		}
		if i > 0 && !floats.Equal(row, batch.RawRowView(i-1)) {
			moved++
		}
	}

	res := &Result{Kind: kind, Draws: draws}
	if kept > 1 {
		res.Diagnostics.AcceptanceRate = float64(moved) / float64(kept-1)
	}
	return res, nil
}

// ProposalCovariance returns the random-walk covariance
// (2.4²/d)·scale²·Q⁻¹, where Q is the curvature of the joint log density
// implied by the graph's structure at the current noise levels: prior and
// data precisions for location nodes, coupled through the observations they
// share, and 2n for each log-scale std node informed by n values.
func ProposalCovariance(g *model.Graph, scale float64) (*mat.SymDense, error) {
	d := len(g.Latent)
	if d == 0 {
		return nil, fmt.Errorf("%w: graph has no latent nodes", model.ErrInvalidConfig)
	}
	index := make(map[*model.Node]int, d)
	q := mat.NewSymDense(d, nil)
	for i, n := range g.Latent {
		index[n] = i
		switch {
		case n.Prior.Positive():
			var count int
			for _, o := range g.Children(n) {
				if o.Scale == n {
					count += len(o.Values)
				}
			}
			q.SetSym(i, i, math.Max(2*float64(count), 1))
		case n.Prior.Kind == model.Normal:
			q.SetSym(i, i, 1/(n.Prior.Sigma*n.Prior.Sigma))
		}
	}

	for _, o := range g.Observed {
		sd := o.Std()
		if !(sd > 0) || math.IsInf(sd, 0) {
			return nil, fmt.Errorf("%w: observation %s has noise std %v", model.ErrDegenerateModel, o.Name, sd)
		}
		prec := float64(len(o.Values)) / (sd * sd)
		for a, na := range o.Loc {
			if na.Prior.Positive() {
				continue
			}
			for _, nb := range o.Loc[a:] {
				if nb.Prior.Positive() {
					continue
				}
				i, j := index[na], index[nb]
				q.SetSym(i, j, q.At(i, j)+prec)
			}
		}
	}

	var chol mat.Cholesky
	if ok := chol.Factorize(q); !ok {
		return nil, fmt.Errorf("%w: graph curvature is not positive definite", model.ErrNumericInstability)
	}
	var cov mat.SymDense
	if err := chol.InverseTo(&cov); err != nil {
		return nil, fmt.Errorf("%w: invert graph curvature: %v", model.ErrNumericInstability, err)
	}
	f := scale * optimalScale / math.Sqrt(float64(d))
	cov.ScaleSym(f*f, &cov)
	return &cov, nil
}
