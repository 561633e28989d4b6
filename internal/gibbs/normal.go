package gibbs

import (
	"fmt"
	"math"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"

	"conjugate/internal/model"
)

// updateMean draws the node from N(μ', τ'^-½) with τ' = τ0 + Σ τ_y and
// μ' = (τ0·μ0 + Σ τ_y·r)/τ', where r is each value minus every other term
// of its location. Noise stds are read from the graph, so a latent scale
// or a resampled shift is picked up on every call.
func (s *Step) updateMean(rng *rand.Rand) error {
	p := s.node.Prior
	tau := 1 / (p.Sigma * p.Sigma)
	weighted := tau * p.Mu
	for _, o := range s.children {
		sd := o.Std()
		if !(sd > 0) || math.IsInf(sd, 0) {
			return fmt.Errorf("%w: observation %s has noise std %v", model.ErrDegenerateModel, o.Name, sd)
		}
		ty := 1 / (sd * sd)
		rest := o.Mean() - s.node.Value
		for _, x := range o.Values {
			tau += ty
			weighted += ty * (x - rest)
		}
	}
	mu := weighted / tau
	if math.IsNaN(mu) || math.IsInf(mu, 0) {
		return fmt.Errorf("%w: conditional mean %v", model.ErrNumericInstability, mu)
	}
	s.node.Value = distuv.Normal{Mu: mu, Sigma: 1 / math.Sqrt(tau), Src: rng}.Rand()
	return nil
}
