// Package gibbs implements the conjugate update rules a chain registers per
// latent node. The rule is picked once from the node's prior tag; each update
// reads the current graph state and writes only its own node.
package gibbs

import (
	"fmt"

	"golang.org/x/exp/rand"

	"conjugate/internal/model"
)

// Kind is the closed set of update rules.
type Kind int

const (
	// NormalMean draws a location node from its Normal conditional.
	NormalMean Kind = iota + 1
	// UniformStd draws a std with a bounded-uniform prior by inverse CDF.
	UniformStd
	// HalfCauchyStd draws a std with a half-Cauchy prior through an
	// auxiliary inverse-gamma variable.
	HalfCauchyStd
)

var kindNames = map[Kind]string{
	NormalMean:    "normal-mean",
	UniformStd:    "uniform-std",
	HalfCauchyStd: "half-cauchy-std",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Reliable reports whether scenarios driven by this rule are validated.
// The half-Cauchy rule is exercised but its results are informational.
func (k Kind) Reliable() bool {
	return k != HalfCauchyStd
}

// KindFor returns the update rule for a prior.
func KindFor(p model.Prior) (Kind, error) {
	switch p.Kind {
	case model.Normal:
		return NormalMean, nil
	case model.BoundedUniform:
		return UniformStd, nil
	case model.HalfCauchy:
		return HalfCauchyStd, nil
	}
	return 0, fmt.Errorf("%w: no gibbs update for prior %v", model.ErrInvalidConfig, p.Kind)
}

// Step is one node's update rule bound to the observations it conditions on.
type Step struct {
	kind     Kind
	node     *model.Node
	children []*model.Observation

	aux        float64 // half-cauchy auxiliary variable
	updates    int
	degenerate int
}

// New binds the update rule for n. Location rules condition on the
// observations that use n as a location parent; scale rules on those that
// use it as their noise std.
func New(g *model.Graph, n *model.Node) (*Step, error) {
	kind, err := KindFor(n.Prior)
	if err != nil {
		return nil, fmt.Errorf("node %s: %w", n.Name, err)
	}
	s := &Step{kind: kind, node: n, aux: 1}
	for _, o := range g.Children(n) {
		if (kind == NormalMean && o.HasLoc(n)) || (kind != NormalMean && o.Scale == n) {
			s.children = append(s.children, o)
		}
	}
	if len(s.children) == 0 {
		return nil, fmt.Errorf("%w: node %s has no observations to condition on", model.ErrInvalidConfig, n.Name)
	}
	return s, nil
}

// Kind returns the bound update rule.
func (s *Step) Kind() Kind { return s.kind }

// Node returns the node this step writes.
func (s *Step) Node() *model.Node { return s.node }

// Updates returns the number of completed updates.
func (s *Step) Updates() int { return s.updates }

// Degenerate returns how many draws fell back to the grid sampler because the
// conditional had no usable inverse CDF.
func (s *Step) Degenerate() int { return s.degenerate }

// Update replaces the node's value with one draw from its conditional
// posterior. The value is left untouched when an error is returned.
func (s *Step) Update(rng *rand.Rand) error {
	var err error
	switch s.kind {
	case NormalMean:
		err = s.updateMean(rng)
	case UniformStd:
		err = s.updateUniformStd(rng)
	case HalfCauchyStd:
		err = s.updateHalfCauchyStd(rng)
	default:
		err = fmt.Errorf("%w: update kind %v", model.ErrInvalidConfig, s.kind)
	}
	if err != nil {
		return fmt.Errorf("%s update of %s: %w", s.kind, s.node.Name, err)
	}
	s.updates++
	return nil
}
