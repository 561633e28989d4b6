// Package sampler drives Markov chains over a model graph, either with the
// per-node Gibbs updates or with a generic random-walk Metropolis sampler,
// and summarises the target's trace.
package sampler

import (
	"fmt"

	"golang.org/x/exp/rand"

	"conjugate/internal/model"
)

// Updater is a per-node update rule. It reads the current graph state and
// writes only its own node.
type Updater interface {
	Update(rng *rand.Rand) error
}

// Chain sweeps registered update rules over a graph in node order. One chain
// is strictly sequential; it is not safe for concurrent use.
type Chain struct {
	graph *model.Graph
	rng   *rand.Rand
	rules map[*model.Node]Updater
}

// NewChain returns a chain over g drawing from rng.
func NewChain(g *model.Graph, rng *rand.Rand) *Chain {
	return &Chain{graph: g, rng: rng, rules: make(map[*model.Node]Updater)}
}

// Use registers u as the update rule of n, replacing any earlier rule.
func (c *Chain) Use(n *model.Node, u Updater) {
	c.rules[n] = u
}

// Sweep invokes every registered rule once, in the graph's latent order.
// Nodes without a rule keep their value.
func (c *Chain) Sweep() error {
	for _, n := range c.graph.Latent {
		u, ok := c.rules[n]
		if !ok {
			continue
		}
		if err := u.Update(c.rng); err != nil {
			return fmt.Errorf("sweep: %w", err)
		}
	}
	return nil
}
