package model

import "math"

// Node is a scalar latent parameter. Its Value is owned by the graph for the
// duration of a sampling run and mutated only by the chain driving it.
type Node struct {
	Name  string
	Prior Prior
	Value float64
}

// Observation is one group of observed values. Each value is Normal around
// Offset plus the sum of the Loc parents, with noise std taken from the Scale
// parent when set and from the fixed Sigma otherwise.
type Observation struct {
	Name   string
	Values []float64
	Loc    []*Node
	Offset float64
	Scale  *Node
	Sigma  float64
}

// Mean returns the current location of the observation's values.
func (o *Observation) Mean() float64 {
	m := o.Offset
	for _, n := range o.Loc {
		m += n.Value
	}
	return m
}

// Std returns the current noise standard deviation.
func (o *Observation) Std() float64 {
	if o.Scale != nil {
		return o.Scale.Value
	}
	return o.Sigma
}

// HasLoc reports whether n is one of the location parents.
func (o *Observation) HasLoc(n *Node) bool {
	for _, p := range o.Loc {
		if p == n {
			return true
		}
	}
	return false
}

// LogLik returns the Normal log likelihood of the values up to a constant.
func (o *Observation) LogLik() float64 {
	sd := o.Std()
	if !(sd > 0) {
		return math.Inf(-1)
	}
	mu := o.Mean()
	var ss float64
	for _, x := range o.Values {
		d := x - mu
		ss += d * d
	}
	return -0.5*ss/(sd*sd) - float64(len(o.Values))*math.Log(sd)
}

// Graph is the minimal host engine: latent nodes in sweep order and the
// observations that depend on them.
type Graph struct {
	Latent   []*Node
	Observed []*Observation
}

// AddLatent declares a latent node with a prior and its initial value.
func (g *Graph) AddLatent(name string, prior Prior) *Node {
	n := &Node{Name: name, Prior: prior, Value: prior.Initial()}
	g.Latent = append(g.Latent, n)
	return n
}

// AddObserved declares an observed group.
func (g *Graph) AddObserved(o *Observation) *Observation {
	g.Observed = append(g.Observed, o)
	return o
}

// Children returns the observations that depend on n as location or scale.
func (g *Graph) Children(n *Node) []*Observation {
	var out []*Observation
	for _, o := range g.Observed {
		if o.Scale == n || o.HasLoc(n) {
			out = append(out, o)
		}
	}
	return out
}

// LogProb returns the joint log density of the current node values, -Inf
// when any node lies outside its prior support.
func (g *Graph) LogProb() float64 {
	var lp float64
	for _, n := range g.Latent {
		lp += n.Prior.LogDensity(n.Value)
		if math.IsInf(lp, -1) {
			return lp
		}
	}
	for _, o := range g.Observed {
		lp += o.LogLik()
	}
	return lp
}

// Values snapshots the latent node values in sweep order.
func (g *Graph) Values() []float64 {
	v := make([]float64, len(g.Latent))
	for i, n := range g.Latent {
		v[i] = n.Value
	}
	return v
}

// SetValues restores latent values captured by Values.
func (g *Graph) SetValues(v []float64) {
	for i, n := range g.Latent {
		n.Value = v[i]
	}
}
