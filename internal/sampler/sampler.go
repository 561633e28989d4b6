package sampler

import (
	"fmt"

	"golang.org/x/exp/rand"

	"conjugate/internal/gibbs"
	"conjugate/internal/logging"
	"conjugate/internal/model"
)

// Method selects the sampler driving a chain.
type Method string

const (
	Gibbs      Method = "gibbs"
	Metropolis Method = "metropolis"
)

// ParseMethod maps a CLI name to a Method.
func ParseMethod(s string) (Method, error) {
	switch Method(s) {
	case Gibbs, Metropolis:
		return Method(s), nil
	}
	return "", fmt.Errorf("%w: unknown method %q (want gibbs or metropolis)", model.ErrInvalidConfig, s)
}

// Config controls one sampling run. Iterations counts every draw including
// the BurnIn draws discarded from the front.
type Config struct {
	Method        Method
	Iterations    int
	BurnIn        int
	ProposalScale float64 // multiplier on the Metropolis step sizes; 0 means 1
	Seed          int64
}

// DefaultConfig returns the draw budget each method is validated with:
// 10,000 Gibbs draws without burn-in, 20,000 Metropolis draws of which the
// first 5,000 are discarded.
func DefaultConfig(m Method) Config {
	if m == Metropolis {
		return Config{Method: Metropolis, Iterations: 20000, BurnIn: 5000}
	}
	return Config{Method: Gibbs, Iterations: 10000}
}

func (c Config) validate() error {
	if c.Iterations <= 0 {
		return fmt.Errorf("%w: iterations must be positive, got %d", model.ErrInvalidConfig, c.Iterations)
	}
	if c.BurnIn < 0 || c.BurnIn >= c.Iterations {
		return fmt.Errorf("%w: burn-in must be in [0, %d), got %d", model.ErrInvalidConfig, c.Iterations, c.BurnIn)
	}
	if c.ProposalScale < 0 {
		return fmt.Errorf("%w: proposal scale must be non-negative, got %v", model.ErrInvalidConfig, c.ProposalScale)
	}
	return nil
}

// samplingSalt separates the sampling stream from the data stream that the
// model builders seed with the same integer.
const samplingSalt = 0x9e3779b97f4a7c15

// NewRand returns the sampling stream derived from a scenario seed.
func NewRand(seed int64) *rand.Rand {
	return rand.New(rand.NewSource(uint64(seed) ^ samplingSalt))
}

// Result is the in-memory outcome of a run: the target's kept draws, their
// summary and convergence diagnostics.
type Result struct {
	Method      Method        `json:"method"`
	Kind        gibbs.Kind    `json:"-"`
	Summary     model.Summary `json:"summary"`
	Draws       []float64     `json:"-"`
	Diagnostics Diagnostics   `json:"diagnostics"`
}

// Run samples the instance's target with the configured method. The graph's
// latent values are left at the last draw.
func Run(in *model.Instance, cfg Config) (*Result, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	var (
		res *Result
		err error
	)
	switch cfg.Method {
	case Gibbs:
		res, err = runGibbs(in, cfg)
	case Metropolis:
		res, err = runMetropolis(in, cfg)
	default:
		_, err = ParseMethod(string(cfg.Method))
	}
	if err != nil {
		return nil, err
	}
	res.Method = cfg.Method
	res.Summary = Summarize(res.Draws)
	diag := Diagnose(res.Draws)
	diag.AcceptanceRate = res.Diagnostics.AcceptanceRate
	diag.Degenerate = res.Diagnostics.Degenerate
	res.Diagnostics = diag

	logging.New("sampler").Debug("chain finished",
		"method", cfg.Method, "target", in.Target.Name, "draws", len(res.Draws),
		"mean", res.Summary.Mean, "ess", diag.ESS, "acceptance", diag.AcceptanceRate)
	return res, nil
}

// runGibbs registers the prior-tagged update for every latent node, so
// latent shifts are swept jointly with the target, and records the target
// after each sweep.
func runGibbs(in *model.Instance, cfg Config) (*Result, error) {
	chain := NewChain(in.Graph, NewRand(cfg.Seed))
	var steps []*gibbs.Step
	for _, n := range in.Graph.Latent {
		s, err := gibbs.New(in.Graph, n)
		if err != nil {
			return nil, err
		}
		chain.Use(n, s)
		steps = append(steps, s)
	}

	draws := make([]float64, 0, cfg.Iterations-cfg.BurnIn)
	for i := 0; i < cfg.Iterations; i++ {
		if err := chain.Sweep(); err != nil {
			return nil, fmt.Errorf("iteration %d: %w", i, err)
		}
		if i >= cfg.BurnIn {
			draws = append(draws, in.Target.Value)
		}
	}

	res := &Result{Kind: steps[0].Kind(), Draws: draws}
	for _, s := range steps {
		if s.Node() == in.Target {
			res.Kind = s.Kind()
		}
		res.Diagnostics.Degenerate += s.Degenerate()
	}
	res.Diagnostics.AcceptanceRate = 1
	return res, nil
}
