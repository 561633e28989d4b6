// Package verify runs bundles of seeded scenarios: each scenario builds a
// model, computes its ground truth, samples it and checks the sample against
// the truth. Scenarios run concurrently; one chain never does.
package verify

import (
	"fmt"
	"time"

	"conjugate/internal/check"
	"conjugate/internal/model"
	"conjugate/internal/posterior"
	"conjugate/internal/sampler"
)

// PriorSpec is the YAML form of a model.Prior.
type PriorSpec struct {
	Kind  string  `yaml:"kind" json:"kind"`
	Mu    float64 `yaml:"mu,omitempty" json:"mu,omitempty"`
	Sigma float64 `yaml:"sigma,omitempty" json:"sigma,omitempty"`
	Lower float64 `yaml:"lower,omitempty" json:"lower,omitempty"`
	Upper float64 `yaml:"upper,omitempty" json:"upper,omitempty"`
	Scale float64 `yaml:"scale,omitempty" json:"scale,omitempty"`
}

// Prior converts the YAML form into a validated prior.
func (p PriorSpec) Prior() (model.Prior, error) {
	kind, err := model.ParsePriorKind(p.Kind)
	if err != nil {
		return model.Prior{}, err
	}
	prior := model.Prior{Kind: kind, Mu: p.Mu, Sigma: p.Sigma, Lower: p.Lower, Upper: p.Upper, Scale: p.Scale}
	return prior, prior.Validate()
}

// Scenario is one seeded model configuration.
type Scenario struct {
	Name          string    `yaml:"name" json:"name"`
	Description   string    `yaml:"description,omitempty" json:"description,omitempty"`
	Prior         PriorSpec `yaml:"prior" json:"prior"`
	TrueValue     float64   `yaml:"true_value" json:"true_value"`
	Groups        int       `yaml:"groups" json:"groups"`
	AvgGroupSize  float64   `yaml:"avg_group_size,omitempty" json:"avg_group_size,omitempty"`
	SizeSpread    float64   `yaml:"size_spread,omitempty" json:"size_spread,omitempty"`
	Shift         string    `yaml:"shift,omitempty" json:"shift,omitempty"`
	ShiftScale    float64   `yaml:"shift_scale,omitempty" json:"shift_scale,omitempty"`
	NoiseScale    float64   `yaml:"noise_scale,omitempty" json:"noise_scale,omitempty"`
	Location      float64   `yaml:"location,omitempty" json:"location,omitempty"`
	Seed          int64     `yaml:"seed" json:"seed"`
	Truth         string    `yaml:"truth,omitempty" json:"truth,omitempty"`
	Informational bool      `yaml:"informational,omitempty" json:"informational,omitempty"`
}

// Config converts the scenario into a model configuration.
func (s Scenario) Config() (model.Config, error) {
	prior, err := s.Prior.Prior()
	if err != nil {
		return model.Config{}, err
	}
	shift, err := model.ParseShiftMode(s.Shift)
	if err != nil {
		return model.Config{}, err
	}
	return model.Config{
		Target:       prior,
		TrueValue:    s.TrueValue,
		Groups:       s.Groups,
		AvgGroupSize: s.AvgGroupSize,
		SizeSpread:   s.SizeSpread,
		Shift:        shift,
		ShiftScale:   s.ShiftScale,
		NoiseScale:   s.NoiseScale,
		Location:     s.Location,
		Seed:         s.Seed,
	}, nil
}

// GroundTruth builds the scenario's data and solves its posterior without
// sampling. An empty mode uses the scenario's own choice. The returned size
// is zero when the model could not be built.
func (s Scenario) GroundTruth(mode posterior.Mode) (posterior.Truth, int, error) {
	if mode == "" {
		var err error
		if mode, err = posterior.ParseMode(s.Truth); err != nil {
			return posterior.Truth{}, 0, err
		}
	}
	cfg, err := s.Config()
	if err != nil {
		return posterior.Truth{}, 0, err
	}
	in, err := model.Build(cfg)
	if err != nil {
		return posterior.Truth{}, 0, err
	}
	truth, err := posterior.ForInstance(in, mode)
	return truth, in.TotalN(), err
}

// Bundle is a named batch of scenarios.
type Bundle struct {
	Name        string         `yaml:"name" json:"name"`
	Description string         `yaml:"description" json:"description"`
	BurnIn      map[string]int `yaml:"burn_in,omitempty" json:"burn_in,omitempty"` // per-method burn-in override
	Scenarios   []Scenario     `yaml:"scenarios" json:"scenarios"`
}

// Validate checks that the bundle is runnable: named, non-empty, with unique
// scenario names that each describe a model.
func (b *Bundle) Validate() error {
	if b.Name == "" {
		return fmt.Errorf("%w: bundle has no name", model.ErrInvalidConfig)
	}
	if len(b.Scenarios) == 0 {
		return fmt.Errorf("%w: bundle %s has no scenarios", model.ErrInvalidConfig, b.Name)
	}
	for method := range b.BurnIn {
		if _, err := sampler.ParseMethod(method); err != nil {
			return fmt.Errorf("bundle %s burn_in: %w", b.Name, err)
		}
	}
	seen := make(map[string]bool, len(b.Scenarios))
	for _, s := range b.Scenarios {
		if s.Name == "" || seen[s.Name] {
			return fmt.Errorf("%w: bundle %s: missing or duplicate scenario name %q", model.ErrInvalidConfig, b.Name, s.Name)
		}
		seen[s.Name] = true
		if _, err := s.Config(); err != nil {
			return fmt.Errorf("bundle %s scenario %s: %w", b.Name, s.Name, err)
		}
		if _, err := posterior.ParseMode(s.Truth); err != nil {
			return fmt.Errorf("bundle %s scenario %s: %w", b.Name, s.Name, err)
		}
	}
	return nil
}

// RunConfig controls a bundle run.
type RunConfig struct {
	Bundle        *Bundle
	Method        sampler.Method
	Parallel      int             // scenarios in flight; 1 = serial
	Iterations    int             // 0 = method default
	BurnIn        int             // < 0 = bundle or method default
	ProposalScale float64         // Metropolis step multiplier; 0 = 1
	Truth         posterior.Mode  // "" = per-scenario choice
	Tolerance     check.Tolerance // relative mean/std tolerances
}

// DefaultRunConfig returns a serial Gibbs run with default tolerances.
func DefaultRunConfig(b *Bundle) RunConfig {
	return RunConfig{
		Bundle:    b,
		Method:    sampler.Gibbs,
		Parallel:  1,
		BurnIn:    -1,
		Tolerance: check.DefaultTolerance(),
	}
}

// samplerConfig resolves the draw budget of one scenario.
func (c RunConfig) samplerConfig(seed int64) sampler.Config {
	sc := sampler.DefaultConfig(c.Method)
	if c.Iterations > 0 {
		sc.Iterations = c.Iterations
	}
	if b, ok := c.Bundle.BurnIn[string(c.Method)]; ok {
		sc.BurnIn = b
	}
	if c.BurnIn >= 0 {
		sc.BurnIn = c.BurnIn
	}
	sc.ProposalScale = c.ProposalScale
	sc.Seed = seed
	return sc
}

// Outcome classifies a scenario result.
type Outcome string

const (
	Pass          Outcome = "pass"
	Mismatch      Outcome = "mismatch"
	Informational Outcome = "informational"
	Failed        Outcome = "error"
)

// ScenarioResult is the verification record of one scenario.
type ScenarioResult struct {
	Scenario      Scenario             `json:"scenario"`
	Method        sampler.Method       `json:"method"`
	Step          string               `json:"step,omitempty"`
	N             int                  `json:"n"`
	Iterations    int                  `json:"iterations"`
	BurnIn        int                  `json:"burn_in"`
	Truth         *posterior.Truth     `json:"truth,omitempty"`
	Sampled       *model.Summary       `json:"sampled,omitempty"`
	Check         *check.Result        `json:"check,omitempty"`
	Diagnostics   *sampler.Diagnostics `json:"diagnostics,omitempty"`
	Informational bool                 `json:"informational"`
	Outcome       Outcome              `json:"outcome"`
	Warnings      []string             `json:"warnings,omitempty"`
	Error         string               `json:"error,omitempty"`
	Duration      time.Duration        `json:"duration_ns"`

	Err error `json:"-"`
}

// Issue is a mismatch or failure collected after the batch.
type Issue struct {
	Scenario string `json:"scenario"`
	Seed     int64  `json:"seed"`
	Message  string `json:"message"`
}

// Report is the outcome of one bundle run.
type Report struct {
	RunID      string           `json:"run_id"`
	Bundle     string           `json:"bundle"`
	Method     sampler.Method   `json:"method"`
	Tolerance  check.Tolerance  `json:"tolerance"`
	Started    time.Time        `json:"started"`
	Duration   time.Duration    `json:"duration_ns"`
	Results    []ScenarioResult `json:"results"`
	Mismatches []Issue          `json:"mismatches,omitempty"`
	Failures   []Issue          `json:"failures,omitempty"`
}

// Counts returns the number of results per outcome.
func (r *Report) Counts() map[Outcome]int {
	out := make(map[Outcome]int, 4)
	for _, res := range r.Results {
		out[res.Outcome]++
	}
	return out
}

// Passed reports whether every validated scenario passed and none failed.
func (r *Report) Passed() bool {
	return len(r.Mismatches) == 0 && len(r.Failures) == 0
}
