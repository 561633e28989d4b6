package model

import (
	"fmt"
	"math"

	"golang.org/x/exp/rand"
)

// ShiftMode controls the per-group offsets of the location model.
type ShiftMode int

const (
	// NoShift generates every group around the target.
	NoShift ShiftMode = iota
	// FixedShift draws b_i once and treats it as a known constant offset.
	FixedShift
	// LatentShift draws b_i for the data but makes it a Normal(0, σ_β) node
	// that the sampler updates alongside the target.
	LatentShift
)

var shiftModeNames = map[ShiftMode]string{
	NoShift:     "none",
	FixedShift:  "fixed",
	LatentShift: "latent",
}

func (m ShiftMode) String() string {
	if s, ok := shiftModeNames[m]; ok {
		return s
	}
	return fmt.Sprintf("ShiftMode(%d)", int(m))
}

// ParseShiftMode is the inverse of ShiftMode.String. The empty string means none.
func ParseShiftMode(s string) (ShiftMode, error) {
	if s == "" {
		return NoShift, nil
	}
	for m, name := range shiftModeNames {
		if name == s {
			return m, nil
		}
	}
	return 0, fmt.Errorf("%w: unknown shift mode %q", ErrInvalidConfig, s)
}

// Config describes one generative model instance.
type Config struct {
	Target       Prior     // prior of the latent target
	TrueValue    float64   // value the data is generated from
	Groups       int       // number of observed groups
	AvgGroupSize float64   // mean group size; 0 means one value per group
	SizeSpread   float64   // std of the group-size noise; 0 = fixed sizes
	Shift        ShiftMode // location model only
	ShiftScale   float64   // σ_β of the per-group shifts
	NoiseScale   float64   // σ_y, the known noise of the location model
	Location     float64   // fixed mean of the scale model
	Seed         int64
}

// Instance is a built model: its graph plus the generated data, exposed so
// the analytic posterior can be computed independently of the graph state.
type Instance struct {
	Config      Config
	Graph       *Graph
	Target      *Node
	Shifts      []*Node   // latent shift nodes, LatentShift only
	ShiftValues []float64 // generated b_i, nil without shifts
	Groups      []*Observation
}

// Sizes returns the number of values in every group.
func (in *Instance) Sizes() []int {
	out := make([]int, len(in.Groups))
	for i, g := range in.Groups {
		out[i] = len(g.Values)
	}
	return out
}

// TotalN returns the number of observed values across groups.
func (in *Instance) TotalN() int {
	var n int
	for _, g := range in.Groups {
		n += len(g.Values)
	}
	return n
}

// IsLocation reports whether the target is a location parameter.
func (in *Instance) IsLocation() bool {
	return in.Target.Prior.Kind == Normal
}

// Build dispatches on the target prior: a Normal prior builds the location
// model, a scale prior builds the scale model.
func Build(cfg Config) (*Instance, error) {
	if cfg.Target.Kind == Normal {
		return BuildLocation(cfg)
	}
	return BuildScale(cfg)
}

// BuildLocation builds y_ij ~ N(target + b_i, σ_y) with a Normal target prior.
func BuildLocation(cfg Config) (*Instance, error) {
	if err := validateCommon(cfg); err != nil {
		return nil, err
	}
	if cfg.Target.Kind != Normal {
		return nil, fmt.Errorf("%w: location target needs a normal prior, got %v", ErrInvalidConfig, cfg.Target.Kind)
	}
	if !(cfg.NoiseScale > 0) {
		return nil, fmt.Errorf("%w: noise scale must be positive, got %v", ErrInvalidConfig, cfg.NoiseScale)
	}
	if cfg.Shift != NoShift && !(cfg.ShiftScale > 0) {
		return nil, fmt.Errorf("%w: shift scale must be positive, got %v", ErrInvalidConfig, cfg.ShiftScale)
	}

	rng := rand.New(rand.NewSource(uint64(cfg.Seed)))
	g := &Graph{}
	in := &Instance{Config: cfg, Graph: g}
	in.Target = g.AddLatent("mu", cfg.Target)

	for i := 0; i < cfg.Groups; i++ {
		n := groupSize(rng, cfg)
		var b float64
		if cfg.Shift != NoShift {
			b = rng.NormFloat64() * cfg.ShiftScale
			in.ShiftValues = append(in.ShiftValues, b)
		}
		values := make([]float64, n)
		for j := range values {
			values[j] = rng.NormFloat64()*cfg.NoiseScale + cfg.TrueValue + b
		}

		obs := &Observation{
			Name:   fmt.Sprintf("y%d", i),
			Values: values,
			Loc:    []*Node{in.Target},
			Sigma:  cfg.NoiseScale,
		}
		switch cfg.Shift {
		case FixedShift:
			obs.Offset = b
		case LatentShift:
			shift := g.AddLatent(fmt.Sprintf("b%d", i), NormalPrior(0, cfg.ShiftScale))
			in.Shifts = append(in.Shifts, shift)
			obs.Loc = append(obs.Loc, shift)
		}
		in.Groups = append(in.Groups, g.AddObserved(obs))
	}
	return in, nil
}

// BuildScale builds x_ij ~ N(location, target) with a scale prior on the target.
func BuildScale(cfg Config) (*Instance, error) {
	if err := validateCommon(cfg); err != nil {
		return nil, err
	}
	if cfg.Target.Kind != BoundedUniform && cfg.Target.Kind != HalfCauchy {
		return nil, fmt.Errorf("%w: scale target needs a uniform or half-cauchy prior, got %v", ErrInvalidConfig, cfg.Target.Kind)
	}
	if !(cfg.TrueValue > 0) {
		return nil, fmt.Errorf("%w: true scale must be positive, got %v", ErrInvalidConfig, cfg.TrueValue)
	}

	rng := rand.New(rand.NewSource(uint64(cfg.Seed)))
	g := &Graph{}
	in := &Instance{Config: cfg, Graph: g}
	in.Target = g.AddLatent("sigma", cfg.Target)

	for i := 0; i < cfg.Groups; i++ {
		values := make([]float64, groupSize(rng, cfg))
		for j := range values {
			values[j] = rng.NormFloat64()*cfg.TrueValue + cfg.Location
		}
		in.Groups = append(in.Groups, g.AddObserved(&Observation{
			Name:   fmt.Sprintf("x%d", i),
			Values: values,
			Offset: cfg.Location,
			Scale:  in.Target,
		}))
	}
	return in, nil
}

func validateCommon(cfg Config) error {
	if cfg.Groups < 1 {
		return fmt.Errorf("%w: need at least one group, got %d", ErrInvalidConfig, cfg.Groups)
	}
	if cfg.AvgGroupSize < 0 || cfg.SizeSpread < 0 {
		return fmt.Errorf("%w: group size and spread must be non-negative", ErrInvalidConfig)
	}
	return cfg.Target.Validate()
}

// groupSize draws max(1, round(avg + spread·z)).
func groupSize(rng *rand.Rand, cfg Config) int {
	avg := cfg.AvgGroupSize
	if avg == 0 {
		avg = 1
	}
	if cfg.SizeSpread > 0 {
		avg += cfg.SizeSpread * rng.NormFloat64()
	}
	return int(math.Max(1, math.Round(avg)))
}
