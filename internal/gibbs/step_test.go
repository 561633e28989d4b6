package gibbs_test

import (
	"errors"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat"

	"conjugate/internal/gibbs"
	"conjugate/internal/model"
	"conjugate/internal/posterior"
)

func newRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewSource(seed))
}

// drawMany updates the step repeatedly and returns the trace of its node.
func drawMany(t *testing.T, s *gibbs.Step, rng *rand.Rand, n int) []float64 {
	t.Helper()
	out := make([]float64, n)
	for i := range out {
		if err := s.Update(rng); err != nil {
			t.Fatalf("update %d: %v", i, err)
		}
		out[i] = s.Node().Value
	}
	return out
}

func TestKindFor(t *testing.T) {
	tests := []struct {
		prior    model.Prior
		want     gibbs.Kind
		name     string
		reliable bool
	}{
		{model.NormalPrior(0, 1), gibbs.NormalMean, "normal-mean", true},
		{model.UniformPrior(0, 10), gibbs.UniformStd, "uniform-std", true},
		{model.HalfCauchyPrior(2), gibbs.HalfCauchyStd, "half-cauchy-std", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := gibbs.KindFor(tt.prior)
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.want || got.String() != tt.name || got.Reliable() != tt.reliable {
				t.Errorf("KindFor = %v (reliable %v), want %v (reliable %v)", got, got.Reliable(), tt.want, tt.reliable)
			}
		})
	}
	if _, err := gibbs.KindFor(model.Prior{}); !errors.Is(err, model.ErrInvalidConfig) {
		t.Errorf("zero prior: err = %v", err)
	}
}

func TestNew_RequiresObservations(t *testing.T) {
	g := &model.Graph{}
	n := g.AddLatent("mu", model.NormalPrior(0, 1))
	if _, err := gibbs.New(g, n); !errors.Is(err, model.ErrInvalidConfig) {
		t.Errorf("orphan node: err = %v", err)
	}

	// A std node is not conditioned on observations that only use it as a location.
	s := g.AddLatent("sigma", model.UniformPrior(0, 10))
	g.AddObserved(&model.Observation{Name: "y", Values: []float64{1}, Loc: []*model.Node{n}, Sigma: 1})
	if _, err := gibbs.New(g, s); !errors.Is(err, model.ErrInvalidConfig) {
		t.Errorf("unused scale node: err = %v", err)
	}
	if _, err := gibbs.New(g, n); err != nil {
		t.Errorf("location node: %v", err)
	}
}

func TestNormalMean_DrawsExactConditional(t *testing.T) {
	in, err := model.BuildLocation(model.Config{
		Target:       model.NormalPrior(0, 100),
		TrueValue:    -3,
		Groups:       1,
		AvgGroupSize: 100,
		SizeSpread:   10,
		Shift:        model.FixedShift,
		ShiftScale:   2,
		NoiseScale:   1.5,
		Seed:         1,
	})
	if err != nil {
		t.Fatal(err)
	}
	truth, err := posterior.NormalMean(in)
	if err != nil {
		t.Fatal(err)
	}
	step, err := gibbs.New(in.Graph, in.Target)
	if err != nil {
		t.Fatal(err)
	}
	if step.Kind() != gibbs.NormalMean {
		t.Fatalf("kind = %v", step.Kind())
	}

	const draws = 20000
	trace := drawMany(t, step, newRand(7), draws)
	mean, sd := stat.MeanStdDev(trace, nil)
	if se := truth.Std / math.Sqrt(draws); math.Abs(mean-truth.Mean) > 5*se {
		t.Errorf("mean = %v, want %v ± %v", mean, truth.Mean, 5*se)
	}
	if d := math.Abs(sd/truth.Std - 1); d > 0.05 {
		t.Errorf("std = %v, want %v", sd, truth.Std)
	}
	if step.Updates() != draws || step.Degenerate() != 0 {
		t.Errorf("updates/degenerate = %d/%d", step.Updates(), step.Degenerate())
	}
}

func TestNormalMean_ReadsCurrentShift(t *testing.T) {
	in, err := model.BuildLocation(model.Config{
		Target:       model.NormalPrior(0, 10),
		TrueValue:    2,
		Groups:       2,
		AvgGroupSize: 20,
		Shift:        model.LatentShift,
		ShiftScale:   0.5,
		NoiseScale:   1,
		Seed:         3,
	})
	if err != nil {
		t.Fatal(err)
	}
	shift := in.Shifts[0]
	step, err := gibbs.New(in.Graph, shift)
	if err != nil {
		t.Fatal(err)
	}

	// With the target held at mu, b_0 | rest is Normal with precision
	// 1/σβ² + n/σy² around Σ(y − mu)/σy² / precision.
	in.Target.Value = 1.5
	y := in.Groups[0].Values
	prec := 1/(0.5*0.5) + float64(len(y))
	var sum float64
	for _, v := range y {
		sum += v - in.Target.Value
	}
	wantMean, wantSD := sum/prec, 1/math.Sqrt(prec)

	const draws = 20000
	trace := drawMany(t, step, newRand(11), draws)
	mean, sd := stat.MeanStdDev(trace, nil)
	if math.Abs(mean-wantMean) > 5*wantSD/math.Sqrt(draws) {
		t.Errorf("mean = %v, want %v", mean, wantMean)
	}
	if math.Abs(sd/wantSD-1) > 0.05 {
		t.Errorf("std = %v, want %v", sd, wantSD)
	}
	if in.Target.Value != 1.5 || in.Shifts[1].Value != 0 {
		t.Errorf("update wrote outside its node: target %v, b1 %v", in.Target.Value, in.Shifts[1].Value)
	}
}

func buildScale(t *testing.T, prior model.Prior, sigma0, mu0 float64, n int, seed int64) *model.Instance {
	t.Helper()
	in, err := model.BuildScale(model.Config{
		Target:    prior,
		TrueValue: sigma0,
		Groups:    n,
		Location:  mu0,
		Seed:      seed,
	})
	if err != nil {
		t.Fatal(err)
	}
	return in
}

func TestUniformStd_DrawsExactConditional(t *testing.T) {
	in := buildScale(t, model.UniformPrior(1e-10, 1e10), 0.5, 0, 8, 1)
	truth, err := posterior.UniformStd(in)
	if err != nil {
		t.Fatal(err)
	}
	step, err := gibbs.New(in.Graph, in.Target)
	if err != nil {
		t.Fatal(err)
	}

	const draws = 20000
	trace := drawMany(t, step, newRand(5), draws)
	mean, sd := stat.MeanStdDev(trace, nil)
	if se := truth.Std / math.Sqrt(draws); math.Abs(mean-truth.Mean) > 5*se {
		t.Errorf("mean = %v, want %v ± %v", mean, truth.Mean, 5*se)
	}
	if math.Abs(sd/truth.Std-1) > 0.1 {
		t.Errorf("std = %v, want %v", sd, truth.Std)
	}
	if step.Degenerate() != 0 {
		t.Errorf("degenerate draws = %d", step.Degenerate())
	}
}

func TestUniformStd_StaysInsideBounds(t *testing.T) {
	tests := []struct {
		name      string
		lo, hi    float64
		sigma0    float64
		n         int
		wantGrid  bool
		wantNearL bool
	}{
		{name: "narrow bounds around the mass", lo: 0.4, hi: 0.6, sigma0: 0.5, n: 8},
		{name: "bounds far above the mass", lo: 100, hi: 200, sigma0: 1, n: 50, wantGrid: true, wantNearL: true},
		{name: "single value", lo: 1e-10, hi: 1e10, sigma0: 1.5, n: 1, wantGrid: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := buildScale(t, model.UniformPrior(tt.lo, tt.hi), tt.sigma0, 0, tt.n, 2)
			step, err := gibbs.New(in.Graph, in.Target)
			if err != nil {
				t.Fatal(err)
			}
			trace := drawMany(t, step, newRand(9), 2000)
			for i, v := range trace {
				if math.IsNaN(v) || v < tt.lo || v > tt.hi {
					t.Fatalf("draw %d = %v outside [%v, %v]", i, v, tt.lo, tt.hi)
				}
			}
			if got := step.Degenerate() > 0; got != tt.wantGrid {
				t.Errorf("degenerate draws = %d, want fallback %v", step.Degenerate(), tt.wantGrid)
			}
			if tt.wantNearL {
				if m := stat.Mean(trace, nil); m > tt.lo*1.1 {
					t.Errorf("mean %v not pressed against the lower bound %v", m, tt.lo)
				}
			}
		})
	}
}

func TestUniformStd_ZeroDeviationsAreDegenerate(t *testing.T) {
	g := &model.Graph{}
	s := g.AddLatent("sigma", model.UniformPrior(0, 10))
	g.AddObserved(&model.Observation{Name: "x", Values: []float64{2, 2, 2}, Offset: 2, Scale: s})
	step, err := gibbs.New(g, s)
	if err != nil {
		t.Fatal(err)
	}
	before := s.Value
	if err := step.Update(newRand(1)); !errors.Is(err, model.ErrDegenerateModel) {
		t.Fatalf("err = %v, want ErrDegenerateModel", err)
	}
	if s.Value != before || step.Updates() != 0 {
		t.Errorf("failed update changed state: value %v, updates %d", s.Value, step.Updates())
	}
}

func TestHalfCauchyStd_TracksNumericPosterior(t *testing.T) {
	in := buildScale(t, model.HalfCauchyPrior(5), 4.5, 0, 8, 1)
	truth, err := posterior.ForInstance(in, posterior.Auto)
	if err != nil {
		t.Fatal(err)
	}
	step, err := gibbs.New(in.Graph, in.Target)
	if err != nil {
		t.Fatal(err)
	}
	if step.Kind().Reliable() {
		t.Fatal("half-cauchy step must not be marked reliable")
	}

	trace := drawMany(t, step, newRand(13), 30000)
	for _, v := range trace {
		if !(v > 0) || math.IsInf(v, 0) {
			t.Fatalf("non-positive or infinite draw %v", v)
		}
	}
	mean := stat.Mean(trace[1000:], nil)
	if d := math.Abs(mean/truth.Summary.Mean - 1); d > 0.1 {
		t.Errorf("chain mean = %v, numeric posterior mean %v", mean, truth.Summary.Mean)
	}
}

func TestUpdate_Deterministic(t *testing.T) {
	run := func() []float64 {
		in := buildScale(t, model.UniformPrior(1e-10, 1e10), 2.5, 2, 12, 3)
		step, err := gibbs.New(in.Graph, in.Target)
		if err != nil {
			t.Fatal(err)
		}
		return drawMany(t, step, newRand(42), 200)
	}
	if diff := cmp.Diff(run(), run()); diff != "" {
		t.Errorf("same seed gave different traces (-first +second):\n%s", diff)
	}
}
