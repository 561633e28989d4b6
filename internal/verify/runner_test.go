package verify_test

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"conjugate/internal/check"
	"conjugate/internal/format"
	"conjugate/internal/model"
	"conjugate/internal/posterior"
	"conjugate/internal/sampler"
	"conjugate/internal/verify"
	"conjugate/internal/verify/scenarios"
)

func mustLoadBundle(t *testing.T, name string) *verify.Bundle {
	t.Helper()
	b, err := scenarios.LoadBundle(name)
	if err != nil {
		t.Fatal(err)
	}
	return b
}

func runBundle(t *testing.T, cfg verify.RunConfig) *verify.Report {
	t.Helper()
	report, err := verify.Run(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	return report
}

func TestRun_EmbeddedBundlesPass(t *testing.T) {
	if testing.Short() {
		t.Skip("full-length chains")
	}
	bundles := []string{"normal-mean", "normal-mean-latent", "uniform-std", "half-cauchy-std"}
	for _, name := range bundles {
		for _, method := range []sampler.Method{sampler.Gibbs, sampler.Metropolis} {
			t.Run(name+"/"+string(method), func(t *testing.T) {
				cfg := verify.DefaultRunConfig(mustLoadBundle(t, name))
				cfg.Method = method
				cfg.Parallel = 4
				report := runBundle(t, cfg)

				for _, res := range report.Results {
					if res.Err != nil && res.Outcome != verify.Informational {
						t.Errorf("%s: %v", res.Scenario.Name, res.Err)
					}
				}
				if !report.Passed() {
					t.Errorf("bundle did not pass:\n%s", verify.FormatReport(report, format.ASCII))
				}

				wantInformational := name == "half-cauchy-std" && method == sampler.Gibbs
				for _, res := range report.Results {
					if res.Informational != wantInformational {
						t.Errorf("%s informational = %v, want %v", res.Scenario.Name, res.Informational, wantInformational)
					}
				}
			})
		}
	}
}

func TestRun_BoundaryStaysDefined(t *testing.T) {
	for _, method := range []sampler.Method{sampler.Gibbs, sampler.Metropolis} {
		t.Run(string(method), func(t *testing.T) {
			cfg := verify.DefaultRunConfig(mustLoadBundle(t, "uniform-std-boundary"))
			cfg.Method = method
			report := runBundle(t, cfg)

			res := report.Results[0]
			if res.Outcome != verify.Informational || res.Err != nil {
				t.Fatalf("outcome = %s, err = %v", res.Outcome, res.Err)
			}
			if res.Truth.Method != posterior.Numeric || res.N != 1 {
				t.Errorf("truth method %s over n=%d", res.Truth.Method, res.N)
			}
			if !(res.Sampled.Mean > 0) || !res.Sampled.HasStd() {
				t.Errorf("sampled summary = %+v", *res.Sampled)
			}
			if method == sampler.Gibbs && res.Diagnostics.Degenerate != res.Iterations {
				t.Errorf("degenerate draws = %d, want every draw", res.Diagnostics.Degenerate)
			}
			if !report.Passed() {
				t.Error("informational scenarios must not fail the report")
			}
			if _, err := json.Marshal(report); err != nil {
				t.Errorf("report does not encode: %v", err)
			}
		})
	}
}

func TestRun_ParallelMatchesSerial(t *testing.T) {
	run := func(parallel int) *verify.Report {
		cfg := verify.DefaultRunConfig(mustLoadBundle(t, "normal-mean-latent"))
		cfg.Iterations = 800
		cfg.Parallel = parallel
		return runBundle(t, cfg)
	}
	serial, parallel := run(1), run(4)
	opts := cmp.Options{
		cmpopts.IgnoreFields(verify.ScenarioResult{}, "Duration", "Err"),
		cmpopts.EquateNaNs(),
	}
	if diff := cmp.Diff(serial.Results, parallel.Results, opts); diff != "" {
		t.Errorf("parallel results differ from serial (-serial +parallel):\n%s", diff)
	}
	if serial.RunID == parallel.RunID {
		t.Error("run IDs should be unique per run")
	}
}

func TestRun_BurnInResolution(t *testing.T) {
	b := mustLoadBundle(t, "normal-mean-latent")
	tests := []struct {
		name   string
		method sampler.Method
		burnIn int
		want   int
	}{
		{"bundle override", sampler.Gibbs, -1, 500},
		{"flag wins", sampler.Gibbs, 0, 0},
		{"method default", sampler.Metropolis, -1, 5000},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := verify.DefaultRunConfig(&verify.Bundle{Name: b.Name, BurnIn: b.BurnIn, Scenarios: b.Scenarios[:1]})
			cfg.Method = tt.method
			cfg.BurnIn = tt.burnIn
			cfg.Iterations = 6000
			report := runBundle(t, cfg)
			if got := report.Results[0].BurnIn; got != tt.want {
				t.Errorf("burn-in = %d, want %d", got, tt.want)
			}
		})
	}
}

func scaleScenario(name string, groups int, seed int64) verify.Scenario {
	return verify.Scenario{
		Name:      name,
		Prior:     verify.PriorSpec{Kind: "uniform", Lower: 1e-10, Upper: 1e10},
		TrueValue: 1,
		Groups:    groups,
		Seed:      seed,
	}
}

func TestRun_FailuresAndMismatchesAreCollected(t *testing.T) {
	closedAtOne := scaleScenario("closed-form-at-n1", 1, 1)
	closedAtOne.Truth = "closed"
	informational := scaleScenario("informational", 9, 3)
	informational.Informational = true

	cfg := verify.DefaultRunConfig(&verify.Bundle{
		Name: "mixed",
		Scenarios: []verify.Scenario{
			scaleScenario("ok", 9, 1),
			closedAtOne,
			scaleScenario("strict", 9, 2),
			informational,
		},
	})
	cfg.Iterations = 2000
	cfg.Tolerance = check.Tolerance{Mean: 0.1, Std: 0.2}
	report := runBundle(t, cfg)

	byName := map[string]verify.ScenarioResult{}
	for _, r := range report.Results {
		byName[r.Scenario.Name] = r
	}
	if got := byName["ok"].Outcome; got != verify.Pass {
		t.Errorf("ok outcome = %s (%s)", got, byName["ok"].Error)
	}
	failed := byName["closed-form-at-n1"]
	if failed.Outcome != verify.Failed || !errors.Is(failed.Err, model.ErrDegenerateModel) {
		t.Errorf("closed-form-at-n1: outcome %s, err %v", failed.Outcome, failed.Err)
	}
	if !strings.Contains(failed.Error, "seed 1") || !strings.Contains(failed.Error, "ground truth") {
		t.Errorf("failure lacks context: %q", failed.Error)
	}
	if len(report.Failures) != 1 || report.Failures[0].Scenario != "closed-form-at-n1" {
		t.Errorf("failures = %+v", report.Failures)
	}
	if report.Passed() {
		t.Error("a report with failures must not pass")
	}

	// Impossible tolerances turn every validated scenario into a mismatch
	// and every informational one into a warning.
	cfg.Bundle.Scenarios = []verify.Scenario{scaleScenario("strict", 9, 2), informational}
	cfg.Tolerance = check.Tolerance{Mean: 1e-12, Std: 1e-12}
	report = runBundle(t, cfg)
	strict, info := report.Results[0], report.Results[1]
	var mm *check.Mismatch
	if strict.Outcome != verify.Mismatch || !errors.As(strict.Err, &mm) {
		t.Errorf("strict: outcome %s, err %v", strict.Outcome, strict.Err)
	}
	if len(report.Mismatches) != 1 || report.Mismatches[0].Seed != 2 {
		t.Errorf("mismatches = %+v", report.Mismatches)
	}
	if info.Outcome != verify.Informational || info.Err != nil || len(info.Warnings) == 0 {
		t.Errorf("informational: outcome %s, err %v, warnings %q", info.Outcome, info.Err, info.Warnings)
	}
}

func TestRun_InvalidConfig(t *testing.T) {
	b := mustLoadBundle(t, "uniform-std")
	tests := []struct {
		name   string
		mutate func(*verify.RunConfig)
	}{
		{"no bundle", func(c *verify.RunConfig) { c.Bundle = nil }},
		{"unknown method", func(c *verify.RunConfig) { c.Method = "nuts" }},
		{"zero tolerance", func(c *verify.RunConfig) { c.Tolerance = check.Tolerance{} }},
		{"unknown truth mode", func(c *verify.RunConfig) { c.Truth = "bogus" }},
		{"empty bundle", func(c *verify.RunConfig) { c.Bundle = &verify.Bundle{Name: "empty"} }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := verify.DefaultRunConfig(b)
			tt.mutate(&cfg)
			if _, err := verify.Run(context.Background(), cfg); !errors.Is(err, model.ErrInvalidConfig) {
				t.Errorf("err = %v, want ErrInvalidConfig", err)
			}
		})
	}
}

func TestRun_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	cfg := verify.DefaultRunConfig(mustLoadBundle(t, "uniform-std"))
	if _, err := verify.Run(ctx, cfg); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestFormatReport(t *testing.T) {
	cfg := verify.DefaultRunConfig(mustLoadBundle(t, "uniform-std"))
	cfg.Iterations = 3000
	report := runBundle(t, cfg)

	ascii := verify.FormatReport(report, format.ASCII)
	for _, want := range []string{"Conjugate Step Verification", "sigma-0.5", "Uniform-Prior Std", "Closed Form", "RESULT:"} {
		if !strings.Contains(ascii, want) {
			t.Errorf("ASCII report missing %q:\n%s", want, ascii)
		}
	}

	md := verify.FormatReport(report, format.Markdown)
	if !strings.Contains(md, "## Verification: uniform-std") || !strings.Contains(md, "| sigma-0.5") {
		t.Errorf("Markdown report:\n%s", md)
	}

	csv := verify.FormatReport(report, format.CSV)
	if !strings.HasPrefix(csv, "Scenario,Seed,Update") || strings.Contains(csv, "RESULT:") {
		t.Errorf("CSV report:\n%s", csv)
	}

	data, err := json.Marshal(report)
	if err != nil {
		t.Fatal(err)
	}
	var decoded struct {
		Bundle  string `json:"bundle"`
		Results []struct {
			Outcome string `json:"outcome"`
			Sampled struct {
				Mean float64 `json:"mean"`
			} `json:"sampled"`
		} `json:"results"`
	}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatal(err)
	}
	if decoded.Bundle != "uniform-std" || len(decoded.Results) != 5 || !(decoded.Results[0].Sampled.Mean > 0) {
		t.Errorf("decoded report = %+v", decoded)
	}
}
