package verify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"conjugate/internal/check"
	"conjugate/internal/logging"
	"conjugate/internal/model"
	"conjugate/internal/posterior"
	"conjugate/internal/sampler"
)

// Run executes every scenario of the bundle and collects mismatches and
// failures after the whole batch. Scenario errors never abort the batch;
// only an invalid configuration or a cancelled context does. The context is
// checked between scenarios, not inside a chain.
func Run(ctx context.Context, cfg RunConfig) (*Report, error) {
	if cfg.Bundle == nil {
		return nil, fmt.Errorf("%w: no bundle", model.ErrInvalidConfig)
	}
	if err := cfg.Bundle.Validate(); err != nil {
		return nil, err
	}
	if _, err := sampler.ParseMethod(string(cfg.Method)); err != nil {
		return nil, err
	}
	if err := cfg.Tolerance.Validate(); err != nil {
		return nil, err
	}
	if cfg.Truth != "" {
		if _, err := posterior.ParseMode(string(cfg.Truth)); err != nil {
			return nil, err
		}
	}
	if cfg.Parallel < 1 {
		cfg.Parallel = 1
	}

	logger := logging.New("verify")
	report := &Report{
		RunID:     uuid.NewString(),
		Bundle:    cfg.Bundle.Name,
		Method:    cfg.Method,
		Tolerance: cfg.Tolerance,
		Started:   time.Now(),
		Results:   make([]ScenarioResult, len(cfg.Bundle.Scenarios)),
	}
	logger.Info("bundle started", "run_id", report.RunID, "bundle", report.Bundle,
		"method", cfg.Method, "scenarios", len(report.Results), "workers", cfg.Parallel)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Parallel)
	for i, sc := range cfg.Bundle.Scenarios {
		i, sc := i, sc
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			report.Results[i] = runScenario(cfg, sc)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("bundle %s: %w", cfg.Bundle.Name, err)
	}

	for _, res := range report.Results {
		switch res.Outcome {
		case Mismatch:
			report.Mismatches = append(report.Mismatches, Issue{Scenario: res.Scenario.Name, Seed: res.Scenario.Seed, Message: res.Error})
		case Failed:
			report.Failures = append(report.Failures, Issue{Scenario: res.Scenario.Name, Seed: res.Scenario.Seed, Message: res.Error})
		}
	}
	report.Duration = time.Since(report.Started)

	counts := report.Counts()
	logger.Info("bundle finished", "run_id", report.RunID, "bundle", report.Bundle,
		"pass", counts[Pass], "mismatch", counts[Mismatch], "informational", counts[Informational],
		"error", counts[Failed], "duration", report.Duration)
	return report, nil
}

// runScenario builds, solves, samples and checks one scenario. Its instance
// and random streams are private, so scenarios can run side by side.
func runScenario(cfg RunConfig, sc Scenario) ScenarioResult {
	logger := logging.Scenario("verify", sc.Name, sc.Seed)
	start := time.Now()
	res := ScenarioResult{Scenario: sc, Method: cfg.Method, Informational: sc.Informational}
	fail := func(stage string, err error) ScenarioResult {
		res.Err = fmt.Errorf("scenario %s (seed %d): %s: %w", sc.Name, sc.Seed, stage, err)
		res.Error = res.Err.Error()
		res.Outcome = Failed
		res.Duration = time.Since(start)
		logger.Error("scenario failed", "stage", stage, "error", err)
		return res
	}
	logger.Info("scenario started", "method", cfg.Method)

	mc, err := sc.Config()
	if err != nil {
		return fail("config", err)
	}
	in, err := model.Build(mc)
	if err != nil {
		return fail("build", err)
	}
	res.N = in.TotalN()

	mode := cfg.Truth
	if mode == "" {
		if mode, err = posterior.ParseMode(sc.Truth); err != nil {
			return fail("config", err)
		}
	}
	truth, err := posterior.ForInstance(in, mode)
	if err != nil {
		return fail("ground truth", err)
	}
	res.Truth = &truth

	scfg := cfg.samplerConfig(sc.Seed)
	res.Iterations, res.BurnIn = scfg.Iterations, scfg.BurnIn
	out, err := sampler.Run(in, scfg)
	if err != nil {
		return fail("sample", err)
	}
	res.Step = out.Kind.String()
	res.Sampled = &out.Summary
	res.Diagnostics = &out.Diagnostics
	if cfg.Method == sampler.Gibbs && !out.Kind.Reliable() {
		res.Informational = true
	}
	if n := out.Diagnostics.Degenerate; n > 0 {
		res.Warnings = append(res.Warnings, fmt.Sprintf("%d draws used the degenerate-case grid sampler", n))
	}

	result := check.Check(out.Summary, truth.Summary, sc.TrueValue, cfg.Tolerance)
	res.Check = &result
	res.Warnings = append(res.Warnings, result.Warnings...)
	res.Duration = time.Since(start)

	var mm *check.Mismatch
	switch err := result.Err(); {
	case err == nil && res.Informational:
		res.Outcome = Informational
	case err == nil:
		res.Outcome = Pass
	case errors.As(err, &mm) && res.Informational:
		res.Outcome = Informational
		res.Warnings = append(res.Warnings, err.Error())
		logger.Warn("informational mismatch", "error", err)
	default:
		res.Err = fmt.Errorf("scenario %s (seed %d): %w", sc.Name, sc.Seed, err)
		res.Error = res.Err.Error()
		res.Outcome = Mismatch
		logger.Warn("statistical mismatch", "error", err)
	}
	logger.Info("scenario finished", "outcome", res.Outcome, "step", res.Step,
		"mean", out.Summary.Mean, "truth_mean", truth.Summary.Mean, "duration", res.Duration)
	return res
}
