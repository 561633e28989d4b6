package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"conjugate/internal/check"
	"conjugate/internal/format"
	"conjugate/internal/posterior"
	"conjugate/internal/sampler"
	"conjugate/internal/verify"
)

// errVerifyFailed makes the process exit non-zero once the reports are out.
var errVerifyFailed = errors.New("verification failed")

var verifyFlags struct {
	bundles       []string
	bundleFile    string
	method        string
	parallel      int
	iterations    int
	burnIn        int
	proposalScale float64
	meanTol       float64
	stdTol        float64
	truth         string
	format        string
	jsonPath      string
}

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Run scenario bundles and check samples against the ground truth",
	Long: `Verify runs every scenario of the selected bundles, compares the sampled
posterior mean and std against the analytic posterior and exits non-zero
when any validated scenario mismatches or fails.`,
	Args: cobra.NoArgs,
	RunE: runVerify,
}

func init() {
	tol := check.DefaultTolerance()
	f := verifyCmd.Flags()
	f.StringSliceVar(&verifyFlags.bundles, "bundle", nil, "Embedded bundle name, repeatable (default: all embedded bundles)")
	f.StringVar(&verifyFlags.bundleFile, "bundle-file", "", "Path to an external bundle YAML")
	f.StringVar(&verifyFlags.method, "method", string(sampler.Gibbs), "Sampler (gibbs, metropolis)")
	f.IntVar(&verifyFlags.parallel, "parallel", 1, "Scenarios sampled concurrently (1 = serial)")
	f.IntVar(&verifyFlags.iterations, "iterations", 0, "Draws per chain including burn-in (0 = method default)")
	f.IntVar(&verifyFlags.burnIn, "burn-in", -1, "Draws discarded per chain (-1 = bundle or method default)")
	f.Float64Var(&verifyFlags.proposalScale, "proposal-scale", 0, "Metropolis step multiplier (0 = 1)")
	f.Float64Var(&verifyFlags.meanTol, "mean-tol", tol.Mean, "Relative tolerance on the posterior mean")
	f.Float64Var(&verifyFlags.stdTol, "std-tol", tol.Std, "Relative tolerance on the posterior std")
	f.StringVar(&verifyFlags.truth, "truth", "", "Force the ground truth (auto, closed, numeric); empty = per scenario")
	f.StringVar(&verifyFlags.format, "format", "ascii", "Report format (ascii, markdown, csv)")
	f.StringVar(&verifyFlags.jsonPath, "json", "", "Write the reports as JSON to path (- = stdout)")
}

func runVerify(cmd *cobra.Command, _ []string) error {
	method, err := sampler.ParseMethod(verifyFlags.method)
	if err != nil {
		return err
	}
	var truth posterior.Mode
	if verifyFlags.truth != "" {
		if truth, err = posterior.ParseMode(verifyFlags.truth); err != nil {
			return err
		}
	}
	bundles, err := loadBundles(verifyFlags.bundles, verifyFlags.bundleFile)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	mode := format.ParseMode(verifyFlags.format)
	var reports []*verify.Report
	failed := 0
	for _, b := range bundles {
		cfg := verify.DefaultRunConfig(b)
		cfg.Method = method
		cfg.Parallel = verifyFlags.parallel
		cfg.Iterations = verifyFlags.iterations
		cfg.BurnIn = verifyFlags.burnIn
		cfg.ProposalScale = verifyFlags.proposalScale
		cfg.Truth = truth
		cfg.Tolerance = check.Tolerance{Mean: verifyFlags.meanTol, Std: verifyFlags.stdTol}

		report, err := verify.Run(cmd.Context(), cfg)
		if err != nil {
			return fmt.Errorf("verify %s: %w", b.Name, err)
		}
		reports = append(reports, report)
		if !report.Passed() {
			failed++
		}
		if verifyFlags.jsonPath != "-" {
			fmt.Fprint(out, verify.FormatReport(report, mode))
		}
	}

	if verifyFlags.jsonPath != "" {
		data, err := json.MarshalIndent(reports, "", "  ")
		if err != nil {
			return fmt.Errorf("encode reports: %w", err)
		}
		if verifyFlags.jsonPath == "-" {
			fmt.Fprintln(out, string(data))
		} else {
			if err := os.WriteFile(verifyFlags.jsonPath, data, 0644); err != nil {
				return fmt.Errorf("write reports: %w", err)
			}
			fmt.Fprintf(out, "JSON report: %s\n", verifyFlags.jsonPath)
		}
	}

	if failed > 0 {
		return fmt.Errorf("%w: %d of %d bundles", errVerifyFailed, failed, len(reports))
	}
	return nil
}
