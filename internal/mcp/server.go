// Package mcp exposes the verification harness as MCP tools so an agent can
// list bundles, inspect ground truths and run verifications over stdio.
package mcp

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"conjugate/internal/check"
	"conjugate/internal/format"
	"conjugate/internal/logging"
	"conjugate/internal/model"
	"conjugate/internal/posterior"
	"conjugate/internal/sampler"
	"conjugate/internal/verify"
	"conjugate/internal/verify/scenarios"
)

// maxReports bounds the reports kept for get_report.
const maxReports = 32

// Server wraps the MCP SDK server and keeps the reports of recent runs.
type Server struct {
	MCPServer *sdkmcp.Server

	mu      sync.Mutex
	reports map[string]*verify.Report
	order   []string
	log     *slog.Logger
}

// NewServer creates an MCP server with the verification tools registered.
func NewServer(version string) *Server {
	s := &Server{
		MCPServer: sdkmcp.NewServer(
			&sdkmcp.Implementation{Name: "conjugate", Version: version},
			nil,
		),
		reports: make(map[string]*verify.Report),
		log:     logging.New("mcp"),
	}
	s.registerTools()
	return s
}

func (s *Server) registerTools() {
	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        "list_bundles",
		Description: "List the embedded scenario bundles with their scenario counts.",
	}, s.handleListBundles)

	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        "get_posterior",
		Description: "Compute the ground-truth posterior of every scenario in a bundle without sampling.",
	}, s.handleGetPosterior)

	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        "run_verification",
		Description: "Sample every scenario of a bundle and check it against the ground truth. Returns a run ID and per-scenario outcomes.",
	}, s.handleRunVerification)

	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        "get_report",
		Description: "Render the report of an earlier run as ASCII or Markdown text.",
	}, s.handleGetReport)
}

// --- Tool input/output types ---

type listBundlesInput struct{}

type bundleInfo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Scenarios   int    `json:"scenarios"`
}

type listBundlesOutput struct {
	Bundles []bundleInfo `json:"bundles"`
}

type getPosteriorInput struct {
	Bundle string `json:"bundle" jsonschema:"embedded bundle name"`
	Truth  string `json:"truth,omitempty" jsonschema:"force the ground truth: auto, closed or numeric"`
}

type posteriorRow struct {
	Scenario string  `json:"scenario"`
	N        int     `json:"n"`
	Method   string  `json:"method,omitempty"`
	Mean     float64 `json:"mean"`
	Std      float64 `json:"std"`
	Lower    float64 `json:"q2_5"`
	Median   float64 `json:"q50"`
	Upper    float64 `json:"q97_5"`
	Error    string  `json:"error,omitempty"`
}

type getPosteriorOutput struct {
	Bundle    string         `json:"bundle"`
	Scenarios []posteriorRow `json:"scenarios"`
}

type runVerificationInput struct {
	Bundle     string  `json:"bundle" jsonschema:"embedded bundle name"`
	Method     string  `json:"method,omitempty" jsonschema:"sampler: gibbs (default) or metropolis"`
	Parallel   int     `json:"parallel,omitempty" jsonschema:"scenarios sampled concurrently (default 1)"`
	Iterations int     `json:"iterations,omitempty" jsonschema:"draws per chain including burn-in (default per method)"`
	BurnIn     *int    `json:"burn_in,omitempty" jsonschema:"draws discarded per chain (default per bundle or method)"`
	MeanTol    float64 `json:"mean_tol,omitempty" jsonschema:"relative tolerance on the posterior mean (default 0.1)"`
	StdTol     float64 `json:"std_tol,omitempty" jsonschema:"relative tolerance on the posterior std (default 0.2)"`
}

type resultRow struct {
	Scenario    string  `json:"scenario"`
	Outcome     string  `json:"outcome"`
	Step        string  `json:"step,omitempty"`
	TruthMean   float64 `json:"truth_mean"`
	SampledMean float64 `json:"sampled_mean"`
	TruthStd    float64 `json:"truth_std"`
	SampledStd  float64 `json:"sampled_std"`
	ESS         float64 `json:"ess"`
	Error       string  `json:"error,omitempty"`
}

type runVerificationOutput struct {
	RunID   string         `json:"run_id"`
	Bundle  string         `json:"bundle"`
	Method  string         `json:"method"`
	Passed  bool           `json:"passed"`
	Counts  map[string]int `json:"counts"`
	Results []resultRow    `json:"results"`
}

type getReportInput struct {
	RunID  string `json:"run_id" jsonschema:"run ID from run_verification"`
	Format string `json:"format,omitempty" jsonschema:"ascii (default) or markdown"`
}

type getReportOutput struct {
	RunID  string `json:"run_id"`
	Report string `json:"report"`
}

// --- Tool handlers ---

func (s *Server) handleListBundles(_ context.Context, _ *sdkmcp.CallToolRequest, _ listBundlesInput) (*sdkmcp.CallToolResult, listBundlesOutput, error) {
	var out listBundlesOutput
	for _, name := range scenarios.ListBundles() {
		b, err := scenarios.LoadBundle(name)
		if err != nil {
			return nil, listBundlesOutput{}, err
		}
		out.Bundles = append(out.Bundles, bundleInfo{Name: b.Name, Description: b.Description, Scenarios: len(b.Scenarios)})
	}
	return nil, out, nil
}

func (s *Server) handleGetPosterior(_ context.Context, _ *sdkmcp.CallToolRequest, input getPosteriorInput) (*sdkmcp.CallToolResult, getPosteriorOutput, error) {
	b, err := scenarios.LoadBundle(input.Bundle)
	if err != nil {
		return nil, getPosteriorOutput{}, err
	}
	var forced posterior.Mode
	if input.Truth != "" {
		if forced, err = posterior.ParseMode(input.Truth); err != nil {
			return nil, getPosteriorOutput{}, err
		}
	}

	out := getPosteriorOutput{Bundle: b.Name}
	for _, sc := range b.Scenarios {
		truth, n, err := sc.GroundTruth(forced)
		row := posteriorRow{Scenario: sc.Name, N: n}
		if err != nil {
			row.Error = err.Error()
			out.Scenarios = append(out.Scenarios, row)
			continue
		}
		sum := truth.Summary
		row.Method = string(truth.Method)
		row.Mean, row.Std = sum.Mean, finite(sum.Std)
		row.Lower, row.Median, row.Upper = sum.Quantiles[model.QLower], sum.Quantiles[model.QMedian], sum.Quantiles[model.QUpper]
		out.Scenarios = append(out.Scenarios, row)
	}
	return nil, out, nil
}

func (s *Server) handleRunVerification(ctx context.Context, _ *sdkmcp.CallToolRequest, input runVerificationInput) (*sdkmcp.CallToolResult, runVerificationOutput, error) {
	b, err := scenarios.LoadBundle(input.Bundle)
	if err != nil {
		return nil, runVerificationOutput{}, err
	}
	cfg := verify.DefaultRunConfig(b)
	if input.Method != "" {
		if cfg.Method, err = sampler.ParseMethod(input.Method); err != nil {
			return nil, runVerificationOutput{}, err
		}
	}
	if input.Parallel > 0 {
		cfg.Parallel = input.Parallel
	}
	cfg.Iterations = input.Iterations
	if input.BurnIn != nil {
		cfg.BurnIn = *input.BurnIn
	}
	tol := check.DefaultTolerance()
	if input.MeanTol > 0 {
		tol.Mean = input.MeanTol
	}
	if input.StdTol > 0 {
		tol.Std = input.StdTol
	}
	cfg.Tolerance = tol

	report, err := verify.Run(ctx, cfg)
	if err != nil {
		return nil, runVerificationOutput{}, err
	}
	s.keep(report)
	s.log.Info("verification finished", "run_id", report.RunID, "bundle", report.Bundle, "passed", report.Passed())

	out := runVerificationOutput{
		RunID:  report.RunID,
		Bundle: report.Bundle,
		Method: string(report.Method),
		Passed: report.Passed(),
		Counts: make(map[string]int),
	}
	for o, n := range report.Counts() {
		out.Counts[string(o)] = n
	}
	for _, res := range report.Results {
		row := resultRow{Scenario: res.Scenario.Name, Outcome: string(res.Outcome), Step: res.Step, Error: res.Error}
		if res.Truth != nil {
			row.TruthMean, row.TruthStd = res.Truth.Summary.Mean, finite(res.Truth.Summary.Std)
		}
		if res.Sampled != nil {
			row.SampledMean, row.SampledStd = res.Sampled.Mean, finite(res.Sampled.Std)
		}
		if res.Diagnostics != nil {
			row.ESS = res.Diagnostics.ESS
		}
		out.Results = append(out.Results, row)
	}
	return nil, out, nil
}

func (s *Server) handleGetReport(_ context.Context, _ *sdkmcp.CallToolRequest, input getReportInput) (*sdkmcp.CallToolResult, getReportOutput, error) {
	s.mu.Lock()
	report, ok := s.reports[input.RunID]
	s.mu.Unlock()
	if !ok {
		return nil, getReportOutput{}, fmt.Errorf("unknown run ID %q", input.RunID)
	}
	return nil, getReportOutput{
		RunID:  report.RunID,
		Report: verify.FormatReport(report, format.ParseMode(input.Format)),
	}, nil
}

// keep stores a report for get_report, evicting the oldest beyond maxReports.
func (s *Server) keep(r *verify.Report) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reports[r.RunID] = r
	s.order = append(s.order, r.RunID)
	if len(s.order) > maxReports {
		delete(s.reports, s.order[0])
		s.order = s.order[1:]
	}
}

// finite maps an unknown std to zero; JSON has no NaN.
func finite(v float64) float64 {
	if v != v {
		return 0
	}
	return v
}
