// Package check compares an empirical posterior summary against its ground
// truth under relative tolerances.
package check

import (
	"fmt"
	"math"
	"strings"

	"conjugate/internal/display"
	"conjugate/internal/format"
	"conjugate/internal/model"
)

// Tolerance holds the relative tolerances on the posterior mean and std.
type Tolerance struct {
	Mean float64 `json:"mean" yaml:"mean"`
	Std  float64 `json:"std" yaml:"std"`
}

// DefaultTolerance allows 10% on the mean and 20% on the std.
func DefaultTolerance() Tolerance {
	return Tolerance{Mean: 0.1, Std: 0.2}
}

// Validate rejects non-positive tolerances.
func (t Tolerance) Validate() error {
	if !(t.Mean > 0) || !(t.Std > 0) {
		return fmt.Errorf("%w: tolerances must be positive, got mean=%v std=%v", model.ErrInvalidConfig, t.Mean, t.Std)
	}
	return nil
}

// Metric is one tolerance comparison. Value is the relative error, or the
// absolute error when the ground truth is exactly zero; an undefined error
// fails with Value 0.
type Metric struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Value     float64 `json:"value"`
	Threshold float64 `json:"threshold"`
	Pass      bool    `json:"pass"`
	Detail    string  `json:"detail"`
}

// Result is the outcome of comparing one sampled summary with its truth.
type Result struct {
	Pass      bool          `json:"pass"`
	Metrics   []Metric      `json:"metrics"`
	Warnings  []string      `json:"warnings,omitempty"`
	Sampled   model.Summary `json:"-"`
	Truth     model.Summary `json:"-"`
	Tolerance Tolerance     `json:"tolerance"`
}

// PassCount returns the number of passing metrics and the total.
func (r Result) PassCount() (passed, total int) {
	for _, m := range r.Metrics {
		if m.Pass {
			passed++
		}
	}
	return passed, len(r.Metrics)
}

// Err returns a *Mismatch when any metric failed, nil otherwise.
func (r Result) Err() error {
	if r.Pass {
		return nil
	}
	var failed []Metric
	for _, m := range r.Metrics {
		if !m.Pass {
			failed = append(failed, m)
		}
	}
	return &Mismatch{Sampled: r.Sampled, Truth: r.Truth, Tolerance: r.Tolerance, Failed: failed}
}

// Mismatch is a sampled summary outside tolerance of its ground truth. It is
// reported after a batch, never treated as fatal.
type Mismatch struct {
	Sampled   model.Summary
	Truth     model.Summary
	Tolerance Tolerance
	Failed    []Metric
}

func (m *Mismatch) Error() string {
	parts := make([]string, len(m.Failed))
	for i, f := range m.Failed {
		parts[i] = fmt.Sprintf("%s off by %s (limit %s): %s",
			display.MetricWithCode(f.ID), format.FmtPercent(f.Value), format.FmtPercent(f.Threshold), f.Detail)
	}
	return "statistical mismatch: " + strings.Join(parts, "; ")
}

// Check compares sampled against truth. C1 checks the mean; C2 checks the std
// when the truth carries one. A metric fails when |got − want| > tol·|want|;
// at a truth of exactly zero that bound would admit only an exact match, so
// the absolute error |got| is compared against tol instead. A true value
// outside the sampled 95% interval is a warning, never a failure.
func Check(sampled, truth model.Summary, trueValue float64, tol Tolerance) Result {
	r := Result{Pass: true, Sampled: sampled, Truth: truth, Tolerance: tol}
	r.Metrics = append(r.Metrics, compare("C1", sampled.Mean, truth.Mean, tol.Mean))
	if truth.HasStd() {
		r.Metrics = append(r.Metrics, compare("C2", sampled.Std, truth.Std, tol.Std))
	} else {
		r.Warnings = append(r.Warnings, "ground truth has no std; C2 skipped")
	}
	for _, m := range r.Metrics {
		r.Pass = r.Pass && m.Pass
	}

	if lo, hi, ok := sampled.Interval(); ok && !math.IsNaN(trueValue) && (trueValue < lo || trueValue > hi) {
		r.Warnings = append(r.Warnings, fmt.Sprintf("true value %s outside sampled 95%% interval [%s, %s]",
			format.FmtFloat(trueValue), format.FmtFloat(lo), format.FmtFloat(hi)))
	}
	return r
}

func compare(id string, got, want, tol float64) Metric {
	m := Metric{
		ID:        id,
		Name:      display.Metric(id),
		Threshold: tol,
		Detail:    fmt.Sprintf("sampled=%s truth=%s", format.FmtFloat(got), format.FmtFloat(want)),
	}
	diff := math.Abs(got - want)
	// Absolute error at a zero truth.
	if want != 0 {
		diff /= math.Abs(want)
	}
	if math.IsNaN(diff) || math.IsInf(diff, 0) {
		// Undefined errors fail with a zero value so the metric stays encodable.
		return m
	}
	m.Value, m.Pass = diff, diff <= tol
	return m
}
