package verify

import (
	"fmt"
	"strings"

	"conjugate/internal/display"
	"conjugate/internal/format"
)

// FormatReport renders a human-readable verification report. CSV mode
// renders the scenario table alone.
func FormatReport(r *Report, mode format.Mode) string {
	if mode == format.CSV {
		return scenarioTable(r, mode)
	}
	var b strings.Builder

	if mode == format.Markdown {
		b.WriteString(fmt.Sprintf("## Verification: %s\n\n", r.Bundle))
	} else {
		b.WriteString("=== Conjugate Step Verification ===\n")
	}
	b.WriteString(fmt.Sprintf("Run:       %s\n", r.RunID))
	b.WriteString(fmt.Sprintf("Bundle:    %s\n", r.Bundle))
	b.WriteString(fmt.Sprintf("Sampler:   %s\n", display.Method(string(r.Method))))
	b.WriteString(fmt.Sprintf("Tolerance: mean %s, std %s\n",
		format.FmtPercent(r.Tolerance.Mean), format.FmtPercent(r.Tolerance.Std)))
	b.WriteString(fmt.Sprintf("Duration:  %s\n\n", format.FmtDuration(r.Duration)))

	b.WriteString(scenarioTable(r, mode))
	b.WriteString("\n\n")

	writeIssues := func(title string, issues []Issue) {
		if len(issues) == 0 {
			return
		}
		b.WriteString(fmt.Sprintf("--- %s ---\n", title))
		for _, is := range issues {
			b.WriteString(fmt.Sprintf("%s (seed %d): %s\n", is.Scenario, is.Seed, is.Message))
		}
		b.WriteString("\n")
	}
	writeIssues("Mismatches", r.Mismatches)
	writeIssues("Failures", r.Failures)

	var notes []string
	for _, res := range r.Results {
		for _, w := range res.Warnings {
			notes = append(notes, fmt.Sprintf("%s: %s", res.Scenario.Name, w))
		}
	}
	if len(notes) > 0 {
		b.WriteString("--- Warnings ---\n")
		b.WriteString(strings.Join(notes, "\n"))
		b.WriteString("\n\n")
	}

	counts := r.Counts()
	result := "PASS"
	if !r.Passed() {
		result = "FAIL"
	}
	b.WriteString(fmt.Sprintf("RESULT: %s (%d pass, %d mismatch, %d informational, %d error)\n",
		result, counts[Pass], counts[Mismatch], counts[Informational], counts[Failed]))
	return b.String()
}

// scenarioTable renders one row per scenario with a pass-count footer.
func scenarioTable(r *Report, mode format.Mode) string {
	tbl := format.NewTable(mode)
	tbl.Title("Scenarios")
	tbl.Header("Scenario", "Seed", "Update", "N", "Truth", "Mean*", "Mean", "ΔMean", "Std*", "Std", "ΔStd", "ESS", "Result")
	for _, res := range r.Results {
		row := []any{format.Truncate(res.Scenario.Name, 32), res.Scenario.Seed, display.Step(res.Step), res.N}
		if res.Truth == nil || res.Sampled == nil {
			row = append(row, "", "", "", "", "", "", "", "")
		} else {
			t, s := res.Truth.Summary, *res.Sampled
			row = append(row,
				display.Truth(string(res.Truth.Method)),
				format.FmtFloat(t.Mean), format.FmtFloat(s.Mean), format.FmtRel(relErr(s.Mean, t.Mean)),
				format.FmtFloat(t.Std), format.FmtFloat(s.Std), format.FmtRel(relErr(s.Std, t.Std)),
				fmt.Sprintf("%.0f", res.Diagnostics.ESS),
			)
		}
		row = append(row, outcomeMark(res.Outcome))
		tbl.Row(row...)
	}
	counts := r.Counts()
	tbl.Footer("", "", "", "", "", "", "", "", "", "", "", "",
		fmt.Sprintf("%d/%d", counts[Pass], len(r.Results)-counts[Informational]))
	tbl.Columns(
		format.ColumnConfig{Number: 2, Align: format.AlignRight},
		format.ColumnConfig{Number: 4, Align: format.AlignRight},
		format.ColumnConfig{Number: 12, Align: format.AlignRight},
	)
	return tbl.String()
}

func outcomeMark(o Outcome) string {
	switch o {
	case Pass:
		return format.BoolMark(true)
	case Mismatch, Failed:
		return format.BoolMark(false) + " " + display.Outcome(string(o))
	}
	return display.Outcome(string(o))
}

func relErr(got, want float64) float64 {
	if want == 0 {
		return got
	}
	return (got - want) / want
}
