package format_test

import (
	"math"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"conjugate/internal/format"
)

func TestASCII_BasicTable(t *testing.T) {
	tb := format.NewTable(format.ASCII)
	tb.Title("normal-mean")
	tb.Header("Scenario", "Mean", "Std")
	tb.Row("nm-1", -2.98, 0.15)
	out := tb.String()

	// StyleLight upper-cases header cells.
	for _, want := range []string{"SCENARIO", "nm-1", "-2.98", "normal-mean"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in output:\n%s", want, out)
		}
	}
	if !strings.Contains(out, "───") {
		t.Errorf("expected box-drawing characters in ASCII output:\n%s", out)
	}
}

func TestMarkdown_WithFooter(t *testing.T) {
	tb := format.NewTable(format.Markdown)
	tb.Title("uniform-std")
	tb.Header("Scenario", "Pass")
	tb.Row("us-1", "✓")
	tb.Footer("TOTAL", "1/1")
	out := tb.String()

	if !strings.Contains(out, "| Scenario") {
		t.Errorf("expected markdown header with '| Scenario':\n%s", out)
	}
	if !strings.Contains(out, "1/1") {
		t.Errorf("expected footer value in output:\n%s", out)
	}
	if !strings.HasPrefix(out, "### uniform-std\n\n") {
		t.Errorf("markdown title should render as a heading:\n%s", out)
	}
}

func TestCSV_DropsTitle(t *testing.T) {
	tb := format.NewTable(format.CSV)
	tb.Title("half-cauchy-std")
	tb.Header("Scenario", "ESS")
	tb.Row("hc-1", 812)
	out := tb.String()

	if !strings.Contains(out, "Scenario,ESS") || !strings.Contains(out, "hc-1,812") {
		t.Errorf("unexpected CSV:\n%s", out)
	}
	if strings.Contains(out, "half-cauchy-std") {
		t.Errorf("CSV output should not carry the title:\n%s", out)
	}
}

func TestColumns_RightAlign(t *testing.T) {
	tb := format.NewTable(format.ASCII)
	tb.Header("Name", "Value")
	tb.Row("ess", 12345)
	tb.Columns(format.ColumnConfig{Number: 2, Align: format.AlignRight})
	if out := tb.String(); !strings.Contains(out, "12345") {
		t.Errorf("expected '12345' in output:\n%s", out)
	}
}

func TestParseMode(t *testing.T) {
	if format.ParseMode("md") != format.Markdown || format.ParseMode("markdown") != format.Markdown {
		t.Error("md/markdown should map to Markdown")
	}
	if format.ParseMode("text") != format.ASCII || format.ParseMode("") != format.ASCII {
		t.Error("text and empty should map to ASCII")
	}
	if m := format.ParseMode("CSV"); m != format.CSV || m.String() != "csv" {
		t.Errorf("CSV parsed as %v", m)
	}
}

func TestFmtFloat(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{0, "0"},
		{math.NaN(), "n/a"},
		{-2.981234, "-2.981"},
		{0.15, "0.15"},
		{1.5e10, "1.500e+10"},
		{2e-5, "2.000e-05"},
	}
	for _, tc := range tests {
		if got := format.FmtFloat(tc.in); got != tc.want {
			t.Errorf("FmtFloat(%v) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestFmtRel(t *testing.T) {
	if got := format.FmtRel(0.034); got != "+3.4%" {
		t.Errorf("FmtRel(0.034) = %q", got)
	}
	if got := format.FmtRel(-0.1); got != "-10.0%" {
		t.Errorf("FmtRel(-0.1) = %q", got)
	}
}

func TestFmtPercent(t *testing.T) {
	if got := format.FmtPercent(0.125); got != "12.5%" {
		t.Errorf("FmtPercent(0.125) = %q", got)
	}
	if got := format.FmtPercent(math.NaN()); got != "n/a" {
		t.Errorf("FmtPercent(NaN) = %q", got)
	}
}

func TestFmtDuration(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{0, "0ms"},
		{250 * time.Millisecond, "250ms"},
		{30 * time.Second, "30s"},
		{90 * time.Second, "1m 30s"},
	}
	for _, tc := range tests {
		if got := format.FmtDuration(tc.in); got != tc.want {
			t.Errorf("FmtDuration(%v) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in     string
		maxLen int
		want   string
	}{
		{"hello", 10, "hello"},
		{"hello world", 8, "hello..."},
		{"abcdef", 3, "abc"},
		{"σσσσσσσσ", 8, "σσσσσσσσ"},
		{"σ-prior-μ-shift", 7, "σ-pr..."},
		{"σμτ", 2, "σμ"},
	}
	for _, tc := range tests {
		got := format.Truncate(tc.in, tc.maxLen)
		if got != tc.want {
			t.Errorf("Truncate(%q, %d) = %q, want %q", tc.in, tc.maxLen, got, tc.want)
		}
		if !utf8.ValidString(got) {
			t.Errorf("Truncate(%q, %d) produced invalid UTF-8 %q", tc.in, tc.maxLen, got)
		}
	}
}

func TestBoolMark(t *testing.T) {
	if format.BoolMark(true) != "✓" || format.BoolMark(false) != "✗" {
		t.Error("BoolMark should map true→✓ false→✗")
	}
}
