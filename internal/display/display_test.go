package display

import "testing"

func TestMethod(t *testing.T) {
	cases := []struct {
		code, want string
	}{
		{"gibbs", "Gibbs"},
		{"metropolis", "Random-walk Metropolis"},
		{"nuts", "nuts"},
		{"", ""},
	}
	for _, tc := range cases {
		if got := Method(tc.code); got != tc.want {
			t.Errorf("Method(%q) = %q, want %q", tc.code, got, tc.want)
		}
	}
}

func TestStep(t *testing.T) {
	cases := []struct {
		code, want string
	}{
		{"normal-mean", "Normal Mean"},
		{"uniform-std", "Uniform-Prior Std"},
		{"half-cauchy-std", "Half-Cauchy-Prior Std"},
		{"unknown", "unknown"},
	}
	for _, tc := range cases {
		if got := Step(tc.code); got != tc.want {
			t.Errorf("Step(%q) = %q, want %q", tc.code, got, tc.want)
		}
	}
}

func TestPrior(t *testing.T) {
	if got := Prior("half-cauchy"); got != "Half-Cauchy" {
		t.Errorf("Prior(half-cauchy) = %q", got)
	}
	if got := Prior("gamma"); got != "gamma" {
		t.Errorf("unknown prior should pass through, got %q", got)
	}
}

func TestTruth(t *testing.T) {
	if got := Truth("numeric"); got != "Adaptive Quadrature" {
		t.Errorf("got %q", got)
	}
	if got := Truth("closed"); got != "Closed Form" {
		t.Errorf("got %q", got)
	}
}

func TestMetric(t *testing.T) {
	if got := Metric("C1"); got != "Posterior Mean" {
		t.Errorf("got %q", got)
	}
	if got := MetricWithCode("C2"); got != "Posterior Std (C2)" {
		t.Errorf("got %q", got)
	}
	if got := MetricWithCode("M1"); got != "M1" {
		t.Errorf("got %q", got)
	}
}

func TestOutcome(t *testing.T) {
	for code, want := range map[string]string{
		"pass":          "Pass",
		"mismatch":      "Mismatch",
		"informational": "Informational",
		"error":         "Error",
		"other":         "other",
	} {
		if got := Outcome(code); got != want {
			t.Errorf("Outcome(%q) = %q, want %q", code, got, want)
		}
	}
}
