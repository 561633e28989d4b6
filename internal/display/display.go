// Package display provides human-readable names for machine codes.
//
// Rule: code is for machines, words are for humans.
// Use these functions in CLI output, markdown reports and logs.
// Keep raw codes for JSON fields, YAML keys and equality comparisons.
package display

func lookup(names map[string]string, code string) string {
	if name, ok := names[code]; ok {
		return name
	}
	return code
}

func withCode(names map[string]string, code string) string {
	if name, ok := names[code]; ok {
		return name + " (" + code + ")"
	}
	return code
}

// --- Samplers ---

var methods = map[string]string{
	"gibbs":      "Gibbs",
	"metropolis": "Random-walk Metropolis",
}

// Method returns the human-readable name for a sampler method.
// Unknown codes are returned as-is.
func Method(code string) string { return lookup(methods, code) }

// --- Update rules ---

var steps = map[string]string{
	"normal-mean":     "Normal Mean",
	"uniform-std":     "Uniform-Prior Std",
	"half-cauchy-std": "Half-Cauchy-Prior Std",
}

// Step returns the human-readable name for a Gibbs update rule.
// "uniform-std" -> "Uniform-Prior Std".
func Step(code string) string { return lookup(steps, code) }

// --- Priors ---

var priors = map[string]string{
	"normal":      "Normal",
	"uniform":     "Bounded Uniform",
	"half-cauchy": "Half-Cauchy",
}

// Prior returns the human-readable name for a prior family.
func Prior(code string) string { return lookup(priors, code) }

// --- Ground truth ---

var truths = map[string]string{
	"auto":    "Automatic",
	"closed":  "Closed Form",
	"numeric": "Adaptive Quadrature",
}

// Truth returns the human-readable name for a ground-truth method.
func Truth(code string) string { return lookup(truths, code) }

// --- Metrics ---

var metrics = map[string]string{
	"C1": "Posterior Mean",
	"C2": "Posterior Std",
}

// Metric returns the human-readable name for a metric ID.
// "C1" -> "Posterior Mean".
func Metric(id string) string { return lookup(metrics, id) }

// MetricWithCode returns "Posterior Mean (C1)" format.
func MetricWithCode(id string) string { return withCode(metrics, id) }

// --- Outcomes ---

var outcomes = map[string]string{
	"pass":          "Pass",
	"mismatch":      "Mismatch",
	"informational": "Informational",
	"error":         "Error",
}

// Outcome returns the human-readable name for a scenario outcome.
func Outcome(code string) string { return lookup(outcomes, code) }
