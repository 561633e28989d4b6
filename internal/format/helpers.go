package format

import (
	"fmt"
	"math"
	"time"

	"github.com/jedib0t/go-pretty/v6/text"
)

// FmtFloat formats v with four significant digits, switching to scientific
// notation for very large or very small magnitudes. NaN renders as "n/a".
func FmtFloat(v float64) string {
	switch {
	case math.IsNaN(v):
		return "n/a"
	case math.IsInf(v, 0):
		return fmt.Sprintf("%v", v)
	case v == 0:
		return "0"
	}
	a := math.Abs(v)
	if a >= 1e5 || a < 1e-3 {
		return fmt.Sprintf("%.3e", v)
	}
	return fmt.Sprintf("%.4g", v)
}

// FmtRel formats a relative error as a signed percentage.
func FmtRel(v float64) string {
	if math.IsNaN(v) {
		return "n/a"
	}
	return fmt.Sprintf("%+.1f%%", 100*v)
}

// FmtPercent formats a non-negative fraction as a percentage.
func FmtPercent(v float64) string {
	if math.IsNaN(v) {
		return "n/a"
	}
	return fmt.Sprintf("%.1f%%", 100*v)
}

// FmtDuration formats a duration as "Xm Ys", "Ys" or "Xms".
func FmtDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	s := int(d.Seconds())
	if s >= 60 {
		return fmt.Sprintf("%dm %ds", s/60, s%60)
	}
	return fmt.Sprintf("%ds", s)
}

// Truncate shortens s to maxLen display columns, appending "..." if
// truncated. It never splits a multi-byte character.
func Truncate(s string, maxLen int) string {
	if text.RuneWidthWithoutEscSequences(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return text.Trim(s, maxLen)
	}
	return text.Trim(s, maxLen-3) + "..."
}

// BoolMark returns "✓" for true and "✗" for false.
func BoolMark(v bool) string {
	if v {
		return "✓"
	}
	return "✗"
}
