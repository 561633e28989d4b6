package model

import (
	"encoding/json"
	"math"
	"strconv"
)

// Percent is a quantile level in percent. It marshals as a text map key so a
// Summary round-trips through JSON.
type Percent float64

// Quantile levels carried by every Summary.
const (
	QLower  Percent = 2.5
	QMedian Percent = 50
	QUpper  Percent = 97.5
)

// QuantileLevels lists the levels in ascending order.
var QuantileLevels = []Percent{QLower, QMedian, QUpper}

// Fraction returns the level as a probability in [0, 1].
func (p Percent) Fraction() float64 { return float64(p) / 100 }

func (p Percent) MarshalText() ([]byte, error) {
	return []byte(strconv.FormatFloat(float64(p), 'g', -1, 64)), nil
}

func (p *Percent) UnmarshalText(b []byte) error {
	v, err := strconv.ParseFloat(string(b), 64)
	if err != nil {
		return err
	}
	*p = Percent(v)
	return nil
}

// Summary is the posterior summary of one parameter, either empirical or
// analytic. Std is NaN when it is unknown.
type Summary struct {
	Mean      float64             `json:"mean"`
	Std       float64             `json:"std"`
	Quantiles map[Percent]float64 `json:"quantiles,omitempty"`
}

// HasStd reports whether the summary carries a standard deviation.
func (s Summary) HasStd() bool {
	return !math.IsNaN(s.Std)
}

// Interval returns the central 95% interval, ok=false when the summary has
// no quantiles.
func (s Summary) Interval() (lo, hi float64, ok bool) {
	lo, okLo := s.Quantiles[QLower]
	hi, okHi := s.Quantiles[QUpper]
	return lo, hi, okLo && okHi
}

type summaryJSON struct {
	Mean      float64             `json:"mean"`
	Std       *float64            `json:"std"`
	Quantiles map[Percent]float64 `json:"quantiles,omitempty"`
}

// MarshalJSON encodes an unknown Std as null.
func (s Summary) MarshalJSON() ([]byte, error) {
	out := summaryJSON{Mean: s.Mean, Quantiles: s.Quantiles}
	if s.HasStd() {
		std := s.Std
		out.Std = &std
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes a null Std as NaN.
func (s *Summary) UnmarshalJSON(b []byte) error {
	var in summaryJSON
	if err := json.Unmarshal(b, &in); err != nil {
		return err
	}
	s.Mean, s.Quantiles, s.Std = in.Mean, in.Quantiles, math.NaN()
	if in.Std != nil {
		s.Std = *in.Std
	}
	return nil
}
