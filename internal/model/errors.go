package model

import "errors"

var (
	// ErrNumericInstability is returned when a ground-truth computation hits a
	// non-finite density, a non-converging integral or an out-of-domain value.
	ErrNumericInstability = errors.New("model: numeric instability")

	// ErrDegenerateModel is returned when a configuration yields an undefined
	// conditional or marginal posterior, e.g. zero effective degrees of freedom.
	ErrDegenerateModel = errors.New("model: degenerate model")

	// ErrInvalidConfig is returned by the builders for configurations that
	// cannot describe a model at all.
	ErrInvalidConfig = errors.New("model: invalid config")
)
