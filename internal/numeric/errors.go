package numeric

import (
	"errors"
	"math"
)

var (
	// ErrInsufficientData is returned when too few points are supplied.
	ErrInsufficientData = errors.New("insufficient data")
	// ErrDegenerateInput is returned when interpolation nodes coincide or sit
	// so close together that the divided differences overflow.
	ErrDegenerateInput = errors.New("degenerate input")
	// ErrInvalidArgument covers non-positive iteration or interval counts and
	// integration bounds that overflow.
	ErrInvalidArgument = errors.New("invalid argument")
)

func finite(v float64) bool {
	return !math.IsInf(v, 0) && !math.IsNaN(v)
}
