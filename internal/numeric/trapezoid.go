package numeric

import (
	"fmt"
	"time"
)

// DefaultIntervals is the subdivision count used when callers have no
// preference.
const DefaultIntervals = 100

// QuadratureResult is the outcome of a trapezoidal integration.
type QuadratureResult struct {
	Integral  float64       `json:"integral"`
	StepSize  float64       `json:"step_size"`
	Intervals int           `json:"intervals"`
	Elapsed   time.Duration `json:"elapsed_ns"`
}

// Trapezoid integrates f over [a, b] with the composite trapezoidal rule on n
// equal subintervals. The error is O(1/n²) for smooth f. a > b yields the
// negated integral. Bounds or integrands that overflow return
// ErrInvalidArgument.
func Trapezoid(f Func, a, b float64, n int) (QuadratureResult, error) {
	if n <= 0 {
		return QuadratureResult{}, fmt.Errorf("%w: interval count %d", ErrInvalidArgument, n)
	}

	start := time.Now()
	h := (b - a) / float64(n)
	if !finite(h) {
		return QuadratureResult{}, fmt.Errorf("%w: bounds [%v, %v] overflow the step size", ErrInvalidArgument, a, b)
	}
	sum := (f(a) + f(b)) / 2
	for i := 1; i < n; i++ {
		sum += f(a + float64(i)*h)
	}
	integral := sum * h
	if !finite(integral) {
		return QuadratureResult{}, fmt.Errorf("%w: integral over [%v, %v] is not finite", ErrInvalidArgument, a, b)
	}

	return QuadratureResult{
		Integral:  integral,
		StepSize:  h,
		Intervals: n,
		Elapsed:   time.Since(start),
	}, nil
}
