// Package numeric holds the numerical methods behind the advisor: a bounded
// Newton–Raphson root finder, Newton divided-difference interpolation and the
// composite trapezoidal rule. Everything here is pure and allocation-light.
package numeric

import (
	"fmt"
	"math"
	"time"
)

// Func is a real-valued function of one variable.
type Func func(x float64) float64

const (
	DefaultTolerance     = 1e-4
	DefaultMaxIterations = 100
	// DerivativeStep is the half-width of the central difference.
	DerivativeStep = 1e-3
)

// Termination records why the root finder stopped.
type Termination string

const (
	TerminationConverged          Termination = "converged"
	TerminationDerivativeVanished Termination = "derivative_vanished"
	TerminationMaxIterations      Termination = "max_iterations"
)

// Step is one Newton iteration, kept for diagnostics.
type Step struct {
	Iteration int     `json:"iteration"`
	X         float64 `json:"x"`
	FX        float64 `json:"fx"`
	FPrime    float64 `json:"fprime"`
	XNext     float64 `json:"x_next"`
}

// NewtonOptions configures NewtonRaphson. When Bounded is set the iterate is
// clamped into [Lower, Upper] after every step.
type NewtonOptions struct {
	Tolerance     float64
	MaxIterations int
	Bounded       bool
	Lower         float64
	Upper         float64
}

// NewtonResult is the outcome of a root search. Non-convergence is reported
// through Termination, not as an error.
type NewtonResult struct {
	Root        float64       `json:"root"`
	Iterations  int           `json:"iterations"`
	Steps       []Step        `json:"steps"`
	Termination Termination   `json:"termination"`
	Elapsed     time.Duration `json:"elapsed_ns"`
}

// Converged reports whether the last step fell below tolerance.
func (r NewtonResult) Converged() bool {
	return r.Termination == TerminationConverged
}

// UnitInterval bounds the search to probabilities.
func UnitInterval(tolerance float64, maxIterations int) NewtonOptions {
	return NewtonOptions{Tolerance: tolerance, MaxIterations: maxIterations, Bounded: true, Lower: 0, Upper: 1}
}

// DefaultNewtonOptions is UnitInterval with the default tolerance and
// iteration cap.
func DefaultNewtonOptions() NewtonOptions {
	return UnitInterval(DefaultTolerance, DefaultMaxIterations)
}

// CentralDifference approximates f'(x) with step h.
func CentralDifference(f Func, x, h float64) float64 {
	return (f(x+h) - f(x-h)) / (2 * h)
}

// NewtonRaphson searches for a root of f starting from x0.
//
// Each iteration stops early when |f'(x)| falls below the tolerance (the
// derivative has vanished) or when the proposed step is shorter than the
// tolerance. In the latter case the returned root is the iterate the step
// was taken from. Iterations counts the iteration on which the loop stopped,
// or MaxIterations when it ran out.
func NewtonRaphson(f Func, x0 float64, opts NewtonOptions) (NewtonResult, error) {
	if !(opts.Tolerance > 0) {
		return NewtonResult{}, fmt.Errorf("%w: tolerance %v", ErrInvalidArgument, opts.Tolerance)
	}
	if opts.MaxIterations <= 0 {
		return NewtonResult{}, fmt.Errorf("%w: max iterations %d", ErrInvalidArgument, opts.MaxIterations)
	}
	if opts.Bounded && opts.Upper < opts.Lower {
		return NewtonResult{}, fmt.Errorf("%w: bounds [%v, %v]", ErrInvalidArgument, opts.Lower, opts.Upper)
	}

	start := time.Now()
	res := NewtonResult{
		Termination: TerminationMaxIterations,
		Iterations:  opts.MaxIterations,
		Steps:       make([]Step, 0, 8),
	}

	x := opts.clamp(x0)
	for i := 0; i < opts.MaxIterations; i++ {
		fx := f(x)
		fpx := CentralDifference(f, x, DerivativeStep)

		if math.Abs(fpx) < opts.Tolerance {
			res.Termination = TerminationDerivativeVanished
			res.Iterations = i + 1
			break
		}

		next := x - fx/fpx
		res.Steps = append(res.Steps, Step{Iteration: i + 1, X: x, FX: fx, FPrime: fpx, XNext: next})

		if math.Abs(next-x) < opts.Tolerance {
			res.Termination = TerminationConverged
			res.Iterations = i + 1
			break
		}
		x = opts.clamp(next)
	}

	res.Root = x
	res.Elapsed = time.Since(start)
	return res, nil
}

func (o NewtonOptions) clamp(x float64) float64 {
	if !o.Bounded {
		return x
	}
	return math.Max(o.Lower, math.Min(o.Upper, x))
}
