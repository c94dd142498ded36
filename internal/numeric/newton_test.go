package numeric

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewtonRaphsonConverges(t *testing.T) {
	tests := []struct {
		name string
		f    Func
		x0   float64
		root float64
	}{
		{"quadratic in unit interval", func(x float64) float64 { return x*x - 0.25 }, 0.9, 0.5},
		{"linear", func(x float64) float64 { return 3*x - 1 }, 0.0, 1.0 / 3},
		{"cosine fixed point", func(x float64) float64 { return math.Cos(x) - x }, 0.5, 0.7390851332},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := NewtonRaphson(tt.f, tt.x0, DefaultNewtonOptions())
			require.NoError(t, err)
			assert.True(t, res.Converged())
			assert.InDelta(t, tt.root, res.Root, 1e-3)
			assert.LessOrEqual(t, res.Iterations, DefaultMaxIterations)
			assert.NotEmpty(t, res.Steps)
			assert.Equal(t, tt.x0, res.Steps[0].X)
			assert.Equal(t, len(res.Steps), res.Iterations)
		})
	}
}

func TestNewtonRaphsonDerivativeVanishes(t *testing.T) {
	flat := func(float64) float64 { return 0.3 }
	res, err := NewtonRaphson(flat, 0.7, DefaultNewtonOptions())
	require.NoError(t, err)
	assert.Equal(t, TerminationDerivativeVanished, res.Termination)
	assert.Equal(t, 1, res.Iterations)
	assert.Empty(t, res.Steps)
	assert.Equal(t, 0.7, res.Root, "root stays at the starting point")
}

func TestNewtonRaphsonClampsStartingPoint(t *testing.T) {
	flat := func(float64) float64 { return 1 }
	res, err := NewtonRaphson(flat, 3, DefaultNewtonOptions())
	require.NoError(t, err)
	assert.Equal(t, 1.0, res.Root)
}

func TestNewtonRaphsonStaysInBounds(t *testing.T) {
	// Root at 2 lies outside the unit interval; every iterate is clamped.
	f := func(x float64) float64 { return x - 2 }
	res, err := NewtonRaphson(f, 0.5, DefaultNewtonOptions())
	require.NoError(t, err)
	assert.GreaterOrEqual(t, res.Root, 0.0)
	assert.LessOrEqual(t, res.Root, 1.0)
}

func TestNewtonRaphsonExhaustsIterations(t *testing.T) {
	// Newton on the cube root doubles the distance from zero each step.
	opts := NewtonOptions{Tolerance: DefaultTolerance, MaxIterations: 10}
	res, err := NewtonRaphson(math.Cbrt, 1, opts)
	require.NoError(t, err)
	assert.Equal(t, TerminationMaxIterations, res.Termination)
	assert.Equal(t, 10, res.Iterations)
	assert.Len(t, res.Steps, 10)
	assert.False(t, res.Converged())
}

func TestNewtonRaphsonInvalidArguments(t *testing.T) {
	f := func(x float64) float64 { return x }
	tests := []struct {
		name string
		opts NewtonOptions
	}{
		{"zero iterations", UnitInterval(DefaultTolerance, 0)},
		{"negative iterations", UnitInterval(DefaultTolerance, -3)},
		{"zero tolerance", UnitInterval(0, 10)},
		{"NaN tolerance", UnitInterval(math.NaN(), 10)},
		{"inverted bounds", NewtonOptions{Tolerance: 1e-4, MaxIterations: 5, Bounded: true, Lower: 1, Upper: 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewtonRaphson(f, 0.5, tt.opts)
			assert.ErrorIs(t, err, ErrInvalidArgument)
		})
	}
}

func TestCentralDifference(t *testing.T) {
	assert.InDelta(t, 2.0, CentralDifference(func(x float64) float64 { return x * x }, 1, DerivativeStep), 1e-9)
	assert.InDelta(t, 0.0, CentralDifference(func(float64) float64 { return 5 }, 1, DerivativeStep), 1e-12)
}
