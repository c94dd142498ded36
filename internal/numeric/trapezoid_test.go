package numeric

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/integrate"
	"gonum.org/v1/gonum/stat/distuv"
)

func TestTrapezoidExactForLinear(t *testing.T) {
	res, err := Trapezoid(func(x float64) float64 { return 4*x - 1 }, 0, 2, 3)
	require.NoError(t, err)
	assert.InDelta(t, 6.0, res.Integral, 1e-12)
	assert.InDelta(t, 2.0/3, res.StepSize, 1e-12)
	assert.Equal(t, 3, res.Intervals)
}

func TestTrapezoidMatchesGonum(t *testing.T) {
	f := func(x float64) float64 { return math.Exp(-x) * math.Sin(3*x) }
	const n = 64
	xs := make([]float64, n+1)
	ys := make([]float64, n+1)
	for i := range xs {
		xs[i] = float64(i) / n
		ys[i] = f(xs[i])
	}
	res, err := Trapezoid(f, 0, 1, n)
	require.NoError(t, err)
	assert.InDelta(t, integrate.Trapezoidal(xs, ys), res.Integral, 1e-12)
}

func TestTrapezoidErrorShrinksQuadratically(t *testing.T) {
	square := func(x float64) float64 { return x * x }
	exact := 1.0 / 3

	coarse, err := Trapezoid(square, 0, 1, 50)
	require.NoError(t, err)
	fine, err := Trapezoid(square, 0, 1, 100)
	require.NoError(t, err)

	ratio := math.Abs(coarse.Integral-exact) / math.Abs(fine.Integral-exact)
	assert.InDelta(t, 4.0, ratio, 0.01)
}

func TestTrapezoidNormalDensity(t *testing.T) {
	norm := distuv.Normal{Mu: 0.5, Sigma: 0.2}
	res, err := Trapezoid(norm.Prob, -1.5, 2.5, 400)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, res.Integral, 1e-6)
}

func TestTrapezoidReversedBounds(t *testing.T) {
	res, err := Trapezoid(func(x float64) float64 { return x }, 1, 0, 10)
	require.NoError(t, err)
	assert.InDelta(t, -0.5, res.Integral, 1e-12)
}

func TestTrapezoidInvalidIntervals(t *testing.T) {
	for _, n := range []int{0, -1} {
		_, err := Trapezoid(math.Sin, 0, 1, n)
		assert.ErrorIs(t, err, ErrInvalidArgument)
	}
}

func TestTrapezoidRejectsOverflow(t *testing.T) {
	_, err := Trapezoid(func(x float64) float64 { return 0 }, -1e308, 1e308, 100)
	assert.ErrorIs(t, err, ErrInvalidArgument)

	_, err = Trapezoid(func(x float64) float64 { return 1e308 }, 0, 10, 10)
	assert.ErrorIs(t, err, ErrInvalidArgument)
}
