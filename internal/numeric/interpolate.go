package numeric

import (
	"fmt"
	"time"
)

// Point is an interpolation node.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// InterpolationResult carries the interpolated value and the full
// divided-difference table. Table[i][j] is the j-th order difference starting
// at node i; only entries with i+j < n are meaningful.
type InterpolationResult struct {
	Value   float64       `json:"value"`
	Table   [][]float64   `json:"table"`
	Elapsed time.Duration `json:"elapsed_ns"`
}

// DividedDifferences builds Newton's divided-difference table.
func DividedDifferences(points []Point) ([][]float64, error) {
	n := len(points)
	if n < 2 {
		return nil, fmt.Errorf("%w: need at least 2 points, got %d", ErrInsufficientData, n)
	}
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			if points[i].X == points[j].X {
				return nil, fmt.Errorf("%w: duplicate node x=%v at %d and %d", ErrDegenerateInput, points[i].X, i, j)
			}
		}
	}

	table := make([][]float64, n)
	for i := range table {
		table[i] = make([]float64, n)
		table[i][0] = points[i].Y
	}
	for j := 1; j < n; j++ {
		for i := 0; i < n-j; i++ {
			table[i][j] = (table[i+1][j-1] - table[i][j-1]) / (points[i+j].X - points[i].X)
			if !finite(table[i][j]) {
				return nil, fmt.Errorf("%w: divided difference of order %d at node %d is not finite", ErrDegenerateInput, j, i)
			}
		}
	}
	return table, nil
}

// Interpolate evaluates the Newton-form polynomial through points at target.
// The polynomial is exact for data sampled from any polynomial of degree < n.
func Interpolate(points []Point, target float64) (InterpolationResult, error) {
	start := time.Now()
	table, err := DividedDifferences(points)
	if err != nil {
		return InterpolationResult{}, err
	}

	value := table[0][0]
	product := 1.0
	for j := 1; j < len(points); j++ {
		product *= target - points[j-1].X
		value += table[0][j] * product
	}
	if !finite(value) {
		return InterpolationResult{}, fmt.Errorf("%w: interpolated value at %v is not finite", ErrDegenerateInput, target)
	}

	return InterpolationResult{
		Value:   value,
		Table:   table,
		Elapsed: time.Since(start),
	}, nil
}
