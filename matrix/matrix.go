// Package matrix provides column statistics of error matrices whose rows are
// simulation steps and whose columns are filter variants.
package matrix

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// ColSums returns a slice containing m column sums.
// It panics if m is nil.
func ColSums(m *mat.Dense) []float64 {
	_, cols := m.Dims()
	sum := make([]float64, cols)

	for i := 0; i < cols; i++ {
		sum[i] = mat.Sum(m.ColView(i))
	}

	return sum
}

// ColRMS returns a slice containing root mean square of m columns.
// It panics if m is nil.
func ColRMS(m *mat.Dense) []float64 {
	rows, cols := m.Dims()
	rms := make([]float64, cols)

	col := make([]float64, rows)
	for i := 0; i < cols; i++ {
		mat.Col(col, i, m)
		rms[i] = math.Sqrt(floats.Dot(col, col) / float64(rows))
	}

	return rms
}

// ColMax returns a slice containing maximum values of m columns.
// It panics if m is nil.
func ColMax(m *mat.Dense) []float64 {
	rows, cols := m.Dims()
	mx := make([]float64, cols)

	col := make([]float64, rows)
	for i := 0; i < cols; i++ {
		mat.Col(col, i, m)
		mx[i] = floats.Max(col)
	}

	return mx
}

// Rows returns a view of m rows in range [from, to).
// Range is clamped to valid rows; ok is false if it is empty.
func Rows(m *mat.Dense, from, to int) (view *mat.Dense, ok bool) {
	rows, cols := m.Dims()
	if from < 0 {
		from = 0
	}
	if to > rows {
		to = rows
	}
	if from >= to {
		return nil, false
	}

	return m.Slice(from, to, 0, cols).(*mat.Dense), true
}
