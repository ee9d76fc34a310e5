// Package numwall detects linear recurrences in a sample sequence by
// building its number wall, row by row, from the cross rule
//
//	          [0, 1]
//	   [1, 0] [1, 1] [1, 2]
//	          [2, 1]
//
//	down = (middle^2 - left*right) / top
//
// A sequence satisfying a linear recurrence of order r zeroes every row
// below row r; the surviving bottom row advances by the product of the
// recurrence roots.
package numwall

import (
	"errors"
	"math"
	"math/cmplx"
)

const (
	DefaultDepth = 8

	// Epsilon bounds what counts as a zero cell
	Epsilon = 1e-14

	// cancelTol snaps cross numerators to zero when the subtraction
	// cancelled down to rounding noise, keeping vanished rows exactly
	// zero instead of drifting
	cancelTol = 1e-9
)

var ErrTooShallow = errors.New("numwall: wall needs at least 3 rows")

// Wall holds the computed rows. Row 0 is all ones, row 1 is the input
// sequence. Cells that cannot be computed (edges, division by a zero
// above) hold NaN.
type Wall struct {
	rows [][]complex128
}

// Generate builds a wall of the given depth over the sequence.
func Generate(vals []complex128, depth int) (*Wall, error) {
	if depth < 3 {
		return nil, ErrTooShallow
	}

	width := len(vals)
	rows := make([][]complex128, depth)
	for r := range rows {
		rows[r] = make([]complex128, width)
		for j := range rows[r] {
			switch r {
			case 0:
				rows[r][j] = 1
			case 1:
				rows[r][j] = vals[j]
			default:
				rows[r][j] = cmplx.NaN()
			}
		}
	}

	w := &Wall{rows: rows}
	for r := 0; r+2 < depth; r++ {
		crossDown(rows[r], rows[r+1], rows[r+2])
	}
	return w, nil
}

// FromFloats is a convenience wrapper for real-valued sequences.
func FromFloats(vals []float64) []complex128 {
	cs := make([]complex128, len(vals))
	for i, v := range vals {
		cs[i] = complex(v, 0)
	}
	return cs
}

// down = (middle^2 - left*right) / top
func crossDown(top, mid, down []complex128) {
	for j := 1; j < len(mid)-1; j++ {
		down[j] = crossCell(mid[j]*mid[j], mid[j-1]*mid[j+1], top[j])
	}
}

// CrossRight fills the given column from the two columns to its left:
// right = (middle^2 - top*down) / left. Used to validate a wall built
// with the down cross.
func (w *Wall) CrossRight(col int) {
	for i := 1; i < len(w.rows)-1; i++ {
		mid := w.rows[i][col-1]
		w.rows[i][col] = crossCell(mid*mid, w.rows[i-1][col-1]*w.rows[i+1][col-1], w.rows[i][col-2])
	}
}

func crossCell(sq, prod, div complex128) complex128 {
	num := sq - prod
	if cmplx.Abs(num) <= cancelTol*(cmplx.Abs(sq)+cmplx.Abs(prod)) {
		num = 0
	}
	return num / div
}

// Depth returns the number of rows.
func (w *Wall) Depth() int {
	return len(w.rows)
}

// Row returns the cells of one row.
func (w *Wall) Row(r int) []complex128 {
	return w.rows[r]
}

// Order returns the index of the last row holding a value above
// Epsilon: the order of the linear recurrence the sequence satisfies
// (bounded by the wall depth). Zero means the sequence itself vanishes.
func (w *Wall) Order() int {
	for r := len(w.rows) - 1; r >= 0; r-- {
		if rowMagnitude(w.rows[r]) > Epsilon {
			return r
		}
	}
	return 0
}

// Step returns the mean ratio between neighbour cells of the last
// non-zero row: the product of the recurrence roots, i.e. the dominant
// geometric step of the sequence.
func (w *Wall) Step() complex128 {
	row := w.rows[w.Order()]
	var sum complex128
	var n int
	for j := 0; j+1 < len(row); j++ {
		if !isFinite(row[j]) || !isFinite(row[j+1]) || row[j] == 0 {
			continue
		}
		sum += row[j+1] / row[j]
		n++
	}
	if n == 0 {
		return cmplx.NaN()
	}
	return sum / complex(float64(n), 0)
}

// rowMagnitude ignores edge and blown-up cells
func rowMagnitude(row []complex128) float64 {
	max := 0.0
	for _, v := range row {
		if !isFinite(v) {
			continue
		}
		if m := cmplx.Abs(v); m > max {
			max = m
		}
	}
	return max
}

func isFinite(v complex128) bool {
	return !math.IsNaN(real(v)) && !math.IsNaN(imag(v)) &&
		!math.IsInf(real(v), 0) && !math.IsInf(imag(v), 0)
}
