// Package raster holds the 2D sample arrays that flow through the tile
// pipeline and the sources that decode them from OS Terrain 50 archives.
package raster

import (
	"errors"
	"fmt"
)

// ErrNotRectangular is returned when building an array from ragged rows.
var ErrNotRectangular = errors.New("rows have different lengths")

// Array is a row-major 2D array. An Array may be a view into a larger one:
// Sub returns arrays that share the parent's backing slice, so quadrant
// recursion never copies samples.
type Array[T int32 | uint8] struct {
	Rows, Cols int
	stride     int
	off        int
	data       []T
}

// Grid holds integer heights in metres. Negative values are below sea level.
type Grid = Array[int32]

// Mask holds 0 (sea) / 1 (land) values.
type Mask = Array[uint8]

// New allocates a zeroed rows×cols array.
func New[T int32 | uint8](rows, cols int) Array[T] {
	return Array[T]{Rows: rows, Cols: cols, stride: cols, data: make([]T, rows*cols)}
}

// NewGrid allocates a zeroed height grid.
func NewGrid(rows, cols int) Grid { return New[int32](rows, cols) }

// NewMask allocates an all-sea mask.
func NewMask(rows, cols int) Mask { return New[uint8](rows, cols) }

// FromRows copies nested rows into a new array.
func FromRows[T int32 | uint8](rows [][]T) (Array[T], error) {
	if len(rows) == 0 {
		return Array[T]{}, nil
	}
	a := New[T](len(rows), len(rows[0]))
	for r, row := range rows {
		if len(row) != a.Cols {
			return Array[T]{}, fmt.Errorf("%w: row %d has %d values, want %d", ErrNotRectangular, r, len(row), a.Cols)
		}
		copy(a.data[r*a.stride:], row)
	}
	return a, nil
}

// GridFromInts builds a height grid from plain int rows.
func GridFromInts(rows [][]int) (Grid, error) {
	conv := make([][]int32, len(rows))
	for r, row := range rows {
		conv[r] = make([]int32, len(row))
		for c, v := range row {
			conv[r][c] = int32(v)
		}
	}
	return FromRows(conv)
}

// Empty reports whether the array has no samples.
func (a Array[T]) Empty() bool { return a.Rows <= 0 || a.Cols <= 0 }

// At returns the value at row r, column c.
func (a Array[T]) At(r, c int) T { return a.data[a.off+r*a.stride+c] }

// Set stores v at row r, column c. Views write through to their parent.
func (a Array[T]) Set(r, c int, v T) { a.data[a.off+r*a.stride+c] = v }

// Row returns row r as a slice aliasing the array's storage.
func (a Array[T]) Row(r int) []T {
	start := a.off + r*a.stride
	return a.data[start : start+a.Cols : start+a.Cols]
}

// Sub returns a rows×cols view whose top-left sample is (r0, c0).
func (a Array[T]) Sub(r0, c0, rows, cols int) Array[T] {
	if r0 < 0 || c0 < 0 || rows < 0 || cols < 0 || r0+rows > a.Rows || c0+cols > a.Cols {
		panic(fmt.Sprintf("raster: sub-view [%d:%d, %d:%d] out of %dx%d", r0, r0+rows, c0, c0+cols, a.Rows, a.Cols))
	}
	return Array[T]{Rows: rows, Cols: cols, stride: a.stride, off: a.off + r0*a.stride + c0, data: a.data}
}

// Fill sets every sample in the array (or view) to v.
func (a Array[T]) Fill(v T) {
	for r := 0; r < a.Rows; r++ {
		row := a.Row(r)
		for c := range row {
			row[c] = v
		}
	}
}

// Clone returns a compact copy that shares nothing with a.
func (a Array[T]) Clone() Array[T] {
	out := New[T](a.Rows, a.Cols)
	for r := 0; r < a.Rows; r++ {
		copy(out.data[r*out.stride:], a.Row(r))
	}
	return out
}

// FlipVertical returns a copy with the row order reversed.
func (a Array[T]) FlipVertical() Array[T] {
	out := New[T](a.Rows, a.Cols)
	for r := 0; r < a.Rows; r++ {
		copy(out.data[(a.Rows-1-r)*out.stride:], a.Row(r))
	}
	return out
}

// MinMax returns the smallest and largest values. Both are zero for an
// empty array.
func (a Array[T]) MinMax() (lo, hi T) {
	if a.Empty() {
		return
	}
	lo, hi = a.At(0, 0), a.At(0, 0)
	for r := 0; r < a.Rows; r++ {
		for _, v := range a.Row(r) {
			lo = min(lo, v)
			hi = max(hi, v)
		}
	}
	return
}

// Equal reports whether a and b have the same shape and values.
func (a Array[T]) Equal(b Array[T]) bool {
	if a.Rows != b.Rows || a.Cols != b.Cols {
		return false
	}
	for r := 0; r < a.Rows; r++ {
		ra, rb := a.Row(r), b.Row(r)
		for c := range ra {
			if ra[c] != rb[c] {
				return false
			}
		}
	}
	return true
}

// Ints returns the array as nested int slices, the shape stored in tile
// records.
func (a Array[T]) Ints() [][]int {
	out := make([][]int, a.Rows)
	for r := 0; r < a.Rows; r++ {
		row := a.Row(r)
		out[r] = make([]int, len(row))
		for c, v := range row {
			out[r][c] = int(v)
		}
	}
	return out
}
