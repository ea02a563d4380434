package coord

import "sort"

// xyToHilbert converts (x, y) to a Hilbert curve index for an n x n grid.
// n must be a power of two.
func xyToHilbert(x, y, n uint64) uint64 {
	var d uint64
	s := n / 2
	for s > 0 {
		var rx, ry uint64
		if (x & s) > 0 {
			rx = 1
		}
		if (y & s) > 0 {
			ry = 1
		}
		d += s * s * ((3 * rx) ^ ry)
		// Rotate quadrant.
		if ry == 0 {
			if rx == 1 {
				x = s*2 - 1 - x
				y = s*2 - 1 - y
			}
			x, y = y, x
		}
		s /= 2
	}
	return d
}

// SortByHilbert orders items along a Hilbert curve over the non-negative
// grid cells returned by cell. Squares that touch each other end up close
// together in the result, so workers pulling from a shared queue tend to
// find neighboring rasters already cached.
//
// The sort is stable for items mapping to the same cell.
func SortByHilbert[T any](items []T, cell func(T) (x, y int)) {
	if len(items) <= 1 {
		return
	}

	cells := make([][2]uint64, len(items))
	var maxCoord uint64
	for i, it := range items {
		x, y := cell(it)
		if x < 0 {
			x = 0
		}
		if y < 0 {
			y = 0
		}
		cells[i] = [2]uint64{uint64(x), uint64(y)}
		maxCoord = max(maxCoord, uint64(x), uint64(y))
	}

	n := uint64(1)
	for n <= maxCoord {
		n <<= 1
	}

	// Precompute Hilbert indices so each value is computed once (O(n))
	// rather than on every comparison (O(n log n) times).
	indices := make([]uint64, len(items))
	for i, c := range cells {
		indices[i] = xyToHilbert(c[0], c[1], n)
	}

	sort.Stable(hilbertSorter[T]{items: items, indices: indices})
}

type hilbertSorter[T any] struct {
	items   []T
	indices []uint64
}

func (s hilbertSorter[T]) Len() int           { return len(s.items) }
func (s hilbertSorter[T]) Less(i, j int) bool { return s.indices[i] < s.indices[j] }
func (s hilbertSorter[T]) Swap(i, j int) {
	s.items[i], s.items[j] = s.items[j], s.items[i]
	s.indices[i], s.indices[j] = s.indices[j], s.indices[i]
}
