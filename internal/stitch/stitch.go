// Package stitch extends a tile's raster with the edge samples of the tiles
// to its east, north and north-east, so adjacent tiles share a seam instead
// of leaving a gap between them.
package stitch

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/pspoerri/asc2tiles/internal/gridref"
	"github.com/pspoerri/asc2tiles/internal/raster"
)

// ErrEmptyRaster is returned when asked to stitch a raster with no samples.
var ErrEmptyRaster = errors.New("cannot stitch an empty raster")

// Stitcher borrows border samples from neighboring tiles.
type Stitcher struct {
	src    raster.Source
	logger *zap.Logger
}

// New creates a Stitcher reading neighbors from src. A nil logger discards
// output.
func New(src raster.Source, logger *zap.Logger) *Stitcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Stitcher{src: src, logger: logger}
}

// Stitch returns a (rows+1)×(cols+1) copy of g, a north-row-first raster
// for the 10 km square ref:
//
//   - the new right column is the east neighbor's left column, or a copy of
//     g's right column;
//   - the new top row is the north neighbor's bottom row plus its last
//     value, or a copy of the new (already widened) top row;
//   - the new top-right corner is the north-east neighbor's bottom-left
//     sample when that tile exists.
//
// Missing neighbors are never an error. g is not modified.
func (s *Stitcher) Stitch(g raster.Grid, ref string) (raster.Grid, error) {
	if g.Empty() {
		return raster.Grid{}, fmt.Errorf("%w: %s", ErrEmptyRaster, ref)
	}
	rows, cols := g.Rows, g.Cols

	right, hasRight, err := s.neighborOr(ref, 1, 0, func(n raster.Grid) bool { return !n.Empty() && n.Rows == rows })
	if err != nil {
		return raster.Grid{}, err
	}
	top, hasTop, err := s.neighborOr(ref, 0, 1, func(n raster.Grid) bool { return !n.Empty() && n.Cols == cols })
	if err != nil {
		return raster.Grid{}, err
	}
	topRight, hasTopRight, err := s.neighborOr(ref, 1, 1, func(n raster.Grid) bool { return !n.Empty() })
	if err != nil {
		return raster.Grid{}, err
	}

	out := raster.NewGrid(rows+1, cols+1)
	for r := 0; r < rows; r++ {
		dst := out.Row(r + 1)
		copy(dst, g.Row(r))
		if hasRight {
			dst[cols] = right.At(r, 0)
		} else {
			dst[cols] = g.At(r, cols-1)
		}
	}

	if hasTop {
		bottom := top.Row(top.Rows - 1)
		dst := out.Row(0)
		copy(dst, bottom)
		dst[cols] = bottom[cols-1]
	} else {
		copy(out.Row(0), out.Row(1))
	}

	if hasTopRight {
		out.Set(0, cols, topRight.At(topRight.Rows-1, 0))
	}
	return out, nil
}

// neighborOr fetches the tile dx squares east and dy squares north of ref.
// It reports false when the tile is absent or its shape is unusable, in
// which case the caller falls back to duplicating its own edge.
func (s *Stitcher) neighborOr(ref string, dx, dy int, usable func(raster.Grid) bool) (raster.Grid, bool, error) {
	id, err := gridref.Neighbor(ref, dx, dy)
	if errors.Is(err, gridref.ErrOutOfRange) {
		// Off the edge of the national grid: nothing to borrow.
		return raster.Grid{}, false, nil
	}
	if err != nil {
		return raster.Grid{}, false, fmt.Errorf("neighbor of %s: %w", ref, err)
	}

	n, err := s.src.Decode(id)
	if errors.Is(err, raster.ErrSourceDataAbsent) {
		return raster.Grid{}, false, nil
	}
	if err != nil {
		return raster.Grid{}, false, fmt.Errorf("decoding neighbor %s of %s: %w", id, ref, err)
	}
	if !usable(n) {
		s.logger.Debug("ignoring neighbor with mismatched shape",
			zap.String("tile", ref),
			zap.String("neighbor", id),
			zap.Int("rows", n.Rows),
			zap.Int("cols", n.Cols))
		return raster.Grid{}, false, nil
	}
	return n, true, nil
}
