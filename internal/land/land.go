// Package land decides which samples of a height raster are land and which
// are sea.
//
// Blocks of samples are resolved as cheaply as possible: by height alone,
// then by rectangle-versus-outline tests, and only where a block straddles
// the coastline by testing individual cell centres. Interior land and open
// sea are settled after a handful of geometry calls per tile.
package land

import (
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/paulmach/orb"

	"github.com/pspoerri/asc2tiles/internal/raster"
)

// ErrInputInvalid is returned for rasters the classifier cannot work on.
// Inside the tile pipeline it signals a broken invariant, not bad data.
var ErrInputInvalid = errors.New("classification input invalid")

const (
	// SeaLevel is the height threshold. Heights strictly above are land
	// candidates and strictly below are sea candidates; exactly SeaLevel
	// is decided by geometry.
	SeaLevel = 0

	// leafSize is the block edge at or below which samples are tested
	// one by one.
	leafSize = 4
)

// Geometry answers the relationship questions the classifier asks of the
// country outline. Implementations must be safe for concurrent use.
type Geometry interface {
	// ContainsBound reports whether the rectangle lies wholly inside.
	// False negatives are allowed; false positives are not.
	ContainsBound(b orb.Bound) bool
	// IntersectsBound reports whether the rectangle shares any point with
	// the outline. False positives are allowed; false negatives are not.
	IntersectsBound(b orb.Bound) bool
	// ContainsPoint is the exact per-sample test.
	ContainsPoint(p orb.Point) bool
}

// Classify returns a land mask the shape of g. origin is the projected
// position of g's north-west corner (row 0 is the northern edge) and spacing
// the sample size in metres.
func Classify(g raster.Grid, origin orb.Point, spacing float64, geom Geometry) (raster.Mask, error) {
	if err := validate(g, spacing); err != nil {
		return raster.Mask{}, err
	}
	mask := raster.NewMask(g.Rows, g.Cols)
	c := classifier{geom: geom, spacing: spacing}
	c.block(g, mask, origin[0], origin[1])
	return mask, nil
}

// ClassifyBruteForce tests the centre of every sample against the outline.
// It defines the result Classify must reproduce.
func ClassifyBruteForce(g raster.Grid, origin orb.Point, spacing float64, geom Geometry) (raster.Mask, error) {
	if err := validate(g, spacing); err != nil {
		return raster.Mask{}, err
	}
	mask := raster.NewMask(g.Rows, g.Cols)
	c := classifier{geom: geom, spacing: spacing}
	c.leaf(mask, origin[0], origin[1])
	return mask, nil
}

func validate(g raster.Grid, spacing float64) error {
	if g.Empty() {
		return fmt.Errorf("%w: empty raster %dx%d", ErrInputInvalid, g.Rows, g.Cols)
	}
	if spacing <= 0 {
		return fmt.Errorf("%w: spacing %v", ErrInputInvalid, spacing)
	}
	return nil
}

type classifier struct {
	geom    Geometry
	spacing float64
}

// block classifies the view h into the same-shaped view m. (left, top) is
// the north-west corner of the block.
func (c *classifier) block(h raster.Grid, m raster.Mask, left, top float64) {
	lo, hi := h.MinMax()
	if lo > SeaLevel {
		m.Fill(1)
		return
	}

	rows, cols := h.Rows, h.Cols
	b := orb.Bound{
		Min: orb.Point{left, top - c.spacing*float64(rows)},
		Max: orb.Point{left + c.spacing*float64(cols), top},
	}
	if c.geom.ContainsBound(b) {
		m.Fill(1)
		return
	}
	if hi < SeaLevel && !c.geom.IntersectsBound(b) {
		return // masks start as sea
	}

	if rows > leafSize && cols > leafSize {
		ys, xs := rows/2, cols/2
		dx, dy := float64(xs)*c.spacing, float64(ys)*c.spacing
		c.block(h.Sub(0, 0, ys, xs), m.Sub(0, 0, ys, xs), left, top)
		c.block(h.Sub(0, xs, ys, cols-xs), m.Sub(0, xs, ys, cols-xs), left+dx, top)
		c.block(h.Sub(ys, 0, rows-ys, xs), m.Sub(ys, 0, rows-ys, xs), left, top-dy)
		c.block(h.Sub(ys, xs, rows-ys, cols-xs), m.Sub(ys, xs, rows-ys, cols-xs), left+dx, top-dy)
		return
	}

	c.leaf(m, left, top)
}

func (c *classifier) leaf(m raster.Mask, left, top float64) {
	for y := 0; y < m.Rows; y++ {
		for x := 0; x < m.Cols; x++ {
			p := orb.Point{
				left + c.spacing*(float64(x)+0.5),
				top - c.spacing*(float64(y)+0.5),
			}
			if c.geom.ContainsPoint(p) {
				m.Set(y, x, 1)
			} else {
				m.Set(y, x, 0)
			}
		}
	}
}

// IsAllSea reports whether m has no land samples.
func IsAllSea(m raster.Mask) bool {
	_, hi := m.MinMax()
	return hi == 0
}

// CountingGeometry wraps a Geometry and counts calls by kind.
type CountingGeometry struct {
	Geometry
	contains   atomic.Int64
	intersects atomic.Int64
	points     atomic.Int64
}

// Counts returns the number of ContainsBound, IntersectsBound and
// ContainsPoint calls made so far.
func (g *CountingGeometry) Counts() (contains, intersects, points int64) {
	return g.contains.Load(), g.intersects.Load(), g.points.Load()
}

func (g *CountingGeometry) ContainsBound(b orb.Bound) bool {
	g.contains.Add(1)
	return g.Geometry.ContainsBound(b)
}

func (g *CountingGeometry) IntersectsBound(b orb.Bound) bool {
	g.intersects.Add(1)
	return g.Geometry.IntersectsBound(b)
}

func (g *CountingGeometry) ContainsPoint(p orb.Point) bool {
	g.points.Add(1)
	return g.Geometry.ContainsPoint(p)
}
