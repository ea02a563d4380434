// Package outline holds the country polygon that rasters are classified
// against, in national grid metres.
//
// An Outline is immutable after construction and safe for concurrent use by
// any number of classifiers.
package outline

import (
	"errors"
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// ErrNotPolygonal is returned for geometries without area.
var ErrNotPolygonal = errors.New("outline geometry is not a polygon or multipolygon")

// edgeChunk groups consecutive ring edges under one bounding box so that
// rectangle tests can skip most of a long coastline at once.
type edgeChunk struct {
	bound orb.Bound
	pts   []orb.Point // pts[i]-pts[i+1] are the edges
}

const chunkEdges = 64

// Outline is a prepared country polygon.
type Outline struct {
	polys  orb.MultiPolygon
	bound  orb.Bound
	chunks []edgeChunk
}

// New prepares a Polygon or MultiPolygon for repeated relationship tests.
func New(g orb.Geometry) (*Outline, error) {
	var mp orb.MultiPolygon
	switch geom := g.(type) {
	case orb.Polygon:
		mp = orb.MultiPolygon{geom}
	case orb.MultiPolygon:
		mp = geom
	case orb.Bound:
		mp = orb.MultiPolygon{geom.ToPolygon()}
	default:
		return nil, fmt.Errorf("%w: %T", ErrNotPolygonal, g)
	}

	o := &Outline{polys: make(orb.MultiPolygon, 0, len(mp))}
	for _, p := range mp {
		if len(p) == 0 || len(p[0]) < 3 {
			continue
		}
		o.polys = append(o.polys, p)
	}
	if len(o.polys) == 0 {
		return nil, fmt.Errorf("%w: no rings", ErrNotPolygonal)
	}
	o.bound = o.polys.Bound()

	for _, p := range o.polys {
		for _, ring := range p {
			o.addRing(ring)
		}
	}
	return o, nil
}

func (o *Outline) addRing(ring orb.Ring) {
	pts := []orb.Point(ring)
	if len(pts) > 0 && pts[0] != pts[len(pts)-1] {
		pts = append(append([]orb.Point(nil), pts...), pts[0])
	}
	for start := 0; start < len(pts)-1; start += chunkEdges {
		end := min(start+chunkEdges, len(pts)-1)
		seg := pts[start : end+1]
		o.chunks = append(o.chunks, edgeChunk{bound: orb.MultiPoint(seg).Bound(), pts: seg})
	}
}

// Bound returns the outline's bounding box.
func (o *Outline) Bound() orb.Bound { return o.bound }

// Geometry returns the underlying polygons. Callers must not modify them.
func (o *Outline) Geometry() orb.MultiPolygon { return o.polys }

// ContainsPoint reports whether p lies inside the outline.
func (o *Outline) ContainsPoint(p orb.Point) bool {
	if !o.bound.Contains(p) {
		return false
	}
	return planar.MultiPolygonContains(o.polys, p)
}

// ContainsBound reports whether the closed rectangle b lies inside the
// outline without touching its boundary. Rectangles that only touch the
// coastline report false.
func (o *Outline) ContainsBound(b orb.Bound) bool {
	if !boundWithin(b, o.bound) {
		return false
	}
	if o.boundaryTouches(b) {
		return false
	}
	// The boundary misses b entirely, so b is wholly inside or wholly
	// outside; its centre decides which.
	return planar.MultiPolygonContains(o.polys, b.Center())
}

// IntersectsBound reports whether the closed rectangle b shares any point
// with the outline.
func (o *Outline) IntersectsBound(b orb.Bound) bool {
	if !o.bound.Intersects(b) {
		return false
	}
	if o.boundaryTouches(b) {
		return true
	}
	return planar.MultiPolygonContains(o.polys, b.Center())
}

// Disjoint is the negation of IntersectsBound.
func (o *Outline) Disjoint(b orb.Bound) bool { return !o.IntersectsBound(b) }

func (o *Outline) boundaryTouches(b orb.Bound) bool {
	for _, ch := range o.chunks {
		if !ch.bound.Intersects(b) {
			continue
		}
		for i := 0; i+1 < len(ch.pts); i++ {
			if segmentTouchesBound(ch.pts[i], ch.pts[i+1], b) {
				return true
			}
		}
	}
	return false
}

func boundWithin(inner, outer orb.Bound) bool {
	return inner.Min[0] >= outer.Min[0] && inner.Min[1] >= outer.Min[1] &&
		inner.Max[0] <= outer.Max[0] && inner.Max[1] <= outer.Max[1]
}

// segmentTouchesBound clips segment a-b against the closed rectangle using
// Liang–Barsky and reports whether anything remains.
func segmentTouchesBound(a, b orb.Point, r orb.Bound) bool {
	dx, dy := b[0]-a[0], b[1]-a[1]
	t0, t1 := 0.0, 1.0
	clip := func(p, q float64) bool {
		if p == 0 {
			return q >= 0
		}
		t := q / p
		if p < 0 {
			if t > t1 {
				return false
			}
			t0 = max(t0, t)
		} else {
			if t < t0 {
				return false
			}
			t1 = min(t1, t)
		}
		return true
	}
	return clip(-dx, a[0]-r.Min[0]) &&
		clip(dx, r.Max[0]-a[0]) &&
		clip(-dy, a[1]-r.Min[1]) &&
		clip(dy, r.Max[1]-a[1])
}
