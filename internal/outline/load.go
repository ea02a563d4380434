package outline

import (
	"fmt"
	"os"
	"sync"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/project"

	"github.com/pspoerri/asc2tiles/internal/coord"
)

// NationalGridEPSG is the working coordinate system of all outlines.
const NationalGridEPSG = 27700

// Load reads a GeoJSON file (FeatureCollection, Feature or bare geometry)
// and prepares the first polygonal geometry it contains, reprojected from
// srcEPSG into national grid metres.
func Load(path string, srcEPSG int) (*Outline, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading outline %s: %w", path, err)
	}
	g, err := firstPolygonal(data)
	if err != nil {
		return nil, fmt.Errorf("outline %s: %w", path, err)
	}
	g, err = Reproject(g, srcEPSG)
	if err != nil {
		return nil, fmt.Errorf("outline %s: %w", path, err)
	}
	return New(g)
}

// Reproject converts g from srcEPSG into national grid metres. Only WGS84
// and the national grid itself are supported sources.
func Reproject(g orb.Geometry, srcEPSG int) (orb.Geometry, error) {
	if srcEPSG == NationalGridEPSG {
		return g, nil
	}
	src := coord.ForEPSG(srcEPSG)
	if src == nil {
		return nil, fmt.Errorf("unsupported EPSG code: %d", srcEPSG)
	}
	dst := coord.ForEPSG(NationalGridEPSG)
	return project.Geometry(orb.Clone(g), func(p orb.Point) orb.Point {
		lon, lat := src.ToWGS84(p[0], p[1])
		x, y := dst.FromWGS84(lon, lat)
		return orb.Point{x, y}
	}), nil
}

func firstPolygonal(data []byte) (orb.Geometry, error) {
	if fc, err := geojson.UnmarshalFeatureCollection(data); err == nil && len(fc.Features) > 0 {
		for _, f := range fc.Features {
			if isPolygonal(f.Geometry) {
				return f.Geometry, nil
			}
		}
		return nil, ErrNotPolygonal
	}
	if f, err := geojson.UnmarshalFeature(data); err == nil && f.Geometry != nil {
		if isPolygonal(f.Geometry) {
			return f.Geometry, nil
		}
		return nil, ErrNotPolygonal
	}
	g, err := geojson.UnmarshalGeometry(data)
	if err != nil {
		return nil, fmt.Errorf("parsing GeoJSON: %w", err)
	}
	if g.Geometry() == nil || !isPolygonal(g.Geometry()) {
		return nil, ErrNotPolygonal
	}
	return g.Geometry(), nil
}

func isPolygonal(g orb.Geometry) bool {
	switch g.(type) {
	case orb.Polygon, orb.MultiPolygon:
		return true
	}
	return false
}

// Provider builds an Outline at most once, however many workers ask for it.
type Provider struct {
	once sync.Once
	load func() (*Outline, error)
	o    *Outline
	err  error
}

// NewProvider wraps a loader. The loader runs on the first call to Get.
func NewProvider(load func() (*Outline, error)) *Provider {
	return &Provider{load: load}
}

// FileProvider returns a Provider that loads path on first use.
func FileProvider(path string, srcEPSG int) *Provider {
	return NewProvider(func() (*Outline, error) { return Load(path, srcEPSG) })
}

// Static returns a Provider for an already-built outline.
func Static(o *Outline) *Provider {
	p := &Provider{o: o}
	p.once.Do(func() {})
	return p
}

// Get returns the outline, loading it on the first call. A failed load is
// remembered and returned to every caller.
func (p *Provider) Get() (*Outline, error) {
	p.once.Do(func() {
		p.o, p.err = p.load()
	})
	return p.o, p.err
}
