package coord

import (
	"math"
	"sync"

	"github.com/ctessum/geom/proj"
)

// bngDefinition is EPSG:27700: Transverse Mercator on the Airy 1830
// ellipsoid with the OSGB36 7-parameter Helmert shift to WGS84. The Helmert
// step limits accuracy to a few metres, well inside one 50 m raster cell.
const bngDefinition = "+proj=tmerc +lat_0=49 +lon_0=-2 +k=0.9996012717 +x_0=400000 +y_0=-100000 +ellps=airy +datum=OSGB36 +units=m +no_defs"

// BritishNationalGrid implements the Projection interface for EPSG:27700
// (OSGB36 / British National Grid). Failed transforms yield NaN.
type BritishNationalGrid struct{}

type bngTransformers struct {
	fromWGS84, toWGS84 proj.Transformer
}

var bngTransforms = sync.OnceValues(func() (bngTransformers, error) {
	bng, err := proj.Parse(bngDefinition)
	if err != nil {
		return bngTransformers{}, err
	}
	wgs84, err := proj.Parse("EPSG:4326")
	if err != nil {
		return bngTransformers{}, err
	}
	fwd, err := wgs84.NewTransform(bng)
	if err != nil {
		return bngTransformers{}, err
	}
	inv, err := bng.NewTransform(wgs84)
	if err != nil {
		return bngTransformers{}, err
	}
	return bngTransformers{fromWGS84: fwd, toWGS84: inv}, nil
})

func (p *BritishNationalGrid) EPSG() int { return 27700 }

// FromWGS84 converts WGS84 longitude/latitude (degrees) to national grid
// easting/northing in metres.
func (p *BritishNationalGrid) FromWGS84(lon, lat float64) (easting, northing float64) {
	t, err := bngTransforms()
	if err != nil {
		return math.NaN(), math.NaN()
	}
	e, n, err := t.fromWGS84(lon, lat)
	if err != nil {
		return math.NaN(), math.NaN()
	}
	return e, n
}

// ToWGS84 converts national grid easting/northing in metres to WGS84
// longitude/latitude (degrees).
func (p *BritishNationalGrid) ToWGS84(easting, northing float64) (lon, lat float64) {
	t, err := bngTransforms()
	if err != nil {
		return math.NaN(), math.NaN()
	}
	lon, lat, err = t.toWGS84(easting, northing)
	if err != nil {
		return math.NaN(), math.NaN()
	}
	return lon, lat
}
