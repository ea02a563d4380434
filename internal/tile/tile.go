// Package tile assembles persisted terrain tiles from 10 km height rasters:
// a tile's raster is stitched to its neighbors, classified against the
// country outline and flipped to south-row-first storage order.
package tile

import (
	"context"
	"errors"
	"fmt"

	"github.com/paulmach/orb"
	"go.uber.org/zap"

	"github.com/pspoerri/asc2tiles/internal/gridref"
	"github.com/pspoerri/asc2tiles/internal/land"
	"github.com/pspoerri/asc2tiles/internal/outline"
	"github.com/pspoerri/asc2tiles/internal/raster"
	"github.com/pspoerri/asc2tiles/internal/stitch"
)

// DefaultSpacing is the sample size of the 50 m height product.
const DefaultSpacing = 50

// ErrNoLand is returned together with an assembled tile whose land mask is
// entirely sea when the Assembler skips such tiles.
var ErrNoLand = errors.New("tile has no land")

// Meta describes a tile's sampling.
type Meta struct {
	SquareSize    int    `json:"squareSize"`
	GridReference string `json:"gridReference"`
}

// Tile is the persisted record for one 10 km square. Heights and Land are
// stored south-row-first.
type Tile struct {
	ID      string  `json:"id"`
	Meta    Meta    `json:"meta"`
	Heights [][]int `json:"heights"`
	Land    [][]int `json:"land"`

	// North-row-first rasters, kept for preview rendering.
	heights raster.Grid
	mask    raster.Mask
}

// New builds the tile record for id from north-row-first rasters.
func New(id string, squareSize int, heights raster.Grid, mask raster.Mask) *Tile {
	return &Tile{
		ID:      id,
		Meta:    Meta{SquareSize: squareSize, GridReference: id},
		Heights: heights.FlipVertical().Ints(),
		Land:    mask.FlipVertical().Ints(),
		heights: heights,
		mask:    mask,
	}
}

// Persister stores tiles. Upsert must be idempotent by ID.
type Persister interface {
	Upsert(ctx context.Context, t *Tile) error
}

// Assembler turns grid references into tiles.
type Assembler struct {
	Source  raster.Source
	Outline *outline.Provider
	// Spacing is the sample size in metres; DefaultSpacing when zero.
	Spacing float64
	// SkipSea makes Assemble report all-sea tiles with ErrNoLand.
	SkipSea bool
	Logger  *zap.Logger
}

// Assemble builds the tile for the 10 km square ref. A missing primary
// raster is an error wrapping raster.ErrSourceDataAbsent; missing neighbors
// are not.
func (a *Assembler) Assemble(ref string) (*Tile, error) {
	// Neighbor with no offset validates and normalizes a 10 km reference.
	id, err := gridref.Neighbor(ref, 0, 0)
	if err != nil {
		return nil, err
	}
	sw, err := gridref.Parse(id)
	if err != nil {
		return nil, err
	}

	raw, err := a.Source.Decode(id)
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", id, err)
	}

	stitched, err := stitch.New(a.Source, a.logger()).Stitch(raw, id)
	if err != nil {
		return nil, err
	}

	geom, err := a.Outline.Get()
	if err != nil {
		return nil, fmt.Errorf("loading outline: %w", err)
	}

	spacing := a.spacing()
	origin := orb.Point{
		float64(sw.Easting),
		float64(sw.Northing) + float64(raw.Rows)*spacing,
	}
	mask, err := land.Classify(stitched, origin, spacing, geom)
	if err != nil {
		return nil, fmt.Errorf("classifying %s: %w", id, err)
	}

	t := New(id, int(spacing), stitched, mask)
	if a.SkipSea && land.IsAllSea(mask) {
		return t, fmt.Errorf("%w: %s", ErrNoLand, id)
	}
	return t, nil
}

func (a *Assembler) spacing() float64 {
	if a.Spacing > 0 {
		return a.Spacing
	}
	return DefaultSpacing
}

func (a *Assembler) logger() *zap.Logger {
	if a.Logger == nil {
		return zap.NewNop()
	}
	return a.Logger
}

type runIDKey struct{}

// ContextWithRunID returns a context carrying the batch run identifier.
func ContextWithRunID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, runIDKey{}, id)
}

// RunIDFromContext returns the run identifier set by ContextWithRunID, or "".
func RunIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(runIDKey{}).(string)
	return id
}
