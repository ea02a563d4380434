package raster

import (
	"context"
	"errors"
	"strings"

	"github.com/maypok86/otter/v2"
)

// ErrSourceDataAbsent is returned by a Source when no raster exists for the
// requested tile. It is an expected outcome at coastlines and at the edge of
// data coverage, not a decoding failure.
var ErrSourceDataAbsent = errors.New("source data absent")

// Source decodes the raw north-row-first height grid for a 10 km tile.
// Implementations must be safe for concurrent use and must not retain or
// mutate returned grids after handing them out; callers treat them as
// read-only.
type Source interface {
	Decode(id string) (Grid, error)
}

// MapSource is an in-memory Source keyed by uppercased tile id.
type MapSource map[string]Grid

// Decode implements Source.
func (m MapSource) Decode(id string) (Grid, error) {
	g, ok := m[strings.ToUpper(id)]
	if !ok {
		return Grid{}, ErrSourceDataAbsent
	}
	return g, nil
}

// CachedSource wraps a Source with a bounded cache of decoded grids.
// Absent results are cached too, since neighbor lookups at the coastline
// ask for the same missing tiles repeatedly.
type CachedSource struct {
	src   Source
	cache *otter.Cache[string, cacheEntry]
}

type cacheEntry struct {
	grid   Grid
	absent bool
}

// NewCachedSource creates a cache holding at most maxEntries grids.
func NewCachedSource(src Source, maxEntries int) *CachedSource {
	if maxEntries <= 0 {
		maxEntries = 64
	}
	return &CachedSource{
		src: src,
		cache: otter.Must(&otter.Options[string, cacheEntry]{
			MaximumSize: maxEntries,
		}),
	}
}

// Decode implements Source. Concurrent requests for the same tile share a
// single decode.
func (cs *CachedSource) Decode(id string) (Grid, error) {
	entry, err := cs.cache.Get(context.Background(), strings.ToUpper(id), otter.LoaderFunc[string, cacheEntry](cs.load))
	if err != nil {
		return Grid{}, err
	}
	if entry.absent {
		return Grid{}, ErrSourceDataAbsent
	}
	return entry.grid, nil
}

func (cs *CachedSource) load(_ context.Context, key string) (cacheEntry, error) {
	g, err := cs.src.Decode(key)
	switch {
	case errors.Is(err, ErrSourceDataAbsent):
		return cacheEntry{absent: true}, nil
	case err != nil:
		return cacheEntry{}, err
	default:
		return cacheEntry{grid: g}, nil
	}
}

// Len returns the approximate number of cached entries after running any
// pending evictions.
func (cs *CachedSource) Len() int {
	cs.cache.CleanUp()
	return cs.cache.EstimatedSize()
}
