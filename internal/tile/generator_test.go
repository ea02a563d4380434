package tile

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"

	"github.com/pspoerri/asc2tiles/internal/encode"
	"github.com/pspoerri/asc2tiles/internal/outline"
	"github.com/pspoerri/asc2tiles/internal/raster"
)

type memSink struct {
	mu     sync.Mutex
	tiles  map[string]*Tile
	runIDs map[string]bool
	err    error
}

func newMemSink() *memSink {
	return &memSink{tiles: map[string]*Tile{}, runIDs: map[string]bool{}}
}

func (s *memSink) Upsert(ctx context.Context, t *Tile) error {
	if s.err != nil {
		return s.err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tiles[t.ID] = t
	s.runIDs[RunIDFromContext(ctx)] = true
	return nil
}

// testAssembler has land at NT27 and NT28 and open sea at NT57.
func testAssembler(t *testing.T) *Assembler {
	t.Helper()
	return &Assembler{
		Source: raster.MapSource{
			"NT27": filled(t, 10),
			"NT28": filled(t, 20),
			"NT57": filled(t, -3),
		},
		Outline: staticOutline(t, orb.Bound{Min: orb.Point{300000, 650000}, Max: orb.Point{340000, 700000}}),
		Spacing: testSpacing,
		SkipSea: true,
	}
}

func TestRun(t *testing.T) {
	defer goleak.VerifyNone(t)

	a := testAssembler(t)
	sink := newMemSink()
	refs := []string{"NT27", "nt28", "NT27", "NT57", "bogus", "NT50"}

	stats, err := a.Run(context.Background(), RunConfig{Concurrency: 2}, refs, sink)
	require.NoError(t, err)
	assert.Equal(t, Stats{Processed: 3, Persisted: 2, NoLand: 1, Failed: 2}, stats)

	assert.Len(t, sink.tiles, 2)
	assert.Contains(t, sink.tiles, "NT27")
	assert.Contains(t, sink.tiles, "NT28")
	require.Len(t, sink.runIDs, 1)
	assert.NotContains(t, sink.runIDs, "")
}

func TestRun_PersistTwiceKeepsOneRecord(t *testing.T) {
	defer goleak.VerifyNone(t)

	a := testAssembler(t)
	sink := newMemSink()
	for i := 0; i < 2; i++ {
		_, err := a.Run(context.Background(), RunConfig{}, []string{"NT27"}, sink)
		require.NoError(t, err)
	}
	assert.Len(t, sink.tiles, 1)
	assert.Len(t, sink.runIDs, 2)
}

func TestRun_Cancelled(t *testing.T) {
	defer goleak.VerifyNone(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sink := newMemSink()
	stats, err := testAssembler(t).Run(ctx, RunConfig{}, []string{"NT27", "NT28"}, sink)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, stats.Processed)
	assert.Empty(t, sink.tiles)
}

func TestRun_PersistFailureAborts(t *testing.T) {
	defer goleak.VerifyNone(t)

	boom := errors.New("disk full")
	sink := newMemSink()
	sink.err = boom

	_, err := testAssembler(t).Run(context.Background(), RunConfig{Concurrency: 1}, []string{"NT27", "NT28"}, sink)
	assert.ErrorIs(t, err, boom)
}

func TestRun_OutlineFailure(t *testing.T) {
	a := testAssembler(t)
	a.Outline = outline.NewProvider(func() (*outline.Outline, error) {
		return nil, os.ErrNotExist
	})
	_, err := a.Run(context.Background(), RunConfig{}, []string{"NT27"}, newMemSink())
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestRun_ProgressAndPreviews(t *testing.T) {
	defer goleak.VerifyNone(t)

	dir := t.TempDir()
	previews, err := encode.NewPreviewer(dir, "png", 0)
	require.NoError(t, err)

	var progress bytes.Buffer
	cfg := RunConfig{Progress: &progress, Previews: previews, Logger: zap.NewNop()}
	_, err = testAssembler(t).Run(context.Background(), cfg, []string{"NT27", "NT57"}, newMemSink())
	require.NoError(t, err)

	out := progress.String()
	assert.Contains(t, out, "Latest: ")
	assert.Contains(t, out, "So far 2/2")
	assert.Contains(t, out, "squares/s")

	assert.FileExists(t, filepath.Join(dir, "NT27_heights.png"))
	assert.FileExists(t, filepath.Join(dir, "NT27_land.png"))
	assert.NoFileExists(t, filepath.Join(dir, "NT57_land.png"))
}

func TestOrder_NormalizesDeduplicatesAndGroupsNeighbors(t *testing.T) {
	r := &runner{logger: zap.NewNop()}
	ids := r.order([]string{"NT27", "SV00", "nt28", "NT27", "NT37", "x"})

	assert.ElementsMatch(t, []string{"NT27", "NT28", "NT37", "SV00"}, ids)
	assert.Equal(t, int64(1), r.failed.Load())
	// SV00 is hundreds of kilometres from the others and sorts to an end.
	assert.Contains(t, []string{ids[0], ids[len(ids)-1]}, "SV00")
}

func TestCacheEntries(t *testing.T) {
	n := CacheEntries(DefaultCacheMemoryPercent, nil)
	assert.GreaterOrEqual(t, n, minCacheEntries)
	assert.LessOrEqual(t, n, maxCacheEntries)
}
