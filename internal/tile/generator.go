package tile

import (
	"context"
	"errors"
	"fmt"
	"io"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/pspoerri/asc2tiles/internal/coord"
	"github.com/pspoerri/asc2tiles/internal/encode"
	"github.com/pspoerri/asc2tiles/internal/gridref"
	"github.com/pspoerri/asc2tiles/internal/land"
)

// RunConfig holds batch run configuration.
type RunConfig struct {
	// Concurrency is the number of tiles assembled at once; NumCPU when zero.
	Concurrency int
	// Progress receives a progress line while the run is active. Nil
	// disables it.
	Progress io.Writer
	// Previews, when set, renders every persisted tile.
	Previews *encode.Previewer
	Logger   *zap.Logger
}

// Stats holds run statistics.
type Stats struct {
	Processed int64 // tiles assembled, including those without land
	Persisted int64
	NoLand    int64
	Failed    int64
}

type runner struct {
	a        *Assembler
	sink     Persister
	previews *encode.Previewer
	logger   *zap.Logger
	progress *progressLine

	processed, persisted, noLand, failed atomic.Int64
}

// Run assembles and persists the tiles for refs. Tiles are visited along a
// Hilbert curve so that neighbor rasters are likely to be cached.
//
// A tile that cannot be assembled is logged, counted as failed and skipped.
// Invalid classifier input or a persistence failure aborts the run, as does
// cancelling ctx; the returned Stats then cover the work done so far.
func (a *Assembler) Run(ctx context.Context, cfg RunConfig, refs []string, sink Persister) (Stats, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	runID := uuid.NewString()
	logger = logger.With(zap.String("run_id", runID))
	ctx = ContextWithRunID(ctx, runID)

	// Build the outline once, before any worker needs it.
	if _, err := a.Outline.Get(); err != nil {
		return Stats{}, fmt.Errorf("loading outline: %w", err)
	}

	r := &runner{a: a, sink: sink, previews: cfg.Previews, logger: logger}

	ids := r.order(refs)
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = runtime.NumCPU()
	}
	if cfg.Progress != nil {
		r.progress = newProgressLine(cfg.Progress, int64(len(ids)))
	}

	logger.Info("starting run",
		zap.Int("tiles", len(ids)),
		zap.Int("concurrency", concurrency),
		zap.Bool("skip_sea", a.SkipSea))
	start := time.Now()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for _, id := range ids {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error { return r.process(gctx, id) })
	}
	err := g.Wait()
	if err == nil {
		err = ctx.Err()
	}
	if r.progress != nil {
		r.progress.Finish()
	}

	stats := Stats{
		Processed: r.processed.Load(),
		Persisted: r.persisted.Load(),
		NoLand:    r.noLand.Load(),
		Failed:    r.failed.Load(),
	}
	fields := []zap.Field{
		zap.Int64("processed", stats.Processed),
		zap.Int64("persisted", stats.Persisted),
		zap.Int64("no_land", stats.NoLand),
		zap.Int64("failed", stats.Failed),
		zap.Duration("elapsed", time.Since(start)),
	}
	if err != nil {
		logger.Error("run aborted", append(fields, zap.Error(err))...)
		return stats, err
	}
	logger.Info("run finished", fields...)
	return stats, nil
}

// order normalizes refs, drops duplicates and sorts them along a Hilbert
// curve over 10 km squares. Invalid references are logged and counted as
// failed.
func (r *runner) order(refs []string) []string {
	type square struct {
		id string
		c  gridref.Coord
	}
	seen := make(map[string]bool, len(refs))
	squares := make([]square, 0, len(refs))
	for _, ref := range refs {
		id, err := gridref.Neighbor(ref, 0, 0)
		if err != nil {
			r.logger.Warn("skipping invalid grid reference", zap.String("ref", ref), zap.Error(err))
			r.failed.Add(1)
			continue
		}
		if seen[id] {
			continue
		}
		seen[id] = true
		squares = append(squares, square{id: id, c: gridref.MustParse(id)})
	}

	coord.SortByHilbert(squares, func(s square) (int, int) {
		return s.c.Easting / 10000, s.c.Northing / 10000
	})

	ids := make([]string, len(squares))
	for i, s := range squares {
		ids[i] = s.id
	}
	return ids
}

func (r *runner) process(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	defer r.progress.Done(id)

	t, err := r.a.Assemble(id)
	switch {
	case errors.Is(err, ErrNoLand):
		r.processed.Add(1)
		r.noLand.Add(1)
		r.logger.Debug("skipping tile without land", zap.String("tile", id))
		return nil
	case errors.Is(err, land.ErrInputInvalid):
		return fmt.Errorf("assembling %s: %w", id, err)
	case err != nil:
		r.failed.Add(1)
		r.logger.Warn("skipping tile", zap.String("tile", id), zap.Error(err))
		return nil
	}
	r.processed.Add(1)

	if err := r.sink.Upsert(ctx, t); err != nil {
		return fmt.Errorf("persisting %s: %w", id, err)
	}
	r.persisted.Add(1)
	r.logger.Debug("persisted tile", zap.String("tile", id))

	if r.previews != nil {
		if _, err := r.previews.Write(t.ID, t.heights, t.mask); err != nil {
			r.logger.Warn("writing preview", zap.String("tile", id), zap.Error(err))
		}
	}
	return nil
}
