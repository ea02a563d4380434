package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"runtime/pprof"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pspoerri/asc2tiles/internal/config"
	"github.com/pspoerri/asc2tiles/internal/encode"
	"github.com/pspoerri/asc2tiles/internal/outline"
	"github.com/pspoerri/asc2tiles/internal/raster"
	"github.com/pspoerri/asc2tiles/internal/store"
	"github.com/pspoerri/asc2tiles/internal/tile"
)

var processFlags struct {
	root        string
	outline     string
	outlineEPSG int
	db          string
	filter      string
	concurrency int
	keepSea     bool
	previewDir  string
	noProgress  bool
	cpuProfile  string
}

var processCmd = &cobra.Command{
	Use:   "process [grid refs...]",
	Short: "Assemble and store tiles",
	Long: `Assembles the tiles for the given 10 km grid references (e.g. NT27), or
for every archive under the source root when none are given, and upserts
them into the store. Tiles without land are skipped unless --keep-sea is set.`,
	RunE: runProcess,
}

func init() {
	f := processCmd.Flags()
	f.StringVar(&processFlags.root, "root", "", "Archive root directory (overrides source.root)")
	f.StringVar(&processFlags.outline, "outline", "", "Country outline GeoJSON (overrides outline.path)")
	f.IntVar(&processFlags.outlineEPSG, "outline-epsg", 0, "EPSG code of the outline file: 4326 or 27700")
	f.StringVar(&processFlags.db, "db", "", "SQLite database path (overrides store.path)")
	f.StringVar(&processFlags.filter, "filter", "", "Only archives whose name starts with this prefix, e.g. nt2")
	f.IntVar(&processFlags.concurrency, "concurrency", 0, "Parallel workers (default: number of CPUs)")
	f.BoolVar(&processFlags.keepSea, "keep-sea", false, "Store tiles that contain no land")
	f.StringVar(&processFlags.previewDir, "preview-dir", "", "Write PNG/WebP previews of stored tiles here")
	f.BoolVar(&processFlags.noProgress, "no-progress", false, "Disable the progress line")
	f.StringVar(&processFlags.cpuProfile, "cpuprofile", "", "Write CPU profile to file")
}

// applyProcessFlags copies explicitly set flags over the file configuration.
func applyProcessFlags(cmd *cobra.Command, c *config.Config) {
	f := cmd.Flags()
	if f.Changed("root") {
		c.Source.Root = processFlags.root
	}
	if f.Changed("outline") {
		c.Outline.Path = processFlags.outline
	}
	if f.Changed("outline-epsg") {
		c.Outline.EPSG = processFlags.outlineEPSG
	}
	if f.Changed("db") {
		c.Store.Path = processFlags.db
	}
	if f.Changed("filter") {
		c.Source.Filter = processFlags.filter
	}
	if f.Changed("concurrency") {
		c.Process.Concurrency = processFlags.concurrency
	}
	if f.Changed("keep-sea") {
		c.Process.SkipSea = !processFlags.keepSea
	}
	if f.Changed("preview-dir") {
		c.Preview.Dir = processFlags.previewDir
	}
	if f.Changed("no-progress") {
		c.Process.Progress = !processFlags.noProgress
	}
}

func runProcess(cmd *cobra.Command, args []string) error {
	applyProcessFlags(cmd, cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}

	if processFlags.cpuProfile != "" {
		f, err := os.Create(processFlags.cpuProfile)
		if err != nil {
			return fmt.Errorf("creating CPU profile: %w", err)
		}
		defer f.Close()
		if err := pprof.StartCPUProfile(f); err != nil {
			return fmt.Errorf("starting CPU profile: %w", err)
		}
		defer pprof.StopCPUProfile()
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	archives := raster.NewArchiveSource(cfg.Source.Root, cfg.Source.Pattern)
	refs := args
	if len(refs) == 0 {
		var err error
		refs, err = archives.Collect(cfg.Source.Filter)
		if err != nil {
			return fmt.Errorf("collecting archives: %w", err)
		}
		logger.Info("collected archives", zap.Int("count", len(refs)), zap.String("root", cfg.Source.Root))
	}
	if len(refs) == 0 {
		return fmt.Errorf("no height archives found under %s", cfg.Source.Root)
	}

	cacheSize := cfg.Process.CacheSize
	if cacheSize == 0 {
		cacheSize = tile.CacheEntries(tile.DefaultCacheMemoryPercent, logger)
	}

	sink, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer sink.Close()

	var previews *encode.Previewer
	if cfg.Preview.Dir != "" {
		previews, err = encode.NewPreviewer(cfg.Preview.Dir, cfg.Preview.Format, cfg.Preview.Quality)
		if err != nil {
			return fmt.Errorf("previews: %w", err)
		}
	}

	concurrency := cfg.Process.Concurrency
	if concurrency == 0 {
		concurrency = runtime.NumCPU()
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, versionString())
	fmt.Fprintf(out, "  %-14s %s\n", "Source:", cfg.Source.Root)
	fmt.Fprintf(out, "  %-14s %s (EPSG:%d)\n", "Outline:", cfg.Outline.Path, cfg.Outline.EPSG)
	fmt.Fprintf(out, "  %-14s %s\n", "Store:", storeLabel(cfg))
	fmt.Fprintf(out, "  %-14s %d\n", "Squares:", len(refs))
	fmt.Fprintf(out, "  %-14s %d\n", "Concurrency:", concurrency)
	fmt.Fprintf(out, "  %-14s %d rasters\n", "Cache:", cacheSize)
	fmt.Fprintf(out, "  %-14s %v\n", "Skip sea:", cfg.Process.SkipSea)
	if previews != nil {
		fmt.Fprintf(out, "  %-14s %s (%s)\n", "Previews:", cfg.Preview.Dir, cfg.Preview.Format)
	}

	a := &tile.Assembler{
		Source:  raster.NewCachedSource(archives, cacheSize),
		Outline: outline.FileProvider(cfg.Outline.Path, cfg.Outline.EPSG),
		Spacing: float64(cfg.Process.SquareSize),
		SkipSea: cfg.Process.SkipSea,
		Logger:  logger,
	}
	runCfg := tile.RunConfig{
		Concurrency: concurrency,
		Previews:    previews,
		Logger:      logger,
	}
	if cfg.Process.Progress {
		runCfg.Progress = cmd.ErrOrStderr()
	}

	start := time.Now()
	stats, err := a.Run(ctx, runCfg, refs, sink)
	fmt.Fprintf(out, "Processed %d square(s) in %v: %d stored, %d without land, %d failed\n",
		stats.Processed, time.Since(start).Round(time.Millisecond),
		stats.Persisted, stats.NoLand, stats.Failed)
	return err
}

func openStore(ctx context.Context, c *config.Config) (store.Store, error) {
	if c.Store.Path == "" {
		return store.NewMemory(), nil
	}
	s, err := store.OpenSQLite(ctx, c.Store.Path)
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}
	return s, nil
}

func storeLabel(c *config.Config) string {
	if c.Store.Path == "" {
		return "memory (discarded at exit)"
	}
	return c.Store.Path
}
