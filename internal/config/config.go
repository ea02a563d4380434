// Package config holds the pipeline configuration, read from YAML.
package config

import (
	"errors"
	"fmt"
	"os"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/pspoerri/asc2tiles/internal/outline"
	"github.com/pspoerri/asc2tiles/internal/raster"
)

// Config is the complete pipeline configuration.
type Config struct {
	Source  SourceConfig  `yaml:"source"`
	Outline OutlineConfig `yaml:"outline"`
	Store   StoreConfig   `yaml:"store"`
	Process ProcessConfig `yaml:"process"`
	Preview PreviewConfig `yaml:"preview"`
	Logging LoggingConfig `yaml:"logging"`
}

// SourceConfig locates the height archives.
type SourceConfig struct {
	Root    string `yaml:"root"`
	Pattern string `yaml:"pattern"`
	// Filter keeps archives whose name starts with it, case-insensitively.
	Filter string `yaml:"filter"`
}

// OutlineConfig locates the country outline.
type OutlineConfig struct {
	Path string `yaml:"path"`
	// EPSG is the coordinate system of the file: 4326 or 27700.
	EPSG int `yaml:"epsg"`
}

// StoreConfig configures tile persistence.
type StoreConfig struct {
	// Path of the SQLite database. Empty keeps tiles in memory only.
	Path string `yaml:"path"`
}

// ProcessConfig tunes the batch run.
type ProcessConfig struct {
	Concurrency int  `yaml:"concurrency"`
	SkipSea     bool `yaml:"skip_sea"`
	SquareSize  int  `yaml:"square_size"`
	// CacheSize is the number of decoded rasters kept; 0 sizes it from RAM.
	CacheSize int  `yaml:"cache_size"`
	Progress  bool `yaml:"progress"`
}

// PreviewConfig enables image previews of persisted tiles.
type PreviewConfig struct {
	// Dir receives previews; empty disables them.
	Dir     string `yaml:"dir"`
	Format  string `yaml:"format"`
	Quality int    `yaml:"quality"`
}

// LoggingConfig configures the zap logger.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Source: SourceConfig{
			Root:    "data",
			Pattern: raster.DefaultPattern,
		},
		Outline: OutlineConfig{
			Path: "data/outline.geojson",
			EPSG: outline.NationalGridEPSG,
		},
		Store: StoreConfig{
			Path: "tiles.db",
		},
		Process: ProcessConfig{
			SkipSea:    true,
			SquareSize: 50,
			Progress:   true,
		},
		Preview: PreviewConfig{
			Format:  "png",
			Quality: 100,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Load reads path over the defaults. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	return cfg, nil
}

var (
	validEPSG           = []int{4326, outline.NationalGridEPSG}
	validPreviewFormats = []string{"png", "webp"}
	validLogLevels      = []string{"debug", "info", "warn", "error"}
	validLogFormats     = []string{"console", "json"}
)

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if c.Source.Root == "" {
		return fmt.Errorf("source.root is required")
	}
	if c.Outline.Path == "" {
		return fmt.Errorf("outline.path is required")
	}
	if !slices.Contains(validEPSG, c.Outline.EPSG) {
		return fmt.Errorf("invalid outline.epsg: %d (valid: %v)", c.Outline.EPSG, validEPSG)
	}
	if c.Process.Concurrency < 0 {
		return fmt.Errorf("process.concurrency must not be negative")
	}
	if c.Process.SquareSize <= 0 {
		return fmt.Errorf("process.square_size must be positive")
	}
	if c.Process.CacheSize < 0 {
		return fmt.Errorf("process.cache_size must not be negative")
	}
	if c.Preview.Dir != "" && !slices.Contains(validPreviewFormats, c.Preview.Format) {
		return fmt.Errorf("invalid preview.format: %s (valid: %v)", c.Preview.Format, validPreviewFormats)
	}
	if c.Preview.Quality < 0 || c.Preview.Quality > 100 {
		return fmt.Errorf("preview.quality must be within 0-100")
	}
	if !slices.Contains(validLogLevels, c.Logging.Level) {
		return fmt.Errorf("invalid logging.level: %s (valid: %v)", c.Logging.Level, validLogLevels)
	}
	if !slices.Contains(validLogFormats, c.Logging.Format) {
		return fmt.Errorf("invalid logging.format: %s (valid: %v)", c.Logging.Format, validLogFormats)
	}
	return nil
}
