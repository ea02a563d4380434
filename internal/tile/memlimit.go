package tile

import (
	"runtime"

	"go.uber.org/zap"
)

const (
	// DefaultCacheMemoryPercent is the share of physical RAM the raster
	// cache may occupy when its size is chosen automatically.
	DefaultCacheMemoryPercent = 0.10

	// Decoded 200×200 int32 raster plus bookkeeping.
	rasterEntryBytes = 200*200*4 + 512

	minCacheEntries = 64
	maxCacheEntries = 16384
)

// CacheEntries returns how many decoded rasters the shared cache should
// hold: fraction of physical RAM divided by the size of one raster, clamped
// to a sensible range. Every worker's tile needs up to three neighbors, so
// the result never drops below four per CPU.
func CacheEntries(fraction float64, logger *zap.Logger) int {
	if logger == nil {
		logger = zap.NewNop()
	}
	floor := max(minCacheEntries, 4*runtime.NumCPU())

	totalRAM, err := physicalMemory()
	if err != nil {
		logger.Debug("cannot detect system RAM; using minimum raster cache",
			zap.Error(err), zap.Int("entries", floor))
		return floor
	}

	n := int(float64(totalRAM) * fraction / rasterEntryBytes)
	n = min(max(n, floor), maxCacheEntries)
	logger.Debug("sized raster cache",
		zap.Float64("ram_gb", float64(totalRAM)/(1024*1024*1024)),
		zap.Float64("fraction", fraction),
		zap.Int("entries", n))
	return n
}
