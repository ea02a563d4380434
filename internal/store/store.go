// Package store persists assembled tiles keyed by grid reference.
package store

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/pspoerri/asc2tiles/internal/tile"
)

// ErrNotFound is returned by Get for an unknown tile id.
var ErrNotFound = errors.New("tile not found")

// Store is a tile.Persister that can also read tiles back.
type Store interface {
	tile.Persister
	Get(ctx context.Context, id string) (*tile.Tile, error)
	Count(ctx context.Context) (int, error)
	Close() error
}

var (
	_ Store = (*SQLite)(nil)
	_ Store = (*Memory)(nil)
)

// Memory is an in-process Store.
type Memory struct {
	mu    sync.RWMutex
	tiles map[string]tile.Tile
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{tiles: make(map[string]tile.Tile)}
}

// Upsert implements tile.Persister.
func (m *Memory) Upsert(_ context.Context, t *tile.Tile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tiles[strings.ToUpper(t.ID)] = *t
	return nil
}

// Get returns a copy of the stored tile.
func (m *Memory) Get(_ context.Context, id string) (*tile.Tile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.tiles[strings.ToUpper(id)]
	if !ok {
		return nil, ErrNotFound
	}
	return &t, nil
}

// Count returns the number of stored tiles.
func (m *Memory) Count(context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.tiles), nil
}

func (m *Memory) Close() error { return nil }
