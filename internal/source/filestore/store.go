// Package filestore serves GeoJSON files listed in a YAML catalog.
package filestore

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/mohammed-shakir/geojson-featureserver/internal/core/observability"
	"github.com/mohammed-shakir/geojson-featureserver/internal/geojson"
	"github.com/mohammed-shakir/geojson-featureserver/internal/source"
	"github.com/mohammed-shakir/geojson-featureserver/internal/source/cache"
)

const driver = "file"

type Store struct {
	catalogPath string
	cache       *cache.Cache
	log         *slog.Logger

	mu      sync.RWMutex
	entries map[string]Entry
}

func Open(catalogPath string, c *cache.Cache, log *slog.Logger) (*Store, error) {
	if log == nil {
		log = slog.Default()
	}
	if c == nil {
		var err error
		if c, err = cache.New(cache.DefaultSize); err != nil {
			return nil, err
		}
	}
	s := &Store{catalogPath: catalogPath, cache: c, log: log}
	if err := s.Reload(); err != nil {
		return nil, err
	}
	return s, nil
}

// Reload re-reads the catalog and drops every decoded collection.
func (s *Store) Reload() error {
	cat, err := LoadCatalog(s.catalogPath)
	if err != nil {
		return err
	}
	entries := make(map[string]Entry, len(cat.Sources))
	for _, e := range cat.Sources {
		entries[e.ID] = e
	}
	s.mu.Lock()
	s.entries = entries
	s.mu.Unlock()
	s.cache.Purge()
	return nil
}

func (s *Store) IDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.entries))
	for id := range s.entries {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

func (s *Store) entry(id string) (Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[id]
	return e, ok
}

func (s *Store) Get(ctx context.Context, id string) (*geojson.FeatureCollection, error) {
	e, ok := s.entry(id)
	if !ok {
		return nil, fmt.Errorf("%w: %q", source.ErrNotFound, id)
	}
	if hit, ok := s.cache.Get(id); ok {
		return hit.Collection, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	start := time.Now()
	fc, err := load(e)
	observability.ObserveSourceLoad(driver, err, time.Since(start).Seconds())
	if err != nil {
		return nil, err
	}
	s.cache.Add(id, cache.Entry{Collection: fc})
	s.log.DebugContext(ctx, "source loaded", "source", id, "features", fc.Len(), "path", e.Path)
	return fc, nil
}

func load(e Entry) (*geojson.FeatureCollection, error) {
	b, err := os.ReadFile(e.Path)
	if err != nil {
		return nil, fmt.Errorf("read source %q: %w", e.ID, err)
	}
	fc, err := geojson.Decode(b)
	if err != nil {
		return nil, fmt.Errorf("decode source %q: %w", e.ID, err)
	}
	e.apply(fc)
	return fc, nil
}

// Evict drops the decoded collection of id.
func (s *Store) Evict(_ context.Context, id string) error {
	s.cache.Remove(id)
	return nil
}

// Ready reports whether the catalog lists at least one source.
func (s *Store) Ready(context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.entries) == 0 {
		return fmt.Errorf("catalog %s lists no sources", s.catalogPath)
	}
	return nil
}
