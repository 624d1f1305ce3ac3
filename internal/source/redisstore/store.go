package redisstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/mohammed-shakir/geojson-featureserver/internal/core/observability"
	"github.com/mohammed-shakir/geojson-featureserver/internal/geojson"
	"github.com/mohammed-shakir/geojson-featureserver/internal/source"
	"github.com/mohammed-shakir/geojson-featureserver/internal/source/cache"
	"github.com/mohammed-shakir/geojson-featureserver/internal/source/keys"
)

const driver = "redis"

// Store resolves sources from Redis. Documents are fingerprinted on every
// read so a decoded collection is reused only while the bytes are unchanged.
type Store struct {
	client    *Client
	cache     *cache.Cache
	opTimeout time.Duration
	log       *slog.Logger
}

func NewStore(c *Client, dc *cache.Cache, opTimeout time.Duration, log *slog.Logger) (*Store, error) {
	if c == nil {
		return nil, errors.New("redisstore: client is required")
	}
	if log == nil {
		log = slog.Default()
	}
	if dc == nil {
		var err error
		if dc, err = cache.New(cache.DefaultSize); err != nil {
			return nil, err
		}
	}
	if opTimeout <= 0 {
		opTimeout = 250 * time.Millisecond
	}
	return &Store{client: c, cache: dc, opTimeout: opTimeout, log: log}, nil
}

func (s *Store) Get(ctx context.Context, id string) (*geojson.FeatureCollection, error) {
	opCtx, cancel := context.WithTimeout(ctx, s.opTimeout)
	defer cancel()

	b, ok, err := s.client.Get(opCtx, keys.Source(id))
	if err != nil {
		return nil, fmt.Errorf("load source %q: %w", id, err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %q", source.ErrNotFound, id)
	}

	fp := keys.Fingerprint(b)
	if fc, ok := s.cache.Lookup(id, fp); ok {
		return fc, nil
	}

	start := time.Now()
	fc, err := geojson.Decode(b)
	observability.ObserveSourceLoad(driver, err, time.Since(start).Seconds())
	if err != nil {
		return nil, fmt.Errorf("decode source %q: %w", id, err)
	}
	s.cache.Add(id, cache.Entry{Fingerprint: fp, Collection: fc})
	s.log.DebugContext(ctx, "source decoded", "source", id, "features", fc.Len(), "fingerprint", fp)
	return fc, nil
}

// Put stores a GeoJSON document under id after checking it decodes.
func (s *Store) Put(ctx context.Context, id string, doc []byte) error {
	if strings.TrimSpace(id) == "" {
		return errors.New("put source: id is required")
	}
	if _, err := geojson.Decode(doc); err != nil {
		return fmt.Errorf("put source %q: %w", id, err)
	}
	if err := s.client.Set(ctx, keys.Source(id), doc, 0); err != nil {
		return err
	}
	s.cache.Remove(id)
	return nil
}

func (s *Store) Delete(ctx context.Context, id string) error {
	s.cache.Remove(id)
	return s.client.Del(ctx, keys.Source(id))
}

func (s *Store) Evict(_ context.Context, id string) error {
	s.cache.Remove(id)
	return nil
}

// IDs lists stored sources whose ids needed no sanitizing.
func (s *Store) IDs(ctx context.Context) ([]string, error) {
	ks, err := s.client.Scan(ctx, keys.Prefix+"*")
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(ks))
	for _, k := range ks {
		id := strings.TrimPrefix(k, keys.Prefix)
		if strings.Contains(id, ":h=") {
			continue
		}
		out = append(out, id)
	}
	sort.Strings(out)
	return out, nil
}

func (s *Store) Ready(ctx context.Context) error {
	return s.client.Ping(ctx)
}
