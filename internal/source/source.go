// Package source resolves the GeoJSON collection behind a request's host
// segment.
package source

import (
	"context"
	"errors"

	"github.com/mohammed-shakir/geojson-featureserver/internal/geojson"
)

var ErrNotFound = errors.New("source not found")

type Provider interface {
	Get(ctx context.Context, id string) (*geojson.FeatureCollection, error)
}

// Evicter drops decoded state for a source so the next Get reloads it.
type Evicter interface {
	Evict(ctx context.Context, id string) error
}
