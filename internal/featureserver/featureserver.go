// Package featureserver dispatches FeatureServer requests over a GeoJSON
// source: it normalizes parameters, classifies the route, invokes the
// matching operation and delivers exactly one JSON response per request.
package featureserver

import (
	"github.com/mohammed-shakir/geojson-featureserver/internal/geojson"
	"github.com/mohammed-shakir/geojson-featureserver/internal/geojson/hint"
	"github.com/mohammed-shakir/geojson-featureserver/internal/params"
)

// Request is one incoming call, owned by a single request lifecycle.
type Request struct {
	// Path is the URL path; anything after '?' is ignored.
	Path string
	// Method is the optional method hint taken from the route, e.g. "query".
	Method string
	Query  map[string]string
	Params map[string]string
}

// Transport writes the final response. Deliver is called exactly once per
// handled request.
type Transport interface {
	Deliver(req *Request, status int, body any)
}

type InfoProducer interface {
	RestInfo(src *geojson.FeatureCollection) (any, error)
	ServerInfo(src *geojson.FeatureCollection, routeParams map[string]string) (any, error)
	LayerInfo(src *geojson.FeatureCollection, routeParams map[string]string) (any, error)
	LayersInfo(src *geojson.FeatureCollection, q params.Query) (any, error)
}

type QueryEngine interface {
	Query(src *geojson.FeatureCollection, q params.Query) (any, error)
}

type RendererGenerator interface {
	GenerateRenderer(src *geojson.FeatureCollection, q params.Query) (any, error)
}

type Linter interface {
	Hint(src *geojson.FeatureCollection) []hint.Diagnostic
}

// Operations bundles the downstream collaborators. Linter may be nil.
type Operations struct {
	Info     InfoProducer
	Query    QueryEngine
	Renderer RendererGenerator
	Linter   Linter
}

type Options struct {
	// Production suppresses GeoJSON lint warnings.
	Production bool
	// Trace logs the full detail of every caught failure.
	Trace bool
}

// ErrorBody is the JSON shape of every failed response.
type ErrorBody struct {
	Error string `json:"error"`
}
