// Package router adapts chi HTTP requests to the FeatureServer dispatcher.
package router

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/mohammed-shakir/geojson-featureserver/internal/core/observability"
	"github.com/mohammed-shakir/geojson-featureserver/internal/featureserver"
	"github.com/mohammed-shakir/geojson-featureserver/internal/geojson"
	mylog "github.com/mohammed-shakir/geojson-featureserver/internal/logger"
	"github.com/mohammed-shakir/geojson-featureserver/internal/source"
)

// Dispatcher handles one FeatureServer request, see featureserver.Handler.
// It reports the operation the request was classified as.
type Dispatcher interface {
	Handle(ctx context.Context, req *featureserver.Request, t featureserver.Transport, src *geojson.FeatureCollection) featureserver.Operation
}

// Route param names captured by the chi patterns.
const (
	ParamHost   = "host"
	ParamLayer  = "layer"
	ParamMethod = "method"
)

// FeatureServer serves every FeatureServer route. The source is looked up by
// the {host} segment; routes without one are served an empty collection.
func FeatureServer(logger *slog.Logger, d Dispatcher, sources source.Provider) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, code: http.StatusOK}
		route := routePattern(r)

		req, err := BuildRequest(r)
		if err != nil {
			writeJSON(sw, http.StatusBadRequest, featureserver.ErrorBody{Error: "Invalid request body"}, false)
			observability.ObserveHTTP(r.Method, route, sw.code, time.Since(start).Seconds())
			return
		}

		ctx := r.Context()
		var src *geojson.FeatureCollection
		if host := req.Params[ParamHost]; host != "" && sources != nil {
			ctx = mylog.WithSource(ctx, host)
			src, err = sources.Get(ctx, host)
			if err != nil {
				status, body := sourceFailure(host, err)
				if status >= http.StatusInternalServerError {
					logger.ErrorContext(ctx, "source load failed", "err", err)
				}
				newTransport(sw, req).Deliver(req, status, body)
				observability.ObserveHTTP(r.Method, route, sw.code, time.Since(start).Seconds())
				return
			}
		}

		op := d.Handle(ctx, req, newTransport(sw, req), src).String()
		ctx = mylog.WithOperation(ctx, op)

		observability.ObserveOperation(op, sw.code)
		observability.ObserveHTTP(r.Method, route, sw.code, time.Since(start).Seconds())
		logger.DebugContext(ctx, "featureserver request served",
			"status", sw.code,
			"duration_ms", time.Since(start).Milliseconds())
	}
}

func sourceFailure(host string, err error) (int, featureserver.ErrorBody) {
	if errors.Is(err, source.ErrNotFound) {
		return http.StatusNotFound, featureserver.ErrorBody{Error: fmt.Sprintf("Source %q not found", host)}
	}
	return http.StatusInternalServerError, featureserver.ErrorBody{Error: fmt.Sprintf("Failed to load source %q", host)}
}

// BuildRequest copies the path, route params and the first value of every
// query (and POST form) parameter.
func BuildRequest(r *http.Request) (*featureserver.Request, error) {
	if err := r.ParseForm(); err != nil {
		return nil, fmt.Errorf("parse form: %w", err)
	}
	query := make(map[string]string, len(r.Form))
	for k, vs := range r.Form {
		if len(vs) > 0 {
			query[k] = vs[0]
		}
	}

	routeParams := map[string]string{}
	for _, k := range []string{ParamHost, ParamLayer, ParamMethod} {
		if v := strings.TrimSpace(chi.URLParam(r, k)); v != "" {
			routeParams[k] = v
		}
	}

	return &featureserver.Request{
		Path:   r.URL.Path,
		Method: routeParams[ParamMethod],
		Query:  query,
		Params: routeParams,
	}, nil
}

func routePattern(r *http.Request) string {
	if rc := chi.RouteContext(r.Context()); rc != nil {
		if p := rc.RoutePattern(); p != "" {
			return p
		}
	}
	return "unmatched"
}

type statusWriter struct {
	http.ResponseWriter
	code int
}

func (w *statusWriter) WriteHeader(code int) {
	w.code = code
	w.ResponseWriter.WriteHeader(code)
}
