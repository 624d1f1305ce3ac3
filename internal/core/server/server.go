// Package server mounts the FeatureServer routes on chi and runs the HTTP
// listeners.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/mohammed-shakir/geojson-featureserver/internal/core/health"
	middleware "github.com/mohammed-shakir/geojson-featureserver/internal/core/middleware"
	"github.com/mohammed-shakir/geojson-featureserver/internal/core/router"
	"github.com/mohammed-shakir/geojson-featureserver/internal/metrics"
	"github.com/mohammed-shakir/geojson-featureserver/internal/source"
)

type Deps struct {
	Dispatcher router.Dispatcher
	Sources    source.Provider
	// Metrics may be nil; with its own address it is served by Run on a
	// separate listener instead of this router.
	Metrics *metrics.Provider
	Checks  []health.Check
}

// featureServerSegment matches "FeatureServer" in any letter case.
const featureServerSegment = "{service:(?i)featureserver}"

func NewRouter(logger *slog.Logger, deps Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recover(logger))
	r.Use(middleware.Logging(logger))
	r.Use(middleware.CORS())

	r.Get("/healthz", health.Liveness())
	r.Get("/readyz", health.Readiness(deps.Checks...))
	if deps.Metrics != nil && !deps.Metrics.Separate() {
		r.Handle(deps.Metrics.Path(), deps.Metrics.Handler())
	}

	fs := router.FeatureServer(logger, deps.Dispatcher, deps.Sources)
	r.Get("/rest/info", fs)
	r.Get("/{host}/rest/info", fs)
	r.Route("/{host}/"+featureServerSegment, func(r chi.Router) {
		r.Get("/", fs)
		r.Get("/{layer}", fs)
		r.Get("/{layer}/{method}", fs)
		r.Post("/{layer}/{method}", fs)
	})
	// everything else still gets a FeatureServer style error body
	r.NotFound(fs)
	r.MethodNotAllowed(fs)
	return r
}

// Run serves until ctx is cancelled, then shuts the listeners down.
func Run(ctx context.Context, addr string, logger *slog.Logger, deps Deps) error {
	servers := []*http.Server{newHTTPServer(addr, NewRouter(logger, deps))}
	if deps.Metrics != nil && deps.Metrics.Separate() {
		mux := http.NewServeMux()
		mux.Handle(deps.Metrics.Path(), deps.Metrics.Handler())
		servers = append(servers, newHTTPServer(deps.Metrics.Addr(), mux))
	}

	errCh := make(chan error, len(servers))
	for _, srv := range servers {
		go func() {
			logger.Info("http listen", "addr", srv.Addr)
			if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				errCh <- fmt.Errorf("listen %s: %w", srv.Addr, err)
			}
		}()
	}

	shutdown := func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		for _, srv := range servers {
			_ = srv.Shutdown(shutdownCtx)
		}
	}

	select {
	case <-ctx.Done():
		shutdown()
		return nil
	case err := <-errCh:
		shutdown()
		return err
	}
}

func newHTTPServer(addr string, h http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}
