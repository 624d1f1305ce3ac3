package featureserver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"net/http"
	"runtime/debug"

	"github.com/mohammed-shakir/geojson-featureserver/internal/core/observability"
	"github.com/mohammed-shakir/geojson-featureserver/internal/errs"
	"github.com/mohammed-shakir/geojson-featureserver/internal/geojson"
	mylog "github.com/mohammed-shakir/geojson-featureserver/internal/logger"
	"github.com/mohammed-shakir/geojson-featureserver/internal/params"
)

type Handler struct {
	opts   Options
	ops    Operations
	logger *slog.Logger
}

func New(opts Options, ops Operations, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{opts: opts, ops: ops, logger: logger}
}

// Handle runs one request to completion and delivers its response through t.
// A nil src is served as an empty collection. ctx only carries log fields.
// The returned Operation is the classified route, OpUnknown when none matched.
func (h *Handler) Handle(ctx context.Context, req *Request, t Transport, src *geojson.FeatureCollection) Operation {
	route, routeErr := Classify(req.Path, req.Method)
	ctx = mylog.WithOperation(ctx, route.Op.String())

	if src != nil {
		h.lint(ctx, req, src)
	} else {
		src = &geojson.FeatureCollection{Type: "FeatureCollection", Features: []geojson.Feature{}}
	}

	q, err := params.Normalize(req.Query, src.Meta())
	if err != nil {
		status, msg := unify(err)
		t.Deliver(req, status, ErrorBody{Error: msg})
		return route.Op
	}

	if routeErr != nil {
		h.fail(ctx, req, t, OpUnknown, routeErr, nil)
		return OpUnknown
	}

	body, err := h.invoke(route, req, q, src)
	if err != nil {
		var stack []byte
		var p *panicError
		if errors.As(err, &p) {
			stack = p.stack
		}
		h.fail(ctx, req, t, route.Op, err, stack)
		return route.Op
	}
	t.Deliver(req, http.StatusOK, body)
	return route.Op
}

func (h *Handler) lint(ctx context.Context, req *Request, src *geojson.FeatureCollection) {
	if h.opts.Production || h.ops.Linter == nil {
		return
	}
	if diags := h.ops.Linter.Hint(src); len(diags) > 0 {
		observability.AddLintWarnings(len(diags))
		h.logger.WarnContext(ctx, "source data contains invalid GeoJSON",
			"path", req.Path,
			"diagnostics", len(diags),
			"first", diags[0].String())
	}
}

func (h *Handler) invoke(r Route, req *Request, q params.Query, src *geojson.FeatureCollection) (body any, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = &panicError{op: r.Op, value: rec, stack: debug.Stack()}
		}
	}()

	switch r.Op {
	case OpQuery:
		return h.ops.Query.Query(src, q)
	case OpGenerateRenderer:
		return h.ops.Renderer.GenerateRenderer(src, q)
	case OpRestInfo:
		return h.ops.Info.RestInfo(src)
	case OpServerInfo:
		return h.ops.Info.ServerInfo(src, routeParams(req, r))
	case OpLayerInfo:
		return h.ops.Info.LayerInfo(src, routeParams(req, r))
	case OpLayersInfo:
		return h.ops.Info.LayersInfo(src, q)
	default:
		return nil, fmt.Errorf("no operation for route %s", r.Op)
	}
}

// routeParams copies the route params, filling "layer" from the classified
// path when the host router did not capture it.
func routeParams(req *Request, r Route) map[string]string {
	out := make(map[string]string, len(req.Params)+1)
	maps.Copy(out, req.Params)
	if r.Layer != "" && out["layer"] == "" {
		out["layer"] = r.Layer
	}
	return out
}

func (h *Handler) fail(ctx context.Context, req *Request, t Transport, op Operation, err error, stack []byte) {
	status, msg := unify(err)
	if h.opts.Trace {
		if stack == nil {
			stack = debug.Stack()
		}
		h.logger.ErrorContext(ctx, "featureserver request failed",
			"op", op.String(),
			"path", req.Path,
			"status", status,
			"err", err.Error(),
			"stack", string(stack))
	}
	t.Deliver(req, status, ErrorBody{Error: msg})
}

// unify maps any error to a status and client-facing message.
func unify(err error) (int, string) {
	var f *errs.Failure
	var p *panicError
	switch {
	case errors.As(err, &f):
		return f.Status(), f.Message
	case errors.As(err, &p):
		return http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError)
	default:
		return http.StatusInternalServerError, err.Error()
	}
}

type panicError struct {
	op    Operation
	value any
	stack []byte
}

func (p *panicError) Error() string {
	return fmt.Sprintf("%s panicked: %v", p.op, p.value)
}
