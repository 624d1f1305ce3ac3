package router

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mohammed-shakir/geojson-featureserver/internal/featureserver"
	"github.com/mohammed-shakir/geojson-featureserver/internal/geojson"
	"github.com/mohammed-shakir/geojson-featureserver/internal/source"
)

type fakeDispatcher struct {
	req    *featureserver.Request
	src    *geojson.FeatureCollection
	status int
	body   any
	calls  int
}

func (f *fakeDispatcher) Handle(_ context.Context, req *featureserver.Request, t featureserver.Transport, src *geojson.FeatureCollection) featureserver.Operation {
	f.req, f.src = req, src
	f.calls++
	status, body := f.status, f.body
	if status == 0 {
		status, body = http.StatusOK, map[string]any{"ok": true}
	}
	t.Deliver(req, status, body)
	return featureserver.OpQuery
}

type mapProvider map[string]*geojson.FeatureCollection

func (m mapProvider) Get(_ context.Context, id string) (*geojson.FeatureCollection, error) {
	if fc, ok := m[id]; ok {
		return fc, nil
	}
	if id == "broken" {
		return nil, errors.New("read: disk on fire")
	}
	return nil, fmt.Errorf("%w: %s", source.ErrNotFound, id)
}

func newTestRouter(d Dispatcher) http.Handler {
	sources := mapProvider{"cities": {Type: "FeatureCollection"}}
	h := FeatureServer(slog.New(slog.NewTextHandler(io.Discard, nil)), d, sources)
	r := chi.NewRouter()
	r.Get("/rest/info", h)
	r.Get("/{host}/FeatureServer", h)
	r.Get("/{host}/FeatureServer/{layer}", h)
	r.Get("/{host}/FeatureServer/{layer}/{method}", h)
	r.Post("/{host}/FeatureServer/{layer}/{method}", h)
	return r
}

func do(t *testing.T, h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestFeatureServer_BuildsRequestFromRoute(t *testing.T) {
	d := &fakeDispatcher{}
	h := newTestRouter(d)

	rr := do(t, h, httptest.NewRequest(http.MethodGet, "/cities/FeatureServer/0/query?where=1%3D1&limit=5&limit=9", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	require.NotNil(t, d.req)
	assert.Equal(t, "/cities/FeatureServer/0/query", d.req.Path)
	assert.Equal(t, "query", d.req.Method)
	assert.Equal(t, map[string]string{"host": "cities", "layer": "0", "method": "query"}, d.req.Params)
	assert.Equal(t, "1=1", d.req.Query["where"])
	assert.Equal(t, "5", d.req.Query["limit"], "first value wins")
	assert.NotNil(t, d.src)
	assert.Equal(t, 1, d.calls)
}

func TestFeatureServer_PostForm(t *testing.T) {
	d := &fakeDispatcher{}
	h := newTestRouter(d)

	form := url.Values{"where": {"pop > 10"}, "f": {"json"}}
	req := httptest.NewRequest(http.MethodPost, "/cities/FeatureServer/0/query", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rr := do(t, h, req)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "pop > 10", d.req.Query["where"])
}

func TestFeatureServer_RestInfoHasNoSource(t *testing.T) {
	d := &fakeDispatcher{}
	rr := do(t, newTestRouter(d), httptest.NewRequest(http.MethodGet, "/rest/info", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Nil(t, d.src)
	assert.Empty(t, d.req.Method)
}

func TestFeatureServer_UnknownSource(t *testing.T) {
	d := &fakeDispatcher{}
	rr := do(t, newTestRouter(d), httptest.NewRequest(http.MethodGet, "/nope/FeatureServer", nil))

	require.Equal(t, http.StatusNotFound, rr.Code)
	assert.JSONEq(t, `{"error":"Source \"nope\" not found"}`, rr.Body.String())
	assert.Nil(t, d.req, "dispatcher must not run")
}

func TestFeatureServer_SourceLoadFailure(t *testing.T) {
	d := &fakeDispatcher{}
	rr := do(t, newTestRouter(d), httptest.NewRequest(http.MethodGet, "/broken/FeatureServer", nil))

	require.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Contains(t, rr.Body.String(), "Failed to load source")
	assert.NotContains(t, rr.Body.String(), "disk on fire")
}

func TestTransport_JSONAndStatus(t *testing.T) {
	d := &fakeDispatcher{status: http.StatusBadRequest, body: featureserver.ErrorBody{Error: `Invalid "limit" parameter`}}
	rr := do(t, newTestRouter(d), httptest.NewRequest(http.MethodGet, "/cities/FeatureServer/0/query", nil))

	require.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "application/json; charset=utf-8", rr.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"error":"Invalid \"limit\" parameter"}`, rr.Body.String())
}

func TestTransport_JSONP(t *testing.T) {
	d := &fakeDispatcher{}
	rr := do(t, newTestRouter(d), httptest.NewRequest(http.MethodGet, "/cities/FeatureServer?callback=dojo.cb_1", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "application/javascript; charset=utf-8", rr.Header().Get("Content-Type"))
	assert.Equal(t, `dojo.cb_1({"ok":true});`, rr.Body.String())
}

func TestTransport_InvalidCallbackFallsBackToJSON(t *testing.T) {
	d := &fakeDispatcher{}
	rr := do(t, newTestRouter(d), httptest.NewRequest(http.MethodGet, "/cities/FeatureServer?callback="+url.QueryEscape("alert(1)"), nil))

	assert.Equal(t, "application/json; charset=utf-8", rr.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"ok":true}`, rr.Body.String())
}

func TestTransport_PrettyJSON(t *testing.T) {
	d := &fakeDispatcher{}
	rr := do(t, newTestRouter(d), httptest.NewRequest(http.MethodGet, "/cities/FeatureServer?f=pjson", nil))

	assert.Equal(t, "{\n  \"ok\": true\n}", rr.Body.String())
	var v map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &v))
}

func TestTransport_UnencodableBody(t *testing.T) {
	d := &fakeDispatcher{status: http.StatusOK, body: map[string]any{"bad": make(chan int)}}
	rr := do(t, newTestRouter(d), httptest.NewRequest(http.MethodGet, "/cities/FeatureServer", nil))

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.JSONEq(t, `{"error":"Failed to encode response"}`, rr.Body.String())
}
