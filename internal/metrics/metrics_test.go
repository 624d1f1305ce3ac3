package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/mohammed-shakir/geojson-featureserver/internal/core/observability"
)

func scrape(t *testing.T, p *Provider) string {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, p.Path(), nil)
	rr := httptest.NewRecorder()
	p.Handler().ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d want 200", rr.Code)
	}
	return rr.Body.String()
}

func TestProvider_RegistersStandardCollectors_AndBuildInfo(t *testing.T) {
	p, err := Init(Config{Build: BuildInfo{Version: "test", Revision: "r", BuildDate: "now"}})
	if err != nil {
		t.Fatalf("init: %v", err)
	}

	g := prometheus.NewGauge(prometheus.GaugeOpts{Name: "test_gauge", Help: "smoke"})
	p.Register(g)
	g.Set(42)
	if n := testutil.CollectAndCount(g); n == 0 {
		t.Fatalf("expected at least 1 sample from test_gauge, got %d", n)
	}

	body := scrape(t, p)
	if !strings.Contains(body, "go_goroutines") {
		t.Fatalf("expected go_goroutines in payload; got:\n%s", body)
	}
	if !strings.Contains(body, `featureserver_build_info{build_date="now",revision="r",version="test"} 1`) {
		t.Fatalf("expected build info in payload; got:\n%s", body)
	}
	if p.Path() != "/metrics" || p.Separate() {
		t.Fatalf("unexpected defaults path=%q separate=%v", p.Path(), p.Separate())
	}
}

func TestProvider_ServesServiceInstruments(t *testing.T) {
	p, err := Init(Config{Path: "/internal/metrics", Addr: ":9100"})
	if err != nil {
		t.Fatalf("init: %v", err)
	}
	observability.IncSourceCacheHit()
	observability.ObserveSourceLoad("file", nil, 0.01)

	body := scrape(t, p)
	for _, want := range []string{
		`featureserver_source_cache_results_total{outcome="hit"}`,
		`featureserver_source_load_duration_seconds_count{driver="file",result="ok"}`,
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("missing %s in payload:\n%s", want, body)
		}
	}
	if !p.Separate() {
		t.Fatal("addr set: metrics should get their own listener")
	}
}
