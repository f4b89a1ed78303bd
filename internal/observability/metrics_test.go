package observability

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func scrape(t *testing.T, reg *prometheus.Registry) string {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rr := httptest.NewRecorder()
	promhttp.HandlerFor(reg, promhttp.HandlerOpts{}).ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d want 200", rr.Code)
	}
	return rr.Body.String()
}

func TestMetrics_RecordedAfterInit(t *testing.T) {
	reg := prometheus.NewRegistry()
	Init(reg, true)
	t.Cleanup(func() { Init(nil, false) })
	SetStore("memory")

	ObserveCacheOp("store", nil, 0.0001)
	ObserveCacheOp("store", errors.New("full"), 0.0001)
	AddCacheHits(2)
	AddCacheMisses(1)
	IncLoadRow("stored")
	IncLoadRow("filtered")
	ObserveLoadDuration(0.5)
	for range 3 {
		IncCacheEntries()
	}
	IncLookupMemo(true)

	body := scrape(t, reg)
	for _, want := range []string{
		`cache_op_total{op="store",result="ok",store="memory"} 1`,
		`cache_op_total{op="store",result="error",store="memory"} 1`,
		`cache_op_duration_seconds_bucket{op="store",store="memory"`,
		`tower_cache_hits_total{store="memory"} 2`,
		`tower_cache_misses_total{store="memory"} 1`,
		`tower_load_rows_total{outcome="stored"} 1`,
		`tower_load_rows_total{outcome="filtered"} 1`,
		`tower_load_duration_seconds_count 1`,
		`tower_cache_entries 3`,
		`tower_lookup_memo_total{outcome="hit"} 1`,
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("missing %q in:\n%s", want, body)
		}
	}
}

func TestMetrics_NoopWhenDisabled(t *testing.T) {
	Init(nil, false)
	// must not panic
	ObserveCacheOp("fetch", nil, 0.001)
	AddCacheHits(1)
	IncLoadRow("stored")
	IncLookupMemo(false)
}
