// Package observability records cache and ingestion metrics. Recording is a
// no-op until Init is called with a registerer.
package observability

import (
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
)

type collectors struct {
	cacheOps      *prometheus.CounterVec
	cacheOpDur    *prometheus.HistogramVec
	cacheHits     *prometheus.CounterVec
	cacheMisses   *prometheus.CounterVec
	loadRows      *prometheus.CounterVec
	loadDur       prometheus.Histogram
	cacheEntries  prometheus.Gauge
	lookupMemoHit *prometheus.CounterVec
}

var (
	active     atomic.Pointer[collectors]
	storeLabel atomic.Value
)

func init() {
	storeLabel.Store("memory")
}

// SetStore names the backing store in cache metric labels.
func SetStore(s string) {
	if s == "" {
		s = "memory"
	}
	storeLabel.Store(s)
}

func getStore() string {
	if v := storeLabel.Load(); v != nil {
		if s, ok := v.(string); ok && s != "" {
			return s
		}
	}
	return "memory"
}

func newCollectors() *collectors {
	return &collectors{
		cacheOps: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cache_op_total",
				Help: "Cache store operations by op and result.",
			},
			[]string{"op", "result", "store"},
		),
		cacheOpDur: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "cache_op_duration_seconds",
				Help:    "Latency of cache store operations in seconds.",
				Buckets: prometheus.ExponentialBuckets(0.00005, 2, 14), // 50us to ~400ms
			},
			[]string{"op", "store"},
		),
		cacheHits: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tower_cache_hits_total",
				Help: "Tower lookups that found a cached location.",
			},
			[]string{"store"},
		),
		cacheMisses: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tower_cache_misses_total",
				Help: "Tower lookups that found nothing.",
			},
			[]string{"store"},
		),
		loadRows: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tower_load_rows_total",
				Help: "CSV rows seen during ingestion by outcome.",
			},
			[]string{"outcome"},
		),
		loadDur: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "tower_load_duration_seconds",
				Help:    "Wall time of a full ingestion pass.",
				Buckets: prometheus.ExponentialBuckets(0.01, 2, 16),
			},
		),
		cacheEntries: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "tower_cache_entries",
				Help: "Entries held by the in-memory store.",
			},
		),
		lookupMemoHit: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tower_lookup_memo_total",
				Help: "Lookup memo results by outcome.",
			},
			[]string{"outcome"},
		),
	}
}

// Init registers the collectors on reg. With enabled=false (or a nil reg)
// all recording functions become no-ops.
func Init(reg prometheus.Registerer, enabled bool) {
	if !enabled || reg == nil {
		active.Store(nil)
		return
	}
	c := newCollectors()
	reg.MustRegister(
		c.cacheOps, c.cacheOpDur, c.cacheHits, c.cacheMisses,
		c.loadRows, c.loadDur, c.cacheEntries, c.lookupMemoHit,
	)
	active.Store(c)
}

func ObserveCacheOp(op string, err error, durationSeconds float64) {
	c := active.Load()
	if c == nil {
		return
	}
	s := getStore()
	result := "ok"
	if err != nil {
		result = "error"
	}
	c.cacheOps.WithLabelValues(op, result, s).Inc()
	c.cacheOpDur.WithLabelValues(op, s).Observe(durationSeconds)
}

func AddCacheHits(n int) {
	if c := active.Load(); c != nil && n > 0 {
		c.cacheHits.WithLabelValues(getStore()).Add(float64(n))
	}
}

func AddCacheMisses(n int) {
	if c := active.Load(); c != nil && n > 0 {
		c.cacheMisses.WithLabelValues(getStore()).Add(float64(n))
	}
}

// IncLoadRow counts one CSV row; outcome is one of stored, filtered, skipped, failed.
func IncLoadRow(outcome string) {
	if c := active.Load(); c != nil {
		c.loadRows.WithLabelValues(outcome).Inc()
	}
}

func ObserveLoadDuration(seconds float64) {
	if c := active.Load(); c != nil {
		c.loadDur.Observe(seconds)
	}
}

// IncCacheEntries counts one newly stored key.
func IncCacheEntries() {
	if c := active.Load(); c != nil {
		c.cacheEntries.Inc()
	}
}

func IncLookupMemo(hit bool) {
	c := active.Load()
	if c == nil {
		return
	}
	if hit {
		c.lookupMemoHit.WithLabelValues("hit").Inc()
		return
	}
	c.lookupMemoHit.WithLabelValues("miss").Inc()
}
