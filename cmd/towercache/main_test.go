package main

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"

	"github.com/mohammed-shakir/towercache/internal/cache/memstore"
	"github.com/mohammed-shakir/towercache/internal/csvsource"
	"github.com/mohammed-shakir/towercache/internal/loader"
	"github.com/mohammed-shakir/towercache/internal/metrics"
)

const fixture = "../../internal/loader/testdata/244_GSM.csv"

func isolateEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"CSV_PATH", "CSV_SKIP_HEADER", "FILTER_STANDARDS", "FILTER_COUNTRIES", "FILTER_OPERATORS",
		"FILTER_MODE", "STORE_DRIVER", "STORE_CAPACITY", "LOOKUP_MEMO_SIZE", "METRICS_ENABLED",
		"REDIS_ADDR", "REDIS_TTL", "LOG_LEVEL",
	} {
		t.Setenv(k, "")
	}
	t.Setenv("LOG_LEVEL", "error")
}

func decode(t *testing.T, out string) []lookupResult {
	t.Helper()
	var res []lookupResult
	for ln := range strings.SplitSeq(strings.TrimSpace(out), "\n") {
		if ln == "" {
			continue
		}
		var r lookupResult
		if err := json.Unmarshal([]byte(ln), &r); err != nil {
			t.Fatalf("bad output line %q: %v", ln, err)
		}
		res = append(res, r)
	}
	return res
}

func TestRun_LoadAndLookup(t *testing.T) {
	isolateEnv(t)
	var out bytes.Buffer
	code := run([]string{"-csv", fixture, "-lookup", "244.5.2040.62439", "-lookup", "1.2.3.4"}, &out)
	if code != 0 {
		t.Fatalf("exit=%d", code)
	}
	got := decode(t, out.String())
	if len(got) != 2 {
		t.Fatalf("results=%v", got)
	}
	if !got[0].Found || got[0].Lat != "22.169596" || got[0].Lon != "60.482671" {
		t.Fatalf("hit=%+v", got[0])
	}
	if got[1].Found || got[1].Lat != "" {
		t.Fatalf("miss=%+v", got[1])
	}
}

func TestRun_CountryBlockList(t *testing.T) {
	isolateEnv(t)
	var out bytes.Buffer
	code := run([]string{"-csv", fixture, "-countries", "244", "-lookup", "244.5.2040.62439", "-lookup", "240.1.3100.777001"}, &out)
	if code != 0 {
		t.Fatalf("exit=%d", code)
	}
	got := decode(t, out.String())
	if got[0].Found || !got[1].Found {
		t.Fatalf("results=%+v", got)
	}
}

func TestRun_AllowModeFromEnv(t *testing.T) {
	isolateEnv(t)
	t.Setenv("FILTER_MODE", "allow")
	t.Setenv("FILTER_COUNTRIES", "244")
	var out bytes.Buffer
	code := run([]string{"-csv", fixture, "-lookup", "244.5.2040.62439", "-lookup", "240.1.3100.777001"}, &out)
	if code != 0 {
		t.Fatalf("exit=%d", code)
	}
	got := decode(t, out.String())
	if !got[0].Found || got[1].Found {
		t.Fatalf("results=%+v", got)
	}
}

func TestRun_CapacityExhaustedFails(t *testing.T) {
	isolateEnv(t)
	t.Setenv("STORE_CAPACITY", "3")
	if code := run([]string{"-csv", fixture}, &bytes.Buffer{}); code != 1 {
		t.Fatalf("exit=%d want 1", code)
	}
}

func TestRun_RedisWithMemo(t *testing.T) {
	isolateEnv(t)
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	t.Setenv("REDIS_ADDR", mr.Addr())
	t.Setenv("LOOKUP_MEMO_SIZE", "16")

	var out bytes.Buffer
	code := run([]string{"-csv", fixture, "-store", " Redis", "-lookup", "244.91.4111.11921"}, &out)
	if code != 0 {
		t.Fatalf("exit=%d", code)
	}
	got := decode(t, out.String())
	if !got[0].Found || got[0].Lat != "24.056625" {
		t.Fatalf("results=%+v", got)
	}
	if !mr.Exists("tower:244.91.4111.11921") {
		t.Fatalf("redis key missing; keys=%v", mr.Keys())
	}
}

func TestRun_Errors(t *testing.T) {
	isolateEnv(t)
	cases := []struct {
		name string
		args []string
		want int
	}{
		{"bad filter mode", []string{"-csv", fixture, "-filter-mode", "maybe"}, 2},
		{"unknown flag", []string{"-nope"}, 2},
		{"unknown store", []string{"-csv", fixture, "-store", "etcd"}, 1},
		{"missing file", []string{"-csv", "does-not-exist.csv"}, 1},
		{"malformed lookup", []string{"-csv", fixture, "-lookup", "244.5"}, 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if code := run(tc.args, &bytes.Buffer{}); code != tc.want {
				t.Fatalf("exit=%d want %d", code, tc.want)
			}
		})
	}
}

func TestAdminHandler_OnlyWithServe(t *testing.T) {
	ld := loader.New(memstore.New(), csvsource.Open(fixture))
	mp := metrics.Init(metrics.Config{})
	logger := slog.New(slog.DiscardHandler)

	if h := adminHandler(false, logger, ld, mp); h != nil {
		t.Fatalf("admin router built without -serve")
	}

	h := adminHandler(true, logger, ld, mp)
	if h == nil {
		t.Fatalf("admin router missing with -serve")
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), "towercache_build_info") {
		t.Fatalf("/metrics status=%d body=%q", rr.Code, rr.Body.String())
	}
}
