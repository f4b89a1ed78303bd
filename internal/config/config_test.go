package config

import (
	"slices"
	"testing"
	"time"
)

func TestFromEnv_Defaults(t *testing.T) {
	for _, k := range []string{"CSV_PATH", "STORE_DRIVER", "FILTER_COUNTRIES", "FILTER_MODE", "REDIS_TTL", "METRICS_ENABLED"} {
		t.Setenv(k, "")
	}
	c := FromEnv()
	if c.CSVPath != "cell_towers.csv" || c.StoreDriver != "memory" || c.Filter.Mode != "block" {
		t.Fatalf("defaults=%+v", c)
	}
	if c.Filter.Countries != nil || c.Redis.TTL != 0 || c.MetricsEnabled {
		t.Fatalf("defaults=%+v", c)
	}
}

func TestFromEnv_Overrides(t *testing.T) {
	t.Setenv("CSV_PATH", "/data/244.csv.gz")
	t.Setenv("CSV_SKIP_HEADER", "yes")
	t.Setenv("FILTER_COUNTRIES", "244, 240")
	t.Setenv("FILTER_STANDARDS", "GSM")
	t.Setenv("FILTER_MODE", "allow")
	t.Setenv("STORE_DRIVER", "Redis")
	t.Setenv("STORE_CAPACITY", "1000")
	t.Setenv("REDIS_TTL", "1h")
	t.Setenv("METRICS_ENABLED", "true")
	t.Setenv("LOG_SAMPLE_N", "not-a-number")

	c := FromEnv()
	if c.CSVPath != "/data/244.csv.gz" || !c.CSVSkipHeader {
		t.Fatalf("csv=%+v", c)
	}
	if !slices.Equal(c.Filter.Countries, []string{"244", "240"}) || !slices.Equal(c.Filter.Standards, []string{"GSM"}) {
		t.Fatalf("filter=%+v", c.Filter)
	}
	if c.Filter.Mode != "allow" || c.StoreDriver != "redis" || c.StoreCapacity != 1000 {
		t.Fatalf("config=%+v", c)
	}
	if c.Redis.TTL != time.Hour || !c.MetricsEnabled || c.LogSampleN != 0 {
		t.Fatalf("config=%+v", c)
	}
}

func TestParseList(t *testing.T) {
	if got := ParseList(" 244 ,, 240,"); !slices.Equal(got, []string{"244", "240"}) {
		t.Fatalf("ParseList=%v", got)
	}
	if got := ParseList(""); got != nil {
		t.Fatalf("ParseList(\"\")=%v want nil", got)
	}
}
