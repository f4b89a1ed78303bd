package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type FilterCfg struct {
	Standards []string
	Countries []string
	Operators []string
	Mode      string
}

type RedisCfg struct {
	Addr      string
	KeyPrefix string
	DB        int
	TTL       time.Duration
}

type Config struct {
	CSVPath        string
	CSVSkipHeader  bool
	Filter         FilterCfg
	StoreDriver    string
	StoreCapacity  int
	StoreShards    int
	Redis          RedisCfg
	LookupMemoSize int
	LogLevel       string
	LogConsole     bool
	LogSampleN     int
	AdminAddr      string
	MetricsEnabled bool
	LoadTimeout    time.Duration
}

func FromEnv() Config {
	return Config{
		CSVPath:       getenv("CSV_PATH", "cell_towers.csv"),
		CSVSkipHeader: getbool("CSV_SKIP_HEADER", false),
		Filter: FilterCfg{
			Standards: ParseList(getenv("FILTER_STANDARDS", "")),
			Countries: ParseList(getenv("FILTER_COUNTRIES", "")),
			Operators: ParseList(getenv("FILTER_OPERATORS", "")),
			Mode:      getenv("FILTER_MODE", "block"),
		},
		StoreDriver:   strings.ToLower(getenv("STORE_DRIVER", "memory")),
		StoreCapacity: getint("STORE_CAPACITY", 0),
		StoreShards:   getint("STORE_SHARDS", 16),
		Redis: RedisCfg{
			Addr:      getenv("REDIS_ADDR", "localhost:6379"),
			KeyPrefix: getenv("REDIS_KEY_PREFIX", "tower:"),
			DB:        getint("REDIS_DB", 0),
			TTL:       getduration("REDIS_TTL", 0),
		},
		LookupMemoSize: getint("LOOKUP_MEMO_SIZE", 0),
		LogLevel:       getenv("LOG_LEVEL", "info"),
		LogConsole:     getbool("LOG_CONSOLE", false),
		LogSampleN:     getint("LOG_SAMPLE_N", 0),
		AdminAddr:      getenv("ADMIN_ADDR", ":9090"),
		MetricsEnabled: getbool("METRICS_ENABLED", false),
		LoadTimeout:    getduration("LOAD_TIMEOUT", 0),
	}
}

// ParseList splits "244, 240,,GSM" into trimmed, non-empty values.
func ParseList(s string) []string {
	var out []string
	for p := range strings.SplitSeq(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getint(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getbool(k string, def bool) bool {
	if v := os.Getenv(k); v != "" {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "t", "true", "y", "yes":
			return true
		case "0", "f", "false", "n", "no":
			return false
		}
	}
	return def
}

func getduration(k string, def time.Duration) time.Duration {
	if v := os.Getenv(k); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
