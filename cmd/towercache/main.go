package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/mohammed-shakir/towercache/internal/app/server"
	"github.com/mohammed-shakir/towercache/internal/cache/drivers"
	"github.com/mohammed-shakir/towercache/internal/cache/keys"
	"github.com/mohammed-shakir/towercache/internal/config"
	"github.com/mohammed-shakir/towercache/internal/csvsource"
	"github.com/mohammed-shakir/towercache/internal/decision/filter"
	"github.com/mohammed-shakir/towercache/internal/loader"
	"github.com/mohammed-shakir/towercache/internal/logger"
	"github.com/mohammed-shakir/towercache/internal/metrics"
	"github.com/mohammed-shakir/towercache/internal/observability"
)

var Version = "dev"

type lookupList []string

func (l *lookupList) String() string { return strings.Join(*l, ",") }

func (l *lookupList) Set(v string) error {
	*l = append(*l, v)
	return nil
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout))
}

func run(args []string, stdout io.Writer) int {
	cfg := config.FromEnv()

	fs := flag.NewFlagSet("towercache", flag.ContinueOnError)
	csvPath := fs.String("csv", cfg.CSVPath, "OpenCellID CSV file (.csv, .csv.gz, .csv.zst)")
	skipHeader := fs.Bool("skip-header", cfg.CSVSkipHeader, "drop the first CSV row")
	standards := fs.String("standards", strings.Join(cfg.Filter.Standards, ","), "radio standards list, e.g. GSM,LTE")
	countries := fs.String("countries", strings.Join(cfg.Filter.Countries, ","), "MCC list, e.g. 244")
	operators := fs.String("operators", strings.Join(cfg.Filter.Operators, ","), "MNC list, e.g. 91,5")
	filterMode := fs.String("filter-mode", cfg.Filter.Mode, "block: listed values are excluded; allow: only listed values are kept")
	storeDriver := fs.String("store", cfg.StoreDriver, "memory or redis")
	serve := fs.Bool("serve", false, "keep the admin endpoint up after loading until interrupted")
	var lookups lookupList
	fs.Var(&lookups, "lookup", "tower key MCC.MNC.LAC.CID to resolve after loading (repeatable)")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	zl := logger.Build(logger.Config{
		Level:     cfg.LogLevel,
		Console:   cfg.LogConsole,
		SampleN:   cfg.LogSampleN,
		Component: "towercache",
	}, os.Stderr)
	appLog := logger.NewSlog(&zl)

	mode, err := filter.ParseMode(*filterMode)
	if err != nil {
		appLog.Error("invalid filter mode", "err", err)
		return 2
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx = logger.WithSource(logger.WithRunID(ctx, ""), *csvPath)

	var mp *metrics.Provider
	if cfg.MetricsEnabled {
		mp = metrics.Init(metrics.Config{
			GoCollectors: true,
			Build: metrics.BuildInfo{
				Version:   Version,
				Revision:  os.Getenv("BUILD_REVISION"),
				BuildDate: os.Getenv("BUILD_DATE"),
			},
		})
		observability.Init(mp.Registerer(), true)
	}
	storeName := drivers.Normalize(*storeDriver)
	observability.SetStore(storeName)

	store, closeStore, err := drivers.New(ctx, storeName, cfg, appLog)
	if err != nil {
		appLog.ErrorContext(ctx, "store setup failed", "store", storeName, "err", err)
		return 1
	}
	defer closeStore()

	src := csvsource.Open(*csvPath, sourceOpts(*skipHeader)...)
	ld := loader.New(store, src,
		loader.WithLogger(appLog),
		loader.WithFilter(filter.Config{
			Standards: config.ParseList(*standards),
			Countries: config.ParseList(*countries),
			Operators: config.ParseList(*operators),
			Mode:      mode,
		}))

	adminErr := make(chan error, 1)
	if h := adminHandler(*serve, appLog, ld, mp); h != nil {
		go func() { adminErr <- server.Run(ctx, cfg.AdminAddr, appLog, h) }()
	} else if mp != nil {
		appLog.WarnContext(ctx, "metrics enabled without -serve, /metrics is not exposed")
	}

	appLog.InfoContext(ctx, "loading towers",
		"version", Version,
		"store", storeName,
		"filter_mode", mode.String())

	loadCtx := ctx
	if cfg.LoadTimeout > 0 {
		var cancel context.CancelFunc
		loadCtx, cancel = context.WithTimeout(ctx, cfg.LoadTimeout)
		defer cancel()
	}
	if _, err := ld.Load(loadCtx); err != nil {
		if errors.Is(err, loader.ErrIngestion) {
			appLog.ErrorContext(ctx, "store rejected a tower, load aborted", "err", err)
		} else {
			appLog.ErrorContext(ctx, "tower load failed", "err", err)
		}
		return 1
	}

	if err := printLookups(ctx, ld, lookups, stdout); err != nil {
		appLog.ErrorContext(ctx, "lookup failed", "err", err)
		return 1
	}

	if !*serve {
		return 0
	}
	select {
	case <-ctx.Done():
	case err := <-adminErr:
		if err != nil {
			appLog.Error("admin server exited with error", "err", err)
			return 1
		}
	}
	appLog.Info("stopped")
	return 0
}

func sourceOpts(skipHeader bool) []csvsource.Option {
	if skipHeader {
		return []csvsource.Option{csvsource.WithSkipHeader()}
	}
	return nil
}

// adminHandler returns the ops router, or nil when the process exits right
// after the lookups and nothing could scrape it.
func adminHandler(serve bool, logger *slog.Logger, ld *loader.Loader, mp *metrics.Provider) http.Handler {
	if !serve {
		return nil
	}
	return server.NewRouter(logger, ld, metricsHandler(mp))
}

func metricsHandler(p *metrics.Provider) http.Handler {
	if p == nil {
		return nil
	}
	return p.Handler()
}

type lookupResult struct {
	Key   string `json:"key"`
	Found bool   `json:"found"`
	Lat   string `json:"lat,omitempty"`
	Lon   string `json:"lon,omitempty"`
}

func printLookups(ctx context.Context, ld *loader.Loader, lookups []string, out io.Writer) error {
	enc := json.NewEncoder(out)
	for _, raw := range lookups {
		mcc, mnc, lac, cid, err := keys.Parse(raw)
		if err != nil {
			return err
		}
		loc, found, err := ld.Lookup(ctx, mcc, mnc, lac, cid)
		if err != nil {
			return err
		}
		res := lookupResult{Key: keys.Tower(mcc, mnc, lac, cid), Found: found}
		if found {
			res.Lat, res.Lon = loc.Lat, loc.Lon
		}
		if err := enc.Encode(res); err != nil {
			return fmt.Errorf("write lookup result: %w", err)
		}
	}
	return nil
}
