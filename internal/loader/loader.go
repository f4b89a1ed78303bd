// Package loader ingests OpenCellID rows into a cache store and serves
// location lookups from it.
package loader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/mohammed-shakir/towercache/internal/cache"
	"github.com/mohammed-shakir/towercache/internal/cache/keys"
	"github.com/mohammed-shakir/towercache/internal/decision"
	"github.com/mohammed-shakir/towercache/internal/decision/filter"
	"github.com/mohammed-shakir/towercache/internal/model"
	"github.com/mohammed-shakir/towercache/internal/observability"
)

// RowSource yields CSV rows from the start on every call.
type RowSource interface {
	Rows(ctx context.Context) iter.Seq2[[]string, error]
}

var ErrIngestion = errors.New("ingestion failed")

// IngestionError reports the store rejecting a write. Rows before Row stay cached.
type IngestionError struct {
	Row int
	Key string
	Err error
}

func (e *IngestionError) Error() string {
	return fmt.Sprintf("ingest row %d key %q: %v", e.Row, e.Key, e.Err)
}

func (e *IngestionError) Unwrap() []error { return []error{ErrIngestion, e.Err} }

type Stats struct {
	Rows     int
	Filtered int
	Skipped  int
	Stored   int
	Duration time.Duration
}

type Option func(*Loader)

func WithFilter(cfg filter.Config) Option {
	return func(l *Loader) { l.decider = filter.New(cfg) }
}

// WithDecision replaces the list filter with any inclusion rule.
func WithDecision(d decision.Interface) Option {
	return func(l *Loader) {
		if d != nil {
			l.decider = d
		}
	}
}

func WithLogger(log *slog.Logger) Option {
	return func(l *Loader) {
		if log != nil {
			l.logger = log
		}
	}
}

type Loader struct {
	store   cache.Store
	src     RowSource
	decider decision.Interface
	logger  *slog.Logger
	loaded  atomic.Bool
}

func New(store cache.Store, src RowSource, opts ...Option) *Loader {
	l := &Loader{
		store:   store,
		src:     src,
		decider: filter.New(filter.Config{}),
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, f := range opts {
		f(l)
	}
	return l
}

// Load streams every row into the store. It stops at the first rejected write
// and returns an *IngestionError; nothing already stored is rolled back.
// Loading again merges into the existing contents.
func (l *Loader) Load(ctx context.Context) (st Stats, err error) {
	start := time.Now()
	defer func() {
		st.Duration = time.Since(start)
		observability.ObserveLoadDuration(st.Duration.Seconds())
	}()

	for row, err := range l.src.Rows(ctx) {
		if err != nil {
			return st, fmt.Errorf("load rows: %w", err)
		}
		st.Rows++

		rec, err := model.FromFields(row)
		if err != nil {
			st.Skipped++
			observability.IncLoadRow("skipped")
			l.logger.WarnContext(ctx, "skipping row", "row", st.Rows, "err", err)
			continue
		}
		if !l.decider.ShouldInclude(rec) {
			st.Filtered++
			observability.IncLoadRow("filtered")
			continue
		}

		key := rec.Key()
		l.logger.DebugContext(ctx, "store tower", "key", key, "standard", rec.Standard)
		if err := l.store.Store(ctx, key, rec.Location()); err != nil {
			observability.IncLoadRow("failed")
			return st, &IngestionError{Row: st.Rows, Key: key, Err: err}
		}
		st.Stored++
		observability.IncLoadRow("stored")
	}

	l.loaded.Store(true)
	l.logger.InfoContext(ctx, "tower load complete",
		"rows", st.Rows,
		"stored", st.Stored,
		"filtered", st.Filtered,
		"skipped", st.Skipped,
		"elapsed", time.Since(start).String())
	return st, nil
}

// Lookup returns the cached location of a tower. ok is false when the tower
// was never stored.
func (l *Loader) Lookup(ctx context.Context, mcc, mnc, lac, cid string) (model.Location, bool, error) {
	key := keys.Tower(mcc, mnc, lac, cid)
	loc, ok, err := l.store.Fetch(ctx, key)
	if err != nil {
		return model.Location{}, false, fmt.Errorf("lookup %s: %w", key, err)
	}
	return loc, ok, nil
}

// Exists checks an already derived key.
func (l *Loader) Exists(ctx context.Context, key string) (bool, error) {
	ok, err := l.store.Exists(ctx, key)
	if err != nil {
		return false, fmt.Errorf("exists %s: %w", key, err)
	}
	return ok, nil
}

// Loaded reports whether a Load pass has completed.
func (l *Loader) Loaded() bool { return l.loaded.Load() }

// Readiness satisfies the admin readiness probe.
func (l *Loader) Readiness() bool { return l.Loaded() }
