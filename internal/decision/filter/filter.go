// Package filter decides which tower records are ingested, based on optional
// value lists over the standard, country (MCC) and operator (MNC) columns.
package filter

import (
	"fmt"
	"strings"

	"github.com/mohammed-shakir/towercache/internal/decision"
	"github.com/mohammed-shakir/towercache/internal/model"
)

// Mode selects how a non-empty list is applied.
type Mode int

const (
	// ModeBlock excludes records whose value is listed. This is the historical
	// behaviour of the loader and the default.
	ModeBlock Mode = iota
	// ModeAllow keeps only records whose value is listed.
	ModeAllow
)

// TODO: confirm with the dataset owners whether list filters were meant as
// allow-lists; if so flip the default to ModeAllow.

func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "block", "deny", "exclude":
		return ModeBlock, nil
	case "allow", "include":
		return ModeAllow, nil
	default:
		return ModeBlock, fmt.Errorf("unknown filter mode %q", s)
	}
}

func (m Mode) String() string {
	if m == ModeAllow {
		return "allow"
	}
	return "block"
}

type Config struct {
	Standards []string
	Countries []string
	Operators []string
	Mode      Mode
}

type set map[string]struct{}

func newSet(vals []string) set {
	if len(vals) == 0 {
		return nil
	}
	s := make(set, len(vals))
	for _, v := range vals {
		s[v] = struct{}{}
	}
	return s
}

// Engine is immutable once built.
type Engine struct {
	standards set
	countries set
	operators set
	mode      Mode
}

var _ decision.Interface = (*Engine)(nil)

func New(cfg Config) *Engine {
	return &Engine{
		standards: newSet(cfg.Standards),
		countries: newSet(cfg.Countries),
		operators: newSet(cfg.Operators),
		mode:      cfg.Mode,
	}
}

// ShouldInclude reports whether no dimension excludes rec. An empty list
// never constrains its dimension.
func (e *Engine) ShouldInclude(rec model.Record) bool {
	return e.pass(e.standards, rec.Standard) &&
		e.pass(e.countries, rec.MCC) &&
		e.pass(e.operators, rec.MNC)
}

func (e *Engine) pass(s set, v string) bool {
	if len(s) == 0 {
		return true
	}
	_, listed := s[v]
	if e.mode == ModeAllow {
		return listed
	}
	return !listed
}

// Empty reports whether the engine accepts every record.
func (e *Engine) Empty() bool {
	return len(e.standards) == 0 && len(e.countries) == 0 && len(e.operators) == 0
}

func (e *Engine) Mode() Mode { return e.mode }
