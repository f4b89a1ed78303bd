// Package decision defines the per-record inclusion contract used during ingestion.
package decision

import "github.com/mohammed-shakir/towercache/internal/model"

type Interface interface {
	ShouldInclude(rec model.Record) bool
}
