// Package analysis maps a per-row computation over a table, reusing cached rows
// and recomputing only those without a usable result.
package analysis

import (
	"slices"
	"sync"
	"time"

	"go.trai.ch/tabula/internal/core/domain"
)

// Definition describes one analysis.
type Definition struct {
	Name  string
	Param any
	// Fields is the declared result field set. Empty accepts any fields.
	Fields []string
	// FailureValues supplies the field values of failed rows and of missing fields.
	FailureValues      domain.Record
	RetryFailures      bool
	Parallelism        int
	ReferencedTables   []string
	InvalidatingTables []string
	ValidAfter         time.Time
}

// DefinitionFromSettings builds a Definition from its configuration.
func DefinitionFromSettings(s domain.AnalysisSettings) Definition {
	var param any
	if len(s.Param) > 0 {
		param = s.Param
	}
	return Definition{
		Name:               s.Name,
		Param:              param,
		Fields:             slices.Clone(s.Fields),
		FailureValues:      s.Failure.Clone(),
		RetryFailures:      s.RetryFailures,
		Parallelism:        s.Parallelism,
		ReferencedTables:   slices.Clone(s.ReferencedTables),
		InvalidatingTables: slices.Clone(s.InvalidatingTables),
		ValidAfter:         s.ValidAfter,
	}
}

// ResultSet is the persisted state of an analysis: one record per source row, in row order.
type ResultSet struct {
	Table   string             `msgpack:"table"`
	Records []domain.RunRecord `msgpack:"records"`
}

// cacheParam identifies an analysis' cache: the same analysis over another table is another cache.
type cacheParam struct {
	Table string `msgpack:"table"`
	Param any    `msgpack:"param"`
}

// Analysis is a cacheable analysis bound to one source table.
// It may be shared; reloading replaces its results in place.
type Analysis struct {
	def   Definition
	table string

	mu      sync.RWMutex
	results ResultSet
}

// New creates an Analysis of def over the named table.
func New(def Definition, table string) *Analysis {
	return &Analysis{def: def, table: table, results: ResultSet{Table: table}}
}

// Definition returns the analysis definition.
func (a *Analysis) Definition() Definition {
	return a.def
}

// CacheName implements cacheable.Entity.
func (a *Analysis) CacheName() string {
	return a.def.Name
}

// CacheParam implements cacheable.Entity.
func (a *Analysis) CacheParam() any {
	return cacheParam{Table: a.table, Param: a.def.Param}
}

// ValidAfter implements cacheable.Entity.
func (a *Analysis) ValidAfter() time.Time {
	return a.def.ValidAfter
}

// PersistedState implements cacheable.Entity.
func (a *Analysis) PersistedState() ResultSet {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return ResultSet{Table: a.results.Table, Records: slices.Clone(a.results.Records)}
}

// ApplyPersistedState implements cacheable.Entity.
func (a *Analysis) ApplyPersistedState(state ResultSet) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.results = state
}

// Results returns the current result records in source row order.
func (a *Analysis) Results() []domain.RunRecord {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return slices.Clone(a.results.Records)
}

func (a *Analysis) setResults(records []domain.RunRecord) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.results = ResultSet{Table: a.table, Records: records}
}
