package analysis

import (
	"context"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.trai.ch/tabula/internal/core/domain"
	"go.trai.ch/tabula/internal/core/ports"
	"go.trai.ch/tabula/internal/engine/cacheable"
	"go.trai.ch/zerr"
	"golang.org/x/sync/errgroup"
)

// Stage is a step of an analysis run.
type Stage string

const (
	// StageInit is the state before the run starts.
	StageInit Stage = "Init"
	// StageCacheCheck looks for a usable cached result set.
	StageCacheCheck Stage = "CacheCheck"
	// StageCachedLoad loads the cached result set.
	StageCachedLoad Stage = "CachedLoad"
	// StageFreshStart begins without prior results.
	StageFreshStart Stage = "FreshStart"
	// StageSelectRows builds the row selection mask.
	StageSelectRows Stage = "SelectRows"
	// StageDispatch computes the selected rows.
	StageDispatch Stage = "Dispatch"
	// StageCollect gathers the row outcomes.
	StageCollect Stage = "Collect"
	// StageMerge combines prior and fresh records in source order.
	StageMerge Stage = "Merge"
	// StagePersist writes the merged result set.
	StagePersist Stage = "Persist"
	// StageDone marks a finished run.
	StageDone Stage = "Done"
)

// Summary reports the outcome of one run.
type Summary struct {
	RunID    uuid.UUID
	Analysis string
	Rows     int
	Selected int
	// Computed counts rows whose computation ran; Reused counts rows taken from the cache.
	Computed int
	Reused   int
	// Failed counts unsuccessful records in the merged result set.
	Failed         int
	CacheTimestamp time.Time
	Warnings       []string
	Records        []domain.RunRecord
}

// Orchestrator runs analyses over tables.
type Orchestrator struct {
	store   ports.CacheStore
	figures ports.FigureRegistrar
	tracer  ports.Tracer
	logger  ports.Logger
}

// NewOrchestrator creates an Orchestrator with the given dependencies.
func NewOrchestrator(
	store ports.CacheStore,
	figures ports.FigureRegistrar,
	tracer ports.Tracer,
	logger ports.Logger,
) *Orchestrator {
	return &Orchestrator{
		store:   store,
		figures: figures,
		tracer:  tracer,
		logger:  logger,
	}
}

type runState struct {
	o       *Orchestrator
	a       *Analysis
	def     Definition
	table   ports.Table
	comp    ports.Computation
	facet   *cacheable.Facet[ResultSet]
	stage   Stage
	summary *Summary

	prior []domain.RunRecord
	mask  domain.RowSelectionMask
	fresh []domain.RunRecord
}

// Run maps comp over table for analysis a. Row failures are recorded on their
// records; only cache, merge and persist failures are returned.
func (o *Orchestrator) Run(
	ctx context.Context,
	a *Analysis,
	table ports.Table,
	comp ports.Computation,
) (*Summary, error) {
	def := a.Definition()
	state := &runState{
		o:     o,
		a:     a,
		def:   def,
		table: table,
		comp:  comp,
		facet: cacheable.New[ResultSet](o.store, o.logger, a),
		stage: StageInit,
		summary: &Summary{
			RunID:    uuid.New(),
			Analysis: def.Name,
			Rows:     table.Len(),
		},
	}

	ctx, span := o.tracer.Start(ctx, "analysis "+def.Name,
		ports.WithAttribute("run.id", state.summary.RunID.String()),
		ports.WithAttribute("table", table.Name()),
	)
	defer span.End()

	if err := state.run(ctx); err != nil {
		span.RecordError(err)
		return nil, zerr.With(zerr.With(err, "analysis", def.Name), "stage", string(state.stage))
	}
	return state.summary, nil
}

func (s *runState) run(ctx context.Context) error {
	if err := s.checkCache(ctx); err != nil {
		return err
	}

	s.enter(StageSelectRows)
	s.mask = selectRows(s.table, indexByKey(s.prior), s.def.RetryFailures)
	s.summary.Selected = s.mask.Count()
	s.summary.Reused = s.summary.Rows - s.summary.Selected

	if err := s.dispatch(ctx); err != nil {
		return err
	}

	s.enter(StageMerge)
	_, span := s.o.tracer.Start(ctx, "merge")
	merged, err := merge(s.table, s.prior, s.fresh)
	if err != nil {
		span.RecordError(err)
		span.End()
		return err
	}
	span.End()

	if err := s.persist(ctx, merged); err != nil {
		return err
	}

	for _, r := range merged {
		if !r.Success {
			s.summary.Failed++
		}
	}
	s.summary.Records = merged
	s.enter(StageDone)
	s.o.logger.Info(s.summaryLine())
	return nil
}

func (s *runState) enter(stage Stage) {
	s.stage = stage
}

func (s *runState) warn(msg string) {
	s.summary.Warnings = append(s.summary.Warnings, msg)
	s.o.logger.Warn(msg)
}

// checkCache loads a valid cached result set and compares it against the table's modification time.
func (s *runState) checkCache(ctx context.Context) error {
	s.enter(StageCacheCheck)
	_, span := s.o.tracer.Start(ctx, "cache check")
	defer span.End()

	has, err := s.facet.HasCache()
	if err != nil {
		span.RecordError(err)
		return zerr.Wrap(err, domain.ErrStoreReadFailed.Error())
	}
	if !has {
		s.enter(StageFreshStart)
		exists, err := s.o.store.Exists(s.facet.Key())
		switch {
		case err != nil:
			s.warn("cannot check for an expired cache of " + s.def.Name + ": " + err.Error())
		case exists:
			s.warn("cache of " + s.def.Name + " is older than its valid-after time; recomputing all rows")
		}
		return nil
	}

	s.enter(StageCachedLoad)
	ts, err := s.facet.LoadFromCache()
	if err != nil {
		span.RecordError(err)
		return err
	}
	s.prior = s.a.Results()
	s.summary.CacheTimestamp = ts
	span.SetAttribute("cache.timestamp", ts.Format(time.RFC3339))

	s.checkStale(ts)
	return nil
}

// checkStale warns when the table or declared tables changed after the cache was written.
// The cache is used regardless.
func (s *runState) checkStale(ts time.Time) {
	sources := [][]string{nil}
	if len(s.def.ReferencedTables) > 0 {
		sources = append(sources, s.def.ReferencedTables)
	}
	for _, names := range sources {
		modified, err := s.table.LastModified(names...)
		if err != nil {
			s.warn("cannot read modification time of " + describeTables(s.table, names) + ": " + err.Error())
			continue
		}
		if modified.After(ts) {
			s.warn("cache of " + s.def.Name + " is older than " + describeTables(s.table, names) +
				"; using it anyway")
		}
	}

	if len(s.def.InvalidatingTables) == 0 {
		return
	}
	modified, err := s.table.LastModified(s.def.InvalidatingTables...)
	if err != nil {
		s.warn("cannot read modification time of " + describeTables(s.table, s.def.InvalidatingTables) + ": " + err.Error())
		return
	}
	if modified.After(ts) {
		s.warn("invalidating tables " + strings.Join(s.def.InvalidatingTables, ", ") +
			" changed after the cache of " + s.def.Name + " was written; delete the cache to recompute all rows")
	}
}

// dispatch computes the selected rows in parallel. Each outcome goes to the
// slot of its row, so completion order does not matter.
func (s *runState) dispatch(ctx context.Context) error {
	s.enter(StageDispatch)
	indices := s.mask.Indices()
	if len(indices) == 0 {
		return nil
	}

	keys := make([]string, len(indices))
	for i, idx := range indices {
		keys[i] = s.table.Row(idx).Key
	}
	s.o.tracer.EmitPlan(ctx, keys)

	ctx, span := s.o.tracer.Start(ctx, "dispatch", ports.WithAttribute("rows", len(indices)))
	defer span.End()

	parallelism := s.def.Parallelism
	if parallelism <= 0 {
		parallelism = runtime.NumCPU()
	}

	exec := &executor{def: s.def, comp: s.comp, figures: s.o.figures, tracer: s.o.tracer}
	slots := make([]domain.RunRecord, len(indices))
	ran := make([]bool, len(indices))

	var g errgroup.Group
	g.SetLimit(parallelism)
	for slot, idx := range indices {
		row := s.table.Row(idx)
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			slots[slot] = exec.execute(ctx, idx, row)
			ran[slot] = true
			return nil
		})
	}
	_ = g.Wait()

	// Nothing has been written yet, so an interrupted run can stop here.
	if err := ctx.Err(); err != nil {
		span.RecordError(err)
		return zerr.Wrap(err, domain.ErrRunAborted.Error())
	}

	s.enter(StageCollect)
	s.fresh = slots
	for _, ok := range ran {
		if ok {
			s.summary.Computed++
		}
	}
	return nil
}

// persist stores the merged result set when any row was computed, then attaches it to the table.
// The analysis keeps its previous results when the store rejects the new ones.
func (s *runState) persist(ctx context.Context, merged []domain.RunRecord) error {
	s.enter(StagePersist)
	previous := s.a.PersistedState()
	s.a.setResults(merged)

	if s.summary.Selected > 0 {
		_, span := s.o.tracer.Start(ctx, "persist")
		err := s.facet.Cache()
		if err != nil {
			span.RecordError(err)
		}
		span.End()
		if err != nil {
			s.a.ApplyPersistedState(previous)
			return err
		}
	}

	if err := s.table.AttachResults(s.def.Name, merged); err != nil {
		return zerr.Wrap(err, domain.ErrMergeInconsistent.Error())
	}
	return nil
}

func (s *runState) summaryLine() string {
	return s.def.Name + ": " +
		strconv.Itoa(s.summary.Computed) + " computed, " +
		strconv.Itoa(s.summary.Reused) + " reused, " +
		strconv.Itoa(s.summary.Failed) + " failed"
}

func describeTables(table ports.Table, names []string) string {
	if len(names) == 0 {
		return "table " + table.Name()
	}
	return "tables " + strings.Join(names, ", ")
}
