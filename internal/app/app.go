// Package app implements the application layer for tabula.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"go.trai.ch/tabula/internal/core/domain"
	"go.trai.ch/tabula/internal/core/ports"
	"go.trai.ch/tabula/internal/engine/analysis"
	"go.trai.ch/tabula/internal/engine/cacheable"
	"go.trai.ch/zerr"
)

// resultWriter is implemented by tables that can write attached results to a file.
type resultWriter interface {
	WriteResultsFile(name, path string) error
}

// App represents the main application logic.
type App struct {
	configLoader   ports.ConfigLoader
	logger         ports.Logger
	openStore      ports.CacheStoreOpener
	openTracer     ports.TracerOpener
	openTable      ports.TableOpener
	openFigures    ports.FigureRegistrarOpener
	newComputation ports.ComputationFactory
	out            io.Writer
}

// New creates a new App instance.
func New(
	loader ports.ConfigLoader,
	log ports.Logger,
	openStore ports.CacheStoreOpener,
	openTracer ports.TracerOpener,
	openTable ports.TableOpener,
	openFigures ports.FigureRegistrarOpener,
	newComputation ports.ComputationFactory,
) *App {
	return &App{
		configLoader:   loader,
		logger:         log,
		openStore:      openStore,
		openTracer:     openTracer,
		openTable:      openTable,
		openFigures:    openFigures,
		newComputation: newComputation,
		out:            os.Stdout,
	}
}

// WithOutput sets the writer run summaries and listings are printed to.
func (a *App) WithOutput(w io.Writer) *App {
	a.out = w
	return a
}

// RunOptions configuration for the Run method.
type RunOptions struct {
	ConfigPath string
	// RetryFailures recomputes rows whose cached result failed, in addition to the configured setting.
	RetryFailures bool
	// Parallelism overrides the configured worker count when positive.
	Parallelism int
	// OutPath receives the merged results as JSON Lines when set.
	OutPath string
	Trace   string
}

// Run executes the named analyses in order. A failing analysis does not stop the
// others unless the context is cancelled.
func (a *App) Run(ctx context.Context, names []string, opts RunOptions) error {
	if len(names) == 0 {
		return domain.ErrNoAnalysesSpecified
	}

	settings, err := a.loadSettings(opts.ConfigPath)
	if err != nil {
		return err
	}
	for _, name := range names {
		if _, ok := settings.Analyses[name]; !ok {
			return zerr.With(domain.ErrAnalysisNotFound, "analysis", name)
		}
	}

	store, err := a.store(settings)
	if err != nil {
		return err
	}
	figures, err := a.openFigures(settings.Figures)
	if err != nil {
		return err
	}
	tracer, shutdown, err := a.openTracer(domain.NormalizeTraceMode(opts.Trace))
	if err != nil {
		return err
	}
	defer func() {
		if err := shutdown(context.WithoutCancel(ctx)); err != nil {
			a.logger.Warn("failed to flush trace: " + err.Error())
		}
	}()

	orch := analysis.NewOrchestrator(store, figures, tracer, a.logger)

	var errs error
	for _, name := range names {
		if err := a.runOne(ctx, orch, figures, settings.Analyses[name], outPath(opts.OutPath, name, len(names)), opts); err != nil {
			if ctx.Err() != nil {
				return errors.Join(domain.ErrRunFailed, err)
			}
			a.logger.Error(err)
			errs = errors.Join(errs, err)
		}
	}
	if errs != nil {
		return errors.Join(domain.ErrRunFailed, errs)
	}
	return nil
}

func (a *App) runOne(
	ctx context.Context,
	orch *analysis.Orchestrator,
	figures ports.FigureRegistrar,
	s domain.AnalysisSettings,
	out string,
	opts RunOptions,
) error {
	table, err := a.openTable(s.Table, s.Key)
	if err != nil {
		return zerr.With(err, "analysis", s.Name)
	}
	comp, err := a.newComputation(s)
	if err != nil {
		return err
	}

	def := analysis.DefinitionFromSettings(s)
	def.RetryFailures = def.RetryFailures || opts.RetryFailures
	if opts.Parallelism > 0 {
		def.Parallelism = opts.Parallelism
	}

	summary, err := orch.Run(ctx, analysis.New(def, table.Name()), table, comp)
	if err != nil {
		return err
	}

	_, _ = fmt.Fprintf(a.out, "%s: %d rows, %d computed, %d reused, %d failed\n",
		summary.Analysis, summary.Rows, summary.Computed, summary.Reused, summary.Failed)
	a.checkFigures(figures, summary)

	if out == "" {
		return nil
	}
	w, ok := table.(resultWriter)
	if !ok {
		return zerr.With(zerr.New("table cannot write results"), "table", table.Name())
	}
	return w.WriteResultsFile(s.Name, out)
}

// checkFigures warns about figures registered by a row that never wrote a file
// under any figure root.
func (a *App) checkFigures(figures ports.FigureRegistrar, summary *analysis.Summary) {
	for _, r := range summary.Records {
		for _, info := range r.FigureInfo {
			if _, ok := figures.Find(summary.Analysis, info); !ok {
				a.logger.Warn("figure " + info.Name + " of row " + r.RowKey + " in " + summary.Analysis + " has no file")
			}
		}
	}
}

// outPath returns the results file of one analysis. With several analyses the
// analysis name is inserted before the extension.
func outPath(path, name string, count int) string {
	if path == "" || count == 1 {
		return path
	}
	ext := filepath.Ext(path)
	return strings.TrimSuffix(path, ext) + "." + name + ext
}

// ListCache prints the cache entries stored under cacheName, newest first.
func (a *App) ListCache(configPath, cacheName string) error {
	settings, err := a.loadSettings(configPath)
	if err != nil {
		return err
	}
	store, err := a.store(settings)
	if err != nil {
		return err
	}

	entries, err := store.List(cacheName)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		a.logger.Info("no cache entries for " + cacheName + " under " + strings.Join(store.Roots(), ", "))
		return nil
	}
	for _, e := range entries {
		_, _ = fmt.Fprintf(a.out, "%s  %s  %s  %s\n",
			e.Hash, e.Timestamp.Local().Format("2006-01-02 15:04:05"), e.Root, e.ParamKey)
	}
	return nil
}

// DeleteCache removes the cache of an analysis from all cache roots.
func (a *App) DeleteCache(configPath, name string) error {
	facet, err := a.analysisFacet(configPath, name)
	if err != nil {
		return err
	}
	if err := facet.DeleteCache(); err != nil {
		return err
	}
	a.logger.Info("deleted cache of " + name)
	return nil
}

// SaveSnapshot stores the current cache of an analysis as a named snapshot.
func (a *App) SaveSnapshot(configPath, name, snapshot string) error {
	facet, err := a.analysisFacet(configPath, name)
	if err != nil {
		return err
	}
	if _, err := facet.LoadFromCache(); err != nil {
		return err
	}
	if err := facet.Snapshot(snapshot); err != nil {
		return err
	}
	a.logger.Info("saved snapshot " + snapshot + " of " + name)
	return nil
}

// LoadSnapshot restores a snapshot as the current cache of an analysis. Without a
// snapshot name the most recent snapshot taken with the current param is used.
func (a *App) LoadSnapshot(configPath, name, snapshot string) error {
	facet, err := a.analysisFacet(configPath, name)
	if err != nil {
		return err
	}

	if snapshot == "" {
		snapshot, _, err = facet.LoadFromSnapshotMostRecentMatchingParam()
	} else {
		_, err = facet.LoadFromSnapshot(snapshot)
	}
	if err != nil {
		return err
	}

	if err := facet.Cache(); err != nil {
		return err
	}
	a.logger.Info("restored snapshot " + snapshot + " of " + name)
	return nil
}

// ListSnapshots prints the snapshots of an analysis, newest first.
func (a *App) ListSnapshots(configPath, name string) error {
	facet, err := a.analysisFacet(configPath, name)
	if err != nil {
		return err
	}
	snapshots, err := facet.ListSnapshots()
	if err != nil {
		return err
	}
	if len(snapshots) == 0 {
		a.logger.Info("no snapshots of " + name)
		return nil
	}
	for _, s := range snapshots {
		marker := " "
		if s.MatchesParam {
			marker = "*"
		}
		_, _ = fmt.Fprintf(a.out, "%s %s  %s  %s\n",
			marker, s.Name, s.Timestamp.Local().Format("2006-01-02 15:04:05"), s.Root)
	}
	return nil
}

// analysisFacet builds the cacheable facet of a configured analysis.
func (a *App) analysisFacet(configPath, name string) (*cacheable.Facet[analysis.ResultSet], error) {
	settings, err := a.loadSettings(configPath)
	if err != nil {
		return nil, err
	}
	s, ok := settings.Analyses[name]
	if !ok {
		return nil, zerr.With(domain.ErrAnalysisNotFound, "analysis", name)
	}
	store, err := a.store(settings)
	if err != nil {
		return nil, err
	}
	table, err := a.openTable(s.Table, s.Key)
	if err != nil {
		return nil, zerr.With(err, "analysis", name)
	}

	an := analysis.New(analysis.DefinitionFromSettings(s), table.Name())
	return cacheable.New[analysis.ResultSet](store, a.logger, an), nil
}

func (a *App) loadSettings(path string) (*domain.Settings, error) {
	settings, err := a.configLoader.Load(path)
	if err != nil {
		return nil, zerr.Wrap(err, "failed to load configuration")
	}
	return settings, nil
}

// store opens the cache store, creating the first root when no root exists yet
// and the settings allow it.
func (a *App) store(settings *domain.Settings) (ports.CacheStore, error) {
	roots := settings.Cache.Roots
	if settings.Cache.CreateFirstRoot && len(roots) > 0 && !slices.ContainsFunc(roots, dirExists) {
		if err := os.MkdirAll(roots[0], domain.DirPerm); err != nil {
			return nil, zerr.With(zerr.Wrap(err, domain.ErrStoreCreateFailed.Error()), "path", roots[0])
		}
		a.logger.Info("created cache root " + roots[0])
	}
	return a.openStore(settings.Cache)
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
