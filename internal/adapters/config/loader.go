// Package config provides the configuration loader for tabula.
package config

import (
	"maps"
	"os"
	"path/filepath"
	"slices"

	"go.trai.ch/tabula/internal/core/domain"
	"go.trai.ch/tabula/internal/core/ports"
	"go.trai.ch/zerr"
	"gopkg.in/yaml.v3"
)

// DefaultFilename is the settings file looked up when no path is given.
const DefaultFilename = "tabula.yaml"

// Defaults applied to settings the file leaves out. Relative paths resolve against
// the directory of the settings file.
const (
	DefaultCacheRoot     = ".tabula/cache"
	DefaultFigureRoot    = ".tabula/figures"
	DefaultMetaCacheSize = 256
	DefaultFigureWidth   = 6.4
	DefaultFigureHeight  = 4.8
)

// DefaultFigureExtensions are the figure formats recorded when none are configured.
var DefaultFigureExtensions = []string{"png"}

// FileConfigLoader implements ports.ConfigLoader using a YAML file.
type FileConfigLoader struct {
	logger ports.Logger
}

// NewLoader creates a new FileConfigLoader.
func NewLoader(log ports.Logger) *FileConfigLoader {
	return &FileConfigLoader{logger: log}
}

// Load reads, validates and resolves the settings file at path.
func (l *FileConfigLoader) Load(path string) (*domain.Settings, error) {
	if path == "" {
		path = DefaultFilename
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, zerr.With(zerr.Wrap(err, domain.ErrConfigReadFailed.Error()), "path", path)
	}

	data, err := os.ReadFile(abs) //nolint:gosec // path is provided by user
	if err != nil {
		return nil, zerr.With(zerr.Wrap(err, domain.ErrConfigReadFailed.Error()), "path", abs)
	}

	var file Tabulafile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, zerr.With(zerr.Wrap(err, domain.ErrConfigParseFailed.Error()), "path", abs)
	}

	if err := file.Validate(); err != nil {
		return nil, zerr.With(zerr.Wrap(err, domain.ErrConfigInvalid.Error()), "path", abs)
	}

	settings, err := resolve(&file, filepath.Dir(abs))
	if err != nil {
		return nil, zerr.With(err, "path", abs)
	}

	for _, name := range slices.Sorted(maps.Keys(settings.Analyses)) {
		for _, ref := range settings.Analyses[name].ReferencedTables {
			if _, err := os.Stat(ref); err != nil {
				l.logger.Warn("analysis " + name + " references missing table " + ref)
			}
		}
	}

	return settings, nil
}

// resolve converts the file schema into domain settings, applying defaults.
func resolve(file *Tabulafile, dir string) (*domain.Settings, error) {
	settings := &domain.Settings{
		Cache: domain.CacheSettings{
			Roots:           resolvePaths(dir, orDefault(file.Cache.Roots, DefaultCacheRoot)),
			CreateFirstRoot: true,
			MetaCacheSize:   DefaultMetaCacheSize,
		},
		Figures: domain.FigureSettings{
			Roots:      resolvePaths(dir, orDefault(file.Figures.Roots, DefaultFigureRoot)),
			Extensions: orDefault(file.Figures.Extensions, DefaultFigureExtensions...),
			Width:      file.Figures.Width,
			Height:     file.Figures.Height,
		},
		Analyses: make(map[string]domain.AnalysisSettings, len(file.Analyses)),
	}
	if file.Cache.CreateFirstRoot != nil {
		settings.Cache.CreateFirstRoot = *file.Cache.CreateFirstRoot
	}
	if file.Cache.MetaCacheSize != nil {
		settings.Cache.MetaCacheSize = *file.Cache.MetaCacheSize
	}
	if settings.Figures.Width == 0 {
		settings.Figures.Width = DefaultFigureWidth
	}
	if settings.Figures.Height == 0 {
		settings.Figures.Height = DefaultFigureHeight
	}

	for name, dto := range file.Analyses {
		a := domain.AnalysisSettings{
			Name:               name,
			Table:              resolvePath(dir, dto.Table),
			Key:                dto.Key,
			Command:            dto.Cmd,
			Environment:        dto.Env,
			Param:              dto.Param,
			Fields:             slices.Compact(slices.Sorted(slices.Values(dto.Fields))),
			Failure:            domain.Record(dto.Failure),
			RetryFailures:      dto.RetryFailures,
			Parallelism:        dto.Parallelism,
			ReferencedTables:   resolvePaths(dir, dto.ReferencedTables),
			InvalidatingTables: resolvePaths(dir, dto.InvalidatingTables),
		}
		if dto.ValidAfter != "" {
			ts, err := parseTimestamp(dto.ValidAfter)
			if err != nil {
				return nil, zerr.With(zerr.Wrap(err, domain.ErrConfigInvalid.Error()), "analysis", name)
			}
			a.ValidAfter = ts
		}
		settings.Analyses[name] = a
	}

	return settings, nil
}

func orDefault(values []string, defaults ...string) []string {
	if len(values) == 0 {
		return slices.Clone(defaults)
	}
	return values
}

func resolvePaths(dir string, paths []string) []string {
	if len(paths) == 0 {
		return nil
	}
	res := make([]string, len(paths))
	for i, p := range paths {
		res[i] = resolvePath(dir, p)
	}
	return res
}

func resolvePath(dir, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(dir, p)
}
