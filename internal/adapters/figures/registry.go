// Package figures records figure descriptors under the configured figure roots.
package figures

import (
	"os"
	"path/filepath"
	"regexp"
	"slices"

	"go.trai.ch/tabula/internal/core/domain"
	"go.trai.ch/zerr"
)

// unsafeChars matches characters replaced in figure file names.
var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// Registry creates figure descriptors. New figures go under the first root.
type Registry struct {
	roots      []string
	extensions []string
	width      float64
	height     float64
}

// NewRegistry creates a Registry from resolved figure settings.
func NewRegistry(settings domain.FigureSettings) (*Registry, error) {
	if len(settings.Roots) == 0 {
		return nil, zerr.Wrap(zerr.New("no figure root configured"), domain.ErrFigureRegisterFailed.Error())
	}
	return &Registry{
		roots:      slices.Clone(settings.Roots),
		extensions: slices.Clone(settings.Extensions),
		width:      settings.Width,
		height:     settings.Height,
	}, nil
}

// Dir returns the directory holding new figures of an analysis.
func (r *Registry) Dir(analysis string) string {
	return filepath.Join(r.roots[0], sanitize(analysis))
}

// RegisterFigure creates the analysis directory and returns the figure's descriptor.
// The path stem is <root>/<analysis>/<rowKey>_<name>; the computation writes one
// file per extension next to it.
func (r *Registry) RegisterFigure(ref domain.FigureRef, name, caption string) (domain.FigureInfo, error) {
	if name == "" {
		return domain.FigureInfo{}, zerr.With(zerr.New("figure name is empty"), "row", ref.RowKey)
	}

	dir := r.Dir(ref.Analysis)
	if err := os.MkdirAll(dir, domain.DirPerm); err != nil {
		return domain.FigureInfo{}, zerr.With(zerr.Wrap(err, domain.ErrFigureRegisterFailed.Error()), "path", dir)
	}

	return domain.FigureInfo{
		Name:       name,
		Caption:    caption,
		PathStem:   filepath.Join(dir, sanitize(ref.RowKey)+"_"+sanitize(name)),
		Extensions: slices.Clone(r.extensions),
		Width:      r.width,
		Height:     r.height,
	}, nil
}

// Find returns the first existing file of a figure across all roots, searching
// each configured extension in order.
func (r *Registry) Find(analysis string, info domain.FigureInfo) (string, bool) {
	stem := filepath.Base(info.PathStem)
	for _, root := range r.roots {
		for _, ext := range info.Extensions {
			p := filepath.Join(root, sanitize(analysis), stem+"."+ext)
			if _, err := os.Stat(p); err == nil {
				return p, true
			}
		}
	}
	return "", false
}

func sanitize(s string) string {
	s = unsafeChars.ReplaceAllString(s, "_")
	if s == "" || s == "." || s == ".." {
		return "_"
	}
	return s
}
