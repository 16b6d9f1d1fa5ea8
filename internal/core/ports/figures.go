package ports

import "go.trai.ch/tabula/internal/core/domain"

// FigureRegistrar creates figure descriptors for rows.
//
//go:generate go run go.uber.org/mock/mockgen -source=figures.go -destination=mocks/mock_figures.go -package=mocks
type FigureRegistrar interface {
	// RegisterFigure returns the descriptor for a named figure of a row.
	RegisterFigure(ref domain.FigureRef, name, caption string) (domain.FigureInfo, error)
	// Dir returns the directory holding new figures of an analysis.
	Dir(analysis string) string
	// Find returns the first existing file of a registered figure across all figure roots.
	Find(analysis string, info domain.FigureInfo) (string, bool)
}

// FigureSink is the row-bound side channel a computation registers figures through.
type FigureSink interface {
	RegisterFigure(name, caption string) (domain.FigureInfo, error)
	Dir() string
}

// FigureRegistrarOpener builds a registrar over the configured figure roots.
type FigureRegistrarOpener func(settings domain.FigureSettings) (FigureRegistrar, error)
