package ports

import (
	"context"
	"io"

	"go.trai.ch/tabula/internal/core/domain"
)

// RowContext is the read-only context handed to a computation for one row.
// Everything a row needs travels in it; nothing is inherited implicitly.
type RowContext struct {
	Analysis string
	Index    int
	Row      domain.Row
	Param    any
	// Output receives the row's textual output.
	Output io.Writer
	// Figures registers figures for this row.
	Figures FigureSink
}

// Computation is the per-row analysis function.
//
//go:generate go run go.uber.org/mock/mockgen -source=computation.go -destination=mocks/mock_computation.go -package=mocks
type Computation interface {
	// Compute returns the row's result fields, normally a domain.Record.
	Compute(ctx context.Context, rc *RowContext) (any, error)
}

// ComputeFunc adapts a function to the Computation interface.
type ComputeFunc func(ctx context.Context, rc *RowContext) (any, error)

// Compute calls f.
func (f ComputeFunc) Compute(ctx context.Context, rc *RowContext) (any, error) {
	return f(ctx, rc)
}

// ComputationFactory builds the computation declared by an analysis' settings.
type ComputationFactory func(settings domain.AnalysisSettings) (Computation, error)
