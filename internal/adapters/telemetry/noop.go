package telemetry

import (
	"context"

	"go.trai.ch/tabula/internal/core/ports"
)

// NoOpTracer backs `--trace none`. Stage and row spans are dropped and row
// output written to them is discarded; the row output kept on run records is
// unaffected.
type NoOpTracer struct{}

// NewNoOpTracer returns a tracer that records nothing.
func NewNoOpTracer() *NoOpTracer {
	return &NoOpTracer{}
}

// Start returns ctx unchanged together with a shared discarding span.
func (t *NoOpTracer) Start(ctx context.Context, _ string, _ ...ports.SpanOption) (context.Context, ports.Span) {
	return ctx, discardSpan
}

// EmitPlan ignores the selected row keys.
func (t *NoOpTracer) EmitPlan(context.Context, []string) {}

var discardSpan = &NoOpSpan{}

// NoOpSpan is the span handed out by NoOpTracer.
type NoOpSpan struct{}

func (s *NoOpSpan) End() {}

func (s *NoOpSpan) RecordError(error) {}

func (s *NoOpSpan) SetAttribute(string, any) {}

// Write reports p as fully written.
func (s *NoOpSpan) Write(p []byte) (int, error) {
	return len(p), nil
}
