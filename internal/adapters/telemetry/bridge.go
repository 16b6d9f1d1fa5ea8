package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.trai.ch/tabula/internal/core/ports"
)

// rowKeyAttribute marks per-row spans, which are only logged when they fail.
const rowKeyAttribute = "row.key"

// LogBridge implements sdktrace.SpanProcessor by logging finished spans.
type LogBridge struct {
	logger ports.Logger
}

// NewLogBridge returns a new LogBridge.
func NewLogBridge(logger ports.Logger) *LogBridge {
	return &LogBridge{logger: logger}
}

// NewTracerProvider returns an SDK provider whose spans end up in the logger.
func NewTracerProvider(logger ports.Logger) *sdktrace.TracerProvider {
	return sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(NewLogBridge(logger)))
}

// OnStart does nothing.
func (b *LogBridge) OnStart(_ context.Context, _ sdktrace.ReadWriteSpan) {}

// OnEnd logs stage spans with their duration and any failed span with its status.
func (b *LogBridge) OnEnd(s sdktrace.ReadOnlySpan) {
	if !s.SpanContext().IsValid() {
		return
	}

	elapsed := s.EndTime().Sub(s.StartTime()).Round(time.Millisecond)
	if s.Status().Code == codes.Error {
		desc := s.Status().Description
		if desc == "" {
			desc = "failed"
		}
		b.logger.Warn(s.Name() + " failed after " + elapsed.String() + ": " + desc)
		return
	}

	for _, kv := range s.Attributes() {
		if string(kv.Key) == rowKeyAttribute {
			return
		}
	}
	b.logger.Info(s.Name() + " finished in " + elapsed.String())
}

// Shutdown does nothing.
func (b *LogBridge) Shutdown(_ context.Context) error {
	return nil
}

// ForceFlush does nothing.
func (b *LogBridge) ForceFlush(_ context.Context) error {
	return nil
}
