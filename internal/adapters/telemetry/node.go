package telemetry

import (
	"context"
	"os"

	"github.com/grindlemire/graft"
	"go.trai.ch/tabula/internal/adapters/logger"
	"go.trai.ch/tabula/internal/adapters/telemetry/progrock"
	"go.trai.ch/tabula/internal/core/domain"
	"go.trai.ch/tabula/internal/core/ports"
)

// TracerNodeID is the unique identifier for the Telemetry adapter Graft node.
const TracerNodeID graft.ID = "adapter.telemetry"

// InstrumentationName names the tracer of OpenTelemetry spans.
const InstrumentationName = "tabula"

func init() {
	graft.Register(graft.Node[ports.TracerOpener]{
		ID:        TracerNodeID,
		Cacheable: true,
		DependsOn: []graft.ID{logger.NodeID},
		Run: func(ctx context.Context) (ports.TracerOpener, error) {
			log, err := graft.Dep[ports.Logger](ctx)
			if err != nil {
				return nil, err
			}
			return func(mode domain.TraceMode) (ports.Tracer, func(context.Context) error, error) {
				return Open(mode, log)
			}, nil
		},
	})
}

// Open returns the tracer for mode and its flush function.
func Open(mode domain.TraceMode, log ports.Logger) (ports.Tracer, func(context.Context) error, error) {
	switch mode {
	case domain.TraceOTel:
		provider := NewTracerProvider(log)
		return NewOTelTracerFromProvider(provider, InstrumentationName), provider.Shutdown, nil
	case domain.TraceProgrock:
		tracer := progrock.New(os.Stderr)
		return tracer, func(context.Context) error { return tracer.Close() }, nil
	default:
		return NewNoOpTracer(), func(context.Context) error { return nil }, nil
	}
}
