// Package progrock provides the Progrock implementation of the telemetry adapter.
package progrock

import (
	"context"
	"io"
	"strconv"
	"sync/atomic"

	"github.com/opencontainers/go-digest"
	"github.com/vito/progrock"
	"go.trai.ch/tabula/internal/core/ports"
)

// Tracer implements ports.Tracer by recording every span as a progrock vertex.
type Tracer struct {
	w   progrock.Writer
	rec *progrock.Recorder
	seq atomic.Uint64
}

// New creates a Tracer that prints a vertex summary to out when closed.
func New(out io.Writer) *Tracer {
	return NewTracer(NewSummaryWriter(out))
}

// NewTracer creates a Tracer recording to the given writer.
func NewTracer(w progrock.Writer) *Tracer {
	return &Tracer{
		w:   w,
		rec: progrock.NewRecorder(w),
	}
}

// Start records a new vertex. Spans with the same name get distinct vertexes.
func (t *Tracer) Start(ctx context.Context, name string, _ ...ports.SpanOption) (context.Context, ports.Span) {
	d := digest.FromString(name + "#" + strconv.FormatUint(t.seq.Add(1), 10))
	return ctx, &Vertex{vertex: t.rec.Vertex(d, name)}
}

// EmitPlan records the planned rows as a completed vertex.
func (t *Tracer) EmitPlan(_ context.Context, rowKeys []string) {
	v := t.rec.Vertex(digest.FromString("plan#"+strconv.FormatUint(t.seq.Add(1), 10)),
		"plan: "+strconv.Itoa(len(rowKeys))+" rows")
	for _, k := range rowKeys {
		_, _ = io.WriteString(v.Stdout(), k+"\n")
	}
	v.Done(nil)
}

// Close flushes and closes the recording session.
func (t *Tracer) Close() error {
	if c, ok := t.w.(interface{ Close() error }); ok {
		return c.Close()
	}
	return nil
}
