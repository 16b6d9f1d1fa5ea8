package progrock

import (
	"sync"

	"github.com/vito/progrock"
)

// Vertex implements ports.Span wrapping *progrock.VertexRecorder.
type Vertex struct {
	vertex *progrock.VertexRecorder

	mu  sync.Mutex
	err error
}

// Write records output on the vertex's stdout stream.
func (v *Vertex) Write(p []byte) (int, error) {
	return v.vertex.Stdout().Write(p)
}

// RecordError marks the vertex as failed when it ends.
func (v *Vertex) RecordError(err error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.err == nil {
		v.err = err
	}
}

// SetAttribute does nothing; vertexes carry no attributes.
func (v *Vertex) SetAttribute(_ string, _ any) {}

// End completes the vertex with the recorded error, if any.
func (v *Vertex) End() {
	v.mu.Lock()
	err := v.err
	v.mu.Unlock()
	v.vertex.Done(err)
}
