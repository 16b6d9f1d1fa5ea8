package progrock

import (
	"fmt"
	"io"
	"sync"

	"github.com/vito/progrock"
)

type vertexState struct {
	name      string
	completed bool
	cached    bool
	err       string
}

// SummaryWriter implements progrock.Writer by tracking vertex states and
// printing one line per vertex when closed.
type SummaryWriter struct {
	out io.Writer

	mu    sync.Mutex
	order []string
	state map[string]*vertexState
}

// NewSummaryWriter creates a SummaryWriter printing to out.
func NewSummaryWriter(out io.Writer) *SummaryWriter {
	return &SummaryWriter{out: out, state: make(map[string]*vertexState)}
}

// WriteStatus records vertex updates.
func (w *SummaryWriter) WriteStatus(update *progrock.StatusUpdate) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	for _, v := range update.Vertexes {
		st, ok := w.state[v.Id]
		if !ok {
			st = &vertexState{name: v.Name}
			w.state[v.Id] = st
			w.order = append(w.order, v.Id)
		}
		if v.Completed != nil {
			st.completed = true
		}
		if v.Cached {
			st.cached = true
		}
		if v.Error != nil {
			st.err = *v.Error
		}
	}
	return nil
}

// Close prints the summary.
func (w *SummaryWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	for _, id := range w.order {
		st := w.state[id]
		var err error
		switch {
		case st.err != "":
			_, err = fmt.Fprintf(w.out, "✗ %s: %s\n", st.name, st.err)
		case st.cached:
			_, err = fmt.Fprintf(w.out, "• %s (cached)\n", st.name)
		case st.completed:
			_, err = fmt.Fprintf(w.out, "✓ %s\n", st.name)
		default:
			_, err = fmt.Fprintf(w.out, "… %s\n", st.name)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// Vertexes returns the vertex names seen so far, in order of appearance.
func (w *SummaryWriter) Vertexes() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	names := make([]string, 0, len(w.order))
	for _, id := range w.order {
		names = append(names, w.state[id].name)
	}
	return names
}
