package shell

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/tabula/internal/core/domain"
	"go.trai.ch/tabula/internal/core/ports"
)

// NodeID is the unique identifier for the computation factory Graft node.
const NodeID graft.ID = "adapter.shell"

func init() {
	graft.Register(graft.Node[ports.ComputationFactory]{
		ID:        NodeID,
		Cacheable: true,
		Run: func(_ context.Context) (ports.ComputationFactory, error) {
			return func(settings domain.AnalysisSettings) (ports.Computation, error) {
				c, err := NewCommand(settings)
				if err != nil {
					return nil, err
				}
				return c, nil
			}, nil
		},
	})
}
