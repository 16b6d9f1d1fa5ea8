package figures

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/tabula/internal/core/domain"
	"go.trai.ch/tabula/internal/core/ports"
)

// NodeID is the unique identifier for the figure registrar Graft node.
const NodeID graft.ID = "adapter.figures"

func init() {
	graft.Register(graft.Node[ports.FigureRegistrarOpener]{
		ID:        NodeID,
		Cacheable: true,
		Run: func(_ context.Context) (ports.FigureRegistrarOpener, error) {
			return func(settings domain.FigureSettings) (ports.FigureRegistrar, error) {
				r, err := NewRegistry(settings)
				if err != nil {
					return nil, err
				}
				return r, nil
			}, nil
		},
	})
}
