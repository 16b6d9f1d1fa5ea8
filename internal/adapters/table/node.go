package table

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/tabula/internal/core/ports"
)

// NodeID is the unique identifier for the table opener Graft node.
const NodeID graft.ID = "adapter.table"

func init() {
	graft.Register(graft.Node[ports.TableOpener]{
		ID:        NodeID,
		Cacheable: true,
		Run: func(_ context.Context) (ports.TableOpener, error) {
			return func(path, keyColumn string) (ports.Table, error) {
				t, err := Open(path, keyColumn)
				if err != nil {
					return nil, err
				}
				return t, nil
			}, nil
		},
	})
}
