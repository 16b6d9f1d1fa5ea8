package cas

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/tabula/internal/adapters/logger"
	"go.trai.ch/tabula/internal/core/domain"
	"go.trai.ch/tabula/internal/core/ports"
)

// NodeID is the unique identifier for the cache store opener Graft node.
const NodeID graft.ID = "adapter.cache_store"

func init() {
	graft.Register(graft.Node[ports.CacheStoreOpener]{
		ID:        NodeID,
		Cacheable: true,
		DependsOn: []graft.ID{logger.NodeID},
		Run: func(ctx context.Context) (ports.CacheStoreOpener, error) {
			log, err := graft.Dep[ports.Logger](ctx)
			if err != nil {
				return nil, err
			}
			return func(settings domain.CacheSettings) (ports.CacheStore, error) {
				store, err := NewStore(settings.Roots, log, WithMetaCacheSize(settings.MetaCacheSize))
				if err != nil {
					return nil, err
				}
				return store, nil
			}, nil
		},
	})
}
