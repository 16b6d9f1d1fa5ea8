package app

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/tabula/internal/adapters/cas"       //nolint:depguard // Wired in app layer
	"go.trai.ch/tabula/internal/adapters/config"    //nolint:depguard // Wired in app layer
	"go.trai.ch/tabula/internal/adapters/figures"   //nolint:depguard // Wired in app layer
	"go.trai.ch/tabula/internal/adapters/logger"    //nolint:depguard // Wired in app layer
	"go.trai.ch/tabula/internal/adapters/shell"     //nolint:depguard // Wired in app layer
	"go.trai.ch/tabula/internal/adapters/table"     //nolint:depguard // Wired in app layer
	"go.trai.ch/tabula/internal/adapters/telemetry" //nolint:depguard // Wired in app layer
	"go.trai.ch/tabula/internal/core/ports"
)

const (
	// AppNodeID is the unique identifier for the main App Graft node.
	AppNodeID graft.ID = "app.main"
	// ComponentsNodeID is the unique identifier for the App components Graft node.
	ComponentsNodeID graft.ID = "app.components"
)

// Components contains all the initialized application components.
// This struct provides controlled access to components needed by the CLI layer.
type Components struct {
	App    *App
	Logger ports.Logger
}

func init() {
	graft.Register(graft.Node[*App]{
		ID:        AppNodeID,
		Cacheable: true,
		DependsOn: []graft.ID{
			config.NodeID,
			logger.NodeID,
			cas.NodeID,
			telemetry.TracerNodeID,
			table.NodeID,
			figures.NodeID,
			shell.NodeID,
		},
		Run: runAppNode,
	})

	graft.Register(graft.Node[*Components]{
		ID:        ComponentsNodeID,
		Cacheable: true,
		DependsOn: []graft.ID{
			AppNodeID,
			logger.NodeID,
		},
		Run: func(ctx context.Context) (*Components, error) {
			app, err := graft.Dep[*App](ctx)
			if err != nil {
				return nil, err
			}
			log, err := graft.Dep[ports.Logger](ctx)
			if err != nil {
				return nil, err
			}
			return &Components{App: app, Logger: log}, nil
		},
	})
}

func runAppNode(ctx context.Context) (*App, error) {
	loader, err := graft.Dep[ports.ConfigLoader](ctx)
	if err != nil {
		return nil, err
	}
	log, err := graft.Dep[ports.Logger](ctx)
	if err != nil {
		return nil, err
	}
	openStore, err := graft.Dep[ports.CacheStoreOpener](ctx)
	if err != nil {
		return nil, err
	}
	openTracer, err := graft.Dep[ports.TracerOpener](ctx)
	if err != nil {
		return nil, err
	}
	openTable, err := graft.Dep[ports.TableOpener](ctx)
	if err != nil {
		return nil, err
	}
	openFigures, err := graft.Dep[ports.FigureRegistrarOpener](ctx)
	if err != nil {
		return nil, err
	}
	newComputation, err := graft.Dep[ports.ComputationFactory](ctx)
	if err != nil {
		return nil, err
	}

	return New(loader, log, openStore, openTracer, openTable, openFigures, newComputation), nil
}
