// Package wiring registers all Graft nodes for the application.
package wiring

import (
	// Register adapter nodes.
	_ "go.trai.ch/tabula/internal/adapters/cas"
	_ "go.trai.ch/tabula/internal/adapters/config"
	_ "go.trai.ch/tabula/internal/adapters/figures"
	_ "go.trai.ch/tabula/internal/adapters/logger"
	_ "go.trai.ch/tabula/internal/adapters/shell"
	_ "go.trai.ch/tabula/internal/adapters/table"
	_ "go.trai.ch/tabula/internal/adapters/telemetry"
	// Register app nodes.
	_ "go.trai.ch/tabula/internal/app"
)
