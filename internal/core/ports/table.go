package ports

import (
	"time"

	"go.trai.ch/tabula/internal/core/domain"
)

// Table is the source table an analysis maps over.
//
//go:generate go run go.uber.org/mock/mockgen -source=table.go -destination=mocks/mock_table.go -package=mocks
type Table interface {
	// Name identifies the table.
	Name() string
	// Len returns the number of rows.
	Len() int
	// Row returns the row at index i.
	Row(i int) domain.Row
	// LastModified returns the newest modification time among the named tables.
	// An empty list means the table itself.
	LastModified(names ...string) (time.Time, error)
	// AttachResults associates a one-to-one result set with the rows, in row order.
	AttachResults(name string, records []domain.RunRecord) error
}

// TableOpener opens the source table of an analysis.
// Relative paths resolve against the directory of the settings file.
type TableOpener func(path, keyColumn string) (Table, error)
