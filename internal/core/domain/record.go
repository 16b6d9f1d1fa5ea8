package domain

import (
	"maps"
	"slices"
)

// Record is a set of named values, the structured result type of a row computation.
type Record map[string]any

// Clone returns a shallow copy of the record.
func (r Record) Clone() Record {
	if r == nil {
		return nil
	}
	return maps.Clone(r)
}

// Keys returns the field names in sorted order.
func (r Record) Keys() []string {
	return slices.Sorted(maps.Keys(r))
}

// Row is one entry of a source table.
type Row struct {
	Key    string
	Fields Record
}

// ExceptionKind classifies a row failure.
type ExceptionKind string

const (
	// ExceptionError marks a computation that returned an error.
	ExceptionError ExceptionKind = "error"
	// ExceptionPanic marks a computation that panicked.
	ExceptionPanic ExceptionKind = "panic"
	// ExceptionNonRecord marks a computation that returned a value that is not a record.
	ExceptionNonRecord ExceptionKind = "non_record"
)

// Exception is the persisted form of a row failure.
type Exception struct {
	Kind    ExceptionKind `msgpack:"kind" json:"kind"`
	Message string        `msgpack:"message" json:"message"`
}

// Error implements the error interface.
func (e *Exception) Error() string {
	return string(e.Kind) + ": " + e.Message
}

// FigureRef locates the row a figure is registered for.
type FigureRef struct {
	Analysis string
	RowIndex int
	RowKey   string
}

// FigureInfo describes a figure registered during a row computation.
type FigureInfo struct {
	Name       string   `msgpack:"name" json:"name"`
	Caption    string   `msgpack:"caption" json:"caption"`
	PathStem   string   `msgpack:"path_stem" json:"path_stem"`
	Extensions []string `msgpack:"extensions" json:"extensions"`
	Width      float64  `msgpack:"width" json:"width"`
	Height     float64  `msgpack:"height" json:"height"`
}

// RunRecord is the result of one row of an analysis run.
type RunRecord struct {
	RowKey     string       `msgpack:"row_key" json:"row_key"`
	Success    bool         `msgpack:"success" json:"success"`
	Output     string       `msgpack:"output" json:"output"`
	Exception  *Exception   `msgpack:"exception" json:"exception,omitempty"`
	FigureInfo []FigureInfo `msgpack:"figure_info" json:"figure_info,omitempty"`
	Fields     Record       `msgpack:"fields" json:"fields"`
}

// RowSelectionMask marks, per source row, whether the row is recomputed in this run.
type RowSelectionMask []bool

// Count returns the number of selected rows.
func (m RowSelectionMask) Count() int {
	n := 0
	for _, selected := range m {
		if selected {
			n++
		}
	}
	return n
}

// Indices returns the indices of the selected rows in ascending order.
func (m RowSelectionMask) Indices() []int {
	indices := make([]int, 0, m.Count())
	for i, selected := range m {
		if selected {
			indices = append(indices, i)
		}
	}
	return indices
}
