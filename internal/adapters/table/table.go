// Package table provides a JSON Lines backed source table.
package table

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.trai.ch/tabula/internal/core/domain"
	"go.trai.ch/zerr"
)

// JSONL is a table read from a JSON Lines file, one object per row.
type JSONL struct {
	path string
	name string
	rows []domain.Row

	mu      sync.RWMutex
	results map[string][]domain.RunRecord
}

// Open reads the table at path. Rows are keyed by keyColumn, or by their
// zero-based position when keyColumn is empty.
func Open(path, keyColumn string) (*JSONL, error) {
	f, err := os.Open(path) //nolint:gosec // path comes from the settings file
	if err != nil {
		return nil, zerr.With(zerr.Wrap(err, domain.ErrTableReadFailed.Error()), "path", path)
	}
	defer func() { _ = f.Close() }()

	rows, err := decodeRows(f, keyColumn)
	if err != nil {
		return nil, zerr.With(err, "path", path)
	}

	return &JSONL{
		path:    path,
		name:    strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)),
		rows:    rows,
		results: make(map[string][]domain.RunRecord),
	}, nil
}

func decodeRows(r io.Reader, keyColumn string) ([]domain.Row, error) {
	dec := json.NewDecoder(r)
	seen := make(map[string]int)
	var rows []domain.Row

	for i := 0; ; i++ {
		var fields domain.Record
		if err := dec.Decode(&fields); err != nil {
			if errors.Is(err, io.EOF) {
				return rows, nil
			}
			return nil, zerr.With(zerr.Wrap(err, domain.ErrTableReadFailed.Error()), "row", strconv.Itoa(i))
		}

		key := strconv.Itoa(i)
		if keyColumn != "" {
			v, ok := fields[keyColumn]
			if !ok || v == nil {
				err := zerr.With(zerr.New("row has no key column"), "column", keyColumn)
				return nil, zerr.With(zerr.Wrap(err, domain.ErrTableReadFailed.Error()), "row", strconv.Itoa(i))
			}
			key = formatKey(v)
		}

		if prev, dup := seen[key]; dup {
			err := zerr.With(domain.ErrDuplicateRowKey, "key", key)
			return nil, zerr.With(err, "rows", fmt.Sprintf("%d,%d", prev, i))
		}
		seen[key] = i
		rows = append(rows, domain.Row{Key: key, Fields: fields})
	}
}

func formatKey(v any) string {
	switch k := v.(type) {
	case string:
		return k
	case float64:
		return strconv.FormatFloat(k, 'f', -1, 64)
	default:
		return fmt.Sprint(k)
	}
}

// Name returns the file name without its extension.
func (t *JSONL) Name() string { return t.name }

// Path returns the file the table was read from.
func (t *JSONL) Path() string { return t.path }

// Len returns the number of rows.
func (t *JSONL) Len() int { return len(t.rows) }

// Row returns the row at index i.
func (t *JSONL) Row(i int) domain.Row { return t.rows[i] }

// LastModified returns the newest modification time of the named table files.
// With no names it reports the table's own file.
func (t *JSONL) LastModified(names ...string) (time.Time, error) {
	if len(names) == 0 {
		names = []string{t.path}
	}

	var newest time.Time
	for _, name := range names {
		info, err := os.Stat(name)
		if err != nil {
			return time.Time{}, zerr.With(zerr.Wrap(err, domain.ErrTableReadFailed.Error()), "path", name)
		}
		if info.ModTime().After(newest) {
			newest = info.ModTime()
		}
	}
	return newest, nil
}

// AttachResults stores a result set that maps one-to-one onto the rows.
func (t *JSONL) AttachResults(name string, records []domain.RunRecord) error {
	if len(records) != len(t.rows) {
		err := zerr.With(domain.ErrMergeInconsistent, "rows", strconv.Itoa(len(t.rows)))
		return zerr.With(err, "records", strconv.Itoa(len(records)))
	}
	for i, rec := range records {
		if rec.RowKey != t.rows[i].Key {
			err := zerr.With(domain.ErrMergeInconsistent, "row", strconv.Itoa(i))
			return zerr.With(err, "key", rec.RowKey)
		}
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.results[name] = records
	return nil
}

// Results returns the result set attached under name.
func (t *JSONL) Results(name string) ([]domain.RunRecord, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	records, ok := t.results[name]
	if !ok {
		return nil, zerr.With(domain.ErrResultsNotAttached, "name", name)
	}
	return records, nil
}

// WriteResults writes the result set attached under name as JSON Lines.
func (t *JSONL) WriteResults(name string, w io.Writer) error {
	records, err := t.Results(name)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(w)
	for _, rec := range records {
		if err := enc.Encode(rec); err != nil {
			err = zerr.Wrap(err, domain.ErrTableWriteFailed.Error())
			return zerr.With(err, "key", rec.RowKey)
		}
	}
	return nil
}

// WriteResultsFile writes the result set attached under name to path, replacing it.
func (t *JSONL) WriteResultsFile(name, path string) (err error) {
	f, err := os.Create(path) //nolint:gosec // path is provided by user
	if err != nil {
		return zerr.With(zerr.Wrap(err, domain.ErrTableWriteFailed.Error()), "path", path)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = zerr.With(zerr.Wrap(cerr, domain.ErrTableWriteFailed.Error()), "path", path)
		}
	}()
	return t.WriteResults(name, f)
}
