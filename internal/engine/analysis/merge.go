package analysis

import (
	"strconv"

	"go.trai.ch/tabula/internal/core/domain"
	"go.trai.ch/tabula/internal/core/ports"
	"go.trai.ch/zerr"
)

// merge combines prior and fresh records and orders them by the source table.
// Fresh records supersede prior ones for the same row. Prior records of rows no
// longer in the table are dropped. Every source row must end up with exactly one record.
func merge(table ports.Table, prior []domain.RunRecord, fresh []domain.RunRecord) ([]domain.RunRecord, error) {
	combined := indexByKey(prior)
	for _, r := range fresh {
		combined[r.RowKey] = r
	}

	n := table.Len()
	merged := make([]domain.RunRecord, n)
	seen := make(map[string]bool, n)
	for i := range n {
		key := table.Row(i).Key
		if seen[key] {
			err := zerr.With(domain.ErrMergeInconsistent, "row_key", key)
			return nil, zerr.With(err, "reason", "duplicate row key")
		}
		seen[key] = true

		rec, ok := combined[key]
		if !ok {
			err := zerr.With(domain.ErrMergeInconsistent, "row_key", key)
			return nil, zerr.With(err, "row_index", strconv.Itoa(i))
		}
		merged[i] = rec
	}
	return merged, nil
}
