package analysis

import (
	"go.trai.ch/tabula/internal/core/domain"
	"go.trai.ch/tabula/internal/core/ports"
)

// selectRows marks rows without a prior result and, when retrying, rows whose prior result failed.
func selectRows(table ports.Table, prior map[string]domain.RunRecord, retryFailures bool) domain.RowSelectionMask {
	mask := make(domain.RowSelectionMask, table.Len())
	for i := range mask {
		rec, ok := prior[table.Row(i).Key]
		mask[i] = !ok || (retryFailures && !rec.Success)
	}
	return mask
}

// indexByKey maps prior records by row key.
func indexByKey(records []domain.RunRecord) map[string]domain.RunRecord {
	idx := make(map[string]domain.RunRecord, len(records))
	for _, r := range records {
		idx[r.RowKey] = r
	}
	return idx
}
