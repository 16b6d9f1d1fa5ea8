package analysis

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/tabula/internal/core/domain"
)

type keyTable []string

func (t keyTable) Name() string                                   { return "keys" }
func (t keyTable) Len() int                                       { return len(t) }
func (t keyTable) Row(i int) domain.Row                           { return domain.Row{Key: t[i]} }
func (t keyTable) LastModified(...string) (time.Time, error)      { return time.Time{}, nil }
func (t keyTable) AttachResults(string, []domain.RunRecord) error { return nil }

func TestSelectRows(t *testing.T) {
	table := keyTable{"a", "b", "c", "d"}
	prior := indexByKey([]domain.RunRecord{
		{RowKey: "a", Success: true},
		{RowKey: "b", Success: false},
		{RowKey: "gone", Success: true},
	})

	assert.Equal(t, domain.RowSelectionMask{false, false, true, true}, selectRows(table, prior, false))
	assert.Equal(t, domain.RowSelectionMask{false, true, true, true}, selectRows(table, prior, true))
	assert.Equal(t, []int{1, 2, 3}, selectRows(table, prior, true).Indices())
}

func TestMerge(t *testing.T) {
	table := keyTable{"a", "b", "c"}
	prior := []domain.RunRecord{
		{RowKey: "c", Output: "old c"},
		{RowKey: "b", Output: "old b"},
		{RowKey: "gone", Output: "old gone"},
	}
	fresh := []domain.RunRecord{
		{RowKey: "b", Output: "new b"},
		{RowKey: "a", Output: "new a"},
	}

	merged, err := merge(table, prior, fresh)
	require.NoError(t, err)
	require.Len(t, merged, 3)
	assert.Equal(t, "new a", merged[0].Output)
	assert.Equal(t, "new b", merged[1].Output)
	assert.Equal(t, "old c", merged[2].Output)
}

func TestMerge_Inconsistent(t *testing.T) {
	_, err := merge(keyTable{"a", "b"}, nil, []domain.RunRecord{{RowKey: "a"}})
	require.ErrorContains(t, err, domain.ErrMergeInconsistent.Error())

	_, err = merge(keyTable{"a", "a"}, nil, []domain.RunRecord{{RowKey: "a"}})
	require.ErrorContains(t, err, domain.ErrMergeInconsistent.Error())
}
