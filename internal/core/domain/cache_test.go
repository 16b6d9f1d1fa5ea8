package domain_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.trai.ch/tabula/internal/core/domain"
)

func TestHashMemo(t *testing.T) {
	var memo domain.HashMemo

	_, ok := memo.Lookup(1)
	assert.False(t, ok)

	memo.Remember(1, "abc")
	h, ok := memo.Lookup(1)
	assert.True(t, ok)
	assert.Equal(t, "abc", h)

	_, ok = memo.Lookup(2)
	assert.False(t, ok)

	// A single slot: a new fingerprint replaces the old one.
	memo.Remember(2, "def")
	_, ok = memo.Lookup(1)
	assert.False(t, ok)
}

func TestHashMemo_NilIsInert(t *testing.T) {
	var memo *domain.HashMemo
	memo.Remember(1, "abc")
	_, ok := memo.Lookup(1)
	assert.False(t, ok)
}

func TestLayoutNames(t *testing.T) {
	assert.Equal(t, "analysisX_snapshots", domain.SnapshotCacheName("analysisX"))
	assert.Equal(t, "cache_ab12", domain.CacheStem("ab12"))
	assert.Equal(t, "cache_ab12.custom", domain.CustomDirName("cache_ab12", "", ""))
	assert.Equal(t, "cache_ab12.custom_spectrum", domain.CustomDirName("cache_ab12", "", "spectrum"))
	assert.Equal(t, "cache_ab12.custom.g1", domain.CustomDirName("cache_ab12", "g1", ""))
	assert.Equal(t, "cache_ab12.custom.g1_spectrum", domain.CustomDirName("cache_ab12", "g1", "spectrum"))
}
