package cas_test

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/tabula/internal/adapters/cas"
	"go.trai.ch/tabula/internal/core/domain"
	"go.trai.ch/tabula/internal/core/ports"
	"go.trai.ch/tabula/internal/core/ports/mocks"
	"go.uber.org/mock/gomock"
)

// spectrum persists itself as a JSON file, standing in for a value with its own on-disk format.
type spectrum struct {
	Bins []float64
}

const spectrumType = "spectrum"

func (s *spectrum) CustomType() string { return spectrumType }

func (s *spectrum) SaveCustom(dir string) ([]byte, error) {
	data, err := json.Marshal(s.Bins)
	if err != nil {
		return nil, err
	}
	if err := os.WriteFile(filepath.Join(dir, "bins.json"), data, domain.FilePerm); err != nil {
		return nil, err
	}
	return []byte("bins.json"), nil
}

func loadSpectrum(dir string, token []byte) (any, error) {
	data, err := os.ReadFile(filepath.Join(dir, string(token)))
	if err != nil {
		return nil, err
	}
	s := &spectrum{}
	if err := json.Unmarshal(data, &s.Bins); err != nil {
		return nil, err
	}
	return s, nil
}

type measurement struct {
	Subject  string    `msgpack:"subject"`
	Mean     float64   `msgpack:"mean"`
	Spectrum *spectrum `msgpack:"spectrum"`
	Raw      cas.Blob  `msgpack:"raw"`
	Scratch  string    `msgpack:"-"`
}

// brokenCustom fails to save itself after leaving a partial file behind.
type brokenCustom struct{}

func (brokenCustom) CustomType() string { return "broken" }

func (brokenCustom) SaveCustom(dir string) ([]byte, error) {
	if err := os.WriteFile(filepath.Join(dir, "partial"), []byte("x"), domain.FilePerm); err != nil {
		return nil, err
	}
	return nil, errors.New("disk full")
}

func newStore(t *testing.T, roots ...string) (*cas.Store, *mocks.MockLogger) {
	t.Helper()
	ctrl := gomock.NewController(t)
	log := mocks.NewMockLogger(ctrl)
	store, err := cas.NewStore(roots, log, cas.WithCustomLoader(spectrumType, loadSpectrum))
	require.NoError(t, err)
	return store, log
}

// customDir returns the sibling directory holding field of the current pair of key.
func customDir(t *testing.T, store *cas.Store, key domain.CacheKey, field string) string {
	t.Helper()
	hash, err := cas.HashKey(key.Name, key.Param)
	require.NoError(t, err)
	entries, err := store.List(key.Name)
	require.NoError(t, err)
	for _, e := range entries {
		if e.Hash == hash {
			return filepath.Join(filepath.Dir(e.DataPath), domain.CustomDirName(domain.CacheStem(hash), e.Generation, field))
		}
	}
	require.FailNow(t, "no cache entry", key.Name)
	return ""
}

func customDirs(t *testing.T, root string, key domain.CacheKey) []string {
	t.Helper()
	hash, err := cas.HashKey(key.Name, key.Param)
	require.NoError(t, err)
	matches, err := filepath.Glob(filepath.Join(root, key.Name, domain.CacheStem(hash)+domain.CustomDirSuffix+"*"))
	require.NoError(t, err)
	return matches
}

func TestStore_NewestTimestampWins(t *testing.T) {
	t.Parallel()

	store, _ := newStore(t, t.TempDir())
	key := domain.NewCacheKey("analysisX", map[string]any{"threshold": 5})

	require.NoError(t, store.Save(key, domain.Record{"mean": 1.2}, ports.WithTimestamp(time.Unix(100, 0))))
	require.NoError(t, store.Save(key, domain.Record{"mean": 1.5}, ports.WithTimestamp(time.Unix(200, 0))))

	var got domain.Record
	ts, found, err := store.Load(key, &got)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, domain.Record{"mean": 1.5}, got)
	assert.Equal(t, int64(200), ts.Unix())
}

func TestStore_LoadMissingIsNotAnError(t *testing.T) {
	t.Parallel()

	store, _ := newStore(t, t.TempDir())

	var got domain.Record
	ts, found, err := store.Load(domain.NewCacheKey("analysisX", nil), &got)
	require.NoError(t, err)
	assert.False(t, found)
	assert.True(t, ts.IsZero())
	assert.Nil(t, got)
}

func TestStore_RoundTripWithCustomFields(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	store, _ := newStore(t, root)
	key := domain.NewCacheKey("spectra", map[string]any{"window": 128})

	in := measurement{
		Subject:  "s01",
		Mean:     3.25,
		Spectrum: &spectrum{Bins: []float64{0.1, 0.2, 0.7}},
		Raw:      cas.Blob("raw bytes"),
		Scratch:  "transient",
	}
	require.NoError(t, store.Save(key, &in))

	var out measurement
	_, found, err := store.Load(key, &out)
	require.NoError(t, err)
	require.True(t, found)

	in.Scratch = ""
	assert.Equal(t, in, out)

	assert.FileExists(t, filepath.Join(customDir(t, store, key, "spectrum"), "bins.json"))
	assert.FileExists(t, filepath.Join(customDir(t, store, key, "raw"), "blob.bin"))
	assert.Len(t, customDirs(t, root, key), 2)
}

func TestStore_RoundTripWholeCustomPayload(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	store, _ := newStore(t, root)
	key := domain.NewCacheKey("spectra", "whole")

	require.NoError(t, store.Save(key, &spectrum{Bins: []float64{1, 2}}))

	var out *spectrum
	_, found, err := store.Load(key, &out)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, []float64{1, 2}, out.Bins)

	assert.DirExists(t, customDir(t, store, key, ""))
}

func TestStore_RoundTripScalarPayload(t *testing.T) {
	t.Parallel()

	store, _ := newStore(t, t.TempDir())
	key := domain.NewCacheKey("scalars", 1)

	require.NoError(t, store.Save(key, []string{"a", "b"}))

	var out []string
	_, found, err := store.Load(key, &out)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, []string{"a", "b"}, out)
}

func TestStore_UnknownCustomTypeFailsLoad(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writer, _ := newStore(t, root)
	key := domain.NewCacheKey("spectra", 1)
	require.NoError(t, writer.Save(key, domain.Record{"s": &spectrum{Bins: []float64{1}}}))

	reader, err := cas.NewStore([]string{root}, mocks.NewMockLogger(gomock.NewController(t)))
	require.NoError(t, err)

	var out domain.Record
	_, _, err = reader.Load(key, &out)
	require.ErrorContains(t, err, domain.ErrUnknownCustomType.Error())
}

func TestStore_ParamMismatchIsNeverSelected(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	store, log := newStore(t, root)

	stored := domain.NewCacheKey("analysisX", map[string]any{"threshold": 1})
	requested := domain.NewCacheKey("analysisX", map[string]any{"threshold": 2})
	require.NoError(t, store.Save(stored, domain.Record{"mean": 1.0}))

	// Place the stored pair under the requested key's hash, as a collision would.
	storedHash, err := cas.HashKey(stored.Name, stored.Param)
	require.NoError(t, err)
	requestedHash, err := cas.HashKey(requested.Name, requested.Param)
	require.NoError(t, err)
	dir := filepath.Join(root, "analysisX")
	for _, suffix := range []string{domain.MetaFileSuffix, domain.DataFileSuffix} {
		require.NoError(t, os.Rename(
			filepath.Join(dir, domain.CacheStem(storedHash)+suffix),
			filepath.Join(dir, domain.CacheStem(requestedHash)+suffix),
		))
	}

	log.EXPECT().Warn(gomock.Any()).Do(func(msg string) {
		assert.Contains(t, msg, "does not match")
	}).MinTimes(1)

	var got domain.Record
	_, found, err := store.Load(requested, &got)
	require.NoError(t, err)
	assert.False(t, found)

	exists, err := store.Exists(requested)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestStore_NewestWinsAcrossRoots(t *testing.T) {
	t.Parallel()

	preferred, legacy := t.TempDir(), t.TempDir()
	key := domain.NewCacheKey("analysisX", map[string]any{"threshold": 5})

	legacyStore, _ := newStore(t, legacy)
	require.NoError(t, legacyStore.Save(key, domain.Record{"mean": 2.0}, ports.WithTimestamp(time.Unix(300, 0))))

	preferredStore, _ := newStore(t, preferred)
	require.NoError(t, preferredStore.Save(key, domain.Record{"mean": 1.0}, ports.WithTimestamp(time.Unix(100, 0))))

	both, _ := newStore(t, preferred, legacy)
	var got domain.Record
	ts, found, err := both.Load(key, &got)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, domain.Record{"mean": 2.0}, got)
	assert.Equal(t, int64(300), ts.Unix())
}

func TestStore_WritesToFirstExistingRoot(t *testing.T) {
	t.Parallel()

	base := t.TempDir()
	missing := filepath.Join(base, "missing")
	existing := filepath.Join(base, "existing")
	require.NoError(t, os.Mkdir(existing, domain.DirPerm))

	store, _ := newStore(t, missing, existing)
	key := domain.NewCacheKey("analysisX", 1)
	require.NoError(t, store.Save(key, domain.Record{"v": "x"}))

	hash, err := cas.HashKey(key.Name, key.Param)
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(existing, "analysisX", domain.CacheStem(hash)+domain.MetaFileSuffix))
	assert.FileExists(t, filepath.Join(existing, "analysisX", domain.CacheStem(hash)+domain.DataFileSuffix))
	assert.NoDirExists(t, missing)
}

func TestStore_SaveWithoutRoot(t *testing.T) {
	t.Parallel()

	store, _ := newStore(t, filepath.Join(t.TempDir(), "nope"))
	err := store.Save(domain.NewCacheKey("analysisX", 1), domain.Record{})
	require.ErrorContains(t, err, domain.ErrNoCacheRoot.Error())
}

func TestStore_SelectiveFieldLoad(t *testing.T) {
	t.Parallel()

	store, _ := newStore(t, t.TempDir())
	key := domain.NewCacheKey("wide", 1)
	payload := domain.Record{"a": 1.5, "b": "two", "c": []any{"x"}}
	require.NoError(t, store.Save(key, payload, ports.WithSeparateFields()))

	var subset domain.Record
	_, found, err := store.Load(key, &subset, "a", "c", "not_stored")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, domain.Record{"a": 1.5, "c": []any{"x"}}, subset)

	var all domain.Record
	_, _, err = store.Load(key, &all)
	require.NoError(t, err)
	assert.Equal(t, payload, all)

	entries, err := store.List("wide")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.True(t, entries[0].SeparateFields)
	assert.Equal(t, []string{"a", "b", "c"}, entries[0].FieldNames)
}

func TestStore_FieldsIgnoredWithoutSeparateFields(t *testing.T) {
	t.Parallel()

	store, _ := newStore(t, t.TempDir())
	key := domain.NewCacheKey("wide", 2)
	require.NoError(t, store.Save(key, domain.Record{"a": 1.0, "b": 2.0}))

	var got domain.Record
	_, _, err := store.Load(key, &got, "a")
	require.NoError(t, err)
	assert.Equal(t, domain.Record{"a": 1.0, "b": 2.0}, got)
}

func TestStore_SelectiveFieldLoadIntoStruct(t *testing.T) {
	t.Parallel()

	store, _ := newStore(t, t.TempDir())
	key := domain.NewCacheKey("spectra", 3)
	in := measurement{Subject: "s02", Mean: 1, Spectrum: &spectrum{Bins: []float64{4}}}
	require.NoError(t, store.Save(key, in, ports.WithSeparateFields()))

	out := measurement{Subject: "stale", Mean: 99}
	_, _, err := store.Load(key, &out, "spectrum")
	require.NoError(t, err)
	assert.Empty(t, out.Subject)
	assert.Zero(t, out.Mean)
	assert.Equal(t, []float64{4}, out.Spectrum.Bins)
}

func TestStore_HasNewerThanIsStrict(t *testing.T) {
	t.Parallel()

	store, _ := newStore(t, t.TempDir())
	key := domain.NewCacheKey("analysisX", 1)
	require.NoError(t, store.Save(key, domain.Record{}, ports.WithTimestamp(time.Unix(100, 0))))

	newer, ts, err := store.HasNewerThan(key, time.Unix(99, 0))
	require.NoError(t, err)
	assert.True(t, newer)
	assert.Equal(t, int64(100), ts.Unix())

	newer, _, err = store.HasNewerThan(key, time.Unix(100, 0))
	require.NoError(t, err)
	assert.False(t, newer)

	newer, ts, err = store.HasNewerThan(domain.NewCacheKey("analysisX", 2), time.Time{})
	require.NoError(t, err)
	assert.False(t, newer)
	assert.True(t, ts.IsZero())
}

func TestStore_DataWithoutMetaIsAbsent(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	store, log := newStore(t, root)
	key := domain.NewCacheKey("analysisX", 1)
	require.NoError(t, store.Save(key, domain.Record{"mean": 1.0}))

	hash, err := cas.HashKey(key.Name, key.Param)
	require.NoError(t, err)
	require.NoError(t, os.Remove(filepath.Join(root, "analysisX", domain.CacheStem(hash)+domain.MetaFileSuffix)))

	log.EXPECT().Warn(gomock.Any()).Do(func(msg string) {
		assert.Contains(t, msg, "without meta file")
	}).MinTimes(1)

	exists, err := store.Exists(key)
	require.NoError(t, err)
	assert.False(t, exists)

	var got domain.Record
	_, found, err := store.Load(key, &got)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestStore_CorruptMetaIsSkipped(t *testing.T) {
	t.Parallel()

	preferred, legacy := t.TempDir(), t.TempDir()
	key := domain.NewCacheKey("analysisX", 1)

	legacyStore, _ := newStore(t, legacy)
	require.NoError(t, legacyStore.Save(key, domain.Record{"mean": 2.0}, ports.WithTimestamp(time.Unix(100, 0))))
	preferredStore, _ := newStore(t, preferred)
	require.NoError(t, preferredStore.Save(key, domain.Record{"mean": 1.0}, ports.WithTimestamp(time.Unix(500, 0))))

	hash, err := cas.HashKey(key.Name, key.Param)
	require.NoError(t, err)
	metaPath := filepath.Join(preferred, "analysisX", domain.CacheStem(hash)+domain.MetaFileSuffix)
	require.NoError(t, os.WriteFile(metaPath, []byte("not msgpack"), domain.FilePerm))

	both, log := newStore(t, preferred, legacy)
	log.EXPECT().Warn(gomock.Any()).Do(func(msg string) {
		assert.Contains(t, msg, "unreadable")
	}).MinTimes(1)

	var got domain.Record
	ts, found, err := both.Load(key, &got)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, domain.Record{"mean": 2.0}, got)
	assert.Equal(t, int64(100), ts.Unix())
}

func TestStore_Delete(t *testing.T) {
	t.Parallel()

	preferred, legacy := t.TempDir(), t.TempDir()
	key := domain.NewCacheKey("spectra", 9)
	payload := domain.Record{"s": &spectrum{Bins: []float64{1}}, "raw": cas.Blob("x")}

	legacyStore, _ := newStore(t, legacy)
	require.NoError(t, legacyStore.Save(key, payload))
	store, _ := newStore(t, preferred, legacy)
	require.NoError(t, store.Save(key, payload))

	other := domain.NewCacheKey("spectra", 10)
	require.NoError(t, store.Save(other, domain.Record{"kept": true}))

	require.NoError(t, store.Delete(key))

	exists, err := store.Exists(key)
	require.NoError(t, err)
	assert.False(t, exists)

	hash, err := cas.HashKey(key.Name, key.Param)
	require.NoError(t, err)
	for _, root := range []string{preferred, legacy} {
		matches, err := filepath.Glob(filepath.Join(root, "spectra", domain.CacheStem(hash)+"*"))
		require.NoError(t, err)
		assert.Empty(t, matches)
	}

	exists, err = store.Exists(other)
	require.NoError(t, err)
	assert.True(t, exists)

	// Deleting an absent key is a no-op.
	require.NoError(t, store.Delete(key))
}

func TestStore_ResaveReplacesCustomSiblings(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	store, _ := newStore(t, root)
	key := domain.NewCacheKey("spectra", 11)

	require.NoError(t, store.Save(key, domain.Record{"old": cas.Blob("x")}))
	require.NoError(t, store.Save(key, domain.Record{"new": cas.Blob("y")}))

	assert.Equal(t, []string{customDir(t, store, key, "new")}, customDirs(t, root, key))
}

func TestStore_FailedSaveKeepsPreviousPair(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		payload domain.Record
		wantErr error
	}{
		{
			name:    "unencodable field",
			payload: domain.Record{"raw": cas.Blob("new"), "bad": make(chan int)},
			wantErr: domain.ErrStoreMarshalFailed,
		},
		{
			name:    "custom save error",
			payload: domain.Record{"raw": cas.Blob("new"), "broken": brokenCustom{}},
			wantErr: domain.ErrCustomSaveFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			root := t.TempDir()
			store, _ := newStore(t, root)
			key := domain.NewCacheKey("blobs", 1)
			require.NoError(t, store.Save(key, domain.Record{"raw": cas.Blob("old bytes")}, ports.WithTimestamp(time.Unix(100, 0))))
			before := customDirs(t, root, key)

			err := store.Save(key, tt.payload)
			require.ErrorContains(t, err, tt.wantErr.Error())

			var got domain.Record
			ts, found, err := store.Load(key, &got)
			require.NoError(t, err)
			require.True(t, found)
			assert.Equal(t, domain.Record{"raw": cas.Blob("old bytes")}, got)
			assert.Equal(t, int64(100), ts.Unix())
			assert.Equal(t, before, customDirs(t, root, key))
		})
	}
}

func TestStore_InterruptedSaveIsNotLoaded(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writer, _ := newStore(t, root)
	key := domain.NewCacheKey("blobs", 2)
	require.NoError(t, writer.Save(key, domain.Record{"raw": cas.Blob("first")}))

	hash, err := cas.HashKey(key.Name, key.Param)
	require.NoError(t, err)
	metaPath := filepath.Join(root, "blobs", domain.CacheStem(hash)+domain.MetaFileSuffix)
	firstMeta, err := os.ReadFile(metaPath)
	require.NoError(t, err)

	require.NoError(t, writer.Save(key, domain.Record{"raw": cas.Blob("second")}))
	// The new data file is in place but the meta file still belongs to the first save.
	require.NoError(t, os.WriteFile(metaPath, firstMeta, domain.FilePerm))

	reader, log := newStore(t, root)
	log.EXPECT().Warn(gomock.Any()).Do(func(msg string) {
		assert.Contains(t, msg, "another save")
	}).MinTimes(1)

	var got domain.Record
	_, found, err := reader.Load(key, &got)
	require.NoError(t, err)
	assert.False(t, found)

	entries, err := reader.List("blobs")
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestStore_SameSizeRewriteIsReread(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	store, _ := newStore(t, root)
	key := domain.NewCacheKey("blobs", 3)
	require.NoError(t, store.Save(key, domain.Record{"n": 1.0}, ports.WithTimestamp(time.Unix(100, 0))))

	hash, err := cas.HashKey(key.Name, key.Param)
	require.NoError(t, err)
	metaPath := filepath.Join(root, "blobs", domain.CacheStem(hash)+domain.MetaFileSuffix)
	first, err := os.Stat(metaPath)
	require.NoError(t, err)

	other, _ := newStore(t, root)
	require.NoError(t, other.Save(key, domain.Record{"n": 2.0}, ports.WithTimestamp(time.Unix(200, 0))))

	// Same size and mtime as the cached meta file; only the file identity differs.
	second, err := os.Stat(metaPath)
	require.NoError(t, err)
	require.Equal(t, first.Size(), second.Size())
	require.NoError(t, os.Chtimes(metaPath, first.ModTime(), first.ModTime()))

	_, ts, err := store.HasNewerThan(key, time.Time{})
	require.NoError(t, err)
	assert.Equal(t, int64(200), ts.Unix())
}

func TestStore_List(t *testing.T) {
	t.Parallel()

	preferred, legacy := t.TempDir(), t.TempDir()

	legacyStore, _ := newStore(t, legacy)
	require.NoError(t, legacyStore.Save(
		domain.NewCacheKey("analysisX", map[string]any{"threshold": 1}),
		domain.Record{}, ports.WithTimestamp(time.Unix(100, 0))))

	store, log := newStore(t, preferred, legacy)
	require.NoError(t, store.Save(
		domain.NewCacheKey("analysisX", map[string]any{"threshold": 2}),
		domain.Record{}, ports.WithTimestamp(time.Unix(300, 0))))
	require.NoError(t, store.Save(
		domain.NewCacheKey("analysisX", map[string]any{"threshold": 3}),
		domain.Record{}, ports.WithTimestamp(time.Unix(200, 0))))

	dir := filepath.Join(preferred, "analysisX")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "cache_bad"+domain.MetaFileSuffix), []byte{0xc1}, domain.FilePerm))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "cache_bad"+domain.DataFileSuffix), []byte{}, domain.FilePerm))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "cache_orphan"+domain.DataFileSuffix), []byte{}, domain.FilePerm))

	var warnings []string
	log.EXPECT().Warn(gomock.Any()).Do(func(msg string) {
		warnings = append(warnings, msg)
	}).AnyTimes()

	entries, err := store.List("analysisX")
	require.NoError(t, err)
	require.Len(t, entries, 3)

	var thresholds []any
	for _, e := range entries {
		param, ok := e.Param.(map[string]any)
		require.True(t, ok)
		thresholds = append(thresholds, param["threshold"])
	}
	assert.Equal(t, []any{int64(2), int64(3), int64(1)}, thresholds)
	assert.Equal(t, legacy, entries[2].Root)

	joined := strings.Join(warnings, "\n")
	assert.Contains(t, joined, "unreadable")
	assert.Contains(t, joined, "cache_orphan")

	empty, err := store.List("nothing")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestStore_SaveReusesHashMemo(t *testing.T) {
	t.Parallel()

	store, _ := newStore(t, t.TempDir())
	key := domain.NewCacheKey("analysisX", map[string]any{"threshold": 5})
	memo := &domain.HashMemo{}

	require.NoError(t, store.Save(key, domain.Record{"mean": 1.0}, ports.WithHashMemo(memo)))

	hash, err := cas.HashKey(key.Name, key.Param)
	require.NoError(t, err)

	entries, err := store.List("analysisX")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, hash, entries[0].Hash)
}

func TestStore_LoadRejectsNonPointer(t *testing.T) {
	t.Parallel()

	store, _ := newStore(t, t.TempDir())
	key := domain.NewCacheKey("analysisX", 1)
	require.NoError(t, store.Save(key, domain.Record{"a": 1.0}))

	_, _, err := store.Load(key, domain.Record{})
	require.ErrorContains(t, err, domain.ErrInvalidDestination.Error())
}

func TestCommitPair_MetaFailureRestoresData(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		previous []byte
	}{
		{name: "previous data file", previous: []byte("old")},
		{name: "no previous data file"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			dir := t.TempDir()
			dataPath := filepath.Join(dir, "cache_x"+domain.DataFileSuffix)
			metaPath := filepath.Join(dir, "cache_x"+domain.MetaFileSuffix)
			if tt.previous != nil {
				require.NoError(t, os.WriteFile(dataPath, tt.previous, domain.FilePerm))
			}
			// A non-empty directory in place of the meta file makes its rename fail.
			require.NoError(t, os.MkdirAll(filepath.Join(metaPath, "blocker"), domain.DirPerm))

			err := cas.CommitPair(dataPath, metaPath, []byte("new"), []byte("meta"), "g1")
			require.ErrorContains(t, err, domain.ErrStoreWriteFailed.Error())

			if tt.previous != nil {
				got, err := os.ReadFile(dataPath)
				require.NoError(t, err)
				assert.Equal(t, tt.previous, got)
			} else {
				assert.NoFileExists(t, dataPath)
			}

			leftovers, err := filepath.Glob(filepath.Join(dir, ".*"))
			require.NoError(t, err)
			assert.Empty(t, leftovers)
		})
	}
}
