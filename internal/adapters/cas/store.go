// Package cas implements the hash-keyed cache store over an ordered list of cache roots.
package cas

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"reflect"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
	"go.trai.ch/tabula/internal/core/domain"
	"go.trai.ch/tabula/internal/core/ports"
	"go.trai.ch/zerr"
)

// DefaultMetaCacheSize is the number of parsed meta files kept in memory.
const DefaultMetaCacheSize = 256

var _ ports.CacheStore = (*Store)(nil)

// Store implements ports.CacheStore with one meta file and one data file per key.
type Store struct {
	roots   []string
	logger  ports.Logger
	metas   *lru.Cache[string, cachedMeta]
	loaders map[string]ports.CustomLoader
	now     func() time.Time
}

// cachedMeta is a parsed meta file, valid while the path names the same file
// with the same size and mtime. Saves replace meta files by rename, so every
// rewrite through a Store also changes the file identity.
type cachedMeta struct {
	info os.FileInfo
	meta *metaRecord
}

// Option configures a Store.
type Option func(*storeOptions)

type storeOptions struct {
	metaCacheSize int
	loaders       map[string]ports.CustomLoader
	now           func() time.Time
}

// WithCustomLoader registers the loader restoring values of a custom type.
func WithCustomLoader(typeName string, loader ports.CustomLoader) Option {
	return func(o *storeOptions) {
		o.loaders[typeName] = loader
	}
}

// WithMetaCacheSize sets the capacity of the in-memory meta cache.
func WithMetaCacheSize(size int) Option {
	return func(o *storeOptions) {
		o.metaCacheSize = size
	}
}

// WithClock sets the source of default save timestamps.
func WithClock(now func() time.Time) Option {
	return func(o *storeOptions) {
		o.now = now
	}
}

// NewStore creates a store reading from roots in order and writing to the first that exists.
func NewStore(roots []string, logger ports.Logger, opts ...Option) (*Store, error) {
	o := storeOptions{
		metaCacheSize: DefaultMetaCacheSize,
		loaders:       map[string]ports.CustomLoader{BlobType: loadBlob},
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.metaCacheSize <= 0 {
		o.metaCacheSize = DefaultMetaCacheSize
	}

	metas, err := lru.New[string, cachedMeta](o.metaCacheSize)
	if err != nil {
		return nil, zerr.Wrap(err, domain.ErrStoreCreateFailed.Error())
	}

	cleaned := make([]string, 0, len(roots))
	for _, r := range roots {
		cleaned = append(cleaned, filepath.Clean(r))
	}

	return &Store{
		roots:   cleaned,
		logger:  logger,
		metas:   metas,
		loaders: o.loaders,
		now:     o.now,
	}, nil
}

// Roots returns the configured search path.
func (s *Store) Roots() []string {
	return slices.Clone(s.roots)
}

// Save writes the payload for key to the first existing root.
// Custom siblings go to directories private to this save. The data file is
// renamed into place before the meta file; a failed save leaves the previous
// pair as it was, and superseded siblings are removed only once the new meta
// file is in place.
func (s *Store) Save(key domain.CacheKey, payload any, opts ...ports.SaveOption) error {
	cfg := ports.SaveConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.Timestamp.IsZero() {
		cfg.Timestamp = s.now()
	}
	if cfg.Memo == nil {
		cfg.Memo = &domain.HashMemo{}
	}

	d, err := digestKey(key, cfg.Memo)
	if err != nil {
		return err
	}

	root, err := s.writeRoot()
	if err != nil {
		return zerr.With(err, "cache", key.Name)
	}

	dir := filepath.Join(root, key.Name)
	if err := os.MkdirAll(dir, domain.DirPerm); err != nil {
		return zerr.With(zerr.Wrap(err, domain.ErrStoreCreateFailed.Error()), "path", dir)
	}

	stem := domain.CacheStem(d.hash)
	generation := uuid.NewString()
	discard := func() {
		_ = removeCustomDirs(dir, stem, func(g string) bool { return g == generation })
	}

	body, fieldNames, err := encodeData(dir, stem, generation, payload)
	if err != nil {
		discard()
		return zerr.With(err, "cache", key.Name)
	}

	paramRaw, err := marshal(key.Param)
	if err != nil {
		discard()
		return zerr.With(zerr.Wrap(err, domain.ErrStoreMarshalFailed.Error()), "cache", key.Name)
	}

	meta := metaRecord{
		Name:           key.Name,
		ParamKey:       d.paramKey,
		Generation:     generation,
		Param:          paramRaw,
		Timestamp:      cfg.Timestamp,
		SeparateFields: cfg.SeparateFields && fieldNames != nil,
		FieldNames:     fieldNames,
	}
	metaBytes, err := marshal(&meta)
	if err != nil {
		discard()
		return zerr.With(zerr.Wrap(err, domain.ErrStoreMarshalFailed.Error()), "cache", key.Name)
	}

	metaPath := filepath.Join(dir, stem+domain.MetaFileSuffix)
	dataPath := filepath.Join(dir, stem+domain.DataFileSuffix)
	if err := commitPair(dataPath, metaPath, body, metaBytes, generation); err != nil {
		discard()
		return zerr.With(err, "cache", key.Name)
	}
	s.metas.Remove(metaPath)

	if err := removeCustomDirs(dir, stem, func(g string) bool { return g != generation }); err != nil {
		s.logger.Warn("failed to remove superseded custom directories of " + dataPath + ": " + err.Error())
	}

	return s.verify(key, metaPath, cfg)
}

// commitPair renames the data file and then the meta file into place. When the
// meta file cannot be written the previous data file is put back.
func commitPair(dataPath, metaPath string, body, metaBytes []byte, generation string) error {
	backup, err := preserve(dataPath, generation)
	if err != nil {
		return zerr.With(zerr.Wrap(err, domain.ErrStoreWriteFailed.Error()), "path", dataPath)
	}
	if err := writeAtomic(dataPath, body); err != nil {
		if backup != "" {
			_ = os.Remove(backup)
		}
		return err
	}
	if err := writeAtomic(metaPath, metaBytes); err != nil {
		if backup == "" {
			_ = os.Remove(dataPath)
		} else if rerr := os.Rename(backup, dataPath); rerr != nil {
			err = errors.Join(err, zerr.With(zerr.Wrap(rerr, domain.ErrStoreWriteFailed.Error()), "path", dataPath))
		}
		return err
	}
	if backup != "" {
		_ = os.Remove(backup)
	}
	return nil
}

// preserve keeps the current data file reachable under a hidden name until the
// new pair is committed. It returns "" when there is no data file yet.
func preserve(dataPath, generation string) (string, error) {
	if !fileExists(dataPath) {
		return "", nil
	}
	backup := filepath.Join(filepath.Dir(dataPath), "."+filepath.Base(dataPath)+"."+generation+".prev")
	if err := os.Link(dataPath, backup); err == nil {
		return backup, nil
	}
	//nolint:gosec // Path is built from a configured cache root and a hashed file name.
	data, err := os.ReadFile(dataPath)
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(backup, data, domain.FilePerm); err != nil {
		return "", err
	}
	return backup, nil
}

// verify re-reads the meta file just written and checks it still describes key.
func (s *Store) verify(key domain.CacheKey, metaPath string, cfg ports.SaveConfig) error {
	d, err := digestKey(key, cfg.Memo)
	if err != nil {
		return err
	}
	if filepath.Base(metaPath) != domain.CacheStem(d.hash)+domain.MetaFileSuffix {
		return zerr.With(domain.ErrStoreVerifyFailed, "path", metaPath)
	}

	meta, err := s.readMeta(metaPath)
	if err != nil {
		return zerr.With(zerr.Wrap(err, domain.ErrStoreVerifyFailed.Error()), "path", metaPath)
	}
	if meta.ParamKey != d.paramKey || !meta.Timestamp.Equal(cfg.Timestamp) {
		return zerr.With(domain.ErrStoreVerifyFailed, "path", metaPath)
	}
	return nil
}

// Load decodes the newest valid pair for key into dst.
func (s *Store) Load(key domain.CacheKey, dst any, fields ...string) (time.Time, bool, error) {
	entry, ok, err := s.newest(key)
	if err != nil || !ok {
		return time.Time{}, false, err
	}
	if err := s.LoadEntry(entry, dst, fields...); err != nil {
		return time.Time{}, false, err
	}
	return entry.Timestamp, true, nil
}

// LoadEntry decodes the pair described by entry into dst, which must be a non-nil pointer.
func (s *Store) LoadEntry(entry domain.CacheEntry, dst any, fields ...string) error {
	rv := reflect.ValueOf(dst)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return zerr.With(domain.ErrInvalidDestination, "type", fmt.Sprintf("%T", dst))
	}

	//nolint:gosec // Path is built from a configured cache root and a hashed file name.
	data, err := os.ReadFile(entry.DataPath)
	if err != nil {
		return zerr.With(zerr.Wrap(err, domain.ErrStoreReadFailed.Error()), "path", entry.DataPath)
	}

	dec := newDecoder(bytes.NewReader(data))
	var hdr dataHeader
	if err := dec.Decode(&hdr); err != nil {
		return zerr.With(zerr.Wrap(err, domain.ErrStoreUnmarshalFailed.Error()), "path", entry.DataPath)
	}
	if hdr.Generation != entry.Generation {
		return zerr.With(domain.ErrStorePairMismatch, "path", entry.DataPath)
	}

	dir := filepath.Dir(entry.DataPath)
	stem := domain.CacheStem(entry.Hash)

	if !hdr.Record {
		if ph, ok := hdr.Custom[""]; ok {
			v, err := s.restoreCustom(dir, stem, hdr.Generation, "", ph)
			if err != nil {
				return err
			}
			cv, err := assignable(v, rv.Elem().Type(), "")
			if err != nil {
				return err
			}
			rv.Elem().Set(cv)
			return nil
		}
		if err := dec.Decode(dst); err != nil {
			return zerr.With(zerr.Wrap(err, domain.ErrStoreUnmarshalFailed.Error()), "path", entry.DataPath)
		}
		return nil
	}

	var want map[string]bool
	if entry.SeparateFields && len(fields) > 0 {
		want = make(map[string]bool, len(fields))
		for _, f := range fields {
			want[f] = true
		}
	}

	raws, err := decodeRecordBody(dec, want)
	if err != nil {
		return zerr.With(zerr.Wrap(err, domain.ErrStoreUnmarshalFailed.Error()), "path", entry.DataPath)
	}

	custom := make(map[string]any, len(hdr.Custom))
	for field, ph := range hdr.Custom {
		if want != nil && !want[field] {
			continue
		}
		delete(raws, field)
		v, err := s.restoreCustom(dir, stem, hdr.Generation, field, ph)
		if err != nil {
			return err
		}
		custom[field] = v
	}

	if err := assignRecord(rv.Elem(), raws, custom); err != nil {
		return zerr.With(err, "path", entry.DataPath)
	}
	return nil
}

// Exists reports whether a matching meta and data file exist in any root.
func (s *Store) Exists(key domain.CacheKey) (bool, error) {
	_, ok, err := s.newest(key)
	return ok, err
}

// HasNewerThan reports whether the newest valid pair is strictly newer than ref.
func (s *Store) HasNewerThan(key domain.CacheKey, ref time.Time) (bool, time.Time, error) {
	entry, ok, err := s.newest(key)
	if err != nil || !ok {
		return false, time.Time{}, err
	}
	return entry.Timestamp.After(ref), entry.Timestamp, nil
}

// Delete removes the pair for key and its custom siblings from every root.
func (s *Store) Delete(key domain.CacheKey) error {
	d, err := digestKey(key, nil)
	if err != nil {
		return err
	}
	stem := domain.CacheStem(d.hash)

	var errs error
	for _, root := range s.roots {
		dir := filepath.Join(root, key.Name)
		metaPath := filepath.Join(dir, stem+domain.MetaFileSuffix)
		for _, p := range []string{metaPath, filepath.Join(dir, stem+domain.DataFileSuffix)} {
			if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
				errs = errors.Join(errs, zerr.With(zerr.Wrap(err, domain.ErrStoreDeleteFailed.Error()), "path", p))
			}
		}
		if err := removeCustomDirs(dir, stem, allGenerations); err != nil {
			errs = errors.Join(errs, zerr.With(zerr.Wrap(err, domain.ErrStoreDeleteFailed.Error()), "path", dir))
		}
		s.metas.Remove(metaPath)
	}
	return errs
}

// List enumerates every entry under name across all roots, newest first.
// Corrupt meta files and data files without a meta file are skipped with a warning.
func (s *Store) List(name string) ([]domain.CacheEntry, error) {
	var entries []domain.CacheEntry
	for _, root := range s.roots {
		dir := filepath.Join(root, name)
		metaPaths, err := filepath.Glob(filepath.Join(dir, domain.CacheFilePrefix+"*"+domain.MetaFileSuffix))
		if err != nil {
			return nil, zerr.Wrap(err, domain.ErrStoreReadFailed.Error())
		}

		for _, metaPath := range metaPaths {
			hash := hashFromPath(metaPath, domain.MetaFileSuffix)
			dataPath := filepath.Join(dir, domain.CacheStem(hash)+domain.DataFileSuffix)
			meta, err := s.readMeta(metaPath)
			if err != nil {
				s.logger.Warn("skipping unreadable cache meta file " + metaPath + ": " + err.Error())
				continue
			}
			if !fileExists(dataPath) {
				s.logger.Warn("skipping cache meta file without data file " + metaPath)
				continue
			}
			if !s.paired(dataPath, meta) {
				continue
			}
			entry := newEntry(root, hash, metaPath, dataPath, meta)
			entry.Param = decodeParam(meta.Param)
			entries = append(entries, entry)
		}

		dataPaths, err := filepath.Glob(filepath.Join(dir, domain.CacheFilePrefix+"*"+domain.DataFileSuffix))
		if err != nil {
			return nil, zerr.Wrap(err, domain.ErrStoreReadFailed.Error())
		}
		for _, dataPath := range dataPaths {
			hash := hashFromPath(dataPath, domain.DataFileSuffix)
			if !fileExists(filepath.Join(dir, domain.CacheStem(hash)+domain.MetaFileSuffix)) {
				s.logger.Warn("ignoring cache data file without meta file " + dataPath)
			}
		}
	}

	slices.SortStableFunc(entries, func(a, b domain.CacheEntry) int {
		if c := b.Timestamp.Compare(a.Timestamp); c != 0 {
			return c
		}
		return strings.Compare(a.MetaPath, b.MetaPath)
	})
	return entries, nil
}

// newest scans every root for a valid pair of key and returns the one with the latest timestamp.
func (s *Store) newest(key domain.CacheKey) (domain.CacheEntry, bool, error) {
	d, err := digestKey(key, nil)
	if err != nil {
		return domain.CacheEntry{}, false, err
	}
	stem := domain.CacheStem(d.hash)

	var (
		best  domain.CacheEntry
		found bool
	)
	for _, root := range s.roots {
		dir := filepath.Join(root, key.Name)
		metaPath := filepath.Join(dir, stem+domain.MetaFileSuffix)
		dataPath := filepath.Join(dir, stem+domain.DataFileSuffix)

		hasMeta, hasData := fileExists(metaPath), fileExists(dataPath)
		switch {
		case !hasMeta && hasData:
			s.logger.Warn("ignoring cache data file without meta file " + dataPath)
			continue
		case !hasMeta:
			continue
		case !hasData:
			s.logger.Warn("ignoring cache meta file without data file " + metaPath)
			continue
		}

		meta, err := s.readMeta(metaPath)
		if err != nil {
			s.logger.Warn("skipping unreadable cache meta file " + metaPath + ": " + err.Error())
			continue
		}
		if meta.ParamKey != d.paramKey {
			s.logger.Warn("skipping cache file " + metaPath + ": stored param does not match the requested param")
			continue
		}
		if !s.paired(dataPath, meta) {
			continue
		}

		if !found || meta.Timestamp.After(best.Timestamp) {
			best = newEntry(root, d.hash, metaPath, dataPath, meta)
			best.Param = key.Param
			found = true
		}
	}
	return best, found, nil
}

// paired reports whether the data file was written by the save that wrote meta.
// A mismatch is left behind by a save interrupted between its two renames.
func (s *Store) paired(dataPath string, meta *metaRecord) bool {
	hdr, err := readHeader(dataPath)
	if err != nil {
		s.logger.Warn("skipping unreadable cache data file " + dataPath + ": " + err.Error())
		return false
	}
	if hdr.Generation != meta.Generation {
		s.logger.Warn("skipping cache data file " + dataPath + ": it was written by another save than its meta file")
		return false
	}
	return true
}

func readHeader(path string) (dataHeader, error) {
	var hdr dataHeader
	//nolint:gosec // Path is built from a configured cache root and a hashed file name.
	f, err := os.Open(path)
	if err != nil {
		return hdr, zerr.Wrap(err, domain.ErrStoreReadFailed.Error())
	}
	defer func() { _ = f.Close() }()
	if err := newDecoder(bufio.NewReader(f)).Decode(&hdr); err != nil {
		return hdr, zerr.Wrap(err, domain.ErrStoreUnmarshalFailed.Error())
	}
	return hdr, nil
}

// readMeta returns the parsed meta file, served from memory while the file is unchanged.
func (s *Store) readMeta(path string) (*metaRecord, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, zerr.Wrap(err, domain.ErrStoreReadFailed.Error())
	}
	if c, ok := s.metas.Get(path); ok && sameFile(c.info, info) {
		return c.meta, nil
	}

	//nolint:gosec // Path is built from a configured cache root and a hashed file name.
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, zerr.Wrap(err, domain.ErrStoreReadFailed.Error())
	}
	meta, err := decodeMeta(data)
	if err != nil {
		return nil, err
	}
	s.metas.Add(path, cachedMeta{info: info, meta: meta})
	return meta, nil
}

func sameFile(a, b os.FileInfo) bool {
	return os.SameFile(a, b) && a.Size() == b.Size() && a.ModTime().Equal(b.ModTime())
}

func (s *Store) writeRoot() (string, error) {
	for _, root := range s.roots {
		if info, err := os.Stat(root); err == nil && info.IsDir() {
			return root, nil
		}
	}
	return "", domain.ErrNoCacheRoot
}

// encodeData renders the data file. fieldNames is nil for non-record payloads.
func encodeData(dir, stem, generation string, payload any) ([]byte, []string, error) {
	var buf bytes.Buffer
	enc := newEncoder(&buf)
	hdr := dataHeader{Generation: generation, Custom: map[string]domain.CustomPlaceholder{}}

	if cs, ok := asCustom(payload); ok {
		ph, err := saveCustom(dir, stem, generation, "", cs)
		if err != nil {
			return nil, nil, err
		}
		hdr.Custom[""] = ph
		if err := enc.Encode(&hdr); err != nil {
			return nil, nil, zerr.Wrap(err, domain.ErrStoreMarshalFailed.Error())
		}
		return buf.Bytes(), nil, nil
	}

	fields, ok := recordFields(payload)
	if !ok {
		if err := enc.Encode(&hdr); err != nil {
			return nil, nil, zerr.Wrap(err, domain.ErrStoreMarshalFailed.Error())
		}
		if err := enc.Encode(payload); err != nil {
			return nil, nil, zerr.Wrap(err, domain.ErrStoreMarshalFailed.Error())
		}
		return buf.Bytes(), nil, nil
	}

	hdr.Record = true
	names := make([]string, 0, len(fields))
	for name, v := range fields {
		names = append(names, name)
		cs, ok := asCustom(v)
		if !ok {
			continue
		}
		ph, err := saveCustom(dir, stem, generation, name, cs)
		if err != nil {
			return nil, nil, err
		}
		hdr.Custom[name] = ph
		fields[name] = nil
	}
	slices.Sort(names)

	if err := enc.Encode(&hdr); err != nil {
		return nil, nil, zerr.Wrap(err, domain.ErrStoreMarshalFailed.Error())
	}
	if err := encodeRecordBody(enc, fields); err != nil {
		return nil, nil, zerr.Wrap(err, domain.ErrStoreMarshalFailed.Error())
	}
	return buf.Bytes(), names, nil
}

// writeAtomic writes data to a temporary file in the target directory and renames it into place.
func writeAtomic(path string, data []byte) error {
	tmp := filepath.Join(filepath.Dir(path), "."+filepath.Base(path)+"."+uuid.NewString()+".tmp")
	if err := os.WriteFile(tmp, data, domain.FilePerm); err != nil {
		return zerr.With(zerr.Wrap(err, domain.ErrStoreWriteFailed.Error()), "path", path)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return zerr.With(zerr.Wrap(err, domain.ErrStoreWriteFailed.Error()), "path", path)
	}
	return nil
}

func newEntry(root, hash, metaPath, dataPath string, meta *metaRecord) domain.CacheEntry {
	return domain.CacheEntry{
		Name:           meta.Name,
		Hash:           hash,
		Root:           root,
		ParamKey:       meta.ParamKey,
		Generation:     meta.Generation,
		Timestamp:      meta.Timestamp,
		SeparateFields: meta.SeparateFields,
		FieldNames:     slices.Clone(meta.FieldNames),
		MetaPath:       metaPath,
		DataPath:       dataPath,
	}
}

func hashFromPath(path, suffix string) string {
	return strings.TrimSuffix(strings.TrimPrefix(filepath.Base(path), domain.CacheFilePrefix), suffix)
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
