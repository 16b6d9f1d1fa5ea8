package domain

import "path/filepath"

const (
	// TabulaDirName is the name of the internal workspace directory.
	TabulaDirName = ".tabula"

	// CacheDirName is the name of the default cache root directory.
	CacheDirName = "cache"

	// FiguresDirName is the name of the default figure root directory.
	FiguresDirName = "figures"

	// ConfigFileName is the name of the project configuration file.
	ConfigFileName = "tabula.yaml"

	// CacheFilePrefix prefixes every meta and data file name.
	CacheFilePrefix = "cache_"

	// MetaFileSuffix is appended to the hash for meta files.
	MetaFileSuffix = ".meta.mat"

	// DataFileSuffix is appended to the hash for data files.
	DataFileSuffix = ".data.mat"

	// CustomDirSuffix is appended to the data file stem for custom-serialized content.
	CustomDirSuffix = ".custom"

	// SnapshotCacheSuffix is appended to an entity cache name to form its snapshot cache name.
	SnapshotCacheSuffix = "_snapshots"

	// DirPerm is the default permission for directories (rwxr-x---).
	DirPerm = 0o750

	// FilePerm is the default permission for files (rw-r--r--).
	FilePerm = 0o644
)

// DefaultCacheRoot returns the default cache root, relative to the project directory.
func DefaultCacheRoot() string {
	return filepath.Join(TabulaDirName, CacheDirName)
}

// DefaultFigureRoot returns the default figure root, relative to the project directory.
func DefaultFigureRoot() string {
	return filepath.Join(TabulaDirName, FiguresDirName)
}

// SnapshotCacheName returns the cache name holding snapshots of the given entity cache name.
func SnapshotCacheName(cacheName string) string {
	return cacheName + SnapshotCacheSuffix
}

// CacheStem returns the shared file stem of the meta/data pair for a hash.
func CacheStem(hash string) string {
	return CacheFilePrefix + hash
}

// CustomDirName returns the custom-serialization sibling directory name of one save of a data stem.
// An empty field names the whole-payload directory. Pairs written without a generation
// use the bare <stem>.custom[_field] form.
func CustomDirName(stem, generation, field string) string {
	name := stem + CustomDirSuffix
	if generation != "" {
		name += "." + generation
	}
	if field != "" {
		name += "_" + field
	}
	return name
}
