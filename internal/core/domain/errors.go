package domain

import "go.trai.ch/zerr"

var (
	// ErrNoCacheRoot is returned when none of the configured cache roots exists.
	ErrNoCacheRoot = zerr.New("no existing cache root directory")

	// ErrParamNotSerializable is returned when a cache param contains values without a deterministic encoding.
	ErrParamNotSerializable = zerr.New("cache param is not deterministically serializable")

	// ErrStoreCreateFailed is returned when a cache directory cannot be created.
	ErrStoreCreateFailed = zerr.New("failed to create cache directory")

	// ErrStoreReadFailed is returned when a cache file cannot be read.
	ErrStoreReadFailed = zerr.New("failed to read cache file")

	// ErrStoreUnmarshalFailed is returned when a cache file cannot be decoded.
	ErrStoreUnmarshalFailed = zerr.New("failed to decode cache file")

	// ErrStoreMarshalFailed is returned when a payload cannot be encoded.
	ErrStoreMarshalFailed = zerr.New("failed to encode cache payload")

	// ErrStoreWriteFailed is returned when a cache file cannot be written.
	ErrStoreWriteFailed = zerr.New("failed to write cache file")

	// ErrStoreDeleteFailed is returned when a cache file cannot be removed.
	ErrStoreDeleteFailed = zerr.New("failed to delete cache file")

	// ErrStoreVerifyFailed is returned when a freshly written meta file does not read back as written.
	ErrStoreVerifyFailed = zerr.New("cache write verification failed")

	// ErrStorePairMismatch is returned when a data file was written by another save than its meta file.
	ErrStorePairMismatch = zerr.New("cache data file does not belong to its meta file")

	// ErrCustomSaveFailed is returned when a custom-serialized value fails to save itself.
	ErrCustomSaveFailed = zerr.New("custom serialization save failed")

	// ErrCustomLoadFailed is returned when a custom-serialized value fails to load.
	ErrCustomLoadFailed = zerr.New("custom serialization load failed")

	// ErrUnknownCustomType is returned when no loader is registered for a placeholder's type.
	ErrUnknownCustomType = zerr.New("no loader registered for custom type")

	// ErrInvalidDestination is returned when a load destination cannot receive the stored payload.
	ErrInvalidDestination = zerr.New("invalid load destination")

	// ErrCacheMiss is returned when a requested item is not found in the cache.
	ErrCacheMiss = zerr.New("cache miss")

	// ErrCacheExpired is returned when the cached timestamp is older than the required freshness.
	ErrCacheExpired = zerr.New("cache is older than its valid-after timestamp")

	// ErrSnapshotNotFound is returned when no snapshot matches the request.
	ErrSnapshotNotFound = zerr.New("snapshot not found")

	// ErrMergeInconsistent is returned when merged results do not map one-to-one onto source rows.
	ErrMergeInconsistent = zerr.New("merged results are inconsistent with the source table")

	// ErrPersistFailed is returned when the merged result set cannot be written back.
	ErrPersistFailed = zerr.New("failed to persist analysis results")

	// ErrRunAborted is returned when a run is cancelled before its results were persisted.
	ErrRunAborted = zerr.New("analysis run aborted")

	// ErrDuplicateRowKey is returned when two source rows share the same key.
	ErrDuplicateRowKey = zerr.New("duplicate row key")

	// ErrTableReadFailed is returned when a source table cannot be read.
	ErrTableReadFailed = zerr.New("failed to read table")

	// ErrTableWriteFailed is returned when attached results cannot be written.
	ErrTableWriteFailed = zerr.New("failed to write table results")

	// ErrResultsNotAttached is returned when no results were attached under the requested name.
	ErrResultsNotAttached = zerr.New("no results attached")

	// ErrNonRecordResult is the failure kind for a computation returning something other than a record.
	ErrNonRecordResult = zerr.New("computation returned a non-record result")

	// ErrCommandFailed is returned when a row command exits unsuccessfully.
	ErrCommandFailed = zerr.New("command failed")

	// ErrEmptyCommand is returned when an analysis has no command configured.
	ErrEmptyCommand = zerr.New("empty command")

	// ErrResultNotJSON is returned when a row command prints something other than JSON.
	ErrResultNotJSON = zerr.New("command output is not valid JSON")

	// ErrFigureRegisterFailed is returned when a figure descriptor cannot be created.
	ErrFigureRegisterFailed = zerr.New("failed to register figure")

	// ErrConfigReadFailed is returned when the config file cannot be read.
	ErrConfigReadFailed = zerr.New("failed to read config file")

	// ErrConfigParseFailed is returned when the config file cannot be parsed.
	ErrConfigParseFailed = zerr.New("failed to parse config file")

	// ErrConfigInvalid is returned when the config file fails validation.
	ErrConfigInvalid = zerr.New("invalid config file")

	// ErrAnalysisNotFound is returned when a requested analysis is not defined in the config.
	ErrAnalysisNotFound = zerr.New("analysis not found")

	// ErrNoAnalysesSpecified is returned when the run command gets no analysis names.
	ErrNoAnalysesSpecified = zerr.New("no analyses specified")

	// ErrRunFailed is returned when at least one analysis run failed structurally.
	ErrRunFailed = zerr.New("analysis run failed")
)
