package ports

import (
	"time"

	"go.trai.ch/tabula/internal/core/domain"
)

// CacheStore persists payloads under a (cache name, param) identity.
//
//go:generate go run go.uber.org/mock/mockgen -source=store.go -destination=mocks/mock_store.go -package=mocks
type CacheStore interface {
	// Save writes a meta/data pair for the key to the first existing cache root.
	Save(key domain.CacheKey, payload any, opts ...SaveOption) error

	// Load decodes the newest valid pair for the key into dst.
	// If fields is non-empty and the pair was saved with separate fields, only those fields are loaded.
	// Returns found=false, without error, when no matching pair exists.
	Load(key domain.CacheKey, dst any, fields ...string) (ts time.Time, found bool, err error)

	// LoadEntry decodes the pair described by a listed entry into dst.
	LoadEntry(entry domain.CacheEntry, dst any, fields ...string) error

	// Exists reports whether a matching meta and data file exist in any root.
	Exists(key domain.CacheKey) (bool, error)

	// HasNewerThan reports whether a valid pair's timestamp is strictly after ref.
	// The timestamp of the newest valid pair is returned even when it is not newer.
	HasNewerThan(key domain.CacheKey, ref time.Time) (bool, time.Time, error)

	// Delete removes every matching pair and its custom-serialized siblings from all roots.
	Delete(key domain.CacheKey) error

	// List enumerates all entries under a cache name across all roots, newest first.
	List(name string) ([]domain.CacheEntry, error)

	// Roots returns the cache roots in search order.
	Roots() []string
}

// SaveConfig holds the options of a single Save call.
type SaveConfig struct {
	Timestamp      time.Time
	SeparateFields bool
	Memo           *domain.HashMemo
}

// SaveOption is a functional option for configuring a Save call.
type SaveOption func(*SaveConfig)

// WithTimestamp overrides the saved timestamp, which defaults to now.
func WithTimestamp(ts time.Time) SaveOption {
	return func(c *SaveConfig) {
		c.Timestamp = ts
	}
}

// WithSeparateFields stores each top-level field of a record payload independently.
func WithSeparateFields() SaveOption {
	return func(c *SaveConfig) {
		c.SeparateFields = true
	}
}

// WithHashMemo reuses the caller's memo for the key digest.
func WithHashMemo(memo *domain.HashMemo) SaveOption {
	return func(c *SaveConfig) {
		c.Memo = memo
	}
}

// CustomSerializable is implemented by payload values that persist themselves
// instead of going through the store's default encoding.
type CustomSerializable interface {
	// CustomType names the loader that restores the value.
	CustomType() string
	// SaveCustom writes the value under dir and returns an opaque token for loading it back.
	SaveCustom(dir string) (token []byte, err error)
}

// CustomLoader restores a custom-serialized value from its directory and token.
type CustomLoader func(dir string, token []byte) (any, error)

// CacheStoreOpener opens a store over the configured cache roots.
type CacheStoreOpener func(settings domain.CacheSettings) (CacheStore, error)
