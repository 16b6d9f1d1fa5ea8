// Package cacheable gives any entity with a cache identity its save, load and snapshot operations.
package cacheable

import (
	"time"

	"go.trai.ch/tabula/internal/core/domain"
	"go.trai.ch/tabula/internal/core/ports"
	"go.trai.ch/zerr"
)

// Entity is implemented by types that persist through a Facet.
// S is the persisted form of the entity; transient state stays out of it.
type Entity[S any] interface {
	CacheName() string
	CacheParam() any
	// ValidAfter is the oldest acceptable cache timestamp.
	ValidAfter() time.Time
	// PersistedState returns the state written to the cache.
	PersistedState() S
	// ApplyPersistedState copies loaded state onto the receiver in place.
	ApplyPersistedState(state S)
}

// Facet implements the cache operations of one entity.
type Facet[S any] struct {
	store  ports.CacheStore
	logger ports.Logger
	entity Entity[S]
}

// New creates a Facet for entity backed by store.
func New[S any](store ports.CacheStore, logger ports.Logger, entity Entity[S]) *Facet[S] {
	return &Facet[S]{store: store, logger: logger, entity: entity}
}

// Key returns the entity's cache key.
func (f *Facet[S]) Key() domain.CacheKey {
	return domain.NewCacheKey(f.entity.CacheName(), f.entity.CacheParam())
}

// Cache saves the entity's persisted state.
func (f *Facet[S]) Cache(opts ...ports.SaveOption) error {
	if err := f.store.Save(f.Key(), f.entity.PersistedState(), opts...); err != nil {
		return zerr.With(zerr.Wrap(err, domain.ErrPersistFailed.Error()), "cache", f.entity.CacheName())
	}
	return nil
}

// HasCache reports whether a cache newer than the entity's ValidAfter exists.
func (f *Facet[S]) HasCache() (bool, error) {
	newer, _, err := f.store.HasNewerThan(f.Key(), f.entity.ValidAfter())
	return newer, err
}

// LoadFromCache loads the cached state onto the entity and returns its timestamp.
// A cache older than ValidAfter is an error; the entity is left unchanged.
func (f *Facet[S]) LoadFromCache() (time.Time, error) {
	var state S
	ts, found, err := f.store.Load(f.Key(), &state)
	if err != nil {
		return time.Time{}, err
	}
	if !found {
		return time.Time{}, zerr.With(domain.ErrCacheMiss, "cache", f.entity.CacheName())
	}
	if ts.Before(f.entity.ValidAfter()) {
		err := zerr.With(domain.ErrCacheExpired, "cache", f.entity.CacheName())
		return ts, zerr.With(err, "timestamp", ts.Format(time.RFC3339))
	}
	f.entity.ApplyPersistedState(state)
	return ts, nil
}

// DeleteCache removes the entity's cache from every root.
func (f *Facet[S]) DeleteCache() error {
	return f.store.Delete(f.Key())
}
