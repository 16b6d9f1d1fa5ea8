package cacheable

import (
	"time"

	"go.trai.ch/tabula/internal/core/domain"
	"go.trai.ch/tabula/internal/core/ports"
	"go.trai.ch/zerr"
)

// snapshotParam folds the snapshot name into the entity param.
type snapshotParam struct {
	Param    any    `msgpack:"param"`
	Snapshot string `msgpack:"snapshot"`
}

// Snapshot is a named historical copy found on disk.
type Snapshot struct {
	Name      string
	Timestamp time.Time
	Root      string
	// MatchesParam is false for snapshots taken under a different entity param.
	MatchesParam bool
}

func (f *Facet[S]) snapshotKey(name string) domain.CacheKey {
	return domain.NewCacheKey(
		domain.SnapshotCacheName(f.entity.CacheName()),
		snapshotParam{Param: f.entity.CacheParam(), Snapshot: name},
	)
}

// Snapshot saves the entity's persisted state as the named snapshot.
func (f *Facet[S]) Snapshot(name string, opts ...ports.SaveOption) error {
	if err := f.store.Save(f.snapshotKey(name), f.entity.PersistedState(), opts...); err != nil {
		return zerr.With(zerr.Wrap(err, domain.ErrPersistFailed.Error()), "snapshot", name)
	}
	return nil
}

// LoadFromSnapshot loads the named snapshot taken under the current param.
func (f *Facet[S]) LoadFromSnapshot(name string) (time.Time, error) {
	var state S
	ts, found, err := f.store.Load(f.snapshotKey(name), &state)
	if err != nil {
		return time.Time{}, err
	}
	if !found {
		return time.Time{}, zerr.With(domain.ErrSnapshotNotFound, "snapshot", name)
	}
	f.apply(name, ts, state)
	return ts, nil
}

// LoadFromSnapshotMostRecent loads the newest snapshot of the entity, whatever its param.
func (f *Facet[S]) LoadFromSnapshotMostRecent() (string, time.Time, error) {
	entries, err := f.store.List(domain.SnapshotCacheName(f.entity.CacheName()))
	if err != nil {
		return "", time.Time{}, err
	}
	if len(entries) == 0 {
		return "", time.Time{}, zerr.With(domain.ErrSnapshotNotFound, "cache", f.entity.CacheName())
	}

	newest := entries[0]
	var state S
	if err := f.store.LoadEntry(newest, &state); err != nil {
		return "", time.Time{}, err
	}
	name := snapshotName(newest.Param)
	f.apply(name, newest.Timestamp, state)
	return name, newest.Timestamp, nil
}

// LoadFromSnapshotMostRecentMatchingParam loads the newest snapshot taken under the current param.
func (f *Facet[S]) LoadFromSnapshotMostRecentMatchingParam() (string, time.Time, error) {
	snapshots, err := f.ListSnapshots()
	if err != nil {
		return "", time.Time{}, err
	}

	for _, s := range snapshots {
		if !s.MatchesParam {
			continue
		}
		ts, err := f.LoadFromSnapshot(s.Name)
		if err != nil {
			return "", time.Time{}, err
		}
		return s.Name, ts, nil
	}
	return "", time.Time{}, zerr.With(domain.ErrSnapshotNotFound, "cache", f.entity.CacheName())
}

// ListSnapshots lists the entity's snapshots newest first.
func (f *Facet[S]) ListSnapshots() ([]Snapshot, error) {
	entries, err := f.store.List(domain.SnapshotCacheName(f.entity.CacheName()))
	if err != nil {
		return nil, err
	}

	matching := make(map[string]time.Time)
	snapshots := make([]Snapshot, 0, len(entries))
	for _, e := range entries {
		name := snapshotName(e.Param)
		ts, seen := matching[name]
		if !seen {
			var newer bool
			newer, ts, err = f.store.HasNewerThan(f.snapshotKey(name), time.Time{})
			if err != nil {
				return nil, err
			}
			if !newer {
				ts = time.Time{}
			}
			matching[name] = ts
		}
		snapshots = append(snapshots, Snapshot{
			Name:         name,
			Timestamp:    e.Timestamp,
			Root:         e.Root,
			MatchesParam: !ts.IsZero() && ts.Equal(e.Timestamp),
		})
	}
	return snapshots, nil
}

// apply copies a loaded snapshot onto the entity. Snapshots are historical,
// so an expired one only warns.
func (f *Facet[S]) apply(name string, ts time.Time, state S) {
	if ts.Before(f.entity.ValidAfter()) {
		f.logger.Warn("snapshot " + name + " of " + f.entity.CacheName() + " is older than its valid-after time")
	}
	f.entity.ApplyPersistedState(state)
}

func snapshotName(param any) string {
	m, ok := param.(map[string]any)
	if !ok {
		return ""
	}
	name, _ := m["snapshot"].(string)
	return name
}
