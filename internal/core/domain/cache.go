package domain

import "time"

// CacheKey identifies a cached payload. Two keys are equivalent when their names match
// and their params have the same canonical serialization (NaN compares equal to NaN).
type CacheKey struct {
	Name  string
	Param any
}

// NewCacheKey returns a CacheKey for the given name and param.
func NewCacheKey(name string, param any) CacheKey {
	return CacheKey{Name: name, Param: param}
}

// CacheEntry describes one meta/data pair found on disk.
type CacheEntry struct {
	Name     string
	Hash     string
	Root     string
	ParamKey string
	Param    any
	// Generation identifies the save that wrote the pair; its data file must carry the same value.
	Generation     string
	Timestamp      time.Time
	SeparateFields bool
	FieldNames     []string
	MetaPath       string
	DataPath       string
}

// CustomPlaceholder stands in for a custom-serialized value inside a data file.
type CustomPlaceholder struct {
	TypeName string `msgpack:"type"`
	Token    []byte `msgpack:"token"`
}

// HashMemo remembers the most recent key digest computed by a single caller.
// It is not safe for concurrent use; each goroutine owns its memo.
type HashMemo struct {
	fingerprint uint64
	hash        string
	set         bool
}

// Lookup returns the remembered hash when the fingerprint matches.
func (m *HashMemo) Lookup(fingerprint uint64) (string, bool) {
	if m == nil || !m.set || m.fingerprint != fingerprint {
		return "", false
	}
	return m.hash, true
}

// Remember stores the hash computed for a fingerprint, replacing any previous one.
func (m *HashMemo) Remember(fingerprint uint64, hash string) {
	if m == nil {
		return
	}
	m.fingerprint = fingerprint
	m.hash = hash
	m.set = true
}
