package cas

import (
	"crypto/sha1" //nolint:gosec // The cache hash is a file name component, not a security boundary.
	"encoding/hex"
	"math"
	"reflect"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
	"go.trai.ch/tabula/internal/core/domain"
	"go.trai.ch/zerr"
)

var timeType = reflect.TypeFor[time.Time]()

// keyDigest is the canonical form of a cache key and the hash derived from it.
type keyDigest struct {
	paramKey string
	hash     string
}

// HashKey returns the hex digest naming the meta/data pair of a key.
func HashKey(name string, param any) (string, error) {
	d, err := digestKey(domain.NewCacheKey(name, param), nil)
	if err != nil {
		return "", err
	}
	return d.hash, nil
}

func digestKey(key domain.CacheKey, memo *domain.HashMemo) (keyDigest, error) {
	paramKey, err := canonicalParam(key.Param)
	if err != nil {
		return keyDigest{}, zerr.With(err, "cache", key.Name)
	}

	full := key.Name + "\x00" + paramKey
	fingerprint := xxhash.Sum64String(full)
	if hash, ok := memo.Lookup(fingerprint); ok {
		return keyDigest{paramKey: paramKey, hash: hash}, nil
	}

	//nolint:gosec // See import.
	sum := sha1.Sum([]byte(full))
	hash := hex.EncodeToString(sum[:])
	memo.Remember(fingerprint, hash)
	return keyDigest{paramKey: paramKey, hash: hash}, nil
}

// canonicalParam renders a param deterministically. Map keys are sorted and
// struct fields are written with their names, so map iteration order never
// leaks into the result. NaN renders identically wherever it appears.
func canonicalParam(param any) (string, error) {
	var b strings.Builder
	if err := writeCanonical(&b, reflect.ValueOf(param)); err != nil {
		return "", err
	}
	return b.String(), nil
}

//nolint:cyclop // One case per reflect kind.
func writeCanonical(b *strings.Builder, v reflect.Value) error {
	if !v.IsValid() {
		b.WriteString("nil")
		return nil
	}

	switch v.Kind() {
	case reflect.Pointer, reflect.Interface:
		if v.IsNil() {
			b.WriteString("nil")
			return nil
		}
		return writeCanonical(b, v.Elem())
	case reflect.Bool:
		b.WriteString("b:")
		b.WriteString(strconv.FormatBool(v.Bool()))
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		b.WriteString("i:")
		b.WriteString(strconv.FormatInt(v.Int(), 10))
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		b.WriteString("u:")
		b.WriteString(strconv.FormatUint(v.Uint(), 10))
	case reflect.Float32, reflect.Float64:
		b.WriteString("f:")
		b.WriteString(formatFloat(v.Float()))
	case reflect.String:
		b.WriteString(strconv.Quote(v.String()))
	case reflect.Slice, reflect.Array:
		return writeSequence(b, v)
	case reflect.Map:
		return writeMap(b, v)
	case reflect.Struct:
		return writeStruct(b, v)
	default:
		return zerr.With(domain.ErrParamNotSerializable, "kind", v.Kind().String())
	}
	return nil
}

// formatFloat renders NaN as one token and -0 as 0.
func formatFloat(f float64) string {
	if math.IsNaN(f) {
		return "NaN"
	}
	if f == 0 {
		f = 0
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}

// writeSequence renders nil and empty slices identically.
func writeSequence(b *strings.Builder, v reflect.Value) error {
	b.WriteByte('[')
	for i := range v.Len() {
		if i > 0 {
			b.WriteByte(',')
		}
		if err := writeCanonical(b, v.Index(i)); err != nil {
			return err
		}
	}
	b.WriteByte(']')
	return nil
}

func writeMap(b *strings.Builder, v reflect.Value) error {
	type pair struct {
		key   string
		value reflect.Value
	}

	pairs := make([]pair, 0, v.Len())
	iter := v.MapRange()
	for iter.Next() {
		var kb strings.Builder
		if err := writeCanonical(&kb, iter.Key()); err != nil {
			return err
		}
		pairs = append(pairs, pair{key: kb.String(), value: iter.Value()})
	}
	slices.SortFunc(pairs, func(a, b pair) int { return strings.Compare(a.key, b.key) })

	b.WriteByte('{')
	for i, p := range pairs {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(p.key)
		b.WriteByte('=')
		if err := writeCanonical(b, p.value); err != nil {
			return err
		}
	}
	b.WriteByte('}')
	return nil
}

func writeStruct(b *strings.Builder, v reflect.Value) error {
	if v.Type() == timeType {
		t, _ := v.Interface().(time.Time)
		b.WriteString("t:")
		b.WriteString(t.UTC().Format(time.RFC3339Nano))
		return nil
	}

	b.WriteString("struct{")
	for i, f := range structFields(v.Type()) {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(f.name)
		b.WriteByte(':')
		if err := writeCanonical(b, v.FieldByIndex(f.index)); err != nil {
			return err
		}
	}
	b.WriteByte('}')
	return nil
}
