package cas

import (
	"bytes"
	"io"
	"reflect"
	"slices"
	"strings"
	"time"

	"github.com/vmihailenco/msgpack/v5"
	"go.trai.ch/tabula/internal/core/domain"
	"go.trai.ch/zerr"
)

// metaRecord is the content of a meta file.
type metaRecord struct {
	Name           string             `msgpack:"name"`
	ParamKey       string             `msgpack:"param_key"`
	Generation     string             `msgpack:"generation"`
	Param          msgpack.RawMessage `msgpack:"param"`
	Timestamp      time.Time          `msgpack:"timestamp"`
	SeparateFields bool               `msgpack:"separate_fields"`
	FieldNames     []string           `msgpack:"field_names"`
}

// dataHeader precedes the body of a data file. Custom maps a field name to the
// placeholder standing in for it; the empty name is the whole payload.
// Generation matches the meta file written by the same save.
type dataHeader struct {
	Generation string                              `msgpack:"generation"`
	Record     bool                                `msgpack:"record"`
	Custom     map[string]domain.CustomPlaceholder `msgpack:"custom"`
}

func newEncoder(w io.Writer) *msgpack.Encoder {
	enc := msgpack.NewEncoder(w)
	enc.SetSortMapKeys(true)
	return enc
}

func newDecoder(r io.Reader) *msgpack.Decoder {
	dec := msgpack.NewDecoder(r)
	dec.UseLooseInterfaceDecoding(true)
	return dec
}

func marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	if err := newEncoder(&buf).Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func unmarshal(data []byte, v any) error {
	return newDecoder(bytes.NewReader(data)).Decode(v)
}

func decodeMeta(data []byte) (*metaRecord, error) {
	var meta metaRecord
	if err := unmarshal(data, &meta); err != nil {
		return nil, zerr.Wrap(err, domain.ErrStoreUnmarshalFailed.Error())
	}
	if meta.ParamKey == "" {
		return nil, zerr.Wrap(domain.ErrStoreUnmarshalFailed, "meta file has no param key")
	}
	return &meta, nil
}

// decodeParam returns the stored param in its generic form.
func decodeParam(raw msgpack.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}
	var v any
	if err := unmarshal(raw, &v); err != nil {
		return nil
	}
	return v
}

type fieldInfo struct {
	name  string
	index []int
}

// structFields lists the persisted fields of a struct type. Names follow the
// msgpack tag when present; embedded exported structs are flattened.
func structFields(t reflect.Type) []fieldInfo {
	var fields []fieldInfo
	for i := range t.NumField() {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		name, _, _ := strings.Cut(f.Tag.Get("msgpack"), ",")
		if name == "-" {
			continue
		}
		if f.Anonymous && name == "" && f.Type.Kind() == reflect.Struct {
			for _, sub := range structFields(f.Type) {
				sub.index = append([]int{i}, sub.index...)
				fields = append(fields, sub)
			}
			continue
		}
		if name == "" {
			name = f.Name
		}
		fields = append(fields, fieldInfo{name: name, index: []int{i}})
	}
	return fields
}

// recordFields splits a record payload into its top-level fields. Records are
// string-keyed maps and structs other than time.Time. ok is false for anything else.
func recordFields(payload any) (map[string]any, bool) {
	v := reflect.ValueOf(payload)
	for v.IsValid() && v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return nil, false
		}
		v = v.Elem()
	}
	if !v.IsValid() {
		return nil, false
	}

	switch v.Kind() {
	case reflect.Map:
		if v.Type().Key().Kind() != reflect.String {
			return nil, false
		}
		fields := make(map[string]any, v.Len())
		iter := v.MapRange()
		for iter.Next() {
			fields[iter.Key().String()] = iter.Value().Interface()
		}
		return fields, true
	case reflect.Struct:
		if v.Type() == timeType {
			return nil, false
		}
		infos := structFields(v.Type())
		fields := make(map[string]any, len(infos))
		for _, f := range infos {
			fields[f.name] = v.FieldByIndex(f.index).Interface()
		}
		return fields, true
	default:
		return nil, false
	}
}

// encodeRecordBody writes fields as a map stream in sorted order so each value
// can be skipped or decoded on its own.
func encodeRecordBody(enc *msgpack.Encoder, fields map[string]any) error {
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	slices.Sort(names)

	if err := enc.EncodeMapLen(len(names)); err != nil {
		return err
	}
	for _, name := range names {
		if err := enc.EncodeString(name); err != nil {
			return err
		}
		if err := enc.Encode(fields[name]); err != nil {
			return zerr.With(err, "field", name)
		}
	}
	return nil
}

// decodeRecordBody reads a map stream, keeping only wanted fields when want is non-nil.
func decodeRecordBody(dec *msgpack.Decoder, want map[string]bool) (map[string]msgpack.RawMessage, error) {
	n, err := dec.DecodeMapLen()
	if err != nil {
		return nil, err
	}
	raws := make(map[string]msgpack.RawMessage, max(n, 0))
	for range n {
		name, err := dec.DecodeString()
		if err != nil {
			return nil, err
		}
		if want != nil && !want[name] {
			if err := dec.Skip(); err != nil {
				return nil, err
			}
			continue
		}
		raw, err := dec.DecodeRaw()
		if err != nil {
			return nil, zerr.With(err, "field", name)
		}
		raws[name] = raw
	}
	return raws, nil
}

// assignRecord populates dst, a pointer to a map, struct or interface, from
// decoded raw fields and restored custom values. dst is reset first so only the
// loaded fields are populated.
//
//nolint:cyclop // One case per destination kind.
func assignRecord(dst reflect.Value, raws map[string]msgpack.RawMessage, custom map[string]any) error {
	switch dst.Kind() {
	case reflect.Interface:
		rec := make(domain.Record, len(raws)+len(custom))
		for name, raw := range raws {
			var v any
			if err := unmarshal(raw, &v); err != nil {
				return zerr.With(err, "field", name)
			}
			rec[name] = v
		}
		for name, v := range custom {
			rec[name] = v
		}
		dst.Set(reflect.ValueOf(rec))
	case reflect.Map:
		if dst.Type().Key().Kind() != reflect.String {
			return zerr.With(domain.ErrInvalidDestination, "type", dst.Type().String())
		}
		m := reflect.MakeMapWithSize(dst.Type(), len(raws)+len(custom))
		keyType, elemType := dst.Type().Key(), dst.Type().Elem()
		for name, raw := range raws {
			ev := reflect.New(elemType)
			if err := unmarshal(raw, ev.Interface()); err != nil {
				return zerr.With(err, "field", name)
			}
			m.SetMapIndex(reflect.ValueOf(name).Convert(keyType), ev.Elem())
		}
		for name, v := range custom {
			cv, err := assignable(v, elemType, name)
			if err != nil {
				return err
			}
			m.SetMapIndex(reflect.ValueOf(name).Convert(keyType), cv)
		}
		dst.Set(m)
	case reflect.Struct:
		dst.Set(reflect.Zero(dst.Type()))
		for _, f := range structFields(dst.Type()) {
			field := dst.FieldByIndex(f.index)
			if v, ok := custom[f.name]; ok {
				cv, err := assignable(v, field.Type(), f.name)
				if err != nil {
					return err
				}
				field.Set(cv)
				continue
			}
			raw, ok := raws[f.name]
			if !ok {
				continue
			}
			if err := unmarshal(raw, field.Addr().Interface()); err != nil {
				return zerr.With(err, "field", f.name)
			}
		}
	default:
		return zerr.With(domain.ErrInvalidDestination, "type", dst.Type().String())
	}
	return nil
}

func assignable(v any, to reflect.Type, field string) (reflect.Value, error) {
	if v == nil {
		return reflect.Zero(to), nil
	}
	rv := reflect.ValueOf(v)
	if !rv.Type().AssignableTo(to) {
		err := zerr.With(domain.ErrInvalidDestination, "field", field)
		return reflect.Value{}, zerr.With(err, "type", rv.Type().String())
	}
	return rv, nil
}
