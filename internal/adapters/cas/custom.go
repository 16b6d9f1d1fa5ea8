package cas

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"go.trai.ch/tabula/internal/core/domain"
	"go.trai.ch/tabula/internal/core/ports"
	"go.trai.ch/zerr"
)

// BlobType is the custom type name of Blob.
const BlobType = "blob"

const blobFileName = "blob.bin"

// Blob is a byte payload stored as a plain file next to the data file instead
// of inline, so large outputs stay readable by other tools.
type Blob []byte

// CustomType implements ports.CustomSerializable.
func (b Blob) CustomType() string {
	return BlobType
}

// SaveCustom implements ports.CustomSerializable.
func (b Blob) SaveCustom(dir string) ([]byte, error) {
	if err := os.WriteFile(filepath.Join(dir, blobFileName), b, domain.FilePerm); err != nil {
		return nil, err
	}
	return []byte(blobFileName), nil
}

func loadBlob(dir string, token []byte) (any, error) {
	//nolint:gosec // Path is built from the cache root and a token written by SaveCustom.
	data, err := os.ReadFile(filepath.Join(dir, filepath.Base(string(token))))
	if err != nil {
		return nil, err
	}
	return Blob(data), nil
}

// asCustom returns the value as a CustomSerializable, treating typed nil pointers as absent.
func asCustom(v any) (ports.CustomSerializable, bool) {
	cs, ok := v.(ports.CustomSerializable)
	if !ok {
		return nil, false
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface:
		if rv.IsNil() {
			return nil, false
		}
	}
	return cs, true
}

// saveCustom hands a value its sibling directory and returns the placeholder written in its place.
func saveCustom(dir, stem, generation, field string, cs ports.CustomSerializable) (domain.CustomPlaceholder, error) {
	customDir := filepath.Join(dir, domain.CustomDirName(stem, generation, field))
	if err := os.MkdirAll(customDir, domain.DirPerm); err != nil {
		return domain.CustomPlaceholder{}, zerr.Wrap(err, domain.ErrCustomSaveFailed.Error())
	}
	token, err := cs.SaveCustom(customDir)
	if err != nil {
		err = zerr.With(zerr.Wrap(err, domain.ErrCustomSaveFailed.Error()), "type", cs.CustomType())
		return domain.CustomPlaceholder{}, zerr.With(err, "field", field)
	}
	return domain.CustomPlaceholder{TypeName: cs.CustomType(), Token: token}, nil
}

// removeCustomDirs deletes the custom sibling directories of a data stem whose
// generation is selected by remove.
func removeCustomDirs(dir, stem string, remove func(generation string) bool) error {
	matches, err := filepath.Glob(filepath.Join(dir, stem+domain.CustomDirSuffix+"*"))
	if err != nil {
		return err
	}
	var errs error
	for _, m := range matches {
		generation, ok := customGeneration(filepath.Base(m), stem)
		if !ok || !remove(generation) {
			continue
		}
		if err := os.RemoveAll(m); err != nil {
			errs = errors.Join(errs, err)
		}
	}
	return errs
}

func allGenerations(string) bool { return true }

// customGeneration extracts the save generation from a custom sibling directory name.
func customGeneration(name, stem string) (string, bool) {
	rest, ok := strings.CutPrefix(name, stem+domain.CustomDirSuffix)
	if !ok {
		return "", false
	}
	switch {
	case rest == "" || strings.HasPrefix(rest, "_"):
		return "", true
	case strings.HasPrefix(rest, "."):
		generation, _, _ := strings.Cut(rest[1:], "_")
		return generation, generation != ""
	default:
		return "", false
	}
}

func (s *Store) restoreCustom(dir, stem, generation, field string, ph domain.CustomPlaceholder) (any, error) {
	loader, ok := s.loaders[ph.TypeName]
	if !ok {
		return nil, zerr.With(domain.ErrUnknownCustomType, "type", ph.TypeName)
	}
	v, err := loader(filepath.Join(dir, domain.CustomDirName(stem, generation, field)), ph.Token)
	if err != nil {
		err = zerr.With(zerr.Wrap(err, domain.ErrCustomLoadFailed.Error()), "type", ph.TypeName)
		return nil, zerr.With(err, "field", field)
	}
	return v, nil
}
