// Package binding converts dynamically typed host values into custom
// section requests.
//
// Hosts hand over whatever their runtime produced: decoded JSON, a slice
// of maps, a slice of structs, or JSON text. The value must be an array
// of objects with exactly two string fields, name and data. Anything else
// is rejected with a marshal phase error before the pipeline runs.
package binding

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/mitchellh/mapstructure"

	"github.com/wippyai/wasm-metadata/errors"
	"github.com/wippyai/wasm-metadata/metadata"
)

var sectionFields = []string{"name", "data"}

// DecodeSections validates v and converts it to section requests.
func DecodeSections(v any) ([]metadata.CustomSection, error) {
	switch t := v.(type) {
	case nil:
		return nil, errors.TypeMismatch(nil, "null", "array")
	case []metadata.CustomSection:
		return checkSections(t)
	case json.RawMessage:
		return DecodeJSON(t)
	case []byte:
		return DecodeJSON(t)
	case string:
		return DecodeJSON([]byte(t))
	}

	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Pointer && !rv.IsNil() {
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, errors.TypeMismatch(nil, typeName(v), "array")
	}

	out := make([]metadata.CustomSection, 0, rv.Len())
	for i := 0; i < rv.Len(); i++ {
		s, err := decodeSection([]string{strconv.Itoa(i)}, rv.Index(i).Interface())
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

// DecodeJSON decodes JSON text holding an array of section objects.
func DecodeJSON(data []byte) ([]metadata.CustomSection, error) {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, errors.InvalidData(nil, "decode JSON", err)
	}
	if v == nil {
		return nil, errors.TypeMismatch(nil, "null", "array")
	}
	if _, ok := v.([]any); !ok {
		return nil, errors.TypeMismatch(nil, typeName(v), "array")
	}
	return DecodeSections(v)
}

func checkSections(sections []metadata.CustomSection) ([]metadata.CustomSection, error) {
	for i, s := range sections {
		path := []string{strconv.Itoa(i)}
		if !utf8.ValidString(s.Name) {
			return nil, errors.InvalidUTF8(append(path, "name"), []byte(s.Name))
		}
		if !utf8.ValidString(s.Data) {
			return nil, errors.InvalidUTF8(append(path, "data"), []byte(s.Data))
		}
	}
	return append([]metadata.CustomSection(nil), sections...), nil
}

func decodeSection(path []string, v any) (metadata.CustomSection, error) {
	if v == nil {
		return metadata.CustomSection{}, errors.TypeMismatch(path, "null", "object")
	}

	var fields map[string]any
	if err := mapstructure.Decode(v, &fields); err != nil {
		return metadata.CustomSection{}, errors.TypeMismatch(path, typeName(v), "object")
	}

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	found := make(map[string]string, len(sectionFields))
	for _, k := range keys {
		field := strings.ToLower(k)
		if !isSectionField(field) {
			return metadata.CustomSection{}, errors.FieldUnknown(path, k)
		}
		if _, dup := found[field]; dup {
			return metadata.CustomSection{}, errors.FieldUnknown(path, k)
		}
		found[field] = k
	}

	for _, field := range sectionFields {
		k, ok := found[field]
		if !ok {
			return metadata.CustomSection{}, errors.FieldMissing(path, field)
		}
		fieldPath := append(append([]string(nil), path...), field)
		s, ok := fields[k].(string)
		if !ok {
			return metadata.CustomSection{}, errors.TypeMismatch(fieldPath, typeName(fields[k]), "string")
		}
		if !utf8.ValidString(s) {
			return metadata.CustomSection{}, errors.InvalidUTF8(fieldPath, []byte(s))
		}
	}

	var out metadata.CustomSection
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		ErrorUnused: true,
		ErrorUnset:  true,
		Result:      &out,
	})
	if err != nil {
		return metadata.CustomSection{}, errors.InvalidData(path, "build decoder", err)
	}
	if err := dec.Decode(fields); err != nil {
		return metadata.CustomSection{}, errors.InvalidData(path, "decode section", err)
	}
	return out, nil
}

func isSectionField(name string) bool {
	for _, f := range sectionFields {
		if f == name {
			return true
		}
	}
	return false
}

// typeName names a value's type the way a JavaScript or JSON host would.
func typeName(v any) string {
	if v == nil {
		return "null"
	}
	switch reflect.TypeOf(v).Kind() {
	case reflect.String:
		return "string"
	case reflect.Bool:
		return "boolean"
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return "number"
	case reflect.Map, reflect.Struct:
		return "object"
	case reflect.Slice, reflect.Array:
		return "array"
	default:
		return fmt.Sprintf("%T", v)
	}
}
