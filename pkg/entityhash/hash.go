// Package entityhash implements the Hasher (spec.md component C1): a
// deterministic 64-bit digest of an entity snapshot used as a
// tamper-detection and change-detection primitive by the audit engine.
//
// Field discovery is reflection-based and tag-driven, in the same style as
// pkg/patchTools.PopulateStruct's tag-to-field map — but run in the other
// direction: instead of populating a struct from tagged values, Hash reads
// a struct's fields out into a canonical, tag-keyed encoding.
package entityhash

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"reflect"
	"sort"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"

	iso8601date "github.com/jecitDev/corebank/pkg/ISO8601date"
)

// EncodingError reports a field that could not be placed into the
// canonical byte stream.
type EncodingError struct {
	Field string
	Err   error
}

func (e *EncodingError) Error() string {
	return fmt.Sprintf("entityhash: cannot encode field %q: %v", e.Field, e.Err)
}

func (e *EncodingError) Unwrap() error { return e.Err }

// Tag bytes for the canonical encoding. Stable across versions of this
// package; changing them changes every stored hash.
const (
	tagNil byte = iota
	tagBool
	tagInt
	tagFloat
	tagString
	tagBytes
	tagTime
	tagUUID
	tagSlice
	tagMap
	tagStruct
)

// Hash computes the deterministic 64-bit signed hash of record, which must
// be a struct or a non-nil pointer to a struct (typically an entity with
// its Hash field already zeroed by the caller, per spec.md §4.1). The same
// logical record always yields the same hash, independent of host byte
// order, field declaration order, or the Go runtime's internal map
// iteration order.
func Hash(record any) (int64, error) {
	v := reflect.ValueOf(record)
	for v.Kind() == reflect.Ptr {
		if v.IsNil() {
			return 0, &EncodingError{Field: "<root>", Err: fmt.Errorf("nil pointer")}
		}
		v = v.Elem()
	}
	if v.Kind() != reflect.Struct {
		return 0, &EncodingError{Field: "<root>", Err: fmt.Errorf("expected struct, got %s", v.Kind())}
	}

	var buf bytes.Buffer
	if err := encodeValue(&buf, "<root>", v); err != nil {
		return 0, err
	}
	sum := xxhash.Sum64(buf.Bytes())
	return int64(sum), nil
}

func encodeValue(buf *bytes.Buffer, fieldPath string, v reflect.Value) error {
	if !v.IsValid() {
		buf.WriteByte(tagNil)
		return nil
	}
	// Unwrap named/typed aliases of supported concrete kinds first.
	if v.CanInterface() {
		switch tv := v.Interface().(type) {
		case time.Time:
			return encodeTime(buf, tv)
		case uuid.UUID:
			return encodeUUID(buf, tv)
		}
	}
	if v.Kind() == reflect.Ptr {
		if v.IsNil() {
			buf.WriteByte(tagNil)
			return nil
		}
		return encodeValue(buf, fieldPath, v.Elem())
	}

	switch v.Kind() {
	case reflect.Invalid:
		buf.WriteByte(tagNil)
		return nil
	case reflect.Bool:
		buf.WriteByte(tagBool)
		if v.Bool() {
			buf.WriteByte(1)
		} else {
			buf.WriteByte(0)
		}
		return nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		buf.WriteByte(tagInt)
		return writeInt64(buf, v.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		buf.WriteByte(tagInt)
		return writeInt64(buf, int64(v.Uint()))
	case reflect.Float32, reflect.Float64:
		buf.WriteByte(tagFloat)
		bits := make([]byte, 8)
		binary.BigEndian.PutUint64(bits, math.Float64bits(v.Float()))
		buf.Write(bits)
		return nil
	case reflect.String:
		buf.WriteByte(tagString)
		return writeBytes(buf, []byte(v.String()))
	case reflect.Slice, reflect.Array:
		if v.Type().Elem().Kind() == reflect.Uint8 {
			buf.WriteByte(tagBytes)
			b := make([]byte, v.Len())
			reflect.Copy(reflect.ValueOf(b), v)
			return writeBytes(buf, b)
		}
		buf.WriteByte(tagSlice)
		n := v.Len()
		if err := writeInt64(buf, int64(n)); err != nil {
			return err
		}
		for i := 0; i < n; i++ {
			if err := encodeValue(buf, fmt.Sprintf("%s[%d]", fieldPath, i), v.Index(i)); err != nil {
				return err
			}
		}
		return nil
	case reflect.Map:
		buf.WriteByte(tagMap)
		keys := make([]string, 0, v.Len())
		kv := make(map[string]reflect.Value, v.Len())
		iter := v.MapRange()
		for iter.Next() {
			k := fmt.Sprintf("%v", iter.Key().Interface())
			keys = append(keys, k)
			kv[k] = iter.Value()
		}
		sort.Strings(keys)
		if err := writeInt64(buf, int64(len(keys))); err != nil {
			return err
		}
		for _, k := range keys {
			if err := writeBytes(buf, []byte(k)); err != nil {
				return err
			}
			if err := encodeValue(buf, fieldPath+"."+k, kv[k]); err != nil {
				return err
			}
		}
		return nil
	case reflect.Struct:
		return encodeStruct(buf, fieldPath, v)
	case reflect.Interface:
		if v.IsNil() {
			buf.WriteByte(tagNil)
			return nil
		}
		return encodeValue(buf, fieldPath, v.Elem())
	default:
		return &EncodingError{Field: fieldPath, Err: fmt.Errorf("unsupported kind %s", v.Kind())}
	}
}

func encodeStruct(buf *bytes.Buffer, fieldPath string, v reflect.Value) error {
	t := v.Type()
	type kv struct {
		name string
		val  reflect.Value
	}
	fields := make([]kv, 0, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if sf.PkgPath != "" { // unexported
			continue
		}
		name := tagName(sf)
		if name == "-" {
			continue
		}
		fields = append(fields, kv{name: name, val: v.Field(i)})
	}
	sort.Slice(fields, func(i, j int) bool { return fields[i].name < fields[j].name })

	buf.WriteByte(tagStruct)
	if err := writeInt64(buf, int64(len(fields))); err != nil {
		return err
	}
	for _, f := range fields {
		if err := writeBytes(buf, []byte(f.name)); err != nil {
			return err
		}
		if err := encodeValue(buf, fieldPath+"."+f.name, f.val); err != nil {
			return err
		}
	}
	return nil
}

// tagName mirrors pkg/patchTools' tag-to-field lookup: prefer the `db` tag
// (how these entities map onto their relational columns), then `json`,
// then the bare Go field name, so the same logical column always produces
// the same canonical key regardless of struct field declaration order.
func tagName(sf reflect.StructField) string {
	if db := sf.Tag.Get("db"); db != "" {
		return strings.Split(db, ",")[0]
	}
	if js := sf.Tag.Get("json"); js != "" {
		name := strings.Split(js, ",")[0]
		if name != "" {
			return name
		}
	}
	return sf.Name
}

func encodeTime(buf *bytes.Buffer, t time.Time) error {
	buf.WriteByte(tagTime)
	canonical := iso8601date.Canonicalize(t).String()
	return writeBytes(buf, []byte(canonical))
}

func encodeUUID(buf *bytes.Buffer, u uuid.UUID) error {
	buf.WriteByte(tagUUID)
	b := u[:]
	buf.Write(b)
	return nil
}

func writeInt64(buf *bytes.Buffer, n int64) error {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, uint64(n))
	buf.Write(b)
	return nil
}

func writeBytes(buf *bytes.Buffer, b []byte) error {
	if err := writeInt64(buf, int64(len(b))); err != nil {
		return err
	}
	buf.Write(b)
	return nil
}
