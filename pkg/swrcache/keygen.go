package swrcache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"
)

// KeyFunc resolves a query key and its parameters into a cache key.
type KeyFunc func(base string, params any) string

// maxRawKeyLen bounds cache key length; longer keys are hashed.
const maxRawKeyLen = 128

// Key is the default KeyFunc. The base key is returned unchanged for
// nil params; otherwise it is suffixed with a canonical serialization
// of the parameters. Primitives serialize to their raw representation,
// composites to a deterministic structural form (map keys sorted), so
// structurally equal parameters always resolve to the same cache key.
func Key(base string, params any) string {
	if params == nil {
		return base
	}

	suffix := paramToKey(params)
	combined := base + "/" + suffix
	if len(combined) <= maxRawKeyLen {
		return combined
	}

	hash := sha256.Sum256([]byte(suffix))
	return base + "/" + hex.EncodeToString(hash[:])
}

// paramToKey serializes a single parameter value.
func paramToKey(param any) string {
	if param == nil {
		return "nil"
	}

	v := reflect.ValueOf(param)
	switch v.Kind() {
	case reflect.String:
		return v.String()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(v.Int(), 10)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return strconv.FormatUint(v.Uint(), 10)
	case reflect.Float32, reflect.Float64:
		return strconv.FormatFloat(v.Float(), 'g', -1, 64)
	case reflect.Bool:
		return strconv.FormatBool(v.Bool())
	case reflect.Ptr, reflect.Interface:
		if v.IsNil() {
			return "nil"
		}
		return paramToKey(v.Elem().Interface())
	case reflect.Slice, reflect.Array:
		return sliceToKey(v)
	case reflect.Map:
		return mapToKey(v)
	case reflect.Struct:
		return structToKey(v)
	default:
		return fmt.Sprintf("%T:%v", param, param)
	}
}

func sliceToKey(v reflect.Value) string {
	if v.Kind() == reflect.Slice && v.IsNil() {
		return "nil"
	}

	elements := make([]string, v.Len())
	for i := range elements {
		elements[i] = paramToKey(v.Index(i).Interface())
	}
	return "[" + strings.Join(elements, ",") + "]"
}

// mapToKey serializes map entries sorted by serialized key, so
// iteration order never leaks into the cache key.
func mapToKey(v reflect.Value) string {
	if v.IsNil() {
		return "nil"
	}

	pairs := make([]string, 0, v.Len())
	iter := v.MapRange()
	for iter.Next() {
		pairs = append(pairs, paramToKey(iter.Key().Interface())+"="+paramToKey(iter.Value().Interface()))
	}
	sort.Strings(pairs)
	return "{" + strings.Join(pairs, ",") + "}"
}

func structToKey(v reflect.Value) string {
	t := v.Type()
	fields := make([]string, 0, v.NumField())
	for i := 0; i < v.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}
		fields = append(fields, field.Name+":"+paramToKey(v.Field(i).Interface()))
	}
	return "{" + strings.Join(fields, ",") + "}"
}
