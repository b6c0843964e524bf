// Package normalize flattens free-form profile fields into single-line strings
// that can be handed to an embedding model.
package normalize

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
)

// Text converts v into a whitespace-collapsed single line.
//
// Runs of newlines and any other whitespace become a single space and the
// result is trimmed. Nil, including a typed nil map, slice or pointer, yields
// an empty string. Values that are not strings are serialized first: string
// lists are joined with spaces, mappings and structs are encoded as JSON,
// everything else goes through fmt.
func Text(v any) string {
	return String(stringify(v))
}

// String collapses whitespace in s.
func String(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Join normalizes every part, drops the empty ones and joins the rest with sep.
func Join(sep string, parts ...string) string {
	kept := make([]string, 0, len(parts))
	for _, part := range parts {
		if cleaned := String(part); cleaned != "" {
			kept = append(kept, cleaned)
		}
	}
	return strings.Join(kept, sep)
}

func stringify(v any) string {
	if isNil(v) {
		return ""
	}

	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case *string:
		if val == nil {
			return ""
		}
		return *val
	case []byte:
		return string(val)
	case []string:
		return strings.Join(val, " ")
	case []any:
		parts := make([]string, 0, len(val))
		for _, item := range val {
			parts = append(parts, stringify(item))
		}
		return strings.Join(parts, " ")
	case fmt.Stringer:
		return val.String()
	case bool, int, int32, int64, uint, uint32, uint64, float32, float64, json.Number:
		return fmt.Sprint(val)
	default:
		data, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprintf("%v", val)
		}
		return string(data)
	}
}

// isNil reports whether v is nil or a typed nil pointer, map, slice or similar.
func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface, reflect.Func, reflect.Chan:
		return rv.IsNil()
	default:
		return false
	}
}
