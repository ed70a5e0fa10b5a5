package eval

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"
)

// Host data arrives as decoded JSON or YAML: map[string]any, []any,
// string, bool, nil, and numbers. JSON decoding produces float64 while
// YAML produces int, so every numeric touchpoint normalizes through num.

// num extracts a float64 from any of the numeric types the decoders
// produce.
func num(v any) (float64, bool) {
	switch v := v.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case uint64:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	}
	return 0, false
}

// truthy implements the condition coercion: false, null, empty string,
// zero, and empty containers are false; everything else is true.
func truthy(v any) bool {
	switch v := v.(type) {
	case nil:
		return false
	case bool:
		return v
	case string:
		return v != ""
	case []any:
		return len(v) > 0
	case map[string]any:
		return len(v) > 0
	}
	if f, ok := num(v); ok {
		return f != 0
	}
	return true
}

// equal is the loose equality `==` uses: numbers compare by value across
// representations, containers compare deeply.
func equal(a, b any) bool {
	if af, ok := num(a); ok {
		bf, ok := num(b)
		return ok && af == bf
	}
	switch a := a.(type) {
	case nil:
		return b == nil
	case string:
		s, ok := b.(string)
		return ok && a == s
	case bool:
		t, ok := b.(bool)
		return ok && a == t
	}
	return reflect.DeepEqual(a, b)
}

// kindOf names a value's kind the way diagnostics and schema types do.
func kindOf(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case bool:
		return "boolean"
	case string:
		return "string"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	}
	if _, ok := num(v); ok {
		return "number"
	}
	return fmt.Sprintf("%T", v)
}

// stringify renders a value into the output text. Numbers print in their
// shortest exact form, null prints as nothing, and containers fall back
// to their JSON encoding.
func stringify(v any) string {
	switch v := v.(type) {
	case nil:
		return ""
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	}
	if f, ok := num(v); ok {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(b)
}
