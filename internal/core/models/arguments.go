package models

import (
	"encoding/json"
	"fmt"
	"reflect"
)

// Arguments holds the optional x-arguments of exchanges, queues and bindings.
type Arguments map[string]any

// Equal compares two argument maps by content. Both sides are brought to the
// shape the management API decodes into, with every number a float64, so an
// int from YAML or TOML equals the float64 returned for the same number even
// past 2^53. A nil map equals an empty one.
func (a Arguments) Equal(b Arguments) bool {
	if len(a) == 0 && len(b) == 0 {
		return true
	}
	if len(a) != len(b) {
		return false
	}
	ca, err1 := a.canonical()
	cb, err2 := b.canonical()
	if err1 != nil || err2 != nil {
		return reflect.DeepEqual(map[string]any(a), map[string]any(b))
	}
	return reflect.DeepEqual(ca, cb)
}

func (a Arguments) canonical() (map[string]any, error) {
	raw, err := json.Marshal(a)
	if err != nil {
		return nil, err
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Clone returns a shallow copy, never nil.
func (a Arguments) Clone() Arguments {
	out := make(Arguments, len(a))
	for k, v := range a {
		out[k] = v
	}
	return out
}

// String renders the arguments with sorted keys.
func (a Arguments) String() string {
	if len(a) == 0 {
		return "{}"
	}
	b, err := json.Marshal(a)
	if err != nil {
		return fmt.Sprintf("%v", map[string]any(a))
	}
	return string(b)
}

// NormalizeArguments converts YAML-decoded nested maps (map[string]interface{}
// keyed by any) into JSON-encodable values.
func NormalizeArguments(in map[string]any) Arguments {
	out := make(Arguments, len(in))
	for k, v := range in {
		out[k] = normalizeValue(v)
	}
	return out
}

func normalizeValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		return map[string]any(NormalizeArguments(val))
	case map[any]any:
		m := make(map[string]any, len(val))
		for k, inner := range val {
			m[fmt.Sprint(k)] = normalizeValue(inner)
		}
		return m
	case []any:
		out := make([]any, len(val))
		for i, inner := range val {
			out[i] = normalizeValue(inner)
		}
		return out
	default:
		return v
	}
}
