package llm

import (
	"fmt"
	"time"
)

// Record is a structured value that knows how to flatten itself into a plain
// mapping. PlainFields implementations must only emit values the JSON-safety
// conversion accepts: primitives, time.Time, nested Records, []any, and
// map[string]any.
type Record interface {
	PlainFields() map[string]any
}

// ToJSONSafe converts v into a JSON-safe structure by exhaustive handling of
// a closed set of shapes: primitives pass through, time values render as
// ISO-8601 strings, Records flatten to mappings, sequences and mappings
// convert element-wise. Any other type is a serialization error.
//
// The conversion is idempotent: a value already JSON-safe converts to itself,
// so a datetime rendered once stays the same string on repeated passes.
func ToJSONSafe(v any) (any, error) {
	switch t := v.(type) {
	case nil:
		return nil, nil
	case bool, string, int, int32, int64, float32, float64:
		return t, nil
	case time.Time:
		return t.Format(time.RFC3339), nil
	case Record:
		return convertMap(t.PlainFields())
	case []any:
		out := make([]any, len(t))
		for i, el := range t {
			safe, err := ToJSONSafe(el)
			if err != nil {
				return nil, err
			}
			out[i] = safe
		}
		return out, nil
	case map[string]any:
		return convertMap(t)
	default:
		return nil, fmt.Errorf("value of type %T is not JSON-safe serializable", v)
	}
}

func convertMap(m map[string]any) (map[string]any, error) {
	out := make(map[string]any, len(m))
	for k, val := range m {
		safe, err := ToJSONSafe(val)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", k, err)
		}
		out[k] = safe
	}
	return out, nil
}
