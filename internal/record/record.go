// Package record defines the loosely-shaped data records exchanged between
// pipeline stages, plus the canonical JSON serialization used for golden
// traces and the JSON-schema validation applied at stage boundaries.
package record

import "sort"

// Record is one stage's structured payload: the value written into a
// SharedContext namespace and the shape exchanged with external providers.
//
// Values are restricted to JSON-representable types: string, bool, float64,
// int, int64, []any, map[string]any, and nil. Stage adapters build records
// from typed structs via ToRecord and read them back with the typed getters.
type Record map[string]any

// Clone returns a deep copy of the record.
// Namespaces in SharedContext are write-once; cloning at the boundary keeps
// a caller's later mutations from leaking into the stored value.
func (r Record) Clone() Record {
	if r == nil {
		return nil
	}
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, elem := range val {
			out[k] = cloneValue(elem)
		}
		return out
	case Record:
		return map[string]any(val.Clone())
	case []any:
		out := make([]any, len(val))
		for i, elem := range val {
			out[i] = cloneValue(elem)
		}
		return out
	case []string:
		out := make([]any, len(val))
		for i, elem := range val {
			out[i] = elem
		}
		return out
	default:
		return val
	}
}

// Keys returns the record's keys in sorted order.
func (r Record) Keys() []string {
	keys := make([]string, 0, len(r))
	for k := range r {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// String returns the string value at key, or "" if absent or mistyped.
func (r Record) String(key string) string {
	if v, ok := r[key].(string); ok {
		return v
	}
	return ""
}

// Bool returns the bool value at key, or false if absent or mistyped.
func (r Record) Bool(key string) bool {
	if v, ok := r[key].(bool); ok {
		return v
	}
	return false
}

// Float returns the numeric value at key as a float64.
// JSON decoding yields float64 for all numbers; int and int64 values written
// directly by Go code are widened here so callers see one numeric type.
func (r Record) Float(key string) float64 {
	switch v := r[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case int64:
		return float64(v)
	}
	return 0
}

// Int returns the numeric value at key truncated to int.
func (r Record) Int(key string) int {
	return int(r.Float(key))
}

// Strings returns the value at key as a []string, tolerating both []string
// and the []any produced by JSON decoding. Non-string elements are skipped.
func (r Record) Strings(key string) []string {
	switch v := r[key].(type) {
	case []string:
		out := make([]string, len(v))
		copy(out, v)
		return out
	case []any:
		out := make([]string, 0, len(v))
		for _, elem := range v {
			if s, ok := elem.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

// Map returns the nested record at key, or nil if absent or mistyped.
func (r Record) Map(key string) Record {
	switch v := r[key].(type) {
	case map[string]any:
		return Record(v)
	case Record:
		return v
	}
	return nil
}
