// Package persist provides the opaque key/value record entities save into,
// its binary encoding, and the stores that hold encoded records.
package persist

import "math"

// Compound is a string-keyed record. Values are scalars, strings, nested
// Compounds or lists of them. Getters tolerate every numeric encoding the
// codec can produce.
type Compound map[string]any

// Has reports whether key is present.
func (c Compound) Has(key string) bool {
	if c == nil {
		return false
	}
	_, ok := c[key]
	return ok
}

// Int returns the integer stored under key. Floats are truncated.
func (c Compound) Int(key string) (int64, bool) {
	if c == nil {
		return 0, false
	}
	return asInt(c[key])
}

// Float returns the number stored under key as float64.
func (c Compound) Float(key string) (float64, bool) {
	if c == nil {
		return 0, false
	}
	return asFloat(c[key])
}

// String returns the string stored under key.
func (c Compound) String(key string) (string, bool) {
	if c == nil {
		return "", false
	}
	value, ok := c[key].(string)
	return value, ok
}

// Bool returns the boolean stored under key. Integers are accepted as flags.
func (c Compound) Bool(key string) (bool, bool) {
	if c == nil {
		return false, false
	}
	switch value := c[key].(type) {
	case bool:
		return value, true
	default:
		if n, ok := asInt(value); ok {
			return n != 0, true
		}
	}
	return false, false
}

// Floats returns the numeric list stored under key.
func (c Compound) Floats(key string) ([]float64, bool) {
	if c == nil {
		return nil, false
	}
	switch value := c[key].(type) {
	case []float64:
		return append([]float64(nil), value...), true
	case []any:
		out := make([]float64, 0, len(value))
		for _, item := range value {
			n, ok := asFloat(item)
			if !ok {
				return nil, false
			}
			out = append(out, n)
		}
		return out, true
	default:
		return nil, false
	}
}

// Strings returns the string list stored under key.
func (c Compound) Strings(key string) ([]string, bool) {
	if c == nil {
		return nil, false
	}
	switch value := c[key].(type) {
	case []string:
		return append([]string(nil), value...), true
	case []any:
		out := make([]string, 0, len(value))
		for _, item := range value {
			s, ok := item.(string)
			if !ok {
				return nil, false
			}
			out = append(out, s)
		}
		return out, true
	default:
		return nil, false
	}
}

// Compound returns the nested record stored under key.
func (c Compound) Compound(key string) (Compound, bool) {
	if c == nil {
		return nil, false
	}
	return asCompound(c[key])
}

// List returns the nested records stored under key. A list containing a
// value that is not a record is reported as absent.
func (c Compound) List(key string) ([]Compound, bool) {
	if c == nil {
		return nil, false
	}
	var items []any
	switch value := c[key].(type) {
	case []any:
		items = value
	case []Compound:
		return value, true
	case []map[string]any:
		out := make([]Compound, 0, len(value))
		for _, item := range value {
			out = append(out, Compound(item))
		}
		return out, true
	default:
		return nil, false
	}
	out := make([]Compound, 0, len(items))
	for _, item := range items {
		nested, ok := asCompound(item)
		if !ok {
			return nil, false
		}
		out = append(out, nested)
	}
	return out, true
}

func asCompound(value any) (Compound, bool) {
	switch v := value.(type) {
	case Compound:
		return v, true
	case map[string]any:
		return Compound(v), true
	case map[any]any:
		out := make(Compound, len(v))
		for key, item := range v {
			name, ok := key.(string)
			if !ok {
				return nil, false
			}
			out[name] = item
		}
		return out, true
	default:
		return nil, false
	}
}

func asInt(value any) (int64, bool) {
	switch v := value.(type) {
	case int:
		return int64(v), true
	case int8:
		return int64(v), true
	case int16:
		return int64(v), true
	case int32:
		return int64(v), true
	case int64:
		return v, true
	case uint:
		return int64(v), true
	case uint8:
		return int64(v), true
	case uint16:
		return int64(v), true
	case uint32:
		return int64(v), true
	case uint64:
		if v > math.MaxInt64 {
			return 0, false
		}
		return int64(v), true
	case float32:
		return int64(v), true
	case float64:
		return int64(v), true
	default:
		return 0, false
	}
}

func asFloat(value any) (float64, bool) {
	switch v := value.(type) {
	case float32:
		return float64(v), true
	case float64:
		return v, true
	default:
		n, ok := asInt(value)
		return float64(n), ok
	}
}
