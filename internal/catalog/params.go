package catalog

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Params is the immutable batch configuration shared by every transformation
// invocation. Values are deep-copied on construction and never mutated after.
type Params struct {
	values    map[string]any
	materials map[string]string
}

// NewParams builds a Params value from raw settings and material file paths.
func NewParams(values map[string]any, materials map[string]string) Params {
	p := Params{
		values:    make(map[string]any, len(values)),
		materials: make(map[string]string, len(materials)),
	}
	for k, v := range values {
		p.values[k] = deepCopy(v)
	}
	for name, path := range materials {
		if path = strings.TrimSpace(path); path != "" {
			p.materials[name] = path
		}
	}
	return p
}

// Lookup resolves a dotted key path such as "watermark.opacity".
func (p Params) Lookup(path string) (any, bool) {
	var cur any = p.values
	for _, part := range strings.Split(path, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = m[part]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

// Float returns a numeric value or def when missing or not numeric.
func (p Params) Float(key string, def float64) float64 {
	v, ok := p.Lookup(key)
	if !ok {
		return def
	}
	if f, ok := toFloat(v); ok {
		return f
	}
	return def
}

// Int returns an integer value or def when missing or not numeric.
func (p Params) Int(key string, def int) int {
	v, ok := p.Lookup(key)
	if !ok {
		return def
	}
	if f, ok := toFloat(v); ok {
		return int(f)
	}
	return def
}

// String returns a string value or def.
func (p Params) String(key, def string) string {
	v, ok := p.Lookup(key)
	if !ok {
		return def
	}
	switch s := v.(type) {
	case string:
		if strings.TrimSpace(s) == "" {
			return def
		}
		return s
	case json.Number:
		return s.String()
	}
	return def
}

// Bool returns a boolean value or def.
func (p Params) Bool(key string, def bool) bool {
	v, ok := p.Lookup(key)
	if !ok {
		return def
	}
	switch b := v.(type) {
	case bool:
		return b
	case string:
		if parsed, err := strconv.ParseBool(strings.TrimSpace(b)); err == nil {
			return parsed
		}
	}
	return def
}

// Material returns the configured path for a named material slot.
func (p Params) Material(name string) (string, bool) {
	path, ok := p.materials[name]
	return path, ok
}

// Map returns a deep copy of the raw values.
func (p Params) Map() map[string]any {
	out, _ := deepCopy(p.values).(map[string]any)
	if out == nil {
		out = map[string]any{}
	}
	return out
}

// Materials returns a copy of the material slots.
func (p Params) Materials() map[string]string {
	out := make(map[string]string, len(p.materials))
	for k, v := range p.materials {
		out[k] = v
	}
	return out
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	}
	return 0, false
}

func deepCopy(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = deepCopy(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = deepCopy(val)
		}
		return out
	case []string:
		return append([]string(nil), t...)
	default:
		return v
	}
}
