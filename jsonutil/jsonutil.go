// Package jsonutil converts arbitrary structured values into plain
// JSON-representable trees before encoding. Structs, typed maps and
// slices are flattened through the encoding/json view of themselves, and
// an exclusion list of keys can be applied at every nesting level.
package jsonutil

import (
	"bytes"
	"encoding/json"
	"io"
)

// Option configures Marshal and Encode.
type Option func(*config)

type config struct {
	excludeKeys []string
	indent      string
}

// WithExcludeKeys omits the named keys from objects at every nesting level.
func WithExcludeKeys(keys ...string) Option {
	return func(c *config) {
		c.excludeKeys = append(c.excludeKeys, keys...)
	}
}

// WithIndent pretty-prints output using the given indent string.
func WithIndent(indent string) Option {
	return func(c *config) {
		c.indent = indent
	}
}

// Normalize converts v into a plain JSON tree: map[string]any, []any and
// primitive values only. Keys in excludeKeys are dropped from every object
// at every depth. Values encoding/json cannot represent are replaced by
// their string form rather than failing.
func Normalize(v any, excludeKeys ...string) any {
	ex := make(map[string]struct{}, len(excludeKeys))
	for _, k := range excludeKeys {
		ex[k] = struct{}{}
	}
	return normalize(v, ex)
}

func normalize(v any, ex map[string]struct{}) any {
	switch t := v.(type) {
	case nil, bool, string, float64, int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64, float32, json.Number:
		return t
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			if _, skip := ex[k]; skip {
				continue
			}
			out[k] = normalize(val, ex)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = normalize(val, ex)
		}
		return out
	}

	// Structs, typed maps/slices, pointers: take the encoding/json view
	// of the value and normalize that.
	data, err := json.Marshal(v)
	if err != nil {
		return toString(v)
	}
	var plain any
	if err := json.Unmarshal(data, &plain); err != nil {
		return toString(v)
	}
	return normalize(plain, ex)
}

func toString(v any) string {
	if s, ok := v.(interface{ String() string }); ok {
		return s.String()
	}
	data, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(data)
}

// Marshal encodes v as JSON after normalizing it. Output is UTF-8 with
// HTML escaping disabled and no trailing newline.
func Marshal(v any, opts ...Option) ([]byte, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, v, opts...); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// Encode writes v as JSON to w after normalizing it.
func Encode(w io.Writer, v any, opts ...Option) error {
	var cfg config
	for _, opt := range opts {
		opt(&cfg)
	}

	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if cfg.indent != "" {
		enc.SetIndent("", cfg.indent)
	}
	return enc.Encode(Normalize(v, cfg.excludeKeys...))
}
