// Package fieldpath reads and writes dotted paths ("a.b.c") over decoded
// JSON documents (nested map[string]any). Input is assumed tree shaped.
package fieldpath

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrNotMap is returned by Set when an intermediate value is not a map.
var ErrNotMap = errors.New("intermediate value is not a map")

// Split breaks a dotted path into segments. Empty segments are dropped.
func Split(path string) []string {
	parts := strings.Split(path, ".")
	out := parts[:0]
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Get returns the value at path and true, or nil and false when any
// segment is missing or an intermediate is not a map.
func Get(root map[string]any, path string) (any, bool) {
	segments := Split(path)
	if root == nil || len(segments) == 0 {
		return nil, false
	}

	var current any = root
	for _, seg := range segments {
		m, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		current, ok = m[seg]
		if !ok {
			return nil, false
		}
	}
	return current, true
}

// Has reports whether path resolves to a non-nil value.
func Has(root map[string]any, path string) bool {
	v, ok := Get(root, path)
	return ok && v != nil
}

// GetString returns the value at path when it is a string.
func GetString(root map[string]any, path string) (string, bool) {
	v, ok := Get(root, path)
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// GetNumber returns the value at path as float64. Numeric strings are
// accepted.
func GetNumber(root map[string]any, path string) (float64, bool) {
	v, ok := Get(root, path)
	if !ok {
		return 0, false
	}
	return ToNumber(v)
}

// ToNumber converts decoded JSON scalars to float64.
func ToNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
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

// Set writes value at path, creating intermediate maps as needed.
func Set(root map[string]any, path string, value any) error {
	segments := Split(path)
	if root == nil {
		return fmt.Errorf("set %q: nil root", path)
	}
	if len(segments) == 0 {
		return fmt.Errorf("set %q: empty path", path)
	}

	current := root
	for i, seg := range segments[:len(segments)-1] {
		next, ok := current[seg]
		if !ok || next == nil {
			child := map[string]any{}
			current[seg] = child
			current = child
			continue
		}
		child, ok := next.(map[string]any)
		if !ok {
			return fmt.Errorf("set %q at %q: %w", path, strings.Join(segments[:i+1], "."), ErrNotMap)
		}
		current = child
	}
	current[segments[len(segments)-1]] = value
	return nil
}
