// Package match provides structural subset matching over generic value trees.
//
// A value tree is what encoding/json produces when decoding into an any:
// map[string]any, []any, string, float64, bool and nil.
package match

import (
	"reflect"
)

// Pattern is a partial value tree. A tree matches a pattern when every field
// present in the pattern is present in the tree with a recursively equal value.
// Fields the pattern does not mention are ignored.
type Pattern map[string]any

// Matches reports whether value contains the pattern.
func (p Pattern) Matches(value any) bool {
	return Subset(p, value)
}

// Subset reports whether pattern is a structural subset of value.
//
// Maps match key by key. Slices match position by position, so a pattern
// slice constrains only its own leading elements. Scalars compare by value,
// with all numeric kinds compared as float64 and named string types compared
// by their underlying string.
func Subset(pattern, value any) bool {
	switch p := pattern.(type) {
	case Pattern:
		return subsetMap(p, value)
	case map[string]any:
		return subsetMap(p, value)
	case []any:
		v, ok := value.([]any)
		if !ok || len(p) > len(v) {
			return false
		}
		for i := range p {
			if !Subset(p[i], v[i]) {
				return false
			}
		}
		return true
	default:
		ps, ok := scalar(pattern)
		if !ok {
			return false
		}
		vs, ok := scalar(value)
		if !ok {
			return false
		}
		return ps == vs
	}
}

func subsetMap(p map[string]any, value any) bool {
	var v map[string]any
	switch tv := value.(type) {
	case map[string]any:
		v = tv
	case Pattern:
		v = tv
	default:
		return false
	}
	for key, pv := range p {
		vv, ok := v[key]
		if !ok {
			return false
		}
		if !Subset(pv, vv) {
			return false
		}
	}
	return true
}

// scalar normalizes a leaf value so that equal JSON values compare equal.
func scalar(v any) (any, bool) {
	if v == nil {
		return nil, true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.String:
		return rv.String(), true
	case reflect.Bool:
		return rv.Bool(), true
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint()), true
	case reflect.Float32, reflect.Float64:
		return rv.Float(), true
	default:
		return nil, false
	}
}
