// Package search decides whether a record matches a free-text term.
package search

import (
	"reflect"
	"strings"

	"github.com/JonMunkholm/gridkit/internal/record"
)

// Predicate is a caller-supplied matcher that fully replaces the default rules.
type Predicate func(r *record.Record, term string) bool

// Config selects how a term is matched.
type Config struct {
	// Predicate, when set, decides alone.
	Predicate Predicate
	// Fields restricts matching to these keys. Empty means a deep scan of
	// every value in the record.
	Fields []string
}

// Matches reports whether r matches term under cfg. Matching is a
// case-insensitive substring test. An empty term matches every record.
func Matches(r *record.Record, term string, cfg Config) bool {
	if term == "" {
		return true
	}
	if cfg.Predicate != nil {
		return cfg.Predicate(r, term)
	}

	needle := strings.ToLower(term)
	if len(cfg.Fields) > 0 {
		for _, key := range cfg.Fields {
			v, ok := r.Get(key)
			if !ok || v == nil {
				continue
			}
			if strings.Contains(strings.ToLower(record.String(v)), needle) {
				return true
			}
		}
		return false
	}
	return deepContains(r, needle)
}

// Filter returns the records matching term, preserving order.
func Filter(records []*record.Record, term string, cfg Config) []*record.Record {
	if term == "" {
		return records
	}
	out := make([]*record.Record, 0, len(records))
	for _, r := range records {
		if Matches(r, term, cfg) {
			out = append(out, r)
		}
	}
	return out
}

// deepContains walks nested records, maps and slices and tests each leaf.
func deepContains(v any, needle string) bool {
	switch x := v.(type) {
	case nil:
		return false
	case *record.Record:
		if x == nil {
			return false
		}
		found := false
		x.Range(func(_ string, val any) bool {
			found = deepContains(val, needle)
			return !found
		})
		return found
	case map[string]any:
		for _, val := range x {
			if deepContains(val, needle) {
				return true
			}
		}
		return false
	case []any:
		for _, val := range x {
			if deepContains(val, needle) {
				return true
			}
		}
		return false
	case string:
		return strings.Contains(strings.ToLower(x), needle)
	case []byte:
		return strings.Contains(strings.ToLower(string(x)), needle)
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return false
		}
		return deepContains(rv.Elem().Interface(), needle)
	case reflect.Slice, reflect.Array:
		for i := 0; i < rv.Len(); i++ {
			if deepContains(rv.Index(i).Interface(), needle) {
				return true
			}
		}
		return false
	case reflect.Map:
		iter := rv.MapRange()
		for iter.Next() {
			if deepContains(iter.Value().Interface(), needle) {
				return true
			}
		}
		return false
	}
	return strings.Contains(strings.ToLower(record.String(v)), needle)
}
