package options

import (
	"strings"

	"github.com/JonMunkholm/gridkit/internal/compare"
	"github.com/JonMunkholm/gridkit/internal/record"
	"github.com/JonMunkholm/gridkit/internal/schema"
	"github.com/ohler55/ojg/jp"
	"github.com/shopspring/decimal"
)

// ApplyFilters keeps the items that satisfy every filter. Items are decoded
// JSON values; a filter's Field is a key of an object item, or a JSONPath
// (e.g. "owner.status" or "$.tags[0]") for nested values.
func ApplyFilters(items []any, filters schema.Filters) []any {
	if len(filters) == 0 {
		return items
	}
	out := make([]any, 0, len(items))
	for _, item := range items {
		if matchesAll(item, filters) {
			out = append(out, item)
		}
	}
	return out
}

func matchesAll(item any, filters schema.Filters) bool {
	for _, f := range filters {
		if !Match(lookup(item, f.Field), f) {
			return false
		}
	}
	return true
}

// Match reports whether v satisfies one filter.
func Match(v any, f schema.Filter) bool {
	op, ok := schema.ParseFilterOp(string(f.Operator))
	if !ok {
		return false
	}

	switch op {
	case schema.OpEquals:
		return v != nil && equal(v, f.Value)
	case schema.OpNotEquals:
		return v == nil || !equal(v, f.Value)
	case schema.OpContains:
		return v != nil && containsFold(v, f.Value)
	case schema.OpNotContains:
		return v == nil || !containsFold(v, f.Value)
	case schema.OpGreater:
		return v != nil && order(v, f.Value) > 0
	case schema.OpLess:
		return v != nil && order(v, f.Value) < 0
	case schema.OpIn:
		return v != nil && inList(v, f.Value)
	case schema.OpNotIn:
		return v == nil || !inList(v, f.Value)
	}
	return false
}

// order compares v to a filter operand, reading numeric strings as numbers so
// that a JSON number compares correctly against a configured "10".
func order(v, operand any) int {
	return compare.Values(numeric(v), numeric(operand))
}

func numeric(v any) any {
	if s, ok := v.(string); ok {
		if d, err := decimal.NewFromString(strings.TrimSpace(s)); err == nil {
			return d
		}
	}
	return v
}

func equal(v, want any) bool {
	return record.String(v) == record.String(want)
}

func containsFold(v, sub any) bool {
	return strings.Contains(strings.ToLower(record.String(v)), strings.ToLower(record.String(sub)))
}

// inList reports whether v (or, for a list value, any of its elements) is a
// member of list. The operand may be a comma-separated string; v never is
// split.
func inList(v, list any) bool {
	members := listValues(list)
	candidates := []any{v}
	switch v.(type) {
	case []any, []string:
		candidates = listValues(v)
	}
	for _, candidate := range candidates {
		for _, m := range members {
			if equal(candidate, m) {
				return true
			}
		}
	}
	return false
}

func listValues(v any) []any {
	switch l := v.(type) {
	case []any:
		return l
	case []string:
		out := make([]any, len(l))
		for i, s := range l {
			out[i] = s
		}
		return out
	case string:
		parts := strings.Split(l, ",")
		out := make([]any, len(parts))
		for i, p := range parts {
			out[i] = strings.TrimSpace(p)
		}
		return out
	}
	return []any{v}
}

// lookup reads a field from a decoded item.
func lookup(item any, field string) any {
	if field == "" {
		return item
	}
	if m, ok := item.(map[string]any); ok {
		if v, found := m[field]; found {
			return v
		}
	}
	if !strings.ContainsAny(field, ".[$") {
		return nil
	}

	expr := field
	if !strings.HasPrefix(expr, "$") {
		expr = "$." + expr
	}
	path, err := jp.ParseString(expr)
	if err != nil {
		return nil
	}
	if results := path.Get(item); len(results) > 0 {
		return results[0]
	}
	return nil
}
