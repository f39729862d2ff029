package importer

import (
	"fmt"
	"strings"

	"github.com/JonMunkholm/gridkit/internal/record"
	"github.com/JonMunkholm/gridkit/internal/schema"
	"github.com/goccy/go-json"
)

// checkRules runs rules against a converted value. Multi-valued kinds are
// checked element by element. On failure it returns a message fragment that
// follows the field label, e.g. "must be at least 10 characters".
func checkRules(f schema.Field, v any, rules []schema.Rule) string {
	items := []any{v}
	if list, ok := v.([]any); ok && f.Kind != schema.KindDateRange {
		items = list
	}
	for _, rule := range rules {
		for _, item := range items {
			if m, ok := rule.Check(item); !ok {
				return m
			}
		}
	}
	return ""
}

// convertKind converts a non-empty cleaned cell to the field's value kind.
// On failure it returns a message fragment such as
// `has an invalid date "2024-13-45"`.
func (p *Parser) convertKind(f schema.Field, raw string) (any, string) {
	switch f.Kind {
	case schema.KindNumber, schema.KindSlider:
		d, ok := ParseNumber(raw)
		if !ok {
			return nil, fmt.Sprintf("has an invalid number %q", raw)
		}
		return json.Number(d.String()), ""

	case schema.KindDate:
		t, ok := parseDateAt(raw, p.now())
		if !ok {
			return nil, fmt.Sprintf("has an invalid date %q (use YYYY-MM-DD)", raw)
		}
		return t.Format(ISODate), ""

	case schema.KindDateRange:
		start, end, ok := splitRange(raw)
		if !ok {
			return nil, fmt.Sprintf("has an invalid date range %q (use start ~ end)", raw)
		}
		ts, okStart := parseDateAt(start, p.now())
		te, okEnd := parseDateAt(end, p.now())
		if !okStart || !okEnd {
			return nil, fmt.Sprintf("has an invalid date range %q (use YYYY-MM-DD ~ YYYY-MM-DD)", raw)
		}
		if te.Before(ts) {
			return nil, fmt.Sprintf("has a date range that ends before it starts %q", raw)
		}
		return []any{ts.Format(ISODate), te.Format(ISODate)}, ""

	case schema.KindSwitch:
		b, ok := ParseBool(raw)
		if !ok {
			return nil, fmt.Sprintf("must be yes/no, true/false or 1/0, got %q", raw)
		}
		return b, ""

	case schema.KindSelect, schema.KindRadioGroup:
		return matchOption(f, raw)

	case schema.KindMultiSelect, schema.KindCheckboxGroup:
		parts := splitList(raw)
		values := make([]any, 0, len(parts))
		for _, part := range parts {
			v, msg := matchOption(f, part)
			if msg != "" {
				return nil, msg
			}
			values = append(values, v)
		}
		return values, ""
	}

	// text, textarea, upload, hidden
	return raw, ""
}

// matchOption resolves a cell against the field's static options by value or
// label, case-insensitively. Fields without static options accept any value.
func matchOption(f schema.Field, raw string) (any, string) {
	opts := f.StaticOptions()
	if len(opts) == 0 {
		return raw, ""
	}
	for _, o := range opts {
		if strings.EqualFold(record.String(o.Value), raw) || strings.EqualFold(o.Label, raw) {
			return o.Value, ""
		}
	}

	allowed := make([]string, 0, len(opts))
	for _, o := range opts {
		allowed = append(allowed, o.Label)
	}
	return nil, fmt.Sprintf("must be one of: %s, got %q", strings.Join(allowed, ", "), raw)
}
