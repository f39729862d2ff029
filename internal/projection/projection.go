// Package projection derives table columns and input fields from one schema.
//
// Both derivations are pure and total over a valid schema: every field yields
// exactly one column and one input field, in schema order. Visibility flags are
// carried through for the consumer to honor; nothing is dropped here.
package projection

import (
	"github.com/JonMunkholm/gridkit/internal/compare"
	"github.com/JonMunkholm/gridkit/internal/record"
	"github.com/JonMunkholm/gridkit/internal/schema"
)

// SortFunc orders two records; see compare.Compare.
type SortFunc func(a, b *record.Record) int

// Column describes one table column.
type Column struct {
	Key      string           `json:"key"`
	Title    string           `json:"title"`
	Kind     schema.ValueKind `json:"kind"`
	Hidden   bool             `json:"hidden,omitempty"`
	Sortable bool             `json:"sortable,omitempty"`
	Options  []schema.Option  `json:"options,omitempty"` // Static options, for rendering labels
	Sorter   SortFunc         `json:"-"`                 // Nil unless Sortable
}

// InputField describes one form input.
type InputField struct {
	Key         string                `json:"key"`
	Label       string                `json:"label"`
	Kind        schema.ValueKind      `json:"kind"`
	Hidden      bool                  `json:"hidden,omitempty"`
	Required    bool                  `json:"required,omitempty"`
	Placeholder string                `json:"placeholder,omitempty"`
	Rules       []schema.Rule         `json:"rules,omitempty"`
	Options     *schema.OptionsSource `json:"options,omitempty"`
	DependsOn   *schema.Dependency    `json:"dependsOn,omitempty"`
}

// ToColumns projects s into table columns. It returns a *schema.SchemaError
// when the schema is invalid.
func ToColumns(s *schema.Schema) ([]Column, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}

	fields := s.Fields()
	cols := make([]Column, 0, len(fields))
	for _, f := range fields {
		col := Column{
			Key:      f.Key,
			Title:    f.DisplayTitle(),
			Kind:     f.Kind,
			Hidden:   f.HiddenInTable,
			Sortable: f.Sortable,
			Options:  f.StaticOptions(),
		}
		if f.Sortable {
			col.Sorter = sorterFor(f.Key)
		}
		cols = append(cols, col)
	}
	return cols, nil
}

func sorterFor(key string) SortFunc {
	return func(a, b *record.Record) int {
		return compare.Compare(key, a, b)
	}
}

// ToInputFields projects s into form input descriptors. Conditional
// visibility metadata is copied verbatim.
func ToInputFields(s *schema.Schema) ([]InputField, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}

	fields := s.Fields()
	out := make([]InputField, 0, len(fields))
	for _, f := range fields {
		out = append(out, InputField{
			Key:         f.Key,
			Label:       f.InputLabel(),
			Kind:        f.Kind,
			Hidden:      f.HiddenFromInput(),
			Required:    f.Required,
			Placeholder: f.Placeholder,
			Rules:       f.Rules,
			Options:     f.Options,
			DependsOn:   f.DependsOn,
		})
	}
	return out, nil
}
