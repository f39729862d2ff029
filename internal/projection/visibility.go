package projection

import (
	"github.com/JonMunkholm/gridkit/internal/record"
	"github.com/JonMunkholm/gridkit/internal/schema"
)

// Visibility is the resolved state of a dependent field for one value of the
// field it depends on.
type Visibility struct {
	Visible    bool          `json:"visible"`
	Rules      []schema.Rule `json:"rules,omitempty"`
	Overridden bool          `json:"overridden,omitempty"` // Rules come from the matched condition
}

// Resolve evaluates dep against the dependency's current value. base is the
// field's own rule set, used when no matching condition overrides it.
//
// The first condition whose value matches wins. When none matches, the field
// is visible only if no condition ever shows it, so show-conditions act as
// opt-in gates and hide-conditions act as opt-out gates.
func Resolve(dep *schema.Dependency, current any, base []schema.Rule) Visibility {
	if dep == nil {
		return Visibility{Visible: true, Rules: base}
	}

	gated := false
	for _, c := range dep.When {
		if c.Show {
			gated = true
		}
		if !matchesValue(current, c.Value) {
			continue
		}
		v := Visibility{Visible: c.Show, Rules: base}
		if c.Rules != nil {
			v.Rules = c.Rules
			v.Overridden = true
		}
		return v
	}
	return Visibility{Visible: !gated, Rules: base}
}

// ResolveAll resolves every input field against the current form values.
// Fields hidden from input stay hidden regardless of their dependency.
func ResolveAll(fields []InputField, values *record.Record) map[string]Visibility {
	out := make(map[string]Visibility, len(fields))
	for _, f := range fields {
		var current any
		if f.DependsOn != nil {
			current = values.Value(f.DependsOn.Key)
		}
		v := Resolve(f.DependsOn, current, f.Rules)
		if f.Hidden {
			v.Visible = false
		}
		out[f.Key] = v
	}
	return out
}

// matchesValue compares the live value with a condition value by string
// form. A multi-valued current value matches when any element does.
func matchesValue(current, want any) bool {
	if list, ok := current.([]any); ok {
		for _, item := range list {
			if matchesValue(item, want) {
				return true
			}
		}
		return false
	}
	if list, ok := current.([]string); ok {
		for _, item := range list {
			if item == record.String(want) {
				return true
			}
		}
		return false
	}
	if current == nil {
		return want == nil
	}
	return record.String(current) == record.String(want)
}
