package schema

import (
	"fmt"
	"strings"

	"github.com/goccy/go-json"
	"gopkg.in/yaml.v3"
)

// FilterOp is a comparison used to narrow a remote option list.
type FilterOp string

const (
	OpEquals      FilterOp = "equals"
	OpNotEquals   FilterOp = "notEquals"
	OpContains    FilterOp = "contains"
	OpNotContains FilterOp = "notContains"
	OpGreater     FilterOp = "gt"
	OpLess        FilterOp = "lt"
	OpIn          FilterOp = "in"
	OpNotIn       FilterOp = "notIn"
)

var filterOpAliases = map[string]FilterOp{
	"equals": OpEquals, "eq": OpEquals, "=": OpEquals, "==": OpEquals,
	"notequals": OpNotEquals, "ne": OpNotEquals, "neq": OpNotEquals, "!=": OpNotEquals,
	"contains": OpContains, "like": OpContains,
	"notcontains": OpNotContains, "notlike": OpNotContains,
	"gt": OpGreater, "greaterthan": OpGreater, ">": OpGreater,
	"lt": OpLess, "lessthan": OpLess, "<": OpLess,
	"in": OpIn,
	"notin": OpNotIn, "nin": OpNotIn, "not_in": OpNotIn,
}

// ParseFilterOp resolves an operator name or alias, case-insensitively.
func ParseFilterOp(s string) (FilterOp, bool) {
	op, ok := filterOpAliases[strings.ToLower(strings.TrimSpace(s))]
	return op, ok
}

// Filter keeps items whose Field compares to Value under Operator.
type Filter struct {
	Field    string   `yaml:"field" json:"field"`
	Operator FilterOp `yaml:"operator" json:"operator"`
	Value    any      `yaml:"value" json:"value"`
}

// Filters are AND-combined. Configuration may give a single filter or a list.
type Filters []Filter

// UnmarshalYAML accepts either one filter mapping or a sequence of them.
func (f *Filters) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.MappingNode:
		var one Filter
		if err := node.Decode(&one); err != nil {
			return err
		}
		*f = Filters{one}
		return nil
	case yaml.SequenceNode:
		var many []Filter
		if err := node.Decode(&many); err != nil {
			return err
		}
		*f = many
		return nil
	}
	return fmt.Errorf("line %d: filter must be a mapping or a list", node.Line)
}

// UnmarshalJSON accepts either one filter object or an array of them.
func (f *Filters) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if strings.HasPrefix(trimmed, "{") {
		var one Filter
		if err := json.Unmarshal(data, &one); err != nil {
			return err
		}
		*f = Filters{one}
		return nil
	}
	var many []Filter
	if err := json.Unmarshal(data, &many); err != nil {
		return err
	}
	*f = many
	return nil
}

// UnmarshalYAML accepts either a bare option list or a {static, remote} mapping.
func (o *OptionsSource) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.SequenceNode {
		var static []Option
		if err := node.Decode(&static); err != nil {
			return err
		}
		o.Static = static
		return nil
	}
	type plain OptionsSource
	var p plain
	if err := node.Decode(&p); err != nil {
		return err
	}
	*o = OptionsSource(p)
	return nil
}
