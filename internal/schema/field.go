package schema

import (
	"fmt"
	"regexp"
	"strconv"
	"unicode/utf8"

	"github.com/JonMunkholm/gridkit/internal/record"
	"github.com/goccy/go-json"
	"github.com/shopspring/decimal"
)

// Field describes one attribute: how it is titled in a table, labelled in a
// form, validated, and where its options come from.
type Field struct {
	Key           string         `yaml:"-" json:"key"`
	Title         string         `yaml:"title,omitempty" json:"title,omitempty"` // Table header
	Label         string         `yaml:"label,omitempty" json:"label,omitempty"` // Form/import label
	Kind          ValueKind      `yaml:"kind" json:"kind"`
	Sortable      bool           `yaml:"sortable,omitempty" json:"sortable,omitempty"`
	HiddenInTable bool           `yaml:"hideInTable,omitempty" json:"hideInTable,omitempty"`
	HiddenInInput bool           `yaml:"hideInForm,omitempty" json:"hideInForm,omitempty"`
	Required      bool           `yaml:"required,omitempty" json:"required,omitempty"`
	Rules         []Rule         `yaml:"rules,omitempty" json:"rules,omitempty"`
	Options       *OptionsSource `yaml:"options,omitempty" json:"options,omitempty"`
	DependsOn     *Dependency    `yaml:"dependsOn,omitempty" json:"dependsOn,omitempty"`
	Placeholder   string         `yaml:"placeholder,omitempty" json:"placeholder,omitempty"`
	Example       string         `yaml:"example,omitempty" json:"example,omitempty"` // Template example cell
}

// DisplayTitle is the table header for the field.
func (f Field) DisplayTitle() string {
	switch {
	case f.Title != "":
		return f.Title
	case f.Label != "":
		return f.Label
	}
	return f.Key
}

// InputLabel is the form and import label for the field.
func (f Field) InputLabel() string {
	switch {
	case f.Label != "":
		return f.Label
	case f.Title != "":
		return f.Title
	}
	return f.Key
}

// HiddenFromInput reports whether forms and import templates should skip the field.
func (f Field) HiddenFromInput() bool {
	return f.HiddenInInput || f.Kind == KindHidden
}

// StaticOptions returns the inline option list, if any.
func (f Field) StaticOptions() []Option {
	if f.Options == nil {
		return nil
	}
	return f.Options.Static
}

// Option is one selectable value.
type Option struct {
	Label string `yaml:"label" json:"label"`
	Value any    `yaml:"value" json:"value"`
}

// OptionsSource is either a static list or a remote descriptor.
type OptionsSource struct {
	Static []Option      `yaml:"static,omitempty" json:"static,omitempty"`
	Remote *RemoteSource `yaml:"remote,omitempty" json:"remote,omitempty"`
}

// RemoteSource describes how to fetch and map an option list over HTTP.
type RemoteSource struct {
	URL       string            `yaml:"url" json:"url"`
	Method    string            `yaml:"method,omitempty" json:"method,omitempty"`
	Headers   map[string]string `yaml:"headers,omitempty" json:"headers,omitempty"`
	Path      string            `yaml:"path,omitempty" json:"path,omitempty"` // JSONPath to the item array
	ValueKey  string            `yaml:"valueKey,omitempty" json:"valueKey,omitempty"`
	LabelKey  string            `yaml:"labelKey,omitempty" json:"labelKey,omitempty"`
	Filter    Filters           `yaml:"filter,omitempty" json:"filter,omitempty"`
	DependsOn string            `yaml:"dependsOn,omitempty" json:"dependsOn,omitempty"` // Field whose value parameterizes the URL
}

// Dependency makes a field's visibility and rules follow another field's value.
type Dependency struct {
	Key  string      `yaml:"key" json:"key"`
	When []Condition `yaml:"when" json:"when"`
}

// Condition applies when the dependency's current value equals Value.
// A nil Rules leaves the field's own rules in force; a non-nil (even empty)
// Rules replaces them.
type Condition struct {
	Value any    `yaml:"value" json:"value"`
	Show  bool   `yaml:"show" json:"show"`
	Rules []Rule `yaml:"rules" json:"rules"`
}

// RuleType identifies a validation predicate.
type RuleType string

const (
	RuleEmail     RuleType = "email"
	RulePattern   RuleType = "pattern"
	RuleMin       RuleType = "min"
	RuleMax       RuleType = "max"
	RuleMinLength RuleType = "minLength"
	RuleMaxLength RuleType = "maxLength"
)

var emailRegex = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// Rule is one validation predicate with its failure message.
type Rule struct {
	Type    RuleType `yaml:"type" json:"type"`
	Pattern string   `yaml:"pattern,omitempty" json:"pattern,omitempty"`
	Limit   *float64 `yaml:"limit,omitempty" json:"limit,omitempty"`
	Message string   `yaml:"message,omitempty" json:"message,omitempty"`
}

// validate checks the rule definition itself.
func (r Rule) validate(key string) error {
	switch r.Type {
	case RuleEmail:
		return nil
	case RulePattern:
		if r.Pattern == "" {
			return schemaErrorf(key, "pattern rule without pattern")
		}
		if _, err := regexp.Compile(r.Pattern); err != nil {
			return schemaErrorf(key, "invalid pattern %q: %v", r.Pattern, err)
		}
		return nil
	case RuleMin, RuleMax, RuleMinLength, RuleMaxLength:
		if r.Limit == nil {
			return schemaErrorf(key, "%s rule without limit", r.Type)
		}
		return nil
	}
	return schemaErrorf(key, "unknown rule type %q", r.Type)
}

// Check applies the rule to a non-empty value. It returns the failure
// message and false when the value does not satisfy the rule.
func (r Rule) Check(v any) (string, bool) {
	s := record.String(v)
	switch r.Type {
	case RuleEmail:
		if !emailRegex.MatchString(s) {
			return r.message("must be a valid email address"), false
		}
	case RulePattern:
		re, err := regexp.Compile(r.Pattern)
		if err != nil || !re.MatchString(s) {
			return r.message("has an invalid format"), false
		}
	case RuleMin, RuleMax:
		n, ok := toFloat(v)
		if !ok {
			return r.message("must be a number"), false
		}
		if r.Type == RuleMin && n < *r.Limit {
			return r.message(fmt.Sprintf("must be at least %s", formatLimit(*r.Limit))), false
		}
		if r.Type == RuleMax && n > *r.Limit {
			return r.message(fmt.Sprintf("must be at most %s", formatLimit(*r.Limit))), false
		}
	case RuleMinLength:
		if float64(utf8.RuneCountInString(s)) < *r.Limit {
			return r.message(fmt.Sprintf("must be at least %s characters", formatLimit(*r.Limit))), false
		}
	case RuleMaxLength:
		if float64(utf8.RuneCountInString(s)) > *r.Limit {
			return r.message(fmt.Sprintf("must be at most %s characters", formatLimit(*r.Limit))), false
		}
	}
	return "", true
}

func (r Rule) message(def string) string {
	if r.Message != "" {
		return r.Message
	}
	return def
}

func formatLimit(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
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
	case int32:
		return float64(n), true
	case decimal.Decimal:
		return n.InexactFloat64(), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(n, 64)
		return f, err == nil
	}
	return 0, false
}
