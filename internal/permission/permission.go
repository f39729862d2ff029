// Package permission answers "may this role do that to this resource".
//
// Configuration is a nested mapping resource -> role -> actions:
//
//	contacts:
//	  admin: [create, read, update, delete, export]
//	  editor: [c, r, u]
//	  viewer: rv          # a compact string of single-letter aliases
//	"*":
//	  auditor: [read, export]
//
// Actions come from a fixed vocabulary; single-letter aliases are
// normalized on load and unknown actions are rejected. "*" as a resource or
// role matches any, and "*" as an action grants all of them.
package permission

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

// Action is one permitted operation.
type Action string

const (
	Create  Action = "create"
	Read    Action = "read"
	Update  Action = "update"
	Delete  Action = "delete"
	View    Action = "view"
	Refresh Action = "refresh"
	Export  Action = "export"
)

// Wildcard matches any resource, role or action.
const Wildcard = "*"

// Actions lists the vocabulary in canonical order.
var Actions = []Action{Create, Read, Update, Delete, View, Refresh, Export}

var aliases = map[string]Action{
	"c": Create, "r": Read, "u": Update, "d": Delete,
	"v": View, "f": Refresh, "e": Export,
}

// ErrForbidden is returned by Check when an action is not permitted.
var ErrForbidden = errors.New("forbidden")

// ParseAction resolves an action name or single-letter alias.
func ParseAction(s string) (Action, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	if a, ok := aliases[s]; ok {
		return a, true
	}
	for _, a := range Actions {
		if string(a) == s {
			return a, true
		}
	}
	return "", false
}

type actionSet map[Action]bool

// Config is a normalized permission table. A nil *Config permits everything.
type Config struct {
	rules map[string]map[string]actionSet
}

// New builds a Config from raw action names, normalizing aliases.
func New(raw map[string]map[string][]string) (*Config, error) {
	c := &Config{rules: make(map[string]map[string]actionSet, len(raw))}
	var errs []error

	for resource, roles := range raw {
		resource = strings.TrimSpace(resource)
		byRole := make(map[string]actionSet, len(roles))
		for role, names := range roles {
			role = strings.TrimSpace(role)
			set := make(actionSet, len(names))
			for _, name := range names {
				if strings.TrimSpace(name) == Wildcard {
					for _, a := range Actions {
						set[a] = true
					}
					continue
				}
				a, ok := ParseAction(name)
				if !ok {
					errs = append(errs, fmt.Errorf("%s/%s: unknown action %q", resource, role, name))
					continue
				}
				set[a] = true
			}
			byRole[role] = set
		}
		c.rules[resource] = byRole
	}

	if len(errs) > 0 {
		return nil, fmt.Errorf("permission config: %w", errors.Join(errs...))
	}
	return c, nil
}

// Parse reads a YAML permission document.
func Parse(data []byte) (*Config, error) {
	var raw map[string]map[string]actionList
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("permission config: %w", err)
	}

	flat := make(map[string]map[string][]string, len(raw))
	for resource, roles := range raw {
		flat[resource] = make(map[string][]string, len(roles))
		for role, list := range roles {
			flat[resource][role] = list
		}
	}
	return New(flat)
}

// Load reads a YAML permission file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read permissions: %w", err)
	}
	return Parse(data)
}

// Can reports whether role may perform action on resource. Exact resource
// and role entries are consulted before wildcard ones; the first entry found
// decides.
func (c *Config) Can(resource, role string, action Action) bool {
	if c == nil {
		return true
	}
	set, ok := c.lookup(resource, role)
	return ok && set[action]
}

// Check is Can returning ErrForbidden.
func (c *Config) Check(resource, role string, action Action) error {
	if c.Can(resource, role, action) {
		return nil
	}
	return fmt.Errorf("%w: role %q may not %s %s", ErrForbidden, role, action, resource)
}

// Allowed lists the actions role has on resource, in canonical order.
func (c *Config) Allowed(resource, role string) []Action {
	if c == nil {
		return slices.Clone(Actions)
	}
	set, _ := c.lookup(resource, role)
	var out []Action
	for _, a := range Actions {
		if set[a] {
			out = append(out, a)
		}
	}
	return out
}

// Resources lists configured resource names, sorted.
func (c *Config) Resources() []string {
	if c == nil {
		return nil
	}
	out := make([]string, 0, len(c.rules))
	for r := range c.rules {
		out = append(out, r)
	}
	slices.Sort(out)
	return out
}

func (c *Config) lookup(resource, role string) (actionSet, bool) {
	for _, res := range []string{resource, Wildcard} {
		roles, ok := c.rules[res]
		if !ok {
			continue
		}
		for _, r := range []string{role, Wildcard} {
			if set, ok := roles[r]; ok {
				return set, true
			}
		}
	}
	return nil, false
}

// compactOrder is the alias order a compact action string must follow.
const compactOrder = "crudvfe"

// isCompact reports whether s is a run of distinct aliases in compactOrder
// order, such as "rv" or "crud".
func isCompact(s string) bool {
	s = strings.ToLower(s)
	i := 0
	for _, r := range s {
		j := strings.IndexRune(compactOrder[i:], r)
		if j < 0 {
			return false
		}
		i += j + 1
	}
	return true
}

// actionList accepts a YAML sequence of names, or a scalar that is either a
// comma-separated list or a compact run of single-letter aliases ("crud").
// Any other scalar is kept whole so validation rejects it.
type actionList []string

func (l *actionList) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.SequenceNode:
		var names []string
		if err := node.Decode(&names); err != nil {
			return err
		}
		*l = names
		return nil
	case yaml.ScalarNode:
		s := strings.TrimSpace(node.Value)
		if strings.Contains(s, ",") {
			for _, part := range strings.Split(s, ",") {
				*l = append(*l, strings.TrimSpace(part))
			}
			return nil
		}
		if s == "" {
			return nil
		}
		if _, ok := ParseAction(s); ok || s == Wildcard || !isCompact(s) {
			*l = actionList{s}
			return nil
		}
		for _, r := range s {
			*l = append(*l, string(r))
		}
		return nil
	}
	return fmt.Errorf("line %d: actions must be a list or a string", node.Line)
}
