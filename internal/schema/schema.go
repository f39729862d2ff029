// Package schema defines the declarative field configuration that every other
// part of gridkit derives from: table columns, input fields, search, sorting
// and bulk import all read the same Schema.
//
// Schemas are usually loaded from YAML, where field order in the file is the
// schema order:
//
//	name: customers
//	fields:
//	  name:
//	    title: Name
//	    kind: text
//	    required: true
//	    sortable: true
//	  email:
//	    kind: text
//	    rules:
//	      - type: email
package schema

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/goccy/go-json"
	"gopkg.in/yaml.v3"
)

// Schema is an ordered set of fields with unique keys.
type Schema struct {
	Name   string
	fields []Field
	index  map[string]int
}

// New builds a schema from fields in the given order.
// It rejects empty and duplicate keys; deeper checks happen in Validate.
func New(name string, fields ...Field) (*Schema, error) {
	s := &Schema{Name: name, index: make(map[string]int, len(fields))}
	for _, f := range fields {
		if err := s.add(f); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// MustNew is like New but panics on error. Intended for tests and static tables.
func MustNew(name string, fields ...Field) *Schema {
	s, err := New(name, fields...)
	if err != nil {
		panic(err)
	}
	return s
}

func (s *Schema) add(f Field) error {
	if strings.TrimSpace(f.Key) == "" {
		return &SchemaError{Reason: "field with empty key"}
	}
	if s.index == nil {
		s.index = make(map[string]int)
	}
	if _, exists := s.index[f.Key]; exists {
		return schemaErrorf(f.Key, "duplicate key")
	}
	s.index[f.Key] = len(s.fields)
	s.fields = append(s.fields, f)
	return nil
}

// Len returns the number of fields.
func (s *Schema) Len() int {
	return len(s.fields)
}

// Fields returns a copy of the fields in schema order.
func (s *Schema) Fields() []Field {
	out := make([]Field, len(s.fields))
	copy(out, s.fields)
	return out
}

// Keys returns field keys in schema order.
func (s *Schema) Keys() []string {
	keys := make([]string, len(s.fields))
	for i, f := range s.fields {
		keys[i] = f.Key
	}
	return keys
}

// Field returns the field for key.
func (s *Schema) Field(key string) (Field, bool) {
	i, ok := s.index[key]
	if !ok {
		return Field{}, false
	}
	return s.fields[i], true
}

// Required returns the required fields in schema order.
func (s *Schema) Required() []Field {
	var out []Field
	for _, f := range s.fields {
		if f.Required {
			out = append(out, f)
		}
	}
	return out
}

// Validate checks every field and returns the first problem found, in schema
// order, as a *SchemaError. Referenced keys (option and visibility
// dependencies) must exist in the same schema.
func (s *Schema) Validate() error {
	for _, f := range s.fields {
		if err := s.validateField(f); err != nil {
			return err
		}
	}
	return nil
}

func (s *Schema) validateField(f Field) error {
	if !f.Kind.Valid() {
		if f.Kind == "" {
			return schemaErrorf(f.Key, "missing kind")
		}
		return schemaErrorf(f.Key, "unsupported kind %q", f.Kind)
	}
	for _, r := range f.Rules {
		if err := r.validate(f.Key); err != nil {
			return err
		}
	}

	if f.Options != nil {
		if f.Options.Remote != nil {
			rs := f.Options.Remote
			if rs.URL == "" {
				return schemaErrorf(f.Key, "remote options without url")
			}
			if rs.DependsOn != "" {
				if rs.DependsOn == f.Key {
					return schemaErrorf(f.Key, "options depend on the field itself")
				}
				if _, ok := s.index[rs.DependsOn]; !ok {
					return schemaErrorf(f.Key, "options depend on unknown field %q", rs.DependsOn)
				}
			}
			for _, flt := range rs.Filter {
				if _, ok := ParseFilterOp(string(flt.Operator)); !ok {
					return schemaErrorf(f.Key, "unknown filter operator %q", flt.Operator)
				}
				if flt.Field == "" {
					return schemaErrorf(f.Key, "filter without field")
				}
			}
		}
	}

	if f.DependsOn != nil {
		dep := f.DependsOn
		if dep.Key == "" {
			return schemaErrorf(f.Key, "dependsOn without key")
		}
		if dep.Key == f.Key {
			return schemaErrorf(f.Key, "field depends on itself")
		}
		if _, ok := s.index[dep.Key]; !ok {
			return schemaErrorf(f.Key, "depends on unknown field %q", dep.Key)
		}
		for _, c := range dep.When {
			for _, r := range c.Rules {
				if err := r.validate(f.Key); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// UnmarshalYAML decodes a {name, fields} document where fields is a mapping
// from key to field definition. Mapping order becomes schema order.
func (s *Schema) UnmarshalYAML(node *yaml.Node) error {
	var doc struct {
		Name   string    `yaml:"name"`
		Fields yaml.Node `yaml:"fields"`
	}
	if err := node.Decode(&doc); err != nil {
		return err
	}
	if doc.Fields.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: fields must be a mapping of key to field", node.Line)
	}

	out := Schema{Name: doc.Name, index: make(map[string]int)}
	content := doc.Fields.Content
	for i := 0; i+1 < len(content); i += 2 {
		keyNode, valNode := content[i], content[i+1]
		var f Field
		if err := valNode.Decode(&f); err != nil {
			return fmt.Errorf("field %q: %w", keyNode.Value, err)
		}
		f.Key = keyNode.Value
		if err := out.add(f); err != nil {
			return err
		}
	}
	*s = out
	return nil
}

// MarshalJSON writes the schema with its fields as an ordered list.
func (s *Schema) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Name   string  `json:"name"`
		Fields []Field `json:"fields"`
	}{Name: s.Name, Fields: s.fields})
}

// Parse decodes a schema from YAML bytes.
func Parse(data []byte) (*Schema, error) {
	var s Schema
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse schema: %w", err)
	}
	return &s, nil
}

// Load reads one schema file. The schema name defaults to the file name
// without extension.
func Load(path string) (*Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read schema: %w", err)
	}
	s, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	if s.Name == "" {
		s.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return s, nil
}

// LoadDir reads every .yaml/.yml file in dir, sorted by file name.
func LoadDir(dir string) ([]*Schema, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read schema dir: %w", err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if ext == ".yaml" || ext == ".yml" {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	schemas := make([]*Schema, 0, len(names))
	for _, name := range names {
		s, err := Load(filepath.Join(dir, name))
		if err != nil {
			return nil, err
		}
		schemas = append(schemas, s)
	}
	return schemas, nil
}
