package core

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/JonMunkholm/gridkit/internal/schema"
)

// ErrUnknownEntity is returned for an entity name with no registered schema.
var ErrUnknownEntity = errors.New("unknown entity")

// Registry holds the schema of every entity, keyed by schema name.
type Registry struct {
	mu      sync.RWMutex
	schemas map[string]*schema.Schema
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{schemas: make(map[string]*schema.Schema)}
}

// LoadRegistry builds a registry from every schema file in dir.
func LoadRegistry(dir string) (*Registry, error) {
	schemas, err := schema.LoadDir(dir)
	if err != nil {
		return nil, err
	}
	r := NewRegistry()
	for _, s := range schemas {
		if err := r.Register(s); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register validates s and adds it under s.Name.
func (r *Registry) Register(s *schema.Schema) error {
	if s.Name == "" {
		return fmt.Errorf("register schema: missing name")
	}
	if err := s.Validate(); err != nil {
		return fmt.Errorf("register %s: %w", s.Name, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.schemas[s.Name]; exists {
		return fmt.Errorf("register %s: entity already registered", s.Name)
	}
	r.schemas[s.Name] = s
	return nil
}

// Get returns the schema for entity.
func (r *Registry) Get(entity string) (*schema.Schema, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.schemas[entity]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownEntity, entity)
	}
	return s, nil
}

// Names returns every entity name, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.schemas))
	for name := range r.schemas {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of registered entities.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.schemas)
}
