package options

import (
	"context"
	"slices"
	"sync"

	"github.com/JonMunkholm/gridkit/internal/record"
	"github.com/JonMunkholm/gridkit/internal/schema"
	"golang.org/x/sync/errgroup"
)

// State holds resolved options per field for one caller, such as one form
// session. The zero value is ready to use.
type State struct {
	mu     sync.RWMutex
	fields map[string][]schema.Option
}

// NewState returns an empty State.
func NewState() *State {
	return &State{}
}

// Set stores the options for field.
func (s *State) Set(field string, opts []schema.Option) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fields == nil {
		s.fields = make(map[string][]schema.Option)
	}
	s.fields[field] = opts
}

// Get returns the stored options for field.
func (s *State) Get(field string) ([]schema.Option, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	opts, ok := s.fields[field]
	return opts, ok
}

// Forget drops the stored options for field.
func (s *State) Forget(field string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.fields, field)
}

// Fields returns the fields with stored options, sorted.
func (s *State) Fields() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.fields))
	for k := range s.fields {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// Snapshot copies every stored option list.
func (s *State) Snapshot() map[string][]schema.Option {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string][]schema.Option, len(s.fields))
	for k, v := range s.fields {
		out[k] = slices.Clone(v)
	}
	return out
}

// LoadAll resolves every field of sch that has options and stores the
// results in state. Remote fields are fetched in parallel. It only fails
// when ctx is done.
func (f *Fetcher) LoadAll(ctx context.Context, sch *schema.Schema, values *record.Record, state *State) error {
	var fields []schema.Field
	for _, field := range sch.Fields() {
		if field.Options != nil {
			fields = append(fields, field)
		}
	}
	return f.load(ctx, fields, values, state)
}

// Refresh re-resolves the fields whose remote options depend on changed,
// after the caller updated that field's value.
func (f *Fetcher) Refresh(ctx context.Context, sch *schema.Schema, changed string, values *record.Record, state *State) error {
	var fields []schema.Field
	for _, field := range sch.Fields() {
		if field.Options != nil && field.Options.Remote != nil && field.Options.Remote.DependsOn == changed {
			fields = append(fields, field)
		}
	}
	return f.load(ctx, fields, values, state)
}

func (f *Fetcher) load(ctx context.Context, fields []schema.Field, values *record.Record, state *State) error {
	g, gctx := errgroup.WithContext(ctx)
	limit := f.Concurrency
	if limit <= 0 {
		limit = DefaultConcurrency
	}
	g.SetLimit(limit)

	for _, field := range fields {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			state.Set(field.Key, f.Load(gctx, field, values))
			return nil
		})
	}
	return g.Wait()
}
