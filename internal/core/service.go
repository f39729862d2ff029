package core

import (
	"context"
	"fmt"

	"github.com/JonMunkholm/gridkit/internal/compare"
	"github.com/JonMunkholm/gridkit/internal/config"
	"github.com/JonMunkholm/gridkit/internal/importer"
	"github.com/JonMunkholm/gridkit/internal/options"
	"github.com/JonMunkholm/gridkit/internal/permission"
	"github.com/JonMunkholm/gridkit/internal/projection"
	"github.com/JonMunkholm/gridkit/internal/record"
	"github.com/JonMunkholm/gridkit/internal/schema"
	"github.com/JonMunkholm/gridkit/internal/store"
)

// Service ties the registry, store, permissions and option fetcher together.
// It is safe for concurrent use.
type Service struct {
	registry   *Registry
	store      store.Store
	perms      *permission.Config
	fetcher    *options.Fetcher
	limiter    *ImportLimiter
	comparator *compare.Comparator
	parser     importer.Parser
	cfg        config.ImportConfig
}

// Deps are the collaborators of a Service. Store, Permissions and Fetcher
// may be nil: records then live in memory, every action is allowed and
// options are fetched with a default HTTP client.
type Deps struct {
	Registry    *Registry
	Store       store.Store
	Permissions *permission.Config
	Fetcher     *options.Fetcher
}

// NewService creates a Service from deps and the loaded configuration.
func NewService(deps Deps, cfg *config.Config) (*Service, error) {
	if deps.Registry == nil {
		return nil, fmt.Errorf("new service: registry is required")
	}
	if deps.Store == nil {
		deps.Store = store.NewMemory()
	}
	if deps.Fetcher == nil {
		deps.Fetcher = options.NewFetcher(nil)
	}

	return &Service{
		registry:   deps.Registry,
		store:      deps.Store,
		perms:      deps.Permissions,
		fetcher:    deps.Fetcher,
		limiter:    NewImportLimiter(cfg.Import.MaxConcurrent, cfg.Import.MaxWaitTime),
		comparator: compare.NewForLocale(cfg.Schema.Locale),
		parser:     importer.Parser{MaxFileSize: cfg.Import.MaxFileSize},
		cfg:        cfg.Import,
	}, nil
}

// EntityInfo summarizes one registered entity.
type EntityInfo struct {
	Name     string   `json:"name"`
	Fields   int      `json:"fields"`
	Required []string `json:"required"`
}

// Entities lists every registered entity, sorted by name.
func (s *Service) Entities() []EntityInfo {
	names := s.registry.Names()
	out := make([]EntityInfo, 0, len(names))
	for _, name := range names {
		sch, err := s.registry.Get(name)
		if err != nil {
			continue
		}
		info := EntityInfo{Name: name, Fields: sch.Len(), Required: []string{}}
		for _, f := range sch.Required() {
			info.Required = append(info.Required, f.Key)
		}
		out = append(out, info)
	}
	return out
}

// Schema returns the schema of entity.
func (s *Service) Schema(entity string) (*schema.Schema, error) {
	return s.registry.Get(entity)
}

// Columns projects entity's schema into table columns.
func (s *Service) Columns(entity string) ([]projection.Column, error) {
	sch, err := s.registry.Get(entity)
	if err != nil {
		return nil, err
	}
	return projection.ToColumns(sch)
}

// InputFields projects entity's schema into form inputs.
func (s *Service) InputFields(entity string) ([]projection.InputField, error) {
	sch, err := s.registry.Get(entity)
	if err != nil {
		return nil, err
	}
	return projection.ToInputFields(sch)
}

// Visibility resolves every input field of entity against the current form
// values.
func (s *Service) Visibility(entity string, values *record.Record) (map[string]projection.Visibility, error) {
	fields, err := s.InputFields(entity)
	if err != nil {
		return nil, err
	}
	return projection.ResolveAll(fields, values), nil
}

// Options loads the option lists of every choice field of entity into
// state. When changed is non-empty only the fields depending on it are
// refreshed.
func (s *Service) Options(ctx context.Context, entity, changed string, values *record.Record, state *options.State) error {
	sch, err := s.registry.Get(entity)
	if err != nil {
		return err
	}
	if changed != "" {
		return s.fetcher.Refresh(ctx, sch, changed, values, state)
	}
	return s.fetcher.LoadAll(ctx, sch, values, state)
}

// FieldOptions resolves one field's options. Remote failures yield an
// empty list.
func (s *Service) FieldOptions(ctx context.Context, entity, field string, values *record.Record) ([]schema.Option, error) {
	sch, err := s.registry.Get(entity)
	if err != nil {
		return nil, err
	}
	f, ok := sch.Field(field)
	if !ok {
		return nil, &schema.SchemaError{Key: field, Reason: "no such field"}
	}
	opts := s.fetcher.Load(ctx, f, values)
	if opts == nil {
		opts = []schema.Option{}
	}
	return opts, nil
}

// Can reports whether role may perform action on entity.
func (s *Service) Can(entity, role string, action permission.Action) bool {
	return s.perms.Can(entity, role, action)
}

// Check is Can returning permission.ErrForbidden on denial.
func (s *Service) Check(entity, role string, action permission.Action) error {
	return s.perms.Check(entity, role, action)
}

// Allowed lists the actions role holds on entity.
func (s *Service) Allowed(entity, role string) []permission.Action {
	return s.perms.Allowed(entity, role)
}

// LimiterStatus reports import slot usage.
func (s *Service) LimiterStatus() LimiterStatus {
	return s.limiter.Status()
}

// WaitForImports blocks until running imports finish or ctx ends.
func (s *Service) WaitForImports(ctx context.Context) error {
	return s.limiter.WaitForDrain(ctx)
}
