// Package triplemap is the library-first API over a triple store backend and
// a registry of entity schemas. The MCP server and the CLI are thin layers on
// top of Service.
package triplemap

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/ZanzyTHEbar/triplemap-go/internal/config"
	"github.com/ZanzyTHEbar/triplemap-go/pkg/model"
)

// DefaultProject is used when a call names no project.
const DefaultProject = "default"

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger of the service and of every model it builds.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Service) { s.log = l }
}

// WithRegistry uses r instead of loading Config.SchemaFile.
func WithRegistry(r *model.Registry) Option {
	return func(s *Service) {
		if r != nil {
			s.registry.Store(r)
		}
	}
}

// Service provides entity operations without any MCP transport.
type Service struct {
	cfg      *Config
	backend  backend
	registry atomic.Pointer[model.Registry]
	log      zerolog.Logger
}

// NewService opens the backend named by cfg.URL and loads the schema
// registry.
func NewService(ctx context.Context, cfg *Config, opts ...Option) (*Service, error) {
	if cfg == nil {
		cfg = ConfigFromEnv()
	}
	s := &Service{cfg: cfg, log: zerolog.Nop()}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.With().Str("component", "service").Logger()

	if s.registry.Load() == nil {
		if cfg.SchemaFile == "" {
			return nil, errors.New("no schema: set a schema file or pass a registry")
		}
		r, err := config.Load(cfg.SchemaFile)
		if err != nil {
			return nil, err
		}
		s.registry.Store(r)
	}

	b, err := openBackend(ctx, cfg, s.log)
	if err != nil {
		return nil, err
	}
	s.backend = b
	s.log.Info().Str("backend", b.Name()).Strs("kinds", s.Kinds()).Msg("service ready")
	return s, nil
}

// Close releases the backend.
func (s *Service) Close() error { return s.backend.Close() }

// Backend names the store backend in use.
func (s *Service) Backend() string { return s.backend.Name() }

// Config returns the configuration the service was opened with.
func (s *Service) Config() Config { return *s.cfg }

// Registry returns the schema registry currently in use.
func (s *Service) Registry() *model.Registry { return s.registry.Load() }

// Reload swaps in a new registry. Calls already running keep the schema
// they started with.
func (s *Service) Reload(r *model.Registry) error {
	if r == nil {
		return errors.New("cannot reload a nil registry")
	}
	s.registry.Store(r)
	s.log.Info().Strs("kinds", r.Kinds()).Msg("schema reloaded")
	return nil
}

// Kinds lists the registered entity kinds.
func (s *Service) Kinds() []string { return s.registry.Load().Kinds() }

// Describe returns the schema of kind.
func (s *Service) Describe(kind string) (*model.Schema, error) {
	return s.registry.Load().Schema(kind)
}

// Model returns the model of kind in project.
func (s *Service) Model(project, kind string) (*model.Model, error) {
	schema, err := s.Describe(kind)
	if err != nil {
		return nil, err
	}
	store, err := s.backend.Store(projectOrDefault(project))
	if err != nil {
		return nil, err
	}
	return model.New(schema, store, model.WithLogger(s.log)), nil
}

func (s *Service) entity(project, kind, urn string) (*model.Entity, error) {
	if strings.TrimSpace(urn) == "" {
		return nil, model.ErrUrnNotSet
	}
	m, err := s.Model(project, kind)
	if err != nil {
		return nil, err
	}
	return m.Bind(urn), nil
}

// Create stores a new entity of kind and returns its urn.
func (s *Service) Create(ctx context.Context, project, kind string, values model.Values) (string, error) {
	m, err := s.Model(project, kind)
	if err != nil {
		return "", err
	}
	e, err := m.Create(ctx, values)
	if err != nil {
		return "", err
	}
	return e.URN(), nil
}

// Change writes several attributes of an existing entity at once.
func (s *Service) Change(ctx context.Context, project, kind, urn string, values model.Values) error {
	e, err := s.entity(project, kind, urn)
	if err != nil {
		return err
	}
	return e.Change(ctx, values)
}

// Add appends a value to a multi attribute.
func (s *Service) Add(ctx context.Context, project, kind, urn, attr string, value any) error {
	e, err := s.entity(project, kind, urn)
	if err != nil {
		return err
	}
	return e.Add(ctx, attr, value)
}

// Set replaces the value of a single attribute.
func (s *Service) Set(ctx context.Context, project, kind, urn, attr string, value any) error {
	e, err := s.entity(project, kind, urn)
	if err != nil {
		return err
	}
	return e.Set(ctx, attr, value)
}

// Delete removes every value of an attribute.
func (s *Service) Delete(ctx context.Context, project, kind, urn, attr string) error {
	e, err := s.entity(project, kind, urn)
	if err != nil {
		return err
	}
	return e.Delete(ctx, attr)
}

// DeleteValue removes one value of an attribute.
func (s *Service) DeleteValue(ctx context.Context, project, kind, urn, attr string, value any) error {
	e, err := s.entity(project, kind, urn)
	if err != nil {
		return err
	}
	return e.DeleteValue(ctx, attr, value)
}

// Get reads one attribute: nil when nothing is stored, the value itself when
// one is, a []any when several are. A multi attribute holding one value
// yields that value, not a slice.
func (s *Service) Get(ctx context.Context, project, kind, urn, attr string) (any, error) {
	e, err := s.entity(project, kind, urn)
	if err != nil {
		return nil, err
	}
	return e.Get(ctx, attr)
}

// All reads every stored attribute of an entity in lexical form.
func (s *Service) All(ctx context.Context, project, kind, urn string) (map[string]any, error) {
	e, err := s.entity(project, kind, urn)
	if err != nil {
		return nil, err
	}
	return e.All(ctx)
}

// Health reports whether the backend of project answers.
type Health struct {
	Backend      string
	MultiProject bool
	Kinds        []string
	Err          error
}

// Health pings the backend of project.
func (s *Service) Health(ctx context.Context, project string) Health {
	return Health{
		Backend:      s.backend.Name(),
		MultiProject: s.cfg.MultiProjectMode,
		Kinds:        s.Kinds(),
		Err:          s.backend.Ping(ctx, projectOrDefault(project)),
	}
}

func projectOrDefault(project string) string {
	if project == "" {
		return DefaultProject
	}
	return project
}

// ParseValues turns key=value assignments into typed values for kind. A key
// repeated for a multi attribute collects every value.
func (s *Service) ParseValues(kind string, pairs []string) (model.Values, error) {
	schema, err := s.Describe(kind)
	if err != nil {
		return nil, err
	}
	values := model.Values{}
	for _, pair := range pairs {
		key, text, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, fmt.Errorf("expected key=value, got %q", pair)
		}
		attr, v, err := ParseValue(schema, key, text)
		if err != nil {
			return nil, err
		}
		if attr.Cardinality != model.Multi {
			values[key] = v
			continue
		}
		prev, _ := values[key].([]any)
		values[key] = append(prev, v)
	}
	return values, nil
}

// ParseValue parses text as a value of the attribute key.
func ParseValue(schema *model.Schema, key, text string) (model.Attribute, any, error) {
	attr, err := schema.Describe(key)
	if err != nil {
		return model.Attribute{}, nil, err
	}
	v, err := attr.Type.Parse(text)
	if err != nil {
		return model.Attribute{}, nil, fmt.Errorf("%s: %w", key, err)
	}
	return attr, v, nil
}
