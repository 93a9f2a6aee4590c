// Package model maps schema-described entities onto RDF triples.
//
// A Schema declares the attributes of one entity kind and the predicate that
// backs each of them. A Model pairs a schema with a triple.Store and hands out
// Entity handles whose operations translate into store calls.
package model

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/ZanzyTHEbar/triplemap-go/pkg/triple"
)

// Values maps attribute names to values. A Multi attribute accepts a single
// value or a slice of values.
type Values map[string]any

// Option configures a Model.
type Option func(*Model)

// WithLogger sets the logger used for debug events.
func WithLogger(l zerolog.Logger) Option {
	return func(m *Model) { m.log = l }
}

// Model binds one schema to a store.
type Model struct {
	schema *Schema
	store  triple.Store
	log    zerolog.Logger
}

// New returns a Model for schema backed by store.
func New(schema *Schema, store triple.Store, opts ...Option) *Model {
	m := &Model{schema: schema, store: store, log: zerolog.Nop()}
	for _, opt := range opts {
		opt(m)
	}
	m.log = m.log.With().Str("kind", schema.kind).Logger()
	return m
}

// Schema returns the schema entities of this model follow.
func (m *Model) Schema() *Schema { return m.schema }

// New returns an unbound entity. Create binds it.
func (m *Model) New() *Entity {
	return &Entity{model: m}
}

// Bind returns a handle to the existing entity identified by urn. Nothing is
// read from the store.
func (m *Model) Bind(urn string) *Entity {
	return &Entity{model: m, urn: urn}
}

// Create allocates a urn, writes values and returns the bound entity.
func (m *Model) Create(ctx context.Context, values Values) (*Entity, error) {
	e := m.New()
	if err := e.Create(ctx, values); err != nil {
		return nil, err
	}
	return e, nil
}

// inTx runs fn against a transaction when the store supports one, otherwise
// against the store itself. The flag reports which one happened.
func (m *Model) inTx(ctx context.Context, fn func(triple.Store) error) (bool, error) {
	if tx, ok := m.store.(triple.Transactor); ok {
		return true, tx.InTx(ctx, fn)
	}
	return false, fn(m.store)
}
