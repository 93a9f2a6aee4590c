package model

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/ZanzyTHEbar/triplemap-go/pkg/triple"
)

// URNAllocator hands out urns for new entities of one schema by asking the
// store for the next index of the counting predicate.
type URNAllocator struct {
	schema *Schema
	store  triple.Store
}

// NewURNAllocator binds an allocator to schema and store.
func NewURNAllocator(schema *Schema, store triple.Store) *URNAllocator {
	return &URNAllocator{schema: schema, store: store}
}

// Next reserves an index and substitutes it into the first % of the template.
// Uniqueness rests on the store's NextIndex being an atomic reserve.
func (a *URNAllocator) Next(ctx context.Context) (string, error) {
	if a.schema.template == "" {
		return "", fmt.Errorf("%w: schema %s has no template", ErrInvalidTemplate, a.schema.kind)
	}
	pred, err := a.schema.PredicateIRI(a.schema.countBy)
	if err != nil {
		return "", fmt.Errorf("urn allocation for %s: %w", a.schema.kind, err)
	}

	index, err := a.store.NextIndex(ctx, triple.Pattern{Predicate: pred}, triple.Subject)
	if err != nil {
		return "", fmt.Errorf("failed to reserve index for %s: %w", a.schema.kind, err)
	}
	return strings.Replace(a.schema.template, "%", strconv.FormatInt(index, 10), 1), nil
}
