package model

import (
	"context"
	"fmt"
)

// Accessor is a typed handle to one attribute, resolved once against a
// schema so call sites do not pass attribute names around.
type Accessor[T string | int64 | float64] struct {
	name string
	attr Attribute
}

// TextAttr returns an accessor for the Text attribute name.
func TextAttr(schema *Schema, name string) (Accessor[string], error) {
	return newAccessor[string](schema, name, Text)
}

// IntegerAttr returns an accessor for the Integer attribute name.
func IntegerAttr(schema *Schema, name string) (Accessor[int64], error) {
	return newAccessor[int64](schema, name, Integer)
}

// FloatAttr returns an accessor for the Float attribute name.
func FloatAttr(schema *Schema, name string) (Accessor[float64], error) {
	return newAccessor[float64](schema, name, Float)
}

func newAccessor[T string | int64 | float64](schema *Schema, name string, want ValueType) (Accessor[T], error) {
	a, err := schema.Describe(name)
	if err != nil {
		return Accessor[T]{}, err
	}
	if a.Type != want {
		return Accessor[T]{}, fmt.Errorf("%w: %s is %s, not %s", ErrTypeMismatch, name, a.Type, want)
	}
	if _, err := schema.PredicateIRI(name); err != nil {
		return Accessor[T]{}, err
	}
	return Accessor[T]{name: name, attr: a}, nil
}

// Name returns the attribute name.
func (a Accessor[T]) Name() string { return a.name }

// Attribute returns the descriptor the accessor was resolved from.
func (a Accessor[T]) Attribute() Attribute { return a.attr }

// Get returns the stored value and whether one was present. On a Multi
// attribute it returns the first value.
func (a Accessor[T]) Get(ctx context.Context, e *Entity) (T, bool, error) {
	var zero T
	vals, err := a.Values(ctx, e)
	if err != nil || len(vals) == 0 {
		return zero, false, err
	}
	return vals[0], true, nil
}

// Values returns every stored value.
func (a Accessor[T]) Values(ctx context.Context, e *Entity) ([]T, error) {
	raw, err := e.Values(ctx, a.name)
	if err != nil {
		return nil, err
	}
	out := make([]T, 0, len(raw))
	for _, v := range raw {
		t, ok := v.(T)
		if !ok {
			return nil, fmt.Errorf("%w: %s holds %T", ErrTypeMismatch, a.name, v)
		}
		out = append(out, t)
	}
	return out, nil
}

// Set overwrites the value of a Single attribute.
func (a Accessor[T]) Set(ctx context.Context, e *Entity, v T) error {
	return e.Set(ctx, a.name, v)
}

// Add appends to a Multi attribute.
func (a Accessor[T]) Add(ctx context.Context, e *Entity, v T) error {
	return e.Add(ctx, a.name, v)
}
