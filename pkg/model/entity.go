package model

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sort"

	"github.com/cayleygraph/quad"

	"github.com/ZanzyTHEbar/triplemap-go/internal/metrics"
	"github.com/ZanzyTHEbar/triplemap-go/pkg/triple"
)

// Entity is a handle to one record. It holds no attribute state; every read
// goes to the store.
type Entity struct {
	model *Model
	urn   string
}

// URN returns the entity's urn, empty while unbound.
func (e *Entity) URN() string { return e.urn }

// Bound reports whether the entity has a urn.
func (e *Entity) Bound() bool { return e.urn != "" }

// Model returns the model the entity belongs to.
func (e *Entity) Model() *Model { return e.model }

// write is one validated store mutation.
type write struct {
	key     string
	replace bool
	t       triple.Triple
}

func (e *Entity) requireURN() error {
	if e.urn == "" {
		return ErrUrnNotSet
	}
	return nil
}

// Create allocates a urn for an unbound entity and writes values. Required
// attributes and value types are checked before anything is allocated.
func (e *Entity) Create(ctx context.Context, values Values) error {
	if e.Bound() {
		return fmt.Errorf("%w: %s", ErrAlreadyBound, e.urn)
	}
	schema := e.model.schema
	var missing []string
	for _, name := range schema.Required() {
		if _, ok := values[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return &RequiredValuesMissingError{Missing: missing}
	}
	writes, err := e.plan(values)
	if err != nil {
		return err
	}

	var urn string
	tx, err := e.model.inTx(ctx, func(s triple.Store) error {
		var err error
		urn, err = NewURNAllocator(schema, s).Next(ctx)
		if err != nil {
			return err
		}
		e.model.log.Debug().Str("urn", urn).Msg("allocated urn")
		return e.apply(ctx, s, urn, writes)
	})
	if err != nil {
		var ce *ChangeError
		if !tx && errors.As(err, &ce) {
			// the urn exists in the store with whatever was applied
			e.urn = urn
			return ce
		}
		return fmt.Errorf("failed to create %s: %w", schema.kind, err)
	}
	e.urn = urn
	metrics.Default().IncURNAllocated(schema.kind)
	return nil
}

// Change writes values onto a bound entity. Single attributes are overwritten,
// Multi attributes gain one value per element. Every pair is validated before
// the first write. Against a transactional store the writes are all or
// nothing; otherwise a store failure is reported as a *ChangeError.
func (e *Entity) Change(ctx context.Context, values Values) error {
	if err := e.requireURN(); err != nil {
		return err
	}
	writes, err := e.plan(values)
	if err != nil {
		return err
	}
	tx, err := e.model.inTx(ctx, func(s triple.Store) error {
		return e.apply(ctx, s, e.urn, writes)
	})
	if err != nil && tx {
		return fmt.Errorf("failed to change %s: %w", e.urn, err)
	}
	return err
}

// plan validates values and turns them into writes, ordered by attribute
// registration order.
func (e *Entity) plan(values Values) ([]write, error) {
	schema := e.model.schema
	keys := make([]string, 0, len(values))
	var unknown []string
	for _, a := range schema.attributes {
		if _, ok := values[a.Name]; ok {
			keys = append(keys, a.Name)
		}
	}
	for k := range values {
		if _, ok := schema.index[k]; !ok {
			unknown = append(unknown, k)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return nil, fmt.Errorf("%w: %s", ErrAttributeNotFound, unknown[0])
	}

	var writes []write
	for _, key := range keys {
		a := schema.attributes[schema.index[key]]
		value := values[key]
		if a.Cardinality == Single {
			obj, pred, err := e.checkSet(key, value)
			if err != nil {
				return nil, err
			}
			writes = append(writes, write{key: key, replace: true, t: triple.Triple{Predicate: pred, Object: obj}})
			continue
		}
		for _, v := range spread(value) {
			obj, pred, err := e.checkAdd(key, v)
			if err != nil {
				return nil, err
			}
			writes = append(writes, write{key: key, t: triple.Triple{Predicate: pred, Object: obj}})
		}
	}
	return writes, nil
}

func (e *Entity) apply(ctx context.Context, s triple.Store, urn string, writes []write) error {
	var applied []string
	for i, w := range writes {
		w.t.Subject = urn
		var err error
		if w.replace {
			err = s.Replace(ctx, w.t)
		} else {
			err = s.Insert(ctx, w.t)
		}
		if err != nil {
			return &ChangeError{URN: urn, Applied: applied, Key: w.key, Err: err}
		}
		if i == len(writes)-1 || writes[i+1].key != w.key {
			applied = append(applied, w.key)
		}
		e.model.log.Debug().Str("urn", urn).Str("attribute", w.key).Msg("wrote value")
	}
	return nil
}

// spread expands a slice or array into its elements. Strings and byte slices
// are single values.
func spread(value any) []any {
	if value == nil {
		return []any{nil}
	}
	if _, ok := value.([]byte); ok {
		return []any{value}
	}
	rv := reflect.ValueOf(value)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return []any{value}
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out
}

// checkValue runs the checks shared by Set and Add: attribute exists, type is
// declared, value matches it.
func (e *Entity) checkValue(key string, value any) (Attribute, quad.Value, error) {
	a, err := e.model.schema.Describe(key)
	if err != nil {
		return Attribute{}, nil, err
	}
	if a.Type == Unspecified {
		return a, nil, fmt.Errorf("%w: %s", ErrTypeNotSpecified, key)
	}
	obj, err := a.Type.Check(value)
	if err != nil {
		return a, nil, fmt.Errorf("%s: %w", key, err)
	}
	return a, obj, nil
}

func (e *Entity) checkSet(key string, value any) (quad.Value, string, error) {
	a, obj, err := e.checkValue(key, value)
	if err != nil {
		return nil, "", err
	}
	if a.Cardinality != Single {
		return nil, "", fmt.Errorf("%w: %s is not a single attribute, use Add(%q, value) instead", ErrCardinalityMismatch, key, key)
	}
	pred, err := e.model.schema.PredicateIRI(key)
	if err != nil {
		return nil, "", err
	}
	return obj, pred, nil
}

func (e *Entity) checkAdd(key string, value any) (quad.Value, string, error) {
	a, obj, err := e.checkValue(key, value)
	if err != nil {
		return nil, "", err
	}
	if a.Cardinality != Multi {
		return nil, "", fmt.Errorf("%w: %s is not a multi attribute, use Set(%q, value) instead", ErrCardinalityMismatch, key, key)
	}
	pred, err := e.model.schema.PredicateIRI(key)
	if err != nil {
		return nil, "", err
	}
	return obj, pred, nil
}

// Add appends value to a Multi attribute.
func (e *Entity) Add(ctx context.Context, key string, value any) error {
	if err := e.requireURN(); err != nil {
		return err
	}
	obj, pred, err := e.checkAdd(key, value)
	if err != nil {
		return err
	}
	if err := e.model.store.Insert(ctx, triple.Triple{Subject: e.urn, Predicate: pred, Object: obj}); err != nil {
		return fmt.Errorf("failed to add %s to %s: %w", key, e.urn, err)
	}
	return nil
}

// Set overwrites the value of a Single attribute.
func (e *Entity) Set(ctx context.Context, key string, value any) error {
	if err := e.requireURN(); err != nil {
		return err
	}
	obj, pred, err := e.checkSet(key, value)
	if err != nil {
		return err
	}
	if err := e.model.store.Replace(ctx, triple.Triple{Subject: e.urn, Predicate: pred, Object: obj}); err != nil {
		return fmt.Errorf("failed to set %s on %s: %w", key, e.urn, err)
	}
	return nil
}

// Delete removes every value of key.
func (e *Entity) Delete(ctx context.Context, key string) error {
	if err := e.requireURN(); err != nil {
		return err
	}
	pred, err := e.model.schema.PredicateIRI(key)
	if err != nil {
		return err
	}
	if err := e.model.store.Delete(ctx, triple.Pattern{Subject: e.urn, Predicate: pred}); err != nil {
		return fmt.Errorf("failed to delete %s from %s: %w", key, e.urn, err)
	}
	return nil
}

// DeleteValue removes one value of key. Deleting a value that is not stored
// is not an error. The value is not checked against the declared type: one
// that does not fit it matches nothing.
func (e *Entity) DeleteValue(ctx context.Context, key string, value any) error {
	if err := e.requireURN(); err != nil {
		return err
	}
	a, err := e.model.schema.Describe(key)
	if err != nil {
		return err
	}
	pred, err := e.model.schema.PredicateIRI(key)
	if err != nil {
		return err
	}
	obj, err := a.Type.Check(value)
	if err != nil {
		var ok bool
		if obj, ok = literalOf(value); !ok {
			return nil
		}
	}
	if err := e.model.store.Delete(ctx, triple.Pattern{Subject: e.urn, Predicate: pred, Object: obj}); err != nil {
		return fmt.Errorf("failed to delete %s value from %s: %w", key, e.urn, err)
	}
	return nil
}

// All returns every stored attribute as text: a string for Single
// attributes, a []string for Multi ones. Values are not converted to their
// declared type; use Get for that.
func (e *Entity) All(ctx context.Context) (map[string]any, error) {
	if err := e.requireURN(); err != nil {
		return nil, err
	}
	triples, err := e.model.store.Select(ctx, triple.Pattern{Subject: e.urn})
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", e.urn, err)
	}
	schema := e.model.schema
	out := make(map[string]any, len(triples))
	for _, t := range triples {
		name, err := schema.ResolveURI(t.Predicate)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", e.urn, err)
		}
		text := triple.Lexical(t.Object)
		if schema.attributes[schema.index[name]].Cardinality == Multi {
			list, _ := out[name].([]string)
			out[name] = append(list, text)
			continue
		}
		out[name] = text
	}
	return out, nil
}

// Get returns the value of key converted to its declared type: nil when
// nothing is stored, the value itself when one is, a []any when several are.
func (e *Entity) Get(ctx context.Context, key string) (any, error) {
	vals, err := e.Values(ctx, key)
	if err != nil {
		return nil, err
	}
	switch len(vals) {
	case 0:
		return nil, nil
	case 1:
		return vals[0], nil
	}
	return vals, nil
}

// Values returns every value of key converted to its declared type.
func (e *Entity) Values(ctx context.Context, key string) ([]any, error) {
	if err := e.requireURN(); err != nil {
		return nil, err
	}
	a, err := e.model.schema.Describe(key)
	if err != nil {
		return nil, err
	}
	pred, err := e.model.schema.PredicateIRI(key)
	if err != nil {
		return nil, err
	}
	objs, err := e.model.store.Value(ctx, e.urn, pred)
	if err != nil {
		return nil, fmt.Errorf("failed to get %s of %s: %w", key, e.urn, err)
	}
	if len(objs) == 0 {
		return nil, nil
	}
	if a.Type == Unspecified {
		return nil, fmt.Errorf("%w: %s", ErrTypeNotSpecified, key)
	}
	out := make([]any, 0, len(objs))
	for _, o := range objs {
		v, err := a.Type.decode(o)
		if err != nil {
			return nil, fmt.Errorf("%s of %s: %w", key, e.urn, err)
		}
		out = append(out, v)
	}
	return out, nil
}
