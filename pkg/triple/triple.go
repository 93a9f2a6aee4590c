// Package triple defines the triple-store contract consumed by the entity model
// and the helpers shared by the store implementations.
package triple

import (
	"context"
	"fmt"

	"github.com/cayleygraph/quad"
)

// Triple is a single (subject, predicate, object) statement. Predicates are
// full IRIs once they reach a store.
type Triple struct {
	Subject   string
	Predicate string
	Object    quad.Value
}

func (t Triple) String() string {
	return fmt.Sprintf("<%s> <%s> %v", t.Subject, t.Predicate, t.Object)
}

// Pattern selects triples. An empty Subject or Predicate and a nil Object are
// wildcards.
type Pattern struct {
	Subject   string
	Predicate string
	Object    quad.Value
}

// Position names the variable slot of a counting pattern.
type Position int

const (
	Subject Position = iota
	Predicate
	Object
)

func (p Position) String() string {
	switch p {
	case Subject:
		return "subject"
	case Predicate:
		return "predicate"
	case Object:
		return "object"
	default:
		return fmt.Sprintf("position(%d)", int(p))
	}
}

// Store executes triple operations against a backing store.
type Store interface {
	// Insert adds one triple. Inserting an identical triple twice is a no-op.
	Insert(ctx context.Context, t Triple) error
	// Replace removes every object bound to (subject, predicate) and inserts t.
	Replace(ctx context.Context, t Triple) error
	// Delete removes every triple matching p.
	Delete(ctx context.Context, p Pattern) error
	// Select returns the triples matching p in insertion order.
	Select(ctx context.Context, p Pattern) ([]Triple, error)
	// Value returns the objects bound to (subject, predicate). An empty result
	// means nothing is bound.
	Value(ctx context.Context, subject, predicate string) ([]quad.Value, error)
	// NextIndex reserves and returns the next unused integer for the counting
	// dimension described by p, counting distinct values at position pos.
	// An index is handed out at most once.
	NextIndex(ctx context.Context, p Pattern, pos Position) (int64, error)
}

// Transactor is implemented by stores that can run several operations
// atomically. fn receives a Store bound to the transaction.
type Transactor interface {
	InTx(ctx context.Context, fn func(Store) error) error
}

// Matches reports whether t satisfies p.
func Matches(p Pattern, t Triple) bool {
	if p.Subject != "" && p.Subject != t.Subject {
		return false
	}
	if p.Predicate != "" && p.Predicate != t.Predicate {
		return false
	}
	if p.Object != nil && !Equal(p.Object, t.Object) {
		return false
	}
	return true
}

// Equal compares two objects by their encoded form, so an Int and a
// TypedString carrying the same xsd:integer literal are the same object.
func Equal(a, b quad.Value) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	al, at := Encode(a)
	bl, bt := Encode(b)
	return al == bl && at == bt
}

// CounterKey identifies the counter behind a NextIndex call.
func CounterKey(p Pattern, pos Position) string {
	obj, dt := "", ""
	if p.Object != nil {
		obj, dt = Encode(p.Object)
	}
	return fmt.Sprintf("%s|%s|%s|%s|%s", pos, p.Subject, p.Predicate, obj, dt)
}
