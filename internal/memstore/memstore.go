// Package memstore is an in-process triple.Store used for tests, examples and
// memory: URLs. Nothing survives the process.
package memstore

import (
	"context"
	"maps"
	"slices"
	"sync"

	"github.com/cayleygraph/quad"

	"github.com/ZanzyTHEbar/triplemap-go/pkg/triple"
)

// Store keeps triples in insertion order behind a single lock.
type Store struct {
	mu sync.RWMutex
	st state
}

type state struct {
	triples  []triple.Triple
	counters map[string]int64
}

// New returns an empty store.
func New() *Store {
	return &Store{st: state{counters: make(map[string]int64)}}
}

var (
	_ triple.Store      = (*Store)(nil)
	_ triple.Transactor = (*Store)(nil)
)

func (s *Store) Insert(ctx context.Context, t triple.Triple) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.insert(t)
	return nil
}

func (s *Store) Replace(ctx context.Context, t triple.Triple) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.replace(t)
	return nil
}

func (s *Store) Delete(ctx context.Context, p triple.Pattern) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.delete(p)
	return nil
}

func (s *Store) Select(ctx context.Context, p triple.Pattern) ([]triple.Triple, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.st.selectAll(p), nil
}

func (s *Store) Value(ctx context.Context, subject, predicate string) ([]quad.Value, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.st.value(subject, predicate), nil
}

func (s *Store) NextIndex(ctx context.Context, p triple.Pattern, pos triple.Position) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.nextIndex(p, pos), nil
}

// InTx runs fn with the store locked. If fn fails every change it made is
// rolled back.
func (s *Store) InTx(ctx context.Context, fn func(triple.Store) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	snapshot := state{
		triples:  slices.Clone(s.st.triples),
		counters: maps.Clone(s.st.counters),
	}
	if err := fn(&tx{st: &s.st}); err != nil {
		s.st = snapshot
		return err
	}
	return nil
}

// Len returns the number of stored triples.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.st.triples)
}

// tx operates on the locked state of its parent store.
type tx struct {
	st *state
}

func (t *tx) Insert(ctx context.Context, tr triple.Triple) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	t.st.insert(tr)
	return nil
}

func (t *tx) Replace(ctx context.Context, tr triple.Triple) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	t.st.replace(tr)
	return nil
}

func (t *tx) Delete(ctx context.Context, p triple.Pattern) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	t.st.delete(p)
	return nil
}

func (t *tx) Select(ctx context.Context, p triple.Pattern) ([]triple.Triple, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return t.st.selectAll(p), nil
}

func (t *tx) Value(ctx context.Context, subject, predicate string) ([]quad.Value, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return t.st.value(subject, predicate), nil
}

func (t *tx) NextIndex(ctx context.Context, p triple.Pattern, pos triple.Position) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	return t.st.nextIndex(p, pos), nil
}

func (st *state) insert(t triple.Triple) {
	for _, have := range st.triples {
		if have.Subject == t.Subject && have.Predicate == t.Predicate && triple.Equal(have.Object, t.Object) {
			return
		}
	}
	st.triples = append(st.triples, t)
}

func (st *state) replace(t triple.Triple) {
	st.delete(triple.Pattern{Subject: t.Subject, Predicate: t.Predicate})
	st.triples = append(st.triples, t)
}

func (st *state) delete(p triple.Pattern) {
	st.triples = slices.DeleteFunc(st.triples, func(t triple.Triple) bool {
		return triple.Matches(p, t)
	})
}

func (st *state) selectAll(p triple.Pattern) []triple.Triple {
	var out []triple.Triple
	for _, t := range st.triples {
		if triple.Matches(p, t) {
			out = append(out, t)
		}
	}
	return out
}

func (st *state) value(subject, predicate string) []quad.Value {
	var out []quad.Value
	for _, t := range st.triples {
		if t.Subject == subject && t.Predicate == predicate {
			out = append(out, t.Object)
		}
	}
	return out
}

// nextIndex never goes below the number of distinct values already present,
// so triples written before the counter existed are not reissued.
func (st *state) nextIndex(p triple.Pattern, pos triple.Position) int64 {
	seen := make(map[string]struct{})
	for _, t := range st.triples {
		if !triple.Matches(p, t) {
			continue
		}
		switch pos {
		case triple.Subject:
			seen[t.Subject] = struct{}{}
		case triple.Predicate:
			seen[t.Predicate] = struct{}{}
		default:
			l, dt := triple.Encode(t.Object)
			seen[l+"\x00"+dt] = struct{}{}
		}
	}
	key := triple.CounterKey(p, pos)
	next := max(st.counters[key], int64(len(seen))) + 1
	st.counters[key] = next
	return next
}
