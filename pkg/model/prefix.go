package model

import (
	"fmt"
	"strings"
)

// Prefix binds a short name to a URI base, e.g. dc -> http://purl.org/dc/terms/.
type Prefix struct {
	Name string
	URI  string
}

// PrefixTable is an ordered, read-only set of prefixes.
type PrefixTable struct {
	prefixes []Prefix
	index    map[string]int
}

// NewPrefixTable builds a table. Later duplicates of a name are rejected.
func NewPrefixTable(prefixes ...Prefix) (*PrefixTable, error) {
	pt := &PrefixTable{index: make(map[string]int, len(prefixes))}
	for _, p := range prefixes {
		name := strings.TrimSpace(p.Name)
		if name == "" || strings.Contains(name, ":") {
			return nil, fmt.Errorf("invalid prefix name %q", p.Name)
		}
		if p.URI == "" {
			return nil, fmt.Errorf("prefix %q has an empty uri", name)
		}
		if _, dup := pt.index[name]; dup {
			return nil, fmt.Errorf("prefix %q registered twice", name)
		}
		pt.index[name] = len(pt.prefixes)
		pt.prefixes = append(pt.prefixes, Prefix{Name: name, URI: p.URI})
	}
	return pt, nil
}

// Lookup returns the URI base registered for name.
func (pt *PrefixTable) Lookup(name string) (string, bool) {
	i, ok := pt.index[name]
	if !ok {
		return "", false
	}
	return pt.prefixes[i].URI, true
}

// List returns the prefixes in registration order.
func (pt *PrefixTable) List() []Prefix {
	out := make([]Prefix, len(pt.prefixes))
	copy(out, pt.prefixes)
	return out
}

// Expand turns a CURIE into a full IRI. Absolute IRIs are returned unchanged.
func (pt *PrefixTable) Expand(term string) (string, error) {
	if iri, ok := absoluteIRI(term); ok {
		return iri, nil
	}
	name, local, ok := strings.Cut(term, ":")
	if !ok {
		return "", fmt.Errorf("%w: %q is not a curie", ErrPrefixNotFound, term)
	}
	base, ok := pt.Lookup(name)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrPrefixNotFound, name)
	}
	return base + local, nil
}

// Compact returns the CURIE for uri under the first prefix whose base it
// starts with.
func (pt *PrefixTable) Compact(uri string) (string, bool) {
	for _, p := range pt.prefixes {
		if rest, ok := strings.CutPrefix(uri, p.URI); ok {
			return p.Name + ":" + rest, true
		}
	}
	return "", false
}

// absoluteIRI recognises <iri> and scheme://… forms.
func absoluteIRI(term string) (string, bool) {
	if strings.HasPrefix(term, "<") && strings.HasSuffix(term, ">") {
		return term[1 : len(term)-1], true
	}
	if strings.Contains(term, "://") {
		return term, true
	}
	return "", false
}
