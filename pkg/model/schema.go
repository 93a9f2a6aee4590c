package model

import (
	"fmt"
	"sort"
	"strings"
)

// DefaultCountBy is the attribute whose predicate numbers new entities.
const DefaultCountBy = "path"

// Attribute describes how one entity attribute maps onto triples.
type Attribute struct {
	Name        string
	Predicate   string
	Type        ValueType
	Cardinality Cardinality
	Required    bool
}

// Schema is the attribute registry of one entity kind. It is read-only once
// built and is shared by every entity of the kind.
type Schema struct {
	kind       string
	template   string
	countBy    string
	prefixes   *PrefixTable
	attributes []Attribute
	index      map[string]int
	expanded   []string
}

// Kind returns the entity kind the schema describes.
func (s *Schema) Kind() string { return s.kind }

// Template returns the urn template, e.g. "urn:doc:%".
func (s *Schema) Template() string { return s.template }

// CountBy returns the attribute whose predicate drives urn allocation.
func (s *Schema) CountBy() string { return s.countBy }

// Prefixes returns the prefix table predicates are resolved against.
func (s *Schema) Prefixes() *PrefixTable { return s.prefixes }

// Describe returns the descriptor registered under name.
func (s *Schema) Describe(name string) (Attribute, error) {
	i, ok := s.index[name]
	if !ok {
		return Attribute{}, fmt.Errorf("%w: %s", ErrAttributeNotFound, name)
	}
	return s.attributes[i], nil
}

// Attributes returns every descriptor in registration order.
func (s *Schema) Attributes() []Attribute {
	out := make([]Attribute, len(s.attributes))
	copy(out, s.attributes)
	return out
}

// Required returns the names of required attributes in registration order.
func (s *Schema) Required() []string {
	var names []string
	for _, a := range s.attributes {
		if a.Required {
			names = append(names, a.Name)
		}
	}
	return names
}

// Predicate returns the predicate of name as declared, usually a CURIE.
func (s *Schema) Predicate(name string) (string, error) {
	a, err := s.Describe(name)
	if err != nil {
		return "", err
	}
	if a.Predicate == "" {
		return "", fmt.Errorf("%w: %s", ErrPredicateNotSpecified, name)
	}
	return a.Predicate, nil
}

// PredicateIRI returns the full IRI a store sees for name.
func (s *Schema) PredicateIRI(name string) (string, error) {
	if _, err := s.Predicate(name); err != nil {
		return "", err
	}
	return s.expanded[s.index[name]], nil
}

// ResolveURI maps a full predicate IRI back to an attribute name. Prefixes are
// tried in registration order; under a matching prefix the attributes are
// scanned in registration order and the first whose predicate equals the
// compacted CURIE wins. An attribute declared with the absolute IRI itself
// matches last.
func (s *Schema) ResolveURI(uri string) (string, error) {
	for _, p := range s.prefixes.prefixes {
		rest, ok := strings.CutPrefix(uri, p.URI)
		if !ok {
			continue
		}
		curie := p.Name + ":" + rest
		for _, a := range s.attributes {
			if a.Predicate == curie {
				return a.Name, nil
			}
		}
	}
	for i, a := range s.attributes {
		if _, abs := absoluteIRI(a.Predicate); abs && s.expanded[i] == uri {
			return a.Name, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrPrefixNotFound, uri)
}

// SchemaBuilder collects prefixes and attributes for a Schema.
type SchemaBuilder struct {
	kind       string
	template   string
	countBy    string
	prefixes   []Prefix
	attributes []Attribute
}

// NewSchemaBuilder starts a schema for kind.
func NewSchemaBuilder(kind string) *SchemaBuilder {
	return &SchemaBuilder{kind: kind, countBy: DefaultCountBy}
}

// Prefix registers a prefix. Registration order is resolution order.
func (b *SchemaBuilder) Prefix(name, uri string) *SchemaBuilder {
	b.prefixes = append(b.prefixes, Prefix{Name: name, URI: uri})
	return b
}

// Prefixes registers several prefixes at once.
func (b *SchemaBuilder) Prefixes(prefixes ...Prefix) *SchemaBuilder {
	b.prefixes = append(b.prefixes, prefixes...)
	return b
}

// Attribute registers an attribute. Registration order is scan order.
func (b *SchemaBuilder) Attribute(a Attribute) *SchemaBuilder {
	b.attributes = append(b.attributes, a)
	return b
}

// Template sets the urn template; the first % is replaced by the next index.
func (b *SchemaBuilder) Template(t string) *SchemaBuilder {
	b.template = t
	return b
}

// CountBy names the attribute whose predicate numbers new entities.
func (b *SchemaBuilder) CountBy(name string) *SchemaBuilder {
	b.countBy = name
	return b
}

// Build validates the collected definitions and freezes them into a Schema.
func (b *SchemaBuilder) Build() (*Schema, error) {
	if strings.TrimSpace(b.kind) == "" {
		return nil, fmt.Errorf("schema kind must be a non-empty string")
	}
	if b.template != "" && !strings.Contains(b.template, "%") {
		return nil, fmt.Errorf("%w: %q has no %% placeholder", ErrInvalidTemplate, b.template)
	}
	prefixes, err := NewPrefixTable(b.prefixes...)
	if err != nil {
		return nil, fmt.Errorf("schema %s: %w", b.kind, err)
	}

	s := &Schema{
		kind:       b.kind,
		template:   b.template,
		countBy:    b.countBy,
		prefixes:   prefixes,
		attributes: make([]Attribute, 0, len(b.attributes)),
		index:      make(map[string]int, len(b.attributes)),
		expanded:   make([]string, 0, len(b.attributes)),
	}
	owners := make(map[string]string, len(b.attributes))
	for _, a := range b.attributes {
		if strings.TrimSpace(a.Name) == "" {
			return nil, fmt.Errorf("schema %s: attribute name must be a non-empty string", b.kind)
		}
		if _, dup := s.index[a.Name]; dup {
			return nil, fmt.Errorf("schema %s: attribute %q registered twice", b.kind, a.Name)
		}
		var iri string
		if a.Predicate != "" {
			iri, err = prefixes.Expand(a.Predicate)
			if err != nil {
				return nil, fmt.Errorf("schema %s: attribute %q: %w", b.kind, a.Name, err)
			}
			if owner, taken := owners[iri]; taken {
				return nil, fmt.Errorf("schema %s: %w: %s is used by %q and %q", b.kind, ErrDuplicatePredicate, a.Predicate, owner, a.Name)
			}
			owners[iri] = a.Name
		}
		s.index[a.Name] = len(s.attributes)
		s.attributes = append(s.attributes, a)
		s.expanded = append(s.expanded, iri)
	}
	return s, nil
}

// Registry maps entity kinds to their schemas. A Registry is never modified;
// reloading definitions produces a new one.
type Registry struct {
	schemas map[string]*Schema
}

// NewRegistry indexes schemas by kind.
func NewRegistry(schemas ...*Schema) (*Registry, error) {
	r := &Registry{schemas: make(map[string]*Schema, len(schemas))}
	for _, s := range schemas {
		if _, dup := r.schemas[s.kind]; dup {
			return nil, fmt.Errorf("kind %q defined twice", s.kind)
		}
		r.schemas[s.kind] = s
	}
	return r, nil
}

// Schema returns the schema of kind.
func (r *Registry) Schema(kind string) (*Schema, error) {
	s, ok := r.schemas[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownKind, kind)
	}
	return s, nil
}

// Kinds returns the registered kinds sorted by name.
func (r *Registry) Kinds() []string {
	kinds := make([]string, 0, len(r.schemas))
	for k := range r.schemas {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}
