// Package config loads entity schemas from YAML definition files.
package config

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/ZanzyTHEbar/triplemap-go/pkg/model"
)

// File is the on-disk layout of a schema definition file. Lists keep their
// order because prefix and attribute order decide predicate resolution.
type File struct {
	Prefixes []PrefixDef `yaml:"prefixes,omitempty"`
	Kinds    []KindDef   `yaml:"kinds"`
}

// PrefixDef binds a prefix name to a URI base.
type PrefixDef struct {
	Name string `yaml:"name"`
	URI  string `yaml:"uri"`
}

// KindDef describes one entity kind. Its prefixes are appended to the
// file-wide ones.
type KindDef struct {
	Name       string         `yaml:"name"`
	Template   string         `yaml:"template"`
	CountBy    string         `yaml:"countBy,omitempty"`
	Prefixes   []PrefixDef    `yaml:"prefixes,omitempty"`
	Attributes []AttributeDef `yaml:"attributes"`
}

// AttributeDef describes one attribute of a kind.
type AttributeDef struct {
	Name        string `yaml:"name"`
	Predicate   string `yaml:"predicate"`
	Type        string `yaml:"type"`
	Cardinality string `yaml:"cardinality,omitempty"`
	Required    bool   `yaml:"required,omitempty"`
}

// Load reads and builds the registry defined in path.
func Load(path string) (*model.Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read schema file: %w", err)
	}
	reg, err := Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return reg, nil
}

// Parse decodes a definition file and builds its registry. Unknown keys are
// rejected so typos do not silently drop attributes.
func Parse(r io.Reader) (*model.Registry, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var f File
	if err := dec.Decode(&f); err != nil && err != io.EOF {
		return nil, fmt.Errorf("failed to decode schema file: %w", err)
	}
	return f.Registry()
}

// Registry builds a schema per kind.
func (f *File) Registry() (*model.Registry, error) {
	schemas := make([]*model.Schema, 0, len(f.Kinds))
	for _, k := range f.Kinds {
		s, err := f.schema(k)
		if err != nil {
			return nil, err
		}
		schemas = append(schemas, s)
	}
	return model.NewRegistry(schemas...)
}

func (f *File) schema(k KindDef) (*model.Schema, error) {
	b := model.NewSchemaBuilder(k.Name).Template(k.Template)
	if k.CountBy != "" {
		b.CountBy(k.CountBy)
	}
	for _, p := range append(append([]PrefixDef{}, f.Prefixes...), k.Prefixes...) {
		b.Prefix(p.Name, p.URI)
	}
	for _, a := range k.Attributes {
		typ, err := model.ParseValueType(a.Type)
		if err != nil {
			return nil, fmt.Errorf("kind %s attribute %s: %w", k.Name, a.Name, err)
		}
		card, err := model.ParseCardinality(a.Cardinality)
		if err != nil {
			return nil, fmt.Errorf("kind %s attribute %s: %w", k.Name, a.Name, err)
		}
		b.Attribute(model.Attribute{
			Name:        a.Name,
			Predicate:   a.Predicate,
			Type:        typ,
			Cardinality: card,
			Required:    a.Required,
		})
	}
	return b.Build()
}

// FromRegistry renders a registry back into the file layout. Prefixes are
// written per kind.
func FromRegistry(r *model.Registry) File {
	var f File
	for _, kind := range r.Kinds() {
		s, _ := r.Schema(kind)
		k := KindDef{Name: s.Kind(), Template: s.Template()}
		if s.CountBy() != model.DefaultCountBy {
			k.CountBy = s.CountBy()
		}
		for _, p := range s.Prefixes().List() {
			k.Prefixes = append(k.Prefixes, PrefixDef{Name: p.Name, URI: p.URI})
		}
		for _, a := range s.Attributes() {
			ad := AttributeDef{Name: a.Name, Predicate: a.Predicate, Required: a.Required}
			if a.Type != model.Unspecified {
				ad.Type = a.Type.String()
			}
			if a.Cardinality == model.Multi {
				ad.Cardinality = a.Cardinality.String()
			}
			k.Attributes = append(k.Attributes, ad)
		}
		f.Kinds = append(f.Kinds, k)
	}
	return f
}

// Marshal encodes f as YAML.
func (f File) Marshal() ([]byte, error) {
	return yaml.Marshal(f)
}
