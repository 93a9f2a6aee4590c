package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const dcTerms = "http://purl.org/dc/terms/"

func TestBuildRejectsInvalidSchemas(t *testing.T) {
	tests := []struct {
		name    string
		builder *SchemaBuilder
		wantErr error
		wantMsg string
	}{
		{
			name:    "empty kind",
			builder: NewSchemaBuilder(" "),
			wantMsg: "non-empty",
		},
		{
			name:    "template without placeholder",
			builder: NewSchemaBuilder("doc").Template("urn:doc"),
			wantErr: ErrInvalidTemplate,
		},
		{
			name: "unknown prefix",
			builder: NewSchemaBuilder("doc").
				Attribute(Attribute{Name: "title", Predicate: "foaf:name", Type: Text}),
			wantErr: ErrPrefixNotFound,
		},
		{
			name: "duplicate attribute",
			builder: NewSchemaBuilder("doc").Prefix("dc", dcTerms).
				Attribute(Attribute{Name: "title", Predicate: "dc:title", Type: Text}).
				Attribute(Attribute{Name: "title", Predicate: "dc:alternative", Type: Text}),
			wantMsg: "registered twice",
		},
		{
			name: "duplicate predicate",
			builder: NewSchemaBuilder("doc").Prefix("dc", dcTerms).
				Attribute(Attribute{Name: "title", Predicate: "dc:title", Type: Text}).
				Attribute(Attribute{Name: "name", Predicate: dcTerms + "title", Type: Text}),
			wantErr: ErrDuplicatePredicate,
		},
		{
			name:    "duplicate prefix",
			builder: NewSchemaBuilder("doc").Prefix("dc", dcTerms).Prefix("dc", "http://example.org/"),
			wantMsg: "registered twice",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.builder.Build()
			require.Error(t, err)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
			if tt.wantMsg != "" {
				assert.Contains(t, err.Error(), tt.wantMsg)
			}
		})
	}
}

func TestBuildToleratesMissingTypeAndPredicate(t *testing.T) {
	s, err := NewSchemaBuilder("doc").
		Attribute(Attribute{Name: "untyped", Predicate: "<http://example.org/untyped>"}).
		Attribute(Attribute{Name: "unmapped", Type: Text}).
		Build()
	require.NoError(t, err)

	_, err = s.Predicate("unmapped")
	assert.ErrorIs(t, err, ErrPredicateNotSpecified)

	iri, err := s.PredicateIRI("untyped")
	require.NoError(t, err)
	assert.Equal(t, "http://example.org/untyped", iri)
}

func TestDescribe(t *testing.T) {
	s := docSchema(t)

	a, err := s.Describe("tag")
	require.NoError(t, err)
	assert.Equal(t, "dc:subject", a.Predicate)
	assert.Equal(t, Multi, a.Cardinality)
	assert.False(t, a.Required)

	_, err = s.Describe("missing")
	assert.ErrorIs(t, err, ErrAttributeNotFound)

	assert.Equal(t, []string{"title"}, s.Required())
	names := make([]string, 0)
	for _, a := range s.Attributes() {
		names = append(names, a.Name)
	}
	assert.Equal(t, []string{"title", "tag", "pages", "score"}, names)
}

func TestResolveURIInvertsPredicate(t *testing.T) {
	s := docSchema(t)
	for _, a := range s.Attributes() {
		iri, err := s.PredicateIRI(a.Name)
		require.NoError(t, err)
		name, err := s.ResolveURI(iri)
		require.NoError(t, err)
		assert.Equal(t, a.Name, name)
	}
}

func TestResolveURIUsesRegistrationOrder(t *testing.T) {
	// two prefixes share a base; the first registered one decides the curie
	s, err := NewSchemaBuilder("doc").
		Prefix("dc", dcTerms).
		Prefix("terms", dcTerms).
		Attribute(Attribute{Name: "title", Predicate: "terms:title", Type: Text}).
		Attribute(Attribute{Name: "heading", Predicate: "dc:title", Type: Text}).
		Build()
	require.Error(t, err, "both expand to the same iri")
	assert.ErrorIs(t, err, ErrDuplicatePredicate)

	s, err = NewSchemaBuilder("doc").
		Prefix("terms", dcTerms).
		Prefix("dc", dcTerms).
		Attribute(Attribute{Name: "title", Predicate: "dc:title", Type: Text}).
		Build()
	require.NoError(t, err)
	name, err := s.ResolveURI(dcTerms + "title")
	require.NoError(t, err)
	assert.Equal(t, "title", name)
}

func TestResolveURIUnknown(t *testing.T) {
	s := docSchema(t)

	_, err := s.ResolveURI("http://example.org/other")
	assert.ErrorIs(t, err, ErrPrefixNotFound)

	_, err = s.ResolveURI(dcTerms + "creator")
	assert.ErrorIs(t, err, ErrPrefixNotFound)
}

func TestResolveURIAbsolutePredicate(t *testing.T) {
	s, err := NewSchemaBuilder("doc").
		Prefix("dc", dcTerms).
		Attribute(Attribute{Name: "path", Predicate: "http://example.org/path", Type: Text}).
		Build()
	require.NoError(t, err)

	name, err := s.ResolveURI("http://example.org/path")
	require.NoError(t, err)
	assert.Equal(t, "path", name)
}

func TestRegistry(t *testing.T) {
	doc := docSchema(t)
	img, err := NewSchemaBuilder("image").Template("urn:image:%").Build()
	require.NoError(t, err)

	r, err := NewRegistry(img, doc)
	require.NoError(t, err)
	assert.Equal(t, []string{"doc", "image"}, r.Kinds())

	got, err := r.Schema("doc")
	require.NoError(t, err)
	assert.Same(t, doc, got)

	_, err = r.Schema("video")
	assert.ErrorIs(t, err, ErrUnknownKind)

	_, err = NewRegistry(doc, doc)
	assert.Error(t, err)
}

func TestPrefixTable(t *testing.T) {
	pt, err := NewPrefixTable(Prefix{Name: "dc", URI: dcTerms}, Prefix{Name: "ex", URI: "http://example.org/"})
	require.NoError(t, err)

	iri, err := pt.Expand("dc:title")
	require.NoError(t, err)
	assert.Equal(t, dcTerms+"title", iri)

	iri, err = pt.Expand("<urn:x:y>")
	require.NoError(t, err)
	assert.Equal(t, "urn:x:y", iri)

	_, err = pt.Expand("foaf:name")
	assert.ErrorIs(t, err, ErrPrefixNotFound)
	_, err = pt.Expand("title")
	assert.ErrorIs(t, err, ErrPrefixNotFound)

	curie, ok := pt.Compact("http://example.org/path")
	assert.True(t, ok)
	assert.Equal(t, "ex:path", curie)
	_, ok = pt.Compact("http://other.org/x")
	assert.False(t, ok)

	_, err = NewPrefixTable(Prefix{Name: "a:b", URI: "http://x/"})
	assert.Error(t, err)
	_, err = NewPrefixTable(Prefix{Name: "a"})
	assert.Error(t, err)
}
