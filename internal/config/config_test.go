package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ZanzyTHEbar/triplemap-go/pkg/model"
)

const docYAML = `
prefixes:
  - name: dc
    uri: http://purl.org/dc/terms/
kinds:
  - name: doc
    template: urn:doc:%
    countBy: title
    attributes:
      - name: title
        predicate: dc:title
        type: text
        required: true
      - name: tag
        predicate: dc:subject
        type: text
        cardinality: multi
`

func TestParse(t *testing.T) {
	reg, err := Parse(strings.NewReader(docYAML))
	require.NoError(t, err)
	assert.Equal(t, []string{"doc"}, reg.Kinds())

	s, err := reg.Schema("doc")
	require.NoError(t, err)
	assert.Equal(t, "urn:doc:%", s.Template())
	assert.Equal(t, "title", s.CountBy())
	assert.Equal(t, []string{"title"}, s.Required())

	tag, err := s.Describe("tag")
	require.NoError(t, err)
	assert.Equal(t, model.Multi, tag.Cardinality)
	assert.Equal(t, model.Text, tag.Type)
}

func TestParseRejects(t *testing.T) {
	tests := map[string]string{
		"unknown key": `
kinds:
  - name: doc
    template: urn:doc:%
    attributes:
      - name: title
        predicat: dc:title
`,
		"bad type": `
kinds:
  - name: doc
    template: urn:doc:%
    attributes:
      - name: title
        type: date
`,
		"bad cardinality": `
kinds:
  - name: doc
    template: urn:doc:%
    attributes:
      - name: title
        type: text
        cardinality: several
`,
		"unknown prefix": `
kinds:
  - name: doc
    template: urn:doc:%
    attributes:
      - name: title
        predicate: dc:title
        type: text
`,
		"duplicate kind": `
kinds:
  - name: doc
    template: urn:doc:%
  - name: doc
    template: urn:doc2:%
`,
	}
	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(doc))
			assert.Error(t, err)
		})
	}
}

func TestKindPrefixesExtendFilePrefixes(t *testing.T) {
	reg, err := Parse(strings.NewReader(`
prefixes:
  - name: dc
    uri: http://purl.org/dc/terms/
kinds:
  - name: image
    template: urn:image:%
    prefixes:
      - name: exif
        uri: http://www.w3.org/2003/12/exif/ns#
    attributes:
      - name: width
        predicate: exif:width
        type: integer
      - name: caption
        predicate: dc:description
        type: text
`))
	require.NoError(t, err)
	s, err := reg.Schema("image")
	require.NoError(t, err)

	iri, err := s.PredicateIRI("width")
	require.NoError(t, err)
	assert.Equal(t, "http://www.w3.org/2003/12/exif/ns#width", iri)
	assert.Len(t, s.Prefixes().List(), 2)
}

func TestLoadShippedSchema(t *testing.T) {
	reg, err := Load(filepath.Join("..", "..", "configs", "triplemap.yaml"))
	require.NoError(t, err)
	assert.Equal(t, []string{"doc", "image"}, reg.Kinds())
}

func TestFromRegistryRoundTrip(t *testing.T) {
	reg, err := Parse(strings.NewReader(docYAML))
	require.NoError(t, err)

	out, err := FromRegistry(reg).Marshal()
	require.NoError(t, err)

	again, err := Parse(strings.NewReader(string(out)))
	require.NoError(t, err)
	a, _ := reg.Schema("doc")
	b, _ := again.Schema("doc")
	assert.Equal(t, a.Attributes(), b.Attributes())
	assert.Equal(t, a.CountBy(), b.CountBy())
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
