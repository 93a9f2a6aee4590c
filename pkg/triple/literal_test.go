package triple

import (
	"testing"

	"github.com/cayleygraph/quad"
	"github.com/stretchr/testify/assert"
)

func TestEncodeDecode(t *testing.T) {
	cases := []struct {
		name     string
		value    quad.Value
		lexical  string
		datatype string
	}{
		{"string", quad.String("Report"), "Report", XSDString},
		{"integer", quad.Int(2024), "2024", XSDInteger},
		{"float", quad.Float(1.5), "1.5", XSDDouble},
		{"iri", quad.IRI("urn:doc:1"), "urn:doc:1", DatatypeIRI},
		{"lang", quad.LangString{Value: "Bericht", Lang: "de"}, "Bericht", "@de"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			lex, dt := Encode(tc.value)
			assert.Equal(t, tc.lexical, lex)
			assert.Equal(t, tc.datatype, dt)
			assert.Equal(t, tc.value, Decode(lex, dt))
		})
	}
}

func TestDecodeKeepsUnparsableLiterals(t *testing.T) {
	v := Decode("twelve", XSDInteger)
	assert.Equal(t, quad.TypedString{Value: "twelve", Type: XSDInteger}, v)
	assert.Equal(t, "twelve", Lexical(v))
}

func TestMatches(t *testing.T) {
	tr := Triple{Subject: "urn:doc:1", Predicate: "http://purl.org/dc/terms/title", Object: quad.String("Report")}

	assert.True(t, Matches(Pattern{}, tr))
	assert.True(t, Matches(Pattern{Subject: "urn:doc:1"}, tr))
	assert.True(t, Matches(Pattern{Subject: "urn:doc:1", Predicate: tr.Predicate, Object: quad.String("Report")}, tr))
	assert.False(t, Matches(Pattern{Subject: "urn:doc:2"}, tr))
	assert.False(t, Matches(Pattern{Object: quad.String("Other")}, tr))
	assert.False(t, Matches(Pattern{Object: quad.Int(1)}, tr))
}

func TestEqualAcrossRepresentations(t *testing.T) {
	assert.True(t, Equal(quad.Int(7), quad.TypedString{Value: "7", Type: XSDInteger}))
	assert.False(t, Equal(quad.Int(7), quad.String("7")))
	assert.True(t, Equal(nil, nil))
	assert.False(t, Equal(nil, quad.String("")))
}

func TestCounterKey(t *testing.T) {
	a := CounterKey(Pattern{Predicate: "p"}, Subject)
	b := CounterKey(Pattern{Predicate: "p"}, Object)
	c := CounterKey(Pattern{Predicate: "q"}, Subject)
	assert.NotEqual(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Equal(t, a, CounterKey(Pattern{Predicate: "p"}, Subject))
}
