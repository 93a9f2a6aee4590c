package triple

import (
	"strconv"
	"strings"

	"github.com/cayleygraph/quad"
)

// XML Schema datatypes used to persist literals in SQL backends.
const (
	XSDString  = "http://www.w3.org/2001/XMLSchema#string"
	XSDInteger = "http://www.w3.org/2001/XMLSchema#integer"
	XSDDouble  = "http://www.w3.org/2001/XMLSchema#double"
	XSDBoolean = "http://www.w3.org/2001/XMLSchema#boolean"

	// DatatypeIRI marks an object that is a resource rather than a literal.
	DatatypeIRI = "@id"

	langPrefix = "@"
)

// Encode splits an object into its lexical form and datatype.
func Encode(v quad.Value) (lexical, datatype string) {
	switch v := v.(type) {
	case nil:
		return "", ""
	case quad.String:
		return string(v), XSDString
	case quad.Int:
		return strconv.FormatInt(int64(v), 10), XSDInteger
	case quad.Float:
		return strconv.FormatFloat(float64(v), 'g', -1, 64), XSDDouble
	case quad.Bool:
		return strconv.FormatBool(bool(v)), XSDBoolean
	case quad.IRI:
		return string(v), DatatypeIRI
	case quad.TypedString:
		return string(v.Value), string(v.Type)
	case quad.LangString:
		return string(v.Value), langPrefix + v.Lang
	default:
		return v.String(), ""
	}
}

// Decode rebuilds an object from the columns written by Encode. Lexical forms
// that do not parse under their datatype are kept as typed strings.
func Decode(lexical, datatype string) quad.Value {
	switch {
	case datatype == "" || datatype == XSDString:
		return quad.String(lexical)
	case datatype == DatatypeIRI:
		return quad.IRI(lexical)
	case datatype == XSDInteger:
		if n, err := strconv.ParseInt(lexical, 10, 64); err == nil {
			return quad.Int(n)
		}
	case datatype == XSDDouble:
		if f, err := strconv.ParseFloat(lexical, 64); err == nil {
			return quad.Float(f)
		}
	case datatype == XSDBoolean:
		if b, err := strconv.ParseBool(lexical); err == nil {
			return quad.Bool(b)
		}
	case strings.HasPrefix(datatype, langPrefix):
		return quad.LangString{Value: quad.String(lexical), Lang: strings.TrimPrefix(datatype, langPrefix)}
	}
	return quad.TypedString{Value: quad.String(lexical), Type: quad.IRI(datatype)}
}

// Lexical returns the plain text of an object, without quoting or datatype.
func Lexical(v quad.Value) string {
	l, _ := Encode(v)
	return l
}
