package model

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/cayleygraph/quad"

	"github.com/ZanzyTHEbar/triplemap-go/pkg/triple"
)

// ValueType is the declared type of an attribute's values.
type ValueType int

const (
	Unspecified ValueType = iota
	Text
	Integer
	Float
)

func (t ValueType) String() string {
	switch t {
	case Text:
		return "text"
	case Integer:
		return "integer"
	case Float:
		return "float"
	default:
		return "unspecified"
	}
}

// ParseValueType accepts the names produced by String, case-insensitively.
// An empty name yields Unspecified.
func ParseValueType(s string) (ValueType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return Unspecified, nil
	case "text", "string":
		return Text, nil
	case "integer", "int":
		return Integer, nil
	case "float", "double", "decimal":
		return Float, nil
	}
	return Unspecified, fmt.Errorf("unknown value type %q", s)
}

// Cardinality says whether an attribute holds one value or a set of values.
type Cardinality int

const (
	Single Cardinality = iota
	Multi
)

func (c Cardinality) String() string {
	if c == Multi {
		return "multi"
	}
	return "single"
}

// ParseCardinality accepts "single" and "multi". An empty name yields Single.
func ParseCardinality(s string) (Cardinality, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "single", "one":
		return Single, nil
	case "multi", "many":
		return Multi, nil
	}
	return Single, fmt.Errorf("unknown cardinality %q", s)
}

// Check verifies that v may be stored under t and returns the literal to
// write. Integer also accepts a float or json.Number whose value is integral.
func (t ValueType) Check(v any) (quad.Value, error) {
	switch t {
	case Unspecified:
		return nil, ErrTypeNotSpecified
	case Text:
		if s, ok := v.(string); ok {
			return quad.String(s), nil
		}
	case Integer:
		if n, ok := asInteger(v); ok {
			return quad.Int(n), nil
		}
	case Float:
		if f, ok := asFloat(v); ok {
			return quad.Float(f), nil
		}
	}
	return nil, fmt.Errorf("%w: %T passed but %s is needed", ErrTypeMismatch, v, t)
}

// Coerce converts a stored lexical form to the Go value of t: string, int64
// or float64. A fractional lexical read as Integer is truncated.
func (t ValueType) Coerce(lexical string) (any, error) {
	switch t {
	case Text:
		return lexical, nil
	case Integer:
		if n, err := strconv.ParseInt(lexical, 10, 64); err == nil {
			return n, nil
		}
		f, err := strconv.ParseFloat(lexical, 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, fmt.Errorf("%w: %q is not an integer", ErrTypeMismatch, lexical)
		}
		return int64(f), nil
	case Float:
		f, err := strconv.ParseFloat(lexical, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %q is not a float", ErrTypeMismatch, lexical)
		}
		return f, nil
	}
	return nil, ErrTypeNotSpecified
}

// Parse reads command-line or form text as a value of t. Unlike Coerce it
// rejects fractional text for Integer.
func (t ValueType) Parse(text string) (any, error) {
	switch t {
	case Integer:
		n, err := strconv.ParseInt(strings.TrimSpace(text), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %q is not an integer", ErrTypeMismatch, text)
		}
		return n, nil
	case Float:
		return t.Coerce(strings.TrimSpace(text))
	}
	return t.Coerce(text)
}

func (t ValueType) decode(v quad.Value) (any, error) {
	return t.Coerce(triple.Lexical(v))
}

func asInteger(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int8:
		return int64(n), true
	case int16:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case uint:
		return int64(n), uint64(n) <= math.MaxInt64
	case uint8:
		return int64(n), true
	case uint16:
		return int64(n), true
	case uint32:
		return int64(n), true
	case uint64:
		return int64(n), n <= math.MaxInt64
	case float32:
		return integral(float64(n))
	case float64:
		return integral(n)
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return i, true
		}
		if f, err := n.Float64(); err == nil {
			return integral(f)
		}
	}
	return 0, false
}

func integral(f float64) (int64, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, false
	}
	if f < math.MinInt64 || f >= math.MaxInt64 {
		return 0, false
	}
	return int64(f), true
}

func asFloat(v any) (float64, bool) {
	switch f := v.(type) {
	case float32:
		return float64(f), true
	case float64:
		return f, true
	case json.Number:
		x, err := f.Float64()
		return x, err == nil
	}
	return 0, false
}

// literalOf converts v to the literal it would be stored as when no type is
// declared for it.
func literalOf(v any) (quad.Value, bool) {
	switch x := v.(type) {
	case string:
		return quad.String(x), true
	case float32:
		return quad.Float(float64(x)), true
	case float64:
		return quad.Float(x), true
	}
	if n, ok := asInteger(v); ok {
		return quad.Int(n), true
	}
	if f, ok := asFloat(v); ok {
		return quad.Float(f), true
	}
	return nil, false
}
