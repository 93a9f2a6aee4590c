package model

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/cayleygraph/quad"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheck(t *testing.T) {
	tests := []struct {
		name string
		typ  ValueType
		in   any
		want quad.Value
		err  error
	}{
		{"text", Text, "hello", quad.String("hello"), nil},
		{"text rejects int", Text, 1, nil, ErrTypeMismatch},
		{"int", Integer, 5, quad.Int(5), nil},
		{"int32", Integer, int32(-5), quad.Int(-5), nil},
		{"integral float", Integer, 3.0, quad.Int(3), nil},
		{"fractional float", Integer, 3.5, nil, ErrTypeMismatch},
		{"nan", Integer, math.NaN(), nil, ErrTypeMismatch},
		{"huge uint64", Integer, uint64(math.MaxUint64), nil, ErrTypeMismatch},
		{"json integer", Integer, json.Number("17"), quad.Int(17), nil},
		{"json integral float", Integer, json.Number("17.0"), quad.Int(17), nil},
		{"int text", Integer, "17", nil, ErrTypeMismatch},
		{"float", Float, 2.5, quad.Float(2.5), nil},
		{"json float", Float, json.Number("2.5"), quad.Float(2.5), nil},
		{"float rejects int", Float, 2, nil, ErrTypeMismatch},
		{"unspecified", Unspecified, "x", nil, ErrTypeNotSpecified},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.typ.Check(tt.in)
			if tt.err != nil {
				assert.ErrorIs(t, err, tt.err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCoerce(t *testing.T) {
	v, err := Integer.Coerce("42")
	require.NoError(t, err)
	assert.Equal(t, int64(42), v)

	v, err = Integer.Coerce("4.9")
	require.NoError(t, err)
	assert.Equal(t, int64(4), v)

	_, err = Integer.Coerce("four")
	assert.ErrorIs(t, err, ErrTypeMismatch)

	v, err = Float.Coerce("1e3")
	require.NoError(t, err)
	assert.Equal(t, 1000.0, v)

	v, err = Text.Coerce("  spaced ")
	require.NoError(t, err)
	assert.Equal(t, "  spaced ", v)

	_, err = Unspecified.Coerce("x")
	assert.ErrorIs(t, err, ErrTypeNotSpecified)
}

func TestParse(t *testing.T) {
	v, err := Integer.Parse(" 7 ")
	require.NoError(t, err)
	assert.Equal(t, int64(7), v)

	_, err = Integer.Parse("7.5")
	assert.ErrorIs(t, err, ErrTypeMismatch)

	v, err = Float.Parse("7.5")
	require.NoError(t, err)
	assert.Equal(t, 7.5, v)
}

func TestParseNames(t *testing.T) {
	for in, want := range map[string]ValueType{"": Unspecified, "Text": Text, "int": Integer, "double": Float} {
		got, err := ParseValueType(in)
		require.NoError(t, err)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseValueType("date")
	assert.Error(t, err)

	c, err := ParseCardinality("MULTI")
	require.NoError(t, err)
	assert.Equal(t, Multi, c)
	c, err = ParseCardinality("")
	require.NoError(t, err)
	assert.Equal(t, Single, c)
	_, err = ParseCardinality("some")
	assert.Error(t, err)
}
