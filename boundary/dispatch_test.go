package boundary

import (
	"math"
	"testing"

	gojson "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robert-malhotra/go-netcdf/internal/cdftest"
	"github.com/robert-malhotra/go-netcdf/internal/dtype"
	"github.com/robert-malhotra/go-netcdf/netcdf"
)

func TestParseElemType(t *testing.T) {
	for _, e := range ElemTypes {
		got, ok := ParseElemType(e.String())
		assert.True(t, ok)
		assert.Equal(t, e, got)
	}
	_, ok := ParseElemType("i64")
	assert.False(t, ok)
}

func TestReadDispatch(t *testing.T) {
	f, err := netcdf.OpenBytes(cdftest.New().
		Dim("n", 3).
		Var("level", dtype.Short, "n").Data(-1, 0, 300).
		Var("label", dtype.Char, "n").Data('a', 'b', 'c').
		Bytes())
	require.NoError(t, err)
	defer f.Close()

	elem, err := NativeElemType(f, "level")
	require.NoError(t, err)
	assert.Equal(t, ElemInt16, elem)

	elem, err = NativeElemType(f, "label")
	require.NoError(t, err)
	assert.Equal(t, ElemUint8, elem)

	_, err = NativeElemType(f, "missing")
	assert.ErrorIs(t, err, netcdf.ErrVariableNotFound)

	v, err := ReadValues(f, "level", ElemInt16, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, []int16{-1, 0, 300}, v)

	v, err = ReadValues(f, "level", ElemFloat64, []int{1}, nil)
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 300}, v)

	one, err := ReadValue(f, "label", ElemUint8, []int{2})
	require.NoError(t, err)
	assert.Equal(t, uint8('c'), one)

	_, err = ReadValue(f, "level", ElemType(42), []int{0})
	assert.Error(t, err)
}

func TestJSONValues(t *testing.T) {
	nan, inf := float32(math.NaN()), float32(math.Inf(1))

	got := JSONValues([]float32{1, nan, 3, inf})
	data, err := gojson.Marshal(got)
	require.NoError(t, err)
	assert.JSONEq(t, `[1,null,3,null]`, string(data))

	finite := []float64{0.5, 2}
	assert.Equal(t, finite, JSONValues(finite))
	assert.Equal(t, []uint16{97, 98}, JSONValues([]uint8{'a', 'b'}))
	assert.Equal(t, []int16{-1}, JSONValues([]int16{-1}))

	assert.Nil(t, JSONValue(math.NaN()))
	assert.Nil(t, JSONValue(float32(math.Inf(-1))))
	assert.Equal(t, float32(1.5), JSONValue(float32(1.5)))
	assert.Equal(t, int32(7), JSONValue(int32(7)))
}
