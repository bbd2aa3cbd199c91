package boundary

import (
	"fmt"
	"math"
	"slices"

	"github.com/robert-malhotra/go-netcdf/netcdf"
)

// ParseElemType looks up an element type by its short name (i8, f64, ...).
func ParseElemType(name string) (ElemType, bool) {
	for _, e := range ElemTypes {
		if e.String() == name {
			return e, true
		}
	}
	return 0, false
}

// NativeElemType returns the element type a variable is read as when the
// caller does not choose one.
func NativeElemType(f *netcdf.File, name string) (ElemType, error) {
	t, err := f.VariableType(name)
	if err != nil {
		return 0, err
	}
	e, ok := ParseElemType(t.NativeName())
	if !ok {
		return 0, fmt.Errorf("no element type for %s", t)
	}
	return e, nil
}

// ReadValue reads one element as elem. The result holds the Go type that
// elem names.
func ReadValue(f *netcdf.File, name string, elem ElemType, index []int) (any, error) {
	switch elem {
	case ElemInt8:
		return netcdf.Value[int8](f, name, index)
	case ElemInt16:
		return netcdf.Value[int16](f, name, index)
	case ElemInt32:
		return netcdf.Value[int32](f, name, index)
	case ElemUint8:
		return netcdf.Value[uint8](f, name, index)
	case ElemUint16:
		return netcdf.Value[uint16](f, name, index)
	case ElemUint32:
		return netcdf.Value[uint32](f, name, index)
	case ElemFloat32:
		return netcdf.Value[float32](f, name, index)
	case ElemFloat64:
		return netcdf.Value[float64](f, name, index)
	default:
		return nil, fmt.Errorf("unsupported element type %s", elem)
	}
}

// ReadValues reads the window [start, end) as elem. The result is a slice
// of the Go type that elem names.
func ReadValues(f *netcdf.File, name string, elem ElemType, start, end []int) (any, error) {
	switch elem {
	case ElemInt8:
		return netcdf.Values[int8](f, name, start, end)
	case ElemInt16:
		return netcdf.Values[int16](f, name, start, end)
	case ElemInt32:
		return netcdf.Values[int32](f, name, start, end)
	case ElemUint8:
		return netcdf.Values[uint8](f, name, start, end)
	case ElemUint16:
		return netcdf.Values[uint16](f, name, start, end)
	case ElemUint32:
		return netcdf.Values[uint32](f, name, start, end)
	case ElemFloat32:
		return netcdf.Values[float32](f, name, start, end)
	case ElemFloat64:
		return netcdf.Values[float64](f, name, start, end)
	default:
		return nil, fmt.Errorf("unsupported element type %s", elem)
	}
}

// JSONValue returns v ready for a JSON encoder: NaN and infinities have no
// JSON form and become nil.
func JSONValue(v any) any {
	switch x := v.(type) {
	case float32:
		if nonFinite(x) {
			return nil
		}
	case float64:
		if nonFinite(x) {
			return nil
		}
	}
	return v
}

// JSONValues returns a slice read by ReadValues ready for a JSON encoder.
// Float slices holding NaN or infinities become slices of pointers with nil
// in those places, and []uint8 is widened so it is not encoded as base64.
func JSONValues(values any) any {
	switch vs := values.(type) {
	case []float32:
		return nullNonFinite(vs)
	case []float64:
		return nullNonFinite(vs)
	case []uint8:
		wide := make([]uint16, len(vs))
		for i, x := range vs {
			wide[i] = uint16(x)
		}
		return wide
	}
	return values
}

func nonFinite[F float32 | float64](x F) bool {
	return math.IsNaN(float64(x)) || math.IsInf(float64(x), 0)
}

func nullNonFinite[F float32 | float64](vs []F) any {
	if !slices.ContainsFunc(vs, nonFinite[F]) {
		return vs
	}
	out := make([]*F, len(vs))
	for i := range vs {
		if !nonFinite(vs[i]) {
			out[i] = &vs[i]
		}
	}
	return out
}
