package dtype

import (
	"encoding/binary"
	"fmt"
	"math"
	"strings"

	"golang.org/x/exp/constraints"
)

// Type is a netCDF classic external type tag.
type Type uint32

// External type tags.
const (
	Byte   Type = 1
	Char   Type = 2
	Short  Type = 3
	Int    Type = 4
	Float  Type = 5
	Double Type = 6
)

// Element is the set of Go element types values can be extracted as.
type Element interface {
	~int8 | ~int16 | ~int32 | ~uint8 | ~uint16 | ~uint32 | ~float32 | ~float64
}

// Valid reports whether t is one of the six classic types.
func (t Type) Valid() bool {
	return t >= Byte && t <= Double
}

// Size returns the external size of one element in bytes, or 0 for an
// invalid tag.
func (t Type) Size() int {
	switch t {
	case Byte, Char:
		return 1
	case Short:
		return 2
	case Int, Float:
		return 4
	case Double:
		return 8
	default:
		return 0
	}
}

// String returns the CDL name of the type.
func (t Type) String() string {
	switch t {
	case Byte:
		return "byte"
	case Char:
		return "char"
	case Short:
		return "short"
	case Int:
		return "int"
	case Float:
		return "float"
	case Double:
		return "double"
	default:
		return fmt.Sprintf("type(%d)", uint32(t))
	}
}

// NativeName returns the short element type name used by host bindings
// (i8, u8, i16, i32, f32, f64).
func (t Type) NativeName() string {
	switch t {
	case Byte:
		return "i8"
	case Char:
		return "u8"
	case Short:
		return "i16"
	case Int:
		return "i32"
	case Float:
		return "f32"
	case Double:
		return "f64"
	default:
		return ""
	}
}

func convert[D Element, S constraints.Integer | constraints.Float](s S) D {
	return D(s)
}

// Decode converts one big-endian stored element to T.
// b must hold at least t.Size() bytes.
func Decode[T Element](t Type, b []byte) T {
	switch t {
	case Byte:
		return convert[T](int8(b[0]))
	case Char:
		return convert[T](b[0])
	case Short:
		return convert[T](int16(binary.BigEndian.Uint16(b)))
	case Int:
		return convert[T](int32(binary.BigEndian.Uint32(b)))
	case Float:
		return convert[T](math.Float32frombits(binary.BigEndian.Uint32(b)))
	case Double:
		return convert[T](math.Float64frombits(binary.BigEndian.Uint64(b)))
	default:
		var zero T
		return zero
	}
}

// DecodeSlice converts consecutive stored elements into dst.
// It decodes min(len(dst), len(src)/t.Size()) elements and returns the count.
func DecodeSlice[T Element](t Type, src []byte, dst []T) int {
	size := t.Size()
	if size == 0 {
		return 0
	}
	n := min(len(dst), len(src)/size)
	for i := 0; i < n; i++ {
		dst[i] = Decode[T](t, src[i*size:])
	}
	return n
}

// ToLittleEndian re-encodes big-endian stored elements of type t in place.
func ToLittleEndian(t Type, data []byte) {
	size := t.Size()
	if size <= 1 {
		return
	}
	for off := 0; off+size <= len(data); off += size {
		elem := data[off : off+size]
		for i, j := 0, size-1; i < j; i, j = i+1, j-1 {
			elem[i], elem[j] = elem[j], elem[i]
		}
	}
}

// AttributeValue decodes n stored elements of type t.
// Char payloads become a string without trailing NUL bytes; numeric payloads
// become []int8, []int16, []int32, []float32 or []float64.
func AttributeValue(t Type, raw []byte, n int) (any, error) {
	size := t.Size()
	if size == 0 {
		return nil, fmt.Errorf("unknown type tag %d", uint32(t))
	}
	if len(raw) < n*size {
		return nil, fmt.Errorf("attribute payload too short: %d bytes for %d elements", len(raw), n)
	}
	raw = raw[:n*size]

	switch t {
	case Char:
		return strings.TrimRight(string(raw), "\x00"), nil
	case Byte:
		out := make([]int8, n)
		DecodeSlice(t, raw, out)
		return out, nil
	case Short:
		out := make([]int16, n)
		DecodeSlice(t, raw, out)
		return out, nil
	case Int:
		out := make([]int32, n)
		DecodeSlice(t, raw, out)
		return out, nil
	case Float:
		out := make([]float32, n)
		DecodeSlice(t, raw, out)
		return out, nil
	default:
		out := make([]float64, n)
		DecodeSlice(t, raw, out)
		return out, nil
	}
}
