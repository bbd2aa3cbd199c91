package wasmhost

import (
	"bytes"
	"encoding/binary"
	"math"

	"github.com/tetratelabs/wazero/api"

	"github.com/robert-malhotra/go-netcdf/boundary"
)

// maxString bounds how far readString scans for a terminator.
const maxString = 1 << 20

// readString reads the NUL-terminated string at ptr. Read returns a view of
// guest memory, so scanning the whole window does not copy it.
func readString(mem api.Memory, ptr uint32) (string, error) {
	size := mem.Size()
	if ptr >= size {
		return "", ErrOutOfBounds
	}
	buf, ok := mem.Read(ptr, min(size-ptr, maxString))
	if !ok {
		return "", ErrOutOfBounds
	}
	n := bytes.IndexByte(buf, 0)
	if n < 0 {
		return "", ErrOutOfBounds
	}
	return string(buf[:n]), nil
}

// descriptor is the guest's {ptr, len, cap} range result.
type descriptor struct {
	ptr, len, cap uint32
}

func readDescriptor(mem api.Memory, at uint32) (descriptor, error) {
	buf, ok := mem.Read(at, 12)
	if !ok {
		return descriptor{}, ErrOutOfBounds
	}
	return descriptor{
		ptr: binary.LittleEndian.Uint32(buf[0:]),
		len: binary.LittleEndian.Uint32(buf[4:]),
		cap: binary.LittleEndian.Uint32(buf[8:]),
	}, nil
}

// decodeValues copies n little-endian elements of type elem out of raw into
// a slice of the matching Go type.
func decodeValues(elem boundary.ElemType, raw []byte, n int) any {
	le := binary.LittleEndian
	switch elem {
	case boundary.ElemInt8:
		out := make([]int8, n)
		for i := range out {
			out[i] = int8(raw[i])
		}
		return out
	case boundary.ElemUint8:
		out := make([]uint8, n)
		copy(out, raw)
		return out
	case boundary.ElemInt16:
		out := make([]int16, n)
		for i := range out {
			out[i] = int16(le.Uint16(raw[2*i:]))
		}
		return out
	case boundary.ElemUint16:
		out := make([]uint16, n)
		for i := range out {
			out[i] = le.Uint16(raw[2*i:])
		}
		return out
	case boundary.ElemInt32:
		out := make([]int32, n)
		for i := range out {
			out[i] = int32(le.Uint32(raw[4*i:]))
		}
		return out
	case boundary.ElemUint32:
		out := make([]uint32, n)
		for i := range out {
			out[i] = le.Uint32(raw[4*i:])
		}
		return out
	case boundary.ElemFloat32:
		out := make([]float32, n)
		for i := range out {
			out[i] = math.Float32frombits(le.Uint32(raw[4*i:]))
		}
		return out
	case boundary.ElemFloat64:
		out := make([]float64, n)
		for i := range out {
			out[i] = math.Float64frombits(le.Uint64(raw[8*i:]))
		}
		return out
	default:
		return nil
	}
}

// decodeScalar converts a raw wasm result into the Go type elem names.
// Narrow integers arrive widened to i32.
func decodeScalar(elem boundary.ElemType, raw uint64) any {
	switch elem {
	case boundary.ElemInt8:
		return int8(int32(raw))
	case boundary.ElemInt16:
		return int16(int32(raw))
	case boundary.ElemInt32:
		return int32(raw)
	case boundary.ElemUint8:
		return uint8(raw)
	case boundary.ElemUint16:
		return uint16(raw)
	case boundary.ElemUint32:
		return uint32(raw)
	case boundary.ElemFloat32:
		return api.DecodeF32(raw)
	case boundary.ElemFloat64:
		return api.DecodeF64(raw)
	default:
		return nil
	}
}
