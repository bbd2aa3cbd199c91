//go:build wasip1

// Command ncwasi is a WASI reactor exposing the single-session netCDF API:
//
//	GOOS=wasip1 GOARCH=wasm go build -buildmode=c-shared -o ncwasi.wasm ./cmd/ncwasi
//
// Pointers are 32-bit offsets into linear memory. Hosts pass strings and
// index arrays through malloc, release returned strings with free_string and
// value descriptors ({ptr, len, cap} as three u32) with drop_bytes.
package main

import (
	"unsafe"

	"github.com/robert-malhotra/go-netcdf/boundary"
	"github.com/robert-malhotra/go-netcdf/internal/cabi"
	"github.com/robert-malhotra/go-netcdf/netcdf"
)

var exports = cabi.New(boundary.NewHeapAllocator())

func ptr(p uint32) unsafe.Pointer {
	return unsafe.Pointer(uintptr(p))
}

func addr(p unsafe.Pointer) uint32 {
	return uint32(uintptr(p))
}

func gostr(p uint32) string {
	return cabi.GoString(ptr(p))
}

func cstr(s string) uint32 {
	return addr(exports.CString(s))
}

func flag(ok bool) uint32 {
	if ok {
		return 1
	}
	return 0
}

//go:wasmexport malloc
func malloc(size uint32) uint32 {
	return addr(exports.Malloc(int(size)))
}

//go:wasmexport free
func free(p uint32) {
	exports.Free(ptr(p))
}

//go:wasmexport free_string
func freeString(p uint32) {
	exports.FreeString(ptr(p))
}

//go:wasmexport open_file
func openFile(path uint32) uint32 {
	return flag(exports.Session.Open(gostr(path)))
}

//go:wasmexport close_file
func closeFile() {
	exports.Session.Close()
}

//go:wasmexport get_title
func getTitle() uint32 {
	return cstr(exports.Session.Title())
}

//go:wasmexport get_string_attribute
func getStringAttribute(name uint32) uint32 {
	return cstr(exports.Session.StringAttribute(gostr(name)))
}

//go:wasmexport get_variables
func getVariables() uint32 {
	return cstr(exports.Session.Variables())
}

//go:wasmexport get_dimensions
func getDimensions() uint32 {
	return cstr(exports.Session.Dimensions())
}

//go:wasmexport get_variable_dimensions
func getVariableDimensions(name uint32) uint32 {
	return cstr(exports.Session.VariableDimensions(gostr(name)))
}

//go:wasmexport get_variable_type
func getVariableType(name uint32) uint32 {
	return cstr(exports.Session.VariableType(gostr(name)))
}

//go:wasmexport get_variable_string_attribute
func getVariableStringAttribute(variable, name uint32) uint32 {
	return cstr(exports.Session.VariableStringAttribute(gostr(variable), gostr(name)))
}

//go:wasmexport get_dimension_len
func getDimensionLen(name uint32) uint32 {
	return uint32(exports.Session.DimensionLength(gostr(name)))
}

//go:wasmexport drop_bytes
func dropBytes(desc uint32) uint32 {
	return flag(exports.DropBytes(ptr(desc)))
}

func value[T netcdf.Element](name, index, n uint32) T {
	return cabi.Value[T](exports, ptr(name), ptr(index), int(n))
}

func values[T netcdf.Element](name, start, startLen, end, endLen uint32) uint32 {
	return addr(cabi.Values[T](exports, ptr(name), ptr(start), int(startLen), ptr(end), int(endLen)))
}

// Narrow integer results are widened to i32, the smallest wasm value type.

//go:wasmexport get_i8_value_for
func getI8ValueFor(name, index, n uint32) int32 { return int32(value[int8](name, index, n)) }

//go:wasmexport get_i16_value_for
func getI16ValueFor(name, index, n uint32) int32 { return int32(value[int16](name, index, n)) }

//go:wasmexport get_i32_value_for
func getI32ValueFor(name, index, n uint32) int32 { return value[int32](name, index, n) }

//go:wasmexport get_u8_value_for
func getU8ValueFor(name, index, n uint32) uint32 { return uint32(value[uint8](name, index, n)) }

//go:wasmexport get_u16_value_for
func getU16ValueFor(name, index, n uint32) uint32 { return uint32(value[uint16](name, index, n)) }

//go:wasmexport get_u32_value_for
func getU32ValueFor(name, index, n uint32) uint32 { return value[uint32](name, index, n) }

//go:wasmexport get_f32_value_for
func getF32ValueFor(name, index, n uint32) float32 { return value[float32](name, index, n) }

//go:wasmexport get_f64_value_for
func getF64ValueFor(name, index, n uint32) float64 { return value[float64](name, index, n) }

//go:wasmexport get_i8_values_for
func getI8ValuesFor(name, start, startLen, end, endLen uint32) uint32 {
	return values[int8](name, start, startLen, end, endLen)
}

//go:wasmexport get_i16_values_for
func getI16ValuesFor(name, start, startLen, end, endLen uint32) uint32 {
	return values[int16](name, start, startLen, end, endLen)
}

//go:wasmexport get_i32_values_for
func getI32ValuesFor(name, start, startLen, end, endLen uint32) uint32 {
	return values[int32](name, start, startLen, end, endLen)
}

//go:wasmexport get_u8_values_for
func getU8ValuesFor(name, start, startLen, end, endLen uint32) uint32 {
	return values[uint8](name, start, startLen, end, endLen)
}

//go:wasmexport get_u16_values_for
func getU16ValuesFor(name, start, startLen, end, endLen uint32) uint32 {
	return values[uint16](name, start, startLen, end, endLen)
}

//go:wasmexport get_u32_values_for
func getU32ValuesFor(name, start, startLen, end, endLen uint32) uint32 {
	return values[uint32](name, start, startLen, end, endLen)
}

//go:wasmexport get_f32_values_for
func getF32ValuesFor(name, start, startLen, end, endLen uint32) uint32 {
	return values[float32](name, start, startLen, end, endLen)
}

//go:wasmexport get_f64_values_for
func getF64ValuesFor(name, start, startLen, end, endLen uint32) uint32 {
	return values[float64](name, start, startLen, end, endLen)
}

func main() {}
