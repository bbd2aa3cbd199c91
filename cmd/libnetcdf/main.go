// Command libnetcdf builds a C shared library over a single global netCDF
// session:
//
//	go build -buildmode=c-shared -o libnetcdf.so ./cmd/libnetcdf
//
// Strings returned by the library must be released with free_string and
// value buffers with drop_bytes, each exactly once.
package main

/*
#include <stdbool.h>
#include <stddef.h>
#include <stdint.h>
#include <stdlib.h>

typedef struct {
	void *ptr;
	size_t len;
	size_t cap;
} nc_buffer;
*/
import "C"

import (
	"errors"
	"os"
	"unsafe"

	"github.com/robert-malhotra/go-netcdf/boundary"
	"github.com/robert-malhotra/go-netcdf/internal/cabi"
	"github.com/robert-malhotra/go-netcdf/internal/logging"
	"github.com/robert-malhotra/go-netcdf/netcdf"
)

// cAllocator hands out C heap memory, which the host may keep after the
// call returns.
type cAllocator struct{}

func (cAllocator) Alloc(size int) (unsafe.Pointer, error) {
	p := C.malloc(C.size_t(size))
	if p == nil {
		return nil, errors.New("malloc failed")
	}
	return p, nil
}

func (cAllocator) Free(p unsafe.Pointer) {
	C.free(p)
}

var exports = newExports()

func newExports() *cabi.Exports {
	var opts []boundary.SessionOption
	if level := os.Getenv("NCVIEW_LOG_LEVEL"); level != "" {
		if l, err := logging.New(level, false); err == nil {
			opts = append(opts, boundary.WithSessionLogger(logging.Component(l, "libnetcdf")))
		}
	}
	return cabi.New(cAllocator{}, opts...)
}

func cstr(s string) *C.char {
	return (*C.char)(exports.CString(s))
}

func gostr(p *C.char) string {
	return cabi.GoString(unsafe.Pointer(p))
}

//export open_file
func open_file(path *C.char) C.bool {
	return C.bool(exports.Session.Open(gostr(path)))
}

//export close_file
func close_file() {
	exports.Session.Close()
}

//export free_string
func free_string(s *C.char) {
	exports.FreeString(unsafe.Pointer(s))
}

//export get_title
func get_title() *C.char {
	return cstr(exports.Session.Title())
}

//export get_string_attribute
func get_string_attribute(name *C.char) *C.char {
	return cstr(exports.Session.StringAttribute(gostr(name)))
}

//export get_variables
func get_variables() *C.char {
	return cstr(exports.Session.Variables())
}

//export get_dimensions
func get_dimensions() *C.char {
	return cstr(exports.Session.Dimensions())
}

//export get_variable_dimensions
func get_variable_dimensions(name *C.char) *C.char {
	return cstr(exports.Session.VariableDimensions(gostr(name)))
}

//export get_variable_type
func get_variable_type(name *C.char) *C.char {
	return cstr(exports.Session.VariableType(gostr(name)))
}

//export get_variable_string_attribute
func get_variable_string_attribute(variable, name *C.char) *C.char {
	return cstr(exports.Session.VariableStringAttribute(gostr(variable), gostr(name)))
}

//export get_dimension_len
func get_dimension_len(name *C.char) C.size_t {
	return C.size_t(exports.Session.DimensionLength(gostr(name)))
}

//export drop_bytes
func drop_bytes(b *C.nc_buffer) C.bool {
	return C.bool(exports.DropBytes(unsafe.Pointer(b)))
}

func value[T netcdf.Element](name *C.char, index *C.int32_t, n C.size_t) T {
	return cabi.Value[T](exports, unsafe.Pointer(name), unsafe.Pointer(index), int(n))
}

func values[T netcdf.Element](name *C.char, start *C.int32_t, startLen C.size_t, end *C.int32_t, endLen C.size_t) *C.nc_buffer {
	return (*C.nc_buffer)(cabi.Values[T](exports, unsafe.Pointer(name),
		unsafe.Pointer(start), int(startLen), unsafe.Pointer(end), int(endLen)))
}

//export get_i8_value_for
func get_i8_value_for(name *C.char, index *C.int32_t, n C.size_t) C.int8_t {
	return C.int8_t(value[int8](name, index, n))
}

//export get_i16_value_for
func get_i16_value_for(name *C.char, index *C.int32_t, n C.size_t) C.int16_t {
	return C.int16_t(value[int16](name, index, n))
}

//export get_i32_value_for
func get_i32_value_for(name *C.char, index *C.int32_t, n C.size_t) C.int32_t {
	return C.int32_t(value[int32](name, index, n))
}

//export get_u8_value_for
func get_u8_value_for(name *C.char, index *C.int32_t, n C.size_t) C.uint8_t {
	return C.uint8_t(value[uint8](name, index, n))
}

//export get_u16_value_for
func get_u16_value_for(name *C.char, index *C.int32_t, n C.size_t) C.uint16_t {
	return C.uint16_t(value[uint16](name, index, n))
}

//export get_u32_value_for
func get_u32_value_for(name *C.char, index *C.int32_t, n C.size_t) C.uint32_t {
	return C.uint32_t(value[uint32](name, index, n))
}

//export get_f32_value_for
func get_f32_value_for(name *C.char, index *C.int32_t, n C.size_t) C.float {
	return C.float(value[float32](name, index, n))
}

//export get_f64_value_for
func get_f64_value_for(name *C.char, index *C.int32_t, n C.size_t) C.double {
	return C.double(value[float64](name, index, n))
}

//export get_i8_values_for
func get_i8_values_for(name *C.char, start *C.int32_t, startLen C.size_t, end *C.int32_t, endLen C.size_t) *C.nc_buffer {
	return values[int8](name, start, startLen, end, endLen)
}

//export get_i16_values_for
func get_i16_values_for(name *C.char, start *C.int32_t, startLen C.size_t, end *C.int32_t, endLen C.size_t) *C.nc_buffer {
	return values[int16](name, start, startLen, end, endLen)
}

//export get_i32_values_for
func get_i32_values_for(name *C.char, start *C.int32_t, startLen C.size_t, end *C.int32_t, endLen C.size_t) *C.nc_buffer {
	return values[int32](name, start, startLen, end, endLen)
}

//export get_u8_values_for
func get_u8_values_for(name *C.char, start *C.int32_t, startLen C.size_t, end *C.int32_t, endLen C.size_t) *C.nc_buffer {
	return values[uint8](name, start, startLen, end, endLen)
}

//export get_u16_values_for
func get_u16_values_for(name *C.char, start *C.int32_t, startLen C.size_t, end *C.int32_t, endLen C.size_t) *C.nc_buffer {
	return values[uint16](name, start, startLen, end, endLen)
}

//export get_u32_values_for
func get_u32_values_for(name *C.char, start *C.int32_t, startLen C.size_t, end *C.int32_t, endLen C.size_t) *C.nc_buffer {
	return values[uint32](name, start, startLen, end, endLen)
}

//export get_f32_values_for
func get_f32_values_for(name *C.char, start *C.int32_t, startLen C.size_t, end *C.int32_t, endLen C.size_t) *C.nc_buffer {
	return values[float32](name, start, startLen, end, endLen)
}

//export get_f64_values_for
func get_f64_values_for(name *C.char, start *C.int32_t, startLen C.size_t, end *C.int32_t, endLen C.size_t) *C.nc_buffer {
	return values[float64](name, start, startLen, end, endLen)
}

func main() {}
