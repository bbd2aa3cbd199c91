//go:build js && wasm

package main

import (
	"syscall/js"
	"unsafe"

	"github.com/robert-malhotra/go-netcdf/boundary"
	"github.com/robert-malhotra/go-netcdf/netcdf"
)

// handle wraps one open file. Every method is a js.Func bound to the
// returned object; close releases them.
type handle struct {
	file  *netcdf.File
	funcs []js.Func
}

func newHandle(f *netcdf.File) js.Value {
	h := &handle{file: f}
	obj := js.Global().Get("Object").New()
	h.bind(obj, "get_map_size", h.mapSize)
	h.bind(obj, "get_variables", h.variables)
	h.bind(obj, "get_dimensions", h.dimensions)
	h.bind(obj, "get_variable_size", h.variableSize)
	h.bind(obj, "get_attribute", h.attribute)
	h.bind(obj, "load_data_for", h.loadDataFor)
	h.bind(obj, "get_value", h.value)
	h.bind(obj, "get_values", h.values)
	h.bind(obj, "close", h.close)
	return obj
}

func (h *handle) bind(obj js.Value, name string, fn func(args []js.Value) any) {
	f := js.FuncOf(func(_ js.Value, args []js.Value) any { return fn(args) })
	h.funcs = append(h.funcs, f)
	obj.Set(name, f)
}

func (h *handle) mapSize(args []js.Value) any {
	n, err := h.file.MapSize()
	if err != nil {
		return errorObject(err)
	}
	return n
}

func (h *handle) variables(args []js.Value) any {
	vars, err := h.file.Variables()
	if err != nil {
		return errorObject(err)
	}
	return toJS(vars)
}

func (h *handle) dimensions(args []js.Value) any {
	return toJS(h.file.Dimensions())
}

func (h *handle) variableSize(args []js.Value) any {
	name, err := stringArg(args, 0)
	if err != nil {
		return errorObject(err)
	}
	return h.file.VariableSize(name)
}

// attribute returns the global char attribute or null.
func (h *handle) attribute(args []js.Value) any {
	name, err := stringArg(args, 0)
	if err != nil {
		return errorObject(err)
	}
	s, ok := h.file.Attribute(name)
	if !ok {
		return js.Null()
	}
	return s
}

// loadDataFor fills a Uint8Array with little-endian elements starting at
// index and returns the number of elements written.
func (h *handle) loadDataFor(args []js.Value) any {
	name, err := stringArg(args, 0)
	if err != nil {
		return errorObject(err)
	}
	index, err := indices(arg(args, 1))
	if err != nil {
		return errorObject(err)
	}
	dst := arg(args, 2)
	if dst.Type() != js.TypeObject || !dst.InstanceOf(js.Global().Get("Uint8Array")) {
		return errorObject(badArgument("argument 2 must be a Uint8Array"))
	}
	buf := make([]byte, dst.Get("length").Int())
	n, err := h.file.LoadData(name, index, buf)
	if err != nil {
		return errorObject(err)
	}
	js.CopyBytesToJS(dst, buf)
	return n
}

// elem picks the element type named by v, or the variable's own.
func (h *handle) elem(variable string, v js.Value) (boundary.ElemType, error) {
	if v.Type() == js.TypeString {
		if e, ok := boundary.ParseElemType(v.String()); ok {
			return e, nil
		}
	}
	return boundary.NativeElemType(h.file, variable)
}

// value(variable, index, type?)
func (h *handle) value(args []js.Value) any {
	name, err := stringArg(args, 0)
	if err != nil {
		return errorObject(err)
	}
	index, err := indices(arg(args, 1))
	if err != nil {
		return errorObject(err)
	}
	e, err := h.elem(name, arg(args, 2))
	if err != nil {
		return errorObject(err)
	}
	v, err := boundary.ReadValue(h.file, name, e, index)
	if err != nil {
		return errorObject(err)
	}
	return v
}

// values(variable, start, end, type?) returns a typed array of the element
// type: Float32Array for f32, Int16Array for i16 and so on.
func (h *handle) values(args []js.Value) any {
	name, err := stringArg(args, 0)
	if err != nil {
		return errorObject(err)
	}
	start, err := indices(arg(args, 1))
	if err != nil {
		return errorObject(err)
	}
	end, err := indices(arg(args, 2))
	if err != nil {
		return errorObject(err)
	}
	e, err := h.elem(name, arg(args, 3))
	if err != nil {
		return errorObject(err)
	}
	v, err := boundary.ReadValues(h.file, name, e, start, end)
	if err != nil {
		return errorObject(err)
	}

	switch vs := v.(type) {
	case []int8:
		return typedArray("Int8Array", vs)
	case []int16:
		return typedArray("Int16Array", vs)
	case []int32:
		return typedArray("Int32Array", vs)
	case []uint8:
		return typedArray("Uint8Array", vs)
	case []uint16:
		return typedArray("Uint16Array", vs)
	case []uint32:
		return typedArray("Uint32Array", vs)
	case []float32:
		return typedArray("Float32Array", vs)
	case []float64:
		return typedArray("Float64Array", vs)
	}
	return errorObject(badArgument("unsupported element type %s", e))
}

// typedArray copies values into a new JS typed array. Both sides of the
// copy are little-endian.
func typedArray[T netcdf.Element](ctor string, values []T) js.Value {
	size := int(unsafe.Sizeof(*new(T)))
	buf := js.Global().Get("ArrayBuffer").New(len(values) * size)
	if len(values) > 0 {
		raw := unsafe.Slice((*byte)(unsafe.Pointer(&values[0])), len(values)*size)
		js.CopyBytesToJS(js.Global().Get("Uint8Array").New(buf), raw)
	}
	return js.Global().Get(ctor).New(buf)
}

func (h *handle) close(args []js.Value) any {
	h.file.Close()
	for _, f := range h.funcs {
		f.Release()
	}
	h.funcs = nil
	return js.Undefined()
}
