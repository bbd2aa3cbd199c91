//go:build js && wasm

// Command ncwasm exposes netCDF handles to JavaScript:
//
//	GOOS=js GOARCH=wasm go build -o ncwasm.wasm ./cmd/ncwasm
//
// It registers load_file(blob) and load_remote(url, size) on the global
// object. Both return a handle object, or {error: ...} holding the
// normalized error. Reads are synchronous, so the module must run in a
// worker.
package main

import (
	"fmt"
	"syscall/js"

	gojson "github.com/goccy/go-json"

	"github.com/robert-malhotra/go-netcdf/boundary"
	"github.com/robert-malhotra/go-netcdf/netcdf"
	"github.com/robert-malhotra/go-netcdf/vfile"
)

// debug enables range request logging; set ncwasm_debug = true before
// loading the module.
var debug = js.Global().Get("ncwasm_debug").Truthy()

func main() {
	js.Global().Set("load_file", js.FuncOf(loadFile))
	js.Global().Set("load_remote", js.FuncOf(loadRemote))
	select {}
}

func loadFile(_ js.Value, args []js.Value) any {
	if len(args) < 1 {
		return errorObject(&netcdf.Error{Kind: netcdf.KindEmpty})
	}
	if args[0].Type() != js.TypeObject || args[0].Get("size").Type() != js.TypeNumber {
		return errorObject(badArgument("argument 0 must be a Blob"))
	}
	f, err := netcdf.Open(vfile.New(newBlobSource(args[0])))
	if err != nil {
		return errorObject(err)
	}
	return newHandle(f)
}

func loadRemote(_ js.Value, args []js.Value) any {
	if len(args) < 2 {
		return errorObject(&netcdf.Error{Kind: netcdf.KindEmpty})
	}
	url, err := stringArg(args, 0)
	if err != nil {
		return errorObject(err)
	}
	size, err := numberArg(args, 1)
	if err != nil {
		return errorObject(err)
	}
	src := &xhrSource{url: url, size: int64(size)}
	f, err := netcdf.Open(vfile.New(src))
	if err != nil {
		return errorObject(err)
	}
	return newHandle(f)
}

// errorObject builds {error: <normalized error>} through its JSON encoding.
func errorObject(err error) any {
	data, encErr := gojson.Marshal(boundary.Normalize(err))
	if encErr != nil {
		data = []byte(`"IOError"`)
	}
	obj := js.Global().Get("Object").New()
	obj.Set("error", js.Global().Get("JSON").Call("parse", string(data)))
	return obj
}

// toJS converts Go values with a JSON round trip, which keeps the field
// names of VariableInfo and DimensionInfo.
func toJS(v any) any {
	data, err := gojson.Marshal(v)
	if err != nil {
		return errorObject(err)
	}
	return js.Global().Get("JSON").Call("parse", string(data))
}

func badArgument(format string, a ...any) error {
	return &netcdf.Error{Kind: netcdf.KindInvalidIndex, Name: fmt.Sprintf(format, a...)}
}

func arg(args []js.Value, i int) js.Value {
	if i < len(args) {
		return args[i]
	}
	return js.Undefined()
}

func stringArg(args []js.Value, i int) (string, error) {
	v := arg(args, i)
	if v.Type() != js.TypeString {
		return "", badArgument("argument %d must be a string, got %s", i, v.Type())
	}
	return v.String(), nil
}

func numberArg(args []js.Value, i int) (int, error) {
	v := arg(args, i)
	if v.Type() != js.TypeNumber {
		return 0, badArgument("argument %d must be a number, got %s", i, v.Type())
	}
	return v.Int(), nil
}

// indices converts an array of numbers. undefined and null mean no index.
func indices(v js.Value) ([]int, error) {
	switch v.Type() {
	case js.TypeUndefined, js.TypeNull:
		return nil, nil
	case js.TypeObject:
	default:
		return nil, badArgument("index must be an array of numbers, got %s", v.Type())
	}
	n := v.Get("length")
	if n.Type() != js.TypeNumber {
		return nil, badArgument("index must be an array of numbers")
	}
	out := make([]int, n.Int())
	for i := range out {
		x := v.Index(i)
		if x.Type() != js.TypeNumber {
			return nil, badArgument("index element %d must be a number, got %s", i, x.Type())
		}
		out[i] = x.Int()
	}
	return out, nil
}
