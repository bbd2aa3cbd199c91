package netcdf

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"reflect"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/robert-malhotra/go-netcdf/internal/cdftest"
	"github.com/robert-malhotra/go-netcdf/internal/dtype"
)

var tempData = []float64{
	10.5, 11, 11.5,
	12, 12.5, 13,
	13.5, 14, 14.5,
	15, 15.5, 16,
}

func tempFile() []byte {
	return cdftest.New().
		Dim("x", 4).
		Dim("y", 3).
		Attr("title", "Surface temperature").
		NumAttr("version", dtype.Int, 3).
		Var("temp", dtype.Float, "x", "y").Attr("units", "C").Data(tempData...).
		Bytes()
}

func recordFile() []byte {
	return cdftest.New().
		Dim("time", 0).
		Dim("x", 2).
		Records(3).
		Var("a", dtype.Short, "time", "x").Data(1, 2, 3, 4, 5, 6).
		Var("b", dtype.Int, "time").Attr("units", "s").Data(10, 20, 30).
		Var("grid", dtype.Double, "x").Data(0.25, 0.75).
		Bytes()
}

func openBytes(t *testing.T, data []byte) *File {
	t.Helper()
	f, err := OpenBytes(data)
	if err != nil {
		t.Fatalf("OpenBytes failed: %v", err)
	}
	t.Cleanup(func() { f.Close() })
	return f
}

func TestVariablesScenario(t *testing.T) {
	f := openBytes(t, tempFile())

	vars, err := f.Variables()
	if err != nil {
		t.Fatalf("Variables failed: %v", err)
	}
	expected := []VariableInfo{{
		Name:       "temp",
		Kind:       5,
		Size:       4,
		Dimensions: []string{"x", "y"},
		Attributes: map[string]string{"units": "C"},
		Length:     12,
	}}
	if !reflect.DeepEqual(vars, expected) {
		t.Errorf("expected %+v, got %+v", expected, vars)
	}

	dims := f.Dimensions()
	if !reflect.DeepEqual(dims, []DimensionInfo{{"x", 4}, {"y", 3}}) {
		t.Errorf("unexpected dimensions %+v", dims)
	}
}

func TestNoVariables(t *testing.T) {
	f := openBytes(t, cdftest.New().Dim("x", 4).Attr("title", "empty").Bytes())

	if _, err := f.Variables(); !errors.Is(err, ErrNoVariables) {
		t.Errorf("Variables: expected ErrNoVariables, got %v", err)
	}
	if _, err := f.MapSize(); !errors.Is(err, ErrNoVariables) {
		t.Errorf("MapSize: expected ErrNoVariables, got %v", err)
	}
	if _, err := f.VariableDimensions("temp"); !errors.Is(err, ErrNoVariables) {
		t.Errorf("VariableDimensions: expected ErrNoVariables, got %v", err)
	}
	if _, err := f.VariableType("temp"); !errors.Is(err, ErrNoVariables) {
		t.Errorf("VariableType: expected ErrNoVariables, got %v", err)
	}
	if _, err := Values[float64](f, "temp", nil, nil); !errors.Is(err, ErrNoVariables) {
		t.Errorf("Values: expected ErrNoVariables, got %v", err)
	}
	if got := f.VariableSize("temp"); got != 0 {
		t.Errorf("VariableSize: expected 0, got %d", got)
	}

	dims := f.Dimensions()
	if len(dims) != 1 || dims[0].Name != "x" {
		t.Errorf("expected dimension list to survive, got %+v", dims)
	}
}

func TestNoDimensions(t *testing.T) {
	f := openBytes(t, cdftest.New().Attr("title", "bare").Bytes())

	if dims := f.Dimensions(); len(dims) != 0 {
		t.Errorf("expected no dimensions, got %+v", dims)
	}
	if _, err := f.DimensionLength("x"); !errors.Is(err, ErrNoDimensions) {
		t.Errorf("expected ErrNoDimensions, got %v", err)
	}
	if title, ok := f.Attribute("title"); !ok || title != "bare" {
		t.Errorf("expected title, got %q %v", title, ok)
	}
}

func TestMetadataQueries(t *testing.T) {
	f := openBytes(t, tempFile())

	if got := f.VariableSize("temp"); got != 4 {
		t.Errorf("VariableSize: expected 4, got %d", got)
	}
	if got := f.VariableSize("missing"); got != 0 {
		t.Errorf("VariableSize missing: expected 0, got %d", got)
	}
	if title, ok := f.Attribute("title"); !ok || title != "Surface temperature" {
		t.Errorf("Attribute title: got %q %v", title, ok)
	}
	if _, ok := f.Attribute("version"); ok {
		t.Error("numeric attribute must not be returned as a string")
	}
	if _, ok := f.Attribute("missing"); ok {
		t.Error("missing attribute must not be found")
	}
	if units, ok := f.VariableAttribute("temp", "units"); !ok || units != "C" {
		t.Errorf("VariableAttribute: got %q %v", units, ok)
	}

	n, err := f.DimensionLength("y")
	if err != nil || n != 3 {
		t.Errorf("DimensionLength: got %d, %v", n, err)
	}
	_, err = f.DimensionLength("z")
	var ncErr *Error
	if !errors.As(err, &ncErr) || ncErr.Kind != KindDimensionNotFound || ncErr.Name != "z" {
		t.Errorf("expected CouldNotFindDimension(z), got %v", err)
	}

	dims, err := f.VariableDimensions("temp")
	if err != nil || !reflect.DeepEqual(dims, []string{"x", "y"}) {
		t.Errorf("VariableDimensions: got %v, %v", dims, err)
	}
	typ, err := f.VariableType("temp")
	if err != nil || typ.NativeName() != "f32" {
		t.Errorf("VariableType: got %v, %v", typ, err)
	}
	shape, err := f.VariableShape("temp")
	if err != nil || !reflect.DeepEqual(shape, []int{4, 3}) {
		t.Errorf("VariableShape: got %v, %v", shape, err)
	}

	_, err = f.VariableType("missing")
	if !errors.As(err, &ncErr) || ncErr.Kind != KindVariableNotFound || ncErr.Name != "missing" {
		t.Errorf("expected VariableNotFound(missing), got %v", err)
	}
}

func TestMapSize(t *testing.T) {
	for name, data := range map[string][]byte{"fixed": tempFile(), "record": recordFile()} {
		t.Run(name, func(t *testing.T) {
			f := openBytes(t, data)
			size, err := f.MapSize()
			if err != nil {
				t.Fatalf("MapSize failed: %v", err)
			}
			if size != int64(len(data)) {
				t.Errorf("expected %d, got %d", len(data), size)
			}
		})
	}
}

func TestValues(t *testing.T) {
	f := openBytes(t, tempFile())

	all, err := Values[float32](f, "temp", nil, nil)
	if err != nil {
		t.Fatalf("Values failed: %v", err)
	}
	if len(all) != 12 {
		t.Fatalf("expected 12 values, got %d", len(all))
	}
	for i, v := range all {
		if float64(v) != tempData[i] {
			t.Errorf("value %d: expected %v, got %v", i, tempData[i], v)
		}
	}

	window, err := Values[float64](f, "temp", []int{1, 1}, []int{3, 3})
	if err != nil {
		t.Fatalf("Values window failed: %v", err)
	}
	expected := []float64{12.5, 13, 14, 14.5}
	if !reflect.DeepEqual(window, expected) {
		t.Errorf("expected %v, got %v", expected, window)
	}

	truncated, err := Values[int32](f, "temp", []int{0, 0}, []int{1, 3})
	if err != nil {
		t.Fatalf("Values int32 failed: %v", err)
	}
	if !reflect.DeepEqual(truncated, []int32{10, 11, 11}) {
		t.Errorf("expected [10 11 11], got %v", truncated)
	}

	empty, err := Values[float32](f, "temp", []int{2, 0}, []int{2, 3})
	if err != nil {
		t.Fatalf("Values empty failed: %v", err)
	}
	if len(empty) != 0 {
		t.Errorf("expected no values, got %v", empty)
	}
}

func TestValue(t *testing.T) {
	f := openBytes(t, tempFile())

	v, err := Value[float32](f, "temp", []int{2, 1})
	if err != nil {
		t.Fatalf("Value failed: %v", err)
	}
	if v != 14 {
		t.Errorf("expected 14, got %v", v)
	}

	u, err := Value[uint8](f, "temp", []int{3, 2})
	if err != nil {
		t.Fatalf("Value uint8 failed: %v", err)
	}
	if u != 16 {
		t.Errorf("expected 16, got %d", u)
	}
}

func TestInvalidIndex(t *testing.T) {
	f := openBytes(t, tempFile())

	tests := []struct {
		name string
		fn   func() error
	}{
		{"rank", func() error { _, err := Value[float32](f, "temp", []int{1}); return err }},
		{"bounds", func() error { _, err := Value[float32](f, "temp", []int{4, 0}); return err }},
		{"negative", func() error { _, err := Value[float32](f, "temp", []int{-1, 0}); return err }},
		{"window end", func() error { _, err := Values[float32](f, "temp", nil, []int{5, 3}); return err }},
		{"window reversed", func() error { _, err := Values[float32](f, "temp", []int{3, 0}, []int{1, 3}); return err }},
		{"load", func() error { _, err := f.LoadData("temp", []int{0, 9}, make([]byte, 4)); return err }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.fn(); !errors.Is(err, ErrInvalidIndex) {
				t.Errorf("expected ErrInvalidIndex, got %v", err)
			}
		})
	}

	if _, err := Value[float32](f, "missing", []int{0, 0}); !errors.Is(err, ErrVariableNotFound) {
		t.Errorf("expected ErrVariableNotFound, got %v", err)
	}
}

func TestRecordValues(t *testing.T) {
	f := openBytes(t, recordFile())

	a, err := Values[int16](f, "a", nil, nil)
	if err != nil {
		t.Fatalf("Values a failed: %v", err)
	}
	if !reflect.DeepEqual(a, []int16{1, 2, 3, 4, 5, 6}) {
		t.Errorf("a: got %v", a)
	}

	b, err := Values[int32](f, "b", nil, nil)
	if err != nil {
		t.Fatalf("Values b failed: %v", err)
	}
	if !reflect.DeepEqual(b, []int32{10, 20, 30}) {
		t.Errorf("b: got %v", b)
	}

	tail, err := Values[float64](f, "a", []int{1, 1}, nil)
	if err != nil {
		t.Fatalf("Values tail failed: %v", err)
	}
	if !reflect.DeepEqual(tail, []float64{4, 6}) {
		t.Errorf("tail: got %v", tail)
	}

	grid, err := Values[float64](f, "grid", nil, nil)
	if err != nil {
		t.Fatalf("Values grid failed: %v", err)
	}
	if !reflect.DeepEqual(grid, []float64{0.25, 0.75}) {
		t.Errorf("grid: got %v", grid)
	}

	n, err := f.DimensionLength("time")
	if err != nil || n != 3 {
		t.Errorf("time length: got %d, %v", n, err)
	}
}

func TestOffset64Format(t *testing.T) {
	data := cdftest.New().Offset64().
		Dim("x", 3).
		Var("v", dtype.Double, "x").Data(1.5, -2, 3.25).
		Bytes()
	f := openBytes(t, data)

	if f.Header().Version != 2 {
		t.Errorf("expected version 2, got %d", f.Header().Version)
	}
	got, err := Values[float64](f, "v", nil, nil)
	if err != nil {
		t.Fatalf("Values failed: %v", err)
	}
	if !reflect.DeepEqual(got, []float64{1.5, -2, 3.25}) {
		t.Errorf("got %v", got)
	}
}

func TestLoadData(t *testing.T) {
	f := openBytes(t, tempFile())

	buf := make([]byte, 5*4)
	n, err := f.LoadData("temp", []int{1, 0}, buf)
	if err != nil {
		t.Fatalf("LoadData failed: %v", err)
	}
	if n != 5 {
		t.Fatalf("expected 5 elements, got %d", n)
	}
	for i := 0; i < n; i++ {
		got := math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:]))
		if float64(got) != tempData[3+i] {
			t.Errorf("element %d: expected %v, got %v", i, tempData[3+i], got)
		}
	}

	n, err = f.LoadData("temp", []int{3, 2}, make([]byte, 16))
	if err != nil {
		t.Fatalf("LoadData tail failed: %v", err)
	}
	if n != 1 {
		t.Errorf("expected 1 element at the end of the variable, got %d", n)
	}
}

func TestLoadDataAcrossRecords(t *testing.T) {
	f := openBytes(t, recordFile())

	buf := make([]byte, 4*2)
	n, err := f.LoadData("a", []int{0, 1}, buf)
	if err != nil {
		t.Fatalf("LoadData failed: %v", err)
	}
	if n != 4 {
		t.Fatalf("expected 4 elements, got %d", n)
	}
	var got []int16
	for i := 0; i < n; i++ {
		got = append(got, int16(binary.LittleEndian.Uint16(buf[i*2:])))
	}
	if !reflect.DeepEqual(got, []int16{2, 3, 4, 5}) {
		t.Errorf("got %v", got)
	}
}

func TestTruncatedData(t *testing.T) {
	data := tempFile()
	f := openBytes(t, data[:len(data)-8])

	_, err := Values[float32](f, "temp", nil, nil)
	if !errors.Is(err, ErrIO) {
		t.Errorf("expected IOError, got %v", err)
	}
	// The first row is still readable.
	if _, err := Values[float32](f, "temp", nil, []int{1, 3}); err != nil {
		t.Errorf("expected first row to read, got %v", err)
	}
}

func TestClosed(t *testing.T) {
	f, err := OpenBytes(tempFile())
	if err != nil {
		t.Fatalf("OpenBytes failed: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Errorf("second Close failed: %v", err)
	}

	if _, err := f.MapSize(); !errors.Is(err, ErrClosed) {
		t.Errorf("MapSize: expected ErrClosed, got %v", err)
	}
	if _, err := f.Variables(); !errors.Is(err, ErrClosed) {
		t.Errorf("Variables: expected ErrClosed, got %v", err)
	}
	if _, err := Value[float32](f, "temp", []int{0, 0}); !errors.Is(err, ErrClosed) {
		t.Errorf("Value: expected ErrClosed, got %v", err)
	}
	if f.Header() != nil {
		t.Error("Header must be nil after Close")
	}
}

func TestOpenFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "temp.nc")
	if err := os.WriteFile(path, tempFile(), 0o644); err != nil {
		t.Fatal(err)
	}

	f, err := OpenFile(path)
	if err != nil {
		t.Fatalf("OpenFile failed: %v", err)
	}
	defer f.Close()

	v, err := Value[float64](f, "temp", []int{0, 0})
	if err != nil || v != 10.5 {
		t.Errorf("got %v, %v", v, err)
	}

	_, err = OpenFile(filepath.Join(t.TempDir(), "missing.nc"))
	if !errors.Is(err, ErrIO) || !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected IOError wrapping ErrNotExist, got %v", err)
	}
}

func TestOpenRemote(t *testing.T) {
	data := tempFile()
	var gets atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			gets.Add(1)
		}
		http.ServeContent(w, r, "temp.nc", time.Time{}, bytes.NewReader(data))
	}))
	defer srv.Close()

	f, err := OpenRemote(context.Background(), srv.URL, 0)
	if err != nil {
		t.Fatalf("OpenRemote failed: %v", err)
	}
	defer f.Close()

	if n := gets.Load(); n != 1 {
		t.Errorf("expected the header in one request, got %d", n)
	}

	v, err := Value[float32](f, "temp", []int{3, 2})
	if err != nil || v != 16 {
		t.Errorf("got %v, %v", v, err)
	}
	if n := gets.Load(); n != 2 {
		t.Errorf("expected one request per value, got %d", n)
	}
}

func TestConcurrentReads(t *testing.T) {
	f := openBytes(t, tempFile())

	var wg sync.WaitGroup
	errs := make(chan error, 16)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			x, y := (i/3)%4, i%3
			v, err := Value[float64](f, "temp", []int{x, y})
			if err != nil {
				errs <- err
				return
			}
			if v != tempData[x*3+y] {
				errs <- errors.New("value mismatch under concurrency")
			}
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}
}

// oversizedHeader is a bare CDF-1 header declaring a byte variable over three
// dimensions of 65536, with no data behind it.
func oversizedHeader() []byte {
	return be("CDF\x01", 0,
		0x0A, 3,
		1, "a\x00\x00\x00", 65536,
		1, "b\x00\x00\x00", 65536,
		1, "c\x00\x00\x00", 65536,
		0, 0,
		0x0B, 1,
		1, "v\x00\x00\x00", 3, 0, 1, 2,
		0, 0,
		1, 0, 200)
}

func TestOversizedWindowRejected(t *testing.T) {
	f := openBytes(t, oversizedHeader())

	_, err := Values[int8](f, "v", nil, nil)
	if !errors.Is(err, ErrIO) {
		t.Fatalf("expected IOError, got %v", err)
	}
	_, err = Values[float64](f, "v", []int{0, 0, 0}, []int{1, 1, 2})
	if !errors.Is(err, ErrIO) {
		t.Errorf("expected IOError for a small window past the data, got %v", err)
	}
	if _, err := Value[int8](f, "v", []int{65535, 65535, 65535}); !errors.Is(err, ErrIO) {
		t.Errorf("expected IOError for a scalar past the data, got %v", err)
	}
}
