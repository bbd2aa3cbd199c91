// Package cdftest builds netCDF classic files in memory for tests.
package cdftest

import (
	"encoding/binary"
	"math"

	binpkg "github.com/robert-malhotra/go-netcdf/internal/binary"
	"github.com/robert-malhotra/go-netcdf/internal/dtype"
	"github.com/robert-malhotra/go-netcdf/internal/layout"
)

// List tags of the classic header.
const (
	TagDimension = 0x0A
	TagVariable  = 0x0B
	TagAttribute = 0x0C
)

// Streaming is the numrecs value that marks a file written in streaming mode.
const Streaming = 0xFFFFFFFF

type dim struct {
	name   string
	length int
}

type attr struct {
	name   string
	typ    dtype.Type
	values []float64
	text   string
}

// Var is a variable under construction.
type Var struct {
	b     *Builder
	name  string
	typ   dtype.Type
	dims  []string
	attrs []attr
	data  []float64
}

// Attr adds a text attribute to the variable.
func (v *Var) Attr(name, value string) *Var {
	v.attrs = append(v.attrs, attr{name: name, typ: dtype.Char, text: value})
	return v
}

// NumAttr adds a numeric attribute to the variable.
func (v *Var) NumAttr(name string, t dtype.Type, values ...float64) *Var {
	v.attrs = append(v.attrs, attr{name: name, typ: t, values: values})
	return v
}

// Data sets the variable contents in row-major order. Values are converted to
// the variable type when the file is encoded. Missing values are written as 0.
func (v *Var) Data(values ...float64) *Var {
	v.data = values
	return v
}

// Var declares another variable on the same builder.
func (v *Var) Var(name string, t dtype.Type, dims ...string) *Var {
	return v.b.Var(name, t, dims...)
}

// Bytes encodes the file the variable belongs to.
func (v *Var) Bytes() []byte {
	return v.b.Bytes()
}

// Builder assembles a classic file.
type Builder struct {
	version   byte
	numRecs   int
	streaming bool
	dims      []dim
	attrs     []attr
	vars      []*Var
}

// New returns a builder for a CDF-1 file.
func New() *Builder {
	return &Builder{version: 1}
}

// Offset64 switches the builder to the 64-bit offset format (CDF-2).
func (b *Builder) Offset64() *Builder {
	b.version = 2
	return b
}

// Records sets the number of records.
func (b *Builder) Records(n int) *Builder {
	b.numRecs = n
	return b
}

// StreamingRecords writes numrecs as 0xFFFFFFFF so readers must derive the
// record count from the file size.
func (b *Builder) StreamingRecords() *Builder {
	b.streaming = true
	return b
}

// Dim declares a dimension. A length of 0 declares the unlimited dimension.
func (b *Builder) Dim(name string, length int) *Builder {
	b.dims = append(b.dims, dim{name: name, length: length})
	return b
}

// Attr adds a global text attribute.
func (b *Builder) Attr(name, value string) *Builder {
	b.attrs = append(b.attrs, attr{name: name, typ: dtype.Char, text: value})
	return b
}

// NumAttr adds a global numeric attribute.
func (b *Builder) NumAttr(name string, t dtype.Type, values ...float64) *Builder {
	b.attrs = append(b.attrs, attr{name: name, typ: t, values: values})
	return b
}

// Var declares a variable over the named dimensions.
func (b *Builder) Var(name string, t dtype.Type, dims ...string) *Var {
	v := &Var{b: b, name: name, typ: t, dims: dims}
	b.vars = append(b.vars, v)
	return v
}

func (b *Builder) dimIndex(name string) int {
	for i, d := range b.dims {
		if d.name == name {
			return i
		}
	}
	panic("cdftest: unknown dimension " + name)
}

func (b *Builder) shape(v *Var) layout.Shape {
	s := layout.Shape{ElemSize: uint64(v.typ.Size())}
	for i, name := range v.dims {
		d := b.dims[b.dimIndex(name)]
		length := uint64(d.length)
		if d.length == 0 {
			length = uint64(b.numRecs)
			if i == 0 {
				s.Record = true
			}
		}
		s.Dims = append(s.Dims, length)
	}
	return s
}

// Bytes encodes the file.
func (b *Builder) Bytes() []byte {
	cfg := binpkg.DefaultConfig()
	if b.version == 2 {
		cfg.OffsetSize = 8
	}

	shapes := make([]layout.Shape, len(b.vars))
	var slices []uint64
	for i, v := range b.vars {
		shapes[i] = b.shape(v)
		if shapes[i].Record {
			slices = append(slices, shapes[i].SliceSize())
		}
	}
	recSize := layout.RecordStride(slices)

	// The header has a fixed size once the variable list is known, so encode
	// it once to measure and again with the real begin offsets.
	sizing := &Buffer{}
	headerSize := uint64(b.writeHeader(binpkg.NewWriter(sizing, cfg), shapes))

	next := headerSize
	for i := range shapes {
		if !shapes[i].Record {
			shapes[i].Begin = next
			next += shapes[i].VSize()
		}
	}
	for i := range shapes {
		if shapes[i].Record {
			shapes[i].Begin = next
			shapes[i].RecSize = recSize
			next += shapes[i].VSize()
		}
	}

	out := &Buffer{}
	w := binpkg.NewWriter(out, cfg)
	b.writeHeader(w, shapes)
	for i, v := range b.vars {
		b.writeData(w, v, shapes[i])
	}

	// Fixed variables that end the file still occupy their padded size, and
	// so does every record.
	end := next
	if len(slices) > 0 {
		end = shapes[firstRecord(shapes)].Begin + uint64(b.numRecs)*recSize
	}
	out.Grow(int(end))
	return out.Bytes()
}

func firstRecord(shapes []layout.Shape) int {
	for i, s := range shapes {
		if s.Record {
			return i
		}
	}
	return 0
}

func (b *Builder) writeHeader(w *binpkg.Writer, shapes []layout.Shape) int64 {
	w.WriteBytes([]byte{'C', 'D', 'F', b.version})
	if b.streaming {
		w.WriteUint32(Streaming)
	} else {
		w.WriteUint32(uint32(b.numRecs))
	}

	if len(b.dims) == 0 {
		w.WriteZeros(8)
	} else {
		w.WriteUint32(TagDimension)
		w.WriteUint32(uint32(len(b.dims)))
		for _, d := range b.dims {
			writeName(w, d.name)
			w.WriteUint32(uint32(d.length))
		}
	}

	writeAttrs(w, b.attrs)

	if len(b.vars) == 0 {
		w.WriteZeros(8)
	} else {
		w.WriteUint32(TagVariable)
		w.WriteUint32(uint32(len(b.vars)))
		for i, v := range b.vars {
			writeName(w, v.name)
			w.WriteUint32(uint32(len(v.dims)))
			for _, name := range v.dims {
				w.WriteUint32(uint32(b.dimIndex(name)))
			}
			writeAttrs(w, v.attrs)
			w.WriteUint32(uint32(v.typ))
			w.WriteUint32(uint32(shapes[i].VSize()))
			w.WriteOffset(shapes[i].Begin)
		}
	}
	return w.Pos()
}

func (b *Builder) writeData(w *binpkg.Writer, v *Var, s layout.Shape) {
	if len(v.data) == 0 {
		return
	}
	size := v.typ.Size()
	perRecord := int(layout.Product(s.Dims))
	if s.Record {
		perRecord = int(layout.Product(s.Dims[1:]))
	}
	for i, value := range v.data {
		off := s.Begin + uint64(i*size)
		if s.Record && perRecord > 0 {
			rec, within := i/perRecord, i%perRecord
			off = s.Begin + uint64(rec)*s.RecSize + uint64(within*size)
		}
		w.At(int64(off)).WriteBytes(Encode(v.typ, value))
	}
}

func writeName(w *binpkg.Writer, name string) {
	w.WriteUint32(uint32(len(name)))
	w.WritePadded([]byte(name))
}

func writeAttrs(w *binpkg.Writer, attrs []attr) {
	if len(attrs) == 0 {
		w.WriteZeros(8)
		return
	}
	w.WriteUint32(TagAttribute)
	w.WriteUint32(uint32(len(attrs)))
	for _, a := range attrs {
		writeName(w, a.name)
		w.WriteUint32(uint32(a.typ))
		if a.typ == dtype.Char {
			w.WriteUint32(uint32(len(a.text)))
			w.WritePadded([]byte(a.text))
			continue
		}
		var raw []byte
		for _, v := range a.values {
			raw = append(raw, Encode(a.typ, v)...)
		}
		w.WriteUint32(uint32(len(a.values)))
		w.WritePadded(raw)
	}
}

// Encode returns the big-endian external representation of v as type t.
func Encode(t dtype.Type, v float64) []byte {
	buf := make([]byte, t.Size())
	switch t {
	case dtype.Byte:
		buf[0] = byte(int8(v))
	case dtype.Char:
		buf[0] = byte(v)
	case dtype.Short:
		binary.BigEndian.PutUint16(buf, uint16(int16(v)))
	case dtype.Int:
		binary.BigEndian.PutUint32(buf, uint32(int32(v)))
	case dtype.Float:
		binary.BigEndian.PutUint32(buf, math.Float32bits(float32(v)))
	case dtype.Double:
		binary.BigEndian.PutUint64(buf, math.Float64bits(v))
	}
	return buf
}
