package netcdf

import (
	"bytes"
	"errors"
	"io"
	"strconv"
	"unicode/utf8"

	"github.com/robert-malhotra/go-netcdf/internal/binary"
	"github.com/robert-malhotra/go-netcdf/internal/dtype"
	"github.com/robert-malhotra/go-netcdf/internal/layout"
)

// Header list tags.
const (
	tagAbsent    = 0x00
	tagDimension = 0x0A
	tagVariable  = 0x0B
	tagAttribute = 0x0C
)

// streamingRecords marks a file whose record count must be derived from its
// size.
const streamingRecords = 0xFFFFFFFF

var magic = []byte{'C', 'D', 'F'}

// hdf5Magic opens the HDF5 signature that netCDF-4 files start with.
var hdf5Magic = []byte{0x89, 'H', 'D', 'F'}

// Dimension is a named axis declared in the header.
type Dimension struct {
	Name      string
	Length    uint64 // current record count for the unlimited dimension
	Unlimited bool
}

// Attribute is a named value attached to the file or to a variable.
type Attribute struct {
	Name string
	Type dtype.Type
	Len  int    // number of elements
	Raw  []byte // big-endian payload without padding
}

// String returns the value of a char attribute with trailing NULs removed.
// It reports false for numeric attributes.
func (a Attribute) String() (string, bool) {
	if a.Type != dtype.Char {
		return "", false
	}
	return string(bytes.TrimRight(a.Raw, "\x00")), true
}

// Value decodes the attribute: a string for char attributes, otherwise a
// slice of the natural Go type.
func (a Attribute) Value() (any, error) {
	return dtype.AttributeValue(a.Type, a.Raw, a.Len)
}

// Variable is a variable declared in the header.
type Variable struct {
	Name       string
	Type       dtype.Type
	DimIDs     []int
	Attributes []Attribute
	Shape      layout.Shape
}

// Attribute returns the named attribute.
func (v *Variable) Attribute(name string) (Attribute, bool) {
	return findAttribute(v.Attributes, name)
}

// Len returns the number of elements of the variable.
func (v *Variable) Len() uint64 {
	return v.Shape.Count()
}

// Header is the decoded file header. It is not modified after parsing.
type Header struct {
	Version    int // 1 classic, 2 64-bit offset
	NumRecs    uint64
	Streaming  bool
	RecSize    uint64
	Dimensions []Dimension
	Attributes []Attribute
	Variables  []*Variable

	byName map[string]*Variable
}

// Variable returns the named variable.
func (h *Header) Variable(name string) (*Variable, bool) {
	v, ok := h.byName[name]
	return v, ok
}

// Attribute returns the named global attribute.
func (h *Header) Attribute(name string) (Attribute, bool) {
	return findAttribute(h.Attributes, name)
}

// Dimension returns the named dimension.
func (h *Header) Dimension(name string) (Dimension, bool) {
	for _, d := range h.Dimensions {
		if d.Name == name {
			return d, true
		}
	}
	return Dimension{}, false
}

func findAttribute(attrs []Attribute, name string) (Attribute, bool) {
	for _, a := range attrs {
		if a.Name == name {
			return a, true
		}
	}
	return Attribute{}, false
}

// headerError converts a reader failure into the matching Error kind: input
// that ends inside the header is a parse failure, anything else came from the
// storage.
func headerError(err error) error {
	var trunc *binary.TruncatedError
	if errors.As(err, &trunc) {
		return &Error{Kind: KindParse, Err: err}
	}
	return ioError(err)
}

// parser reads header fields and rejects lengths that cannot fit in the
// file before allocating for them.
type parser struct {
	br   *binary.Reader
	size int64
}

func (p *parser) readPadded(n uint64) ([]byte, error) {
	if n > uint64(p.size) {
		return nil, headerError(&binary.TruncatedError{Offset: p.br.Pos(), Want: int(min(n, 1<<31)), Got: int(p.size - p.br.Pos())})
	}
	raw, err := p.br.ReadPadded(int(n))
	if err != nil {
		return nil, headerError(err)
	}
	return raw, nil
}

// ParseHeader decodes a classic or 64-bit offset header from r. size is the
// total file size; it resolves streaming record counts.
func ParseHeader(r io.Reader, size int64) (*Header, error) {
	if size == 0 {
		return nil, ErrEmpty
	}
	br := binary.NewReader(r, binary.DefaultConfig())

	sig, err := br.ReadBytes(4)
	if err != nil {
		var trunc *binary.TruncatedError
		if errors.As(err, &trunc) {
			if trunc.Got == 0 {
				return nil, ErrEmpty
			}
			return nil, ErrInvalidFile
		}
		return nil, ioError(err)
	}
	if !bytes.Equal(sig[:3], magic) {
		if bytes.Equal(sig, hdf5Magic) {
			return nil, &Error{Kind: KindInvalidFile, Err: ErrHDF5}
		}
		return nil, ErrInvalidFile
	}

	h := &Header{Version: int(sig[3]), byName: make(map[string]*Variable)}
	switch h.Version {
	case 1:
	case 2:
		br.SetOffsetSize(8)
	default:
		return nil, ErrUnsupportedVersion
	}

	numRecs, err := br.ReadUint32()
	if err != nil {
		return nil, headerError(err)
	}
	h.NumRecs = uint64(numRecs)
	h.Streaming = numRecs == streamingRecords

	p := &parser{br: br, size: size}
	if err := h.readDimensions(p); err != nil {
		return nil, err
	}
	if h.Attributes, err = p.readAttributes(); err != nil {
		return nil, err
	}
	if err := h.readVariables(p); err != nil {
		return nil, err
	}

	h.resolveRecords(size)
	return h, nil
}

// readListHeader reads a list tag and element count. It returns 0 elements
// for an absent list.
func (p *parser) readListHeader(want uint32) (int, error) {
	tag, err := p.br.ReadUint32()
	if err != nil {
		return 0, headerError(err)
	}
	count, err := p.br.ReadUint32()
	if err != nil {
		return 0, headerError(err)
	}

	switch tag {
	case tagAbsent:
		if count != 0 {
			return 0, &Error{Kind: KindNonZeroValue, Value: count}
		}
		return 0, nil
	case want:
		if count == 0 {
			return 0, ErrUnsupportedZeroListType
		}
		return int(count), nil
	default:
		return 0, &Error{Kind: KindUnsupportedListType, Value: tag}
	}
}

func (p *parser) readName() (string, error) {
	n, err := p.br.ReadUint32()
	if err != nil {
		return "", headerError(err)
	}
	raw, err := p.readPadded(uint64(n))
	if err != nil {
		return "", err
	}
	if !utf8.Valid(raw) {
		return "", ErrUTF8
	}
	return string(raw), nil
}

func (p *parser) readType() (dtype.Type, error) {
	v, err := p.br.ReadUint32()
	if err != nil {
		return 0, headerError(err)
	}
	t := dtype.Type(v)
	if !t.Valid() {
		return 0, &Error{Kind: KindUnknownType, Type: int(v)}
	}
	return t, nil
}

func (h *Header) readDimensions(p *parser) error {
	n, err := p.readListHeader(tagDimension)
	if err != nil {
		return err
	}
	for i := 0; i < n; i++ {
		name, err := p.readName()
		if err != nil {
			return err
		}
		length, err := p.br.ReadUint32()
		if err != nil {
			return headerError(err)
		}
		h.Dimensions = append(h.Dimensions, Dimension{
			Name:      name,
			Length:    uint64(length),
			Unlimited: length == 0,
		})
	}
	return nil
}

func (p *parser) readAttributes() ([]Attribute, error) {
	n, err := p.readListHeader(tagAttribute)
	if err != nil {
		return nil, err
	}
	var attrs []Attribute
	for i := 0; i < n; i++ {
		name, err := p.readName()
		if err != nil {
			return nil, err
		}
		t, err := p.readType()
		if err != nil {
			return nil, err
		}
		count, err := p.br.ReadUint32()
		if err != nil {
			return nil, headerError(err)
		}
		raw, err := p.readPadded(uint64(count) * uint64(t.Size()))
		if err != nil {
			return nil, err
		}
		attrs = append(attrs, Attribute{Name: name, Type: t, Len: int(count), Raw: raw})
	}
	return attrs, nil
}

func (h *Header) readVariables(p *parser) error {
	br := p.br
	n, err := p.readListHeader(tagVariable)
	if err != nil {
		return err
	}
	for i := 0; i < n; i++ {
		v := &Variable{}
		if v.Name, err = p.readName(); err != nil {
			return err
		}

		rank, err := br.ReadUint32()
		if err != nil {
			return headerError(err)
		}
		for d := uint32(0); d < rank; d++ {
			id, err := br.ReadUint32()
			if err != nil {
				return headerError(err)
			}
			if len(h.Dimensions) == 0 {
				return ErrNoDimensions
			}
			if int(id) >= len(h.Dimensions) {
				return dimensionNotFound(strconv.FormatUint(uint64(id), 10))
			}
			v.DimIDs = append(v.DimIDs, int(id))
		}

		if v.Attributes, err = p.readAttributes(); err != nil {
			return err
		}
		if v.Type, err = p.readType(); err != nil {
			return err
		}
		// vsize is recomputed from the shape; the stored value saturates
		// for variables over 4 GiB.
		if _, err := br.ReadUint32(); err != nil {
			return headerError(err)
		}
		begin, err := br.ReadOffset()
		if err != nil {
			return headerError(err)
		}

		v.Shape = layout.Shape{
			Begin:    begin,
			ElemSize: uint64(v.Type.Size()),
			Record:   len(v.DimIDs) > 0 && h.Dimensions[v.DimIDs[0]].Unlimited,
		}
		h.Variables = append(h.Variables, v)
		h.byName[v.Name] = v
	}
	return nil
}

// resolveRecords fills in dimension lengths and record strides once every
// variable is known.
func (h *Header) resolveRecords(size int64) {
	var slices []uint64
	var recBegin uint64
	first := true
	for _, v := range h.Variables {
		if !v.Shape.Record {
			continue
		}
		v.Shape.Dims = h.dimLengths(v.DimIDs, 0)
		slices = append(slices, v.Shape.SliceSize())
		if first || v.Shape.Begin < recBegin {
			recBegin = v.Shape.Begin
			first = false
		}
	}
	h.RecSize = layout.RecordStride(slices)

	if h.Streaming {
		h.NumRecs = 0
		if h.RecSize > 0 && uint64(size) > recBegin {
			h.NumRecs = (uint64(size) - recBegin) / h.RecSize
		}
	}

	for i := range h.Dimensions {
		if h.Dimensions[i].Unlimited {
			h.Dimensions[i].Length = h.NumRecs
		}
	}
	for _, v := range h.Variables {
		v.Shape.Dims = h.dimLengths(v.DimIDs, h.NumRecs)
		if v.Shape.Record {
			v.Shape.RecSize = h.RecSize
		}
	}
}

func (h *Header) dimLengths(ids []int, numRecs uint64) []uint64 {
	dims := make([]uint64, len(ids))
	for i, id := range ids {
		d := h.Dimensions[id]
		if d.Unlimited {
			dims[i] = numRecs
		} else {
			dims[i] = d.Length
		}
	}
	return dims
}

// dimensionNames resolves a variable's dimension ids to names.
func (h *Header) dimensionNames(v *Variable) []string {
	names := make([]string, len(v.DimIDs))
	for i, id := range v.DimIDs {
		names[i] = h.Dimensions[id].Name
	}
	return names
}
