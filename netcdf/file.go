package netcdf

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"

	"go.uber.org/zap"

	"github.com/robert-malhotra/go-netcdf/internal/dtype"
	"github.com/robert-malhotra/go-netcdf/vfile"
)

// Storage is a seekable byte source of known size.
type Storage interface {
	io.ReadSeeker
	TotalSize() int64
}

// VariableInfo summarizes a variable. The JSON names are shared with hosts.
type VariableInfo struct {
	Name       string            `json:"name" yaml:"name"`
	Kind       int               `json:"kind" yaml:"kind"`
	Size       int               `json:"size" yaml:"size"`
	Dimensions []string          `json:"dimensions" yaml:"dimensions"`
	Attributes map[string]string `json:"attributes" yaml:"attributes"`
	Length     int               `json:"length" yaml:"length"`
}

// DimensionInfo summarizes a dimension.
type DimensionInfo struct {
	Name   string `json:"name" yaml:"name"`
	Length int    `json:"length" yaml:"length"`
}

// File is an open netCDF file: one parsed header and the storage it came
// from.
type File struct {
	mu      sync.Mutex
	storage Storage
	header  *Header
	closed  bool
	logger  *zap.Logger
}

// Open parses the header of storage. The returned File owns storage and
// closes it on Close when it implements io.Closer.
func Open(storage Storage, opts ...Option) (*File, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}

	size := storage.TotalSize()
	if size > 0 {
		if _, err := storage.Seek(0, io.SeekStart); err != nil {
			return nil, ioError(fmt.Errorf("seeking to header: %w", err))
		}
	}
	h, err := ParseHeader(bufio.NewReaderSize(storage, o.headerBurst), size)
	if err != nil {
		return nil, err
	}

	o.logger.Debug("parsed header",
		zap.Int("version", h.Version),
		zap.Int("dimensions", len(h.Dimensions)),
		zap.Int("variables", len(h.Variables)),
		zap.Uint64("records", h.NumRecs),
	)

	return &File{
		storage: storage,
		header:  h,
		logger:  o.logger,
	}, nil
}

// OpenFile opens a file on disk.
func OpenFile(path string, opts ...Option) (*File, error) {
	vf, err := vfile.OpenLocal(path)
	if err != nil {
		return nil, ioError(err)
	}
	f, err := Open(vf, opts...)
	if err != nil {
		vf.Close()
		return nil, err
	}
	return f, nil
}

// OpenBytes opens an in-memory file.
func OpenBytes(data []byte, opts ...Option) (*File, error) {
	return Open(vfile.New(vfile.NewSliceSource(bytes.NewReader(data), int64(len(data)))), opts...)
}

// OpenRemote opens a file served over HTTP with range requests. A size of
// zero or less is discovered with a HEAD request.
func OpenRemote(ctx context.Context, url string, size int64, opts ...Option) (*File, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	httpOpts := append([]vfile.HTTPOption{
		vfile.WithContext(ctx),
		vfile.WithLogger(o.logger),
	}, o.http...)

	vf, err := vfile.OpenRemote(url, size, httpOpts...)
	if err != nil {
		return nil, ioError(err)
	}
	return Open(vf, opts...)
}

// Close releases the storage. Calling Close more than once is a no-op.
func (f *File) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return nil
	}
	f.closed = true
	if c, ok := f.storage.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// Header returns the parsed header, or nil once the file is closed.
func (f *File) Header() *Header {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return nil
	}
	return f.header
}

// openHeader returns the header unless the file is closed.
func (f *File) openHeader() (*Header, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return nil, ErrClosed
	}
	return f.header, nil
}

// MapSize returns the offset one past the last byte addressed by any
// variable.
func (f *File) MapSize() (int64, error) {
	h, err := f.openHeader()
	if err != nil {
		return 0, err
	}
	if len(h.Variables) == 0 {
		return 0, ErrNoVariables
	}
	var extent uint64
	for _, v := range h.Variables {
		extent = max(extent, v.Shape.Extent())
	}
	return int64(extent), nil
}

// Variables lists the variables in declaration order. Only char attributes
// are included.
func (f *File) Variables() ([]VariableInfo, error) {
	h, err := f.openHeader()
	if err != nil {
		return nil, err
	}
	if len(h.Variables) == 0 {
		return nil, ErrNoVariables
	}

	infos := make([]VariableInfo, 0, len(h.Variables))
	for _, v := range h.Variables {
		attrs := make(map[string]string)
		for _, a := range v.Attributes {
			if s, ok := a.String(); ok {
				attrs[a.Name] = s
			}
		}
		infos = append(infos, VariableInfo{
			Name:       v.Name,
			Kind:       int(v.Type),
			Size:       v.Type.Size(),
			Dimensions: h.dimensionNames(v),
			Attributes: attrs,
			Length:     int(v.Len()),
		})
	}
	return infos, nil
}

// Dimensions lists the dimensions in declaration order. The unlimited
// dimension reports the current record count. A file without dimensions,
// or a closed file, yields an empty list.
func (f *File) Dimensions() []DimensionInfo {
	h, err := f.openHeader()
	if err != nil {
		return nil
	}
	dims := make([]DimensionInfo, 0, len(h.Dimensions))
	for _, d := range h.Dimensions {
		dims = append(dims, DimensionInfo{Name: d.Name, Length: int(d.Length)})
	}
	return dims
}

// VariableSize returns the external element size of the named variable, or 0
// when it does not exist.
func (f *File) VariableSize(name string) int {
	h, err := f.openHeader()
	if err != nil {
		return 0
	}
	v, ok := h.Variable(name)
	if !ok {
		return 0
	}
	return v.Type.Size()
}

// Attribute returns a global char attribute.
func (f *File) Attribute(name string) (string, bool) {
	h, err := f.openHeader()
	if err != nil {
		return "", false
	}
	a, ok := h.Attribute(name)
	if !ok {
		return "", false
	}
	return a.String()
}

// VariableAttribute returns a char attribute of the named variable.
func (f *File) VariableAttribute(variable, name string) (string, bool) {
	h, err := f.openHeader()
	if err != nil {
		return "", false
	}
	v, ok := h.Variable(variable)
	if !ok {
		return "", false
	}
	a, ok := v.Attribute(name)
	if !ok {
		return "", false
	}
	return a.String()
}

// DimensionLength returns the length of the named dimension.
func (f *File) DimensionLength(name string) (int, error) {
	h, err := f.openHeader()
	if err != nil {
		return 0, err
	}
	if len(h.Dimensions) == 0 {
		return 0, ErrNoDimensions
	}
	d, ok := h.Dimension(name)
	if !ok {
		return 0, dimensionNotFound(name)
	}
	return int(d.Length), nil
}

// lookup finds a variable, distinguishing a file without variables from a
// missing name.
func lookup(h *Header, name string) (*Variable, error) {
	if len(h.Variables) == 0 {
		return nil, ErrNoVariables
	}
	v, ok := h.Variable(name)
	if !ok {
		return nil, variableNotFound(name)
	}
	return v, nil
}

// VariableDimensions returns the dimension names of a variable in order.
func (f *File) VariableDimensions(name string) ([]string, error) {
	h, err := f.openHeader()
	if err != nil {
		return nil, err
	}
	v, err := lookup(h, name)
	if err != nil {
		return nil, err
	}
	return h.dimensionNames(v), nil
}

// VariableType returns the stored type of a variable.
func (f *File) VariableType(name string) (dtype.Type, error) {
	h, err := f.openHeader()
	if err != nil {
		return 0, err
	}
	v, err := lookup(h, name)
	if err != nil {
		return 0, err
	}
	return v.Type, nil
}

// VariableShape returns the current lengths of a variable's dimensions.
func (f *File) VariableShape(name string) ([]int, error) {
	h, err := f.openHeader()
	if err != nil {
		return nil, err
	}
	v, err := lookup(h, name)
	if err != nil {
		return nil, err
	}
	shape := make([]int, len(v.Shape.Dims))
	for i, d := range v.Shape.Dims {
		shape[i] = int(d)
	}
	return shape, nil
}
