package netcdf

import (
	"fmt"
	"io"

	"github.com/robert-malhotra/go-netcdf/internal/dtype"
	"github.com/robert-malhotra/go-netcdf/internal/layout"
)

// Element is the set of Go types variable data can be read as. Stored values
// are converted with Go numeric conversion.
type Element = dtype.Element

// readAt reads n bytes at off. The caller holds f.mu. Offsets beyond the
// storage are rejected rather than wrapped.
func (f *File) readAt(off, n uint64) ([]byte, error) {
	if n == 0 {
		return nil, nil
	}
	size := uint64(f.storage.TotalSize())
	if off > size || n > size-off {
		return nil, ioError(fmt.Errorf("reading %d bytes at offset %d of %d: %w", n, off, size, io.ErrUnexpectedEOF))
	}
	if _, err := f.storage.Seek(int64(off), io.SeekStart); err != nil {
		return nil, ioError(fmt.Errorf("seeking to %d: %w", off, err))
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(f.storage, buf); err != nil {
		return nil, ioError(fmt.Errorf("reading %d bytes at offset %d: %w", n, off, err))
	}
	return buf, nil
}

// checkWindow returns the element count of a selection after making sure
// every byte it addresses lies within the storage. Dimension lengths come
// from the header, so nothing is allocated for a window until it passes.
func (f *File) checkWindow(v *Variable, start, count []uint64) (uint64, error) {
	size := uint64(f.storage.TotalSize())
	end, err := v.Shape.WindowEnd(start, count)
	if err != nil {
		return 0, ioError(fmt.Errorf("locating %s: %w", v.Name, err))
	}
	n, _ := layout.CheckedProduct(count)
	if n == 0 {
		return 0, nil
	}
	if end > size || n > size/v.Shape.ElemSize {
		return 0, ioError(fmt.Errorf("window of %s ends at byte %d of %d: %w", v.Name, end, size, io.ErrUnexpectedEOF))
	}
	return n, nil
}

// dataVariable locks the file and resolves a variable. On success the caller
// must unlock f.mu.
func (f *File) dataVariable(name string) (*Variable, error) {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return nil, ErrClosed
	}
	v, err := lookup(f.header, name)
	if err != nil {
		f.mu.Unlock()
		return nil, err
	}
	return v, nil
}

func toIndex(index []int) ([]uint64, error) {
	if index == nil {
		return nil, nil
	}
	out := make([]uint64, len(index))
	for i, x := range index {
		if x < 0 {
			return nil, invalidIndex(fmt.Errorf("%w: index %d is negative (%d)", layout.ErrBounds, i, x))
		}
		out[i] = uint64(x)
	}
	return out, nil
}

// Value reads the element of variable name at index, converted to T.
func Value[T Element](f *File, name string, index []int) (T, error) {
	var zero T
	idx, err := toIndex(index)
	if err != nil {
		return zero, err
	}
	v, err := f.dataVariable(name)
	if err != nil {
		return zero, err
	}
	defer f.mu.Unlock()

	off, err := v.Shape.Offset(idx)
	if err != nil {
		return zero, invalidIndex(err)
	}
	raw, err := f.readAt(off, v.Shape.ElemSize)
	if err != nil {
		return zero, err
	}
	return dtype.Decode[T](v.Type, raw), nil
}

// Values reads every element of variable name in the half-open window
// [start, end), converted to T, in row-major order. A nil start begins at the
// origin and a nil end extends to the full shape.
func Values[T Element](f *File, name string, start, end []int) ([]T, error) {
	s, err := toIndex(start)
	if err != nil {
		return nil, err
	}
	e, err := toIndex(end)
	if err != nil {
		return nil, err
	}
	v, err := f.dataVariable(name)
	if err != nil {
		return nil, err
	}
	defer f.mu.Unlock()

	first, count, err := layout.Window(v.Shape.Dims, s, e)
	if err != nil {
		return nil, invalidIndex(err)
	}
	n, err := f.checkWindow(v, first, count)
	if err != nil {
		return nil, err
	}

	out := make([]T, n)
	pos := 0
	for _, run := range v.Shape.Runs(first, count) {
		raw, err := f.readAt(run.Offset, run.Bytes(v.Shape.ElemSize))
		if err != nil {
			return nil, err
		}
		pos += dtype.DecodeSlice(v.Type, raw, out[pos:])
	}
	return out, nil
}

// LoadData fills buf with consecutive elements of variable starting at index,
// encoded little-endian in the variable's stored type. It stops at the end of
// the variable or of buf and returns the number of elements written.
func (f *File) LoadData(variable string, index []int, buf []byte) (int, error) {
	idx, err := toIndex(index)
	if err != nil {
		return 0, err
	}
	v, err := f.dataVariable(variable)
	if err != nil {
		return 0, err
	}
	defer f.mu.Unlock()

	if len(idx) == 0 {
		idx = make([]uint64, len(v.Shape.Dims))
	}
	first, err := v.Shape.Flat(idx)
	if err != nil {
		return 0, invalidIndex(err)
	}

	size := v.Shape.ElemSize
	n := min(uint64(len(buf))/size, v.Shape.Count()-first)
	pos := uint64(0)
	for _, run := range v.Shape.FlatRuns(first, n) {
		raw, err := f.readAt(run.Offset, run.Bytes(size))
		if err != nil {
			return 0, err
		}
		pos += uint64(copy(buf[pos:], raw))
	}
	dtype.ToLittleEndian(v.Type, buf[:pos])
	return int(n), nil
}
