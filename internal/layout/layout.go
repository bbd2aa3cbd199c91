package layout

import (
	"errors"
	"fmt"
	"math/bits"
)

var (
	// ErrRank is returned when an index vector does not match the number of
	// dimensions of the variable.
	ErrRank = errors.New("index rank mismatch")

	// ErrBounds is returned when an index lies outside the variable.
	ErrBounds = errors.New("index out of bounds")

	// ErrOverflow is returned when an offset or element count derived from
	// header values does not fit in 64 bits.
	ErrOverflow = errors.New("size overflows 64 bits")
)

// Shape describes the on-disk placement of one variable.
type Shape struct {
	// Dims holds the dimension lengths in declaration order. For record
	// variables Dims[0] is the current number of records.
	Dims []uint64

	// Record is set for variables whose first dimension is unlimited.
	Record bool

	// Begin is the file offset of the first element.
	Begin uint64

	// ElemSize is the external size of one element in bytes.
	ElemSize uint64

	// RecSize is the distance between consecutive records. Ignored for
	// fixed-size variables.
	RecSize uint64
}

// Run is a contiguous span of elements on disk.
type Run struct {
	Offset   uint64 // file offset of the first byte
	Elements uint64 // number of elements in the span
}

// Bytes returns the length of the run given an element size.
func (r Run) Bytes(elemSize uint64) uint64 {
	return r.Elements * elemSize
}

// Count returns the number of elements of the variable.
func (s Shape) Count() uint64 {
	return Product(s.Dims)
}

// Product multiplies dimension lengths. The product of no dimensions is 1.
func Product(dims []uint64) uint64 {
	n := uint64(1)
	for _, d := range dims {
		n *= d
	}
	return n
}

// CheckedProduct multiplies dimension lengths and reports false if the
// product does not fit in 64 bits.
func CheckedProduct(dims []uint64) (uint64, bool) {
	n := uint64(1)
	for _, d := range dims {
		var ok bool
		if n, ok = mul(n, d); !ok {
			return 0, false
		}
	}
	return n, true
}

func mul(a, b uint64) (uint64, bool) {
	hi, lo := bits.Mul64(a, b)
	return lo, hi == 0
}

func add(a, b uint64) (uint64, bool) {
	sum, carry := bits.Add64(a, b, 0)
	return sum, carry == 0
}

// SliceSize returns the unpadded byte size of one record of a record
// variable, or of the whole variable when it is fixed-size.
func (s Shape) SliceSize() uint64 {
	dims := s.Dims
	if s.Record && len(dims) > 0 {
		dims = dims[1:]
	}
	return Product(dims) * s.ElemSize
}

// VSize returns the padded per-record (or per-variable) size as recorded in
// the header.
func (s Shape) VSize() uint64 {
	return Pad4(s.SliceSize())
}

// Extent returns the offset one past the last byte addressed by the
// variable. A record variable with no records addresses nothing beyond its
// begin offset.
func (s Shape) Extent() uint64 {
	if !s.Record {
		return s.Begin + s.SliceSize()
	}
	if len(s.Dims) == 0 || s.Dims[0] == 0 {
		return s.Begin
	}
	return s.Begin + (s.Dims[0]-1)*s.RecSize + s.SliceSize()
}

// strides returns the byte distance between successive indices of each
// dimension. The record dimension, when present, strides by RecSize. It
// reports false if a stride overflows.
func (s Shape) strides() ([]uint64, bool) {
	ndims := len(s.Dims)
	strides := make([]uint64, ndims)
	if ndims == 0 {
		return strides, true
	}
	strides[ndims-1] = s.ElemSize
	for d := ndims - 2; d >= 0; d-- {
		if d == 0 && s.Record {
			break
		}
		var ok bool
		if strides[d], ok = mul(strides[d+1], s.Dims[d+1]); !ok {
			return nil, false
		}
	}
	if s.Record {
		strides[0] = s.RecSize
	}
	return strides, true
}

// Offset returns the file offset of the element at index.
func (s Shape) Offset(index []uint64) (uint64, error) {
	if len(index) != len(s.Dims) {
		return 0, fmt.Errorf("%w: got %d indices for %d dimensions", ErrRank, len(index), len(s.Dims))
	}
	strides, ok := s.strides()
	if !ok {
		return 0, ErrOverflow
	}
	off := s.Begin
	for d, i := range index {
		if i >= s.Dims[d] {
			return 0, fmt.Errorf("%w: index %d is %d, dimension length %d", ErrBounds, d, i, s.Dims[d])
		}
		step, ok := mul(i, strides[d])
		if !ok {
			return 0, ErrOverflow
		}
		if off, ok = add(off, step); !ok {
			return 0, ErrOverflow
		}
	}
	return off, nil
}

// Flat returns the row-major position of index among the variable's
// elements.
func (s Shape) Flat(index []uint64) (uint64, error) {
	if len(index) != len(s.Dims) {
		return 0, fmt.Errorf("%w: got %d indices for %d dimensions", ErrRank, len(index), len(s.Dims))
	}
	var flat uint64
	for d, i := range index {
		if i >= s.Dims[d] {
			return 0, fmt.Errorf("%w: index %d is %d, dimension length %d", ErrBounds, d, i, s.Dims[d])
		}
		flat = flat*s.Dims[d] + i
	}
	return flat, nil
}

// FlatRuns plans n consecutive elements starting at row-major position first.
// Fixed-size variables yield a single run; record variables yield one run
// per record touched.
func (s Shape) FlatRuns(first, n uint64) []Run {
	if n == 0 {
		return nil
	}
	if !s.Record {
		return []Run{{Offset: s.Begin + first*s.ElemSize, Elements: n}}
	}

	perRecord := Product(s.Dims[1:])
	if perRecord == 0 {
		return nil
	}
	var runs []Run
	for n > 0 {
		rec, within := first/perRecord, first%perRecord
		take := min(n, perRecord-within)
		runs = append(runs, Run{
			Offset:   s.Begin + rec*s.RecSize + within*s.ElemSize,
			Elements: take,
		})
		first += take
		n -= take
	}
	return runs
}

// Window validates a half-open selection [start, end) against dims and
// returns its start and count. An empty start selects from the origin and an
// empty end selects to the end of every dimension.
func Window(dims, start, end []uint64) ([]uint64, []uint64, error) {
	ndims := len(dims)
	if len(start) == 0 {
		start = make([]uint64, ndims)
	}
	if len(end) == 0 {
		end = dims
	}
	if len(start) != ndims || len(end) != ndims {
		return nil, nil, fmt.Errorf("%w: start has %d, end has %d, variable has %d dimensions",
			ErrRank, len(start), len(end), ndims)
	}

	count := make([]uint64, ndims)
	for d := range dims {
		if end[d] > dims[d] {
			return nil, nil, fmt.Errorf("%w: end %d is %d, dimension length %d", ErrBounds, d, end[d], dims[d])
		}
		if start[d] > end[d] {
			return nil, nil, fmt.Errorf("%w: start %d is %d, past end %d", ErrBounds, d, start[d], end[d])
		}
		count[d] = end[d] - start[d]
	}
	return start, count, nil
}

// WindowEnd returns the offset one past the last byte addressed by the
// selection described by start and count, which must come from [Window]. An
// empty selection ends at Begin.
func (s Shape) WindowEnd(start, count []uint64) (uint64, error) {
	n, ok := CheckedProduct(count)
	if !ok {
		return 0, fmt.Errorf("%w: element count of window %v", ErrOverflow, count)
	}
	if n == 0 {
		return s.Begin, nil
	}
	strides, ok := s.strides()
	if !ok {
		return 0, fmt.Errorf("%w: strides of shape %v", ErrOverflow, s.Dims)
	}
	end := s.Begin
	for d := range count {
		step, ok := mul(start[d]+count[d]-1, strides[d])
		if ok {
			end, ok = add(end, step)
		}
		if !ok {
			return 0, fmt.Errorf("%w: end of window in dimension %d", ErrOverflow, d)
		}
	}
	if end, ok = add(end, s.ElemSize); !ok {
		return 0, fmt.Errorf("%w: end of window", ErrOverflow)
	}
	return end, nil
}

// Runs plans the selection described by start and count as contiguous file
// spans in row-major order. Rows that are adjacent on disk are merged.
// start and count must come from [Window] and pass [Shape.WindowEnd].
func (s Shape) Runs(start, count []uint64) []Run {
	if Product(count) == 0 {
		return nil
	}
	ndims := len(s.Dims)
	if ndims == 0 {
		return []Run{{Offset: s.Begin, Elements: 1}}
	}

	strides, _ := s.strides()
	var runs []Run
	s.collectRuns(&runs, start, count, strides, s.Begin, 0)
	return runs
}

// collectRuns recursively appends one run per innermost row.
func (s Shape) collectRuns(runs *[]Run, start, count, strides []uint64, offset uint64, dim int) {
	if dim == len(s.Dims)-1 {
		row := Run{
			Offset:   offset + start[dim]*strides[dim],
			Elements: count[dim],
		}
		if n := len(*runs); n > 0 {
			last := &(*runs)[n-1]
			if last.Offset+last.Elements*s.ElemSize == row.Offset {
				last.Elements += row.Elements
				return
			}
		}
		*runs = append(*runs, row)
		return
	}

	for i := uint64(0); i < count[dim]; i++ {
		s.collectRuns(runs, start, count, strides, offset+(start[dim]+i)*strides[dim], dim+1)
	}
}

// RecordStride returns the distance between records given the unpadded
// record slice sizes of every record variable, in declaration order. A file
// with a single record variable does not pad its records.
func RecordStride(slices []uint64) uint64 {
	if len(slices) == 1 {
		return slices[0]
	}
	var total uint64
	for _, n := range slices {
		total += Pad4(n)
	}
	return total
}

// Pad4 rounds n up to a multiple of 4.
func Pad4(n uint64) uint64 {
	return (n + 3) &^ 3
}
