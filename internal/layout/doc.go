// Package layout computes where netCDF classic variable data lives in a file.
//
// Classic files store every variable in one of two ways:
//
//   - Fixed-size variables occupy one contiguous block starting at the
//     variable's begin offset, in row-major order.
//
//   - Record variables have an unlimited first dimension. Each record holds
//     one slice of every record variable, interleaved, so record r of a
//     variable starts at begin + r*recsize, where recsize is the
//     [RecordStride] of the file.
//
// # Selections
//
// [Window] turns the start/end index vectors accepted by the data API into a
// validated start and count. [Shape.Runs] then plans the selection as a list
// of contiguous byte runs in row-major order, merging neighbouring rows when
// they are adjacent on disk, so that each run can be satisfied by a single
// read of the underlying file:
//
//	shape := layout.Shape{Dims: []uint64{4, 3}, Begin: 96, ElemSize: 4}
//	start, count, err := layout.Window(shape.Dims, nil, nil)
//	runs := shape.Runs(start, count)
//
// The planning walks dimensions recursively and emits one run per innermost
// row, the same way a hyperslab is copied out of an in-memory array.
package layout
