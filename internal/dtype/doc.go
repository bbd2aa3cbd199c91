// Package dtype provides netCDF classic datatype handling and Go type conversion.
//
// The classic format knows six external types, identified on disk by a
// 32-bit tag. The tags are also the numeric type codes handed to host
// callers, so they are part of the wire contract:
//
//	Tag | netCDF  | Size | Natural Go type
//	----|---------|------|----------------
//	1   | byte    | 1    | int8
//	2   | char    | 1    | uint8
//	3   | short   | 2    | int16
//	4   | int     | 4    | int32
//	5   | float   | 4    | float32
//	6   | double  | 8    | float64
//
// # Conversion
//
// Values are stored big-endian. [Decode] and [DecodeSlice] convert stored
// elements to any [Element] type using Go numeric conversion, so a caller
// may read a short variable as float64 or a double variable as int32
// (truncating toward zero, as Go conversions do).
//
// [AttributeValue] decodes a whole attribute payload: char attributes become
// a string with trailing NULs removed, numeric attributes become a slice of
// the natural Go type.
//
// [ToLittleEndian] re-encodes stored elements in little-endian order for
// hosts that view buffers through native typed arrays.
package dtype
