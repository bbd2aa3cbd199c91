// Package binary provides low-level binary I/O operations for netCDF header
// parsing and fixture writing.
package binary

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// ErrInvalidSize is returned when an invalid offset size is specified.
var ErrInvalidSize = errors.New("invalid offset size: must be 4 or 8")

// TruncatedError reports that the input ended before a field could be read.
type TruncatedError struct {
	Offset int64 // position of the field
	Want   int   // bytes requested
	Got    int   // bytes available
}

func (e *TruncatedError) Error() string {
	return fmt.Sprintf("truncated input at offset %d: wanted %d bytes, got %d", e.Offset, e.Want, e.Got)
}

// Reader reads big-endian netCDF header fields sequentially from an
// io.Reader, tracking the absolute position of the cursor.
type Reader struct {
	r          io.Reader
	order      binary.ByteOrder
	offsetSize int
	pos        int64
}

// Config holds reader configuration, derived from the format version.
type Config struct {
	ByteOrder  binary.ByteOrder
	OffsetSize int // 4 (classic) or 8 (64-bit offset)
}

// DefaultConfig returns the classic format configuration: big-endian with
// 4-byte offsets.
func DefaultConfig() Config {
	return Config{
		ByteOrder:  binary.BigEndian,
		OffsetSize: 4,
	}
}

// NewReader creates a binary reader with the given configuration.
func NewReader(r io.Reader, cfg Config) *Reader {
	return &Reader{
		r:          r,
		order:      cfg.ByteOrder,
		offsetSize: cfg.OffsetSize,
	}
}

// SetOffsetSize switches the width used by ReadOffset. It is called once the
// version byte has been decoded.
func (r *Reader) SetOffsetSize(size int) error {
	if size != 4 && size != 8 {
		return ErrInvalidSize
	}
	r.offsetSize = size
	return nil
}

// Pos returns the current read position.
func (r *Reader) Pos() int64 {
	return r.pos
}

// ReadBytes reads exactly n bytes from the current position.
// A short read is reported as *TruncatedError; other reader failures are
// returned unchanged so that callers can tell I/O faults from malformed input.
func (r *Reader) ReadBytes(n int) ([]byte, error) {
	if n <= 0 {
		return nil, nil
	}
	buf := make([]byte, n)
	got, err := io.ReadFull(r.r, buf)
	if err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, &TruncatedError{Offset: r.pos, Want: n, Got: got}
		}
		return nil, err
	}
	r.pos += int64(n)
	return buf, nil
}

// ReadUint8 reads an unsigned 8-bit integer.
func (r *Reader) ReadUint8() (uint8, error) {
	buf, err := r.ReadBytes(1)
	if err != nil {
		return 0, err
	}
	return buf[0], nil
}

// ReadUint16 reads an unsigned 16-bit integer.
func (r *Reader) ReadUint16() (uint16, error) {
	buf, err := r.ReadBytes(2)
	if err != nil {
		return 0, err
	}
	return r.order.Uint16(buf), nil
}

// ReadUint32 reads an unsigned 32-bit integer.
func (r *Reader) ReadUint32() (uint32, error) {
	buf, err := r.ReadBytes(4)
	if err != nil {
		return 0, err
	}
	return r.order.Uint32(buf), nil
}

// ReadUint64 reads an unsigned 64-bit integer.
func (r *Reader) ReadUint64() (uint64, error) {
	buf, err := r.ReadBytes(8)
	if err != nil {
		return 0, err
	}
	return r.order.Uint64(buf), nil
}

// ReadOffset reads a file offset using the configured offset size.
func (r *Reader) ReadOffset() (uint64, error) {
	if r.offsetSize == 8 {
		return r.ReadUint64()
	}
	v, err := r.ReadUint32()
	return uint64(v), err
}

// ReadPadded reads n bytes and then skips the zero padding that aligns the
// field to a 4-byte boundary.
func (r *Reader) ReadPadded(n int) ([]byte, error) {
	buf, err := r.ReadBytes(n)
	if err != nil {
		return nil, err
	}
	if pad := Padding(n); pad > 0 {
		if _, err := r.ReadBytes(pad); err != nil {
			return nil, err
		}
	}
	return buf, nil
}

// OffsetSize returns the configured offset size in bytes.
func (r *Reader) OffsetSize() int {
	return r.offsetSize
}

// ByteOrder returns the configured byte order.
func (r *Reader) ByteOrder() binary.ByteOrder {
	return r.order
}

// Padding returns the number of bytes needed to round n up to a multiple of 4.
func Padding(n int) int {
	if rem := n % 4; rem != 0 {
		return 4 - rem
	}
	return 0
}
