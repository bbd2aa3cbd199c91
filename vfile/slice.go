package vfile

import (
	"errors"
	"io"
)

// SliceSource reads slices from an io.ReaderAt of fixed size.
type SliceSource struct {
	r      io.ReaderAt
	size   int64
	closer io.Closer
}

// NewSliceSource wraps r. size must not exceed the bytes r can return.
func NewSliceSource(r io.ReaderAt, size int64) *SliceSource {
	s := &SliceSource{r: r, size: size}
	if c, ok := r.(io.Closer); ok {
		s.closer = c
	}
	return s
}

// ReadSlice reads the whole range before returning.
func (s *SliceSource) ReadSlice(start, end int64) ([]byte, error) {
	if start < 0 || end > s.size || start > end {
		return nil, &FetchError{Start: start, End: end, Err: io.ErrUnexpectedEOF}
	}
	buf := make([]byte, end-start)
	n, err := s.r.ReadAt(buf, start)
	if n == len(buf) {
		return buf, nil
	}
	if err == nil || errors.Is(err, io.EOF) {
		err = io.ErrUnexpectedEOF
	}
	return nil, &FetchError{Start: start, End: end, Err: err}
}

// TotalSize returns the configured size.
func (s *SliceSource) TotalSize() int64 {
	return s.size
}

// Close closes the underlying reader when it is an io.Closer.
func (s *SliceSource) Close() error {
	if s.closer != nil {
		return s.closer.Close()
	}
	return nil
}
