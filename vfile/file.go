package vfile

import (
	"errors"
	"fmt"
	"io"
	"os"
)

// Source is a backend able to return an arbitrary byte range.
type Source interface {
	// ReadSlice returns the bytes in [start, end). Implementations return
	// exactly end-start bytes or an error.
	ReadSlice(start, end int64) ([]byte, error)

	// TotalSize returns the size of the resource in bytes. It never changes.
	TotalSize() int64
}

// ErrInvalidWhence is returned by Seek for an unknown whence value.
var ErrInvalidWhence = errors.New("vfile: invalid whence")

// FetchError reports a failed backend read.
type FetchError struct {
	Start, End int64
	Err        error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("vfile: reading bytes %d-%d: %v", e.Start, e.End, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// File is a seekable reader over a Source. It is not safe for concurrent
// use; callers serialize access to the cursor.
type File struct {
	src    Source
	size   int64
	cursor int64
}

// New returns a File positioned at offset 0.
func New(src Source) *File {
	return &File{src: src, size: src.TotalSize()}
}

// OpenLocal opens a file on disk.
func OpenLocal(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening file: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("stat file: %w", err)
	}
	return New(&SliceSource{r: f, size: info.Size(), closer: f}), nil
}

// Read reads up to len(p) bytes at the cursor with a single backend request
// and advances the cursor past them. At the end of the file it returns
// 0, io.EOF.
func (f *File) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	end := min(f.cursor+int64(len(p)), f.size)
	if end <= f.cursor {
		return 0, io.EOF
	}

	data, err := f.src.ReadSlice(f.cursor, end)
	if err != nil {
		var fe *FetchError
		if !errors.As(err, &fe) {
			err = &FetchError{Start: f.cursor, End: end, Err: err}
		}
		return 0, err
	}
	n := copy(p, data)
	f.cursor += int64(n)
	return n, nil
}

// Seek sets the cursor. The resolved position wraps modulo the file size;
// negative positions wrap from the end.
func (f *File) Seek(offset int64, whence int) (int64, error) {
	var pos int64
	switch whence {
	case io.SeekStart:
		pos = offset
	case io.SeekCurrent:
		pos = f.cursor + offset
	case io.SeekEnd:
		pos = f.size + offset
	default:
		return f.cursor, ErrInvalidWhence
	}

	if f.size == 0 {
		f.cursor = 0
		return 0, nil
	}
	pos %= f.size
	if pos < 0 {
		pos += f.size
	}
	f.cursor = pos
	return pos, nil
}

// TotalSize returns the size fixed at construction.
func (f *File) TotalSize() int64 {
	return f.size
}

// Close releases the source if it holds resources.
func (f *File) Close() error {
	if c, ok := f.src.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
