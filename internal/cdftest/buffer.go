package cdftest

// Buffer is a growable in-memory io.WriterAt.
type Buffer struct {
	data []byte
}

// WriteAt writes p at off, growing the buffer as needed.
func (b *Buffer) WriteAt(p []byte, off int64) (int, error) {
	b.Grow(int(off) + len(p))
	return copy(b.data[off:], p), nil
}

// Grow extends the buffer with zeros to at least n bytes.
func (b *Buffer) Grow(n int) {
	if n > len(b.data) {
		b.data = append(b.data, make([]byte, n-len(b.data))...)
	}
}

// Bytes returns the buffer contents.
func (b *Buffer) Bytes() []byte {
	return b.data
}
