package boundary

import (
	"errors"
	"fmt"
	"sync"
	"unsafe"

	"github.com/robert-malhotra/go-netcdf/netcdf"
)

var (
	// ErrUnknownBuffer is returned when a descriptor was not produced by the
	// registry or has already been released.
	ErrUnknownBuffer = errors.New("boundary: unknown or already released buffer")

	// ErrBufferMismatch is returned when a descriptor's length, capacity or
	// element type differ from the ones it was exported with.
	ErrBufferMismatch = errors.New("boundary: buffer descriptor does not match export")
)

// ElemType identifies the element layout of a Buffer.
type ElemType uint8

const (
	ElemInt8 ElemType = iota + 1
	ElemInt16
	ElemInt32
	ElemUint8
	ElemUint16
	ElemUint32
	ElemFloat32
	ElemFloat64
)

// ElemTypes lists the element types in ABI order.
var ElemTypes = []ElemType{
	ElemInt8, ElemInt16, ElemInt32, ElemUint8, ElemUint16, ElemUint32, ElemFloat32, ElemFloat64,
}

// Size returns the element size in bytes.
func (e ElemType) Size() int {
	switch e {
	case ElemInt8, ElemUint8:
		return 1
	case ElemInt16, ElemUint16:
		return 2
	case ElemInt32, ElemUint32, ElemFloat32:
		return 4
	case ElemFloat64:
		return 8
	default:
		return 0
	}
}

// String returns the short name used in exported symbol names (i8, f64, ...).
func (e ElemType) String() string {
	switch e {
	case ElemInt8:
		return "i8"
	case ElemInt16:
		return "i16"
	case ElemInt32:
		return "i32"
	case ElemUint8:
		return "u8"
	case ElemUint16:
		return "u16"
	case ElemUint32:
		return "u32"
	case ElemFloat32:
		return "f32"
	case ElemFloat64:
		return "f64"
	default:
		return fmt.Sprintf("elem(%d)", uint8(e))
	}
}

// ElemTypeOf returns the element type of T.
func ElemTypeOf[T netcdf.Element]() ElemType {
	var zero T
	switch any(zero).(type) {
	case int8:
		return ElemInt8
	case int16:
		return ElemInt16
	case int32:
		return ElemInt32
	case uint8:
		return ElemUint8
	case uint16:
		return ElemUint16
	case uint32:
		return ElemUint32
	case float32:
		return ElemFloat32
	case float64:
		return ElemFloat64
	}
	// Named types with a numeric underlying type.
	switch unsafe.Sizeof(zero) {
	case 1:
		if T(0)-1 > 0 {
			return ElemUint8
		}
		return ElemInt8
	case 2:
		if T(0)-1 > 0 {
			return ElemUint16
		}
		return ElemInt16
	case 4:
		if T(1)/2 > 0 {
			return ElemFloat32
		}
		if T(0)-1 > 0 {
			return ElemUint32
		}
		return ElemInt32
	default:
		return ElemFloat64
	}
}

// Buffer describes elements whose ownership has moved to the caller.
// Len and Cap count elements.
type Buffer struct {
	Ptr  unsafe.Pointer
	Len  int
	Cap  int
	Elem ElemType
}

// Allocator provides memory the caller can address.
type Allocator interface {
	// Alloc returns size bytes aligned for any element type.
	Alloc(size int) (unsafe.Pointer, error)
	// Free returns memory obtained from Alloc.
	Free(p unsafe.Pointer)
}

// HeapAllocator allocates from the Go heap and keeps every live block
// reachable until it is freed, so pointers handed to a host stay valid.
type HeapAllocator struct {
	mu   sync.Mutex
	live map[unsafe.Pointer][]uint64
}

// NewHeapAllocator returns an empty allocator.
func NewHeapAllocator() *HeapAllocator {
	return &HeapAllocator{live: make(map[unsafe.Pointer][]uint64)}
}

// Alloc returns a zeroed block. Blocks are backed by []uint64 so they are
// 8-byte aligned.
func (a *HeapAllocator) Alloc(size int) (unsafe.Pointer, error) {
	if size <= 0 {
		return nil, fmt.Errorf("boundary: invalid allocation size %d", size)
	}
	block := make([]uint64, (size+7)/8)
	p := unsafe.Pointer(&block[0])

	a.mu.Lock()
	a.live[p] = block
	a.mu.Unlock()
	return p, nil
}

// Free drops the block. Unknown pointers are ignored.
func (a *HeapAllocator) Free(p unsafe.Pointer) {
	a.mu.Lock()
	delete(a.live, p)
	a.mu.Unlock()
}

// Live returns the number of blocks not yet freed.
func (a *HeapAllocator) Live() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.live)
}

// Registry tracks exported buffers so each one is released exactly once with
// the descriptor it was exported as.
type Registry struct {
	mu    sync.Mutex
	alloc Allocator
	live  map[unsafe.Pointer]Buffer
}

// NewRegistry returns a registry allocating from a. A nil allocator selects
// a HeapAllocator.
func NewRegistry(a Allocator) *Registry {
	if a == nil {
		a = NewHeapAllocator()
	}
	return &Registry{alloc: a, live: make(map[unsafe.Pointer]Buffer)}
}

// Export copies values into allocator memory and records the descriptor.
// An empty slice still allocates one element so every descriptor has a
// distinct pointer.
func Export[T netcdf.Element](r *Registry, values []T) (Buffer, error) {
	elem := ElemTypeOf[T]()
	capacity := max(len(values), 1)

	p, err := r.alloc.Alloc(capacity * elem.Size())
	if err != nil {
		return Buffer{}, fmt.Errorf("allocating %d %s elements: %w", capacity, elem, err)
	}
	copy(unsafe.Slice((*T)(p), capacity), values)

	b := Buffer{Ptr: p, Len: len(values), Cap: capacity, Elem: elem}
	r.mu.Lock()
	r.live[p] = b
	r.mu.Unlock()
	return b, nil
}

// Release frees an exported buffer. A second release of the same descriptor
// returns ErrUnknownBuffer; a descriptor whose length, capacity or element
// type was altered returns ErrBufferMismatch and leaves the buffer live.
func (r *Registry) Release(b Buffer) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	want, ok := r.live[b.Ptr]
	if !ok || b.Ptr == nil {
		return ErrUnknownBuffer
	}
	if want != b {
		return fmt.Errorf("%w: exported %d/%d %s, got %d/%d %s", ErrBufferMismatch,
			want.Len, want.Cap, want.Elem, b.Len, b.Cap, b.Elem)
	}
	delete(r.live, b.Ptr)
	r.alloc.Free(b.Ptr)
	return nil
}

// Outstanding returns the number of buffers exported and not yet released.
func (r *Registry) Outstanding() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.live)
}

// View returns the elements of a live buffer without copying. The slice is
// valid until the buffer is released.
func View[T netcdf.Element](b Buffer) ([]T, error) {
	if b.Elem != ElemTypeOf[T]() {
		return nil, fmt.Errorf("%w: buffer holds %s", ErrBufferMismatch, b.Elem)
	}
	if b.Ptr == nil {
		return nil, ErrUnknownBuffer
	}
	return unsafe.Slice((*T)(b.Ptr), b.Len), nil
}
