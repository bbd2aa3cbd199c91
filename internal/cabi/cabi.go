// Package cabi implements the C calling surface shared by the shared library
// and the WASI reactor builds. Strings cross as NUL-terminated byte arrays,
// index arrays as (pointer, count) pairs of int32, and range results as a
// pointer to a descriptor of three machine words: data pointer, length and
// capacity.
//
// Every string and descriptor handed out is allocated from the Allocator
// and stays valid until the caller returns it with FreeString or DropBytes.
package cabi

import (
	"sync"
	"unsafe"

	"github.com/robert-malhotra/go-netcdf/boundary"
	"github.com/robert-malhotra/go-netcdf/netcdf"
)

// Descriptor is the layout a host reads after a values call. Its words are
// as wide as a host pointer: 32 bits under wasm, uintptr elsewhere.
type Descriptor struct {
	Ptr word
	Len word
	Cap word
}

// Exports binds a session to an allocator the host can address.
type Exports struct {
	Session *boundary.Session
	alloc   boundary.Allocator

	mu    sync.Mutex
	descs map[unsafe.Pointer]boundary.Buffer
}

// New returns exports whose buffers, strings and descriptors all come from
// alloc.
func New(alloc boundary.Allocator, opts ...boundary.SessionOption) *Exports {
	return &Exports{
		Session: boundary.NewSession(boundary.NewRegistry(alloc), opts...),
		alloc:   alloc,
		descs:   make(map[unsafe.Pointer]boundary.Buffer),
	}
}

// Malloc exposes the allocator to hosts that need to pass arguments in.
func (x *Exports) Malloc(size int) unsafe.Pointer {
	p, err := x.alloc.Alloc(size)
	if err != nil {
		return nil
	}
	return p
}

// Free returns memory obtained from Malloc.
func (x *Exports) Free(p unsafe.Pointer) {
	if p != nil {
		x.alloc.Free(p)
	}
}

// CString copies s into allocator memory with a trailing NUL. It returns nil
// when allocation fails.
func (x *Exports) CString(s string) unsafe.Pointer {
	p := x.Malloc(len(s) + 1)
	if p == nil {
		return nil
	}
	buf := unsafe.Slice((*byte)(p), len(s)+1)
	copy(buf, s)
	buf[len(s)] = 0
	return p
}

// FreeString releases a string returned by CString.
func (x *Exports) FreeString(p unsafe.Pointer) {
	x.Free(p)
}

// GoString copies the NUL-terminated string at p. A nil p is "".
func GoString(p unsafe.Pointer) string {
	if p == nil {
		return ""
	}
	n := 0
	for *(*byte)(unsafe.Add(p, n)) != 0 {
		n++
	}
	return string(unsafe.Slice((*byte)(p), n))
}

// Indices converts a host index array. Negative entries are kept so the
// read reports them as invalid.
func Indices(p unsafe.Pointer, n int) []int {
	if p == nil || n <= 0 {
		return nil
	}
	raw := unsafe.Slice((*int32)(p), n)
	out := make([]int, n)
	for i, v := range raw {
		out[i] = int(v)
	}
	return out
}

// Value reads one element for a *_value_for export.
func Value[T netcdf.Element](x *Exports, name unsafe.Pointer, index unsafe.Pointer, n int) T {
	return boundary.SessionValue[T](x.Session, GoString(name), Indices(index, n))
}

// Values reads a window for a *_values_for export and returns a descriptor,
// or nil on failure.
func Values[T netcdf.Element](x *Exports, name, start unsafe.Pointer, startLen int, end unsafe.Pointer, endLen int) unsafe.Pointer {
	b, ok := boundary.SessionValues[T](x.Session, GoString(name), Indices(start, startLen), Indices(end, endLen))
	if !ok {
		return nil
	}

	p := x.Malloc(int(unsafe.Sizeof(Descriptor{})))
	if p == nil {
		x.Session.Drop(b)
		return nil
	}
	*(*Descriptor)(p) = Descriptor{Ptr: word(uintptr(b.Ptr)), Len: word(b.Len), Cap: word(b.Cap)}

	x.mu.Lock()
	x.descs[p] = b
	x.mu.Unlock()
	return p
}

// DropBytes releases a descriptor returned by Values together with the
// elements it points at. The length and capacity are taken from the
// descriptor memory, so a host that altered them is refused and nothing is
// freed. Unknown or already dropped descriptors are refused as well.
func (x *Exports) DropBytes(desc unsafe.Pointer) bool {
	x.mu.Lock()
	defer x.mu.Unlock()

	b, ok := x.descs[desc]
	if !ok {
		return false
	}
	d := *(*Descriptor)(desc)
	if d.Ptr != word(uintptr(b.Ptr)) {
		return false
	}
	b.Len, b.Cap = int(d.Len), int(d.Cap)
	if !x.Session.Drop(b) {
		return false
	}
	delete(x.descs, desc)
	x.alloc.Free(desc)
	return true
}

// Outstanding returns the number of descriptors not yet dropped.
func (x *Exports) Outstanding() int {
	x.mu.Lock()
	defer x.mu.Unlock()
	return len(x.descs)
}
