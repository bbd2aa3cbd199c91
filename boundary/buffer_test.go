package boundary

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type celsius float32

func TestElemTypeOf(t *testing.T) {
	assert.Equal(t, ElemInt8, ElemTypeOf[int8]())
	assert.Equal(t, ElemInt16, ElemTypeOf[int16]())
	assert.Equal(t, ElemInt32, ElemTypeOf[int32]())
	assert.Equal(t, ElemUint8, ElemTypeOf[uint8]())
	assert.Equal(t, ElemUint16, ElemTypeOf[uint16]())
	assert.Equal(t, ElemUint32, ElemTypeOf[uint32]())
	assert.Equal(t, ElemFloat32, ElemTypeOf[float32]())
	assert.Equal(t, ElemFloat64, ElemTypeOf[float64]())
	assert.Equal(t, ElemFloat32, ElemTypeOf[celsius]())

	for _, e := range ElemTypes {
		assert.NotZero(t, e.Size(), e.String())
	}
}

func TestExportRelease(t *testing.T) {
	alloc := NewHeapAllocator()
	reg := NewRegistry(alloc)

	b, err := Export(reg, []float64{1.5, 2.5, 3.5})
	require.NoError(t, err)
	assert.Equal(t, 3, b.Len)
	assert.Equal(t, 3, b.Cap)
	assert.Equal(t, ElemFloat64, b.Elem)
	assert.Equal(t, 1, reg.Outstanding())
	assert.Equal(t, 1, alloc.Live())

	view, err := View[float64](b)
	require.NoError(t, err)
	assert.Equal(t, []float64{1.5, 2.5, 3.5}, view)

	require.NoError(t, reg.Release(b))
	assert.Equal(t, 0, reg.Outstanding())
	assert.Equal(t, 0, alloc.Live())
}

func TestDoubleReleaseRejected(t *testing.T) {
	reg := NewRegistry(nil)

	b, err := Export(reg, []int16{1, 2})
	require.NoError(t, err)
	require.NoError(t, reg.Release(b))

	assert.ErrorIs(t, reg.Release(b), ErrUnknownBuffer)
	assert.ErrorIs(t, reg.Release(Buffer{}), ErrUnknownBuffer)
}

func TestMismatchedReleaseRejected(t *testing.T) {
	reg := NewRegistry(nil)

	b, err := Export(reg, []int32{7, 8, 9})
	require.NoError(t, err)

	wrongElem := b
	wrongElem.Elem = ElemFloat32
	assert.ErrorIs(t, reg.Release(wrongElem), ErrBufferMismatch)

	wrongLen := b
	wrongLen.Len = 2
	assert.ErrorIs(t, reg.Release(wrongLen), ErrBufferMismatch)

	assert.Equal(t, 1, reg.Outstanding(), "a rejected release must not free the buffer")
	require.NoError(t, reg.Release(b))
}

func TestExportEmpty(t *testing.T) {
	reg := NewRegistry(nil)

	a, err := Export(reg, []uint8{})
	require.NoError(t, err)
	b, err := Export[uint8](reg, nil)
	require.NoError(t, err)

	assert.Equal(t, 0, a.Len)
	assert.NotEqual(t, a.Ptr, b.Ptr, "every export needs a distinct descriptor")

	view, err := View[uint8](a)
	require.NoError(t, err)
	assert.Empty(t, view)

	require.NoError(t, reg.Release(a))
	require.NoError(t, reg.Release(b))
}

func TestViewWrongType(t *testing.T) {
	reg := NewRegistry(nil)
	b, err := Export(reg, []uint32{1})
	require.NoError(t, err)
	defer reg.Release(b)

	_, err = View[int32](b)
	assert.ErrorIs(t, err, ErrBufferMismatch)
}

func TestHeapAllocatorAlignment(t *testing.T) {
	alloc := NewHeapAllocator()
	for _, size := range []int{1, 3, 8, 17} {
		p, err := alloc.Alloc(size)
		require.NoError(t, err)
		assert.Zero(t, uintptr(p)%8)
		alloc.Free(p)
	}

	_, err := alloc.Alloc(0)
	assert.Error(t, err)
}
