package core

import (
	"bytes"
	"sync"
)

// GenericPool is a generic wrapper around sync.Pool
type GenericPool[T any] struct {
	pool sync.Pool
}

// NewGenericPool creates a new GenericPool with a function to create new items.
func NewGenericPool[T any](newItem func() T) *GenericPool[T] {
	return &GenericPool[T]{
		pool: sync.Pool{
			New: func() interface{} {
				return newItem()
			},
		},
	}
}

// Get retrieves an item from the pool.
func (p *GenericPool[T]) Get() T {
	return p.pool.Get().(T)
}

// Put returns an item to the pool.
func (p *GenericPool[T]) Put(item T) {
	p.pool.Put(item)
}

// DefaultStreamBufferSize is the initial capacity of pooled buffers used
// while compressing checkpoint streams.
const DefaultStreamBufferSize = 32 * 1024

// BufferPool hands out reset buffers for compression scratch space.
var BufferPool = NewBufferPool(DefaultStreamBufferSize)

// BytesBufferPool pools *bytes.Buffer values and resets them on Put.
type BytesBufferPool struct {
	inner *GenericPool[*bytes.Buffer]
}

// NewBufferPool creates a new buffer pool whose buffers start with the given capacity.
func NewBufferPool(initialCapacity int) *BytesBufferPool {
	if initialCapacity < 0 {
		initialCapacity = 0
	}
	return &BytesBufferPool{
		inner: NewGenericPool(func() *bytes.Buffer {
			return bytes.NewBuffer(make([]byte, 0, initialCapacity))
		}),
	}
}

func (bp *BytesBufferPool) Get() *bytes.Buffer {
	return bp.inner.Get()
}

func (bp *BytesBufferPool) Put(buf *bytes.Buffer) {
	buf.Reset()
	bp.inner.Put(buf)
}
