package render

import (
	"fmt"
	"sync"
)

// bufferPool holds a set of named buffer pools
type bufferPool[T any] struct {
	mu    sync.Mutex
	pools map[string]*bufferEntry
}

// bufferEntry defines a single buffer
type bufferEntry struct {
	pool    sync.Pool
	maxSize int
}

// newBufferPool returns an empty bufferPool
func newBufferPool[T any]() *bufferPool[T] {
	return &bufferPool[T]{
		pools: make(map[string]*bufferEntry),
	}
}

// Create registers a new pool under 'name' that will produce buffers
// up to maxSize.  Calling it again with the same name grows the pool when
// maxSize is larger.
func (b *bufferPool[T]) Create(name string, maxSize int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if entry, exists := b.pools[name]; exists && entry.maxSize >= maxSize {
		return
	}

	entry := &bufferEntry{maxSize: maxSize}

	entry.pool.New = func() any {
		return make([]T, maxSize)
	}

	b.pools[name] = entry
}

// Get returns a zeroed slice of length 'size' from the named pool.
// If size > maxSize, it allocates a new slice of exactly size.
// Panics if the pool name is unknown.
func (b *bufferPool[T]) Get(name string, size int) []T {
	entry := b.entry(name)

	buf := entry.pool.Get().([]T)

	if cap(buf) < size {
		return make([]T, size)
	}

	// get buffer of required size
	buf = buf[:size]

	var zero T
	for i := range buf {
		buf[i] = zero
	}

	return buf
}

// Put returns a buffer back into it's named pool.  Buffers not obtained
// from the pool are dropped.
func (b *bufferPool[T]) Put(name string, buf []T) {
	entry := b.entry(name)

	if cap(buf) < entry.maxSize {
		return
	}

	// restore to full capacity so it matches entry.New next time
	entry.pool.Put(buf[:entry.maxSize])
}

// entry returns the named pool
func (b *bufferPool[T]) entry(name string) *bufferEntry {
	b.mu.Lock()
	entry, ok := b.pools[name]
	b.mu.Unlock()

	if !ok {
		panic(fmt.Sprintf("buffer pool %q not registered", name))
	}

	return entry
}
