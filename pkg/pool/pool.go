// Package pool caches copy buffers between file transfers. sync.Pool drops
// unused items on garbage collection, which suits short-lived I/O buffers.
package pool

import (
	"io"
	"sync"
)

// DefaultBufferSize is the copy buffer size used when none is configured.
const DefaultBufferSize = 256 * 1024

// FixedBufferPool hands out byte slices of one fixed size.
type FixedBufferPool struct {
	size int64
	pool sync.Pool
}

// NewFixedBuffer returns a pool of size-byte buffers. A non-positive size
// falls back to DefaultBufferSize.
func NewFixedBuffer(size int64) *FixedBufferPool {
	if size <= 0 {
		size = DefaultBufferSize
	}
	return &FixedBufferPool{
		size: size,
		pool: sync.Pool{
			New: func() any {
				b := make([]byte, int(size))
				return &b
			},
		},
	}
}

// Size is the length of every buffer handed out.
func (fp *FixedBufferPool) Size() int64 { return fp.size }

func (fp *FixedBufferPool) Get() *[]byte {
	return fp.pool.Get().(*[]byte)
}

// Put returns b to the pool. Buffers of a foreign size are dropped.
func (fp *FixedBufferPool) Put(b *[]byte) {
	if b == nil || int64(cap(*b)) != fp.size {
		return
	}
	*b = (*b)[:fp.size]
	fp.pool.Put(b)
}

// Copy streams src into dst through a pooled buffer.
func (fp *FixedBufferPool) Copy(dst io.Writer, src io.Reader) (int64, error) {
	buf := fp.Get()
	defer fp.Put(buf)
	return io.CopyBuffer(dst, src, *buf)
}
