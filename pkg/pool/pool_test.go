package pool

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFixedBufferPool(t *testing.T) {
	t.Run("Get returns buffers of the configured size", func(t *testing.T) {
		fp := NewFixedBuffer(4096)
		b := fp.Get()
		assert.Len(t, *b, 4096)
		fp.Put(b)
	})

	t.Run("Non-positive size falls back to default", func(t *testing.T) {
		fp := NewFixedBuffer(0)
		assert.Equal(t, int64(DefaultBufferSize), fp.Size())
	})

	t.Run("Put ignores foreign buffers", func(t *testing.T) {
		fp := NewFixedBuffer(1024)
		foreign := make([]byte, 10)
		fp.Put(&foreign)
		fp.Put(nil)
		assert.Len(t, *fp.Get(), 1024)
	})

	t.Run("Put restores a resliced buffer", func(t *testing.T) {
		fp := NewFixedBuffer(1024)
		b := fp.Get()
		*b = (*b)[:3]
		fp.Put(b)
		assert.Len(t, *fp.Get(), 1024)
	})
}

func TestFixedBufferPool_Copy(t *testing.T) {
	fp := NewFixedBuffer(8)
	payload := strings.Repeat("raw-bytes", 100)

	var dst bytes.Buffer
	n, err := fp.Copy(&dst, strings.NewReader(payload))
	require.NoError(t, err)
	assert.Equal(t, int64(len(payload)), n)
	assert.Equal(t, payload, dst.String())
}
