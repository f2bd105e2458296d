package metrics

import (
	"bytes"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paulschiretz/pgl-ingest/pkg/plog"
)

func TestIngestMetrics(t *testing.T) {
	progress := new(atomic.Uint64)
	m := NewIngestMetrics(progress)

	m.AddFilesCopied(3)
	m.AddFilesFailed(1)
	m.AddFilesPaired(2)
	m.AddSidecarsCopied(1)
	m.AddBytesWritten(2048)
	m.AddDirsCreated(4)
	progress.Add(7)

	assert.Equal(t, int64(3), m.FilesCopied.Load())
	assert.Equal(t, int64(1), m.FilesFailed.Load())
	assert.Equal(t, uint64(7), m.EntriesProcessed())
	assert.Same(t, progress, m.Progress())

	assert.NotNil(t, NewIngestMetrics(nil).Progress())
}

func TestLogSummary(t *testing.T) {
	var buf bytes.Buffer
	plog.SetOutput(&buf)
	t.Cleanup(func() { plog.SetOutput(os.Stderr) })

	m := NewIngestMetrics(nil)
	m.AddFilesCopied(2)
	m.AddBytesWritten(1024)
	m.LogSummary("Ingest finished")

	out := buf.String()
	assert.Contains(t, out, `msg="Ingest finished"`)
	assert.Contains(t, out, "files_copied=2")
	assert.Contains(t, out, `bytes_written="1.0 KiB"`)
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestProgressTicker(t *testing.T) {
	var buf syncBuffer
	plog.SetOutput(&buf)
	t.Cleanup(func() { plog.SetOutput(os.Stderr) })

	m := NewIngestMetrics(nil)
	m.StartProgress("Ingesting", 10*time.Millisecond)
	m.StartProgress("Ingesting", 10*time.Millisecond) // second start is ignored
	time.Sleep(50 * time.Millisecond)
	m.StopProgress()
	m.StopProgress()

	assert.Contains(t, buf.String(), `msg=Ingesting`)
}

func TestWriteTextfile(t *testing.T) {
	m := NewIngestMetrics(nil)
	m.AddFilesCopied(5)
	m.Progress().Add(9)

	path := filepath.Join(t.TempDir(), "pgl_ingest.prom")
	require.NoError(t, WriteTextfile(m, path, prometheus.Labels{"target": "primary"}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	out := string(data)
	assert.Contains(t, out, `pgl_ingest_files_copied_total{target="primary"} 5`)
	assert.Contains(t, out, `pgl_ingest_entries_processed_total{target="primary"} 9`)
	assert.Contains(t, out, "# TYPE pgl_ingest_duration_seconds gauge")
}
