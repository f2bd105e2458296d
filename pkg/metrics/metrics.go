// Package metrics collects ingest statistics, logs periodic summaries and can
// export the final figures for the node-exporter textfile collector.
package metrics

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/paulschiretz/pgl-ingest/pkg/plog"
)

// Metrics defines the interface for collecting and reporting ingest statistics.
type Metrics interface {
	AddFilesCopied(n int64)
	AddFilesFailed(n int64)
	AddFilesPaired(n int64)
	AddSidecarsCopied(n int64)
	AddBytesWritten(n int64)
	AddDirsCreated(n int64)
	LogSummary(msg string)

	StartProgress(msg string, interval time.Duration)
	StopProgress()
}

// IngestMetrics holds the atomic counters of an ingest run. Entries processed
// is read from the ingestor's shared progress counter.
type IngestMetrics struct {
	FilesCopied    atomic.Int64
	FilesFailed    atomic.Int64
	FilesPaired    atomic.Int64
	SidecarsCopied atomic.Int64
	BytesWritten   atomic.Int64
	DirsCreated    atomic.Int64

	progress  *atomic.Uint64
	mu        sync.Mutex
	stopChan  chan struct{}
	startTime time.Time
}

// NewIngestMetrics returns metrics reading entries processed from progress.
// A nil progress allocates a private counter.
func NewIngestMetrics(progress *atomic.Uint64) *IngestMetrics {
	if progress == nil {
		progress = new(atomic.Uint64)
	}
	return &IngestMetrics{progress: progress, startTime: time.Now()}
}

func (m *IngestMetrics) AddFilesCopied(n int64)    { m.FilesCopied.Add(n) }
func (m *IngestMetrics) AddFilesFailed(n int64)    { m.FilesFailed.Add(n) }
func (m *IngestMetrics) AddFilesPaired(n int64)    { m.FilesPaired.Add(n) }
func (m *IngestMetrics) AddSidecarsCopied(n int64) { m.SidecarsCopied.Add(n) }
func (m *IngestMetrics) AddBytesWritten(n int64)   { m.BytesWritten.Add(n) }
func (m *IngestMetrics) AddDirsCreated(n int64)    { m.DirsCreated.Add(n) }

// EntriesProcessed is the current value of the shared progress counter.
func (m *IngestMetrics) EntriesProcessed() uint64 { return m.progress.Load() }

// Progress exposes the shared counter so it can be handed to the ingestor.
func (m *IngestMetrics) Progress() *atomic.Uint64 { return m.progress }

// Elapsed is the time since the metrics were created or progress reporting started.
func (m *IngestMetrics) Elapsed() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return time.Since(m.startTime)
}

func (m *IngestMetrics) StartProgress(msg string, interval time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stopChan != nil || interval <= 0 {
		return
	}
	m.startTime = time.Now()
	stop := make(chan struct{})
	m.stopChan = stop
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				m.LogSummary(msg)
			case <-stop:
				return
			}
		}
	}()
}

func (m *IngestMetrics) StopProgress() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stopChan != nil {
		close(m.stopChan)
		m.stopChan = nil
	}
}

// LogSummary prints the counters with a custom message. It is called by the
// progress ticker and once at the end of the run.
func (m *IngestMetrics) LogSummary(msg string) {
	plog.Info(msg,
		"entries_processed", m.EntriesProcessed(),
		"files_copied", m.FilesCopied.Load(),
		"files_paired", m.FilesPaired.Load(),
		"sidecars_copied", m.SidecarsCopied.Load(),
		"files_failed", m.FilesFailed.Load(),
		"dirs_created", m.DirsCreated.Load(),
		"bytes_written", humanize.IBytes(uint64(max(m.BytesWritten.Load(), 0))),
		"duration", m.Elapsed().Round(time.Millisecond),
	)
}

// NoopMetrics is an implementation of the Metrics interface that performs no operations.
// It can be used to disable metrics collection without changing the calling code.
type NoopMetrics struct{}

func (m *NoopMetrics) AddFilesCopied(n int64)                           {}
func (m *NoopMetrics) AddFilesFailed(n int64)                           {}
func (m *NoopMetrics) AddFilesPaired(n int64)                           {}
func (m *NoopMetrics) AddSidecarsCopied(n int64)                        {}
func (m *NoopMetrics) AddBytesWritten(n int64)                          {}
func (m *NoopMetrics) AddDirsCreated(n int64)                           {}
func (m *NoopMetrics) LogSummary(msg string)                            {}
func (m *NoopMetrics) StartProgress(msg string, interval time.Duration) {}
func (m *NoopMetrics) StopProgress()                                    {}

// Statically assert that our types implement the interface.
var _ Metrics = (*IngestMetrics)(nil)
var _ Metrics = (*NoopMetrics)(nil)
