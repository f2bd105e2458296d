package report

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"gitlab.com/tozd/go/errors"

	"github.com/paulschiretz/pgl-ingest/pkg/buildinfo"
	"github.com/paulschiretz/pgl-ingest/pkg/ingest"
)

// Collector records ingest events into a report.
type Collector struct {
	mu      sync.Mutex
	content Content
}

var _ ingest.Recorder = (*Collector)(nil)

// NewCollector starts a report for a run with a fresh run id.
func NewCollector(structure string, sources []string, target, backup string) *Collector {
	return &Collector{content: Content{
		Version:    buildinfo.Version,
		RunID:      uuid.NewString(),
		StartedUTC: time.Now().UTC(),
		Structure:  structure,
		Sources:    append([]string(nil), sources...),
		Target:     target,
		Backup:     backup,
		Entries:    []Entry{},
	}}
}

func (c *Collector) Record(e ingest.Event) {
	entry := Entry{
		Pass:        e.Pass,
		Kind:        e.Kind.String(),
		Source:      e.Source,
		Destination: e.Destination,
		Bytes:       e.Bytes,
	}
	if e.Err != nil {
		entry.Error = e.Err.Error()
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.content.Entries = append(c.content.Entries, entry)
	t := &c.content.Totals
	switch e.Kind {
	case ingest.EventCopied:
		t.Copied++
	case ingest.EventPaired:
		t.Paired++
	case ingest.EventSidecar:
		t.Sidecars++
	case ingest.EventFailed:
		t.Failed++
	}
	t.Bytes += e.Bytes
}

func (c *Collector) RunID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.content.RunID
}

// Finish stamps the outcome of the run and returns a copy of the report.
func (c *Collector) Finish(runErr error) Content {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.content.FinishedUTC = time.Now().UTC()
	switch {
	case runErr == nil:
		c.content.Outcome = OutcomeSuccess
	case errors.Is(runErr, ingest.ErrCancelled):
		c.content.Outcome = OutcomeCancelled
		c.content.Error = runErr.Error()
	default:
		c.content.Outcome = OutcomeFailed
		c.content.Error = runErr.Error()
	}
	out := c.content
	out.Entries = append([]Entry(nil), c.content.Entries...)
	out.Sources = append([]string(nil), c.content.Sources...)
	return out
}
