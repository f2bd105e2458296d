package ingest

// EventKind classifies a per-file outcome.
type EventKind int

const (
	// EventCopied is a primary file written to the destination.
	EventCopied EventKind = iota
	// EventPaired is a companion JPEG written alongside its primary file.
	EventPaired
	// EventSidecar is an XMP sidecar written alongside its primary file.
	EventSidecar
	// EventFailed is a file whose ingest failed and was skipped.
	EventFailed
)

func (k EventKind) String() string {
	switch k {
	case EventCopied:
		return "copied"
	case EventPaired:
		return "paired"
	case EventSidecar:
		return "sidecar"
	case EventFailed:
		return "failed"
	}
	return "unknown"
}

// Event is one per-file outcome of a pass.
type Event struct {
	Pass        string
	Kind        EventKind
	Source      string
	Destination string
	Bytes       int64
	Err         error
}

// Recorder receives per-file outcomes. Failures are otherwise only logged, so
// a Recorder is how callers learn which files were skipped. Record is called
// from the goroutine running the ingest.
type Recorder interface {
	Record(Event)
}

// NoopRecorder discards all events.
type NoopRecorder struct{}

func (NoopRecorder) Record(Event) {}
