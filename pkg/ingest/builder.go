package ingest

import (
	"sync/atomic"

	"gitlab.com/tozd/go/errors"

	"github.com/paulschiretz/pgl-ingest/pkg/filter"
	"github.com/paulschiretz/pgl-ingest/pkg/fsexec"
	"github.com/paulschiretz/pgl-ingest/pkg/metrics"
	"github.com/paulschiretz/pgl-ingest/pkg/sidecar"
	"github.com/paulschiretz/pgl-ingest/pkg/util"
)

// Builder collects the options of an Ingestor. Structure, target, sources and
// filter are required; sidecar copying defaults to on and depth to unlimited.
type Builder struct {
	structure *Structure
	target    string
	backup    string
	sources   []string
	filter    *filter.Filter
	copyXMP   bool
	copyJPG   bool
	depth     int
	progress  *atomic.Uint64
	exec      fsexec.Executor
	metrics   metrics.Metrics
	recorder  Recorder
}

func NewBuilder() *Builder {
	return &Builder{copyXMP: true, copyJPG: true}
}

func (b *Builder) Structure(s Structure) *Builder { b.structure = &s; return b }
func (b *Builder) Target(path string) *Builder    { b.target = path; return b }
func (b *Builder) Backup(path string) *Builder    { b.backup = path; return b }

// Sources adds source roots. Duplicates collapse.
func (b *Builder) Sources(paths ...string) *Builder {
	b.sources = append(b.sources, paths...)
	return b
}

func (b *Builder) Filter(f filter.Filter) *Builder { b.filter = &f; return b }
func (b *Builder) CopyXMP(on bool) *Builder        { b.copyXMP = on; return b }
func (b *Builder) CopyJPG(on bool) *Builder        { b.copyJPG = on; return b }

// Depth bounds the traversal below each source root. Zero or less is unlimited.
func (b *Builder) Depth(d int) *Builder { b.depth = d; return b }

// Progress shares an externally owned entries-processed counter.
func (b *Builder) Progress(p *atomic.Uint64) *Builder { b.progress = p; return b }

// Executor selects the filesystem executor. It defaults to a blocking OS executor.
func (b *Builder) Executor(e fsexec.Executor) *Builder { b.exec = e; return b }

func (b *Builder) Metrics(m metrics.Metrics) *Builder { b.metrics = m; return b }
func (b *Builder) Recorder(r Recorder) *Builder       { b.recorder = r; return b }

func missing(field string) error {
	return errors.Errorf("%w: %s", ErrMissingField, field)
}

// Build validates the options and returns the Ingestor.
func (b *Builder) Build() (*Ingestor, error) {
	switch {
	case b.structure == nil:
		return nil, missing("structure")
	case b.target == "":
		return nil, missing("target")
	case len(b.sources) == 0:
		return nil, missing("sources")
	case b.filter == nil:
		return nil, missing("filter")
	}

	in := &Ingestor{
		structure: *b.structure,
		target:    b.target,
		backup:    b.backup,
		sources:   util.MergeAndDeduplicate(b.sources),
		filter:    *b.filter,
		copyXMP:   b.copyXMP,
		copyJPG:   b.copyJPG,
		depth:     b.depth,
		progress:  b.progress,
		exec:      b.exec,
		metrics:   b.metrics,
		recorder:  b.recorder,
		sidecars:  sidecar.NewTracker(),
	}
	if in.progress == nil {
		in.progress = new(atomic.Uint64)
	}
	if in.exec == nil {
		in.exec = fsexec.NewOS()
	}
	if in.metrics == nil {
		in.metrics = &metrics.NoopMetrics{}
	}
	if in.recorder == nil {
		in.recorder = NoopRecorder{}
	}
	return in, nil
}
