// Package ingest copies filter-matched media from source trees into a target
// under a layout policy, pairs RAW files with their companion JPEG and XMP
// sidecars, and optionally repeats the run against a backup destination.
package ingest

import (
	"context"
	"sync/atomic"

	"gitlab.com/tozd/go/errors"
	"golang.org/x/sync/errgroup"

	"github.com/paulschiretz/pgl-ingest/pkg/filter"
	"github.com/paulschiretz/pgl-ingest/pkg/fsexec"
	"github.com/paulschiretz/pgl-ingest/pkg/metrics"
	"github.com/paulschiretz/pgl-ingest/pkg/preflight"
	"github.com/paulschiretz/pgl-ingest/pkg/sidecar"
)

// Ingestor owns the state of one ingest. Only one Ingest or Backup call may
// run at a time; the progress counter is the only field safe to read
// concurrently.
type Ingestor struct {
	structure Structure
	target    string
	backup    string
	sources   []string
	filter    filter.Filter
	copyXMP   bool
	copyJPG   bool
	depth     int
	progress  *atomic.Uint64

	exec     fsexec.Executor
	metrics  metrics.Metrics
	recorder Recorder

	sidecars *sidecar.Tracker

	// per-pass state
	pass      string
	targetDir string
	dirCache  map[string]struct{}
	siblings  siblingCache
}

func (in *Ingestor) Structure() Structure     { return in.structure }
func (in *Ingestor) Target() string           { return in.target }
func (in *Ingestor) BackupTarget() string     { return in.backup }
func (in *Ingestor) Sources() []string        { return append([]string(nil), in.sources...) }
func (in *Ingestor) Filter() filter.Filter    { return in.filter }
func (in *Ingestor) Progress() *atomic.Uint64 { return in.progress }

func (in *Ingestor) walkOptions(ctx context.Context) fsexec.WalkOptions {
	return fsexec.WalkOptions{
		MaxDepth: in.depth,
		Prune: func(e fsexec.Entry) bool {
			return in.filter.Prune(ctx, in.exec, e.Path, e.Rel, e.IsDir())
		},
	}
}

// walkMatches calls fn for every file below source that passes the filter.
// Files whose metadata cannot be read are treated as non-matching.
func (in *Ingestor) walkMatches(ctx context.Context, source string, fn func(fsexec.Entry) error) error {
	return in.exec.Walk(ctx, source, in.walkOptions(ctx), func(e fsexec.Entry) error {
		if e.Depth == 0 || e.IsDir() {
			return nil
		}
		ok, err := in.filter.Matches(ctx, in.exec, e.Path)
		if err != nil || !ok {
			return nil
		}
		return fn(e)
	})
}

// Files returns every file across all sources that passes the filter, in walk order.
func (in *Ingestor) Files(ctx context.Context) ([]string, error) {
	var files []string
	for _, source := range in.sources {
		err := in.walkMatches(ctx, source, func(e fsexec.Entry) error {
			files = append(files, e.Path)
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return files, nil
}

// Folders returns every directory the walk would enter, source roots included.
func (in *Ingestor) Folders(ctx context.Context) ([]string, error) {
	var folders []string
	for _, source := range in.sources {
		err := in.exec.Walk(ctx, source, in.walkOptions(ctx), func(e fsexec.Entry) error {
			if e.IsDir() {
				folders = append(folders, e.Path)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return folders, nil
}

// TotalSize sums the sizes of all matching files. Sources are scanned
// concurrently since the scan only reads.
func (in *Ingestor) TotalSize(ctx context.Context) (uint64, error) {
	sizes := make([]uint64, len(in.sources))
	g, gctx := errgroup.WithContext(ctx)
	for i, source := range in.sources {
		i, source := i, source
		g.Go(func() error {
			return in.walkMatches(gctx, source, func(e fsexec.Entry) error {
				sizes[i] += uint64(max(e.Info.Size(), 0))
				return nil
			})
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}
	var total uint64
	for _, s := range sizes {
		total += s
	}
	return total, nil
}

func (in *Ingestor) estimator() preflight.Estimator {
	return preflight.Estimator{Space: in.exec, Target: in.target, Backup: in.backup}
}

// FreeSpace creates the target if needed and returns its volume's free bytes.
func (in *Ingestor) FreeSpace(ctx context.Context) (uint64, error) {
	return in.estimator().FreeSpace(ctx)
}

// FreeSpaceBackup is FreeSpace for the backup destination.
func (in *Ingestor) FreeSpaceBackup(ctx context.Context) (uint64, error) {
	if in.backup == "" {
		return 0, errors.WithStack(ErrBackupUnset)
	}
	return in.exec.FreeSpace(ctx, in.backup)
}

// Needs returns the current space snapshot without touching ingest state.
func (in *Ingestor) Needs(ctx context.Context) (preflight.Needs, error) {
	total, err := in.TotalSize(ctx)
	if err != nil {
		return preflight.Needs{}, err
	}
	return in.estimator().Needs(ctx, total)
}

// Fits reports whether the destinations can take all matching files.
func (in *Ingestor) Fits(ctx context.Context) (bool, error) {
	return in.FitsWith(ctx, 0)
}

// FitsWith is Fits with extra bytes of headroom.
func (in *Ingestor) FitsWith(ctx context.Context, extra uint64) (bool, error) {
	n, err := in.Needs(ctx)
	if err != nil {
		return false, err
	}
	return n.Fits(extra), nil
}
