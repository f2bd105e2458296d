package ingest

import (
	"context"
	"path/filepath"
	"strings"

	"gitlab.com/tozd/go/errors"

	"github.com/paulschiretz/pgl-ingest/pkg/collision"
	"github.com/paulschiretz/pgl-ingest/pkg/fsexec"
	"github.com/paulschiretz/pgl-ingest/pkg/pathname"
	"github.com/paulschiretz/pgl-ingest/pkg/plog"
	"github.com/paulschiretz/pgl-ingest/pkg/rename"
	"github.com/paulschiretz/pgl-ingest/pkg/sidecar"
	"github.com/paulschiretz/pgl-ingest/pkg/util"
)

const (
	passPrimary = "primary"
	passBackup  = "backup"
)

// Ingest runs the primary pass and, when a backup destination is configured,
// the backup pass. Per-file failures are logged and reported to the Recorder
// but do not fail the run; insufficient space and cancellation do.
func (in *Ingestor) Ingest(ctx context.Context) error {
	if err := in.run(ctx, passPrimary); err != nil {
		return err
	}
	return in.Backup(ctx)
}

// Backup switches the target to the backup destination, clears the backup so
// it cannot recurse, and runs a full pass there. Without a backup it does nothing.
func (in *Ingestor) Backup(ctx context.Context) error {
	if in.backup == "" {
		return nil
	}
	in.target, in.backup = in.backup, ""
	return in.run(ctx, passBackup)
}

// run is one pass: preflight, walk, drain.
func (in *Ingestor) run(ctx context.Context, pass string) error {
	if err := checkCancelled(ctx); err != nil {
		return err
	}
	in.pass = pass
	in.dirCache = make(map[string]struct{})
	in.siblings = siblingCache{}

	needs, err := in.Needs(ctx)
	if err != nil {
		if isCancellation(err) {
			return asCancelled(ctx, err)
		}
		return errors.Errorf("preflight of %s pass failed: %w", pass, err)
	}
	if err := needs.Check(0); err != nil {
		return err
	}
	plog.Info("Starting ingest pass", "pass", pass, "target", in.target, "structure", in.structure)

	if err := in.mkdirAll(ctx, in.target); err != nil {
		return err
	}
	targetDir, err := in.exec.Canonicalize(ctx, in.target)
	if err != nil {
		return errors.Errorf("cannot resolve target %s: %w", in.target, err)
	}
	in.targetDir = targetDir

	// Every pass numbers from the configured start so backups mirror primary names.
	rn, _ := in.structure.RenameConfig()

	for _, source := range in.sources {
		err := in.exec.Walk(ctx, source, in.walkOptions(ctx), func(e fsexec.Entry) error {
			if e.Depth == 0 {
				return nil
			}
			in.progress.Add(1)
			if e.IsDir() {
				return nil
			}
			if err := in.dispatch(ctx, source, e.Path, &rn); err != nil {
				if isCancellation(err) {
					return err
				}
				in.fail(e.Path, err)
			}
			return nil
		})
		if err != nil {
			if isCancellation(err) {
				return asCancelled(ctx, err)
			}
			return errors.Errorf("failed to walk source %s: %w", source, err)
		}
	}

	if err := in.drain(ctx, &rn); err != nil {
		return err
	}
	plog.Info("Finished ingest pass", "pass", pass, "target", in.target)
	return nil
}

// dispatch routes one walked file through the layout policy.
func (in *Ingestor) dispatch(ctx context.Context, source, path string, rn *rename.Rename) error {
	ok, err := in.filter.Matches(ctx, in.exec, path)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}

	switch in.structure.Kind() {
	case KindRetain:
		return in.ingestRetained(ctx, source, path)
	case KindRename:
		if in.copyJPG && pathname.IsJPEG(path) {
			if key, paired := in.pairedJPEG(ctx, path); paired {
				// Copied together with its primary file, now or already.
				in.sidecars.ObserveJPEG(key)
				return nil
			}
		}
		return in.ingestRenamed(ctx, path, rn)
	case KindPreserve:
		return in.ingestPreserved(ctx, path)
	}
	return errors.Errorf("unknown structure %s", in.structure)
}

// drain copies every JPEG that was deferred for a primary file that never
// took it along. JPEGs already copied alongside their primary file are dropped.
// Sidecar lookups are off while draining.
func (in *Ingestor) drain(ctx context.Context, rn *rename.Rename) error {
	pending := in.sidecars.Drain()
	if len(pending) == 0 {
		return nil
	}
	copyXMP, copyJPG := in.copyXMP, in.copyJPG
	in.copyXMP, in.copyJPG = false, false
	defer func() { in.copyXMP, in.copyJPG = copyXMP, copyJPG }()

	for _, p := range pending {
		if p.Copied {
			continue
		}
		var err error
		switch in.structure.Kind() {
		case KindRename:
			err = in.ingestRenamed(ctx, p.Path, rn)
		default:
			err = in.ingestPreserved(ctx, p.Path)
		}
		if err != nil {
			if isCancellation(err) {
				return asCancelled(ctx, err)
			}
			in.fail(p.Path, err)
		}
	}
	return nil
}

func (in *Ingestor) ingestRetained(ctx context.Context, source, path string) error {
	rel, err := filepath.Rel(source, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return errors.Errorf("%w: %s not under %s", ErrPathPrefix, path, source)
	}
	output := filepath.Join(in.targetDir, rel)
	if err := in.mkdirAll(ctx, filepath.Dir(output)); err != nil {
		return err
	}
	return in.ingestCopy(ctx, path, output)
}

func (in *Ingestor) ingestRenamed(ctx context.Context, path string, rn *rename.Rename) error {
	ext, err := pathname.RequireExt(path)
	if err != nil {
		return err
	}
	stem, err := rn.Next(path)
	if err != nil {
		return err
	}
	return in.ingestCopy(ctx, path, filepath.Join(in.targetDir, stem+"."+ext))
}

func (in *Ingestor) ingestPreserved(ctx context.Context, path string) error {
	name, err := pathname.RequireFileName(path)
	if err != nil {
		return err
	}
	return in.ingestCopy(ctx, path, filepath.Join(in.targetDir, name))
}

// ingestCopy writes input to a free name derived from output, carrying the
// XMP sidecar and, when renaming, the companion JPEG along. Only the primary
// copy can fail the file.
func (in *Ingestor) ingestCopy(ctx context.Context, input, output string) error {
	output, err := collision.Avoid(ctx, in.exec, output)
	if err != nil {
		return err
	}

	if in.copyXMP {
		if _, err := in.copySidecar(ctx, sidecar.XMPPath(input), sidecar.XMPPath(output), EventSidecar); err != nil {
			return err
		}
	}

	if in.structure.Kind() == KindRename && in.copyJPG {
		jpeg, err := sidecar.AccompanyingJPEG(ctx, in.exec, input)
		switch {
		case err == nil && in.sidecars.Copied(jpeg):
			plog.Debug("Companion JPEG already copied", "source", jpeg, "primary", input)
		case err == nil:
			wrote, err := in.copySidecar(ctx, jpeg, pathname.WithExt(output, "jpg"), EventPaired)
			if err != nil {
				return err
			}
			// A skipped or failed companion stays untracked or deferred, so
			// the JPEG is still ingested on its own.
			if wrote {
				in.sidecars.ObserveCompanion(jpeg)
			}
		case isCancellation(err):
			return err
		}
	}

	n, err := in.copyFile(ctx, input, output)
	if err != nil {
		return err
	}
	in.metrics.AddFilesCopied(1)
	in.metrics.AddBytesWritten(n)
	in.recorder.Record(Event{Pass: in.pass, Kind: EventCopied, Source: input, Destination: output, Bytes: n})
	plog.Notice("Copied", "source", input, "destination", output)
	return nil
}

// copySidecar copies a companion file best-effort and reports whether it was
// written. A missing source or an occupied destination is skipped; only
// cancellation is returned.
func (in *Ingestor) copySidecar(ctx context.Context, src, dst string, kind EventKind) (bool, error) {
	ok, err := in.exec.Exists(ctx, src)
	if err != nil || !ok {
		if isCancellation(err) {
			return false, err
		}
		return false, nil
	}
	if taken, err := in.exec.Exists(ctx, dst); err != nil || taken {
		if isCancellation(err) {
			return false, err
		}
		plog.Debug("Sidecar destination exists, skipping", "source", src, "destination", dst)
		return false, nil
	}

	n, err := in.copyFile(ctx, src, dst)
	if err != nil {
		if isCancellation(err) {
			return false, err
		}
		plog.Warn("Failed to copy sidecar", "source", src, "destination", dst, "error", err)
		in.recorder.Record(Event{Pass: in.pass, Kind: EventFailed, Source: src, Destination: dst, Err: err})
		return false, nil
	}
	if kind == EventPaired {
		in.metrics.AddFilesPaired(1)
	} else {
		in.metrics.AddSidecarsCopied(1)
	}
	in.metrics.AddBytesWritten(n)
	in.recorder.Record(Event{Pass: in.pass, Kind: kind, Source: src, Destination: dst, Bytes: n})
	return true, nil
}

// mkdirAll creates dir once per pass, checking for cancellation first.
func (in *Ingestor) mkdirAll(ctx context.Context, dir string) error {
	if err := checkCancelled(ctx); err != nil {
		return err
	}
	if _, ok := in.dirCache[dir]; ok {
		return nil
	}
	existed, _ := in.exec.Exists(ctx, dir)
	if err := in.exec.MkdirAll(ctx, dir); err != nil {
		if isCancellation(err) {
			return asCancelled(ctx, err)
		}
		return err
	}
	if !existed {
		in.metrics.AddDirsCreated(1)
	}
	in.dirCache[dir] = struct{}{}
	return nil
}

// copyFile checks for cancellation and copies src to dst.
func (in *Ingestor) copyFile(ctx context.Context, src, dst string) (int64, error) {
	if err := checkCancelled(ctx); err != nil {
		return 0, err
	}
	n, err := in.exec.Copy(ctx, src, dst)
	if err != nil && isCancellation(err) {
		return 0, asCancelled(ctx, err)
	}
	return n, err
}

func (in *Ingestor) fail(path string, err error) {
	plog.Warn("Failed to ingest file", "pass", in.pass, "path", path, "error", err)
	in.metrics.AddFilesFailed(1)
	in.recorder.Record(Event{Pass: in.pass, Kind: EventFailed, Source: path, Err: err})
}

// pairedJPEG reports whether the JPEG at path belongs to a primary file next
// to it that the filter accepts, and returns the pairing key. The key is
// derived from the primary file so both halves of a pair agree on it.
func (in *Ingestor) pairedJPEG(ctx context.Context, path string) (string, bool) {
	dir := filepath.Dir(path)
	names := in.siblings.names(ctx, in.exec, dir)
	for _, name := range sidecar.CompanionCandidates(filepath.Base(path), names) {
		primary := filepath.Join(dir, name)
		if ok, err := in.filter.Matches(ctx, in.exec, primary); err != nil || !ok {
			continue
		}
		key, err := sidecar.AccompanyingJPEG(ctx, in.exec, primary)
		if err != nil {
			continue
		}
		self, err := in.exec.Canonicalize(ctx, path)
		if err != nil {
			continue
		}
		if key == self || (util.IsHostCaseInsensitiveFS() && strings.EqualFold(key, self)) {
			return key, true
		}
	}
	return "", false
}

// siblingCache keeps the file names of the directory the walk is currently in.
// Walks are depth-first and name-sorted, so one directory is enough.
type siblingCache struct {
	dir   string
	files []string
}

func (c *siblingCache) names(ctx context.Context, ex fsexec.Executor, dir string) []string {
	if c.dir == dir && c.files != nil {
		return c.files
	}
	files := []string{}
	err := ex.Walk(ctx, dir, fsexec.WalkOptions{MaxDepth: 1}, func(e fsexec.Entry) error {
		if e.Depth == 1 && !e.IsDir() {
			files = append(files, e.Info.Name())
		}
		return nil
	})
	if err != nil {
		plog.Debug("Failed to list siblings", "dir", dir, "error", err)
	}
	c.dir, c.files = dir, files
	return files
}
