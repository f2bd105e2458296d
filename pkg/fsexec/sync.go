package fsexec

import (
	"context"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
	"gitlab.com/tozd/go/errors"

	"github.com/paulschiretz/pgl-ingest/pkg/pathname"
	"github.com/paulschiretz/pgl-ingest/pkg/pool"
	"github.com/paulschiretz/pgl-ingest/pkg/util"
)

// Sync is the blocking executor. Every call runs on the calling goroutine.
type Sync struct {
	fs      afero.Fs
	native  bool
	volumes Volumes
	buffers *pool.FixedBufferPool
}

// Option configures a Sync executor.
type Option func(*Sync)

// WithVolumes replaces the volume probe, e.g. with StaticVolumes in tests.
func WithVolumes(v Volumes) Option {
	return func(s *Sync) { s.volumes = v }
}

// WithBufferSize sets the copy buffer size in bytes.
func WithBufferSize(size int64) Option {
	return func(s *Sync) { s.buffers = pool.NewFixedBuffer(size) }
}

// NewSync returns a blocking executor over fsys.
func NewSync(fsys afero.Fs, opts ...Option) *Sync {
	_, native := fsys.(*afero.OsFs)
	s := &Sync{
		fs:      fsys,
		native:  native,
		volumes: OSVolumes{},
		buffers: pool.NewFixedBuffer(pool.DefaultBufferSize),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewOS returns a blocking executor over the host filesystem.
func NewOS(opts ...Option) *Sync {
	return NewSync(afero.NewOsFs(), opts...)
}

var _ Executor = (*Sync)(nil)

func (s *Sync) Walk(ctx context.Context, root string, opts WalkOptions, fn WalkFunc) error {
	return walkTree(ctx, s.Stat, s.readDir, root, opts, fn)
}

func (s *Sync) readDir(_ context.Context, dir string) ([]fs.FileInfo, error) {
	return afero.ReadDir(s.fs, dir)
}

func (s *Sync) MkdirAll(_ context.Context, dir string) error {
	if err := s.fs.MkdirAll(dir, util.UserWritableDirPerms); err != nil {
		return errors.Errorf("failed to create directory %s: %w", dir, err)
	}
	return nil
}

// Copy writes to a temporary file next to dst and renames it into place, so a
// reader never observes a half-written destination. Mode and modification time
// are carried over.
func (s *Sync) Copy(_ context.Context, src, dst string) (int64, error) {
	in, err := s.fs.Open(src)
	if err != nil {
		return 0, errors.Errorf("failed to open source file %s: %w", src, err)
	}
	defer in.Close()

	srcInfo, err := in.Stat()
	if err != nil {
		return 0, errors.Errorf("failed to stat source file %s: %w", src, err)
	}
	if srcInfo.IsDir() {
		return 0, errors.Errorf("refusing to copy directory %s", src)
	}

	dstDir := filepath.Dir(dst)
	out, err := afero.TempFile(s.fs, dstDir, "pgl-ingest-*.tmp")
	if err != nil {
		return 0, errors.Errorf("failed to create temporary file in %s: %w", dstDir, err)
	}
	tempPath := out.Name()
	defer func() {
		if tempPath != "" {
			_ = s.fs.Remove(tempPath)
		}
	}()

	n, err := s.buffers.Copy(out, in)
	if err != nil {
		out.Close()
		return 0, errors.Errorf("failed to copy content from %s to %s: %w", src, tempPath, err)
	}
	// Close flushes. It must happen before Chtimes.
	if err := out.Close(); err != nil {
		return 0, errors.Errorf("failed to close temporary file %s: %w", tempPath, err)
	}
	if err := s.fs.Chmod(tempPath, util.WithUserWritePermission(srcInfo.Mode().Perm())); err != nil {
		return 0, errors.Errorf("failed to set permissions on %s: %w", tempPath, err)
	}
	if err := s.fs.Chtimes(tempPath, srcInfo.ModTime(), srcInfo.ModTime()); err != nil {
		return 0, errors.Errorf("failed to set timestamps on %s: %w", tempPath, err)
	}
	if err := s.fs.Rename(tempPath, dst); err != nil {
		return 0, errors.Errorf("failed to move %s into place: %w", dst, err)
	}
	tempPath = ""
	return n, nil
}

func (s *Sync) Stat(_ context.Context, path string) (fs.FileInfo, error) {
	info, err := s.fs.Stat(path)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return info, nil
}

func (s *Sync) Exists(_ context.Context, path string) (bool, error) {
	ok, err := afero.Exists(s.fs, path)
	if err != nil {
		return false, errors.WithStack(err)
	}
	return ok, nil
}

// IsHidden reports a leading-dot name, or on Windows the hidden file attribute.
func (s *Sync) IsHidden(_ context.Context, path string) bool {
	if name, ok := pathname.FileName(path); ok && strings.HasPrefix(name, ".") {
		return true
	}
	return s.native && hasHiddenAttribute(path)
}

// Canonicalize returns the absolute path with symlinks resolved. The path must exist.
func (s *Sync) Canonicalize(_ context.Context, path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", errors.Errorf("failed to resolve %s: %w", path, err)
	}
	if s.native {
		resolved, err := filepath.EvalSymlinks(abs)
		if err != nil {
			return "", errors.Errorf("failed to resolve %s: %w", path, err)
		}
		return resolved, nil
	}
	if _, err := s.fs.Stat(abs); err != nil {
		return "", errors.Errorf("failed to resolve %s: %w", path, err)
	}
	return abs, nil
}

func (s *Sync) FreeSpace(ctx context.Context, dir string) (uint64, error) {
	if err := s.MkdirAll(ctx, dir); err != nil {
		return 0, err
	}
	free, err := s.volumes.FreeSpace(dir)
	if err != nil {
		return 0, errors.Errorf("failed to query free space of %s: %w", dir, err)
	}
	return free, nil
}

func (s *Sync) SameDisk(_ context.Context, a, b string) (bool, error) {
	same, err := s.volumes.SameDisk(a, b)
	if err != nil {
		return false, errors.Errorf("failed to compare volumes of %s and %s: %w", a, b, err)
	}
	return same, nil
}

func (s *Sync) Close() error { return nil }
