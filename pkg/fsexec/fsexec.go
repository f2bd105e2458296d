// Package fsexec is the filesystem layer the ingestor runs on: name-sorted
// depth-bounded traversal with pruning, directory creation, file copy,
// metadata, canonicalization and volume queries.
//
// Two executors satisfy the same contract. Sync performs every call on the
// calling goroutine. Cooperative funnels every call through a single I/O loop
// goroutine, so callers yield between operations while the work itself stays
// strictly sequential.
package fsexec

import (
	"context"
	"io/fs"
	"path/filepath"

	"gitlab.com/tozd/go/errors"

	"github.com/paulschiretz/pgl-ingest/pkg/plog"
)

// ErrSkipDir can be returned by a WalkFunc for a directory entry to skip its contents.
var ErrSkipDir = errors.Base("skip this directory")

// Entry is one item produced by Walk.
type Entry struct {
	// Path is the entry path, rooted at the walk root as given.
	Path string
	// Rel is the slash-separated path relative to the walk root. It is "." for the root.
	Rel string
	// Depth is 0 for the root, 1 for its children and so on.
	Depth int
	Info  fs.FileInfo
}

// IsDir reports whether the entry is a directory.
func (e Entry) IsDir() bool { return e.Info != nil && e.Info.IsDir() }

// WalkOptions bound a traversal.
type WalkOptions struct {
	// MaxDepth limits how deep entries are produced. Zero or less means unlimited.
	MaxDepth int
	// Prune is consulted for every entry below the root before it is produced.
	// Returning true drops the entry and, for directories, its whole subtree.
	Prune func(Entry) bool
}

// WalkFunc is called for each entry in name order.
type WalkFunc func(Entry) error

// Executor is the filesystem contract of the ingestor. All methods are safe to
// call from the goroutine that owns the ingest run.
type Executor interface {
	Walk(ctx context.Context, root string, opts WalkOptions, fn WalkFunc) error
	MkdirAll(ctx context.Context, dir string) error
	// Copy writes src to dst through a temporary file and returns the bytes written.
	Copy(ctx context.Context, src, dst string) (int64, error)
	Stat(ctx context.Context, path string) (fs.FileInfo, error)
	Exists(ctx context.Context, path string) (bool, error)
	IsHidden(ctx context.Context, path string) bool
	Canonicalize(ctx context.Context, path string) (string, error)
	// FreeSpace creates dir if needed and returns the bytes available to the caller on its volume.
	FreeSpace(ctx context.Context, dir string) (uint64, error)
	SameDisk(ctx context.Context, a, b string) (bool, error)
	Close() error
}

type readDirFunc func(ctx context.Context, dir string) ([]fs.FileInfo, error)
type statFunc func(ctx context.Context, path string) (fs.FileInfo, error)

// walkTree is the traversal shared by both executors. Unreadable directories
// below the root are logged and skipped.
func walkTree(ctx context.Context, stat statFunc, readDir readDirFunc, root string, opts WalkOptions, fn WalkFunc) error {
	info, err := stat(ctx, root)
	if err != nil {
		return errors.Errorf("failed to stat walk root %s: %w", root, err)
	}
	rootEntry := Entry{Path: root, Rel: ".", Depth: 0, Info: info}
	if err := fn(rootEntry); err != nil {
		if errors.Is(err, ErrSkipDir) {
			return nil
		}
		return err
	}
	if !info.IsDir() {
		return nil
	}

	var visit func(dir, rel string, depth int) error
	visit = func(dir, rel string, depth int) error {
		if opts.MaxDepth > 0 && depth+1 > opts.MaxDepth {
			return nil
		}
		infos, err := readDir(ctx, dir)
		if err != nil {
			if dir == root {
				return errors.Errorf("failed to read walk root %s: %w", root, err)
			}
			plog.Warn("Skipping unreadable directory", "path", dir, "error", err)
			return nil
		}
		for _, info := range infos {
			if err := ctx.Err(); err != nil {
				return errors.WithStack(err)
			}
			childRel := info.Name()
			if rel != "." {
				childRel = rel + "/" + info.Name()
			}
			e := Entry{
				Path:  filepath.Join(dir, info.Name()),
				Rel:   childRel,
				Depth: depth + 1,
				Info:  info,
			}
			if opts.Prune != nil && opts.Prune(e) {
				continue
			}
			if err := fn(e); err != nil {
				if errors.Is(err, ErrSkipDir) && e.IsDir() {
					continue
				}
				return err
			}
			if e.IsDir() {
				if err := visit(e.Path, e.Rel, e.Depth); err != nil {
					return err
				}
			}
		}
		return nil
	}
	return visit(root, ".", 0)
}
