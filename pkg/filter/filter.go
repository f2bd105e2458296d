// Package filter decides which files are ingestion candidates and which
// directories the walker may skip without descending.
package filter

import (
	"context"
	"io/fs"
	"math"
	"path/filepath"
	"slices"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"gitlab.com/tozd/go/errors"

	"github.com/paulschiretz/pgl-ingest/pkg/pathname"
	"github.com/paulschiretz/pgl-ingest/pkg/util"
)

// Inspector supplies the metadata a Filter needs.
type Inspector interface {
	Stat(ctx context.Context, path string) (fs.FileInfo, error)
	IsHidden(ctx context.Context, path string) bool
}

// Filter is an immutable file predicate. Extensions are compared
// case-insensitively and size bounds are inclusive.
type Filter struct {
	extensions   map[string]struct{}
	minSize      uint64
	maxSize      uint64
	ignoreHidden bool
	excludeFiles []string
	excludeDirs  []string
}

// New builds a Filter. An empty extension list accepts every extension; the
// empty string as an entry admits files without an extension.
func New(extensions []string, minSize, maxSize uint64, ignoreHidden bool) Filter {
	f := Filter{
		extensions:   make(map[string]struct{}, len(extensions)),
		minSize:      minSize,
		maxSize:      maxSize,
		ignoreHidden: ignoreHidden,
	}
	for _, e := range util.NormalizeExtensions(extensions) {
		f.extensions[e] = struct{}{}
	}
	return f
}

// Images accepts RAW and lossy image formats of any size and ignores hidden files.
func Images() Filter {
	return New(append(RawExtensions(), LossyExtensions()...), 0, math.MaxUint64, true)
}

// Default accepts any file of any size and ignores hidden files.
func Default() Filter {
	return New(nil, 0, math.MaxUint64, true)
}

// WithExclusions returns a copy of f that also drops files and directories
// matching the given doublestar patterns. Patterns without a slash match the
// base name; others match the slash path relative to the source root.
// Matching is case-insensitive.
func (f Filter) WithExclusions(files, dirs []string) (Filter, error) {
	norm := func(patterns []string) ([]string, error) {
		out := make([]string, 0, len(patterns))
		for _, p := range patterns {
			p = strings.ToLower(filepath.ToSlash(strings.TrimSpace(p)))
			if p == "" {
				continue
			}
			if !doublestar.ValidatePattern(p) {
				return nil, errors.Errorf("invalid exclusion pattern %q", p)
			}
			out = append(out, p)
		}
		return out, nil
	}
	var err error
	if f.excludeFiles, err = norm(files); err != nil {
		return Filter{}, err
	}
	if f.excludeDirs, err = norm(dirs); err != nil {
		return Filter{}, err
	}
	return f, nil
}

// Extensions returns the accepted extensions in sorted order.
func (f Filter) Extensions() []string {
	out := make([]string, 0, len(f.extensions))
	for e := range f.extensions {
		out = append(out, e)
	}
	slices.Sort(out)
	return out
}

func (f Filter) MinSize() uint64        { return f.minSize }
func (f Filter) MaxSize() uint64        { return f.maxSize }
func (f Filter) IgnoreHidden() bool     { return f.ignoreHidden }
func (f Filter) ExcludeFiles() []string { return slices.Clone(f.excludeFiles) }
func (f Filter) ExcludeDirs() []string  { return slices.Clone(f.excludeDirs) }

// Matches reports whether the file at path is a copy candidate. It fails only
// when the file's metadata cannot be read.
func (f Filter) Matches(ctx context.Context, in Inspector, path string) (bool, error) {
	if f.ignoreHidden && in.IsHidden(ctx, path) {
		return false, nil
	}
	if isJunk(path) {
		return false, nil
	}

	info, err := in.Stat(ctx, path)
	if err != nil {
		return false, errors.Errorf("failed to read metadata of %s: %w", path, err)
	}
	size := uint64(max(info.Size(), 0))
	if size < f.minSize || size > f.maxSize {
		return false, nil
	}

	ext, hasExt := pathname.LowerExt(path)
	if !hasExt {
		return f.acceptsExtensionless(), nil
	}
	if _, junk := junkExtensions[ext]; junk {
		return false, nil
	}
	if len(f.extensions) == 0 {
		return true, nil
	}
	_, ok := f.extensions[ext]
	return ok, nil
}

func (f Filter) acceptsExtensionless() bool {
	if len(f.extensions) == 0 {
		return true
	}
	_, ok := f.extensions[""]
	return ok
}

// Prune reports whether the walker should drop an entry before producing it.
// rel is the slash path relative to the source root. Directories are dropped
// when hidden and ignored, when they are known system folders or when they
// match a directory exclusion; files only on a file exclusion.
func (f Filter) Prune(ctx context.Context, in Inspector, path, rel string, isDir bool) bool {
	if !isDir {
		return matchesAny(f.excludeFiles, rel)
	}
	if f.ignoreHidden && in.IsHidden(ctx, path) {
		return true
	}
	if _, junk := junkFolders[strings.ToLower(filepath.Base(path))]; junk {
		return true
	}
	return matchesAny(f.excludeDirs, rel)
}

func matchesAny(patterns []string, rel string) bool {
	if len(patterns) == 0 {
		return false
	}
	rel = strings.ToLower(rel)
	base := rel[strings.LastIndexByte(rel, '/')+1:]
	for _, p := range patterns {
		target := rel
		if !strings.Contains(p, "/") {
			target = base
		}
		if ok, _ := doublestar.Match(p, target); ok {
			return true
		}
	}
	return false
}

// isJunk reports a known junk stem, a macOS resource fork or a path inside a
// known system folder.
func isJunk(path string) bool {
	if name, ok := pathname.FileName(path); ok && strings.HasPrefix(name, "._") {
		return true
	}
	if stem, ok := pathname.Stem(path); ok {
		if _, junk := junkStems[strings.ToLower(stem)]; junk {
			return true
		}
	}
	for _, part := range strings.Split(filepath.ToSlash(filepath.Clean(path)), "/") {
		if _, junk := junkFolders[strings.ToLower(part)]; junk {
			return true
		}
	}
	return false
}
