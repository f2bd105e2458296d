package ingest_test

import (
	"context"
	"io/fs"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
	"gitlab.com/tozd/go/errors"

	"github.com/paulschiretz/pgl-ingest/pkg/fsexec"
	"github.com/paulschiretz/pgl-ingest/pkg/ingest"
)

const plenty = uint64(1) << 40

// memTree writes files (slash paths) with the given contents into a fresh MemMapFs.
func memTree(t *testing.T, files map[string]string) afero.Fs {
	t.Helper()
	fsys := afero.NewMemMapFs()
	for path, content := range files {
		p := filepath.FromSlash(path)
		require.NoError(t, fsys.MkdirAll(filepath.Dir(p), 0755))
		require.NoError(t, afero.WriteFile(fsys, p, []byte(content), 0644))
	}
	return fsys
}

// listFiles returns the slash paths of all files below root, sorted.
func listFiles(t *testing.T, fsys afero.Fs, root string) []string {
	t.Helper()
	var out []string
	exists, err := afero.DirExists(fsys, root)
	require.NoError(t, err)
	if !exists {
		return out
	}
	err = afero.Walk(fsys, root, func(path string, info fs.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			rel, _ := filepath.Rel(root, path)
			out = append(out, filepath.ToSlash(rel))
		}
		return nil
	})
	require.NoError(t, err)
	slices.Sort(out)
	return out
}

func readFile(t *testing.T, fsys afero.Fs, path string) string {
	t.Helper()
	data, err := afero.ReadFile(fsys, filepath.FromSlash(path))
	require.NoError(t, err)
	return string(data)
}

// faultyExecutor injects failures and hooks into a Sync executor.
type faultyExecutor struct {
	*fsexec.Sync
	failCopy   func(src string) bool
	failExists func(path string) bool
	failWalk   func(root string, opts fsexec.WalkOptions) bool
	afterCopy  func(src string)
}

var errInjected = errors.Base("injected failure")

func (f *faultyExecutor) Copy(ctx context.Context, src, dst string) (int64, error) {
	if f.failCopy != nil && f.failCopy(src) {
		return 0, errInjected
	}
	n, err := f.Sync.Copy(ctx, src, dst)
	if f.afterCopy != nil {
		f.afterCopy(src)
	}
	return n, err
}

func (f *faultyExecutor) Walk(ctx context.Context, root string, opts fsexec.WalkOptions, fn fsexec.WalkFunc) error {
	if f.failWalk != nil && f.failWalk(root, opts) {
		return errInjected
	}
	return f.Sync.Walk(ctx, root, opts, fn)
}

func (f *faultyExecutor) Exists(ctx context.Context, path string) (bool, error) {
	if f.failExists != nil && f.failExists(path) {
		return false, errInjected
	}
	return f.Sync.Exists(ctx, path)
}

type eventLog struct {
	events []ingest.Event
}

func (l *eventLog) Record(e ingest.Event) { l.events = append(l.events, e) }

func (l *eventLog) of(kind ingest.EventKind) []ingest.Event {
	var out []ingest.Event
	for _, e := range l.events {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}

func hasSuffix(suffix string) func(string) bool {
	return func(p string) bool { return strings.HasSuffix(filepath.ToSlash(p), suffix) }
}
