package fsexec_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gitlab.com/tozd/go/errors"

	"github.com/paulschiretz/pgl-ingest/pkg/fsexec"
)

func writeFile(t *testing.T, fsys afero.Fs, path, content string) {
	t.Helper()
	require.NoError(t, fsys.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, afero.WriteFile(fsys, path, []byte(content), 0644))
}

// executors returns both executor flavours over the same in-memory tree.
func executors(t *testing.T) (afero.Fs, map[string]fsexec.Executor) {
	t.Helper()
	fsys := afero.NewMemMapFs()
	coop := fsexec.NewCooperative(fsexec.NewSync(fsys))
	t.Cleanup(func() { require.NoError(t, coop.Close()) })
	return fsys, map[string]fsexec.Executor{
		"sync":        fsexec.NewSync(fsys),
		"cooperative": coop,
	}
}

func collect(t *testing.T, ex fsexec.Executor, root string, opts fsexec.WalkOptions) []string {
	t.Helper()
	var rels []string
	err := ex.Walk(context.Background(), root, opts, func(e fsexec.Entry) error {
		rels = append(rels, e.Rel)
		return nil
	})
	require.NoError(t, err)
	return rels
}

func TestWalk(t *testing.T) {
	fsys, execs := executors(t)
	root := "/card"
	writeFile(t, fsys, "/card/b.jpg", "b")
	writeFile(t, fsys, "/card/a.cr2", "a")
	writeFile(t, fsys, "/card/DCIM/100/c.cr2", "c")
	writeFile(t, fsys, "/card/.Trashes/x.jpg", "x")

	for name, ex := range execs {
		t.Run(name, func(t *testing.T) {
			t.Run("Entries are name sorted and include the root", func(t *testing.T) {
				got := collect(t, ex, root, fsexec.WalkOptions{})
				assert.Equal(t, []string{".", ".Trashes", ".Trashes/x.jpg", "DCIM", "DCIM/100", "DCIM/100/c.cr2", "a.cr2", "b.jpg"}, got)
			})

			t.Run("MaxDepth bounds the traversal", func(t *testing.T) {
				got := collect(t, ex, root, fsexec.WalkOptions{MaxDepth: 2})
				assert.Equal(t, []string{".", ".Trashes", ".Trashes/x.jpg", "DCIM", "DCIM/100", "a.cr2", "b.jpg"}, got)
			})

			t.Run("Prune drops whole subtrees", func(t *testing.T) {
				got := collect(t, ex, root, fsexec.WalkOptions{Prune: func(e fsexec.Entry) bool {
					return e.IsDir() && e.Rel == ".Trashes"
				}})
				assert.NotContains(t, got, ".Trashes/x.jpg")
				assert.Contains(t, got, "DCIM/100/c.cr2")
			})

			t.Run("ErrSkipDir skips a directory's contents", func(t *testing.T) {
				var rels []string
				err := ex.Walk(context.Background(), root, fsexec.WalkOptions{}, func(e fsexec.Entry) error {
					rels = append(rels, e.Rel)
					if e.Rel == "DCIM" {
						return fsexec.ErrSkipDir
					}
					return nil
				})
				require.NoError(t, err)
				assert.Contains(t, rels, "DCIM")
				assert.NotContains(t, rels, "DCIM/100")
			})

			t.Run("Missing root fails", func(t *testing.T) {
				err := ex.Walk(context.Background(), "/nope", fsexec.WalkOptions{}, func(fsexec.Entry) error { return nil })
				require.Error(t, err)
			})

			t.Run("Callback errors abort the walk", func(t *testing.T) {
				stop := errors.Base("stop")
				err := ex.Walk(context.Background(), root, fsexec.WalkOptions{}, func(e fsexec.Entry) error {
					if e.Rel == "a.cr2" {
						return stop
					}
					return nil
				})
				assert.ErrorIs(t, err, stop)
			})
		})
	}
}

func TestCopy(t *testing.T) {
	fsys, execs := executors(t)
	mtime := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	writeFile(t, fsys, "/src/a.cr2", "raw-payload")
	require.NoError(t, fsys.Chtimes("/src/a.cr2", mtime, mtime))

	for name, ex := range execs {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			dst := "/out/" + name + "/a.cr2"
			require.NoError(t, ex.MkdirAll(ctx, filepath.Dir(dst)))

			n, err := ex.Copy(ctx, "/src/a.cr2", dst)
			require.NoError(t, err)
			assert.Equal(t, int64(len("raw-payload")), n)

			data, err := afero.ReadFile(fsys, dst)
			require.NoError(t, err)
			assert.Equal(t, "raw-payload", string(data))

			info, err := ex.Stat(ctx, dst)
			require.NoError(t, err)
			assert.True(t, info.ModTime().Equal(mtime))

			entries, err := afero.ReadDir(fsys, filepath.Dir(dst))
			require.NoError(t, err)
			assert.Len(t, entries, 1, "temporary file must not be left behind")

			_, err = ex.Copy(ctx, "/src/missing.cr2", dst)
			require.Error(t, err)
		})
	}
}

func TestMetadataQueries(t *testing.T) {
	fsys, execs := executors(t)
	writeFile(t, fsys, "/src/a.cr2", "a")
	writeFile(t, fsys, "/src/.hidden.jpg", "h")

	for name, ex := range execs {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			ok, err := ex.Exists(ctx, "/src/a.cr2")
			require.NoError(t, err)
			assert.True(t, ok)

			ok, err = ex.Exists(ctx, "/src/b.cr2")
			require.NoError(t, err)
			assert.False(t, ok)

			assert.True(t, ex.IsHidden(ctx, "/src/.hidden.jpg"))
			assert.False(t, ex.IsHidden(ctx, "/src/a.cr2"))

			canon, err := ex.Canonicalize(ctx, "/src/../src/a.cr2")
			require.NoError(t, err)
			assert.Equal(t, filepath.Clean("/src/a.cr2"), canon)

			_, err = ex.Canonicalize(ctx, "/src/b.cr2")
			require.Error(t, err)
		})
	}
}

func TestFreeSpaceAndSameDisk(t *testing.T) {
	fsys := afero.NewMemMapFs()
	vols := fsexec.StaticVolumes{
		Free:    map[string]uint64{"/mnt/a": 100, "/mnt/a/nested": 5},
		Default: 7,
		Shared:  true,
	}
	ex := fsexec.NewSync(fsys, fsexec.WithVolumes(vols))
	ctx := context.Background()

	free, err := ex.FreeSpace(ctx, "/mnt/a/photos")
	require.NoError(t, err)
	assert.Equal(t, uint64(100), free)

	exists, err := afero.DirExists(fsys, "/mnt/a/photos")
	require.NoError(t, err)
	assert.True(t, exists, "FreeSpace creates the directory")

	free, err = ex.FreeSpace(ctx, "/mnt/a/nested/x")
	require.NoError(t, err)
	assert.Equal(t, uint64(5), free)

	free, err = ex.FreeSpace(ctx, "/elsewhere")
	require.NoError(t, err)
	assert.Equal(t, uint64(7), free)

	same, err := ex.SameDisk(ctx, "/mnt/a", "/elsewhere")
	require.NoError(t, err)
	assert.True(t, same)
}

func TestOSVolumes(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "sub")
	require.NoError(t, os.Mkdir(sub, 0755))

	ex := fsexec.NewOS()
	ctx := context.Background()

	free, err := ex.FreeSpace(ctx, dir)
	if errors.Is(err, fsexec.ErrVolumeUnsupported) {
		t.Skip("volume queries unsupported on this platform")
	}
	require.NoError(t, err)
	assert.Greater(t, free, uint64(0))

	same, err := ex.SameDisk(ctx, dir, sub)
	require.NoError(t, err)
	assert.True(t, same)
}

func TestCooperativeClose(t *testing.T) {
	coop := fsexec.NewCooperative(fsexec.NewSync(afero.NewMemMapFs()))
	require.NoError(t, coop.Close())
	require.NoError(t, coop.Close(), "Close is idempotent")
}

func TestCooperativeCancelledCall(t *testing.T) {
	coop := fsexec.NewCooperative(fsexec.NewSync(afero.NewMemMapFs()))
	defer coop.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	// The idle loop and the done context race in the select; either the call
	// is rejected as cancelled or it is served normally.
	ok, err := coop.Exists(ctx, "/x")
	if err != nil {
		assert.ErrorIs(t, err, context.Canceled)
		return
	}
	assert.False(t, ok)
}
