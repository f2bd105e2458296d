package sidecar_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gitlab.com/tozd/go/errors"

	"github.com/paulschiretz/pgl-ingest/pkg/fsexec"
	"github.com/paulschiretz/pgl-ingest/pkg/sidecar"
)

func TestAccompanyingJPEG(t *testing.T) {
	ctx := context.Background()
	fsys := afero.NewMemMapFs()
	for _, p := range []string{"/card/a.cr2", "/card/a.jpg", "/card/b.nef", "/card/b.JPEG", "/card/c.arw"} {
		require.NoError(t, afero.WriteFile(fsys, p, []byte("x"), 0644))
	}
	ex := fsexec.NewSync(fsys)

	t.Run("Finds a lowercase companion", func(t *testing.T) {
		got, err := sidecar.AccompanyingJPEG(ctx, ex, "/card/a.cr2")
		require.NoError(t, err)
		assert.Equal(t, filepath.Clean("/card/a.jpg"), got)
	})

	t.Run("Finds an uppercase companion", func(t *testing.T) {
		got, err := sidecar.AccompanyingJPEG(ctx, ex, "/card/b.nef")
		require.NoError(t, err)
		assert.Equal(t, filepath.Clean("/card/b.JPEG"), got)
	})

	t.Run("Missing companion", func(t *testing.T) {
		_, err := sidecar.AccompanyingJPEG(ctx, ex, "/card/c.arw")
		assert.True(t, errors.Is(err, sidecar.ErrNoAccompanyingJPEG))
	})

	t.Run("A JPEG cannot have a companion JPEG", func(t *testing.T) {
		for _, p := range []string{"/card/a.jpg", "/card/a.JPEG"} {
			_, err := sidecar.AccompanyingJPEG(ctx, ex, p)
			assert.True(t, errors.Is(err, sidecar.ErrJPEGHasJPEG), p)
		}
	})
}

func TestCompanionCandidates(t *testing.T) {
	siblings := []string{"a.cr2", "a.jpg", "a.xmp", "a.JPG", "ab.cr2", "a", "b.cr2", "a.dng"}
	assert.Equal(t, []string{"a.cr2", "a.dng"}, sidecar.CompanionCandidates("a.jpg", siblings))
	assert.Empty(t, sidecar.CompanionCandidates("z.jpg", siblings))
}

func TestXMP(t *testing.T) {
	assert.Equal(t, filepath.Join("card", "a.xmp"), sidecar.XMPPath(filepath.Join("card", "a.cr2")))
	assert.True(t, sidecar.IsXMP("a.XMP"))
	assert.False(t, sidecar.IsXMP("a.cr2"))
}

func TestTracker(t *testing.T) {
	t.Run("Primary first then JPEG entry", func(t *testing.T) {
		tr := sidecar.NewTracker()
		tr.ObserveCompanion("/a.jpg")
		copied, ok := tr.Lookup("/a.jpg")
		assert.True(t, ok)
		assert.True(t, copied)

		tr.ObserveJPEG("/a.jpg")
		assert.True(t, tr.Copied("/a.jpg"), "the walk entry does not clear a copied companion")
		assert.Equal(t, 1, tr.Len())
	})

	t.Run("JPEG entry first then primary", func(t *testing.T) {
		tr := sidecar.NewTracker()
		tr.ObserveJPEG("/a.jpg")
		copied, ok := tr.Lookup("/a.jpg")
		assert.True(t, ok)
		assert.False(t, copied)
		assert.False(t, tr.Copied("/a.jpg"))

		tr.ObserveCompanion("/a.jpg")
		assert.True(t, tr.Copied("/a.jpg"))
		assert.Equal(t, []sidecar.Pending{{Path: "/a.jpg", Copied: true}}, tr.Drain())
	})

	t.Run("Unseen path is not copied", func(t *testing.T) {
		tr := sidecar.NewTracker()
		assert.False(t, tr.Copied("/a.jpg"))
		_, ok := tr.Lookup("/a.jpg")
		assert.False(t, ok)
	})

	t.Run("At most one entry per path", func(t *testing.T) {
		tr := sidecar.NewTracker()
		tr.ObserveJPEG("/a.jpg")
		tr.ObserveJPEG("/a.jpg")
		tr.ObserveCompanion("/b.jpg")
		tr.ObserveCompanion("/b.jpg")
		assert.Equal(t, 2, tr.Len())
	})

	t.Run("Drain is sorted and empties the tracker", func(t *testing.T) {
		tr := sidecar.NewTracker()
		tr.ObserveJPEG("/c.jpg")
		tr.ObserveCompanion("/a.jpg")
		tr.ObserveJPEG("/b.jpg")

		got := tr.Drain()
		assert.Equal(t, []sidecar.Pending{
			{Path: "/a.jpg", Copied: true},
			{Path: "/b.jpg", Copied: false},
			{Path: "/c.jpg", Copied: false},
		}, got)
		assert.Zero(t, tr.Len())
	})
}
