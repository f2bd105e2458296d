package preflight

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckTargetAccessible(t *testing.T) {
	t.Run("Happy Path - Target Exists", func(t *testing.T) {
		assert.NoError(t, CheckTargetAccessible(t.TempDir()))
	})

	t.Run("Happy Path - Target Does Not Exist, Parent Exists", func(t *testing.T) {
		assert.NoError(t, CheckTargetAccessible(filepath.Join(t.TempDir(), "new_dir")))
	})

	t.Run("Error - Target Is a File", func(t *testing.T) {
		targetFile := filepath.Join(t.TempDir(), "target.txt")
		require.NoError(t, os.WriteFile(targetFile, []byte("i am a file"), 0644))

		err := CheckTargetAccessible(targetFile)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "is not a directory")
	})

	t.Run("Error - Parent Does Not Exist", func(t *testing.T) {
		err := CheckTargetAccessible(filepath.Join(t.TempDir(), "a", "b"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "do not exist")
	})
}

func TestCheckSourceAccessible(t *testing.T) {
	t.Run("Happy Path - Source is a directory", func(t *testing.T) {
		assert.NoError(t, CheckSourceAccessible(t.TempDir()))
	})

	t.Run("Error - Source does not exist", func(t *testing.T) {
		err := CheckSourceAccessible(filepath.Join(t.TempDir(), "nonexistent"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "does not exist")
	})

	t.Run("Error - Source is a file", func(t *testing.T) {
		f := filepath.Join(t.TempDir(), "card.img")
		require.NoError(t, os.WriteFile(f, nil, 0644))
		err := CheckSourceAccessible(f)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "is not a directory")
	})
}

func TestCheckTargetWritable(t *testing.T) {
	target := filepath.Join(t.TempDir(), "new")
	require.NoError(t, CheckTargetWritable(target))

	entries, err := os.ReadDir(target)
	require.NoError(t, err)
	assert.Empty(t, entries, "write probe must be removed")
}

func TestCheckPathNesting(t *testing.T) {
	root := t.TempDir()
	src := filepath.Join(root, "card")

	assert.NoError(t, CheckPathNesting(src, filepath.Join(root, "out")))
	assert.NoError(t, CheckPathNesting(src, filepath.Join(root, "card-copy")))
	assert.Error(t, CheckPathNesting(src, filepath.Join(src, "out")))
	assert.Error(t, CheckPathNesting(src, src))
}

func TestRun(t *testing.T) {
	root := t.TempDir()
	src := filepath.Join(root, "card")
	require.NoError(t, os.Mkdir(src, 0755))
	missing := filepath.Join(root, "missing")

	plan := Plan{SourceAccessible: true, TargetAccessible: true, TargetWriteable: true, PathNesting: true}

	t.Run("All checks pass", func(t *testing.T) {
		assert.NoError(t, Run(plan, []string{src}, filepath.Join(root, "out"), filepath.Join(root, "backup")))
	})

	t.Run("Failures are collected", func(t *testing.T) {
		err := Run(plan, []string{missing}, filepath.Join(missing, "out"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "does not exist")
	})

	t.Run("FailFast stops at the first failure", func(t *testing.T) {
		p := plan
		p.FailFast = true
		err := Run(p, []string{missing, src}, filepath.Join(src, "nested"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "source directory")
	})
}
