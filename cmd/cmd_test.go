package cmd_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paulschiretz/pgl-ingest/cmd"
	"github.com/paulschiretz/pgl-ingest/pkg/buildinfo"
	"github.com/paulschiretz/pgl-ingest/pkg/config"
)

// execute runs a fresh command tree with its own config home.
func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	var out bytes.Buffer
	root := cmd.NewRootCommand()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func writeCard(t *testing.T) string {
	t.Helper()
	src := filepath.Join(t.TempDir(), "card")
	for name, content := range map[string]string{
		"DCIM/100/img_0001.cr2": "raw-1",
		"DCIM/100/img_0001.jpg": "jpeg-1",
		"DCIM/100/img_0002.mp4": "video-2",
	} {
		path := filepath.Join(src, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	return src
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "", "version")
	require.NoError(t, err)
	assert.Equal(t, buildinfo.Name+" version "+buildinfo.Version+"\n", out)
}

func TestIngestCommandRenames(t *testing.T) {
	src := writeCard(t)
	target := filepath.Join(t.TempDir(), "library")

	_, err := execute(t, "", "ingest",
		"--source", src,
		"--target", target,
		"--rename-name", "trip",
		"--rename-zeroes", "3",
		"--extensions", "cr2",
		"--report=false")
	require.NoError(t, err)

	entries, err := os.ReadDir(target)
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	assert.Equal(t, []string{"000-trip.cr2", "000-trip.jpg"}, names)
}

func TestIngestCommandDryRun(t *testing.T) {
	src := writeCard(t)
	target := filepath.Join(t.TempDir(), "library")

	_, err := execute(t, "", "ingest", "--source", src, "--target", target, "--structure", "retain", "--dry-run")
	require.NoError(t, err)
	_, err = os.Stat(filepath.Join(target, "DCIM"))
	assert.True(t, os.IsNotExist(err))
}

func TestIngestCommandRejectsInvalidFlag(t *testing.T) {
	src := writeCard(t)
	_, err := execute(t, "", "ingest", "--source", src, "--target", t.TempDir(), "--min-size", "lots")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--min-size")
}

func TestIngestCommandRequiresTarget(t *testing.T) {
	src := writeCard(t)
	_, err := execute(t, "", "ingest", "--source", src)
	require.Error(t, err)
}

func TestBackupCommand(t *testing.T) {
	src := writeCard(t)
	root := t.TempDir()
	target := filepath.Join(root, "library")
	backup := filepath.Join(root, "mirror")

	_, err := execute(t, "", "backup",
		"--source", src,
		"--target", target,
		"--backup", backup,
		"--structure", "retain")
	require.NoError(t, err)

	_, err = os.Stat(filepath.Join(backup, "DCIM", "100", "img_0001.cr2"))
	assert.NoError(t, err)
	_, err = os.Stat(target)
	assert.True(t, os.IsNotExist(err), "backup must not touch the target")
}

func TestBackupCommandRequiresBackup(t *testing.T) {
	src := writeCard(t)
	_, err := execute(t, "", "backup", "--source", src, "--target", t.TempDir())
	require.Error(t, err)
}

func TestPlanCommand(t *testing.T) {
	src := writeCard(t)
	target := filepath.Join(t.TempDir(), "library")

	out, err := execute(t, "", "plan", "--source", src, "--target", target, "--preset", "all")
	require.NoError(t, err)
	assert.Contains(t, out, "Files")
	assert.Contains(t, out, "Fits")
	assert.Contains(t, out, target)

	entries, err := os.ReadDir(target)
	require.NoError(t, err)
	assert.Empty(t, entries, "plan must not copy")
}

func TestInitCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conf", "config.yaml")

	out, err := execute(t, "", "init", "--config", path, "--target", "/photos", "--structure", "preserve")
	require.NoError(t, err)
	assert.Contains(t, out, path)

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/photos", filepath.ToSlash(cfg.Target))
	assert.Equal(t, "preserve", cfg.Structure.Mode)
	assert.Equal(t, config.NewDefault().Engine, cfg.Engine)
}

func TestInitCommandAsksBeforeOverwrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("target: /keep\n"), 0o600))

	out, err := execute(t, "n\n", "init", "--config", path)
	require.NoError(t, err)
	assert.Contains(t, out, "already exists")
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "target: /keep\n", string(data))

	_, err = execute(t, "", "init", "--config", path, "--force")
	require.NoError(t, err)
	data, err = os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "/keep")
}
