package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate(t *testing.T) {
	newValid := func(t *testing.T) Config {
		cfg := NewDefault()
		cfg.Sources = []string{t.TempDir()}
		cfg.Target = t.TempDir()
		return cfg
	}

	t.Run("Defaults without paths", func(t *testing.T) {
		cfg := NewDefault()
		assert.NoError(t, cfg.Validate(false))
	})

	t.Run("Valid", func(t *testing.T) {
		cfg := newValid(t)
		assert.NoError(t, cfg.Validate(true))
	})

	testCases := []struct {
		name     string
		mutate   func(t *testing.T, c *Config)
		contains string
	}{
		{"Empty sources", func(t *testing.T, c *Config) { c.Sources = nil }, "sources cannot be empty"},
		{"Empty target", func(t *testing.T, c *Config) { c.Target = "" }, "target path cannot be empty"},
		{"Missing source", func(t *testing.T, c *Config) {
			c.Sources = []string{filepath.Join(t.TempDir(), "nope")}
		}, "not accessible"},
		{"Bad structure", func(t *testing.T, c *Config) { c.Structure.Mode = "shuffle" }, "structure.mode"},
		{"Bad position", func(t *testing.T, c *Config) { c.Structure.Rename.Position = "middle" }, "structure.rename.position"},
		{"Bad executor", func(t *testing.T, c *Config) { c.Engine.Executor = "threads" }, "engine.executor"},
		{"Bad report format", func(t *testing.T, c *Config) { c.Report.Format = "xml" }, "report.format"},
		{"Bad log level", func(t *testing.T, c *Config) { c.LogLevel = "loud" }, "logLevel"},
		{"Negative depth", func(t *testing.T, c *Config) { c.Depth = -1 }, "depth"},
		{"Tiny buffer", func(t *testing.T, c *Config) { c.Engine.BufferSizeKB = 1 }, "engine.bufferSizeKB"},
		{"Min above max", func(t *testing.T, c *Config) {
			c.Filter.MinSize, c.Filter.MaxSize = 2048, 1024
		}, "filter.minSize"},
		{"Bad glob", func(t *testing.T, c *Config) { c.Filter.ExcludeDirs = []string{"[unclosed"} }, "filter.excludeDirs"},
		{"Backup equals target", func(t *testing.T, c *Config) { c.Backup = c.Target }, "cannot be the same"},
		{"Backup only without backup", func(t *testing.T, c *Config) { c.Runtime.BackupOnly = true }, "backup path cannot be empty"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := newValid(t)
			tc.mutate(t, &cfg)
			err := cfg.Validate(true)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.contains)
		})
	}

	t.Run("Paths are cleaned", func(t *testing.T) {
		cfg := newValid(t)
		cfg.Target = cfg.Target + "/sub/../"
		require.NoError(t, cfg.Validate(true))
		assert.Equal(t, filepath.Clean(cfg.Target), cfg.Target)
		assert.NotContains(t, cfg.Target, "..")
	})
}

func TestLoad(t *testing.T) {
	t.Run("Missing default file yields defaults", func(t *testing.T) {
		t.Setenv("XDG_CONFIG_HOME", t.TempDir())
		cfg, err := Load("")
		require.NoError(t, err)
		assert.Equal(t, NewDefault(), cfg)
	})

	t.Run("Missing explicit file fails", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
		assert.Error(t, err)
	})

	t.Run("File values over defaults", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		data := `
sources: [/media/card]
target: /photos
structure:
  mode: retain
filter:
  minSize: 512KiB
  maxSize: 2GB
  extensions: [cr2, ""]
`
		require.NoError(t, os.WriteFile(path, []byte(data), 0600))

		cfg, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, []string{"/media/card"}, cfg.Sources)
		assert.Equal(t, "/photos", cfg.Target)
		assert.Equal(t, "retain", cfg.Structure.Mode)
		assert.Equal(t, ByteSize(512*1024), cfg.Filter.MinSize)
		assert.Equal(t, ByteSize(2_000_000_000), cfg.Filter.MaxSize)
		assert.Equal(t, []string{"cr2", ""}, cfg.Filter.Extensions)
		// Untouched keys keep their defaults.
		assert.Equal(t, "sync", cfg.Engine.Executor)
		assert.True(t, cfg.Sidecars.CopyXMP)
		assert.Equal(t, "prefix", cfg.Structure.Rename.Position)
	})

	t.Run("Environment overrides", func(t *testing.T) {
		t.Setenv("XDG_CONFIG_HOME", t.TempDir())
		t.Setenv("PGL_INGEST_TARGET", "/from/env")
		t.Setenv("PGL_INGEST_ENGINE_EXECUTOR", "cooperative")
		cfg, err := Load("")
		require.NoError(t, err)
		assert.Equal(t, "/from/env", cfg.Target)
		assert.Equal(t, "cooperative", cfg.Engine.Executor)
	})

	t.Run("Invalid byte size", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		require.NoError(t, os.WriteFile(path, []byte("filter:\n  minSize: lots\n"), 0600))
		_, err := Load(path)
		assert.Error(t, err)
	})
}

func TestSaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := NewDefault()
	cfg.Sources = []string{"/media/card"}
	cfg.Target = "/photos"
	cfg.Filter.MinSize = 3 << 20
	cfg.Filter.MaxSize = 1500
	cfg.Hooks.PostIngest = []string{"eject /media/card"}

	require.NoError(t, Save(cfg, path))
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "minSize: 3MiB")

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestMergeConfigWithFlags(t *testing.T) {
	base := NewDefault()
	base.Target = "/photos"
	base.Engine.Executor = "cooperative"
	base.Sources = []string{"/media/card"}

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.String("log-level", "info", "")
	RegisterFlags(fs)
	require.NoError(t, fs.Parse([]string{
		"--target", "/elsewhere",
		"--source", "/a,/b",
		"--min-size", "1MiB",
		"--copy-xmp=false",
		"--structure", "preserve",
		"--log-level", "debug",
		"--dry-run",
	}))

	merged, err := MergeConfigWithFlags(base, fs)
	require.NoError(t, err)
	assert.Equal(t, "/elsewhere", merged.Target)
	assert.Equal(t, []string{"/a", "/b"}, merged.Sources)
	assert.Equal(t, ByteSize(1<<20), merged.Filter.MinSize)
	assert.False(t, merged.Sidecars.CopyXMP)
	assert.Equal(t, "preserve", merged.Structure.Mode)
	assert.Equal(t, "debug", merged.LogLevel)
	assert.True(t, merged.Runtime.DryRun)
	assert.Equal(t, "cooperative", merged.Engine.Executor, "unset flags never override")
	assert.Equal(t, []string{"/media/card"}, base.Sources, "base is not modified")

	bad := pflag.NewFlagSet("bad", pflag.ContinueOnError)
	RegisterFlags(bad)
	require.NoError(t, bad.Parse([]string{"--max-size", "huge"}))
	_, err = MergeConfigWithFlags(base, bad)
	assert.Error(t, err)
}

func TestByteSize(t *testing.T) {
	assert.Equal(t, "0", ByteSize(0).String())
	assert.Equal(t, "1.0 KiB", ByteSize(1024).String())

	v, err := ByteSize(5 << 30).MarshalYAML()
	require.NoError(t, err)
	assert.Equal(t, "5GiB", v)

	v, err = ByteSize(1500).MarshalYAML()
	require.NoError(t, err)
	assert.Equal(t, uint64(1500), v)
}
