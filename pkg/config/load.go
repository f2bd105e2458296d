package config

import (
	"bytes"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
	"gitlab.com/tozd/go/errors"
	"gopkg.in/yaml.v3"

	"github.com/paulschiretz/pgl-ingest/pkg/buildinfo"
	"github.com/paulschiretz/pgl-ingest/pkg/plog"
	"github.com/paulschiretz/pgl-ingest/pkg/util"
)

// EnvPrefix prefixes environment overrides, e.g. PGL_INGEST_TARGET or
// PGL_INGEST_ENGINE_EXECUTOR.
const EnvPrefix = "PGL_INGEST"

// Dir returns $XDG_CONFIG_HOME/pgl-ingest, falling back to ~/.config/pgl-ingest.
func Dir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, buildinfo.AppID)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", buildinfo.AppID)
}

// DefaultPath is where Load looks when no path is given.
func DefaultPath() string {
	return filepath.Join(Dir(), "config.yaml")
}

// Load reads the configuration at path, or at DefaultPath when path is empty.
// Values missing from the file keep their defaults and PGL_INGEST_*
// environment variables override both. A missing default file is not an
// error; a missing explicit file is.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	v.SetConfigType("yaml")

	// Seed every key so environment overrides apply to keys absent from the file.
	defaults, err := yaml.Marshal(NewDefault())
	if err != nil {
		return Config{}, errors.Errorf("failed to marshal default config: %w", err)
	}
	if err := v.ReadConfig(bytes.NewReader(defaults)); err != nil {
		return Config{}, errors.Errorf("failed to load default config: %w", err)
	}

	explicit := path != ""
	if !explicit {
		path = DefaultPath()
	}
	path, err = util.ExpandPath(path)
	if err != nil {
		return Config{}, errors.Errorf("could not expand config path: %w", err)
	}

	v.SetConfigFile(path)
	switch err := v.MergeInConfig(); {
	case err == nil:
		plog.Info("Loading configuration", "path", path)
	case errors.Is(err, fs.ErrNotExist) && !explicit:
		plog.Debug("No configuration file, using defaults", "path", path)
	default:
		return Config{}, errors.Errorf("error reading config file %s: %w", path, err)
	}

	var cfg Config
	hooks := mapstructure.ComposeDecodeHookFunc(
		byteSizeDecodeHook(),
		mapstructure.StringToSliceHookFunc(","),
	)
	if err := v.Unmarshal(&cfg, viper.DecodeHook(hooks)); err != nil {
		return Config{}, errors.Errorf("error parsing config file %s: %w", path, err)
	}
	cfg.Version = buildinfo.Version
	return cfg, nil
}

// Save writes cfg as YAML to path, creating the parent directory. The file is
// user-only since hook commands run with the user's rights.
func Save(cfg Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), util.UserWritableDirPerms); err != nil {
		return errors.Errorf("failed to create config directory: %w", err)
	}
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(cfg); err != nil {
		return errors.Errorf("failed to marshal config: %w", err)
	}
	if err := enc.Close(); err != nil {
		return errors.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), util.UserOnlyFilePerms); err != nil {
		return errors.Errorf("failed to write config file: %w", err)
	}
	plog.Info("Successfully saved config file", "path", path)
	return nil
}
