// Package config loads, validates and saves the ingest configuration.
package config

import (
	"fmt"
	"strings"

	"github.com/paulschiretz/pgl-ingest/pkg/buildinfo"
	"github.com/paulschiretz/pgl-ingest/pkg/lockfile"
	"github.com/paulschiretz/pgl-ingest/pkg/plog"
	"github.com/paulschiretz/pgl-ingest/pkg/report"
	"github.com/paulschiretz/pgl-ingest/pkg/util"
)

// systemExcludeFiles are never ingested: they are this tool's own files,
// found when a previous target is used as a source.
var systemExcludeFiles = []string{
	lockfile.FileName,
	lockfile.FileName + ".*.tmp",
	report.FilePrefix + "*",
	"pgl-ingest-*.tmp",
}

type RenameConfig struct {
	// Name replaces the original stem when set.
	Name     string `mapstructure:"name" yaml:"name"`
	Position string `mapstructure:"position" yaml:"position" validate:"oneof=prefix suffix"`
	Sequence int64  `mapstructure:"sequence" yaml:"sequence" validate:"gte=0"`
	Zeroes   uint8  `mapstructure:"zeroes" yaml:"zeroes" validate:"lte=20"`
}

type StructureConfig struct {
	Mode   string       `mapstructure:"mode" yaml:"mode" validate:"oneof=retain rename preserve"`
	Rename RenameConfig `mapstructure:"rename" yaml:"rename"`
}

type FilterConfig struct {
	// Preset is the extension set used when Extensions is empty.
	Preset string `mapstructure:"preset" yaml:"preset" validate:"oneof=images all"`
	// Extensions overrides the preset. "" admits files without an extension.
	Extensions   []string `mapstructure:"extensions" yaml:"extensions"`
	MinSize      ByteSize `mapstructure:"minSize" yaml:"minSize"`
	MaxSize      ByteSize `mapstructure:"maxSize" yaml:"maxSize" comment:"0 means unlimited"`
	IgnoreHidden bool     `mapstructure:"ignoreHidden" yaml:"ignoreHidden"`
	ExcludeFiles []string `mapstructure:"excludeFiles" yaml:"excludeFiles"`
	ExcludeDirs  []string `mapstructure:"excludeDirs" yaml:"excludeDirs"`
}

type SidecarsConfig struct {
	CopyXMP bool `mapstructure:"copyXmp" yaml:"copyXmp"`
	CopyJPG bool `mapstructure:"copyJpg" yaml:"copyJpg"`
}

type EngineConfig struct {
	Executor                string `mapstructure:"executor" yaml:"executor" validate:"oneof=sync cooperative"`
	BufferSizeKB            int    `mapstructure:"bufferSizeKB" yaml:"bufferSizeKB" validate:"min=4,max=65536"`
	Metrics                 bool   `mapstructure:"metrics" yaml:"metrics"`
	ProgressIntervalSeconds int    `mapstructure:"progressIntervalSeconds" yaml:"progressIntervalSeconds" validate:"gte=0"`
	MetricsTextfile         string `mapstructure:"metricsTextfile" yaml:"metricsTextfile"`
}

type ReportConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Format  string `mapstructure:"format" yaml:"format" validate:"oneof=json json.gz json.zst"`
}

type HooksConfig struct {
	// SECURITY: commands run as given through the system shell.
	PreIngest  []string `mapstructure:"preIngest" yaml:"preIngest"`
	PostIngest []string `mapstructure:"postIngest" yaml:"postIngest"`
	FailFast   bool     `mapstructure:"failFast" yaml:"failFast"`
}

type RuntimeConfig struct {
	DryRun bool
	// BackupOnly skips the primary pass and ingests straight into Backup.
	BackupOnly bool
}

type Config struct {
	Version   string          `mapstructure:"version" yaml:"version"`
	LogLevel  string          `mapstructure:"logLevel" yaml:"logLevel" validate:"oneof=debug notice info warn error"`
	Sources   []string        `mapstructure:"sources" yaml:"sources"`
	Target    string          `mapstructure:"target" yaml:"target"`
	Backup    string          `mapstructure:"backup" yaml:"backup"`
	Depth     int             `mapstructure:"depth" yaml:"depth" validate:"gte=0"`
	Structure StructureConfig `mapstructure:"structure" yaml:"structure"`
	Filter    FilterConfig    `mapstructure:"filter" yaml:"filter"`
	Sidecars  SidecarsConfig  `mapstructure:"sidecars" yaml:"sidecars"`
	Engine    EngineConfig    `mapstructure:"engine" yaml:"engine"`
	Report    ReportConfig    `mapstructure:"report" yaml:"report"`
	Hooks     HooksConfig     `mapstructure:"hooks" yaml:"hooks"`
	Runtime   RuntimeConfig   `mapstructure:"-" yaml:"-"`
}

// NewDefault returns the configuration used when no file is present.
// Sources and target stay empty to force the user to set them.
func NewDefault() Config {
	return Config{
		Version:  buildinfo.Version,
		LogLevel: "info",
		Sources:  []string{},
		Structure: StructureConfig{
			Mode: "rename",
			Rename: RenameConfig{
				Position: "prefix",
				Zeroes:   4,
			},
		},
		Filter: FilterConfig{
			Preset:       "images",
			Extensions:   []string{},
			IgnoreHidden: true,
			ExcludeFiles: []string{},
			ExcludeDirs:  []string{},
		},
		Sidecars: SidecarsConfig{CopyXMP: true, CopyJPG: true},
		Engine: EngineConfig{
			Executor:                "sync",
			BufferSizeKB:            256,
			Metrics:                 true,
			ProgressIntervalSeconds: 30,
		},
		Report: ReportConfig{Enabled: true, Format: "json.zst"},
		Hooks: HooksConfig{
			PreIngest:  []string{},
			PostIngest: []string{},
		},
	}
}

// ExcludeFilePatterns returns the system and user file exclusions, deduplicated.
func (f *FilterConfig) ExcludeFilePatterns() []string {
	return util.MergeAndDeduplicate(systemExcludeFiles, f.ExcludeFiles)
}

// LogSummary logs the effective configuration at INFO.
func (c *Config) LogSummary() {
	args := []any{
		"log_level", c.LogLevel,
		"sources", strings.Join(c.Sources, ", "),
		"target", c.Target,
		"structure", c.Structure.Mode,
		"executor", c.Engine.Executor,
		"buffer_size_kb", c.Engine.BufferSizeKB,
		"metrics", c.Engine.Metrics,
		"dry_run", c.Runtime.DryRun,
	}
	if c.Backup != "" {
		args = append(args, "backup", c.Backup)
	}
	if c.Depth > 0 {
		args = append(args, "depth", c.Depth)
	}
	if c.Structure.Mode == "rename" {
		r := c.Structure.Rename
		args = append(args, "rename", fmt.Sprintf("n:%q p:%s s:%d z:%d", r.Name, r.Position, r.Sequence, r.Zeroes))
	}
	if len(c.Filter.Extensions) > 0 {
		args = append(args, "extensions", strings.Join(c.Filter.Extensions, ", "))
	} else {
		args = append(args, "preset", c.Filter.Preset)
	}
	if c.Filter.MinSize > 0 || c.Filter.MaxSize > 0 {
		args = append(args, "size", fmt.Sprintf("%s..%s", c.Filter.MinSize, c.Filter.MaxSize))
	}
	if len(c.Filter.ExcludeFiles) > 0 {
		args = append(args, "exclude_files", strings.Join(c.Filter.ExcludeFiles, ", "))
	}
	if len(c.Filter.ExcludeDirs) > 0 {
		args = append(args, "exclude_dirs", strings.Join(c.Filter.ExcludeDirs, ", "))
	}
	args = append(args, "sidecars", fmt.Sprintf("xmp:%t jpg:%t", c.Sidecars.CopyXMP, c.Sidecars.CopyJPG))
	if c.Report.Enabled {
		args = append(args, "report", c.Report.Format)
	}
	if len(c.Hooks.PreIngest) > 0 {
		args = append(args, "pre_ingest_hooks", strings.Join(c.Hooks.PreIngest, "; "))
	}
	if len(c.Hooks.PostIngest) > 0 {
		args = append(args, "post_ingest_hooks", strings.Join(c.Hooks.PostIngest, "; "))
	}
	plog.Info("Configuration loaded", args...)
}
