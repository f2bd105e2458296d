// Package planner turns a validated configuration into the plans the engine executes.
package planner

import (
	"math"
	"time"

	"github.com/paulschiretz/pgl-ingest/pkg/config"
	"github.com/paulschiretz/pgl-ingest/pkg/filter"
	"github.com/paulschiretz/pgl-ingest/pkg/fsexec"
	"github.com/paulschiretz/pgl-ingest/pkg/hook"
	"github.com/paulschiretz/pgl-ingest/pkg/ingest"
	"github.com/paulschiretz/pgl-ingest/pkg/preflight"
	"github.com/paulschiretz/pgl-ingest/pkg/rename"
	"github.com/paulschiretz/pgl-ingest/pkg/report"
)

type ReportPlan struct {
	Enabled bool
	Format  report.Format
}

type IngestPlan struct {
	DryRun     bool
	BackupOnly bool
	Metrics    bool

	Sources []string
	Target  string
	Backup  string
	Depth   int

	Structure ingest.Structure
	Filter    filter.Filter
	CopyXMP   bool
	CopyJPG   bool

	Executor         Executor
	BufferSize       int64
	ProgressInterval time.Duration
	MetricsTextfile  string

	Preflight *preflight.Plan
	Hooks     *hook.Plan
	Report    *ReportPlan
}

// GenerateIngestPlan builds the plan for a run. cfg must have passed Validate.
func GenerateIngestPlan(cfg config.Config) (*IngestPlan, error) {
	dryRun := cfg.Runtime.DryRun

	structure, err := parseStructure(cfg.Structure)
	if err != nil {
		return nil, err
	}
	f, err := buildFilter(cfg.Filter)
	if err != nil {
		return nil, err
	}
	executor, err := ParseExecutor(cfg.Engine.Executor)
	if err != nil {
		return nil, err
	}
	format, err := report.ParseFormat(cfg.Report.Format)
	if err != nil {
		return nil, err
	}

	target, backup := cfg.Target, cfg.Backup
	if cfg.Runtime.BackupOnly {
		// The backup pass alone is an ordinary pass into the backup directory.
		target, backup = cfg.Backup, ""
	}
	targets := []string{target}
	if backup != "" {
		targets = append(targets, backup)
	}

	return &IngestPlan{
		DryRun:     dryRun,
		BackupOnly: cfg.Runtime.BackupOnly,
		Metrics:    cfg.Engine.Metrics,

		Sources: append([]string(nil), cfg.Sources...),
		Target:  target,
		Backup:  backup,
		Depth:   cfg.Depth,

		Structure: structure,
		Filter:    f,
		CopyXMP:   cfg.Sidecars.CopyXMP,
		CopyJPG:   cfg.Sidecars.CopyJPG,

		Executor:         executor,
		BufferSize:       int64(cfg.Engine.BufferSizeKB) * 1024,
		ProgressInterval: time.Duration(cfg.Engine.ProgressIntervalSeconds) * time.Second,
		MetricsTextfile:  cfg.Engine.MetricsTextfile,

		Preflight: &preflight.Plan{
			SourceAccessible: true,
			TargetAccessible: true,
			TargetWriteable:  true,
			PathNesting:      true,
			DryRun:           dryRun,
			FailFast:         true,
		},
		Hooks: &hook.Plan{
			Enabled:            len(cfg.Hooks.PreIngest)+len(cfg.Hooks.PostIngest) > 0,
			PreIngestCommands:  cfg.Hooks.PreIngest,
			PostIngestCommands: cfg.Hooks.PostIngest,
			DryRun:             dryRun,
			FailFast:           cfg.Hooks.FailFast,
		},
		Report: &ReportPlan{
			Enabled: cfg.Report.Enabled && !dryRun,
			Format:  format,
		},
	}, nil
}

// Targets returns the destinations of the run in pass order.
func (p *IngestPlan) Targets() []string {
	if p.Backup == "" {
		return []string{p.Target}
	}
	return []string{p.Target, p.Backup}
}

// NewExecutor creates the filesystem executor the plan asks for on the OS filesystem.
func (p *IngestPlan) NewExecutor() fsexec.Executor {
	base := fsexec.NewOS(fsexec.WithBufferSize(p.BufferSize))
	if p.Executor == Cooperative {
		return fsexec.NewCooperative(base)
	}
	return base
}

// Builder returns an ingest builder carrying the plan's settings. The caller
// adds the executor, metrics and recorder.
func (p *IngestPlan) Builder() *ingest.Builder {
	return ingest.NewBuilder().
		Structure(p.Structure).
		Target(p.Target).
		Backup(p.Backup).
		Sources(p.Sources...).
		Filter(p.Filter).
		CopyXMP(p.CopyXMP).
		CopyJPG(p.CopyJPG).
		Depth(p.Depth)
}

func parseStructure(c config.StructureConfig) (ingest.Structure, error) {
	kind, err := ingest.ParseStructureKind(c.Mode)
	if err != nil {
		return ingest.Structure{}, err
	}
	switch kind {
	case ingest.KindRename:
		pos, err := rename.ParsePosition(c.Rename.Position)
		if err != nil {
			return ingest.Structure{}, err
		}
		return ingest.Rename(rename.Rename{
			Name:     c.Rename.Name,
			Position: pos,
			Sequence: c.Rename.Sequence,
			Zeroes:   c.Rename.Zeroes,
		}), nil
	case ingest.KindPreserve:
		return ingest.Preserve(), nil
	}
	return ingest.Retain(), nil
}

func buildFilter(c config.FilterConfig) (filter.Filter, error) {
	maxSize := uint64(c.MaxSize)
	if maxSize == 0 {
		maxSize = math.MaxUint64
	}
	exts := c.Extensions
	if len(exts) == 0 && c.Preset == "images" {
		exts = append(filter.RawExtensions(), filter.LossyExtensions()...)
	}
	return filter.New(exts, uint64(c.MinSize), maxSize, c.IgnoreHidden).
		WithExclusions(c.ExcludeFilePatterns(), c.ExcludeDirs)
}
