package engine

import (
	"context"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/prometheus/client_golang/prometheus"
	"gitlab.com/tozd/go/errors"

	"github.com/paulschiretz/pgl-ingest/pkg/fsexec"
	"github.com/paulschiretz/pgl-ingest/pkg/hints"
	"github.com/paulschiretz/pgl-ingest/pkg/hook"
	"github.com/paulschiretz/pgl-ingest/pkg/ingest"
	"github.com/paulschiretz/pgl-ingest/pkg/lockfile"
	"github.com/paulschiretz/pgl-ingest/pkg/metrics"
	"github.com/paulschiretz/pgl-ingest/pkg/planner"
	"github.com/paulschiretz/pgl-ingest/pkg/plog"
	"github.com/paulschiretz/pgl-ingest/pkg/preflight"
	"github.com/paulschiretz/pgl-ingest/pkg/report"
)

// Estimate is what an ingest would do, without copying anything.
type Estimate struct {
	Files int
	Needs preflight.Needs
	Fits  bool
}

// ExecuteIngest runs the plan: preflight, lock every destination, pre-ingest
// hooks, the ingest passes, the report and finally the post-ingest hooks.
// Post-ingest hooks run whenever the pre-ingest hooks succeeded, including
// after a failed or cancelled ingest.
func (r *Runner) ExecuteIngest(ctx context.Context, p *planner.IngestPlan) (retErr error) {
	if err := ctx.Err(); err != nil {
		return errors.WithStack(err)
	}
	start := time.Now()
	targets := p.Targets()

	if err := r.preflight(*p.Preflight, p.Sources, targets...); err != nil {
		return errors.Errorf("preflight failed: %w", err)
	}

	ex := r.newExecutor(p)
	defer func() {
		if err := ex.Close(); err != nil {
			plog.Warn("Failed to close filesystem executor", "error", err)
		}
	}()

	// A dry run writes nothing into the destinations, not even a lock.
	if !p.DryRun {
		release, err := r.lockTargets(ctx, ex, targets)
		if err != nil {
			return err
		}
		defer release()
	}

	collector := report.NewCollector(p.Structure.String(), p.Sources, p.Target, p.Backup)
	env := hook.Env{RunID: collector.RunID(), Target: p.Target, Backup: p.Backup}

	if err := r.runHooks(ctx, hook.PreIngest, p.Hooks, env); err != nil {
		errMsg := "pre-ingest hook failed"
		if errors.Is(err, context.Canceled) {
			errMsg = "pre-ingest hook canceled"
		}
		return errors.Errorf("%s: %w", errMsg, err)
	}

	defer func() {
		content := collector.Finish(retErr)
		if p.Report.Enabled {
			path, err := report.Write(r.fs, p.Target, &content, p.Report.Format)
			if err != nil {
				plog.Warn("Failed to write ingest report", "target", p.Target, "error", err)
			} else {
				plog.Info("Wrote ingest report", "path", path)
			}
		}

		env.Outcome = content.Outcome
		if err := r.runHooks(ctx, hook.PostIngest, p.Hooks, env); err != nil {
			if errors.Is(err, context.Canceled) {
				plog.Info("Post-ingest hooks skipped due to cancellation")
			} else {
				plog.Warn("Post-ingest hook failed", "error", err)
			}
		}
	}()

	progress := r.progress
	progress.Store(0)
	var m metrics.Metrics = &metrics.NoopMetrics{}
	var ingestMetrics *metrics.IngestMetrics
	if p.Metrics {
		ingestMetrics = metrics.NewIngestMetrics(progress)
		m = ingestMetrics
	}

	in, err := p.Builder().
		Executor(ex).
		Progress(progress).
		Metrics(m).
		Recorder(collector).
		Build()
	if err != nil {
		return err
	}

	if p.DryRun {
		return r.dryRun(ctx, p, in)
	}

	plog.Info("Starting ingest",
		"sources", p.Sources,
		"target", p.Target,
		"backup", p.Backup,
		"structure", p.Structure,
		"backupOnly", p.BackupOnly)

	m.StartProgress("Ingest progress", p.ProgressInterval)
	err = in.Ingest(ctx)
	m.StopProgress()
	m.LogSummary("Ingest summary")

	if ingestMetrics != nil && p.MetricsTextfile != "" {
		labels := prometheus.Labels{"target": p.Target}
		if werr := metrics.WriteTextfile(ingestMetrics, p.MetricsTextfile, labels); werr != nil {
			plog.Warn("Failed to export metrics", "error", werr)
		}
	}
	if err != nil {
		return err
	}

	plog.Info("Ingest completed", "duration", time.Since(start).Round(time.Millisecond))
	return nil
}

// Estimate walks the sources and measures the destinations the way the
// ingest's own preflight does, without copying. Missing destinations are created.
func (r *Runner) Estimate(ctx context.Context, p *planner.IngestPlan) (Estimate, error) {
	ex := r.newExecutor(p)
	defer func() {
		if err := ex.Close(); err != nil {
			plog.Warn("Failed to close filesystem executor", "error", err)
		}
	}()

	in, err := p.Builder().Executor(ex).Build()
	if err != nil {
		return Estimate{}, err
	}
	return estimate(ctx, in)
}

func estimate(ctx context.Context, in *ingest.Ingestor) (Estimate, error) {
	files, err := in.Files(ctx)
	if err != nil {
		return Estimate{}, err
	}
	needs, err := in.Needs(ctx)
	if err != nil {
		return Estimate{}, err
	}
	return Estimate{Files: len(files), Needs: needs, Fits: needs.Fits(0)}, nil
}

func (r *Runner) dryRun(ctx context.Context, p *planner.IngestPlan, in *ingest.Ingestor) error {
	est, err := estimate(ctx, in)
	if err != nil {
		return err
	}
	plog.Info("[DRY RUN] Would ingest",
		"files", est.Files,
		"size", humanize.IBytes(est.Needs.Total),
		"target", p.Target,
		"free", humanize.IBytes(est.Needs.Free))
	if est.Needs.Backup != nil {
		plog.Info("[DRY RUN] Would back up",
			"backup", p.Backup,
			"free", humanize.IBytes(est.Needs.Backup.Free),
			"sameDisk", est.Needs.Backup.SameDisk)
	}
	return est.Needs.Check(0)
}

// lockTargets creates every destination and takes its lock. The returned
// function releases all locks taken.
func (r *Runner) lockTargets(ctx context.Context, ex fsexec.Executor, targets []string) (func(), error) {
	var locks []*lockfile.Lock
	release := func() {
		for i := len(locks) - 1; i >= 0; i-- {
			locks[i].Release()
		}
	}

	for _, target := range targets {
		if err := ex.MkdirAll(ctx, target); err != nil {
			release()
			return nil, errors.Errorf("failed to create target %s: %w", target, err)
		}
		plog.Debug("Attempting to acquire lock", "path", target)
		lock, err := r.locker.Acquire(ctx, target)
		if err != nil {
			release()
			var lockErr *lockfile.ErrLockActive
			if errors.As(err, &lockErr) {
				plog.Warn("Ingest is already running for this target, skipping run", "target", target, "details", lockErr.Error())
				return nil, ErrTargetBusy
			}
			return nil, errors.Errorf("failed to acquire lock for %s: %w", target, err)
		}
		locks = append(locks, lock)
	}
	plog.Debug("Locks acquired", "count", len(locks))
	return release, nil
}

// runHooks runs one hook stage. Hints such as a disabled stage are not errors.
func (r *Runner) runHooks(ctx context.Context, stage hook.Stage, p *hook.Plan, env hook.Env) error {
	err := r.hooks.Run(ctx, stage, p, env)
	if hints.IsHint(err) {
		plog.Debug("Skipping hooks", "stage", stage, "reason", err)
		return nil
	}
	return err
}
