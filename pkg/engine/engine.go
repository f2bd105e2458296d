// Package engine runs an ingest plan end to end: preflight checks, target
// locks, hooks, the ingest passes, metrics and the run report.
package engine

import (
	"context"
	"sync/atomic"

	"github.com/spf13/afero"

	"github.com/paulschiretz/pgl-ingest/pkg/buildinfo"
	"github.com/paulschiretz/pgl-ingest/pkg/fsexec"
	"github.com/paulschiretz/pgl-ingest/pkg/hints"
	"github.com/paulschiretz/pgl-ingest/pkg/hook"
	"github.com/paulschiretz/pgl-ingest/pkg/lockfile"
	"github.com/paulschiretz/pgl-ingest/pkg/planner"
	"github.com/paulschiretz/pgl-ingest/pkg/preflight"
)

// ErrTargetBusy is returned when another run holds the lock of a destination.
// The run is skipped, which is not a failure.
var ErrTargetBusy = hints.New("another ingest is running for this target")

// hookRunner is the part of hook.Runner the engine uses.
type hookRunner interface {
	Run(ctx context.Context, stage hook.Stage, p *hook.Plan, env hook.Env) error
}

// Runner executes ingest plans.
type Runner struct {
	fs          afero.Fs
	locker      *lockfile.Locker
	hooks       hookRunner
	preflight   func(plan preflight.Plan, sources []string, targets ...string) error
	newExecutor func(p *planner.IngestPlan) fsexec.Executor
	progress    *atomic.Uint64
}

// Option configures a Runner.
type Option func(*Runner)

// WithFs sets the filesystem used for lock files and reports.
func WithFs(fsys afero.Fs) Option {
	return func(r *Runner) { r.fs = fsys }
}

// WithLocker replaces the target locker.
func WithLocker(lk *lockfile.Locker) Option {
	return func(r *Runner) { r.locker = lk }
}

// WithHookRunner replaces the hook runner.
func WithHookRunner(h hookRunner) Option {
	return func(r *Runner) { r.hooks = h }
}

// WithExecutorFactory replaces how the filesystem executor is created from the plan.
func WithExecutorFactory(f func(p *planner.IngestPlan) fsexec.Executor) Option {
	return func(r *Runner) { r.newExecutor = f }
}

// WithPreflight replaces the path checks run before anything is locked.
func WithPreflight(f func(plan preflight.Plan, sources []string, targets ...string) error) Option {
	return func(r *Runner) { r.preflight = f }
}

// WithProgress shares the walked-entries counter with the caller, e.g. for a
// progress display.
func WithProgress(p *atomic.Uint64) Option {
	return func(r *Runner) { r.progress = p }
}

// NewRunner returns a Runner working on the OS filesystem.
func NewRunner(opts ...Option) *Runner {
	r := &Runner{
		fs:          afero.NewOsFs(),
		hooks:       hook.NewRunner(nil),
		preflight:   preflight.Run,
		newExecutor: (*planner.IngestPlan).NewExecutor,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.progress == nil {
		r.progress = new(atomic.Uint64)
	}
	if r.locker == nil {
		r.locker = lockfile.New(r.fs, buildinfo.AppID)
	}
	return r
}
