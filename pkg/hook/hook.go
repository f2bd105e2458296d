// Package hook runs user shell commands before and after an ingest.
package hook

import (
	"context"
	"io"
	"os"
	"os/exec"

	"gitlab.com/tozd/go/errors"

	"github.com/paulschiretz/pgl-ingest/pkg/hints"
	"github.com/paulschiretz/pgl-ingest/pkg/plog"
)

var (
	ErrNothingToExecute = hints.New("nothing to execute")
	ErrDisabled         = hints.New("hook execution is disabled")
)

// Stage names when a hook runs.
type Stage string

const (
	PreIngest  Stage = "pre-ingest"
	PostIngest Stage = "post-ingest"
)

// Env is exported to hook commands as PGL_INGEST_* variables.
type Env struct {
	RunID   string
	Target  string
	Backup  string
	Outcome string
}

func (e Env) vars(stage Stage) []string {
	vars := []string{
		"PGL_INGEST_STAGE=" + string(stage),
		"PGL_INGEST_RUN_ID=" + e.RunID,
		"PGL_INGEST_TARGET=" + e.Target,
		"PGL_INGEST_BACKUP=" + e.Backup,
	}
	if e.Outcome != "" {
		vars = append(vars, "PGL_INGEST_OUTCOME="+e.Outcome)
	}
	return vars
}

type Runner struct {
	// commandContext allows mocking os/exec in tests.
	commandContext func(ctx context.Context, name string, arg ...string) *exec.Cmd
	stdout, stderr io.Writer
}

// NewRunner returns a Runner whose commands write to the process' stdout and stderr.
// A nil commandContext uses exec.CommandContext.
func NewRunner(commandContext func(ctx context.Context, name string, arg ...string) *exec.Cmd) *Runner {
	if commandContext == nil {
		commandContext = exec.CommandContext
	}
	return &Runner{commandContext: commandContext, stdout: os.Stdout, stderr: os.Stderr}
}

// WithOutput redirects command output.
func (r *Runner) WithOutput(stdout, stderr io.Writer) *Runner {
	r.stdout, r.stderr = stdout, stderr
	return r
}

// Run executes the commands of stage in order. A failing command stops the
// stage only when the plan is fail-fast; otherwise it is logged.
func (r *Runner) Run(ctx context.Context, stage Stage, p *Plan, env Env) error {
	if !p.Enabled {
		return ErrDisabled
	}
	commands := p.Commands(stage)
	if len(commands) == 0 {
		return ErrNothingToExecute
	}

	plog.Info("Running hook commands", "stage", stage, "count", len(commands))
	for _, command := range commands {
		if err := ctx.Err(); err != nil {
			return errors.WithStack(err)
		}
		if p.DryRun {
			plog.Info("[DRY RUN] Executing command", "stage", stage, "command", command)
			continue
		}
		plog.Info("Executing command", "stage", stage, "command", command)

		cmd := r.createCommand(ctx, command)
		cmd.Env = append(cmd.Environ(), env.vars(stage)...)
		cmd.Stdout = r.stdout
		cmd.Stderr = r.stderr

		if err := cmd.Run(); err != nil {
			if ctx.Err() != nil {
				return errors.WithStack(ctx.Err())
			}
			if p.FailFast {
				return errors.Errorf("%s command '%s' failed: %w", stage, command, err)
			}
			plog.Warn("Hook command failed", "stage", stage, "command", command, "error", err)
		}
	}
	return nil
}
