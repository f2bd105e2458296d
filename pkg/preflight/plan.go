package preflight

import (
	"gitlab.com/tozd/go/errors"

	"github.com/paulschiretz/pgl-ingest/pkg/plog"
)

// Plan selects which path checks Run performs.
type Plan struct {
	SourceAccessible bool
	TargetAccessible bool
	TargetWriteable  bool
	PathNesting      bool

	DryRun   bool
	FailFast bool
}

// Run executes the selected checks for all sources and destinations. With
// FailFast the first failure is returned; otherwise all failures are joined.
// Dry runs skip the write probe.
func Run(plan Plan, sources []string, targets ...string) error {
	var errs []error
	fail := func(err error) bool {
		if err == nil {
			return false
		}
		errs = append(errs, err)
		return plan.FailFast
	}

	for _, src := range sources {
		if plan.SourceAccessible && fail(CheckSourceAccessible(src)) {
			return errs[0]
		}
		if plan.PathNesting {
			for _, trg := range targets {
				if fail(CheckPathNesting(src, trg)) {
					return errs[0]
				}
			}
		}
	}
	for _, trg := range targets {
		if plan.TargetAccessible && fail(CheckTargetAccessible(trg)) {
			return errs[0]
		}
		if plan.TargetWriteable {
			if plan.DryRun {
				plog.Debug("Dry run, skipping write probe", "target", trg)
				continue
			}
			if fail(CheckTargetWritable(trg)) {
				return errs[0]
			}
		}
	}
	return errors.Join(errs...)
}
