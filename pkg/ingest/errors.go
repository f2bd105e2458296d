package ingest

import (
	"context"

	"gitlab.com/tozd/go/errors"

	"github.com/paulschiretz/pgl-ingest/pkg/preflight"
)

var (
	// ErrInsufficientSpace is returned when a destination cannot hold the files to ingest.
	ErrInsufficientSpace = preflight.ErrInsufficientSpace
	// ErrCancelled is returned once cancellation has been observed.
	ErrCancelled = errors.Base("ingest cancelled")
	// ErrPathPrefix is returned when a file is not below the source root it was found in.
	ErrPathPrefix = errors.Base("path is not under its source root")
	// ErrMissingField is returned by Build when a required option is unset.
	ErrMissingField = errors.Base("missing required field")
	// ErrBackupUnset is returned when the backup destination is queried but not configured.
	ErrBackupUnset = errors.Base("backup directory not set")
)

// cancelledError matches both ErrCancelled and the context's cause.
type cancelledError struct {
	cause error
}

func (e *cancelledError) Error() string        { return ErrCancelled.Error() + ": " + e.cause.Error() }
func (e *cancelledError) Unwrap() error        { return e.cause }
func (e *cancelledError) Is(target error) bool { return target == ErrCancelled }

// checkCancelled returns a cancellation error once ctx is done.
func checkCancelled(ctx context.Context) error {
	if ctx.Err() == nil {
		return nil
	}
	return errors.WithStack(&cancelledError{cause: context.Cause(ctx)})
}

// isCancellation reports an error that must abort the run instead of being
// swallowed as a per-file failure.
func isCancellation(err error) bool {
	return errors.Is(err, ErrCancelled) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}

// asCancelled normalizes a context error from a collaborator to ErrCancelled.
func asCancelled(ctx context.Context, err error) error {
	if errors.Is(err, ErrCancelled) {
		return err
	}
	if cerr := checkCancelled(ctx); cerr != nil {
		return cerr
	}
	return errors.WithStack(&cancelledError{cause: err})
}
