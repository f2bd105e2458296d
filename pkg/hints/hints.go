// Package hints labels errors that signal a skipped step rather than a failure,
// such as a disabled hook or a source with nothing to ingest. Consumers check
// for the label instead of importing the producer's sentinel errors.
package hints

import "gitlab.com/tozd/go/errors"

type hintErr struct {
	err error
}

func (h *hintErr) Error() string {
	if h == nil || h.err == nil {
		return "unknown hint"
	}
	return h.err.Error()
}
func (h *hintErr) IsHint() bool  { return true }
func (h *hintErr) Unwrap() error { return h.err }

// New creates a hint from a string.
func New(msg string) error {
	return &hintErr{err: errors.Base(msg)}
}

// Wrap promotes an existing error to a hint.
func Wrap(err error) error {
	if err == nil {
		return nil
	}
	return &hintErr{err: err}
}

// IsHint checks if any error in the chain behaves like a hint.
func IsHint(err error) bool {
	var h interface{ IsHint() bool }
	return errors.As(err, &h) && h.IsHint()
}

// Is checks if the error is a hint and matches the target error.
func Is(err, target error) bool {
	return IsHint(err) && errors.Is(err, target)
}
