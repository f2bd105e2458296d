package hints_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"gitlab.com/tozd/go/errors"

	"github.com/paulschiretz/pgl-ingest/pkg/hints"
)

func TestHint(t *testing.T) {
	errBase := errors.Base("nothing to ingest")
	errOther := errors.Base("other")

	t.Run("Wrap nil stays nil", func(t *testing.T) {
		assert.NoError(t, hints.Wrap(nil))
	})

	t.Run("Wrapped error is a hint and keeps its identity", func(t *testing.T) {
		err := hints.Wrap(errBase)
		assert.True(t, hints.IsHint(err))
		assert.True(t, hints.Is(err, errBase))
		assert.False(t, hints.Is(err, errOther))
		assert.Equal(t, "nothing to ingest", err.Error())
	})

	t.Run("Hint survives further wrapping", func(t *testing.T) {
		err := errors.Errorf("hook: %w", hints.Wrap(errBase))
		assert.True(t, hints.IsHint(err))
		assert.True(t, hints.Is(err, errBase))
	})

	t.Run("Plain errors are not hints", func(t *testing.T) {
		assert.False(t, hints.IsHint(errBase))
		assert.False(t, hints.Is(errBase, errBase))
	})

	t.Run("New creates a hint", func(t *testing.T) {
		assert.True(t, hints.IsHint(hints.New("skipped")))
	})
}
