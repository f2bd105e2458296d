package planner

import (
	"fmt"

	"gitlab.com/tozd/go/errors"

	"github.com/paulschiretz/pgl-ingest/pkg/util"
)

// Executor selects the filesystem executor implementation.
type Executor int

const (
	// Sync performs filesystem calls on the calling goroutine.
	Sync Executor = iota
	// Cooperative funnels filesystem calls through one I/O loop goroutine.
	Cooperative
)

var executorToString = map[Executor]string{
	Sync:        "sync",
	Cooperative: "cooperative",
}

var stringToExecutor map[string]Executor

func init() {
	stringToExecutor = util.InvertMap(executorToString)
}

func (e Executor) String() string {
	if str, ok := executorToString[e]; ok {
		return str
	}
	return fmt.Sprintf("unknown_executor(%d)", e)
}

// ParseExecutor parses an executor name.
func ParseExecutor(s string) (Executor, error) {
	if e, ok := stringToExecutor[s]; ok {
		return e, nil
	}
	return 0, errors.Errorf("invalid executor: %q. Must be 'sync' or 'cooperative'", s)
}
