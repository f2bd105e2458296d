package cmd

import (
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pterm/pterm"

	"github.com/paulschiretz/pgl-ingest/pkg/plog"
)

const progressRefresh = 250 * time.Millisecond

// startProgress renders a spinner with the walked-entries count and silences
// INFO logs while it owns the terminal. The returned function stops it.
func startProgress(out io.Writer, counter *atomic.Uint64) func() {
	spinner, err := pterm.DefaultSpinner.WithWriter(out).Start("Ingesting")
	if err != nil {
		plog.Debug("Could not start progress spinner", "error", err)
		return func() {}
	}
	plog.SetQuiet(true)

	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(progressRefresh)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				spinner.UpdateText(fmt.Sprintf("Ingesting, %d entries processed", counter.Load()))
			case <-done:
				return
			}
		}
	}()

	return func() {
		close(done)
		wg.Wait()
		plog.SetQuiet(false)
		spinner.Success(fmt.Sprintf("%d entries processed", counter.Load()))
	}
}
