package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/paulschiretz/pgl-ingest/cmd"
	"github.com/paulschiretz/pgl-ingest/pkg/buildinfo"
	"github.com/paulschiretz/pgl-ingest/pkg/hints"
	"github.com/paulschiretz/pgl-ingest/pkg/plog"
)

func main() {
	// Cancel the run on Ctrl+C or SIGTERM; the ingest stops between files.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cmd.NewRootCommand().ExecuteContext(ctx); err != nil {
		if hints.IsHint(err) {
			plog.Info(buildinfo.Name+" skipped run", "reason", err)
			return
		}
		plog.Error(buildinfo.Name+" exited with error", "error", err)
		stop()
		os.Exit(1)
	}
}
