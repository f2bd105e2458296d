package cmd

import (
	"sync/atomic"
	"time"

	"github.com/spf13/cobra"

	"github.com/paulschiretz/pgl-ingest/pkg/buildinfo"
	"github.com/paulschiretz/pgl-ingest/pkg/engine"
	"github.com/paulschiretz/pgl-ingest/pkg/planner"
	"github.com/paulschiretz/pgl-ingest/pkg/plog"
)

func newIngestCommand(opts *rootOptions) *cobra.Command {
	c := &cobra.Command{
		Use:   "ingest",
		Short: "Copy matching files into the target, then into the backup if one is set",
		Long: `Copy matching files from every source into the target. When a backup
directory is configured, the same files are ingested into it afterwards with
the same names.

Examples:
  # Rename into the library with a "trip" stem
  pgl-ingest ingest --source /media/card --target ~/Photos/2024 --rename-name trip

  # Keep the card's folder layout and mirror to a second disk
  pgl-ingest ingest --source /media/card --target ~/Photos --backup /mnt/mirror --structure retain`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runIngest(cmd, opts, false)
		},
	}
	registerRunFlags(c)
	return c
}

func newBackupCommand(opts *rootOptions) *cobra.Command {
	c := &cobra.Command{
		Use:   "backup",
		Short: "Run only the backup pass, ingesting the sources into the backup directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runIngest(cmd, opts, true)
		},
	}
	registerRunFlags(c)
	return c
}

func registerRunFlags(c *cobra.Command) {
	registerConfigFlags(c)
	c.Flags().Bool("progress", false, "Show a live progress spinner instead of INFO logs.")
}

// runIngest handles the logic for the ingest and backup commands.
func runIngest(cmd *cobra.Command, opts *rootOptions, backupOnly bool) error {
	runConfig, err := loadConfig(cmd, opts)
	if err != nil {
		return err
	}
	runConfig.Runtime.BackupOnly = backupOnly

	// CRITICAL: Validate the config for the run
	if err := runConfig.Validate(true); err != nil {
		return err
	}
	runConfig.LogSummary()

	plan, err := planner.GenerateIngestPlan(runConfig)
	if err != nil {
		return err
	}

	var progress atomic.Uint64
	runner := engine.NewRunner(engine.WithProgress(&progress))

	showProgress, _ := cmd.Flags().GetBool("progress")
	stopProgress := func() {}
	if showProgress && !plan.DryRun {
		stopProgress = startProgress(cmd.OutOrStdout(), &progress)
	}

	startTime := time.Now()
	err = runner.ExecuteIngest(cmd.Context(), plan)
	stopProgress()
	if err != nil {
		return err
	}
	plog.Info(buildinfo.Name+" finished successfully.", "duration", time.Since(startTime).Round(time.Millisecond))
	return nil
}
