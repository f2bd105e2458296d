package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"gitlab.com/tozd/go/errors"

	"github.com/paulschiretz/pgl-ingest/pkg/engine"
	"github.com/paulschiretz/pgl-ingest/pkg/planner"
)

func newPlanCommand(opts *rootOptions) *cobra.Command {
	c := &cobra.Command{
		Use:   "plan",
		Short: "Show how many files would be ingested and whether they fit, without copying",
		Long: `Walk the sources with the configured filter and compare the total size with
the free space of the destinations. Nothing is copied, but missing destination
directories are created to measure their volumes.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runPlan(cmd, opts)
		},
	}
	registerConfigFlags(c)
	return c
}

func runPlan(cmd *cobra.Command, opts *rootOptions) error {
	runConfig, err := loadConfig(cmd, opts)
	if err != nil {
		return err
	}
	if err := runConfig.Validate(true); err != nil {
		return err
	}
	plan, err := planner.GenerateIngestPlan(runConfig)
	if err != nil {
		return err
	}

	est, err := engine.NewRunner().Estimate(cmd.Context(), plan)
	if err != nil {
		return errors.Errorf("failed to estimate ingest: %w", err)
	}
	return renderPlan(cmd.OutOrStdout(), plan, est)
}

func renderPlan(out io.Writer, plan *planner.IngestPlan, est engine.Estimate) error {
	data := pterm.TableData{
		{"Item", "Value"},
		{"Sources", strings.Join(plan.Sources, ", ")},
		{"Structure", plan.Structure.String()},
		{"Target", plan.Target},
		{"Files", fmt.Sprintf("%d", est.Files)},
		{"Total size", humanize.IBytes(est.Needs.Total)},
		{"Target free", humanize.IBytes(est.Needs.Free)},
	}
	if b := est.Needs.Backup; b != nil {
		data = append(data,
			[]string{"Backup", plan.Backup},
			[]string{"Backup free", humanize.IBytes(b.Free)},
			[]string{"Same disk", yesNo(b.SameDisk)},
		)
	}
	data = append(data, []string{"Fits", yesNo(est.Fits)})

	table, err := pterm.DefaultTable.WithHasHeader().WithData(data).Srender()
	if err != nil {
		return errors.Errorf("failed to render plan: %w", err)
	}
	if _, err := fmt.Fprintln(out, table); err != nil {
		return errors.WithStack(err)
	}
	if !est.Fits {
		pterm.Warning.WithWriter(out).Println("Not enough free space, an ingest would fail its preflight.")
	}
	return nil
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
