package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gitlab.com/tozd/go/errors"

	"github.com/paulschiretz/pgl-ingest/pkg/buildinfo"
	"github.com/paulschiretz/pgl-ingest/pkg/config"
	"github.com/paulschiretz/pgl-ingest/pkg/plog"
)

func newInitCommand(opts *rootOptions) *cobra.Command {
	var force bool
	c := &cobra.Command{
		Use:   "init",
		Short: "Write a configuration file with default values",
		Long: `Write the default configuration, overlaid with any flags given, to
$XDG_CONFIG_HOME/pgl-ingest/config.yaml or the path given with --config.

Examples:
  # Initialize with default location
  pgl-ingest init

  # Remember the library location
  pgl-ingest init --target ~/Photos --backup /mnt/mirror

  # Force overwrite existing config
  pgl-ingest init --force`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runInit(cmd, opts, force)
		},
	}
	c.Flags().BoolVar(&force, "force", false, "Overwrite an existing config file without asking.")
	registerConfigFlags(c)
	return c
}

// runInit handles the logic for the 'init' command.
func runInit(cmd *cobra.Command, opts *rootOptions, force bool) error {
	path := opts.configPath
	if path == "" {
		path = config.DefaultPath()
	}

	if !force {
		if _, err := os.Stat(path); err == nil {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "WARNING: Configuration file already exists at %s.\n", path)
			fmt.Fprintf(out, "Continuing will overwrite it with default values. All custom settings will be lost.\n")
			if !PromptForConfirmation(cmd.InOrStdin(), out, "Are you sure you want to continue?", false) {
				plog.Info(buildinfo.Name + " init operation canceled.")
				return nil
			}
		}
	}

	initConfig, err := config.MergeConfigWithFlags(config.NewDefault(), cmd.Flags())
	if err != nil {
		return err
	}
	if err := initConfig.Validate(false); err != nil {
		return err
	}
	if err := config.Save(initConfig, path); err != nil {
		return errors.Errorf("failed to initialize config: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Configuration file created at: %s\n", path)
	return nil
}

// PromptForConfirmation asks a yes/no question on out and reads the answer from in.
func PromptForConfirmation(in io.Reader, out io.Writer, prompt string, defaultYes bool) bool {
	suffix := "[y/N]"
	if defaultYes {
		suffix = "[Y/n]"
	}
	fmt.Fprintf(out, "%s %s: ", prompt, suffix)

	var response string
	_, _ = fmt.Fscanln(in, &response)
	response = strings.ToLower(strings.TrimSpace(response))

	if response == "" {
		return defaultYes
	}
	return response == "y" || response == "yes"
}
