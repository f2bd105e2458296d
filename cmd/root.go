// Package cmd implements the pgl-ingest command line.
package cmd

import (
	"github.com/spf13/cobra"
	"gitlab.com/tozd/go/errors"

	"github.com/paulschiretz/pgl-ingest/pkg/buildinfo"
	"github.com/paulschiretz/pgl-ingest/pkg/config"
	"github.com/paulschiretz/pgl-ingest/pkg/plog"
)

type rootOptions struct {
	configPath string
}

// NewRootCommand builds the command tree. Flags are bound per instance so
// tests can execute fresh trees.
func NewRootCommand() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:   buildinfo.AppID,
		Short: buildinfo.Name + " - copy photos and videos off memory cards",
		Long: buildinfo.Name + ` copies media from one or more sources into a target
directory, optionally renaming files with a sequence number, pairing RAW files
with their JPEGs and XMP sidecars, and mirroring everything to a backup directory.

Settings come from $XDG_CONFIG_HOME/pgl-ingest/config.yaml (or --config),
PGL_INGEST_* environment variables and flags, in increasing priority.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "config file (default: $XDG_CONFIG_HOME/pgl-ingest/config.yaml)")
	root.PersistentFlags().String("log-level", "", "Set the logging level: 'debug', 'notice', 'info', 'warn', 'error'.")
	root.CompletionOptions.DisableDefaultCmd = true

	root.AddCommand(
		newIngestCommand(opts),
		newBackupCommand(opts),
		newPlanCommand(opts),
		newInitCommand(opts),
		newVersionCommand(),
	)
	return root
}

// loadConfig loads the configuration file and overlays the flags the user set.
func loadConfig(cmd *cobra.Command, opts *rootOptions) (config.Config, error) {
	base, err := config.Load(opts.configPath)
	if err != nil {
		return config.Config{}, errors.Errorf("failed to load configuration: %w", err)
	}
	cfg, err := config.MergeConfigWithFlags(base, cmd.Flags())
	if err != nil {
		return config.Config{}, err
	}
	plog.SetLevel(plog.LevelFromString(cfg.LogLevel))
	return cfg, nil
}

func registerConfigFlags(c *cobra.Command) {
	config.RegisterFlags(c.Flags())
}
