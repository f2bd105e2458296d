package config

import (
	"github.com/dustin/go-humanize"
	"github.com/spf13/pflag"
	"gitlab.com/tozd/go/errors"

	"github.com/paulschiretz/pgl-ingest/pkg/plog"
)

// RegisterFlags adds the flags that can override configuration values.
// Defaults shown here are never merged; only flags the user set are.
func RegisterFlags(fs *pflag.FlagSet) {
	d := NewDefault()
	fs.StringSlice("source", nil, "Source directory to ingest from. Repeat or comma-separate for several.")
	fs.String("target", "", "Destination directory.")
	fs.String("backup", "", "Backup destination directory. Ingested a second time after the target.")
	fs.Int("depth", 0, "Maximum directory depth below each source (0 = unlimited).")

	fs.String("structure", d.Structure.Mode, "Layout in the destination: 'retain', 'rename' or 'preserve'.")
	fs.String("rename-name", "", "Replace file stems with this name when renaming.")
	fs.String("rename-position", d.Structure.Rename.Position, "Position of the sequence number: 'prefix' or 'suffix'.")
	fs.Int64("rename-sequence", 0, "First sequence number.")
	fs.Uint8("rename-zeroes", d.Structure.Rename.Zeroes, "Zero-pad sequence numbers to this width.")

	fs.String("preset", d.Filter.Preset, "Extension preset when no extensions are given: 'images' or 'all'.")
	fs.StringSlice("extensions", nil, "Extensions to ingest, overriding the preset.")
	fs.String("min-size", "", "Minimum file size, e.g. '10KiB'.")
	fs.String("max-size", "", "Maximum file size, e.g. '4GiB' (0 = unlimited).")
	fs.Bool("ignore-hidden", d.Filter.IgnoreHidden, "Skip hidden files and directories.")
	fs.StringSlice("exclude-files", nil, "Case-insensitive glob patterns of files to skip.")
	fs.StringSlice("exclude-dirs", nil, "Case-insensitive glob patterns of directories to skip.")

	fs.Bool("copy-xmp", d.Sidecars.CopyXMP, "Copy XMP sidecars along with their files.")
	fs.Bool("copy-jpg", d.Sidecars.CopyJPG, "Copy companion JPEGs along with RAW files when renaming.")

	fs.String("executor", d.Engine.Executor, "Filesystem executor: 'sync' or 'cooperative'.")
	fs.Int("buffer-size-kb", d.Engine.BufferSizeKB, "Size of the copy buffer in kilobytes.")
	fs.Bool("metrics", d.Engine.Metrics, "Collect and log file-counting metrics.")
	fs.String("metrics-textfile", "", "Write Prometheus metrics to this textfile after the run.")

	fs.Bool("report", d.Report.Enabled, "Write a run report into the target.")
	fs.String("report-format", d.Report.Format, "Report format: 'json', 'json.gz' or 'json.zst'.")

	fs.StringSlice("pre-ingest-hooks", nil, "Commands to run before the ingest.")
	fs.StringSlice("post-ingest-hooks", nil, "Commands to run after the ingest.")
	fs.Bool("fail-fast", false, "Abort when a pre-ingest hook command fails.")
	fs.Bool("dry-run", false, "Plan and check but copy nothing.")
}

// MergeConfigWithFlags overlays the flags the user explicitly set on base.
func MergeConfigWithFlags(base Config, fs *pflag.FlagSet) (Config, error) {
	merged := base
	// Slices are replaced, never appended to the base's backing arrays.
	merged.Sources = append([]string(nil), base.Sources...)

	var firstErr error
	fs.Visit(func(f *pflag.Flag) {
		if firstErr != nil {
			return
		}
		var err error
		switch f.Name {
		case "log-level":
			merged.LogLevel, err = fs.GetString(f.Name)
		case "source":
			merged.Sources, err = fs.GetStringSlice(f.Name)
		case "target":
			merged.Target, err = fs.GetString(f.Name)
		case "backup":
			merged.Backup, err = fs.GetString(f.Name)
		case "depth":
			merged.Depth, err = fs.GetInt(f.Name)
		case "structure":
			merged.Structure.Mode, err = fs.GetString(f.Name)
		case "rename-name":
			merged.Structure.Rename.Name, err = fs.GetString(f.Name)
		case "rename-position":
			merged.Structure.Rename.Position, err = fs.GetString(f.Name)
		case "rename-sequence":
			merged.Structure.Rename.Sequence, err = fs.GetInt64(f.Name)
		case "rename-zeroes":
			merged.Structure.Rename.Zeroes, err = fs.GetUint8(f.Name)
		case "preset":
			merged.Filter.Preset, err = fs.GetString(f.Name)
		case "extensions":
			merged.Filter.Extensions, err = fs.GetStringSlice(f.Name)
		case "min-size":
			merged.Filter.MinSize, err = parseByteSize(f.Value.String())
		case "max-size":
			merged.Filter.MaxSize, err = parseByteSize(f.Value.String())
		case "ignore-hidden":
			merged.Filter.IgnoreHidden, err = fs.GetBool(f.Name)
		case "exclude-files":
			merged.Filter.ExcludeFiles, err = fs.GetStringSlice(f.Name)
		case "exclude-dirs":
			merged.Filter.ExcludeDirs, err = fs.GetStringSlice(f.Name)
		case "copy-xmp":
			merged.Sidecars.CopyXMP, err = fs.GetBool(f.Name)
		case "copy-jpg":
			merged.Sidecars.CopyJPG, err = fs.GetBool(f.Name)
		case "executor":
			merged.Engine.Executor, err = fs.GetString(f.Name)
		case "buffer-size-kb":
			merged.Engine.BufferSizeKB, err = fs.GetInt(f.Name)
		case "metrics":
			merged.Engine.Metrics, err = fs.GetBool(f.Name)
		case "metrics-textfile":
			merged.Engine.MetricsTextfile, err = fs.GetString(f.Name)
		case "report":
			merged.Report.Enabled, err = fs.GetBool(f.Name)
		case "report-format":
			merged.Report.Format, err = fs.GetString(f.Name)
		case "pre-ingest-hooks":
			merged.Hooks.PreIngest, err = fs.GetStringSlice(f.Name)
		case "post-ingest-hooks":
			merged.Hooks.PostIngest, err = fs.GetStringSlice(f.Name)
		case "fail-fast":
			merged.Hooks.FailFast, err = fs.GetBool(f.Name)
		case "dry-run":
			merged.Runtime.DryRun, err = fs.GetBool(f.Name)
		default:
			plog.Debug("unhandled flag in MergeConfigWithFlags", "flag", f.Name)
		}
		if err != nil {
			firstErr = errors.Errorf("invalid value for --%s: %w", f.Name, err)
		}
	})
	if firstErr != nil {
		return Config{}, firstErr
	}
	return merged, nil
}

func parseByteSize(s string) (ByteSize, error) {
	n, err := humanize.ParseBytes(s)
	if err != nil {
		return 0, errors.WithStack(err)
	}
	return ByteSize(n), nil
}
