// Package report writes and reads the per-run ingest report, a JSON document
// listing every file outcome of both passes next to the ingested files.
package report

import (
	"bufio"
	"encoding/json"
	"io"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/klauspost/compress/zstd"
	"github.com/klauspost/pgzip"
	"github.com/spf13/afero"
	"gitlab.com/tozd/go/errors"

	"github.com/paulschiretz/pgl-ingest/pkg/util"
)

// FilePrefix starts the name of every report file.
const FilePrefix = ".pgl-ingest.report-"

// Outcome of a run as recorded in its report.
const (
	OutcomeSuccess   = "success"
	OutcomeCancelled = "cancelled"
	OutcomeFailed    = "failed"
)

// Content is the serialized report.
type Content struct {
	Version     string    `json:"version"`
	RunID       string    `json:"runID"`
	StartedUTC  time.Time `json:"startedUTC"`
	FinishedUTC time.Time `json:"finishedUTC"`
	Structure   string    `json:"structure"`
	Sources     []string  `json:"sources"`
	Target      string    `json:"target"`
	Backup      string    `json:"backup,omitempty"`
	Outcome     string    `json:"outcome"`
	Error       string    `json:"error,omitempty"`
	Totals      Totals    `json:"totals"`
	Entries     []Entry   `json:"entries"`
}

// Totals summarizes Entries.
type Totals struct {
	Copied   int   `json:"copied"`
	Paired   int   `json:"paired"`
	Sidecars int   `json:"sidecars"`
	Failed   int   `json:"failed"`
	Bytes    int64 `json:"bytes"`
}

// Entry is one file outcome.
type Entry struct {
	Pass        string `json:"pass"`
	Kind        string `json:"kind"`
	Source      string `json:"source"`
	Destination string `json:"destination,omitempty"`
	Bytes       int64  `json:"bytes,omitempty"`
	Error       string `json:"error,omitempty"`
}

// FileName returns the report file name for a run started at ts.
func FileName(ts time.Time, format Format) string {
	return FilePrefix + ts.UTC().Format("20060102T150405Z") + format.Ext()
}

// Write encodes content into dir and returns the path written. The file is
// written under a temporary name first so a crash never leaves a truncated report.
func Write(fsys afero.Fs, dir string, content *Content, format Format) (path string, retErr error) {
	path = filepath.Join(dir, FileName(content.StartedUTC, format))

	tmp, err := afero.TempFile(fsys, dir, "pgl-ingest-report-*.tmp")
	if err != nil {
		return "", errors.Errorf("could not create report in %s: %w", dir, err)
	}
	tmpPath := tmp.Name()
	defer func() {
		if retErr != nil {
			tmp.Close()
			fsys.Remove(tmpPath)
		}
	}()

	bufWriter := bufio.NewWriter(tmp)
	var w io.Writer = bufWriter
	var closer io.Closer
	switch format {
	case JSONGz:
		gz := pgzip.NewWriter(bufWriter)
		w, closer = gz, gz
	case JSONZst:
		zw, err := zstd.NewWriter(bufWriter, zstd.WithEncoderLevel(zstd.SpeedDefault))
		if err != nil {
			return "", errors.Errorf("could not create zstd encoder: %w", err)
		}
		w, closer = zw, zw
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(content); err != nil {
		return "", errors.Errorf("could not encode report: %w", err)
	}
	if closer != nil {
		if err := closer.Close(); err != nil {
			return "", errors.Errorf("could not finish compressed report: %w", err)
		}
	}
	if err := bufWriter.Flush(); err != nil {
		return "", errors.Errorf("could not write report: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", errors.Errorf("could not write report: %w", err)
	}
	if err := fsys.Chmod(tmpPath, util.UserWritableFilePerms); err != nil {
		return "", errors.Errorf("could not set report permissions: %w", err)
	}
	if err := fsys.Rename(tmpPath, path); err != nil {
		return "", errors.Errorf("could not move report into place: %w", err)
	}
	return path, nil
}

// Read decodes the report at path, choosing the decoder by file suffix.
func Read(fsys afero.Fs, path string) (Content, error) {
	f, err := fsys.Open(path)
	if err != nil {
		// Returned unwrapped so callers can test for fs.ErrNotExist.
		return Content{}, err
	}
	defer f.Close()

	var r io.Reader = bufio.NewReader(f)
	switch {
	case strings.HasSuffix(path, JSONGz.Ext()):
		gz, err := pgzip.NewReader(r)
		if err != nil {
			return Content{}, errors.Errorf("could not open compressed report %s: %w", path, err)
		}
		defer gz.Close()
		r = gz
	case strings.HasSuffix(path, JSONZst.Ext()):
		zr, err := zstd.NewReader(r)
		if err != nil {
			return Content{}, errors.Errorf("could not open compressed report %s: %w", path, err)
		}
		defer zr.Close()
		r = zr
	}

	var content Content
	if err := json.NewDecoder(r).Decode(&content); err != nil {
		return Content{}, errors.Errorf("could not parse report %s: %w. It may be corrupt", path, err)
	}
	return content, nil
}

// List returns the report files in dir, oldest first.
func List(fsys afero.Fs, dir string) ([]string, error) {
	infos, err := afero.ReadDir(fsys, dir)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, info := range infos {
		if !info.IsDir() && strings.HasPrefix(info.Name(), FilePrefix) {
			out = append(out, filepath.Join(dir, info.Name()))
		}
	}
	// Timestamps in the name sort lexically.
	slices.Sort(out)
	return out, nil
}
