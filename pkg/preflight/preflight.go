// Package preflight holds the checks that run before any file is copied: path
// accessibility, volume availability and free space. Apart from creating a
// missing target directory they do not change the system.
package preflight

import (
	"os"
	"path/filepath"
	"strings"

	"gitlab.com/tozd/go/errors"

	"github.com/paulschiretz/pgl-ingest/pkg/util"
)

// CheckSourceAccessible validates that a source root exists and is a directory.
func CheckSourceAccessible(srcPath string) error {
	info, err := os.Stat(srcPath)
	if err != nil {
		if os.IsNotExist(err) {
			return errors.Errorf("source directory %s does not exist", srcPath)
		}
		return errors.Errorf("cannot stat source directory %s: %w", srcPath, err)
	}
	if !info.IsDir() {
		return errors.Errorf("source path %s is not a directory", srcPath)
	}
	return nil
}

// CheckTargetAccessible verifies that a target can be used before anything is
// created. An existing target must be a directory. A missing target needs an
// accessible parent, and the deepest existing ancestor must sit on a mounted
// volume so nothing is written into an empty mount directory.
func CheckTargetAccessible(targetPath string) error {
	info, err := os.Stat(targetPath)
	if err == nil {
		if !info.IsDir() {
			return errors.Errorf("target path exists but is not a directory: %s", targetPath)
		}
		return validateVolume(targetPath)
	}
	if !os.IsNotExist(err) {
		return errors.Errorf("cannot access target path: %w", err)
	}

	ancestor := targetPath
	for {
		parent := filepath.Dir(ancestor)
		if parent == ancestor {
			break
		}
		ancestor = parent
		if _, err := os.Stat(ancestor); err == nil {
			break
		}
	}
	if err := validateVolume(ancestor); err != nil {
		return err
	}

	parentDir := filepath.Dir(targetPath)
	if _, err := os.Stat(parentDir); os.IsNotExist(err) {
		return errors.Errorf("target path and its parent directory do not exist: %s", parentDir)
	} else if err != nil {
		return errors.Errorf("cannot access parent directory %s: %w", parentDir, err)
	}
	return nil
}

// CheckTargetWritable creates the target directory if needed and proves it is
// writable by creating and removing a probe file.
func CheckTargetWritable(targetPath string) error {
	if err := os.MkdirAll(targetPath, util.UserWritableDirPerms); err != nil {
		return errors.Errorf("failed to create target directory %s: %w", targetPath, err)
	}
	probe := filepath.Join(targetPath, ".pgl-ingest-writetest.tmp")
	f, err := os.Create(probe)
	if err != nil {
		return errors.Errorf("target directory %s is not writable: %w", targetPath, err)
	}
	f.Close()
	_ = os.Remove(probe)
	return nil
}

// CheckPathNesting rejects a target that lies inside a source, which would make
// a later walk pick up freshly ingested files.
func CheckPathNesting(sourcePath, targetPath string) error {
	src, err := filepath.Abs(sourcePath)
	if err != nil {
		return errors.Errorf("cannot resolve source %s: %w", sourcePath, err)
	}
	trg, err := filepath.Abs(targetPath)
	if err != nil {
		return errors.Errorf("cannot resolve target %s: %w", targetPath, err)
	}
	if util.IsHostCaseInsensitiveFS() {
		src, trg = strings.ToLower(src), strings.ToLower(trg)
	}
	if trg == src || strings.HasPrefix(trg, src+string(filepath.Separator)) {
		return errors.Errorf("target %s is inside source %s", targetPath, sourcePath)
	}
	return nil
}
