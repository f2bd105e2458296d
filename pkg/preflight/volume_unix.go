//go:build !windows

package preflight

import (
	"path/filepath"
	"strings"

	"gitlab.com/tozd/go/errors"
	"golang.org/x/sys/unix"
)

// removableRoots are the directories under which external volumes get mounted.
var removableRoots = []string{"/media", "/mnt", "/run/media", "/Volumes"}

// validateVolume flags a path below a removable-media root that still resolves
// to the root filesystem, meaning the expected drive is not mounted.
func validateVolume(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return errors.Errorf("cannot resolve %s: %w", path, err)
	}
	under := false
	for _, root := range removableRoots {
		if abs != root && strings.HasPrefix(abs, root+"/") {
			under = true
			break
		}
	}
	if !under {
		return nil
	}

	var rootStat, pathStat unix.Stat_t
	if err := unix.Stat("/", &rootStat); err != nil {
		return errors.Errorf("failed to stat root: %w", err)
	}
	if err := unix.Stat(abs, &pathStat); err != nil {
		return errors.Errorf("failed to stat %s: %w", abs, err)
	}
	if pathStat.Dev == rootStat.Dev {
		return errors.Errorf("path '%s' is on the root filesystem (system disk). "+
			"Ensure your external drive is mounted", path)
	}
	return nil
}
