//go:build windows

package preflight

import (
	"os"
	"path/filepath"
	"strings"

	"gitlab.com/tozd/go/errors"
)

// validateVolume verifies that the drive or network share root of path exists,
// e.g. "Z:\" for "Z:\photos".
func validateVolume(path string) error {
	volume := filepath.VolumeName(path)
	if volume == "" {
		return nil
	}
	checkVol := volume
	if !strings.HasSuffix(checkVol, string(filepath.Separator)) {
		checkVol += string(filepath.Separator)
	}
	checkVol = filepath.Clean(checkVol)

	if _, err := os.Stat(checkVol); os.IsNotExist(err) {
		return errors.Errorf("volume root does not exist: %s. Ensure the drive is connected", checkVol)
	}
	return nil
}
