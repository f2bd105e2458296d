package fsexec

import (
	"path/filepath"
	"strings"

	"gitlab.com/tozd/go/errors"
)

// ErrVolumeUnsupported is returned by OSVolumes on platforms without a volume query.
var ErrVolumeUnsupported = errors.Base("volume queries are not supported on this platform")

// Volumes answers questions about the physical volume behind a path.
type Volumes interface {
	// FreeSpace returns the bytes available to the current user.
	FreeSpace(path string) (uint64, error)
	// SameDisk reports whether a and b live on the same volume.
	SameDisk(a, b string) (bool, error)
}

// OSVolumes queries the host operating system.
type OSVolumes struct{}

var _ Volumes = OSVolumes{}

func (OSVolumes) FreeSpace(path string) (uint64, error) { return freeSpace(path) }

func (OSVolumes) SameDisk(a, b string) (bool, error) { return sameDisk(a, b) }

// StaticVolumes reports fixed answers. Free maps a volume root to its free
// bytes and is matched by the longest root that contains the queried path.
// Paths under no root report Default.
type StaticVolumes struct {
	Free    map[string]uint64
	Default uint64
	Shared  bool
}

var _ Volumes = StaticVolumes{}

func (v StaticVolumes) FreeSpace(path string) (uint64, error) {
	best, free := -1, v.Default
	clean := filepath.Clean(path)
	for root, bytes := range v.Free {
		root = filepath.Clean(root)
		if clean != root && !strings.HasPrefix(clean, root+string(filepath.Separator)) {
			continue
		}
		if len(root) > best {
			best, free = len(root), bytes
		}
	}
	return free, nil
}

func (v StaticVolumes) SameDisk(_, _ string) (bool, error) { return v.Shared, nil }
