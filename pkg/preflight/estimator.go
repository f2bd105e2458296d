package preflight

import (
	"context"
	"math"

	"gitlab.com/tozd/go/errors"
)

// ErrInsufficientSpace is returned when a destination cannot hold the files to ingest.
var ErrInsufficientSpace = errors.Base("insufficient space")

// Space is the volume access the Estimator needs.
type Space interface {
	// FreeSpace creates dir if needed and returns its volume's available bytes.
	FreeSpace(ctx context.Context, dir string) (uint64, error)
	SameDisk(ctx context.Context, a, b string) (bool, error)
}

// Needs is a snapshot of the space situation for one ingest.
type Needs struct {
	// Total is the size of all files that would be copied.
	Total uint64
	// Free is the available space on the target volume.
	Free   uint64
	Backup *BackupNeeds
}

// BackupNeeds describes the backup volume.
type BackupNeeds struct {
	Free     uint64
	SameDisk bool
}

// Fits reports whether the destinations can take Total plus extra bytes. The
// comparison is strict. A backup on the target's volume needs room for both
// copies on that one volume; a backup elsewhere is checked on its own.
func (n Needs) Fits(extra uint64) bool {
	need := addSat(n.Total, extra)
	switch {
	case n.Backup == nil:
		return n.Free > need
	case n.Backup.SameDisk:
		return n.Free > addSat(addSat(n.Total, n.Total), extra)
	default:
		return n.Free > need && n.Backup.Free > need
	}
}

// Check is Fits returning ErrInsufficientSpace with the figures attached.
func (n Needs) Check(extra uint64) error {
	if n.Fits(extra) {
		return nil
	}
	if n.Backup != nil {
		return errors.Errorf("%w: need %d bytes (+%d), target has %d, backup has %d (same disk: %t)",
			ErrInsufficientSpace, n.Total, extra, n.Free, n.Backup.Free, n.Backup.SameDisk)
	}
	return errors.Errorf("%w: need %d bytes (+%d), target has %d", ErrInsufficientSpace, n.Total, extra, n.Free)
}

// Estimator measures the destinations of an ingest. Backup is optional.
type Estimator struct {
	Space  Space
	Target string
	Backup string
}

// FreeSpace returns the available bytes at the target.
func (e Estimator) FreeSpace(ctx context.Context) (uint64, error) {
	return e.Space.FreeSpace(ctx, e.Target)
}

// Needs combines total with the current free space of the destinations.
func (e Estimator) Needs(ctx context.Context, total uint64) (Needs, error) {
	free, err := e.Space.FreeSpace(ctx, e.Target)
	if err != nil {
		return Needs{}, err
	}
	n := Needs{Total: total, Free: free}
	if e.Backup == "" {
		return n, nil
	}
	backupFree, err := e.Space.FreeSpace(ctx, e.Backup)
	if err != nil {
		return Needs{}, err
	}
	same, err := e.Space.SameDisk(ctx, e.Target, e.Backup)
	if err != nil {
		return Needs{}, err
	}
	n.Backup = &BackupNeeds{Free: backupFree, SameDisk: same}
	return n, nil
}

func addSat(a, b uint64) uint64 {
	if a > math.MaxUint64-b {
		return math.MaxUint64
	}
	return a + b
}
