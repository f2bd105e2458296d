//go:build windows

package fsexec

import (
	"strings"

	"gitlab.com/tozd/go/errors"
	"golang.org/x/sys/windows"
)

func freeSpace(path string) (uint64, error) {
	p, err := windows.UTF16PtrFromString(path)
	if err != nil {
		return 0, errors.WithStack(err)
	}
	var available, total, totalFree uint64
	if err := windows.GetDiskFreeSpaceEx(p, &available, &total, &totalFree); err != nil {
		return 0, errors.WithStack(err)
	}
	return available, nil
}

func volumeRoot(path string) (string, error) {
	p, err := windows.UTF16PtrFromString(path)
	if err != nil {
		return "", errors.WithStack(err)
	}
	buf := make([]uint16, windows.MAX_PATH+1)
	if err := windows.GetVolumePathName(p, &buf[0], uint32(len(buf))); err != nil {
		return "", errors.WithStack(err)
	}
	return windows.UTF16ToString(buf), nil
}

func sameDisk(a, b string) (bool, error) {
	ra, err := volumeRoot(a)
	if err != nil {
		return false, err
	}
	rb, err := volumeRoot(b)
	if err != nil {
		return false, err
	}
	return strings.EqualFold(ra, rb), nil
}
