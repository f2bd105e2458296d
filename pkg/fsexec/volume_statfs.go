//go:build linux || darwin || freebsd

package fsexec

import (
	"gitlab.com/tozd/go/errors"
	"golang.org/x/sys/unix"
)

func freeSpace(path string) (uint64, error) {
	var st unix.Statfs_t
	if err := unix.Statfs(path, &st); err != nil {
		return 0, errors.WithStack(err)
	}
	return uint64(st.Bavail) * uint64(st.Bsize), nil
}

func sameDisk(a, b string) (bool, error) {
	var sa, sb unix.Stat_t
	if err := unix.Stat(a, &sa); err != nil {
		return false, errors.WithStack(err)
	}
	if err := unix.Stat(b, &sb); err != nil {
		return false, errors.WithStack(err)
	}
	return uint64(sa.Dev) == uint64(sb.Dev), nil
}
