//go:build !(linux || darwin || freebsd || windows)

package fsexec

func freeSpace(string) (uint64, error) { return 0, ErrVolumeUnsupported }

func sameDisk(string, string) (bool, error) { return false, ErrVolumeUnsupported }
