//go:build !windows

package fsexec

// Outside Windows only the leading-dot convention marks a file hidden.
func hasHiddenAttribute(string) bool { return false }
