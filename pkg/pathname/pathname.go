// Package pathname splits file names into stem and extension.
//
// A leading dot does not start an extension: ".DS_Store" has the stem
// ".DS_Store" and no extension, while "IMG_0001.CR2" has the stem "IMG_0001"
// and the extension "CR2". A trailing dot yields an empty extension.
package pathname

import (
	"path/filepath"
	"strings"

	"gitlab.com/tozd/go/errors"
)

var (
	// ErrNoFileName is returned when a path has no final name component.
	ErrNoFileName = errors.Base("file name not found")
	// ErrNoStem is returned when a path has no file stem.
	ErrNoStem = errors.Base("file stem not found")
	// ErrNoExtension is returned when a path has no extension.
	ErrNoExtension = errors.Base("file extension not found")
)

// FileName returns the final component of path.
func FileName(path string) (string, bool) {
	base := filepath.Base(path)
	switch base {
	case ".", "..", string(filepath.Separator), "":
		return "", false
	}
	return base, true
}

func split(path string) (stem, ext string, hasExt, ok bool) {
	name, ok := FileName(path)
	if !ok {
		return "", "", false, false
	}
	i := strings.LastIndexByte(name, '.')
	if i <= 0 {
		return name, "", false, true
	}
	return name[:i], name[i+1:], true, true
}

// Stem returns the file name without its extension.
func Stem(path string) (string, bool) {
	stem, _, _, ok := split(path)
	return stem, ok
}

// Ext returns the extension of path without the dot, in its original case.
func Ext(path string) (string, bool) {
	_, ext, hasExt, _ := split(path)
	return ext, hasExt
}

// LowerExt returns the lowercased extension of path.
func LowerExt(path string) (string, bool) {
	ext, ok := Ext(path)
	return strings.ToLower(ext), ok
}

// WithExt replaces the extension of path, or appends one if there is none.
func WithExt(path, ext string) string {
	stem, _, _, ok := split(path)
	if !ok {
		return path
	}
	dir := path[:len(path)-len(filepath.Base(path))]
	if ext == "" {
		return dir + stem
	}
	return dir + stem + "." + ext
}

// RequireStem is Stem returning ErrNoStem on failure.
func RequireStem(path string) (string, error) {
	stem, ok := Stem(path)
	if !ok || stem == "" {
		return "", errors.Errorf("%w: %s", ErrNoStem, path)
	}
	return stem, nil
}

// RequireExt is Ext returning ErrNoExtension on failure.
func RequireExt(path string) (string, error) {
	ext, ok := Ext(path)
	if !ok {
		return "", errors.Errorf("%w: %s", ErrNoExtension, path)
	}
	return ext, nil
}

// RequireFileName is FileName returning ErrNoFileName on failure.
func RequireFileName(path string) (string, error) {
	name, ok := FileName(path)
	if !ok {
		return "", errors.Errorf("%w: %s", ErrNoFileName, path)
	}
	return name, nil
}

// IsJPEG reports whether path has a jpg or jpeg extension, in any case.
func IsJPEG(path string) bool {
	ext, ok := LowerExt(path)
	return ok && (ext == "jpg" || ext == "jpeg")
}
