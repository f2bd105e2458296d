// Package sidecar pairs RAW files with their companion JPEG and XMP files.
package sidecar

import (
	"context"

	"gitlab.com/tozd/go/errors"

	"github.com/paulschiretz/pgl-ingest/pkg/pathname"
)

var (
	// ErrNoAccompanyingJPEG is returned when no companion JPEG exists next to a file.
	ErrNoAccompanyingJPEG = errors.Base("no accompanying jpeg found")
	// ErrJPEGHasJPEG is returned when a companion JPEG is requested for a JPEG.
	ErrJPEGHasJPEG = errors.Base("jpeg file can't have accompanying jpeg")
)

// jpegExtensions are tried in order when looking for a companion.
var jpegExtensions = []string{"jpg", "jpeg", "JPG", "JPEG"}

// Resolver is the filesystem access the lookups need.
type Resolver interface {
	Exists(ctx context.Context, path string) (bool, error)
	Canonicalize(ctx context.Context, path string) (string, error)
}

// AccompanyingJPEG returns the canonical path of the JPEG sharing input's stem.
func AccompanyingJPEG(ctx context.Context, r Resolver, input string) (string, error) {
	if pathname.IsJPEG(input) {
		return "", errors.Errorf("%w: %s", ErrJPEGHasJPEG, input)
	}
	for _, ext := range jpegExtensions {
		candidate := pathname.WithExt(input, ext)
		ok, err := r.Exists(ctx, candidate)
		if err != nil {
			return "", err
		}
		if ok {
			return r.Canonicalize(ctx, candidate)
		}
	}
	return "", errors.Errorf("%w: %s", ErrNoAccompanyingJPEG, input)
}

// XMPPath returns the metadata sidecar path for a file.
func XMPPath(path string) string {
	return pathname.WithExt(path, "xmp")
}

// CompanionCandidates returns the sibling names sharing jpegName's stem that
// could be its primary file, i.e. everything except other JPEGs and XMP files.
func CompanionCandidates(jpegName string, siblings []string) []string {
	stem, ok := pathname.Stem(jpegName)
	if !ok {
		return nil
	}
	var out []string
	for _, name := range siblings {
		if name == jpegName || pathname.IsJPEG(name) {
			continue
		}
		s, _ := pathname.Stem(name)
		ext, hasExt := pathname.LowerExt(name)
		if s != stem || !hasExt || ext == "xmp" {
			continue
		}
		out = append(out, name)
	}
	return out
}

// IsXMP reports whether path is an XMP sidecar.
func IsXMP(path string) bool {
	ext, ok := pathname.LowerExt(path)
	return ok && ext == "xmp"
}
