// Package rename generates sequentially numbered file stems.
package rename

import (
	"fmt"
	"strings"

	"gitlab.com/tozd/go/errors"

	"github.com/paulschiretz/pgl-ingest/pkg/pathname"
)

// Position places the sequence number relative to the name.
type Position int

const (
	// Prefix renders "{seq}-{name}".
	Prefix Position = iota
	// Suffix renders "{name}-{seq}".
	Suffix
)

var positionNames = map[Position]string{Prefix: "prefix", Suffix: "suffix"}

func (p Position) String() string {
	if s, ok := positionNames[p]; ok {
		return s
	}
	return fmt.Sprintf("Position(%d)", int(p))
}

// ParsePosition maps "prefix" or "suffix" to a Position.
func ParsePosition(s string) (Position, error) {
	for p, name := range positionNames {
		if strings.EqualFold(strings.TrimSpace(s), name) {
			return p, nil
		}
	}
	return 0, errors.Errorf("invalid rename position %q: must be 'prefix' or 'suffix'", s)
}

// Rename is a sequence counter that turns file paths into numbered stems.
// Only Next mutates it.
type Rename struct {
	// Name overrides the file's own stem when non-empty.
	Name     string
	Position Position
	Sequence int64
	// Zeroes is the zero-padding width of the sequence number.
	Zeroes uint8
}

// FileStem returns the numbered stem for path without advancing the sequence.
func (r *Rename) FileStem(path string) (string, error) {
	name := r.Name
	if name == "" {
		stem, err := pathname.RequireStem(path)
		if err != nil {
			return "", err
		}
		name = stem
	}
	seq := fmt.Sprintf("%0*d", int(r.Zeroes), r.Sequence)
	if r.Position == Suffix {
		return name + "-" + seq, nil
	}
	return seq + "-" + name, nil
}

// Next returns FileStem(path) and advances the sequence by one. On error the
// sequence is left unchanged.
func (r *Rename) Next(path string) (string, error) {
	stem, err := r.FileStem(path)
	if err != nil {
		return "", err
	}
	r.Sequence++
	return stem, nil
}
