package ingest

import (
	"fmt"
	"strings"

	"gitlab.com/tozd/go/errors"

	"github.com/paulschiretz/pgl-ingest/pkg/rename"
)

// StructureKind selects how ingested files are laid out in the target.
type StructureKind int

const (
	// KindRetain mirrors each file's path relative to its source root.
	KindRetain StructureKind = iota
	// KindRename numbers files sequentially into the target root.
	KindRename
	// KindPreserve flattens files into the target root under their own name.
	KindPreserve
)

var structureKindNames = map[StructureKind]string{
	KindRetain:   "retain",
	KindRename:   "rename",
	KindPreserve: "preserve",
}

func (k StructureKind) String() string {
	if s, ok := structureKindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("StructureKind(%d)", int(k))
}

// ParseStructureKind maps a config mode name to a StructureKind.
func ParseStructureKind(s string) (StructureKind, error) {
	for k, name := range structureKindNames {
		if strings.EqualFold(strings.TrimSpace(s), name) {
			return k, nil
		}
	}
	return 0, errors.Errorf("invalid structure mode %q: must be 'retain', 'rename' or 'preserve'", s)
}

// Structure is the layout policy of an ingest. Only the rename variant
// carries a payload: the sequence counter the run starts from.
type Structure struct {
	kind   StructureKind
	rename rename.Rename
}

// Retain returns the structure that mirrors source paths under the target.
func Retain() Structure { return Structure{kind: KindRetain} }

// Rename returns the structure that numbers files using r.
func Rename(r rename.Rename) Structure { return Structure{kind: KindRename, rename: r} }

// Preserve returns the structure that flattens files under their own names.
func Preserve() Structure { return Structure{kind: KindPreserve} }

func (s Structure) Kind() StructureKind { return s.kind }

// RenameConfig returns the rename payload and whether s is the rename variant.
func (s Structure) RenameConfig() (rename.Rename, bool) {
	return s.rename, s.kind == KindRename
}

func (s Structure) String() string {
	if s.kind == KindRename {
		return fmt.Sprintf("rename(%s, start=%d, zeroes=%d)", s.rename.Position, s.rename.Sequence, s.rename.Zeroes)
	}
	return s.kind.String()
}
