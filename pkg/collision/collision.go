// Package collision finds a free destination name next to an occupied one.
package collision

import (
	"context"
	"strconv"

	"github.com/paulschiretz/pgl-ingest/pkg/pathname"
)

// Exister reports whether a path is occupied.
type Exister interface {
	Exists(ctx context.Context, path string) (bool, error)
}

// Avoid returns path unchanged when it is free. Otherwise it inserts an
// increasing counter before the extension until a free name is found:
// a.jpg, a-1.jpg, a-2.jpg and so on.
func Avoid(ctx context.Context, ex Exister, path string) (string, error) {
	candidate := path
	ext, hasExt := pathname.Ext(path)
	stemPath := path
	if hasExt {
		stemPath = path[:len(path)-len(ext)-1]
	}

	for n := 1; ; n++ {
		exists, err := ex.Exists(ctx, candidate)
		if err != nil {
			return "", err
		}
		if !exists {
			return candidate, nil
		}
		candidate = stemPath + "-" + strconv.Itoa(n)
		if hasExt {
			candidate += "." + ext
		}
	}
}
