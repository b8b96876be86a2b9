package file

import (
	"context"
	"fmt"
	"io"
	"os"
)

// Local is a filesystem data source bound to one path.
type Local struct{ path string }

// NewLocal returns a Local source for path.
func NewLocal(path string) *Local { return &Local{path: path} }

// Open opens the file for reading.
//
// Behavior:
//   - A context that is already done short-circuits with its error.
//   - Filesystem errors are wrapped with the path; errors.Is(err,
//     os.ErrNotExist) still works.
//   - The kernel is told the file will be read once, front to back.
func (l *Local) Open(ctx context.Context) (io.ReadCloser, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}
	f, err := os.Open(l.path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", l.path, err)
	}
	adviseSequential(f)
	return f, nil
}

func isRegular(path string) bool {
	fi, err := os.Stat(path)
	return err == nil && fi.Mode().IsRegular()
}
