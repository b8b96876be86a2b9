// Package file contains the local filesystem source for CSV exports: listing
// the input set and opening each file for a single sequential read.
package file

import (
	"fmt"
	"path/filepath"
	"sort"
)

// List returns the regular files in dir whose base name matches pattern
// (filepath.Match syntax), sorted lexicographically by full path. An empty
// result is not an error; callers decide whether that is fatal.
func List(dir, pattern string) ([]string, error) {
	if _, err := filepath.Match(pattern, ""); err != nil {
		return nil, fmt.Errorf("bad pattern %q: %w", pattern, err)
	}
	matches, err := filepath.Glob(filepath.Join(dir, pattern))
	if err != nil {
		return nil, fmt.Errorf("glob %s: %w", dir, err)
	}

	out := matches[:0]
	for _, m := range matches {
		if isRegular(m) {
			out = append(out, m)
		}
	}
	sort.Strings(out)
	return out, nil
}
