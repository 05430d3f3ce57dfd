//go:build unix

package splitter

import (
	"fmt"
	"io/fs"

	"golang.org/x/sys/unix"
)

// isOffline treats a non-empty file without allocated blocks as a stub left
// behind by hierarchical storage (the data lives on tape or object storage).
func isOffline(path string, _ fs.FileInfo) (bool, error) {
	var st unix.Stat_t
	if err := unix.Stat(path, &st); err != nil {
		return false, fmt.Errorf("splitter: stat %s: %w", path, err)
	}
	return st.Size > 0 && st.Blocks == 0, nil
}
