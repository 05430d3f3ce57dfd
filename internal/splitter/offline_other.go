//go:build !unix && !windows

package splitter

import "io/fs"

func isOffline(string, fs.FileInfo) (bool, error) {
	return false, nil
}
