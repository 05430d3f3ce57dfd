//go:build windows

package splitter

import (
	"fmt"
	"io/fs"

	"golang.org/x/sys/windows"
)

func isOffline(path string, _ fs.FileInfo) (bool, error) {
	p, err := windows.UTF16PtrFromString(path)
	if err != nil {
		return false, fmt.Errorf("splitter: %s: %w", path, err)
	}
	attrs, err := windows.GetFileAttributes(p)
	if err != nil {
		return false, fmt.Errorf("splitter: attributes of %s: %w", path, err)
	}
	return attrs&windows.FILE_ATTRIBUTE_OFFLINE != 0, nil
}
