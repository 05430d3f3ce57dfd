// Package storage defines the playlist library file-system abstraction.
package storage

import "time"

// PlaylistMeta is a lightweight description of one playlist file in the library.
type PlaylistMeta struct {
	Path      string    `json:"path"`
	Checksum  string    `json:"checksum"`
	Size      int64     `json:"size"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Provider is the interface for playlist library file operations.
type Provider interface {
	// Root returns the absolute library directory.
	Root() string
	// Matches reports whether a file name is a playlist handled by the library.
	Matches(name string) bool
	// List returns metadata for every playlist file under dir (relative to the library root).
	List(dir string) ([]PlaylistMeta, error)
	// Read returns the raw bytes of the file at path (relative to the library root).
	Read(path string) ([]byte, error)
	// Write atomically writes content to path (relative to the library root).
	Write(path string, content []byte) error
	// Delete removes the file at path (relative to the library root).
	Delete(path string) error
	// Move renames oldPath to newPath (both relative to the library root).
	Move(oldPath, newPath string) error
}
