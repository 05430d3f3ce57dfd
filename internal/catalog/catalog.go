package catalog

import "github.com/starford/stk/internal/bpl"

// Catalog defines the interface for playlist catalog operations.
// Consumers depend on this interface rather than the concrete *DB type.
type Catalog interface {
	UpsertPlaylist(row PlaylistRow, entries []bpl.Entry) error
	DeletePlaylist(path string) error
	GetChecksum(path string) (string, error)
	GetPlaylist(path string) (*PlaylistRow, error)
	ListPlaylists(limit, offset int) ([]PlaylistRow, int, error)
	Summary() (Summary, error)
	FindRecording(query string, limit int) ([]RecordingHit, error)
	PlaylistsContaining(recording string) ([]string, error)
	AllChecksums() (map[string]string, error)
	Close() error
}

// Verify *DB satisfies Catalog at compile time.
var _ Catalog = (*DB)(nil)
