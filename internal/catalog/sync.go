package catalog

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/gofrs/flock"
	"github.com/starford/stk/internal/bpl"
	"github.com/starford/stk/internal/storage"
)

// SyncStats summarizes one Sync pass.
type SyncStats struct {
	Indexed int `json:"indexed"`
	Removed int `json:"removed"`
	Failed  int `json:"failed"`
}

// Sync walks the library and brings the catalog up to date:
//   - new/changed playlists are parsed and upserted
//   - playlists removed from disk are deleted from the catalog
//
// Syncs from other processes sharing the database wait on a lock file
// next to it.
func Sync(ctx context.Context, db *DB, store storage.Provider, logger *slog.Logger) (SyncStats, error) {
	var st SyncStats

	lock := lockFor(db)
	if _, err := lock.TryLockContext(ctx, 100*time.Millisecond); err != nil {
		return st, fmt.Errorf("catalog: acquire sync lock: %w", err)
	}
	defer lock.Unlock() //nolint:errcheck

	metas, err := store.List("")
	if err != nil {
		return st, err
	}

	checksums, err := db.AllChecksums()
	if err != nil {
		return st, err
	}

	disk := make(map[string]struct{}, len(metas))
	for _, m := range metas {
		disk[m.Path] = struct{}{}

		if checksums[m.Path] == m.Checksum {
			continue
		}

		data, err := store.Read(m.Path)
		if err != nil {
			st.Failed++
			logger.Warn("sync: read failed", slog.String("path", m.Path), slog.String("error", err.Error()))
			continue
		}
		if err := indexFile(db, m.Path, data); err != nil {
			st.Failed++
			logger.Warn("sync: index failed", slog.String("path", m.Path), slog.String("error", err.Error()))
		} else {
			st.Indexed++
			logger.Debug("sync: indexed", slog.String("path", m.Path))
		}
	}

	for p := range checksums {
		if _, ok := disk[p]; !ok {
			if err := db.DeletePlaylist(p); err != nil {
				logger.Warn("sync: delete failed", slog.String("path", p), slog.String("error", err.Error()))
			} else {
				st.Removed++
				logger.Debug("sync: removed stale", slog.String("path", p))
			}
		}
	}

	return st, nil
}

// lockFor returns the advisory lock guarding Sync on db.
func lockFor(db *DB) *flock.Flock {
	return flock.New(db.path + ".lock")
}

// indexFile decodes data with the codec of path and upserts it into the DB.
func indexFile(db Catalog, path string, data []byte) error {
	codec, err := bpl.CodecFor(path)
	if err != nil {
		return err
	}
	p, err := bpl.Read(bytes.NewReader(data), path)
	if err != nil {
		return err
	}
	row := PlaylistRow{
		Path:     path,
		Format:   codec.Name(),
		Checksum: storage.Checksum(data),
	}
	return db.UpsertPlaylist(row, p.Entries())
}

// IndexFile re-reads one playlist from store and upserts it.
func IndexFile(db Catalog, store storage.Provider, path string) error {
	data, err := store.Read(path)
	if err != nil {
		return err
	}
	return indexFile(db, path, data)
}
