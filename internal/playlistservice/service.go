// Package playlistservice coordinates the playlist library, the codecs and
// the catalog for the API and MCP front ends.
package playlistservice

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"github.com/starford/stk/internal/apperr"
	"github.com/starford/stk/internal/bpl"
	"github.com/starford/stk/internal/catalog"
	"github.com/starford/stk/internal/storage"
)

// lockName is the advisory lock file in the library root serializing writers
// across processes.
const lockName = ".stk-write.lock"

// PlaylistDetail is the full representation of a playlist.
type PlaylistDetail struct {
	Path             string      `json:"path"`
	Format           string      `json:"format"`
	SupportsSections bool        `json:"supports_sections"`
	Checksum         string      `json:"checksum"`
	Entries          []bpl.Entry `json:"entries"`
	UpdatedAt        time.Time   `json:"updated_at"`
}

// OperateRequest names two library playlists to combine.
type OperateRequest struct {
	Op     string `json:"op"`
	First  string `json:"first"`
	Second string `json:"second,omitempty"`
	Strict bool   `json:"strict,omitempty"`
	// Output, when set, is the library path the result is written to.
	Output string `json:"output,omitempty"`
}

// OperateResult is the outcome of a set operation.
type OperateResult struct {
	Op      string   `json:"op"`
	Entries []string `json:"entries"`
	Output  string   `json:"output,omitempty"`
}

// Service coordinates storage and catalog operations.
type Service struct {
	store storage.Provider
	db    catalog.Catalog
	mu    sync.Mutex
}

// NewService creates a new playlist service.
func NewService(store storage.Provider, db catalog.Catalog) *Service {
	return &Service{store: store, db: db}
}

// lockWrites serializes writers within the process and, through the lock
// file, with other processes sharing the library. The returned func
// releases both.
func (s *Service) lockWrites() (func(), error) {
	s.mu.Lock()
	l := flock.New(filepath.Join(s.store.Root(), lockName))
	if err := l.Lock(); err != nil {
		s.mu.Unlock()
		return nil, fmt.Errorf("playlistservice: lock: %w", err)
	}
	return func() {
		l.Unlock() //nolint:errcheck
		s.mu.Unlock()
	}, nil
}

// GetPlaylist reads and decodes a playlist from the library.
func (s *Service) GetPlaylist(_ context.Context, path string) (*PlaylistDetail, error) {
	data, err := s.read(path)
	if err != nil {
		return nil, err
	}
	return buildDetail(path, data)
}

// PutPlaylist encodes entries with the codec of path and writes the file.
// A non-empty ifMatch must equal the checksum of the current content.
// created reports whether the file did not exist before.
func (s *Service) PutPlaylist(_ context.Context, path string, entries []bpl.Entry, ifMatch string) (detail *PlaylistDetail, created bool, err error) {
	data, err := bpl.Encode(bpl.New(entries...), path)
	if err != nil {
		return nil, false, err
	}

	unlock, err := s.lockWrites()
	if err != nil {
		return nil, false, err
	}
	defer unlock()

	existing, err := s.read(path)
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		if ifMatch != "" {
			return nil, false, err
		}
		created = true
	case err != nil:
		return nil, false, err
	case ifMatch != "" && ifMatch != storage.Checksum(existing):
		return nil, false, apperr.ErrConflict
	}

	if err := s.store.Write(path, data); err != nil {
		return nil, false, err
	}
	if err := s.IndexFile(path, data); err != nil {
		return nil, false, err
	}
	detail, err = buildDetail(path, data)
	return detail, created, err
}

// DeletePlaylist removes a playlist from the library and the catalog.
func (s *Service) DeletePlaylist(_ context.Context, path string) error {
	unlock, err := s.lockWrites()
	if err != nil {
		return err
	}
	defer unlock()

	if err := s.store.Delete(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return apperr.ErrNotFound
		}
		return err
	}
	return s.db.DeletePlaylist(path)
}

// MovePlaylist renames a playlist inside the library. Both names must carry
// the same extension so the content stays valid for its codec.
func (s *Service) MovePlaylist(_ context.Context, from, to string) (*PlaylistDetail, error) {
	if !strings.EqualFold(filepath.Ext(from), filepath.Ext(to)) {
		return nil, fmt.Errorf("%w: %s and %s differ in format", apperr.ErrUsage, from, to)
	}
	unlock, err := s.lockWrites()
	if err != nil {
		return nil, err
	}
	defer unlock()

	if _, err := s.read(from); err != nil {
		return nil, err
	}
	if _, err := s.read(to); err == nil {
		return nil, fmt.Errorf("%s: %w", to, apperr.ErrAlreadyExists)
	}
	if err := s.store.Move(from, to); err != nil {
		return nil, err
	}
	if err := s.db.DeletePlaylist(from); err != nil {
		return nil, err
	}
	data, err := s.read(to)
	if err != nil {
		return nil, err
	}
	if err := s.IndexFile(to, data); err != nil {
		return nil, err
	}
	return buildDetail(to, data)
}

// ListPlaylists returns one page of the catalog.
func (s *Service) ListPlaylists(_ context.Context, limit, offset int) ([]catalog.PlaylistRow, int, error) {
	return s.db.ListPlaylists(limit, offset)
}

// FindRecording searches catalogued entries by path substring.
func (s *Service) FindRecording(_ context.Context, query string, limit int) ([]catalog.RecordingHit, error) {
	return s.db.FindRecording(query, limit)
}

// PlaylistsContaining returns the playlists referencing a recording.
func (s *Service) PlaylistsContaining(_ context.Context, recording string) ([]string, error) {
	out, err := s.db.PlaylistsContaining(recording)
	return nonNilSlice(out), err
}

// Operate applies a set operation to one or two library playlists and
// optionally writes the result back into the library.
func (s *Service) Operate(ctx context.Context, req OperateRequest) (*OperateResult, error) {
	op, err := bpl.ParseOp(req.Op)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrUsage, err)
	}
	if strings.TrimSpace(req.First) == "" {
		return nil, fmt.Errorf("%w: first playlist is required", apperr.ErrUsage)
	}

	first, err := s.GetPlaylist(ctx, req.First)
	if err != nil {
		return nil, err
	}
	second := bpl.New()
	if req.Second != "" {
		d, err := s.GetPlaylist(ctx, req.Second)
		if err != nil {
			return nil, err
		}
		second = bpl.New(d.Entries...)
	}

	res, err := bpl.Apply(op, bpl.New(first.Entries...), second, req.Strict)
	if err != nil {
		return nil, err
	}
	out := &OperateResult{Op: string(op), Entries: nonNilSlice(res.Paths())}
	if req.Output != "" {
		if _, _, err := s.PutPlaylist(ctx, req.Output, res.Entries(), ""); err != nil {
			return nil, err
		}
		out.Output = req.Output
	}
	return out, nil
}

// IndexFile decodes data and upserts it into the catalog.
func (s *Service) IndexFile(path string, data []byte) error {
	codec, err := bpl.CodecFor(path)
	if err != nil {
		return err
	}
	p, err := bpl.Read(bytes.NewReader(data), path)
	if err != nil {
		return err
	}
	return s.db.UpsertPlaylist(catalog.PlaylistRow{
		Path:      path,
		Format:    codec.Name(),
		Checksum:  storage.Checksum(data),
		UpdatedAt: time.Now().UTC(),
	}, p.Entries())
}

func (s *Service) read(path string) ([]byte, error) {
	if !s.store.Matches(path) {
		return nil, fmt.Errorf("%s: %w", path, apperr.ErrNotFound)
	}
	data, err := s.store.Read(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", path, apperr.ErrNotFound)
		}
		return nil, err
	}
	return data, nil
}

// buildDetail constructs a PlaylistDetail from raw data without re-reading the file.
func buildDetail(path string, data []byte) (*PlaylistDetail, error) {
	codec, err := bpl.CodecFor(path)
	if err != nil {
		return nil, err
	}
	p, err := bpl.Read(bytes.NewReader(data), path)
	if err != nil {
		return nil, err
	}
	entries := p.Entries()
	for i := range entries {
		entries[i].Sections = nonNilSlice(entries[i].Sections)
	}
	return &PlaylistDetail{
		Path:             path,
		Format:           codec.Name(),
		SupportsSections: codec.SupportsSections(),
		Checksum:         storage.Checksum(data),
		Entries:          nonNilSlice(entries),
		UpdatedAt:        time.Now().UTC(),
	}, nil
}

func nonNilSlice[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
