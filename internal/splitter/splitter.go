// Package splitter partitions a playlist into the recordings that are online
// and the ones that have been moved to offline (archive) storage.
package splitter

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/starford/stk/internal/apperr"
	"github.com/starford/stk/internal/bpl"
)

// Exit codes reported by the online/offline split.
const (
	CodeOK                    = 0
	CodeError                 = -200
	CodeInputFileMissing      = -201
	CodeInputFileDoesNotExist = -202
	CodeFileNotFound          = -203
)

// OfflineChecker classifies a recording. IsOffline fails with an error
// wrapping apperr.ErrFileNotAvailable when the file does not exist.
type OfflineChecker interface {
	IsOffline(path string) (bool, error)
}

// Result is the outcome of one split.
type Result struct {
	Online      *bpl.Playlist
	Offline     *bpl.Playlist
	Missing     []string
	OnlinePath  string
	OfflinePath string
}

// Code returns CodeFileNotFound when some entries could not be classified.
func (r *Result) Code() int {
	if len(r.Missing) > 0 {
		return CodeFileNotFound
	}
	return CodeOK
}

// Splitter classifies the entries of a playlist.
type Splitter struct {
	checker OfflineChecker
	aliases []alias
	out     io.Writer
	logger  *slog.Logger
}

type alias struct {
	from, to string
}

// Option is a functional option for configuring a Splitter.
type Option func(*Splitter)

// WithChecker replaces the file-system offline predicate.
func WithChecker(c OfflineChecker) Option {
	return func(s *Splitter) {
		s.checker = c
	}
}

// WithServerAliases sets UNC prefixes rewritten before a recording is
// checked, e.g. the fast-connection name of a file server to its canonical one.
func WithServerAliases(m map[string]string) Option {
	return func(s *Splitter) {
		s.aliases = s.aliases[:0]
		for from, to := range m {
			s.aliases = append(s.aliases, alias{from: from, to: to})
		}
		// longest prefix wins
		sort.Slice(s.aliases, func(i, j int) bool {
			if len(s.aliases[i].from) != len(s.aliases[j].from) {
				return len(s.aliases[i].from) > len(s.aliases[j].from)
			}
			return s.aliases[i].from < s.aliases[j].from
		})
	}
}

// WithOutput sets where per-entry diagnostics are printed.
func WithOutput(w io.Writer) Option {
	return func(s *Splitter) {
		s.out = w
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Splitter) {
		s.logger = l
	}
}

// New creates a Splitter using the platform offline predicate by default.
func New(opts ...Option) *Splitter {
	s := &Splitter{checker: FSChecker{}, out: os.Stdout, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Canonical rewrites a recording path with the configured server aliases.
func (s *Splitter) Canonical(path string) string {
	for _, a := range s.aliases {
		if len(path) >= len(a.from) && strings.EqualFold(path[:len(a.from)], a.from) {
			return a.to + path[len(a.from):]
		}
	}
	return path
}

// OutputPaths returns the sibling files <base>_online<ext> and <base>_offline<ext>.
func OutputPaths(input string) (online, offline string) {
	ext := filepath.Ext(input)
	base := strings.TrimSuffix(input, ext)
	return base + "_online" + ext, base + "_offline" + ext
}

// Split reads input, classifies every entry and writes both partitions
// next to it with the input's codec. Missing recordings are reported and
// skipped; they only show up in Result.Missing.
func (s *Splitter) Split(input string) (*Result, error) {
	in, err := bpl.ReadFile(input)
	if err != nil {
		return nil, err
	}
	res := &Result{Online: bpl.New(), Offline: bpl.New()}
	res.OnlinePath, res.OfflinePath = OutputPaths(input)

	for _, e := range in.Entries() {
		offline, err := s.checker.IsOffline(s.Canonical(e.LocalPath()))
		switch {
		case err != nil:
			if !errors.Is(err, apperr.ErrFileNotAvailable) {
				s.logger.Warn("splitter: classify failed",
					slog.String("path", e.Path),
					slog.String("error", err.Error()))
			}
			fmt.Fprintf(s.out, "FileNotAvailable:   %s\n", e.Path)
			res.Missing = append(res.Missing, e.Path)
		case offline:
			fmt.Fprintf(s.out, "Offline: %s\n", e.Path)
			res.Offline.Append(e)
		default:
			fmt.Fprintf(s.out, "Online:  %s\n", e.Path)
			res.Online.Append(e)
		}
	}

	if err := bpl.WriteFile(res.OfflinePath, res.Offline); err != nil {
		return nil, err
	}
	if err := bpl.WriteFile(res.OnlinePath, res.Online); err != nil {
		return nil, err
	}
	return res, nil
}

// Run validates the input path, splits it and maps the outcome to an exit code.
func (s *Splitter) Run(input string) (*Result, int) {
	if input == "" {
		return nil, CodeInputFileMissing
	}
	if info, err := os.Stat(input); err != nil || info.IsDir() {
		return nil, CodeInputFileDoesNotExist
	}
	res, err := s.Split(input)
	if err != nil {
		s.logger.Error("splitter: split failed",
			slog.String("input", input),
			slog.String("error", err.Error()))
		return nil, CodeError
	}
	return res, res.Code()
}

// FSChecker classifies recordings through the file system offline attribute.
type FSChecker struct{}

func (FSChecker) IsOffline(path string) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, fmt.Errorf("splitter: %s: %w", path, apperr.ErrFileNotAvailable)
		}
		return false, fmt.Errorf("splitter: stat %s: %w", path, err)
	}
	if info.IsDir() {
		return false, fmt.Errorf("splitter: %s is a directory: %w", path, apperr.ErrFileNotAvailable)
	}
	return isOffline(path, info)
}
