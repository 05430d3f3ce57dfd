// Package bpl implements the batch playlist (BPL) model: an ordered list of
// recording files with optional time sections, its XML, INI and TXT encodings
// and the set algebra used to merge, diff and intersect playlists.
package bpl

import (
	"fmt"
	"strconv"
	"strings"
)

// Section is a start/end pair within one recording. A relative bound counts
// from playback start/stop instead of being an absolute timestamp.
type Section struct {
	Start         int64 `json:"start"`
	End           int64 `json:"end"`
	StartRelative bool  `json:"start_relative,omitempty"`
	EndRelative   bool  `json:"end_relative,omitempty"`
}

// Entry is one playlist record.
type Entry struct {
	Path     string    `json:"path"`
	Sections []Section `json:"sections,omitempty"`
}

// NewEntry returns an entry for path with the given sections.
func NewEntry(path string, sections ...Section) Entry {
	return Entry{Path: strings.TrimSpace(path), Sections: sections}
}

// HasSections reports whether the entry restricts playback to sub-ranges.
func (e Entry) HasSections() bool {
	return len(e.Sections) > 0
}

// LocalPath returns the path as the file system names it, with the entity
// escaping of the in-memory form undone. Compare and store Path; open
// LocalPath.
func (e Entry) LocalPath() string {
	return UnescapePath(e.Path)
}

// UnescapePath undoes the &amp;, &lt; and &gt; escaping of an in-memory
// entry path.
func UnescapePath(path string) string {
	return xmlUnescaper.Replace(path)
}

func (e Entry) String() string {
	return e.Path
}

// Playlist is an ordered sequence of entries. Duplicates are kept as read;
// only the set algebra removes them.
type Playlist struct {
	entries []Entry
}

// New returns a playlist holding the given entries in order.
func New(entries ...Entry) *Playlist {
	p := &Playlist{}
	for _, e := range entries {
		p.Append(e)
	}
	return p
}

// FromPaths builds a playlist without sections from plain recording paths.
// Blank paths are skipped.
func FromPaths(paths ...string) *Playlist {
	p := &Playlist{}
	for _, path := range paths {
		if strings.TrimSpace(path) == "" {
			continue
		}
		p.Append(NewEntry(path))
	}
	return p
}

// Append adds e at the end of the playlist.
func (p *Playlist) Append(e Entry) {
	e.Path = strings.TrimSpace(e.Path)
	if len(e.Sections) > 0 {
		e.Sections = append([]Section(nil), e.Sections...)
	}
	p.entries = append(p.entries, e)
}

// Entries returns a copy of the entries in order.
func (p *Playlist) Entries() []Entry {
	if p == nil {
		return nil
	}
	return append([]Entry(nil), p.entries...)
}

// Len returns the number of entries.
func (p *Playlist) Len() int {
	if p == nil {
		return 0
	}
	return len(p.entries)
}

// At returns the entry at index i.
func (p *Playlist) At(i int) Entry {
	return p.entries[i]
}

// Paths returns the recording paths in order.
func (p *Playlist) Paths() []string {
	if p == nil {
		return nil
	}
	out := make([]string, len(p.entries))
	for i, e := range p.entries {
		out[i] = e.Path
	}
	return out
}

// ToMap returns the sections of every recording keyed by path. Duplicate
// entries contribute their sections to the same key.
func (p *Playlist) ToMap() map[string][]Section {
	out := make(map[string][]Section, p.Len())
	if p == nil {
		return out
	}
	for _, e := range p.entries {
		out[e.Path] = append(out[e.Path], e.Sections...)
	}
	return out
}

// ParseBound parses a section bound such as "100" or "200R". A trailing
// R or r marks the bound as relative.
func ParseBound(s string) (int64, bool, error) {
	s = strings.TrimSpace(s)
	relative := false
	if strings.HasSuffix(strings.ToUpper(s), "R") {
		relative = true
		s = s[:len(s)-1]
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, false, fmt.Errorf("invalid bound %q", s)
	}
	return v, relative, nil
}

// FormatBound is the inverse of ParseBound.
func FormatBound(v int64, relative bool) string {
	s := strconv.FormatInt(v, 10)
	if relative {
		s += "R"
	}
	return s
}
