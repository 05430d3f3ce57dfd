package bpl

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Chunk is one playlist produced by a split, together with its file name.
type Chunk struct {
	Name     string
	Playlist *Playlist
}

// SplitBySize cuts p into playlists of at most taskSize entries named
// T00001.bpl, T00002.bpl, ... Sections are kept.
func SplitBySize(p *Playlist, taskSize int) ([]Chunk, error) {
	if taskSize <= 0 {
		return nil, fmt.Errorf("bpl: task size must be positive, got %d", taskSize)
	}
	entries := p.Entries()
	var out []Chunk
	for i := 0; i < len(entries); i += taskSize {
		end := min(i+taskSize, len(entries))
		out = append(out, Chunk{
			Name:     fmt.Sprintf("T%05d.bpl", len(out)+1),
			Playlist: New(entries[i:end]...),
		})
	}
	return out, nil
}

// SplitSingle returns one playlist per entry named Rec00001.bpl, Rec00002.bpl, ...
func SplitSingle(p *Playlist) []Chunk {
	out := make([]Chunk, 0, p.Len())
	for i, e := range p.Entries() {
		out = append(out, Chunk{Name: fmt.Sprintf("Rec%05d.bpl", i+1), Playlist: New(e)})
	}
	return out
}

// SplitParts cuts p into at most parts playlists of roughly equal recording
// size. A chunk is closed once its accumulated size reaches total/parts; the
// last part takes whatever is left. sizeMB reports the size of one recording.
// Chunks are named <base>_part_NN_of_MM<ext> after the source file name.
func SplitParts(p *Playlist, parts int, source string, sizeMB func(path string) float64) ([]Chunk, error) {
	if parts <= 0 {
		return nil, fmt.Errorf("bpl: parts must be positive, got %d", parts)
	}
	if sizeMB == nil {
		sizeMB = FileSizeMB
	}
	entries := p.Entries()
	sizes := make([]float64, len(entries))
	total := 0.0
	for i, e := range entries {
		sizes[i] = sizeMB(e.Path)
		total += sizes[i]
	}
	partSize := total / float64(parts)

	ext := filepath.Ext(source)
	base := strings.TrimSuffix(filepath.Base(source), ext)

	var out []Chunk
	for idx := 0; idx < len(entries); {
		last := len(out)+1 == parts
		chunk := &Playlist{}
		size := 0.0
		for idx < len(entries) && (size < partSize || last || chunk.Len() == 0) {
			chunk.Append(entries[idx])
			size += sizes[idx]
			idx++
		}
		out = append(out, Chunk{
			Name:     fmt.Sprintf("%s_part_%02d_of_%02d%s", base, len(out)+1, parts, ext),
			Playlist: chunk,
		})
	}
	return out, nil
}

// FileSizeMB returns the size of a recording in decimal megabytes, or 1.0
// when it cannot be stat'ed.
func FileSizeMB(path string) float64 {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return 1.0
	}
	return float64(info.Size()) / 1000 / 1000
}

// WriteChunks writes every chunk into dir with the codec matching its name
// and returns the written paths in order.
func WriteChunks(dir string, chunks []Chunk) ([]string, error) {
	paths := make([]string, 0, len(chunks))
	for _, c := range chunks {
		path := filepath.Join(dir, c.Name)
		if err := WriteFile(path, c.Playlist); err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}
