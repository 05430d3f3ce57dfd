package bpl

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/starford/stk/internal/storage"
)

// Codec reads and writes one playlist encoding. Decode always returns a
// fresh playlist; Encode overwrites whatever the writer receives.
type Codec interface {
	Name() string
	// SupportsSections reports whether the encoding keeps time sections.
	SupportsSections() bool
	Decode(r io.Reader) (*Playlist, error)
	Encode(w io.Writer, p *Playlist) error
}

var codecs = map[string]Codec{
	".bpl": XML{},
	".xml": XML{},
	".ini": INI{},
	".txt": TXT{},
}

// Extensions returns the file extensions that have a registered codec.
func Extensions() []string {
	out := make([]string, 0, len(codecs))
	for ext := range codecs {
		out = append(out, ext)
	}
	sort.Strings(out)
	return out
}

// CodecFor returns the codec registered for the extension of path.
func CodecFor(path string) (Codec, error) {
	ext := strings.ToLower(filepath.Ext(path))
	c, ok := codecs[ext]
	if !ok {
		return nil, &FormatError{Source: path, Entry: -1, Section: -1,
			Err: fmt.Errorf("unsupported playlist extension %q", ext)}
	}
	return c, nil
}

// Read decodes a playlist from r, picking the codec by the extension of name.
func Read(r io.Reader, name string) (*Playlist, error) {
	c, err := CodecFor(name)
	if err != nil {
		return nil, err
	}
	p, err := c.Decode(r)
	if err != nil {
		return nil, withSource(err, name)
	}
	return p, nil
}

// ReadFile opens path, decodes it with the codec matching its extension and
// closes it again on every return path.
func ReadFile(path string) (*Playlist, error) {
	c, err := CodecFor(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("bpl: open %s: %w", path, err)
	}
	defer f.Close()

	p, err := c.Decode(f)
	if err != nil {
		return nil, withSource(err, path)
	}
	return p, nil
}

// Encode serializes p with the codec matching the extension of name.
func Encode(p *Playlist, name string) ([]byte, error) {
	c, err := CodecFor(name)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := c.Encode(&buf, p); err != nil {
		return nil, fmt.Errorf("bpl: encode %s: %w", name, err)
	}
	return buf.Bytes(), nil
}

// WriteFile serializes p with the codec matching the extension of path and
// replaces the file atomically.
func WriteFile(path string, p *Playlist) error {
	data, err := Encode(p, path)
	if err != nil {
		return err
	}
	if err := storage.WriteFileAtomic(path, data); err != nil {
		return fmt.Errorf("bpl: write %s: %w", path, err)
	}
	return nil
}

func withSource(err error, source string) error {
	var fe *FormatError
	if errors.As(err, &fe) {
		if fe.Source == "" {
			fe.Source = source
		}
		return fe
	}
	return fmt.Errorf("bpl: read %s: %w", source, err)
}
