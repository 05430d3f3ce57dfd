package bpl

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// TXT is the plain list codec: one recording path per line.
type TXT struct{}

func (TXT) Name() string { return "txt" }

func (TXT) SupportsSections() bool { return false }

func (TXT) Decode(r io.Reader) (*Playlist, error) {
	p := &Playlist{}
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		p.Append(NewEntry(line))
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("scan txt: %w", err)
	}
	return p, nil
}

func (TXT) Encode(w io.Writer, p *Playlist) error {
	if _, err := io.WriteString(w, strings.Join(p.Paths(), "\n")); err != nil {
		return fmt.Errorf("write txt: %w", err)
	}
	return nil
}
