package bpl

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

const iniSection = "SimBatch"

var iniFileKeyRe = regexp.MustCompile(`(?i)^file(\d+)$`)

// INI is the legacy [SimBatch] codec. It carries recording paths only.
type INI struct{}

func (INI) Name() string { return "ini" }

func (INI) SupportsSections() bool { return false }

type iniFile struct {
	n    int
	path string
}

func (INI) Decode(r io.Reader) (*Playlist, error) {
	var (
		files   []iniFile
		current string
		seen    bool
	)
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for line := 1; sc.Scan(); line++ {
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, ";") || strings.HasPrefix(text, "#") {
			continue
		}
		if strings.HasPrefix(text, "[") && strings.HasSuffix(text, "]") {
			current = strings.TrimSpace(text[1 : len(text)-1])
			if current == iniSection {
				seen = true
			}
			continue
		}
		if current != iniSection {
			continue
		}
		key, value, ok := strings.Cut(text, "=")
		if !ok {
			key, value, ok = strings.Cut(text, ":")
		}
		if !ok {
			return nil, newFormatError(-1, -1, "line %d: expected key=value", line)
		}
		m := iniFileKeyRe.FindStringSubmatch(strings.TrimSpace(key))
		if m == nil {
			continue
		}
		n, err := strconv.Atoi(m[1])
		if err != nil {
			return nil, newFormatError(-1, -1, "line %d: %w", line, err)
		}
		path := unquoteINI(value)
		if strings.TrimSpace(path) == "" {
			return nil, newFormatError(-1, -1, "line %d: %s has an empty path", line, strings.TrimSpace(key))
		}
		files = append(files, iniFile{n: n, path: path})
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("scan ini: %w", err)
	}
	if !seen {
		return nil, newFormatError(-1, -1, "missing [%s] section", iniSection)
	}

	sort.SliceStable(files, func(i, j int) bool { return files[i].n < files[j].n })
	p := &Playlist{}
	for _, f := range files {
		p.Append(NewEntry(f.path))
	}
	return p, nil
}

func unquoteINI(v string) string {
	v = strings.Trim(strings.TrimSpace(v), `"`)
	return strings.ReplaceAll(v, `\\`, `\`)
}

func (INI) Encode(w io.Writer, p *Playlist) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "[%s]\n", iniSection)
	fmt.Fprintf(bw, "FileCount=%d\n", p.Len())
	for i, e := range p.Entries() {
		fmt.Fprintf(bw, "File%d=\"%s\"\n", i, strings.ReplaceAll(e.Path, `\`, `\\`))
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("write ini: %w", err)
	}
	return nil
}
