// Package bsigcopy copies the bsig exports of the recordings listed in a
// playlist from a simulation output folder into a target folder.
package bsigcopy

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/starford/stk/internal/bpl"
)

const tstpSuffix = "_tstp.bsig"

// Options configures a copy run.
type Options struct {
	InDir      string
	OutDir     string
	Components []string
	// Timestamps also copies <base>_tstp.bsig for every matched recording.
	Timestamps bool
	// Out receives one line per copied file; nil discards them.
	Out io.Writer
}

// Stats counts copied and skipped (already present) files.
type Stats struct {
	Copied  int
	Skipped int
}

// RecordingBase returns the file name of a recording without directory and
// extension. Both slash and backslash separate directories.
func RecordingBase(path string) string {
	if i := strings.LastIndexAny(path, `/\`); i >= 0 {
		path = path[i+1:]
	}
	return strings.TrimSuffix(path, filepath.Ext(path))
}

// Copy copies every <base>_<component>.bsig in opts.InDir whose base is a
// recording of p to <opts.OutDir>/<base>.bsig. Existing targets are counted
// as skipped and left untouched.
func Copy(ctx context.Context, p *bpl.Playlist, opts Options) (Stats, error) {
	var st Stats
	if len(opts.Components) == 0 {
		return st, fmt.Errorf("bsigcopy: no component given")
	}
	out := opts.Out
	if out == nil {
		out = io.Discard
	}

	recs := make(map[string]bool, p.Len())
	for _, e := range p.Entries() {
		recs[RecordingBase(e.LocalPath())] = true
	}

	quoted := make([]string, len(opts.Components))
	for i, c := range opts.Components {
		quoted[i] = regexp.QuoteMeta(strings.ToLower(c))
	}
	pattern, err := regexp.Compile(`(?i)^(.*)_(` + strings.Join(quoted, "|") + `)\.bsig$`)
	if err != nil {
		return st, fmt.Errorf("bsigcopy: component pattern: %w", err)
	}

	if err := os.MkdirAll(opts.OutDir, 0o755); err != nil {
		return st, fmt.Errorf("bsigcopy: create output folder: %w", err)
	}
	entries, err := os.ReadDir(opts.InDir)
	if err != nil {
		return st, fmt.Errorf("bsigcopy: read input folder: %w", err)
	}

	for _, de := range entries {
		if err := ctx.Err(); err != nil {
			return st, err
		}
		m := pattern.FindStringSubmatch(de.Name())
		if m == nil || !recs[m[1]] || de.IsDir() {
			continue
		}
		base := m[1]
		if err := copyOnce(filepath.Join(opts.InDir, de.Name()), filepath.Join(opts.OutDir, base+".bsig"), de.Name(), out, &st); err != nil {
			return st, err
		}
		if !opts.Timestamps {
			continue
		}
		tname := base + tstpSuffix
		src := filepath.Join(opts.InDir, tname)
		if info, err := os.Stat(src); err != nil || info.IsDir() {
			continue
		}
		if err := copyOnce(src, filepath.Join(opts.OutDir, tname), tname, out, &st); err != nil {
			return st, err
		}
	}
	return st, nil
}

func copyOnce(src, dst, name string, out io.Writer, st *Stats) error {
	if _, err := os.Stat(dst); err == nil {
		st.Skipped++
		return nil
	}
	fmt.Fprintf(out, "copying '%s'\n", name)
	if err := copyFile(src, dst); err != nil {
		return err
	}
	st.Copied++
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("bsigcopy: open %s: %w", src, err)
	}
	defer in.Close()

	tmp, err := os.CreateTemp(filepath.Dir(dst), ".stk-tmp-*")
	if err != nil {
		return fmt.Errorf("bsigcopy: create temp: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := io.Copy(tmp, in); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("bsigcopy: copy %s: %w", src, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("bsigcopy: close temp: %w", err)
	}
	if err := os.Rename(tmpName, dst); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("bsigcopy: rename: %w", err)
	}
	return nil
}
