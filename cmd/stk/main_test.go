package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/urfave/cli/v3"

	"github.com/starford/stk/internal/bpl"
)

type cliResult struct {
	stdout string
	stderr string
	err    error
}

// exitCode mirrors what main reports for err.
func (r cliResult) exitCode() int {
	if r.err == nil {
		return 0
	}
	var exitErr cli.ExitCoder
	if errors.As(r.err, &exitErr) {
		return exitErr.ExitCode()
	}
	return 1
}

func runCLI(t *testing.T, configPath string, args ...string) cliResult {
	t.Helper()
	if configPath == "" {
		configPath = filepath.Join(t.TempDir(), "missing.yaml")
	}
	var stdout, stderr bytes.Buffer
	cmd := newApp(&stdout, &stderr).command()
	err := cmd.Run(context.Background(), append([]string{"stk", "-c", configPath}, args...))
	return cliResult{stdout: stdout.String(), stderr: stderr.String(), err: err}
}

func writePlaylist(t *testing.T, path string, paths ...string) string {
	t.Helper()
	if err := bpl.WriteFile(path, bpl.FromPaths(paths...)); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func readPaths(t *testing.T, path string) []string {
	t.Helper()
	p, err := bpl.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile %s: %v", path, err)
	}
	return p.Paths()
}

func TestOperator_Or(t *testing.T) {
	dir := t.TempDir()
	a := writePlaylist(t, filepath.Join(dir, "a.bpl"), `\\srv.dom\share\r1.rec`, `\\srv\share\r2.rec`)
	b := writePlaylist(t, filepath.Join(dir, "b.bpl"), `\\SRV\share\r1.rec`, `\\srv\share\r3.rec`)
	out := filepath.Join(dir, "out.bpl")

	res := runCLI(t, "", "bpl-operator", "-i", a, "-i", b, "-o", out, "or")
	if res.err != nil {
		t.Fatalf("run: %v\n%s", res.err, res.stderr)
	}
	want := []string{`\\srv.dom\share\r1.rec`, `\\srv\share\r2.rec`, `\\srv\share\r3.rec`}
	if got := readPaths(t, out); !reflect.DeepEqual(got, want) {
		t.Errorf("or = %v, want %v", got, want)
	}
}

func TestOperator_PositionalSecondAndStrict(t *testing.T) {
	dir := t.TempDir()
	a := writePlaylist(t, filepath.Join(dir, "a.bpl"), `\\srv\share\r1.rec`, `\\srv\share\r2.rec`)
	b := writePlaylist(t, filepath.Join(dir, "b.bpl"), `\\SRV\share\r1.rec`)
	out := filepath.Join(dir, "out.bpl")

	if res := runCLI(t, "", "bpl-operator", "-i", a, "-o", out, "and", b); res.err != nil {
		t.Fatalf("run: %v", res.err)
	}
	if got := readPaths(t, out); !reflect.DeepEqual(got, []string{`\\srv\share\r1.rec`}) {
		t.Errorf("and = %v", got)
	}

	if res := runCLI(t, "", "bpl-operator", "-s", "-i", a, "-o", out, "and", b); res.err != nil {
		t.Fatalf("run strict: %v", res.err)
	}
	if got := readPaths(t, out); len(got) != 0 {
		t.Errorf("strict and = %v, want empty", got)
	}
}

func TestOperator_UsageErrors(t *testing.T) {
	dir := t.TempDir()
	a := writePlaylist(t, filepath.Join(dir, "a.bpl"), "r1.rec")
	out := filepath.Join(dir, "out.bpl")

	cases := map[string][]string{
		"three inputs": {"bpl-operator", "-i", a, "-i", a, "-i", a, "-o", out, "or"},
		"unknown op":   {"bpl-operator", "-i", a, "-o", out, "nand"},
		"no op":        {"bpl-operator", "-i", a, "-o", out},
		"no output":    {"bpl-operator", "-i", a, "or"},
	}
	for name, args := range cases {
		t.Run(name, func(t *testing.T) {
			res := runCLI(t, "", args...)
			if code := res.exitCode(); code != 1 {
				t.Errorf("exit code = %d, want 1 (err %v)", code, res.err)
			}
			if _, err := os.Stat(out); err == nil {
				t.Error("output written despite usage error")
			}
		})
	}
}

func TestOperator_MalformedInputIsEmpty(t *testing.T) {
	dir := t.TempDir()
	a := writePlaylist(t, filepath.Join(dir, "a.bpl"), "r1.rec", "r1.rec")
	bad := filepath.Join(dir, "bad.bpl")
	if err := os.WriteFile(bad, []byte("<Nope/>"), 0o644); err != nil {
		t.Fatal(err)
	}
	out := filepath.Join(dir, "out.bpl")

	res := runCLI(t, "", "bpl-operator", "-i", a, "-i", bad, "-o", out, "or")
	if res.err != nil {
		t.Fatalf("run: %v", res.err)
	}
	if got := readPaths(t, out); !reflect.DeepEqual(got, []string{"r1.rec"}) {
		t.Errorf("or with malformed = %v", got)
	}
	if !strings.Contains(res.stderr, "input treated as empty playlist") {
		t.Errorf("missing warning in %q", res.stderr)
	}
}

func TestDiff_RunsXor(t *testing.T) {
	dir := t.TempDir()
	a := writePlaylist(t, filepath.Join(dir, "a.bpl"), "r1.rec", "r2.rec")
	b := writePlaylist(t, filepath.Join(dir, "b.bpl"), "r2.rec", "r3.rec")
	out := filepath.Join(dir, "out.bpl")

	res := runCLI(t, "", "bpl-diff", "-i", a, "-i", b, "-o", out)
	if res.err != nil {
		t.Fatalf("run: %v", res.err)
	}
	if got := readPaths(t, out); !reflect.DeepEqual(got, []string{"r1.rec", "r3.rec"}) {
		t.Errorf("diff = %v", got)
	}
	if !strings.Contains(res.stderr, "deprecated") {
		t.Errorf("missing deprecation warning in %q", res.stderr)
	}
}

func TestGenPlaylist(t *testing.T) {
	out := filepath.Join(t.TempDir(), "gen.bpl")
	if res := runCLI(t, "", "mts-gen-playlist", "-o", out, `D:\r1.rec`, `D:\r2.rec`); res.err != nil {
		t.Fatalf("run: %v", res.err)
	}
	if got := readPaths(t, out); !reflect.DeepEqual(got, []string{`D:\r1.rec`, `D:\r2.rec`}) {
		t.Errorf("generated = %v", got)
	}
}

func TestSplitOnline_ExitCodes(t *testing.T) {
	res := runCLI(t, "", "bpl-split-online")
	if code := res.exitCode(); code != -201 {
		t.Errorf("missing -i: exit code = %d", code)
	}
	if res.err == nil || res.err.Error() != "bpl_online_offline_split error: -201" {
		t.Errorf("message = %v", res.err)
	}

	res = runCLI(t, "", "bpl-split-online", "-i", filepath.Join(t.TempDir(), "nope.bpl"))
	if code := res.exitCode(); code != -202 {
		t.Errorf("missing input: exit code = %d", code)
	}
}

func TestSplitOnline_MissingRecordings(t *testing.T) {
	dir := t.TempDir()
	rec := filepath.Join(dir, "here.rec")
	if err := os.WriteFile(rec, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	in := writePlaylist(t, filepath.Join(dir, "list.bpl"), rec, filepath.Join(dir, "gone.rec"))

	res := runCLI(t, "", "bpl-split-online", "-i", in)
	if code := res.exitCode(); code != -203 {
		t.Errorf("exit code = %d, want -203", code)
	}
	if got := readPaths(t, filepath.Join(dir, "list_online.bpl")); !reflect.DeepEqual(got, []string{rec}) {
		t.Errorf("online = %v", got)
	}
	if !strings.Contains(res.stdout, "FileNotAvailable:") {
		t.Errorf("stdout = %q", res.stdout)
	}
}

func TestBplSplit_TaskSize(t *testing.T) {
	dir := t.TempDir()
	in := writePlaylist(t, filepath.Join(dir, "in.bpl"), "r1.rec", "r2.rec", "r3.rec")
	outDir := filepath.Join(dir, "tasks")

	res := runCLI(t, "", "bpl-split", "-i", in, "--task-size", "2", "-o", outDir)
	if res.err != nil {
		t.Fatalf("run: %v", res.err)
	}
	if got := readPaths(t, filepath.Join(outDir, "T00002.bpl")); !reflect.DeepEqual(got, []string{"r3.rec"}) {
		t.Errorf("T00002 = %v", got)
	}

	res = runCLI(t, "", "bpl-split", "-i", in, "--task-size", "2", "--single")
	if code := res.exitCode(); code != 1 {
		t.Errorf("two modes: exit code = %d", code)
	}
}

func TestConvert_IniToBpl(t *testing.T) {
	dir := t.TempDir()
	in := writePlaylist(t, filepath.Join(dir, "in.ini"), `\\srv\a.rec`, `\\srv\b.rec`)
	out := filepath.Join(dir, "out.bpl")

	if res := runCLI(t, "", "bpl-convert", "-i", in, "-o", out); res.err != nil {
		t.Fatalf("run: %v", res.err)
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "<BatchList>") {
		t.Errorf("output is not a BatchList: %s", data)
	}
	if got := readPaths(t, out); !reflect.DeepEqual(got, []string{`\\srv\a.rec`, `\\srv\b.rec`}) {
		t.Errorf("converted = %v", got)
	}
}

func TestFromFolder(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"a.rec", "b.rrec", "c.txt"} {
		if err := os.WriteFile(filepath.Join(dir, name), nil, 0o644); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.MkdirAll(filepath.Join(dir, "sub"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "sub", "d.rec"), nil, 0o644); err != nil {
		t.Fatal(err)
	}
	out := filepath.Join(t.TempDir(), "folder.bpl")

	res := runCLI(t, "", "bpl-from-folder", "-f", dir, "-p", "*.rec;*.rrec", "-b", out)
	if res.err != nil {
		t.Fatalf("run: %v", res.err)
	}
	if !strings.Contains(res.stdout, "2 files written to '"+out+"'") {
		t.Errorf("stdout = %q", res.stdout)
	}

	res = runCLI(t, "", "bpl-from-folder", "-f", dir, "-p", "*.rec", "-r", "-b", out)
	if res.err != nil {
		t.Fatalf("run recursive: %v", res.err)
	}
	want := []string{filepath.Join(dir, "a.rec"), filepath.Join(dir, "sub", "d.rec")}
	if got := readPaths(t, out); !reflect.DeepEqual(got, want) {
		t.Errorf("recursive = %v, want %v", got, want)
	}
}

func TestFromFolder_EmptyAndMissing(t *testing.T) {
	out := filepath.Join(t.TempDir(), "folder.bpl")
	res := runCLI(t, "", "bpl-from-folder", "-f", t.TempDir(), "-b", out)
	if res.err != nil {
		t.Fatalf("run: %v", res.err)
	}
	if _, err := os.Stat(out); err == nil {
		t.Error("empty result should not write a playlist")
	}

	res = runCLI(t, "", "bpl-from-folder", "-f", filepath.Join(t.TempDir(), "nope"), "-b", out)
	if code := res.exitCode(); code != 255 {
		t.Errorf("missing folder: exit code = %d", code)
	}
}

func TestFind(t *testing.T) {
	in := writePlaylist(t, filepath.Join(t.TempDir(), "in.bpl"), `\\srv\Cont_1.rec`, `\\srv\other.rec`, `\\srv\Cont_2.rec`)
	res := runCLI(t, "", "bpl-find", "-b", in, "-r", "Cont_")
	if res.err != nil {
		t.Fatalf("run: %v", res.err)
	}
	if want := "recording 'Cont_' could match at indices 0, 2\n"; res.stdout != want {
		t.Errorf("stdout = %q, want %q", res.stdout, want)
	}
}
