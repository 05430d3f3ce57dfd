package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"strings"
	"testing"

	"github.com/starford/stk/internal/bpl"
	"github.com/starford/stk/internal/bsig"
	"github.com/starford/stk/internal/objconv"
)

func writeBsig(t *testing.T, path string, signals map[string][]float64) {
	t.Helper()
	w := bsig.NewWriter(64, false)
	names := make([]string, 0, len(signals))
	for name := range signals {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := w.Add(name, bsig.F64, 1, signals[name]); err != nil {
			t.Fatalf("Add %s: %v", name, err)
		}
	}
	if err := w.WriteFile(path); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
}

func TestBsigExtract(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in.bsig")
	writeBsig(t, in, map[string][]float64{
		"SIM.Obj.dx":  {1, 2, 3},
		"SIM.Obj.dy":  {4, 5, 6},
		"SIM.Ego.vel": {7, 8, 9},
	})

	res := runCLI(t, "", "bsig-extract", "-i", in)
	if res.err != nil {
		t.Fatalf("list: %v", res.err)
	}
	for _, name := range []string{"SIM.Obj.dx", "SIM.Ego.vel", bsig.F64.String()} {
		if !strings.Contains(res.stdout, name) {
			t.Errorf("listing misses %q:\n%s", name, res.stdout)
		}
	}

	out := filepath.Join(dir, "out.bsig")
	res = runCLI(t, "", "bsig-extract", "-i", in, "-o", out, "-s", "SIM.Obj.*")
	if res.err != nil {
		t.Fatalf("extract: %v", res.err)
	}
	f, err := bsig.Open(out)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer f.Close()
	if got := f.Names(); !reflect.DeepEqual(got, []string{"SIM.Obj.dx", "SIM.Obj.dy"}) {
		t.Errorf("names = %v", got)
	}
	v, ok, err := f.Lookup("SIM.Obj.dy")
	if err != nil || !ok || !reflect.DeepEqual(v, []float64{4, 5, 6}) {
		t.Errorf("dy = %v (ok %v, err %v)", v, ok, err)
	}

	res = runCLI(t, "", "bsig-extract", "-i", in, "-o", filepath.Join(dir, "none.bsig"), "-s", "nothing*")
	if code := res.exitCode(); code != 1 {
		t.Errorf("no match: exit code = %d", code)
	}
}

func TestBsigCopy(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "sim")
	if err := os.MkdirAll(in, 0o755); err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"rec1_em.bsig", "rec1_tstp.bsig", "rec2_em.bsig"} {
		if err := os.WriteFile(filepath.Join(in, name), []byte(name), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	list := writePlaylist(t, filepath.Join(dir, "list.bpl"), `\\srv\rec1.rec`)
	out := filepath.Join(dir, "out")

	res := runCLI(t, "", "bsig-copy", "-b", list, "-i", in, "-o", out, "-c", "EM", "-t")
	if res.err != nil {
		t.Fatalf("run: %v", res.err)
	}
	if !strings.Contains(res.stdout, "done, copied 2 file(s), skipped 0 file(s)") {
		t.Errorf("stdout = %q", res.stdout)
	}
	if _, err := os.Stat(filepath.Join(out, "rec2.bsig")); err == nil {
		t.Error("recording outside the playlist copied")
	}
}

func lifecycle(alive int) []float64 {
	v := make([]float64, 0, alive+2)
	v = append(v, 1)
	for i := 1; i < alive; i++ {
		v = append(v, 2)
	}
	return append(v, 0, 0)
}

func TestObjects(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "rec.bsig")
	writeBsig(t, in, map[string][]float64{
		"Obj[0].eLifeCycle": lifecycle(12),
		"Obj[1].eLifeCycle": lifecycle(3),
	})
	out := filepath.Join(dir, "objects.json")

	res := runCLI(t, "", "objects", "-i", in, "-o", out)
	if res.err != nil {
		t.Fatalf("run: %v\n%s", res.err, res.stderr)
	}
	if !strings.Contains(res.stdout, "1 object(s)") {
		t.Errorf("stdout = %q", res.stdout)
	}

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	var records []objconv.Record
	if err := json.Unmarshal(data, &records); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(records) != 1 || records[0].Lifetime != 12 || records[0].Lane != 0 {
		t.Errorf("records = %+v", records)
	}

	res = runCLI(t, "", "objects", "-i", in, "--min-life", "3")
	if res.err != nil {
		t.Fatalf("run min-life: %v", res.err)
	}
	if !strings.Contains(res.stdout, "2 object(s)") {
		t.Errorf("min-life 3 stdout = %q", res.stdout)
	}
}

func TestObjects_UnsupportedOutput(t *testing.T) {
	in := filepath.Join(t.TempDir(), "rec.bsig")
	writeBsig(t, in, map[string][]float64{"Obj[0].eLifeCycle": lifecycle(12)})
	res := runCLI(t, "", "objects", "-i", in, "-o", filepath.Join(t.TempDir(), "objects.csv"))
	if code := res.exitCode(); code != 1 {
		t.Errorf("exit code = %d, want 1", code)
	}
}

func TestCatalogCommands(t *testing.T) {
	dir := t.TempDir()
	lib := filepath.Join(dir, "lib")
	if err := os.MkdirAll(lib, 0o755); err != nil {
		t.Fatal(err)
	}
	writePlaylist(t, filepath.Join(lib, "a.bpl"), `\\srv\Cont_1.rec`, `\\srv\other.rec`)
	if err := bpl.WriteFile(filepath.Join(lib, "b.txt"), bpl.FromPaths(`\\SRV.dom\Cont_1.rec`)); err != nil {
		t.Fatal(err)
	}

	cfgPath := filepath.Join(dir, "config.yaml")
	cfg := "library:\n  path: " + lib + "\nsqlite:\n  path: " + filepath.Join(dir, "stk.db") + "\n"
	if err := os.WriteFile(cfgPath, []byte(cfg), 0o644); err != nil {
		t.Fatal(err)
	}

	res := runCLI(t, cfgPath, "catalog", "sync")
	if res.err != nil {
		t.Fatalf("sync: %v\n%s", res.err, res.stderr)
	}
	if !strings.Contains(res.stdout, "indexed 2, removed 0, failed 0") {
		t.Errorf("sync stdout = %q", res.stdout)
	}

	res = runCLI(t, cfgPath, "catalog", "find", "cont_1")
	if res.err != nil {
		t.Fatalf("find: %v", res.err)
	}
	if !strings.Contains(res.stdout, "a.bpl") || !strings.Contains(res.stdout, "b.txt") {
		t.Errorf("find stdout = %q", res.stdout)
	}

	res = runCLI(t, cfgPath, "catalog", "containing", `\\srv\cont_1.rec`)
	if res.err != nil {
		t.Fatalf("containing: %v", res.err)
	}
	if res.stdout != "a.bpl\nb.txt\n" {
		t.Errorf("containing stdout = %q", res.stdout)
	}
}
