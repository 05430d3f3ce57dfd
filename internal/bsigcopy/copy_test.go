package bsigcopy

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/starford/stk/internal/bpl"
)

func touch(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestRecordingBase(t *testing.T) {
	cases := map[string]string{
		`\\srv\share\Continuous_2014.rec`: "Continuous_2014",
		"/data/rec_1.rrec":                "rec_1",
		"plain":                           "plain",
	}
	for in, want := range cases {
		if got := RecordingBase(in); got != want {
			t.Errorf("RecordingBase(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestCopy(t *testing.T) {
	in := t.TempDir()
	out := filepath.Join(t.TempDir(), "out")
	touch(t, in, "rec1_EM.bsig", "em1")
	touch(t, in, "rec1_tstp.bsig", "ts1")
	touch(t, in, "rec2_em.bsig", "em2")
	touch(t, in, "rec2_FCT.bsig", "fct2")
	touch(t, in, "rec3_EM.bsig", "not listed")

	p := bpl.FromPaths(`\\srv\share\rec1.rec`, `D:\rec2.rec`)
	var log bytes.Buffer
	st, err := Copy(context.Background(), p, Options{
		InDir:      in,
		OutDir:     out,
		Components: []string{"em"},
		Timestamps: true,
		Out:        &log,
	})
	if err != nil {
		t.Fatalf("Copy: %v", err)
	}
	if st.Copied != 3 || st.Skipped != 0 {
		t.Errorf("stats = %+v, want 3 copied", st)
	}
	got, err := os.ReadFile(filepath.Join(out, "rec1.bsig"))
	if err != nil || string(got) != "em1" {
		t.Errorf("rec1.bsig = %q, err %v", got, err)
	}
	if _, err := os.Stat(filepath.Join(out, "rec1_tstp.bsig")); err != nil {
		t.Errorf("timestamp file not copied: %v", err)
	}
	if _, err := os.Stat(filepath.Join(out, "rec3.bsig")); err == nil {
		t.Error("unlisted recording copied")
	}
	if !strings.Contains(log.String(), "copying 'rec2_em.bsig'") {
		t.Errorf("log = %q", log.String())
	}

	st, err = Copy(context.Background(), p, Options{InDir: in, OutDir: out, Components: []string{"em"}, Timestamps: true})
	if err != nil {
		t.Fatalf("second Copy: %v", err)
	}
	if st.Copied != 0 || st.Skipped != 3 {
		t.Errorf("second run stats = %+v, want 3 skipped", st)
	}
}

func TestCopy_EscapedRecordingName(t *testing.T) {
	in := t.TempDir()
	out := filepath.Join(t.TempDir(), "out")
	touch(t, in, "a&b_em.bsig", "em")

	p, err := bpl.XML{}.Decode(strings.NewReader(`<BatchList><BatchEntry fileName="D:\a&amp;b.rec"/></BatchList>`))
	if err != nil {
		t.Fatal(err)
	}
	st, err := Copy(context.Background(), p, Options{InDir: in, OutDir: out, Components: []string{"em"}})
	if err != nil {
		t.Fatalf("Copy: %v", err)
	}
	if st.Copied != 1 {
		t.Errorf("stats = %+v, want 1 copied", st)
	}
	if _, err := os.Stat(filepath.Join(out, "a&b.bsig")); err != nil {
		t.Errorf("a&b.bsig not copied: %v", err)
	}
}

func TestCopy_NoComponent(t *testing.T) {
	if _, err := Copy(context.Background(), bpl.New(), Options{InDir: t.TempDir(), OutDir: t.TempDir()}); err == nil {
		t.Error("expected error without components")
	}
}
