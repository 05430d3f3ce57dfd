package playlistservice

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/gofrs/flock"
	"github.com/starford/stk/internal/apperr"
	"github.com/starford/stk/internal/bpl"
	"github.com/starford/stk/internal/testutil"
)

func newService(t *testing.T) (*Service, string) {
	t.Helper()
	dir, store := testutil.TestLibrary(t)
	return NewService(store, testutil.TestCatalog(t)), dir
}

func TestPutAndGetPlaylist(t *testing.T) {
	svc, dir := newService(t)
	ctx := context.Background()

	entries := []bpl.Entry{
		bpl.NewEntry(`\\srv\a.rec`, bpl.Section{Start: 10, End: 20}),
		bpl.NewEntry(`\\srv\b.rec`),
	}
	d, created, err := svc.PutPlaylist(ctx, "lists/x.bpl", entries, "")
	if err != nil {
		t.Fatalf("PutPlaylist: %v", err)
	}
	if !created {
		t.Error("first put should create")
	}
	if d.Format != "xml" || !d.SupportsSections || len(d.Entries) != 2 {
		t.Errorf("detail = %+v", d)
	}
	if _, err := os.Stat(filepath.Join(dir, "lists", "x.bpl")); err != nil {
		t.Errorf("file not written: %v", err)
	}

	got, err := svc.GetPlaylist(ctx, "lists/x.bpl")
	if err != nil {
		t.Fatalf("GetPlaylist: %v", err)
	}
	if got.Checksum != d.Checksum {
		t.Errorf("checksum = %q, want %q", got.Checksum, d.Checksum)
	}
	if !reflect.DeepEqual(got.Entries[0].Sections, []bpl.Section{{Start: 10, End: 20}}) {
		t.Errorf("sections = %+v", got.Entries[0].Sections)
	}
	if got.Entries[1].Sections == nil {
		t.Error("sections should be an empty slice, not nil")
	}

	hits, err := svc.FindRecording(ctx, "B.REC", 10)
	if err != nil || len(hits) != 1 || hits[0].Playlist != "lists/x.bpl" {
		t.Errorf("FindRecording = %+v, %v", hits, err)
	}
}

func TestPutPlaylist_IfMatch(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	d, _, err := svc.PutPlaylist(ctx, "x.txt", []bpl.Entry{bpl.NewEntry("a.rec")}, "")
	if err != nil {
		t.Fatal(err)
	}
	if _, _, err := svc.PutPlaylist(ctx, "x.txt", []bpl.Entry{bpl.NewEntry("b.rec")}, "stale"); !errors.Is(err, apperr.ErrConflict) {
		t.Errorf("err = %v, want ErrConflict", err)
	}
	_, created, err := svc.PutPlaylist(ctx, "x.txt", []bpl.Entry{bpl.NewEntry("b.rec")}, d.Checksum)
	if err != nil {
		t.Fatalf("matching put: %v", err)
	}
	if created {
		t.Error("update reported as create")
	}
	if _, _, err := svc.PutPlaylist(ctx, "missing.txt", nil, "abc"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("If-Match on missing file: err = %v", err)
	}
}

func TestPutPlaylist_WaitsForWriteLock(t *testing.T) {
	svc, dir := newService(t)
	ctx := context.Background()

	other := flock.New(filepath.Join(dir, lockName))
	if err := other.Lock(); err != nil {
		t.Fatal(err)
	}

	done := make(chan error, 1)
	go func() {
		_, _, err := svc.PutPlaylist(ctx, "x.txt", []bpl.Entry{bpl.NewEntry("a.rec")}, "")
		done <- err
	}()

	select {
	case err := <-done:
		other.Unlock()
		t.Fatalf("PutPlaylist returned while another writer held the lock (err=%v)", err)
	case <-time.After(150 * time.Millisecond):
	}
	if _, err := os.Stat(filepath.Join(dir, "x.txt")); err == nil {
		t.Error("file written while another writer held the lock")
	}

	if err := other.Unlock(); err != nil {
		t.Fatal(err)
	}
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("PutPlaylist: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("PutPlaylist still blocked after the lock was released")
	}
}

func TestPutPlaylist_ConcurrentWritersSerialized(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	d, _, err := svc.PutPlaylist(ctx, "x.txt", []bpl.Entry{bpl.NewEntry("a.rec")}, "")
	if err != nil {
		t.Fatal(err)
	}

	const writers = 8
	errs := make(chan error, writers)
	for i := 0; i < writers; i++ {
		go func() {
			_, _, err := svc.PutPlaylist(ctx, "x.txt", []bpl.Entry{bpl.NewEntry("b.rec")}, d.Checksum)
			errs <- err
		}()
	}
	var ok, conflicts int
	for i := 0; i < writers; i++ {
		switch err := <-errs; {
		case err == nil:
			ok++
		case errors.Is(err, apperr.ErrConflict):
			conflicts++
		default:
			t.Errorf("PutPlaylist: %v", err)
		}
	}
	if ok != 1 || conflicts != writers-1 {
		t.Errorf("ok = %d, conflicts = %d; want exactly one writer to win", ok, conflicts)
	}
}

func TestPutPlaylist_UnknownFormat(t *testing.T) {
	svc, _ := newService(t)
	_, _, err := svc.PutPlaylist(context.Background(), "x.md", []bpl.Entry{bpl.NewEntry("a.rec")}, "")
	var fe *bpl.FormatError
	if !errors.As(err, &fe) {
		t.Errorf("err = %v, want FormatError", err)
	}
}

func TestGetPlaylist_NotFound(t *testing.T) {
	svc, _ := newService(t)
	if _, err := svc.GetPlaylist(context.Background(), "nope.bpl"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
	if _, err := svc.GetPlaylist(context.Background(), "notes.md"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("non-playlist: err = %v, want ErrNotFound", err)
	}
}

func TestDeletePlaylist(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	_, _, _ = svc.PutPlaylist(ctx, "d.ini", []bpl.Entry{bpl.NewEntry("a.rec")}, "")

	if err := svc.DeletePlaylist(ctx, "d.ini"); err != nil {
		t.Fatalf("DeletePlaylist: %v", err)
	}
	if _, total, _ := svc.ListPlaylists(ctx, 10, 0); total != 0 {
		t.Errorf("catalog still holds %d playlists", total)
	}
	if err := svc.DeletePlaylist(ctx, "d.ini"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("second delete: err = %v", err)
	}
}

func TestMovePlaylist(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	_, _, _ = svc.PutPlaylist(ctx, "a.bpl", []bpl.Entry{bpl.NewEntry("r.rec")}, "")

	if _, err := svc.MovePlaylist(ctx, "a.bpl", "b.ini"); !errors.Is(err, apperr.ErrUsage) {
		t.Errorf("format change: err = %v, want ErrUsage", err)
	}
	d, err := svc.MovePlaylist(ctx, "a.bpl", "archive/b.bpl")
	if err != nil {
		t.Fatalf("MovePlaylist: %v", err)
	}
	if d.Path != "archive/b.bpl" {
		t.Errorf("path = %q", d.Path)
	}
	got, _ := svc.PlaylistsContaining(ctx, "r.rec")
	if !reflect.DeepEqual(got, []string{"archive/b.bpl"}) {
		t.Errorf("PlaylistsContaining = %v", got)
	}
}

func TestOperate(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	_, _, _ = svc.PutPlaylist(ctx, "a.bpl", []bpl.Entry{bpl.NewEntry(`\\srv.dom.com\s\1.rec`), bpl.NewEntry(`\\srv\s\2.rec`)}, "")
	_, _, _ = svc.PutPlaylist(ctx, "b.txt", []bpl.Entry{bpl.NewEntry(`\\SRV\s\1.rec`), bpl.NewEntry(`\\srv\s\3.rec`)}, "")

	res, err := svc.Operate(ctx, OperateRequest{Op: "and", First: "a.bpl", Second: "b.txt", Output: "out/and.bpl"})
	if err != nil {
		t.Fatalf("Operate: %v", err)
	}
	if !reflect.DeepEqual(res.Entries, []string{`\\srv.dom.com\s\1.rec`}) {
		t.Errorf("and = %v", res.Entries)
	}
	if d, err := svc.GetPlaylist(ctx, "out/and.bpl"); err != nil || len(d.Entries) != 1 {
		t.Errorf("output playlist = %+v, %v", d, err)
	}

	res, err = svc.Operate(ctx, OperateRequest{Op: "and", First: "a.bpl", Second: "b.txt", Strict: true})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Entries) != 0 {
		t.Errorf("strict and = %v, want empty", res.Entries)
	}

	if _, err := svc.Operate(ctx, OperateRequest{Op: "nand", First: "a.bpl"}); !errors.Is(err, apperr.ErrUsage) {
		t.Errorf("unknown op: err = %v", err)
	}
	if _, err := svc.Operate(ctx, OperateRequest{Op: "or", First: "nope.bpl"}); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("missing input: err = %v", err)
	}
}
