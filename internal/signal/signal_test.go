package signal

import (
	"errors"
	"testing"
)

func TestExpand(t *testing.T) {
	cases := []struct {
		tpl  string
		idx  int
		want string
	}{
		{"Obj[%d].LifeCycle", 3, "Obj[3].LifeCycle"},
		{"Obj[%].LifeCycle", 12, "Obj[12].LifeCycle"},
		{"Timestamp", 1, "Timestamp"},
	}
	for _, c := range cases {
		if got := Expand(c.tpl, c.idx); got != c.want {
			t.Errorf("Expand(%q, %d) = %q, want %q", c.tpl, c.idx, got, c.want)
		}
	}
}

func TestResolve_NotFound(t *testing.T) {
	_, err := Resolve(Memory{}, "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestLanes_StopsAtFirstGap(t *testing.T) {
	m := Memory{
		"L[0]": {1},
		"L[1]": {2},
		"L[3]": {4},
	}
	lanes, err := Lanes(m, "L[%d]")
	if err != nil {
		t.Fatalf("Lanes: %v", err)
	}
	if len(lanes) != 2 {
		t.Errorf("lanes = %d, want 2", len(lanes))
	}

	lanes, err = Lanes(Memory{"L[1]": {1}}, "L[%d]")
	if err != nil || len(lanes) != 0 {
		t.Errorf("missing lane 0: lanes = %d, err = %v", len(lanes), err)
	}
}

func TestSlice(t *testing.T) {
	v := []float64{0, 1, 2, 3, 4}
	if got := Slice(v, 1, 3); len(got) != 3 || got[0] != 1 || got[2] != 3 {
		t.Errorf("Slice = %v", got)
	}
	if got := Slice(v, 3, 10); len(got) != 2 {
		t.Errorf("clamped Slice = %v", got)
	}
	if got := Slice(v, 9, 2); len(got) != 0 {
		t.Errorf("out of range Slice = %v", got)
	}
}
