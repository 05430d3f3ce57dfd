package objconv

import (
	"errors"
	"reflect"
	"testing"

	"github.com/starford/stk/internal/signal"
)

func lane(codes ...float64) []float64 { return codes }

func TestScan_Boundary(t *testing.T) {
	got := Scan(lane(1, 2, 3, 0), 0, 3)
	want := []Interval{{Start: 0, Length: 3, Lane: 0}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("min 3: got %+v, want %+v", got, want)
	}
	if got := Scan(lane(1, 2, 3, 0), 0, 4); len(got) != 0 {
		t.Errorf("min 4: got %+v, want none", got)
	}
}

func TestScan_OpenAtEndIsClosed(t *testing.T) {
	got := Scan(lane(1, 2, 2, 2), 0, 3)
	if len(got) != 1 || got[0].Length != 4 {
		t.Errorf("got %+v, want one interval of length 4", got)
	}
}

func TestScan_RearmWhileAliveIsIgnored(t *testing.T) {
	got := Scan(lane(0, 1, 2, 5, 2, 1, 4, 2, 2), 7, 1)
	want := []Interval{{Start: 1, Length: 3, Lane: 7}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %+v, want %+v", got, want)
	}
}

func TestScan_ContinueWithoutOpenIsIgnored(t *testing.T) {
	got := Scan(lane(2, 3, 2, 0, 1, 3, 4), 0, 1)
	want := []Interval{{Start: 4, Length: 2, Lane: 0}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %+v, want %+v", got, want)
	}
}

func TestInit_MultiLaneOrdering(t *testing.T) {
	l0 := make([]float64, 60)
	l1 := make([]float64, 60)
	for i := 50; i < 55; i++ {
		l0[i] = 2
	}
	l0[50] = 1
	for i := 10; i < 15; i++ {
		l1[i] = 2
	}
	l1[10] = 1
	p := signal.Memory{"Obj[0].eLifeCycle": l0, "Obj[1].eLifeCycle": l1}

	c := New(WithMinLifetime(3))
	n, err := c.Init(p, "Obj[%d].eLifeCycle")
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	if n != 2 {
		t.Fatalf("n = %d, want 2", n)
	}
	iv := c.Intervals()
	if iv[0].Lane != 1 || iv[0].Start != 10 || iv[1].Lane != 0 || iv[1].Start != 50 {
		t.Errorf("intervals = %+v", iv)
	}
}

func TestInit_MissingLaneZero(t *testing.T) {
	c := New()
	n, err := c.Init(signal.Memory{"Obj[1].eLifeCycle": {1, 2, 2}}, "Obj[%d].eLifeCycle")
	if err != nil || n != 0 {
		t.Errorf("n = %d, err = %v", n, err)
	}
}

func TestInit_MissingTimestampIsError(t *testing.T) {
	c := New(WithTimestamp("ts"))
	if _, err := c.Init(signal.Memory{}, "L[%d]"); !errors.Is(err, signal.ErrNotFound) {
		t.Errorf("err = %v, want signal.ErrNotFound", err)
	}
}

func TestConvert_Record(t *testing.T) {
	ts := []float64{100, 101, 102, 103, 104, 105}
	p := signal.Memory{
		"ts":      ts,
		"LC[0]":   {0, 1, 2, 2, 0, 0},
		"Dist[0]": {9, 10, 11, 12, 13, 14},
	}
	c := New(WithMinLifetime(2), WithTimestamp("ts"))
	if _, err := c.Init(p, "LC[%]"); err != nil {
		t.Fatalf("Init: %v", err)
	}
	rec, err := c.Convert(0, []SignalSpec{{Name: "Dist[%]", Port: "fDistX"}})
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}
	if rec.ObjectID != 0 || rec.StartIndex != 1 || rec.Lifetime != 3 || rec.Lane != 0 {
		t.Errorf("record header = %+v", rec)
	}
	if rec.StartTime != 101 {
		t.Errorf("start time = %v, want 101", rec.StartTime)
	}
	if !reflect.DeepEqual(rec.Timestamps, []float64{101, 102, 103}) {
		t.Errorf("timestamps = %v", rec.Timestamps)
	}
	if !reflect.DeepEqual(rec.Fields["fDistX"], []float64{10, 11, 12}) {
		t.Errorf("fDistX = %v", rec.Fields["fDistX"])
	}
	if !reflect.DeepEqual(rec.Relevant, []int{0, 0, 0}) {
		t.Errorf("relevant = %v", rec.Relevant)
	}
	if rec.OOIHistory == nil || len(rec.OOIHistory) != 0 {
		t.Errorf("ooi history = %v, want empty", rec.OOIHistory)
	}

	if _, err := c.Convert(0, []SignalSpec{{Name: "Missing[%d]", Port: "x"}}); !errors.Is(err, signal.ErrNotFound) {
		t.Errorf("err = %v, want signal.ErrNotFound", err)
	}
	if _, err := c.Convert(1, nil); err == nil {
		t.Error("expected error for index out of range")
	}
}

func TestConvert_RelevantLane(t *testing.T) {
	lc := make([]float64, 20)
	lc[8] = 1
	for i := 9; i < 14; i++ {
		lc[i] = 2
	}
	c := New(WithMinLifetime(1), WithRelevantLane(0))
	if _, err := c.Init(signal.Memory{"LC[0]": lc}, "LC[%d]"); err != nil {
		t.Fatalf("Init: %v", err)
	}
	rec, err := c.Convert(0, nil)
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}
	// samples 8..13, flagged only above index 10
	want := []int{0, 0, 0, 1, 1, 1}
	if !reflect.DeepEqual(rec.Relevant, want) {
		t.Errorf("relevant = %v, want %v", rec.Relevant, want)
	}
}

func TestConvert_AdditionalObjectList(t *testing.T) {
	p := signal.Memory{
		"LC[0]":           {1, 2, 0, 1, 2, 0},
		"LC[1]":           {0, 0, 1, 2, 2, 0},
		"Map[0]":          {2, 2, 2, 9, 9, 9},
		"Map[1]":          {0, 0, 1, 1, 1, 1},
		"Aoj[1].Width":    {7, 7, 7, 7, 7, 7},
		"Aoj[2].Width":    {5, 6, 7, 8, 9, 10},
		"Aoj.Prefix[1].H": {0, 0, 0, 0, 0, 0},
		"Aoj.Prefix[2].H": {1, 1, 1, 1, 1, 1},
	}
	c := New(WithMinLifetime(2), WithAOJ(AOJ{
		ListSize: 4,
		Mapping:  "Map[%d]",
		Prefix:   "Aoj.Prefix[%]",
		Signals: []SignalSpec{
			{Name: "Aoj[%].Width", Port: "width"},
			{Name: ".H", Port: "height"},
		},
	}))
	n, err := c.Init(p, "LC[%d]")
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	if n != 3 {
		t.Fatalf("n = %d, want 3", n)
	}

	// lane 0 at 0 maps to additional index 2
	rec, err := c.Convert(0, nil)
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}
	if !reflect.DeepEqual(rec.Fields["width"], []float64{5, 6}) {
		t.Errorf("width = %v", rec.Fields["width"])
	}
	if !reflect.DeepEqual(rec.Fields["height"], []float64{1, 1}) {
		t.Errorf("height = %v", rec.Fields["height"])
	}

	// lane 0 at 3 maps to 9, outside the list: no cross reference
	var skipped *Record
	for i := 0; i < n; i++ {
		r, err := c.Convert(i, nil)
		if err != nil {
			t.Fatalf("Convert(%d): %v", i, err)
		}
		if r.Lane == 0 && r.StartIndex == 3 {
			skipped = r
		}
	}
	if skipped == nil {
		t.Fatal("interval at 3 not found")
	}
	if _, ok := skipped.Fields["width"]; ok {
		t.Errorf("out of range cross reference should be skipped, fields = %v", skipped.Fields)
	}
}
