// Package objconv derives object records from per-sample lifecycle state
// signals. Every lane of a lifecycle signal group is scanned for contiguous
// alive intervals; intervals long enough are sorted by start sample and can
// then be materialized into records holding the object's signal slices.
package objconv

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/starford/stk/internal/signal"
)

// Interval is one detected object lifetime within a lane.
type Interval struct {
	Start  int `yaml:"start" json:"start"`
	Length int `yaml:"length" json:"length"`
	Lane   int `yaml:"lane" json:"lane"`
}

// Record is one materialized object.
type Record struct {
	ObjectID   int                  `yaml:"object_id" json:"object_id"`
	StartIndex int                  `yaml:"start_index" json:"start_index"`
	Lifetime   int                  `yaml:"lifetime" json:"lifetime"`
	Lane       int                  `yaml:"lane" json:"lane"`
	StartTime  float64              `yaml:"start_time" json:"start_time"`
	Timestamps []float64            `yaml:"timestamps" json:"timestamps"`
	OOIHistory []float64            `yaml:"ooi_history" json:"ooi_history"`
	Relevant   []int                `yaml:"relevant" json:"relevant"`
	Fields     map[string][]float64 `yaml:"fields" json:"fields"`
}

// Converter scans lifecycle lanes once and converts intervals to records.
type Converter struct {
	minLife       int
	relevantLane  int
	timestampName string
	aoj           *AOJ
	logger        *slog.Logger

	provider   signal.Provider
	intervals  []Interval
	timestamps []float64
	aojMapping [][]float64
}

// New creates a Converter.
func New(opts ...Option) *Converter {
	c := &Converter{
		minLife:      DefaultMinLifetime,
		relevantLane: DefaultRelevantLane,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// lifecycle codes
const (
	codeEnd      = 0
	codeNew      = 1
	codeMeasured = 2
	codePredict  = 3
	codeDeleted  = 4
	codeMerged   = 5
)

// Scan runs the lifecycle state machine over one lane and returns the
// intervals of at least minLife samples in discovery order.
func Scan(values []float64, lane, minLife int) []Interval {
	var (
		out    []Interval
		open   bool
		start  int
		length int
	)
	closeInterval := func() {
		if open && length >= minLife {
			out = append(out, Interval{Start: start, Length: length, Lane: lane})
		}
		open, length = false, 0
	}
	for k, v := range values {
		switch int(v) {
		case codeNew, codeMerged:
			if !open {
				open, start, length = true, k, 1
			}
		case codeMeasured, codePredict:
			if open {
				length++
			}
		case codeEnd, codeDeleted:
			closeInterval()
		}
	}
	closeInterval()
	return out
}

// Init scans every lane of the lifecycle template (lanes 0, 1, ... up to the
// first missing one) and returns the number of retained intervals. It also
// resolves the timestamp signal and the cross reference lanes when set.
func (c *Converter) Init(p signal.Provider, lifecycle string) (int, error) {
	c.provider = p
	c.intervals = nil
	c.timestamps = nil
	c.aojMapping = nil

	if c.aoj != nil && c.aoj.Mapping != "" {
		lanes, err := signal.Lanes(p, c.aoj.Mapping)
		if err != nil {
			return 0, fmt.Errorf("objconv: resolve mapping: %w", err)
		}
		c.aojMapping = lanes
	}

	if c.timestampName != "" {
		ts, err := signal.Resolve(p, c.timestampName)
		if err != nil {
			return 0, fmt.Errorf("objconv: resolve timestamp: %w", err)
		}
		c.timestamps = ts
	}

	lanes, err := signal.Lanes(p, lifecycle)
	if err != nil {
		return 0, fmt.Errorf("objconv: resolve lifecycle: %w", err)
	}
	for lane, values := range lanes {
		found := Scan(values, lane, c.minLife)
		c.logger.Debug("objconv: lane scanned",
			slog.Int("lane", lane),
			slog.Int("samples", len(values)),
			slog.Int("intervals", len(found)))
		c.intervals = append(c.intervals, found...)
	}
	sort.SliceStable(c.intervals, func(i, j int) bool {
		return c.intervals[i].Start < c.intervals[j].Start
	})
	return len(c.intervals), nil
}

// Intervals returns the sorted intervals found by Init.
func (c *Converter) Intervals() []Interval {
	return append([]Interval(nil), c.intervals...)
}

// Convert materializes the object at idx. Each requested signal template is
// expanded with the object's lane; a missing signal is an error.
func (c *Converter) Convert(idx int, signals []SignalSpec) (*Record, error) {
	if c.provider == nil {
		return nil, fmt.Errorf("objconv: Init was not called")
	}
	if idx < 0 || idx >= len(c.intervals) {
		return nil, fmt.Errorf("objconv: object %d out of range [0, %d)", idx, len(c.intervals))
	}
	iv := c.intervals[idx]

	rec := &Record{
		ObjectID:   idx,
		StartIndex: iv.Start,
		Lifetime:   iv.Length,
		Lane:       iv.Lane,
		Timestamps: signal.Slice(c.timestamps, iv.Start, iv.Length),
		OOIHistory: []float64{},
		Relevant:   make([]int, iv.Length),
		Fields:     make(map[string][]float64, len(signals)),
	}
	if iv.Start < len(c.timestamps) {
		rec.StartTime = c.timestamps[iv.Start]
	}

	for _, s := range signals {
		if err := c.fill(rec, s, iv.Lane); err != nil {
			return nil, err
		}
	}

	if mapIdx, ok := c.crossReference(iv); ok {
		for _, s := range c.aoj.Signals {
			if err := c.fill(rec, s, mapIdx); err != nil {
				return nil, err
			}
		}
	}

	for pos := iv.Start; pos < iv.Start+iv.Length; pos++ {
		if pos > 10 && iv.Lane == c.relevantLane {
			rec.Relevant[pos-iv.Start] = 1
		}
	}
	return rec, nil
}

func (c *Converter) fill(rec *Record, s SignalSpec, lane int) error {
	values, err := signal.Resolve(c.provider, signal.Expand(s.Name, lane))
	if err != nil {
		return fmt.Errorf("objconv: object %d: %w", rec.ObjectID, err)
	}
	rec.Fields[s.Port] = signal.Slice(values, rec.StartIndex, rec.Lifetime)
	return nil
}

// crossReference returns the additional list index recorded for iv, if any
// and within the configured list size.
func (c *Converter) crossReference(iv Interval) (int, bool) {
	if c.aoj == nil || iv.Lane >= len(c.aojMapping) {
		return 0, false
	}
	mapping := c.aojMapping[iv.Lane]
	if iv.Start >= len(mapping) {
		return 0, false
	}
	idx := int(mapping[iv.Start])
	if idx < 0 || idx >= c.aoj.ListSize {
		return 0, false
	}
	return idx, true
}
