package objconv

import (
	"log/slog"
	"strings"
)

const (
	// DefaultMinLifetime is the minimum number of alive samples an object
	// needs to be kept.
	DefaultMinLifetime = 10
	// DefaultRelevantLane is the legacy lane number whose samples are flagged relevant.
	DefaultRelevantLane = 255
)

// SignalSpec names a signal template and the record field it is stored under.
type SignalSpec struct {
	Name string `yaml:"name" json:"name"`
	Port string `yaml:"port" json:"port"`
}

// AOJ configures the additional object list cross reference. Mapping is the
// lane template of the signal holding, at an object's start sample, the
// index into the additional list. Signal names starting with "." are
// prefixed with Prefix.
type AOJ struct {
	ListSize int          `yaml:"list_size" json:"list_size"`
	Mapping  string       `yaml:"mapping" json:"mapping"`
	Prefix   string       `yaml:"prefix" json:"prefix"`
	Signals  []SignalSpec `yaml:"signals" json:"signals"`
}

// Option is a functional option for configuring a Converter.
type Option func(*Converter)

// WithMinLifetime sets the minimum lifetime in samples.
func WithMinLifetime(n int) Option {
	return func(c *Converter) {
		c.minLife = n
	}
}

// WithRelevantLane sets the lane whose samples after index 10 are flagged relevant.
func WithRelevantLane(lane int) Option {
	return func(c *Converter) {
		c.relevantLane = lane
	}
}

// WithTimestamp sets the name of the timestamp signal.
func WithTimestamp(name string) Option {
	return func(c *Converter) {
		c.timestampName = name
	}
}

// WithAOJ enables the additional object list cross reference.
func WithAOJ(aoj AOJ) Option {
	return func(c *Converter) {
		signals := make([]SignalSpec, len(aoj.Signals))
		for i, s := range aoj.Signals {
			if strings.HasPrefix(s.Name, ".") {
				s.Name = aoj.Prefix + s.Name
			}
			signals[i] = s
		}
		aoj.Signals = signals
		c.aoj = &aoj
	}
}

// WithLogger sets the logger. A nil logger keeps the default.
func WithLogger(l *slog.Logger) Option {
	return func(c *Converter) {
		if l != nil {
			c.logger = l
		}
	}
}
