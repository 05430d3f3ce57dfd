// Package signal defines how measurement signals are looked up by name.
package signal

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// ErrNotFound is returned when a requested signal does not exist.
var ErrNotFound = errors.New("signal not found")

// Provider resolves signal names to per-sample values.
//
// Lookup reports ok == false for an unknown name without an error; err is
// reserved for read failures. Callers enumerating lanes stop at the first
// name that is not found.
type Provider interface {
	Lookup(name string) (values []float64, ok bool, err error)
}

// Lister is implemented by providers that can enumerate their signals.
type Lister interface {
	Names() []string
}

// Resolve returns the values of name and fails with ErrNotFound when the
// provider does not know it.
func Resolve(p Provider, name string) ([]float64, error) {
	values, ok, err := p.Lookup(name)
	if err != nil {
		return nil, fmt.Errorf("signal: resolve %s: %w", name, err)
	}
	if !ok {
		return nil, fmt.Errorf("signal: %s: %w", name, ErrNotFound)
	}
	return values, nil
}

// Expand substitutes idx into a lane template. Both the "%d" and the bare
// "%" placeholder are accepted; a template without placeholder is returned
// unchanged.
func Expand(template string, idx int) string {
	n := strconv.Itoa(idx)
	if strings.Contains(template, "%d") {
		return strings.Replace(template, "%d", n, 1)
	}
	return strings.Replace(template, "%", n, 1)
}

// Lanes resolves template for lanes 0, 1, 2, ... and stops at the first
// missing lane. A missing lane 0 yields no lanes and no error.
func Lanes(p Provider, template string) ([][]float64, error) {
	var out [][]float64
	for i := 0; ; i++ {
		name := Expand(template, i)
		values, ok, err := p.Lookup(name)
		if err != nil {
			return nil, fmt.Errorf("signal: lane %s: %w", name, err)
		}
		if !ok {
			return out, nil
		}
		out = append(out, values)
		if name == template {
			// a template without placeholder names a single lane
			return out, nil
		}
	}
}

// Slice returns values[start:start+length] clamped to the available samples.
func Slice(values []float64, start, length int) []float64 {
	if start < 0 {
		start = 0
	}
	if start >= len(values) || length <= 0 {
		return []float64{}
	}
	end := min(start+length, len(values))
	return append([]float64(nil), values[start:end]...)
}

// Memory is an in-memory Provider keyed by signal name.
type Memory map[string][]float64

func (m Memory) Lookup(name string) ([]float64, bool, error) {
	v, ok := m[name]
	return v, ok, nil
}

func (m Memory) Names() []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
