package bpl

import (
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/text/cases"
)

// Op is a set operation over two playlists.
type Op string

const (
	OpXor Op = "xor" // files in exactly one input
	OpOr  Op = "or"  // files in either input
	OpAnd Op = "and" // files in both inputs
	OpSub Op = "sub" // files in the first input only
)

// Ops lists the supported operations in help order.
var Ops = []Op{OpXor, OpOr, OpAnd, OpSub}

// ParseOp converts a command-line operator name.
func ParseOp(s string) (Op, error) {
	op := Op(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Ops {
		if op == known {
			return op, nil
		}
	}
	return "", fmt.Errorf("bpl: unknown operator %q (want xor, or, and, sub)", s)
}

var uncRe = regexp.MustCompile(`(?i)^(\\\\\w*)(\.[\w.]*)?(\\.*)`)

// NormalizePath returns the comparison form of a recording path: the domain
// qualifier after a UNC server name is dropped and the result is case
// folded, so \\server.domain.com\share\a.rec equals \\SERVER\share\a.rec.
func NormalizePath(path string) string {
	if m := uncRe.FindStringSubmatch(path); m != nil {
		path = m[1] + m[3]
	}
	return cases.Fold().String(path)
}

// Apply computes op over a and b. The result keeps the first spelling of
// each recording in input order, holds no duplicates and drops sections.
// Without strict, paths are compared in their normalized form.
func Apply(op Op, a, b *Playlist, strict bool) (*Playlist, error) {
	key := NormalizePath
	if strict {
		key = func(s string) string { return s }
	}

	switch op {
	case OpOr:
		return collect(key, nil, a, b), nil
	case OpAnd:
		inB := keys(key, b)
		return collect(key, func(k string) bool { return !inB[k] }, a), nil
	case OpSub:
		return collect(key, keysFilter(key, b), a), nil
	case OpXor:
		out := collect(key, keysFilter(key, b), a)
		for _, e := range collect(key, keysFilter(key, a), b).Entries() {
			out.Append(e)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("bpl: unknown operator %q", op)
	}
}

// collect appends the entries of every list once per key, skipping keys
// for which skip returns true.
func collect(key func(string) string, skip func(string) bool, lists ...*Playlist) *Playlist {
	out := &Playlist{}
	seen := make(map[string]bool)
	for _, p := range lists {
		for _, e := range p.Entries() {
			k := key(e.Path)
			if seen[k] || (skip != nil && skip(k)) {
				continue
			}
			seen[k] = true
			out.Append(NewEntry(e.Path))
		}
	}
	return out
}

func keys(key func(string) string, p *Playlist) map[string]bool {
	out := make(map[string]bool, p.Len())
	for _, e := range p.Entries() {
		out[key(e.Path)] = true
	}
	return out
}

func keysFilter(key func(string) string, p *Playlist) func(string) bool {
	set := keys(key, p)
	return func(k string) bool { return set[k] }
}
