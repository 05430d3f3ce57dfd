package bpl

import (
	"fmt"
	"strings"
)

// FormatError reports a malformed playlist document. Entry and Section are
// zero-based positions, -1 when the problem is not tied to one.
type FormatError struct {
	Source  string
	Entry   int
	Section int
	Err     error
}

func newFormatError(entry, section int, format string, args ...any) *FormatError {
	return &FormatError{Entry: entry, Section: section, Err: fmt.Errorf(format, args...)}
}

func (e *FormatError) Error() string {
	var b strings.Builder
	b.WriteString("bpl: ")
	if e.Source != "" {
		b.WriteString(e.Source)
		b.WriteString(": ")
	}
	if e.Entry >= 0 {
		fmt.Fprintf(&b, "entry %d: ", e.Entry)
	}
	if e.Section >= 0 {
		fmt.Fprintf(&b, "section %d: ", e.Section)
	}
	b.WriteString(e.Err.Error())
	return b.String()
}

func (e *FormatError) Unwrap() error {
	return e.Err
}
