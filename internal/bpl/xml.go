package bpl

import (
	"fmt"
	"io"
	"strings"

	"github.com/beevik/etree"
)

const (
	tagBatchList   = "BatchList"
	tagBatchEntry  = "BatchEntry"
	tagSectionList = "SectionList"
	tagSection     = "Section"
	attrFileName   = "fileName"
	attrStartTime  = "startTime"
	attrEndTime    = "endTime"
)

var (
	xmlEscaper   = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")
	xmlUnescaper = strings.NewReplacer("&amp;", "&", "&lt;", "<", "&gt;", ">")
)

// XML is the BatchList codec used by .bpl and .xml files.
//
// File names are kept XML-escaped in memory. The document parser unescapes
// attribute values, so Decode escapes them again and Encode reverses that
// before the writer escapes once more; a hand-edited file survives any
// number of read/write cycles unchanged.
type XML struct{}

func (XML) Name() string { return "xml" }

func (XML) SupportsSections() bool { return true }

func (XML) Decode(r io.Reader) (*Playlist, error) {
	doc := etree.NewDocument()
	if _, err := doc.ReadFrom(r); err != nil {
		return nil, newFormatError(-1, -1, "parse xml: %w", err)
	}
	root := doc.Root()
	if root == nil {
		return nil, newFormatError(-1, -1, "empty document")
	}
	if root.Tag != tagBatchList {
		return nil, newFormatError(-1, -1, "root element is %q, want %q", root.Tag, tagBatchList)
	}

	p := &Playlist{}
	for i, be := range root.SelectElements(tagBatchEntry) {
		attr := be.SelectAttr(attrFileName)
		if attr == nil || strings.TrimSpace(attr.Value) == "" {
			return nil, newFormatError(i, -1, "missing %s attribute", attrFileName)
		}
		entry := NewEntry(xmlEscaper.Replace(attr.Value))

		if sl := be.SelectElement(tagSectionList); sl != nil {
			for j, se := range sl.SelectElements(tagSection) {
				sec, err := decodeSection(se)
				if err != nil {
					return nil, &FormatError{Entry: i, Section: j,
						Err: fmt.Errorf("%s: %w", entry.Path, err)}
				}
				entry.Sections = append(entry.Sections, sec)
			}
		}
		p.Append(entry)
	}
	return p, nil
}

func decodeSection(se *etree.Element) (Section, error) {
	var sec Section
	start := se.SelectAttr(attrStartTime)
	if start == nil {
		return sec, fmt.Errorf("missing %s", attrStartTime)
	}
	end := se.SelectAttr(attrEndTime)
	if end == nil {
		return sec, fmt.Errorf("missing %s", attrEndTime)
	}
	var err error
	if sec.Start, sec.StartRelative, err = ParseBound(start.Value); err != nil {
		return sec, fmt.Errorf("%s: %w", attrStartTime, err)
	}
	if sec.End, sec.EndRelative, err = ParseBound(end.Value); err != nil {
		return sec, fmt.Errorf("%s: %w", attrEndTime, err)
	}
	return sec, nil
}

func (XML) Encode(w io.Writer, p *Playlist) error {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)
	root := doc.CreateElement(tagBatchList)

	for _, e := range p.Entries() {
		be := root.CreateElement(tagBatchEntry)
		be.CreateAttr(attrFileName, e.LocalPath())
		if !e.HasSections() {
			continue
		}
		sl := be.CreateElement(tagSectionList)
		for _, s := range e.Sections {
			se := sl.CreateElement(tagSection)
			se.CreateAttr(attrStartTime, FormatBound(s.Start, s.StartRelative))
			se.CreateAttr(attrEndTime, FormatBound(s.End, s.EndRelative))
		}
	}

	doc.Indent(4)
	if _, err := doc.WriteTo(w); err != nil {
		return fmt.Errorf("write xml: %w", err)
	}
	return nil
}
