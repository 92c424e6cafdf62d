package section

import (
	"fmt"

	"github.com/dgallion1/docsense/internal/doctree"
)

// Segment assigns every non-heading block to the nearest preceding heading.
// Blocks before the first heading form a preamble section. The last section
// runs to the last document page.
func Segment(headings []doctree.HeadingNode, blocks []doctree.Block, pageCount int) ([]doctree.Section, error) {
	byBlock := make(map[int]doctree.HeadingNode, len(headings))
	for _, h := range headings {
		byBlock[h.BlockIndex] = h
	}

	lastPage := pageCount
	for _, b := range blocks {
		lastPage = max(lastPage, b.Page)
	}

	var sections []doctree.Section
	var cur *doctree.Section

	flush := func() {
		if cur == nil {
			return
		}
		cur.Order = len(sections)
		sections = append(sections, *cur)
		cur = nil
	}

	for _, b := range blocks {
		if h, ok := byBlock[b.Index]; ok {
			flush()
			cur = &doctree.Section{Heading: h, PageStart: h.Page, PageEnd: h.Page}
			continue
		}
		if cur == nil {
			cur = &doctree.Section{Preamble: true, PageStart: b.Page, PageEnd: b.Page}
		}
		cur.Blocks = append(cur.Blocks, b)
		cur.PageEnd = max(cur.PageEnd, b.Page)
	}
	flush()

	if n := len(sections); n > 0 && !sections[n-1].Preamble {
		sections[n-1].PageEnd = max(sections[n-1].PageEnd, lastPage)
	}

	if err := Validate(sections); err != nil {
		return nil, err
	}
	return sections, nil
}

// Validate checks that page ranges are well-formed and ordered.
func Validate(sections []doctree.Section) error {
	for i, s := range sections {
		if s.PageStart < 1 || s.PageStart > s.PageEnd {
			return &doctree.InvariantViolation{
				Rule:   "section-page-range",
				Detail: fmt.Sprintf("section %d %q spans pages %d..%d", i, s.Heading.Text, s.PageStart, s.PageEnd),
			}
		}
		if i > 0 && sections[i-1].PageEnd > s.PageStart {
			return &doctree.InvariantViolation{
				Rule: "section-page-order",
				Detail: fmt.Sprintf("section %d ends on page %d after section %d starts on page %d",
					i-1, sections[i-1].PageEnd, i, s.PageStart),
			}
		}
	}
	return nil
}

// Rankable returns the sections eligible for relevance scoring.
func Rankable(sections []doctree.Section) []doctree.Section {
	out := make([]doctree.Section, 0, len(sections))
	for _, s := range sections {
		if !s.Preamble {
			out = append(out, s)
		}
	}
	return out
}
