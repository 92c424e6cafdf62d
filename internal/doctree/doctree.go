package doctree

import (
	"fmt"
	"strings"
)

// BBox is a rectangle in points with a top-left origin; Y grows downward.
type BBox struct {
	X0, Y0, X1, Y1 float64
}

// Union returns the smallest box covering both b and o.
func (b BBox) Union(o BBox) BBox {
	return BBox{
		X0: min(b.X0, o.X0),
		Y0: min(b.Y0, o.Y0),
		X1: max(b.X1, o.X1),
		Y1: max(b.Y1, o.Y1),
	}
}

// TextRun is a minimal unit of styled text produced by a decoder.
type TextRun struct {
	Page       int // 1-indexed
	Text       string
	FontFamily string
	FontSize   float64
	Bold       bool
	BBox       BBox
}

// RawDocument is the decoder's output for one document: ordered runs plus
// whatever metadata the source format carried.
type RawDocument struct {
	ID            string
	Filename      string
	MetadataTitle string
	PageCount     int
	Runs          []TextRun
}

// Block is a merged sequence of adjacent runs sharing font attributes.
type Block struct {
	Index      int // Position in reading order within the document
	Page       int
	Text       string
	FontFamily string
	FontSize   float64
	Bold       bool
	BBox       BBox
}

// HeadingLevel is a flat structural tag. Lower values are more prominent.
type HeadingLevel int

const (
	LevelTitle HeadingLevel = iota
	LevelH1
	LevelH2
	LevelH3
)

func (l HeadingLevel) String() string {
	switch l {
	case LevelTitle:
		return "TITLE"
	case LevelH1:
		return "H1"
	case LevelH2:
		return "H2"
	case LevelH3:
		return "H3"
	}
	return fmt.Sprintf("HeadingLevel(%d)", int(l))
}

func (l HeadingLevel) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

func (l *HeadingLevel) UnmarshalText(b []byte) error {
	switch strings.ToUpper(string(b)) {
	case "TITLE":
		*l = LevelTitle
	case "H1":
		*l = LevelH1
	case "H2":
		*l = LevelH2
	case "H3":
		*l = LevelH3
	default:
		return fmt.Errorf("unknown heading level %q", b)
	}
	return nil
}

// HeadingNode is one outline entry.
type HeadingNode struct {
	Level HeadingLevel `json:"level"`
	Text  string       `json:"text"`
	Page  int          `json:"page"`

	BlockIndex int     `json:"-"`
	FontSize   float64 `json:"-"`
	Bold       bool    `json:"-"`
}

// Section is the body governed by one heading. The preamble section holds
// blocks that precede the first heading and has a zero Heading.
type Section struct {
	Heading   HeadingNode
	PageStart int
	PageEnd   int
	Blocks    []Block // Body blocks, heading excluded
	Preamble  bool
	Order     int // Position within the document's section list
}

// BodyText joins the body blocks, one per line.
func (s *Section) BodyText() string {
	parts := make([]string, 0, len(s.Blocks))
	for _, b := range s.Blocks {
		parts = append(parts, b.Text)
	}
	return strings.Join(parts, "\n")
}

// InvariantViolation reports a broken structural contract. It is returned
// to the caller as-is and never repaired.
type InvariantViolation struct {
	Rule   string
	Detail string
}

func (e *InvariantViolation) Error() string {
	return fmt.Sprintf("invariant violation (%s): %s", e.Rule, e.Detail)
}

// DocTree is a nested view of a classified document, derived from the flat
// outline.
type DocTree struct {
	Title    string     `json:"title"`
	Children []*DocNode `json:"children,omitempty"`
}

// DocNode is a recursive section in the document tree.
type DocNode struct {
	Title    string       `json:"title,omitempty"` // Section heading (empty for preamble text)
	Level    HeadingLevel `json:"level,omitempty"`
	Text     string       `json:"text,omitempty"`
	Page     int          `json:"page,omitempty"`
	Children []*DocNode   `json:"children,omitempty"`
}

// Nest builds a DocTree from ordered sections. An H2 nests under the nearest
// preceding H1, an H3 under the nearest preceding H1 or H2.
func Nest(title string, sections []Section) *DocTree {
	tree := &DocTree{Title: title}

	type stackEntry struct {
		node  *DocNode
		level HeadingLevel
	}
	root := &DocNode{Title: title}
	stack := []stackEntry{{node: root, level: LevelTitle}}

	for _, sec := range sections {
		if sec.Preamble {
			if text := sec.BodyText(); text != "" {
				root.Children = append(root.Children, &DocNode{Text: text, Page: sec.PageStart})
			}
			continue
		}
		node := &DocNode{
			Title: sec.Heading.Text,
			Level: sec.Heading.Level,
			Text:  sec.BodyText(),
			Page:  sec.Heading.Page,
		}
		for len(stack) > 1 && stack[len(stack)-1].level >= sec.Heading.Level {
			stack = stack[:len(stack)-1]
		}
		parent := stack[len(stack)-1].node
		parent.Children = append(parent.Children, node)
		stack = append(stack, stackEntry{node: node, level: sec.Heading.Level})
	}

	tree.Children = root.Children
	return tree
}
