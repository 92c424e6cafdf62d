package decode

import (
	"math"
	"strings"
	"unicode/utf8"

	"github.com/dgallion1/docsense/internal/doctree"
)

// Synthetic US Letter geometry for formats that carry no layout.
const (
	pageWidth  = 612.0
	pageHeight = 792.0
	pageMargin = 72.0

	bodySize    = 11.0
	lineSpacing = 1.2
	charWidth   = 0.5 // Average glyph width as a fraction of the font size
)

// headingSizes maps heading depth (1-6) to a synthetic font size.
var headingSizes = [...]float64{0, 24, 18, 15, 13, 12, 11}

func headingSize(level int) float64 {
	if level < 1 || level >= len(headingSizes) {
		return bodySize
	}
	return headingSizes[level]
}

// flow lays paragraphs out top to bottom on synthetic pages so that
// formats without geometry still produce runs the normalizer can merge
// and split the same way it does for PDFs.
type flow struct {
	family string
	page   int
	y      float64
	runs   []doctree.TextRun
}

func newFlow(family string) *flow {
	return &flow{family: family, page: 1, y: pageMargin}
}

// paragraph places one styled paragraph. Consecutive paragraphs are
// separated by a full line of space.
func (f *flow) paragraph(text string, size float64, bold bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}
	usable := pageWidth - 2*pageMargin
	width := float64(utf8.RuneCountInString(text)) * size * charWidth
	lines := math.Max(1, math.Ceil(width/usable))
	height := (lines-1)*size*lineSpacing + size

	if f.y+height > pageHeight-pageMargin && f.y > pageMargin {
		f.pageBreak()
	}

	f.runs = append(f.runs, doctree.TextRun{
		Page:       f.page,
		Text:       text,
		FontFamily: f.family,
		FontSize:   size,
		Bold:       bold,
		BBox: doctree.BBox{
			X0: pageMargin,
			Y0: f.y,
			X1: pageMargin + math.Min(width, usable),
			Y1: f.y + height,
		},
	})
	f.y += height + size
}

func (f *flow) pageBreak() {
	f.page++
	f.y = pageMargin
}

func (f *flow) document(title string) *doctree.RawDocument {
	pages := f.page
	if len(f.runs) == 0 {
		pages = 0
	}
	return &doctree.RawDocument{
		MetadataTitle: title,
		PageCount:     pages,
		Runs:          f.runs,
	}
}
