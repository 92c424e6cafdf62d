package decode

import (
	"fmt"
	"io"
	"math"
	"os"
	"os/exec"
	"strings"

	"github.com/dgallion1/docsense/internal/doctree"
	pdflib "github.com/ledongthuc/pdf"
)

// PDFDecoder handles PDF files. It reads glyphs with their font and
// position through the Go library and, if that fails, falls back to
// pdftotext (plain text, no typography).
type PDFDecoder struct {
	FallbackPdftotext bool
}

func (p *PDFDecoder) Decode(r io.Reader, filename string) (*doctree.RawDocument, error) {
	// ledongthuc/pdf requires a ReaderAt+size, so we write to a temp file.
	tmp, err := os.CreateTemp("", "docsense-pdf-*.pdf")
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("write temp file: %w", err)
	}
	tmp.Close()

	doc, err := extractPDFRuns(tmpPath)
	if err != nil && p.FallbackPdftotext {
		var text string
		if text, err = extractPdftotext(tmpPath); err == nil {
			doc, err = (&TextDecoder{}).Decode(strings.NewReader(text), filename)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("extract pdf text: %w", err)
	}
	return doc, nil
}

func extractPDFRuns(path string) (doc *doctree.RawDocument, err error) {
	// The reader panics on some malformed streams.
	defer func() {
		if r := recover(); r != nil {
			doc, err = nil, fmt.Errorf("pdf reader: %v", r)
		}
	}()

	f, reader, err := pdflib.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	doc = &doctree.RawDocument{
		PageCount:     reader.NumPage(),
		MetadataTitle: strings.TrimSpace(reader.Trailer().Key("Info").Key("Title").Text()),
	}
	for i := 1; i <= doc.PageCount; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		doc.Runs = append(doc.Runs, glyphRuns(page.Content().Text, i, mediaHeight(page))...)
	}
	return doc, nil
}

func mediaHeight(page pdflib.Page) float64 {
	box := page.V.Key("MediaBox")
	if box.Len() == 4 {
		if h := box.Index(3).Float64() - box.Index(1).Float64(); h > 0 {
			return h
		}
	}
	return pageHeight
}

// glyphRuns merges consecutive glyphs that share a font and baseline into
// runs and flips coordinates to a top-left origin.
func glyphRuns(glyphs []pdflib.Text, page int, height float64) []doctree.TextRun {
	var runs []doctree.TextRun
	var cur *doctree.TextRun
	var buf strings.Builder
	var lastEnd, lastY float64
	lastSpace := false

	flush := func() {
		if cur != nil {
			if t := strings.TrimSpace(buf.String()); t != "" {
				cur.Text = t
				runs = append(runs, *cur)
			}
		}
		cur = nil
		buf.Reset()
		lastSpace = false
	}

	for _, g := range glyphs {
		if g.S == "" {
			continue
		}
		family, bold := fontStyle(g.Font)
		size := g.FontSize
		if size <= 0 {
			size = bodySize
		}

		if cur != nil &&
			cur.FontFamily == family && cur.Bold == bold &&
			math.Abs(cur.FontSize-size) < 0.01 &&
			math.Abs(g.Y-lastY) < size*0.5 &&
			g.X >= lastEnd-size {
			if g.X-lastEnd > size*0.15 && !lastSpace && g.S != " " {
				buf.WriteByte(' ')
			}
			buf.WriteString(g.S)
			lastSpace = strings.HasSuffix(g.S, " ")
			cur.BBox.X1 = max(cur.BBox.X1, g.X+g.W)
			lastEnd, lastY = g.X+g.W, g.Y
			continue
		}

		flush()
		cur = &doctree.TextRun{
			Page:       page,
			FontFamily: family,
			FontSize:   size,
			Bold:       bold,
			BBox: doctree.BBox{
				X0: g.X,
				Y0: height - (g.Y + 0.8*size),
				X1: g.X + g.W,
				Y1: height - (g.Y - 0.2*size),
			},
		}
		buf.WriteString(g.S)
		lastSpace = strings.HasSuffix(g.S, " ")
		lastEnd, lastY = g.X+g.W, g.Y
	}
	flush()

	return runs
}

// fontStyle derives a family name and bold flag from a PDF font name such
// as "ABCDEF+TimesNewRomanPS-BoldMT".
func fontStyle(name string) (string, bool) {
	if i := strings.IndexByte(name, '+'); i >= 0 && i <= 6 {
		name = name[i+1:]
	}
	lower := strings.ToLower(name)
	bold := strings.HasPrefix(lower, "cmbx")
	for _, marker := range []string{"bold", "black", "heavy", "semibold", "demi"} {
		if strings.Contains(lower, marker) {
			bold = true
			break
		}
	}
	family := name
	if i := strings.IndexAny(family, "-,"); i > 0 {
		family = family[:i]
	}
	return family, bold
}

func extractPdftotext(path string) (string, error) {
	cmd := exec.Command("pdftotext", "-layout", path, "-")
	out, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("pdftotext: %w", err)
	}
	return string(out), nil
}
