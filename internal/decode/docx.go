package decode

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/dgallion1/docsense/internal/doctree"
	"github.com/fumiama/go-docx"
)

// DOCXDecoder handles .docx files. Heading and Title paragraph styles get
// synthetic sizes; otherwise explicit run sizes and bold flags are used.
type DOCXDecoder struct{}

func (d *DOCXDecoder) Decode(r io.Reader, filename string) (*doctree.RawDocument, error) {
	// go-docx needs a ReadSeeker+size, so write to temp file.
	tmp, err := os.CreateTemp("", "docsense-docx-*.docx")
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	size, err := io.Copy(tmp, r)
	if err != nil {
		tmp.Close()
		return nil, fmt.Errorf("write temp file: %w", err)
	}
	if _, err := tmp.Seek(0, io.SeekStart); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("seek temp file: %w", err)
	}

	doc, err := docx.Parse(tmp, size)
	tmp.Close()
	if err != nil {
		return nil, fmt.Errorf("parse docx: %w", err)
	}

	f := newFlow("docx")
	for _, item := range doc.Document.Body.Items {
		para, ok := item.(*docx.Paragraph)
		if !ok {
			continue
		}
		text, runSize, bold := docxParagraph(para)
		if text == "" {
			continue
		}

		switch level := docxHeadingLevel(para); {
		case level == titleStyle:
			f.paragraph(text, 28, true)
		case level > 0:
			f.paragraph(text, headingSize(level), true)
		default:
			if runSize <= 0 {
				runSize = bodySize
			}
			f.paragraph(text, runSize, bold)
		}
	}

	return f.document(""), nil
}

const titleStyle = -1

func docxHeadingLevel(para *docx.Paragraph) int {
	if para.Properties == nil || para.Properties.Style == nil {
		return 0
	}
	style := strings.ToLower(strings.ReplaceAll(para.Properties.Style.Val, " ", ""))
	if style == "title" {
		return titleStyle
	}
	if n, ok := strings.CutPrefix(style, "heading"); ok {
		if level, err := strconv.Atoi(n); err == nil && level >= 1 && level <= 6 {
			return level
		}
	}
	return 0
}

// docxParagraph returns the paragraph text, the largest explicit run size
// in points (0 if none) and whether every run with text is bold.
func docxParagraph(para *docx.Paragraph) (string, float64, bool) {
	var buf strings.Builder
	var maxSize float64
	runs, boldRuns := 0, 0
	for _, child := range para.Children {
		run, ok := child.(*docx.Run)
		if !ok {
			continue
		}
		var rt strings.Builder
		for _, rc := range run.Children {
			if t, ok := rc.(*docx.Text); ok {
				rt.WriteString(t.Text)
			}
		}
		if strings.TrimSpace(rt.String()) == "" {
			buf.WriteString(rt.String())
			continue
		}
		buf.WriteString(rt.String())
		runs++
		if rp := run.RunProperties; rp != nil {
			if rp.Bold != nil {
				boldRuns++
			}
			if rp.Size != nil {
				// w:sz is in half-points.
				if hp, err := strconv.ParseFloat(rp.Size.Val, 64); err == nil && hp/2 > maxSize {
					maxSize = hp / 2
				}
			}
		}
	}
	return strings.TrimSpace(buf.String()), maxSize, runs > 0 && boldRuns == runs
}
