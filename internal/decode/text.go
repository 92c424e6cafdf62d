package decode

import (
	"bufio"
	"io"
	"strings"

	"github.com/dgallion1/docsense/internal/doctree"
)

// TextDecoder handles plain text files. Paragraphs are separated by blank
// lines and form feeds start a new page. All text is body-sized.
type TextDecoder struct{}

func (d *TextDecoder) Decode(r io.Reader, filename string) (*doctree.RawDocument, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	f := newFlow("text")
	var current strings.Builder

	flush := func() {
		if current.Len() > 0 {
			f.paragraph(current.String(), bodySize, false)
			current.Reset()
		}
	}

	for scanner.Scan() {
		line := scanner.Text()
		for strings.Contains(line, "\f") {
			before, after, _ := strings.Cut(line, "\f")
			if strings.TrimSpace(before) != "" {
				if current.Len() > 0 {
					current.WriteString("\n")
				}
				current.WriteString(before)
			}
			flush()
			f.pageBreak()
			line = after
		}
		if strings.TrimSpace(line) == "" {
			flush()
			continue
		}
		if current.Len() > 0 {
			current.WriteString("\n")
		}
		current.WriteString(line)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	flush()

	return f.document(""), nil
}
