package decode

import (
	"bytes"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/dgallion1/docsense/internal/doctree"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// MarkdownDecoder handles Markdown files using goldmark. ATX and setext
// headings get synthetic sizes by depth; paragraphs written entirely in
// strong emphasis are marked bold.
type MarkdownDecoder struct{}

func (d *MarkdownDecoder) Decode(r io.Reader, filename string) (*doctree.RawDocument, error) {
	src, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	md := goldmark.New()
	doc := md.Parser().Parse(text.NewReader(src))
	f := newFlow("markdown")

	var walk func(ast.Node)
	walk = func(n ast.Node) {
		for c := n.FirstChild(); c != nil; c = c.NextSibling() {
			switch node := c.(type) {
			case *ast.Heading:
				f.paragraph(inlineText(node, src), headingSize(node.Level), true)
			case *ast.Paragraph, *ast.TextBlock:
				t, strong := inlineStyled(c, src)
				f.paragraph(t, bodySize, strong)
			case *ast.FencedCodeBlock, *ast.CodeBlock:
				f.paragraph(blockLines(c, src), bodySize, false)
			case *ast.HTMLBlock, *ast.ThematicBreak:
				// Not content.
			default:
				walk(c)
			}
		}
	}
	walk(doc)

	return f.document(""), nil
}

// inlineText gets the text content of a goldmark inline subtree.
func inlineText(n ast.Node, src []byte) string {
	t, _ := inlineStyled(n, src)
	return t
}

// inlineStyled returns the inline text and whether all of it sits inside
// strong emphasis.
func inlineStyled(n ast.Node, src []byte) (string, bool) {
	var buf bytes.Buffer
	var total, strong int

	var walk func(ast.Node, bool)
	walk = func(n ast.Node, inStrong bool) {
		for c := n.FirstChild(); c != nil; c = c.NextSibling() {
			var chunk []byte
			switch node := c.(type) {
			case *ast.Text:
				chunk = node.Segment.Value(src)
				if node.SoftLineBreak() || node.HardLineBreak() {
					chunk = append(append([]byte{}, chunk...), ' ')
				}
			case *ast.String:
				chunk = node.Value
			case *ast.AutoLink:
				chunk = node.Label(src)
			case *ast.Emphasis:
				walk(node, inStrong || node.Level >= 2)
				continue
			default:
				walk(c, inStrong)
				continue
			}
			buf.Write(chunk)
			cnt := utf8.RuneCount(bytes.TrimSpace(chunk))
			total += cnt
			if inStrong {
				strong += cnt
			}
		}
	}
	walk(n, false)

	return strings.TrimSpace(buf.String()), total > 0 && strong == total
}

func blockLines(n ast.Node, src []byte) string {
	var buf bytes.Buffer
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		line := lines.At(i)
		buf.Write(line.Value(src))
	}
	return strings.TrimSpace(buf.String())
}
