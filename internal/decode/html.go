package decode

import (
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/dgallion1/docsense/internal/doctree"
	"golang.org/x/net/html"
)

// HTMLDecoder handles HTML files. h1-h6 get synthetic sizes by depth and
// <title> becomes the metadata title.
type HTMLDecoder struct{}

func (d *HTMLDecoder) Decode(r io.Reader, filename string) (*doctree.RawDocument, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	f := newFlow("html")

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.ElementNode:
			if level := headingLevel(n.Data); level > 0 {
				f.paragraph(textContent(n), headingSize(level), true)
				return // Don't recurse into heading children (already extracted text).
			}

			// Skip non-content elements.
			switch n.Data {
			case "script", "style", "nav", "footer", "header", "noscript", "template":
				return
			case "p", "li", "td", "th", "blockquote", "pre", "dt", "dd", "figcaption", "caption":
				t, bold := styledContent(n)
				f.paragraph(t, bodySize, bold)
				return
			}
		case html.TextNode:
			// Loose text directly inside containers.
			f.paragraph(n.Data, bodySize, false)
			return
		}

		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}

	// Find <body> or use whole document.
	if body := findBody(doc); body != nil {
		walk(body)
	} else {
		walk(doc)
	}

	return f.document(findTitle(doc)), nil
}

func headingLevel(tag string) int {
	switch tag {
	case "h1":
		return 1
	case "h2":
		return 2
	case "h3":
		return 3
	case "h4":
		return 4
	case "h5":
		return 5
	case "h6":
		return 6
	}
	return 0
}

func textContent(n *html.Node) string {
	t, _ := styledContent(n)
	return t
}

// styledContent returns the element's text and whether all of it is inside
// <b> or <strong>.
func styledContent(n *html.Node) (string, bool) {
	var buf strings.Builder
	var total, bold int
	var extract func(*html.Node, bool)
	extract = func(n *html.Node, inBold bool) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "script", "style":
				return
			case "b", "strong":
				inBold = true
			case "br":
				buf.WriteByte(' ')
			}
		}
		if n.Type == html.TextNode {
			buf.WriteString(n.Data)
			cnt := utf8.RuneCountInString(strings.TrimSpace(n.Data))
			total += cnt
			if inBold {
				bold += cnt
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			extract(c, inBold)
		}
	}
	extract(n, false)
	return strings.TrimSpace(buf.String()), total > 0 && bold == total
}

func findTitle(n *html.Node) string {
	if n.Type == html.ElementNode && n.Data == "title" {
		return textContent(n)
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if t := findTitle(c); t != "" {
			return t
		}
	}
	return ""
}

func findBody(n *html.Node) *html.Node {
	if n.Type == html.ElementNode && n.Data == "body" {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if b := findBody(c); b != nil {
			return b
		}
	}
	return nil
}
