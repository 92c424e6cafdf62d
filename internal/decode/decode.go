// Package decode turns document bytes into ordered, styled text runs.
package decode

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/dgallion1/docsense/internal/doctree"
)

// Decoder converts raw document bytes into a RawDocument.
type Decoder interface {
	Decode(r io.Reader, filename string) (*doctree.RawDocument, error)
}

// Error wraps a decoder failure for one file.
type Error struct {
	Filename string
	Err      error
}

func (e *Error) Error() string {
	return fmt.Sprintf("decode %s: %v", e.Filename, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// SupportedExtensions lists file extensions this service can handle.
var SupportedExtensions = map[string]bool{
	".txt":      true,
	".md":       true,
	".markdown": true,
	".html":     true,
	".htm":      true,
	".pdf":      true,
	".docx":     true,
}

// Options configures decoders that have tunables.
type Options struct {
	PDFFallbackPdftotext bool
}

// ForFile returns the appropriate decoder for a filename.
func ForFile(filename string, opts Options) (Decoder, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".txt":
		return &TextDecoder{}, nil
	case ".md", ".markdown":
		return &MarkdownDecoder{}, nil
	case ".html", ".htm":
		return &HTMLDecoder{}, nil
	case ".pdf":
		return &PDFDecoder{FallbackPdftotext: opts.PDFFallbackPdftotext}, nil
	case ".docx":
		return &DOCXDecoder{}, nil
	default:
		return nil, fmt.Errorf("unsupported file extension: %s", ext)
	}
}

// IsSupportedExtension checks if a file extension is supported.
func IsSupportedExtension(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	return SupportedExtensions[ext]
}

// File decodes r with the decoder registered for filename. Failures are
// returned as *Error.
func File(r io.Reader, filename string, opts Options) (*doctree.RawDocument, error) {
	d, err := ForFile(filename, opts)
	if err != nil {
		return nil, &Error{Filename: filename, Err: err}
	}
	doc, err := d.Decode(r, filename)
	if err != nil {
		return nil, &Error{Filename: filename, Err: err}
	}
	doc.Filename = filename
	return doc, nil
}
