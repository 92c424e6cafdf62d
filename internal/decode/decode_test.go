package decode

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestForFile(t *testing.T) {
	cases := map[string]string{
		"a.txt":      "*decode.TextDecoder",
		"a.MD":       "*decode.MarkdownDecoder",
		"a.markdown": "*decode.MarkdownDecoder",
		"a.htm":      "*decode.HTMLDecoder",
		"a.pdf":      "*decode.PDFDecoder",
		"a.docx":     "*decode.DOCXDecoder",
	}
	for name, want := range cases {
		d, err := ForFile(name, Options{})
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", name, err)
		}
		if got := fmt.Sprintf("%T", d); got != want {
			t.Errorf("%s: expected %s, got %s", name, want, got)
		}
	}

	if _, err := ForFile("sheet.xlsx", Options{}); err == nil {
		t.Error("expected error for unsupported extension")
	}
}

func TestIsSupportedExtension(t *testing.T) {
	if !IsSupportedExtension("Report.PDF") {
		t.Error("expected .PDF to be supported")
	}
	if IsSupportedExtension("data.csv") {
		t.Error("expected .csv to be unsupported")
	}
}

func TestFile_SetsFilename(t *testing.T) {
	doc, err := File(strings.NewReader("hello"), "greeting.txt", Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if doc.Filename != "greeting.txt" {
		t.Errorf("expected filename %q, got %q", "greeting.txt", doc.Filename)
	}
}

func TestFile_WrapsErrors(t *testing.T) {
	_, err := File(strings.NewReader("not a pdf"), "broken.pdf", Options{})
	var de *Error
	if !errors.As(err, &de) {
		t.Fatalf("expected *Error, got %v", err)
	}
	if de.Filename != "broken.pdf" {
		t.Errorf("expected filename %q, got %q", "broken.pdf", de.Filename)
	}

	_, err = File(strings.NewReader(""), "x.bin", Options{})
	if !errors.As(err, &de) {
		t.Fatalf("expected *Error for unsupported type, got %v", err)
	}
}
