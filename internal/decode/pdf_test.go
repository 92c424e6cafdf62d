package decode

import (
	"testing"

	pdflib "github.com/ledongthuc/pdf"
)

func TestFontStyle(t *testing.T) {
	cases := []struct {
		name   string
		family string
		bold   bool
	}{
		{"ABCDEF+TimesNewRomanPS-BoldMT", "TimesNewRomanPS", true},
		{"Helvetica", "Helvetica", false},
		{"Arial,Bold", "Arial", true},
		{"Montserrat-SemiBold", "Montserrat", true},
		{"CMBX12", "CMBX12", true},
		{"CMR10", "CMR10", false},
	}
	for _, tc := range cases {
		family, bold := fontStyle(tc.name)
		if family != tc.family || bold != tc.bold {
			t.Errorf("fontStyle(%q): expected %q/%v, got %q/%v", tc.name, tc.family, tc.bold, family, bold)
		}
	}
}

func glyph(s string, x, y, size float64, font string) pdflib.Text {
	return pdflib.Text{Font: font, FontSize: size, X: x, Y: y, W: size * 0.5 * float64(len(s)), S: s}
}

func TestGlyphRuns_MergesWordsOnBaseline(t *testing.T) {
	glyphs := []pdflib.Text{
		glyph("Hel", 72, 700, 12, "Helvetica-Bold"),
		glyph("lo", 90, 700, 12, "Helvetica-Bold"),
		glyph("World", 110, 700, 12, "Helvetica-Bold"), // gap 8pt > 1.8pt
		glyph("Body", 72, 680, 10, "Helvetica"),
	}
	runs := glyphRuns(glyphs, 1, 792)
	if len(runs) != 2 {
		t.Fatalf("expected 2 runs, got %d: %+v", len(runs), runs)
	}
	if runs[0].Text != "Hello World" || !runs[0].Bold || runs[0].FontFamily != "Helvetica" {
		t.Errorf("unexpected first run %+v", runs[0])
	}
	if runs[0].BBox.Y0 >= runs[1].BBox.Y0 {
		t.Errorf("expected first run above second in top-left coordinates")
	}
	if runs[1].Text != "Body" || runs[1].Bold {
		t.Errorf("unexpected second run %+v", runs[1])
	}
}

func TestGlyphRuns_SkipsBlank(t *testing.T) {
	runs := glyphRuns([]pdflib.Text{glyph(" ", 72, 700, 12, "Helvetica"), {S: ""}}, 1, 792)
	if len(runs) != 0 {
		t.Errorf("expected no runs, got %+v", runs)
	}
}
