package normalize

import (
	"math"
	"strings"

	"github.com/dgallion1/docsense/internal/doctree"
	"golang.org/x/text/unicode/norm"
)

// Config controls run merging.
type Config struct {
	// LineGapRatio is the largest vertical gap between two runs, as a
	// fraction of their font size, that still counts as adjacent lines.
	LineGapRatio float64
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{LineGapRatio: 0.8}
}

const sizeEpsilon = 0.01

// Blocks merges consecutive runs into blocks. Runs join the current block
// when they are on the same page, share family, size and weight, and either
// overlap it vertically (same line) or start below it within the gap limit.
func Blocks(runs []doctree.TextRun, cfg Config) []doctree.Block {
	if cfg.LineGapRatio <= 0 {
		cfg.LineGapRatio = 0.8
	}

	var blocks []doctree.Block
	var cur *doctree.Block
	var last doctree.TextRun
	var text strings.Builder

	flush := func() {
		if cur == nil {
			return
		}
		cur.Text = text.String()
		cur.Index = len(blocks)
		blocks = append(blocks, *cur)
		cur = nil
		text.Reset()
	}

	for _, run := range runs {
		t := CleanText(run.Text)
		if t == "" || run.Page <= 0 {
			continue
		}
		run.Text = t

		if cur != nil && adjacent(last, run, cfg) {
			text.WriteString(joiner(text.String(), t))
			text.WriteString(t)
			cur.BBox = cur.BBox.Union(run.BBox)
			last = run
			continue
		}

		flush()
		cur = &doctree.Block{
			Page:       run.Page,
			FontFamily: run.FontFamily,
			FontSize:   run.FontSize,
			Bold:       run.Bold,
			BBox:       run.BBox,
		}
		text.WriteString(t)
		last = run
	}
	flush()

	return blocks
}

// CleanText applies NFKC normalization and collapses whitespace.
func CleanText(s string) string {
	s = norm.NFKC.String(s)
	return strings.Join(strings.Fields(s), " ")
}

func adjacent(prev, next doctree.TextRun, cfg Config) bool {
	if prev.Page != next.Page ||
		prev.FontFamily != next.FontFamily ||
		prev.Bold != next.Bold ||
		math.Abs(prev.FontSize-next.FontSize) > sizeEpsilon {
		return false
	}

	// Same line.
	if next.BBox.Y0 < prev.BBox.Y1 && next.BBox.Y1 > prev.BBox.Y0 {
		return true
	}

	gap := next.BBox.Y0 - prev.BBox.Y1
	return gap >= 0 && gap < cfg.LineGapRatio*next.FontSize
}

// joiner returns the separator between accumulated text and the next run.
// A trailing hyphen is treated as a line-break hyphenation.
func joiner(acc, next string) string {
	if strings.HasSuffix(acc, "-") && !strings.HasSuffix(acc, " -") {
		return ""
	}
	if strings.HasPrefix(next, ",") || strings.HasPrefix(next, ".") {
		return ""
	}
	return " "
}
