package refine

import (
	"math"
	"regexp"
	"strings"
	"unicode"

	"github.com/dgallion1/docsense/internal/doctree"
)

// Config controls excerpt extraction.
type Config struct {
	Budget          int     // Maximum excerpt length in runes.
	RunningRatio    float64 // Share of pages a line must repeat on to count as a running header or footer.
	RunningMinPages int     // Minimum pages for running text detection.
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Budget:          500,
		RunningRatio:    0.5,
		RunningMinPages: 2,
	}
}

var noisePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^(page\s*)?\d+(\s*(of|/)\s*\d+)?$`),
	regexp.MustCompile(`^[-–—]\s*\d+\s*[-–—]$`),
	regexp.MustCompile(`(?i)^(©|\(c\)|copyright\b)`),
	regexp.MustCompile(`(?i)^all rights reserved\.?$`),
	regexp.MustCompile(`^[\p{P}\p{S}\s]+$`),
}

// Refiner produces excerpts for the sections of one document.
type Refiner struct {
	cfg     Config
	running map[string]struct{}
}

// New builds a refiner for a document. blocks are all of the document's
// blocks, used to detect running headers and footers.
func New(cfg Config, blocks []doctree.Block, pageCount int) *Refiner {
	if cfg.Budget <= 0 {
		cfg.Budget = 500
	}
	if cfg.RunningRatio <= 0 {
		cfg.RunningRatio = 0.5
	}
	if cfg.RunningMinPages <= 0 {
		cfg.RunningMinPages = 2
	}
	return &Refiner{
		cfg:     cfg,
		running: RunningText(blocks, pageCount, cfg.RunningRatio, cfg.RunningMinPages),
	}
}

// Excerpt returns the section heading followed by its filtered body, cut
// to the budget at a sentence or word boundary.
func (r *Refiner) Excerpt(sec doctree.Section) string {
	var parts []string
	if h := strings.TrimSpace(sec.Heading.Text); h != "" {
		parts = append(parts, h)
	}
	for _, b := range sec.Blocks {
		if r.IsNoise(b.Text) {
			continue
		}
		parts = append(parts, b.Text)
	}
	return Trim(strings.Join(parts, " "), r.cfg.Budget)
}

// IsNoise reports whether a line is boilerplate.
func (r *Refiner) IsNoise(line string) bool {
	line = strings.TrimSpace(line)
	if line == "" {
		return true
	}
	for _, re := range noisePatterns {
		if re.MatchString(line) {
			return true
		}
	}
	_, ok := r.running[runningKey(line)]
	return ok
}

// RunningText finds texts that open or close at least ratio of the pages
// (and at least minPages pages). Digits are masked so "Report - 3" and
// "Report - 4" count as the same line.
func RunningText(blocks []doctree.Block, pageCount int, ratio float64, minPages int) map[string]struct{} {
	out := make(map[string]struct{})
	if len(blocks) == 0 {
		return out
	}

	first := make(map[int]int)
	last := make(map[int]int)
	for i, b := range blocks {
		if _, ok := first[b.Page]; !ok {
			first[b.Page] = i
		}
		last[b.Page] = i
		pageCount = max(pageCount, b.Page)
	}
	if pageCount < minPages {
		return out
	}

	pages := make(map[string]map[int]struct{})
	mark := func(i int) {
		b := blocks[i]
		k := runningKey(b.Text)
		if pages[k] == nil {
			pages[k] = make(map[int]struct{})
		}
		pages[k][b.Page] = struct{}{}
	}
	for p, i := range first {
		mark(i)
		if last[p] != i {
			mark(last[p])
		}
	}

	need := max(minPages, int(math.Ceil(ratio*float64(pageCount))))
	for k, ps := range pages {
		if k != "" && len(ps) >= need {
			out[k] = struct{}{}
		}
	}
	return out
}

func runningKey(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsDigit(r) {
			return '#'
		}
		return unicode.ToLower(r)
	}, strings.Join(strings.Fields(s), " "))
}

// Trim cuts text to at most budget runes. It prefers the last sentence end
// in the second half of the budget, then the last whitespace. A text with
// no usable boundary yields an empty string rather than a split word.
func Trim(text string, budget int) string {
	text = strings.TrimSpace(text)
	runes := []rune(text)
	if len(runes) <= budget {
		return text
	}
	if budget <= 0 {
		return ""
	}

	for i := budget - 1; i >= budget/2; i-- {
		if isSentenceEnd(runes[i]) && unicode.IsSpace(runes[i+1]) {
			return string(runes[:i+1])
		}
	}
	for i := budget; i > 0; i-- {
		if unicode.IsSpace(runes[i]) {
			return strings.TrimRightFunc(string(runes[:i]), unicode.IsSpace)
		}
	}
	return ""
}

func isSentenceEnd(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}
