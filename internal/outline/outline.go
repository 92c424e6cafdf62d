// Package outline infers a document title and H1/H2/H3 headings from
// typographic prominence alone.
package outline

import (
	"fmt"
	"math"
	"path/filepath"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/dgallion1/docsense/internal/doctree"
)

// Config tunes heading candidacy.
type Config struct {
	// HeadingMargin is the relative size advantage over body text a block
	// needs to be a heading on size alone.
	HeadingMargin float64
	// MaxHeadingRunes rejects paragraph-length candidates.
	MaxHeadingRunes int
	// SentenceRunes rejects candidates ending in a period that are longer
	// than this.
	SentenceRunes int
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		HeadingMargin:   0.1,
		MaxHeadingRunes: 150,
		SentenceRunes:   20,
	}
}

// TitleSource records which fallback produced the title.
type TitleSource string

const (
	TitleFromMetadata  TitleSource = "metadata"
	TitleFromFirstPage TitleSource = "first_page"
	TitleFromFilename  TitleSource = "filename"
)

// Stats are the character-weighted font-size statistics of a document.
type Stats struct {
	AvgSize  float64 `json:"avg_size"`
	BodySize float64 `json:"body_size"`
	Chars    int     `json:"chars"`
}

// Result is the classifier output for one document.
type Result struct {
	Title       string                `json:"title"`
	TitleSource TitleSource           `json:"title_source"`
	TitleBlock  int                   `json:"-"` // Standalone cover title left out of outline and sections, -1 if none
	Headings    []doctree.HeadingNode `json:"outline"`
	Stats       Stats                 `json:"stats"`
}

// Classify resolves the title and assigns heading levels. Blocks must be in
// reading order with Index set, as produced by normalize.Blocks.
func Classify(doc *doctree.RawDocument, blocks []doctree.Block, cfg Config) (Result, error) {
	if cfg.HeadingMargin <= 0 {
		cfg.HeadingMargin = 0.1
	}
	if cfg.MaxHeadingRunes <= 0 {
		cfg.MaxHeadingRunes = 150
	}
	if cfg.SentenceRunes <= 0 {
		cfg.SentenceRunes = 20
	}

	res := Result{TitleBlock: -1, Headings: []doctree.HeadingNode{}}
	res.Stats = ComputeStats(blocks)
	res.Title, res.TitleSource, res.TitleBlock = resolveTitle(doc, blocks)

	if len(blocks) == 0 {
		return res, nil
	}

	threshold := res.Stats.BodySize * (1 + cfg.HeadingMargin)
	candidate := func(b doctree.Block) (sized, ok bool) {
		if !headingText(b.Text, cfg) {
			return false, false
		}
		switch {
		case b.FontSize > threshold:
			return true, true
		case b.Bold && b.FontSize >= res.Stats.AvgSize:
			return false, true
		}
		return false, false
	}

	res.TitleBlock = coverTitle(blocks, res.TitleBlock, candidate)

	var sized, boldOnly []doctree.Block
	for _, b := range blocks {
		if b.Index == res.TitleBlock {
			continue
		}
		isSized, ok := candidate(b)
		switch {
		case !ok:
		case isSized:
			sized = append(sized, b)
		default:
			boldOnly = append(boldOnly, b)
		}
	}

	levels := assignLevels(sized)
	for _, b := range boldOnly {
		levels[b.Index] = doctree.LevelH3
	}

	for _, b := range blocks {
		lvl, ok := levels[b.Index]
		if !ok {
			continue
		}
		res.Headings = append(res.Headings, doctree.HeadingNode{
			Level:      lvl,
			Text:       b.Text,
			Page:       b.Page,
			BlockIndex: b.Index,
			FontSize:   b.FontSize,
			Bold:       b.Bold,
		})
	}

	if err := checkLevelOrder(res.Headings); err != nil {
		return res, err
	}
	return res, nil
}

// ComputeStats returns the character-weighted mean size and the modal size
// over half-point buckets. Ties on the mode go to the smaller size.
func ComputeStats(blocks []doctree.Block) Stats {
	var st Stats
	var weighted float64
	buckets := make(map[float64]int)
	for _, b := range blocks {
		n := utf8.RuneCountInString(b.Text)
		if n == 0 || b.FontSize <= 0 {
			continue
		}
		st.Chars += n
		weighted += b.FontSize * float64(n)
		buckets[bucket(b.FontSize)] += n
	}
	if st.Chars == 0 {
		return st
	}
	st.AvgSize = weighted / float64(st.Chars)

	sizes := make([]float64, 0, len(buckets))
	for s := range buckets {
		sizes = append(sizes, s)
	}
	sort.Float64s(sizes)
	best := -1
	for _, s := range sizes {
		if buckets[s] > best {
			best = buckets[s]
			st.BodySize = s
		}
	}
	return st
}

func bucket(size float64) float64 {
	return math.Round(size*2) / 2
}

func resolveTitle(doc *doctree.RawDocument, blocks []doctree.Block) (string, TitleSource, int) {
	if doc != nil {
		if t := strings.Join(strings.Fields(doc.MetadataTitle), " "); t != "" {
			return t, TitleFromMetadata, -1
		}
	}

	best := -1
	for i, b := range blocks {
		if b.Page != 1 || !hasLetter(b.Text) {
			continue
		}
		if best < 0 || b.FontSize > blocks[best].FontSize {
			best = i
		}
	}
	if best >= 0 {
		return blocks[best].Text, TitleFromFirstPage, blocks[best].Index
	}

	name := ""
	if doc != nil {
		name = doc.Filename
	}
	return FilenameStem(name), TitleFromFilename, -1
}

// coverTitle reports the first-page title block as a standalone cover title
// only when it is itself heading-like and the next block in reading order is
// a heading. Otherwise the title block keeps its place as a heading or as body
// text so its section stays rankable.
func coverTitle(blocks []doctree.Block, titleBlock int, candidate func(doctree.Block) (bool, bool)) int {
	if titleBlock < 0 {
		return -1
	}
	for i, b := range blocks {
		if b.Index != titleBlock {
			continue
		}
		if _, ok := candidate(b); !ok || i+1 >= len(blocks) {
			return -1
		}
		if _, ok := candidate(blocks[i+1]); ok {
			return titleBlock
		}
		return -1
	}
	return -1
}

// FilenameStem strips directory and extension.
func FilenameStem(name string) string {
	base := filepath.Base(name)
	if base == "." || base == "/" {
		return ""
	}
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// headingText rejects texts that cannot plausibly be headings.
func headingText(text string, cfg Config) bool {
	n := utf8.RuneCountInString(text)
	if n == 0 || n > cfg.MaxHeadingRunes {
		return false
	}
	if strings.HasSuffix(text, ".") && n > cfg.SentenceRunes {
		return false
	}
	return hasLetter(text)
}

func hasLetter(s string) bool {
	for _, r := range s {
		if unicode.IsLetter(r) {
			return true
		}
	}
	return false
}

type band struct {
	size  float64
	bold  bool
	page  int
	index int
}

// assignLevels groups size-advantaged candidates into bands keyed by size
// and weight. Bands are ranked by size, then by first appearance; the top
// three become H1..H3 and the rest fold into H3.
func assignLevels(cands []doctree.Block) map[int]doctree.HeadingLevel {
	type key struct {
		size float64
		bold bool
	}
	first := make(map[key]*band)
	var bands []*band
	for _, b := range cands {
		k := key{bucket(b.FontSize), b.Bold}
		if _, ok := first[k]; ok {
			continue
		}
		bd := &band{size: k.size, bold: k.bold, page: b.Page, index: b.Index}
		first[k] = bd
		bands = append(bands, bd)
	}
	sort.SliceStable(bands, func(i, j int) bool {
		if bands[i].size != bands[j].size {
			return bands[i].size > bands[j].size
		}
		if bands[i].page != bands[j].page {
			return bands[i].page < bands[j].page
		}
		return bands[i].index < bands[j].index
	})

	rank := make(map[key]doctree.HeadingLevel, len(bands))
	for i, bd := range bands {
		lvl := doctree.LevelH1 + doctree.HeadingLevel(i)
		if lvl > doctree.LevelH3 {
			lvl = doctree.LevelH3
		}
		rank[key{bd.size, bd.bold}] = lvl
	}

	levels := make(map[int]doctree.HeadingLevel, len(cands))
	for _, b := range cands {
		levels[b.Index] = rank[key{bucket(b.FontSize), b.Bold}]
	}
	return levels
}

// checkLevelOrder verifies that every heading is at least as large as every
// heading of a deeper level.
func checkLevelOrder(headings []doctree.HeadingNode) error {
	minSize := map[doctree.HeadingLevel]float64{}
	maxSize := map[doctree.HeadingLevel]float64{}
	for _, h := range headings {
		if v, ok := minSize[h.Level]; !ok || h.FontSize < v {
			minSize[h.Level] = h.FontSize
		}
		if v, ok := maxSize[h.Level]; !ok || h.FontSize > v {
			maxSize[h.Level] = h.FontSize
		}
	}
	for hi := doctree.LevelH1; hi < doctree.LevelH3; hi++ {
		for lo := hi + 1; lo <= doctree.LevelH3; lo++ {
			a, okA := minSize[hi]
			b, okB := maxSize[lo]
			if okA && okB && bucket(a) < bucket(b) {
				return &doctree.InvariantViolation{
					Rule:   "level-size-order",
					Detail: fmt.Sprintf("%s size %.1f below %s size %.1f", hi, a, lo, b),
				}
			}
		}
	}
	return nil
}
