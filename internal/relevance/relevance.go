// Package relevance scores document sections against a persona profile.
package relevance

import (
	"math"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/dgallion1/docsense/internal/doctree"
	"github.com/dgallion1/docsense/internal/persona"
	"golang.org/x/text/unicode/norm"
)

// Component coefficients.
const (
	WeightKeywordFrequency   = 0.4
	WeightContextRelevance   = 0.3
	WeightSectionImportance  = 0.2
	WeightPersonaSpecificity = 0.1

	BonusLargeHeading = 1.5
	BonusBoldHeading  = 1.0
)

// Config tunes the scorer.
type Config struct {
	// ContextWindow is how many body runes after the heading count as
	// near the heading.
	ContextWindow int
	// WordsPerUnit normalizes keyword counts by body length.
	WordsPerUnit int
	// Ceiling is the hard upper bound on a score.
	Ceiling float64
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		ContextWindow: 200,
		WordsPerUnit:  50,
		Ceiling:       100,
	}
}

// Breakdown holds the unweighted components and the formatting bonus.
type Breakdown struct {
	KeywordFrequency   float64 `json:"keyword_frequency"`
	ContextRelevance   float64 `json:"context_relevance"`
	SectionImportance  float64 `json:"section_importance"`
	PersonaSpecificity float64 `json:"persona_specificity"`
	FormattingBonus    float64 `json:"formatting_bonus"`
}

// ScoredSection is a section with its relevance score.
type ScoredSection struct {
	DocumentID string
	DocOrder   int // Insertion order of the document in the request
	Section    doctree.Section
	Score      float64
	Breakdown  Breakdown
}

// Scorer is safe for concurrent use; it only reads the profile.
type Scorer struct {
	profile  *persona.Profile
	cfg      Config
	keywords []string
}

func NewScorer(p *persona.Profile, cfg Config) *Scorer {
	if cfg.ContextWindow <= 0 {
		cfg.ContextWindow = 200
	}
	if cfg.WordsPerUnit <= 0 {
		cfg.WordsPerUnit = 50
	}
	if cfg.Ceiling <= 0 {
		cfg.Ceiling = 100
	}
	return &Scorer{profile: p, cfg: cfg, keywords: p.Keywords()}
}

// Score computes the relevance of one section. avgSize is the document's
// weighted average font size, used for the formatting bonus.
func (s *Scorer) Score(docID string, docOrder int, sec doctree.Section, avgSize float64) ScoredSection {
	heading := prepare(sec.Heading.Text)
	body := prepare(sec.BodyText())
	windowLen := float64(s.cfg.ContextWindow)

	var bd Breakdown
	var kfSum float64
	domainHits := 0

	// Sorted keyword order keeps float summation stable.
	for _, kw := range s.keywords {
		class := s.profile.Class(kw)
		w := class.Weight()

		bodyHits := matchOffsets(body, kw)
		kfSum += w * float64(len(bodyHits))

		headHits := matchOffsets(heading, kw)
		bd.ContextRelevance += w * float64(len(headHits))
		for _, off := range bodyHits {
			pos := float64(utf8.RuneCountInString(body[:off]))
			if pos < windowLen {
				bd.ContextRelevance += w * (1 - pos/windowLen)
			}
		}

		if class == persona.ClassDomain && (len(bodyHits) > 0 || len(headHits) > 0) {
			domainHits++
		}
	}

	words := len(strings.Fields(body))
	bd.KeywordFrequency = kfSum / math.Max(1, float64(words)/float64(s.cfg.WordsPerUnit))
	bd.SectionImportance = Importance(sec.Heading.Level)
	bd.PersonaSpecificity = persona.ClassDomain.Weight() * float64(domainHits)
	bd.FormattingBonus = FormattingBonus(sec.Heading, avgSize)

	score := WeightKeywordFrequency*bd.KeywordFrequency +
		WeightContextRelevance*bd.ContextRelevance +
		WeightSectionImportance*bd.SectionImportance +
		WeightPersonaSpecificity*bd.PersonaSpecificity +
		bd.FormattingBonus
	score = math.Min(score, s.cfg.Ceiling)

	return ScoredSection{
		DocumentID: docID,
		DocOrder:   docOrder,
		Section:    sec,
		Score:      Round(score),
		Breakdown:  bd,
	}
}

// Importance is the fixed structural score per heading level.
func Importance(l doctree.HeadingLevel) float64 {
	switch l {
	case doctree.LevelH1:
		return 3
	case doctree.LevelH2:
		return 2
	case doctree.LevelH3:
		return 1
	}
	return 0
}

// FormattingBonus rewards headings set above the document's average size,
// or failing that, set in bold.
func FormattingBonus(h doctree.HeadingNode, avgSize float64) float64 {
	switch {
	case avgSize > 0 && h.FontSize > avgSize:
		return BonusLargeHeading
	case h.Bold:
		return BonusBoldHeading
	}
	return 0
}

// Round fixes a score to four decimals so output is byte-stable.
func Round(v float64) float64 {
	return math.Round(v*1e4) / 1e4
}

func prepare(s string) string {
	return strings.ToLower(norm.NFKC.String(s))
}

// matchOffsets returns byte offsets of word-bounded occurrences of kw in
// text. A trailing plural "s" or "es" is tolerated.
func matchOffsets(text, kw string) []int {
	if kw == "" {
		return nil
	}
	var out []int
	for i := 0; i < len(text); {
		j := strings.Index(text[i:], kw)
		if j < 0 {
			break
		}
		start := i + j
		end := start + len(kw)
		if wordBoundaryBefore(text, start) && wordBoundaryAfter(text, pluralEnd(text, end)) {
			out = append(out, start)
			i = end
			continue
		}
		i = start + 1
	}
	return out
}

func pluralEnd(text string, end int) int {
	switch {
	case strings.HasPrefix(text[end:], "es") && wordBoundaryAfter(text, end+2):
		return end + 2
	case strings.HasPrefix(text[end:], "s") && wordBoundaryAfter(text, end+1):
		return end + 1
	}
	return end
}

func wordBoundaryBefore(text string, i int) bool {
	if i == 0 {
		return true
	}
	r, _ := utf8.DecodeLastRuneInString(text[:i])
	return !isWordRune(r)
}

func wordBoundaryAfter(text string, i int) bool {
	if i >= len(text) {
		return true
	}
	r, _ := utf8.DecodeRuneInString(text[i:])
	return !isWordRune(r)
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}
