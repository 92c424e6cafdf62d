// Package persona turns a persona label and a task description into a
// weighted keyword profile.
package persona

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
	"golang.org/x/text/unicode/norm"
)

//go:embed keywords.json
var defaultTable []byte

// WeightClass is the provenance of a profile keyword. Higher classes carry
// more points.
type WeightClass int

const (
	ClassNone WeightClass = iota
	ClassPersona
	ClassJob
	ClassDomain
)

// Weight returns the fixed point value of the class.
func (c WeightClass) Weight() float64 {
	switch c {
	case ClassPersona:
		return 2.0
	case ClassJob:
		return 3.0
	case ClassDomain:
		return 4.0
	}
	return 0
}

func (c WeightClass) String() string {
	switch c {
	case ClassPersona:
		return "persona"
	case ClassJob:
		return "job"
	case ClassDomain:
		return "domain"
	}
	return "none"
}

func (c WeightClass) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// Table is the static keyword configuration. It is loaded once per process
// and never mutated afterwards.
type Table struct {
	Personas    map[string][]string `json:"personas" validate:"required,min=1,dive,keys,required,endkeys,min=1,dive,required"`
	JobPhrases  map[string][]string `json:"job_phrases" validate:"dive,keys,required,endkeys,dive,required"`
	DomainTerms []string            `json:"domain_terms" validate:"dive,required"`
	StopWords   []string            `json:"stop_words"`

	stop   map[string]struct{}
	phrase []string // JobPhrases keys, sorted
}

var validate = validator.New()

// Default returns the embedded table.
func Default() (*Table, error) {
	return Parse(defaultTable)
}

// Load reads a table from a JSON file.
func Load(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read persona table: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates a table. Keys and terms are lower-cased.
func Parse(data []byte) (*Table, error) {
	var raw Table
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode persona table: %w", err)
	}
	if err := validate.Struct(&raw); err != nil {
		return nil, fmt.Errorf("invalid persona table: %w", err)
	}

	t := &Table{
		Personas:   make(map[string][]string, len(raw.Personas)),
		JobPhrases: make(map[string][]string, len(raw.JobPhrases)),
		stop:       make(map[string]struct{}, len(raw.StopWords)),
	}
	for k, v := range raw.Personas {
		t.Personas[normalizeLabel(k)] = lowerAll(v)
	}
	for k, v := range raw.JobPhrases {
		key := normalizeLabel(k)
		t.JobPhrases[key] = lowerAll(v)
		t.phrase = append(t.phrase, key)
	}
	sort.Strings(t.phrase)
	t.DomainTerms = lowerAll(raw.DomainTerms)
	t.StopWords = lowerAll(raw.StopWords)
	for _, w := range t.StopWords {
		t.stop[w] = struct{}{}
	}
	return t, nil
}

// Profile is an immutable keyword to weight-class mapping.
type Profile struct {
	Persona string
	Known   bool // Persona label matched the table

	classes map[string]WeightClass
	keys    []string
}

// Class returns the weight class of a keyword, ClassNone if absent.
func (p *Profile) Class(keyword string) WeightClass {
	return p.classes[keyword]
}

// Keywords returns profile keywords in sorted order.
func (p *Profile) Keywords() []string {
	out := make([]string, len(p.keys))
	copy(out, p.keys)
	return out
}

// Len reports the number of keywords.
func (p *Profile) Len() int {
	return len(p.keys)
}

// Build assembles the profile for a persona label and task. Unknown persona
// labels contribute no persona keywords; task-derived keywords still apply.
func (t *Table) Build(label, task string) *Profile {
	p := &Profile{
		Persona: normalizeLabel(label),
		classes: make(map[string]WeightClass),
	}
	put := func(kw string, c WeightClass) {
		if kw == "" {
			return
		}
		if c > p.classes[kw] {
			p.classes[kw] = c
		}
	}

	if kws, ok := t.Personas[p.Persona]; ok {
		p.Known = true
		for _, kw := range kws {
			put(kw, ClassPersona)
		}
	}

	tokens := t.Tokenize(task)
	for _, tok := range tokens {
		put(tok, ClassJob)
	}
	for _, ph := range t.phrase {
		if phraseMatches(ph, tokens) {
			for _, kw := range t.JobPhrases[ph] {
				put(kw, ClassJob)
			}
		}
	}

	lowerTask := strings.ToLower(norm.NFKC.String(task))
	for _, term := range t.DomainTerms {
		if _, seen := p.classes[term]; seen || containsWord(lowerTask, term) {
			p.classes[term] = ClassDomain
		}
	}

	p.keys = make([]string, 0, len(p.classes))
	for k := range p.classes {
		p.keys = append(p.keys, k)
	}
	sort.Strings(p.keys)
	return p
}

// Tokenize lower-cases text, strips punctuation except inner hyphens and
// drops stop-words and bare numbers. Tokens are distinct, in first-seen order.
func (t *Table) Tokenize(text string) []string {
	text = strings.ToLower(norm.NFKC.String(text))
	fields := strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '-'
	})
	seen := make(map[string]struct{}, len(fields))
	var out []string
	for _, f := range fields {
		f = strings.Trim(f, "-")
		if len([]rune(f)) < 2 || isNumber(f) {
			continue
		}
		if _, ok := t.stop[f]; ok {
			continue
		}
		if _, ok := seen[f]; ok {
			continue
		}
		seen[f] = struct{}{}
		out = append(out, f)
	}
	return out
}

// phraseMatches reports whether every word of phrase has a matching task
// token. Words match exactly or when one is a prefix of the other and the
// shorter has at least four letters ("plan" matches "planning").
func phraseMatches(phrase string, tokens []string) bool {
	for _, w := range strings.Fields(phrase) {
		found := false
		for _, tok := range tokens {
			if stemEqual(w, tok) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func stemEqual(a, b string) bool {
	if a == b {
		return true
	}
	short, long := a, b
	if len(short) > len(long) {
		short, long = long, short
	}
	return len(short) >= 4 && strings.HasPrefix(long, short)
}

// containsWord reports whether term appears in text bounded by non-word
// characters.
func containsWord(text, term string) bool {
	for i := 0; ; {
		j := strings.Index(text[i:], term)
		if j < 0 {
			return false
		}
		start := i + j
		end := start + len(term)
		if boundary(text, start-1) && boundary(text, end) {
			return true
		}
		i = start + 1
	}
}

func boundary(s string, i int) bool {
	if i < 0 || i >= len(s) {
		return true
	}
	r := rune(s[i])
	return r < 0x80 && !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '-'
}

func isNumber(s string) bool {
	for _, r := range s {
		if !unicode.IsDigit(r) && r != '-' {
			return false
		}
	}
	return true
}

func normalizeLabel(s string) string {
	s = strings.ToLower(norm.NFKC.String(s))
	s = strings.Map(func(r rune) rune {
		if r == '_' {
			return ' '
		}
		return r
	}, s)
	return strings.Join(strings.Fields(s), " ")
}

func lowerAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(strings.ToLower(s)); s != "" {
			out = append(out, s)
		}
	}
	return out
}
