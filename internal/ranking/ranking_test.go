package ranking

import (
	"testing"

	"github.com/dgallion1/docsense/internal/doctree"
	"github.com/dgallion1/docsense/internal/relevance"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scored(doc int, title string, lvl doctree.HeadingLevel, page int, score float64) relevance.ScoredSection {
	return relevance.ScoredSection{
		DocumentID: "doc",
		DocOrder:   doc,
		Score:      score,
		Section: doctree.Section{
			Heading:   doctree.HeadingNode{Level: lvl, Text: title, Page: page},
			PageStart: page,
			PageEnd:   page,
		},
	}
}

func titles(in []relevance.ScoredSection) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = s.Section.Heading.Text
	}
	return out
}

func TestRank_TruncatesToK(t *testing.T) {
	var pool []relevance.ScoredSection
	for i, sc := range []float64{9, 8.5, 8, 7.5, 7, 6.5, 6, 5.5} {
		pool = append(pool, scored(0, string(rune('A'+i)), doctree.LevelH2, 1, sc))
	}
	got := Rank(pool, 5)
	require.Len(t, got, 5)
	assert.Equal(t, []string{"A", "B", "C", "D", "E"}, titles(got))
}

func TestRank_OnlyThreeClearCutoff(t *testing.T) {
	pool := []relevance.ScoredSection{
		scored(0, "low", doctree.LevelH1, 1, 0),
		scored(0, "a", doctree.LevelH1, 2, 10),
		scored(1, "b", doctree.LevelH1, 1, 10),
		scored(2, "c", doctree.LevelH1, 1, 10),
	}
	got := Rank(pool, 5)
	require.Len(t, got, 3, "result must not be padded")
	assert.Equal(t, []string{"a", "b", "c"}, titles(got))
}

func TestRank_SmallPool(t *testing.T) {
	pool := []relevance.ScoredSection{
		scored(0, "x", doctree.LevelH1, 1, 3),
		scored(1, "y", doctree.LevelH2, 1, 3),
		scored(2, "z", doctree.LevelH3, 1, 3),
	}
	got := Rank(pool, DefaultK)
	assert.Len(t, got, 3)
}

func TestRank_TieBreaks(t *testing.T) {
	pool := []relevance.ScoredSection{
		scored(1, "doc1-h2-p1", doctree.LevelH2, 1, 5),
		scored(0, "doc0-h2-p3", doctree.LevelH2, 3, 5),
		scored(0, "doc0-h2-p2", doctree.LevelH2, 2, 5),
		scored(2, "doc2-h1", doctree.LevelH1, 9, 5),
	}
	got := Rank(pool, 5)
	assert.Equal(t, []string{"doc2-h1", "doc0-h2-p2", "doc0-h2-p3", "doc1-h2-p1"}, titles(got))
}

func TestRank_ExcludesPreamble(t *testing.T) {
	pre := scored(0, "", doctree.LevelTitle, 1, 50)
	pre.Section.Preamble = true
	got := Rank([]relevance.ScoredSection{pre, scored(0, "real", doctree.LevelH1, 1, 1)}, 5)
	assert.Equal(t, []string{"real"}, titles(got))
}

func TestRank_Empty(t *testing.T) {
	assert.Empty(t, Rank(nil, 5))
}

func TestRank_DoesNotMutateInput(t *testing.T) {
	pool := []relevance.ScoredSection{
		scored(0, "b", doctree.LevelH1, 1, 1),
		scored(0, "a", doctree.LevelH1, 1, 2),
	}
	_ = Rank(pool, 5)
	assert.Equal(t, "b", pool[0].Section.Heading.Text)
}

func TestCutoff(t *testing.T) {
	assert.InDelta(t, 7.5-4.330127, Cutoff([]float64{10, 10, 10, 0}), 1e-6)
	assert.Equal(t, 4.0, Cutoff([]float64{4, 4, 4}))
	assert.Equal(t, 0.0, Cutoff(nil))
}
