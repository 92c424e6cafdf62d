// Package ranking merges scored sections across a collection and selects
// the top entries.
package ranking

import (
	"math"
	"sort"

	"github.com/dgallion1/docsense/internal/relevance"
)

// DefaultK is the number of sections returned per request.
const DefaultK = 5

// cutoffSlack absorbs rounding when comparing against the cutoff.
const cutoffSlack = 1e-9

// Rank drops preamble sections, applies the adaptive cutoff, orders the
// rest and truncates to k. The result is never padded.
func Rank(scored []relevance.ScoredSection, k int) []relevance.ScoredSection {
	if k <= 0 {
		k = DefaultK
	}

	pool := make([]relevance.ScoredSection, 0, len(scored))
	for _, s := range scored {
		if !s.Section.Preamble {
			pool = append(pool, s)
		}
	}
	if len(pool) == 0 {
		return nil
	}

	scores := make([]float64, len(pool))
	for i, s := range pool {
		scores[i] = s.Score
	}
	cut := Cutoff(scores)

	kept := pool[:0]
	for _, s := range pool {
		if s.Score >= cut-cutoffSlack {
			kept = append(kept, s)
		}
	}

	sort.SliceStable(kept, func(i, j int) bool {
		return less(kept[i], kept[j])
	})

	if len(kept) > k {
		kept = kept[:k]
	}
	out := make([]relevance.ScoredSection, len(kept))
	copy(out, kept)
	return out
}

// Cutoff is the mean minus one population standard deviation of the
// candidate scores. It depends only on the scores passed in.
func Cutoff(scores []float64) float64 {
	if len(scores) == 0 {
		return 0
	}
	var sum float64
	for _, s := range scores {
		sum += s
	}
	mean := sum / float64(len(scores))

	var sq float64
	for _, s := range scores {
		d := s - mean
		sq += d * d
	}
	return mean - math.Sqrt(sq/float64(len(scores)))
}

// less orders by score, then higher heading level, earlier document,
// earlier page and earlier section.
func less(a, b relevance.ScoredSection) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	if a.Section.Heading.Level != b.Section.Heading.Level {
		return a.Section.Heading.Level < b.Section.Heading.Level
	}
	if a.DocOrder != b.DocOrder {
		return a.DocOrder < b.DocOrder
	}
	if a.Section.Heading.Page != b.Section.Heading.Page {
		return a.Section.Heading.Page < b.Section.Heading.Page
	}
	return a.Section.Order < b.Section.Order
}
