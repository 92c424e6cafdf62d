package doctree

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestHeadingLevel_JSON(t *testing.T) {
	h := HeadingNode{Level: LevelH2, Text: "What is AI?", Page: 2, BlockIndex: 7}
	data, err := json.Marshal(h)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := `{"level":"H2","text":"What is AI?","page":2}`
	if string(data) != want {
		t.Errorf("expected %s, got %s", want, data)
	}

	var back HeadingNode
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if back.Level != LevelH2 {
		t.Errorf("expected level %v, got %v", LevelH2, back.Level)
	}
}

func TestHeadingLevel_UnmarshalUnknown(t *testing.T) {
	var l HeadingLevel
	if err := l.UnmarshalText([]byte("H7")); err == nil {
		t.Error("expected error for unknown level")
	}
}

func TestBBox_Union(t *testing.T) {
	a := BBox{X0: 10, Y0: 20, X1: 50, Y1: 30}
	b := BBox{X0: 5, Y0: 25, X1: 40, Y1: 45}
	got := a.Union(b)
	want := BBox{X0: 5, Y0: 20, X1: 50, Y1: 45}
	if got != want {
		t.Errorf("expected %+v, got %+v", want, got)
	}
}

func TestSection_BodyText(t *testing.T) {
	s := Section{Blocks: []Block{{Text: "first"}, {Text: "second"}}}
	if got := s.BodyText(); got != "first\nsecond" {
		t.Errorf("expected %q, got %q", "first\nsecond", got)
	}
}

func TestInvariantViolation_ErrorsAs(t *testing.T) {
	var err error = &InvariantViolation{Rule: "page-order", Detail: "start 3 > end 2"}
	var iv *InvariantViolation
	if !errors.As(err, &iv) {
		t.Fatal("expected errors.As to match InvariantViolation")
	}
	if iv.Rule != "page-order" {
		t.Errorf("expected rule %q, got %q", "page-order", iv.Rule)
	}
}

func TestNest_Hierarchy(t *testing.T) {
	sections := []Section{
		{Preamble: true, PageStart: 1, PageEnd: 1, Blocks: []Block{{Text: "Cover note."}}},
		{Heading: HeadingNode{Level: LevelH1, Text: "Introduction", Page: 1}, Blocks: []Block{{Text: "Intro body."}}},
		{Heading: HeadingNode{Level: LevelH2, Text: "What is AI?", Page: 2}},
		{Heading: HeadingNode{Level: LevelH3, Text: "History", Page: 2}},
		{Heading: HeadingNode{Level: LevelH2, Text: "Uses", Page: 3}},
		{Heading: HeadingNode{Level: LevelH1, Text: "Conclusion", Page: 4}},
	}

	tree := Nest("Understanding AI", sections)
	if tree.Title != "Understanding AI" {
		t.Errorf("expected title %q, got %q", "Understanding AI", tree.Title)
	}
	if len(tree.Children) != 3 {
		t.Fatalf("expected 3 top-level children (preamble + 2 H1), got %d", len(tree.Children))
	}
	if tree.Children[0].Title != "" || tree.Children[0].Text != "Cover note." {
		t.Errorf("expected preamble node first, got %+v", tree.Children[0])
	}

	intro := tree.Children[1]
	if intro.Title != "Introduction" || intro.Text != "Intro body." {
		t.Errorf("unexpected intro node %+v", intro)
	}
	if len(intro.Children) != 2 {
		t.Fatalf("expected 2 H2 children under Introduction, got %d", len(intro.Children))
	}
	if intro.Children[0].Title != "What is AI?" {
		t.Errorf("expected %q, got %q", "What is AI?", intro.Children[0].Title)
	}
	if len(intro.Children[0].Children) != 1 || intro.Children[0].Children[0].Title != "History" {
		t.Errorf("expected History nested under What is AI?")
	}
	if intro.Children[1].Title != "Uses" {
		t.Errorf("expected %q, got %q", "Uses", intro.Children[1].Title)
	}
	if tree.Children[2].Title != "Conclusion" {
		t.Errorf("expected %q, got %q", "Conclusion", tree.Children[2].Title)
	}
}

func TestNest_OrphanH3AtTopLevel(t *testing.T) {
	tree := Nest("doc", []Section{
		{Heading: HeadingNode{Level: LevelH3, Text: "Notes", Page: 1}},
	})
	if len(tree.Children) != 1 || tree.Children[0].Title != "Notes" {
		t.Fatalf("expected orphan H3 at top level, got %+v", tree.Children)
	}
}
