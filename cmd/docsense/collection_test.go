package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleCollection = `{
	"challenge_info": {"challenge_id": "round_1b_001", "test_case_name": "menu_planning", "description": "Dinner menu planning"},
	"documents": [
		{"filename": "dinner.md", "title": "Dinner Ideas"},
		{"filename": "lunch.txt", "title": "Lunch Ideas"}
	],
	"persona": {"role": "Food Contractor"},
	"job_to_be_done": {"task": "Prepare a vegetarian buffet-style dinner menu for a corporate gathering"}
}`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadCollection(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "collection.json", sampleCollection)

	c, err := loadCollection(path)
	require.NoError(t, err)
	assert.Equal(t, "Food Contractor", c.Persona.Role)
	assert.Equal(t, "menu_planning", c.ChallengeInfo.TestCaseName)
	require.Len(t, c.Documents, 2)
	assert.Equal(t, "dinner.md", c.Documents[0].Filename)
}

func TestLoadCollection_Invalid(t *testing.T) {
	dir := t.TempDir()
	cases := map[string]string{
		"no documents": `{"documents": [], "persona": {"role": "x"}, "job_to_be_done": {"task": "y"}}`,
		"no persona":   `{"documents": [{"filename": "a.md"}], "job_to_be_done": {"task": "y"}}`,
		"no task":      `{"documents": [{"filename": "a.md"}], "persona": {"role": "x"}}`,
		"no filename":  `{"documents": [{"title": "A"}], "persona": {"role": "x"}, "job_to_be_done": {"task": "y"}}`,
		"bad json":     `{"documents": [`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := loadCollection(writeFile(t, dir, "c.json", body))
			assert.Error(t, err)
		})
	}
}

func TestCollectionRequest(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "dinner.md", "# Dinner\n\n## Vegetarian Chili\n\nBeans and peppers.\n")
	writeFile(t, dir, "lunch.txt", "Sandwiches and salads.")
	c, err := loadCollection(writeFile(t, dir, "collection.json", sampleCollection))
	require.NoError(t, err)

	req, err := c.Request(dir)
	require.NoError(t, err)
	assert.Equal(t, "Food Contractor", req.Persona)
	require.Len(t, req.Documents, 2)
	assert.Equal(t, "lunch.txt", req.Documents[1].ID)
	assert.Equal(t, "Sandwiches and salads.", string(req.Documents[1].Data))

	_, err = c.Request(t.TempDir())
	assert.Error(t, err)
}
