package api

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dgallion1/docsense/internal/config"
	"github.com/dgallion1/docsense/internal/persona"
	"github.com/dgallion1/docsense/internal/pipeline"
)

func newTestServer(t *testing.T, apiKey string) *Server {
	t.Helper()
	log := slog.New(slog.NewJSONHandler(io.Discard, nil))
	tbl, err := persona.Default()
	require.NoError(t, err)

	cfg := config.Load()
	cfg.APIKey = apiKey
	cfg.MaxDocuments = 3
	engine := pipeline.NewEngine(pipeline.OptionsFromConfig(cfg), tbl, nil, nil, log)
	return NewServer(engine, log, cfg)
}

type part struct {
	field, filename, content string
}

func multipartBody(t *testing.T, fields map[string]string, files ...part) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	for _, f := range files {
		fw, err := mw.CreateFormFile(f.field, f.filename)
		require.NoError(t, err)
		_, err = fw.Write([]byte(f.content))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

const recipeMarkdown = `# Weeknight Recipes

## Vegetarian Lasagna

Layer the vegetarian ragu with sheets of pasta, ricotta and spinach, then bake until golden.

## Grilled Steak

Sear the steak over high heat and rest before slicing against the grain.
`

func TestHealth(t *testing.T) {
	srv := newTestServer(t, "secret")
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get(RunIDHeader))
}

func TestAuthRequiredWhenKeySet(t *testing.T) {
	srv := newTestServer(t, "secret")

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/stats/latency", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/stats/latency", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/stats/latency", nil)
	req.Header.Set("Authorization", "Bearer secret")
	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestOutlineEndpoint(t *testing.T) {
	srv := newTestServer(t, "")
	body, ctype := multipartBody(t, nil, part{"file", "recipes.md", recipeMarkdown})
	req := httptest.NewRequest(http.MethodPost, "/api/outline", body)
	req.Header.Set("Content-Type", ctype)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var got struct {
		Title   string `json:"title"`
		Outline []struct {
			Level string `json:"level"`
			Text  string `json:"text"`
			Page  int    `json:"page"`
		} `json:"outline"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "Weeknight Recipes", got.Title)
	require.Len(t, got.Outline, 2)
	assert.Equal(t, "H1", got.Outline[0].Level)
	assert.Equal(t, "Vegetarian Lasagna", got.Outline[0].Text)
	assert.Equal(t, 1, got.Outline[0].Page)
}

func TestOutlineEndpoint_UnsupportedType(t *testing.T) {
	srv := newTestServer(t, "")
	body, ctype := multipartBody(t, nil, part{"file", "data.csv", "a,b"})
	req := httptest.NewRequest(http.MethodPost, "/api/outline", body)
	req.Header.Set("Content-Type", ctype)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "unsupported file type")
}

func TestOutlineEndpoint_DecodeFailure(t *testing.T) {
	srv := newTestServer(t, "")
	body, ctype := multipartBody(t, nil, part{"file", "broken.pdf", "not a pdf"})
	req := httptest.NewRequest(http.MethodPost, "/api/outline", body)
	req.Header.Set("Content-Type", ctype)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestAnalyzeEndpoint(t *testing.T) {
	srv := newTestServer(t, "")
	body, ctype := multipartBody(t,
		map[string]string{
			"persona": "Food Contractor",
			"task":    "Prepare a vegetarian buffet-style dinner menu for a corporate gathering",
		},
		part{"files", "recipes.md", recipeMarkdown},
		part{"files", "broken.pdf", "not a pdf"},
	)
	req := httptest.NewRequest(http.MethodPost, "/api/analyze", body)
	req.Header.Set("Content-Type", ctype)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var got pipeline.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))

	assert.Equal(t, []string{"recipes.md", "broken.pdf"}, got.Metadata.InputDocuments)
	require.NotEmpty(t, got.RankedSections)
	assert.Equal(t, "Vegetarian Lasagna", got.RankedSections[0].SectionTitle)
	assert.Equal(t, "recipes.md", got.RankedSections[0].DocumentID)
	require.Len(t, got.Failures, 1)
	assert.Equal(t, pipeline.KindDecodeFailure, got.Failures[0].Kind)
	assert.False(t, got.Partial)
}

func TestAnalyzeEndpoint_Validation(t *testing.T) {
	srv := newTestServer(t, "")

	cases := []struct {
		name   string
		fields map[string]string
		files  []part
		want   string
	}{
		{"missing persona", map[string]string{"task": "x"}, []part{{"files", "a.md", "# A"}}, "persona is required"},
		{"missing files", map[string]string{"persona": "Student", "task": "x"}, nil, "files is required"},
		{"too many files", map[string]string{"persona": "Student", "task": "x"}, []part{
			{"files", "a.md", "a"}, {"files", "b.md", "b"}, {"files", "c.md", "c"}, {"files", "d.md", "d"},
		}, "at most 3 files"},
		{"bad timestamp", map[string]string{"persona": "Student", "task": "x", "timestamp": "yesterday"}, []part{{"files", "a.md", "# A"}}, "timestamp is invalid"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			body, ctype := multipartBody(t, tc.fields, tc.files...)
			req := httptest.NewRequest(http.MethodPost, "/api/analyze", body)
			req.Header.Set("Content-Type", ctype)
			rec := httptest.NewRecorder()
			srv.ServeHTTP(rec, req)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, rec.Body.String(), tc.want)
		})
	}
}

func TestAnalyzeEndpoint_MinimumDocuments(t *testing.T) {
	srv := newTestServer(t, "")
	srv.cfg.MinDocuments = 2
	body, ctype := multipartBody(t,
		map[string]string{"persona": "Student", "task": "revise for the exam"},
		part{"files", "recipes.md", recipeMarkdown},
	)
	req := httptest.NewRequest(http.MethodPost, "/api/analyze", body)
	req.Header.Set("Content-Type", ctype)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "at least 2 files are required")
}

func TestDocumentStatsEndpoint(t *testing.T) {
	srv := newTestServer(t, "")
	body, ctype := multipartBody(t, nil, part{"file", "recipes.md", recipeMarkdown})
	req := httptest.NewRequest(http.MethodPost, "/api/outline", body)
	req.Header.Set("Content-Type", ctype)
	srv.ServeHTTP(httptest.NewRecorder(), req)

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/stats/latency", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var got struct {
		Stats pipeline.StatsSnapshot `json:"stats"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, 1, got.Stats.Documents)
	assert.Equal(t, 1, got.Stats.Completed)
	assert.Equal(t, 1, got.Stats.Fresh.Count)
}

func TestRunID_ReusesValidHeader(t *testing.T) {
	srv := newTestServer(t, "")
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(RunIDHeader, "6f1c8a1e-2b7d-4c1e-9d0a-3e5f7a9b1c2d")
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	assert.Equal(t, "6f1c8a1e-2b7d-4c1e-9d0a-3e5f7a9b1c2d", rec.Header().Get(RunIDHeader))

	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(RunIDHeader, "not-a-uuid")
	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	assert.NotEqual(t, "not-a-uuid", rec.Header().Get(RunIDHeader))
}

func TestSanitizeFilename(t *testing.T) {
	cases := map[string]string{
		"../../etc/passwd": "passwd",
		"report.pdf":       "report.pdf",
		"a..b.md":          "a_b.md",
		"":                 "unnamed",
	}
	for in, want := range cases {
		if got := sanitizeFilename(in); got != want {
			t.Errorf("sanitizeFilename(%q): expected %q, got %q", in, want, got)
		}
	}
}
