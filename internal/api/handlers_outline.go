package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/dgallion1/docsense/internal/decode"
	"github.com/dgallion1/docsense/internal/doctree"
	"github.com/dgallion1/docsense/internal/pipeline"
)

func (s *Server) handleOutline(w http.ResponseWriter, r *http.Request) {
	// Limit total request size.
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes+1024*1024) // extra 1MB for form overhead

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		jsonError(w, "invalid multipart form: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	fhs := r.MultipartForm.File["file"]
	if len(fhs) == 0 {
		jsonError(w, "file is required", http.StatusBadRequest)
		return
	}

	in, status, err := s.readUpload(fhs[0])
	if err != nil {
		jsonError(w, err.Error(), status)
		return
	}

	c, err := s.engine.Outline(r.Context(), in)
	if err != nil {
		s.log.Error("outline failed", "filename", in.Filename, "run_id", RunIDFrom(r.Context()), "error", err)
		jsonError(w, err.Error(), errorStatus(err))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(c.OutlineResult(r.URL.Query().Get("tree") == "true"))
}

// readUpload validates and reads one uploaded file into a pipeline input.
func (s *Server) readUpload(fh *multipart.FileHeader) (pipeline.Input, int, error) {
	filename := sanitizeFilename(fh.Filename)
	if !decode.IsSupportedExtension(filename) {
		return pipeline.Input{}, http.StatusBadRequest, fmt.Errorf("unsupported file type: %s", filepath.Ext(filename))
	}

	f, err := fh.Open()
	if err != nil {
		return pipeline.Input{}, http.StatusInternalServerError, fmt.Errorf("failed to open file %s", filename)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, s.cfg.MaxUploadBytes+1))
	if err != nil {
		return pipeline.Input{}, http.StatusInternalServerError, fmt.Errorf("failed to read file %s", filename)
	}
	if int64(len(data)) > s.cfg.MaxUploadBytes {
		return pipeline.Input{}, http.StatusRequestEntityTooLarge, fmt.Errorf("file exceeds max size (%d bytes)", s.cfg.MaxUploadBytes)
	}
	return pipeline.Input{ID: filename, Filename: filename, Data: data}, 0, nil
}

// errorStatus maps a classification error to an HTTP status.
func errorStatus(err error) int {
	var de *decode.Error
	var iv *doctree.InvariantViolation
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.As(err, &de), errors.As(err, &iv):
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

func sanitizeFilename(name string) string {
	// Strip path components, keep only the base name.
	name = filepath.Base(name)
	name = strings.ReplaceAll(name, "/", "_")
	name = strings.ReplaceAll(name, "\\", "_")
	name = strings.ReplaceAll(name, "..", "_")
	if name == "" || name == "." {
		name = "unnamed"
	}
	return name
}
