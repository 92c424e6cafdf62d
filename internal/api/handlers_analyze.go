package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/dgallion1/docsense/internal/pipeline"
	"github.com/go-playground/validator/v10"
)

// analyzeForm is the validated form of an analyze request.
type analyzeForm struct {
	Persona   string   `validate:"required,max=200"`
	Task      string   `validate:"required,max=2000"`
	Timestamp string   `validate:"omitempty,datetime=2006-01-02T15:04:05Z07:00"`
	Filenames []string `validate:"required,min=1,dive,required"`
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes*int64(s.cfg.MaxDocuments)+10*1024*1024)

	if err := r.ParseMultipartForm(64 << 20); err != nil {
		jsonError(w, "invalid multipart form: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	files := r.MultipartForm.File["files"]
	form := analyzeForm{
		Persona:   strings.TrimSpace(r.FormValue("persona")),
		Task:      strings.TrimSpace(r.FormValue("task")),
		Timestamp: strings.TrimSpace(r.FormValue("timestamp")),
	}
	for _, fh := range files {
		form.Filenames = append(form.Filenames, fh.Filename)
	}
	if err := s.validate.Struct(&form); err != nil {
		jsonError(w, validationMessage(err), http.StatusBadRequest)
		return
	}
	if len(files) < s.cfg.MinDocuments {
		jsonError(w, fmt.Sprintf("at least %d files are required", s.cfg.MinDocuments), http.StatusBadRequest)
		return
	}
	if len(files) > s.cfg.MaxDocuments {
		jsonError(w, fmt.Sprintf("at most %d files are allowed", s.cfg.MaxDocuments), http.StatusBadRequest)
		return
	}

	req := pipeline.Request{
		RunID:     RunIDFrom(r.Context()),
		Persona:   form.Persona,
		Task:      form.Task,
		Timestamp: form.Timestamp,
	}
	seen := make(map[string]int)
	for _, fh := range files {
		in, status, err := s.readUpload(fh)
		if err != nil {
			jsonError(w, err.Error(), status)
			return
		}
		// Document ids must be unique within a request.
		if n := seen[in.Filename]; n > 0 {
			in.ID = fmt.Sprintf("%s#%d", in.ID, n+1)
		}
		seen[in.Filename]++
		req.Documents = append(req.Documents, in)
	}

	res, err := s.engine.Analyze(r.Context(), req)
	if err != nil {
		if errors.Is(err, pipeline.ErrNoDocuments) {
			jsonError(w, err.Error(), http.StatusBadRequest)
			return
		}
		jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(res)
}

// validationMessage turns validator errors into a short client message.
func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := strings.ToLower(fe.Field())
		if field == "filenames" {
			field = "files"
		}
		switch fe.Tag() {
		case "required", "min":
			msgs = append(msgs, field+" is required")
		case "max":
			msgs = append(msgs, fmt.Sprintf("%s must be at most %s characters", field, fe.Param()))
		default:
			msgs = append(msgs, fmt.Sprintf("%s is invalid", field))
		}
	}
	return strings.Join(msgs, "; ")
}
