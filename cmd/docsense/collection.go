package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-playground/validator/v10"

	"github.com/dgallion1/docsense/internal/pipeline"
)

// Collection is the analyze input file: the documents to rank, the persona
// and the job to be done.
type Collection struct {
	ChallengeInfo struct {
		ChallengeID  string `json:"challenge_id"`
		TestCaseName string `json:"test_case_name"`
		Description  string `json:"description"`
	} `json:"challenge_info"`
	Documents []CollectionDocument `json:"documents" validate:"required,min=1,max=10,dive"`
	Persona   struct {
		Role string `json:"role" validate:"required"`
	} `json:"persona"`
	JobToBeDone struct {
		Task string `json:"task" validate:"required"`
	} `json:"job_to_be_done"`
}

// CollectionDocument names one input file relative to the documents dir.
type CollectionDocument struct {
	Filename string `json:"filename" validate:"required"`
	Title    string `json:"title"`
}

var validate = validator.New()

func loadCollection(path string) (*Collection, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read collection: %w", err)
	}
	var c Collection
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("decode collection: %w", err)
	}
	if err := validate.Struct(&c); err != nil {
		return nil, fmt.Errorf("invalid collection: %w", err)
	}
	return &c, nil
}

// Request reads every listed document from dir into an analysis request.
func (c *Collection) Request(dir string) (pipeline.Request, error) {
	req := pipeline.Request{
		Persona: c.Persona.Role,
		Task:    c.JobToBeDone.Task,
	}
	for _, d := range c.Documents {
		data, err := os.ReadFile(filepath.Join(dir, d.Filename))
		if err != nil {
			return pipeline.Request{}, fmt.Errorf("read document %s: %w", d.Filename, err)
		}
		req.Documents = append(req.Documents, pipeline.Input{
			ID:       d.Filename,
			Filename: d.Filename,
			Data:     data,
		})
	}
	return req, nil
}
