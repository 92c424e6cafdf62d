package pipeline

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"

	"github.com/dgallion1/docsense/internal/decode"
	"github.com/dgallion1/docsense/internal/doctree"
	"github.com/dgallion1/docsense/internal/outline"
	"github.com/dgallion1/docsense/internal/refine"
)

// DocumentStatus is the terminal state of one document in a request.
type DocumentStatus string

const (
	StatusCompleted DocumentStatus = "completed"
	StatusFailed    DocumentStatus = "failed"
	StatusTimedOut  DocumentStatus = "timed_out"
)

// FailureKind classifies why a document did not contribute.
type FailureKind string

const (
	KindDecodeFailure      FailureKind = "DecodeFailure"
	KindTimeout            FailureKind = "Timeout"
	KindInvariantViolation FailureKind = "InvariantViolation"
)

// Failure reports one document that was excluded from a result.
type Failure struct {
	DocumentID string      `json:"document_id"`
	Kind       FailureKind `json:"kind"`
	Message    string      `json:"message"`
}

// Input is one document to process. Either Data (encoded bytes, decoded by
// filename extension) or Raw (runs from an external decoder) must be set.
type Input struct {
	ID       string
	Filename string
	Data     []byte
	Raw      *doctree.RawDocument
}

func (in Input) documentID() string {
	if in.ID != "" {
		return in.ID
	}
	return in.Filename
}

// Classified is the per-document classifier output. It is shared read-only
// once built, including across requests through the cache.
type Classified struct {
	Filename  string
	PageCount int
	Outline   outline.Result
	Blocks    []doctree.Block
	Sections  []doctree.Section

	refiner *refine.Refiner
}

// Excerpt returns the refined text of one of this document's sections.
func (c *Classified) Excerpt(sec doctree.Section) string {
	return c.refiner.Excerpt(sec)
}

// OutlineResult is the JSON shape of a document outline.
type OutlineResult struct {
	Title   string                `json:"title"`
	Outline []doctree.HeadingNode `json:"outline"`
	Tree    *doctree.DocTree      `json:"tree,omitempty"`
}

// OutlineResult returns the flat outline, plus the nested view if withTree.
func (c *Classified) OutlineResult(withTree bool) OutlineResult {
	res := OutlineResult{Title: c.Outline.Title, Outline: c.Outline.Headings}
	if res.Outline == nil {
		res.Outline = []doctree.HeadingNode{}
	}
	if withTree {
		res.Tree = doctree.Nest(c.Outline.Title, c.Sections)
	}
	return res
}

// DocumentReport summarises how one document fared in a request.
type DocumentReport struct {
	DocumentID string         `json:"document_id"`
	Filename   string         `json:"filename"`
	Status     DocumentStatus `json:"status"`
	Title      string         `json:"title,omitempty"`
	Headings   int            `json:"headings"`
	Sections   int            `json:"sections"`
	ElapsedMs  int64          `json:"elapsed_ms"`
	Cached     bool           `json:"cached"`
}

// failureFor maps a classification error to its reported kind.
func failureFor(docID string, err error) (Failure, DocumentStatus) {
	f := Failure{DocumentID: docID, Message: err.Error()}
	var de *decode.Error
	var iv *doctree.InvariantViolation
	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		f.Kind = KindTimeout
		return f, StatusTimedOut
	case errors.As(err, &iv):
		f.Kind = KindInvariantViolation
	case errors.As(err, &de):
		f.Kind = KindDecodeFailure
	default:
		f.Kind = KindDecodeFailure
	}
	return f, StatusFailed
}

// ContentHashHex computes SHA-256 of content and returns hex string.
func ContentHashHex(data []byte) string {
	h := sha256.Sum256(data)
	return fmt.Sprintf("%x", h[:])
}
