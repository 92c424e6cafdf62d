// Package pipeline runs documents through classification and relevance
// ranking under per-request and per-document time budgets.
package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dgallion1/docsense/internal/cache"
	"github.com/dgallion1/docsense/internal/config"
	"github.com/dgallion1/docsense/internal/decode"
	"github.com/dgallion1/docsense/internal/doctree"
	"github.com/dgallion1/docsense/internal/normalize"
	"github.com/dgallion1/docsense/internal/outline"
	"github.com/dgallion1/docsense/internal/persona"
	"github.com/dgallion1/docsense/internal/ranking"
	"github.com/dgallion1/docsense/internal/refine"
	"github.com/dgallion1/docsense/internal/relevance"
	"github.com/dgallion1/docsense/internal/section"
)

// ErrNoDocuments is returned when a request carries no documents.
var ErrNoDocuments = errors.New("no documents supplied")

// Options tunes every stage of the engine.
type Options struct {
	Workers        int
	RequestBudget  time.Duration
	DocumentBudget time.Duration
	TopK           int
	CacheTTL       time.Duration

	Decode    decode.Options
	Normalize normalize.Config
	Outline   outline.Config
	Relevance relevance.Config
	Refine    refine.Config
}

// DefaultOptions returns the stage defaults.
func DefaultOptions() Options {
	return Options{
		Workers:        4,
		RequestBudget:  60 * time.Second,
		DocumentBudget: 10 * time.Second,
		TopK:           ranking.DefaultK,
		Normalize:      normalize.DefaultConfig(),
		Outline:        outline.DefaultConfig(),
		Relevance:      relevance.DefaultConfig(),
		Refine:         refine.DefaultConfig(),
	}
}

// OptionsFromConfig maps service config onto engine options.
func OptionsFromConfig(cfg config.Config) Options {
	opts := DefaultOptions()
	opts.Workers = cfg.WorkerCount
	opts.RequestBudget = cfg.RequestBudget
	opts.DocumentBudget = cfg.DocumentBudget
	opts.TopK = cfg.TopK
	opts.CacheTTL = cfg.CacheTTL
	opts.Decode.PDFFallbackPdftotext = cfg.PDFFallbackPdftotext
	opts.Normalize.LineGapRatio = cfg.LineGapRatio
	opts.Outline.HeadingMargin = cfg.HeadingMargin
	opts.Relevance.Ceiling = cfg.ScoreCeiling
	opts.Refine.Budget = cfg.ExcerptBudget
	return opts
}

// Engine runs classification and ranking. It is safe for concurrent use.
type Engine struct {
	opts  Options
	table *persona.Table
	cache cache.Cache // nil disables memoisation
	stats *DocumentStats
	log   *slog.Logger

	decodeFile  func(io.Reader, string, decode.Options) (*doctree.RawDocument, error)
	fingerprint string
}

func NewEngine(opts Options, table *persona.Table, c cache.Cache, stats *DocumentStats, log *slog.Logger) *Engine {
	if opts.Workers <= 0 {
		opts.Workers = 4
	}
	if opts.RequestBudget <= 0 {
		opts.RequestBudget = 60 * time.Second
	}
	if opts.DocumentBudget <= 0 {
		opts.DocumentBudget = 10 * time.Second
	}
	if opts.TopK <= 0 {
		opts.TopK = ranking.DefaultK
	}
	if stats == nil {
		stats = NewDocumentStats(time.Hour)
	}
	if log == nil {
		log = slog.Default()
	}
	return &Engine{
		opts:  opts,
		table: table,
		cache: c,
		stats: stats,
		log:   log,

		decodeFile: decode.File,
		fingerprint: ContentHashHex(fmt.Appendf(nil, "%+v|%+v|%+v|%+v",
			opts.Decode, opts.Normalize, opts.Outline, opts.Refine))[:16],
	}
}

// Stats returns the rolling per-document outcome aggregate.
func (e *Engine) Stats() StatsSnapshot {
	snap := e.stats.Snapshot()
	if e.cache != nil {
		snap.CacheEntries = e.cache.Len()
	}
	return snap
}

// Outline classifies a single document within the document budget.
func (e *Engine) Outline(ctx context.Context, in Input) (*Classified, error) {
	c, _, err := e.classifyWithin(ctx, in)
	return c, err
}

// classifyWithin bounds one document by DocumentBudget. Stages are CPU
// bound, so on expiry the worker is abandoned and finishes in the background.
func (e *Engine) classifyWithin(ctx context.Context, in Input) (*Classified, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, e.opts.DocumentBudget)
	defer cancel()

	type result struct {
		c      *Classified
		cached bool
		err    error
	}
	ch := make(chan result, 1)
	start := time.Now()
	go func() {
		c, cached, err := e.classify(ctx, in)
		ch <- result{c, cached, err}
	}()

	var r result
	select {
	case r = <-ch:
	case <-ctx.Done():
		r.err = fmt.Errorf("classify %s: %w", in.documentID(), ctx.Err())
	}

	obs := Observation{Status: StatusCompleted, Cached: r.cached, Elapsed: time.Since(start)}
	if r.err != nil {
		_, obs.Status = failureFor(in.documentID(), r.err)
	}
	e.stats.Record(obs)
	return r.c, r.cached, r.err
}

func (e *Engine) classify(ctx context.Context, in Input) (*Classified, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	var key string
	if e.cache != nil && in.Raw == nil {
		key = cache.Key("classify", ContentHashHex(in.Data), in.Filename, e.fingerprint)
		if v, found, err := e.cache.Get(key); err == nil && found {
			if c, ok := v.(*Classified); ok {
				return c, true, nil
			}
		}
	}

	doc := in.Raw
	if doc == nil {
		var err error
		doc, err = e.decodeFile(bytes.NewReader(in.Data), in.Filename, e.opts.Decode)
		if err != nil {
			return nil, false, err
		}
	}
	if doc.Filename == "" {
		cp := *doc
		cp.Filename = in.Filename
		doc = &cp
	}
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	blocks := normalize.Blocks(doc.Runs, e.opts.Normalize)
	res, err := outline.Classify(doc, blocks, e.opts.Outline)
	if err != nil {
		return nil, false, err
	}
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	body := blocks
	if res.TitleBlock >= 0 {
		body = make([]doctree.Block, 0, len(blocks))
		for _, b := range blocks {
			if b.Index != res.TitleBlock {
				body = append(body, b)
			}
		}
	}
	sections, err := section.Segment(res.Headings, body, doc.PageCount)
	if err != nil {
		return nil, false, err
	}

	c := &Classified{
		Filename:  doc.Filename,
		PageCount: doc.PageCount,
		Outline:   res,
		Blocks:    blocks,
		Sections:  sections,
		refiner:   refine.New(e.opts.Refine, body, doc.PageCount),
	}
	if key != "" {
		if err := e.cache.Set(key, c, e.opts.CacheTTL); err != nil {
			e.log.Warn("cache write failed", "filename", in.Filename, "error", err)
		}
	}
	return c, false, nil
}

// Request is one persona-driven analysis over a document collection.
type Request struct {
	RunID     string
	Documents []Input
	Persona   string
	Task      string
	Timestamp string // Echoed into metadata when set
}

// Metadata echoes the request inputs.
type Metadata struct {
	InputDocuments      []string `json:"input_documents"`
	Persona             string   `json:"persona"`
	JobToBeDone         string   `json:"job_to_be_done"`
	ProcessingTimestamp string   `json:"processing_timestamp,omitempty"`
}

// RankedSection is one entry of the ranking output.
type RankedSection struct {
	DocumentID     string  `json:"document_id"`
	SectionTitle   string  `json:"section_title"`
	Page           int     `json:"page"`
	Score          float64 `json:"score"`
	ImportanceRank int     `json:"importance_rank"`
	Excerpt        string  `json:"excerpt"`
}

// Result is the outcome of Analyze.
type Result struct {
	Metadata       Metadata         `json:"metadata"`
	RankedSections []RankedSection  `json:"ranked_sections"`
	Partial        bool             `json:"partial"`
	Failures       []Failure        `json:"failures"`
	Documents      []DocumentReport `json:"documents"`
}

type docSlot struct {
	classified *Classified
	scored     []relevance.ScoredSection
	report     DocumentReport
	failure    *Failure
}

// Analyze classifies every document in parallel, scores their sections
// against the persona profile and returns the top entries. Failed or
// timed-out documents are reported and excluded; the rest still rank.
func (e *Engine) Analyze(ctx context.Context, req Request) (*Result, error) {
	if len(req.Documents) == 0 {
		return nil, ErrNoDocuments
	}
	log := e.log.With("run_id", req.RunID, "persona", req.Persona, "documents", len(req.Documents))

	profile := e.table.Build(req.Persona, req.Task)
	if !profile.Known {
		log.Warn("unknown persona, using task keywords only")
	}
	scorer := relevance.NewScorer(profile, e.opts.Relevance)

	ctx, cancel := context.WithTimeout(ctx, e.opts.RequestBudget)
	defer cancel()

	slots := make([]docSlot, len(req.Documents))
	var g errgroup.Group
	g.SetLimit(e.opts.Workers)
	for i, in := range req.Documents {
		g.Go(func() error {
			slots[i] = e.analyzeOne(ctx, log, i, in, scorer)
			return nil
		})
	}
	_ = g.Wait()

	res := &Result{
		Metadata: Metadata{
			InputDocuments:      make([]string, 0, len(req.Documents)),
			Persona:             req.Persona,
			JobToBeDone:         req.Task,
			ProcessingTimestamp: req.Timestamp,
		},
		RankedSections: []RankedSection{},
		Failures:       []Failure{},
		Documents:      make([]DocumentReport, 0, len(slots)),
	}

	var all []relevance.ScoredSection
	for i, s := range slots {
		res.Metadata.InputDocuments = append(res.Metadata.InputDocuments, req.Documents[i].Filename)
		res.Documents = append(res.Documents, s.report)
		if s.failure != nil {
			res.Failures = append(res.Failures, *s.failure)
			if s.failure.Kind == KindTimeout {
				res.Partial = true
			}
			continue
		}
		all = append(all, s.scored...)
	}

	for i, r := range ranking.Rank(all, e.opts.TopK) {
		res.RankedSections = append(res.RankedSections, RankedSection{
			DocumentID:     r.DocumentID,
			SectionTitle:   r.Section.Heading.Text,
			Page:           r.Section.PageStart,
			Score:          r.Score,
			ImportanceRank: i + 1,
			Excerpt:        slots[r.DocOrder].classified.Excerpt(r.Section),
		})
	}

	log.Info("analysis complete",
		"scored", len(all), "ranked", len(res.RankedSections),
		"failures", len(res.Failures), "partial", res.Partial)
	return res, nil
}

func (e *Engine) analyzeOne(ctx context.Context, log *slog.Logger, order int, in Input, scorer *relevance.Scorer) docSlot {
	docID := in.documentID()
	log = log.With("document_id", docID)
	start := time.Now()

	slot := docSlot{report: DocumentReport{DocumentID: docID, Filename: in.Filename}}
	c, cached, err := e.classifyWithin(ctx, in)
	slot.report.ElapsedMs = time.Since(start).Milliseconds()
	if err != nil {
		f, status := failureFor(docID, err)
		log.Error("document failed", "kind", f.Kind, "error", err)
		slot.failure = &f
		slot.report.Status = status
		return slot
	}

	slot.classified = c
	slot.report.Status = StatusCompleted
	slot.report.Title = c.Outline.Title
	slot.report.Headings = len(c.Outline.Headings)
	slot.report.Sections = len(c.Sections)
	slot.report.Cached = cached

	for _, sec := range section.Rankable(c.Sections) {
		slot.scored = append(slot.scored, scorer.Score(docID, order, sec, c.Outline.Stats.AvgSize))
	}
	log.Info("document scored", "sections", len(slot.scored), "cached", cached, "elapsed_ms", slot.report.ElapsedMs)
	return slot
}
