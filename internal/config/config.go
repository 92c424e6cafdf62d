package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	Port string

	// Auth. Empty disables bearer auth.
	APIKey string

	// Fan-out
	WorkerCount    int
	RequestBudget  time.Duration
	DocumentBudget time.Duration

	// Request limits. Ranking mode accepts MinDocuments..MaxDocuments files.
	MaxUploadBytes int64
	MinDocuments   int
	MaxDocuments   int

	// Classification
	LineGapRatio  float64
	HeadingMargin float64

	// Relevance and ranking
	PersonaTablePath string
	TopK             int
	ScoreCeiling     float64
	ExcerptBudget    int

	// Classification cache
	CacheTTL     time.Duration
	CacheCleanup time.Duration

	// Latency stats
	StatsWindow time.Duration

	// PDF
	PDFFallbackPdftotext bool
}

func Load() Config {
	cfg := Config{
		Port: envOr("PORT", "8090"),

		APIKey: os.Getenv("DOCSENSE_API_KEY"),

		WorkerCount:    envInt("WORKER_COUNT", 4),
		RequestBudget:  envDuration("REQUEST_BUDGET", 60*time.Second),
		DocumentBudget: envDuration("DOCUMENT_BUDGET", 10*time.Second),

		MaxUploadBytes: envInt64("MAX_UPLOAD_BYTES", 52428800), // 50MB
		MinDocuments:   envInt("MIN_DOCUMENTS", 1),
		MaxDocuments:   envInt("MAX_DOCUMENTS", 10),

		LineGapRatio:  envFloat("LINE_GAP_RATIO", 0.8),
		HeadingMargin: envFloat("HEADING_MARGIN", 0.1),

		PersonaTablePath: os.Getenv("PERSONA_TABLE_PATH"),
		TopK:             envInt("TOP_K", 5),
		ScoreCeiling:     envFloat("SCORE_CEILING", 100),
		ExcerptBudget:    envInt("EXCERPT_BUDGET", 500),

		CacheTTL:     envDuration("CACHE_TTL", 30*time.Minute),
		CacheCleanup: envDuration("CACHE_CLEANUP", 10*time.Minute),

		StatsWindow: envDuration("STATS_WINDOW", 1*time.Hour),

		PDFFallbackPdftotext: envBool("PDF_FALLBACK_PDFTOTEXT", true),
	}

	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = 4
	}
	if cfg.RequestBudget <= 0 {
		cfg.RequestBudget = 60 * time.Second
	}
	if cfg.DocumentBudget <= 0 {
		cfg.DocumentBudget = 10 * time.Second
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 52428800
	}
	if cfg.MinDocuments <= 0 {
		cfg.MinDocuments = 1
	}
	if cfg.MaxDocuments <= 0 {
		cfg.MaxDocuments = 10
	}
	if cfg.LineGapRatio <= 0 {
		cfg.LineGapRatio = 0.8
	}
	if cfg.HeadingMargin <= 0 {
		cfg.HeadingMargin = 0.1
	}
	if cfg.TopK <= 0 {
		cfg.TopK = 5
	}
	if cfg.ScoreCeiling <= 0 {
		cfg.ScoreCeiling = 100
	}
	if cfg.ExcerptBudget <= 0 {
		cfg.ExcerptBudget = 500
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 30 * time.Minute
	}
	if cfg.CacheCleanup <= 0 {
		cfg.CacheCleanup = 10 * time.Minute
	}
	if cfg.StatsWindow <= 0 {
		cfg.StatsWindow = 1 * time.Hour
	}

	return cfg
}

func (c Config) Validate() error {
	if c.DocumentBudget > c.RequestBudget {
		return fmt.Errorf("DOCUMENT_BUDGET (%s) exceeds REQUEST_BUDGET (%s)", c.DocumentBudget, c.RequestBudget)
	}
	if c.MinDocuments > c.MaxDocuments {
		return fmt.Errorf("MIN_DOCUMENTS (%d) exceeds MAX_DOCUMENTS (%d)", c.MinDocuments, c.MaxDocuments)
	}
	if c.LineGapRatio > 5 {
		return fmt.Errorf("LINE_GAP_RATIO must be at most 5, got %v", c.LineGapRatio)
	}
	if c.HeadingMargin >= 1 {
		return fmt.Errorf("HEADING_MARGIN must be below 1, got %v", c.HeadingMargin)
	}
	if c.PersonaTablePath != "" {
		if _, err := os.Stat(c.PersonaTablePath); err != nil {
			return fmt.Errorf("PERSONA_TABLE_PATH: %w", err)
		}
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
