package pipeline

import (
	"slices"
	"sync"
	"time"
)

// Observation is the outcome of classifying one document.
type Observation struct {
	Status  DocumentStatus
	Cached  bool
	Elapsed time.Duration
}

type observation struct {
	at time.Time
	Observation
}

// LatencySummary aggregates the elapsed times of one group of documents.
type LatencySummary struct {
	Count int     `json:"count"`
	MinMs int64   `json:"min_ms"`
	MaxMs int64   `json:"max_ms"`
	AvgMs float64 `json:"avg_ms"`
	P50Ms float64 `json:"p50_ms"`
	P95Ms float64 `json:"p95_ms"`
	P99Ms float64 `json:"p99_ms"`
}

// StatsSnapshot breaks recent documents down by outcome. Fresh and Cached
// only cover completed documents; timeouts are counted but kept out of the
// latency figures since they stop at the budget.
type StatsSnapshot struct {
	Documents    int            `json:"documents"`
	Completed    int            `json:"completed"`
	Failed       int            `json:"failed"`
	TimedOut     int            `json:"timed_out"`
	TimeoutRate  float64        `json:"timeout_rate"`
	CacheHitRate float64        `json:"cache_hit_rate"`
	CacheEntries int            `json:"cache_entries"`
	Fresh        LatencySummary `json:"fresh"`
	Cached       LatencySummary `json:"cached"`
}

// DocumentStats keeps per-document outcomes within a rolling window.
type DocumentStats struct {
	mu     sync.Mutex
	recent []observation
	window time.Duration
	now    func() time.Time
}

func NewDocumentStats(window time.Duration) *DocumentStats {
	if window <= 0 {
		window = time.Hour
	}
	return &DocumentStats{
		recent: make([]observation, 0, 256),
		window: window,
		now:    time.Now,
	}
}

func (s *DocumentStats) Record(o Observation) {
	if o.Elapsed < 0 {
		o.Elapsed = 0
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.expireLocked(now)
	s.recent = append(s.recent, observation{at: now, Observation: o})
}

func (s *DocumentStats) Snapshot() StatsSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.expireLocked(s.now())

	var snap StatsSnapshot
	var fresh, cached []int64
	for _, o := range s.recent {
		snap.Documents++
		switch o.Status {
		case StatusCompleted:
			snap.Completed++
			if o.Cached {
				cached = append(cached, o.Elapsed.Milliseconds())
			} else {
				fresh = append(fresh, o.Elapsed.Milliseconds())
			}
		case StatusTimedOut:
			snap.TimedOut++
		default:
			snap.Failed++
		}
	}
	if snap.Documents > 0 {
		snap.TimeoutRate = float64(snap.TimedOut) / float64(snap.Documents)
	}
	if snap.Completed > 0 {
		snap.CacheHitRate = float64(len(cached)) / float64(snap.Completed)
	}
	snap.Fresh = summarize(fresh)
	snap.Cached = summarize(cached)
	return snap
}

// expireLocked drops observations older than the window. Observations are
// appended in time order, so the expired ones form a prefix.
func (s *DocumentStats) expireLocked(now time.Time) {
	cutoff := now.Add(-s.window)
	i := 0
	for i < len(s.recent) && s.recent[i].at.Before(cutoff) {
		i++
	}
	if i > 0 {
		s.recent = append(s.recent[:0], s.recent[i:]...)
	}
}

func summarize(ms []int64) LatencySummary {
	if len(ms) == 0 {
		return LatencySummary{}
	}
	slices.Sort(ms)
	var sum int64
	for _, v := range ms {
		sum += v
	}
	return LatencySummary{
		Count: len(ms),
		MinMs: ms[0],
		MaxMs: ms[len(ms)-1],
		AvgMs: float64(sum) / float64(len(ms)),
		P50Ms: interpolate(ms, 0.50),
		P95Ms: interpolate(ms, 0.95),
		P99Ms: interpolate(ms, 0.99),
	}
}

// interpolate returns the q-quantile of sorted values, interpolating
// linearly between neighbouring ranks.
func interpolate(sorted []int64, q float64) float64 {
	pos := float64(len(sorted)-1) * q
	lo := int(pos)
	if lo+1 >= len(sorted) {
		return float64(sorted[lo])
	}
	frac := pos - float64(lo)
	return float64(sorted[lo]) + frac*float64(sorted[lo+1]-sorted[lo])
}
