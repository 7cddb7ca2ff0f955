package pipeline

import (
	"slices"
	"sync"
	"time"
)

type sample struct {
	at       time.Time
	duration time.Duration
	failed   bool
}

// StatsSnapshot aggregates the chunking calls inside the rolling window.
// Latencies are in milliseconds.
type StatsSnapshot struct {
	Count    int     `json:"count"`
	Failures int     `json:"failures"`
	Chunks   int     `json:"chunks"`
	MinMs    float64 `json:"min_ms"`
	MaxMs    float64 `json:"max_ms"`
	AvgMs    float64 `json:"avg_ms"`
	P50Ms    float64 `json:"p50_ms"`
	P95Ms    float64 `json:"p95_ms"`
	P99Ms    float64 `json:"p99_ms"`
}

// LatencyStats tracks recent chunking latencies within a rolling window.
type LatencyStats struct {
	mu      sync.Mutex
	samples []sample
	chunks  []int
	maxAge  time.Duration
	now     func() time.Time
}

func NewLatencyStats(maxAge time.Duration) *LatencyStats {
	if maxAge <= 0 {
		maxAge = time.Hour
	}
	return &LatencyStats{
		samples: make([]sample, 0, 256),
		chunks:  make([]int, 0, 256),
		maxAge:  maxAge,
		now:     time.Now,
	}
}

// Record adds one chunking call that produced chunks chunks. A failed call
// counts toward Failures but not toward the latency percentiles.
func (s *LatencyStats) Record(d time.Duration, chunks int, failed bool) {
	d = max(d, 0)
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.pruneLocked(now)
	s.samples = append(s.samples, sample{at: now, duration: d, failed: failed})
	s.chunks = append(s.chunks, chunks)
}

func (s *LatencyStats) Snapshot() StatsSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.pruneLocked(s.now())
	var snap StatsSnapshot
	values := make([]time.Duration, 0, len(s.samples))
	var sum time.Duration
	for i, sm := range s.samples {
		snap.Chunks += s.chunks[i]
		if sm.failed {
			snap.Failures++
			continue
		}
		values = append(values, sm.duration)
		sum += sm.duration
	}
	snap.Count = len(s.samples)
	if len(values) == 0 {
		return snap
	}
	slices.Sort(values)

	snap.MinMs = millis(values[0])
	snap.MaxMs = millis(values[len(values)-1])
	snap.AvgMs = millis(sum) / float64(len(values))
	snap.P50Ms = percentile(values, 50)
	snap.P95Ms = percentile(values, 95)
	snap.P99Ms = percentile(values, 99)
	return snap
}

func (s *LatencyStats) pruneLocked(now time.Time) {
	cutoff := now.Add(-s.maxAge)
	keep := 0
	for i, sm := range s.samples {
		if !sm.at.Before(cutoff) {
			s.samples[keep] = sm
			s.chunks[keep] = s.chunks[i]
			keep++
		}
	}
	s.samples = s.samples[:keep]
	s.chunks = s.chunks[:keep]
}

func millis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

// percentile interpolates linearly between the two closest ranks of sorted.
func percentile(sorted []time.Duration, pct float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	if pct <= 0 {
		return millis(sorted[0])
	}
	if pct >= 100 {
		return millis(sorted[len(sorted)-1])
	}

	index := float64(len(sorted)-1) * pct / 100
	lower := int(index)
	if lower+1 >= len(sorted) {
		return millis(sorted[lower])
	}
	weight := index - float64(lower)
	lo := millis(sorted[lower])
	hi := millis(sorted[lower+1])
	return lo + (hi-lo)*weight
}
