package service

import "sync/atomic"

// Metrics tracks loop operation counters.
type Metrics struct {
	created     atomic.Int64
	opened      atomic.Int64
	closed      atomic.Int64
	assigned    atomic.Int64
	notes       atomic.Int64
	nuggets     atomic.Int64
	stale       atomic.Int64
	cacheHits   atomic.Int64
	cacheMisses atomic.Int64
	publishErrs atomic.Int64
}

// MetricsSnapshot is a point-in-time copy of Metrics.
type MetricsSnapshot struct {
	Created       int64 `json:"created"`
	Opened        int64 `json:"opened"`
	Closed        int64 `json:"closed"`
	Assigned      int64 `json:"assigned"`
	NotesAdded    int64 `json:"notes_added"`
	NuggetsAdded  int64 `json:"nuggets_added"`
	StaleFlagged  int64 `json:"stale_flagged"`
	CacheHits     int64 `json:"cache_hits"`
	CacheMisses   int64 `json:"cache_misses"`
	PublishErrors int64 `json:"publish_errors"`
}

// Snapshot returns the current counter values
func (m *Metrics) Snapshot() MetricsSnapshot {
	return MetricsSnapshot{
		Created:       m.created.Load(),
		Opened:        m.opened.Load(),
		Closed:        m.closed.Load(),
		Assigned:      m.assigned.Load(),
		NotesAdded:    m.notes.Load(),
		NuggetsAdded:  m.nuggets.Load(),
		StaleFlagged:  m.stale.Load(),
		CacheHits:     m.cacheHits.Load(),
		CacheMisses:   m.cacheMisses.Load(),
		PublishErrors: m.publishErrs.Load(),
	}
}

// CacheHitRate returns the dashboard cache hit rate as a percentage
func (s MetricsSnapshot) CacheHitRate() float64 {
	total := s.CacheHits + s.CacheMisses
	if total == 0 {
		return 0
	}
	return float64(s.CacheHits) / float64(total) * 100
}
