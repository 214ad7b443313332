package analysis

import (
	"sync"
	"time"
)

// Stats holds the process-local counters behind the stats endpoint.
// The history store is only ever queried per session, so aggregate
// numbers come from memory and reset on restart.
type Stats struct {
	mu       sync.Mutex
	since    time.Time
	total    uint64
	degraded uint64
	urgency  map[Urgency]uint64
}

// StatsSnapshot is a point-in-time view of the counters.
type StatsSnapshot struct {
	TotalQueries     uint64            `json:"total_queries"`
	UrgencyBreakdown map[string]uint64 `json:"urgency_breakdown"`
	Degraded         uint64            `json:"degraded"`
	Since            time.Time         `json:"since"`
	Timestamp        time.Time         `json:"timestamp"`
}

// NewStats returns zeroed counters with the given start time.
func NewStats(since time.Time) *Stats {
	return &Stats{
		since: since.UTC(),
		urgency: map[Urgency]uint64{
			UrgencyUrgent:  0,
			UrgencySoon:    0,
			UrgencyRoutine: 0,
		},
	}
}

// Record counts one completed analysis.
func (s *Stats) Record(urgency Urgency, degraded bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.total++
	s.urgency[urgency]++
	if degraded {
		s.degraded++
	}
}

// Snapshot copies the counters under the lock.
func (s *Stats) Snapshot() StatsSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	breakdown := make(map[string]uint64, len(s.urgency))
	for tier, count := range s.urgency {
		breakdown[string(tier)] = count
	}

	return StatsSnapshot{
		TotalQueries:     s.total,
		UrgencyBreakdown: breakdown,
		Degraded:         s.degraded,
		Since:            s.since,
		Timestamp:        time.Now().UTC(),
	}
}
