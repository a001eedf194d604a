package syncer

import (
	"sync"
	"time"
)

// Stats summarizes one restaurant's most recent sync run.
type Stats struct {
	Restaurant          string     `json:"restaurant"`
	StartedAt           time.Time  `json:"started_at"`
	FinishedAt          *time.Time `json:"finished_at,omitempty"`
	PagesProcessed      int        `json:"pages_processed"`
	OrdersSeen          int        `json:"orders_seen"`
	NewOrdersSynced     int        `json:"new_orders_synced"`
	DuplicatesSkipped   int        `json:"duplicates_skipped"`
	Errors              []string   `json:"errors,omitempty"`
	MostRecentOrderID   int64      `json:"most_recent_order_id,omitempty"`
	MostRecentOrderDate *time.Time `json:"most_recent_order_date,omitempty"`
}

// StatsStore keeps the latest Stats per restaurant for the status endpoint.
type StatsStore struct {
	mu   sync.RWMutex
	runs map[string]Stats
}

func NewStatsStore() *StatsStore {
	return &StatsStore{runs: make(map[string]Stats)}
}

func (s *StatsStore) Put(stats Stats) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs[stats.Restaurant] = stats
}

// Snapshot returns a copy of every restaurant's latest run.
func (s *StatsStore) Snapshot() map[string]Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]Stats, len(s.runs))
	for k, v := range s.runs {
		out[k] = v
	}
	return out
}
