package swarm

import (
	"sync"
	"sync/atomic"
	"time"
)

// RunStats aggregates a live run. Counter fields are updated atomically by
// many sessions at once; everything else sits behind the mutex because a
// status server may read while the run is still assigning metadata. Read
// the whole thing through Snapshot.
type RunStats struct {
	Offloads     uint64
	Succeeded    uint64
	Failed       uint64
	InitFailures uint64

	mu           sync.Mutex
	scenarioName string
	runID        string
	users        int
	startedAt    time.Time
	recent       []OutcomeEntry
}

// Begin stamps the run's identity onto the stats. Called once per run,
// before any session reports.
func (s *RunStats) Begin(scenarioName, runID string, users int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scenarioName = scenarioName
	s.runID = runID
	s.users = users
	s.startedAt = time.Now()
}

// OutcomeEntry is one recent session event kept for live display.
type OutcomeEntry struct {
	At             time.Time `json:"at"`
	RequestType    string    `json:"request_type"`
	Name           string    `json:"name"`
	DeviceID       string    `json:"device_id"`
	ResponseTimeMS int64     `json:"response_time_ms"`
	Error          string    `json:"error,omitempty"`
}

// maxRecent bounds the live-display ring buffer.
const maxRecent = 50

func (s *RunStats) pushRecent(e OutcomeEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recent = append(s.recent, e)
	if len(s.recent) > maxRecent {
		s.recent = s.recent[len(s.recent)-maxRecent:]
	}
}

// Snapshot is a consistent point-in-time view of a run, also served as the
// /status payload.
type Snapshot struct {
	ScenarioName string         `json:"scenario_name"`
	RunID        string         `json:"run_id"`
	Users        int            `json:"users"`
	StartedAt    time.Time      `json:"started_at"`
	ElapsedMS    int64          `json:"elapsed_ms"`
	Offloads     uint64         `json:"offloads"`
	Succeeded    uint64         `json:"succeeded"`
	Failed       uint64         `json:"failed"`
	InitFailures uint64         `json:"init_failures"`
	Recent       []OutcomeEntry `json:"recent,omitempty"`
}

func (s *RunStats) Snapshot() Snapshot {
	snap := Snapshot{
		Offloads:     atomic.LoadUint64(&s.Offloads),
		Succeeded:    atomic.LoadUint64(&s.Succeeded),
		Failed:       atomic.LoadUint64(&s.Failed),
		InitFailures: atomic.LoadUint64(&s.InitFailures),
	}
	s.mu.Lock()
	snap.ScenarioName = s.scenarioName
	snap.RunID = s.runID
	snap.Users = s.users
	snap.StartedAt = s.startedAt
	if !s.startedAt.IsZero() {
		snap.ElapsedMS = time.Since(s.startedAt).Milliseconds()
	}
	snap.Recent = append([]OutcomeEntry(nil), s.recent...)
	s.mu.Unlock()
	return snap
}

// Result is the final state of one run.
type Result struct {
	Snapshot
	Duration time.Duration `json:"duration"`

	// RecordsWritten is the persisted record count for this run ID; it
	// must equal Offloads when the store kept up.
	RecordsWritten int `json:"records_written"`
}
