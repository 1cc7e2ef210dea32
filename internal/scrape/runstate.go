package scrape

import (
	"sync"
	"time"
)

// RunState is the mutable per-run bookkeeping shared across stages: the run
// start time, the accepted-upload count and the sticky limit flag. Traversal
// stages read it; only the sink mutates the counters.
type RunState struct {
	clock     Clock
	start     time.Time
	timeLimit time.Duration

	mu            sync.Mutex
	uploaded      int
	limitAttained bool
}

// NewRunState starts the run clock.
func NewRunState(clock Clock, policy RunPolicy) *RunState {
	return &RunState{
		clock:     clock,
		start:     clock.Now(),
		timeLimit: time.Duration(policy.TimeLimitMinutes) * time.Minute,
	}
}

// TimeExceeded reports whether the wall-clock limit has elapsed.
func (s *RunState) TimeExceeded() bool {
	if s.timeLimit == 0 {
		return false
	}
	return s.clock.Now().Sub(s.start) > s.timeLimit
}

// LimitAttained reports whether the sink has raised the sticky upload flag.
func (s *RunState) LimitAttained() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.limitAttained
}

// AcquireUploadSlot accounts one accepted candidate against the limit.
// Returns false once the limit is reached, raising the sticky flag so the
// traversal halts discovery. A limit of 0 never refuses.
func (s *RunState) AcquireUploadSlot(limit int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.limitAttained {
		return false
	}
	if limit > 0 && s.uploaded >= limit {
		s.limitAttained = true
		return false
	}
	s.uploaded++
	return true
}

// Uploaded returns the number of accepted candidates so far.
func (s *RunState) Uploaded() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.uploaded
}

// Elapsed returns the wall-clock duration since the run started.
func (s *RunState) Elapsed() time.Duration {
	return s.clock.Now().Sub(s.start)
}
