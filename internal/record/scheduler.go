package record

import (
	"sync"
	"time"
)

// Scheduler owns the segment rotation timer: a single-shot timer re-armed
// for every segment. It never fires more than once per Arm call.
type Scheduler struct {
	interval time.Duration

	mu    sync.Mutex
	timer *time.Timer
}

// NewScheduler creates a scheduler with a fixed rotation interval.
func NewScheduler(interval time.Duration) *Scheduler {
	return &Scheduler{interval: interval}
}

// Arm starts the rotation timer. Only one timer may be live at a time, so an
// already-armed timer is cancelled first; the session's own discipline means
// that case should never occur. onExpire runs on the timer goroutine and is
// responsible for re-checking session state before acting.
func (s *Scheduler) Arm(onExpire func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = time.AfterFunc(s.interval, onExpire)
}

// Cancel stops any armed timer. Idempotent; cancelling an unarmed scheduler
// is a no-op.
func (s *Scheduler) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

// Interval returns the fixed rotation interval.
func (s *Scheduler) Interval() time.Duration {
	return s.interval
}
