package clock

import (
	"sync"
	"time"
)

// Clock supplies server time to services and stores.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

// NewSystem returns a clock backed by time.Now, in UTC.
func NewSystem() Clock {
	return systemClock{}
}

func (systemClock) Now() time.Time {
	return time.Now().UTC()
}

type fixedClock struct {
	now time.Time
}

// NewFixed always returns t.
func NewFixed(t time.Time) Clock {
	return fixedClock{now: t.UTC()}
}

func (f fixedClock) Now() time.Time {
	return f.now
}

// Stepping returns start on the first call and advances by step on every
// call after that. It is safe for concurrent use.
type Stepping struct {
	mu   sync.Mutex
	next time.Time
	step time.Duration
}

func NewStepping(start time.Time, step time.Duration) *Stepping {
	return &Stepping{next: start.UTC(), step: step}
}

func (s *Stepping) Now() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.next
	s.next = s.next.Add(s.step)
	return now
}
