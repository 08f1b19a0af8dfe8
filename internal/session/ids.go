package session

import (
	"strconv"
	"sync"
	"time"
)

// TimestampIDs generates room ids from the current Unix time in
// milliseconds. Two ids from one generator never collide, even within the
// same millisecond.
type TimestampIDs struct {
	mu   sync.Mutex
	now  func() time.Time
	last int64
}

// NewTimestampIDs creates a generator. A nil clock means time.Now.
func NewTimestampIDs(now func() time.Time) *TimestampIDs {
	if now == nil {
		now = time.Now
	}
	return &TimestampIDs{now: now}
}

// Next returns a new id.
func (g *TimestampIDs) Next() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	ms := g.now().UnixMilli()
	if ms <= g.last {
		ms = g.last + 1
	}
	g.last = ms
	return strconv.FormatInt(ms, 10)
}
