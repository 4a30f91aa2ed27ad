// Package notify keeps transient operator notices that dismiss themselves.
package notify

import (
	"sync"
	"time"
)

// DefaultTTL is how long a notice stays visible.
const DefaultTTL = 5 * time.Second

// Level mirrors the alert styles of the operator UI.
type Level string

const (
	Success Level = "success"
	Info    Level = "info"
	Danger  Level = "danger"
)

// Notice is one message shown to the operator.
type Notice struct {
	Level   Level
	Message string
	Posted  time.Time
	Expires time.Time
}

// Sink receives every posted notice, e.g. to print it immediately.
type Sink func(Notice)

// Board holds notices until they expire. Notices never block anything.
type Board struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	notices []Notice
	sink    Sink
}

// NewBoard returns a board with the given ttl (DefaultTTL when <= 0).
func NewBoard(ttl time.Duration, sink Sink) *Board {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Board{ttl: ttl, now: time.Now, sink: sink}
}

// SetClock replaces the time source.
func (b *Board) SetClock(now func() time.Time) {
	b.mu.Lock()
	b.now = now
	b.mu.Unlock()
}

// Post adds a notice and forwards it to the sink.
func (b *Board) Post(level Level, msg string) Notice {
	b.mu.Lock()
	t := b.now()
	n := Notice{Level: level, Message: msg, Posted: t, Expires: t.Add(b.ttl)}
	b.notices = append(b.notices, n)
	sink := b.sink
	b.mu.Unlock()
	if sink != nil {
		sink(n)
	}
	return n
}

// Active prunes expired notices and returns the rest, newest first.
func (b *Board) Active() []Notice {
	b.mu.Lock()
	defer b.mu.Unlock()
	t := b.now()
	kept := b.notices[:0]
	for _, n := range b.notices {
		if t.Before(n.Expires) {
			kept = append(kept, n)
		}
	}
	b.notices = kept
	out := make([]Notice, len(kept))
	for i, n := range kept {
		out[len(kept)-1-i] = n
	}
	return out
}
