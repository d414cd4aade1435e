// Package eventlog keeps a bounded, newest-first log of matcher events and
// fans new events out to subscribers (used for SSE streaming).
package eventlog

import (
	"fmt"
	"sync"
	"time"

	"github.com/arturoeanton/go-phrasematch-ollama/internal/domain"
)

// DefaultSize is the number of events retained when no size is configured.
const DefaultSize = 50

// Log manages events in memory.
type Log struct {
	mu     sync.RWMutex
	size   int
	events []domain.Event // newest first
	subs   []chan domain.Event
	now    func() time.Time
}

// New creates a log retaining at most size events.
func New(size int) *Log {
	if size <= 0 {
		size = DefaultSize
	}
	return &Log{
		size:   size,
		events: make([]domain.Event, 0, size),
		now:    time.Now,
	}
}

// Add records an event and notifies subscribers.
func (l *Log) Add(level domain.EventLevel, msg string) domain.Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	ev := domain.Event{Time: l.now(), Level: level, Message: msg}

	l.events = append(l.events, domain.Event{})
	copy(l.events[1:], l.events)
	l.events[0] = ev
	if len(l.events) > l.size {
		l.events = l.events[:l.size]
	}

	// Slow subscribers miss events rather than block writers.
	for _, ch := range l.subs {
		select {
		case ch <- ev:
		default:
		}
	}
	return ev
}

// Infof records an info event.
func (l *Log) Infof(format string, args ...any) {
	l.Add(domain.EventInfo, fmt.Sprintf(format, args...))
}

// Successf records a success event.
func (l *Log) Successf(format string, args ...any) {
	l.Add(domain.EventSuccess, fmt.Sprintf(format, args...))
}

// Errorf records an error event.
func (l *Log) Errorf(format string, args ...any) {
	l.Add(domain.EventError, fmt.Sprintf(format, args...))
}

// Recent returns up to limit events, newest first. limit <= 0 returns all.
func (l *Log) Recent(limit int) []domain.Event {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if limit <= 0 || limit > len(l.events) {
		limit = len(l.events)
	}
	out := make([]domain.Event, limit)
	copy(out, l.events[:limit])
	return out
}

// Len returns the number of retained events.
func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.events)
}

// Subscribe returns a channel that receives new events.
func (l *Log) Subscribe() chan domain.Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	ch := make(chan domain.Event, 16)
	l.subs = append(l.subs, ch)
	return ch
}

// Unsubscribe removes a channel from subscribers and closes it.
func (l *Log) Unsubscribe(ch chan domain.Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i, s := range l.subs {
		if s == ch {
			l.subs = append(l.subs[:i], l.subs[i+1:]...)
			close(ch)
			return
		}
	}
}

// Truncate shortens s to n runes and appends an ellipsis when it was cut.
func Truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
