package action

import (
	"sync"

	"github.com/nkall/periscope/internal/domain"
)

// DefaultCap bounds the visible activity log.
const DefaultCap = 120

// Log is a bounded, insertion-ordered action store keyed by id. Appending a
// duplicate id is a no-op; once the bound is reached the oldest entries are
// evicted first.
type Log struct {
	mu      sync.Mutex
	cap     int
	entries []domain.AgentAction
	seen    map[string]bool
}

// NewLog creates a log bounded to capacity. Zero or negative means
// DefaultCap.
func NewLog(capacity int) *Log {
	if capacity <= 0 {
		capacity = DefaultCap
	}
	return &Log{
		cap:  capacity,
		seen: make(map[string]bool),
	}
}

// Append inserts the action at the tail. Returns false if an action with
// the same id is already stored.
func (l *Log) Append(a domain.AgentAction) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.seen[a.ID] {
		return false
	}
	l.seen[a.ID] = true
	l.entries = append(l.entries, a)

	for len(l.entries) > l.cap {
		delete(l.seen, l.entries[0].ID)
		l.entries = l.entries[1:]
	}
	return true
}

// Merge appends server-reported actions, skipping ids already seen live.
// Returns the number of newly stored actions.
func (l *Log) Merge(actions []domain.AgentAction) int {
	added := 0
	for _, a := range actions {
		if l.Append(a) {
			added++
		}
	}
	return added
}

// Actions returns a copy of the stored actions, oldest first.
func (l *Log) Actions() []domain.AgentAction {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]domain.AgentAction, len(l.entries))
	copy(out, l.entries)
	return out
}

// Len returns the number of stored actions.
func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// Last returns the most recent action, or false when the log is empty.
func (l *Log) Last() (domain.AgentAction, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.entries) == 0 {
		return domain.AgentAction{}, false
	}
	return l.entries[len(l.entries)-1], true
}

// SetError annotates the most recent action with a request failure message.
// No-op on an empty log.
func (l *Log) SetError(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.entries) == 0 {
		return
	}
	l.entries[len(l.entries)-1].ErrorMessage = msg
}

// Clear drops all stored actions.
func (l *Log) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = nil
	l.seen = make(map[string]bool)
}
