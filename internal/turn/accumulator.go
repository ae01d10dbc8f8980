// Package turn assembles incremental assistant text deltas into complete
// chat messages, one turn at a time.
package turn

import (
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/nkall/periscope/internal/domain"
)

// Accumulator is the per-session streaming state machine. A turn start
// clears the buffer and begins streaming; chunks append while streaming; a
// turn complete promotes the buffer (or an authoritative final string) into
// an assistant ChatMessage. A discarded turn never reaches history.
type Accumulator struct {
	mu        sync.Mutex
	streaming bool
	buf       strings.Builder
}

// New creates an idle accumulator.
func New() *Accumulator {
	return &Accumulator{}
}

// Start begins a new turn. Any previously buffered, unpromoted text is
// discarded.
func (a *Accumulator) Start() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.buf.Reset()
	a.streaming = true
}

// Chunk appends delta text to the current turn. Chunks arriving while idle
// are dropped; the gateway only sends them between start and complete, so a
// stray chunk belongs to a turn this accumulator no longer owns.
func (a *Accumulator) Chunk(text string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.streaming {
		return
	}
	a.buf.WriteString(text)
}

// Finish closes the current turn without appending further text. Used for
// chunk events that carry an explicit completion flag.
func (a *Accumulator) Finish() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.streaming = false
}

// Complete promotes the buffered text into an assistant message and resets
// the turn to idle. When the completion event carries an authoritative
// content field, that content wins over the buffer. Returns nil when
// nothing was buffered and no content was supplied.
func (a *Accumulator) Complete(authoritative, sessionID string) *domain.ChatMessage {
	a.mu.Lock()
	defer a.mu.Unlock()

	content := a.buf.String()
	if authoritative != "" {
		content = authoritative
	}
	a.buf.Reset()
	a.streaming = false

	if content == "" {
		return nil
	}
	return &domain.ChatMessage{
		ID:        ulid.Make().String(),
		SessionID: sessionID,
		Role:      domain.RoleAssistant,
		Content:   content,
		Timestamp: time.Now(),
	}
}

// Discard drops the buffer without promoting it. Used on cancellation and
// session supersession.
func (a *Accumulator) Discard() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.buf.Reset()
	a.streaming = false
}

// Streaming reports whether a turn is open. True from Start onward, even
// before any text has arrived, so callers can show a waiting state.
func (a *Accumulator) Streaming() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.streaming
}

// Buffered returns the text accumulated so far in the open turn.
func (a *Accumulator) Buffered() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.buf.String()
}
