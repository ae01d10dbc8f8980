// Package controller orchestrates agent sessions: it owns session identity,
// dispatches the blocking send request, routes telemetry into the action log
// and the turn accumulator, runs the cancellation state machine, and keeps
// attached context files fresh between sends.
package controller

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nkall/periscope/internal/action"
	"github.com/nkall/periscope/internal/contextfile"
	"github.com/nkall/periscope/internal/domain"
	"github.com/nkall/periscope/internal/logging"
	"github.com/nkall/periscope/internal/turn"
)

// ErrSuperseded is returned from Send when a newer send replaced the
// session while its request was still in flight.
var ErrSuperseded = errors.New("session superseded by a newer send")

// ErrNoActiveSession is returned from Cancel when nothing is in flight.
var ErrNoActiveSession = errors.New("no active session to cancel")

const defaultSystemPrompt = "You are a coding agent. Use the attached context files when answering."

// conversationSignatureLen bounds the role+content-prefix key used to merge
// the server's conversation array. A long shared prefix can falsely merge
// two distinct messages; the gateway owns this contract.
const conversationSignatureLen = 50

// Gateway is the request/response surface of the agent gateway.
type Gateway interface {
	Send(ctx context.Context, req *domain.SendRequest) (*domain.SendResponse, error)
	Cancel(ctx context.Context, sessionID string) (*domain.CancelResponse, error)
	FetchFile(ctx context.Context, path string) (*domain.FileInfo, error)
}

// Channel is the telemetry subscription lifecycle the controller drives.
type Channel interface {
	Open(sessionID string)
	Close()
}

// TranscriptStore persists completed sessions. Optional.
type TranscriptStore interface {
	SaveSession(ctx context.Context, sess *domain.Session, messages []domain.ChatMessage) error
}

// AuditSink records one summary per finished session. Optional.
type AuditSink interface {
	RecordSession(ctx context.Context, sess *domain.Session, actionCount int) error
}

// Controller is safe for concurrent use. Every channel-sourced mutation is
// gated on the current session id, so late events from a superseded
// session's channel can never touch live state.
type Controller struct {
	gw      Gateway
	channel Channel
	logger  *logging.Logger

	transcripts TranscriptStore
	audit       AuditSink

	actions *action.Log
	acc     *turn.Accumulator
	tracker *contextfile.Tracker

	mu       sync.Mutex
	session  *domain.Session
	loading  bool
	progress string
	history  []domain.ChatMessage
	contents map[string]string // context file path -> last fetched content
	notify   func()
}

// Option configures a Controller.
type Option func(*Controller)

// WithTranscripts persists finished sessions to store.
func WithTranscripts(store TranscriptStore) Option {
	return func(c *Controller) { c.transcripts = store }
}

// WithAudit records finished sessions to sink.
func WithAudit(sink AuditSink) Option {
	return func(c *Controller) { c.audit = sink }
}

// WithActionCap bounds the action log.
func WithActionCap(n int) Option {
	return func(c *Controller) { c.actions = action.NewLog(n) }
}

// WithSystemPrompt replaces the seed system message.
func WithSystemPrompt(prompt string) Option {
	return func(c *Controller) {
		c.history = []domain.ChatMessage{seedMessage(prompt)}
	}
}

// New creates a controller. The telemetry channel is attached separately
// via SetChannel because the channel routes back into the controller.
func New(gw Gateway, opts ...Option) *Controller {
	c := &Controller{
		gw:       gw,
		logger:   logging.New("controller"),
		actions:  action.NewLog(0),
		acc:      turn.New(),
		tracker:  contextfile.NewTracker(),
		history:  []domain.ChatMessage{seedMessage(defaultSystemPrompt)},
		contents: make(map[string]string),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SetChannel attaches the telemetry channel.
func (c *Controller) SetChannel(ch Channel) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.channel = ch
}

// SetNotify registers a callback fired after externally visible state
// changes, for UI refresh.
func (c *Controller) SetNotify(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.notify = fn
}

func seedMessage(prompt string) domain.ChatMessage {
	return domain.ChatMessage{
		Role:      domain.RoleSystem,
		Content:   prompt,
		Timestamp: time.Now(),
	}
}

// Tracker exposes the freshness tracker so the file-update channel and the
// local watcher can feed it.
func (c *Controller) Tracker() *contextfile.Tracker {
	return c.tracker
}

// MarkModified satisfies the file-update sink by delegating to the tracker.
func (c *Controller) MarkModified(path string) {
	c.tracker.MarkModified(path)
	c.fireNotify()
}

// Send dispatches one query. It refreshes stale context files, supersedes
// any live session, opens the telemetry channel for the new session id, and
// blocks until the gateway responds. Returns the final assistant reply.
func (c *Controller) Send(ctx context.Context, text string) (string, error) {
	c.refreshStaleContext(ctx)

	sessionID := uuid.NewString()
	log := c.logger.WithSession(sessionID)

	c.mu.Lock()
	if c.session != nil && !c.session.Status.Terminal() {
		// Supersede: the old channel is closed and its buffered turn is
		// dropped. Late completions for the old id are ignored because
		// every mutation below checks the current session id.
		log.Info("superseding_session", map[string]interface{}{"old": c.session.ID})
		c.acc.Discard()
	}
	c.session = &domain.Session{
		ID:        sessionID,
		Status:    domain.StatusSending,
		Cancel:    domain.CancelIdle,
		StartedAt: time.Now(),
	}
	c.loading = true
	c.progress = "sending"
	c.history = append(c.history, domain.ChatMessage{
		Role:      domain.RoleUser,
		Content:   text,
		SessionID: sessionID,
		Timestamp: time.Now(),
	})
	req := &domain.SendRequest{
		SessionID:    sessionID,
		Messages:     append([]domain.ChatMessage(nil), c.history...),
		ContextFiles: c.attachmentsLocked(),
	}
	ch := c.channel
	c.mu.Unlock()
	c.fireNotify()

	if ch != nil {
		ch.Open(sessionID)
	}

	start := time.Now()
	resp, err := c.gw.Send(ctx, req)
	log.TimedEvent("send_resolved", start, map[string]interface{}{"err": err != nil})

	c.mu.Lock()
	if c.session == nil || c.session.ID != sessionID {
		c.mu.Unlock()
		return "", ErrSuperseded
	}

	if c.session.Status.Terminal() {
		// Cancelled via telemetry while the request was resolving. The
		// response is stale either way: a result must not reopen the
		// session and an abort error must not flip it to errored.
		c.mu.Unlock()
		c.fireNotify()
		return "", nil
	}

	if err != nil {
		c.actions.SetError(err.Error())
		c.acc.Discard()
		c.finishLocked(domain.StatusErrored)
		c.mu.Unlock()
		c.fireNotify()
		return "", fmt.Errorf("send: %w", err)
	}

	c.actions.Merge(resp.AgentActions)
	if resp.FallbackProvider != "" {
		detail := "provider: " + resp.FallbackProvider
		if resp.FallbackModel != "" {
			detail += ", model: " + resp.FallbackModel
		}
		c.actions.Append(*action.Synthetic(domain.ActionWarning,
			"fell back to secondary provider", detail, sessionID))
	}
	c.mergeConversationLocked(resp, sessionID)
	reply := c.lastAssistantLocked()
	c.finishLocked(domain.StatusCompleted)
	sess := *c.session
	messages := c.sessionMessagesLocked(sessionID)
	c.mu.Unlock()
	c.fireNotify()

	c.persist(ctx, &sess, messages)
	return reply, nil
}

// Cancel runs the cooperative cancellation protocol: the phase moves to
// cancelling immediately, and only a cancelled telemetry event (or channel
// closure) confirms it. A failed cancel request is terminal locally.
func (c *Controller) Cancel(ctx context.Context) error {
	c.mu.Lock()
	if c.session == nil ||
		(c.session.Status != domain.StatusSending && c.session.Status != domain.StatusStreaming) {
		c.mu.Unlock()
		return ErrNoActiveSession
	}
	sessionID := c.session.ID
	c.session.Status = domain.StatusCancelling
	c.session.Cancel = domain.CancelCancelling
	c.mu.Unlock()
	c.fireNotify()

	resp, err := c.gw.Cancel(ctx, sessionID)
	if err == nil && !resp.Success {
		err = fmt.Errorf("gateway refused cancel: %s", resp.Message)
	}
	if err != nil {
		c.mu.Lock()
		if c.session != nil && c.session.ID == sessionID {
			c.session.Cancel = domain.CancelFailed
			c.loading = false
			c.progress = ""
			c.acc.Discard()
			c.actions.Append(*action.Synthetic(domain.ActionError,
				"Cancel failed", err.Error(), sessionID))
		}
		c.mu.Unlock()
		c.fireNotify()
		return fmt.Errorf("cancel: %w", err)
	}
	return nil
}

// HandleTelemetry is the single ingestion point for session telemetry.
// Events for any session other than the current one are dropped.
func (c *Controller) HandleTelemetry(sessionID string, ev domain.TelemetryEvent) {
	c.mu.Lock()
	if c.session == nil || c.session.ID != sessionID || c.session.Status.Terminal() {
		c.mu.Unlock()
		return
	}

	switch ev.Type {
	case domain.EventConnected:
		c.actions.Append(*action.Synthetic(domain.ActionProgress,
			"connected to telemetry", "", sessionID))

	case domain.EventMessageStart:
		c.acc.Start()
		c.session.Status = domain.StatusStreaming

	case domain.EventTextChunk:
		if c.session.Status == domain.StatusSending {
			c.session.Status = domain.StatusStreaming
		}
		if ev.IsComplete {
			c.acc.Finish()
		} else {
			c.acc.Chunk(ev.Content)
		}

	case domain.EventMessageComplete:
		if msg := c.acc.Complete(ev.Content, sessionID); msg != nil {
			c.history = append(c.history, *msg)
		}

	case domain.EventCancelled:
		c.session.Status = domain.StatusCancelled
		c.session.Cancel = domain.CancelCancelled
		c.session.EndedAt = time.Now()
		c.loading = false
		c.progress = ""
		c.acc.Discard()
		if a := action.Normalize(ev, sessionID); a != nil {
			c.actions.Append(*a)
		}
		ch := c.channel
		sess := *c.session
		messages := c.sessionMessagesLocked(sessionID)
		c.mu.Unlock()
		if ch != nil {
			ch.Close()
		}
		c.fireNotify()
		c.persist(context.Background(), &sess, messages)
		return

	case domain.EventForceKilling:
		c.session.Status = domain.StatusForceKilling
		c.session.Cancel = domain.CancelForceKilling
		if a := action.Normalize(ev, sessionID); a != nil {
			c.actions.Append(*a)
		}

	default:
		if a := action.Normalize(ev, sessionID); a != nil {
			c.actions.Append(*a)
			if a.Type == domain.ActionProgress {
				c.progress = a.Label
			}
		}
	}

	c.mu.Unlock()
	c.fireNotify()
}

// TelemetryClosed handles unexpected transport closure. The channel does
// not reconnect; a session stuck in cancelling or force-killing when its
// channel dies is treated as cancelled.
func (c *Controller) TelemetryClosed(sessionID string, err error) {
	c.mu.Lock()
	if c.session == nil || c.session.ID != sessionID {
		c.mu.Unlock()
		return
	}

	if err != nil {
		c.actions.Append(*action.Synthetic(domain.ActionWarning,
			"telemetry interrupted", err.Error(), sessionID))
	}

	switch c.session.Status {
	case domain.StatusCancelling, domain.StatusForceKilling:
		c.session.Status = domain.StatusCancelled
		c.session.Cancel = domain.CancelCancelled
		c.session.EndedAt = time.Now()
		c.loading = false
		c.progress = ""
		c.acc.Discard()
	}
	c.mu.Unlock()
	c.fireNotify()
}

// ClearConversation resets history to the seed system message and clears
// the action log.
func (c *Controller) ClearConversation() {
	c.mu.Lock()
	seed := c.history[0]
	c.history = []domain.ChatMessage{seed}
	c.mu.Unlock()
	c.actions.Clear()
	c.fireNotify()
}

// AddContextFile fetches path and registers it for freshness tracking.
func (c *Controller) AddContextFile(ctx context.Context, path string) error {
	info, err := c.gw.FetchFile(ctx, path)
	if err != nil {
		return err
	}
	c.tracker.Add(path, info)
	c.mu.Lock()
	c.contents[path] = info.Content
	c.mu.Unlock()
	return nil
}

// RemoveContextFile drops a context file from tracking.
func (c *Controller) RemoveContextFile(path string) {
	c.tracker.Remove(path)
	c.mu.Lock()
	delete(c.contents, path)
	c.mu.Unlock()
}

// ContextPaths lists the attached context file paths.
func (c *Controller) ContextPaths() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.contents))
	for p := range c.contents {
		out = append(out, p)
	}
	return out
}

// refreshStaleContext refetches files flagged by the file-update stream.
// Missing files leave the active set with a visible warning; fresh files
// are not touched.
func (c *Controller) refreshStaleContext(ctx context.Context) {
	stale := c.tracker.StalePaths()
	if len(stale) == 0 {
		return
	}

	res := c.tracker.RefreshAll(ctx, c.gw, stale)

	c.mu.Lock()
	for _, rf := range res.Refreshed {
		c.contents[rf.Path] = rf.Info.Content
	}
	for _, path := range res.Missing {
		delete(c.contents, path)
		c.actions.Append(*action.Synthetic(domain.ActionWarning,
			"context file removed", fmt.Sprintf("%s no longer exists", path), ""))
	}
	c.mu.Unlock()

	c.logger.Info("context_refreshed", map[string]interface{}{
		"refreshed": len(res.Refreshed),
		"missing":   len(res.Missing),
	})
}

func (c *Controller) attachmentsLocked() []domain.FileAttachment {
	if len(c.contents) == 0 {
		return nil
	}
	var out []domain.FileAttachment
	for path, content := range c.contents {
		out = append(out, domain.FileAttachment{
			Path:    path,
			Name:    filepath.Base(path),
			Content: content,
		})
	}
	return out
}

// mergeConversationLocked applies the server's authoritative view: actions
// were merged by id already; conversation entries are filtered by a
// role+content-prefix signature against local history, and a bare reply
// string goes through the same filter.
func (c *Controller) mergeConversationLocked(resp *domain.SendResponse, sessionID string) {
	seen := make(map[string]bool, len(c.history))
	for _, m := range c.history {
		seen[messageSignature(m)] = true
	}

	appendNew := func(m domain.ChatMessage) {
		sig := messageSignature(m)
		if seen[sig] {
			return
		}
		seen[sig] = true
		if m.SessionID == "" {
			m.SessionID = sessionID
		}
		if m.Timestamp.IsZero() {
			m.Timestamp = time.Now()
		}
		c.history = append(c.history, m)
	}

	for _, m := range resp.Conversation {
		if m.Role == domain.RoleSystem {
			continue
		}
		appendNew(m)
	}
	if len(resp.Conversation) == 0 && resp.Reply != "" {
		appendNew(domain.ChatMessage{Role: domain.RoleAssistant, Content: resp.Reply})
	}
}

func messageSignature(m domain.ChatMessage) string {
	content := m.Content
	if len(content) > conversationSignatureLen {
		content = content[:conversationSignatureLen]
	}
	return string(m.Role) + ":" + content
}

// finishLocked applies the state clearing every exit from
// sending/streaming/cancelling/force-killing requires.
func (c *Controller) finishLocked(status domain.SessionStatus) {
	c.session.Status = status
	c.session.EndedAt = time.Now()
	c.loading = false
	c.progress = ""
	if ch := c.channel; ch != nil {
		ch.Close()
	}
}

func (c *Controller) lastAssistantLocked() string {
	for i := len(c.history) - 1; i >= 0; i-- {
		if c.history[i].Role == domain.RoleAssistant {
			return c.history[i].Content
		}
	}
	return ""
}

func (c *Controller) sessionMessagesLocked(sessionID string) []domain.ChatMessage {
	var out []domain.ChatMessage
	for _, m := range c.history {
		if m.SessionID == sessionID {
			out = append(out, m)
		}
	}
	return out
}

func (c *Controller) persist(ctx context.Context, sess *domain.Session, messages []domain.ChatMessage) {
	if c.transcripts != nil {
		if err := c.transcripts.SaveSession(ctx, sess, messages); err != nil {
			c.logger.Warn("transcript_save_failed", nil, err)
		}
	}
	if c.audit != nil {
		if err := c.audit.RecordSession(ctx, sess, c.actions.Len()); err != nil {
			c.logger.Warn("audit_record_failed", nil, err)
		}
	}
}

func (c *Controller) fireNotify() {
	c.mu.Lock()
	fn := c.notify
	c.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// --- read-side accessors ---

// Actions returns a copy of the visible action log.
func (c *Controller) Actions() []domain.AgentAction {
	return c.actions.Actions()
}

// History returns the conversation, including the seed system message.
// UI surfaces filter out the system role.
func (c *Controller) History() []domain.ChatMessage {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]domain.ChatMessage, len(c.history))
	copy(out, c.history)
	return out
}

// Loading reports whether a send is in flight (sending or streaming).
func (c *Controller) Loading() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loading
}

// Streaming reports whether an assistant turn is open.
func (c *Controller) Streaming() bool {
	return c.acc.Streaming()
}

// BufferedText returns the partial assistant text of the open turn.
func (c *Controller) BufferedText() string {
	return c.acc.Buffered()
}

// Progress returns the most recent progress label, empty when idle.
func (c *Controller) Progress() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.progress
}

// Status returns the current session status, idle when none exists.
func (c *Controller) Status() domain.SessionStatus {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return domain.StatusIdle
	}
	return c.session.Status
}

// CancelPhase returns the current session's cancellation phase.
func (c *Controller) CancelPhase() domain.CancelPhase {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return domain.CancelIdle
	}
	return c.session.Cancel
}

// SessionID returns the current session id, empty when idle.
func (c *Controller) SessionID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return ""
	}
	return c.session.ID
}
