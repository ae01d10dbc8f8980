package api

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/nkall/periscope/internal/domain"
	"github.com/nkall/periscope/internal/logging"
)

// TelemetryHandler receives channel output. Events arrive in delivery order
// on one goroutine per channel. Closed fires only on unexpected transport
// closure, never after a deliberate Close.
type TelemetryHandler interface {
	HandleTelemetry(sessionID string, ev domain.TelemetryEvent)
	TelemetryClosed(sessionID string, err error)
}

// TelemetryChannel manages the per-session telemetry subscription. At most
// one subscription is live at a time: opening for a new session closes the
// previous one first. The channel never reconnects on its own; reopening is
// the controller's decision.
type TelemetryChannel struct {
	client  HTTPClient
	baseURL string
	handler TelemetryHandler
	log     *logging.Logger

	mu        sync.Mutex
	sessionID string
	cancel    context.CancelFunc
	gen       int
}

// NewTelemetryChannel creates a closed channel routing into handler.
func NewTelemetryChannel(baseURL string, client HTTPClient, handler TelemetryHandler) *TelemetryChannel {
	return &TelemetryChannel{
		client:  client,
		baseURL: baseURL,
		handler: handler,
		log:     logging.New("telemetry"),
	}
}

// Open establishes the subscription for sessionID, tearing down any channel
// still open for a previous session. Opening is fire-and-forget: transport
// setup and reads happen on a background goroutine, and all further
// interaction flows through the handler.
func (t *TelemetryChannel) Open(sessionID string) {
	t.mu.Lock()
	if t.cancel != nil {
		t.cancel()
		t.cancel = nil
	}
	ctx, cancel := context.WithCancel(context.Background())
	t.sessionID = sessionID
	t.cancel = cancel
	t.gen++
	gen := t.gen
	t.mu.Unlock()

	go t.run(ctx, sessionID, gen)
}

// Close tears down the live subscription, if any. Idempotent.
func (t *TelemetryChannel) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.cancel != nil {
		t.cancel()
		t.cancel = nil
		t.sessionID = ""
	}
}

// SessionID returns the session the channel is currently open for.
func (t *TelemetryChannel) SessionID() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.sessionID
}

// current reports whether gen still identifies the live subscription.
func (t *TelemetryChannel) current(gen int) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.gen == gen && t.cancel != nil
}

func (t *TelemetryChannel) run(ctx context.Context, sessionID string, gen int) {
	log := t.log.WithSession(sessionID)

	url := fmt.Sprintf("%s/api/telemetry/%s", t.baseURL, sessionID)
	body, err := openStream(ctx, t.client, url)
	if err != nil {
		if ctx.Err() == nil && t.current(gen) {
			log.Warn("open_failed", nil, err)
			t.handler.TelemetryClosed(sessionID, err)
		}
		return
	}
	defer body.Close()

	// Close() cancels ctx, which unblocks the read through body.Close.
	go func() {
		<-ctx.Done()
		body.Close()
	}()

	err = readEvents(body, func(data string) {
		if !t.current(gen) {
			return
		}

		var ev domain.TelemetryEvent
		if uerr := json.Unmarshal([]byte(data), &ev); uerr != nil || ev.Type == "" {
			// One bad message must never stop the channel.
			log.Warn("malformed_event", map[string]interface{}{"data": truncate(data, 200)}, uerr)
			t.handler.HandleTelemetry(sessionID, domain.TelemetryEvent{
				Type:    domain.EventWarning,
				Message: "malformed telemetry payload",
			})
			return
		}
		if ev.Type == domain.EventKeepalive {
			return
		}
		t.handler.HandleTelemetry(sessionID, ev)
	})

	if ctx.Err() != nil || !t.current(gen) {
		// Deliberate close or supersession; nothing to report.
		return
	}
	if err != nil {
		log.Warn("stream_interrupted", nil, err)
	} else {
		log.Info("stream_closed", nil)
	}
	t.handler.TelemetryClosed(sessionID, err)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
