package api

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nkall/periscope/internal/domain"
)

// recordingHandler collects channel output for assertions.
type recordingHandler struct {
	mu     sync.Mutex
	events []domain.TelemetryEvent
	closed chan error
}

func newRecordingHandler() *recordingHandler {
	return &recordingHandler{closed: make(chan error, 1)}
}

func (h *recordingHandler) HandleTelemetry(_ string, ev domain.TelemetryEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, ev)
}

func (h *recordingHandler) TelemetryClosed(_ string, err error) {
	h.closed <- err
}

func (h *recordingHandler) snapshot() []domain.TelemetryEvent {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]domain.TelemetryEvent, len(h.events))
	copy(out, h.events)
	return out
}

// sseServer streams the given data lines for any telemetry request, then
// closes the stream.
func sseServer(t *testing.T, lines []string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fl, ok := w.(http.Flusher)
		require.True(t, ok)
		for _, line := range lines {
			fmt.Fprintf(w, "data: %s\n\n", line)
			fl.Flush()
		}
	}))
}

func TestTelemetryChannelDeliversInOrder(t *testing.T) {
	srv := sseServer(t, []string{
		`{"type":"connected"}`,
		`{"type":"keepalive"}`,
		`{"type":"validating","message":"checking"}`,
		`{"type":"tool_use","tool_name":"grep"}`,
	})
	defer srv.Close()

	h := newRecordingHandler()
	ch := NewTelemetryChannel(srv.URL, &http.Client{}, h)
	ch.Open("s1")

	select {
	case err := <-h.closed:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("channel never closed")
	}

	events := h.snapshot()
	require.Len(t, events, 3, "keepalive must be dropped")
	assert.Equal(t, domain.EventConnected, events[0].Type)
	assert.Equal(t, domain.EventValidating, events[1].Type)
	assert.Equal(t, domain.EventToolUse, events[2].Type)
	assert.Equal(t, "grep", events[2].ToolName)
}

func TestTelemetryChannelMalformedPayloadBecomesWarning(t *testing.T) {
	srv := sseServer(t, []string{
		`{not json`,
		`{"type":"progress","message":"still here"}`,
	})
	defer srv.Close()

	h := newRecordingHandler()
	ch := NewTelemetryChannel(srv.URL, &http.Client{}, h)
	ch.Open("s1")

	select {
	case <-h.closed:
	case <-time.After(3 * time.Second):
		t.Fatal("channel never closed")
	}

	events := h.snapshot()
	require.Len(t, events, 2, "one bad message must never stop the channel")
	assert.Equal(t, domain.EventWarning, events[0].Type)
	assert.Equal(t, "malformed telemetry payload", events[0].Message)
	assert.Equal(t, domain.EventProgress, events[1].Type)
}

func TestTelemetryChannelCloseIsSilent(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "data: {\"type\":\"connected\"}\n\n")
		w.(http.Flusher).Flush()
		<-release
	}))
	defer srv.Close()
	defer close(release)

	h := newRecordingHandler()
	ch := NewTelemetryChannel(srv.URL, &http.Client{}, h)
	ch.Open("s1")

	require.Eventually(t, func() bool {
		return len(h.snapshot()) == 1
	}, 3*time.Second, 10*time.Millisecond)

	ch.Close()
	assert.Empty(t, ch.SessionID())

	select {
	case err := <-h.closed:
		t.Fatalf("deliberate close must not notify the handler, got %v", err)
	case <-time.After(200 * time.Millisecond):
	}
}

func TestTelemetryChannelOpenSupersedesPrevious(t *testing.T) {
	release := make(chan struct{})
	var mu sync.Mutex
	sessions := []string{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		sessions = append(sessions, r.URL.Path)
		mu.Unlock()
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "data: {\"type\":\"connected\"}\n\n")
		w.(http.Flusher).Flush()
		<-release
	}))
	defer srv.Close()
	defer close(release)

	h := newRecordingHandler()
	ch := NewTelemetryChannel(srv.URL, &http.Client{}, h)

	ch.Open("s1")
	require.Eventually(t, func() bool {
		return len(h.snapshot()) >= 1
	}, 3*time.Second, 10*time.Millisecond)

	ch.Open("s2")
	assert.Equal(t, "s2", ch.SessionID())

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(sessions) == 2
	}, 3*time.Second, 10*time.Millisecond)

	mu.Lock()
	assert.Equal(t, "/api/telemetry/s1", sessions[0])
	assert.Equal(t, "/api/telemetry/s2", sessions[1])
	mu.Unlock()

	select {
	case err := <-h.closed:
		t.Fatalf("supersession must not report a transport closure, got %v", err)
	case <-time.After(200 * time.Millisecond):
	}
}

func TestTelemetryChannelOpenFailureNotifiesHandler(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "no such session", http.StatusNotFound)
	}))
	defer srv.Close()

	h := newRecordingHandler()
	ch := NewTelemetryChannel(srv.URL, &http.Client{}, h)
	ch.Open("s1")

	select {
	case err := <-h.closed:
		require.Error(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("handler was never notified")
	}
}
