package action

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nkall/periscope/internal/domain"
)

func TestNormalizeHandshakeEventsProduceNoAction(t *testing.T) {
	assert.Nil(t, Normalize(domain.TelemetryEvent{Type: domain.EventKeepalive}, "s1"))
	assert.Nil(t, Normalize(domain.TelemetryEvent{Type: domain.EventConnected}, "s1"))
}

func TestNormalizeTaxonomy(t *testing.T) {
	cases := []struct {
		event domain.TelemetryEventType
		want  domain.ActionType
	}{
		{domain.EventToolUse, domain.ActionToolCall},
		{domain.EventToolResult, domain.ActionToolResult},
		{domain.EventThinking, domain.ActionThinking},
		{domain.EventError, domain.ActionError},
		{domain.EventWarning, domain.ActionWarning},
		{domain.EventValidating, domain.ActionProgress},
		{domain.EventConfiguring, domain.ActionProgress},
		{domain.EventConnecting, domain.ActionProgress},
		{domain.EventSending, domain.ActionProgress},
		{domain.EventProgress, domain.ActionProgress},
		{domain.EventCompleted, domain.ActionProgress},
		{domain.EventCancelled, domain.ActionProgress},
	}

	for _, tc := range cases {
		a := Normalize(domain.TelemetryEvent{Type: tc.event}, "s1")
		require.NotNil(t, a, "event %s", tc.event)
		assert.Equal(t, tc.want, a.Type, "event %s", tc.event)
		assert.Equal(t, "s1", a.SessionID)
		assert.NotEmpty(t, a.ID, "missing server id must be locally minted")
		assert.False(t, a.Timestamp.IsZero())
	}
}

func TestNormalizeKeepsServerID(t *testing.T) {
	a := Normalize(domain.TelemetryEvent{Type: domain.EventProgress, ID: "evt-42"}, "s1")
	require.NotNil(t, a)
	assert.Equal(t, "evt-42", a.ID)
}

func TestNormalizeToolCallDetail(t *testing.T) {
	a := Normalize(domain.TelemetryEvent{
		Type:     domain.EventToolUse,
		ToolName: "grep",
		Provider: "anthropic",
	}, "s1")
	require.NotNil(t, a)
	assert.Equal(t, "tool: grep, provider: anthropic", a.Detail)

	// Falls through tool_name -> tool -> name.
	a = Normalize(domain.TelemetryEvent{Type: domain.EventToolUse, Name: "read"}, "s1")
	require.NotNil(t, a)
	assert.Equal(t, "tool: read", a.Detail)
}

func TestNormalizeToolResultDetail(t *testing.T) {
	ok := true
	a := Normalize(domain.TelemetryEvent{
		Type:    domain.EventToolResult,
		Success: &ok,
		Tool:    "bash",
	}, "s1")
	require.NotNil(t, a)
	assert.Equal(t, "success: true, tool: bash", a.Detail)
}

func TestNormalizeErrorDetailOnlyWithExtraFields(t *testing.T) {
	plain := Normalize(domain.TelemetryEvent{
		Type:    domain.EventError,
		Message: "boom",
	}, "s1")
	require.NotNil(t, plain)
	assert.Empty(t, plain.Detail)

	var ev domain.TelemetryEvent
	require.NoError(t, json.Unmarshal(
		[]byte(`{"type":"error","message":"boom","code":500,"stage":"exec"}`), &ev))
	rich := Normalize(ev, "s1")
	require.NotNil(t, rich)
	assert.Equal(t, "code: 500, stage: exec", rich.Detail)
}

func TestNormalizeLabelFallsBackToEventType(t *testing.T) {
	a := Normalize(domain.TelemetryEvent{Type: domain.EventValidating}, "s1")
	require.NotNil(t, a)
	assert.Equal(t, "validating", a.Label)

	a = Normalize(domain.TelemetryEvent{Type: domain.EventValidating, Message: "checking inputs"}, "s1")
	require.NotNil(t, a)
	assert.Equal(t, "checking inputs", a.Label)
}

func TestTelemetryEventUnmarshalCapturesExtra(t *testing.T) {
	var ev domain.TelemetryEvent
	require.NoError(t, json.Unmarshal(
		[]byte(`{"type":"warning","message":"slow","retry_in":3}`), &ev))
	assert.Equal(t, domain.EventWarning, ev.Type)
	assert.Len(t, ev.Extra, 1)
	assert.Contains(t, ev.Extra, "retry_in")
}
