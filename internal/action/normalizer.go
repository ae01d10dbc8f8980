// Package action converts raw telemetry events into normalized agent
// actions and keeps them in a bounded, deduplicated log.
package action

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/nkall/periscope/internal/domain"
)

// Normalize maps a telemetry event to a canonical AgentAction. Handshake
// events (keepalive, connected) return nil; they never become actions.
// Every other unrecognized type degrades to a progress action rather than
// being dropped.
func Normalize(ev domain.TelemetryEvent, sessionID string) *domain.AgentAction {
	switch ev.Type {
	case domain.EventKeepalive, domain.EventConnected:
		return nil
	}

	a := &domain.AgentAction{
		ID:        ev.ID,
		Label:     ev.Message,
		Timestamp: eventTime(ev),
		SessionID: sessionID,
	}
	if a.ID == "" {
		// Local ids only need to be collision-resistant within a bounded,
		// process-local log.
		a.ID = ulid.Make().String()
	}

	switch ev.Type {
	case domain.EventToolUse:
		a.Type = domain.ActionToolCall
		if a.Label == "" {
			a.Label = "Tool call"
		}
		a.Detail = toolCallDetail(ev)

	case domain.EventToolResult:
		a.Type = domain.ActionToolResult
		if a.Label == "" {
			a.Label = "Tool result"
		}
		a.Detail = toolResultDetail(ev)

	case domain.EventThinking:
		a.Type = domain.ActionThinking
		if a.Label == "" {
			a.Label = "Thinking"
		}
		a.Detail = ev.Content

	case domain.EventError:
		a.Type = domain.ActionError
		if a.Label == "" {
			a.Label = "Error"
		}
		a.Detail = extraDetail(ev)

	case domain.EventWarning:
		a.Type = domain.ActionWarning
		if a.Label == "" {
			a.Label = "Warning"
		}
		a.Detail = extraDetail(ev)

	default:
		// validating, configuring, connecting, sending, completed, cancelled
		// and bare progress all surface as progress records.
		a.Type = domain.ActionProgress
		if a.Label == "" {
			a.Label = string(ev.Type)
		}
	}

	return a
}

// Synthetic creates a locally minted action, used for channel-level notices
// such as "connected to telemetry" or transport interruption warnings.
func Synthetic(t domain.ActionType, label, detail, sessionID string) *domain.AgentAction {
	return &domain.AgentAction{
		ID:        ulid.Make().String(),
		Type:      t,
		Label:     label,
		Detail:    detail,
		Timestamp: time.Now(),
		SessionID: sessionID,
	}
}

func eventTime(ev domain.TelemetryEvent) time.Time {
	if ev.Timestamp != "" {
		if ts, err := time.Parse(time.RFC3339, ev.Timestamp); err == nil {
			return ts
		}
	}
	return time.Now()
}

func toolCallDetail(ev domain.TelemetryEvent) string {
	var parts []string
	if name := ev.BestToolName(); name != "" {
		parts = append(parts, "tool: "+name)
	}
	if ev.Provider != "" {
		parts = append(parts, "provider: "+ev.Provider)
	}
	return strings.Join(parts, ", ")
}

func toolResultDetail(ev domain.TelemetryEvent) string {
	var parts []string
	if ev.Success != nil {
		if *ev.Success {
			parts = append(parts, "success: true")
		} else {
			parts = append(parts, "success: false")
		}
	}
	if name := ev.BestToolName(); name != "" {
		parts = append(parts, "tool: "+name)
	}
	return strings.Join(parts, ", ")
}

// extraDetail serializes fields beyond type/message, in key order. Errors
// and warnings carry detail only when such fields exist.
func extraDetail(ev domain.TelemetryEvent) string {
	if len(ev.Extra) == 0 {
		return ""
	}
	keys := make([]string, 0, len(ev.Extra))
	for k := range ev.Extra {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	for i, k := range keys {
		if i > 0 {
			sb.WriteString(", ")
		}
		var v any
		if err := json.Unmarshal(ev.Extra[k], &v); err != nil {
			v = string(ev.Extra[k])
		}
		fmt.Fprintf(&sb, "%s: %v", k, v)
	}
	return sb.String()
}
