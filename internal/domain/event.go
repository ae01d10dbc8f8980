package domain

import "encoding/json"

// TelemetryEventType identifies the kind of telemetry message pushed by the
// gateway on a session's channel.
type TelemetryEventType string

const (
	// Channel handshake, never turned into actions
	EventKeepalive TelemetryEventType = "keepalive"
	EventConnected TelemetryEventType = "connected"

	// Streaming assistant turns
	EventMessageStart    TelemetryEventType = "assistant_message_start"
	EventMessageComplete TelemetryEventType = "assistant_message_complete"
	EventTextChunk       TelemetryEventType = "assistant_text_chunk"

	// Agent activity
	EventToolUse    TelemetryEventType = "tool_use"
	EventToolResult TelemetryEventType = "tool_result"
	EventThinking   TelemetryEventType = "assistant_thinking"
	EventError      TelemetryEventType = "error"
	EventWarning    TelemetryEventType = "warning"

	// Progress phases
	EventValidating  TelemetryEventType = "validating"
	EventConfiguring TelemetryEventType = "configuring"
	EventConnecting  TelemetryEventType = "connecting"
	EventSending     TelemetryEventType = "sending"
	EventProgress    TelemetryEventType = "progress"
	EventCompleted   TelemetryEventType = "completed"
	EventCancelled   TelemetryEventType = "cancelled"

	// Server-initiated escalation of a cancel that did not take
	EventForceKilling TelemetryEventType = "force_killing"
)

// TelemetryEvent is one inbound telemetry message. Only the fields the event
// type guarantees are typed; everything else lands in Extra so the normalizer
// can fold unexpected payload fields into an action's detail.
type TelemetryEvent struct {
	Type       TelemetryEventType `json:"type"`
	ID         string             `json:"id,omitempty"`
	Message    string             `json:"message,omitempty"`
	Content    string             `json:"content,omitempty"`
	IsComplete bool               `json:"is_complete,omitempty"`
	ToolName   string             `json:"tool_name,omitempty"`
	Tool       string             `json:"tool,omitempty"`
	Name       string             `json:"name,omitempty"`
	Provider   string             `json:"provider,omitempty"`
	Success    *bool              `json:"success,omitempty"`
	Timestamp  string             `json:"timestamp,omitempty"`

	// Extra holds payload fields beyond the typed ones above.
	Extra map[string]json.RawMessage `json:"-"`
}

// knownEventKeys are the typed TelemetryEvent fields, excluded from Extra.
var knownEventKeys = map[string]bool{
	"type": true, "id": true, "message": true, "content": true,
	"is_complete": true, "tool_name": true, "tool": true, "name": true,
	"provider": true, "success": true, "timestamp": true,
}

// UnmarshalJSON decodes the typed fields and captures the rest in Extra.
func (e *TelemetryEvent) UnmarshalJSON(data []byte) error {
	type alias TelemetryEvent
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	for k := range raw {
		if knownEventKeys[k] {
			delete(raw, k)
		}
	}
	if len(raw) > 0 {
		a.Extra = raw
	}

	*e = TelemetryEvent(a)
	return nil
}

// BestToolName returns the first non-empty tool identifier field.
func (e *TelemetryEvent) BestToolName() string {
	if e.ToolName != "" {
		return e.ToolName
	}
	if e.Tool != "" {
		return e.Tool
	}
	return e.Name
}

// FileUpdateEventType identifies messages on the file-update channel.
type FileUpdateEventType string

const (
	FileEventModified  FileUpdateEventType = "modified"
	FileEventKeepalive FileUpdateEventType = "keepalive"
	FileEventConnected FileUpdateEventType = "connected"
)

// FileUpdateEvent is one inbound message on the process-lifetime
// file-update channel.
type FileUpdateEvent struct {
	Type     FileUpdateEventType `json:"type"`
	FilePath string              `json:"filePath,omitempty"`
}
