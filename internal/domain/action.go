// Package domain defines the core types shared across periscope components:
// sessions, actions, chat messages, and the gateway wire formats.
package domain

import "time"

// ActionType is the canonical taxonomy for normalized telemetry records.
type ActionType string

const (
	ActionProgress   ActionType = "progress"
	ActionToolCall   ActionType = "tool_call"
	ActionToolResult ActionType = "tool_result"
	ActionWarning    ActionType = "warning"
	ActionError      ActionType = "error"
	ActionThinking   ActionType = "assistant_thinking"
)

// AgentAction is one normalized, displayable record derived from a telemetry
// event. Actions are immutable after creation and keyed by ID in the log.
type AgentAction struct {
	ID        string     `json:"id"`
	Type      ActionType `json:"type"`
	Label     string     `json:"label"`
	Detail    string     `json:"detail,omitempty"`
	Timestamp time.Time  `json:"timestamp"`
	SessionID string     `json:"sessionID"`

	// ErrorMessage carries a request failure surfaced on the last action.
	ErrorMessage string `json:"errorMessage,omitempty"`
}
