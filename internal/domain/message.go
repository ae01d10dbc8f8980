package domain

import "time"

// Role identifies the author of a chat message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// ChatMessage is one persisted conversation entry. History is append-only
// except for an explicit clear, which resets it to the seed system message.
type ChatMessage struct {
	ID        string    `json:"id"`
	SessionID string    `json:"sessionID,omitempty"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}
