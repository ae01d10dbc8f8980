package domain

import "time"

// SendRequest is the blocking query request posted to the gateway. The
// session id is client-minted and scopes the telemetry channel for this
// exchange.
type SendRequest struct {
	SessionID    string           `json:"session_id"`
	Messages     []ChatMessage    `json:"messages"`
	ContextFiles []FileAttachment `json:"context_files,omitempty"`
}

// FileAttachment is a context document sent along with a query.
type FileAttachment struct {
	Path    string `json:"path"`
	Name    string `json:"name"`
	Content string `json:"content"`
}

// SendResponse is the gateway's synchronous reply. AgentActions may repeat
// actions already streamed live; the merge is idempotent by id. Conversation,
// when present, is the server's authoritative message array.
type SendResponse struct {
	Reply            string        `json:"reply,omitempty"`
	Conversation     []ChatMessage `json:"conversation,omitempty"`
	AgentActions     []AgentAction `json:"agent_actions,omitempty"`
	FallbackProvider string        `json:"fallback_provider,omitempty"`
	FallbackModel    string        `json:"fallback_model,omitempty"`
}

// CancelResponse reports the outcome of a cancel request. Success here only
// means the gateway accepted the request; confirmation arrives as a
// cancelled telemetry event.
type CancelResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// FileInfo is the gateway's view of one context file's current content and
// metadata. A fetch failure signals the file is missing.
type FileInfo struct {
	Content      string    `json:"content"`
	Name         string    `json:"name"`
	Size         int64     `json:"size"`
	LastModified time.Time `json:"lastModified"`
}
