package domain

import "time"

// SessionStatus tracks one query/response exchange through its lifecycle.
type SessionStatus string

const (
	StatusIdle         SessionStatus = "idle"
	StatusSending      SessionStatus = "sending"
	StatusStreaming    SessionStatus = "streaming"
	StatusCompleted    SessionStatus = "completed"
	StatusErrored      SessionStatus = "errored"
	StatusCancelling   SessionStatus = "cancelling"
	StatusForceKilling SessionStatus = "force-killing"
	StatusCancelled    SessionStatus = "cancelled"
)

// Terminal reports whether the session can no longer receive telemetry.
func (s SessionStatus) Terminal() bool {
	switch s {
	case StatusCompleted, StatusErrored, StatusCancelled:
		return true
	}
	return false
}

// CancelPhase is the cancellation state machine attached to a session.
// force-killing is only ever reported by the server; the client never
// requests it directly.
type CancelPhase string

const (
	CancelIdle         CancelPhase = "idle"
	CancelCancelling   CancelPhase = "cancelling"
	CancelForceKilling CancelPhase = "force-killing"
	CancelCancelled    CancelPhase = "cancelled"
	CancelFailed       CancelPhase = "failed"
)

// Session identifies one query/response exchange. At most one session is
// live at a time; a new send supersedes the previous session.
type Session struct {
	ID        string        `json:"id"`
	Status    SessionStatus `json:"status"`
	Cancel    CancelPhase   `json:"cancel"`
	StartedAt time.Time     `json:"startedAt"`
	EndedAt   time.Time     `json:"endedAt,omitempty"`
}

// ContextFileEntry tracks last-known metadata for one attached context file.
type ContextFileEntry struct {
	Path                  string    `json:"path"`
	LastKnownModifiedTime time.Time `json:"lastKnownModifiedTime"`
	LastKnownSize         int64     `json:"lastKnownSize"`
	Stale                 bool      `json:"stale"`
}
