// Package audit records finished sessions into the graph database so
// session history can be queried across runs. The sink degrades to a no-op
// when no graph is reachable; chat flow never depends on it.
package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/nkall/periscope/internal/controller"
	"github.com/nkall/periscope/internal/domain"
	"github.com/nkall/periscope/internal/graph"
	"github.com/nkall/periscope/internal/logging"
)

// Sink writes one Session node per finished session.
type Sink struct {
	driver graph.Driver
	log    *logging.Logger
}

// Verify Sink implements controller.AuditSink
var _ controller.AuditSink = (*Sink)(nil)

// NewSink creates a sink over driver. A nil driver yields a no-op sink.
func NewSink(driver graph.Driver) *Sink {
	return &Sink{
		driver: driver,
		log:    logging.New("audit"),
	}
}

// Enabled reports whether a graph backend is attached.
func (s *Sink) Enabled() bool {
	return s != nil && s.driver != nil
}

// RecordSession upserts the session's audit node. Repeated records for the
// same session id overwrite, so a session saved at cancellation and again
// at completion keeps one node.
func (s *Sink) RecordSession(ctx context.Context, sess *domain.Session, actionCount int) error {
	if !s.Enabled() {
		return nil
	}

	durationMs := int64(0)
	if !sess.EndedAt.IsZero() {
		durationMs = sess.EndedAt.Sub(sess.StartedAt).Milliseconds()
	}

	err := s.driver.ExecuteWrite(ctx, `
		MERGE (n:Session {id: $id})
		SET n.status = $status,
		    n.cancel_phase = $cancel_phase,
		    n.started_at = $started_at,
		    n.ended_at = $ended_at,
		    n.duration_ms = $duration_ms,
		    n.action_count = $action_count
	`, map[string]any{
		"id":           sess.ID,
		"status":       string(sess.Status),
		"cancel_phase": string(sess.Cancel),
		"started_at":   sess.StartedAt.UTC().Format(time.RFC3339),
		"ended_at":     sess.EndedAt.UTC().Format(time.RFC3339),
		"duration_ms":  durationMs,
		"action_count": actionCount,
	})
	if err != nil {
		return fmt.Errorf("record session: %w", err)
	}

	s.log.Debug("session_recorded", map[string]interface{}{
		"session": sess.ID,
		"status":  string(sess.Status),
	})
	return nil
}

// Close releases the underlying driver.
func (s *Sink) Close() error {
	if !s.Enabled() {
		return nil
	}
	return s.driver.Close()
}
