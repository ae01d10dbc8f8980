package audit

import (
	"context"

	"github.com/nkall/periscope/internal/graph"
)

// Stats aggregates the recorded session history.
type Stats struct {
	Total         int     `json:"total"`
	Completed     int     `json:"completed"`
	Errored       int     `json:"errored"`
	Cancelled     int     `json:"cancelled"`
	AvgDurationMs float64 `json:"avg_duration_ms"`
	TotalActions  int64   `json:"total_actions"`
}

// GetStats returns aggregate statistics across all recorded sessions.
func (s *Sink) GetStats(ctx context.Context) (*Stats, error) {
	if !s.Enabled() {
		return &Stats{}, nil
	}

	records, err := s.driver.Execute(ctx, `
		MATCH (n:Session)
		RETURN count(n) AS total,
		       sum(CASE WHEN n.status = 'completed' THEN 1 ELSE 0 END) AS completed,
		       sum(CASE WHEN n.status = 'errored' THEN 1 ELSE 0 END) AS errored,
		       sum(CASE WHEN n.status = 'cancelled' THEN 1 ELSE 0 END) AS cancelled,
		       avg(n.duration_ms) AS avg_duration_ms,
		       sum(n.action_count) AS total_actions
	`, nil)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return &Stats{}, nil
	}

	r := records[0]
	return &Stats{
		Total:         graph.GetInt(r, "total"),
		Completed:     graph.GetInt(r, "completed"),
		Errored:       graph.GetInt(r, "errored"),
		Cancelled:     graph.GetInt(r, "cancelled"),
		AvgDurationMs: graph.GetFloat(r, "avg_duration_ms"),
		TotalActions:  graph.GetInt64(r, "total_actions"),
	}, nil
}

// RecentSessions returns id and status of the most recent sessions.
func (s *Sink) RecentSessions(ctx context.Context, limit int) ([]graph.Record, error) {
	if !s.Enabled() {
		return nil, nil
	}
	return s.driver.Execute(ctx, `
		MATCH (n:Session)
		RETURN n.id AS id, n.status AS status, n.started_at AS started_at,
		       n.duration_ms AS duration_ms, n.action_count AS action_count
		ORDER BY n.started_at DESC
		LIMIT $limit
	`, map[string]any{"limit": limit})
}
