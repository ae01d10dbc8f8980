package audit

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nkall/periscope/internal/domain"
	"github.com/nkall/periscope/internal/graph"
)

// fakeDriver records writes and serves canned read results.
type fakeDriver struct {
	mu      sync.Mutex
	writes  []map[string]any
	results []graph.Record
}

func (d *fakeDriver) Execute(_ context.Context, _ string, _ map[string]any) ([]graph.Record, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.results, nil
}

func (d *fakeDriver) ExecuteWrite(_ context.Context, _ string, params map[string]any) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.writes = append(d.writes, params)
	return nil
}

func (d *fakeDriver) Close() error                 { return nil }
func (d *fakeDriver) Ping(_ context.Context) error { return nil }

func TestRecordSession(t *testing.T) {
	drv := &fakeDriver{}
	sink := NewSink(drv)

	started := time.Date(2026, 4, 2, 10, 0, 0, 0, time.UTC)
	err := sink.RecordSession(context.Background(), &domain.Session{
		ID:        "s1",
		Status:    domain.StatusCompleted,
		Cancel:    domain.CancelIdle,
		StartedAt: started,
		EndedAt:   started.Add(4 * time.Second),
	}, 7)
	require.NoError(t, err)

	require.Len(t, drv.writes, 1)
	params := drv.writes[0]
	assert.Equal(t, "s1", params["id"])
	assert.Equal(t, "completed", params["status"])
	assert.Equal(t, int64(4000), params["duration_ms"])
	assert.Equal(t, 7, params["action_count"])
}

func TestNilDriverIsNoOp(t *testing.T) {
	sink := NewSink(nil)
	assert.False(t, sink.Enabled())

	err := sink.RecordSession(context.Background(), &domain.Session{ID: "s1"}, 0)
	assert.NoError(t, err)
	assert.NoError(t, sink.Close())

	stats, err := sink.GetStats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, stats.Total)
}

func TestRecentSessions(t *testing.T) {
	drv := &fakeDriver{results: []graph.Record{
		{"id": "s2", "status": "completed", "duration_ms": int64(900), "action_count": int64(3)},
		{"id": "s1", "status": "cancelled", "duration_ms": int64(4200), "action_count": int64(12)},
	}}
	sink := NewSink(drv)

	records, err := sink.RecentSessions(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "s2", graph.GetString(records[0], "id"))
	assert.Equal(t, "completed", graph.GetString(records[0], "status"))
	assert.Equal(t, int64(4200), graph.GetInt64(records[1], "duration_ms"))

	disabled := NewSink(nil)
	records, err = disabled.RecentSessions(context.Background(), 2)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestGetStats(t *testing.T) {
	drv := &fakeDriver{results: []graph.Record{{
		"total":           int64(10),
		"completed":       int64(7),
		"errored":         int64(1),
		"cancelled":       int64(2),
		"avg_duration_ms": 1250.5,
		"total_actions":   int64(84),
	}}}
	sink := NewSink(drv)

	stats, err := sink.GetStats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 10, stats.Total)
	assert.Equal(t, 7, stats.Completed)
	assert.Equal(t, 1, stats.Errored)
	assert.Equal(t, 2, stats.Cancelled)
	assert.Equal(t, 1250.5, stats.AvgDurationMs)
	assert.Equal(t, int64(84), stats.TotalActions)
}
