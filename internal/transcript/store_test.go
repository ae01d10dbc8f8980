package transcript

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nkall/periscope/internal/domain"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleSession() (*domain.Session, []domain.ChatMessage) {
	started := time.Date(2026, 4, 2, 10, 0, 0, 0, time.UTC)
	sess := &domain.Session{
		ID:        "s1",
		Status:    domain.StatusCompleted,
		Cancel:    domain.CancelIdle,
		StartedAt: started,
		EndedAt:   started.Add(8 * time.Second),
	}
	msgs := []domain.ChatMessage{
		{ID: "m1", SessionID: "s1", Role: domain.RoleUser, Content: "list files", Timestamp: started},
		{ID: "m2", SessionID: "s1", Role: domain.RoleAssistant, Content: "Here are 3 files.", Timestamp: started.Add(5 * time.Second)},
	}
	return sess, msgs
}

func TestSaveAndReloadSession(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	sess, msgs := sampleSession()
	require.NoError(t, s.SaveSession(ctx, sess, msgs))

	got, err := s.GetSession(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, got.Status)
	assert.Equal(t, sess.StartedAt, got.StartedAt.UTC())
	assert.Equal(t, sess.EndedAt, got.EndedAt.UTC())

	loaded, err := s.GetMessages(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, loaded, 2)
	assert.Equal(t, "list files", loaded[0].Content)
	assert.Equal(t, domain.RoleAssistant, loaded[1].Role)
}

func TestSaveSessionIsIdempotent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	sess, msgs := sampleSession()
	require.NoError(t, s.SaveSession(ctx, sess, msgs))

	// A second save with an updated status must not duplicate messages.
	sess.Status = domain.StatusCancelled
	sess.Cancel = domain.CancelCancelled
	require.NoError(t, s.SaveSession(ctx, sess, msgs))

	got, err := s.GetSession(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCancelled, got.Status)
	assert.Equal(t, domain.CancelCancelled, got.Cancel)

	loaded, err := s.GetMessages(ctx, "s1")
	require.NoError(t, err)
	assert.Len(t, loaded, 2)
}

func TestMessagesWithoutIDsAreSkipped(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	sess, _ := sampleSession()
	msgs := []domain.ChatMessage{
		{SessionID: "s1", Role: domain.RoleSystem, Content: "seed"},
		{ID: "m1", SessionID: "s1", Role: domain.RoleUser, Content: "q", Timestamp: time.Now()},
	}
	require.NoError(t, s.SaveSession(ctx, sess, msgs))

	loaded, err := s.GetMessages(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	assert.Equal(t, "q", loaded[0].Content)
}

func TestListSessionsNewestFirst(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	base := time.Date(2026, 4, 2, 10, 0, 0, 0, time.UTC)
	for i, id := range []string{"old", "mid", "new"} {
		sess := &domain.Session{
			ID:        id,
			Status:    domain.StatusCompleted,
			Cancel:    domain.CancelIdle,
			StartedAt: base.Add(time.Duration(i) * time.Hour),
		}
		require.NoError(t, s.SaveSession(ctx, sess, nil))
	}

	sessions, err := s.ListSessions(ctx, 2)
	require.NoError(t, err)
	require.Len(t, sessions, 2)
	assert.Equal(t, "new", sessions[0].ID)
	assert.Equal(t, "mid", sessions[1].ID)
}

func TestDeleteSession(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	sess, msgs := sampleSession()
	require.NoError(t, s.SaveSession(ctx, sess, msgs))
	require.NoError(t, s.DeleteSession(ctx, "s1"))

	_, err := s.GetSession(ctx, "s1")
	require.Error(t, err)

	loaded, err := s.GetMessages(ctx, "s1")
	require.NoError(t, err)
	assert.Empty(t, loaded)
}
