package action

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/nkall/periscope/internal/domain"
)

func act(id string) domain.AgentAction {
	return domain.AgentAction{ID: id, Type: domain.ActionProgress, Label: id}
}

func TestLogAppendDeduplicatesByID(t *testing.T) {
	log := NewLog(0)

	require.True(t, log.Append(act("a1")))
	require.False(t, log.Append(act("a1")), "second append of same id must be a no-op")
	assert.Equal(t, 1, log.Len())
}

func TestLogIdempotentMerge(t *testing.T) {
	log := NewLog(0)

	// Streamed live first.
	require.True(t, log.Append(act("a1")))
	require.True(t, log.Append(act("a2")))

	// Final response repeats a1/a2 and adds a3.
	added := log.Merge([]domain.AgentAction{act("a1"), act("a2"), act("a3")})
	assert.Equal(t, 1, added)
	assert.Equal(t, 3, log.Len())
}

func TestLogBoundEvictsOldestFirst(t *testing.T) {
	log := NewLog(120)

	for i := 0; i < 200; i++ {
		require.True(t, log.Append(act(fmt.Sprintf("a%03d", i))))
	}

	actions := log.Actions()
	require.Len(t, actions, 120)
	assert.Equal(t, "a080", actions[0].ID)
	assert.Equal(t, "a199", actions[119].ID)

	// An evicted id may be stored again.
	assert.True(t, log.Append(act("a000")))
}

func TestLogSetErrorAnnotatesLastAction(t *testing.T) {
	log := NewLog(0)
	log.SetError("no actions yet") // no-op on empty log

	log.Append(act("a1"))
	log.Append(act("a2"))
	log.SetError("request failed")

	last, ok := log.Last()
	require.True(t, ok)
	assert.Equal(t, "a2", last.ID)
	assert.Equal(t, "request failed", last.ErrorMessage)

	first := log.Actions()[0]
	assert.Empty(t, first.ErrorMessage)
}

func TestLogClear(t *testing.T) {
	log := NewLog(0)
	log.Append(act("a1"))
	log.Clear()
	assert.Equal(t, 0, log.Len())
	assert.True(t, log.Append(act("a1")), "cleared ids may be appended again")
}

// TestLogProperties checks the bound and dedup invariants against random
// append sequences.
func TestLogProperties(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		capacity := rapid.IntRange(1, 50).Draw(t, "capacity")
		log := NewLog(capacity)

		ids := rapid.SliceOfN(rapid.StringMatching(`id-[0-9]{1,3}`), 0, 200).Draw(t, "ids")
		stored := make(map[string]bool)
		var order []string
		for _, id := range ids {
			if log.Append(act(id)) {
				if stored[id] {
					t.Fatalf("id %q accepted twice", id)
				}
				stored[id] = true
				order = append(order, id)
				if len(order) > capacity {
					delete(stored, order[0])
					order = order[1:]
				}
			}
		}

		actions := log.Actions()
		if len(actions) > capacity {
			t.Fatalf("log holds %d entries, capacity %d", len(actions), capacity)
		}
		if len(actions) != len(order) {
			t.Fatalf("log holds %d entries, model expects %d", len(actions), len(order))
		}
		for i, a := range actions {
			if a.ID != order[i] {
				t.Fatalf("position %d: got %q, want %q", i, a.ID, order[i])
			}
		}
	})
}
