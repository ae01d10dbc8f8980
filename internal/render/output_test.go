package render

import (
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"

	"github.com/nkall/periscope/internal/domain"
)

func init() {
	color.NoColor = true
}

func TestActionsPlain(t *testing.T) {
	r := New(false)
	out := r.Actions([]domain.AgentAction{
		{
			Type:      domain.ActionToolCall,
			Label:     "Tool call",
			Detail:    "tool: read_file",
			Timestamp: time.Date(2026, 4, 2, 10, 30, 0, 0, time.UTC),
		},
		{
			Type:         domain.ActionProgress,
			Label:        "sending",
			Timestamp:    time.Date(2026, 4, 2, 10, 30, 1, 0, time.UTC),
			ErrorMessage: "gateway timeout",
		},
	})

	assert.Contains(t, out, "[10:30:00] tool_call Tool call (tool: read_file)")
	assert.Contains(t, out, "error: gateway timeout")
}

func TestActionsEmpty(t *testing.T) {
	assert.Equal(t, "No actions recorded", New(true).Actions(nil))
}

func TestConversationSkipsSystemSeed(t *testing.T) {
	r := New(false)
	out := r.Conversation([]domain.ChatMessage{
		{Role: domain.RoleSystem, Content: "seed prompt"},
		{Role: domain.RoleUser, Content: "list files"},
		{Role: domain.RoleAssistant, Content: "Here are 3 files."},
	})

	assert.NotContains(t, out, "seed prompt")
	assert.Contains(t, out, "You: list files")
	assert.Contains(t, out, "Agent: Here are 3 files.")
}

func TestContextFilesMarksStale(t *testing.T) {
	r := New(false)
	out := r.ContextFiles([]domain.ContextFileEntry{
		{Path: "/src/a.go", Stale: true},
		{Path: "/src/b.go"},
	})
	assert.Contains(t, out, "~ /src/a.go")
	assert.Contains(t, out, "  /src/b.go")
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", Truncate("short", 10))
	assert.Equal(t, "exactly", Truncate("exactly", 7))
	assert.Equal(t, "long st...", Truncate("long string here", 10))
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "250ms", FormatDuration(250*time.Millisecond))
	assert.Equal(t, "4.5s", FormatDuration(4500*time.Millisecond))
	assert.Equal(t, "2m5s", FormatDuration(125*time.Second))
}
