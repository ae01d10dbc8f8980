package render

import (
	"fmt"
	"strings"
	"time"

	"github.com/fatih/color"

	"github.com/nkall/periscope/internal/domain"
)

// Renderer handles output formatting for the plain CLI surface.
type Renderer struct {
	pretty bool
}

// New creates a new renderer. pretty enables color and separators, off for
// piped output.
func New(pretty bool) *Renderer {
	return &Renderer{pretty: pretty}
}

// Actions formats the visible action log.
func (r *Renderer) Actions(actions []domain.AgentAction) string {
	if len(actions) == 0 {
		return "No actions recorded"
	}

	var sb strings.Builder

	if r.pretty {
		sb.WriteString(color.CyanString("Agent Activity\n"))
		sb.WriteString(strings.Repeat("─", 60) + "\n")
	}

	for _, a := range actions {
		r.formatAction(&sb, a)
	}

	return sb.String()
}

func (r *Renderer) formatAction(sb *strings.Builder, a domain.AgentAction) {
	timeStr := a.Timestamp.Format("15:04:05")
	icon := actionIcon(a.Type)

	if r.pretty {
		fmt.Fprintf(sb, "%s %s %s", icon, color.HiBlackString(timeStr), a.Label)
		if a.Detail != "" {
			fmt.Fprintf(sb, " %s", color.HiBlackString("("+Truncate(a.Detail, 60)+")"))
		}
	} else {
		fmt.Fprintf(sb, "[%s] %s %s", timeStr, a.Type, a.Label)
		if a.Detail != "" {
			fmt.Fprintf(sb, " (%s)", Truncate(a.Detail, 60))
		}
	}
	if a.ErrorMessage != "" {
		fmt.Fprintf(sb, " %s", color.RedString("error: "+a.ErrorMessage))
	}
	sb.WriteString("\n")
}

func actionIcon(t domain.ActionType) string {
	switch t {
	case domain.ActionToolCall:
		return color.BlueString("→")
	case domain.ActionToolResult:
		return color.GreenString("✓")
	case domain.ActionError:
		return color.RedString("✗")
	case domain.ActionWarning:
		return color.YellowString("!")
	case domain.ActionThinking:
		return color.MagentaString("◌")
	default:
		return "•"
	}
}

// Conversation formats chat history. The seed system message is never
// shown.
func (r *Renderer) Conversation(messages []domain.ChatMessage) string {
	var sb strings.Builder
	for _, m := range messages {
		if m.Role == domain.RoleSystem {
			continue
		}
		r.formatMessage(&sb, m)
	}
	if sb.Len() == 0 {
		return "No messages yet"
	}
	return sb.String()
}

func (r *Renderer) formatMessage(sb *strings.Builder, m domain.ChatMessage) {
	label := "You"
	paint := color.CyanString
	if m.Role == domain.RoleAssistant {
		label = "Agent"
		paint = color.GreenString
	}

	if r.pretty {
		fmt.Fprintf(sb, "%s\n%s\n\n", paint(label+":"), m.Content)
	} else {
		fmt.Fprintf(sb, "%s: %s\n", label, m.Content)
	}
}

// Sessions formats stored session summaries, newest first.
func (r *Renderer) Sessions(sessions []*domain.Session) string {
	if len(sessions) == 0 {
		return "No sessions recorded"
	}

	var sb strings.Builder

	if r.pretty {
		sb.WriteString(color.CyanString("Sessions\n"))
		sb.WriteString(strings.Repeat("─", 60) + "\n")
	}

	for _, s := range sessions {
		dur := ""
		if !s.EndedAt.IsZero() {
			dur = " (" + FormatDuration(s.EndedAt.Sub(s.StartedAt)) + ")"
		}
		if r.pretty {
			fmt.Fprintf(&sb, "%s %s %s%s\n",
				statusIcon(s.Status),
				color.HiBlackString(s.StartedAt.Format("2006-01-02 15:04")),
				s.ID, dur)
		} else {
			fmt.Fprintf(&sb, "[%s] %s %s%s\n",
				s.StartedAt.Format("2006-01-02 15:04"), s.Status, s.ID, dur)
		}
	}

	return sb.String()
}

func statusIcon(s domain.SessionStatus) string {
	switch s {
	case domain.StatusCompleted:
		return color.GreenString("✓")
	case domain.StatusErrored:
		return color.RedString("✗")
	case domain.StatusCancelled:
		return color.YellowString("⊘")
	default:
		return "•"
	}
}

// ContextFiles formats the attached context files with staleness markers.
func (r *Renderer) ContextFiles(entries []domain.ContextFileEntry) string {
	if len(entries) == 0 {
		return "No context files attached"
	}

	var sb strings.Builder
	for _, e := range entries {
		marker := " "
		if e.Stale {
			marker = color.YellowString("~")
		}
		fmt.Fprintf(&sb, "%s %s\n", marker, e.Path)
	}
	return sb.String()
}

// FormatDuration formats a duration in human-readable form.
func FormatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
}
