package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/nkall/periscope/internal/domain"
)

// View renders the TUI.
func (m Model) View() string {
	if m.quitting {
		return "Goodbye!\n"
	}

	if !m.ready {
		return fmt.Sprintf("\n  %s Connecting...", m.spinner.View())
	}

	var b strings.Builder

	header := titleStyle.Render("⚡ periscope") + "  " +
		lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Render(m.gatewayURL)
	b.WriteString(header + "\n\n")

	b.WriteString(m.viewport.View())
	b.WriteString("\n")

	b.WriteString(m.renderStatus() + "\n")
	b.WriteString(m.renderInputArea())

	return b.String()
}

func (m Model) renderInputArea() string {
	if m.ctrl.Loading() {
		label := "Working..."
		if p := m.ctrl.Progress(); p != "" {
			label = p
		}
		if phase := phaseLabel(m.ctrl.CancelPhase()); phase != "" {
			label = phase
		}
		return fmt.Sprintf("  %s %s", m.spinner.View(), label)
	}

	if m.input.Focused() {
		return focusedInputStyle.Width(m.width - 4).Render(m.input.View())
	}
	return inputBorderStyle.Width(m.width - 4).Render(m.input.View())
}

func (m Model) renderStatus() string {
	var parts []string

	switch status := m.ctrl.Status(); status {
	case domain.StatusIdle:
		parts = append(parts, "ready")
	default:
		parts = append(parts, string(status))
	}

	if phase := m.ctrl.CancelPhase(); phase != domain.CancelIdle {
		parts = append(parts, "cancel: "+string(phase))
	}

	if paths := m.ctrl.ContextPaths(); len(paths) > 0 {
		parts = append(parts, fmt.Sprintf("ctx:%d", len(paths)))
	}

	if m.ctrl.Loading() {
		parts = append(parts, "Esc: cancel │ PgUp/PgDn: scroll")
	} else {
		parts = append(parts, "Enter: send │ Ctrl+L: clear │ Esc: quit")
	}

	return statusStyle.Width(m.width).Render(strings.Join(parts, " │ "))
}

func (m Model) renderOutput() string {
	var b strings.Builder

	for _, msg := range m.ctrl.History() {
		if msg.Role == domain.RoleSystem {
			continue
		}
		switch msg.Role {
		case domain.RoleUser:
			b.WriteString(userStyle.Render("You") + "\n")
		case domain.RoleAssistant:
			b.WriteString(agentStyle.Render("Agent") + "\n")
		default:
			b.WriteString(textStyle.Render(string(msg.Role)) + "\n")
		}
		b.WriteString(textStyle.Render(msg.Content) + "\n\n")
	}

	// Open turn: show the partial text as it streams in.
	if m.ctrl.Streaming() {
		b.WriteString(agentStyle.Render("Agent") + "\n")
		b.WriteString(streamStyle.Render(m.ctrl.BufferedText()+"▌") + "\n\n")
	}

	b.WriteString(m.renderActivity())

	if m.err != nil {
		b.WriteString("\n" + errorStyle.Render("Error: "+m.err.Error()) + "\n")
	}

	return b.String()
}

// renderActivity shows the tail of the action log while a session is live
// and after it ends, so tool activity stays visible next to the answer.
func (m Model) renderActivity() string {
	actions := m.ctrl.Actions()
	if len(actions) == 0 {
		return ""
	}
	if len(actions) > visibleActions {
		actions = actions[len(actions)-visibleActions:]
	}

	var b strings.Builder
	for _, a := range actions {
		line := fmt.Sprintf("  %s %s", a.Timestamp.Format("15:04:05"), a.Label)
		if a.Detail != "" {
			line += " (" + a.Detail + ")"
		}
		switch a.Type {
		case domain.ActionError:
			b.WriteString(errorStyle.Render(line))
		case domain.ActionWarning:
			b.WriteString(warnStyle.Render(line))
		default:
			b.WriteString(actionStyle.Render(line))
		}
		if a.ErrorMessage != "" {
			b.WriteString(errorStyle.Render(" ← " + a.ErrorMessage))
		}
		b.WriteString("\n")
	}
	return b.String()
}
