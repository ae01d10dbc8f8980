// Package tui provides the Bubble Tea interactive chat interface.
package tui

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nkall/periscope/internal/controller"
	"github.com/nkall/periscope/internal/domain"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("205")).
			Padding(0, 1)

	userStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39")).
			Bold(true)

	agentStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42")).
			Bold(true)

	textStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252"))

	streamStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("250")).
			Italic(true)

	actionStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("244"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))

	warnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("226"))

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")).
			Background(lipgloss.Color("236")).
			Padding(0, 1)

	inputBorderStyle = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(lipgloss.Color("62")).
				Padding(0, 1)

	focusedInputStyle = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(lipgloss.Color("205")).
				Padding(0, 1)
)

// visibleActions bounds how many action log entries the activity pane shows.
const visibleActions = 8

// Messages
type (
	// refreshMsg tells the model that controller state changed.
	refreshMsg struct{}

	// sendDoneMsg reports the blocking send result.
	sendDoneMsg struct{ err error }

	// cancelDoneMsg reports the cancel request result.
	cancelDoneMsg struct{ err error }
)

// Model is the chat TUI model. All conversational state lives in the
// controller; the model only holds presentation state, so bubbletea's
// model copying stays cheap and safe.
type Model struct {
	ctrl       *controller.Controller
	gatewayURL string

	ready    bool
	quitting bool
	sending  bool
	err      error

	viewport viewport.Model
	input    textarea.Model
	spinner  spinner.Model
	width    int
	height   int
}

// NewModel creates the chat TUI over ctrl.
func NewModel(ctrl *controller.Controller, gatewayURL string) Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	ti := textarea.New()
	ti.Placeholder = "Ask the agent... (Enter to send)"
	ti.CharLimit = 4000
	ti.SetWidth(80)
	ti.SetHeight(3)
	ti.Focus()

	return Model{
		ctrl:       ctrl,
		gatewayURL: gatewayURL,
		spinner:    s,
		input:      ti,
	}
}

// Run starts the TUI and blocks until the user quits. Controller state
// changes arriving from telemetry goroutines are forwarded as refresh
// messages.
func Run(ctrl *controller.Controller, gatewayURL string) error {
	p := tea.NewProgram(NewModel(ctrl, gatewayURL), tea.WithAltScreen())
	ctrl.SetNotify(func() {
		p.Send(refreshMsg{})
	})
	defer ctrl.SetNotify(nil)

	_, err := p.Run()
	return err
}

// Init initializes the TUI.
func (m Model) Init() tea.Cmd {
	return m.spinner.Tick
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyMsg(msg)

	case tea.WindowSizeMsg:
		return m.handleWindowSize(msg)

	case refreshMsg:
		m.refreshViewport()
		return m, nil

	case sendDoneMsg:
		m.sending = false
		m.err = msg.err
		m.refreshViewport()
		return m, nil

	case cancelDoneMsg:
		m.err = msg.err
		m.refreshViewport()
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	if !m.sending {
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		cmds = append(cmds, cmd)
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

func (m Model) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		m.quitting = true
		return m, tea.Quit

	case "esc":
		if m.ctrl.Loading() {
			// Esc requests cooperative cancellation; only a server
			// confirmation moves the session to cancelled.
			return m, func() tea.Msg {
				return cancelDoneMsg{err: m.ctrl.Cancel(context.Background())}
			}
		}
		m.quitting = true
		return m, tea.Quit

	case "enter":
		return m.handleEnterKey()

	case "alt+enter", "ctrl+j":
		if !m.sending {
			m.input.SetValue(m.input.Value() + "\n")
			return m, nil
		}

	case "ctrl+l":
		if !m.ctrl.Loading() {
			m.ctrl.ClearConversation()
			m.err = nil
			m.refreshViewport()
		}
		return m, nil

	case "pgup", "pgdown":
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m Model) handleEnterKey() (tea.Model, tea.Cmd) {
	text := strings.TrimSpace(m.input.Value())
	if m.sending || text == "" {
		return m, nil
	}

	m.input.SetValue("")
	m.sending = true
	m.err = nil
	m.refreshViewport()

	ctrl := m.ctrl
	return m, tea.Batch(m.spinner.Tick, func() tea.Msg {
		_, err := ctrl.Send(context.Background(), text)
		if err == controller.ErrSuperseded {
			err = nil
		}
		return sendDoneMsg{err: err}
	})
}

func (m Model) handleWindowSize(msg tea.WindowSizeMsg) (tea.Model, tea.Cmd) {
	m.width = msg.Width
	m.height = msg.Height

	headerHeight := 2
	statusHeight := 1
	inputHeight := 5
	vpHeight := msg.Height - headerHeight - statusHeight - inputHeight

	if !m.ready {
		m.viewport = viewport.New(msg.Width, vpHeight)
		m.ready = true
	} else {
		m.viewport.Width = msg.Width
		m.viewport.Height = vpHeight
	}
	m.refreshViewport()

	m.input.SetWidth(msg.Width - 4)
	return m, nil
}

func (m *Model) refreshViewport() {
	if !m.ready {
		return
	}
	atBottom := m.viewport.AtBottom()
	m.viewport.SetContent(m.renderOutput())
	if atBottom {
		m.viewport.GotoBottom()
	}
}

func phaseLabel(p domain.CancelPhase) string {
	switch p {
	case domain.CancelCancelling:
		return "cancelling..."
	case domain.CancelForceKilling:
		return "force killing..."
	case domain.CancelFailed:
		return "cancel failed"
	default:
		return ""
	}
}
