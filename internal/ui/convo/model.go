// Package convo is the interactive chat panel that drives a task
// conversation from the terminal. Each submitted line is one turn; the
// reply renders the structured turn result as chat messages.
package convo

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/kweiss/voicetask/internal/conversation"
	"github.com/kweiss/voicetask/internal/service"
)

var (
	colorBlue  = lipgloss.Color("12")
	colorGreen = lipgloss.Color("10")
	colorGray  = lipgloss.Color("8")
	colorWhite = lipgloss.Color("15")

	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorGray).
			Padding(1, 2)
)

// turnMsg carries one completed conversation turn back into the model.
type turnMsg struct {
	result conversation.TurnResult
	err    error
}

// displayMessage represents a message rendered in the chat viewport.
type displayMessage struct {
	Role    string
	Content string
}

// Model is the conversation panel Bubble Tea model.
type Model struct {
	svc            *service.Service
	conversationID string
	input          textarea.Model
	viewport       viewport.Model
	messages       []displayMessage
	waiting        bool
	done           bool
	width          int
	height         int
}

// New creates the conversation panel.
func New(svc *service.Service, width, height int) Model {
	ta := textarea.New()
	ta.Placeholder = "Describe your tasks..."
	ta.Prompt = "> "
	ta.ShowLineNumbers = false
	ta.SetWidth(width - 4)
	ta.SetHeight(3)
	ta.CharLimit = 2000
	ta.Focus()

	vpHeight := height - 8 // space for input area + borders
	if vpHeight < 4 {
		vpHeight = 4
	}

	vp := viewport.New(width-4, vpHeight)
	vp.Style = lipgloss.NewStyle()

	return Model{
		svc:      svc,
		input:    ta,
		viewport: vp,
		messages: make([]displayMessage, 0),
		width:    width,
		height:   height,
	}
}

// Init returns the initial command for the panel.
func (m Model) Init() tea.Cmd {
	return textarea.Blink
}

// Update handles messages for the panel. The panel runs as the
// program's top-level model, so the interface return type is required.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case turnMsg:
		next, cmd := m.handleTurn(msg)
		return next, cmd

	case tea.KeyMsg:
		next, cmd := m.handleKeyMsg(msg)
		return next, cmd

	case tea.WindowSizeMsg:
		m.SetSize(msg.Width, msg.Height)
		return m, nil
	}

	var cmds []tea.Cmd

	var taCmd tea.Cmd
	m.input, taCmd = m.input.Update(msg)
	if taCmd != nil {
		cmds = append(cmds, taCmd)
	}

	var vpCmd tea.Cmd
	m.viewport, vpCmd = m.viewport.Update(msg)
	if vpCmd != nil {
		cmds = append(cmds, vpCmd)
	}

	return m, tea.Batch(cmds...)
}

// handleKeyMsg processes keyboard input.
func (m Model) handleKeyMsg(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch msg.String() {
	case "esc", "ctrl+c":
		return m, tea.Quit

	case "enter":
		if m.waiting || m.done {
			return m, nil
		}

		text := strings.TrimSpace(m.input.Value())
		if text == "" {
			return m, nil
		}

		m.input.Reset()
		m.messages = append(m.messages, displayMessage{
			Role:    "You",
			Content: text,
		})
		m.waiting = true
		m.refreshViewport()

		return m, m.sendTurn(text)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// handleTurn renders a completed turn into the chat.
func (m Model) handleTurn(msg turnMsg) (Model, tea.Cmd) {
	m.waiting = false

	if msg.err != nil {
		m.messages = append(m.messages, displayMessage{
			Role:    "voicetask",
			Content: fmt.Sprintf("Error: %v", msg.err),
		})
		m.done = true
		m.refreshViewport()
		return m, nil
	}

	result := msg.result
	m.conversationID = result.ConversationID
	m.messages = append(m.messages, displayMessage{
		Role:    "voicetask",
		Content: renderTurn(result),
	})

	if result.State.Terminal() {
		m.done = true
		m.messages = append(m.messages, displayMessage{
			Role:    "voicetask",
			Content: "Conversation finished. Press Esc to exit.",
		})
	}

	m.refreshViewport()
	return m, nil
}

// sendTurn returns a command that starts or continues the conversation.
func (m Model) sendTurn(text string) tea.Cmd {
	svc := m.svc
	id := m.conversationID
	return func() tea.Msg {
		var (
			result conversation.TurnResult
			err    error
		)
		if id == "" {
			result, err = svc.StartConversation(context.Background(), text, nil, 0)
		} else {
			result, err = svc.ContinueConversation(context.Background(), id, text, nil)
		}
		return turnMsg{result: result, err: err}
	}
}

// renderTurn flattens a turn result into display text.
func renderTurn(result conversation.TurnResult) string {
	var lines []string

	if result.Error != "" {
		lines = append(lines, "Error: "+result.Error)
	}
	if result.Message != "" {
		lines = append(lines, result.Message)
	}

	if len(result.Actions) > 0 {
		lines = append(lines, "", "Actions:")
		for _, action := range result.Actions {
			lines = append(lines, "  - "+action)
		}
	}

	if len(result.ProjectMatches) > 0 {
		lines = append(lines, "", "Matching projects:")
		for _, match := range result.ProjectMatches {
			lines = append(lines, fmt.Sprintf("  - %s (%d)", match.Name, match.Score))
		}
	}
	if len(result.AvailableProjects) > 0 {
		lines = append(lines, "", "Available projects:")
		for _, name := range result.AvailableProjects {
			lines = append(lines, "  - "+name)
		}
	}

	if result.Summary != nil {
		lines = append(lines, "",
			"Project:  "+result.Summary.Project,
			"Due date: "+result.Summary.DueDate,
			"Priority: "+result.Summary.Priority,
			fmt.Sprintf("Tasks:    %d", result.Summary.ActionCount),
		)
	}

	if len(result.Examples) > 0 {
		lines = append(lines, "Examples: "+strings.Join(result.Examples, ", "))
	}

	if result.Export != nil {
		lines = append(lines, fmt.Sprintf(
			"Created %d of %d tasks.",
			result.Export.Summary.Successful,
			result.Export.Summary.TotalActions,
		))
		for _, failure := range result.Export.Failures {
			lines = append(lines, fmt.Sprintf("  failed: %s (%s)", failure.Action, failure.Error))
		}
	}

	return strings.Join(lines, "\n")
}

// refreshViewport re-renders the chat content and scrolls to bottom.
func (m *Model) refreshViewport() {
	m.viewport.SetContent(m.renderChat())
	m.viewport.GotoBottom()
}

// renderChat builds the chat display string.
func (m Model) renderChat() string {
	if len(m.messages) == 0 {
		return lipgloss.NewStyle().
			Foreground(colorGray).
			Italic(true).
			Render("Describe the tasks you want to create, e.g. " +
				"\"buy milk and call mom for my shopping list\".")
	}

	var sections []string

	roleStyle := lipgloss.NewStyle().Bold(true)
	userStyle := roleStyle.Foreground(colorBlue)
	appStyle := roleStyle.Foreground(colorGreen)
	contentStyle := lipgloss.NewStyle().Foreground(colorWhite)

	for _, msg := range m.messages {
		var label string
		switch msg.Role {
		case "You":
			label = userStyle.Render("You:")
		default:
			label = appStyle.Render(msg.Role + ":")
		}

		sections = append(sections, label)
		sections = append(sections, contentStyle.Render(msg.Content))
		sections = append(sections, "")
	}

	if m.waiting {
		waitStyle := lipgloss.NewStyle().
			Foreground(colorGray).
			Italic(true)
		sections = append(sections, waitStyle.Render("..."))
	}

	return strings.Join(sections, "\n")
}

// View renders the panel.
func (m Model) View() string {
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(colorWhite).
		MarginBottom(1)

	title := titleStyle.Render("voicetask")

	sepStyle := lipgloss.NewStyle().Foreground(colorGray)
	separator := sepStyle.Render(
		strings.Repeat("─", min(m.width-6, 80)),
	)

	content := lipgloss.JoinVertical(
		lipgloss.Left,
		title,
		m.viewport.View(),
		separator,
		m.input.View(),
	)

	return panelStyle.
		Width(m.width - 4).
		Render(content)
}

// SetSize updates the panel dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.input.SetWidth(width - 4)

	vpHeight := height - 8
	if vpHeight < 4 {
		vpHeight = 4
	}
	m.viewport.Width = width - 4
	m.viewport.Height = vpHeight
}
