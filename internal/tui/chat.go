package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/textbook-chat/cli/internal/llm"
)

var (
	userStyle      = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	assistantStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
)

// chrome is the number of lines around the transcript: title, tabs,
// spacers, input, help and footer
const chrome = 9

// ChatView handles the chat interface
type ChatView struct {
	app      *App
	messages viewport.Model
	input    textinput.Model
	// transcript is a snapshot taken while no action is running
	transcript []llm.Message
	pending    string
}

// NewChatView creates a new chat view
func NewChatView(app *App) *ChatView {
	input := textinput.New()
	input.Placeholder = "Ask a question about the book"
	input.Prompt = "> "
	input.CharLimit = 4000

	cv := &ChatView{
		app:      app,
		messages: viewport.New(80, 24-chrome),
		input:    input,
	}
	return cv
}

func (cv *ChatView) resize(width, height int) {
	cv.messages.Width = width
	cv.messages.Height = max(3, height-chrome)
	cv.input.Width = max(10, width-4)
	cv.refresh()
}

func (cv *ChatView) focus() tea.Cmd {
	return cv.input.Focus()
}

func (cv *ChatView) blur() {
	cv.input.Blur()
}

// load snapshots the session transcript. Only call it while idle.
func (cv *ChatView) load() {
	cv.transcript = cv.app.app.Session.Transcript()
	cv.refresh()
}

// refresh re-renders the snapshot, skipping the system primer
func (cv *ChatView) refresh() {
	var parts []string
	width := max(20, cv.messages.Width-2)
	body := lipgloss.NewStyle().Width(width)

	for _, m := range cv.transcript {
		switch m.Role {
		case llm.RoleUser:
			parts = append(parts, userStyle.Render("You:"), body.Render(m.Content), "")
		case llm.RoleAssistant:
			content := m.Content
			style := body
			if strings.HasPrefix(content, "Error:") {
				style = style.Foreground(lipgloss.Color("196"))
			}
			parts = append(parts, assistantStyle.Render("Assistant:"), style.Render(content), "")
		}
	}

	if cv.pending != "" {
		parts = append(parts, userStyle.Render("You:"), body.Render(cv.pending), "")
	}

	cv.messages.SetContent(strings.Join(parts, "\n"))
	cv.messages.GotoBottom()
}

// Update handles updates
func (cv *ChatView) Update(msg tea.Msg) tea.Cmd {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.String() {
		case "enter":
			question := cv.input.Value()
			if strings.TrimSpace(question) == "" {
				return nil
			}
			cv.input.SetValue("")
			cv.pending = question
			cv.refresh()
			return cv.app.run("Generating response", askQuestion(cv.app.ctx, cv.app.app.Session, question))
		case "pgup", "pgdown", "ctrl+u", "ctrl+d":
			var cmd tea.Cmd
			cv.messages, cmd = cv.messages.Update(msg)
			return cmd
		}
	}

	var cmd tea.Cmd
	cv.input, cmd = cv.input.Update(msg)
	return cmd
}

// View renders the chat view
func (cv *ChatView) View() string {
	if cv.app.activeBook == "" {
		return lipgloss.JoinVertical(lipgloss.Left,
			"No book selected. Press Esc and pick one in the library.",
			"",
			helpStyle.Render("Esc: Back"),
		)
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		activeStyle.Render("Book: "+cv.app.activeBook),
		cv.messages.View(),
		cv.input.View(),
		helpStyle.Render("Enter: Send | PgUp/PgDn: Scroll | Esc: Back"),
	)
}
