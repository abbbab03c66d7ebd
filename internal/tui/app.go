package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/textbook-chat/cli/internal/app"
	"github.com/textbook-chat/cli/internal/ollama"
)

type page int

const (
	dashboardPage page = iota
	documentsPage
	chatPage
	modelsPage
	settingsPage
)

var pageNames = []string{"Library", "Add Book", "Chat", "Models", "Settings"}

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	activeStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	helpStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
)

// App is the root bubbletea model. Only one pipeline action runs at a
// time; while it does, input other than ctrl+c is ignored.
type App struct {
	app        *app.App
	ctx        context.Context
	configPath string

	page          page
	width, height int
	busy          bool
	busyLabel     string
	status        string
	errorMsg      string
	spinner       spinner.Model

	// The session is owned by the running command while busy, so views
	// render from these copies
	activeBook string
	tokens     int

	dashboardView *DashboardView
	documentsView *DocumentsView
	chatView      *ChatView
	modelsView    *ModelsView
	settingsView  *SettingsView
}

// NewApp creates the TUI over an initialized pipeline
func NewApp(ctx context.Context, a *app.App, configPath string) *App {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = activeStyle

	t := &App{
		app:        a,
		ctx:        ctx,
		configPath: configPath,
		width:      80,
		height:     24,
		spinner:    sp,
	}

	t.dashboardView = NewDashboardView(t)
	t.documentsView = NewDocumentsView(t)
	t.chatView = NewChatView(t)

	var selector *ollama.ModelSelector
	client, _ := a.Provider.(*ollama.Client)
	if client != nil {
		selector = ollama.NewModelSelector(client)
	}
	t.modelsView = NewModelsView(t, selector, client)
	t.settingsView = NewSettingsView(t)

	return t
}

// Run starts the TUI application
func (t *App) Run() error {
	_, err := tea.NewProgram(t, tea.WithAltScreen(), tea.WithContext(t.ctx)).Run()
	return err
}

func (t *App) Init() tea.Cmd {
	return t.run("Loading books", loadBooks(t.ctx, t.app.Session, t.app.Store))
}

// sync copies session state for rendering. Only call it while idle.
func (t *App) sync() {
	t.activeBook = t.app.Session.ActiveBook()
	t.tokens = t.app.Session.Tokens()
	t.chatView.load()
}

// run marks the app busy until cmd's result message arrives
func (t *App) run(label string, cmd tea.Cmd) tea.Cmd {
	t.busy = true
	t.busyLabel = label
	t.errorMsg = ""
	return tea.Batch(t.spinner.Tick, cmd)
}

func (t *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		t.width = msg.Width
		t.height = msg.Height
		t.chatView.resize(msg.Width, msg.Height)
		return t, nil

	case spinner.TickMsg:
		if !t.busy {
			return t, nil
		}
		var cmd tea.Cmd
		t.spinner, cmd = t.spinner.Update(msg)
		return t, cmd

	case tea.KeyMsg:
		return t, t.handleKey(msg)

	case errorMsg:
		t.busy = false
		t.errorMsg = msg.error.Error()
		t.chatView.pending = ""
		t.sync()
		return t, nil

	case booksLoadedMsg:
		t.busy = false
		t.sync()
		t.dashboardView.setBooks(msg.names)
		return t, nil

	case bookSelectedMsg:
		t.busy = false
		t.status = fmt.Sprintf("Chatting with %q (~%d tokens)", msg.name, msg.tokens)
		t.sync()
		t.page = chatPage
		return t, t.chatView.focus()

	case ingestDoneMsg:
		t.busy = false
		ext := msg.extraction
		t.status = fmt.Sprintf("Saved %q: %d pages", strings.TrimSpace(msg.name), ext.Pages)
		if ext.UsedOCR {
			t.status += " via OCR"
		}
		if n := len(ext.Failures); n > 0 {
			t.status += fmt.Sprintf(", %d skipped", n)
		}
		t.documentsView.reset()
		t.page = dashboardPage
		return t, t.run("Loading books", loadBooks(t.ctx, t.app.Session, t.app.Store))

	case replyMsg:
		t.busy = false
		t.chatView.pending = ""
		t.sync()
		return t, nil

	case configSavedMsg:
		t.busy = false
		t.status = "Settings saved to " + msg.path
		return t, nil

	case modelsLoadedMsg, modelSelectedMsg:
		t.busy = false
		return t, t.modelsView.Update(msg)
	}

	return t, nil
}

func (t *App) handleKey(msg tea.KeyMsg) tea.Cmd {
	if msg.String() == "ctrl+c" {
		return tea.Quit
	}
	if t.busy {
		return nil
	}

	if msg.String() == "esc" {
		if t.page == dashboardPage {
			return tea.Quit
		}
		t.chatView.blur()
		t.documentsView.blur()
		t.page = dashboardPage
		return nil
	}

	// Pages with text inputs get every other key
	if t.page != documentsPage && t.page != chatPage {
		switch msg.String() {
		case "q":
			return tea.Quit
		case "1":
			t.page = dashboardPage
			return nil
		case "2":
			t.page = documentsPage
			return t.documentsView.focus()
		case "3":
			t.page = chatPage
			t.sync()
			return t.chatView.focus()
		case "4":
			t.page = modelsPage
			return t.modelsView.Init()
		case "5":
			t.page = settingsPage
			return nil
		}
	}

	switch t.page {
	case dashboardPage:
		return t.dashboardView.Update(msg)
	case documentsPage:
		return t.documentsView.Update(msg)
	case chatPage:
		return t.chatView.Update(msg)
	case modelsPage:
		return t.modelsView.Update(msg)
	case settingsPage:
		return t.settingsView.Update(msg)
	}
	return nil
}

func (t *App) View() string {
	var tabs []string
	for i, name := range pageNames {
		label := fmt.Sprintf("%d %s", i+1, name)
		if page(i) == t.page {
			tabs = append(tabs, activeStyle.Render("["+label+"]"))
		} else {
			tabs = append(tabs, helpStyle.Render(" "+label+" "))
		}
	}

	var body string
	switch t.page {
	case dashboardPage:
		body = t.dashboardView.View()
	case documentsPage:
		body = t.documentsView.View()
	case chatPage:
		body = t.chatView.View()
	case modelsPage:
		body = t.modelsView.View()
	case settingsPage:
		body = t.settingsView.View()
	}

	var footer string
	switch {
	case t.busy:
		footer = t.spinner.View() + " " + t.busyLabel + "..."
	case t.errorMsg != "":
		footer = errorStyle.Render("Error: " + t.errorMsg)
	case t.status != "":
		footer = okStyle.Render(t.status)
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		titleStyle.Render("Textbook Chat"),
		lipgloss.JoinHorizontal(lipgloss.Top, tabs...),
		"",
		body,
		"",
		footer,
	)
}
