package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// DocumentsView is the form for adding a PDF or EPUB as a new book
type DocumentsView struct {
	app     *App
	inputs  []textinput.Model
	focused int
}

const (
	pathInput = iota
	nameInput
)

// NewDocumentsView creates a new documents view
func NewDocumentsView(app *App) *DocumentsView {
	path := textinput.New()
	path.Placeholder = "/path/to/book.pdf"
	path.Prompt = "File: "
	path.Width = 60

	name := textinput.New()
	name.Placeholder = "unique book name"
	name.Prompt = "Name: "
	name.CharLimit = 200
	name.Width = 60

	return &DocumentsView{
		app:    app,
		inputs: []textinput.Model{path, name},
	}
}

func (dv *DocumentsView) focusInput(i int) tea.Cmd {
	dv.focused = i
	for j := range dv.inputs {
		dv.inputs[j].Blur()
	}
	return dv.inputs[i].Focus()
}

func (dv *DocumentsView) focus() tea.Cmd {
	return dv.focusInput(dv.focused)
}

func (dv *DocumentsView) blur() {
	for j := range dv.inputs {
		dv.inputs[j].Blur()
	}
}

func (dv *DocumentsView) reset() {
	for j := range dv.inputs {
		dv.inputs[j].SetValue("")
	}
	dv.focused = pathInput
	dv.blur()
}

// Update handles updates
func (dv *DocumentsView) Update(msg tea.Msg) tea.Cmd {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.String() {
		case "tab", "shift+tab", "up", "down":
			return dv.focusInput((dv.focused + 1) % len(dv.inputs))
		case "enter":
			if dv.focused == pathInput {
				return dv.focusInput(nameInput)
			}
			return dv.submit()
		}
	}

	var cmd tea.Cmd
	dv.inputs[dv.focused], cmd = dv.inputs[dv.focused].Update(msg)
	return cmd
}

func (dv *DocumentsView) submit() tea.Cmd {
	path := strings.TrimSpace(dv.inputs[pathInput].Value())
	name := dv.inputs[nameInput].Value()
	if path == "" {
		dv.app.errorMsg = "Please enter a file path."
		return dv.focusInput(pathInput)
	}
	if strings.TrimSpace(name) == "" {
		dv.app.errorMsg = "Please enter a valid book name."
		return nil
	}
	return dv.app.run("Extracting text from "+path, ingestFile(dv.app.ctx, dv.app.app, path, name))
}

// View renders the documents view
func (dv *DocumentsView) View() string {
	lines := []string{
		"Add a PDF or EPUB. Scanned pages without a text layer are read with OCR.",
		"",
		dv.inputs[pathInput].View(),
		dv.inputs[nameInput].View(),
		"",
		helpStyle.Render("Tab: Next field | Enter: Save book | Esc: Back"),
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}
