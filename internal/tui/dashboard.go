package tui

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// DashboardView lists stored books and the active session
type DashboardView struct {
	app      *App
	books    []string
	selected int
}

// NewDashboardView creates a new dashboard view
func NewDashboardView(app *App) *DashboardView {
	return &DashboardView{app: app}
}

func (dv *DashboardView) setBooks(names []string) {
	dv.books = names
	if dv.selected >= len(names) {
		dv.selected = max(0, len(names)-1)
	}
	// keep the cursor on the active book when there is one
	for i, name := range names {
		if name == dv.app.activeBook {
			dv.selected = i
			break
		}
	}
}

// Update handles updates
func (dv *DashboardView) Update(msg tea.Msg) tea.Cmd {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return nil
	}

	switch key.String() {
	case "j", "down":
		if dv.selected < len(dv.books)-1 {
			dv.selected++
		}
	case "k", "up":
		if dv.selected > 0 {
			dv.selected--
		}
	case "enter", " ":
		if len(dv.books) > 0 {
			name := dv.books[dv.selected]
			return dv.app.run("Counting tokens in "+name, selectBook(dv.app.ctx, dv.app.app.Session, name))
		}
	case "r":
		return dv.app.run("Loading books", loadBooks(dv.app.ctx, dv.app.app.Session, dv.app.app.Store))
	}
	return nil
}

// View renders the dashboard view
func (dv *DashboardView) View() string {
	var lines []string

	active := dv.app.activeBook
	if active == "" {
		lines = append(lines, "No book selected.")
	} else {
		lines = append(lines, activeStyle.Render(fmt.Sprintf("Active: %s (~%d tokens)", active, dv.app.tokens)))
	}
	lines = append(lines, "")

	if len(dv.books) == 0 {
		lines = append(lines, "No books found. Press 2 to add one.")
	} else {
		for i, name := range dv.books {
			style := lipgloss.NewStyle()
			prefix := "  "
			if i == dv.selected {
				style = style.Bold(true).Foreground(lipgloss.Color("205"))
				prefix = "> "
			}
			if name == active {
				style = style.Foreground(lipgloss.Color("39"))
			}
			lines = append(lines, style.Render(prefix+name))
		}
	}

	lines = append(lines, "")
	lines = append(lines, helpStyle.Render("j/k: Navigate | Enter: Chat with book | r: Reload | q: Quit"))

	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}
