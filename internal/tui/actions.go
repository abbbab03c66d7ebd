package tui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/textbook-chat/cli/config"
	"github.com/textbook-chat/cli/internal/app"
	"github.com/textbook-chat/cli/internal/books"
	"github.com/textbook-chat/cli/internal/chat"
	"github.com/textbook-chat/cli/internal/documents"
)

// Messages produced by the commands below. Every command that runs a
// pipeline action answers with exactly one of these, which is what clears
// the busy flag.

type errorMsg struct {
	error error
}

type booksLoadedMsg struct {
	names []string
}

type bookSelectedMsg struct {
	name   string
	tokens int
}

type ingestDoneMsg struct {
	name       string
	extraction *documents.Extraction
}

type replyMsg struct {
	reply *chat.Reply
}

type configSavedMsg struct {
	path string
}

// loadBooks also drops the active book if it has been deleted
func loadBooks(ctx context.Context, session *chat.Session, store books.Store) tea.Cmd {
	return func() tea.Msg {
		if err := session.Sync(ctx); err != nil {
			return errorMsg{error: err}
		}
		names, err := store.List(ctx)
		if err != nil {
			return errorMsg{error: err}
		}
		return booksLoadedMsg{names: names}
	}
}

func selectBook(ctx context.Context, session *chat.Session, name string) tea.Cmd {
	return func() tea.Msg {
		tokens, err := session.Select(ctx, name)
		if err != nil {
			return errorMsg{error: err}
		}
		return bookSelectedMsg{name: name, tokens: tokens}
	}
}

func ingestFile(ctx context.Context, a *app.App, path, name string) tea.Cmd {
	return func() tea.Msg {
		ext, err := a.Ingest(ctx, path, name)
		if err != nil {
			return errorMsg{error: err}
		}
		return ingestDoneMsg{name: name, extraction: ext}
	}
}

func askQuestion(ctx context.Context, session *chat.Session, question string) tea.Cmd {
	return func() tea.Msg {
		reply, err := session.Ask(ctx, question)
		if err != nil {
			return errorMsg{error: err}
		}
		return replyMsg{reply: reply}
	}
}

func saveConfig(cfg *config.Config, path string) tea.Cmd {
	return func() tea.Msg {
		if err := cfg.Save(path); err != nil {
			return errorMsg{error: err}
		}
		if path == "" {
			path = config.DefaultPath()
		}
		return configSavedMsg{path: path}
	}
}
