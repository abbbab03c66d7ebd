package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/textbook-chat/cli/internal/app"
	"github.com/textbook-chat/cli/internal/chat"
	"github.com/textbook-chat/cli/internal/logx"
)

var chatBook string

var (
	promptStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	replyStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))
	errStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	hintStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Ask questions about a stored book",
	Long: `Start an interactive conversation about a stored book.

Commands inside the chat:
  /book <name>   switch to another book (starts a new conversation)
  /books         list stored books
  /quit          leave`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		return runChat(ctx, a, chatBook, os.Stdin, os.Stdout)
	},
}

func init() {
	chatCmd.Flags().StringVarP(&chatBook, "book", "b", "", "Book to start with")
}

// runChat reads questions line by line until EOF or /quit
func runChat(ctx context.Context, a *app.App, book string, in io.Reader, out io.Writer) error {
	if book != "" {
		selectBook(ctx, a.Session, book, out)
	} else {
		fmt.Fprintln(out, hintStyle.Render("Pick a book with /book <name>, or /books to list them."))
	}

	done := make(chan struct{})
	defer close(done)
	lines := readLines(in, done)
	for {
		fmt.Fprint(out, promptStyle.Render("> "))

		var line string
		select {
		case <-ctx.Done():
			fmt.Fprintln(out)
			return nil
		case l, ok := <-lines:
			if !ok {
				fmt.Fprintln(out)
				return nil
			}
			line = strings.TrimSpace(l)
		}

		switch {
		case line == "":
			continue
		case line == "/quit" || line == "/exit":
			return nil
		case line == "/books":
			names, err := a.Store.List(ctx)
			if err != nil {
				fmt.Fprintln(out, errStyle.Render("Error: "+err.Error()))
				continue
			}
			for _, name := range names {
				fmt.Fprintln(out, "  "+name)
			}
			continue
		case strings.HasPrefix(line, "/book "):
			selectBook(ctx, a.Session, strings.TrimPrefix(line, "/book "), out)
			continue
		}

		if err := a.Session.Sync(ctx); err != nil {
			fmt.Fprintln(out, errStyle.Render("Error: "+err.Error()))
			continue
		}
		reply, err := a.Session.Ask(ctx, line)
		switch {
		case errors.Is(err, chat.ErrNoActiveBook):
			fmt.Fprintln(out, errStyle.Render("No book selected. Use /book <name> first."))
		case err != nil:
			fmt.Fprintln(out, errStyle.Render("Error: "+err.Error()))
		case reply.Failed:
			fmt.Fprintln(out, errStyle.Render(reply.Content))
		default:
			fmt.Fprintln(out, replyStyle.Render(reply.Content))
		}
	}
}

func selectBook(ctx context.Context, session *chat.Session, name string, out io.Writer) {
	tokens, err := session.Select(ctx, name)
	if err != nil {
		fmt.Fprintln(out, errStyle.Render("Error: "+err.Error()))
		return
	}
	fmt.Fprintln(out, hintStyle.Render(fmt.Sprintf("Chatting with %q (~%d tokens). /quit to leave.", session.ActiveBook(), tokens)))
}

// readLines streams in line by line so the loop can also watch for
// cancellation. The channel is closed at EOF or once done is closed.
func readLines(in io.Reader, done <-chan struct{}) <-chan string {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		scanner.Buffer(make([]byte, 64*1024), 1024*1024)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-done:
				return
			}
		}
		if err := scanner.Err(); err != nil {
			logx.Warn().Err(err).Msg("failed to read input")
		}
	}()
	return lines
}
