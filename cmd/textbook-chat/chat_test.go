package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/textbook-chat/cli/internal/app"
	"github.com/textbook-chat/cli/internal/books"
	"github.com/textbook-chat/cli/internal/budget"
	"github.com/textbook-chat/cli/internal/chat"
	"github.com/textbook-chat/cli/internal/llm"
	"github.com/textbook-chat/cli/internal/logx"
	"github.com/textbook-chat/cli/internal/remote"
)

type wordCounter struct{}

func (wordCounter) Count(text string) int { return len(strings.Fields(text)) }

type echoChatter struct{}

func (echoChatter) Chat(_ context.Context, history []llm.Message, _ ...llm.Option) (string, error) {
	return "echo: " + history[len(history)-1].Content, nil
}

func newChatApp(t *testing.T) *app.App {
	t.Helper()
	return newChatAppAt(t, t.TempDir())
}

func newChatAppAt(t *testing.T, dir string) *app.App {
	t.Helper()
	logx.Discard()
	store, err := books.NewDirStore(dir)
	require.NoError(t, err)
	require.NoError(t, store.Save(context.Background(), "demo", "Hello world."))
	require.NoError(t, store.Save(context.Background(), "other", "Another book."))

	gate := budget.NewGate(wordCounter{}, 100)
	opts := chat.DefaultOptions()
	opts.Policy = remote.Policy{MaxAttempts: 1}
	return &app.App{
		Store:   store,
		Gate:    gate,
		Session: chat.NewSession(store, gate, echoChatter{}, opts),
	}
}

func TestRunChat(t *testing.T) {
	a := newChatApp(t)
	in := strings.NewReader("What is it?\n\n/books\n/book other\nAnd this one?\n/quit\nnever read\n")
	var out bytes.Buffer

	require.NoError(t, runChat(context.Background(), a, "demo", in, &out))

	text := out.String()
	assert.Contains(t, text, `Chatting with "demo"`)
	assert.Contains(t, text, "echo: What is it?")
	assert.Contains(t, text, "  other")
	assert.Contains(t, text, `Chatting with "other"`)
	assert.Contains(t, text, "echo: And this one?")
	assert.NotContains(t, text, "never read")

	assert.Equal(t, "other", a.Session.ActiveBook())
	assert.Len(t, a.Session.Transcript(), 3, "switching books starts a new conversation")
}

func TestRunChat_NoBook(t *testing.T) {
	a := newChatApp(t)
	in := strings.NewReader("hello\n/book ghost\n")
	var out bytes.Buffer

	require.NoError(t, runChat(context.Background(), a, "", in, &out))

	text := out.String()
	assert.Contains(t, text, "No book selected")
	assert.Contains(t, text, "Error: book not found")
	assert.Equal(t, chat.NoActiveBook, a.Session.State())
}

func TestRunChat_DeletedBookIsDropped(t *testing.T) {
	dir := t.TempDir()
	a := newChatAppAt(t, dir)
	ctx := context.Background()
	_, err := a.Session.Select(ctx, "demo")
	require.NoError(t, err)
	require.NoError(t, os.Remove(filepath.Join(dir, "demo.txt")))

	var out bytes.Buffer
	require.NoError(t, runChat(ctx, a, "", strings.NewReader("still there?\n"), &out))

	assert.Contains(t, out.String(), "No book selected")
	assert.Equal(t, chat.NoActiveBook, a.Session.State())
}

// endless yields "x\n" forever
type endless struct{}

func (endless) Read(p []byte) (int, error) {
	for i := range p {
		if i%2 == 0 {
			p[i] = 'x'
		} else {
			p[i] = '\n'
		}
	}
	return len(p) - len(p)%2, nil
}

func TestReadLines_StopsWhenDone(t *testing.T) {
	done := make(chan struct{})
	lines := readLines(endless{}, done)
	assert.Equal(t, "x", <-lines)
	close(done)

	timeout := time.After(5 * time.Second)
	for {
		select {
		case _, ok := <-lines:
			if !ok {
				return
			}
		case <-timeout:
			t.Fatal("reader goroutine kept sending after done was closed")
		}
	}
}
