package chat

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/textbook-chat/cli/internal/books"
	"github.com/textbook-chat/cli/internal/budget"
	"github.com/textbook-chat/cli/internal/llm"
	"github.com/textbook-chat/cli/internal/logx"
	"github.com/textbook-chat/cli/internal/remote"
)

type wordCounter struct{}

func (wordCounter) Count(text string) int { return len(strings.Fields(text)) }

type fakeChatter struct {
	calls   int
	history [][]llm.Message
	opts    []llm.Options
	reply   func(call int) (string, error)
}

func (f *fakeChatter) Chat(_ context.Context, history []llm.Message, options ...llm.Option) (string, error) {
	f.calls++
	f.history = append(f.history, history)
	f.opts = append(f.opts, llm.Apply(llm.Options{}, options...))
	return f.reply(f.calls)
}

func answer(text string) func(int) (string, error) {
	return func(int) (string, error) { return text, nil }
}

func newTestSession(t *testing.T, ceiling int, chatter llm.Chatter) (*Session, books.Store) {
	t.Helper()
	logx.Discard()
	store, err := books.NewDirStore(t.TempDir())
	require.NoError(t, err)
	opts := DefaultOptions()
	opts.Policy = remote.Policy{MaxAttempts: 3}
	return NewSession(store, budget.NewGate(wordCounter{}, ceiling), chatter, opts), store
}

func TestSession_HelloWorldScenario(t *testing.T) {
	chatter := &fakeChatter{reply: answer("The book says hello world.")}
	s, store := newTestSession(t, budget.DefaultCeiling, chatter)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "demo", "Hello world.\n"))
	assert.ErrorIs(t, store.Save(ctx, "demo", "other"), books.ErrNameCollision)

	tokens, err := s.Select(ctx, "demo")
	require.NoError(t, err)
	assert.Equal(t, 2, tokens)
	assert.Equal(t, BookActive, s.State())

	transcript := s.Transcript()
	require.Len(t, transcript, 1)
	assert.Equal(t, llm.RoleSystem, transcript[0].Role)
	assert.Equal(t, "You are a helpful assistant that answers questions based on the following book:\n\nHello world.\n", transcript[0].Content)

	reply, err := s.Ask(ctx, "What does the book say?")
	require.NoError(t, err)
	assert.False(t, reply.Failed)
	assert.Equal(t, "The book says hello world.", reply.Content)

	transcript = s.Transcript()
	require.Len(t, transcript, 3)
	assert.Equal(t, llm.Message{Role: llm.RoleUser, Content: "What does the book say?"}, transcript[1])
	assert.Equal(t, llm.Message{Role: llm.RoleAssistant, Content: "The book says hello world."}, transcript[2])

	require.Len(t, chatter.history, 1)
	assert.Len(t, chatter.history[0], 2, "model sees primer and question")
	require.NotNil(t, chatter.opts[0].Temperature)
	assert.Equal(t, 0.2, *chatter.opts[0].Temperature)
	assert.Equal(t, BookActive, s.State())
}

func TestSession_SwitchingBooksResetsTranscript(t *testing.T) {
	s, store := newTestSession(t, 100, &fakeChatter{reply: answer("ok")})
	ctx := context.Background()
	require.NoError(t, store.Save(ctx, "A", "alpha text"))
	require.NoError(t, store.Save(ctx, "B", "beta text"))

	_, err := s.Select(ctx, "A")
	require.NoError(t, err)
	_, err = s.Ask(ctx, "q1")
	require.NoError(t, err)
	_, err = s.Ask(ctx, "q2")
	require.NoError(t, err)
	require.Len(t, s.Transcript(), 5)

	_, err = s.Select(ctx, "B")
	require.NoError(t, err)

	transcript := s.Transcript()
	require.Len(t, transcript, 1)
	assert.Equal(t, BuildPrimer("beta text"), transcript[0].Content)
	assert.Equal(t, "B", s.ActiveBook())
}

func TestSession_ReselectKeepsTranscript(t *testing.T) {
	s, store := newTestSession(t, 100, &fakeChatter{reply: answer("ok")})
	ctx := context.Background()
	require.NoError(t, store.Save(ctx, "A", "alpha"))

	_, err := s.Select(ctx, "A")
	require.NoError(t, err)
	_, err = s.Ask(ctx, "q")
	require.NoError(t, err)

	_, err = s.Select(ctx, " A ")
	require.NoError(t, err)
	assert.Len(t, s.Transcript(), 3)
}

func TestSession_BudgetBlocksSelection(t *testing.T) {
	s, store := newTestSession(t, 3, &fakeChatter{reply: answer("ok")})
	ctx := context.Background()
	require.NoError(t, store.Save(ctx, "small", "one two"))
	require.NoError(t, store.Save(ctx, "big", "one two three four"))

	_, err := s.Select(ctx, "big")
	assert.ErrorIs(t, err, budget.ErrBudgetExceeded)
	assert.Equal(t, NoActiveBook, s.State())
	assert.Empty(t, s.Transcript())

	_, err = s.Select(ctx, "small")
	require.NoError(t, err)
	_, err = s.Ask(ctx, "q")
	require.NoError(t, err)

	tokens, err := s.Select(ctx, "big")
	var exceeded *budget.ExceededError
	require.ErrorAs(t, err, &exceeded)
	assert.Equal(t, 4, tokens)
	assert.Equal(t, "small", s.ActiveBook(), "failed selection keeps prior book")
	assert.Len(t, s.Transcript(), 3)
}

func TestSession_SelectMissingBook(t *testing.T) {
	s, _ := newTestSession(t, 100, &fakeChatter{})
	_, err := s.Select(context.Background(), "ghost")
	assert.ErrorIs(t, err, books.ErrNotFound)
	assert.Equal(t, NoActiveBook, s.State())

	_, err = s.Select(context.Background(), "  ")
	assert.ErrorIs(t, err, books.ErrInvalidName)
}

func TestSession_AskGuards(t *testing.T) {
	chatter := &fakeChatter{reply: answer("ok")}
	s, store := newTestSession(t, 100, chatter)
	ctx := context.Background()

	_, err := s.Ask(ctx, "anything?")
	assert.ErrorIs(t, err, ErrNoActiveBook)

	require.NoError(t, store.Save(ctx, "A", "alpha"))
	_, err = s.Select(ctx, "A")
	require.NoError(t, err)

	_, err = s.Ask(ctx, "  \n ")
	assert.ErrorIs(t, err, ErrEmptyQuestion)
	assert.Len(t, s.Transcript(), 1)
	assert.Zero(t, chatter.calls)
}

func TestSession_RemoteFailureBecomesAnswer(t *testing.T) {
	chatter := &fakeChatter{reply: func(int) (string, error) {
		return "", &remote.StatusError{Service: "openai", Code: http.StatusServiceUnavailable, Body: "loading"}
	}}
	s, store := newTestSession(t, 100, chatter)
	ctx := context.Background()
	require.NoError(t, store.Save(ctx, "A", "alpha"))
	_, err := s.Select(ctx, "A")
	require.NoError(t, err)

	reply, err := s.Ask(ctx, "q")
	require.NoError(t, err)
	assert.True(t, reply.Failed)
	assert.Equal(t, 3, reply.Attempts)
	assert.Equal(t, 3, chatter.calls)
	assert.Contains(t, reply.Content, "503")

	transcript := s.Transcript()
	require.Len(t, transcript, 3)
	assert.Equal(t, llm.RoleAssistant, transcript[2].Role)
	assert.Equal(t, reply.Content, transcript[2].Content)
	assert.Equal(t, BookActive, s.State())
}

func TestSession_TerminalFailureNotRetried(t *testing.T) {
	chatter := &fakeChatter{reply: func(int) (string, error) {
		return "", &remote.StatusError{Service: "openai", Code: http.StatusUnauthorized}
	}}
	s, store := newTestSession(t, 100, chatter)
	ctx := context.Background()
	require.NoError(t, store.Save(ctx, "A", "alpha"))
	_, err := s.Select(ctx, "A")
	require.NoError(t, err)

	reply, err := s.Ask(ctx, "q")
	require.NoError(t, err)
	assert.True(t, reply.Failed)
	assert.Equal(t, 1, chatter.calls)
}

func TestSession_Sync(t *testing.T) {
	s, store := newTestSession(t, 100, &fakeChatter{})
	ctx := context.Background()
	dir := store.(*books.DirStore)
	require.NoError(t, dir.Save(ctx, "A", "alpha"))
	_, err := s.Select(ctx, "A")
	require.NoError(t, err)

	require.NoError(t, s.Sync(ctx))
	assert.Equal(t, BookActive, s.State())

	s.store = missingStore{}
	require.NoError(t, s.Sync(ctx))
	assert.Equal(t, NoActiveBook, s.State())
	assert.Empty(t, s.ActiveBook())
	assert.Empty(t, s.Transcript())
}

func TestSession_SyncPropagatesStoreErrors(t *testing.T) {
	s, store := newTestSession(t, 100, &fakeChatter{})
	ctx := context.Background()
	require.NoError(t, store.Save(ctx, "A", "alpha"))
	_, err := s.Select(ctx, "A")
	require.NoError(t, err)

	s.store = brokenStore{}
	assert.Error(t, s.Sync(ctx))
	assert.Equal(t, BookActive, s.State())
}

func TestSession_TranscriptIsCopy(t *testing.T) {
	s, store := newTestSession(t, 100, &fakeChatter{})
	ctx := context.Background()
	require.NoError(t, store.Save(ctx, "A", "alpha"))
	_, err := s.Select(ctx, "A")
	require.NoError(t, err)

	tr := s.Transcript()
	tr[0].Content = "tampered"
	assert.NotEqual(t, "tampered", s.Transcript()[0].Content)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "no_active_book", NoActiveBook.String())
	assert.Equal(t, "book_active", BookActive.String())
	assert.Equal(t, "awaiting_reply", AwaitingReply.String())
}

type missingStore struct{ books.Store }

func (missingStore) Load(context.Context, string) (string, error) { return "", books.ErrNotFound }

type brokenStore struct{ books.Store }

func (brokenStore) Load(context.Context, string) (string, error) {
	return "", errors.New("disk on fire")
}
