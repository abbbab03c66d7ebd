// Package chat holds the conversation with one book at a time.
package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/textbook-chat/cli/internal/books"
	"github.com/textbook-chat/cli/internal/budget"
	"github.com/textbook-chat/cli/internal/llm"
	"github.com/textbook-chat/cli/internal/logx"
	"github.com/textbook-chat/cli/internal/remote"
)

var (
	ErrEmptyQuestion = errors.New("question is empty")
	ErrNoActiveBook  = errors.New("no book selected")
)

// State is where the session is in its lifecycle
type State int

const (
	NoActiveBook State = iota
	BookActive
	AwaitingReply
)

func (s State) String() string {
	switch s {
	case NoActiveBook:
		return "no_active_book"
	case BookActive:
		return "book_active"
	case AwaitingReply:
		return "awaiting_reply"
	default:
		return "unknown"
	}
}

// Reply is the assistant turn produced by Ask. When the model could not be
// reached, Content explains why and Failed is set; the turn is still
// recorded in the transcript.
type Reply struct {
	Content  string
	Failed   bool
	Attempts int
}

// Options tunes the completion calls
type Options struct {
	Temperature float64
	Policy      remote.Policy
}

func DefaultOptions() Options {
	return Options{
		Temperature: 0.2,
		Policy:      remote.DefaultPolicy(),
	}
}

// Session is a single user's conversation. It is not safe for concurrent
// use; callers serialize actions.
type Session struct {
	id      uuid.UUID
	store   books.Store
	gate    *budget.Gate
	chatter llm.Chatter
	opts    Options

	state      State
	book       string
	tokens     int
	transcript []llm.Message
}

func NewSession(store books.Store, gate *budget.Gate, chatter llm.Chatter, opts Options) *Session {
	return &Session{
		id:      uuid.New(),
		store:   store,
		gate:    gate,
		chatter: chatter,
		opts:    opts,
	}
}

// Select makes name the active book and returns its token count. A book
// over budget, or one that cannot be loaded, leaves the session as it was.
// Selecting the book that is already active keeps the conversation.
func (s *Session) Select(ctx context.Context, name string) (int, error) {
	name, err := books.CleanName(name)
	if err != nil {
		return 0, err
	}

	content, err := s.store.Load(ctx, name)
	if err != nil {
		return 0, err
	}

	tokens, err := s.gate.Check(content)
	if err != nil {
		logx.Info().Str("book", name).Int("tokens", tokens).Msg("book rejected by token budget")
		return tokens, err
	}

	if s.state != NoActiveBook && s.book == name {
		s.tokens = tokens
		return tokens, nil
	}

	s.book = name
	s.tokens = tokens
	s.transcript = []llm.Message{{Role: llm.RoleSystem, Content: BuildPrimer(content)}}
	s.state = BookActive

	logx.Info().Str("session", s.id.String()).Str("book", name).Int("tokens", tokens).Msg("book selected")
	return tokens, nil
}

// Ask appends question to the transcript, sends the whole transcript to the
// model and appends the answer.
func (s *Session) Ask(ctx context.Context, question string) (*Reply, error) {
	if strings.TrimSpace(question) == "" {
		return nil, ErrEmptyQuestion
	}
	if s.state == NoActiveBook {
		return nil, ErrNoActiveBook
	}

	s.transcript = append(s.transcript, llm.Message{Role: llm.RoleUser, Content: question})
	s.state = AwaitingReply
	defer func() { s.state = BookActive }()

	history := s.Transcript()
	res := remote.Do(ctx, s.opts.Policy, func(ctx context.Context) (string, error) {
		return s.chatter.Chat(ctx, history, llm.WithTemperature(s.opts.Temperature))
	})

	reply := &Reply{Content: res.Value, Attempts: res.Attempts}
	if !res.OK() {
		logx.Error().Err(res.Err).Str("outcome", res.Outcome.String()).Int("attempts", res.Attempts).Msg("completion failed")
		reply.Content = fmt.Sprintf("Error: could not get an answer from the model: %v", res.Err)
		reply.Failed = true
	}

	s.transcript = append(s.transcript, llm.Message{Role: llm.RoleAssistant, Content: reply.Content})
	return reply, nil
}

// Sync drops the active book if it has disappeared from the store
func (s *Session) Sync(ctx context.Context) error {
	if s.state == NoActiveBook {
		return nil
	}

	_, err := s.store.Load(ctx, s.book)
	if errors.Is(err, books.ErrNotFound) {
		logx.Info().Str("book", s.book).Msg("active book no longer stored, resetting session")
		s.reset()
		return nil
	}
	return err
}

func (s *Session) reset() {
	s.state = NoActiveBook
	s.book = ""
	s.tokens = 0
	s.transcript = nil
}

// Transcript returns a copy of the conversation, primer first
func (s *Session) Transcript() []llm.Message {
	out := make([]llm.Message, len(s.transcript))
	copy(out, s.transcript)
	return out
}

func (s *Session) State() State {
	return s.state
}

// ActiveBook returns the selected book name, or "" when none is active
func (s *Session) ActiveBook() string {
	return s.book
}

// Tokens is the token count of the active book
func (s *Session) Tokens() int {
	return s.tokens
}

// SessionID identifies this conversation in logs and API responses
func (s *Session) SessionID() uuid.UUID {
	return s.id
}
