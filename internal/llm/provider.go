package llm

import (
	"context"
)

// Roles used in a transcript
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one transcript entry in a provider-agnostic format
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Option allows for optional parameters like Temperature, MaxTokens, etc.
type Option func(*Options)

type Options struct {
	Temperature *float64
	MaxTokens   int
	Model       string // Override default model
}

func WithTemperature(temp float64) Option {
	return func(o *Options) {
		o.Temperature = &temp
	}
}

func WithMaxTokens(n int) Option {
	return func(o *Options) {
		o.MaxTokens = n
	}
}

func WithModel(model string) Option {
	return func(o *Options) {
		o.Model = model
	}
}

// Apply folds options over base.
func Apply(base Options, options ...Option) Options {
	for _, o := range options {
		o(&base)
	}
	return base
}

// Chatter sends an ordered transcript and returns one reply.
type Chatter interface {
	Chat(ctx context.Context, history []Message, options ...Option) (string, error)
}

// ImageReader asks a vision model about one PNG image.
type ImageReader interface {
	ReadImage(ctx context.Context, png []byte, prompt string, options ...Option) (string, error)
}

// Provider is a remote backend able to both chat and read images.
type Provider interface {
	Chatter
	ImageReader
	Name() string
}
