package factory

import (
	"context"
	"fmt"

	"github.com/textbook-chat/cli/config"
	"github.com/textbook-chat/cli/internal/llm"
	"github.com/textbook-chat/cli/internal/llm/gemini"
	"github.com/textbook-chat/cli/internal/llm/openai"
	"github.com/textbook-chat/cli/internal/logx"
	"github.com/textbook-chat/cli/internal/ollama"
)

// Selection is the configured provider plus the model used for page OCR.
// An empty VisionModel means the provider's default model.
type Selection struct {
	Provider    llm.Provider
	VisionModel string
}

// New builds the provider named in cfg.Provider.Name
func New(ctx context.Context, cfg *config.Config) (*Selection, error) {
	pc := cfg.Provider
	model := cfg.ChatModel()

	switch pc.Name {
	case "openai":
		return &Selection{
			Provider:    openai.NewProvider(pc.OpenAIKey, pc.BaseURL, model, pc.Timeout),
			VisionModel: pc.VisionModel,
		}, nil

	case "gemini":
		p, err := gemini.NewProvider(ctx, pc.GeminiKey, model)
		if err != nil {
			return nil, err
		}
		return &Selection{Provider: p, VisionModel: pc.VisionModel}, nil

	case "ollama":
		return newOllama(ctx, cfg)

	default:
		return nil, fmt.Errorf("unknown provider %q", pc.Name)
	}
}

func newOllama(ctx context.Context, cfg *config.Config) (*Selection, error) {
	pc := cfg.Provider
	client := ollama.NewClient(pc.BaseURL, cfg.ChatModel(), pc.Timeout)
	selector := ollama.NewModelSelector(client)

	model, err := selector.GetDefaultModel(ctx, cfg.ChatModel())
	if err != nil {
		return nil, fmt.Errorf("failed to select ollama model: %w", err)
	}
	client.SetModel(model)

	vision := pc.VisionModel
	if vision == "" {
		vision, err = selector.SelectVisionModel(ctx)
		if err != nil {
			// Text-layer PDFs still work without one
			logx.Warn().Err(err).Msg("no ollama vision model; scanned PDFs cannot be read")
			vision = model
		}
	}

	logx.Info().Str("model", model).Str("vision_model", vision).Msg("ollama models selected")
	return &Selection{Provider: client, VisionModel: vision}, nil
}
