package ollama

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
)

// ModelInfo represents information about an Ollama model
type ModelInfo struct {
	Name       string `json:"name"`
	Size       int64  `json:"size"`
	ModifiedAt string `json:"modified_at"`
}

// ListModelsResponse represents the response from listing models
type ListModelsResponse struct {
	Models []ModelInfo `json:"models"`
}

// Chat models in preference order for long-context question answering
var chatPriority = []string{
	"llama3.2",
	"llama3.1",
	"qwen2.5",
	"mistral",
	"llama3",
}

// Vision models able to read a page image
var visionPriority = []string{
	"llama3.2-vision",
	"llava",
	"minicpm-v",
	"bakllava",
}

// ModelSelector handles model selection logic
type ModelSelector struct {
	client *Client
}

// NewModelSelector creates a new model selector
func NewModelSelector(client *Client) *ModelSelector {
	return &ModelSelector{client: client}
}

// ListModels lists all available Ollama models
func (ms *ModelSelector) ListModels(ctx context.Context) ([]ModelInfo, error) {
	url := fmt.Sprintf("%s/api/tags", ms.client.baseURL)

	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := ms.client.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("ollama API error: %d - %s", resp.StatusCode, string(body))
	}

	var result ListModelsResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return result.Models, nil
}

// SelectChatModel picks the best installed model for answering questions
func (ms *ModelSelector) SelectChatModel(ctx context.Context) (string, error) {
	return ms.selectFrom(ctx, chatPriority, true)
}

// SelectVisionModel picks an installed vision model. Unlike chat there is
// no size fallback: a text-only model cannot read a page.
func (ms *ModelSelector) SelectVisionModel(ctx context.Context) (string, error) {
	return ms.selectFrom(ctx, visionPriority, false)
}

func (ms *ModelSelector) selectFrom(ctx context.Context, priority []string, fallbackLargest bool) (string, error) {
	models, err := ms.ListModels(ctx)
	if err != nil {
		return "", err
	}

	if len(models) == 0 {
		return "", fmt.Errorf("no models available")
	}

	for _, want := range priority {
		for _, model := range models {
			if strings.Contains(strings.ToLower(model.Name), want) {
				return model.Name, nil
			}
		}
	}

	if !fallbackLargest {
		return "", fmt.Errorf("no suitable model installed (tried %s)", strings.Join(priority, ", "))
	}

	// Largest model is usually the most capable
	sort.Slice(models, func(i, j int) bool {
		return models[i].Size > models[j].Size
	})

	return models[0].Name, nil
}

// GetDefaultModel returns defaultModel if installed, or selects the best chat model
func (ms *ModelSelector) GetDefaultModel(ctx context.Context, defaultModel string) (string, error) {
	if defaultModel != "" {
		models, err := ms.ListModels(ctx)
		if err != nil {
			return "", err
		}

		for _, model := range models {
			if model.Name == defaultModel {
				return defaultModel, nil
			}
		}
	}

	return ms.SelectChatModel(ctx)
}
