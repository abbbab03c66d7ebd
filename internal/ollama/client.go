package ollama

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/textbook-chat/cli/internal/llm"
	"github.com/textbook-chat/cli/internal/remote"
)

// Client wraps Ollama API interactions
type Client struct {
	baseURL    string
	model      string
	httpClient *http.Client
}

// NewClient creates a new Ollama client
func NewClient(baseURL, model string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	if timeout <= 0 {
		timeout = 5 * time.Minute // local models can be slow to load
	}
	return &Client{
		baseURL: baseURL,
		model:   model,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// ChatMessage is a message in Ollama's chat format
type ChatMessage struct {
	Role    string   `json:"role"`
	Content string   `json:"content"`
	Images  []string `json:"images,omitempty"`
}

// ChatRequest represents a chat request
type ChatRequest struct {
	Model    string                 `json:"model"`
	Messages []ChatMessage          `json:"messages"`
	Stream   bool                   `json:"stream"`
	Options  map[string]interface{} `json:"options,omitempty"`
}

// ChatResponse represents a chat response chunk
type ChatResponse struct {
	Model           string      `json:"model"`
	CreatedAt       string      `json:"created_at"`
	Message         ChatMessage `json:"message"`
	Done            bool        `json:"done"`
	TotalDuration   int64       `json:"total_duration,omitempty"`
	PromptEvalCount int         `json:"prompt_eval_count,omitempty"`
	EvalCount       int         `json:"eval_count,omitempty"`
}

func (c *Client) Name() string {
	return "ollama"
}

// Model returns the default model
func (c *Client) Model() string {
	return c.model
}

// SetModel replaces the default model
func (c *Client) SetModel(model string) {
	c.model = model
}

// Chat sends the full transcript to /api/chat
func (c *Client) Chat(ctx context.Context, history []llm.Message, options ...llm.Option) (string, error) {
	opts := llm.Apply(llm.Options{Model: c.model}, options...)

	msgs := make([]ChatMessage, 0, len(history))
	for _, m := range history {
		msgs = append(msgs, ChatMessage{Role: m.Role, Content: m.Content})
	}
	return c.send(ctx, &ChatRequest{
		Model:    opts.Model,
		Messages: msgs,
		Options:  modelOptions(opts),
	})
}

// ReadImage asks a vision model (e.g. llava) about one PNG image
func (c *Client) ReadImage(ctx context.Context, png []byte, prompt string, options ...llm.Option) (string, error) {
	opts := llm.Apply(llm.Options{Model: c.model}, options...)

	return c.send(ctx, &ChatRequest{
		Model: opts.Model,
		Messages: []ChatMessage{{
			Role:    llm.RoleUser,
			Content: prompt,
			Images:  []string{base64.StdEncoding.EncodeToString(png)},
		}},
		Options: modelOptions(opts),
	})
}

func (c *Client) send(ctx context.Context, req *ChatRequest) (string, error) {
	url := fmt.Sprintf("%s/api/chat", c.baseURL)

	jsonData, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", &remote.StatusError{Service: "ollama", Code: resp.StatusCode, Body: string(body)}
	}

	// Ollama may stream newline-delimited chunks even with stream=false on
	// older versions, so read until done.
	var result strings.Builder
	decoder := json.NewDecoder(resp.Body)
	for {
		var chatResp ChatResponse
		if err := decoder.Decode(&chatResp); err != nil {
			if err == io.EOF {
				break
			}
			return "", fmt.Errorf("failed to decode response: %w", err)
		}

		result.WriteString(chatResp.Message.Content)

		if chatResp.Done {
			break
		}
	}

	return result.String(), nil
}

func modelOptions(opts llm.Options) map[string]interface{} {
	out := map[string]interface{}{}
	if opts.Temperature != nil {
		out["temperature"] = *opts.Temperature
	}
	if opts.MaxTokens > 0 {
		out["num_predict"] = opts.MaxTokens
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
