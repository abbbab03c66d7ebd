package gemini

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"github.com/textbook-chat/cli/internal/llm"
	"github.com/textbook-chat/cli/internal/remote"
)

func TestToContents(t *testing.T) {
	system, contents := toContents([]llm.Message{
		{Role: llm.RoleSystem, Content: "primer"},
		{Role: llm.RoleUser, Content: "q1"},
		{Role: llm.RoleAssistant, Content: "a1"},
		{Role: llm.RoleUser, Content: "q2"},
	})

	require.NotNil(t, system)
	assert.Equal(t, "primer", system.Parts[0].Text)
	require.Len(t, contents, 3)
	assert.Equal(t, genai.RoleUser, contents[0].Role)
	assert.Equal(t, genai.RoleModel, contents[1].Role)
	assert.Equal(t, "q2", contents[2].Parts[0].Text)
}

func TestToContents_NoSystem(t *testing.T) {
	system, contents := toContents([]llm.Message{{Role: llm.RoleUser, Content: "hi"}})
	assert.Nil(t, system)
	assert.Len(t, contents, 1)
}

func TestGenerateConfig(t *testing.T) {
	cfg := generateConfig(llm.Apply(llm.Options{}, llm.WithTemperature(0.2), llm.WithMaxTokens(1000)))
	require.NotNil(t, cfg.Temperature)
	assert.InDelta(t, 0.2, *cfg.Temperature, 1e-6)
	assert.EqualValues(t, 1000, cfg.MaxOutputTokens)

	empty := generateConfig(llm.Options{})
	assert.Nil(t, empty.Temperature)
	assert.Zero(t, empty.MaxOutputTokens)
}

func TestClassify(t *testing.T) {
	err := classify(genai.APIError{Code: http.StatusServiceUnavailable, Message: "overloaded"})
	var sc remote.StatusCoder
	require.ErrorAs(t, err, &sc)
	assert.Equal(t, http.StatusServiceUnavailable, sc.StatusCode())

	plain := classify(errors.New("dial tcp: refused"))
	assert.False(t, errors.As(plain, &sc))
	assert.ErrorContains(t, plain, "refused")
}
