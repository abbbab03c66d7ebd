package tui

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/textbook-chat/cli/internal/ollama"
)

// ModelsView handles model selection. Only Ollama can list models; other
// providers show the configured model.
type ModelsView struct {
	app      *App
	selector *ollama.ModelSelector
	client   *ollama.Client
	models   []ollama.ModelInfo
	selected int
	loaded   bool
}

// NewModelsView creates a new models view. selector and client are nil
// unless the provider is Ollama.
func NewModelsView(app *App, selector *ollama.ModelSelector, client *ollama.Client) *ModelsView {
	return &ModelsView{
		app:      app,
		selector: selector,
		client:   client,
		models:   []ollama.ModelInfo{},
	}
}

// Init loads the model list on first visit
func (mv *ModelsView) Init() tea.Cmd {
	if mv.selector == nil || mv.loaded {
		return nil
	}
	return mv.app.run("Loading models", mv.loadModels)
}

// Update handles updates
func (mv *ModelsView) Update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if mv.selector == nil {
			return nil
		}
		switch msg.String() {
		case "j", "down":
			if mv.selected < len(mv.models)-1 {
				mv.selected++
			}
		case "k", "up":
			if mv.selected > 0 {
				mv.selected--
			}
		case "enter", " ":
			if len(mv.models) > 0 {
				return mv.selectModel
			}
		case "r":
			return mv.app.run("Loading models", mv.loadModels)
		}
	case modelsLoadedMsg:
		mv.models = msg.models
		mv.loaded = true
		// Find current model index
		for i, model := range mv.models {
			if model.Name == mv.currentModel() {
				mv.selected = i
				break
			}
		}
	case modelSelectedMsg:
		mv.client.SetModel(msg.model)
		mv.app.app.Config.Provider.Model = msg.model
		mv.app.status = "Chat model set to " + msg.model
	}
	return nil
}

func (mv *ModelsView) currentModel() string {
	if mv.client != nil {
		return mv.client.Model()
	}
	return mv.app.app.Config.ChatModel()
}

// View renders the models view
func (mv *ModelsView) View() string {
	var lines []string

	cfg := mv.app.app.Config.Provider
	lines = append(lines, activeStyle.Render(fmt.Sprintf("Provider: %s", cfg.Name)))

	if mv.selector == nil {
		lines = append(lines, fmt.Sprintf("Model: %s", mv.currentModel()))
		if cfg.VisionModel != "" {
			lines = append(lines, fmt.Sprintf("OCR model: %s", cfg.VisionModel))
		}
		lines = append(lines, "")
		lines = append(lines, helpStyle.Render("Change provider.model in the config file to switch models."))
		return lipgloss.JoinVertical(lipgloss.Left, lines...)
	}

	lines = append(lines, "")
	if len(mv.models) == 0 {
		lines = append(lines, "No models found. Make sure Ollama is running.")
	} else {
		for i, model := range mv.models {
			style := lipgloss.NewStyle()
			if i == mv.selected {
				style = style.Bold(true).Foreground(lipgloss.Color("205"))
			}
			if model.Name == mv.currentModel() {
				style = style.Foreground(lipgloss.Color("39"))
			}

			sizeMB := float64(model.Size) / (1024 * 1024)
			lines = append(lines, style.Render(fmt.Sprintf("%s %.2f MB", model.Name, sizeMB)))
		}
	}

	lines = append(lines, "")
	lines = append(lines, helpStyle.Render("j/k: Navigate | Enter/Space: Select | r: Reload"))

	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

// loadModels loads available models
func (mv *ModelsView) loadModels() tea.Msg {
	models, err := mv.selector.ListModels(mv.app.ctx)
	if err != nil {
		return errorMsg{error: err}
	}
	return modelsLoadedMsg{models: models}
}

// selectModel selects the current model
func (mv *ModelsView) selectModel() tea.Msg {
	if mv.selected < 0 || mv.selected >= len(mv.models) {
		return nil
	}
	return modelSelectedMsg{model: mv.models[mv.selected].Name}
}

// modelsLoadedMsg signals models have been loaded
type modelsLoadedMsg struct {
	models []ollama.ModelInfo
}

// modelSelectedMsg signals a model has been selected
type modelSelectedMsg struct {
	model string
}
