package tui

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// SettingsView shows the effective configuration
type SettingsView struct {
	app *App
}

// NewSettingsView creates a new settings view
func NewSettingsView(app *App) *SettingsView {
	return &SettingsView{app: app}
}

// Update handles updates
func (sv *SettingsView) Update(msg tea.Msg) tea.Cmd {
	if key, ok := msg.(tea.KeyMsg); ok && key.String() == "s" {
		return sv.app.run("Saving settings", saveConfig(sv.app.app.Config, sv.app.configPath))
	}
	return nil
}

// View renders the settings view
func (sv *SettingsView) View() string {
	cfg := sv.app.app.Config
	section := lipgloss.NewStyle().Bold(true)

	lines := []string{
		section.Render("Provider"),
		fmt.Sprintf("  name: %s  model: %s  temperature: %.2f", cfg.Provider.Name, cfg.ChatModel(), cfg.Provider.Temperature),
		section.Render("Storage"),
		fmt.Sprintf("  backend: %s", cfg.Storage.Backend),
	}
	switch cfg.Storage.Backend {
	case "dir":
		lines = append(lines, fmt.Sprintf("  dir: %s", cfg.Storage.Dir))
	case "redis":
		lines = append(lines, fmt.Sprintf("  redis: %s", cfg.Storage.RedisAddr))
	}
	lines = append(lines,
		section.Render("Budget"),
		fmt.Sprintf("  ceiling: %d tokens (%s tokenizer)", cfg.Budget.Ceiling, cfg.Budget.Model),
		section.Render("OCR"),
		fmt.Sprintf("  %.0f dpi, max %dx%d, %d tokens per page", cfg.OCR.DPI, cfg.OCR.MaxWidth, cfg.OCR.MaxHeight, cfg.OCR.MaxTokens),
		section.Render("Retry"),
		fmt.Sprintf("  %d attempts, %s warmup delay, %s transport delay", cfg.Retry.MaxAttempts, cfg.Retry.WarmupDelay, cfg.Retry.TransportDelay),
		"",
		helpStyle.Render("s: Save to config file (API keys are not written)"),
	)

	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}
