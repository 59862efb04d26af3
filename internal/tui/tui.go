package tui

import (
	"todo-cli/internal/store"

	tea "github.com/charmbracelet/bubbletea"
)

func Run(st store.Store, dir string) error {
	configuredTheme := ""
	if cfg, err := store.LoadConfig(); err == nil && cfg.TUI != nil {
		configuredTheme = cfg.TUI.Theme
	}

	applyColorProfilePreference()
	applyThemePreference(configuredTheme)

	m := newAppModel(st, dir)
	_, err := tea.NewProgram(m, tea.WithAltScreen()).Run()
	return err
}
