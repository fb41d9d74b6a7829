package tui

import (
	"github.com/Veraticus/ecolens/internal/service"
	"github.com/Veraticus/ecolens/internal/tui/themes"
)

// Config holds TUI configuration.
type Config struct {
	Theme       themes.Theme
	History     service.HistoryReader
	Width       int
	Height      int
	HistorySize int
	ShowDebug   bool
	ShowHistory bool
}

// Option is a functional option for configuring the TUI.
type Option func(*Config)

func defaultConfig() Config {
	return Config{
		Theme:       themes.Default,
		Width:       80,
		Height:      24,
		HistorySize: 10,
		ShowDebug:   true,
	}
}

// WithHistory sets the store the history panel and XP header read from.
func WithHistory(h service.HistoryReader) Option {
	return func(c *Config) {
		c.History = h
	}
}

// WithTheme sets the visual theme.
func WithTheme(theme themes.Theme) Option {
	return func(c *Config) {
		c.Theme = theme
	}
}

// WithSize sets the initial terminal size.
func WithSize(width, height int) Option {
	return func(c *Config) {
		c.Width = width
		c.Height = height
	}
}

// WithHistoryPanel shows the history panel on start.
func WithHistoryPanel(show bool) Option {
	return func(c *Config) {
		c.ShowHistory = show
	}
}
