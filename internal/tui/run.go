package tui

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/Veraticus/ecolens/internal/session"
)

// Run drives s from the terminal until the user quits or ctx is canceled.
// Closing the session is left to the caller.
func Run(ctx context.Context, s Session, opts ...Option) error {
	if s == nil {
		return fmt.Errorf("session is required")
	}

	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	events := make(chan session.Event, eventBuffer)
	s.Subscribe(forward(events))

	p := tea.NewProgram(newModel(ctx, s, events, cfg),
		tea.WithAltScreen(),
		tea.WithContext(ctx),
	)
	if _, err := p.Run(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}
