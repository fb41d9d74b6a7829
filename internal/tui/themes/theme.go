// Package themes holds the lipgloss styles shared by the terminal front-end
// and the CLI tables.
package themes

import "github.com/charmbracelet/lipgloss"

// Theme defines the visual style for the TUI.
type Theme struct {
	Title          lipgloss.Style
	Subtitle       lipgloss.Style
	Normal         lipgloss.Style
	Bold           lipgloss.Style
	Muted          lipgloss.Style
	MissionCard    lipgloss.Style
	Viewfinder     lipgloss.Style
	OverlaySuccess lipgloss.Style
	OverlayFail    lipgloss.Style
	OverlayUnknown lipgloss.Style
	Button         lipgloss.Style
	ButtonDisabled lipgloss.Style
	Countdown      lipgloss.Style
	StatusError    lipgloss.Style
	Panel          lipgloss.Style
	TableHeader    lipgloss.Style
	Primary        lipgloss.Color
	Secondary      lipgloss.Color
	Success        lipgloss.Color
	Warning        lipgloss.Color
	Error          lipgloss.Color
	Border         lipgloss.Color
	Subdued        lipgloss.Color
}

// Default is the default theme.
var Default = Theme{
	// Colors
	Primary:   lipgloss.Color("#2563eb"),
	Secondary: lipgloss.Color("#7c3aed"),
	Success:   lipgloss.Color("#22c55e"),
	Warning:   lipgloss.Color("#eab308"),
	Error:     lipgloss.Color("#ef4444"),
	Border:    lipgloss.Color("#404040"),
	Subdued:   lipgloss.Color("#737373"),

	// Text styles
	Title: lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#fafafa")),
	Subtitle: lipgloss.NewStyle().
		Foreground(lipgloss.Color("#a3a3a3")),
	Normal: lipgloss.NewStyle().
		Foreground(lipgloss.Color("#fafafa")),
	Bold: lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#fafafa")),
	Muted: lipgloss.NewStyle().
		Foreground(lipgloss.Color("#737373")),

	// Component styles
	MissionCard: lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("#7c3aed")).
		Padding(0, 2),
	Viewfinder: lipgloss.NewStyle().
		Border(lipgloss.DoubleBorder()).
		BorderForeground(lipgloss.Color("#2563eb")).
		Align(lipgloss.Center, lipgloss.Center),
	Panel: lipgloss.NewStyle().
		Border(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("#404040")).
		Padding(0, 1),
	TableHeader: lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#a3a3a3")),

	// Result overlays
	OverlaySuccess: lipgloss.NewStyle().
		Background(lipgloss.Color("#22c55e")).
		Foreground(lipgloss.Color("#fafafa")).
		Bold(true).
		Padding(0, 2),
	OverlayFail: lipgloss.NewStyle().
		Background(lipgloss.Color("#ef4444")).
		Foreground(lipgloss.Color("#fafafa")).
		Bold(true).
		Padding(0, 2),
	OverlayUnknown: lipgloss.NewStyle().
		Background(lipgloss.Color("#eab308")).
		Foreground(lipgloss.Color("#1a1a1a")).
		Bold(true).
		Padding(0, 2),

	// Scan button
	Button: lipgloss.NewStyle().
		Background(lipgloss.Color("#2563eb")).
		Foreground(lipgloss.Color("#fafafa")).
		Bold(true).
		Padding(0, 3),
	ButtonDisabled: lipgloss.NewStyle().
		Background(lipgloss.Color("#404040")).
		Foreground(lipgloss.Color("#a3a3a3")).
		Padding(0, 3),
	Countdown: lipgloss.NewStyle().
		Foreground(lipgloss.Color("#eab308")).
		Bold(true),
	StatusError: lipgloss.NewStyle().
		Foreground(lipgloss.Color("#ef4444")).
		Bold(true),
}
