package tui

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/Veraticus/ecolens/internal/common"
	"github.com/Veraticus/ecolens/internal/model"
	"github.com/Veraticus/ecolens/internal/presentation"
	"github.com/Veraticus/ecolens/internal/session"
)

const scanFailedMessage = "Something went wrong during scanning."

// View renders the model.
func (m Model) View() string {
	if m.quitting {
		return ""
	}

	sections := []string{m.renderHeader()}

	if m.view.Fatal != "" {
		sections = append(sections, m.theme.StatusError.Render(m.view.Fatal))
		sections = append(sections, m.help.View(m.keymap))
		return lipgloss.JoinVertical(lipgloss.Left, sections...)
	}

	if m.view.MissionText != "" {
		sections = append(sections, m.renderMission())
	}
	sections = append(sections,
		m.renderViewfinder(),
		m.renderButton(),
	)

	if m.view.LastDetected != "" {
		sections = append(sections, m.theme.Muted.Render(m.view.LastDetected))
	}
	if m.showDebug && len(m.view.Debug) > 0 {
		sections = append(sections, m.renderDebug())
	}
	if m.lastErr != nil {
		sections = append(sections, m.theme.StatusError.Render(errorText(m.lastErr)))
	}
	if m.showHistory {
		sections = append(sections, m.renderHistory())
	}

	sections = append(sections, m.help.View(m.keymap))
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m Model) renderHeader() string {
	title := m.theme.Title.Render("EcoLens")
	if m.snap.Mode == session.ModeSorting {
		title = m.theme.Title.Render("EcoLens Sorter")
	}

	if m.profile == nil {
		return title
	}

	level := model.LevelFor(m.profile.XP)
	stats := m.theme.Subtitle.Render(fmt.Sprintf("  Level %d %s · %d XP", level.Number, level.Name, m.profile.XP))
	bar := m.progress.ViewAs(model.Progress(m.profile.XP) / 100)
	return lipgloss.JoinVertical(lipgloss.Left,
		lipgloss.JoinHorizontal(lipgloss.Top, title, stats),
		bar,
	)
}

func (m Model) renderMission() string {
	lines := []string{
		m.theme.Bold.Render("🎯 Mission"),
		m.view.MissionText,
	}
	if len(m.view.Examples) > 0 {
		lines = append(lines, m.theme.Muted.Render("Examples: "+strings.Join(m.view.Examples, ", ")))
	}
	return m.theme.MissionCard.Render(strings.Join(lines, "\n"))
}

func (m Model) renderViewfinder() string {
	width := max(min(m.width-4, 60), 20)
	box := m.theme.Viewfinder.Width(width).Height(5)

	switch {
	case m.snap.State == session.StateScanning:
		return box.Render(m.spinner.View() + " " + presentation.ButtonScanning)
	case m.view.Overlay != presentation.OverlayNone:
		return box.Render(m.renderOverlay())
	default:
		return box.Render(m.theme.Muted.Render("Point the camera at an object"))
	}
}

func (m Model) renderOverlay() string {
	style := m.theme.OverlayUnknown
	switch m.view.Overlay {
	case presentation.OverlaySuccess:
		style = m.theme.OverlaySuccess
	case presentation.OverlayFail:
		style = m.theme.OverlayFail
	}

	text := m.view.Headline
	if m.view.Message != "" {
		text += "\n" + m.view.Message
	}
	return style.Render(text)
}

func (m Model) renderButton() string {
	label := m.view.ButtonLabel
	if m.snap.State == session.StateScanning || label == presentation.ButtonLoading {
		label = m.spinner.View() + " " + label
	}

	style := m.theme.ButtonDisabled
	if m.view.ButtonEnabled {
		style = m.theme.Button
	}

	button := style.Render(label)
	if m.view.CountdownText != "" {
		button = lipgloss.JoinHorizontal(lipgloss.Center, button, "  ", m.theme.Countdown.Render(m.view.CountdownText))
	}
	return button
}

func (m Model) renderDebug() string {
	lines := []string{m.theme.Muted.Render("🔍 AI Detected:")}
	for i, d := range m.view.Debug {
		lines = append(lines, fmt.Sprintf("%d. %s", i+1, d))
	}
	return m.theme.Panel.Render(strings.Join(lines, "\n"))
}

func (m Model) renderHistory() string {
	lines := []string{m.theme.Bold.Render("Scan History")}
	if len(m.records) == 0 {
		lines = append(lines, m.theme.Muted.Render("No scans yet"))
		return m.theme.Panel.Render(strings.Join(lines, "\n"))
	}

	lines = append(lines, m.theme.TableHeader.Render(fmt.Sprintf("%-16s %-10s %-24s %5s", "When", "Category", "Object", "Conf")))
	for _, r := range m.records {
		lines = append(lines, fmt.Sprintf("%-16s %-10s %-24s %4.0f%%",
			r.ScannedAt.Local().Format("Jan 02 15:04"),
			r.Category,
			truncate(r.ObjectLabel, 24),
			r.Confidence*100))
	}
	return m.theme.Panel.Render(strings.Join(lines, "\n"))
}

func errorText(err error) string {
	switch {
	case errors.Is(err, common.ErrCaptureFailed):
		return "No camera frame available. Check the camera and try again."
	case errors.Is(err, common.ErrClassificationFailed):
		return scanFailedMessage
	case errors.Is(err, common.ErrNotReady):
		return "The AI model is still loading."
	}
	return common.UserMessage(err, err.Error())
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
