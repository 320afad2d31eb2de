// pattern: Imperative Shell

package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"restorepoint/internal/logging"
)

// View renders the TUI.
func (m Model) View() string {
	switch m.dialog {
	case dialogConfirm:
		return m.renderConfirmDialog()
	case dialogLabel, dialogIdentityName, dialogIdentityEmail:
		return m.renderInputDialog()
	}

	if m.diffOpen {
		return m.renderDiffView()
	}

	layout := ComputeLayout(m.width, m.height, m.logPanelOpen)

	header := m.renderHeader(layout.Header.Width)
	content := lipgloss.JoinHorizontal(lipgloss.Top,
		m.renderCheckpointPanel(layout),
		m.renderChangesPanel(layout),
	)
	statusBar := lipgloss.NewStyle().Width(layout.StatusBar.Width).Render(m.renderStatusBar(layout.StatusBar.Width))

	parts := []string{header, content}
	if m.logPanelOpen {
		separator := m.styles.SeparatorStyle().
			Width(layout.Separator.Width).
			Render(strings.Repeat("─", layout.Separator.Width))
		parts = append(parts, separator, m.renderLogPanel(layout))
	}
	parts = append(parts, statusBar)

	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func (m Model) renderHeader(width int) string {
	title := m.styles.TitleStyle().Render("restorepoint")

	root := m.backend.Root()
	if m.backend.NeedsElevation() {
		root += " (elevated)"
	}
	subtitle := m.styles.SubtitleStyle().Render(ansi.Truncate(root, max(width-lipgloss.Width(title)-1, 0), "…"))

	var second string
	switch {
	case m.identity.Complete():
		second = m.styles.HelpStyle().Render("as " + m.identity.Name + " <" + m.identity.Email + ">")
	case m.loaded:
		second = m.styles.WarningStyle().Render("git identity not set (press i)")
	}
	if m.pending {
		second += m.styles.WarningStyle().Render("  • uncommitted changes")
	}

	return lipgloss.NewStyle().Width(width).Render(title + " " + subtitle + "\n" + second)
}

func (m Model) renderCheckpointPanel(layout Layout) string {
	region := layout.List
	title := fmt.Sprintf(" Checkpoints (%d)", len(m.checkpoints))
	header := m.styles.PanelHeaderStyle(m.focus == focusCheckpoints).Width(region.Width).Render(title)

	var body string
	switch {
	case !m.loaded:
		body = m.styles.HelpStyle().Render(" Loading…")
	case len(m.checkpoints) == 0:
		body = m.styles.HelpStyle().Render(" No checkpoints yet.\n Press n to create one.")
	default:
		body = m.checkpointList.View()
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		header,
		lipgloss.NewStyle().Width(region.Width).Height(layout.ListHeight()).MaxHeight(layout.ListHeight()).Render(body),
	)
}

func (m Model) renderChangesPanel(layout Layout) string {
	region := layout.Changes
	title := " Changes"
	if c, ok := m.selectedCheckpoint(); ok {
		title = fmt.Sprintf(" Changes since %s", c.ID)
		if n := len(m.marked); n > 0 {
			title += fmt.Sprintf(" (%d marked)", n)
		}
	}
	header := m.styles.PanelHeaderStyle(m.focus == focusFiles).Width(region.Width).Render(ansi.Truncate(title, region.Width, "…"))

	height := layout.ChangesHeight()
	var lines []string
	switch {
	case !m.loaded:
	case len(m.checkpoints) == 0 && m.pending:
		lines = []string{m.styles.HelpStyle().Render(" Everything here is uncommitted.")}
	case len(m.checkpoints) == 0:
		lines = []string{m.styles.HelpStyle().Render(" Nothing to show.")}
	case len(m.files) == 0:
		lines = []string{m.styles.SuccessStyle().Render(" Working tree matches this checkpoint.")}
	default:
		lines = m.renderFileLines(region.Width, height)
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		header,
		lipgloss.NewStyle().Width(region.Width).Height(height).MaxHeight(height).Render(strings.Join(lines, "\n")),
	)
}

// renderFileLines renders the window of the file list that keeps the
// cursor visible.
func (m Model) renderFileLines(width, height int) []string {
	offset := 0
	if m.fileCursor >= height {
		offset = m.fileCursor - height + 1
	}
	end := min(offset+height, len(m.files))

	lines := make([]string, 0, end-offset)
	for i := offset; i < end; i++ {
		f := m.files[i]

		cursor := "  "
		if m.focus == focusFiles && i == m.fileCursor {
			cursor = m.styles.AccentStyle().Render("▸ ")
		}
		mark := "[ ]"
		if m.marked[f.Path] {
			mark = m.styles.AccentStyle().Render("[x]")
		}
		code := m.styles.StatusCodeStyle(f.Code).Render(fmt.Sprintf("%-2s", f.Code))

		prefix := cursor + mark + " " + code + " "
		path := ansi.Truncate(f.Path, max(width-lipgloss.Width(prefix), 1), "…")
		lines = append(lines, prefix+path)
	}
	return lines
}

func (m Model) renderDiffView() string {
	header := m.styles.PanelHeaderStyle(true).Width(m.width).Render(" " + ansi.Truncate(m.diffTitle, max(m.width-2, 1), "…"))
	footer := m.styles.HelpStyle().Render(fmt.Sprintf("↑/↓/pgup/pgdn: scroll • g/G: top/bottom • esc: close  %3.f%%", m.diffView.ScrollPercent()*100))
	return lipgloss.JoinVertical(lipgloss.Left, header, m.diffView.View(), footer)
}

// renderDiff colors a unified diff line by line.
func (m Model) renderDiff(patch string) string {
	lines := strings.Split(patch, "\n")
	for i, line := range lines {
		switch {
		case strings.HasPrefix(line, "+++"), strings.HasPrefix(line, "---"),
			strings.HasPrefix(line, "diff "), strings.HasPrefix(line, "index "):
			lines[i] = m.styles.DiffHeaderStyle().Render(line)
		case strings.HasPrefix(line, "@@"):
			lines[i] = m.styles.DiffHunkStyle().Render(line)
		case strings.HasPrefix(line, "+"):
			lines[i] = m.styles.DiffAddStyle().Render(line)
		case strings.HasPrefix(line, "-"):
			lines[i] = m.styles.DiffRemoveStyle().Render(line)
		}
	}
	return strings.Join(lines, "\n")
}

// renderConfirmDialog renders the confirmation dialog as a centered modal.
func (m Model) renderConfirmDialog() string {
	title := m.styles.TitleStyle().Render("Confirm")
	message := m.styles.InfoStyle().Render(m.confirmMessage)
	help := m.styles.HelpStyle().Render("Enter/y: confirm • Esc/n: cancel")

	return m.placeModal(lipgloss.JoinVertical(lipgloss.Left, title, "", message, "", help))
}

func (m Model) renderInputDialog() string {
	var title, prompt string
	switch m.dialog {
	case dialogLabel:
		title = "New checkpoint"
		prompt = "Label:"
		if n := len(m.labelFiles); n > 0 {
			prompt = fmt.Sprintf("Label for %d selected file(s):", n)
		}
	case dialogIdentityName:
		title = "Git identity"
		prompt = "Name used for checkpoints:"
	case dialogIdentityEmail:
		title = "Git identity"
		prompt = "Email used for checkpoints:"
	}

	help := m.styles.HelpStyle().Render("Enter: continue • Esc: cancel")
	return m.placeModal(lipgloss.JoinVertical(lipgloss.Left,
		m.styles.TitleStyle().Render(title),
		"",
		m.styles.InfoStyle().Render(prompt),
		m.input.View(),
		"",
		help,
	))
}

func (m Model) placeModal(view string) string {
	boxed := m.styles.BoxStyle().Render(view)
	if m.width > 0 && m.height > 0 {
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, boxed)
	}
	return boxed
}

// renderStatusBar renders the status bar with operation feedback and contextual help.
func (m Model) renderStatusBar(width int) string {
	var statusIcon string
	var messageStyle lipgloss.Style

	switch m.statusLevel {
	case StatusLoading:
		statusIcon = m.statusSpinner.View()
		messageStyle = m.styles.InfoStatusStyle()
	case StatusSuccess:
		statusIcon = m.styles.SuccessStyle().Render("✓")
		messageStyle = m.styles.SuccessStyle()
	case StatusError:
		statusIcon = m.styles.ErrorStyle().Render("✗")
		messageStyle = m.styles.ErrorStyle()
	default: // StatusInfo
		messageStyle = m.styles.InfoStatusStyle()
	}

	message := m.statusMessage
	if m.statusLevel == StatusLoading && m.currentOp != "" {
		message += " (" + m.currentOp + ")"
	}

	var statusText string
	if statusIcon != "" {
		statusText = statusIcon + " " + messageStyle.Render(message)
	} else if message != "" {
		statusText = messageStyle.Render(message)
	}
	if m.statusLevel == StatusError {
		statusText += m.styles.HelpStyle().Render(" (esc to clear)")
	}

	help := m.renderContextualHelp()

	// Help yields to the status message on narrow terminals
	statusWidth := lipgloss.Width(statusText)
	if statusWidth+lipgloss.Width(help)+3 > width {
		help = ansi.Truncate(help, max(width-statusWidth-3, 0), "…")
	}
	spacerWidth := max(width-statusWidth-lipgloss.Width(help)-2, 1)

	return lipgloss.JoinHorizontal(lipgloss.Bottom,
		statusText,
		strings.Repeat(" ", spacerWidth),
		help,
	)
}

func (m Model) renderContextualHelp() string {
	var help string
	switch {
	case m.focus == focusFiles:
		help = "↑/↓: navigate • space: mark • a: all • enter: diff • s: snapshot • x: restore files • tab: checkpoints"
	case len(m.checkpoints) == 0:
		help = "n: new checkpoint • i: identity • l: logs • q: quit"
	default:
		help = "↑/↓: navigate • enter: diff • n: new • r: restore • d: delete • tab: files • l: logs • q: quit"
	}
	return m.styles.HelpStyle().Render(help)
}

func (m Model) renderLogEntry(entry logging.LogEntry) string {
	ts := m.styles.LogTimestampStyle().Render(entry.Timestamp.Format("15:04:05"))
	level := m.styles.LogLevelStyle(entry.Level).Render(fmt.Sprintf("%-5s", entry.Level))
	scope := m.styles.LogScopeStyle().Render("[" + entry.Scope + "]")
	return fmt.Sprintf("%s %s %s %s", ts, level, scope, entry.Message)
}

// renderLogPanel shows the newest entries that fit, oldest first.
func (m Model) renderLogPanel(layout Layout) string {
	header := m.styles.PanelHeaderStyle(false).Width(layout.Logs.Width).Render(" Logs")
	height := max(layout.Logs.Height-1, 1)

	entries := m.logEntries
	if len(entries) > height {
		entries = entries[len(entries)-height:]
	}

	var lines []string
	for _, entry := range entries {
		lines = append(lines, ansi.Truncate(m.renderLogEntry(entry), layout.Logs.Width, "…"))
	}
	if len(lines) == 0 {
		lines = []string{m.styles.InfoStyle().Render("No log entries")}
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		header,
		lipgloss.NewStyle().Width(layout.Logs.Width).Height(height).Render(strings.Join(lines, "\n")),
	)
}
