// pattern: Imperative Shell

package tui

import (
	"fmt"
	"io"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"restorepoint/internal/checkpoint"
)

// checkpointItem wraps a checkpoint for display in a list.
type checkpointItem struct {
	checkpoint checkpoint.Checkpoint
}

func (i checkpointItem) Title() string {
	return i.checkpoint.Label
}

func (i checkpointItem) Description() string {
	return fmt.Sprintf("%s | %s", i.checkpoint.ID, i.checkpoint.Age)
}

func (i checkpointItem) FilterValue() string {
	return i.checkpoint.Label
}

// checkpointDelegate renders checkpoints as two lines: label, then id and age.
type checkpointDelegate struct {
	styles *Styles
	// focused dims the selection marker when the file panel has focus.
	focused bool
}

func newCheckpointDelegate(styles *Styles) checkpointDelegate {
	return checkpointDelegate{styles: styles, focused: true}
}

// WithFocus returns a delegate with updated focus state.
func (d checkpointDelegate) WithFocus(focused bool) checkpointDelegate {
	d.focused = focused
	return d
}

func (d checkpointDelegate) Height() int {
	return 2
}

func (d checkpointDelegate) Spacing() int {
	return 0
}

func (d checkpointDelegate) Update(msg tea.Msg, m *list.Model) tea.Cmd {
	return nil
}

func (d checkpointDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	ci, ok := item.(checkpointItem)
	if !ok {
		return
	}

	isSelected := index == m.Index()

	titleStyle := lipgloss.NewStyle().
		Foreground(d.styles.color(d.styles.flavor.Text()))
	descStyle := lipgloss.NewStyle().
		Foreground(d.styles.color(d.styles.flavor.Subtext0()))

	indicator := "  "
	if isSelected {
		marker := d.styles.flavor.Mauve()
		if !d.focused {
			marker = d.styles.flavor.Overlay1()
		}
		titleStyle = titleStyle.Bold(true).Foreground(d.styles.color(marker))
		indicator = lipgloss.NewStyle().Foreground(d.styles.color(marker)).Render("▸ ")
	}

	// Leave room for the indicator.
	width := max(m.Width()-2, 1)
	title := titleStyle.Render(ansi.Truncate(ci.Title(), width, "…"))
	desc := descStyle.Render(ansi.Truncate(ci.Description(), width, "…"))

	_, _ = fmt.Fprintf(w, "%s%s\n  %s", indicator, title, desc)
}

// toListItems converts checkpoints to list items, keeping their order.
func toListItems(checkpoints []checkpoint.Checkpoint) []list.Item {
	items := make([]list.Item, len(checkpoints))
	for i, c := range checkpoints {
		items[i] = checkpointItem{checkpoint: c}
	}
	return items
}
