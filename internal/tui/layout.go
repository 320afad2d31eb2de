// pattern: Functional Core

package tui

// Region defines a rectangular area within the terminal.
type Region struct {
	X      int // Left position (0-indexed)
	Y      int // Top position (0-indexed)
	Width  int // Width in cells
	Height int // Height in lines
}

// Layout holds computed regions for all UI components.
type Layout struct {
	Header    Region // Title and directory (2 lines)
	List      Region // Checkpoint list (left, 40%)
	Changes   Region // Changed files of the selected checkpoint (right, 60%)
	Separator Region // Separator above the log panel (1 line when open)
	Logs      Region // Log panel when open
	StatusBar Region // Status bar (1 line)
}

// Fixed heights for chrome elements
const (
	headerHeight    = 2
	statusBarHeight = 1
	separatorHeight = 1
	minBodyHeight   = 4
)

// ComputeLayout calculates regions based on terminal dimensions.
// When logPanelOpen is true the body splits 60/40 vertically (panels/logs).
func ComputeLayout(width, height int, logPanelOpen bool) Layout {
	available := height - headerHeight - statusBarHeight
	if available < minBodyHeight {
		available = minBodyHeight
	}

	bodyHeight, logsHeight := available, 0
	if logPanelOpen {
		bodyHeight = int(float64(available) * 0.6)
		logsHeight = available - bodyHeight - separatorHeight
		if logsHeight < 1 {
			logsHeight = 1
		}
	}

	y := 0
	header := Region{X: 0, Y: y, Width: width, Height: headerHeight}
	y += headerHeight

	listWidth := int(float64(width) * 0.4)
	list := Region{X: 0, Y: y, Width: listWidth, Height: bodyHeight}
	changes := Region{X: listWidth, Y: y, Width: width - listWidth, Height: bodyHeight}
	y += bodyHeight

	var separator, logs Region
	if logPanelOpen {
		separator = Region{X: 0, Y: y, Width: width, Height: separatorHeight}
		y += separatorHeight
		logs = Region{X: 0, Y: y, Width: width, Height: logsHeight}
		y += logsHeight
	}

	return Layout{
		Header:    header,
		List:      list,
		Changes:   changes,
		Separator: separator,
		Logs:      logs,
		StatusBar: Region{X: 0, Y: y, Width: width, Height: statusBarHeight},
	}
}

// ListHeight returns the rows available to the checkpoint list below its
// panel header.
func (l Layout) ListHeight() int {
	return max(l.List.Height-1, 1)
}

// ChangesHeight returns the rows available to the file list below its
// panel header.
func (l Layout) ChangesHeight() int {
	return max(l.Changes.Height-1, 1)
}
