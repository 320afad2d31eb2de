// pattern: Functional Core
package cli

import (
	"fmt"
	"strings"

	"github.com/fatih/color"

	"restorepoint/internal/checkpoint"
)

type palette struct {
	green  func(a ...any) string
	yellow func(a ...any) string
	cyan   func(a ...any) string
	gray   func(a ...any) string
	red    func(a ...any) string
	bold   func(a ...any) string
}

func colorPalette() palette {
	return palette{
		green:  color.New(color.FgGreen).SprintFunc(),
		yellow: color.New(color.FgYellow).SprintFunc(),
		cyan:   color.New(color.FgCyan).SprintFunc(),
		gray:   color.New(color.FgHiBlack).SprintFunc(),
		red:    color.New(color.FgRed).SprintFunc(),
		bold:   color.New(color.Bold).SprintFunc(),
	}
}

func plainPalette() palette {
	noColor := func(a ...any) string { return fmt.Sprint(a...) }
	return palette{noColor, noColor, noColor, noColor, noColor, noColor}
}

// formatCheckpoints renders one checkpoint per line: id, age, label.
func formatCheckpoints(p palette, list []checkpoint.Checkpoint) string {
	var sb strings.Builder
	for _, c := range list {
		fmt.Fprintf(&sb, "%s  %s  %s\n", p.yellow(c.ID), p.gray(c.Age), c.Label)
	}
	return sb.String()
}

// formatStatus renders one file per line with its code colored by kind.
func formatStatus(p palette, files []checkpoint.FileStatus) string {
	var sb strings.Builder
	for _, f := range files {
		fmt.Fprintf(&sb, "%s\t%s\n", statusColor(p, f.Code)(fmt.Sprintf("%-4s", f.Code)), f.Path)
	}
	return sb.String()
}

func statusColor(p palette, code string) func(a ...any) string {
	switch {
	case code == checkpoint.UntrackedCode, strings.HasPrefix(code, "A"):
		return p.green
	case strings.HasPrefix(code, "D"):
		return p.red
	case strings.HasPrefix(code, "R"), strings.HasPrefix(code, "C"):
		return p.cyan
	default:
		return p.yellow
	}
}

// colorizeDiff colors a unified diff the way the restore GUI did: added
// lines green, removed lines red, hunk headers cyan.
func colorizeDiff(p palette, patch string) string {
	if patch == "" {
		return ""
	}
	lines := strings.Split(patch, "\n")
	for i, line := range lines {
		switch {
		case strings.HasPrefix(line, "+++"), strings.HasPrefix(line, "---"),
			strings.HasPrefix(line, "diff "), strings.HasPrefix(line, "index "):
			lines[i] = p.bold(line)
		case strings.HasPrefix(line, "+"):
			lines[i] = p.green(line)
		case strings.HasPrefix(line, "-"):
			lines[i] = p.red(line)
		case strings.HasPrefix(line, "@@"):
			lines[i] = p.cyan(line)
		}
	}
	return strings.Join(lines, "\n") + "\n"
}
