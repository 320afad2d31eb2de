package tui

import (
	"strings"

	catppuccin "github.com/catppuccin/go"
	"github.com/charmbracelet/lipgloss"
)

type Styles struct {
	flavor catppuccin.Flavor
}

func NewStyles(themeName string) *Styles {
	flavor := flavorFromName(themeName)
	return &Styles{flavor: flavor}
}

func flavorFromName(name string) catppuccin.Flavor {
	switch name {
	case "latte":
		return catppuccin.Latte
	case "frappe":
		return catppuccin.Frappe
	case "macchiato":
		return catppuccin.Macchiato
	case "mocha":
		return catppuccin.Mocha
	default:
		return catppuccin.Mocha
	}
}

func (s *Styles) color(c catppuccin.Color) lipgloss.Color {
	return lipgloss.Color(c.Hex)
}

func (s *Styles) TitleStyle() lipgloss.Style {
	return lipgloss.NewStyle().
		Bold(true).
		Foreground(s.color(s.flavor.Mauve()))
}

func (s *Styles) SubtitleStyle() lipgloss.Style {
	return lipgloss.NewStyle().
		Foreground(s.color(s.flavor.Subtext0()))
}

func (s *Styles) HelpStyle() lipgloss.Style {
	return lipgloss.NewStyle().
		Foreground(s.color(s.flavor.Overlay0()))
}

func (s *Styles) BoxStyle() lipgloss.Style {
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(s.color(s.flavor.Surface1())).
		Padding(1, 2)
}

func (s *Styles) InfoStyle() lipgloss.Style {
	return lipgloss.NewStyle().
		Foreground(s.color(s.flavor.Text()))
}

func (s *Styles) AccentStyle() lipgloss.Style {
	return lipgloss.NewStyle().
		Foreground(s.color(s.flavor.Teal()))
}

func (s *Styles) ErrorStyle() lipgloss.Style {
	return lipgloss.NewStyle().
		Foreground(s.color(s.flavor.Red())).
		Bold(true)
}

func (s *Styles) SuccessStyle() lipgloss.Style {
	return lipgloss.NewStyle().
		Foreground(s.color(s.flavor.Green()))
}

func (s *Styles) WarningStyle() lipgloss.Style {
	return lipgloss.NewStyle().
		Foreground(s.color(s.flavor.Yellow()))
}

func (s *Styles) InfoStatusStyle() lipgloss.Style {
	return lipgloss.NewStyle().
		Foreground(s.color(s.flavor.Subtext1()))
}

// PanelHeaderStyle highlights the header of the focused panel.
func (s *Styles) PanelHeaderStyle(focused bool) lipgloss.Style {
	if focused {
		return lipgloss.NewStyle().
			Bold(true).
			Foreground(s.color(s.flavor.Base())).
			Background(s.color(s.flavor.Mauve()))
	}
	return lipgloss.NewStyle().
		Foreground(s.color(s.flavor.Subtext0())).
		Background(s.color(s.flavor.Surface0()))
}

func (s *Styles) SeparatorStyle() lipgloss.Style {
	return lipgloss.NewStyle().
		Foreground(s.color(s.flavor.Surface1()))
}

// StatusCodeStyle colors a git name-status code.
func (s *Styles) StatusCodeStyle(code string) lipgloss.Style {
	style := lipgloss.NewStyle().Bold(true)
	switch {
	case code == "??", strings.HasPrefix(code, "A"):
		return style.Foreground(s.color(s.flavor.Green()))
	case strings.HasPrefix(code, "D"):
		return style.Foreground(s.color(s.flavor.Red()))
	case strings.HasPrefix(code, "R"), strings.HasPrefix(code, "C"):
		return style.Foreground(s.color(s.flavor.Sapphire()))
	default:
		return style.Foreground(s.color(s.flavor.Yellow()))
	}
}

func (s *Styles) DiffAddStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(s.color(s.flavor.Green()))
}

func (s *Styles) DiffRemoveStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(s.color(s.flavor.Red()))
}

func (s *Styles) DiffHunkStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(s.color(s.flavor.Sapphire()))
}

func (s *Styles) DiffHeaderStyle() lipgloss.Style {
	return lipgloss.NewStyle().Bold(true).Foreground(s.color(s.flavor.Text()))
}

func (s *Styles) LogTimestampStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(s.color(s.flavor.Overlay0()))
}

func (s *Styles) LogScopeStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(s.color(s.flavor.Lavender()))
}

// LogLevelStyle colors a log level badge.
func (s *Styles) LogLevelStyle(level string) lipgloss.Style {
	switch level {
	case "DEBUG":
		return lipgloss.NewStyle().Foreground(s.color(s.flavor.Overlay1()))
	case "WARN":
		return lipgloss.NewStyle().Foreground(s.color(s.flavor.Yellow()))
	case "ERROR":
		return lipgloss.NewStyle().Foreground(s.color(s.flavor.Red())).Bold(true)
	default:
		return lipgloss.NewStyle().Foreground(s.color(s.flavor.Blue()))
	}
}
