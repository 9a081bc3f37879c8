package ui

import (
	"os"

	"github.com/charmbracelet/lipgloss"
)

// Theme holds the colors and pre-computed styles used by the tree view.
type Theme struct {
	Renderer *lipgloss.Renderer

	// Colors
	Primary   lipgloss.AdaptiveColor
	Secondary lipgloss.AdaptiveColor
	Subtext   lipgloss.AdaptiveColor
	Muted     lipgloss.AdaptiveColor
	Highlight lipgloss.AdaptiveColor
	Border    lipgloss.AdaptiveColor
	Match     lipgloss.AdaptiveColor
	Error     lipgloss.AdaptiveColor

	// Styles
	Base          lipgloss.Style
	Selected      lipgloss.Style
	Header        lipgloss.Style
	MutedText     lipgloss.Style // branch lines, position indicator
	SecondaryText lipgloss.Style // ids
	MatchText     lipgloss.Style // search hits
	ContextText   lipgloss.Style // ancestors shown only for context
	ErrorText     lipgloss.Style
	Pane          lipgloss.Style
}

// DefaultTheme returns the standard Dracula-inspired theme (adaptive).
func DefaultTheme(r *lipgloss.Renderer) Theme {
	t := Theme{
		Renderer: r,

		Primary:   lipgloss.AdaptiveColor{Light: "#6B47D9", Dark: "#BD93F9"},
		Secondary: lipgloss.AdaptiveColor{Light: "#555555", Dark: "#6272A4"},
		Subtext:   lipgloss.AdaptiveColor{Light: "#666666", Dark: "#BFBFBF"},
		Muted:     lipgloss.AdaptiveColor{Light: "#555555", Dark: "#6272A4"},
		Highlight: lipgloss.AdaptiveColor{Light: "#E0E0E0", Dark: "#44475A"},
		Border:    lipgloss.AdaptiveColor{Light: "#AAAAAA", Dark: "#44475A"},
		Match:     lipgloss.AdaptiveColor{Light: "#B06800", Dark: "#FFB86C"},
		Error:     lipgloss.AdaptiveColor{Light: "#CC0000", Dark: "#FF5555"},
	}

	t.Base = r.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#000000", Dark: "#F8F8F2"})

	t.Selected = r.NewStyle().
		Background(t.Highlight).
		Border(lipgloss.ThickBorder(), false, false, false, true).
		BorderForeground(t.Primary).
		Bold(true)

	t.Header = r.NewStyle().
		Background(t.Primary).
		Foreground(lipgloss.AdaptiveColor{Light: "#FFFFFF", Dark: "#282A36"}).
		Bold(true).
		Padding(0, 1)

	t.MutedText = r.NewStyle().Foreground(t.Muted)
	t.SecondaryText = r.NewStyle().Foreground(t.Secondary)
	t.MatchText = r.NewStyle().Foreground(t.Match).Bold(true)
	t.ContextText = r.NewStyle().Foreground(t.Muted).Faint(true)
	t.ErrorText = r.NewStyle().Foreground(t.Error)
	t.Pane = r.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(t.Border).
		Padding(0, 1)

	return t
}

// ClassColor maps a display class to a color. Unknown classes use Subtext.
func (t Theme) ClassColor(class string) lipgloss.AdaptiveColor {
	switch class {
	case "error", "blocked", "bug":
		return t.Error
	case "active", "open", "in_progress":
		return lipgloss.AdaptiveColor{Light: "#007700", Dark: "#50FA7B"}
	case "folder", "group", "epic":
		return t.Primary
	case "done", "closed", "archived":
		return t.Muted
	}
	return t.Subtext
}

// TestTheme returns a theme suitable for use in tests.
func TestTheme() Theme {
	return DefaultTheme(lipgloss.NewRenderer(os.Stdout))
}
