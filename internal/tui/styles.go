package tui

import (
	"charm.land/lipgloss/v2"

	"github.com/skeinedit/skein/internal/highlight"
)

// Styles holds the lipgloss styles derived from the active syntax theme,
// so UI chrome always matches the highlighted code.
type Styles struct {
	BgFill    lipgloss.Style // fills empty cells with the theme background
	Text      lipgloss.Style
	Gutter    lipgloss.Style
	Border    lipgloss.Style
	TabActive lipgloss.Style
	TabIdle   lipgloss.Style
	Status    lipgloss.Style
	StatusErr lipgloss.Style
	Selection lipgloss.Style
	Cursor    lipgloss.Style
	Prompt    lipgloss.Style
}

// NewStyles derives the style set from a theme palette.
func NewStyles(p highlight.Palette) Styles {
	bg := lipgloss.Color(p.Bg)
	return Styles{
		BgFill:    lipgloss.NewStyle().Background(bg),
		Text:      lipgloss.NewStyle().Foreground(lipgloss.Color(p.Fg)).Background(bg),
		Gutter:    lipgloss.NewStyle().Foreground(lipgloss.Color(p.Dim)).Background(bg),
		Border:    lipgloss.NewStyle().Foreground(lipgloss.Color(p.Border)).Background(bg),
		TabActive: lipgloss.NewStyle().Foreground(lipgloss.Color(p.Accent)).Background(bg).Bold(true),
		TabIdle:   lipgloss.NewStyle().Foreground(lipgloss.Color(p.Muted)).Background(bg),
		Status:    lipgloss.NewStyle().Foreground(lipgloss.Color(p.Muted)).Background(bg),
		StatusErr: lipgloss.NewStyle().Foreground(lipgloss.Color(p.Error)).Background(bg),
		Selection: lipgloss.NewStyle().Foreground(lipgloss.Color(p.Bg)).Background(lipgloss.Color(p.Muted)),
		Cursor:    lipgloss.NewStyle().Foreground(lipgloss.Color(p.Bg)).Background(lipgloss.Color(p.Accent)),
		Prompt:    lipgloss.NewStyle().Foreground(lipgloss.Color(p.Accent)).Background(bg),
	}
}

// spanStyle builds the style for one highlight span on the theme
// background.
func (s Styles) spanStyle(sp highlight.Span, fg string) lipgloss.Style {
	st := s.Text
	if sp.Color != "" {
		st = st.Foreground(lipgloss.Color(sp.Color))
	} else if fg != "" {
		st = st.Foreground(lipgloss.Color(fg))
	}
	if sp.Bold {
		st = st.Bold(true)
	}
	if sp.Italic {
		st = st.Italic(true)
	}
	return st
}
