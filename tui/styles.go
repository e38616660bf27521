package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/yllada/vpn-provider-cli/provider"
)

// Styles holds the dashboard's lipgloss styles.
type Styles struct {
	Title      lipgloss.Style
	Label      lipgloss.Style
	Value      lipgloss.Style
	Muted      lipgloss.Style
	Up         lipgloss.Style
	Down       lipgloss.Style
	Selected   lipgloss.Style
	Current    lipgloss.Style
	HelpKey    lipgloss.Style
	Panel      lipgloss.Style
	levelStyle map[provider.Level]lipgloss.Style
}

var styles = newStyles()

func newStyles() Styles {
	return Styles{
		Title:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("14")),
		Label:    lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Width(12),
		Value:    lipgloss.NewStyle().Foreground(lipgloss.Color("15")),
		Muted:    lipgloss.NewStyle().Foreground(lipgloss.Color("8")),
		Up:       lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("10")),
		Down:     lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9")),
		Selected: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("0")).Background(lipgloss.Color("14")),
		Current:  lipgloss.NewStyle().Foreground(lipgloss.Color("10")),
		HelpKey:  lipgloss.NewStyle().Foreground(lipgloss.Color("8")),
		Panel:    lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("8")).Padding(0, 1),
		levelStyle: map[provider.Level]lipgloss.Style{
			provider.LevelInfo:    lipgloss.NewStyle().Foreground(lipgloss.Color("12")),
			provider.LevelSuccess: lipgloss.NewStyle().Foreground(lipgloss.Color("10")),
			provider.LevelWarning: lipgloss.NewStyle().Foreground(lipgloss.Color("11")),
			provider.LevelDanger:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9")),
		},
	}
}

// Level returns the style for a message level.
func (s Styles) Level(l provider.Level) lipgloss.Style {
	if st, ok := s.levelStyle[l]; ok {
		return st
	}
	return s.Value
}

// StatusBadge renders the provider state.
func StatusBadge(st provider.Status) string {
	if st == provider.StatusUp {
		return styles.Up.Render("● " + st.Display())
	}
	return styles.Down.Render("○ " + st.Display())
}

// TruncateString shortens s to max runes with an ellipsis.
func TruncateString(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	if max <= 1 {
		return string(r[:max])
	}
	return string(r[:max-1]) + "…"
}

// lastLines returns at most n trailing lines of s.
func lastLines(s string, n int) []string {
	if s == "" || n <= 0 {
		return nil
	}
	lines := strings.Split(s, "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return lines
}
