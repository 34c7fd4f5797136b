package cli

import (
	"sync"

	"github.com/charmbracelet/lipgloss"
)

// Palette shared by the light and dark appearances
var (
	Accent    = lipgloss.AdaptiveColor{Light: "#5A3FC0", Dark: "#B8A4FF"}
	UserColor = lipgloss.AdaptiveColor{Light: "#1F6FB2", Dark: "#7CC4FF"}
	BotColor  = lipgloss.AdaptiveColor{Light: "#1E7A4C", Dark: "#8EE6B0"}
	Muted     = lipgloss.AdaptiveColor{Light: "#6B6B6B", Dark: "#9A9A9A"}
	Danger    = lipgloss.AdaptiveColor{Light: "#B3261E", Dark: "#FF8A80"}
	Warning   = lipgloss.AdaptiveColor{Light: "#9A6700", Dark: "#FFD479"}
)

// Styles is the set of styles the shell renders with
type Styles struct {
	Prompt    lipgloss.Style
	Title     lipgloss.Style
	User      lipgloss.Style
	Assistant lipgloss.Style
	Timestamp lipgloss.Style
	Info      lipgloss.Style
	Error     lipgloss.Style
	Warning   lipgloss.Style
	Selected  lipgloss.Style
}

// Theme holds the current Styles. ApplyTheme switches the global lipgloss
// background so adaptive colors pick the matching variant.
type Theme struct {
	mu     sync.RWMutex
	isDark bool
	styles Styles
}

// NewTheme creates a theme with the given appearance applied
func NewTheme(dark bool) *Theme {
	t := &Theme{}
	t.ApplyTheme(dark)
	return t
}

// ApplyTheme implements state.ThemeApplier
func (t *Theme) ApplyTheme(dark bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	lipgloss.SetHasDarkBackground(dark)
	t.isDark = dark
	t.styles = newStyles()
}

// IsDark reports the appearance last applied
func (t *Theme) IsDark() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.isDark
}

// Styles returns the styles for the current appearance
func (t *Theme) Styles() Styles {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.styles
}

func newStyles() Styles {
	return Styles{
		Prompt:    lipgloss.NewStyle().Bold(true).Foreground(Accent),
		Title:     lipgloss.NewStyle().Bold(true).Foreground(Accent),
		User:      lipgloss.NewStyle().Bold(true).Foreground(UserColor),
		Assistant: lipgloss.NewStyle().Bold(true).Foreground(BotColor),
		Timestamp: lipgloss.NewStyle().Foreground(Muted).Italic(true),
		Info:      lipgloss.NewStyle().Foreground(Muted),
		Error:     lipgloss.NewStyle().Bold(true).Foreground(Danger),
		Warning:   lipgloss.NewStyle().Foreground(Warning),
		Selected:  lipgloss.NewStyle().Bold(true).Foreground(Accent),
	}
}
