package tui

import (
	catppuccin "github.com/catppuccin/go"
	"github.com/charmbracelet/lipgloss"

	"cc_activity_mon/internal/config"
	"cc_activity_mon/internal/session"
)

// palette is the subset of a catppuccin flavor the theme reads
type palette interface {
	Red() catppuccin.Color
	Maroon() catppuccin.Color
	Peach() catppuccin.Color
	Yellow() catppuccin.Color
	Green() catppuccin.Color
	Teal() catppuccin.Color
	Sky() catppuccin.Color
	Sapphire() catppuccin.Color
	Blue() catppuccin.Color
	Lavender() catppuccin.Color
	Mauve() catppuccin.Color
	Pink() catppuccin.Color
	Flamingo() catppuccin.Color
	Rosewater() catppuccin.Color
	Text() catppuccin.Color
	Subtext0() catppuccin.Color
	Overlay0() catppuccin.Color
	Overlay1() catppuccin.Color
	Surface0() catppuccin.Color
	Surface1() catppuccin.Color
	Base() catppuccin.Color
}

var flavors = map[string]palette{
	"latte":     catppuccin.Latte,
	"frappe":    catppuccin.Frappe,
	"macchiato": catppuccin.Macchiato,
	"mocha":     catppuccin.Mocha,
}

// colorNames maps tool group color names to palette entries
var colorNames = map[string]func(palette) catppuccin.Color{
	"red":       palette.Red,
	"maroon":    palette.Maroon,
	"peach":     palette.Peach,
	"yellow":    palette.Yellow,
	"green":     palette.Green,
	"teal":      palette.Teal,
	"sky":       palette.Sky,
	"sapphire":  palette.Sapphire,
	"blue":      palette.Blue,
	"lavender":  palette.Lavender,
	"mauve":     palette.Mauve,
	"pink":      palette.Pink,
	"flamingo":  palette.Flamingo,
	"rosewater": palette.Rosewater,
	"text":      palette.Text,
	"subtext0":  palette.Subtext0,
	"overlay0":  palette.Overlay0,
	"overlay1":  palette.Overlay1,
}

func hex(c catppuccin.Color) lipgloss.Color {
	return lipgloss.Color(c.Hex)
}

// Theme holds every style the UI renders with
type Theme struct {
	Title        lipgloss.Style
	Status       lipgloss.Style
	Active       lipgloss.Style
	Inactive     lipgloss.Style
	Error        lipgloss.Style
	ActiveTab    lipgloss.Style
	InactiveTab  lipgloss.Style
	TabGap       lipgloss.Style
	Selected     lipgloss.Style
	Normal       lipgloss.Style
	Muted        lipgloss.Style
	Timestamp    lipgloss.Style
	Help         lipgloss.Style
	ColumnHeader lipgloss.Style
	DetailBorder lipgloss.Style
	DetailLabel  lipgloss.Style
	selectedBg   lipgloss.Color
	groups       map[string]lipgloss.Style
	cfg          *config.Config
}

// NewTheme builds styles from the configured flavor and tool groups.
// Unknown flavors fall back to mocha.
func NewTheme(cfg *config.Config) *Theme {
	p, ok := flavors[cfg.Theme]
	if !ok {
		p = catppuccin.Mocha
	}

	t := &Theme{
		Title:        lipgloss.NewStyle().Bold(true).Foreground(hex(p.Mauve())),
		Status:       lipgloss.NewStyle().Foreground(hex(p.Overlay1())),
		Active:       lipgloss.NewStyle().Foreground(hex(p.Green())).Bold(true),
		Inactive:     lipgloss.NewStyle().Foreground(hex(p.Overlay0())),
		Error:        lipgloss.NewStyle().Foreground(hex(p.Red())).Bold(true).Padding(1),
		ActiveTab:    lipgloss.NewStyle().Bold(true).Background(hex(p.Mauve())).Foreground(hex(p.Base())).Padding(0, 2),
		InactiveTab:  lipgloss.NewStyle().Foreground(hex(p.Overlay1())).Padding(0, 2),
		TabGap:       lipgloss.NewStyle().Foreground(hex(p.Surface1())),
		Selected:     lipgloss.NewStyle().Background(hex(p.Surface0())).Foreground(hex(p.Text())).Bold(true),
		Normal:       lipgloss.NewStyle().Foreground(hex(p.Text())),
		Muted:        lipgloss.NewStyle().Foreground(hex(p.Overlay1())),
		Timestamp:    lipgloss.NewStyle().Foreground(hex(p.Overlay1())).Width(8),
		Help:         lipgloss.NewStyle().Foreground(hex(p.Overlay0())),
		ColumnHeader: lipgloss.NewStyle().Foreground(hex(p.Subtext0())).Bold(true),
		DetailBorder: lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(hex(p.Surface1())).Padding(0, 1),
		DetailLabel:  lipgloss.NewStyle().Foreground(hex(p.Lavender())).Bold(true),
		selectedBg:   hex(p.Surface0()),
		groups:       make(map[string]lipgloss.Style),
		cfg:          cfg,
	}

	for _, g := range cfg.ToolGroups {
		style := lipgloss.NewStyle().Foreground(hex(p.Text()))
		if fn, ok := colorNames[g.Color]; ok {
			style = lipgloss.NewStyle().Foreground(hex(fn(p)))
		}
		if g.Bold {
			style = style.Bold(true)
		}
		t.groups[g.Name] = style
	}
	return t
}

// ForEvent returns the style of the event's tool group and the group name
func (t *Theme) ForEvent(e session.Event) (lipgloss.Style, string) {
	g := t.cfg.GroupFor(e)
	if g == nil {
		return t.Normal, ""
	}
	return t.groups[g.Name], g.Name
}

// ColumnHeaderWidth returns the column header style sized to width
func (t *Theme) ColumnHeaderWidth(width int) lipgloss.Style {
	return t.ColumnHeader.Width(width)
}
