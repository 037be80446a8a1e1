package dashboard

import (
	"github.com/charmbracelet/lipgloss"

	"socwatch/internal/view"
)

var (
	colorTitle  = lipgloss.Color("#7dd3fc")
	colorBorder = lipgloss.Color("#334155")
	colorDim    = lipgloss.Color("#64748b")
	colorText   = lipgloss.Color("#e2e8f0")
	colorAccent = lipgloss.Color("#a78bfa")
	colorSelect = lipgloss.Color("#1e293b")
)

var palette = map[string]lipgloss.Color{
	view.ColorRed:    lipgloss.Color("#ef4444"),
	view.ColorOrange: lipgloss.Color("#f97316"),
	view.ColorYellow: lipgloss.Color("#eab308"),
	view.ColorBlue:   lipgloss.Color("#3b82f6"),
	view.ColorGreen:  lipgloss.Color("#22c55e"),
	view.ColorGray:   lipgloss.Color("#6b7280"),
}

func colorOf(name string) lipgloss.Color {
	if c, ok := palette[name]; ok {
		return c
	}
	return palette[view.ColorGray]
}

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(colorTitle)
	dimStyle   = lipgloss.NewStyle().Foreground(colorDim)
	textStyle  = lipgloss.NewStyle().Foreground(colorText)

	panelStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(colorBorder).
			Padding(0, 1)

	sidebarStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.NormalBorder()).
			BorderRight(true).
			BorderForeground(colorBorder).
			Padding(1, 2, 0, 1)

	activeNavStyle = lipgloss.NewStyle().Bold(true).Foreground(colorAccent)
	navStyle       = lipgloss.NewStyle().Foreground(colorDim)

	bannerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#fecaca")).
			Background(lipgloss.Color("#7f1d1d")).
			Padding(0, 1)

	noticeStyle = lipgloss.NewStyle().Foreground(palette[view.ColorYellow])
)

func badge(label, color string) string {
	return lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#0f172a")).
		Background(colorOf(color)).
		Padding(0, 1).
		Render(label)
}

func colored(text, color string) string {
	return lipgloss.NewStyle().Foreground(colorOf(color)).Render(text)
}
