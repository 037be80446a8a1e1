package dashboard

import (
	"github.com/charmbracelet/bubbles/key"
)

type keyMap struct {
	NextPage key.Binding
	PrevPage key.Binding
	Page1    key.Binding
	Page2    key.Binding
	Page3    key.Binding

	Up      key.Binding
	Down    key.Binding
	Enter   key.Binding
	Back    key.Binding
	Search  key.Binding
	Sev     key.Binding
	Status  key.Binding
	Own     key.Binding
	Resolve key.Binding
	Retry   key.Binding

	Chat      key.Binding
	Explain   key.Binding
	Summary   key.Binding
	Recommend key.Binding
	SysStatus key.Binding

	Help key.Binding
	Quit key.Binding
}

var keys = keyMap{
	NextPage: key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "next page")),
	PrevPage: key.NewBinding(key.WithKeys("shift+tab"), key.WithHelp("shift+tab", "prev page")),
	Page1:    key.NewBinding(key.WithKeys("1"), key.WithHelp("1", "dashboard")),
	Page2:    key.NewBinding(key.WithKeys("2"), key.WithHelp("2", "alerts")),
	Page3:    key.NewBinding(key.WithKeys("3"), key.WithHelp("3", "agents")),

	Up:      key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
	Down:    key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
	Enter:   key.NewBinding(key.WithKeys("enter"), key.WithHelp("⏎", "details")),
	Back:    key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "close")),
	Search:  key.NewBinding(key.WithKeys("/"), key.WithHelp("/", "search")),
	Sev:     key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "severity")),
	Status:  key.NewBinding(key.WithKeys("f"), key.WithHelp("f", "status")),
	Own:     key.NewBinding(key.WithKeys("o"), key.WithHelp("o", "take ownership")),
	Resolve: key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "resolve")),
	Retry:   key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refresh")),

	Chat:      key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "chat")),
	Explain:   key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "explain last")),
	Summary:   key.NewBinding(key.WithKeys("t"), key.WithHelp("t", "threat summary")),
	Recommend: key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "actions")),
	SysStatus: key.NewBinding(key.WithKeys("y"), key.WithHelp("y", "system status")),

	Help: key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
	Quit: key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
}

// pageKeys adapts the key map to help.KeyMap for the current page.
type pageKeys struct {
	page Page
	k    keyMap
}

func (p pageKeys) ShortHelp() []key.Binding {
	switch p.page {
	case PageAlerts:
		return []key.Binding{p.k.Up, p.k.Down, p.k.Enter, p.k.Search, p.k.Own, p.k.Resolve, p.k.Help, p.k.Quit}
	case PageDashboard:
		return []key.Binding{p.k.Chat, p.k.Explain, p.k.Summary, p.k.Recommend, p.k.SysStatus, p.k.Help, p.k.Quit}
	default:
		return []key.Binding{p.k.NextPage, p.k.Help, p.k.Quit}
	}
}

func (p pageKeys) FullHelp() [][]key.Binding {
	nav := []key.Binding{p.k.NextPage, p.k.PrevPage, p.k.Page1, p.k.Page2, p.k.Page3, p.k.Retry}
	switch p.page {
	case PageAlerts:
		return [][]key.Binding{
			{p.k.Up, p.k.Down, p.k.Enter, p.k.Back},
			{p.k.Search, p.k.Sev, p.k.Status},
			{p.k.Own, p.k.Resolve},
			nav,
			{p.k.Help, p.k.Quit},
		}
	case PageDashboard:
		return [][]key.Binding{
			{p.k.Chat, p.k.Back},
			{p.k.Explain, p.k.Summary, p.k.Recommend, p.k.SysStatus},
			nav,
			{p.k.Help, p.k.Quit},
		}
	default:
		return [][]key.Binding{nav, {p.k.Help, p.k.Quit}}
	}
}
