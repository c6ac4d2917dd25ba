package tui

import "github.com/charmbracelet/bubbles/key"

var keys = struct {
	Quit     key.Binding
	Up       key.Binding
	Down     key.Binding
	PageUp   key.Binding
	PageDown key.Binding
	Search   key.Binding
	Open     key.Binding
	Prev     key.Binding
	Next     key.Binding
	Close    key.Binding
	More     key.Binding
}{
	Quit:     key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	Up:       key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
	Down:     key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
	PageUp:   key.NewBinding(key.WithKeys("pgup"), key.WithHelp("pgup", "page up")),
	PageDown: key.NewBinding(key.WithKeys("pgdown", " "), key.WithHelp("pgdn", "page down")),
	Search:   key.NewBinding(key.WithKeys("/"), key.WithHelp("/", "search")),
	Open:     key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "details")),
	Prev:     key.NewBinding(key.WithKeys("left", "h"), key.WithHelp("←/h", "previous")),
	Next:     key.NewBinding(key.WithKeys("right", "l"), key.WithHelp("→/l", "next")),
	Close:    key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "close")),
	More:     key.NewBinding(key.WithKeys("m"), key.WithHelp("m", "load more")),
}

// keyMap adapts the bindings to help.KeyMap.
type keyMap struct{ detail bool }

func (k keyMap) ShortHelp() []key.Binding {
	if k.detail {
		return []key.Binding{keys.Prev, keys.Next, keys.Close, keys.Quit}
	}
	return []key.Binding{keys.Up, keys.Down, keys.Open, keys.Search, keys.More, keys.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp()}
}
