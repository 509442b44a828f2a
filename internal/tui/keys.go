package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Quit     key.Binding
	NextView key.Binding
	PrevView key.Binding
	Feed     key.Binding
	Sessions key.Binding
	Detail   key.Binding
	Back     key.Binding
	Pause    key.Binding
	Clear    key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		Quit:     key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
		NextView: key.NewBinding(key.WithKeys("l", "right", "tab"), key.WithHelp("h/l", "switch view")),
		PrevView: key.NewBinding(key.WithKeys("h", "left", "shift+tab")),
		Feed:     key.NewBinding(key.WithKeys("1")),
		Sessions: key.NewBinding(key.WithKeys("2")),
		Detail:   key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "details")),
		Back:     key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
		Pause:    key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "pause")),
		Clear:    key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "clear")),
	}
}
