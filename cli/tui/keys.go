package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Up     key.Binding
	Down   key.Binding
	Enter  key.Binding
	Pause  key.Binding
	Resume key.Binding
	Quit   key.Binding
}

var keys = keyMap{
	Up: key.NewBinding(
		key.WithKeys("up", "k"),
		key.WithHelp("up/k", "up"),
	),
	Down: key.NewBinding(
		key.WithKeys("down", "j"),
		key.WithHelp("dn/j", "down"),
	),
	Enter: key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("enter", "choose"),
	),
	Pause: key.NewBinding(
		key.WithKeys("esc"),
		key.WithHelp("esc", "pause"),
	),
	Resume: key.NewBinding(
		key.WithKeys("f9"),
		key.WithHelp("f9", "resume"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "cancel"),
	),
}

// matchesBinding checks if a key message matches a key binding.
func matchesBinding(msg string, binding key.Binding) bool {
	for _, k := range binding.Keys() {
		if msg == k {
			return true
		}
	}
	return false
}
