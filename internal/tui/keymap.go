package tui

import (
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
)

// globalKeyMap holds the bindings the root model handles before a key
// reaches the focused panel.
type globalKeyMap struct {
	Quit      key.Binding
	Stop      key.Binding
	NextPanel key.Binding
	PrevPanel key.Binding
	Jump      [focusCount]key.Binding
}

var globalKeys = globalKeyMap{
	Quit:      key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	Stop:      key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "stop after iteration")),
	NextPanel: key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "next panel")),
	PrevPanel: key.NewBinding(key.WithKeys("shift+tab"), key.WithHelp("shift+tab", "previous panel")),
	Jump: [focusCount]key.Binding{
		FocusAgents:     key.NewBinding(key.WithKeys("1"), key.WithHelp("1", "agents")),
		FocusIterations: key.NewBinding(key.WithKeys("2"), key.WithHelp("2", "iterations")),
		FocusMain:       key.NewBinding(key.WithKeys("3"), key.WithHelp("3", "main")),
		FocusEvents:     key.NewBinding(key.WithKeys("4"), key.WithHelp("4", "events")),
	},
}

// jumpTarget returns the panel a number key focuses.
func (k globalKeyMap) jumpTarget(msg tea.KeyMsg) (FocusTarget, bool) {
	for i, b := range k.Jump {
		if key.Matches(msg, b) {
			return FocusTarget(i), true
		}
	}
	return 0, false
}

func (k globalKeyMap) all() []key.Binding {
	return append([]key.Binding{k.Quit, k.Stop, k.NextPanel, k.PrevPanel}, k.Jump[:]...)
}
