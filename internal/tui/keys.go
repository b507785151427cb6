// SPDX-License-Identifier: MIT
package tui

import "github.com/charmbracelet/bubbles/key"

// scopeKeys are the bindings of the scope screen.
type scopeKeys struct {
	Run      key.Binding
	Follow   key.Binding
	Clear    key.Binding
	TimeBase key.Binding
	Range    key.Binding
	Window   key.Binding
	Longer   key.Binding
	Shorter  key.Binding
	Left     key.Binding
	Right    key.Binding
	ZoomIn   key.Binding
	ZoomOut  key.Binding
	Sine     key.Binding
	Noise    key.Binding
	Help     key.Binding
	Quit     key.Binding
}

func newScopeKeys() scopeKeys {
	return scopeKeys{
		Run:      key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "run/stop")),
		Follow:   key.NewBinding(key.WithKeys("f"), key.WithHelp("f", "follow")),
		Clear:    key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "clear")),
		TimeBase: key.NewBinding(key.WithKeys("t"), key.WithHelp("t", "time base")),
		Range:    key.NewBinding(key.WithKeys("v"), key.WithHelp("v", "voltage range")),
		Window:   key.NewBinding(key.WithKeys("w"), key.WithHelp("w", "window")),
		Longer:   key.NewBinding(key.WithKeys("]"), key.WithHelp("]", "longer segments")),
		Shorter:  key.NewBinding(key.WithKeys("["), key.WithHelp("[", "shorter segments")),
		Left:     key.NewBinding(key.WithKeys("left", "h"), key.WithHelp("←/h", "pan left")),
		Right:    key.NewBinding(key.WithKeys("right", "l"), key.WithHelp("→/l", "pan right")),
		ZoomIn:   key.NewBinding(key.WithKeys("+", "="), key.WithHelp("+", "zoom in")),
		ZoomOut:  key.NewBinding(key.WithKeys("-"), key.WithHelp("-", "zoom out")),
		Sine:     key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "fill sine")),
		Noise:    key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "fill noise")),
		Help:     key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "more keys")),
		Quit:     key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

// ShortHelp implements help.KeyMap.
func (k scopeKeys) ShortHelp() []key.Binding {
	return []key.Binding{k.Run, k.Follow, k.Clear, k.TimeBase, k.Range, k.Window, k.Help, k.Quit}
}

// FullHelp implements help.KeyMap.
func (k scopeKeys) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Run, k.Follow, k.Clear},
		{k.TimeBase, k.Range, k.Window},
		{k.Longer, k.Shorter, k.Sine, k.Noise},
		{k.Left, k.Right, k.ZoomIn, k.ZoomOut},
		{k.Help, k.Quit},
	}
}
