package tui

import "github.com/charmbracelet/bubbles/key"

// monitorKeyMap defines key bindings for the device list
type monitorKeyMap struct {
	Up        key.Binding
	Down      key.Binding
	Expand    key.Binding
	Collapse  key.Binding
	Toggle    key.Binding
	Direction key.Binding
	Trigger   key.Binding
	DutyUp    key.Binding
	DutyDown  key.Binding
	Period    key.Binding
	Help      key.Binding
	Quit      key.Binding
}

// ShortHelp returns keybindings to be shown in the mini help view
func (k monitorKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Up, k.Down, k.Toggle, k.Help, k.Quit}
}

// FullHelp returns keybindings for the expanded help view
func (k monitorKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Expand, k.Collapse},
		{k.Toggle, k.Direction, k.Trigger},
		{k.DutyUp, k.DutyDown, k.Period},
		{k.Help, k.Quit},
	}
}

func newMonitorKeyMap() monitorKeyMap {
	return monitorKeyMap{
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "down"),
		),
		Expand: key.NewBinding(
			key.WithKeys("right", "l"),
			key.WithHelp("→/l", "expand"),
		),
		Collapse: key.NewBinding(
			key.WithKeys("left", "h"),
			key.WithHelp("←/h", "collapse"),
		),
		Toggle: key.NewBinding(
			key.WithKeys("enter", " "),
			key.WithHelp("enter", "toggle"),
		),
		Direction: key.NewBinding(
			key.WithKeys("d"),
			key.WithHelp("d", "gpio direction"),
		),
		Trigger: key.NewBinding(
			key.WithKeys("t"),
			key.WithHelp("t", "led trigger"),
		),
		DutyUp: key.NewBinding(
			key.WithKeys("+", "="),
			key.WithHelp("+", "duty +10%"),
		),
		DutyDown: key.NewBinding(
			key.WithKeys("-"),
			key.WithHelp("-", "duty -10%"),
		),
		Period: key.NewBinding(
			key.WithKeys("p"),
			key.WithHelp("p", "pwm period"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "help"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}

// periodKeyMap defines key bindings while entering a PWM period
type periodKeyMap struct {
	Confirm key.Binding
	Cancel  key.Binding
}

// ShortHelp returns keybindings to be shown in the mini help view
func (k periodKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Confirm, k.Cancel}
}

// FullHelp returns keybindings for the expanded help view
func (k periodKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{{k.Confirm, k.Cancel}}
}

func newPeriodKeyMap() periodKeyMap {
	return periodKeyMap{
		Confirm: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "apply"),
		),
		Cancel: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "cancel"),
		),
	}
}
