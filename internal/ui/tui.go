// ABOUTME: TUI initialization and control
// ABOUTME: Wraps the bubbletea program and the channels carrying key actions to the stream
package ui

import (
	tea "github.com/charmbracelet/bubbletea"
)

// ControlMsg is a user action from the TUI. Nil fields are unchanged; a
// zero Speed leaves speed alone.
type ControlMsg struct {
	Volume *int
	Muted  *bool
	Speed  float64
}

// QuitMsg is sent when the user quits
type QuitMsg struct{}

// Controls holds channels carrying TUI actions to the caller
type Controls struct {
	Changes chan ControlMsg
	Quit    chan QuitMsg
}

// NewControls creates a new control handler
func NewControls() *Controls {
	return &Controls{
		Changes: make(chan ControlMsg, 10),
		Quit:    make(chan QuitMsg, 1),
	}
}

// NewModel creates a new TUI model
func NewModel(controls *Controls, volume int, speed float64) Model {
	return Model{
		volume:   volume,
		speed:    speed,
		controls: controls,
	}
}

// Run creates the TUI program; the caller runs it and feeds it StatusMsg
func Run(controls *Controls, volume int, speed float64) *tea.Program {
	return tea.NewProgram(NewModel(controls, volume, speed), tea.WithAltScreen())
}
