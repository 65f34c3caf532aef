// ABOUTME: Bubbletea model for the stream monitor
// ABOUTME: Shows negotiated format, ring occupancy and loop counters with volume, mute and speed keys
package ui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/harperreed/emustream/pkg/stream"
)

// Model represents the TUI state
type Model struct {
	// Source
	title   string
	backend string

	// Stream
	stats stream.Stats

	// Host
	speed    float64
	buffered int
	dropped  uint64

	// Controls
	volume   int
	muted    bool
	controls *Controls

	// Debug
	showDebug bool

	// Dimensions
	width  int
	height int
}

// Init initializes the model
func (m Model) Init() tea.Cmd {
	return nil
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	case StatusMsg:
		m.applyStatus(msg)
	}

	return m, nil
}

// View renders the TUI
func (m Model) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	s := ""
	s += m.renderHeader()
	s += m.renderFormat()
	s += m.renderRing()
	s += m.renderControls()
	s += m.renderStats()

	if m.showDebug {
		s += m.renderDebug()
	}

	s += m.renderHelp()

	return s
}

// renderHeader renders device and source
func (m Model) renderHeader() string {
	status := "Stopped"
	if m.stats.Running {
		status = fmt.Sprintf("Playing on %s (%s)", m.stats.Device, m.backend)
	}

	return fmt.Sprintf(`┌─ emustream ──────────────────────────────────────────┐
│ Status: %-45s │
│ Source: %-45s │
├──────────────────────────────────────────────────────┤
`, truncate(status, 45), truncate(m.title, 45))
}

// renderFormat renders the negotiated output format
func (m Model) renderFormat() string {
	format := "(nothing submitted)"
	if m.stats.Format.Channels > 0 {
		format = m.stats.Format.String()
	}

	return fmt.Sprintf("│ Format: %-45s │\n"+
		"│ Caps:   float32 %s  surround %s%-24s │\n"+
		"│ Tempo:  %-6.2f Speed: %-6.2f%-26s │\n",
		format, capMark(m.stats.Float32), capMark(m.stats.Surround), "",
		m.stats.Tempo, m.speed, "")
}

// renderRing renders buffer occupancy
func (m Model) renderRing() string {
	n := m.stats.Buffers
	if n == 0 {
		return "│ Buffers: -                                           │\n"
	}

	cells := strings.Repeat("█", m.stats.Queued) +
		strings.Repeat("▒", m.stats.Processed) +
		strings.Repeat("░", m.stats.Free)

	return fmt.Sprintf("│ Buffers: [%s] %d/%d queued%-*s │\n",
		cells, m.stats.Queued, n, pad(31-n-len(fmt.Sprintf("%d/%d", m.stats.Queued, n))), "")
}

// renderControls renders volume and mute
func (m Model) renderControls() string {
	muteIcon := ""
	if m.muted {
		muteIcon = " (muted)"
	}

	volumeBar := renderBar(m.volume, 100, 10)

	return fmt.Sprintf("│                                                      │\n"+
		"│ Volume: [%s] %3d%%%-*s │\n",
		volumeBar, m.volume, pad(29), muteIcon)
}

// renderStats renders loop counters
func (m Model) renderStats() string {
	return fmt.Sprintf(`├──────────────────────────────────────────────────────┤
│ Submitted: %-8d Skipped: %-8d Underruns: %-5d│
│ Rejected:  %-8d Downgrades: %-5d Dropped: %-7d│
`, m.stats.Submitted, m.stats.Skipped, m.stats.Underruns,
		m.stats.Rejected, m.stats.Downgrades, m.dropped)
}

// renderHelp renders keyboard shortcuts
func (m Model) renderHelp() string {
	return `│ ↑/↓:Volume  m:Mute  +/-:Speed  d:Debug  q:Quit       │
└──────────────────────────────────────────────────────┘
`
}

// renderDebug renders debug information
func (m Model) renderDebug() string {
	return fmt.Sprintf(`│ DEBUG:                                               │
│   Session:   %-40s│
│   Renderer:  %-40s│
│   Iterations: %-12d Host FIFO: %-6d frames  │
`, m.stats.SessionID, truncate(m.stats.Renderer, 40), m.stats.Iterations, m.buffered)
}

// handleKey handles keyboard input
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		if m.controls != nil {
			select {
			case m.controls.Quit <- QuitMsg{}:
			default:
			}
		}
		return m, tea.Quit
	case "up":
		if m.volume < 100 {
			m.volume += 5
			if m.volume > 100 {
				m.volume = 100
			}
			m.sendControl(ControlMsg{Volume: &m.volume})
		}
	case "down":
		if m.volume > 0 {
			m.volume -= 5
			if m.volume < 0 {
				m.volume = 0
			}
			m.sendControl(ControlMsg{Volume: &m.volume})
		}
	case "m":
		m.muted = !m.muted
		m.sendControl(ControlMsg{Muted: &m.muted})
	case "+", "=":
		speed := m.speed + 0.25
		m.speed = speed
		m.sendControl(ControlMsg{Speed: speed})
	case "-":
		if m.speed > 0.25 {
			speed := m.speed - 0.25
			m.speed = speed
			m.sendControl(ControlMsg{Speed: speed})
		}
	case "d":
		m.showDebug = !m.showDebug
	}

	return m, nil
}

// sendControl forwards a control change without blocking the UI
func (m Model) sendControl(msg ControlMsg) {
	if m.controls == nil {
		return
	}
	if msg.Volume != nil {
		v := *msg.Volume
		msg.Volume = &v
	}
	if msg.Muted != nil {
		v := *msg.Muted
		msg.Muted = &v
	}
	select {
	case m.controls.Changes <- msg:
	default:
	}
}

// applyStatus updates model from status message
func (m *Model) applyStatus(msg StatusMsg) {
	m.stats = msg.Stats
	m.volume = msg.Stats.Volume
	m.muted = msg.Stats.Muted
	if msg.Title != "" {
		m.title = msg.Title
	}
	if msg.Backend != "" {
		m.backend = msg.Backend
	}
	if msg.Speed > 0 {
		m.speed = msg.Speed
	}
	m.buffered = msg.Buffered
	m.dropped = msg.Dropped
}

// StatusMsg updates TUI state
type StatusMsg struct {
	Stats    stream.Stats
	Title    string
	Backend  string
	Speed    float64
	Buffered int
	Dropped  uint64
}

// Utility functions
func renderBar(value, max, width int) string {
	filled := (value * width) / max
	bar := ""
	for i := 0; i < width; i++ {
		if i < filled {
			bar += "█"
		} else {
			bar += "░"
		}
	}
	return bar
}

func truncate(s string, length int) string {
	if len(s) <= length {
		return s
	}
	return s[:length-3] + "..."
}

func capMark(ok bool) string {
	if ok {
		return "✓"
	}
	return "✗"
}

func pad(n int) int {
	if n < 0 {
		return 0
	}
	return n
}
