// ABOUTME: Tests for the stream monitor model
// ABOUTME: Covers status application, key handling and rendering helpers
package ui

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/harperreed/emustream/pkg/audio"
	"github.com/harperreed/emustream/pkg/stream"
)

func TestNewModel(t *testing.T) {
	model := NewModel(nil, 80, 1.0)

	if model.volume != 80 {
		t.Errorf("expected volume 80, got %d", model.volume)
	}
	if model.speed != 1.0 {
		t.Errorf("expected speed 1.0, got %f", model.speed)
	}
	if model.muted {
		t.Error("expected not muted")
	}
}

func TestStatusMsgUpdatesStats(t *testing.T) {
	model := NewModel(nil, 100, 1.0)

	msg := StatusMsg{
		Stats: stream.Stats{
			Running:   true,
			Device:    "Speakers",
			Format:    audio.Format{SampleRate: 48000, Channels: 2, Encoding: audio.EncodingFloat32},
			Float32:   true,
			Buffers:   4,
			Queued:    3,
			Free:      1,
			Submitted: 42,
			Volume:    60,
			Muted:     true,
		},
		Title:   "tone 440Hz",
		Backend: "malgo",
		Speed:   1.5,
		Dropped: 7,
	}

	updated, _ := model.Update(msg)
	m := updated.(Model)

	if m.stats.Submitted != 42 {
		t.Errorf("expected 42 submitted, got %d", m.stats.Submitted)
	}
	if m.volume != 60 || !m.muted {
		t.Errorf("expected volume 60 muted, got %d %v", m.volume, m.muted)
	}
	if m.speed != 1.5 {
		t.Errorf("expected speed 1.5, got %f", m.speed)
	}
	if m.title != "tone 440Hz" || m.backend != "malgo" {
		t.Errorf("unexpected title/backend %q %q", m.title, m.backend)
	}
	if m.dropped != 7 {
		t.Errorf("expected 7 dropped, got %d", m.dropped)
	}
}

func TestStatusMsgKeepsTitleWhenEmpty(t *testing.T) {
	model := NewModel(nil, 100, 1.0)
	model.title = "song.flac"

	updated, _ := model.Update(StatusMsg{})
	m := updated.(Model)

	if m.title != "song.flac" {
		t.Errorf("expected title kept, got %q", m.title)
	}
	if m.speed != 1.0 {
		t.Errorf("expected speed kept, got %f", m.speed)
	}
}

func TestVolumeKeys(t *testing.T) {
	tests := []struct {
		name     string
		start    int
		key      tea.KeyType
		expected int
		sent     bool
	}{
		{"up", 50, tea.KeyUp, 55, true},
		{"up clamps", 98, tea.KeyUp, 100, true},
		{"up at max", 100, tea.KeyUp, 100, false},
		{"down", 50, tea.KeyDown, 45, true},
		{"down clamps", 3, tea.KeyDown, 0, true},
		{"down at zero", 0, tea.KeyDown, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			controls := NewControls()
			model := NewModel(controls, tt.start, 1.0)

			updated, _ := model.Update(tea.KeyMsg{Type: tt.key})
			m := updated.(Model)

			if m.volume != tt.expected {
				t.Errorf("expected volume %d, got %d", tt.expected, m.volume)
			}

			select {
			case msg := <-controls.Changes:
				if !tt.sent {
					t.Fatalf("unexpected control %+v", msg)
				}
				if msg.Volume == nil || *msg.Volume != tt.expected {
					t.Errorf("expected volume change %d, got %+v", tt.expected, msg)
				}
			default:
				if tt.sent {
					t.Error("expected a control change")
				}
			}
		})
	}
}

func TestMuteKeyToggles(t *testing.T) {
	controls := NewControls()
	model := NewModel(controls, 100, 1.0)

	updated, _ := model.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("m")})
	m := updated.(Model)
	if !m.muted {
		t.Fatal("expected muted")
	}

	msg := <-controls.Changes
	if msg.Muted == nil || !*msg.Muted {
		t.Errorf("expected mute change, got %+v", msg)
	}

	updated, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("m")})
	m = updated.(Model)
	msg = <-controls.Changes
	if m.muted || msg.Muted == nil || *msg.Muted {
		t.Errorf("expected unmute, got model %v msg %+v", m.muted, msg)
	}
}

func TestSpeedKeys(t *testing.T) {
	controls := NewControls()
	model := NewModel(controls, 100, 0.25)

	updated, _ := model.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("-")})
	m := updated.(Model)
	if m.speed != 0.25 {
		t.Errorf("expected speed floor 0.25, got %f", m.speed)
	}
	select {
	case msg := <-controls.Changes:
		t.Errorf("unexpected control %+v", msg)
	default:
	}

	updated, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("+")})
	m = updated.(Model)
	msg := <-controls.Changes
	if m.speed != 0.5 || msg.Speed != 0.5 {
		t.Errorf("expected speed 0.5, got model %f msg %f", m.speed, msg.Speed)
	}
}

func TestQuitKey(t *testing.T) {
	controls := NewControls()
	model := NewModel(controls, 100, 1.0)

	_, cmd := model.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	if cmd == nil {
		t.Fatal("expected quit command")
	}

	select {
	case <-controls.Quit:
	default:
		t.Error("expected quit notification")
	}
}

func TestViewRendersSections(t *testing.T) {
	model := NewModel(nil, 75, 1.0)

	if got := model.View(); got != "Loading..." {
		t.Errorf("expected loading view before size, got %q", got)
	}

	updated, _ := model.Update(tea.WindowSizeMsg{Width: 80, Height: 24})
	updated, _ = updated.Update(StatusMsg{
		Stats: stream.Stats{
			Running:  true,
			Device:   "Speakers",
			Format:   audio.Format{SampleRate: 48000, Channels: 6, Encoding: audio.EncodingInt16},
			Surround: true,
			Buffers:  3,
			Queued:   2,
			Free:     1,
			Volume:   75,
		},
		Backend: "null",
	})

	view := updated.View()
	for _, want := range []string{"Speakers", "Buffers:", "Volume:", "Submitted:", "q:Quit"} {
		if !strings.Contains(view, want) {
			t.Errorf("expected view to contain %q", want)
		}
	}
}

func TestRenderBar(t *testing.T) {
	tests := []struct {
		value, max, width int
		expected          string
	}{
		{0, 100, 4, "░░░░"},
		{50, 100, 4, "██░░"},
		{100, 100, 4, "████"},
	}

	for _, tt := range tests {
		if got := renderBar(tt.value, tt.max, tt.width); got != tt.expected {
			t.Errorf("renderBar(%d, %d, %d) = %q, want %q", tt.value, tt.max, tt.width, got, tt.expected)
		}
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 10); got != "short" {
		t.Errorf("expected unchanged, got %q", got)
	}
	if got := truncate("a very long title indeed", 10); got != "a very ..." {
		t.Errorf("expected truncated, got %q", got)
	}
}
