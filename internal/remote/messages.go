// ABOUTME: Remote control message definitions
// ABOUTME: JSON envelopes exchanged with websocket control clients
package remote

import (
	"encoding/json"

	"github.com/harperreed/emustream/pkg/stream"
)

// ProtocolVersion is reported in the hello message
const ProtocolVersion = 1

// Message is the top-level wrapper for outbound messages
type Message struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload,omitempty"`
}

// inbound is a client message with its payload left encoded
type inbound struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Hello is sent to each client on connect
type Hello struct {
	ServerID string `json:"server_id"`
	Name     string `json:"name"`
	Version  int    `json:"version"`
	Software     string `json:"software"`
	Manufacturer string `json:"manufacturer"`
}

// VolumeCommand sets the output level
type VolumeCommand struct {
	Volume int `json:"volume"`
}

// MuteCommand mutes or unmutes the stream
type MuteCommand struct {
	Muted bool `json:"muted"`
}

// SpeedCommand changes emulation speed
type SpeedCommand struct {
	Speed float64 `json:"speed"`
}

// ErrorMessage reports a rejected command
type ErrorMessage struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// StatsMessage is the periodic stream report
type StatsMessage struct {
	SessionID string  `json:"session_id"`
	Running   bool    `json:"running"`
	Device    string  `json:"device"`
	Renderer  string  `json:"renderer"`
	Format    string  `json:"format"`
	Float32   bool    `json:"float32"`
	Surround  bool    `json:"surround"`
	Tempo     float64 `json:"tempo"`

	Iterations uint64 `json:"iterations"`
	Submitted  uint64 `json:"submitted"`
	Skipped    uint64 `json:"skipped"`
	Rejected   uint64 `json:"rejected"`
	Underruns  uint64 `json:"underruns"`
	Downgrades uint64 `json:"downgrades"`

	Buffers   int `json:"buffers"`
	Queued    int `json:"queued"`
	Free      int `json:"free"`
	Processed int `json:"processed"`

	Volume int  `json:"volume"`
	Muted  bool `json:"muted"`

	// Host fields, present when a host is attached
	Speed    float64 `json:"speed,omitempty"`
	Buffered int     `json:"buffered_frames,omitempty"`
	Dropped  uint64  `json:"dropped_frames,omitempty"`
}

func newStatsMessage(st stream.Stats) StatsMessage {
	msg := StatsMessage{
		SessionID:  st.SessionID,
		Running:    st.Running,
		Device:     st.Device,
		Renderer:   st.Renderer,
		Float32:    st.Float32,
		Surround:   st.Surround,
		Tempo:      st.Tempo,
		Iterations: st.Iterations,
		Submitted:  st.Submitted,
		Skipped:    st.Skipped,
		Rejected:   st.Rejected,
		Underruns:  st.Underruns,
		Downgrades: st.Downgrades,
		Buffers:    st.Buffers,
		Queued:     st.Queued,
		Free:       st.Free,
		Processed:  st.Processed,
		Volume:     st.Volume,
		Muted:      st.Muted,
	}
	if st.Format.Channels > 0 {
		msg.Format = st.Format.String()
	}
	return msg
}
