// ABOUTME: Playback loop statistics
// ABOUTME: Counters and ring occupancy snapshots shared with monitors
package stream

import (
	"sync"

	"github.com/harperreed/emustream/pkg/audio"
)

// Stats is a snapshot of one stream session
type Stats struct {
	SessionID string
	Running   bool
	Device    string
	Renderer  string

	// Format of the last submitted buffer
	Format   audio.Format
	Float32  bool
	Surround bool
	Tempo    float64

	Iterations uint64
	Submitted  uint64
	Skipped    uint64
	Rejected   uint64
	Underruns  uint64
	Downgrades uint64

	Buffers   int
	Queued    int
	Free      int
	Processed int

	Volume int
	Muted  bool
}

// statsRecorder is written by the loop goroutine and read by Stats()
type statsRecorder struct {
	mu sync.Mutex
	s  Stats
}

func (r *statsRecorder) update(fn func(*Stats)) {
	r.mu.Lock()
	fn(&r.s)
	r.mu.Unlock()
}

func (r *statsRecorder) snapshot() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.s
}
