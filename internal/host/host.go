// ABOUTME: Emulated host system feeding the audio stream
// ABOUTME: Runs program material at emulation speed into a mixer FIFO and paces stream updates
package host

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/harperreed/emustream/internal/source"
)

// measureWindow is how much wall time a speed measurement covers
const measureWindow = 250 * time.Millisecond

// Config configures a host
type Config struct {
	Source source.Source

	// Speed is emulation speed relative to real time
	Speed float64

	TicksPerSecond uint64
	DMASampleRate  uint32

	// UpdateInterval paces production and stream wakeups
	UpdateInterval time.Duration

	// FIFO bounds buffered mixer audio; older audio is dropped on overflow
	FIFO time.Duration

	// Notify is called after each production tick
	Notify func()
}

// Host emulates the system side of the audio path. It implements
// stream.SampleSource and stream.Timing.
type Host struct {
	src      source.Source
	ticks    uint64
	dmaRate  uint32
	interval time.Duration
	notify   func()
	now      func() time.Time

	mu       sync.Mutex
	fifo     []int16
	capacity int // frames
	readBuf  []int16
	speed    float64
	carry    float64
	dropped  uint64
	mixed    uint64
	srcErrs  uint64
	lastTick time.Time

	// speed measurement
	measured     float64
	windowStart  time.Time
	windowFrames uint64
}

// New creates a host
func New(cfg Config) *Host {
	if cfg.Speed <= 0 {
		cfg.Speed = 1.0
	}
	if cfg.UpdateInterval <= 0 {
		cfg.UpdateInterval = 5 * time.Millisecond
	}
	if cfg.FIFO <= 0 {
		cfg.FIFO = 200 * time.Millisecond
	}
	if cfg.Notify == nil {
		cfg.Notify = func() {}
	}

	rate := cfg.Source.SampleRate()
	return &Host{
		src:      cfg.Source,
		ticks:    cfg.TicksPerSecond,
		dmaRate:  cfg.DMASampleRate,
		interval: cfg.UpdateInterval,
		notify:   cfg.Notify,
		now:      time.Now,
		capacity: int(int64(rate) * int64(cfg.FIFO) / int64(time.Second)),
		speed:    cfg.Speed,
	}
}

// SampleRate returns the mixer output rate
func (h *Host) SampleRate() uint32 { return uint32(h.src.SampleRate()) }

// TicksPerSecond returns the emulated CPU clock
func (h *Host) TicksPerSecond() uint64 { return h.ticks }

// DMASampleRate returns the audio interface DMA rate
func (h *Host) DMASampleRate() uint32 { return h.dmaRate }

// CurrentSpeed returns the measured emulation speed, or 0 before the first
// measurement completes
func (h *Host) CurrentSpeed() float64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.measured
}

// RequestRefresh closes the current speed measurement window early
func (h *Host) RequestRefresh() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.measure(h.now(), true)
}

// SetSpeed changes the emulation speed
func (h *Host) SetSpeed(speed float64) {
	if speed <= 0 {
		return
	}
	h.mu.Lock()
	h.speed = speed
	h.mu.Unlock()
	log.Printf("Emulation speed set to %.2fx", speed)
}

// Speed returns the configured emulation speed
func (h *Host) Speed() float64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.speed
}

// Dropped returns frames discarded because the FIFO overflowed
func (h *Host) Dropped() uint64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.dropped
}

// Mixed returns frames handed to the stream
func (h *Host) Mixed() uint64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.mixed
}

// Buffered returns frames waiting in the FIFO
func (h *Host) Buffered() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.fifo) / 2
}

// Mix pops up to frames stereo frames into samples
func (h *Host) Mix(samples []int16, frames int, _ bool) int {
	h.mu.Lock()
	defer h.mu.Unlock()

	n := len(h.fifo) / 2
	if n > frames {
		n = frames
	}
	if n > len(samples)/2 {
		n = len(samples) / 2
	}
	copy(samples, h.fifo[:n*2])
	h.fifo = h.fifo[:copy(h.fifo, h.fifo[n*2:])]
	h.mixed += uint64(n)
	return n
}

// Run produces audio every update interval until ctx is done
func (h *Host) Run(ctx context.Context) {
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	h.mu.Lock()
	h.lastTick = h.now()
	h.windowStart = h.lastTick
	h.mu.Unlock()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			h.tick()
			h.notify()
		}
	}
}

// tick produces the audio emulated since the previous tick
func (h *Host) tick() {
	h.mu.Lock()
	defer h.mu.Unlock()

	now := h.now()
	elapsed := now.Sub(h.lastTick)
	h.lastTick = now
	h.produce(elapsed)
	h.measure(now, false)
}

// produce runs the source for elapsed wall time at the current speed (must hold h.mu)
func (h *Host) produce(elapsed time.Duration) {
	if elapsed <= 0 {
		return
	}

	want := float64(h.src.SampleRate())*elapsed.Seconds()*h.speed + h.carry
	frames := int(want)
	h.carry = want - float64(frames)
	if frames == 0 {
		return
	}

	if cap(h.readBuf) < frames*2 {
		h.readBuf = make([]int16, frames*2)
	}
	buf := h.readBuf[:frames*2]

	got := 0
	for got < len(buf) {
		n, err := h.src.Read(buf[got:])
		if err != nil {
			h.srcErrs++
			if h.srcErrs == 1 || h.srcErrs%1000 == 0 {
				log.Printf("Error reading %s: %v", h.src.Title(), err)
			}
			break
		}
		if n == 0 {
			break
		}
		got += n
	}
	got -= got % 2

	h.fifo = append(h.fifo, buf[:got]...)
	h.windowFrames += uint64(got / 2)

	if over := len(h.fifo)/2 - h.capacity; over > 0 {
		h.fifo = h.fifo[:copy(h.fifo, h.fifo[over*2:])]
		h.dropped += uint64(over)
	}
}

// measure updates the measured speed once the window is long enough, or
// immediately when forced (must hold h.mu)
func (h *Host) measure(now time.Time, force bool) {
	if h.windowStart.IsZero() {
		h.windowStart = now
		return
	}

	wall := now.Sub(h.windowStart)
	if wall <= 0 || (!force && wall < measureWindow) {
		return
	}

	h.measured = float64(h.windowFrames) / (float64(h.src.SampleRate()) * wall.Seconds())
	h.windowStart = now
	h.windowFrames = 0
}
